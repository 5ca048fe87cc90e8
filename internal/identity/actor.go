// Package identity describes who is performing an operation.
package identity

const (
	RoleFan    = "fan"
	RoleSeller = "seller"
	RoleAdmin  = "admin"
)

// Actor is the authenticated caller. The lifecycle packages trust it as given.
type Actor struct {
	UserID string
	Role   string
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// Is reports whether the actor is the user with id.
func (a Actor) Is(id string) bool { return a.UserID != "" && a.UserID == id }
