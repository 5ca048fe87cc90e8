package site

import (
	"fmt"
	"strings"

	"github.com/sudo-init-do/linkhub/internal/db"
	"github.com/sudo-init-do/linkhub/internal/money"
)

// SearchFilter holds the public directory filters. Zero values are ignored.
type SearchFilter struct {
	Query         string
	Category      string
	Offering      Offering
	MinPrice      money.Cents
	MaxPrice      money.Cents
	MinDA         int
	Language      string
	MaxTurnaround int
	OwnerID       string
	// Status defaults to active for public searches.
	Status Status
	Sort   string
	Limit  int
	Offset int
}

const (
	defaultLimit = 20
	maxLimit     = 100
)

var sortClauses = map[string]string{
	"price_asc":    "price_cents ASC, id",
	"price_desc":   "price_cents DESC, id",
	"da_desc":      "domain_authority DESC, id",
	"traffic_desc": "monthly_traffic DESC, id",
	"oldest":       "created_at ASC, id",
	"newest":       "created_at DESC, id",
}

const siteColumns = `id, owner_id, domain, title, description, category, offering, price_cents,
	domain_authority, monthly_traffic, language, turnaround_days, status, created_at`

// buildSearch renders f as a parameterised query.
func buildSearch(f SearchFilter) (string, []any) {
	var where []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	status := f.Status
	if status == "" {
		status = StatusActive
	}
	where = append(where, "status = "+arg(string(status)))

	if q := strings.TrimSpace(f.Query); q != "" {
		p := arg(db.ContainsPattern(q))
		where = append(where, fmt.Sprintf(`(domain ILIKE %[1]s ESCAPE '\' OR title ILIKE %[1]s ESCAPE '\' OR description ILIKE %[1]s ESCAPE '\')`, p))
	}
	if f.Category != "" {
		where = append(where, "category = "+arg(strings.ToLower(f.Category)))
	}
	switch f.Offering {
	case OfferingGuestPost, OfferingExchange:
		// both satisfies either side
		where = append(where, fmt.Sprintf("offering IN (%s, 'both')", arg(string(f.Offering))))
	case OfferingBoth:
		where = append(where, "offering = 'both'")
	}
	if f.MinPrice > 0 {
		where = append(where, "price_cents >= "+arg(int64(f.MinPrice)))
	}
	if f.MaxPrice > 0 {
		where = append(where, "price_cents <= "+arg(int64(f.MaxPrice)))
	}
	if f.MinDA > 0 {
		where = append(where, "domain_authority >= "+arg(f.MinDA))
	}
	if f.Language != "" {
		where = append(where, "language = "+arg(strings.ToLower(f.Language)))
	}
	if f.MaxTurnaround > 0 {
		where = append(where, "turnaround_days <= "+arg(f.MaxTurnaround))
	}
	if f.OwnerID != "" {
		where = append(where, "owner_id = "+arg(f.OwnerID))
	}

	order, ok := sortClauses[f.Sort]
	if !ok {
		order = sortClauses["newest"]
	}
	limit := f.Limit
	if limit <= 0 || limit > maxLimit {
		limit = defaultLimit
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	q := "SELECT " + siteColumns + " FROM sites WHERE " + strings.Join(where, " AND ") +
		" ORDER BY " + order +
		" LIMIT " + arg(limit) + " OFFSET " + arg(offset)
	return q, args
}
