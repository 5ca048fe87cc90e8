package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/sudo-init-do/linkhub/internal/apperr"
	"github.com/sudo-init-do/linkhub/internal/config"
	"github.com/sudo-init-do/linkhub/internal/db"
	"github.com/sudo-init-do/linkhub/internal/identity"
	"github.com/sudo-init-do/linkhub/internal/user"
)

func main() {
	email := flag.String("email", "", "Email of the user to update")
	role := flag.String("role", identity.RoleAdmin, "Role to assign: fan, seller or admin")
	flag.Parse()

	if *email == "" {
		log.Fatalf("usage: go run ./cmd/adminutil/setrole -email user@example.com [-role admin]")
	}
	switch *role {
	case identity.RoleFan, identity.RoleSeller, identity.RoleAdmin:
	default:
		log.Fatalf("unknown role %q", *role)
	}

	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		log.Fatalf("DATABASE_URL or DB_HOST/DB_NAME is required")
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()

	// Idempotent; lets the tool run against a fresh database before the API has booted.
	if err := db.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("schema: %v", err)
	}

	u, err := user.NewStore(pool).SetRoleByEmail(ctx, strings.ToLower(strings.TrimSpace(*email)), *role)
	if errors.Is(err, apperr.ErrNotFound) {
		log.Fatalf("no user found with email: %s", *email)
	}
	if err != nil {
		log.Fatalf("failed to update role: %v", err)
	}

	fmt.Printf("User %s (%s) is now %s.\n", u.Email, u.ID, u.Role)
}
