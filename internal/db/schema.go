package db

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
)

type migration struct {
	name string
	sql  string
}

// Every statement is idempotent so EnsureSchema can run on every boot.
var migrations = []migration{
	{"extensions", `CREATE EXTENSION IF NOT EXISTS pgcrypto`},
	{"users", `
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'fan' CHECK (role IN ('fan','seller','admin')),
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			referred_by UUID NULL REFERENCES users(id) ON DELETE SET NULL,
			bio TEXT NOT NULL DEFAULT '',
			avatar_url TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`},
	{"wallets", `
		CREATE TABLE IF NOT EXISTS wallets (
			user_id UUID PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`},
	{"ledger_entries", `
		CREATE TABLE IF NOT EXISTS ledger_entries (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL REFERENCES wallets(user_id) ON DELETE CASCADE,
			amount_cents BIGINT NOT NULL CHECK (amount_cents <> 0),
			kind TEXT NOT NULL,
			reference TEXT NOT NULL DEFAULT '',
			note TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_ledger_user_created ON ledger_entries(user_id, created_at)`},
	{"sites", `
		CREATE TABLE IF NOT EXISTS sites (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			owner_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			domain TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			offering TEXT NOT NULL CHECK (offering IN ('guest_post','exchange','both')),
			price_cents BIGINT NOT NULL DEFAULT 0 CHECK (price_cents >= 0),
			domain_authority INTEGER NOT NULL DEFAULT 0,
			monthly_traffic BIGINT NOT NULL DEFAULT 0,
			language TEXT NOT NULL DEFAULT 'en',
			turnaround_days INTEGER NOT NULL DEFAULT 7,
			status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active','suspended','pending_review')),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_sites_owner ON sites(owner_id)`},
	{"orders", `
		CREATE TABLE IF NOT EXISTS orders (
			id UUID PRIMARY KEY,
			buyer_id UUID NOT NULL REFERENCES users(id),
			seller_id UUID NOT NULL REFERENCES users(id),
			site_id UUID NOT NULL REFERENCES sites(id),
			amount_cents BIGINT NOT NULL CHECK (amount_cents > 0),
			service_fee_cents BIGINT NOT NULL CHECK (service_fee_cents >= 0),
			seller_amount_cents BIGINT NOT NULL,
			status TEXT NOT NULL CHECK (status IN ('pending','on_going','delivered','completed','cancelled','refunded')),
			requirements TEXT NOT NULL DEFAULT '',
			delivery_url TEXT NOT NULL DEFAULT '',
			google_doc_link TEXT NOT NULL DEFAULT '',
			target_link TEXT NOT NULL DEFAULT '',
			cancel_reason TEXT NOT NULL DEFAULT '',
			chat_closed BOOLEAN NOT NULL DEFAULT FALSE,
			version INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CHECK (seller_amount_cents + service_fee_cents = amount_cents)
		);
		CREATE INDEX IF NOT EXISTS idx_orders_buyer ON orders(buyer_id);
		CREATE INDEX IF NOT EXISTS idx_orders_seller ON orders(seller_id)`},
	{"reviews", `
		CREATE TABLE IF NOT EXISTS reviews (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			order_id UUID NOT NULL UNIQUE REFERENCES orders(id) ON DELETE CASCADE,
			buyer_id UUID NOT NULL REFERENCES users(id),
			seller_id UUID NOT NULL REFERENCES users(id),
			rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
			comment TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`},
	{"exchanges", `
		CREATE TABLE IF NOT EXISTS exchanges (
			id UUID PRIMARY KEY,
			requester_id UUID NOT NULL REFERENCES users(id),
			requested_user_id UUID NOT NULL REFERENCES users(id),
			requester_site_id UUID NOT NULL REFERENCES sites(id),
			requested_site_id UUID NOT NULL REFERENCES sites(id),
			status TEXT NOT NULL CHECK (status IN ('pending','active','delivered','completed','cancelled','declined')),
			message TEXT NOT NULL DEFAULT '',
			delivery_url TEXT NOT NULL DEFAULT '',
			delivered_by UUID NULL REFERENCES users(id),
			version INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CHECK (requester_id <> requested_user_id)
		)`},
	{"support_tickets", `
		CREATE SEQUENCE IF NOT EXISTS support_ticket_seq;
		CREATE TABLE IF NOT EXISTS support_tickets (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			ticket_number TEXT NOT NULL UNIQUE,
			subject TEXT NOT NULL,
			description TEXT NOT NULL,
			status TEXT NOT NULL CHECK (status IN ('open','replied','investigating','resolved','closed')),
			priority TEXT NOT NULL DEFAULT 'medium',
			category TEXT NOT NULL DEFAULT 'general',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`},
	{"messages", `
		CREATE TABLE IF NOT EXISTS messages (
			id UUID PRIMARY KEY,
			thread_kind TEXT NOT NULL CHECK (thread_kind IN ('order','ticket')),
			thread_id UUID NOT NULL,
			sender_id UUID NOT NULL REFERENCES users(id),
			recipient_id UUID NULL REFERENCES users(id),
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			read_at TIMESTAMPTZ NULL
		);
		CREATE INDEX IF NOT EXISTS idx_messages_thread ON messages(thread_kind, thread_id, created_at)`},
	{"settings", `
		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`},
	{"notifications", `
		CREATE TABLE IF NOT EXISTS notifications (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			type TEXT NOT NULL,
			title TEXT NOT NULL,
			body TEXT NOT NULL DEFAULT '',
			reference TEXT NULL,
			metadata JSONB NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			read_at TIMESTAMPTZ NULL
		);
		CREATE INDEX IF NOT EXISTS idx_notifications_user_created ON notifications(user_id, created_at);
		CREATE INDEX IF NOT EXISTS idx_notifications_user_unread ON notifications(user_id) WHERE read_at IS NULL`},
	{"rejection_reasons", `
		CREATE TABLE IF NOT EXISTS rejection_reasons (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			reason TEXT NOT NULL,
			applies_to TEXT NOT NULL DEFAULT 'order' CHECK (applies_to IN ('order','exchange','site')),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`},
}

// EnsureSchema creates any missing tables. A failing step aborts boot.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, m := range migrations {
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("ensure %s: %w", m.name, err)
		}
	}
	log.Printf("schema ensured (%d steps)", len(migrations))
	return nil
}
