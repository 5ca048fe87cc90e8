// Package settings is the key/value configuration every other component reads.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/sudo-init-do/linkhub/internal/apperr"
)

const (
	ServiceFeeBps         = "service_fee_bps"
	ReferralCommissionBps = "referral_commission_bps"
	Timezone              = "timezone"
	Maintenance           = "maintenance"
	AutoAcceptOrders      = "auto_accept_orders"
	PaymentGateway        = "payment_gateway"
)

// Defaults apply when a key has never been written.
var Defaults = map[string]string{
	ServiceFeeBps:         "500",
	ReferralCommissionBps: "1000",
	Timezone:              "UTC",
	Maintenance:           "false",
	AutoAcceptOrders:      "false",
	PaymentGateway:        "{}",
}

const cachePrefix = "settings:"

type kv interface {
	load(ctx context.Context, key string) (string, bool, error)
	loadAll(ctx context.Context) (map[string]string, error)
	save(ctx context.Context, key, value string) error
}

// Store reads through a Redis cache when one is configured.
type Store struct {
	db    kv
	cache *redis.Client
	ttl   time.Duration
}

func NewStore(pool *pgxpool.Pool, cache *redis.Client) *Store {
	return &Store{db: pgKV{pool: pool}, cache: cache, ttl: time.Minute}
}

// Validate checks value against the type of key.
func Validate(key, value string) error {
	switch key {
	case ServiceFeeBps, ReferralCommissionBps:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n < 0 || n > 10000 {
			return apperr.Validation("%s must be an integer between 0 and 10000", key)
		}
	case Maintenance, AutoAcceptOrders:
		if _, err := strconv.ParseBool(value); err != nil {
			return apperr.Validation("%s must be true or false", key)
		}
	case Timezone:
		if _, err := time.LoadLocation(value); err != nil {
			return apperr.Validation("unknown timezone %q", value)
		}
	case PaymentGateway:
		if !json.Valid([]byte(value)) {
			return apperr.Validation("%s must be valid JSON", key)
		}
	default:
		return apperr.Validation("unknown setting %q", key)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if _, known := Defaults[key]; !known {
		return "", apperr.NotFound("setting")
	}
	if s.cache != nil {
		v, err := s.cache.Get(ctx, cachePrefix+key).Result()
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, redis.Nil) {
			log.Printf("[settings] cache get %s: %v", key, err)
		}
	}

	v, ok, err := s.db.load(ctx, key)
	if err != nil {
		return "", err
	}
	if !ok {
		v = Defaults[key]
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cachePrefix+key, v, s.ttl).Err(); err != nil {
			log.Printf("[settings] cache set %s: %v", key, err)
		}
	}
	return v, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := Validate(key, value); err != nil {
		return err
	}
	if err := s.db.save(ctx, key, value); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.Del(ctx, cachePrefix+key).Err(); err != nil {
			log.Printf("[settings] cache invalidate %s: %v", key, err)
		}
	}
	return nil
}

// All returns every known key with stored values overlaid on the defaults.
func (s *Store) All(ctx context.Context) (map[string]string, error) {
	stored, err := s.db.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(Defaults))
	for k, v := range Defaults {
		out[k] = v
	}
	for k, v := range stored {
		if _, known := Defaults[k]; known {
			out[k] = v
		}
	}
	return out, nil
}

func (s *Store) intValue(ctx context.Context, key string) int64 {
	v, err := s.Get(ctx, key)
	if err == nil {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	n, _ := strconv.ParseInt(Defaults[key], 10, 64)
	return n
}

func (s *Store) boolValue(ctx context.Context, key string) bool {
	v, err := s.Get(ctx, key)
	if err != nil {
		v = Defaults[key]
	}
	b, _ := strconv.ParseBool(v)
	return b
}

func (s *Store) ServiceFeeBps(ctx context.Context) int64 { return s.intValue(ctx, ServiceFeeBps) }

func (s *Store) ReferralCommissionBps(ctx context.Context) int64 {
	return s.intValue(ctx, ReferralCommissionBps)
}

func (s *Store) Maintenance(ctx context.Context) bool { return s.boolValue(ctx, Maintenance) }

func (s *Store) AutoAcceptOrders(ctx context.Context) bool { return s.boolValue(ctx, AutoAcceptOrders) }

// Location falls back to UTC when the stored zone cannot be loaded.
func (s *Store) Location(ctx context.Context) *time.Location {
	v, err := s.Get(ctx, Timezone)
	if err != nil {
		return time.UTC
	}
	loc, err := time.LoadLocation(v)
	if err != nil {
		return time.UTC
	}
	return loc
}

// PaymentGateway returns the raw gateway config blob.
func (s *Store) PaymentGateway(ctx context.Context) (json.RawMessage, error) {
	v, err := s.Get(ctx, PaymentGateway)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(v), nil
}

type pgKV struct {
	pool *pgxpool.Pool
}

func (p pgKV) load(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := p.pool.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("load setting %s: %w", key, err)
	}
	return v, true, nil
}

func (p pgKV) loadAll(ctx context.Context) (map[string]string, error) {
	rows, err := p.pool.Query(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

func (p pgKV) save(ctx context.Context, key, value string) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		key, value)
	if err != nil {
		return fmt.Errorf("save setting %s: %w", key, err)
	}
	return nil
}
