package wallet

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"

	"github.com/sudo-init-do/linkhub/internal/apperr"
	"github.com/sudo-init-do/linkhub/internal/db"
	"github.com/sudo-init-do/linkhub/internal/testutil"
)

func TestStoreAdjust(t *testing.T) {
	pool := testutil.Pool(t)
	s := NewStore(pool)
	ctx := context.Background()
	uid := testutil.User(t, pool, "fan")

	bal, err := s.Adjust(ctx, uid, OpAdd, 10000, "seed")
	if err != nil || bal != 10000 {
		t.Fatalf("add: bal=%s err=%v", bal, err)
	}
	if _, err := s.Adjust(ctx, uid, OpSubtract, 10001, ""); !errors.Is(err, apperr.ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	bal, err = s.Adjust(ctx, uid, OpSubtract, 2500, "")
	if err != nil || bal != 7500 {
		t.Fatalf("subtract: bal=%s err=%v", bal, err)
	}

	entries, err := s.Entries(ctx, uid, 0)
	if err != nil {
		t.Fatal(err)
	}
	replayed, err := Replay(entries)
	if err != nil || replayed != 7500 {
		t.Errorf("replay: %s %v", replayed, err)
	}
}

func TestStoreConcurrentSubtract(t *testing.T) {
	pool := testutil.Pool(t)
	s := NewStore(pool)
	ctx := context.Background()
	uid := testutil.User(t, pool, "fan")
	if _, err := s.Adjust(ctx, uid, OpAdd, 1000, ""); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Adjust(ctx, uid, OpSubtract, 300, ""); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if ok != 3 {
		t.Errorf("expected exactly 3 subtracts to succeed, got %d", ok)
	}
	if bal, _ := s.Balance(ctx, uid); bal != 100 {
		t.Errorf("expected 1.00 left, got %s", bal)
	}
}

func TestPostUnknownWallet(t *testing.T) {
	pool := testutil.Pool(t)
	err := db.InTx(context.Background(), pool, func(tx pgx.Tx) error {
		return Post(context.Background(), tx, Credit("00000000-0000-0000-0000-000000000000", 100, KindRefund, ""))
	})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}
