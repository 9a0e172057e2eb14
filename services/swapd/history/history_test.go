package history

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func setupHistory(t *testing.T, capacity int) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	store, err := New(db, capacity)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestAddKeepsNewestWithinCapacity(t *testing.T) {
	store := setupHistory(t, 50)
	ctx := context.Background()
	for i := 1; i <= 55; i++ {
		if _, err := store.Add(ctx, SwapRecord{
			Wallet:      "wallet-a",
			InputAmount: fmt.Sprintf("%d", i),
			Signature:   fmt.Sprintf("sig-%d", i),
			Timestamp:   int64(1_000 + i),
		}); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}
	records, err := store.List(ctx, "wallet-a")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 50 {
		t.Fatalf("expected 50 records, got %d", len(records))
	}
	if records[0].InputAmount != "55" || records[49].InputAmount != "6" {
		t.Fatalf("unexpected ordering: first %s last %s", records[0].InputAmount, records[49].InputAmount)
	}
}

func TestHistoryIsPerWallet(t *testing.T) {
	store := setupHistory(t, 2)
	ctx := context.Background()
	for _, wallet := range []string{"a", "b", "a", "a"} {
		if _, err := store.Add(ctx, SwapRecord{Wallet: wallet}); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	a, _ := store.List(ctx, "a")
	b, _ := store.List(ctx, "b")
	if len(a) != 2 || len(b) != 1 {
		t.Fatalf("expected capacity per wallet, got a=%d b=%d", len(a), len(b))
	}
	if a[0].Status != StatusSuccess || a[0].ID == "" || a[0].Timestamp == 0 {
		t.Fatalf("expected defaults to be filled, got %+v", a[0])
	}

	if err := store.Clear(ctx, "a"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	a, _ = store.List(ctx, "a")
	b, _ = store.List(ctx, "b")
	if len(a) != 0 || len(b) != 1 {
		t.Fatalf("clear should only affect one wallet, got a=%d b=%d", len(a), len(b))
	}
}

func TestAddRejectsMissingWallet(t *testing.T) {
	store := setupHistory(t, 5)
	if _, err := store.Add(context.Background(), SwapRecord{}); !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord, got %v", err)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open("mysql", "dsn", 0); !errors.Is(err, ErrUnsupportedDriver) {
		t.Fatalf("expected ErrUnsupportedDriver, got %v", err)
	}
}

func TestOpenSQLite(t *testing.T) {
	store, err := Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()), 0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()
	if _, err := store.Add(context.Background(), SwapRecord{Wallet: "w", Status: StatusFailed}); err != nil {
		t.Fatalf("add: %v", err)
	}
}
