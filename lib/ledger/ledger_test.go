package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/xtruelegend/keymint/lib/codec"
	"github.com/xtruelegend/keymint/lib/kv"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	mirror := NewMirror(filepath.Join(t.TempDir(), "keys.json"))
	return New(kv.NewMemoryStore(), codec.NewJSONSerializer(), mirror)
}

func record(email, key, orderID string) Record {
	return Record{
		Email:      email,
		LicenseKey: key,
		Product:    "TestProduct",
		OrderID:    orderID,
		CreatedAt:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestAppendAndListFor(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)

	if err := l.Append(ctx, record("Buyer@Example.com ", "AAAA-1111", "ord-1")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := l.Append(ctx, record("buyer@example.com", "BBBB-2222", "ord-2")); err != nil {
		t.Fatalf("append: %v", err)
	}

	// lookup is case and whitespace insensitive
	records, err := l.ListFor(ctx, "BUYER@example.COM")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].LicenseKey != "AAAA-1111" || records[1].LicenseKey != "BBBB-2222" {
		t.Errorf("insertion order lost: %+v", records)
	}
}

func TestAppendEmptyEmailIsRefused(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)

	if err := l.Append(ctx, record("   ", "AAAA-1111", "ord-1")); err != nil {
		t.Fatalf("append with empty email must not error, got %v", err)
	}

	all, err := l.All(ctx)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("a record without owner was persisted: %v", all)
	}
}

func TestAppendTracksIssuedKeys(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)

	if err := l.Append(ctx, record("a@example.com", "aaaa-1111", "ord-1")); err != nil {
		t.Fatalf("append: %v", err)
	}

	issued, err := l.IssuedKeys(ctx)
	if err != nil {
		t.Fatalf("issued: %v", err)
	}
	if _, ok := issued["AAAA-1111"]; !ok {
		t.Errorf("issued set misses the appended key: %v", issued)
	}
}

func TestMarkIssuedDeduplicates(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)

	for i := 0; i < 3; i++ {
		if err := l.MarkIssued(ctx, "cccc-3333"); err != nil {
			t.Fatalf("mark: %v", err)
		}
	}
	issued, err := l.IssuedKeys(ctx)
	if err != nil {
		t.Fatalf("issued: %v", err)
	}
	if len(issued) != 1 {
		t.Errorf("got %d entries, want 1", len(issued))
	}
}

func TestReplaceIssuedSet(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	// fresh mirror per ledger so the mirror union does not resurrect keys
	l := New(store, codec.NewJSONSerializer(), NewMirror(filepath.Join(t.TempDir(), "keys.json")))

	_ = l.MarkIssued(ctx, "OLD-1")
	_ = l.MarkIssued(ctx, "OLD-2")

	if err := l.ReplaceIssuedSet(ctx, []string{"new-1"}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	issued, err := l.IssuedKeys(ctx)
	if err != nil {
		t.Fatalf("issued: %v", err)
	}
	if _, ok := issued["NEW-1"]; !ok || len(issued) != 1 {
		t.Errorf("got %v, want exactly NEW-1", issued)
	}
}

func TestAll(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)

	_ = l.Append(ctx, record("a@example.com", "K1", "ord-1"))
	_ = l.Append(ctx, record("b@example.com", "K2", "ord-2"))

	all, err := l.All(ctx)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d owners, want 2", len(all))
	}
	if len(all["a@example.com"]) != 1 || len(all["b@example.com"]) != 1 {
		t.Errorf("unexpected grouping: %v", all)
	}
}

func TestMirrorFallback(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "keys.json")

	// first ledger writes through to the mirror
	l := New(kv.NewMemoryStore(), codec.NewJSONSerializer(), NewMirror(path))
	if err := l.Append(ctx, record("a@example.com", "K1", "ord-1")); err != nil {
		t.Fatalf("append: %v", err)
	}

	// second ledger has an empty backend but shares the mirror file
	fresh := New(kv.NewMemoryStore(), codec.NewJSONSerializer(), NewMirror(path))

	records, err := fresh.ListFor(ctx, "a@example.com")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 || records[0].LicenseKey != "K1" {
		t.Errorf("mirror fallback failed: %+v", records)
	}

	issued, err := fresh.IssuedKeys(ctx)
	if err != nil {
		t.Fatalf("issued: %v", err)
	}
	if _, ok := issued["K1"]; !ok {
		t.Errorf("mirror keys missing from the issued union: %v", issued)
	}
}

func TestMirrorFindByKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.json")
	m := NewMirror(path)

	if err := m.Append(record("a@example.com", "K1", "ord-1")); err != nil {
		t.Fatalf("append: %v", err)
	}

	rec, ok := m.FindByKey("k1")
	if !ok {
		t.Fatal("key not found")
	}
	if rec.Email != "a@example.com" {
		t.Errorf("got %+v", rec)
	}

	if _, ok := m.FindByKey("absent"); ok {
		t.Error("found a record for an absent key")
	}
}
