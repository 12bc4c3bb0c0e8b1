package pricing

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"pgregory.net/rapid"
)

func writeDoc(t *testing.T, doc Document) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "coupons.json")
	raw, err := json.Marshal(&doc)
	if err != nil {
		t.Fatalf("marshal tier document: %v", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write tier document: %v", err)
	}
	return path
}

func twoTiers() []Tier {
	return []Tier{
		{Name: "Early Bird", MaxCopies: 2, Price: 5},
		{Name: "Launch", MaxCopies: 3, Price: 8},
	}
}

func TestTierFor(t *testing.T) {
	tiers := twoTiers()

	tests := []struct {
		name    string
		counter int
		want    string
	}{
		{"first sale hits first tier", 0, "Early Bird"},
		{"last slot of first tier", 1, "Early Bird"},
		{"first slot of second tier", 2, "Launch"},
		{"last slot of second tier", 4, "Launch"},
		{"past schedule stays on last tier", 5, "Launch"},
		{"far past schedule stays on last tier", 100, "Launch"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tier, ok := TierFor(tt.counter, tiers)
			if !ok {
				t.Fatal("expected a tier")
			}
			if tier.Name != tt.want {
				t.Errorf("counter %d: got tier %q, want %q", tt.counter, tier.Name, tt.want)
			}
		})
	}

	t.Run("no tiers configured", func(t *testing.T) {
		if _, ok := TierFor(0, nil); ok {
			t.Error("expected no tier for empty schedule")
		}
	})
}

func TestEngineCurrentPrice(t *testing.T) {
	t.Run("tiered", func(t *testing.T) {
		for counter, want := range map[int]string{0: "5.00", 1: "5.00", 2: "8.00", 7: "8.00"} {
			e := New(writeDoc(t, Document{SalesCount: counter, PricingTiers: twoTiers()}), "9.99")
			if got := e.CurrentPrice(); got != want {
				t.Errorf("counter %d: got price %q, want %q", counter, got, want)
			}
		}
	})

	t.Run("missing document falls back to base price", func(t *testing.T) {
		e := New(filepath.Join(t.TempDir(), "absent.json"), "9.99")
		if got := e.CurrentPrice(); got != "9.99" {
			t.Errorf("got %q, want base price", got)
		}
		if got := e.CurrentTierLabel(); got != DefaultLabel {
			t.Errorf("got label %q, want %q", got, DefaultLabel)
		}
	})

	t.Run("malformed document falls back to base price", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "coupons.json")
		if err := os.WriteFile(path, []byte("{nope"), 0o644); err != nil {
			t.Fatal(err)
		}
		e := New(path, "9.99")
		if got := e.CurrentPrice(); got != "9.99" {
			t.Errorf("got %q, want base price", got)
		}
	})
}

func TestEngineSnapshot(t *testing.T) {
	e := New(writeDoc(t, Document{SalesCount: 3, PricingTiers: twoTiers()}), "9.99")

	snap := e.Snapshot()
	if snap.CurrentPrice != "8.00" {
		t.Errorf("got price %q, want 8.00", snap.CurrentPrice)
	}
	if snap.CurrentTier != "Launch" {
		t.Errorf("got tier %q, want Launch", snap.CurrentTier)
	}
	if snap.SalesCount != 3 {
		t.Errorf("got sales count %d, want 3", snap.SalesCount)
	}
	if len(snap.Tiers) != 2 {
		t.Errorf("got %d tiers, want 2", len(snap.Tiers))
	}
}

func TestEngineIncrementCounter(t *testing.T) {
	t.Run("advances counter and persists", func(t *testing.T) {
		path := writeDoc(t, Document{SalesCount: 1, PricingTiers: twoTiers()})
		e := New(path, "9.99")

		if got := e.CurrentPrice(); got != "5.00" {
			t.Fatalf("got %q before increment, want 5.00", got)
		}
		if err := e.IncrementCounter(); err != nil {
			t.Fatalf("increment: %v", err)
		}
		if got := e.CurrentPrice(); got != "8.00" {
			t.Errorf("got %q after increment, want 8.00", got)
		}

		// reopen to prove it hit disk
		if got := New(path, "9.99").Snapshot().SalesCount; got != 2 {
			t.Errorf("got persisted counter %d, want 2", got)
		}
	})

	t.Run("no document is a no-op", func(t *testing.T) {
		e := New(filepath.Join(t.TempDir(), "absent.json"), "9.99")
		if err := e.IncrementCounter(); err != nil {
			t.Errorf("expected nil error without document, got %v", err)
		}
	})
}

func TestTierForProperties(t *testing.T) {
	t.Run("price never decreases as counter grows", func(t *testing.T) {
		rapid.Check(t, func(t *rapid.T) {
			n := rapid.IntRange(1, 6).Draw(t, "tiers")
			tiers := make([]Tier, n)
			price := 0.0
			for i := range tiers {
				price += float64(rapid.IntRange(1, 50).Draw(t, "bump"))
				tiers[i] = Tier{
					MaxCopies: rapid.IntRange(1, 20).Draw(t, "maxCopies"),
					Price:     price,
				}
			}

			prev := 0.0
			for counter := 0; counter < 200; counter++ {
				tier, ok := TierFor(counter, tiers)
				if !ok {
					t.Fatal("expected a tier")
				}
				if tier.Price < prev {
					t.Fatalf("price dropped from %v to %v at counter %d", prev, tier.Price, counter)
				}
				prev = tier.Price
			}
		})
	})

	t.Run("selected tier range contains counter", func(t *testing.T) {
		rapid.Check(t, func(t *rapid.T) {
			n := rapid.IntRange(1, 6).Draw(t, "tiers")
			tiers := make([]Tier, n)
			total := 0
			for i := range tiers {
				tiers[i] = Tier{MaxCopies: rapid.IntRange(1, 20).Draw(t, "maxCopies")}
				total += tiers[i].MaxCopies
			}
			counter := rapid.IntRange(0, total-1).Draw(t, "counter")

			tier, ok := TierFor(counter, tiers)
			if !ok {
				t.Fatal("expected a tier")
			}

			copiesSoFar := 0
			for _, candidate := range tiers {
				if counter < copiesSoFar+candidate.MaxCopies {
					if candidate != tier {
						t.Fatalf("counter %d: got tier %+v, want %+v", counter, tier, candidate)
					}
					return
				}
				copiesSoFar += candidate.MaxCopies
			}
		})
	})
}
