package pricing

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/xtruelegend/keymint/lib/logging"
)

var pricingLogger = logging.GetLogger("pricing")

// DefaultLabel is the tier label reported when no tiers are configured or
// the counter has run past all of them.
const DefaultLabel = "Full Price"

// --------------------------------------------------------------------------
// Tier schedule
// --------------------------------------------------------------------------

// Tier is one pricing bracket: up to MaxCopies sales at Price, activated once
// cumulative sales reach the sum of all prior tiers' capacities.
type Tier struct {
	Name      string  `json:"name"`
	MaxCopies int     `json:"maxCopies"`
	Price     float64 `json:"price"`
}

// Document is the tier configuration on disk: the sales counter plus the
// ordered tier schedule. IncrementCounter mutates it in place.
type Document struct {
	SalesCount   int    `json:"salesCount"`
	PricingTiers []Tier `json:"pricingTiers"`
}

// TierFor returns the tier whose range [copiesSoFar, copiesSoFar+maxCopies)
// contains the counter. Past total capacity the last tier applies; with no
// tiers configured the boolean is false and callers fall back to the flat
// base price.
func TierFor(counter int, tiers []Tier) (Tier, bool) {
	if len(tiers) == 0 {
		return Tier{}, false
	}

	copiesSoFar := 0
	for _, tier := range tiers {
		if counter < copiesSoFar+tier.MaxCopies {
			return tier, true
		}
		copiesSoFar += tier.MaxCopies
	}
	return tiers[len(tiers)-1], true
}

// FormatPrice renders a price as the two-decimal string used on the wire.
func FormatPrice(price float64) string {
	return strconv.FormatFloat(price, 'f', 2, 64)
}

// --------------------------------------------------------------------------
// Engine
// --------------------------------------------------------------------------

// Engine maps the monotonically increasing sales counter to the current unit
// price and tier label. The counter is the only mutable shared scalar outside
// the ledger; all mutation goes through IncrementCounter under the engine's
// lock.
type Engine struct {
	path      string
	basePrice string

	mu sync.Mutex
}

// New creates a pricing engine over the tier document at path. basePrice is
// the flat fallback used when no document or no tiers exist.
func New(path, basePrice string) *Engine {
	return &Engine{
		path:      path,
		basePrice: basePrice,
	}
}

// CurrentPrice returns the unit price for the current counter value as a
// decimal string. Stable for repeated calls with an unchanged counter.
func (e *Engine) CurrentPrice() string {
	doc := e.load()
	tier, ok := TierFor(doc.SalesCount, doc.PricingTiers)
	if !ok {
		return e.basePrice
	}
	return FormatPrice(tier.Price)
}

// CurrentTierLabel returns the name of the active tier.
func (e *Engine) CurrentTierLabel() string {
	doc := e.load()
	tier, ok := TierFor(doc.SalesCount, doc.PricingTiers)
	if !ok || tier.Name == "" {
		return DefaultLabel
	}
	return tier.Name
}

// Snapshot is the public pricing view served to the checkout page.
type Snapshot struct {
	CurrentPrice string `json:"currentPrice"`
	CurrentTier  string `json:"currentTier"`
	SalesCount   int    `json:"salesCount"`
	Tiers        []Tier `json:"tiers"`
}

// Snapshot returns price, tier label, counter and schedule in one read.
func (e *Engine) Snapshot() Snapshot {
	doc := e.load()

	snap := Snapshot{
		CurrentPrice: e.basePrice,
		CurrentTier:  DefaultLabel,
		SalesCount:   doc.SalesCount,
		Tiers:        doc.PricingTiers,
	}
	if tier, ok := TierFor(doc.SalesCount, doc.PricingTiers); ok {
		snap.CurrentPrice = FormatPrice(tier.Price)
		if tier.Name != "" {
			snap.CurrentTier = tier.Name
		}
	}
	if snap.Tiers == nil {
		snap.Tiers = []Tier{}
	}
	return snap
}

// IncrementCounter advances the sales counter by one and persists the
// document in place. Called exactly once per successfully completed purchase
// capture, never at order creation, so abandoned checkouts cannot inflate
// the counter.
func (e *Engine) IncrementCounter() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	raw, err := os.ReadFile(e.path)
	if err != nil {
		if os.IsNotExist(err) {
			pricingLogger.Debugf("no tier document at %s, sales counter not tracked", e.path)
			return nil
		}
		return fmt.Errorf("read tier document: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse tier document: %w", err)
	}

	doc.SalesCount++

	updated, err := json.MarshalIndent(&doc, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(e.path, updated, 0o644); err != nil {
		return fmt.Errorf("write tier document: %w", err)
	}
	return nil
}

// load reads the tier document. Missing or malformed documents behave as if
// no tiers were configured: the flat base price applies.
func (e *Engine) load() Document {
	e.mu.Lock()
	defer e.mu.Unlock()

	raw, err := os.ReadFile(e.path)
	if err != nil {
		return Document{}
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		pricingLogger.Errorf("error parsing tier document %s: %v", e.path, err)
		return Document{}
	}
	return doc
}
