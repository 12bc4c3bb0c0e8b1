package ledger

import (
	"context"
	"fmt"

	"github.com/xtruelegend/keymint/lib/codec"
	"github.com/xtruelegend/keymint/lib/kv"
	"github.com/xtruelegend/keymint/lib/logging"
	"github.com/xtruelegend/keymint/lib/pool"
)

var ledgerLogger = logging.GetLogger("ledger")

// issuedKeysKey is the backend key of the authoritative issued-key set.
const issuedKeysKey = "issued_keys"

// Ledger is the durable purchase record: per-email record lists plus the
// issued-key set, stored as JSON blobs in the configured backend with a
// best-effort local mirror.
//
// Per-email lists are read-modify-written as one blob. That is a documented
// lost-update race under concurrency; allocation runs under the advisory
// allocation lock, which serializes the writers that matter.
type Ledger struct {
	store  kv.IKVStore
	codec  codec.ISerializer
	mirror *Mirror
}

func New(store kv.IKVStore, serializer codec.ISerializer, mirror *Mirror) *Ledger {
	return &Ledger{
		store:  store,
		codec:  serializer,
		mirror: mirror,
	}
}

// --------------------------------------------------------------------------
// Purchase records
// --------------------------------------------------------------------------

// Append writes a purchase record under the buyer's normalized email.
//
// A record with no owner cannot be looked up later, so an empty email is
// silently refused: logged, and nil returned. The issued-set update and the
// mirror write are secondary, advisory writes; only a failure of the primary
// record write is returned as an error.
func (l *Ledger) Append(ctx context.Context, rec Record) error {
	normalized := NormalizeEmail(rec.Email)
	if normalized == "" {
		ledgerLogger.Warnf("no email in record for key %s, skipping ledger write", rec.LicenseKey)
		return nil
	}

	existing, err := l.ListFor(ctx, normalized)
	if err != nil {
		ledgerLogger.Warnf("error reading existing purchases for %s: %v", normalized, err)
	}

	updated := append(existing, rec)
	if err := l.writeList(ctx, normalized, updated); err != nil {
		return fmt.Errorf("write purchases for %s: %w", normalized, err)
	}

	if err := l.MarkIssued(ctx, rec.LicenseKey); err != nil {
		ledgerLogger.Warnf("error tracking issued key %s: %v", rec.LicenseKey, err)
	}

	if err := l.mirror.Append(rec); err != nil {
		ledgerLogger.Warnf("could not mirror purchase record locally: %v", err)
	}

	return nil
}

// ListFor returns the purchase records owned by an email, in insertion order.
// Falls back to the local mirror when the backend has nothing.
func (l *Ledger) ListFor(ctx context.Context, email string) ([]Record, error) {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return nil, nil
	}

	raw, found, err := l.store.Get(ctx, purchasesKey(normalized))
	if err != nil {
		return l.mirror.Find(normalized), err
	}
	if !found {
		return l.mirror.Find(normalized), nil
	}

	var records []Record
	if err := l.codec.Deserialize([]byte(raw), &records); err != nil {
		ledgerLogger.Errorf("error parsing purchases for %s: %v", normalized, err)
		return nil, nil
	}
	return records, nil
}

// All returns every purchase record in the backend, grouped by normalized
// email. Operator surface only (reports, rotation); scans the purchases
// namespace.
func (l *Ledger) All(ctx context.Context) (map[string][]Record, error) {
	keys, err := l.store.Keys(ctx, purchasesKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("scan purchases: %w", err)
	}

	out := make(map[string][]Record, len(keys))
	for _, key := range keys {
		email := emailFromKey(key)
		records, err := l.ListFor(ctx, email)
		if err != nil {
			return nil, err
		}
		out[email] = records
	}
	return out, nil
}

// ReplaceList overwrites the whole record list for an email. Used by the
// lifecycle manager for in-place key swaps.
func (l *Ledger) ReplaceList(ctx context.Context, email string, records []Record) error {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return fmt.Errorf("empty email")
	}
	return l.writeList(ctx, normalized, records)
}

func (l *Ledger) writeList(ctx context.Context, normalizedEmail string, records []Record) error {
	raw, err := l.codec.Serialize(records)
	if err != nil {
		return err
	}
	ok, err := l.store.Set(ctx, purchasesKey(normalizedEmail), string(raw))
	if err != nil {
		return err
	}
	if !ok {
		return kv.NewError(kv.RetCBackendUnavailable, "write not accepted")
	}
	return nil
}

// --------------------------------------------------------------------------
// Issued key set (implements pool.IssuedSource)
// --------------------------------------------------------------------------

// IssuedKeys returns the union of the backend-tracked issued set and the
// local mirror. Duplicates are harmless, it is a set.
func (l *Ledger) IssuedKeys(ctx context.Context) (map[string]struct{}, error) {
	issued := l.mirror.IssuedKeys()

	keys, err := l.readIssuedSet(ctx)
	if err != nil {
		return issued, err
	}
	for _, key := range keys {
		issued[pool.Normalize(key)] = struct{}{}
	}
	return issued, nil
}

// MarkIssued adds a key to the authoritative issued set if not already
// present.
func (l *Ledger) MarkIssued(ctx context.Context, key string) error {
	normalized := pool.Normalize(key)

	keys, err := l.readIssuedSet(ctx)
	if err != nil {
		return err
	}
	for _, existing := range keys {
		if pool.Normalize(existing) == normalized {
			return nil
		}
	}
	return l.writeIssuedSet(ctx, append(keys, normalized))
}

// ReplaceIssuedSet overwrites the issued set wholesale. Only bulk rotation
// does this: post-rotation, the set holds exactly the newly assigned keys.
func (l *Ledger) ReplaceIssuedSet(ctx context.Context, keys []string) error {
	normalized := make([]string, 0, len(keys))
	for _, key := range keys {
		normalized = append(normalized, pool.Normalize(key))
	}
	return l.writeIssuedSet(ctx, normalized)
}

func (l *Ledger) readIssuedSet(ctx context.Context) ([]string, error) {
	raw, found, err := l.store.Get(ctx, issuedKeysKey)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	var keys []string
	if err := l.codec.Deserialize([]byte(raw), &keys); err != nil {
		ledgerLogger.Errorf("error parsing issued key set: %v", err)
		return nil, nil
	}
	return keys, nil
}

func (l *Ledger) writeIssuedSet(ctx context.Context, keys []string) error {
	raw, err := l.codec.Serialize(keys)
	if err != nil {
		return err
	}
	ok, err := l.store.Set(ctx, issuedKeysKey, string(raw))
	if err != nil {
		return err
	}
	if !ok {
		return kv.NewError(kv.RetCBackendUnavailable, "write not accepted")
	}
	return nil
}

// Mirror exposes the local mirror for read-only fallback lookups.
func (l *Ledger) Mirror() *Mirror {
	return l.mirror
}
