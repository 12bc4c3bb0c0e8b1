package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xtruelegend/keymint/lib/codec"
	"github.com/xtruelegend/keymint/lib/kv"
	"github.com/xtruelegend/keymint/lib/ledger"
	"github.com/xtruelegend/keymint/lib/lockmgr"
	"github.com/xtruelegend/keymint/lib/logging"
	"github.com/xtruelegend/keymint/lib/pool"
)

var lifecycleLogger = logging.GetLogger("lifecycle")

// deactivatedKeysKey is the backend key for the JSON list of revoked keys.
const deactivatedKeysKey = "deactivated_keys"

// reissueOrderPrefix marks synthetic purchase records created when a key is
// replaced for a buyer that has no record on file.
const reissueOrderPrefix = "MANUAL-REISSUE-"

// ErrNoPurchaseRecord is returned by Reissue when the key belongs to no
// purchase and no owner email was supplied to attach a synthetic record to.
var ErrNoPurchaseRecord = errors.New("no purchase record for key")

// Manager implements the key lifecycle operations: revocation, in-place
// replacement and full pool rotation. Lifecycle changes are silent; any
// buyer notification is a separate, explicit operator action.
type Manager struct {
	store   kv.IKVStore
	codec   codec.ISerializer
	ledger  *ledger.Ledger
	alloc   *pool.Allocator
	locks   lockmgr.ILockManager
	product string
}

// New creates a lifecycle manager. product is the name stamped on synthetic
// purchase records.
func New(
	store kv.IKVStore,
	serializer codec.ISerializer,
	l *ledger.Ledger,
	alloc *pool.Allocator,
	locks lockmgr.ILockManager,
	product string,
) *Manager {
	return &Manager{
		store:   store,
		codec:   serializer,
		ledger:  l,
		alloc:   alloc,
		locks:   locks,
		product: product,
	}
}

// --------------------------------------------------------------------------
// Deactivation
// --------------------------------------------------------------------------

// Deactivated returns the list of revoked keys.
func (m *Manager) Deactivated(ctx context.Context) ([]string, error) {
	value, found, err := m.store.Get(ctx, deactivatedKeysKey)
	if err != nil {
		return nil, fmt.Errorf("read deactivated keys: %w", err)
	}
	if !found {
		return nil, nil
	}

	var keys []string
	if err := m.codec.Deserialize([]byte(value), &keys); err != nil {
		lifecycleLogger.Errorf("malformed deactivated key list, treating as empty: %v", err)
		return nil, nil
	}
	return keys, nil
}

// IsDeactivated reports whether the key has been revoked.
func (m *Manager) IsDeactivated(ctx context.Context, key string) (bool, error) {
	keys, err := m.Deactivated(ctx)
	if err != nil {
		return false, err
	}
	key = pool.Normalize(key)
	for _, k := range keys {
		if pool.Normalize(k) == key {
			return true, nil
		}
	}
	return false, nil
}

// Deactivate adds the key to the revocation list. Idempotent: revoking an
// already revoked key reports already=true and changes nothing.
func (m *Manager) Deactivate(ctx context.Context, key string) (already bool, err error) {
	key = pool.Normalize(key)
	if key == "" {
		return false, fmt.Errorf("empty key")
	}

	keys, err := m.Deactivated(ctx)
	if err != nil {
		return false, err
	}
	for _, k := range keys {
		if pool.Normalize(k) == key {
			return true, nil
		}
	}

	raw, err := m.codec.Serialize(append(keys, key))
	if err != nil {
		return false, err
	}
	ok, err := m.store.Set(ctx, deactivatedKeysKey, string(raw))
	if err != nil {
		return false, fmt.Errorf("write deactivated keys: %w", err)
	}
	if !ok {
		return false, kv.NewError(kv.RetCBackendUnavailable, "write not accepted")
	}

	lifecycleLogger.Infof("deactivated key %s", key)
	return false, nil
}

// --------------------------------------------------------------------------
// Reissue
// --------------------------------------------------------------------------

// Replacement describes a completed key swap.
type Replacement struct {
	Email  string `json:"email"`
	OldKey string `json:"oldKey"`
	NewKey string `json:"newKey"`
	// Synthetic is true when no purchase record existed for the old key and
	// one was created to carry the replacement.
	Synthetic bool `json:"synthetic,omitempty"`
}

// Reissue revokes oldKey and issues a fresh key to its owner, swapping the
// purchase record in place. When the key belongs to no record, ownerEmail
// (if given) receives a synthetic record instead; without it the call fails
// with ErrNoPurchaseRecord and nothing is revoked.
func (m *Manager) Reissue(ctx context.Context, oldKey, ownerEmail string) (Replacement, error) {
	oldKey = pool.Normalize(oldKey)
	if oldKey == "" {
		return Replacement{}, fmt.Errorf("empty key")
	}

	email, rec, found, err := m.findByKey(ctx, oldKey)
	if err != nil {
		return Replacement{}, err
	}
	if !found {
		email = ledger.NormalizeEmail(ownerEmail)
		if email == "" {
			return Replacement{}, ErrNoPurchaseRecord
		}
	}

	if _, err := m.Deactivate(ctx, oldKey); err != nil {
		return Replacement{}, err
	}

	newKey, err := m.nextOrGenerated(ctx)
	if err != nil {
		return Replacement{}, err
	}

	repl := Replacement{Email: email, OldKey: oldKey, NewKey: newKey}
	if found {
		if err := m.swapRecordKey(ctx, email, rec.OrderID, oldKey, newKey); err != nil {
			return Replacement{}, err
		}
	} else {
		repl.Synthetic = true
		synthetic := ledger.Record{
			Email:      email,
			LicenseKey: newKey,
			Product:    m.product,
			OrderID:    fmt.Sprintf("%s%d", reissueOrderPrefix, time.Now().UnixMilli()),
			CreatedAt:  time.Now().UTC(),
		}
		if err := m.ledger.Append(ctx, synthetic); err != nil {
			return Replacement{}, err
		}
	}

	lifecycleLogger.Infof("reissued key for %s: %s -> %s", email, oldKey, newKey)
	return repl, nil
}

// nextOrGenerated allocates the next pool key, falling back to a generated
// key when the pool is exhausted so a revocation can always be healed.
func (m *Manager) nextOrGenerated(ctx context.Context) (string, error) {
	key, err := m.alloc.Next(ctx)
	if err == nil {
		return key, nil
	}
	if !errors.Is(err, pool.ErrPoolExhausted) {
		return "", err
	}

	key = pool.GenerateKey()
	lifecycleLogger.Warnf("key pool exhausted, generated replacement key %s", key)
	if err := m.ledger.MarkIssued(ctx, key); err != nil {
		lifecycleLogger.Errorf("marking generated key issued failed: %v", err)
	}
	return key, nil
}

// findByKey scans the ledger for the purchase record holding the key. The
// local mirror is consulted when the backend scan turns up nothing.
func (m *Manager) findByKey(ctx context.Context, key string) (string, ledger.Record, bool, error) {
	all, err := m.ledger.All(ctx)
	if err != nil {
		return "", ledger.Record{}, false, err
	}
	for email, records := range all {
		for _, rec := range records {
			if pool.Normalize(rec.LicenseKey) == key {
				return email, rec, true, nil
			}
		}
	}

	if rec, ok := m.ledger.Mirror().FindByKey(key); ok {
		return ledger.NormalizeEmail(rec.Email), rec, true, nil
	}
	return "", ledger.Record{}, false, nil
}

// swapRecordKey replaces oldKey with newKey in the owner's purchase list.
// The record keeps its order id but gets a fresh date, so the record shows
// when the currently valid key was handed out.
func (m *Manager) swapRecordKey(ctx context.Context, email, orderID, oldKey, newKey string) error {
	records, err := m.ledger.ListFor(ctx, email)
	if err != nil {
		return err
	}

	swapped := false
	for i := range records {
		if pool.Normalize(records[i].LicenseKey) == oldKey && records[i].OrderID == orderID {
			records[i].LicenseKey = newKey
			records[i].CreatedAt = time.Now().UTC()
			swapped = true
			break
		}
	}
	if !swapped {
		return fmt.Errorf("record for key %s vanished during reissue", oldKey)
	}
	return m.ledger.ReplaceList(ctx, email, records)
}
