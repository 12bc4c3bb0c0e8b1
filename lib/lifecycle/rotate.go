package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/xtruelegend/keymint/lib/ledger"
	"github.com/xtruelegend/keymint/lib/lockmgr"
	"github.com/xtruelegend/keymint/lib/pool"
)

// ErrRotationCapacity is returned when the pool cannot supply a fresh key
// for every purchase record. The rotation aborts before touching anything.
var ErrRotationCapacity = errors.New("pool too small for full rotation")

// Rotation summarizes a completed full rotation.
type Rotation struct {
	Rotated int `json:"rotated"`
	// Assignments maps every replaced key to its successor.
	Assignments map[string]string `json:"assignments"`
}

// RotateAll replaces every issued key across every purchase record with a
// fresh unissued pool key. Validation is all-or-nothing: if the pool cannot
// supply a fresh key for every record, the rotation fails before any record
// is touched. Runs under both the rotation and the allocation lock so no
// purchase can interleave with the swap.
func (m *Manager) RotateAll(ctx context.Context) (Rotation, error) {
	rotOwner, err := m.locks.AcquireLock(lockmgr.LockRotation)
	if err != nil {
		return Rotation{}, err
	}
	defer func() { _, _ = m.locks.ReleaseLock(lockmgr.LockRotation, rotOwner) }()

	allocOwner, err := m.locks.AcquireLock(lockmgr.LockAllocation)
	if err != nil {
		return Rotation{}, err
	}
	defer func() { _, _ = m.locks.ReleaseLock(lockmgr.LockAllocation, allocOwner) }()

	all, err := m.ledger.All(ctx)
	if err != nil {
		return Rotation{}, err
	}

	total := 0
	for _, records := range all {
		total += len(records)
	}
	if total == 0 {
		return Rotation{Assignments: map[string]string{}}, nil
	}

	doc, err := m.alloc.Source().Load(ctx)
	if err != nil {
		return Rotation{}, fmt.Errorf("rotation needs the key pool: %w", err)
	}
	issued, err := m.ledger.IssuedKeys(ctx)
	if err != nil {
		return Rotation{}, err
	}

	// collect fresh candidates in pool order before touching anything
	fresh := make([]string, 0, total)
	for _, key := range doc.Keys {
		if _, taken := issued[key]; taken {
			continue
		}
		fresh = append(fresh, key)
		if len(fresh) == total {
			break
		}
	}
	if len(fresh) < total {
		return Rotation{}, fmt.Errorf(
			"%w: %d unissued keys for %d records", ErrRotationCapacity, len(fresh), total)
	}

	rot := Rotation{Assignments: make(map[string]string, total)}
	updated := make(map[string][]ledger.Record, len(all))
	newIssued := make([]string, 0, total)
	next := 0
	for email, records := range all {
		swapped := make([]ledger.Record, len(records))
		copy(swapped, records)
		for i := range swapped {
			old := pool.Normalize(swapped[i].LicenseKey)
			swapped[i].LicenseKey = fresh[next]
			rot.Assignments[old] = fresh[next]
			newIssued = append(newIssued, fresh[next])
			next++
		}
		updated[email] = swapped
	}

	// persist: purchase lists first, issued set last
	for email, records := range updated {
		if err := m.ledger.ReplaceList(ctx, email, records); err != nil {
			return Rotation{}, fmt.Errorf("rotation interrupted while updating %s: %w", email, err)
		}
		rot.Rotated += len(records)
	}
	if err := m.ledger.ReplaceIssuedSet(ctx, newIssued); err != nil {
		return Rotation{}, err
	}

	lifecycleLogger.Infof("rotated %d keys", rot.Rotated)
	return rot, nil
}
