package pool

import (
	"context"
	"errors"
	"fmt"

	"github.com/xtruelegend/keymint/lib/lockmgr"
)

// ErrPoolExhausted marks the condition that no unissued key is available:
// the pool is empty, unreachable, or fully issued. It is retryable only
// after an operator tops up the pool, and must never be conflated with a
// generic server error.
var ErrPoolExhausted = errors.New("no unissued license key available")

// IssuedSource supplies the set of keys ever allocated and records a new
// issuance. The ledger implements it: the authoritative set lives in the
// backend, unioned with the local mirror file for offline/dev parity.
type IssuedSource interface {
	IssuedKeys(ctx context.Context) (map[string]struct{}, error)
	MarkIssued(ctx context.Context, key string) error
}

// Allocator hands out unissued keys from the pool. The pool-scan and the
// mark-issued write are a read-then-write over shared state with no atomicity
// from the storage contract, so Next serializes them under the allocation
// advisory lock.
type Allocator struct {
	src    *Source
	issued IssuedSource
	locks  lockmgr.ILockManager
}

func NewAllocator(src *Source, issued IssuedSource, locks lockmgr.ILockManager) *Allocator {
	return &Allocator{
		src:    src,
		issued: issued,
		locks:  locks,
	}
}

// Source returns the pool source, for callers that need membership checks.
func (a *Allocator) Source() *Source {
	return a.src
}

// Next returns the next unissued key and immediately marks it issued, all
// under the allocation lock. Returns ErrPoolExhausted when no key is
// available for any reason.
//
// A key returned by Next is never offered again, even if the caller's later
// persistence fails: the mark-issued write happens here, not after the
// ledger append.
func (a *Allocator) Next(ctx context.Context) (string, error) {
	ownerID, err := a.locks.AcquireLock(lockmgr.LockAllocation)
	if err != nil {
		return "", fmt.Errorf("acquire allocation lock: %w", err)
	}
	defer func() {
		if _, relErr := a.locks.ReleaseLock(lockmgr.LockAllocation, ownerID); relErr != nil {
			poolLogger.Errorf("release allocation lock: %v", relErr)
		}
	}()

	doc, err := a.src.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPoolExhausted, err)
	}
	if len(doc.Keys) == 0 {
		return "", ErrPoolExhausted
	}

	issued, err := a.issued.IssuedKeys(ctx)
	if err != nil {
		// Best effort: an unreadable issued set must not block sales, but the
		// re-issuance odds go up. Matches the behavior of the file fallback.
		poolLogger.Warnf("error reading issued keys, continuing with partial set: %v", err)
	}

	key, found := NextUnissued(doc, issued)
	if !found {
		return "", ErrPoolExhausted
	}

	if err := a.issued.MarkIssued(ctx, key); err != nil {
		poolLogger.Errorf("error marking key as issued: %v", err)
	}

	return key, nil
}
