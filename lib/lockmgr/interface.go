package lockmgr

// Lock names used by the storefront core. Allocation serializes the
// pool-scan-then-mark-issued read/write cycle; rotation additionally takes
// the coarse rotation lock for its whole duration so no individual
// allocation can interleave with a wholesale issued-set replacement.
const (
	LockAllocation = "alloc"
	LockRotation   = "rotate"
)

// ILockManager defines the interface for a lockmgr provider.
type ILockManager interface {
	// AcquireLock acquires the named lock, blocking until it is held.
	// Returns an owner ID that must be presented on release, and an error if any.
	AcquireLock(key string) (ownerID string, err error)

	// ReleaseLock releases the named lock.
	// Returns a boolean indicating whether the lock was released, and an error if any.
	// Releasing with a foreign owner ID returns false and leaves the lock held.
	ReleaseLock(key string, ownerID string) (ok bool, err error)
}
