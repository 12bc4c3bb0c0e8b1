// Package lockmgr implements the advisory locks that serialize the
// storefront's read-then-write cycles over the storage backend.
//
// The storage contract is plain get/set with no compare-and-swap, so two
// concurrent purchases could both read the same "not yet issued" key before
// either writes. Instead of relying on backend atomicity, the critical
// sections take a named advisory lock from this package:
//
//   - LockAllocation is held around pool-scan + mark-issued + ledger append,
//     making concurrent allocations hand out pairwise distinct keys.
//   - LockRotation is held (together with LockAllocation) for the full
//     duration of a bulk key rotation, which replaces the issued set
//     wholesale and must not interleave with individual allocations.
//
// Core Functionality:
//   - Blocking lock acquisition with ownership verification
//   - Safe release operations that verify ownership
//
// Owner IDs are random tokens generated per acquisition; a release with a
// foreign owner ID is rejected. This protects against accidental double
// release, not against malicious callers.
//
// The implementation is in-process: the service is a single-process,
// request-driven deployment, and the locks only need to serialize tasks
// within it. The interface leaves room for a distributed implementation
// should the service ever run replicated.
package lockmgr
