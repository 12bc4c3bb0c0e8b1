// Package pool manages the license-key pool: the externally provisioned,
// finite, immutable list of valid key strings from which every paid issuance
// is drawn.
//
// The package focuses on:
//   - Parsing the pool document once, at the boundary, into a tagged
//     representation (plain list vs. wrapped object) so nothing downstream
//     duck-types the payload shape
//   - Loading with local-file preference and remote-fetch fallback, where a
//     malformed or unreadable source behaves like an absent one
//   - First-available allocation: NextUnissued walks the pool in
//     provisioning order and returns the first key not in the issued set
//   - The Allocator, which serializes pool-scan + mark-issued under the
//     allocation advisory lock so concurrent purchases receive pairwise
//     distinct keys
//
// Exhaustion is a first-class condition (ErrPoolExhausted): it means an
// operator has to top up the pool, and callers surface it distinctly instead
// of reporting a generic failure.
package pool
