// Package ledger persists the purchase record: which license key went to
// which buyer for which product.
//
// The package focuses on:
//   - Per-email record lists (PurchasesByEmail), stored as one JSON blob per
//     buyer under "purchases:<email>", append-ordered
//   - The issued-key set, the append-only record of every key ever
//     allocated, stored under "issued_keys" and unioned with a local mirror
//     file for offline/development parity
//   - Silent refusal of ownerless records: an append with an empty email
//     logs and returns without writing, because a record nobody can look up
//     is worse than no record
//
// The per-blob read-modify-write has a lost-update race if two writers touch
// the same email concurrently. At this system's scale that is accepted and
// documented; the allocation path additionally runs under the advisory
// allocation lock, which serializes the writers that matter for key
// uniqueness. Implementers wanting stronger guarantees should move to a
// backend with atomic list append.
package ledger
