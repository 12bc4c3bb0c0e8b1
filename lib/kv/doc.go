// Package kv provides the storage backend abstraction for the storefront
// core: a uniform get/set contract over one of several physical stores.
//
// The package focuses on:
//   - A unified interface (IKVStore) for key-value operations across the
//     different deployment environments
//   - Backend selection resolved exactly once at startup (Select), injected
//     into components rather than branched on inline
//   - Degradation instead of failure: a broken backend surfaces as
//     not-found/false results with typed errors, never as a panic
//
// Implementations:
//
//   - REST store: a hosted key-value service spoken to over HTTP with a
//     bearer credential. Takes precedence when configured.
//   - Redis store: a direct connection to a redis server. A single client is
//     established lazily on first use and shared; concurrent callers awaiting
//     the first connect share one in-flight attempt.
//   - Memory store: an in-process map for development and tests.
//   - Noop store: selected when nothing is configured; all operations degrade
//     to not-found/false so local-file fallbacks take over.
//
// Values are always strings. Collections are JSON-encoded by callers via the
// codec package; this package has no knowledge of what it stores.
package kv
