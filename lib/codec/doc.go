// Package codec provides the blob serializers used to encode collections
// (purchase record lists, issued/deactivated key sets, review lists) into the
// single string values the storage backend contract allows.
//
// The package focuses on:
//   - A unified interface (ISerializer) so callers never depend on a concrete
//     encoding
//   - A JSON implementation, the wire format shared with existing deployments
//   - A GOB implementation for in-process snapshots
//
// All storage backend values are strings; (de)serialization of collections is
// the caller's responsibility, and every caller routes it through this
// package.
package codec
