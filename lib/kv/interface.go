package kv

import (
	"context"
	"fmt"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IKVStore is the generic interface for the storage backend.
//
// The contract is deliberately small: string values by string key. Collections
// are JSON-encoded by the caller (see the codec package). Implementations must
// never panic on backend failure; a failed read surfaces as not-found plus an
// error, a failed write as ok=false plus an error, and callers are expected to
// degrade rather than abort (see the error taxonomy in the service packages).
type IKVStore interface {
	// Get returns the value for a key. The boolean return value indicates
	// whether a value for the key was found.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	// Set inserts or updates a key-value pair. The boolean return value
	// indicates whether the write was accepted by the backend.
	Set(ctx context.Context, key string, value string) (ok bool, err error)
	// Keys returns all keys starting with the given prefix. Used for the
	// operator surface (ledger scans); not part of the hot allocation path.
	Keys(ctx context.Context, prefix string) (keys []string, err error)
	// Name identifies the backend implementation, for logs.
	Name() string
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	errorCode := ""
	switch e.Code {
	case RetCBackendUnavailable:
		errorCode = "BackendUnavailable"
	case RetCUnsupportedOperation:
		errorCode = "UnsupportedOperation"
	case RetCInternalError:
		errorCode = "InternalError"
	default:
		errorCode = "Unknown"
	}

	return fmt.Sprintf("KVStoreError (code %s): %s", errorCode, e.Msg)
}

// NewError creates a new Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// IsUnavailable reports whether err is a backend-unavailable error.
func IsUnavailable(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Code == RetCBackendUnavailable
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess              RetCode = iota // 0: Operation executed successfully.
	RetCInternalError                       // 1: Operation failed due to an internal error.
	RetCUnsupportedOperation                // 2: Operation is not supported by the backend.
	RetCBackendUnavailable                  // 3: Backend could not be reached.
)
