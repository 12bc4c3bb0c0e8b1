package kv

import "context"

// NewNoopStore creates a store that accepts nothing and returns nothing.
// It is selected when no backend is configured: every Get degrades to
// not-found and every Set reports the write as not accepted, so callers fall
// back to their local-file paths without special-casing a missing backend.
func NewNoopStore() IKVStore {
	return &noopStoreImpl{}
}

type noopStoreImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see kv.IKVStore)
// --------------------------------------------------------------------------

func (s *noopStoreImpl) Get(_ context.Context, _ string) (string, bool, error) {
	return "", false, nil
}

func (s *noopStoreImpl) Set(_ context.Context, _ string, _ string) (bool, error) {
	return false, nil
}

func (s *noopStoreImpl) Keys(_ context.Context, _ string) ([]string, error) {
	return nil, nil
}

func (s *noopStoreImpl) Name() string {
	return "noop"
}
