package kv

import (
	"context"
	"strings"

	"github.com/puzpuzpuz/xsync/v3"
)

// NewMemoryStore creates an in-memory store. It backs local development and
// tests; data does not survive a restart.
//
// Thread-safety: all operations are safe for concurrent use.
func NewMemoryStore() IKVStore {
	return &memStoreImpl{
		data: xsync.NewMapOf[string, string](),
	}
}

type memStoreImpl struct {
	data *xsync.MapOf[string, string]
}

// --------------------------------------------------------------------------
// Interface Methods (docu see kv.IKVStore)
// --------------------------------------------------------------------------

func (s *memStoreImpl) Get(_ context.Context, key string) (string, bool, error) {
	value, found := s.data.Load(key)
	return value, found, nil
}

func (s *memStoreImpl) Set(_ context.Context, key string, value string) (bool, error) {
	s.data.Store(key, value)
	return true, nil
}

func (s *memStoreImpl) Keys(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	s.data.Range(func(key string, _ string) bool {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return true
	})
	return keys, nil
}

func (s *memStoreImpl) Name() string {
	return "memory"
}
