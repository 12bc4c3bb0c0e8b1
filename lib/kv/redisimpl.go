package kv

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/xtruelegend/keymint/lib/logging"
)

var redisLogger = logging.GetLogger("kv/redis")

// NewRedisStore creates a store backed by a direct redis connection.
//
// The connection is established lazily on first use and then cached: there is
// exactly one shared client, and concurrent callers racing on the first
// operation all wait for the same in-flight connect instead of dialing their
// own. A failed connect leaves the client unset so the next operation retries.
func NewRedisStore(redisURL string) IKVStore {
	return &redisStoreImpl{url: redisURL}
}

type redisStoreImpl struct {
	url string

	mu     sync.Mutex
	client *redis.Client
}

// conn returns the shared client, connecting on first use. The mutex is held
// across dial and ping so concurrent first callers await the single in-flight
// attempt rather than establishing duplicate connections.
func (s *redisStoreImpl) conn(ctx context.Context) (*redis.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return s.client, nil
	}

	var client *redis.Client
	if strings.HasPrefix(s.url, "redis://") || strings.HasPrefix(s.url, "rediss://") {
		opt, err := redis.ParseURL(s.url)
		if err != nil {
			return nil, NewError(RetCInternalError, fmt.Sprintf("parse redis url: %v", err))
		}
		client = redis.NewClient(opt)
	} else {
		client = redis.NewClient(&redis.Options{Addr: s.url})
	}

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		redisLogger.Errorf("redis connect error: %v", err)
		return nil, NewError(RetCBackendUnavailable, fmt.Sprintf("connect: %v", err))
	}

	s.client = client
	return s.client, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see kv.IKVStore)
// --------------------------------------------------------------------------

func (s *redisStoreImpl) Get(ctx context.Context, key string) (string, bool, error) {
	client, err := s.conn(ctx)
	if err != nil {
		return "", false, err
	}

	value, err := client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, NewError(RetCBackendUnavailable, fmt.Sprintf("get %s: %v", key, err))
	}
	return value, true, nil
}

func (s *redisStoreImpl) Set(ctx context.Context, key string, value string) (bool, error) {
	client, err := s.conn(ctx)
	if err != nil {
		return false, err
	}

	if err := client.Set(ctx, key, value, 0).Err(); err != nil {
		return false, NewError(RetCBackendUnavailable, fmt.Sprintf("set %s: %v", key, err))
	}
	return true, nil
}

func (s *redisStoreImpl) Keys(ctx context.Context, prefix string) ([]string, error) {
	client, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	keys, err := client.Keys(ctx, prefix+"*").Result()
	if err != nil {
		return nil, NewError(RetCBackendUnavailable, fmt.Sprintf("keys %s: %v", prefix, err))
	}
	return keys, nil
}

func (s *redisStoreImpl) Name() string {
	return "redis"
}
