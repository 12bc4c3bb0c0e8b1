package kv

import (
	"github.com/xtruelegend/keymint/lib/config"
	"github.com/xtruelegend/keymint/lib/logging"
)

var kvLogger = logging.GetLogger("kv")

// Select resolves the storage backend from the configuration, once, at
// startup. The implementations are mutually exclusive by priority: the REST
// key-value service wins if configured, then the direct redis connection,
// then the no-op store. The chosen store is injected into the components;
// nothing else in the codebase branches on backend kind.
func Select(cfg *config.Config) IKVStore {
	switch {
	case cfg.HasRestKV():
		kvLogger.Infof("storage backend: rest (%s)", cfg.KVRestURL)
		return NewRESTStore(cfg.KVRestURL, cfg.KVRestToken)
	case cfg.HasRedis():
		kvLogger.Infof("storage backend: redis (%s)", cfg.RedisURL)
		return NewRedisStore(cfg.RedisURL)
	default:
		kvLogger.Warnf("no storage backend configured, operating on local files only")
		return NewNoopStore()
	}
}
