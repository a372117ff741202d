// Package cache provides the chunked cache store: a namespaced key-value and
// list-queue abstraction over a volatile Redis-protocol store. Expiry is the
// store's responsibility; this package only attaches TTLs.
package cache

import (
	"log/slog"
	"time"

	"github.com/go-redis/redis"

	"github.com/joseph-ayodele/docingest/internal/common"
)

// Store is the contract consumed by the job registry and row batcher.
// Connection failure on any operation surfaces as a fatal error for that
// operation; callers decide whether to retry.
type Store interface {
	Set(key, value string, ttl time.Duration) error
	// Get returns the value and whether the key exists.
	Get(key string) (string, bool, error)
	Delete(keys ...string) error
	// Keys enumerates keys matching pattern (glob syntax), prefix-stripped.
	Keys(pattern string) ([]string, error)
	PushRight(queueKey, value string) error
	// PopLeft returns the head of the list and whether one was present.
	PopLeft(queueKey string) (string, bool, error)
	QueueLen(queueKey string) (int64, error)
}

// RedisStore implements Store on a redis client, namespacing every key under
// a configurable prefix so multiple tenants can share one underlying store.
type RedisStore struct {
	db     *redis.Client
	prefix string
	logger *slog.Logger
}

// NewRedisStore connects to the store at url (redis://[:password@]host:port[/db])
// and verifies the connection with a ping.
func NewRedisStore(url, prefix string, logger *slog.Logger) (*RedisStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, common.ConfigError("invalid REDIS_URL: " + err.Error())
	}
	db := redis.NewClient(opts)
	if err := db.Ping().Err(); err != nil {
		return nil, common.TransportError("cache store unreachable", err)
	}
	logger.Info("cache.connected", "addr", opts.Addr, "prefix", prefix)
	return &RedisStore{db: db, prefix: prefix, logger: logger}, nil
}

// NewRedisStoreFromClient wraps an existing client; used by tests.
func NewRedisStoreFromClient(db *redis.Client, prefix string, logger *slog.Logger) *RedisStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisStore{db: db, prefix: prefix, logger: logger}
}

func (s *RedisStore) key(k string) string {
	return s.prefix + ":" + k
}

func (s *RedisStore) Set(key, value string, ttl time.Duration) error {
	if err := s.db.Set(s.key(key), value, ttl).Err(); err != nil {
		s.logger.Error("cache.set_error", "key", key, "error", err)
		return common.TransportError("cache set failed", err)
	}
	return nil
}

func (s *RedisStore) Get(key string) (string, bool, error) {
	val, err := s.db.Get(s.key(key)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		s.logger.Error("cache.get_error", "key", key, "error", err)
		return "", false, common.TransportError("cache get failed", err)
	}
	return val, true, nil
}

func (s *RedisStore) Delete(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = s.key(k)
	}
	if err := s.db.Del(prefixed...).Err(); err != nil {
		s.logger.Error("cache.delete_error", "keys", len(keys), "error", err)
		return common.TransportError("cache delete failed", err)
	}
	return nil
}

func (s *RedisStore) Keys(pattern string) ([]string, error) {
	full, err := s.db.Keys(s.key(pattern)).Result()
	if err != nil {
		s.logger.Error("cache.keys_error", "pattern", pattern, "error", err)
		return nil, common.TransportError("cache key enumeration failed", err)
	}
	keys := make([]string, 0, len(full))
	for _, k := range full {
		keys = append(keys, k[len(s.prefix)+1:])
	}
	return keys, nil
}

func (s *RedisStore) PushRight(queueKey, value string) error {
	if err := s.db.RPush(s.key(queueKey), value).Err(); err != nil {
		s.logger.Error("cache.push_error", "queue", queueKey, "error", err)
		return common.TransportError("queue push failed", err)
	}
	return nil
}

func (s *RedisStore) PopLeft(queueKey string) (string, bool, error) {
	val, err := s.db.LPop(s.key(queueKey)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		s.logger.Error("cache.pop_error", "queue", queueKey, "error", err)
		return "", false, common.TransportError("queue pop failed", err)
	}
	return val, true, nil
}

func (s *RedisStore) QueueLen(queueKey string) (int64, error) {
	n, err := s.db.LLen(s.key(queueKey)).Result()
	if err != nil {
		return 0, common.TransportError("queue length failed", err)
	}
	return n, nil
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.db.Close()
}
