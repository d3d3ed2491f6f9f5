// Package factory opens the configured counter store backend.
package factory

import (
	"github.com/louisbranch/moecount/internal/platform/errors"
	"github.com/louisbranch/moecount/internal/storage"
	"github.com/louisbranch/moecount/internal/storage/bolt"
	"github.com/louisbranch/moecount/internal/storage/redis"
	"github.com/louisbranch/moecount/internal/storage/sqlite"
)

// Open builds the store named by cfg.Backend.
func Open(cfg storage.Config) (storage.Store, error) {
	switch cfg.Backend {
	case storage.BackendSQLite:
		return sqlite.Open(cfg.SQLitePath)
	case storage.BackendBolt:
		return bolt.Open(cfg.BoltPath)
	case storage.BackendRedis:
		return redis.Open(redis.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	default:
		return nil, errors.WithMetadata(errors.CodeStoreBackendUnknown,
			"unknown store backend", map[string]string{"backend": cfg.Backend})
	}
}
