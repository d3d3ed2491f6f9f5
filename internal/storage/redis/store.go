// Package redis provides the Redis-backed counter store.
package redis

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/louisbranch/moecount/internal/platform/errors"
	"github.com/louisbranch/moecount/internal/storage"
)

// keyPrefix namespaces counter keys so the store can share a database.
const keyPrefix = "counter:"

// Config holds Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// Store persists counters in Redis. INCRBY gives the backend a native
// atomic upsert-increment.
type Store struct {
	client *goredis.Client
}

// Open connects to Redis and verifies the connection.
func Open(cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Store{client: client}, nil
}

// Close releases the Redis connection pool.
func (s *Store) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func key(name string) string {
	return keyPrefix + name
}

// GetNum returns the durable count for name, zero when absent.
func (s *Store) GetNum(ctx context.Context, name string) (storage.Record, error) {
	if s == nil || s.client == nil {
		return storage.Record{}, fmt.Errorf("storage is not configured")
	}

	value, err := s.client.Get(ctx, key(name)).Result()
	if err != nil {
		if err == goredis.Nil {
			return storage.Record{Name: name, Count: 0}, nil
		}
		return storage.Record{}, errors.Wrap(errors.CodeStoreFailure, "get counter", err)
	}
	count, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return storage.Record{}, errors.Wrap(errors.CodeStoreFailure, "parse counter value", err)
	}
	return storage.Record{Name: name, Count: count}, nil
}

// GetAll scans the counter keyspace and returns every record, ordered by
// name. Values are read in one MGET rather than per-key round-trips.
func (s *Store) GetAll(ctx context.Context) ([]storage.Record, error) {
	if s == nil || s.client == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	var keys []string
	iter := s.client.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, errors.Wrap(errors.CodeStoreFailure, "scan counters", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}
	// All keys share the prefix, so key order is name order.
	sort.Strings(keys)

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, errors.Wrap(errors.CodeStoreFailure, "get counter batch", err)
	}

	records := make([]storage.Record, 0, len(keys))
	for i, k := range keys {
		record := storage.Record{Name: strings.TrimPrefix(k, keyPrefix)}
		// A nil value means the key expired between the scan and the read.
		if value, ok := values[i].(string); ok {
			count, err := strconv.ParseUint(value, 10, 64)
			if err != nil {
				return nil, errors.Wrap(errors.CodeStoreFailure, "parse counter value", err)
			}
			record.Count = count
		}
		records = append(records, record)
	}
	return records, nil
}

// SetNum upserts one counter to an absolute count.
func (s *Store) SetNum(ctx context.Context, name string, count uint64) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("storage is not configured")
	}

	if err := s.client.Set(ctx, key(name), strconv.FormatUint(count, 10), 0).Err(); err != nil {
		return errors.Wrap(errors.CodeStoreFailure, "set counter", err)
	}
	return nil
}

// SetNumMulti upserts every record inside one MULTI/EXEC pipeline.
func (s *Store) SetNumMulti(ctx context.Context, records []storage.Record) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("storage is not configured")
	}
	if len(records) == 0 {
		return nil
	}

	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		for _, record := range records {
			pipe.Set(ctx, key(record.Name), strconv.FormatUint(record.Count, 10), 0)
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(errors.CodeStoreFailure, "set counter batch", err)
	}
	return nil
}

// Increment atomically adds delta to name via INCRBY and returns the new
// count.
func (s *Store) Increment(ctx context.Context, name string, delta uint64) (uint64, error) {
	if s == nil || s.client == nil {
		return 0, fmt.Errorf("storage is not configured")
	}

	count, err := s.client.IncrBy(ctx, key(name), int64(delta)).Result()
	if err != nil {
		return 0, errors.Wrap(errors.CodeStoreFailure, "increment counter", err)
	}
	return uint64(count), nil
}
