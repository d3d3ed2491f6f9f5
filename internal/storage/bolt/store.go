// Package bolt provides the bbolt-backed counter store.
package bolt

import (
	"context"
	"encoding/binary"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/moecount/internal/platform/errors"
	"github.com/louisbranch/moecount/internal/storage"
	bbolt "go.etcd.io/bbolt"
)

var bucketCounters = []byte("counters")

// Store persists counters in a bbolt database file. bbolt serializes all
// writes through a single update transaction, which makes Increment atomic
// without any application-level locking.
type Store struct {
	db *bbolt.DB
}

// Open opens a bbolt counter store, creating the counters bucket.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	db, err := bbolt.Open(filepath.Clean(path), 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketCounters)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure counters bucket: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the bbolt handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func encodeCount(count uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], count)
	return buf[:]
}

func decodeCount(value []byte) uint64 {
	if len(value) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(value)
}

// GetNum returns the durable count for name, zero when absent.
func (s *Store) GetNum(ctx context.Context, name string) (storage.Record, error) {
	if err := ctx.Err(); err != nil {
		return storage.Record{}, err
	}
	if s == nil || s.db == nil {
		return storage.Record{}, fmt.Errorf("storage is not configured")
	}

	record := storage.Record{Name: name}
	err := s.db.View(func(tx *bbolt.Tx) error {
		if value := tx.Bucket(bucketCounters).Get([]byte(name)); value != nil {
			record.Count = decodeCount(value)
		}
		return nil
	})
	if err != nil {
		return storage.Record{}, errors.Wrap(errors.CodeStoreFailure, "get counter", err)
	}
	return record, nil
}

// GetAll returns every counter record in key order.
func (s *Store) GetAll(ctx context.Context) ([]storage.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	var records []storage.Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketCounters).ForEach(func(key, value []byte) error {
			records = append(records, storage.Record{
				Name:  string(key),
				Count: decodeCount(value),
			})
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrap(errors.CodeStoreFailure, "list counters", err)
	}
	return records, nil
}

// SetNum upserts one counter to an absolute count.
func (s *Store) SetNum(ctx context.Context, name string, count uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("storage is not configured")
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketCounters).Put([]byte(name), encodeCount(count))
	})
	if err != nil {
		return errors.Wrap(errors.CodeStoreFailure, "set counter", err)
	}
	return nil
}

// SetNumMulti upserts every record inside one update transaction.
func (s *Store) SetNumMulti(ctx context.Context, records []storage.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("storage is not configured")
	}
	if len(records) == 0 {
		return nil
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketCounters)
		for _, record := range records {
			if err := bucket.Put([]byte(record.Name), encodeCount(record.Count)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(errors.CodeStoreFailure, "set counter batch", err)
	}
	return nil
}

// Increment atomically adds delta to name, creating it when absent, and
// returns the new count.
func (s *Store) Increment(ctx context.Context, name string, delta uint64) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("storage is not configured")
	}

	var count uint64
	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketCounters)
		key := []byte(name)
		count = decodeCount(bucket.Get(key)) + delta
		return bucket.Put(key, encodeCount(count))
	})
	if err != nil {
		return 0, errors.Wrap(errors.CodeStoreFailure, "increment counter", err)
	}
	return count, nil
}
