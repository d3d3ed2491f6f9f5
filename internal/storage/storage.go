package storage

import "context"

// Record is one durable counter value.
type Record struct {
	Name  string `json:"name"`
	Count uint64 `json:"count"`
}

// Store persists named counter values.
//
// Absence is not an error: GetNum reports a zero count for names that were
// never written. SetNumMulti applies every record, inside one transaction
// where the backend supports it, so a retried flush with the same absolute
// values is idempotent.
type Store interface {
	GetNum(ctx context.Context, name string) (Record, error)
	GetAll(ctx context.Context) ([]Record, error)
	SetNum(ctx context.Context, name string, count uint64) error
	SetNumMulti(ctx context.Context, records []Record) error
	Increment(ctx context.Context, name string, delta uint64) (uint64, error)
	Close() error
}
