// Package storage defines the durable counter store contract and the
// configuration-driven factory that selects one of the interchangeable
// backends (SQLite, bbolt, Redis).
//
// The store never retries internally; retry policy belongs to the caller.
// Every backend must implement upserts and increments with its native
// atomic primitive so that concurrent writers to the same name cannot lose
// updates.
package storage
