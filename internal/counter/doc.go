// Package counter implements the counter state engine: a write-back cache
// of pending counter values in front of a durable store, flushed in batches
// at most once per configured interval.
//
// The cache may run ahead of the store between flushes; values buffered but
// not yet flushed are lost on crash. That bounded loss window is the
// accepted trade-off for reduced write amplification. Flush payloads are
// absolute counts, so a failed flush is retried safely on the next cycle.
package counter
