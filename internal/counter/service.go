package counter

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/louisbranch/moecount/internal/platform/errors"
	"github.com/louisbranch/moecount/internal/platform/timeouts"
	"github.com/louisbranch/moecount/internal/storage"
)

// DemoName is the reserved counter name that renders a fixed illustrative
// value without touching the cache or the store.
const DemoName = "demo"

// demoCount shows every digit glyph once when rendered with the demo
// padding of ten digits.
const demoCount = 123456789

// DefaultFlushInterval bounds how often buffered counts are written back.
const DefaultFlushInterval = 10 * time.Second

// Service orchestrates counter reads and increments through the write-back
// cache. The mutex guards the pending map and the last-flush timestamp; it
// is held only around the increment and the flush-trigger snapshot, never
// across store I/O.
type Service struct {
	store    storage.Store
	interval time.Duration
	timeout  time.Duration
	now      func() time.Time

	mu        sync.Mutex
	pending   map[string]uint64
	lastFlush time.Time
}

// Option adjusts Service construction.
type Option func(*Service)

// WithFlushInterval overrides the minimum gap between write-backs.
func WithFlushInterval(interval time.Duration) Option {
	return func(s *Service) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

// WithStoreTimeout overrides the per-call store timeout.
func WithStoreTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// WithClock injects the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New builds a counter service over store.
func New(store storage.Store, opts ...Option) *Service {
	s := &Service{
		store:    store,
		interval: DefaultFlushInterval,
		timeout:  timeouts.StoreCall,
		now:      time.Now,
		pending:  make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lastFlush = s.now()
	return s
}

// GetOrIncrement resolves the display value for name.
//
// The demo sentinel returns its fixed literal and explicit overrides are
// returned verbatim; neither mutates cached or durable state. Otherwise the
// visit is counted: an absent name is loaded from the store (the load
// itself counts as a visit), a cached name is bumped in place. A store
// failure on the load degrades the response to zero; nothing partial is
// ever written.
func (s *Service) GetOrIncrement(ctx context.Context, name string, explicit uint64) uint64 {
	if name == DemoName {
		return demoCount
	}
	if explicit > 0 {
		return explicit
	}

	value, ok := s.bump(name)
	if !ok {
		loadCtx, cancel := context.WithTimeout(ctx, s.timeout)
		record, err := s.store.GetNum(loadCtx, name)
		cancel()
		if err != nil {
			log.Printf("counter %q load failed, serving zero: %v", name, err)
		} else {
			value = s.seed(name, record.Count)
		}
	}

	if err := s.Flush(ctx, false); err != nil {
		log.Printf("counter flush failed, will retry: %v", err)
	}
	return value
}

// bump increments name when it is already cached.
func (s *Service) bump(name string) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.pending[name]
	if !ok {
		return 0, false
	}
	value++
	s.pending[name] = value
	return value, true
}

// seed installs the loaded durable count plus the visit that triggered the
// load. Another request may have seeded the name while the store call was
// in flight; its entry wins and is bumped instead.
func (s *Service) seed(name string, durable uint64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.pending[name]
	if ok {
		value++
	} else {
		value = durable + 1
	}
	s.pending[name] = value
	return value
}

// Flush writes the buffered snapshot to the store. It writes
// unconditionally when forced; otherwise only when the configured interval
// has elapsed since the last successful flush. On success a forced flush
// clears the flushed entries while an interval flush retains them; on
// failure the cache is left untouched so the next cycle resends the same
// absolute values.
func (s *Service) Flush(ctx context.Context, force bool) error {
	s.mu.Lock()
	if !force && s.now().Sub(s.lastFlush) <= s.interval {
		s.mu.Unlock()
		return nil
	}
	snapshot := make(map[string]uint64, len(s.pending))
	for name, count := range s.pending {
		snapshot[name] = count
	}
	s.mu.Unlock()

	if len(snapshot) > 0 {
		records := make([]storage.Record, 0, len(snapshot))
		for name, count := range snapshot {
			records = append(records, storage.Record{Name: name, Count: count})
		}
		flushCtx, cancel := context.WithTimeout(ctx, timeouts.Flush)
		err := s.store.SetNumMulti(flushCtx, records)
		cancel()
		if err != nil {
			return errors.Wrap(errors.CodeFlushFailure, "flush counters", err)
		}
	}

	s.mu.Lock()
	s.lastFlush = s.now()
	if force {
		// Drop only entries whose value made it into the snapshot; a name
		// incremented during the write keeps its newer value buffered.
		for name, count := range snapshot {
			if s.pending[name] == count {
				delete(s.pending, name)
			}
		}
	}
	s.mu.Unlock()
	return nil
}

// Close force-flushes buffered counts, closing the loss window on clean
// shutdown.
func (s *Service) Close(ctx context.Context) error {
	return s.Flush(ctx, true)
}
