package counter

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/louisbranch/moecount/internal/storage"
)

type fakeStore struct {
	mu            sync.Mutex
	counts        map[string]uint64
	failGet       bool
	failSetMulti  int
	setMultiCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{counts: make(map[string]uint64)}
}

func (f *fakeStore) GetNum(ctx context.Context, name string) (storage.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGet {
		return storage.Record{}, errors.New("store unavailable")
	}
	return storage.Record{Name: name, Count: f.counts[name]}, nil
}

func (f *fakeStore) GetAll(ctx context.Context) ([]storage.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	records := make([]storage.Record, 0, len(f.counts))
	for name, count := range f.counts {
		records = append(records, storage.Record{Name: name, Count: count})
	}
	return records, nil
}

func (f *fakeStore) SetNum(ctx context.Context, name string, count uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[name] = count
	return nil
}

func (f *fakeStore) SetNumMulti(ctx context.Context, records []storage.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setMultiCalls++
	if f.failSetMulti > 0 {
		f.failSetMulti--
		return errors.New("write failed")
	}
	for _, record := range records {
		f.counts[record.Name] = record.Count
	}
	return nil
}

func (f *fakeStore) Increment(ctx context.Context, name string, delta uint64) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[name] += delta
	return f.counts[name], nil
}

func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) durable(name string) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[name]
}

func TestSequentialIncrements(t *testing.T) {
	store := newFakeStore()
	store.counts["visits"] = 10
	service := New(store)

	for i := 1; i <= 5; i++ {
		got := service.GetOrIncrement(context.Background(), "visits", 0)
		if got != uint64(10+i) {
			t.Fatalf("call %d = %d, want %d", i, got, 10+i)
		}
	}
}

func TestExplicitOverrideLeavesStateUntouched(t *testing.T) {
	store := newFakeStore()
	service := New(store)

	if got := service.GetOrIncrement(context.Background(), "visits", 0); got != 1 {
		t.Fatalf("first visit = %d, want 1", got)
	}
	if got := service.GetOrIncrement(context.Background(), "visits", 999); got != 999 {
		t.Fatalf("override = %d, want 999", got)
	}
	// The override must not have advanced the cached value.
	if got := service.GetOrIncrement(context.Background(), "visits", 0); got != 2 {
		t.Fatalf("visit after override = %d, want 2", got)
	}
}

func TestDemoSentinelBypassesStore(t *testing.T) {
	store := newFakeStore()
	store.failGet = true
	service := New(store)

	if got := service.GetOrIncrement(context.Background(), DemoName, 0); got != 123456789 {
		t.Fatalf("demo = %d, want 123456789", got)
	}
	if got := service.GetOrIncrement(context.Background(), DemoName, 7); got != 123456789 {
		t.Fatalf("demo with override = %d, want 123456789", got)
	}
}

func TestStoreFailureFailsOpen(t *testing.T) {
	store := newFakeStore()
	store.failGet = true
	service := New(store)

	if got := service.GetOrIncrement(context.Background(), "visits", 0); got != 0 {
		t.Fatalf("degraded value = %d, want 0", got)
	}

	// Once the store recovers, counting starts from the durable value.
	store.failGet = false
	if got := service.GetOrIncrement(context.Background(), "visits", 0); got != 1 {
		t.Fatalf("recovered value = %d, want 1", got)
	}
}

func TestStoreFailureStillAttemptsFlush(t *testing.T) {
	store := newFakeStore()
	current := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	service := New(store,
		WithFlushInterval(10*time.Second),
		WithClock(func() time.Time { return current }),
	)

	service.GetOrIncrement(context.Background(), "visits", 0)

	// A failed load on another counter degrades that response to zero but
	// does not skip the interval-gated flush of buffered values.
	store.failGet = true
	current = current.Add(11 * time.Second)
	if got := service.GetOrIncrement(context.Background(), "broken", 0); got != 0 {
		t.Fatalf("degraded value = %d, want 0", got)
	}
	if store.setMultiCalls != 1 {
		t.Fatalf("setMulti calls = %d, want 1", store.setMultiCalls)
	}
	if got := store.durable("visits"); got != 1 {
		t.Fatalf("durable count = %d, want 1", got)
	}
}

func TestForcedFlushDurability(t *testing.T) {
	store := newFakeStore()
	service := New(store)

	for i := 0; i < 3; i++ {
		service.GetOrIncrement(context.Background(), "visits", 0)
	}
	if err := service.Flush(context.Background(), true); err != nil {
		t.Fatalf("forced flush: %v", err)
	}
	if got := store.durable("visits"); got != 3 {
		t.Fatalf("durable count = %d, want 3", got)
	}

	// The forced flush cleared the cache; the next visit reloads and
	// continues from the durable value.
	if got := service.GetOrIncrement(context.Background(), "visits", 0); got != 4 {
		t.Fatalf("visit after forced flush = %d, want 4", got)
	}
}

func TestIntervalGateSkipsEarlyFlush(t *testing.T) {
	store := newFakeStore()
	current := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	service := New(store,
		WithFlushInterval(10*time.Second),
		WithClock(func() time.Time { return current }),
	)

	service.GetOrIncrement(context.Background(), "visits", 0)
	if store.setMultiCalls != 0 {
		t.Fatalf("setMulti calls = %d, want 0 before interval elapses", store.setMultiCalls)
	}

	current = current.Add(11 * time.Second)
	service.GetOrIncrement(context.Background(), "visits", 0)
	if store.setMultiCalls != 1 {
		t.Fatalf("setMulti calls = %d, want 1 after interval", store.setMultiCalls)
	}
	if got := store.durable("visits"); got != 2 {
		t.Fatalf("durable count = %d, want 2", got)
	}

	// Interval flushes retain the cache: counting keeps accumulating from
	// the buffered value, not from a reload.
	if got := service.GetOrIncrement(context.Background(), "visits", 0); got != 3 {
		t.Fatalf("visit after interval flush = %d, want 3", got)
	}
}

func TestFailedFlushRetriesSameAbsoluteValues(t *testing.T) {
	store := newFakeStore()
	service := New(store)

	for i := 0; i < 3; i++ {
		service.GetOrIncrement(context.Background(), "visits", 0)
	}

	store.failSetMulti = 1
	if err := service.Flush(context.Background(), true); err == nil {
		t.Fatal("expected flush error")
	}
	if got := store.durable("visits"); got != 0 {
		t.Fatalf("durable count after failed flush = %d, want 0", got)
	}

	// The cache was left untouched; the retry resends the same absolute
	// snapshot and succeeds.
	if err := service.Flush(context.Background(), true); err != nil {
		t.Fatalf("retry flush: %v", err)
	}
	if got := store.durable("visits"); got != 3 {
		t.Fatalf("durable count after retry = %d, want 3", got)
	}
}

func TestFlushEmptyCacheIsSuccessful(t *testing.T) {
	store := newFakeStore()
	service := New(store)

	if err := service.Flush(context.Background(), true); err != nil {
		t.Fatalf("flush empty cache: %v", err)
	}
	if store.setMultiCalls != 0 {
		t.Fatalf("setMulti calls = %d, want 0 for empty cache", store.setMultiCalls)
	}
}

func TestCloseFlushesBufferedCounts(t *testing.T) {
	store := newFakeStore()
	service := New(store)

	service.GetOrIncrement(context.Background(), "visits", 0)
	if err := service.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if got := store.durable("visits"); got != 1 {
		t.Fatalf("durable count = %d, want 1", got)
	}
}

func TestConcurrentIncrementsLoseNothing(t *testing.T) {
	store := newFakeStore()
	service := New(store)

	const workers = 8
	const perWorker = 50

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				service.GetOrIncrement(context.Background(), "visits", 0)
			}
		}()
	}
	wg.Wait()

	if err := service.Flush(context.Background(), true); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if got := store.durable("visits"); got != workers*perWorker {
		t.Fatalf("durable count = %d, want %d", got, workers*perWorker)
	}
}
