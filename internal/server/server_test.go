package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/louisbranch/moecount/internal/counter"
	"github.com/louisbranch/moecount/internal/storage"
	"github.com/louisbranch/moecount/internal/theme"
)

type memStore struct {
	mu     sync.Mutex
	counts map[string]uint64
}

func newMemStore() *memStore {
	return &memStore{counts: make(map[string]uint64)}
}

func (m *memStore) GetNum(ctx context.Context, name string) (storage.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return storage.Record{Name: name, Count: m.counts[name]}, nil
}

func (m *memStore) GetAll(ctx context.Context) ([]storage.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	records := make([]storage.Record, 0, len(m.counts))
	for name, count := range m.counts {
		records = append(records, storage.Record{Name: name, Count: count})
	}
	return records, nil
}

func (m *memStore) SetNum(ctx context.Context, name string, count uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[name] = count
	return nil
}

func (m *memStore) SetNumMulti(ctx context.Context, records []storage.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, record := range records {
		m.counts[record.Name] = record.Count
	}
	return nil
}

func (m *memStore) Increment(ctx context.Context, name string, delta uint64) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[name] += delta
	return m.counts[name], nil
}

func (m *memStore) Close() error { return nil }

func writeTestTheme(t *testing.T, root, name string) {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir theme: %v", err)
	}
	img := image.NewRGBA(image.Rect(0, 0, 8, 16))
	for x := 0; x < 8; x++ {
		for y := 0; y < 16; y++ {
			img.Set(x, y, color.RGBA{R: 30, G: 30, B: 30, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	for d := 0; d <= 9; d++ {
		path := filepath.Join(dir, fmt.Sprintf("%d.png", d))
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			t.Fatalf("write glyph: %v", err)
		}
	}
}

func newTestHandler(t *testing.T, store storage.Store) http.Handler {
	t.Helper()
	root := t.TempDir()
	writeTestTheme(t, root, "moebooru")
	writeTestTheme(t, root, "asoul")
	catalog, err := theme.Load(theme.Options{Root: root, DefaultTheme: "moebooru"})
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	counters := counter.New(store)
	return NewHandler(Config{HTTPAddr: ":0", DefaultTheme: "moebooru"}, counters, catalog)
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	recorder := httptest.NewRecorder()
	h.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, target, nil))
	return recorder
}

func TestBadgeEndpoint(t *testing.T) {
	h := newTestHandler(t, newMemStore())

	resp := get(t, h, "/@visits")
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.Code)
	}
	if got := resp.Header().Get("Content-Type"); got != "image/svg+xml; charset=utf-8" {
		t.Fatalf("content type = %q", got)
	}
	if got := resp.Header().Get("Cache-Control"); !strings.Contains(got, "no-store") {
		t.Fatalf("cache control = %q, want no-store", got)
	}
	if got := resp.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("cors header = %q, want *", got)
	}
	if !strings.HasPrefix(resp.Body.String(), "<svg") {
		t.Fatalf("body does not start with <svg: %q", resp.Body.String()[:24])
	}
}

func TestRecordEndpointCountsSequentially(t *testing.T) {
	store := newMemStore()
	h := newTestHandler(t, store)

	for want := uint64(1); want <= 3; want++ {
		resp := get(t, h, "/record/@visits")
		if resp.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.Code)
		}
		var record storage.Record
		if err := json.Unmarshal(resp.Body.Bytes(), &record); err != nil {
			t.Fatalf("decode record: %v", err)
		}
		if record.Name != "visits" || record.Count != want {
			t.Fatalf("record = %+v, want {visits %d}", record, want)
		}
	}
}

func TestNumOverrideDoesNotAdvanceCounter(t *testing.T) {
	store := newMemStore()
	h := newTestHandler(t, store)

	resp := get(t, h, "/record/@visits?num=500")
	var record storage.Record
	if err := json.Unmarshal(resp.Body.Bytes(), &record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if record.Count != 500 {
		t.Fatalf("override count = %d, want 500", record.Count)
	}

	resp = get(t, h, "/record/@visits")
	if err := json.Unmarshal(resp.Body.Bytes(), &record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if record.Count != 1 {
		t.Fatalf("count after override = %d, want 1", record.Count)
	}
}

func TestPathWithoutMarkerIsNotFound(t *testing.T) {
	store := newMemStore()
	h := newTestHandler(t, store)

	resp := get(t, h, "/visits")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("badge status = %d, want 404", resp.Code)
	}
	resp = get(t, h, "/record/visits")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("record status = %d, want 404", resp.Code)
	}

	// The marked path still resolves the same counter name.
	resp = get(t, h, "/record/@visits")
	var record storage.Record
	if err := json.Unmarshal(resp.Body.Bytes(), &record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if record.Count != 1 {
		t.Fatalf("count = %d, want 1", record.Count)
	}
}

func TestInvalidNameRejected(t *testing.T) {
	h := newTestHandler(t, newMemStore())

	resp := get(t, h, "/@this-name-is-definitely-longer-than-32-chars")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.Code)
	}
}

func TestInvalidParamRejected(t *testing.T) {
	h := newTestHandler(t, newMemStore())

	resp := get(t, h, "/@visits?padding=99")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.Code)
	}

	// Rejection happens before any state mutation.
	resp = get(t, h, "/record/@visits")
	var record storage.Record
	if err := json.Unmarshal(resp.Body.Bytes(), &record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if record.Count != 1 {
		t.Fatalf("count = %d, want 1 (bad request must not count)", record.Count)
	}
}

func TestRandomThemeRenders(t *testing.T) {
	h := newTestHandler(t, newMemStore())

	for i := 0; i < 10; i++ {
		resp := get(t, h, "/@visits?theme=random")
		if resp.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.Code)
		}
	}
}

func TestHeartBeat(t *testing.T) {
	h := newTestHandler(t, newMemStore())

	resp := get(t, h, "/heart-beat")
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.Code)
	}
	if resp.Body.String() != "alive" {
		t.Fatalf("body = %q, want alive", resp.Body.String())
	}
}

func TestIndexPage(t *testing.T) {
	h := newTestHandler(t, newMemStore())

	resp := get(t, h, "/")
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "<html") {
		t.Fatal("index body is not html")
	}
}

func TestFavicon(t *testing.T) {
	h := newTestHandler(t, newMemStore())

	resp := get(t, h, "/favicon.ico")
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.Code)
	}
	if got := resp.Header().Get("Content-Type"); got != "image/svg+xml; charset=utf-8" {
		t.Fatalf("content type = %q", got)
	}
	if !strings.HasPrefix(resp.Body.String(), "<svg") {
		t.Fatal("favicon body is not svg")
	}
}

func TestDemoBadgeBypassesStore(t *testing.T) {
	store := newMemStore()
	h := newTestHandler(t, store)

	resp := get(t, h, "/record/@demo")
	var record storage.Record
	if err := json.Unmarshal(resp.Body.Bytes(), &record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if record.Count != 123456789 {
		t.Fatalf("demo count = %d, want 123456789", record.Count)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.counts) != 0 {
		t.Fatalf("demo mutated store: %+v", store.counts)
	}
}
