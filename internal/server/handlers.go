package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/louisbranch/moecount/internal/badge"
	"github.com/louisbranch/moecount/internal/counter"
	"github.com/louisbranch/moecount/internal/platform/errors"
	"github.com/louisbranch/moecount/internal/storage"
	"github.com/louisbranch/moecount/internal/theme"
)

type handler struct {
	counters     *counter.Service
	catalog      *theme.Catalog
	defaultTheme string
}

// counterName extracts the counter name from the path segment, which must
// carry the @ marker.
func counterName(r *http.Request) (string, bool) {
	return strings.CutPrefix(r.PathValue("name"), "@")
}

// setCountHeaders marks counter responses uncacheable so embedders always
// see the freshest in-memory value.
func setCountHeaders(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "max-age=0, no-cache, no-store, must-revalidate")
	w.Header().Set("Access-Control-Allow-Origin", "*")
}

// badge serves the rendered SVG for a counter.
func (h *handler) badge(w http.ResponseWriter, r *http.Request) {
	name, ok := counterName(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	params, err := parseRenderParams(name, r.URL.Query(), h.defaultTheme)
	if err != nil {
		http.Error(w, err.Error(), errors.CodeOf(err).HTTPStatus())
		return
	}

	// Random picks a loaded theme per request; resolution happens here so
	// the compositor stays deterministic for a fixed request.
	if params.Badge.Theme == "random" {
		params.Badge.Theme = h.catalog.Random()
	}

	count := h.counters.GetOrIncrement(r.Context(), params.Name, params.Num)
	svg, err := badge.Render(h.catalog, params.Badge, count)
	if err != nil {
		log.Printf("render %q: %v", params.Name, err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}

	setCountHeaders(w)
	w.Header().Set("Content-Type", "image/svg+xml; charset=utf-8")
	if _, err := w.Write([]byte(svg)); err != nil {
		log.Printf("write badge response: %v", err)
	}
}

// record serves the raw counter value for programmatic consumers.
func (h *handler) record(w http.ResponseWriter, r *http.Request) {
	name, ok := counterName(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	params, err := parseRenderParams(name, r.URL.Query(), h.defaultTheme)
	if err != nil {
		http.Error(w, err.Error(), errors.CodeOf(err).HTTPStatus())
		return
	}

	count := h.counters.GetOrIncrement(r.Context(), params.Name, params.Num)

	setCountHeaders(w)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(storage.Record{Name: params.Name, Count: count}); err != nil {
		log.Printf("write record response: %v", err)
	}
}

// heartBeat is the liveness endpoint.
func (h *handler) heartBeat(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := w.Write([]byte("alive")); err != nil {
		log.Printf("write heart-beat response: %v", err)
	}
}

// index serves the embedded demo page.
func (h *handler) index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(indexPage); err != nil {
		log.Printf("write index response: %v", err)
	}
}

// favicon serves the embedded site icon.
func (h *handler) favicon(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "image/svg+xml; charset=utf-8")
	w.Header().Set("Cache-Control", "max-age=86400")
	if _, err := w.Write(faviconImage); err != nil {
		log.Printf("write favicon response: %v", err)
	}
}
