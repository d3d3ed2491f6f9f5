package theme

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/louisbranch/moecount/internal/platform/errors"
)

// snapshot is the on-disk form of a scanned catalog. It ties itself to the
// theme root so a snapshot built for one asset tree is never applied to
// another.
type snapshot struct {
	Root         string  `json:"root"`
	DefaultTheme string  `json:"default_theme"`
	SavedAtUnix  int64   `json:"saved_at"`
	Glyphs       []Glyph `json:"glyphs"`
}

func loadSnapshot(opts Options) (*Catalog, error) {
	data, err := os.ReadFile(opts.SnapshotPath)
	if err != nil {
		return nil, err
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, errors.Wrap(errors.CodeSnapshotInvalid, "decode theme snapshot", err)
	}
	if snap.Root != opts.Root {
		return nil, errors.WithMetadata(errors.CodeSnapshotInvalid,
			"theme snapshot built for a different root",
			map[string]string{"snapshot_root": snap.Root, "root": opts.Root})
	}

	themes := make(map[string]map[string]Glyph)
	for _, glyph := range snap.Glyphs {
		if themes[glyph.Theme] == nil {
			themes[glyph.Theme] = make(map[string]Glyph)
		}
		themes[glyph.Theme][glyph.Char] = glyph
	}
	return build(opts, themes)
}

func writeSnapshot(opts Options, catalog *Catalog) error {
	snap := snapshot{
		Root:         opts.Root,
		DefaultTheme: opts.DefaultTheme,
		SavedAtUnix:  time.Now().Unix(),
	}
	for _, name := range catalog.names {
		for _, glyph := range catalog.themes[name] {
			snap.Glyphs = append(snap.Glyphs, glyph)
		}
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode theme snapshot: %w", err)
	}

	// Write-then-rename so a crash mid-write never leaves a torn snapshot.
	tmp := opts.SnapshotPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write theme snapshot: %w", err)
	}
	if err := os.Rename(tmp, opts.SnapshotPath); err != nil {
		return fmt.Errorf("replace theme snapshot: %w", err)
	}
	return nil
}
