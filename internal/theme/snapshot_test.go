package theme

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSnapshotWrittenAfterScan(t *testing.T) {
	root := t.TempDir()
	writeTheme(t, root, "moebooru", 32, 64)
	snapshotPath := filepath.Join(t.TempDir(), "themes.json")

	_, err := Load(Options{Root: root, DefaultTheme: "moebooru", SnapshotPath: snapshotPath})
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	if _, err := os.Stat(snapshotPath); err != nil {
		t.Fatalf("snapshot not written: %v", err)
	}
}

func TestSnapshotSkipsRescan(t *testing.T) {
	root := t.TempDir()
	writeTheme(t, root, "moebooru", 32, 64)
	snapshotPath := filepath.Join(t.TempDir(), "themes.json")

	if _, err := Load(Options{Root: root, DefaultTheme: "moebooru", SnapshotPath: snapshotPath}); err != nil {
		t.Fatalf("first load: %v", err)
	}

	// Remove the source assets; the second load must come entirely from
	// the snapshot.
	if err := os.RemoveAll(filepath.Join(root, "moebooru")); err != nil {
		t.Fatalf("remove assets: %v", err)
	}

	catalog, err := Load(Options{Root: root, DefaultTheme: "moebooru", SnapshotPath: snapshotPath})
	if err != nil {
		t.Fatalf("load from snapshot: %v", err)
	}
	glyph, err := catalog.Glyph("moebooru", "5")
	if err != nil {
		t.Fatalf("glyph from snapshot: %v", err)
	}
	if glyph.Width != 32 || glyph.Height != 64 {
		t.Fatalf("dimensions = %dx%d, want 32x64", glyph.Width, glyph.Height)
	}
	if len(glyph.Data) == 0 {
		t.Fatal("snapshot lost glyph payload")
	}
}

func TestSnapshotForDifferentRootIgnored(t *testing.T) {
	rootA := t.TempDir()
	writeTheme(t, rootA, "moebooru", 32, 64)
	snapshotPath := filepath.Join(t.TempDir(), "themes.json")

	if _, err := Load(Options{Root: rootA, DefaultTheme: "moebooru", SnapshotPath: snapshotPath}); err != nil {
		t.Fatalf("first load: %v", err)
	}

	// Same snapshot file, different root: the stale snapshot must be
	// ignored and the new root scanned.
	rootB := t.TempDir()
	writeTheme(t, rootB, "moebooru", 10, 20)

	catalog, err := Load(Options{Root: rootB, DefaultTheme: "moebooru", SnapshotPath: snapshotPath})
	if err != nil {
		t.Fatalf("load with different root: %v", err)
	}
	glyph, err := catalog.Glyph("moebooru", "5")
	if err != nil {
		t.Fatalf("glyph: %v", err)
	}
	if glyph.Width != 10 || glyph.Height != 20 {
		t.Fatalf("dimensions = %dx%d, want 10x20 from fresh scan", glyph.Width, glyph.Height)
	}
}

func TestCorruptSnapshotFallsBackToScan(t *testing.T) {
	root := t.TempDir()
	writeTheme(t, root, "moebooru", 32, 64)
	snapshotPath := filepath.Join(t.TempDir(), "themes.json")
	if err := os.WriteFile(snapshotPath, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt snapshot: %v", err)
	}

	catalog, err := Load(Options{Root: root, DefaultTheme: "moebooru", SnapshotPath: snapshotPath})
	if err != nil {
		t.Fatalf("load with corrupt snapshot: %v", err)
	}
	if !catalog.Has("moebooru", "0") {
		t.Fatal("catalog missing glyphs after fallback scan")
	}
}
