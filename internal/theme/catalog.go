package theme

import (
	"bytes"
	"image"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/louisbranch/moecount/internal/platform/errors"
)

// Reserved decorative glyph names rendered before and after the digits.
const (
	CharStart = "_start"
	CharEnd   = "_end"
)

// PresetScales are the multipliers whose rendered sizes are precomputed at
// load time.
var PresetScales = []float64{0.5, 1.0, 2.0}

// Size is a rendered glyph dimension in SVG user units.
type Size struct {
	Width  float64 `json:"w"`
	Height float64 `json:"h"`
}

// Glyph is one themed image for a single character. Immutable after load.
type Glyph struct {
	Theme   string          `json:"theme"`
	Char    string          `json:"char"`
	Width   int             `json:"width"`
	Height  int             `json:"height"`
	MIME    string          `json:"mime"`
	Data    []byte          `json:"data"`
	Presets map[string]Size `json:"presets"`
}

// PresetFor returns the precomputed size when scale matches a preset
// exactly.
func (g Glyph) PresetFor(scale float64) (Size, bool) {
	size, ok := g.Presets[presetKey(scale)]
	return size, ok
}

func presetKey(scale float64) string {
	return strconv.FormatFloat(scale, 'f', -1, 64)
}

// Catalog holds every loaded theme. Built once, read-only afterwards.
type Catalog struct {
	defaultTheme string
	themes       map[string]map[string]Glyph
	names        []string
}

// Options configures catalog loading.
type Options struct {
	// Root is the directory whose subdirectories are themes.
	Root string
	// DefaultTheme is the fallback for unknown theme names.
	DefaultTheme string
	// SnapshotPath, when set, names a JSON snapshot used to skip the
	// directory scan on subsequent startups. Invalidation is manual:
	// delete the file after changing theme assets.
	SnapshotPath string
}

// Load builds the catalog from a snapshot when one matches, otherwise by
// scanning the theme root. A fresh scan writes the snapshot best-effort.
func Load(opts Options) (*Catalog, error) {
	if opts.SnapshotPath != "" {
		catalog, err := loadSnapshot(opts)
		if err == nil {
			return catalog, nil
		}
		if !os.IsNotExist(err) {
			log.Printf("theme snapshot unusable, rescanning: %v", err)
		}
	}

	catalog, err := scan(opts)
	if err != nil {
		return nil, err
	}
	if opts.SnapshotPath != "" {
		if err := writeSnapshot(opts, catalog); err != nil {
			log.Printf("write theme snapshot: %v", err)
		}
	}
	return catalog, nil
}

func scan(opts Options) (*Catalog, error) {
	entries, err := os.ReadDir(opts.Root)
	if err != nil {
		return nil, errors.Wrap(errors.CodeThemeRootInvalid, "read theme root", err)
	}

	themes := make(map[string]map[string]Glyph)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		glyphs, err := scanTheme(opts.Root, entry.Name())
		if err != nil {
			return nil, err
		}
		if len(glyphs) > 0 {
			themes[entry.Name()] = glyphs
		}
	}
	return build(opts, themes)
}

func scanTheme(root, name string) (map[string]Glyph, error) {
	dir := filepath.Join(root, name)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(errors.CodeThemeRootInvalid, "read theme dir", err)
	}

	glyphs := make(map[string]Glyph)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".png" && ext != ".gif" && ext != ".jpg" && ext != ".jpeg" {
			continue
		}
		char := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		if !validChar(char) {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, errors.Wrap(errors.CodeThemeRootInvalid, "read glyph file", err)
		}
		cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return nil, errors.WithMetadata(errors.CodeThemeRootInvalid,
				"decode glyph image: "+err.Error(),
				map[string]string{"theme": name, "char": char})
		}

		glyphs[char] = Glyph{
			Theme:   name,
			Char:    char,
			Width:   cfg.Width,
			Height:  cfg.Height,
			MIME:    "image/" + format,
			Data:    data,
			Presets: presetSizes(cfg.Width, cfg.Height),
		}
	}
	return glyphs, nil
}

// validChar accepts a single rune or one of the reserved decoration names.
func validChar(char string) bool {
	if char == CharStart || char == CharEnd {
		return true
	}
	return len([]rune(char)) == 1
}

func presetSizes(width, height int) map[string]Size {
	presets := make(map[string]Size, len(PresetScales))
	for _, scale := range PresetScales {
		presets[presetKey(scale)] = Size{
			Width:  float64(width) * scale,
			Height: float64(height) * scale,
		}
	}
	return presets
}

func build(opts Options, themes map[string]map[string]Glyph) (*Catalog, error) {
	if len(themes) == 0 {
		return nil, errors.New(errors.CodeThemeEmpty, "no themes loaded")
	}
	if _, ok := themes[opts.DefaultTheme]; !ok {
		return nil, errors.WithMetadata(errors.CodeThemeEmpty,
			"default theme not loaded",
			map[string]string{"theme": opts.DefaultTheme})
	}

	names := make([]string, 0, len(themes))
	for name := range themes {
		names = append(names, name)
	}
	sort.Strings(names)

	return &Catalog{
		defaultTheme: opts.DefaultTheme,
		themes:       themes,
		names:        names,
	}, nil
}

// Themes returns the loaded theme names, sorted.
func (c *Catalog) Themes() []string {
	return c.names
}

// Random picks a loaded theme uniformly.
func (c *Catalog) Random() string {
	return c.names[rand.IntN(len(c.names))]
}

// Resolve maps an unknown theme name to the default theme.
func (c *Catalog) Resolve(name string) string {
	if _, ok := c.themes[name]; ok {
		return name
	}
	return c.defaultTheme
}

// Has reports whether the resolved theme defines char.
func (c *Catalog) Has(name, char string) bool {
	_, ok := c.themes[c.Resolve(name)][char]
	return ok
}

// Glyph returns the glyph for char in the resolved theme. A missing char in
// a loaded theme is a hard error: validated input always maps to a glyph,
// so a miss means broken theme assets.
func (c *Catalog) Glyph(name, char string) (Glyph, error) {
	resolved := c.Resolve(name)
	glyph, ok := c.themes[resolved][char]
	if !ok {
		return Glyph{}, errors.WithMetadata(errors.CodeGlyphMissing,
			"no glyph for character",
			map[string]string{"theme": resolved, "char": char})
	}
	return glyph, nil
}
