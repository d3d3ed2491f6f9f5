// Package theme loads and serves the glyph catalog: per-theme sets of digit
// and decoration images discovered under a root directory, decoded once at
// startup and immutable afterwards. Lookups are lock-free.
package theme
