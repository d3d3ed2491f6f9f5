// Package badge composes counter values into self-contained SVG documents.
//
// Each distinct character contributes one reusable symbol definition with
// its image payload inlined; every sequence position is a lightweight use
// reference. Output size is therefore proportional to distinct glyphs plus
// sequence length, not to duplicated payloads.
package badge

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/louisbranch/moecount/internal/theme"
)

// Align positions glyphs vertically inside the canvas.
type Align string

// Supported vertical alignments.
const (
	AlignTop    Align = "top"
	AlignCenter Align = "center"
	AlignBottom Align = "bottom"
)

// Darkmode render modes.
const (
	DarkmodeOff  = "0"
	DarkmodeOn   = "1"
	DarkmodeAuto = "auto"
)

// Request carries the formatting parameters for one render. Values are
// assumed validated by the boundary.
type Request struct {
	Theme     string
	Padding   int
	Offset    float64
	Align     Align
	Scale     float64
	Pixelated bool
	Darkmode  string
	Prefix    int64 // -1 when absent
}

type placement struct {
	defIndex int
	width    float64
	height   float64
}

// Render lays out the glyphs for count and emits the SVG document.
func Render(catalog *theme.Catalog, req Request, count uint64) (string, error) {
	themeName := catalog.Resolve(req.Theme)

	chars := make([]string, 0, 24)
	if catalog.Has(themeName, theme.CharStart) {
		chars = append(chars, theme.CharStart)
	}
	for _, r := range formatDigits(count, req.Padding, req.Prefix) {
		chars = append(chars, string(r))
	}
	if catalog.Has(themeName, theme.CharEnd) {
		chars = append(chars, theme.CharEnd)
	}

	// Resolve glyphs, assigning one definition per distinct character in
	// first-appearance order so output is deterministic.
	defIndexByChar := make(map[string]int)
	var defs []theme.Glyph
	placements := make([]placement, 0, len(chars))
	canvasHeight := 0.0
	for _, char := range chars {
		index, ok := defIndexByChar[char]
		if !ok {
			glyph, err := catalog.Glyph(themeName, char)
			if err != nil {
				return "", err
			}
			index = len(defs)
			defIndexByChar[char] = index
			defs = append(defs, glyph)
		}
		glyph := defs[index]

		width, height := scaledSize(glyph, req.Scale)
		if height > canvasHeight {
			canvasHeight = height
		}
		placements = append(placements, placement{defIndex: index, width: width, height: height})
	}

	canvasWidth := 0.0
	for _, p := range placements {
		canvasWidth += p.width
	}
	if n := len(placements); n > 1 {
		canvasWidth += req.Offset * float64(n-1)
	}

	return compose(req, defs, placements, canvasWidth, canvasHeight), nil
}

// formatDigits produces the character sequence before decoration: the count
// left-zero-padded to at least padding digits, with the prefix digits
// textually prepended when present.
func formatDigits(count uint64, padding int, prefix int64) string {
	digits := strconv.FormatUint(count, 10)
	if pad := padding - len(digits); pad > 0 {
		digits = strings.Repeat("0", pad) + digits
	}
	if prefix >= 0 {
		digits = strconv.FormatInt(prefix, 10) + digits
	}
	return digits
}

// scaledSize returns the rendered dimensions, using the precomputed preset
// when the scale matches one exactly.
func scaledSize(glyph theme.Glyph, scale float64) (float64, float64) {
	if size, ok := glyph.PresetFor(scale); ok {
		return size.Width, size.Height
	}
	return float64(glyph.Width) * scale, float64(glyph.Height) * scale
}

func compose(req Request, defs []theme.Glyph, placements []placement, canvasWidth, canvasHeight float64) string {
	var b strings.Builder

	w := num(canvasWidth)
	h := num(canvasHeight)
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s">`, w, h, w, h)
	b.WriteString("\n")

	if style := styleFor(req); style != "" {
		b.WriteString("<style>")
		b.WriteString(style)
		b.WriteString("</style>\n")
	}

	b.WriteString("<defs>\n")
	for i, glyph := range defs {
		fmt.Fprintf(&b,
			`<symbol id="g%d" viewBox="0 0 %d %d"><image width="%d" height="%d" href="data:%s;base64,%s"/></symbol>`,
			i, glyph.Width, glyph.Height, glyph.Width, glyph.Height,
			glyph.MIME, base64.StdEncoding.EncodeToString(glyph.Data))
		b.WriteString("\n")
	}
	b.WriteString("</defs>\n")

	x := 0.0
	for _, p := range placements {
		fmt.Fprintf(&b, `<use href="#g%d" x="%s" y="%s" width="%s" height="%s"/>`,
			p.defIndex, num(x), num(glyphY(req.Align, canvasHeight, p.height)), num(p.width), num(p.height))
		b.WriteString("\n")
		x += p.width + req.Offset
	}

	b.WriteString("</svg>\n")
	return b.String()
}

// glyphY derives the vertical position from the alignment.
func glyphY(align Align, canvasHeight, glyphHeight float64) float64 {
	switch align {
	case AlignCenter:
		return (canvasHeight - glyphHeight) / 2
	case AlignBottom:
		return canvasHeight - glyphHeight
	default:
		return 0
	}
}

func styleFor(req Request) string {
	var rules []string
	if req.Pixelated {
		rules = append(rules, "image{image-rendering:pixelated}")
	}
	switch req.Darkmode {
	case DarkmodeOn:
		rules = append(rules, "svg{filter:brightness(.6)}")
	case DarkmodeAuto:
		rules = append(rules, "@media (prefers-color-scheme: dark){svg{filter:brightness(.6)}}")
	}
	return strings.Join(rules, "")
}

// num formats a coordinate without trailing zeros so output is stable.
func num(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
