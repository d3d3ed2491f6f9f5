package server

import (
	"net/url"
	"regexp"
	"strconv"

	"github.com/louisbranch/moecount/internal/badge"
	"github.com/louisbranch/moecount/internal/platform/errors"
)

// namePattern bounds counter names: 1-32 chars of [A-Za-z0-9_-].
var namePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,32}$`)

// renderParams is the validated request value object. It is either fully
// populated or rejected; no partial application.
type renderParams struct {
	Name  string
	Num   uint64
	Badge badge.Request
}

// Parameter bounds from the external interface contract.
const (
	maxPadding = 16
	maxOffset  = 500.0
	minScale   = 0.1
	maxScale   = 2.0
	maxNum     = 1_000_000_000_000_000
	maxPrefix  = 999_999
)

// parseRenderParams validates the counter name and query parameters,
// applying documented defaults.
func parseRenderParams(name string, query url.Values, defaultTheme string) (renderParams, error) {
	if !namePattern.MatchString(name) {
		return renderParams{}, errors.WithMetadata(errors.CodeNameInvalid,
			"counter name must match [A-Za-z0-9_-]{1,32}",
			map[string]string{"name": name})
	}

	params := renderParams{
		Name: name,
		Badge: badge.Request{
			Theme:     defaultTheme,
			Padding:   7,
			Offset:    0,
			Align:     badge.AlignTop,
			Scale:     1,
			Pixelated: true,
			Darkmode:  badge.DarkmodeAuto,
			Prefix:    -1,
		},
	}

	if value := query.Get("theme"); value != "" {
		params.Badge.Theme = value
	}

	if value := query.Get("padding"); value != "" {
		padding, err := strconv.Atoi(value)
		if err != nil || padding < 0 || padding > maxPadding {
			return renderParams{}, paramError("padding", value)
		}
		params.Badge.Padding = padding
	}

	if value := query.Get("offset"); value != "" {
		offset, err := strconv.ParseFloat(value, 64)
		if err != nil || offset < -maxOffset || offset > maxOffset {
			return renderParams{}, paramError("offset", value)
		}
		params.Badge.Offset = offset
	}

	if value := query.Get("align"); value != "" {
		switch badge.Align(value) {
		case badge.AlignTop, badge.AlignCenter, badge.AlignBottom:
			params.Badge.Align = badge.Align(value)
		default:
			return renderParams{}, paramError("align", value)
		}
	}

	if value := query.Get("scale"); value != "" {
		scale, err := strconv.ParseFloat(value, 64)
		if err != nil || scale < minScale || scale > maxScale {
			return renderParams{}, paramError("scale", value)
		}
		params.Badge.Scale = scale
	}

	if value := query.Get("pixelated"); value != "" {
		switch value {
		case "1", "true":
			params.Badge.Pixelated = true
		case "0", "false":
			params.Badge.Pixelated = false
		default:
			return renderParams{}, paramError("pixelated", value)
		}
	}

	if value := query.Get("darkmode"); value != "" {
		switch value {
		case badge.DarkmodeOff, badge.DarkmodeOn, badge.DarkmodeAuto:
			params.Badge.Darkmode = value
		default:
			return renderParams{}, paramError("darkmode", value)
		}
	}

	if value := query.Get("num"); value != "" {
		num, err := strconv.ParseUint(value, 10, 64)
		if err != nil || num > maxNum {
			return renderParams{}, paramError("num", value)
		}
		params.Num = num
	}

	if value := query.Get("prefix"); value != "" {
		prefix, err := strconv.ParseInt(value, 10, 64)
		if err != nil || prefix < -1 || prefix > maxPrefix {
			return renderParams{}, paramError("prefix", value)
		}
		params.Badge.Prefix = prefix
	}

	return params, nil
}

func paramError(param, value string) error {
	return errors.WithMetadata(errors.CodeParamInvalid,
		"invalid render parameter",
		map[string]string{"param": param, "value": value})
}
