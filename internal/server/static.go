package server

import _ "embed"

// indexPage is the static demo page. All interaction is client-side; the
// server never templates it.
//
//go:embed static/index.html
var indexPage []byte

//go:embed static/favicon.svg
var faviconImage []byte
