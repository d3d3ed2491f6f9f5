package migrations

import "embed"

// FS contains embedded SQLite migrations for counter storage.
//
//go:embed *.sql
var FS embed.FS
