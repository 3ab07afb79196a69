// Package migrations holds the embedded goose migrations of the event store.
package migrations

import "embed"

// FS contains every SQL migration file.
//
//go:embed *.sql
var FS embed.FS
