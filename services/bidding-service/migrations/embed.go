// Package migrations holds the bidding database schema as goose SQL files.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
