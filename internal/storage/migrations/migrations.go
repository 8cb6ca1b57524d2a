// Package migrations embeds the schema migrations applied at startup.
package migrations

import "embed"

// FS holds the golang-migrate style *.up.sql / *.down.sql files.
//
//go:embed *.sql
var FS embed.FS
