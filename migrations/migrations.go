// Package migrations embeds the SQL schema migrations so binaries and tests
// can apply them without a checkout of the migrations directory on disk.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
