// Package migrations holds the embedded PostgreSQL catalogue schema.
package migrations

import "embed"

//go:embed *.sql
var Files embed.FS
