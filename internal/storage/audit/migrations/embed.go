// Package migrations holds the audit schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
