// Package migrations embeds the SQL schema for each supported dialect.
package migrations

import "embed"

// FS contains embedded migrations under sqlite/ and postgres/.
//
//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS
