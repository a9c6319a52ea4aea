package sqlstore

import (
	"strconv"
	"strings"
)

// Dialect captures the differences between the supported SQL backends.
type Dialect struct {
	// Name is the config driver name and migration directory.
	Name string
	// DriverName is the database/sql driver registered by the backend package.
	DriverName string
	positional bool
}

//nolint:gochecknoglobals // Immutable dialect descriptors.
var (
	SQLite   = Dialect{Name: "sqlite", DriverName: "sqlite"}
	Postgres = Dialect{Name: "postgres", DriverName: "pgx", positional: true}
)

// Rebind rewrites ? placeholders to $n for positional dialects.
// Queries must not contain literal question marks.
func (d Dialect) Rebind(query string) string {
	if !d.positional {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
