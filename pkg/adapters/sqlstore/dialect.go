package sqlstore

import (
	"strconv"
	"strings"
)

// Dialect captures the differences between the supported databases.
type Dialect struct {
	Name   string
	Driver string
	Blob   string
	Int64  string

	numbered bool
	maxConns int
}

var (
	// SQLite uses the pure Go modernc.org/sqlite driver.
	SQLite = Dialect{Name: "sqlite", Driver: "sqlite", Blob: "BLOB", Int64: "INTEGER", maxConns: 1}
	// Postgres uses lib/pq.
	Postgres = Dialect{Name: "postgres", Driver: "postgres", Blob: "BYTEA", Int64: "BIGINT", numbered: true}
)

// DialectFor returns the dialect registered under name.
func DialectFor(name string) (Dialect, bool) {
	switch strings.ToLower(name) {
	case "sqlite", "sqlite3":
		return SQLite, true
	case "postgres", "postgresql", "pg":
		return Postgres, true
	}
	return Dialect{}, false
}

// rebind rewrites ? placeholders into the dialect's form.
func (d Dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteString("$" + strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
