package db

import (
	"database/sql"
	"fmt"
	"regexp"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Dialect names the database/sql driver and its placeholder style.
type Dialect string

const (
	Postgres Dialect = "pgx"
	SQLite   Dialect = "sqlite"
)

func ParseDialect(s string) (Dialect, error) {
	switch Dialect(s) {
	case Postgres, "postgres":
		return Postgres, nil
	case SQLite:
		return SQLite, nil
	default:
		return "", fmt.Errorf("unsupported DB_DRIVER %q (want pgx or sqlite)", s)
	}
}

var numberedPlaceholder = regexp.MustCompile(`\$\d+`)

// Rebind rewrites $1..$n placeholders for drivers that expect "?".
// Queries must reference each placeholder once, in ascending order.
func (d Dialect) Rebind(query string) string {
	if d != SQLite {
		return query
	}
	return numberedPlaceholder.ReplaceAllString(query, "?")
}

// Placeholders returns "$from, $from+1, ..." for n arguments.
func Placeholders(from, n int) string {
	out := make([]byte, 0, n*4)
	for i := 0; i < n; i++ {
		if i > 0 {
			out = append(out, ", "...)
		}
		out = fmt.Appendf(out, "$%d", from+i)
	}
	return string(out)
}

// Open connects to postgres (dsn = DATABASE_URL) or sqlite (dsn = file path).
func Open(dialect Dialect, dsn string) (*sql.DB, error) {
	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("openDB: open %s database: %w", dialect, err)
	}

	switch dialect {
	case SQLite:
		// A single writer avoids SQLITE_BUSY between pooled connections.
		db.SetMaxOpenConns(1)
		pragmas := []string{
			"PRAGMA foreign_keys = ON",
			"PRAGMA journal_mode = WAL",
			"PRAGMA busy_timeout = 5000",
		}
		for _, p := range pragmas {
			if _, err := db.Exec(p); err != nil {
				db.Close()
				return nil, fmt.Errorf("openDB: %s: %w", p, err)
			}
		}
	default:
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("openDB: verify %s connection: %w", dialect, err)
	}

	return db, nil
}
