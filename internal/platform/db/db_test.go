package db

import "testing"

func TestRebind(t *testing.T) {
	q := "SELECT a FROM t WHERE x = $1 AND y IN ($2, $3) LIMIT $4"

	if got := Postgres.Rebind(q); got != q {
		t.Fatalf("postgres rebind changed query: %q", got)
	}

	want := "SELECT a FROM t WHERE x = ? AND y IN (?, ?) LIMIT ?"
	if got := SQLite.Rebind(q); got != want {
		t.Fatalf("sqlite rebind = %q, want %q", got, want)
	}
}

func TestPlaceholders(t *testing.T) {
	if got := Placeholders(3, 3); got != "$3, $4, $5" {
		t.Fatalf("Placeholders = %q", got)
	}
	if got := Placeholders(1, 0); got != "" {
		t.Fatalf("Placeholders(1, 0) = %q, want empty", got)
	}
}

func TestParseDialect(t *testing.T) {
	if d, err := ParseDialect("postgres"); err != nil || d != Postgres {
		t.Fatalf("ParseDialect(postgres) = %q, %v", d, err)
	}
	if _, err := ParseDialect("mysql"); err == nil {
		t.Fatal("expected error for mysql")
	}
}

func TestOpenSQLite(t *testing.T) {
	db, err := Open(SQLite, t.TempDir()+"/test.db")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	var n int
	if err := db.QueryRow("SELECT 1").Scan(&n); err != nil || n != 1 {
		t.Fatalf("select 1 = %d, %v", n, err)
	}
}
