package database

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"testing"
	"time"

	"github.com/selpix/selpix/internal/query"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenRunsMigrations(t *testing.T) {
	db := openTestDB(t)

	tables := []string{
		"users", "plans", "subscriptions", "webhook_events", "payment_histories",
		"products", "recommendations", "recommendation_items", "wholesale_groups",
		"wholesale_products", "margins", "detail_pages", "registrations",
		"activity_logs", "daily_stats",
	}
	for _, name := range tables {
		var got string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&got)
		if err != nil {
			t.Errorf("table %s: %v", name, err)
		}
	}
	if db.Dialect != query.SQLite {
		t.Errorf("dialect = %v, want sqlite", db.Dialect)
	}
}

func TestForeignKeysEnforced(t *testing.T) {
	db := openTestDB(t)

	_, err := db.Exec(`INSERT INTO recommendation_items (recommendation_id, name, wholesale_price, recommended_price) VALUES (999, 'orphan', 1, 2)`)
	if err == nil {
		t.Fatal("expected foreign key violation")
	}
	if !IsForeignKeyViolation(err) {
		t.Errorf("IsForeignKeyViolation(%v) = false, want true", err)
	}
	if IsUniqueViolation(err) {
		t.Errorf("IsUniqueViolation(%v) = true for a foreign key error", err)
	}
	if IsForeignKeyViolation(errors.New("other")) {
		t.Error("IsForeignKeyViolation(other) = true")
	}
}

func TestIsUniqueViolation(t *testing.T) {
	db := openTestDB(t)

	now := time.Now().UTC()
	insert := `INSERT INTO users (id, email, created_at, updated_at) VALUES (?, ?, ?, ?)`
	if _, err := db.Exec(insert, "u1", "a@example.com", now, now); err != nil {
		t.Fatalf("insert: %v", err)
	}
	_, err := db.Exec(insert, "u2", "a@example.com", now, now)
	if !IsUniqueViolation(err) {
		t.Errorf("IsUniqueViolation(%v) = false, want true", err)
	}
	if IsUniqueViolation(errors.New("other")) {
		t.Error("IsUniqueViolation(other) = true")
	}
}

func TestTimesRoundTrip(t *testing.T) {
	db := openTestDB(t)

	created := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	if _, err := db.Exec(`INSERT INTO users (id, email, created_at, updated_at) VALUES (?, ?, ?, ?)`, "u1", "t@example.com", created, created); err != nil {
		t.Fatalf("insert: %v", err)
	}
	var got time.Time
	if err := db.QueryRow(`SELECT created_at FROM users WHERE id = ?`, "u1").Scan(&got); err != nil {
		t.Fatalf("select: %v", err)
	}
	if !got.Equal(created) {
		t.Errorf("created_at = %v, want %v", got, created)
	}
}

func TestWithTxRollsBack(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO recommendations (keyword, created_at) VALUES (?, ?)`, "mouse", time.Now().UTC()); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM recommendations`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("count = %d, want 0 after rollback", n)
	}
}

func TestMigrationsFS(t *testing.T) {
	for _, d := range []query.Dialect{query.SQLite, query.Postgres} {
		fsys, err := Migrations(d)
		if err != nil {
			t.Fatalf("migrations %s: %v", d, err)
		}
		if _, err := fs.Stat(fsys, "00001_init.sql"); err != nil {
			t.Errorf("%s init migration: %v", d, err)
		}
	}
}

func TestSQLiteDSN(t *testing.T) {
	if got := sqliteDSN(":memory:"); got != ":memory:?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite" {
		t.Errorf("memory dsn = %q", got)
	}
	if !isPostgres("postgres://u:p@localhost/db") || isPostgres("selpix.db") {
		t.Error("isPostgres misclassified dsn")
	}
}
