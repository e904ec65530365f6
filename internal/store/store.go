package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/selpix/selpix/internal/database"
	"github.com/selpix/selpix/internal/query"
)

var (
	// ErrConflict is returned when a write violates a unique constraint.
	ErrConflict = errors.New("conflict")
	// ErrInvalidReference is returned when a write points at a row that
	// does not exist.
	ErrInvalidReference = errors.New("referenced record does not exist")
	// ErrReferenced is returned when a delete would orphan other rows.
	ErrReferenced = errors.New("record is still referenced")
)

// now is replaced in tests that need stable timestamps.
var now = func() time.Time { return time.Now().UTC() }

type scanner interface{ Scan(...any) error }

// querier is satisfied by *sql.DB, *sql.Tx and *database.DB.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func writeErr(op string, err error) error {
	switch {
	case database.IsUniqueViolation(err):
		return fmt.Errorf("%s: %w", op, ErrConflict)
	case database.IsForeignKeyViolation(err):
		return fmt.Errorf("%s: %w", op, ErrInvalidReference)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// insertRow inserts cols/args into table and returns the generated primary key.
func insertRow[ID any](ctx context.Context, q querier, d query.Dialect, table, pk string, cols []string, args []any) (ID, error) {
	var id ID
	err := q.QueryRowContext(ctx, d.Rebind(query.Insert(table, cols, pk)), args...).Scan(&id)
	if err != nil {
		return id, writeErr("insert "+singular(table), err)
	}
	return id, nil
}

// updateRow applies the set fields of input to the row whose key column
// equals id. extra columns (such as updated_at) are appended only when input
// changes something. It reports whether the row exists.
func updateRow(ctx context.Context, db *database.DB, table, pk string, id any, input any, extra map[string]any) (bool, error) {
	sets, args, err := query.Assignments(input)
	if err != nil {
		return false, err
	}
	if len(sets) == 0 {
		var one int
		err := db.QueryRowContext(ctx, db.Rebind(`SELECT 1 FROM `+table+` WHERE `+pk+` = ?`), id).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("get %s: %w", singular(table), err)
		}
		return true, nil
	}
	for col, v := range extra {
		sets = append(sets, col+" = ?")
		args = append(args, query.NormalizeArg(v))
	}
	args = append(args, id)

	res, err := db.ExecContext(ctx, db.Rebind(`UPDATE `+table+` SET `+strings.Join(sets, ", ")+` WHERE `+pk+` = ?`), args...)
	if err != nil {
		return false, writeErr("update "+singular(table), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// deleteRow deletes by primary key and reports whether a row was removed.
func deleteRow(ctx context.Context, db *database.DB, table, pk string, id any) (bool, error) {
	res, err := db.ExecContext(ctx, db.Rebind(`DELETE FROM `+table+` WHERE `+pk+` = ?`), id)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			err = ErrReferenced
		}
		return false, fmt.Errorf("delete %s: %w", singular(table), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// findMany runs a list query and pages the result.
func findMany[T any](ctx context.Context, db *database.DB, t query.Table, where any, ob query.OrderBy, page query.Page,
	scan func(scanner) (*T, error), key func(T) string) (*query.Result[T], error) {

	page, err := page.Normalize()
	if err != nil {
		return nil, err
	}
	q, args, err := t.Select(db.Dialect, where, ob, page)
	if err != nil {
		return nil, err
	}
	items, err := collect(ctx, db, db.Rebind(q), args, scan)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", t.Name, err)
	}
	return query.NewResult(items, page.Take, key), nil
}

// collect scans every row of q. Rows are closed before it returns, so
// callers may issue follow-up queries on a single-connection pool.
func collect[T any](ctx context.Context, db querier, q string, args []any, scan func(scanner) (*T, error)) ([]T, error) {
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

func countRows(ctx context.Context, db *database.DB, t query.Table, where any) (int64, error) {
	q, args, err := t.CountSQL(db.Dialect, where)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := db.QueryRowContext(ctx, db.Rebind(q), args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", t.Name, err)
	}
	return n, nil
}

// getOne scans a single row, mapping sql.ErrNoRows to (nil, nil).
func getOne[T any](row *sql.Row, scan func(scanner) (*T, error), what string) (*T, error) {
	v, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", what, err)
	}
	return v, nil
}

func singular(table string) string {
	switch {
	case strings.HasSuffix(table, "histories"):
		return strings.TrimSuffix(table, "ies") + "y"
	case strings.HasSuffix(table, "s"):
		return strings.TrimSuffix(table, "s")
	}
	return table
}

func int64Key(id int64) string { return fmt.Sprintf("%d", id) }

// decodeList reads a JSON string list column. Malformed text yields an
// empty list.
func decodeList(s string) []string {
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil || out == nil {
		return []string{}
	}
	return out
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func nullTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

func nullInt64(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	return &ni.Int64
}

func nullFloat64(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	return &nf.Float64
}

// placeholders renders n comma separated ? markers.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

// loadBy fetches the rows of table whose col is one of keys, grouped by
// keyOf. It backs relation includes with one query per relation.
func loadBy[K comparable, T any](ctx context.Context, db *database.DB, table, cols, col string, keys []K,
	scan func(scanner) (*T, error), keyOf func(T) K) (map[K][]T, error) {

	out := make(map[K][]T)
	seen := make(map[K]bool, len(keys))
	args := make([]any, 0, len(keys))
	for _, k := range keys {
		if seen[k] {
			continue
		}
		seen[k] = true
		args = append(args, k)
	}
	if len(args) == 0 {
		return out, nil
	}

	q := `SELECT ` + cols + ` FROM ` + table + ` WHERE ` + col + ` IN (` + placeholders(len(args)) + `) ORDER BY id`
	items, err := collect(ctx, db, db.Rebind(q), args, scan)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", table, err)
	}
	for _, it := range items {
		k := keyOf(it)
		out[k] = append(out[k], it)
	}
	return out, nil
}

// first returns the first element of a grouped load, or nil.
func first[K comparable, T any](m map[K][]T, k K) *T {
	if vs := m[k]; len(vs) > 0 {
		return &vs[0]
	}
	return nil
}
