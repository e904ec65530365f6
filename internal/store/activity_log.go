package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/selpix/selpix/internal/database"
	"github.com/selpix/selpix/internal/model"
	"github.com/selpix/selpix/internal/query"
)

type ActivityLogStore struct {
	db *database.DB
}

func NewActivityLogStore(db *database.DB) *ActivityLogStore {
	return &ActivityLogStore{db: db}
}

const activityLogCols = `id, action, product_name, status, price, details, timestamp`

var activityLogTable = query.Table{
	Name:    "activity_logs",
	PK:      "id",
	IntPK:   true,
	Columns: activityLogCols,
	Sortable: map[string]string{
		"id":        "id",
		"action":    "action",
		"status":    "status",
		"price":     "price",
		"timestamp": "timestamp",
	},
	Numeric:      map[string]string{"price": "price"},
	DefaultOrder: query.Order{Field: "timestamp", Direction: query.Desc},
}

func scanActivityLog(s scanner) (*model.ActivityLog, error) {
	var a model.ActivityLog
	var price sql.NullFloat64
	var details sql.NullString
	err := s.Scan(&a.ID, &a.Action, &a.ProductName, &a.Status, &price, &details, &a.Timestamp)
	if err != nil {
		return nil, err
	}
	a.Price = nullFloat64(price)
	a.Details = nullString(details)
	return &a, nil
}

func (s *ActivityLogStore) Create(ctx context.Context, in model.ActivityLogCreate) (*model.ActivityLog, error) {
	id, err := s.CreateTx(ctx, nil, in)
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// CreateTx inserts inside tx, or directly when tx is nil, and returns the new id.
func (s *ActivityLogStore) CreateTx(ctx context.Context, tx *sql.Tx, in model.ActivityLogCreate) (int64, error) {
	cols, args, err := query.Values(in)
	if err != nil {
		return 0, err
	}
	cols = append(cols, "timestamp")
	args = append(args, now())

	var q querier = s.db
	if tx != nil {
		q = tx
	}
	return insertRow[int64](ctx, q, s.db.Dialect, "activity_logs", "id", cols, args)
}

func (s *ActivityLogStore) GetByID(ctx context.Context, id int64) (*model.ActivityLog, error) {
	row := s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT `+activityLogCols+` FROM activity_logs WHERE id = ?`), id)
	return getOne(row, scanActivityLog, "activity log")
}

func (s *ActivityLogStore) FindMany(ctx context.Context, args query.FindArgs[model.ActivityLogWhere]) (*query.Result[model.ActivityLog], error) {
	return findMany(ctx, s.db, activityLogTable, args.Where, args.OrderBy, args.Page, scanActivityLog,
		func(a model.ActivityLog) string { return int64Key(a.ID) })
}

func (s *ActivityLogStore) Count(ctx context.Context, where *model.ActivityLogWhere) (int64, error) {
	return countRows(ctx, s.db, activityLogTable, where)
}

func (s *ActivityLogStore) Aggregate(ctx context.Context, args query.AggregateArgs[model.ActivityLogWhere]) (*query.AggregateResult, error) {
	return activityLogTable.Aggregate(ctx, s.db, s.db.Dialect, args.Where, args.AggregateSpec)
}

// CountByStatus returns the number of log entries per status.
func (s *ActivityLogStore) CountByStatus(ctx context.Context) (map[string]int64, error) {
	out := map[string]int64{
		model.ActivitySuccess: 0,
		model.ActivityFailed:  0,
		model.ActivityPending: 0,
	}
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM activity_logs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count activity logs by status: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var st string
		var n int64
		if err := rows.Scan(&st, &n); err != nil {
			return nil, fmt.Errorf("scan activity status: %w", err)
		}
		out[st] = n
	}
	return out, rows.Err()
}

func (s *ActivityLogStore) Update(ctx context.Context, id int64, in model.ActivityLogUpdate) (*model.ActivityLog, error) {
	found, err := updateRow(ctx, s.db, "activity_logs", "id", id, in, nil)
	if err != nil || !found {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

func (s *ActivityLogStore) Delete(ctx context.Context, id int64) (bool, error) {
	return deleteRow(ctx, s.db, "activity_logs", "id", id)
}
