package store

import (
	"context"
	"fmt"

	"github.com/selpix/selpix/internal/database"
	"github.com/selpix/selpix/internal/model"
	"github.com/selpix/selpix/internal/query"
)

type DailyStatStore struct {
	db *database.DB
}

func NewDailyStatStore(db *database.DB) *DailyStatStore {
	return &DailyStatStore{db: db}
}

const dailyStatCols = `id, date, product_count, registration_count, revenue, total_margin, avg_margin_rate, activity_count, failed_count, created_at, updated_at`

var dailyStatTable = query.Table{
	Name:    "daily_stats",
	PK:      "id",
	IntPK:   true,
	Columns: dailyStatCols,
	Sortable: map[string]string{
		"id":                "id",
		"date":              "date",
		"productCount":      "product_count",
		"registrationCount": "registration_count",
		"revenue":           "revenue",
		"totalMargin":       "total_margin",
	},
	Numeric: map[string]string{
		"productCount":      "product_count",
		"registrationCount": "registration_count",
		"revenue":           "revenue",
		"totalMargin":       "total_margin",
		"avgMarginRate":     "avg_margin_rate",
		"activityCount":     "activity_count",
		"failedCount":       "failed_count",
	},
	DefaultOrder: query.Order{Field: "date", Direction: query.Desc},
}

func scanDailyStat(s scanner) (*model.DailyStat, error) {
	var d model.DailyStat
	err := s.Scan(&d.ID, &d.Date, &d.ProductCount, &d.RegistrationCount, &d.Revenue, &d.TotalMargin,
		&d.AvgMarginRate, &d.ActivityCount, &d.FailedCount, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *DailyStatStore) Create(ctx context.Context, in model.DailyStatCreate) (*model.DailyStat, error) {
	cols, args, err := query.Values(in)
	if err != nil {
		return nil, err
	}
	ts := now()
	cols = append(cols, "created_at", "updated_at")
	args = append(args, ts, ts)

	id, err := insertRow[int64](ctx, s.db, s.db.Dialect, "daily_stats", "id", cols, args)
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// Upsert writes the stats for in.Date, replacing any earlier rollup of the
// same day.
func (s *DailyStatStore) Upsert(ctx context.Context, in model.DailyStatCreate) (*model.DailyStat, error) {
	ts := now()
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO daily_stats (date, product_count, registration_count, revenue, total_margin,
			avg_margin_rate, activity_count, failed_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (date) DO UPDATE SET
			product_count = excluded.product_count,
			registration_count = excluded.registration_count,
			revenue = excluded.revenue,
			total_margin = excluded.total_margin,
			avg_margin_rate = excluded.avg_margin_rate,
			activity_count = excluded.activity_count,
			failed_count = excluded.failed_count,
			updated_at = excluded.updated_at`),
		in.Date, in.ProductCount, in.RegistrationCount, in.Revenue, in.TotalMargin,
		in.AvgMarginRate, in.ActivityCount, in.FailedCount, ts, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert daily stat: %w", err)
	}
	return s.GetByDate(ctx, in.Date)
}

func (s *DailyStatStore) GetByID(ctx context.Context, id int64) (*model.DailyStat, error) {
	row := s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT `+dailyStatCols+` FROM daily_stats WHERE id = ?`), id)
	return getOne(row, scanDailyStat, "daily stat")
}

func (s *DailyStatStore) GetByDate(ctx context.Context, date string) (*model.DailyStat, error) {
	row := s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT `+dailyStatCols+` FROM daily_stats WHERE date = ?`), date)
	return getOne(row, scanDailyStat, "daily stat by date")
}

// Range returns the stats for dates in [from, to] (YYYY-MM-DD, inclusive),
// oldest first. An empty bound is open.
func (s *DailyStatStore) Range(ctx context.Context, from, to string) ([]model.DailyStat, error) {
	q := `SELECT ` + dailyStatCols + ` FROM daily_stats WHERE 1 = 1`
	var args []any
	if from != "" {
		q += ` AND date >= ?`
		args = append(args, from)
	}
	if to != "" {
		q += ` AND date <= ?`
		args = append(args, to)
	}
	q += ` ORDER BY date`

	stats, err := collect(ctx, s.db, s.db.Rebind(q), args, scanDailyStat)
	if err != nil {
		return nil, fmt.Errorf("list daily stats: %w", err)
	}
	if stats == nil {
		stats = []model.DailyStat{}
	}
	return stats, nil
}

func (s *DailyStatStore) FindMany(ctx context.Context, args query.FindArgs[model.DailyStatWhere]) (*query.Result[model.DailyStat], error) {
	return findMany(ctx, s.db, dailyStatTable, args.Where, args.OrderBy, args.Page, scanDailyStat,
		func(d model.DailyStat) string { return int64Key(d.ID) })
}

func (s *DailyStatStore) Count(ctx context.Context, where *model.DailyStatWhere) (int64, error) {
	return countRows(ctx, s.db, dailyStatTable, where)
}

func (s *DailyStatStore) Aggregate(ctx context.Context, args query.AggregateArgs[model.DailyStatWhere]) (*query.AggregateResult, error) {
	return dailyStatTable.Aggregate(ctx, s.db, s.db.Dialect, args.Where, args.AggregateSpec)
}

func (s *DailyStatStore) Update(ctx context.Context, id int64, in model.DailyStatUpdate) (*model.DailyStat, error) {
	found, err := updateRow(ctx, s.db, "daily_stats", "id", id, in, map[string]any{"updated_at": now()})
	if err != nil || !found {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

func (s *DailyStatStore) Delete(ctx context.Context, id int64) (bool, error) {
	return deleteRow(ctx, s.db, "daily_stats", "id", id)
}
