package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/selpix/selpix/internal/database"
	"github.com/selpix/selpix/internal/model"
	"github.com/selpix/selpix/internal/query"
)

type RegistrationStore struct {
	db *database.DB
}

func NewRegistrationStore(db *database.DB) *RegistrationStore {
	return &RegistrationStore{db: db}
}

const registrationCols = `id, product_id, product_name, category, recommended_title, price, wholesale_price, status, platform, created_at, updated_at`

var registrationTable = query.Table{
	Name:    "registrations",
	PK:      "id",
	IntPK:   true,
	Columns: registrationCols,
	Sortable: map[string]string{
		"id":          "id",
		"productName": "product_name",
		"price":       "price",
		"status":      "status",
		"createdAt":   "created_at",
		"updatedAt":   "updated_at",
	},
	Numeric: map[string]string{
		"price":          "price",
		"wholesalePrice": "wholesale_price",
	},
	DefaultOrder: query.Order{Field: "createdAt", Direction: query.Desc},
}

func scanRegistration(s scanner) (*model.Registration, error) {
	var r model.Registration
	var productID sql.NullInt64
	err := s.Scan(&r.ID, &productID, &r.ProductName, &r.Category, &r.RecommendedTitle, &r.Price,
		&r.WholesalePrice, &r.Status, &r.Platform, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.ProductID = nullInt64(productID)
	return &r, nil
}

// Create inserts a registration, defaulting to a PENDING Coupang listing.
func (s *RegistrationStore) Create(ctx context.Context, in model.RegistrationCreate) (*model.Registration, error) {
	id, err := s.CreateTx(ctx, nil, in)
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// CreateTx inserts inside tx, or directly when tx is nil, and returns the new id.
func (s *RegistrationStore) CreateTx(ctx context.Context, tx *sql.Tx, in model.RegistrationCreate) (int64, error) {
	cols, args, err := registrationValues(in)
	if err != nil {
		return 0, err
	}
	var q querier = s.db
	if tx != nil {
		q = tx
	}
	return insertRow[int64](ctx, q, s.db.Dialect, "registrations", "id", cols, args)
}

func registrationValues(in model.RegistrationCreate) ([]string, []any, error) {
	if in.Status == "" {
		in.Status = model.RegistrationPending
	}
	if in.Platform == "" {
		in.Platform = model.MarketplaceCoupang
	}
	cols, args, err := query.Values(in)
	if err != nil {
		return nil, nil, err
	}
	ts := now()
	cols = append(cols, "created_at", "updated_at")
	args = append(args, ts, ts)
	return cols, args, nil
}

func (s *RegistrationStore) GetByID(ctx context.Context, id int64) (*model.Registration, error) {
	return s.Get(ctx, id, model.RegistrationInclude{})
}

func (s *RegistrationStore) Get(ctx context.Context, id int64, inc model.RegistrationInclude) (*model.Registration, error) {
	row := s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT `+registrationCols+` FROM registrations WHERE id = ?`), id)
	r, err := getOne(row, scanRegistration, "registration")
	if err != nil || r == nil {
		return r, err
	}
	regs := []model.Registration{*r}
	if err := s.include(ctx, regs, inc); err != nil {
		return nil, err
	}
	return &regs[0], nil
}

func (s *RegistrationStore) FindMany(ctx context.Context, args query.FindArgs[model.RegistrationWhere], inc model.RegistrationInclude) (*query.Result[model.Registration], error) {
	res, err := findMany(ctx, s.db, registrationTable, args.Where, args.OrderBy, args.Page, scanRegistration,
		func(r model.Registration) string { return int64Key(r.ID) })
	if err != nil {
		return nil, err
	}
	if err := s.include(ctx, res.Items, inc); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *RegistrationStore) Count(ctx context.Context, where *model.RegistrationWhere) (int64, error) {
	return countRows(ctx, s.db, registrationTable, where)
}

func (s *RegistrationStore) Aggregate(ctx context.Context, args query.AggregateArgs[model.RegistrationWhere]) (*query.AggregateResult, error) {
	return registrationTable.Aggregate(ctx, s.db, s.db.Dialect, args.Where, args.AggregateSpec)
}

// CountByStatus returns the number of registrations per status. Statuses
// with no rows are reported as zero.
func (s *RegistrationStore) CountByStatus(ctx context.Context) (map[model.RegistrationStatus]int64, error) {
	out := make(map[model.RegistrationStatus]int64, len(model.RegistrationStatuses))
	for _, st := range model.RegistrationStatuses {
		out[st] = 0
	}
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM registrations GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count registrations by status: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var st model.RegistrationStatus
		var n int64
		if err := rows.Scan(&st, &n); err != nil {
			return nil, fmt.Errorf("scan registration status: %w", err)
		}
		out[st] = n
	}
	return out, rows.Err()
}

func (s *RegistrationStore) Update(ctx context.Context, id int64, in model.RegistrationUpdate) (*model.Registration, error) {
	found, err := updateRow(ctx, s.db, "registrations", "id", id, in, map[string]any{"updated_at": now()})
	if err != nil || !found {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

func (s *RegistrationStore) Delete(ctx context.Context, id int64) (bool, error) {
	return deleteRow(ctx, s.db, "registrations", "id", id)
}

func (s *RegistrationStore) include(ctx context.Context, regs []model.Registration, inc model.RegistrationInclude) error {
	if !inc.Product {
		return nil
	}
	products, err := loadProducts(ctx, s.db, regs, func(r model.Registration) *int64 { return r.ProductID })
	if err != nil {
		return err
	}
	for i := range regs {
		if regs[i].ProductID != nil {
			regs[i].Product = first(products, *regs[i].ProductID)
		}
	}
	return nil
}
