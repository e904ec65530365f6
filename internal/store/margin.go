package store

import (
	"context"
	"database/sql"

	"github.com/selpix/selpix/internal/database"
	"github.com/selpix/selpix/internal/model"
	"github.com/selpix/selpix/internal/query"
)

type MarginStore struct {
	db *database.DB
}

func NewMarginStore(db *database.DB) *MarginStore {
	return &MarginStore{db: db}
}

const marginCols = `id, product_id, product_name, wholesale_price, selling_price, shipping_cost, commission, ad_cost, packaging_cost, net_margin, margin_rate, platform, calculated_at`

var marginTable = query.Table{
	Name:    "margins",
	PK:      "id",
	IntPK:   true,
	Columns: marginCols,
	Sortable: map[string]string{
		"id":           "id",
		"productName":  "product_name",
		"sellingPrice": "selling_price",
		"netMargin":    "net_margin",
		"marginRate":   "margin_rate",
		"calculatedAt": "calculated_at",
	},
	Numeric: map[string]string{
		"wholesalePrice": "wholesale_price",
		"sellingPrice":   "selling_price",
		"shippingCost":   "shipping_cost",
		"commission":     "commission",
		"adCost":         "ad_cost",
		"packagingCost":  "packaging_cost",
		"netMargin":      "net_margin",
		"marginRate":     "margin_rate",
	},
	DefaultOrder: query.Order{Field: "calculatedAt", Direction: query.Desc},
}

func scanMargin(s scanner) (*model.Margin, error) {
	var m model.Margin
	var productID sql.NullInt64
	err := s.Scan(&m.ID, &productID, &m.ProductName, &m.WholesalePrice, &m.SellingPrice, &m.ShippingCost,
		&m.Commission, &m.AdCost, &m.PackagingCost, &m.NetMargin, &m.MarginRate, &m.Platform, &m.CalculatedAt)
	if err != nil {
		return nil, err
	}
	m.ProductID = nullInt64(productID)
	return &m, nil
}

func (s *MarginStore) Create(ctx context.Context, in model.MarginCreate) (*model.Margin, error) {
	cols, args, err := query.Values(in)
	if err != nil {
		return nil, err
	}
	cols = append(cols, "calculated_at")
	args = append(args, now())

	id, err := insertRow[int64](ctx, s.db, s.db.Dialect, "margins", "id", cols, args)
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

func (s *MarginStore) GetByID(ctx context.Context, id int64) (*model.Margin, error) {
	return s.Get(ctx, id, model.MarginInclude{})
}

func (s *MarginStore) Get(ctx context.Context, id int64, inc model.MarginInclude) (*model.Margin, error) {
	row := s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT `+marginCols+` FROM margins WHERE id = ?`), id)
	m, err := getOne(row, scanMargin, "margin")
	if err != nil || m == nil {
		return m, err
	}
	ms := []model.Margin{*m}
	if err := s.include(ctx, ms, inc); err != nil {
		return nil, err
	}
	return &ms[0], nil
}

func (s *MarginStore) FindMany(ctx context.Context, args query.FindArgs[model.MarginWhere], inc model.MarginInclude) (*query.Result[model.Margin], error) {
	res, err := findMany(ctx, s.db, marginTable, args.Where, args.OrderBy, args.Page, scanMargin,
		func(m model.Margin) string { return int64Key(m.ID) })
	if err != nil {
		return nil, err
	}
	if err := s.include(ctx, res.Items, inc); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *MarginStore) Count(ctx context.Context, where *model.MarginWhere) (int64, error) {
	return countRows(ctx, s.db, marginTable, where)
}

func (s *MarginStore) Aggregate(ctx context.Context, args query.AggregateArgs[model.MarginWhere]) (*query.AggregateResult, error) {
	return marginTable.Aggregate(ctx, s.db, s.db.Dialect, args.Where, args.AggregateSpec)
}

func (s *MarginStore) Update(ctx context.Context, id int64, in model.MarginUpdate) (*model.Margin, error) {
	found, err := updateRow(ctx, s.db, "margins", "id", id, in, nil)
	if err != nil || !found {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

func (s *MarginStore) Delete(ctx context.Context, id int64) (bool, error) {
	return deleteRow(ctx, s.db, "margins", "id", id)
}

func (s *MarginStore) include(ctx context.Context, ms []model.Margin, inc model.MarginInclude) error {
	if !inc.Product {
		return nil
	}
	products, err := loadProducts(ctx, s.db, ms, func(m model.Margin) *int64 { return m.ProductID })
	if err != nil {
		return err
	}
	for i := range ms {
		if ms[i].ProductID != nil {
			ms[i].Product = first(products, *ms[i].ProductID)
		}
	}
	return nil
}

// loadProducts fetches the products referenced by rows, keyed by id.
func loadProducts[T any](ctx context.Context, db *database.DB, rows []T, productID func(T) *int64) (map[int64][]model.Product, error) {
	var ids []int64
	for _, r := range rows {
		if id := productID(r); id != nil {
			ids = append(ids, *id)
		}
	}
	return loadBy(ctx, db, "products", productCols, "id", ids, scanProduct,
		func(p model.Product) int64 { return p.ID })
}
