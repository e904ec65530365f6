package store

import (
	"context"
	"database/sql"

	"github.com/selpix/selpix/internal/database"
	"github.com/selpix/selpix/internal/model"
	"github.com/selpix/selpix/internal/query"
)

type DetailPageStore struct {
	db *database.DB
}

func NewDetailPageStore(db *database.DB) *DetailPageStore {
	return &DetailPageStore{db: db}
}

const detailPageCols = `id, product_id, product_name, summary, usps, keywords, template, created_at`

var detailPageTable = query.Table{
	Name:    "detail_pages",
	PK:      "id",
	IntPK:   true,
	Columns: detailPageCols,
	Sortable: map[string]string{
		"id":          "id",
		"productName": "product_name",
		"template":    "template",
		"createdAt":   "created_at",
	},
	DefaultOrder: query.Order{Field: "createdAt", Direction: query.Desc},
}

func scanDetailPage(s scanner) (*model.DetailPage, error) {
	var d model.DetailPage
	var productID sql.NullInt64
	var usps, keywords string
	err := s.Scan(&d.ID, &productID, &d.ProductName, &d.Summary, &usps, &keywords, &d.Template, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	d.ProductID = nullInt64(productID)
	d.USPs = decodeList(usps)
	d.Keywords = decodeList(keywords)
	return &d, nil
}

func (s *DetailPageStore) Create(ctx context.Context, in model.DetailPageCreate) (*model.DetailPage, error) {
	if in.USPs == nil {
		in.USPs = []string{}
	}
	if in.Keywords == nil {
		in.Keywords = []string{}
	}
	cols, args, err := query.Values(in)
	if err != nil {
		return nil, err
	}
	cols = append(cols, "created_at")
	args = append(args, now())

	id, err := insertRow[int64](ctx, s.db, s.db.Dialect, "detail_pages", "id", cols, args)
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

func (s *DetailPageStore) GetByID(ctx context.Context, id int64) (*model.DetailPage, error) {
	return s.Get(ctx, id, model.DetailPageInclude{})
}

func (s *DetailPageStore) Get(ctx context.Context, id int64, inc model.DetailPageInclude) (*model.DetailPage, error) {
	row := s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT `+detailPageCols+` FROM detail_pages WHERE id = ?`), id)
	d, err := getOne(row, scanDetailPage, "detail page")
	if err != nil || d == nil {
		return d, err
	}
	pages := []model.DetailPage{*d}
	if err := s.include(ctx, pages, inc); err != nil {
		return nil, err
	}
	return &pages[0], nil
}

func (s *DetailPageStore) FindMany(ctx context.Context, args query.FindArgs[model.DetailPageWhere], inc model.DetailPageInclude) (*query.Result[model.DetailPage], error) {
	res, err := findMany(ctx, s.db, detailPageTable, args.Where, args.OrderBy, args.Page, scanDetailPage,
		func(d model.DetailPage) string { return int64Key(d.ID) })
	if err != nil {
		return nil, err
	}
	if err := s.include(ctx, res.Items, inc); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *DetailPageStore) Count(ctx context.Context, where *model.DetailPageWhere) (int64, error) {
	return countRows(ctx, s.db, detailPageTable, where)
}

// Aggregate supports _count only; detail pages have no numeric columns.
func (s *DetailPageStore) Aggregate(ctx context.Context, args query.AggregateArgs[model.DetailPageWhere]) (*query.AggregateResult, error) {
	return detailPageTable.Aggregate(ctx, s.db, s.db.Dialect, args.Where, args.AggregateSpec)
}

func (s *DetailPageStore) Update(ctx context.Context, id int64, in model.DetailPageUpdate) (*model.DetailPage, error) {
	found, err := updateRow(ctx, s.db, "detail_pages", "id", id, in, nil)
	if err != nil || !found {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

func (s *DetailPageStore) Delete(ctx context.Context, id int64) (bool, error) {
	return deleteRow(ctx, s.db, "detail_pages", "id", id)
}

func (s *DetailPageStore) include(ctx context.Context, pages []model.DetailPage, inc model.DetailPageInclude) error {
	if !inc.Product {
		return nil
	}
	products, err := loadProducts(ctx, s.db, pages, func(d model.DetailPage) *int64 { return d.ProductID })
	if err != nil {
		return err
	}
	for i := range pages {
		if pages[i].ProductID != nil {
			pages[i].Product = first(products, *pages[i].ProductID)
		}
	}
	return nil
}
