package store

import (
	"context"
	"database/sql"

	"github.com/selpix/selpix/internal/database"
	"github.com/selpix/selpix/internal/model"
	"github.com/selpix/selpix/internal/query"
)

type ProductStore struct {
	db *database.DB
}

func NewProductStore(db *database.DB) *ProductStore {
	return &ProductStore{db: db}
}

const productCols = `id, name, wholesale_price, recommended_price, margin, competition, search_volume, category, image, source, trend, score, created_at, updated_at`

var productTable = query.Table{
	Name:    "products",
	PK:      "id",
	IntPK:   true,
	Columns: productCols,
	Sortable: map[string]string{
		"id":               "id",
		"name":             "name",
		"wholesalePrice":   "wholesale_price",
		"recommendedPrice": "recommended_price",
		"margin":           "margin",
		"searchVolume":     "search_volume",
		"score":            "score",
		"createdAt":        "created_at",
		"updatedAt":        "updated_at",
	},
	Numeric: map[string]string{
		"wholesalePrice":   "wholesale_price",
		"recommendedPrice": "recommended_price",
		"margin":           "margin",
		"searchVolume":     "search_volume",
		"score":            "score",
	},
	DefaultOrder: query.Order{Field: "createdAt", Direction: query.Desc},
}

func scanProduct(s scanner) (*model.Product, error) {
	var p model.Product
	err := s.Scan(&p.ID, &p.Name, &p.WholesalePrice, &p.RecommendedPrice, &p.Margin, &p.Competition,
		&p.SearchVolume, &p.Category, &p.Image, &p.Source, &p.Trend, &p.Score, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *ProductStore) Create(ctx context.Context, in model.ProductCreate) (*model.Product, error) {
	cols, args, err := query.Values(in)
	if err != nil {
		return nil, err
	}
	ts := now()
	cols = append(cols, "created_at", "updated_at")
	args = append(args, ts, ts)

	id, err := insertRow[int64](ctx, s.db, s.db.Dialect, "products", "id", cols, args)
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// CreateListed inserts a product together with its PENDING Coupang
// registration and a "product_created" activity entry, all in one
// transaction.
func (s *ProductStore) CreateListed(ctx context.Context, in model.ProductCreate) (*model.Product, error) {
	cols, args, err := query.Values(in)
	if err != nil {
		return nil, err
	}
	ts := now()
	cols = append(cols, "created_at", "updated_at")
	args = append(args, ts, ts)

	var id int64
	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		id, err = insertRow[int64](ctx, tx, s.db.Dialect, "products", "id", cols, args)
		if err != nil {
			return err
		}
		rcols, rargs, err := registrationValues(model.RegistrationCreate{
			ProductID:      &id,
			ProductName:    in.Name,
			Category:       in.Category,
			Price:          in.RecommendedPrice,
			WholesalePrice: in.WholesalePrice,
		})
		if err != nil {
			return err
		}
		if _, err := insertRow[int64](ctx, tx, s.db.Dialect, "registrations", "id", rcols, rargs); err != nil {
			return err
		}
		price := in.RecommendedPrice
		acols, aargs, err := query.Values(model.ActivityLogCreate{
			Action:      "product_created",
			ProductName: in.Name,
			Status:      model.ActivitySuccess,
			Price:       &price,
		})
		if err != nil {
			return err
		}
		acols = append(acols, "timestamp")
		aargs = append(aargs, ts)
		_, err = insertRow[int64](ctx, tx, s.db.Dialect, "activity_logs", "id", acols, aargs)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id, model.ProductInclude{Registrations: true})
}

func (s *ProductStore) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	return s.Get(ctx, id, model.ProductInclude{})
}

// Get loads a product and the relations named by inc.
func (s *ProductStore) Get(ctx context.Context, id int64, inc model.ProductInclude) (*model.Product, error) {
	row := s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT `+productCols+` FROM products WHERE id = ?`), id)
	p, err := getOne(row, scanProduct, "product")
	if err != nil || p == nil {
		return p, err
	}
	products := []model.Product{*p}
	if err := s.include(ctx, products, inc); err != nil {
		return nil, err
	}
	return &products[0], nil
}

// GetByName returns the most recently created product with the exact name.
func (s *ProductStore) GetByName(ctx context.Context, name string) (*model.Product, error) {
	row := s.db.QueryRowContext(ctx,
		s.db.Rebind(`SELECT `+productCols+` FROM products WHERE name = ? ORDER BY created_at DESC, id DESC LIMIT 1`), name)
	return getOne(row, scanProduct, "product by name")
}

func (s *ProductStore) FindMany(ctx context.Context, args query.FindArgs[model.ProductWhere], inc model.ProductInclude) (*query.Result[model.Product], error) {
	res, err := findMany(ctx, s.db, productTable, args.Where, args.OrderBy, args.Page, scanProduct,
		func(p model.Product) string { return int64Key(p.ID) })
	if err != nil {
		return nil, err
	}
	if err := s.include(ctx, res.Items, inc); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *ProductStore) Count(ctx context.Context, where *model.ProductWhere) (int64, error) {
	return countRows(ctx, s.db, productTable, where)
}

func (s *ProductStore) Aggregate(ctx context.Context, args query.AggregateArgs[model.ProductWhere]) (*query.AggregateResult, error) {
	return productTable.Aggregate(ctx, s.db, s.db.Dialect, args.Where, args.AggregateSpec)
}

func (s *ProductStore) Update(ctx context.Context, id int64, in model.ProductUpdate) (*model.Product, error) {
	found, err := updateRow(ctx, s.db, "products", "id", id, in, map[string]any{"updated_at": now()})
	if err != nil || !found {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// Delete removes a product. Margins, detail pages and registrations keep
// their rows with productId cleared.
func (s *ProductStore) Delete(ctx context.Context, id int64) (bool, error) {
	return deleteRow(ctx, s.db, "products", "id", id)
}

func (s *ProductStore) include(ctx context.Context, products []model.Product, inc model.ProductInclude) error {
	if len(products) == 0 {
		return nil
	}
	ids := make([]int64, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}

	if inc.Margins {
		ms, err := loadBy(ctx, s.db, "margins", marginCols, "product_id", ids, scanMargin,
			func(m model.Margin) int64 { return *m.ProductID })
		if err != nil {
			return err
		}
		for i := range products {
			products[i].Margins = ms[products[i].ID]
		}
	}
	if inc.DetailPages {
		dps, err := loadBy(ctx, s.db, "detail_pages", detailPageCols, "product_id", ids, scanDetailPage,
			func(d model.DetailPage) int64 { return *d.ProductID })
		if err != nil {
			return err
		}
		for i := range products {
			products[i].DetailPages = dps[products[i].ID]
		}
	}
	if inc.Registrations {
		regs, err := loadBy(ctx, s.db, "registrations", registrationCols, "product_id", ids, scanRegistration,
			func(r model.Registration) int64 { return *r.ProductID })
		if err != nil {
			return err
		}
		for i := range products {
			products[i].Registrations = regs[products[i].ID]
		}
	}
	return nil
}
