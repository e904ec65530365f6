package store

import (
	"context"
	"database/sql"

	"github.com/selpix/selpix/internal/database"
	"github.com/selpix/selpix/internal/model"
	"github.com/selpix/selpix/internal/query"
)

type WholesaleStore struct {
	db *database.DB
}

func NewWholesaleStore(db *database.DB) *WholesaleStore {
	return &WholesaleStore{db: db}
}

const wholesaleGroupCols = `id, keyword, created_at`

const wholesaleProductCols = `id, wholesale_group_id, name, price, source, rating, min_order, url, created_at`

var wholesaleGroupTable = query.Table{
	Name:    "wholesale_groups",
	PK:      "id",
	IntPK:   true,
	Columns: wholesaleGroupCols,
	Sortable: map[string]string{
		"id":        "id",
		"keyword":   "keyword",
		"createdAt": "created_at",
	},
	DefaultOrder: query.Order{Field: "createdAt", Direction: query.Desc},
}

var wholesaleProductTable = query.Table{
	Name:    "wholesale_products",
	PK:      "id",
	IntPK:   true,
	Columns: wholesaleProductCols,
	Sortable: map[string]string{
		"id":        "id",
		"name":      "name",
		"price":     "price",
		"rating":    "rating",
		"minOrder":  "min_order",
		"createdAt": "created_at",
	},
	Numeric: map[string]string{
		"price":    "price",
		"rating":   "rating",
		"minOrder": "min_order",
	},
	DefaultOrder: query.Order{Field: "price", Direction: query.Asc},
}

func scanWholesaleGroup(s scanner) (*model.WholesaleGroup, error) {
	var g model.WholesaleGroup
	if err := s.Scan(&g.ID, &g.Keyword, &g.CreatedAt); err != nil {
		return nil, err
	}
	return &g, nil
}

func scanWholesaleProduct(s scanner) (*model.WholesaleProduct, error) {
	var p model.WholesaleProduct
	err := s.Scan(&p.ID, &p.WholesaleGroupID, &p.Name, &p.Price, &p.Source, &p.Rating, &p.MinOrder, &p.URL, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateGroupWithProducts inserts a search group and its supplier offers in
// one transaction. Offers without a minimum order default to 1.
func (s *WholesaleStore) CreateGroupWithProducts(ctx context.Context, in model.WholesaleGroupCreate) (*model.WholesaleGroup, error) {
	var id int64
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		ts := now()
		var err error
		id, err = insertRow[int64](ctx, tx, s.db.Dialect, "wholesale_groups", "id",
			[]string{"keyword", "created_at"}, []any{in.Keyword, ts})
		if err != nil {
			return err
		}
		for _, p := range in.Products {
			if p.MinOrder == 0 {
				p.MinOrder = 1
			}
			cols, args, err := query.Values(p)
			if err != nil {
				return err
			}
			cols = append(cols, "wholesale_group_id", "created_at")
			args = append(args, id, ts)
			if _, err := insertRow[int64](ctx, tx, s.db.Dialect, "wholesale_products", "id", cols, args); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetGroup(ctx, id, model.WholesaleGroupInclude{Products: true})
}

func (s *WholesaleStore) GetGroupByID(ctx context.Context, id int64) (*model.WholesaleGroup, error) {
	return s.GetGroup(ctx, id, model.WholesaleGroupInclude{})
}

func (s *WholesaleStore) GetGroup(ctx context.Context, id int64, inc model.WholesaleGroupInclude) (*model.WholesaleGroup, error) {
	row := s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT `+wholesaleGroupCols+` FROM wholesale_groups WHERE id = ?`), id)
	g, err := getOne(row, scanWholesaleGroup, "wholesale group")
	if err != nil || g == nil {
		return g, err
	}
	groups := []model.WholesaleGroup{*g}
	if err := s.include(ctx, groups, inc); err != nil {
		return nil, err
	}
	return &groups[0], nil
}

func (s *WholesaleStore) FindGroups(ctx context.Context, args query.FindArgs[model.WholesaleGroupWhere], inc model.WholesaleGroupInclude) (*query.Result[model.WholesaleGroup], error) {
	res, err := findMany(ctx, s.db, wholesaleGroupTable, args.Where, args.OrderBy, args.Page, scanWholesaleGroup,
		func(g model.WholesaleGroup) string { return int64Key(g.ID) })
	if err != nil {
		return nil, err
	}
	if err := s.include(ctx, res.Items, inc); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *WholesaleStore) CountGroups(ctx context.Context, where *model.WholesaleGroupWhere) (int64, error) {
	return countRows(ctx, s.db, wholesaleGroupTable, where)
}

func (s *WholesaleStore) UpdateGroup(ctx context.Context, id int64, in model.WholesaleGroupUpdate) (*model.WholesaleGroup, error) {
	found, err := updateRow(ctx, s.db, "wholesale_groups", "id", id, in, nil)
	if err != nil || !found {
		return nil, err
	}
	return s.GetGroupByID(ctx, id)
}

// DeleteGroup removes a group together with its products.
func (s *WholesaleStore) DeleteGroup(ctx context.Context, id int64) (bool, error) {
	return deleteRow(ctx, s.db, "wholesale_groups", "id", id)
}

func (s *WholesaleStore) GetProductByID(ctx context.Context, id int64) (*model.WholesaleProduct, error) {
	row := s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT `+wholesaleProductCols+` FROM wholesale_products WHERE id = ?`), id)
	return getOne(row, scanWholesaleProduct, "wholesale product")
}

func (s *WholesaleStore) FindProducts(ctx context.Context, args query.FindArgs[model.WholesaleProductWhere]) (*query.Result[model.WholesaleProduct], error) {
	return findMany(ctx, s.db, wholesaleProductTable, args.Where, args.OrderBy, args.Page, scanWholesaleProduct,
		func(p model.WholesaleProduct) string { return int64Key(p.ID) })
}

func (s *WholesaleStore) CountProducts(ctx context.Context, where *model.WholesaleProductWhere) (int64, error) {
	return countRows(ctx, s.db, wholesaleProductTable, where)
}

func (s *WholesaleStore) AggregateProducts(ctx context.Context, args query.AggregateArgs[model.WholesaleProductWhere]) (*query.AggregateResult, error) {
	return wholesaleProductTable.Aggregate(ctx, s.db, s.db.Dialect, args.Where, args.AggregateSpec)
}

func (s *WholesaleStore) UpdateProduct(ctx context.Context, id int64, in model.WholesaleProductUpdate) (*model.WholesaleProduct, error) {
	found, err := updateRow(ctx, s.db, "wholesale_products", "id", id, in, nil)
	if err != nil || !found {
		return nil, err
	}
	return s.GetProductByID(ctx, id)
}

func (s *WholesaleStore) DeleteProduct(ctx context.Context, id int64) (bool, error) {
	return deleteRow(ctx, s.db, "wholesale_products", "id", id)
}

func (s *WholesaleStore) include(ctx context.Context, groups []model.WholesaleGroup, inc model.WholesaleGroupInclude) error {
	if len(groups) == 0 || !inc.Products {
		return nil
	}
	ids := make([]int64, len(groups))
	for i, g := range groups {
		ids[i] = g.ID
	}
	products, err := loadBy(ctx, s.db, "wholesale_products", wholesaleProductCols, "wholesale_group_id", ids,
		scanWholesaleProduct, func(p model.WholesaleProduct) int64 { return p.WholesaleGroupID })
	if err != nil {
		return err
	}
	for i := range groups {
		groups[i].Products = products[groups[i].ID]
	}
	return nil
}
