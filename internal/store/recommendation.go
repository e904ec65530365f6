package store

import (
	"context"
	"database/sql"

	"github.com/selpix/selpix/internal/database"
	"github.com/selpix/selpix/internal/model"
	"github.com/selpix/selpix/internal/query"
)

type RecommendationStore struct {
	db *database.DB
}

func NewRecommendationStore(db *database.DB) *RecommendationStore {
	return &RecommendationStore{db: db}
}

const recommendationCols = `id, keyword, created_at`

var recommendationTable = query.Table{
	Name:    "recommendations",
	PK:      "id",
	IntPK:   true,
	Columns: recommendationCols,
	Sortable: map[string]string{
		"id":        "id",
		"keyword":   "keyword",
		"createdAt": "created_at",
	},
	DefaultOrder: query.Order{Field: "createdAt", Direction: query.Desc},
}

func scanRecommendation(s scanner) (*model.Recommendation, error) {
	var r model.Recommendation
	if err := s.Scan(&r.ID, &r.Keyword, &r.CreatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

// Create stores the recommendation and any items in one transaction.
func (s *RecommendationStore) Create(ctx context.Context, in model.RecommendationCreate) (*model.Recommendation, error) {
	return s.CreateWithItems(ctx, in)
}

// CreateWithItems inserts the parent row and every item atomically and
// returns the recommendation with its items loaded.
func (s *RecommendationStore) CreateWithItems(ctx context.Context, in model.RecommendationCreate) (*model.Recommendation, error) {
	var id int64
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		id, err = insertRow[int64](ctx, tx, s.db.Dialect, "recommendations", "id",
			[]string{"keyword", "created_at"}, []any{in.Keyword, now()})
		if err != nil {
			return err
		}
		for _, item := range in.Items {
			cols, args, err := query.Values(item)
			if err != nil {
				return err
			}
			cols = append(cols, "recommendation_id")
			args = append(args, id)
			if _, err := insertRow[int64](ctx, tx, s.db.Dialect, "recommendation_items", "id", cols, args); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id, model.RecommendationInclude{Items: true})
}

func (s *RecommendationStore) GetByID(ctx context.Context, id int64) (*model.Recommendation, error) {
	return s.Get(ctx, id, model.RecommendationInclude{})
}

func (s *RecommendationStore) Get(ctx context.Context, id int64, inc model.RecommendationInclude) (*model.Recommendation, error) {
	row := s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT `+recommendationCols+` FROM recommendations WHERE id = ?`), id)
	r, err := getOne(row, scanRecommendation, "recommendation")
	if err != nil || r == nil {
		return r, err
	}
	recs := []model.Recommendation{*r}
	if err := s.include(ctx, recs, inc); err != nil {
		return nil, err
	}
	return &recs[0], nil
}

func (s *RecommendationStore) FindMany(ctx context.Context, args query.FindArgs[model.RecommendationWhere], inc model.RecommendationInclude) (*query.Result[model.Recommendation], error) {
	res, err := findMany(ctx, s.db, recommendationTable, args.Where, args.OrderBy, args.Page, scanRecommendation,
		func(r model.Recommendation) string { return int64Key(r.ID) })
	if err != nil {
		return nil, err
	}
	if err := s.include(ctx, res.Items, inc); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *RecommendationStore) Count(ctx context.Context, where *model.RecommendationWhere) (int64, error) {
	return countRows(ctx, s.db, recommendationTable, where)
}

func (s *RecommendationStore) Update(ctx context.Context, id int64, in model.RecommendationUpdate) (*model.Recommendation, error) {
	found, err := updateRow(ctx, s.db, "recommendations", "id", id, in, nil)
	if err != nil || !found {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// Delete removes a recommendation together with its items.
func (s *RecommendationStore) Delete(ctx context.Context, id int64) (bool, error) {
	return deleteRow(ctx, s.db, "recommendations", "id", id)
}

func (s *RecommendationStore) include(ctx context.Context, recs []model.Recommendation, inc model.RecommendationInclude) error {
	if len(recs) == 0 || !inc.Items {
		return nil
	}
	ids := make([]int64, len(recs))
	for i, r := range recs {
		ids[i] = r.ID
	}
	items, err := loadBy(ctx, s.db, "recommendation_items", recommendationItemCols, "recommendation_id", ids,
		scanRecommendationItem, func(it model.RecommendationItem) int64 { return it.RecommendationID })
	if err != nil {
		return err
	}
	for i := range recs {
		recs[i].Items = items[recs[i].ID]
	}
	return nil
}

// RecommendationItemStore reads and edits items. Items are only created
// through RecommendationStore.CreateWithItems.
type RecommendationItemStore struct {
	db *database.DB
}

func NewRecommendationItemStore(db *database.DB) *RecommendationItemStore {
	return &RecommendationItemStore{db: db}
}

const recommendationItemCols = `id, recommendation_id, name, wholesale_price, recommended_price, margin, competition, search_volume, trend, score`

var recommendationItemTable = query.Table{
	Name:    "recommendation_items",
	PK:      "id",
	IntPK:   true,
	Columns: recommendationItemCols,
	Sortable: map[string]string{
		"id":               "id",
		"name":             "name",
		"wholesalePrice":   "wholesale_price",
		"recommendedPrice": "recommended_price",
		"margin":           "margin",
		"searchVolume":     "search_volume",
		"score":            "score",
	},
	Numeric: map[string]string{
		"wholesalePrice":   "wholesale_price",
		"recommendedPrice": "recommended_price",
		"margin":           "margin",
		"searchVolume":     "search_volume",
		"score":            "score",
	},
	DefaultOrder: query.Order{Field: "score", Direction: query.Desc},
}

func scanRecommendationItem(s scanner) (*model.RecommendationItem, error) {
	var it model.RecommendationItem
	err := s.Scan(&it.ID, &it.RecommendationID, &it.Name, &it.WholesalePrice, &it.RecommendedPrice, &it.Margin,
		&it.Competition, &it.SearchVolume, &it.Trend, &it.Score)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (s *RecommendationItemStore) GetByID(ctx context.Context, id int64) (*model.RecommendationItem, error) {
	row := s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT `+recommendationItemCols+` FROM recommendation_items WHERE id = ?`), id)
	return getOne(row, scanRecommendationItem, "recommendation item")
}

func (s *RecommendationItemStore) FindMany(ctx context.Context, args query.FindArgs[model.RecommendationItemWhere]) (*query.Result[model.RecommendationItem], error) {
	return findMany(ctx, s.db, recommendationItemTable, args.Where, args.OrderBy, args.Page, scanRecommendationItem,
		func(it model.RecommendationItem) string { return int64Key(it.ID) })
}

func (s *RecommendationItemStore) Count(ctx context.Context, where *model.RecommendationItemWhere) (int64, error) {
	return countRows(ctx, s.db, recommendationItemTable, where)
}

func (s *RecommendationItemStore) Aggregate(ctx context.Context, args query.AggregateArgs[model.RecommendationItemWhere]) (*query.AggregateResult, error) {
	return recommendationItemTable.Aggregate(ctx, s.db, s.db.Dialect, args.Where, args.AggregateSpec)
}

func (s *RecommendationItemStore) Update(ctx context.Context, id int64, in model.RecommendationItemUpdate) (*model.RecommendationItem, error) {
	found, err := updateRow(ctx, s.db, "recommendation_items", "id", id, in, nil)
	if err != nil || !found {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

func (s *RecommendationItemStore) Delete(ctx context.Context, id int64) (bool, error) {
	return deleteRow(ctx, s.db, "recommendation_items", "id", id)
}
