package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/selpix/selpix/internal/database"
	"github.com/selpix/selpix/internal/model"
	"github.com/selpix/selpix/internal/query"
)

type PlanStore struct {
	db *database.DB
}

func NewPlanStore(db *database.DB) *PlanStore {
	return &PlanStore{db: db}
}

const planCols = `id, name, title, description, price, currency, available, lemon_squeezy_product_id, lemon_squeezy_variant_id, stripe_price_id, content, created_at, updated_at`

var planTable = query.Table{
	Name:    "plans",
	PK:      "id",
	Columns: planCols,
	Sortable: map[string]string{
		"id":        "id",
		"name":      "name",
		"title":     "title",
		"price":     "price",
		"createdAt": "created_at",
	},
	Numeric:      map[string]string{"price": "price"},
	DefaultOrder: query.Order{Field: "price", Direction: query.Asc},
}

func scanPlan(s scanner) (*model.Plan, error) {
	var p model.Plan
	var desc, stripePrice sql.NullString
	var content string
	err := s.Scan(&p.ID, &p.Name, &p.Title, &desc, &p.Price, &p.Currency, &p.Available,
		&p.LemonSqueezyProductID, &p.LemonSqueezyVariantID, &stripePrice, &content, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Description = nullString(desc)
	p.StripePriceID = nullString(stripePrice)
	p.Content = decodeList(content)
	return &p, nil
}

// Create inserts a plan. The id is taken from in.ID when given so that seeded
// plans keep stable identifiers.
func (s *PlanStore) Create(ctx context.Context, in model.PlanCreate) (*model.Plan, error) {
	if in.Content == nil {
		in.Content = []string{}
	}
	cols, args, err := query.Values(in)
	if err != nil {
		return nil, err
	}
	id := in.ID
	if id == "" {
		id = uuid.NewString()
	}
	ts := now()
	cols = append(cols, "id", "created_at", "updated_at")
	args = append(args, id, ts, ts)

	if _, err := s.db.ExecContext(ctx, s.db.Rebind(query.Insert("plans", cols, "")), args...); err != nil {
		return nil, writeErr("insert plan", err)
	}
	return s.GetByID(ctx, id)
}

// Upsert creates the plan named in.Name or updates its catalogue fields in
// place, keeping the existing id.
func (s *PlanStore) Upsert(ctx context.Context, in model.PlanCreate) (*model.Plan, error) {
	existing, err := s.GetByName(ctx, in.Name)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return s.Create(ctx, in)
	}
	if in.Content == nil {
		in.Content = []string{}
	}
	upd := model.PlanUpdate{
		Title:                 &in.Title,
		Price:                 &in.Price,
		Currency:              &in.Currency,
		Available:             in.Available,
		LemonSqueezyProductID: &in.LemonSqueezyProductID,
		LemonSqueezyVariantID: &in.LemonSqueezyVariantID,
		Content:               &in.Content,
	}
	if in.Description != nil {
		upd.Description = query.SetTo(*in.Description)
	}
	if in.StripePriceID != nil {
		upd.StripePriceID = query.SetTo(*in.StripePriceID)
	}
	return s.Update(ctx, existing.ID, upd)
}

func (s *PlanStore) GetByID(ctx context.Context, id string) (*model.Plan, error) {
	return s.Get(ctx, id, model.PlanInclude{})
}

func (s *PlanStore) Get(ctx context.Context, id string, inc model.PlanInclude) (*model.Plan, error) {
	row := s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT `+planCols+` FROM plans WHERE id = ?`), id)
	p, err := getOne(row, scanPlan, "plan")
	if err != nil || p == nil {
		return p, err
	}
	plans := []model.Plan{*p}
	if err := s.include(ctx, plans, inc); err != nil {
		return nil, err
	}
	return &plans[0], nil
}

func (s *PlanStore) GetByName(ctx context.Context, name string) (*model.Plan, error) {
	return s.getBy(ctx, "name", name)
}

// GetByVariantID finds the plan sold as the given Lemon Squeezy variant.
func (s *PlanStore) GetByVariantID(ctx context.Context, variantID string) (*model.Plan, error) {
	return s.getBy(ctx, "lemon_squeezy_variant_id", variantID)
}

func (s *PlanStore) GetByStripePriceID(ctx context.Context, priceID string) (*model.Plan, error) {
	return s.getBy(ctx, "stripe_price_id", priceID)
}

func (s *PlanStore) getBy(ctx context.Context, col, val string) (*model.Plan, error) {
	row := s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT `+planCols+` FROM plans WHERE `+col+` = ?`), val)
	return getOne(row, scanPlan, "plan by "+col)
}

func (s *PlanStore) FindMany(ctx context.Context, args query.FindArgs[model.PlanWhere], inc model.PlanInclude) (*query.Result[model.Plan], error) {
	res, err := findMany(ctx, s.db, planTable, args.Where, args.OrderBy, args.Page, scanPlan,
		func(p model.Plan) string { return p.ID })
	if err != nil {
		return nil, err
	}
	if err := s.include(ctx, res.Items, inc); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *PlanStore) Count(ctx context.Context, where *model.PlanWhere) (int64, error) {
	return countRows(ctx, s.db, planTable, where)
}

func (s *PlanStore) Aggregate(ctx context.Context, args query.AggregateArgs[model.PlanWhere]) (*query.AggregateResult, error) {
	return planTable.Aggregate(ctx, s.db, s.db.Dialect, args.Where, args.AggregateSpec)
}

func (s *PlanStore) Update(ctx context.Context, id string, in model.PlanUpdate) (*model.Plan, error) {
	found, err := updateRow(ctx, s.db, "plans", "id", id, in, map[string]any{"updated_at": now()})
	if err != nil || !found {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

func (s *PlanStore) Delete(ctx context.Context, id string) (bool, error) {
	return deleteRow(ctx, s.db, "plans", "id", id)
}

func (s *PlanStore) include(ctx context.Context, plans []model.Plan, inc model.PlanInclude) error {
	if len(plans) == 0 || !inc.Subscriptions {
		return nil
	}
	ids := make([]string, len(plans))
	for i, p := range plans {
		ids[i] = p.ID
	}
	subs, err := loadBy(ctx, s.db, "subscriptions", subscriptionCols, "plan_id", ids, scanSubscription,
		func(sub model.Subscription) string { return sub.PlanID })
	if err != nil {
		return err
	}
	for i := range plans {
		plans[i].Subscriptions = subs[plans[i].ID]
	}
	return nil
}
