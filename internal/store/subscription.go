package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/selpix/selpix/internal/database"
	"github.com/selpix/selpix/internal/model"
	"github.com/selpix/selpix/internal/query"
)

type SubscriptionStore struct {
	db *database.DB
}

func NewSubscriptionStore(db *database.DB) *SubscriptionStore {
	return &SubscriptionStore{db: db}
}

const subscriptionCols = `id, user_id, plan_id, status, provider_subscription_id, current_period_end, cancel_at_period_end, cancelled_at, created_at, updated_at`

var subscriptionTable = query.Table{
	Name:    "subscriptions",
	PK:      "id",
	Columns: subscriptionCols,
	Sortable: map[string]string{
		"id":               "id",
		"status":           "status",
		"currentPeriodEnd": "current_period_end",
		"createdAt":        "created_at",
		"updatedAt":        "updated_at",
	},
	DefaultOrder: query.Order{Field: "createdAt", Direction: query.Desc},
}

func scanSubscription(s scanner) (*model.Subscription, error) {
	var sub model.Subscription
	var providerID sql.NullString
	var periodEnd, cancelledAt sql.NullTime
	err := s.Scan(&sub.ID, &sub.UserID, &sub.PlanID, &sub.Status, &providerID, &periodEnd,
		&sub.CancelAtPeriodEnd, &cancelledAt, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return nil, err
	}
	sub.ProviderSubscriptionID = nullString(providerID)
	sub.CurrentPeriodEnd = nullTime(periodEnd)
	sub.CancelledAt = nullTime(cancelledAt)
	return &sub, nil
}

func (s *SubscriptionStore) Create(ctx context.Context, in model.SubscriptionCreate) (*model.Subscription, error) {
	if in.Status == "" {
		in.Status = model.SubscriptionActive
	}
	cols, args, err := query.Values(in)
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	ts := now()
	cols = append(cols, "id", "created_at", "updated_at")
	args = append(args, id, ts, ts)
	if in.Status == model.SubscriptionCancelled {
		cols = append(cols, "cancelled_at")
		args = append(args, ts)
	}

	if _, err := s.db.ExecContext(ctx, s.db.Rebind(query.Insert("subscriptions", cols, "")), args...); err != nil {
		return nil, writeErr("insert subscription", err)
	}
	return s.GetByID(ctx, id)
}

// Upsert creates or replaces the single subscription of in.UserID. Provider
// id and period end are kept when the new values are empty; cancelledAt is
// stamped on the first transition to CANCELLED and cleared otherwise.
func (s *SubscriptionStore) Upsert(ctx context.Context, in model.SubscriptionCreate) (*model.Subscription, error) {
	if in.Status == "" {
		in.Status = model.SubscriptionActive
	}
	ts := now()
	var cancelledAt any
	if in.Status == model.SubscriptionCancelled {
		cancelledAt = ts
	}

	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO subscriptions (id, user_id, plan_id, status, provider_subscription_id, current_period_end,
			cancel_at_period_end, cancelled_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			plan_id = excluded.plan_id,
			status = excluded.status,
			provider_subscription_id = COALESCE(excluded.provider_subscription_id, subscriptions.provider_subscription_id),
			current_period_end = COALESCE(excluded.current_period_end, subscriptions.current_period_end),
			cancel_at_period_end = excluded.cancel_at_period_end,
			cancelled_at = CASE WHEN excluded.status = 'CANCELLED'
				THEN COALESCE(subscriptions.cancelled_at, excluded.cancelled_at) ELSE NULL END,
			updated_at = excluded.updated_at`),
		uuid.NewString(), in.UserID, in.PlanID, string(in.Status), in.ProviderSubscriptionID,
		query.NormalizeArg(in.CurrentPeriodEnd), in.CancelAtPeriodEnd, cancelledAt, ts, ts,
	)
	if err != nil {
		return nil, writeErr("upsert subscription", err)
	}
	return s.GetByUserID(ctx, in.UserID)
}

func (s *SubscriptionStore) GetByID(ctx context.Context, id string) (*model.Subscription, error) {
	return s.Get(ctx, id, model.SubscriptionInclude{})
}

func (s *SubscriptionStore) Get(ctx context.Context, id string, inc model.SubscriptionInclude) (*model.Subscription, error) {
	row := s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT `+subscriptionCols+` FROM subscriptions WHERE id = ?`), id)
	return s.one(ctx, row, inc)
}

// GetByUserID returns the user's subscription with its plan loaded.
func (s *SubscriptionStore) GetByUserID(ctx context.Context, userID string) (*model.Subscription, error) {
	row := s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT `+subscriptionCols+` FROM subscriptions WHERE user_id = ?`), userID)
	return s.one(ctx, row, model.SubscriptionInclude{Plan: true})
}

func (s *SubscriptionStore) GetByProviderID(ctx context.Context, providerID string) (*model.Subscription, error) {
	row := s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT `+subscriptionCols+` FROM subscriptions WHERE provider_subscription_id = ?`), providerID)
	return s.one(ctx, row, model.SubscriptionInclude{})
}

func (s *SubscriptionStore) one(ctx context.Context, row *sql.Row, inc model.SubscriptionInclude) (*model.Subscription, error) {
	sub, err := getOne(row, scanSubscription, "subscription")
	if err != nil || sub == nil {
		return sub, err
	}
	subs := []model.Subscription{*sub}
	if err := s.include(ctx, subs, inc); err != nil {
		return nil, err
	}
	return &subs[0], nil
}

func (s *SubscriptionStore) FindMany(ctx context.Context, args query.FindArgs[model.SubscriptionWhere], inc model.SubscriptionInclude) (*query.Result[model.Subscription], error) {
	res, err := findMany(ctx, s.db, subscriptionTable, args.Where, args.OrderBy, args.Page, scanSubscription,
		func(sub model.Subscription) string { return sub.ID })
	if err != nil {
		return nil, err
	}
	if err := s.include(ctx, res.Items, inc); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *SubscriptionStore) Count(ctx context.Context, where *model.SubscriptionWhere) (int64, error) {
	return countRows(ctx, s.db, subscriptionTable, where)
}

func (s *SubscriptionStore) Aggregate(ctx context.Context, args query.AggregateArgs[model.SubscriptionWhere]) (*query.AggregateResult, error) {
	return subscriptionTable.Aggregate(ctx, s.db, s.db.Dialect, args.Where, args.AggregateSpec)
}

func (s *SubscriptionStore) Update(ctx context.Context, id string, in model.SubscriptionUpdate) (*model.Subscription, error) {
	extra := map[string]any{"updated_at": now()}
	if in.Status != nil && *in.Status == model.SubscriptionCancelled && !in.CancelledAt.Set {
		extra["cancelled_at"] = now()
	}
	found, err := updateRow(ctx, s.db, "subscriptions", "id", id, in, extra)
	if err != nil || !found {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// UpdateStatus changes only the status of the subscription with the given
// provider id. It reports whether such a subscription exists.
func (s *SubscriptionStore) UpdateStatus(ctx context.Context, providerID string, status model.SubscriptionStatus) (bool, error) {
	extra := map[string]any{"updated_at": now()}
	if status == model.SubscriptionCancelled {
		extra["cancelled_at"] = now()
	}
	return updateRow(ctx, s.db, "subscriptions", "provider_subscription_id", providerID,
		model.SubscriptionUpdate{Status: &status}, extra)
}

func (s *SubscriptionStore) Delete(ctx context.Context, id string) (bool, error) {
	return deleteRow(ctx, s.db, "subscriptions", "id", id)
}

func (s *SubscriptionStore) include(ctx context.Context, subs []model.Subscription, inc model.SubscriptionInclude) error {
	if len(subs) == 0 {
		return nil
	}
	if inc.User {
		ids := make([]string, len(subs))
		for i, sub := range subs {
			ids[i] = sub.UserID
		}
		users, err := loadBy(ctx, s.db, "users", userCols, "id", ids, scanUser,
			func(u model.User) string { return u.ID })
		if err != nil {
			return err
		}
		for i := range subs {
			subs[i].User = first(users, subs[i].UserID)
		}
	}
	if inc.Plan {
		ids := make([]string, len(subs))
		for i, sub := range subs {
			ids[i] = sub.PlanID
		}
		plans, err := loadBy(ctx, s.db, "plans", planCols, "id", ids, scanPlan,
			func(p model.Plan) string { return p.ID })
		if err != nil {
			return err
		}
		for i := range subs {
			subs[i].Plan = first(plans, subs[i].PlanID)
		}
	}
	return nil
}
