package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/selpix/selpix/internal/database"
	"github.com/selpix/selpix/internal/model"
	"github.com/selpix/selpix/internal/query"
)

type PaymentStore struct {
	db *database.DB
}

func NewPaymentStore(db *database.DB) *PaymentStore {
	return &PaymentStore{db: db}
}

const paymentCols = `id, user_id, subscription_id, amount, currency, method, status, provider_payment_id, paid_at, created_at`

var paymentTable = query.Table{
	Name:    "payment_histories",
	PK:      "id",
	Columns: paymentCols,
	Sortable: map[string]string{
		"id":        "id",
		"amount":    "amount",
		"status":    "status",
		"paidAt":    "paid_at",
		"createdAt": "created_at",
	},
	Numeric:      map[string]string{"amount": "amount"},
	DefaultOrder: query.Order{Field: "createdAt", Direction: query.Desc},
}

func scanPayment(s scanner) (*model.PaymentHistory, error) {
	var p model.PaymentHistory
	var subID, providerID sql.NullString
	var paidAt sql.NullTime
	err := s.Scan(&p.ID, &p.UserID, &subID, &p.Amount, &p.Currency, &p.Method, &p.Status,
		&providerID, &paidAt, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.SubscriptionID = nullString(subID)
	p.ProviderPaymentID = nullString(providerID)
	p.PaidAt = nullTime(paidAt)
	return &p, nil
}

// Create records a payment. A PAID payment without paidAt is stamped now.
func (s *PaymentStore) Create(ctx context.Context, in model.PaymentCreate) (*model.PaymentHistory, error) {
	if in.Status == model.PaymentPaid && in.PaidAt == nil {
		ts := now()
		in.PaidAt = &ts
	}
	cols, args, err := query.Values(in)
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	cols = append(cols, "id", "created_at")
	args = append(args, id, now())

	if _, err := s.db.ExecContext(ctx, s.db.Rebind(query.Insert("payment_histories", cols, "")), args...); err != nil {
		return nil, writeErr("insert payment", err)
	}
	return s.GetByID(ctx, id)
}

func (s *PaymentStore) GetByID(ctx context.Context, id string) (*model.PaymentHistory, error) {
	return s.Get(ctx, id, model.PaymentInclude{})
}

func (s *PaymentStore) Get(ctx context.Context, id string, inc model.PaymentInclude) (*model.PaymentHistory, error) {
	row := s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT `+paymentCols+` FROM payment_histories WHERE id = ?`), id)
	p, err := getOne(row, scanPayment, "payment")
	if err != nil || p == nil {
		return p, err
	}
	pays := []model.PaymentHistory{*p}
	if err := s.include(ctx, pays, inc); err != nil {
		return nil, err
	}
	return &pays[0], nil
}

func (s *PaymentStore) GetByProviderID(ctx context.Context, providerID string) (*model.PaymentHistory, error) {
	row := s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT `+paymentCols+` FROM payment_histories WHERE provider_payment_id = ?`), providerID)
	return getOne(row, scanPayment, "payment by provider id")
}

// ListByUser returns a user's payments, newest first.
func (s *PaymentStore) ListByUser(ctx context.Context, userID string) ([]model.PaymentHistory, error) {
	pays, err := collect(ctx, s.db,
		s.db.Rebind(`SELECT `+paymentCols+` FROM payment_histories WHERE user_id = ? ORDER BY created_at DESC, id DESC`),
		[]any{userID}, scanPayment)
	if err != nil {
		return nil, err
	}
	if pays == nil {
		pays = []model.PaymentHistory{}
	}
	return pays, nil
}

func (s *PaymentStore) FindMany(ctx context.Context, args query.FindArgs[model.PaymentWhere], inc model.PaymentInclude) (*query.Result[model.PaymentHistory], error) {
	res, err := findMany(ctx, s.db, paymentTable, args.Where, args.OrderBy, args.Page, scanPayment,
		func(p model.PaymentHistory) string { return p.ID })
	if err != nil {
		return nil, err
	}
	if err := s.include(ctx, res.Items, inc); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *PaymentStore) Count(ctx context.Context, where *model.PaymentWhere) (int64, error) {
	return countRows(ctx, s.db, paymentTable, where)
}

func (s *PaymentStore) Aggregate(ctx context.Context, args query.AggregateArgs[model.PaymentWhere]) (*query.AggregateResult, error) {
	return paymentTable.Aggregate(ctx, s.db, s.db.Dialect, args.Where, args.AggregateSpec)
}

func (s *PaymentStore) Update(ctx context.Context, id string, in model.PaymentUpdate) (*model.PaymentHistory, error) {
	found, err := updateRow(ctx, s.db, "payment_histories", "id", id, in, nil)
	if err != nil || !found {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// UpdateStatus sets the status of the payment with the given provider id,
// stamping paidAt when it becomes PAID.
func (s *PaymentStore) UpdateStatus(ctx context.Context, providerID string, status model.PaymentStatus) (bool, error) {
	upd := model.PaymentUpdate{Status: &status}
	if status == model.PaymentPaid {
		upd.PaidAt = query.SetTo(now())
	}
	return updateRow(ctx, s.db, "payment_histories", "provider_payment_id", providerID, upd, nil)
}

func (s *PaymentStore) Delete(ctx context.Context, id string) (bool, error) {
	return deleteRow(ctx, s.db, "payment_histories", "id", id)
}

func (s *PaymentStore) include(ctx context.Context, pays []model.PaymentHistory, inc model.PaymentInclude) error {
	if len(pays) == 0 {
		return nil
	}
	if inc.User {
		ids := make([]string, len(pays))
		for i, p := range pays {
			ids[i] = p.UserID
		}
		users, err := loadBy(ctx, s.db, "users", userCols, "id", ids, scanUser,
			func(u model.User) string { return u.ID })
		if err != nil {
			return err
		}
		for i := range pays {
			pays[i].User = first(users, pays[i].UserID)
		}
	}
	if inc.Subscription {
		var ids []string
		for _, p := range pays {
			if p.SubscriptionID != nil {
				ids = append(ids, *p.SubscriptionID)
			}
		}
		subs, err := loadBy(ctx, s.db, "subscriptions", subscriptionCols, "id", ids, scanSubscription,
			func(sub model.Subscription) string { return sub.ID })
		if err != nil {
			return err
		}
		for i := range pays {
			if pays[i].SubscriptionID != nil {
				pays[i].Subscription = first(subs, *pays[i].SubscriptionID)
			}
		}
	}
	return nil
}
