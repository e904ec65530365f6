package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/selpix/selpix/internal/database"
	"github.com/selpix/selpix/internal/model"
	"github.com/selpix/selpix/internal/query"
)

type UserStore struct {
	db *database.DB
}

func NewUserStore(db *database.DB) *UserStore {
	return &UserStore{db: db}
}

const userCols = `id, email, name, password_hash, is_admin, customer_id, created_at, updated_at`

var userTable = query.Table{
	Name:    "users",
	PK:      "id",
	Columns: userCols,
	Sortable: map[string]string{
		"id":        "id",
		"email":     "email",
		"name":      "name",
		"createdAt": "created_at",
		"updatedAt": "updated_at",
	},
	DefaultOrder: query.Order{Field: "createdAt", Direction: query.Desc},
}

func scanUser(s scanner) (*model.User, error) {
	var u model.User
	var name, hash, customerID sql.NullString
	err := s.Scan(&u.ID, &u.Email, &name, &hash, &u.IsAdmin, &customerID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.Name = nullString(name)
	u.PasswordHash = nullString(hash)
	u.CustomerID = nullString(customerID)
	return &u, nil
}

// normalizeEmail is the stored form of an email address. Every lookup and
// write goes through it so registration, login and webhooks agree.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *UserStore) Create(ctx context.Context, in model.UserCreate) (*model.User, error) {
	in.Email = normalizeEmail(in.Email)
	cols, args, err := query.Values(in)
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	ts := now()
	cols = append(cols, "id", "created_at", "updated_at")
	args = append(args, id, ts, ts)

	if in.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		cols = append(cols, "password_hash")
		args = append(args, string(hash))
	}

	if _, err := s.db.ExecContext(ctx, s.db.Rebind(query.Insert("users", cols, "")), args...); err != nil {
		return nil, writeErr("insert user", err)
	}
	return s.GetByID(ctx, id)
}

func (s *UserStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	return s.Get(ctx, id, model.UserInclude{})
}

func (s *UserStore) Get(ctx context.Context, id string, inc model.UserInclude) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT `+userCols+` FROM users WHERE id = ?`), id)
	u, err := getOne(row, scanUser, "user")
	if err != nil || u == nil {
		return u, err
	}
	users := []model.User{*u}
	if err := s.include(ctx, users, inc); err != nil {
		return nil, err
	}
	return &users[0], nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT `+userCols+` FROM users WHERE email = ?`), normalizeEmail(email))
	return getOne(row, scanUser, "user by email")
}

func (s *UserStore) GetByCustomerID(ctx context.Context, customerID string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT `+userCols+` FROM users WHERE customer_id = ?`), customerID)
	return getOne(row, scanUser, "user by customer id")
}

func (s *UserStore) FindMany(ctx context.Context, args query.FindArgs[model.UserWhere], inc model.UserInclude) (*query.Result[model.User], error) {
	res, err := findMany(ctx, s.db, userTable, args.Where, args.OrderBy, args.Page, scanUser,
		func(u model.User) string { return u.ID })
	if err != nil {
		return nil, err
	}
	if err := s.include(ctx, res.Items, inc); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *UserStore) Count(ctx context.Context, where *model.UserWhere) (int64, error) {
	return countRows(ctx, s.db, userTable, where)
}

func (s *UserStore) Aggregate(ctx context.Context, args query.AggregateArgs[model.UserWhere]) (*query.AggregateResult, error) {
	return userTable.Aggregate(ctx, s.db, s.db.Dialect, args.Where, args.AggregateSpec)
}

// Update applies a partial update. It returns (nil, nil) when the user does not exist.
func (s *UserStore) Update(ctx context.Context, id string, in model.UserUpdate) (*model.User, error) {
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		in.Email = &email
	}
	found, err := updateRow(ctx, s.db, "users", "id", id, in, map[string]any{"updated_at": now()})
	if err != nil || !found {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

func (s *UserStore) SetPassword(ctx context.Context, id, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	_, err = s.db.ExecContext(ctx, s.db.Rebind(`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`),
		string(hash), now(), id)
	if err != nil {
		return fmt.Errorf("set password: %w", err)
	}
	return nil
}

// SetCustomerID records the payment provider's customer id for a user.
func (s *UserStore) SetCustomerID(ctx context.Context, id, customerID string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE users SET customer_id = ?, updated_at = ? WHERE id = ?`),
		customerID, now(), id)
	if err != nil {
		return writeErr("set customer id", err)
	}
	return nil
}

// Authenticate returns the user when email and password match, or (nil, nil)
// when they do not. Users without a password cannot log in.
func (s *UserStore) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	u, err := s.GetByEmail(ctx, email)
	if err != nil || u == nil || u.PasswordHash == nil {
		return nil, err
	}
	err = bcrypt.CompareHashAndPassword([]byte(*u.PasswordHash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("compare password: %w", err)
	}
	return u, nil
}

func (s *UserStore) Delete(ctx context.Context, id string) (bool, error) {
	return deleteRow(ctx, s.db, "users", "id", id)
}

func (s *UserStore) include(ctx context.Context, users []model.User, inc model.UserInclude) error {
	if len(users) == 0 {
		return nil
	}
	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}

	if inc.Subscription {
		subs, err := loadBy(ctx, s.db, "subscriptions", subscriptionCols, "user_id", ids, scanSubscription,
			func(sub model.Subscription) string { return sub.UserID })
		if err != nil {
			return err
		}
		for i := range users {
			users[i].Subscription = first(subs, users[i].ID)
		}
	}
	if inc.Payments {
		pays, err := loadBy(ctx, s.db, "payment_histories", paymentCols, "user_id", ids, scanPayment,
			func(p model.PaymentHistory) string { return p.UserID })
		if err != nil {
			return err
		}
		for i := range users {
			users[i].Payments = pays[users[i].ID]
		}
	}
	return nil
}
