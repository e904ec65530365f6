package model

import (
	"time"

	"github.com/selpix/selpix/internal/query"
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         *string   `json:"name"`
	PasswordHash *string   `json:"-"`
	IsAdmin      bool      `json:"isAdmin"`
	CustomerID   *string   `json:"customerId"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	Subscription *Subscription    `json:"subscription,omitempty"`
	Payments     []PaymentHistory `json:"payments,omitempty"`
}

type UserCreate struct {
	Email      string  `json:"email" db:"email" validate:"required,email,max=320"`
	Name       *string `json:"name,omitempty" db:"name" validate:"omitempty,max=100"`
	Password   *string `json:"password,omitempty" db:"-" validate:"omitempty,min=8,max=72"`
	IsAdmin    bool    `json:"isAdmin" db:"is_admin"`
	CustomerID *string `json:"customerId,omitempty" db:"customer_id" validate:"omitempty,max=100"`
}

type UserUpdate struct {
	Email      *string                `json:"email,omitempty" db:"email" validate:"omitempty,email,max=320"`
	Name       query.Optional[string] `json:"name" db:"name" validate:"omitempty,max=100"`
	IsAdmin    *bool                  `json:"isAdmin,omitempty" db:"is_admin"`
	CustomerID query.Optional[string] `json:"customerId" db:"customer_id" validate:"omitempty,max=100"`
}

type UserWhere struct {
	ID           *query.Filter[string]              `json:"id,omitempty" db:"id"`
	Email        *query.StringFilter                `json:"email,omitempty" db:"email"`
	Name         *query.StringFilter                `json:"name,omitempty" db:"name"`
	IsAdmin      *query.Filter[bool]                `json:"isAdmin,omitempty" db:"is_admin"`
	CustomerID   *query.StringFilter                `json:"customerId,omitempty" db:"customer_id"`
	CreatedAt    *query.Filter[time.Time]           `json:"createdAt,omitempty" db:"created_at"`
	UpdatedAt    *query.Filter[time.Time]           `json:"updatedAt,omitempty" db:"updated_at"`
	Subscription *query.Relation[SubscriptionWhere] `json:"subscription,omitempty" db:"id" rel:"subscriptions.user_id"`
	Payments     *query.Relation[PaymentWhere]      `json:"payments,omitempty" db:"id" rel:"payment_histories.user_id"`
	AND          []UserWhere                        `json:"AND,omitempty" logic:"and"`
	OR           []UserWhere                        `json:"OR,omitempty" logic:"or"`
	NOT          []UserWhere                        `json:"NOT,omitempty" logic:"not"`
}

type UserInclude struct {
	Subscription bool `json:"subscription,omitempty"`
	Payments     bool `json:"payments,omitempty"`
}
