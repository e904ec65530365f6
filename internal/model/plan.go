package model

import (
	"time"

	"github.com/selpix/selpix/internal/query"
)

type Plan struct {
	ID                    string    `json:"id"`
	Name                  string    `json:"name"`
	Title                 string    `json:"title"`
	Description           *string   `json:"description"`
	Price                 float64   `json:"price"`
	Currency              string    `json:"currency"`
	Available             bool      `json:"available"`
	LemonSqueezyProductID string    `json:"lemonSqueezyProductId"`
	LemonSqueezyVariantID string    `json:"lemonSqueezyVariantId"`
	StripePriceID         *string   `json:"stripePriceId"`
	Content               []string  `json:"content"`
	CreatedAt             time.Time `json:"createdAt"`
	UpdatedAt             time.Time `json:"updatedAt"`

	Subscriptions []Subscription `json:"subscriptions,omitempty"`
}

type PlanCreate struct {
	ID                    string   `json:"id,omitempty" db:"-" validate:"omitempty,max=64"`
	Name                  string   `json:"name" db:"name" validate:"required,max=50"`
	Title                 string   `json:"title" db:"title" validate:"required,max=100"`
	Description           *string  `json:"description,omitempty" db:"description" validate:"omitempty,max=1000"`
	Price                 float64  `json:"price" db:"price" validate:"gte=0"`
	Currency              string   `json:"currency" db:"currency" validate:"required,currency"`
	Available             *bool    `json:"available,omitempty" db:"available"`
	LemonSqueezyProductID string   `json:"lemonSqueezyProductId" db:"lemon_squeezy_product_id" validate:"required,max=64"`
	LemonSqueezyVariantID string   `json:"lemonSqueezyVariantId" db:"lemon_squeezy_variant_id" validate:"required,max=64"`
	StripePriceID         *string  `json:"stripePriceId,omitempty" db:"stripe_price_id" validate:"omitempty,max=255"`
	Content               []string `json:"content" db:"content,json" validate:"dive,max=200"`
}

type PlanUpdate struct {
	Name                  *string                `json:"name,omitempty" db:"name" validate:"omitempty,max=50"`
	Title                 *string                `json:"title,omitempty" db:"title" validate:"omitempty,max=100"`
	Description           query.Optional[string] `json:"description" db:"description" validate:"omitempty,max=1000"`
	Price                 *float64               `json:"price,omitempty" db:"price" validate:"omitempty,gte=0"`
	Currency              *string                `json:"currency,omitempty" db:"currency" validate:"omitempty,currency"`
	Available             *bool                  `json:"available,omitempty" db:"available"`
	LemonSqueezyProductID *string                `json:"lemonSqueezyProductId,omitempty" db:"lemon_squeezy_product_id" validate:"omitempty,max=64"`
	LemonSqueezyVariantID *string                `json:"lemonSqueezyVariantId,omitempty" db:"lemon_squeezy_variant_id" validate:"omitempty,max=64"`
	StripePriceID         query.Optional[string] `json:"stripePriceId" db:"stripe_price_id" validate:"omitempty,max=255"`
	Content               *[]string              `json:"content,omitempty" db:"content,json" validate:"omitempty,dive,max=200"`
}

type PlanWhere struct {
	ID                    *query.StringFilter                `json:"id,omitempty" db:"id"`
	Name                  *query.StringFilter                `json:"name,omitempty" db:"name"`
	Title                 *query.StringFilter                `json:"title,omitempty" db:"title"`
	Price                 *query.Filter[float64]             `json:"price,omitempty" db:"price"`
	Currency              *query.StringFilter                `json:"currency,omitempty" db:"currency"`
	Available             *query.Filter[bool]                `json:"available,omitempty" db:"available"`
	LemonSqueezyProductID *query.StringFilter                `json:"lemonSqueezyProductId,omitempty" db:"lemon_squeezy_product_id"`
	LemonSqueezyVariantID *query.StringFilter                `json:"lemonSqueezyVariantId,omitempty" db:"lemon_squeezy_variant_id"`
	StripePriceID         *query.StringFilter                `json:"stripePriceId,omitempty" db:"stripe_price_id"`
	CreatedAt             *query.Filter[time.Time]           `json:"createdAt,omitempty" db:"created_at"`
	Subscriptions         *query.Relation[SubscriptionWhere] `json:"subscriptions,omitempty" db:"id" rel:"subscriptions.plan_id"`
	AND                   []PlanWhere                        `json:"AND,omitempty" logic:"and"`
	OR                    []PlanWhere                        `json:"OR,omitempty" logic:"or"`
	NOT                   []PlanWhere                        `json:"NOT,omitempty" logic:"not"`
}

type PlanInclude struct {
	Subscriptions bool `json:"subscriptions,omitempty"`
}
