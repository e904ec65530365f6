package model

import (
	"time"

	"github.com/selpix/selpix/internal/query"
)

type Subscription struct {
	ID                     string             `json:"id"`
	UserID                 string             `json:"userId"`
	PlanID                 string             `json:"planId"`
	Status                 SubscriptionStatus `json:"status"`
	ProviderSubscriptionID *string            `json:"providerSubscriptionId"`
	CurrentPeriodEnd       *time.Time         `json:"currentPeriodEnd"`
	CancelAtPeriodEnd      bool               `json:"cancelAtPeriodEnd"`
	CancelledAt            *time.Time         `json:"cancelledAt"`
	CreatedAt              time.Time          `json:"createdAt"`
	UpdatedAt              time.Time          `json:"updatedAt"`

	User *User `json:"user,omitempty"`
	Plan *Plan `json:"plan,omitempty"`
}

type SubscriptionCreate struct {
	UserID                 string             `json:"userId" db:"user_id" validate:"required,uuid"`
	PlanID                 string             `json:"planId" db:"plan_id" validate:"required,max=64"`
	Status                 SubscriptionStatus `json:"status,omitempty" db:"status" validate:"omitempty,substatus"`
	ProviderSubscriptionID *string            `json:"providerSubscriptionId,omitempty" db:"provider_subscription_id" validate:"omitempty,max=255"`
	CurrentPeriodEnd       *time.Time         `json:"currentPeriodEnd,omitempty" db:"current_period_end"`
	CancelAtPeriodEnd      bool               `json:"cancelAtPeriodEnd" db:"cancel_at_period_end"`
}

type SubscriptionUpdate struct {
	PlanID                 *string                   `json:"planId,omitempty" db:"plan_id" validate:"omitempty,max=64"`
	Status                 *SubscriptionStatus       `json:"status,omitempty" db:"status" validate:"omitempty,substatus"`
	ProviderSubscriptionID query.Optional[string]    `json:"providerSubscriptionId" db:"provider_subscription_id" validate:"omitempty,max=255"`
	CurrentPeriodEnd       query.Optional[time.Time] `json:"currentPeriodEnd" db:"current_period_end"`
	CancelAtPeriodEnd      *bool                     `json:"cancelAtPeriodEnd,omitempty" db:"cancel_at_period_end"`
	CancelledAt            query.Optional[time.Time] `json:"cancelledAt" db:"cancelled_at"`
}

type SubscriptionWhere struct {
	ID                     *query.Filter[string]             `json:"id,omitempty" db:"id"`
	UserID                 *query.Filter[string]             `json:"userId,omitempty" db:"user_id"`
	PlanID                 *query.StringFilter               `json:"planId,omitempty" db:"plan_id"`
	Status                 *query.Filter[SubscriptionStatus] `json:"status,omitempty" db:"status"`
	ProviderSubscriptionID *query.StringFilter               `json:"providerSubscriptionId,omitempty" db:"provider_subscription_id"`
	CurrentPeriodEnd       *query.Filter[time.Time]          `json:"currentPeriodEnd,omitempty" db:"current_period_end"`
	CancelAtPeriodEnd      *query.Filter[bool]               `json:"cancelAtPeriodEnd,omitempty" db:"cancel_at_period_end"`
	CancelledAt            *query.Filter[time.Time]          `json:"cancelledAt,omitempty" db:"cancelled_at"`
	CreatedAt              *query.Filter[time.Time]          `json:"createdAt,omitempty" db:"created_at"`
	UpdatedAt              *query.Filter[time.Time]          `json:"updatedAt,omitempty" db:"updated_at"`
	AND                    []SubscriptionWhere               `json:"AND,omitempty" logic:"and"`
	OR                     []SubscriptionWhere               `json:"OR,omitempty" logic:"or"`
	NOT                    []SubscriptionWhere               `json:"NOT,omitempty" logic:"not"`
}

type SubscriptionInclude struct {
	User bool `json:"user,omitempty"`
	Plan bool `json:"plan,omitempty"`
}
