package model

import (
	"encoding/json"
	"time"

	"github.com/selpix/selpix/internal/query"
)

// WebhookEvent is a payment provider notification stored verbatim before it
// is applied, so failed deliveries can be retried.
type WebhookEvent struct {
	ID          string          `json:"id"`
	Provider    string          `json:"provider"`
	EventID     string          `json:"eventId"`
	EventName   string          `json:"eventName"`
	Payload     json.RawMessage `json:"payload"`
	Processed   bool            `json:"processed"`
	Attempts    int             `json:"attempts"`
	LastError   *string         `json:"lastError"`
	ProcessedAt *time.Time      `json:"processedAt"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type WebhookEventCreate struct {
	Provider  string          `json:"provider" db:"provider" validate:"required,oneof=lemonsqueezy stripe"`
	EventID   string          `json:"eventId" db:"event_id" validate:"required,max=255"`
	EventName string          `json:"eventName" db:"event_name" validate:"required,max=100"`
	Payload   json.RawMessage `json:"payload" db:"payload" validate:"required"`
}

type WebhookEventUpdate struct {
	Processed   *bool                     `json:"processed,omitempty" db:"processed"`
	Attempts    *int                      `json:"attempts,omitempty" db:"attempts" validate:"omitempty,gte=0"`
	LastError   query.Optional[string]    `json:"lastError" db:"last_error"`
	ProcessedAt query.Optional[time.Time] `json:"processedAt" db:"processed_at"`
}

type WebhookEventWhere struct {
	ID          *query.Filter[string]    `json:"id,omitempty" db:"id"`
	Provider    *query.StringFilter      `json:"provider,omitempty" db:"provider"`
	EventID     *query.StringFilter      `json:"eventId,omitempty" db:"event_id"`
	EventName   *query.StringFilter      `json:"eventName,omitempty" db:"event_name"`
	Processed   *query.Filter[bool]      `json:"processed,omitempty" db:"processed"`
	Attempts    *query.Filter[int64]     `json:"attempts,omitempty" db:"attempts"`
	LastError   *query.StringFilter      `json:"lastError,omitempty" db:"last_error"`
	ProcessedAt *query.Filter[time.Time] `json:"processedAt,omitempty" db:"processed_at"`
	CreatedAt   *query.Filter[time.Time] `json:"createdAt,omitempty" db:"created_at"`
	AND         []WebhookEventWhere      `json:"AND,omitempty" logic:"and"`
	OR          []WebhookEventWhere      `json:"OR,omitempty" logic:"or"`
	NOT         []WebhookEventWhere      `json:"NOT,omitempty" logic:"not"`
}

type PaymentHistory struct {
	ID                string        `json:"id"`
	UserID            string        `json:"userId"`
	SubscriptionID    *string       `json:"subscriptionId"`
	Amount            float64       `json:"amount"`
	Currency          string        `json:"currency"`
	Method            PaymentMethod `json:"method"`
	Status            PaymentStatus `json:"status"`
	ProviderPaymentID *string       `json:"providerPaymentId"`
	PaidAt            *time.Time    `json:"paidAt"`
	CreatedAt         time.Time     `json:"createdAt"`

	User         *User         `json:"user,omitempty"`
	Subscription *Subscription `json:"subscription,omitempty"`
}

type PaymentCreate struct {
	UserID            string        `json:"userId" db:"user_id" validate:"required,uuid"`
	SubscriptionID    *string       `json:"subscriptionId,omitempty" db:"subscription_id" validate:"omitempty,uuid"`
	Amount            float64       `json:"amount" db:"amount" validate:"gte=0"`
	Currency          string        `json:"currency" db:"currency" validate:"required,currency"`
	Method            PaymentMethod `json:"method" db:"method" validate:"required,paymethod"`
	Status            PaymentStatus `json:"status" db:"status" validate:"required,paystatus"`
	ProviderPaymentID *string       `json:"providerPaymentId,omitempty" db:"provider_payment_id" validate:"omitempty,max=255"`
	PaidAt            *time.Time    `json:"paidAt,omitempty" db:"paid_at"`
}

type PaymentUpdate struct {
	SubscriptionID    query.Optional[string]    `json:"subscriptionId" db:"subscription_id" validate:"omitempty,uuid"`
	Amount            *float64                  `json:"amount,omitempty" db:"amount" validate:"omitempty,gte=0"`
	Currency          *string                   `json:"currency,omitempty" db:"currency" validate:"omitempty,currency"`
	Method            *PaymentMethod            `json:"method,omitempty" db:"method" validate:"omitempty,paymethod"`
	Status            *PaymentStatus            `json:"status,omitempty" db:"status" validate:"omitempty,paystatus"`
	ProviderPaymentID query.Optional[string]    `json:"providerPaymentId" db:"provider_payment_id" validate:"omitempty,max=255"`
	PaidAt            query.Optional[time.Time] `json:"paidAt" db:"paid_at"`
}

type PaymentWhere struct {
	ID                *query.Filter[string]        `json:"id,omitempty" db:"id"`
	UserID            *query.Filter[string]        `json:"userId,omitempty" db:"user_id"`
	SubscriptionID    *query.Filter[string]        `json:"subscriptionId,omitempty" db:"subscription_id"`
	Amount            *query.Filter[float64]       `json:"amount,omitempty" db:"amount"`
	Currency          *query.StringFilter          `json:"currency,omitempty" db:"currency"`
	Method            *query.Filter[PaymentMethod] `json:"method,omitempty" db:"method"`
	Status            *query.Filter[PaymentStatus] `json:"status,omitempty" db:"status"`
	ProviderPaymentID *query.StringFilter          `json:"providerPaymentId,omitempty" db:"provider_payment_id"`
	PaidAt            *query.Filter[time.Time]     `json:"paidAt,omitempty" db:"paid_at"`
	CreatedAt         *query.Filter[time.Time]     `json:"createdAt,omitempty" db:"created_at"`
	AND               []PaymentWhere               `json:"AND,omitempty" logic:"and"`
	OR                []PaymentWhere               `json:"OR,omitempty" logic:"or"`
	NOT               []PaymentWhere               `json:"NOT,omitempty" logic:"not"`
}

type PaymentInclude struct {
	User         bool `json:"user,omitempty"`
	Subscription bool `json:"subscription,omitempty"`
}
