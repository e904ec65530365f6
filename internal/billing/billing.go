// Package billing applies payment provider webhooks to users, subscriptions
// and payment history.
package billing

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/selpix/selpix/internal/model"
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrInvalidPayload   = errors.New("invalid webhook payload")
	ErrDuplicateEvent   = errors.New("webhook event already processed")
	ErrUnknownProvider  = errors.New("unknown webhook provider")
	errNoUser           = errors.New("no user for event")
	errNoPlan           = errors.New("no plan for event")
)

type Kind string

const (
	KindIgnored          Kind = "ignored"
	KindSubscription     Kind = "subscription"
	KindPaymentSucceeded Kind = "payment_succeeded"
	KindPaymentFailed    Kind = "payment_failed"
	KindPaymentRefunded  Kind = "payment_refunded"
)

// Event is a provider notification reduced to what the service stores.
// Empty strings mean the provider did not send the value.
type Event struct {
	Provider string
	ID       string
	Name     string
	Kind     Kind

	UserID     string
	CustomerID string
	Email      string

	VariantID string
	PriceID   string

	SubscriptionID    string
	Status            model.SubscriptionStatus
	PeriodEnd         *time.Time
	CancelAtPeriodEnd bool

	PaymentID string
	Amount    float64
	Currency  string
	Method    model.PaymentMethod
}

// Provider verifies and decodes the webhooks of one payment provider.
// Parse must work on stored payloads without the original headers.
type Provider interface {
	Name() string
	Verify(body []byte, h http.Header) error
	Parse(body []byte) (Event, error)
}

// zeroDecimal lists currencies whose amounts are not sent in cents.
var zeroDecimal = map[string]bool{"KRW": true, "JPY": true, "VND": true}

// majorUnits converts a minor-unit amount into the currency's main unit.
func majorUnits(amount int64, currency string) float64 {
	if zeroDecimal[strings.ToUpper(currency)] {
		return float64(amount)
	}
	return float64(amount) / 100
}
