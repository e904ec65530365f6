package billing

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/selpix/selpix/internal/model"
)

const ProviderLemonSqueezy = "lemonsqueezy"

// LemonSqueezy verifies the hex HMAC-SHA256 of the body sent in X-Signature.
type LemonSqueezy struct {
	secret []byte
}

func NewLemonSqueezy(secret string) *LemonSqueezy {
	return &LemonSqueezy{secret: []byte(secret)}
}

func (l *LemonSqueezy) Name() string { return ProviderLemonSqueezy }

func (l *LemonSqueezy) Verify(body []byte, h http.Header) error {
	if len(l.secret) == 0 {
		return ErrInvalidSignature
	}
	got, err := hex.DecodeString(h.Get("X-Signature"))
	if err != nil || len(got) == 0 {
		return ErrInvalidSignature
	}
	if !hmac.Equal(got, l.Sign(body)) {
		return ErrInvalidSignature
	}
	return nil
}

// Sign returns the raw signature of body.
func (l *LemonSqueezy) Sign(body []byte) []byte {
	mac := hmac.New(sha256.New, l.secret)
	mac.Write(body)
	return mac.Sum(nil)
}

// lsID accepts ids sent either as JSON numbers or strings.
type lsID string

func (id *lsID) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	*id = lsID(strings.Trim(string(b), `"`))
	return nil
}

type lsPayload struct {
	Meta struct {
		EventName  string            `json:"event_name"`
		CustomData map[string]string `json:"custom_data"`
	} `json:"meta"`
	Data struct {
		Type       string          `json:"type"`
		ID         lsID            `json:"id"`
		Attributes json.RawMessage `json:"attributes"`
	} `json:"data"`
}

type lsSubscription struct {
	CustomerID lsID    `json:"customer_id"`
	VariantID  lsID    `json:"variant_id"`
	Status     string  `json:"status"`
	UserEmail  string  `json:"user_email"`
	Cancelled  bool    `json:"cancelled"`
	RenewsAt   *string `json:"renews_at"`
	EndsAt     *string `json:"ends_at"`
}

type lsInvoice struct {
	SubscriptionID lsID   `json:"subscription_id"`
	CustomerID     lsID   `json:"customer_id"`
	UserEmail      string `json:"user_email"`
	Total          int64  `json:"total"`
	Currency       string `json:"currency"`
	CardBrand      string `json:"card_brand"`
}

// Parse decodes a LemonSqueezy webhook. The provider does not send a unique
// delivery id, so the event id is the SHA-256 of the body; redeliveries of
// the same notification are byte-identical.
func (l *LemonSqueezy) Parse(body []byte) (Event, error) {
	var p lsPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if p.Meta.EventName == "" {
		return Event{}, fmt.Errorf("%w: missing event name", ErrInvalidPayload)
	}
	sum := sha256.Sum256(body)
	ev := Event{
		Provider: ProviderLemonSqueezy,
		ID:       hex.EncodeToString(sum[:]),
		Name:     p.Meta.EventName,
		Kind:     lsKind(p.Meta.EventName),
		UserID:   p.Meta.CustomData["user_id"],
	}

	switch ev.Kind {
	case KindSubscription:
		var a lsSubscription
		if err := json.Unmarshal(p.Data.Attributes, &a); err != nil {
			return Event{}, fmt.Errorf("%w: subscription attributes: %v", ErrInvalidPayload, err)
		}
		status := model.SubscriptionStatus(strings.ToUpper(a.Status))
		if !status.Valid() {
			return Event{}, fmt.Errorf("%w: subscription status %q", ErrInvalidPayload, a.Status)
		}
		ev.SubscriptionID = string(p.Data.ID)
		ev.CustomerID = string(a.CustomerID)
		ev.VariantID = string(a.VariantID)
		ev.Email = a.UserEmail
		ev.Status = status
		ev.CancelAtPeriodEnd = a.Cancelled
		ev.PeriodEnd = lsTime(a.RenewsAt)
		if ev.PeriodEnd == nil {
			ev.PeriodEnd = lsTime(a.EndsAt)
		}
	case KindPaymentSucceeded, KindPaymentFailed, KindPaymentRefunded:
		var a lsInvoice
		if err := json.Unmarshal(p.Data.Attributes, &a); err != nil {
			return Event{}, fmt.Errorf("%w: invoice attributes: %v", ErrInvalidPayload, err)
		}
		ev.PaymentID = string(p.Data.ID)
		ev.SubscriptionID = string(a.SubscriptionID)
		ev.CustomerID = string(a.CustomerID)
		ev.Email = a.UserEmail
		ev.Currency = strings.ToUpper(a.Currency)
		ev.Amount = majorUnits(a.Total, a.Currency)
		ev.Method = model.PaymentOther
		if a.CardBrand != "" {
			ev.Method = model.PaymentCard
		}
	}
	return ev, nil
}

func lsKind(name string) Kind {
	switch name {
	case "subscription_payment_success", "subscription_payment_recovered":
		return KindPaymentSucceeded
	case "subscription_payment_failed":
		return KindPaymentFailed
	case "subscription_payment_refunded":
		return KindPaymentRefunded
	}
	if strings.HasPrefix(name, "subscription_") {
		return KindSubscription
	}
	return KindIgnored
}

func lsTime(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}
