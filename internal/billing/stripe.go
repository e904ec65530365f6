package billing

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/selpix/selpix/internal/model"
)

const ProviderStripe = "stripe"

type Stripe struct {
	secret string
}

func NewStripe(webhookSecret string) *Stripe {
	return &Stripe{secret: webhookSecret}
}

func (s *Stripe) Name() string { return ProviderStripe }

func (s *Stripe) Verify(body []byte, h http.Header) error {
	if s.secret == "" {
		return ErrInvalidSignature
	}
	if err := webhook.ValidatePayload(body, h.Get("Stripe-Signature"), s.secret); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return nil
}

func (s *Stripe) Parse(body []byte) (Event, error) {
	var se stripe.Event
	if err := json.Unmarshal(body, &se); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if se.ID == "" || se.Type == "" || se.Data == nil {
		return Event{}, fmt.Errorf("%w: missing id, type or data", ErrInvalidPayload)
	}
	ev := Event{Provider: ProviderStripe, ID: se.ID, Name: string(se.Type), Kind: KindIgnored}

	switch se.Type {
	case "customer.subscription.created", "customer.subscription.updated", "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(se.Data.Raw, &sub); err != nil {
			return Event{}, fmt.Errorf("%w: subscription: %v", ErrInvalidPayload, err)
		}
		ev.Kind = KindSubscription
		ev.SubscriptionID = sub.ID
		ev.UserID = sub.Metadata["user_id"]
		if sub.Customer != nil {
			ev.CustomerID = sub.Customer.ID
		}
		ev.Status = stripeStatus(sub.Status)
		if se.Type == "customer.subscription.deleted" {
			ev.Status = model.SubscriptionCancelled
		}
		ev.CancelAtPeriodEnd = sub.CancelAtPeriodEnd
		if sub.Items != nil && len(sub.Items.Data) > 0 {
			item := sub.Items.Data[0]
			if item.Price != nil {
				ev.PriceID = item.Price.ID
			}
			if item.CurrentPeriodEnd > 0 {
				t := time.Unix(item.CurrentPeriodEnd, 0).UTC()
				ev.PeriodEnd = &t
			}
		}
	case "invoice.paid", "invoice.payment_failed":
		var inv stripe.Invoice
		if err := json.Unmarshal(se.Data.Raw, &inv); err != nil {
			return Event{}, fmt.Errorf("%w: invoice: %v", ErrInvalidPayload, err)
		}
		ev.Kind = KindPaymentSucceeded
		amount := inv.AmountPaid
		if se.Type == "invoice.payment_failed" {
			ev.Kind = KindPaymentFailed
			amount = inv.AmountDue
		}
		ev.PaymentID = inv.ID
		ev.Email = inv.CustomerEmail
		if inv.Customer != nil {
			ev.CustomerID = inv.Customer.ID
		}
		if inv.Parent != nil && inv.Parent.SubscriptionDetails != nil {
			details := inv.Parent.SubscriptionDetails
			ev.UserID = details.Metadata["user_id"]
			if details.Subscription != nil {
				ev.SubscriptionID = details.Subscription.ID
			}
		}
		ev.Currency = strings.ToUpper(string(inv.Currency))
		ev.Amount = majorUnits(amount, ev.Currency)
		ev.Method = model.PaymentCard
	}
	return ev, nil
}

func stripeStatus(s stripe.SubscriptionStatus) model.SubscriptionStatus {
	switch s {
	case stripe.SubscriptionStatusTrialing:
		return model.SubscriptionOnTrial
	case stripe.SubscriptionStatusPastDue:
		return model.SubscriptionPastDue
	case stripe.SubscriptionStatusUnpaid, stripe.SubscriptionStatusIncomplete:
		return model.SubscriptionUnpaid
	case stripe.SubscriptionStatusCanceled:
		return model.SubscriptionCancelled
	case stripe.SubscriptionStatusIncompleteExpired:
		return model.SubscriptionExpired
	case stripe.SubscriptionStatusPaused:
		return model.SubscriptionPaused
	}
	return model.SubscriptionActive
}
