package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/selpix/selpix/internal/model"
	"github.com/selpix/selpix/internal/store"
)

type Stores struct {
	Users         *store.UserStore
	Plans         *store.PlanStore
	Subscriptions *store.SubscriptionStore
	Payments      *store.PaymentStore
	Events        *store.WebhookEventStore
}

// Notifier tells customers about their payments. Delivery failures are
// logged and never fail the webhook.
type Notifier interface {
	PaymentFailed(ctx context.Context, to string, amount float64, currency string) error
	PaymentReceived(ctx context.Context, to string, amount float64, currency string) error
}

// Processor records provider webhooks and applies them.
type Processor struct {
	st          Stores
	providers   map[string]Provider
	maxAttempts int
	notifier    Notifier
	logger      *slog.Logger
}

func NewProcessor(st Stores, maxAttempts int, logger *slog.Logger, providers ...Provider) *Processor {
	p := &Processor{
		st:          st,
		providers:   make(map[string]Provider, len(providers)),
		maxAttempts: maxAttempts,
		logger:      logger.With("component", "billing"),
	}
	for _, pr := range providers {
		p.providers[pr.Name()] = pr
	}
	return p
}

func (p *Processor) SetNotifier(n Notifier) {
	p.notifier = n
}

// Handle verifies, records and applies one delivery. A delivery of an event
// that was already applied returns ErrDuplicateEvent and changes nothing.
func (p *Processor) Handle(ctx context.Context, provider string, body []byte, h http.Header) (*model.WebhookEvent, error) {
	pr, ok := p.providers[provider]
	if !ok {
		return nil, ErrUnknownProvider
	}
	if err := pr.Verify(body, h); err != nil {
		return nil, err
	}
	ev, err := pr.Parse(body)
	if err != nil {
		return nil, err
	}

	rec, existed, err := p.st.Events.Record(ctx, model.WebhookEventCreate{
		Provider:  provider,
		EventID:   ev.ID,
		EventName: ev.Name,
		Payload:   body,
	})
	if err != nil {
		return nil, fmt.Errorf("record webhook: %w", err)
	}
	if existed && rec.Processed {
		p.logger.Info("duplicate webhook", "provider", provider, "event", ev.Name, "event_id", ev.ID)
		return rec, ErrDuplicateEvent
	}
	return rec, p.process(ctx, rec, ev)
}

// Retry re-applies stored events that have not been processed and have
// failed fewer than the configured number of times. It returns how many
// succeeded.
func (p *Processor) Retry(ctx context.Context, limit int) (int, error) {
	events, err := p.st.Events.ListRetryable(ctx, limit, p.maxAttempts)
	if err != nil {
		return 0, err
	}
	done := 0
	for i := range events {
		rec := &events[i]
		pr, ok := p.providers[rec.Provider]
		if !ok {
			p.fail(ctx, rec, ErrUnknownProvider)
			continue
		}
		ev, err := pr.Parse(rec.Payload)
		if err != nil {
			p.fail(ctx, rec, err)
			continue
		}
		if err := p.process(ctx, rec, ev); err != nil {
			continue
		}
		done++
	}
	return done, nil
}

func (p *Processor) process(ctx context.Context, rec *model.WebhookEvent, ev Event) error {
	if err := p.Apply(ctx, ev); err != nil {
		p.fail(ctx, rec, err)
		return fmt.Errorf("apply %s: %w", ev.Name, err)
	}
	if err := p.st.Events.MarkProcessed(ctx, rec.ID); err != nil {
		return err
	}
	rec.Processed = true
	p.logger.Info("webhook applied", "provider", ev.Provider, "event", ev.Name, "kind", ev.Kind)
	return nil
}

func (p *Processor) fail(ctx context.Context, rec *model.WebhookEvent, cause error) {
	p.logger.Warn("webhook failed", "provider", rec.Provider, "event", rec.EventName, "attempt", rec.Attempts+1, "error", cause)
	if err := p.st.Events.MarkFailed(ctx, rec.ID, cause); err != nil {
		p.logger.Error("mark webhook failed", "id", rec.ID, "error", err)
	}
}

// Apply changes users, subscriptions and payments to reflect ev.
func (p *Processor) Apply(ctx context.Context, ev Event) error {
	if ev.Kind == KindIgnored {
		return nil
	}
	user, err := p.resolveUser(ctx, ev)
	if err != nil {
		return err
	}

	switch ev.Kind {
	case KindSubscription:
		return p.applySubscription(ctx, user, ev)
	case KindPaymentSucceeded:
		if err := p.recordPayment(ctx, user, ev, model.PaymentPaid); err != nil {
			return err
		}
		return p.reactivate(ctx, ev.SubscriptionID)
	case KindPaymentFailed:
		if err := p.recordPayment(ctx, user, ev, model.PaymentFailed); err != nil {
			return err
		}
		if ev.SubscriptionID == "" {
			return nil
		}
		if _, err := p.st.Subscriptions.UpdateStatus(ctx, ev.SubscriptionID, model.SubscriptionPastDue); err != nil {
			return err
		}
		return nil
	case KindPaymentRefunded:
		return p.recordPayment(ctx, user, ev, model.PaymentRefunded)
	}
	return nil
}

// resolveUser finds the user an event belongs to: by explicit id, then the
// provider customer id, then the provider subscription, then email. A user
// known only by email is created.
func (p *Processor) resolveUser(ctx context.Context, ev Event) (*model.User, error) {
	var (
		user *model.User
		err  error
	)
	if ev.UserID != "" {
		if user, err = p.st.Users.GetByID(ctx, ev.UserID); err != nil {
			return nil, err
		}
	}
	if user == nil && ev.CustomerID != "" {
		if user, err = p.st.Users.GetByCustomerID(ctx, ev.CustomerID); err != nil {
			return nil, err
		}
	}
	if user == nil && ev.SubscriptionID != "" {
		sub, err := p.st.Subscriptions.GetByProviderID(ctx, ev.SubscriptionID)
		if err != nil {
			return nil, err
		}
		if sub != nil {
			if user, err = p.st.Users.GetByID(ctx, sub.UserID); err != nil {
				return nil, err
			}
		}
	}
	if user == nil && ev.Email != "" {
		if user, err = p.st.Users.GetByEmail(ctx, ev.Email); err != nil {
			return nil, err
		}
		if user == nil {
			if user, err = p.st.Users.Create(ctx, model.UserCreate{Email: ev.Email}); err != nil {
				return nil, fmt.Errorf("create user from webhook: %w", err)
			}
			p.logger.Info("user created from webhook", "user_id", user.ID, "provider", ev.Provider)
		}
	}
	if user == nil {
		return nil, errNoUser
	}

	if ev.CustomerID != "" && (user.CustomerID == nil || *user.CustomerID != ev.CustomerID) {
		if err := p.st.Users.SetCustomerID(ctx, user.ID, ev.CustomerID); err != nil {
			return nil, err
		}
		user.CustomerID = &ev.CustomerID
	}
	return user, nil
}

func (p *Processor) applySubscription(ctx context.Context, user *model.User, ev Event) error {
	plan, err := p.resolvePlan(ctx, ev)
	if err != nil {
		return err
	}
	planID := ""
	if plan != nil {
		planID = plan.ID
	} else {
		current, err := p.st.Subscriptions.GetByUserID(ctx, user.ID)
		if err != nil {
			return err
		}
		if current == nil {
			return errNoPlan
		}
		planID = current.PlanID
	}

	in := model.SubscriptionCreate{
		UserID:            user.ID,
		PlanID:            planID,
		Status:            ev.Status,
		CurrentPeriodEnd:  ev.PeriodEnd,
		CancelAtPeriodEnd: ev.CancelAtPeriodEnd,
	}
	if ev.SubscriptionID != "" {
		in.ProviderSubscriptionID = &ev.SubscriptionID
	}
	if _, err := p.st.Subscriptions.Upsert(ctx, in); err != nil {
		return err
	}
	return nil
}

func (p *Processor) resolvePlan(ctx context.Context, ev Event) (*model.Plan, error) {
	switch {
	case ev.VariantID != "":
		return p.st.Plans.GetByVariantID(ctx, ev.VariantID)
	case ev.PriceID != "":
		return p.st.Plans.GetByStripePriceID(ctx, ev.PriceID)
	}
	return nil, nil
}

// recordPayment appends a payment, or moves an already recorded payment with
// the same provider id to status.
func (p *Processor) recordPayment(ctx context.Context, user *model.User, ev Event, status model.PaymentStatus) error {
	if ev.PaymentID == "" {
		return fmt.Errorf("%w: payment without id", ErrInvalidPayload)
	}
	existing, err := p.st.Payments.GetByProviderID(ctx, ev.PaymentID)
	if err != nil {
		return err
	}
	if existing != nil {
		if existing.Status == status {
			return nil
		}
		if _, err := p.st.Payments.UpdateStatus(ctx, ev.PaymentID, status); err != nil {
			return err
		}
		p.notify(ctx, user, existing.Amount, existing.Currency, status)
		return nil
	}

	in := model.PaymentCreate{
		UserID:            user.ID,
		Amount:            ev.Amount,
		Currency:          ev.Currency,
		Method:            ev.Method,
		Status:            status,
		ProviderPaymentID: &ev.PaymentID,
	}
	if in.Currency == "" {
		in.Currency = "USD"
	}
	if in.Method == "" {
		in.Method = model.PaymentOther
	}
	if ev.SubscriptionID != "" {
		sub, err := p.st.Subscriptions.GetByProviderID(ctx, ev.SubscriptionID)
		if err != nil {
			return err
		}
		if sub != nil {
			in.SubscriptionID = &sub.ID
		}
	}
	_, err = p.st.Payments.Create(ctx, in)
	if errors.Is(err, store.ErrConflict) {
		// Concurrent delivery of the same payment.
		return nil
	}
	if err != nil {
		return err
	}
	p.notify(ctx, user, in.Amount, in.Currency, status)
	return nil
}

func (p *Processor) notify(ctx context.Context, user *model.User, amount float64, currency string, status model.PaymentStatus) {
	if p.notifier == nil {
		return
	}
	var err error
	switch status {
	case model.PaymentPaid:
		err = p.notifier.PaymentReceived(ctx, user.Email, amount, currency)
	case model.PaymentFailed:
		err = p.notifier.PaymentFailed(ctx, user.Email, amount, currency)
	default:
		return
	}
	if err != nil {
		p.logger.Warn("payment notice not sent", "user_id", user.ID, "status", status, "error", err)
	}
}

// reactivate returns a subscription that fell behind on payments to ACTIVE.
func (p *Processor) reactivate(ctx context.Context, providerID string) error {
	if providerID == "" {
		return nil
	}
	sub, err := p.st.Subscriptions.GetByProviderID(ctx, providerID)
	if err != nil || sub == nil {
		return err
	}
	if sub.Status != model.SubscriptionPastDue && sub.Status != model.SubscriptionUnpaid {
		return nil
	}
	_, err = p.st.Subscriptions.UpdateStatus(ctx, providerID, model.SubscriptionActive)
	return err
}
