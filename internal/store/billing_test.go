package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/selpix/selpix/internal/database"
	"github.com/selpix/selpix/internal/model"
	"github.com/selpix/selpix/internal/query"
)

type billingStores struct {
	users    *UserStore
	plans    *PlanStore
	subs     *SubscriptionStore
	payments *PaymentStore
	events   *WebhookEventStore
}

func setupBillingTestDB(t *testing.T) (*database.DB, billingStores) {
	t.Helper()
	db := setupTestDB(t)
	return db, billingStores{
		users:    NewUserStore(db),
		plans:    NewPlanStore(db),
		subs:     NewSubscriptionStore(db),
		payments: NewPaymentStore(db),
		events:   NewWebhookEventStore(db),
	}
}

func testPlan(name, variant string) model.PlanCreate {
	return model.PlanCreate{
		Name:                  name,
		Title:                 name + " plan",
		Price:                 9.99,
		Currency:              "USD",
		LemonSqueezyProductID: "prod_1",
		LemonSqueezyVariantID: variant,
		Content:               []string{"5 searches a day"},
	}
}

func TestPlanCreateAndLookups(t *testing.T) {
	_, s := setupBillingTestDB(t)
	ctx := context.Background()

	in := testPlan("MAX5", "var_5")
	in.ID = "plan_max5"
	in.StripePriceID = ptr("price_5")
	p, err := s.plans.Create(ctx, in)
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}
	if p.ID != "plan_max5" {
		t.Errorf("id = %q, want plan_max5", p.ID)
	}
	if !p.Available {
		t.Error("expected plan to be available by default")
	}
	if len(p.Content) != 1 || p.Content[0] != "5 searches a day" {
		t.Errorf("content = %v", p.Content)
	}

	for name, get := range map[string]func() (*model.Plan, error){
		"name":    func() (*model.Plan, error) { return s.plans.GetByName(ctx, "MAX5") },
		"variant": func() (*model.Plan, error) { return s.plans.GetByVariantID(ctx, "var_5") },
		"price":   func() (*model.Plan, error) { return s.plans.GetByStripePriceID(ctx, "price_5") },
	} {
		got, err := get()
		if err != nil || got == nil || got.ID != "plan_max5" {
			t.Errorf("get by %s = %v, %v", name, got, err)
		}
	}

	if _, err := s.plans.Create(ctx, testPlan("MAX5", "var_other")); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate name err = %v, want ErrConflict", err)
	}
}

func TestPlanUpsert(t *testing.T) {
	_, s := setupBillingTestDB(t)
	ctx := context.Background()

	first, err := s.plans.Upsert(ctx, testPlan("FREE", "var_free"))
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	in := testPlan("FREE", "var_free")
	in.Price = 0
	in.Content = []string{"1 search a day", "community support"}
	second, err := s.plans.Upsert(ctx, in)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("id changed from %s to %s", first.ID, second.ID)
	}
	if second.Price != 0 || len(second.Content) != 2 {
		t.Errorf("plan = %+v", second)
	}
	if n, _ := s.plans.Count(ctx, nil); n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestSubscriptionUpsert(t *testing.T) {
	_, s := setupBillingTestDB(t)
	ctx := context.Background()

	u, err := s.users.Create(ctx, model.UserCreate{Email: "alice@example.com"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	free, _ := s.plans.Create(ctx, testPlan("FREE", "var_free"))
	pro, _ := s.plans.Create(ctx, testPlan("MAX5", "var_5"))

	end := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	sub, err := s.subs.Upsert(ctx, model.SubscriptionCreate{
		UserID:                 u.ID,
		PlanID:                 free.ID,
		ProviderSubscriptionID: ptr("ls_sub_1"),
		CurrentPeriodEnd:       &end,
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if sub.Status != model.SubscriptionActive {
		t.Errorf("status = %s, want ACTIVE", sub.Status)
	}
	if sub.Plan == nil || sub.Plan.Name != "FREE" {
		t.Errorf("plan = %+v, want FREE loaded", sub.Plan)
	}

	sub2, err := s.subs.Upsert(ctx, model.SubscriptionCreate{
		UserID: u.ID,
		PlanID: pro.ID,
		Status: model.SubscriptionCancelled,
	})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if sub2.ID != sub.ID {
		t.Errorf("expected the single subscription to be updated in place")
	}
	if sub2.PlanID != pro.ID || sub2.Status != model.SubscriptionCancelled {
		t.Errorf("sub = %+v", sub2)
	}
	if sub2.ProviderSubscriptionID == nil || *sub2.ProviderSubscriptionID != "ls_sub_1" {
		t.Errorf("provider id = %v, want kept", sub2.ProviderSubscriptionID)
	}
	if sub2.CurrentPeriodEnd == nil || !sub2.CurrentPeriodEnd.Equal(end) {
		t.Errorf("period end = %v, want %v", sub2.CurrentPeriodEnd, end)
	}
	if sub2.CancelledAt == nil {
		t.Error("expected cancelledAt to be stamped")
	}

	sub3, err := s.subs.Upsert(ctx, model.SubscriptionCreate{UserID: u.ID, PlanID: pro.ID})
	if err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	if sub3.CancelledAt != nil {
		t.Error("expected cancelledAt to be cleared on reactivation")
	}
}

func TestSubscriptionUpdateStatus(t *testing.T) {
	_, s := setupBillingTestDB(t)
	ctx := context.Background()

	u, _ := s.users.Create(ctx, model.UserCreate{Email: "alice@example.com"})
	p, _ := s.plans.Create(ctx, testPlan("FREE", "var_free"))
	if _, err := s.subs.Create(ctx, model.SubscriptionCreate{UserID: u.ID, PlanID: p.ID, ProviderSubscriptionID: ptr("sub_1")}); err != nil {
		t.Fatalf("create: %v", err)
	}

	ok, err := s.subs.UpdateStatus(ctx, "sub_1", model.SubscriptionPastDue)
	if err != nil || !ok {
		t.Fatalf("update status = %v, %v", ok, err)
	}
	got, err := s.subs.GetByProviderID(ctx, "sub_1")
	if err != nil || got == nil {
		t.Fatalf("get by provider id = %v, %v", got, err)
	}
	if got.Status != model.SubscriptionPastDue {
		t.Errorf("status = %s, want PAST_DUE", got.Status)
	}

	ok, err = s.subs.UpdateStatus(ctx, "sub_missing", model.SubscriptionExpired)
	if err != nil || ok {
		t.Errorf("missing update = %v, %v, want false", ok, err)
	}
}

func TestUserIncludeSubscriptionAndPayments(t *testing.T) {
	_, s := setupBillingTestDB(t)
	ctx := context.Background()

	u, _ := s.users.Create(ctx, model.UserCreate{Email: "alice@example.com"})
	p, _ := s.plans.Create(ctx, testPlan("FREE", "var_free"))
	sub, err := s.subs.Create(ctx, model.SubscriptionCreate{UserID: u.ID, PlanID: p.ID})
	if err != nil {
		t.Fatalf("create sub: %v", err)
	}
	for _, id := range []string{"pay_1", "pay_2"} {
		_, err := s.payments.Create(ctx, model.PaymentCreate{
			UserID:            u.ID,
			SubscriptionID:    &sub.ID,
			Amount:            9.99,
			Currency:          "USD",
			Method:            model.PaymentCard,
			Status:            model.PaymentPaid,
			ProviderPaymentID: ptr(id),
		})
		if err != nil {
			t.Fatalf("create payment: %v", err)
		}
	}

	got, err := s.users.Get(ctx, u.ID, model.UserInclude{Subscription: true, Payments: true})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Subscription == nil || got.Subscription.ID != sub.ID {
		t.Errorf("subscription = %+v", got.Subscription)
	}
	if len(got.Payments) != 2 {
		t.Errorf("payments = %d, want 2", len(got.Payments))
	}

	withSub, err := s.users.FindMany(ctx, query.FindArgs[model.UserWhere]{
		Where: &model.UserWhere{Subscription: &query.Relation[model.SubscriptionWhere]{
			Some: &model.SubscriptionWhere{Status: query.Eq(model.SubscriptionActive)},
		}},
	}, model.UserInclude{})
	if err != nil || len(withSub.Items) != 1 {
		t.Errorf("users with active subscription = %v, %v", withSub, err)
	}
}

func TestPaymentStatusAndList(t *testing.T) {
	_, s := setupBillingTestDB(t)
	ctx := context.Background()

	u, _ := s.users.Create(ctx, model.UserCreate{Email: "alice@example.com"})
	pay, err := s.payments.Create(ctx, model.PaymentCreate{
		UserID:            u.ID,
		Amount:            19,
		Currency:          "USD",
		Method:            model.PaymentCard,
		Status:            model.PaymentPending,
		ProviderPaymentID: ptr("pi_1"),
	})
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}
	if pay.PaidAt != nil {
		t.Error("pending payment should not have paidAt")
	}

	ok, err := s.payments.UpdateStatus(ctx, "pi_1", model.PaymentPaid)
	if err != nil || !ok {
		t.Fatalf("update status = %v, %v", ok, err)
	}
	got, _ := s.payments.GetByProviderID(ctx, "pi_1")
	if got == nil || got.Status != model.PaymentPaid || got.PaidAt == nil {
		t.Errorf("payment = %+v, want PAID with paidAt", got)
	}

	_, err = s.payments.Create(ctx, model.PaymentCreate{
		UserID: u.ID, Amount: 19, Currency: "USD", Method: model.PaymentCard,
		Status: model.PaymentPaid, ProviderPaymentID: ptr("pi_1"),
	})
	if !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate provider id err = %v, want ErrConflict", err)
	}

	list, err := s.payments.ListByUser(ctx, u.ID)
	if err != nil || len(list) != 1 {
		t.Errorf("list = %v, %v", list, err)
	}
	empty, err := s.payments.ListByUser(ctx, "nobody")
	if err != nil || empty == nil || len(empty) != 0 {
		t.Errorf("empty list = %v, %v", empty, err)
	}

	agg, err := s.payments.Aggregate(ctx, query.AggregateArgs[model.PaymentWhere]{
		AggregateSpec: query.AggregateSpec{Count: true, Sum: query.Fields{"amount"}},
	})
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if agg.Count != 1 || agg.Sum["amount"] == nil || *agg.Sum["amount"] != 19 {
		t.Errorf("aggregate = %+v", agg)
	}
}

func TestWebhookEventLifecycle(t *testing.T) {
	_, s := setupBillingTestDB(t)
	ctx := context.Background()

	in := model.WebhookEventCreate{
		Provider:  "lemonsqueezy",
		EventID:   "evt_1",
		EventName: "subscription_created",
		Payload:   json.RawMessage(`{"meta":{"event_name":"subscription_created"}}`),
	}
	ev, existed, err := s.events.Record(ctx, in)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if existed {
		t.Error("first delivery reported as existing")
	}
	if string(ev.Payload) != string(in.Payload) {
		t.Errorf("payload = %s", ev.Payload)
	}

	again, existed, err := s.events.Record(ctx, in)
	if err != nil || !existed || again.ID != ev.ID {
		t.Fatalf("redelivery = %v, %v, %v", again, existed, err)
	}

	if err := s.events.MarkFailed(ctx, ev.ID, errors.New("plan not found")); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	retry, err := s.events.ListRetryable(ctx, 10, 3)
	if err != nil || len(retry) != 1 {
		t.Fatalf("retryable = %v, %v", retry, err)
	}
	if retry[0].Attempts != 1 || retry[0].LastError == nil || *retry[0].LastError != "plan not found" {
		t.Errorf("event = %+v", retry[0])
	}
	if retry, _ := s.events.ListRetryable(ctx, 10, 1); len(retry) != 0 {
		t.Errorf("expected no events below 1 attempt, got %d", len(retry))
	}

	if err := s.events.MarkProcessed(ctx, ev.ID); err != nil {
		t.Fatalf("mark processed: %v", err)
	}
	done, _ := s.events.GetByID(ctx, ev.ID)
	if !done.Processed || done.ProcessedAt == nil || done.LastError != nil {
		t.Errorf("event = %+v, want processed", done)
	}
	if retry, _ := s.events.ListRetryable(ctx, 10, 3); len(retry) != 0 {
		t.Errorf("processed event still retryable")
	}

	n, err := s.events.DeleteProcessedBefore(ctx, time.Now().Add(-time.Hour))
	if err != nil || n != 0 {
		t.Errorf("prune recent = %d, %v, want 0", n, err)
	}
	n, err = s.events.DeleteProcessedBefore(ctx, time.Now().Add(time.Hour))
	if err != nil || n != 1 {
		t.Errorf("prune = %d, %v, want 1", n, err)
	}
}
