package server

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/selpix/selpix/internal/billing"
	"github.com/selpix/selpix/internal/config"
	"github.com/selpix/selpix/internal/database"
	"github.com/selpix/selpix/internal/logging"
	"github.com/selpix/selpix/internal/model"
	"github.com/selpix/selpix/internal/store"
)

const lemonSecret = "lemon-secret"

func setupServer(t *testing.T) (http.Handler, *database.DB) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{Port: "8080"}
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.TokenTTL = time.Hour
	cfg.Auth.RateLimit = 10
	cfg.Auth.RateWindow = time.Minute
	cfg.Billing.LemonSigningSecret = lemonSecret
	cfg.Billing.RetryLimit = 5

	srv := New(db, cfg, logging.New(io.Discard, "error", "text"))
	return srv.Router(), db
}

func send(t *testing.T, h http.Handler, method, path, token, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	for k, vs := range header {
		req.Header[k] = vs
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h, _ := setupServer(t)
	rec := send(t, h, "GET", "/health", "", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("body = %s", rec.Body)
	}
}

func TestAccountAndWebhookFlow(t *testing.T) {
	h, db := setupServer(t)

	if _, err := store.NewPlanStore(db).Create(context.Background(), model.PlanCreate{
		Name: "MAX5", Title: "Max 5x", Price: 100, Currency: "USD",
		LemonSqueezyProductID: "p1", LemonSqueezyVariantID: "v5",
	}); err != nil {
		t.Fatalf("create plan: %v", err)
	}

	if rec := send(t, h, "GET", "/api/me", "", "", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous /api/me = %d, want 401", rec.Code)
	}

	rec := send(t, h, "POST", "/api/auth/register", "", `{"email":"Seller@Example.com","password":"correct horse"}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register = %d, body %s", rec.Code, rec.Body)
	}
	var reg struct {
		Token string     `json:"token"`
		User  model.User `json:"user"`
	}
	json.NewDecoder(rec.Body).Decode(&reg)
	if reg.Token == "" || reg.User.Email != "seller@example.com" {
		t.Fatalf("register response = %+v", reg)
	}

	if rec := send(t, h, "POST", "/api/auth/register", "", `{"email":"seller@example.com","password":"another one"}`, nil); rec.Code != http.StatusConflict {
		t.Errorf("duplicate register = %d, want 409", rec.Code)
	}
	if rec := send(t, h, "POST", "/api/auth/login", "", `{"email":"seller@example.com","password":"wrong password"}`, nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("bad login = %d, want 401", rec.Code)
	}
	rec = send(t, h, "POST", "/api/auth/login", "", `{"email":"seller@example.com","password":"correct horse"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login = %d", rec.Code)
	}

	rec = send(t, h, "GET", "/api/me", reg.Token, "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "seller@example.com") {
		t.Fatalf("/api/me = %d, body %s", rec.Code, rec.Body)
	}
	if rec := send(t, h, "GET", "/api/me/subscription", reg.Token, "", nil); rec.Code != http.StatusNotFound {
		t.Errorf("subscription before webhook = %d, want 404", rec.Code)
	}
	if rec := send(t, h, "GET", "/api/users", reg.Token, "", nil); rec.Code != http.StatusForbidden {
		t.Errorf("member /api/users = %d, want 403", rec.Code)
	}

	body, _ := json.Marshal(map[string]any{
		"meta": map[string]any{"event_name": "subscription_created"},
		"data": map[string]any{"type": "subscriptions", "id": 42, "attributes": map[string]any{
			"customer_id": 7, "variant_id": "v5", "status": "active", "user_email": "seller@example.com",
		}},
	})
	signed := http.Header{}
	signed.Set("X-Signature", hex.EncodeToString(billing.NewLemonSqueezy(lemonSecret).Sign(body)))

	rec = send(t, h, "POST", "/webhooks/lemonsqueezy", "", string(body), signed)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "processed") {
		t.Fatalf("webhook = %d, body %s", rec.Code, rec.Body)
	}
	rec = send(t, h, "POST", "/webhooks/lemonsqueezy", "", string(body), signed)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "duplicate") {
		t.Errorf("redelivery = %d, body %s", rec.Code, rec.Body)
	}

	forged := http.Header{}
	forged.Set("X-Signature", strings.Repeat("0", 64))
	if rec := send(t, h, "POST", "/webhooks/lemonsqueezy", "", string(body), forged); rec.Code != http.StatusUnauthorized {
		t.Errorf("forged webhook = %d, want 401", rec.Code)
	}
	if rec := send(t, h, "POST", "/webhooks/paddle", "", string(body), signed); rec.Code != http.StatusNotFound {
		t.Errorf("unknown provider = %d, want 404", rec.Code)
	}

	rec = send(t, h, "GET", "/api/me/subscription", reg.Token, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("subscription = %d", rec.Code)
	}
	var sub model.Subscription
	json.NewDecoder(rec.Body).Decode(&sub)
	if sub.Status != model.SubscriptionActive || sub.Plan == nil || sub.Plan.Name != "MAX5" {
		t.Errorf("subscription = %+v", sub)
	}
}

func TestLoginRateLimit(t *testing.T) {
	h, _ := setupServer(t)
	body := `{"email":"nobody@example.com","password":"whatever1"}`
	for i := range 10 {
		if rec := send(t, h, "POST", "/api/auth/login", "", body, nil); rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d = %d, want 401", i+1, rec.Code)
		}
	}
	rec := send(t, h, "POST", "/api/auth/login", "", body, nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("11th attempt = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}

	for i := range 3 {
		forged := http.Header{}
		forged.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i+1))
		forged.Set("CF-Connecting-IP", fmt.Sprintf("198.51.100.%d", i+1))
		if rec := send(t, h, "POST", "/api/auth/login", "", body, forged); rec.Code != http.StatusTooManyRequests {
			t.Errorf("forged forwarding header %d = %d, want 429", i+1, rec.Code)
		}
	}
}

func TestWebSocketRequiresAuth(t *testing.T) {
	h, _ := setupServer(t)
	if rec := send(t, h, "GET", "/ws", "", "", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous /ws = %d, want 401", rec.Code)
	}
}
