package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/selpix/selpix/internal/auth"
	"github.com/selpix/selpix/internal/model"
	"github.com/selpix/selpix/internal/schema"
	"github.com/selpix/selpix/internal/store"
)

type AuthHandler struct {
	userStore    *store.UserStore
	subStore     *store.SubscriptionStore
	paymentStore *store.PaymentStore
	tokens       *auth.Tokens
	logger       *slog.Logger
}

func NewAuthHandler(us *store.UserStore, ss *store.SubscriptionStore, ps *store.PaymentStore, tokens *auth.Tokens, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		userStore:    us,
		subStore:     ss,
		paymentStore: ps,
		tokens:       tokens,
		logger:       logger.With("component", "auth"),
	}
}

type registerRequest struct {
	Email    string  `json:"email" validate:"required,email,max=320"`
	Password string  `json:"password" validate:"required,min=8,max=72"`
	Name     *string `json:"name,omitempty" validate:"omitempty,max=100"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      *model.User `json:"user"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := schema.Decode(r.Body, &req); err != nil {
		fail(w, h.logger, "register", err)
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := h.userStore.Create(r.Context(), model.UserCreate{Email: email, Name: req.Name, Password: &req.Password})
	if errors.Is(err, store.ErrConflict) {
		writeError(w, http.StatusConflict, "email already registered")
		return
	}
	if err != nil {
		fail(w, h.logger, "register", err)
		return
	}
	h.logger.Info("user registered", "user_id", user.ID)
	h.respondToken(w, http.StatusCreated, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := schema.Decode(r.Body, &req); err != nil {
		fail(w, h.logger, "login", err)
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := h.userStore.Authenticate(r.Context(), email, req.Password)
	if err != nil {
		fail(w, h.logger, "login", err)
		return
	}
	if user == nil {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	h.respondToken(w, http.StatusOK, user)
}

func (h *AuthHandler) respondToken(w http.ResponseWriter, status int, user *model.User) {
	token, exp, err := h.tokens.Issue(user)
	if err != nil {
		h.logger.Error("issue token", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	writeJSON(w, status, tokenResponse{Token: token, ExpiresAt: exp, User: user})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.userStore.Get(r.Context(), auth.UserID(r.Context()), model.UserInclude{Subscription: true})
	if err != nil {
		fail(w, h.logger, "get user", err)
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) MySubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := h.subStore.GetByUserID(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		fail(w, h.logger, "get subscription", err)
		return
	}
	if sub == nil {
		writeError(w, http.StatusNotFound, "no subscription")
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *AuthHandler) MyPayments(w http.ResponseWriter, r *http.Request) {
	pays, err := h.paymentStore.ListByUser(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		fail(w, h.logger, "list payments", err)
		return
	}
	if pays == nil {
		pays = []model.PaymentHistory{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": pays})
}
