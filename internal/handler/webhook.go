package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/selpix/selpix/internal/billing"
	"github.com/selpix/selpix/internal/websocket"
)

const maxWebhookBody = 1 << 20

type WebhookHandler struct {
	processor *billing.Processor
	hub       *websocket.Hub
	logger    *slog.Logger
}

func NewWebhookHandler(p *billing.Processor, hub *websocket.Hub, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		processor: p,
		hub:       hub,
		logger:    logger.With("component", "webhook"),
	}
}

// Receive handles POST /webhooks/{provider}. Deliveries that were stored but
// could not be applied answer 500 so the provider sends them again.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	provider := r.PathValue("provider")
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	if len(body) > maxWebhookBody {
		writeError(w, http.StatusRequestEntityTooLarge, "body too large")
		return
	}

	rec, err := h.processor.Handle(r.Context(), provider, body, r.Header)
	switch {
	case errors.Is(err, billing.ErrDuplicateEvent):
		writeJSON(w, http.StatusOK, map[string]string{"status": "duplicate"})
		return
	case errors.Is(err, billing.ErrUnknownProvider):
		writeError(w, http.StatusNotFound, "unknown provider")
		return
	case errors.Is(err, billing.ErrInvalidSignature):
		h.logger.Warn("webhook signature rejected", "provider", provider, "remote", r.RemoteAddr)
		writeError(w, http.StatusUnauthorized, "invalid signature")
		return
	case errors.Is(err, billing.ErrInvalidPayload):
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	case err != nil:
		h.logger.Error("webhook not applied", "provider", provider, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to apply webhook")
		return
	}

	if h.hub != nil {
		h.hub.Broadcast(websocket.NewMessage("webhook_event", "processed", rec.ID, map[string]any{"event": rec.EventName}))
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "processed"})
}
