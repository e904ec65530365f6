package handler

import (
	"log/slog"
	"net/http"

	"github.com/selpix/selpix/internal/model"
	"github.com/selpix/selpix/internal/pricing"
	"github.com/selpix/selpix/internal/schema"
	"github.com/selpix/selpix/internal/store"
	"github.com/selpix/selpix/internal/websocket"
)

type PricingHandler struct {
	marginStore    *store.MarginStore
	wholesaleStore *store.WholesaleStore
	hub            *websocket.Hub
	logger         *slog.Logger
}

func NewPricingHandler(ms *store.MarginStore, ws *store.WholesaleStore, hub *websocket.Hub, logger *slog.Logger) *PricingHandler {
	return &PricingHandler{
		marginStore:    ms,
		wholesaleStore: ws,
		hub:            hub,
		logger:         logger.With("component", "pricing"),
	}
}

type calculateRequest struct {
	pricing.Input
	Save bool `json:"save"`
}

type calculateResponse struct {
	pricing.Result
	Margin *model.Margin `json:"margin,omitempty"`
}

// Calculate prices one sale and, when asked to, stores it as a margin.
func (h *PricingHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req calculateRequest
	if err := schema.Decode(r.Body, &req); err != nil {
		fail(w, h.logger, "calculate margin", err)
		return
	}
	res, err := pricing.Calculate(req.Input)
	if err != nil {
		fail(w, h.logger, "calculate margin", err)
		return
	}

	out := calculateResponse{Result: res}
	if req.Save {
		m, err := h.marginStore.Create(r.Context(), pricing.Margin(req.Input, res))
		if err != nil {
			fail(w, h.logger, "save margin", err)
			return
		}
		out.Margin = m
		if h.hub != nil {
			h.hub.Broadcast(websocket.NewMessage("margin", "created", m.ID, nil))
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *PricingHandler) Scenarios(w http.ResponseWriter, r *http.Request) {
	var in pricing.ScenarioInput
	if err := schema.Decode(r.Body, &in); err != nil {
		fail(w, h.logger, "price scenarios", err)
		return
	}
	set, err := pricing.Scenarios(in)
	if err != nil {
		fail(w, h.logger, "price scenarios", err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

// Profitability judges a stored wholesale search.
func (h *PricingHandler) Profitability(w http.ResponseWriter, r *http.Request) {
	id, err := intKey(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid wholesale_group id")
		return
	}
	g, err := h.wholesaleStore.GetGroup(r.Context(), id, model.WholesaleGroupInclude{Products: true})
	if err != nil {
		fail(w, h.logger, "get wholesale group", err)
		return
	}
	if g == nil {
		writeError(w, http.StatusNotFound, "wholesale_group not found")
		return
	}
	writeJSON(w, http.StatusOK, pricing.Analyze(*g))
}
