package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/selpix/selpix/internal/model"
	"github.com/selpix/selpix/internal/schema"
	"github.com/selpix/selpix/internal/stats"
	"github.com/selpix/selpix/internal/store"
	"github.com/selpix/selpix/internal/websocket"
)

const dateLayout = "2006-01-02"

type StatsHandler struct {
	roller        *stats.Roller
	dailyStore    *store.DailyStatStore
	productStore  *store.ProductStore
	regStore      *store.RegistrationStore
	activityStore *store.ActivityLogStore
	hub           *websocket.Hub
	logger        *slog.Logger
}

func NewStatsHandler(roller *stats.Roller, st stats.Stores, hub *websocket.Hub, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{
		roller:        roller,
		dailyStore:    st.Daily,
		productStore:  st.Products,
		regStore:      st.Registrations,
		activityStore: st.Activity,
		hub:           hub,
		logger:        logger.With("component", "stats"),
	}
}

// Daily lists rollups between the optional from and to dates, inclusive.
func (h *StatsHandler) Daily(w http.ResponseWriter, r *http.Request) {
	from, to := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	for _, d := range []string{from, to} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(dateLayout, d); err != nil {
			fail(w, h.logger, "list daily stats", fmt.Errorf("%w: date %q must be YYYY-MM-DD", errBadParam, d))
			return
		}
	}

	rows, err := h.dailyStore.Range(r.Context(), from, to)
	if err != nil {
		fail(w, h.logger, "list daily stats", err)
		return
	}
	if rows == nil {
		rows = []model.DailyStat{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": rows})
}

type rollupRequest struct {
	Date string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

// Rollup recomputes one day, today when no date is given.
func (h *StatsHandler) Rollup(w http.ResponseWriter, r *http.Request) {
	var req rollupRequest
	if r.ContentLength != 0 {
		if err := schema.Decode(r.Body, &req); err != nil {
			fail(w, h.logger, "rollup", err)
			return
		}
	}
	day := time.Now().UTC()
	if req.Date != "" {
		day, _ = time.Parse(dateLayout, req.Date)
	}

	stat, err := h.roller.Rollup(r.Context(), day)
	if err != nil {
		fail(w, h.logger, "rollup", err)
		return
	}
	if h.hub != nil {
		h.hub.Broadcast(websocket.NewMessage("daily_stat", "updated", stat.ID, map[string]any{"date": stat.Date}))
	}
	writeJSON(w, http.StatusOK, stat)
}

type summaryResponse struct {
	Products      int64                              `json:"products"`
	Registrations map[model.RegistrationStatus]int64 `json:"registrations"`
	Activity      map[string]int64                   `json:"activity"`
}

// Summary reports totals for the dashboard.
func (h *StatsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var (
		out summaryResponse
		err error
	)
	if out.Products, err = h.productStore.Count(ctx, nil); err != nil {
		fail(w, h.logger, "summarize", err)
		return
	}
	if out.Registrations, err = h.regStore.CountByStatus(ctx); err != nil {
		fail(w, h.logger, "summarize", err)
		return
	}
	if out.Activity, err = h.activityStore.CountByStatus(ctx); err != nil {
		fail(w, h.logger, "summarize", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
