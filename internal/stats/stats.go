// Package stats rolls daily activity up into DailyStat rows.
package stats

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/selpix/selpix/internal/model"
	"github.com/selpix/selpix/internal/query"
	"github.com/selpix/selpix/internal/store"
)

const dateLayout = "2006-01-02"

type Stores struct {
	Products      *store.ProductStore
	Registrations *store.RegistrationStore
	Margins       *store.MarginStore
	Activity      *store.ActivityLogStore
	Daily         *store.DailyStatStore
}

type Roller struct {
	st Stores
}

func NewRoller(st Stores) *Roller {
	return &Roller{st: st}
}

// Rollup recomputes the statistics of the UTC day containing day and
// stores them, replacing an earlier rollup of the same date.
func (r *Roller) Rollup(ctx context.Context, day time.Time) (*model.DailyStat, error) {
	day = day.UTC()
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)
	span := &query.Filter[time.Time]{Gte: &start, Lt: &end}

	in := model.DailyStatCreate{Date: start.Format(dateLayout)}
	var err error

	if in.ProductCount, err = r.st.Products.Count(ctx, &model.ProductWhere{CreatedAt: span}); err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	regs, err := r.st.Registrations.Aggregate(ctx, query.AggregateArgs[model.RegistrationWhere]{
		Where:         &model.RegistrationWhere{CreatedAt: span},
		AggregateSpec: query.AggregateSpec{Count: true, Sum: query.Fields{"price"}},
	})
	if err != nil {
		return nil, fmt.Errorf("aggregate registrations: %w", err)
	}
	in.RegistrationCount = regs.Count
	in.Revenue = value(regs.Sum, "price")

	margins, err := r.st.Margins.Aggregate(ctx, query.AggregateArgs[model.MarginWhere]{
		Where:         &model.MarginWhere{CalculatedAt: span},
		AggregateSpec: query.AggregateSpec{Sum: query.Fields{"netMargin"}, Avg: query.Fields{"marginRate"}},
	})
	if err != nil {
		return nil, fmt.Errorf("aggregate margins: %w", err)
	}
	in.TotalMargin = value(margins.Sum, "netMargin")
	in.AvgMarginRate = math.Round(value(margins.Avg, "marginRate")*100) / 100

	if in.ActivityCount, err = r.st.Activity.Count(ctx, &model.ActivityLogWhere{Timestamp: span}); err != nil {
		return nil, fmt.Errorf("count activity: %w", err)
	}
	failed := model.ActivityFailed
	in.FailedCount, err = r.st.Activity.Count(ctx, &model.ActivityLogWhere{
		Timestamp: span,
		Status:    &query.StringFilter{Equals: &failed},
	})
	if err != nil {
		return nil, fmt.Errorf("count failed activity: %w", err)
	}

	return r.st.Daily.Upsert(ctx, in)
}

func value(m map[string]*float64, field string) float64 {
	if v := m[field]; v != nil {
		return *v
	}
	return 0
}

// Worker rolls up today and yesterday on an interval. Yesterday is repeated
// so rows written just before midnight are counted.
type Worker struct {
	mu       sync.Mutex
	roller   *Roller
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewWorker(r *Roller, interval time.Duration, logger *slog.Logger) *Worker {
	return &Worker{
		roller:   r,
		interval: interval,
		logger:   logger.With("component", "stats"),
		now:      time.Now,
	}
}

// Start runs one rollup before returning and then one per interval until
// Stop is called or ctx ends.
func (w *Worker) Start(ctx context.Context) {
	w.Tick(ctx)

	w.mu.Lock()
	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	w.mu.Unlock()

	go func() {
		defer close(w.done)
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.Tick(ctx)
			}
		}
	}()
}

func (w *Worker) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (w *Worker) Tick(ctx context.Context) {
	today := w.now().UTC()
	for _, day := range []time.Time{today.AddDate(0, 0, -1), today} {
		stat, err := w.roller.Rollup(ctx, day)
		if err != nil {
			w.logger.Error("rollup failed", "date", day.Format(dateLayout), "error", err)
			continue
		}
		w.logger.Debug("rollup done", "date", stat.Date, "products", stat.ProductCount, "activity", stat.ActivityCount)
	}
}
