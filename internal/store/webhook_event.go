package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/selpix/selpix/internal/database"
	"github.com/selpix/selpix/internal/model"
	"github.com/selpix/selpix/internal/query"
)

type WebhookEventStore struct {
	db *database.DB
}

func NewWebhookEventStore(db *database.DB) *WebhookEventStore {
	return &WebhookEventStore{db: db}
}

const webhookEventCols = `id, provider, event_id, event_name, payload, processed, attempts, last_error, processed_at, created_at`

var webhookEventTable = query.Table{
	Name:    "webhook_events",
	PK:      "id",
	Columns: webhookEventCols,
	Sortable: map[string]string{
		"id":          "id",
		"eventName":   "event_name",
		"attempts":    "attempts",
		"processedAt": "processed_at",
		"createdAt":   "created_at",
	},
	Numeric:      map[string]string{"attempts": "attempts"},
	DefaultOrder: query.Order{Field: "createdAt", Direction: query.Desc},
}

func scanWebhookEvent(s scanner) (*model.WebhookEvent, error) {
	var e model.WebhookEvent
	var payload string
	var lastErr sql.NullString
	var processedAt sql.NullTime
	err := s.Scan(&e.ID, &e.Provider, &e.EventID, &e.EventName, &payload, &e.Processed, &e.Attempts,
		&lastErr, &processedAt, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.Payload = []byte(payload)
	e.LastError = nullString(lastErr)
	e.ProcessedAt = nullTime(processedAt)
	return &e, nil
}

// Record stores an incoming event. When the provider already delivered an
// event with the same id, the stored row is returned with existed set.
func (s *WebhookEventStore) Record(ctx context.Context, in model.WebhookEventCreate) (ev *model.WebhookEvent, existed bool, err error) {
	if ev, err = s.GetByEventID(ctx, in.Provider, in.EventID); err != nil || ev != nil {
		return ev, ev != nil, err
	}

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO webhook_events (id, provider, event_id, event_name, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`),
		id, in.Provider, in.EventID, in.EventName, string(in.Payload), now(),
	)
	if err != nil {
		err = writeErr("insert webhook event", err)
		if !errors.Is(err, ErrConflict) {
			return nil, false, err
		}
		// Lost a race with a concurrent delivery of the same event.
		ev, err = s.GetByEventID(ctx, in.Provider, in.EventID)
		return ev, true, err
	}
	ev, err = s.GetByID(ctx, id)
	return ev, false, err
}

func (s *WebhookEventStore) Create(ctx context.Context, in model.WebhookEventCreate) (*model.WebhookEvent, error) {
	ev, existed, err := s.Record(ctx, in)
	if err != nil {
		return nil, err
	}
	if existed {
		return nil, fmt.Errorf("insert webhook event: %w", ErrConflict)
	}
	return ev, nil
}

func (s *WebhookEventStore) GetByID(ctx context.Context, id string) (*model.WebhookEvent, error) {
	row := s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT `+webhookEventCols+` FROM webhook_events WHERE id = ?`), id)
	return getOne(row, scanWebhookEvent, "webhook event")
}

func (s *WebhookEventStore) GetByEventID(ctx context.Context, provider, eventID string) (*model.WebhookEvent, error) {
	row := s.db.QueryRowContext(ctx,
		s.db.Rebind(`SELECT `+webhookEventCols+` FROM webhook_events WHERE provider = ? AND event_id = ?`),
		provider, eventID)
	return getOne(row, scanWebhookEvent, "webhook event by event id")
}

func (s *WebhookEventStore) FindMany(ctx context.Context, args query.FindArgs[model.WebhookEventWhere]) (*query.Result[model.WebhookEvent], error) {
	return findMany(ctx, s.db, webhookEventTable, args.Where, args.OrderBy, args.Page, scanWebhookEvent,
		func(e model.WebhookEvent) string { return e.ID })
}

func (s *WebhookEventStore) Count(ctx context.Context, where *model.WebhookEventWhere) (int64, error) {
	return countRows(ctx, s.db, webhookEventTable, where)
}

func (s *WebhookEventStore) Aggregate(ctx context.Context, args query.AggregateArgs[model.WebhookEventWhere]) (*query.AggregateResult, error) {
	return webhookEventTable.Aggregate(ctx, s.db, s.db.Dialect, args.Where, args.AggregateSpec)
}

func (s *WebhookEventStore) Update(ctx context.Context, id string, in model.WebhookEventUpdate) (*model.WebhookEvent, error) {
	found, err := updateRow(ctx, s.db, "webhook_events", "id", id, in, nil)
	if err != nil || !found {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

func (s *WebhookEventStore) MarkProcessed(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		s.db.Rebind(`UPDATE webhook_events SET processed = ?, attempts = attempts + 1, last_error = NULL, processed_at = ? WHERE id = ?`),
		true, now(), id)
	if err != nil {
		return fmt.Errorf("mark webhook event processed: %w", err)
	}
	return nil
}

// MarkFailed counts a failed attempt and keeps its error for inspection.
func (s *WebhookEventStore) MarkFailed(ctx context.Context, id string, cause error) error {
	msg := cause.Error()
	_, err := s.db.ExecContext(ctx,
		s.db.Rebind(`UPDATE webhook_events SET attempts = attempts + 1, last_error = ? WHERE id = ?`),
		msg, id)
	if err != nil {
		return fmt.Errorf("mark webhook event failed: %w", err)
	}
	return nil
}

// ListRetryable returns unprocessed events with fewer than maxAttempts
// attempts, oldest first.
func (s *WebhookEventStore) ListRetryable(ctx context.Context, limit, maxAttempts int) ([]model.WebhookEvent, error) {
	evs, err := collect(ctx, s.db, s.db.Rebind(`
		SELECT `+webhookEventCols+` FROM webhook_events
		WHERE processed = ? AND attempts < ?
		ORDER BY created_at, id
		LIMIT ?`),
		[]any{false, int64(maxAttempts), int64(limit)}, scanWebhookEvent)
	if err != nil {
		return nil, fmt.Errorf("list retryable webhook events: %w", err)
	}
	return evs, nil
}

// DeleteProcessedBefore prunes processed events older than cutoff and
// returns how many were removed.
func (s *WebhookEventStore) DeleteProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		s.db.Rebind(`DELETE FROM webhook_events WHERE processed = ? AND processed_at < ?`),
		true, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune webhook events: %w", err)
	}
	return res.RowsAffected()
}

func (s *WebhookEventStore) Delete(ctx context.Context, id string) (bool, error) {
	return deleteRow(ctx, s.db, "webhook_events", "id", id)
}
