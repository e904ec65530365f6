package store

import (
	"testing"
	"time"

	"github.com/selpix/selpix/internal/database"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// freezeTime pins now() to ts for the rest of the test.
func freezeTime(t *testing.T, ts time.Time) {
	t.Helper()
	prev := now
	now = func() time.Time { return ts }
	t.Cleanup(func() { now = prev })
}

func ptr[T any](v T) *T { return &v }

func TestSingular(t *testing.T) {
	tests := map[string]string{
		"users":             "user",
		"payment_histories": "payment_history",
		"daily_stats":       "daily_stat",
		"webhook_events":    "webhook_event",
	}
	for in, want := range tests {
		if got := singular(in); got != want {
			t.Errorf("singular(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDecodeList(t *testing.T) {
	if got := decodeList(`["a","b"]`); len(got) != 2 || got[1] != "b" {
		t.Errorf("decodeList = %v", got)
	}
	if got := decodeList(`not json`); got == nil || len(got) != 0 {
		t.Errorf("malformed = %v, want empty list", got)
	}
	if got := decodeList(`null`); got == nil || len(got) != 0 {
		t.Errorf("null = %v, want empty list", got)
	}
}
