package store

import (
	"context"
	"testing"
	"time"

	"github.com/selpix/selpix/internal/model"
	"github.com/selpix/selpix/internal/query"
)

func TestActivityLogCreateAndCount(t *testing.T) {
	db := setupTestDB(t)
	as := NewActivityLogStore(db)
	ctx := context.Background()

	ts := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	freezeTime(t, ts)

	for _, in := range []model.ActivityLogCreate{
		{Action: "crawl", Status: model.ActivitySuccess},
		{Action: "publish", ProductName: "mouse", Status: model.ActivityFailed, Details: ptr("timeout")},
		{Action: "publish", ProductName: "pad", Status: model.ActivityFailed, Price: ptr(9900.0)},
	} {
		if _, err := as.Create(ctx, in); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	counts, err := as.CountByStatus(ctx)
	if err != nil {
		t.Fatalf("count by status: %v", err)
	}
	if counts[model.ActivitySuccess] != 1 || counts[model.ActivityFailed] != 2 || counts[model.ActivityPending] != 0 {
		t.Errorf("counts = %v", counts)
	}

	res, err := as.FindMany(ctx, query.FindArgs[model.ActivityLogWhere]{
		Where: &model.ActivityLogWhere{Status: &query.StringFilter{In: []string{model.ActivitySuccess, model.ActivityFailed}}},
	})
	if err != nil {
		t.Fatalf("find many: %v", err)
	}
	if len(res.Items) != 3 {
		t.Errorf("items = %d, want 3", len(res.Items))
	}
	if !res.Items[0].Timestamp.Equal(ts) {
		t.Errorf("timestamp = %v, want %v", res.Items[0].Timestamp, ts)
	}
}

func TestDailyStatUpsertAndRange(t *testing.T) {
	db := setupTestDB(t)
	ds := NewDailyStatStore(db)
	ctx := context.Background()

	for _, date := range []string{"2025-03-01", "2025-03-02", "2025-03-03"} {
		if _, err := ds.Upsert(ctx, model.DailyStatCreate{Date: date, ProductCount: 1}); err != nil {
			t.Fatalf("upsert %s: %v", date, err)
		}
	}
	first, _ := ds.GetByDate(ctx, "2025-03-02")

	again, err := ds.Upsert(ctx, model.DailyStatCreate{Date: "2025-03-02", ProductCount: 7, Revenue: 12000})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if again.ID != first.ID || again.ProductCount != 7 || again.Revenue != 12000 {
		t.Errorf("upserted = %+v", again)
	}

	tests := []struct {
		name     string
		from, to string
		want     []string
	}{
		{"closed", "2025-03-02", "2025-03-03", []string{"2025-03-02", "2025-03-03"}},
		{"open start", "", "2025-03-01", []string{"2025-03-01"}},
		{"open end", "2025-03-03", "", []string{"2025-03-03"}},
		{"empty", "2025-04-01", "2025-04-30", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ds.Range(ctx, tt.from, tt.to)
			if err != nil {
				t.Fatalf("range: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("range = %d rows, want %d", len(got), len(tt.want))
			}
			for i, d := range got {
				if d.Date != tt.want[i] {
					t.Errorf("row %d date = %s, want %s", i, d.Date, tt.want[i])
				}
			}
		})
	}

	if _, err := ds.Create(ctx, model.DailyStatCreate{Date: "2025-03-01"}); err == nil {
		t.Error("expected conflict creating a duplicate date")
	}
}
