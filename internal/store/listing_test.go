package store

import (
	"context"
	"testing"
	"time"

	"github.com/selpix/selpix/internal/model"
	"github.com/selpix/selpix/internal/query"
)

func TestMarginAggregateByPlatform(t *testing.T) {
	db := setupTestDB(t)
	ms := NewMarginStore(db)
	ctx := context.Background()

	for _, m := range []model.MarginCreate{
		{ProductName: "a", SellingPrice: 10000, NetMargin: 2000, MarginRate: 20, Platform: model.PlatformRocket},
		{ProductName: "b", SellingPrice: 20000, NetMargin: 6000, MarginRate: 30, Platform: model.PlatformRocket},
		{ProductName: "c", SellingPrice: 5000, NetMargin: 500, MarginRate: 10, Platform: model.PlatformWing},
	} {
		if _, err := ms.Create(ctx, m); err != nil {
			t.Fatalf("create margin: %v", err)
		}
	}

	agg, err := ms.Aggregate(ctx, query.AggregateArgs[model.MarginWhere]{
		Where: &model.MarginWhere{Platform: query.Eq(model.PlatformRocket)},
		AggregateSpec: query.AggregateSpec{
			Count: true,
			Sum:   query.Fields{"netMargin"},
			Avg:   query.Fields{"marginRate"},
		},
	})
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if agg.Count != 2 || *agg.Sum["netMargin"] != 8000 || *agg.Avg["marginRate"] != 25 {
		t.Errorf("aggregate = %+v", agg)
	}

	_, err = ms.Aggregate(ctx, query.AggregateArgs[model.MarginWhere]{
		AggregateSpec: query.AggregateSpec{Sum: query.Fields{"productName"}},
	})
	if err == nil {
		t.Error("expected error aggregating a non-numeric field")
	}
}

func TestMarginIncludeProduct(t *testing.T) {
	db := setupTestDB(t)
	ps := NewProductStore(db)
	ms := NewMarginStore(db)
	ctx := context.Background()

	p, _ := ps.Create(ctx, model.ProductCreate{Name: "mouse", WholesalePrice: 1000, RecommendedPrice: 2500})
	linked, _ := ms.Create(ctx, model.MarginCreate{ProductID: &p.ID, ProductName: "mouse", Platform: model.PlatformWing})
	loose, _ := ms.Create(ctx, model.MarginCreate{ProductName: "ad hoc", Platform: model.PlatformWing})

	got, err := ms.Get(ctx, linked.ID, model.MarginInclude{Product: true})
	if err != nil || got.Product == nil || got.Product.Name != "mouse" {
		t.Errorf("linked = %+v, %v", got, err)
	}
	got, err = ms.Get(ctx, loose.ID, model.MarginInclude{Product: true})
	if err != nil || got.Product != nil {
		t.Errorf("loose = %+v, %v", got, err)
	}
}

func TestDetailPageLists(t *testing.T) {
	db := setupTestDB(t)
	ds := NewDetailPageStore(db)
	ctx := context.Background()

	d, err := ds.Create(ctx, model.DetailPageCreate{ProductName: "mouse", Keywords: []string{"mouse", "wireless"}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if d.USPs == nil || len(d.USPs) != 0 {
		t.Errorf("usps = %v, want empty list", d.USPs)
	}
	if len(d.Keywords) != 2 {
		t.Errorf("keywords = %v", d.Keywords)
	}

	usps := []string{"quiet", "light"}
	upd, err := ds.Update(ctx, d.ID, model.DetailPageUpdate{USPs: &usps, ProductID: query.SetNull[int64]()})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(upd.USPs) != 2 || upd.USPs[1] != "light" {
		t.Errorf("usps = %v", upd.USPs)
	}
}

func TestRegistrationDefaultsAndCountByStatus(t *testing.T) {
	db := setupTestDB(t)
	rs := NewRegistrationStore(db)
	ctx := context.Background()

	r, err := rs.Create(ctx, model.RegistrationCreate{ProductName: "mouse", Price: 12900, WholesalePrice: 4200})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if r.Status != model.RegistrationPending || r.Platform != model.MarketplaceCoupang {
		t.Errorf("registration = %+v, want PENDING on COUPANG", r)
	}
	if _, err := rs.Create(ctx, model.RegistrationCreate{ProductName: "pad", Status: model.RegistrationRegistered}); err != nil {
		t.Fatalf("create: %v", err)
	}

	status := model.RegistrationRegistered
	before := r.UpdatedAt
	freezeTime(t, before.Add(time.Minute))
	upd, err := rs.Update(ctx, r.ID, model.RegistrationUpdate{Status: &status})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !upd.UpdatedAt.After(before) {
		t.Errorf("updatedAt = %v, want after %v", upd.UpdatedAt, before)
	}

	counts, err := rs.CountByStatus(ctx)
	if err != nil {
		t.Fatalf("count by status: %v", err)
	}
	if counts[model.RegistrationRegistered] != 2 || counts[model.RegistrationPending] != 0 || counts[model.RegistrationFailed] != 0 {
		t.Errorf("counts = %v", counts)
	}
}
