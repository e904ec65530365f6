package store

import (
	"context"
	"testing"

	"github.com/selpix/selpix/internal/model"
	"github.com/selpix/selpix/internal/query"
)

func TestProductCreateListed(t *testing.T) {
	db := setupTestDB(t)
	ps := NewProductStore(db)
	logs := NewActivityLogStore(db)
	ctx := context.Background()

	p, err := ps.CreateListed(ctx, model.ProductCreate{
		Name:             "wireless mouse",
		WholesalePrice:   4200,
		RecommendedPrice: 12900,
		Category:         "electronics",
	})
	if err != nil {
		t.Fatalf("create listed: %v", err)
	}
	if p.ID == 0 {
		t.Error("expected non-zero ID")
	}
	if len(p.Registrations) != 1 {
		t.Fatalf("registrations = %d, want 1", len(p.Registrations))
	}
	reg := p.Registrations[0]
	if reg.Status != model.RegistrationPending || reg.Platform != model.MarketplaceCoupang {
		t.Errorf("registration = %+v, want PENDING on COUPANG", reg)
	}
	if reg.Price != 12900 || reg.ProductName != "wireless mouse" {
		t.Errorf("registration = %+v", reg)
	}

	n, err := logs.Count(ctx, &model.ActivityLogWhere{Action: &query.StringFilter{Equals: ptr("product_created")}})
	if err != nil || n != 1 {
		t.Errorf("activity count = %d, %v, want 1", n, err)
	}
}

func TestProductGetIncludes(t *testing.T) {
	db := setupTestDB(t)
	ps := NewProductStore(db)
	ms := NewMarginStore(db)
	dps := NewDetailPageStore(db)
	ctx := context.Background()

	p, err := ps.Create(ctx, model.ProductCreate{Name: "mouse", WholesalePrice: 1000, RecommendedPrice: 2500})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := ms.Create(ctx, model.MarginCreate{
		ProductID: &p.ID, ProductName: "mouse", SellingPrice: 2500, WholesalePrice: 1000,
		NetMargin: 1230, MarginRate: 49.2, Platform: model.PlatformWing,
	}); err != nil {
		t.Fatalf("create margin: %v", err)
	}
	if _, err := dps.Create(ctx, model.DetailPageCreate{ProductID: &p.ID, ProductName: "mouse", USPs: []string{"silent click"}}); err != nil {
		t.Fatalf("create detail page: %v", err)
	}

	got, err := ps.Get(ctx, p.ID, model.ProductInclude{Margins: true, DetailPages: true, Registrations: true})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Margins) != 1 || got.Margins[0].Platform != model.PlatformWing {
		t.Errorf("margins = %+v", got.Margins)
	}
	if len(got.DetailPages) != 1 || got.DetailPages[0].USPs[0] != "silent click" {
		t.Errorf("detail pages = %+v", got.DetailPages)
	}
	if len(got.Registrations) != 0 {
		t.Errorf("registrations = %+v, want none", got.Registrations)
	}

	bare, _ := ps.GetByID(ctx, p.ID)
	if bare.Margins != nil {
		t.Error("relations loaded without include")
	}
}

func TestProductDeleteKeepsDependents(t *testing.T) {
	db := setupTestDB(t)
	ps := NewProductStore(db)
	ms := NewMarginStore(db)
	ctx := context.Background()

	p, _ := ps.Create(ctx, model.ProductCreate{Name: "mouse", WholesalePrice: 1000, RecommendedPrice: 2500})
	m, err := ms.Create(ctx, model.MarginCreate{ProductID: &p.ID, ProductName: "mouse", Platform: model.PlatformRocket})
	if err != nil {
		t.Fatalf("create margin: %v", err)
	}

	ok, err := ps.Delete(ctx, p.ID)
	if err != nil || !ok {
		t.Fatalf("delete = %v, %v", ok, err)
	}
	got, err := ms.GetByID(ctx, m.ID)
	if err != nil || got == nil {
		t.Fatalf("margin after delete = %v, %v", got, err)
	}
	if got.ProductID != nil {
		t.Errorf("productId = %d, want cleared", *got.ProductID)
	}
}

func TestProductFindManyAndAggregate(t *testing.T) {
	db := setupTestDB(t)
	ps := NewProductStore(db)
	ctx := context.Background()

	for i, name := range []string{"Blue Mouse", "red mouse", "keyboard"} {
		_, err := ps.Create(ctx, model.ProductCreate{
			Name:             name,
			WholesalePrice:   float64(1000 * (i + 1)),
			RecommendedPrice: float64(3000 * (i + 1)),
			Score:            float64(10 * (i + 1)),
		})
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	where := &model.ProductWhere{Name: query.Contains("MOUSE", query.ModeInsensitive)}
	res, err := ps.FindMany(ctx, query.FindArgs[model.ProductWhere]{
		Where:   where,
		OrderBy: query.OrderBy{{Field: "score", Direction: query.Desc}},
		Page:    query.Page{Take: 1},
	}, model.ProductInclude{})
	if err != nil {
		t.Fatalf("find many: %v", err)
	}
	if len(res.Items) != 1 || res.Items[0].Name != "red mouse" || !res.HasMore {
		t.Fatalf("first page = %+v", res)
	}

	next, err := ps.FindMany(ctx, query.FindArgs[model.ProductWhere]{
		Where:   where,
		OrderBy: query.OrderBy{{Field: "score", Direction: query.Desc}},
		Page:    query.Page{Take: 1, Cursor: query.Cursor(res.NextCursor)},
	}, model.ProductInclude{})
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(next.Items) != 1 || next.Items[0].Name != "Blue Mouse" || next.HasMore {
		t.Errorf("second page = %+v", next)
	}

	agg, err := ps.Aggregate(ctx, query.AggregateArgs[model.ProductWhere]{
		AggregateSpec: query.AggregateSpec{
			Count: true,
			Avg:   query.Fields{"score"},
			Max:   query.Fields{"recommendedPrice"},
		},
	})
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if agg.Count != 3 || *agg.Avg["score"] != 20 || *agg.Max["recommendedPrice"] != 9000 {
		t.Errorf("aggregate = %+v", agg)
	}

	if p, _ := ps.GetByName(ctx, "keyboard"); p == nil {
		t.Error("get by name returned nil")
	}
}

func TestRecommendationCreateWithItems(t *testing.T) {
	db := setupTestDB(t)
	rs := NewRecommendationStore(db)
	items := NewRecommendationItemStore(db)
	ctx := context.Background()

	rec, err := rs.CreateWithItems(ctx, model.RecommendationCreate{
		Keyword: "mouse",
		Items: []model.RecommendationItemCreate{
			{Name: "silent mouse", WholesalePrice: 3000, RecommendedPrice: 9900, Score: 80},
			{Name: "gaming mouse", WholesalePrice: 9000, RecommendedPrice: 29000, Score: 65},
		},
	})
	if err != nil {
		t.Fatalf("create with items: %v", err)
	}
	if len(rec.Items) != 2 || rec.Items[0].RecommendationID != rec.ID {
		t.Fatalf("items = %+v", rec.Items)
	}

	high, err := rs.FindMany(ctx, query.FindArgs[model.RecommendationWhere]{
		Where: &model.RecommendationWhere{Items: &query.Relation[model.RecommendationItemWhere]{
			Every: &model.RecommendationItemWhere{Score: &query.Filter[float64]{Gte: ptr(60.0)}},
		}},
	}, model.RecommendationInclude{})
	if err != nil || len(high.Items) != 1 {
		t.Errorf("every item score >= 60 = %v, %v", high, err)
	}

	ok, err := rs.Delete(ctx, rec.ID)
	if err != nil || !ok {
		t.Fatalf("delete = %v, %v", ok, err)
	}
	if n, _ := items.Count(ctx, nil); n != 0 {
		t.Errorf("items after delete = %d, want 0", n)
	}
}

func TestRecommendationCreateRollsBack(t *testing.T) {
	db := setupTestDB(t)
	rs := NewRecommendationStore(db)
	ctx := context.Background()

	// The trigger rejects the second item, so the first must not survive.
	if _, err := db.Exec(`CREATE TRIGGER reject_bad BEFORE INSERT ON recommendation_items
		WHEN NEW.name = 'bad' BEGIN SELECT RAISE(ABORT, 'rejected'); END`); err != nil {
		t.Fatalf("create trigger: %v", err)
	}
	_, err := rs.CreateWithItems(ctx, model.RecommendationCreate{
		Keyword: "mouse",
		Items:   []model.RecommendationItemCreate{{Name: "ok"}, {Name: "bad"}},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if n, _ := rs.Count(ctx, nil); n != 0 {
		t.Errorf("recommendations = %d, want 0 after rollback", n)
	}
}

func TestWholesaleCreateGroupWithProducts(t *testing.T) {
	db := setupTestDB(t)
	ws := NewWholesaleStore(db)
	ctx := context.Background()

	g, err := ws.CreateGroupWithProducts(ctx, model.WholesaleGroupCreate{
		Keyword: "mouse",
		Products: []model.WholesaleProductCreate{
			{Name: "bulk mouse", Price: 2100, Source: "domeggook", Rating: 4.5},
			{Name: "oem mouse", Price: 1800, Source: "1688", MinOrder: 50},
		},
	})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	if len(g.Products) != 2 {
		t.Fatalf("products = %d, want 2", len(g.Products))
	}
	if g.Products[0].MinOrder != 1 || g.Products[1].MinOrder != 50 {
		t.Errorf("min orders = %d, %d, want 1, 50", g.Products[0].MinOrder, g.Products[1].MinOrder)
	}

	cheapest, err := ws.FindProducts(ctx, query.FindArgs[model.WholesaleProductWhere]{Page: query.Page{Take: 1}})
	if err != nil || len(cheapest.Items) != 1 || cheapest.Items[0].Name != "oem mouse" {
		t.Errorf("cheapest = %+v, %v", cheapest, err)
	}

	upd, err := ws.UpdateProduct(ctx, g.Products[0].ID, model.WholesaleProductUpdate{Price: ptr(1500.0)})
	if err != nil || upd.Price != 1500 {
		t.Errorf("update = %+v, %v", upd, err)
	}

	if ok, _ := ws.DeleteGroup(ctx, g.ID); !ok {
		t.Fatal("delete group failed")
	}
	if n, _ := ws.CountProducts(ctx, nil); n != 0 {
		t.Errorf("products after delete = %d, want 0", n)
	}
}
