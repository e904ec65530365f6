package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/selpix/selpix/internal/catalog"
	"github.com/selpix/selpix/internal/model"
	"github.com/selpix/selpix/internal/store"
	"github.com/selpix/selpix/internal/websocket"
)

// Stores holds every store the API reads or writes.
type Stores struct {
	Users           *store.UserStore
	Plans           *store.PlanStore
	Subscriptions   *store.SubscriptionStore
	Payments        *store.PaymentStore
	Events          *store.WebhookEventStore
	Products        *store.ProductStore
	Recommendations *store.RecommendationStore
	RecItems        *store.RecommendationItemStore
	Wholesale       *store.WholesaleStore
	Margins         *store.MarginStore
	DetailPages     *store.DetailPageStore
	Registrations   *store.RegistrationStore
	Activity        *store.ActivityLogStore
	Daily           *store.DailyStatStore
}

// MountResources registers the CRUD, query and aggregate routes of every
// entity on mux. Account and billing records are readable and writable by
// administrators only; plans are readable by any signed-in user.
func MountResources(mux *http.ServeMux, st Stores, hub *websocket.Hub, logger *slog.Logger, admin guard) {
	log := logger.With("component", "api")

	(&resource[model.User, model.UserWhere, model.UserCreate, model.UserUpdate, model.UserInclude, string]{
		entity: "user", key: stringKey, id: func(v *model.User) string { return v.ID },
		get: st.Users.Get, find: st.Users.FindMany, aggregate: st.Users.Aggregate,
		create: st.Users.Create, update: st.Users.Update, remove: st.Users.Delete,
		hub: hub, logger: log,
	}).routes(mux, "/api/users", admin, admin)

	(&resource[model.Plan, model.PlanWhere, model.PlanCreate, model.PlanUpdate, model.PlanInclude, string]{
		entity: "plan", key: stringKey, id: func(v *model.Plan) string { return v.ID },
		get: st.Plans.Get, find: st.Plans.FindMany, aggregate: st.Plans.Aggregate,
		create: st.Plans.Create, update: st.Plans.Update, remove: st.Plans.Delete,
		hub: hub, logger: log,
	}).routes(mux, "/api/plans", open, admin)

	(&resource[model.Subscription, model.SubscriptionWhere, model.SubscriptionCreate, model.SubscriptionUpdate, model.SubscriptionInclude, string]{
		entity: "subscription", key: stringKey, id: func(v *model.Subscription) string { return v.ID },
		get: st.Subscriptions.Get, find: st.Subscriptions.FindMany, aggregate: st.Subscriptions.Aggregate,
		create: st.Subscriptions.Create, update: st.Subscriptions.Update, remove: st.Subscriptions.Delete,
		hub: hub, logger: log,
	}).routes(mux, "/api/subscriptions", admin, admin)

	(&resource[model.PaymentHistory, model.PaymentWhere, model.PaymentCreate, model.PaymentUpdate, model.PaymentInclude, string]{
		entity: "payment", key: stringKey, id: func(v *model.PaymentHistory) string { return v.ID },
		get: st.Payments.Get, find: st.Payments.FindMany, aggregate: st.Payments.Aggregate,
		create: st.Payments.Create, update: st.Payments.Update, remove: st.Payments.Delete,
		hub: hub, logger: log,
	}).routes(mux, "/api/payments", admin, admin)

	// Webhook events are written by the providers only.
	(&resource[model.WebhookEvent, model.WebhookEventWhere, model.WebhookEventCreate, model.WebhookEventUpdate, struct{}, string]{
		entity: "webhook_event", key: stringKey, id: func(v *model.WebhookEvent) string { return v.ID },
		get: noInclude(st.Events.GetByID), find: noIncludeFind(st.Events.FindMany), aggregate: st.Events.Aggregate,
		update: st.Events.Update, remove: st.Events.Delete,
		hub: hub, logger: log,
	}).routes(mux, "/api/webhook-events", admin, admin)

	(&resource[model.Product, model.ProductWhere, model.ProductCreate, model.ProductUpdate, model.ProductInclude, int64]{
		entity: "product", key: intKey, id: func(v *model.Product) int64 { return v.ID },
		get: st.Products.Get, find: st.Products.FindMany, aggregate: st.Products.Aggregate,
		create: createProduct(st.Products), update: st.Products.Update, remove: st.Products.Delete,
		hub: hub, logger: log,
	}).routes(mux, "/api/products", open, open)

	(&resource[model.Recommendation, model.RecommendationWhere, model.RecommendationCreate, model.RecommendationUpdate, model.RecommendationInclude, int64]{
		entity: "recommendation", key: intKey, id: func(v *model.Recommendation) int64 { return v.ID },
		get: st.Recommendations.Get, find: st.Recommendations.FindMany,
		create: st.Recommendations.CreateWithItems, update: st.Recommendations.Update, remove: st.Recommendations.Delete,
		hub: hub, logger: log,
	}).routes(mux, "/api/recommendations", open, open)

	// Items are created together with their recommendation.
	(&resource[model.RecommendationItem, model.RecommendationItemWhere, struct{}, model.RecommendationItemUpdate, struct{}, int64]{
		entity: "recommendation_item", key: intKey, id: func(v *model.RecommendationItem) int64 { return v.ID },
		get: noInclude(st.RecItems.GetByID), find: noIncludeFind(st.RecItems.FindMany), aggregate: st.RecItems.Aggregate,
		update: st.RecItems.Update, remove: st.RecItems.Delete,
		hub: hub, logger: log,
	}).routes(mux, "/api/recommendation-items", open, open)

	(&resource[model.WholesaleGroup, model.WholesaleGroupWhere, model.WholesaleGroupCreate, model.WholesaleGroupUpdate, model.WholesaleGroupInclude, int64]{
		entity: "wholesale_group", key: intKey, id: func(v *model.WholesaleGroup) int64 { return v.ID },
		get: st.Wholesale.GetGroup, find: st.Wholesale.FindGroups,
		create: st.Wholesale.CreateGroupWithProducts, update: st.Wholesale.UpdateGroup, remove: st.Wholesale.DeleteGroup,
		hub: hub, logger: log,
	}).routes(mux, "/api/wholesale-groups", open, open)

	// Wholesale products are created together with their group.
	(&resource[model.WholesaleProduct, model.WholesaleProductWhere, struct{}, model.WholesaleProductUpdate, struct{}, int64]{
		entity: "wholesale_product", key: intKey, id: func(v *model.WholesaleProduct) int64 { return v.ID },
		get: noInclude(st.Wholesale.GetProductByID), find: noIncludeFind(st.Wholesale.FindProducts), aggregate: st.Wholesale.AggregateProducts,
		update: st.Wholesale.UpdateProduct, remove: st.Wholesale.DeleteProduct,
		hub: hub, logger: log,
	}).routes(mux, "/api/wholesale-products", open, open)

	(&resource[model.Margin, model.MarginWhere, model.MarginCreate, model.MarginUpdate, model.MarginInclude, int64]{
		entity: "margin", key: intKey, id: func(v *model.Margin) int64 { return v.ID },
		get: st.Margins.Get, find: st.Margins.FindMany, aggregate: st.Margins.Aggregate,
		create: st.Margins.Create, update: st.Margins.Update, remove: st.Margins.Delete,
		hub: hub, logger: log,
	}).routes(mux, "/api/margins", open, open)

	(&resource[model.DetailPage, model.DetailPageWhere, model.DetailPageCreate, model.DetailPageUpdate, model.DetailPageInclude, int64]{
		entity: "detail_page", key: intKey, id: func(v *model.DetailPage) int64 { return v.ID },
		get: st.DetailPages.Get, find: st.DetailPages.FindMany, aggregate: st.DetailPages.Aggregate,
		create: st.DetailPages.Create, update: st.DetailPages.Update, remove: st.DetailPages.Delete,
		hub: hub, logger: log,
	}).routes(mux, "/api/detail-pages", open, open)

	(&resource[model.Registration, model.RegistrationWhere, model.RegistrationCreate, model.RegistrationUpdate, model.RegistrationInclude, int64]{
		entity: "registration", key: intKey, id: func(v *model.Registration) int64 { return v.ID },
		get: st.Registrations.Get, find: st.Registrations.FindMany, aggregate: st.Registrations.Aggregate,
		create: st.Registrations.Create, update: st.Registrations.Update, remove: st.Registrations.Delete,
		hub: hub, logger: log,
	}).routes(mux, "/api/registrations", open, open)

	(&resource[model.ActivityLog, model.ActivityLogWhere, model.ActivityLogCreate, model.ActivityLogUpdate, struct{}, int64]{
		entity: "activity_log", key: intKey, id: func(v *model.ActivityLog) int64 { return v.ID },
		get: noInclude(st.Activity.GetByID), find: noIncludeFind(st.Activity.FindMany), aggregate: st.Activity.Aggregate,
		create: st.Activity.Create, update: st.Activity.Update, remove: st.Activity.Delete,
		hub: hub, logger: log,
	}).routes(mux, "/api/activity-logs", open, open)

	// Daily stats are produced by the rollup.
	(&resource[model.DailyStat, model.DailyStatWhere, model.DailyStatCreate, model.DailyStatUpdate, struct{}, int64]{
		entity: "daily_stat", key: intKey, id: func(v *model.DailyStat) int64 { return v.ID },
		get: noInclude(st.Daily.GetByID), find: noIncludeFind(st.Daily.FindMany), aggregate: st.Daily.Aggregate,
		update: st.Daily.Update, remove: st.Daily.Delete,
		hub: hub, logger: log,
	}).routes(mux, "/api/daily-stats", open, admin)
}

// createProduct lists a product, guessing its category from the name when
// none was given.
func createProduct(ps *store.ProductStore) func(context.Context, model.ProductCreate) (*model.Product, error) {
	return func(ctx context.Context, in model.ProductCreate) (*model.Product, error) {
		if in.Category == "" {
			in.Category = catalog.Categorize(in.Name)
		}
		return ps.CreateListed(ctx, in)
	}
}
