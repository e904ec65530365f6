package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/selpix/selpix/internal/auth"
	"github.com/selpix/selpix/internal/backup"
	"github.com/selpix/selpix/internal/billing"
	"github.com/selpix/selpix/internal/config"
	"github.com/selpix/selpix/internal/database"
	"github.com/selpix/selpix/internal/email"
	"github.com/selpix/selpix/internal/handler"
	"github.com/selpix/selpix/internal/middleware"
	"github.com/selpix/selpix/internal/stats"
	"github.com/selpix/selpix/internal/store"
	ws "github.com/selpix/selpix/internal/websocket"
)

type Server struct {
	db          *database.DB
	hub         *ws.Hub
	stores      handler.Stores
	tokens      *auth.Tokens
	processor   *billing.Processor
	roller      *stats.Roller
	backups     *backup.Manager
	authH       *handler.AuthHandler
	pricingH    *handler.PricingHandler
	webhookH    *handler.WebhookHandler
	statsH      *handler.StatsHandler
	backupH     *handler.BackupHandler
	rateLimiter *middleware.RateLimiter
	authLimit   middleware.Limit
	proxies     middleware.TrustedProxies
	wsOrigins   []string
	logger      *slog.Logger
}

func New(db *database.DB, cfg *config.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger)

	st := handler.Stores{
		Users:           store.NewUserStore(db),
		Plans:           store.NewPlanStore(db),
		Subscriptions:   store.NewSubscriptionStore(db),
		Payments:        store.NewPaymentStore(db),
		Events:          store.NewWebhookEventStore(db),
		Products:        store.NewProductStore(db),
		Recommendations: store.NewRecommendationStore(db),
		RecItems:        store.NewRecommendationItemStore(db),
		Wholesale:       store.NewWholesaleStore(db),
		Margins:         store.NewMarginStore(db),
		DetailPages:     store.NewDetailPageStore(db),
		Registrations:   store.NewRegistrationStore(db),
		Activity:        store.NewActivityLogStore(db),
		Daily:           store.NewDailyStatStore(db),
	}

	tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	// config.Load has already rejected malformed entries.
	proxies, err := middleware.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		logger.Error("trusted proxies ignored", "error", err)
	}

	processor := billing.NewProcessor(billing.Stores{
		Users:         st.Users,
		Plans:         st.Plans,
		Subscriptions: st.Subscriptions,
		Payments:      st.Payments,
		Events:        st.Events,
	}, cfg.Billing.RetryLimit, logger,
		billing.NewLemonSqueezy(cfg.Billing.LemonSigningSecret),
		billing.NewStripe(cfg.Billing.StripeWebhookSecret),
	)

	statStores := stats.Stores{
		Products:      st.Products,
		Registrations: st.Registrations,
		Margins:       st.Margins,
		Activity:      st.Activity,
		Daily:         st.Daily,
	}
	roller := stats.NewRoller(statStores)

	backupMgr := backup.NewManager(backup.Config{
		S3: backup.S3Config{
			Endpoint:  cfg.Backup.Endpoint,
			Bucket:    cfg.Backup.Bucket,
			Region:    cfg.Backup.Region,
			AccessKey: cfg.Backup.AccessKey,
			SecretKey: cfg.Backup.SecretKey,
		},
		Passphrase: cfg.Backup.Passphrase,
		Prefix:     cfg.Backup.Prefix,
		Interval:   cfg.Backup.Interval,
		Retention:  cfg.Backup.Retention,
	}, db, logger, func(st backup.Status) {
		hub.Broadcast(ws.NewMessage("backup", string(st.State), nil, map[string]any{
			"inProgress": st.InProgress,
			"error":      st.Error,
		}))
	})

	if mailer := email.NewClient(cfg.Email.PostmarkToken, cfg.Email.From, cfg.BaseURL); mailer.Configured() {
		processor.SetNotifier(mailer)
	}

	return &Server{
		db:          db,
		hub:         hub,
		stores:      st,
		tokens:      tokens,
		processor:   processor,
		roller:      roller,
		backups:     backupMgr,
		authH:       handler.NewAuthHandler(st.Users, st.Subscriptions, st.Payments, tokens, logger),
		pricingH:    handler.NewPricingHandler(st.Margins, st.Wholesale, hub, logger),
		webhookH:    handler.NewWebhookHandler(processor, hub, logger),
		statsH:      handler.NewStatsHandler(roller, statStores, hub, logger),
		backupH:     handler.NewBackupHandler(backupMgr, logger),
		rateLimiter: middleware.NewRateLimiter(),
		authLimit:   middleware.Limit{Requests: cfg.Auth.RateLimit, Window: cfg.Auth.RateWindow},
		proxies:     proxies,
		wsOrigins:   cfg.WSOrigins,
		logger:      logger,
	}
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// Processor returns the webhook processor for the retry loop.
func (s *Server) Processor() *billing.Processor {
	return s.processor
}

// Roller returns the daily statistics roller.
func (s *Server) Roller() *stats.Roller {
	return s.roller
}

// BackupManager returns the backup manager.
func (s *Server) BackupManager() *backup.Manager {
	return s.backups
}

// WebhookEventStore returns the webhook event store for pruning.
func (s *Server) WebhookEventStore() *store.WebhookEventStore {
	return s.stores.Events
}

// Hub returns the live feed hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.Handle("POST /api/auth/register", s.rateLimited("register", s.authH.Register))
	outerMux.Handle("POST /api/auth/login", s.rateLimited("login", s.authH.Login))
	outerMux.HandleFunc("POST /webhooks/{provider}", s.webhookH.Receive)
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes, wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.tokens)
	outerMux.Handle("/", authMiddleware(protectedMux))

	// Apply request logging middleware
	return middleware.RequestLogger(s.logger.With("component", "http"), s.proxies)(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		status, code = "unavailable", http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}

// rateLimited gives each auth route its own per-IP budget.
func (s *Server) rateLimited(scope string, h http.HandlerFunc) http.Handler {
	return middleware.RateLimit(s.rateLimiter, s.proxies, scope, s.authLimit)(h)
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	admin := func(h http.HandlerFunc) http.Handler { return middleware.RequireAdmin(h) }

	// Account routes
	mux.HandleFunc("GET /api/me", s.authH.Me)
	mux.HandleFunc("GET /api/me/subscription", s.authH.MySubscription)
	mux.HandleFunc("GET /api/me/payments", s.authH.MyPayments)

	// Entity CRUD, query and aggregate routes
	handler.MountResources(mux, s.stores, s.hub, s.logger, middleware.RequireAdmin)

	// Pricing routes
	mux.HandleFunc("POST /api/margins/calculate", s.pricingH.Calculate)
	mux.HandleFunc("POST /api/pricing/scenarios", s.pricingH.Scenarios)
	mux.HandleFunc("GET /api/wholesale-groups/{id}/profitability", s.pricingH.Profitability)

	// Statistics routes
	mux.HandleFunc("GET /api/stats/daily", s.statsH.Daily)
	mux.HandleFunc("GET /api/stats/summary", s.statsH.Summary)
	mux.Handle("POST /api/stats/rollup", admin(s.statsH.Rollup))

	// Backup routes
	mux.Handle("GET /api/backups", admin(s.backupH.List))
	mux.Handle("POST /api/backups", admin(s.backupH.Run))
	mux.Handle("GET /api/backups/{key...}", admin(s.backupH.Download))

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.wsOrigins))
}
