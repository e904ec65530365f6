// Command seed creates or refreshes the subscription plans.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/selpix/selpix/internal/config"
	"github.com/selpix/selpix/internal/database"
	"github.com/selpix/selpix/internal/logging"
	"github.com/selpix/selpix/internal/model"
	"github.com/selpix/selpix/internal/store"
)

type seedConfig struct {
	DatabaseURL  string `env:"DATABASE_URL" default:"selpix.db"`
	LogLevel     string `env:"LOG_LEVEL" default:"info"`
	ProductID    string `env:"LEMON_PRODUCT_ID" required:"true"`
	VariantFree  string `env:"LEMON_VARIANT_FREE" required:"true"`
	VariantMax5  string `env:"LEMON_VARIANT_MAX5" required:"true"`
	VariantMax20 string `env:"LEMON_VARIANT_MAX20" required:"true"`
}

func plans(cfg seedConfig) []model.PlanCreate {
	desc := func(s string) *string { return &s }
	return []model.PlanCreate{
		{
			Name: "FREE", Title: "Free", Description: desc("Try product sourcing and margin tools"),
			Price: 0, Currency: "USD",
			LemonSqueezyProductID: cfg.ProductID, LemonSqueezyVariantID: cfg.VariantFree,
			Content: []string{"10 product searches per day", "Margin calculator", "Daily statistics"},
		},
		{
			Name: "MAX5", Title: "Max 5x", Description: desc("For sellers listing every day"),
			Price: 100, Currency: "USD",
			LemonSqueezyProductID: cfg.ProductID, LemonSqueezyVariantID: cfg.VariantMax5,
			Content: []string{"5x usage", "Wholesale profitability analysis", "Price scenarios"},
		},
		{
			Name: "MAX20", Title: "Max 20x", Description: desc("For teams and heavy catalogs"),
			Price: 200, Currency: "USD",
			LemonSqueezyProductID: cfg.ProductID, LemonSqueezyVariantID: cfg.VariantMax20,
			Content: []string{"20x usage", "Everything in Max 5x", "Priority support"},
		},
	}
}

func main() {
	// A missing .env is fine; the variables may come from the environment.
	_ = godotenv.Load()

	var cfg seedConfig
	if err := config.ParseEnvTags(config.Prefix, &cfg); err != nil {
		slog.Error("failed to read seed config", "error", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel, "text")

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()
	ps := store.NewPlanStore(db)
	for _, in := range plans(cfg) {
		p, err := ps.Upsert(ctx, in)
		if err != nil {
			logger.Error("failed to seed plan", "plan", in.Name, "error", err)
			os.Exit(1)
		}
		logger.Info("plan seeded", "plan", p.Name, "id", p.ID, "variant", p.LemonSqueezyVariantID)
	}
}
