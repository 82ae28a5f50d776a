package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/kirillkom/insight-assistant/internal/bootstrap"
	"github.com/kirillkom/insight-assistant/internal/config"
	"github.com/kirillkom/insight-assistant/internal/core/domain"
	"github.com/kirillkom/insight-assistant/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/insight-assistant/internal/observability/logging"
)

const serviceName = "insight-seed"

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.NewJSONLogger(serviceName, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(cfg)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	runCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	if err := postgres.EnsureSchema(runCtx, app.DB); err != nil {
		slog.Error("ensure_schema_failed", "error", err)
		os.Exit(1)
	}
	slog.Info("schema_ready")

	if err := postgres.Seed(runCtx, app.DB); err != nil {
		slog.Error("seed_failed", "error", err)
		os.Exit(1)
	}
	slog.Info("retail_data_seeded")

	docs := insightDocuments()
	if err := app.LoaderUC.Load(runCtx, docs); err != nil {
		slog.Error("corpus_load_failed", "error", err)
		os.Exit(1)
	}
	slog.Info("corpus_loaded", "documents", len(docs))

	fmt.Println(domain.RetailSchema().Summary())
}

func insightDocuments() []domain.InsightDocument {
	return []domain.InsightDocument{
		{
			Title:    "Wireless Mouse Overview",
			Category: "item",
			Content: "Wireless Mouse retail details: silent-scroll design, bundled USB receiver, " +
				"inventory of 120 units. List price USD 29.99, margin target 35 percent.",
		},
		{
			Title:    "Mechanical Keyboard Sales",
			Category: "item",
			Content: "Mechanical Keyboard with hot-swappable switches and RGB backlight. " +
				"Premium accessory positioned at USD 129.50, typical basket attachment " +
				"rate 18 percent in B2B accounts.",
		},
		{
			Title:    "27-inch Monitor Performance",
			Category: "item",
			Content: "27-inch Monitor, 1440p IPS panel, warranty three years. Price point USD 249.00 " +
				"supports bundles with docking stations, accessory sell-through 1.4 add-ons per sale.",
		},
		{
			Title:    "USB-C Hub Attachment",
			Category: "item",
			Content: "USB-C Hub with eight ports, shipping with braided cable. MSRP USD 59.95, discountable " +
				"in education verticals with minimum margin 22 percent.",
		},
		{
			Title:    "Quarterly Financial Snapshot",
			Category: "company",
			Content: "Company posted Q2 revenue of USD 4.2M with gross margin 41 percent. Operating expenses " +
				"trended flat quarter-over-quarter as marketing shifted toward digital campaigns. Cash " +
				"reserves cover 14 months of runway even with continued R&D investment.",
		},
	}
}
