package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"github.com/craftstudio/backend/internal/auth"
	"github.com/craftstudio/backend/internal/catalog"
	"github.com/craftstudio/backend/internal/config"
	"github.com/craftstudio/backend/internal/db"
	"github.com/craftstudio/backend/internal/expiry"
	"github.com/craftstudio/backend/internal/handlers"
	"github.com/craftstudio/backend/internal/payment"
	"github.com/craftstudio/backend/internal/repository"
	"github.com/craftstudio/backend/internal/router"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Unable to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("Cannot reach PostgreSQL. Ensure Postgres is running, e.g. docker-compose up -d", "error", err)
		os.Exit(1)
	}
	slog.Info("Connected to PostgreSQL database successfully!")

	if err := db.Bootstrap(ctx, pool); err != nil {
		slog.Error("Schema bootstrap failed", "error", err)
		os.Exit(1)
	}

	// River migrations
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		slog.Error("Failed to create River migrator", "error", err)
		os.Exit(1)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		slog.Error("River migrate up failed", "error", err)
		os.Exit(1)
	}
	slog.Info("River migrations applied")

	// Repositories
	accountRepo := repository.NewAccountRepo(pool)
	buyerRepo := repository.NewBuyerRepo(pool)
	developerRepo := repository.NewDeveloperRepo(pool)
	commissionRepo := repository.NewCommissionRepo(pool)
	bidRepo := repository.NewBidRepo(pool)
	tierRepo := repository.NewTierRepo(pool)

	// Tier catalog: loaded once before serving, refreshable on demand.
	tiers := catalog.New(tierRepo)
	if err := tiers.Refresh(ctx); err != nil {
		slog.Error("Tier catalog load failed", "error", err)
		os.Exit(1)
	}

	// Expiry sweeper
	workers := river.NewWorkers()
	river.AddWorker(workers, expiry.NewSweepWorker(commissionRepo, logger))
	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 2},
		},
		Workers:      workers,
		PeriodicJobs: []*river.PeriodicJob{expiry.PeriodicJob()},
	})
	if err != nil {
		slog.Error("Failed to create River client", "error", err)
		os.Exit(1)
	}

	// Auth
	sessions := auth.NewSessionStrategy(accountRepo, []byte(cfg.SessionSecret))
	bearers := auth.NewBearerStrategy(accountRepo, cfg.TestToken)
	discord := auth.NewDiscord(cfg.DiscordClientID, cfg.DiscordClientSecret, cfg.BaseURL,
		&http.Client{Timeout: 15 * time.Second})
	authHandler := auth.NewHandler(accountRepo, discord, sessions, logger)

	// API handlers
	accountHandler := &handlers.AccountHandler{
		Buyers: buyerRepo, Developers: developerRepo, Tiers: tiers, Logger: logger,
	}
	buyerHandler := &handlers.BuyerHandler{
		Pool: pool, Commissions: commissionRepo, Bids: bidRepo,
		Buyers: buyerRepo, Accounts: accountRepo, Logger: logger,
	}
	developerHandler := &handlers.DeveloperHandler{
		Pool: pool, Commissions: commissionRepo, Bids: bidRepo,
		Developers: developerRepo, Tiers: tiers, Logger: logger,
	}

	// Payments
	gateway := payment.NewStripeGateway(cfg.StripeSecret)
	provisioner := &payment.Provisioner{
		Accounts: accountRepo, Buyers: buyerRepo, Developers: developerRepo,
		Tiers: tiers, Gateway: gateway, Logger: logger,
	}
	paymentHandler := &payment.Handler{
		Gateway: gateway, Provisioner: provisioner, Tiers: tiers,
		BaseURL: cfg.BaseURL, WebhookSecret: cfg.StripeWebhookSecret, Logger: logger,
	}

	// 20 requests per 10 seconds, shared across all callers.
	limiter := rate.NewLimiter(rate.Every(500*time.Millisecond), 20)

	handler := router.New(router.Deps{
		Auth:           authHandler,
		Accounts:       accountHandler,
		Buyers:         buyerHandler,
		Developers:     developerHandler,
		Payments:       paymentHandler,
		RequireAccount: auth.RequireAccount(sessions, bearers),
		Limiter:        limiter,
		Logger:         logger,
	})

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", cfg.BaseURL},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(handler)

	riverCtx, stopRiver := context.WithCancel(ctx)
	defer stopRiver()
	go func() {
		if err := riverClient.Start(riverCtx); err != nil && riverCtx.Err() == nil {
			slog.Error("River client stopped", "error", err)
		}
	}()

	slog.Info("Starting HTTP server", "addr", cfg.Addr())
	if err := http.ListenAndServe(cfg.Addr(), corsHandler); err != nil {
		slog.Error("HTTP server failed", "error", err)
		os.Exit(1)
	}
}
