package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/fabworks/fabtrack-backend/api/routes"
	"github.com/fabworks/fabtrack-backend/internal/analytics"
	"github.com/fabworks/fabtrack-backend/internal/auth"
	"github.com/fabworks/fabtrack-backend/internal/billing"
	"github.com/fabworks/fabtrack-backend/internal/dispatch"
	"github.com/fabworks/fabtrack-backend/internal/inventory"
	"github.com/fabworks/fabtrack-backend/internal/jobcards"
	"github.com/fabworks/fabtrack-backend/internal/orders"
	"github.com/fabworks/fabtrack-backend/internal/purchases"
	"github.com/fabworks/fabtrack-backend/internal/users"
	"github.com/fabworks/fabtrack-backend/internal/vendors"
	"github.com/fabworks/fabtrack-backend/pkg/auth/session"
	"github.com/fabworks/fabtrack-backend/pkg/config"
	"github.com/fabworks/fabtrack-backend/pkg/db"
	"github.com/fabworks/fabtrack-backend/pkg/logger"
	"github.com/fabworks/fabtrack-backend/pkg/migrate"
	"github.com/fabworks/fabtrack-backend/pkg/outbox"
	"github.com/fabworks/fabtrack-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	gormDB := dbClient.DB()
	outboxService := outbox.NewService(outbox.NewRepository(gormDB), logg)

	usersRepo := users.NewRepository(gormDB)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       usersRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	usersService, err := users.NewService(usersRepo, cfg.Password, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create users service", err)
		os.Exit(1)
	}

	inventoryService, err := inventory.NewService(inventory.NewRepository(gormDB), dbClient, outboxService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}

	purchasesService, err := purchases.NewService(purchases.NewRepository(gormDB), dbClient, inventoryService, outboxService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create purchases service", err)
		os.Exit(1)
	}

	jobCardsService, err := jobcards.NewService(jobcards.NewRepository(gormDB), dbClient, inventoryService, outboxService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create job cards service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orders.NewRepository(gormDB), dbClient, inventoryService, jobCardsService, outboxService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	dispatchService, err := dispatch.NewService(dispatch.NewRepository(gormDB), dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create dispatch service", err)
		os.Exit(1)
	}

	vendorsService, err := vendors.NewService(vendors.NewRepository(gormDB), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create vendors service", err)
		os.Exit(1)
	}

	billingService, err := billing.NewService(billing.NewRepository(gormDB), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create billing service", err)
		os.Exit(1)
	}

	analyticsService, err := analytics.NewService(analytics.NewRepository(gormDB), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create analytics service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, sessionManager, routes.Services{
			Auth:      authService,
			Users:     usersService,
			Inventory: inventoryService,
			Purchases: purchasesService,
			Orders:    ordersService,
			JobCards:  jobCardsService,
			Dispatch:  dispatchService,
			Vendors:   vendorsService,
			Billing:   billingService,
			Analytics: analyticsService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
