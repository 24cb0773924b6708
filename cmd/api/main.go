package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/solarflow/solarshop-backend/api"
	"github.com/solarflow/solarshop-backend/api/routes"
	"github.com/solarflow/solarshop-backend/internal/auth"
	"github.com/solarflow/solarshop-backend/internal/cart"
	"github.com/solarflow/solarshop-backend/internal/catalog"
	"github.com/solarflow/solarshop-backend/internal/installments"
	"github.com/solarflow/solarshop-backend/internal/invoices"
	"github.com/solarflow/solarshop-backend/internal/notifications"
	"github.com/solarflow/solarshop-backend/internal/orders"
	"github.com/solarflow/solarshop-backend/internal/policy"
	"github.com/solarflow/solarshop-backend/internal/settings"
	"github.com/solarflow/solarshop-backend/internal/warranties"
	"github.com/solarflow/solarshop-backend/pkg/auth/session"
	"github.com/solarflow/solarshop-backend/pkg/config"
	"github.com/solarflow/solarshop-backend/pkg/db"
	"github.com/solarflow/solarshop-backend/pkg/logger"
	"github.com/solarflow/solarshop-backend/pkg/metrics"
	"github.com/solarflow/solarshop-backend/pkg/migrate"
	"github.com/solarflow/solarshop-backend/pkg/outbox"
	"github.com/solarflow/solarshop-backend/pkg/redis"
	"github.com/solarflow/solarshop-backend/pkg/storage/disks"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)
	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := context.Background()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	err = migrate.MaybeRunDev(ctx, cfg, logg, dbClient)
	requireResource(ctx, logg, "dev migrations", err)

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	disk, err := disks.Open(ctx, cfg, logg)
	requireResource(ctx, logg, "storage disk", err)

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	requireResource(ctx, logg, "session manager", err)

	gormDB := dbClient.DB()
	pol := policy.Default()
	emitter := outbox.NewService(outbox.NewRepository(gormDB), logg)

	settingsService, err := settings.NewService(settings.NewRepository(gormDB), redisClient, cfg.Settings.CacheTTL, pol, logg)
	requireResource(ctx, logg, "settings service", err)

	authService, err := auth.NewService(auth.ServiceParams{
		DB:             dbClient,
		Outbox:         emitter,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	requireResource(ctx, logg, "auth service", err)

	catalogService, err := catalog.NewService(catalog.NewRepository(gormDB))
	requireResource(ctx, logg, "catalog service", err)

	cartRepo := cart.NewRepository(gormDB)
	cartService, err := cart.NewService(cartRepo, dbClient, logg)
	requireResource(ctx, logg, "cart service", err)

	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:     orders.NewRepository(gormDB),
		Carts:    cartRepo,
		Tx:       dbClient,
		Outbox:   emitter,
		Policy:   pol,
		Commerce: cfg.Commerce,
		Features: cfg.FeatureFlags,
		Logger:   logg,
	})
	requireResource(ctx, logg, "orders service", err)

	invoiceService, err := invoices.NewService(invoices.ServiceParams{
		Repo:    invoices.NewRepository(gormDB),
		Disk:    disk,
		Company: settingsService,
		Policy:  pol,
		TaxRate: cfg.Commerce.TaxRateDecimal(),
		Prefix:  cfg.Commerce.InvoiceNumberPrefix,
		Logger:  logg,
	})
	requireResource(ctx, logg, "invoice service", err)

	warrantyService, err := warranties.NewService(warranties.ServiceParams{
		Repo:          warranties.NewRepository(gormDB),
		Tx:            dbClient,
		Outbox:        emitter,
		Policy:        pol,
		ClaimsEnabled: cfg.FeatureFlags.WarrantyClaims,
		ClaimPrefix:   cfg.Commerce.ClaimNumberPrefix,
		Logger:        logg,
	})
	requireResource(ctx, logg, "warranty service", err)

	installmentService, err := installments.NewService(installments.ServiceParams{
		Repo:      installments.NewRepository(gormDB),
		Tx:        dbClient,
		Policy:    pol,
		Enabled:   cfg.FeatureFlags.InstallmentPlans,
		MaxMonths: cfg.Commerce.MaxInstallmentMonths,
		Logger:    logg,
	})
	requireResource(ctx, logg, "installment service", err)

	notificationService, err := notifications.NewService(notifications.NewRepository(gormDB))
	requireResource(ctx, logg, "notification service", err)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	handler := routes.NewRouter(cfg, logg, routes.Dependencies{
		DB:            dbClient,
		Cache:         redisClient,
		Sessions:      sessionManager,
		Gatherer:      registry,
		Metrics:       metrics.NewHTTPMetrics(registry),
		Auth:          authService,
		Catalog:       catalogService,
		Cart:          cartService,
		Orders:        ordersService,
		Invoices:      invoiceService,
		Warranties:    warrantyService,
		Installments:  installmentService,
		Notifications: notificationService,
		Settings:      settingsService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":         cfg.App.Env,
		"addr":        addr,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(runCtx, "starting api server")

	if err := api.Serve(runCtx, api.NewServer(addr, handler), logg); err != nil {
		logg.Error(runCtx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(runCtx, "api server stopped")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
