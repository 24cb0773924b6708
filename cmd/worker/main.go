package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/solarflow/solarshop-backend/internal/invoices"
	"github.com/solarflow/solarshop-backend/internal/notifications"
	"github.com/solarflow/solarshop-backend/internal/policy"
	"github.com/solarflow/solarshop-backend/internal/settings"
	"github.com/solarflow/solarshop-backend/internal/users"
	"github.com/solarflow/solarshop-backend/pkg/config"
	"github.com/solarflow/solarshop-backend/pkg/db"
	"github.com/solarflow/solarshop-backend/pkg/logger"
	"github.com/solarflow/solarshop-backend/pkg/mailer"
	"github.com/solarflow/solarshop-backend/pkg/metrics"
	"github.com/solarflow/solarshop-backend/pkg/outbox/idempotency"
	"github.com/solarflow/solarshop-backend/pkg/outbox/registry"
	"github.com/solarflow/solarshop-backend/pkg/pubsub"
	"github.com/solarflow/solarshop-backend/pkg/redis"
	"github.com/solarflow/solarshop-backend/pkg/storage/disks"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)
	cfg.Service.Kind = "worker"

	logg = logger.New(logger.Options{
		ServiceName: "worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "failed to close database", err)
		}
	}()

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "failed to close redis client", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "failed to close pubsub client", err)
		}
	}()

	subscription := pubsubClient.NotificationSubscription()
	if subscription == nil {
		requireResource(ctx, logg, "notification subscription", errors.New("subscription not configured"))
	}

	disk, err := disks.Open(ctx, cfg, logg)
	requireResource(ctx, logg, "storage disk", err)

	mail, err := mailer.New(cfg.Mail, logg)
	requireResource(ctx, logg, "mailer", err)

	eventRegistry, err := registry.NewEventRegistry(cfg.PubSub)
	requireResource(ctx, logg, "event registry", err)

	manager, err := idempotency.NewManager(redisClient, cfg.Eventing.IdempotencyTTL)
	requireResource(ctx, logg, "idempotency manager", err)

	gormDB := dbClient.DB()
	settingsService, err := settings.NewService(settings.NewRepository(gormDB), redisClient, cfg.Settings.CacheTTL, policy.Default(), logg)
	requireResource(ctx, logg, "settings service", err)

	invoiceService, err := invoices.NewService(invoices.ServiceParams{
		Repo:    invoices.NewRepository(gormDB),
		Disk:    disk,
		Company: settingsService,
		TaxRate: cfg.Commerce.TaxRateDecimal(),
		Prefix:  cfg.Commerce.InvoiceNumberPrefix,
		Logger:  logg,
	})
	requireResource(ctx, logg, "invoice service", err)

	dispatcher, err := notifications.NewDispatcher(notifications.DispatcherParams{
		Repo:         notifications.NewRepository(gormDB),
		Subscription: subscription,
		Registry:     eventRegistry,
		Idempotency:  manager,
		Directory:    users.NewRepository(gormDB),
		Invoices:     invoiceService,
		Mailer:       mail,
		Metrics:      metrics.NewEventMetrics(prometheus.DefaultRegisterer),
		AdminEmails:  cfg.Commerce.AdminEmailList(),
		Logger:       logg,
	})
	requireResource(ctx, logg, "notification dispatcher", err)

	service, err := NewService(ServiceParams{
		Logger:     logg,
		DB:         dbClient,
		Redis:      redisClient,
		PubSub:     pubsubClient,
		Dispatcher: dispatcher,
	})
	requireResource(ctx, logg, "worker service", err)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(runCtx, "notification worker ready")

	if err := service.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "notification worker failed", err)
		os.Exit(1)
	}
	logg.Info(runCtx, "notification worker shutting down gracefully")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
