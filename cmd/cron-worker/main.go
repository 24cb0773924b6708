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

	"github.com/solarflow/solarshop-backend/internal/cron"
	"github.com/solarflow/solarshop-backend/internal/installments"
	"github.com/solarflow/solarshop-backend/internal/invoices"
	"github.com/solarflow/solarshop-backend/internal/notifications"
	"github.com/solarflow/solarshop-backend/internal/policy"
	"github.com/solarflow/solarshop-backend/internal/settings"
	"github.com/solarflow/solarshop-backend/internal/warranties"
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
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)
	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

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

	gormDB := dbClient.DB()
	pol := policy.Default()

	settingsService, err := settings.NewService(settings.NewRepository(gormDB), redisClient, cfg.Settings.CacheTTL, pol, logg)
	requireResource(ctx, logg, "settings service", err)

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
		Outbox:        outbox.NewService(outbox.NewRepository(gormDB), logg),
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

	invoiceJob, err := cron.NewInvoiceBackfillJob(logg, invoiceService)
	requireResource(ctx, logg, "invoice backfill job", err)
	warrantyJob, err := cron.NewWarrantyExpiryJob(logg, warrantyService)
	requireResource(ctx, logg, "warranty expiry job", err)
	overdueJob, err := cron.NewInstallmentOverdueJob(logg, installmentService)
	requireResource(ctx, logg, "installment overdue job", err)
	cleanupJob, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: notifications.NewRepository(gormDB),
	})
	requireResource(ctx, logg, "notification cleanup job", err)
	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outbox.NewRepository(gormDB),
	})
	requireResource(ctx, logg, "outbox retention job", err)

	registry, err := cron.NewRegistry(invoiceJob, warrantyJob, overdueJob, cleanupJob, retentionJob)
	requireResource(ctx, logg, "cron registry", err)

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron"), 0)
	requireResource(ctx, logg, "cron lock", err)

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	requireResource(ctx, logg, "cron service", err)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(runCtx, "starting cron worker")

	if err := service.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(runCtx, "cron worker shutting down gracefully")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
