package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/solarflow/solarshop-backend/internal/invoices"
	"github.com/solarflow/solarshop-backend/internal/maintenance"
	"github.com/solarflow/solarshop-backend/internal/policy"
	"github.com/solarflow/solarshop-backend/internal/settings"
	"github.com/solarflow/solarshop-backend/pkg/config"
	"github.com/solarflow/solarshop-backend/pkg/db"
	"github.com/solarflow/solarshop-backend/pkg/logger"
	"github.com/solarflow/solarshop-backend/pkg/redis"
	"github.com/solarflow/solarshop-backend/pkg/storage/disks"
)

// app holds what console commands run against.
type app struct {
	logg     *logger.Logger
	fixer    itemFixer
	invoices invoices.Service
}

type itemFixer interface {
	FixUnknownItems(ctx context.Context) (maintenance.Summary, error)
}

type command struct {
	summary string
	run     func(ctx context.Context, a *app, out io.Writer) error
}

// itemFailures marks a sweep that completed with some items failing. The summary has been
// printed by then, so the command still exits 0.
type itemFailures struct {
	failed int
	err    error
}

func (e *itemFailures) Error() string {
	return fmt.Sprintf("%d item(s) failed: %v", e.failed, e.err)
}

func (e *itemFailures) Unwrap() error { return e.err }

// sweepError wraps per-item failures, which the summary already counts, so run can tell
// them apart from errors that stopped the sweep.
func sweepError(failed int, err error) error {
	if err == nil || failed == 0 {
		return err
	}
	return &itemFailures{failed: failed, err: err}
}

var commands = map[string]command{
	"fix:unknown-items": {
		summary: "repair order items with an unknown type or name",
		run: func(ctx context.Context, a *app, out io.Writer) error {
			// The fixer prints its own progress and summary lines.
			summary, err := a.fixer.FixUnknownItems(ctx)
			return sweepError(summary.Failed, err)
		},
	},
	"invoices:generate-missing": {
		summary: "issue invoices for orders that have none",
		run: func(ctx context.Context, a *app, out io.Writer) error {
			fmt.Fprintln(out, "generating missing invoices...")
			summary, err := a.invoices.GenerateMissing(ctx)
			if err != nil && summary.Failed == 0 {
				return err
			}
			fmt.Fprintf(out, "done: scanned=%d created=%d failed=%d\n", summary.Scanned, summary.Created, summary.Failed)
			return sweepError(summary.Failed, err)
		},
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr, openApp))
}

func run(ctx context.Context, args []string, out, errOut io.Writer, open func(context.Context) (*app, func(), error)) int {
	if len(args) != 1 {
		usage(errOut)
		return 2
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(errOut, "unknown command %q\n", args[0])
		usage(errOut)
		return 2
	}

	a, closeApp, err := open(ctx)
	if err != nil {
		fmt.Fprintf(errOut, "bootstrap failed: %v\n", err)
		return 1
	}
	defer closeApp()

	if err := cmd.run(ctx, a, out); err != nil {
		var partial *itemFailures
		if errors.As(err, &partial) {
			a.logg.Warn(a.logg.WithField(ctx, "error", partial.err.Error()), fmt.Sprintf("command %s finished with failures", args[0]))
			fmt.Fprintf(errOut, "%s: %v\n", args[0], partial)
			return 0
		}
		a.logg.Error(ctx, fmt.Sprintf("command %s failed", args[0]), err)
		fmt.Fprintf(errOut, "%s failed: %v\n", args[0], err)
		return 1
	}
	return 0
}

func usage(w io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(w, "usage: console <command>")
	for _, name := range names {
		fmt.Fprintf(w, "  %-28s %s\n", name, commands[name].summary)
	}
}

func openApp(ctx context.Context) (*app, func(), error) {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	cfg.Service.Kind = "console"
	logg := logger.New(logger.Options{
		ServiceName: "console",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Output:      os.Stderr,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return nil, nil, fmt.Errorf("database: %w", err)
	}
	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		_ = dbClient.Close()
		return nil, nil, fmt.Errorf("redis: %w", err)
	}
	closeAll := func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}

	a, err := buildApp(ctx, cfg, logg, dbClient, redisClient)
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	return a, closeAll, nil
}

func buildApp(ctx context.Context, cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (*app, error) {
	disk, err := disks.Open(ctx, cfg, logg)
	if err != nil {
		return nil, fmt.Errorf("storage disk: %w", err)
	}
	gormDB := dbClient.DB()
	pol := policy.Default()

	settingsService, err := settings.NewService(settings.NewRepository(gormDB), redisClient, cfg.Settings.CacheTTL, pol, logg)
	if err != nil {
		return nil, err
	}
	invoiceService, err := invoices.NewService(invoices.ServiceParams{
		Repo:    invoices.NewRepository(gormDB),
		Disk:    disk,
		Company: settingsService,
		Policy:  pol,
		TaxRate: cfg.Commerce.TaxRateDecimal(),
		Prefix:  cfg.Commerce.InvoiceNumberPrefix,
		Logger:  logg,
	})
	if err != nil {
		return nil, err
	}
	fixer, err := maintenance.NewItemFixer(maintenance.NewRepository(gormDB), logg, os.Stdout)
	if err != nil {
		return nil, err
	}
	return &app{logg: logg, fixer: fixer, invoices: invoiceService}, nil
}
