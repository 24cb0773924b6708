package cron

import (
	"context"
	"fmt"

	"github.com/solarflow/solarshop-backend/internal/invoices"
	"github.com/solarflow/solarshop-backend/pkg/logger"
)

type invoiceSweeper interface {
	GenerateMissing(ctx context.Context) (invoices.Summary, error)
}

// NewInvoiceBackfillJob issues invoices for orders that do not have one yet.
func NewInvoiceBackfillJob(logg *logger.Logger, sweeper invoiceSweeper) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if sweeper == nil {
		return nil, fmt.Errorf("invoice service required")
	}
	return &invoiceBackfillJob{logg: logg, sweeper: sweeper}, nil
}

type invoiceBackfillJob struct {
	logg    *logger.Logger
	sweeper invoiceSweeper
}

func (j *invoiceBackfillJob) Name() string { return "invoice-backfill" }

func (j *invoiceBackfillJob) Run(ctx context.Context) error {
	summary, err := j.sweeper.GenerateMissing(ctx)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"scanned": summary.Scanned,
		"created": summary.Created,
		"failed":  summary.Failed,
	})
	if err != nil {
		return fmt.Errorf("invoice backfill: %w", err)
	}
	j.logg.Info(logCtx, "invoice backfill complete")
	return nil
}
