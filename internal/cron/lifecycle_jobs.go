package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/solarflow/solarshop-backend/pkg/logger"
)

type warrantyExpirer interface {
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}

type overdueMarker interface {
	MarkOverdue(ctx context.Context, now time.Time) (int64, error)
}

// NewWarrantyExpiryJob flips active warranties past their end date to expired.
func NewWarrantyExpiryJob(logg *logger.Logger, svc warrantyExpirer) (Job, error) {
	if svc == nil {
		return nil, fmt.Errorf("warranty service required")
	}
	return newSweepJob("warranty-expiry", logg, svc.ExpireDue)
}

// NewInstallmentOverdueJob marks active plans whose next due date has passed.
func NewInstallmentOverdueJob(logg *logger.Logger, svc overdueMarker) (Job, error) {
	if svc == nil {
		return nil, fmt.Errorf("installment service required")
	}
	return newSweepJob("installment-overdue", logg, svc.MarkOverdue)
}

type sweepJob struct {
	name  string
	logg  *logger.Logger
	sweep func(ctx context.Context, now time.Time) (int64, error)
	now   func() time.Time
}

func newSweepJob(name string, logg *logger.Logger, sweep func(context.Context, time.Time) (int64, error)) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &sweepJob{name: name, logg: logg, sweep: sweep, now: time.Now}, nil
}

func (j *sweepJob) Name() string { return j.name }

func (j *sweepJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	n, err := j.sweep(ctx, now)
	if err != nil {
		return fmt.Errorf("%s: %w", j.name, err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"as_of":        now,
		"rows_updated": n,
	}), j.name+" complete")
	return nil
}
