package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/solarflow/solarshop-backend/internal/invoices"
	"github.com/solarflow/solarshop-backend/internal/maintenance"
	"github.com/solarflow/solarshop-backend/pkg/db/dbtest"
	"github.com/solarflow/solarshop-backend/pkg/db/models"
	"github.com/solarflow/solarshop-backend/pkg/enums"
	"github.com/solarflow/solarshop-backend/pkg/logger"
	"github.com/solarflow/solarshop-backend/pkg/storage"
)

type stubInvoices struct {
	invoices.Service
	summary invoices.Summary
	err     error
	calls   int
}

func (s *stubInvoices) GenerateMissing(context.Context) (invoices.Summary, error) {
	s.calls++
	return s.summary, s.err
}

type stubFixer struct {
	summary maintenance.Summary
	err     error
}

func (s stubFixer) FixUnknownItems(context.Context) (maintenance.Summary, error) {
	return s.summary, s.err
}

type failingDisk struct{ storage.Disk }

func (failingDisk) Put(context.Context, string, []byte, string) (string, error) {
	return "", errors.New("bucket unavailable")
}

func testApp() *app {
	return &app{logg: logger.New(logger.Options{ServiceName: "console-test", Output: io.Discard})}
}

func openWith(a *app) func(context.Context) (*app, func(), error) {
	return func(context.Context) (*app, func(), error) {
		return a, func() {}, nil
	}
}

func TestRunRejectsUnknownCommand(t *testing.T) {
	var errOut bytes.Buffer
	code := run(context.Background(), []string{"cache:clear"}, io.Discard, &errOut, func(context.Context) (*app, func(), error) {
		t.Fatal("bootstrap must not run for unknown commands")
		return nil, nil, nil
	})

	require.Equal(t, 2, code)
	require.Contains(t, errOut.String(), "fix:unknown-items")
	require.Contains(t, errOut.String(), "invoices:generate-missing")
}

func TestRunReportsBootstrapFailure(t *testing.T) {
	var errOut bytes.Buffer
	code := run(context.Background(), []string{"fix:unknown-items"}, io.Discard, &errOut, func(context.Context) (*app, func(), error) {
		return nil, nil, errors.New("no database")
	})

	require.Equal(t, 1, code)
	require.Contains(t, errOut.String(), "no database")
}

func TestGenerateMissingPrintsSummaryAndExitsZero(t *testing.T) {
	svc := &stubInvoices{
		summary: invoices.Summary{Scanned: 3, Created: 2, Failed: 1},
		err:     multierr.Append(nil, errors.New("order 1: store invoice pdf")),
	}
	a := testApp()
	a.invoices = svc

	var out, errOut bytes.Buffer
	code := run(context.Background(), []string{"invoices:generate-missing"}, &out, &errOut, openWith(a))

	require.Equal(t, 0, code)
	require.Equal(t, 1, svc.calls)
	require.Contains(t, out.String(), "scanned=3 created=2 failed=1")
	require.Contains(t, errOut.String(), "1 item(s) failed")
}

func TestGenerateMissingExitsZeroWhenAnInvoiceCannotBeStored(t *testing.T) {
	client := dbtest.Open(t)
	userID := uuid.New()
	order := models.Order{
		OrderNumber:   "ORD-" + uuid.NewString()[:8],
		UserID:        &userID,
		CustomerName:  "Kofi Mensah",
		CustomerEmail: "kofi@example.com",
		Status:        enums.OrderStatusPending,
		PaymentStatus: enums.PaymentStatusPending,
		TotalAmount:   decimal.NewFromInt(120),
		Currency:      "USD",
		Items:         []models.OrderItem{{Type: enums.OrderItemTypeProduct, Name: "Inverter", Price: decimal.NewFromInt(120), Quantity: 1}},
	}
	require.NoError(t, client.DB().Create(&order).Error)

	svc, err := invoices.NewService(invoices.ServiceParams{
		Repo:    invoices.NewRepository(client.DB()),
		Disk:    failingDisk{},
		TaxRate: decimal.RequireFromString("0.0825"),
	})
	require.NoError(t, err)
	a := testApp()
	a.invoices = svc

	var out, errOut bytes.Buffer
	code := run(context.Background(), []string{"invoices:generate-missing"}, &out, &errOut, openWith(a))

	require.Equal(t, 0, code)
	require.Contains(t, out.String(), "done: scanned=1 created=0 failed=1")
	require.Contains(t, errOut.String(), "store invoice pdf")
}

func TestSweepThatCannotStartExitsOne(t *testing.T) {
	a := testApp()
	a.invoices = &stubInvoices{err: errors.New("scan orders without invoice")}

	var out, errOut bytes.Buffer
	code := run(context.Background(), []string{"invoices:generate-missing"}, &out, &errOut, openWith(a))

	require.Equal(t, 1, code)
	require.NotContains(t, out.String(), "done:")
	require.Contains(t, errOut.String(), "scan orders without invoice")
}

func TestFixUnknownItemsExitCodes(t *testing.T) {
	cases := []struct {
		name  string
		fixer stubFixer
		code  int
	}{
		{name: "clean", fixer: stubFixer{summary: maintenance.Summary{Scanned: 2, Products: 2}}, code: 0},
		{name: "some items failed", fixer: stubFixer{summary: maintenance.Summary{Scanned: 2, Products: 1, Failed: 1}, err: errors.New("item x: lookup")}, code: 0},
		{name: "scan failed", fixer: stubFixer{err: errors.New("scan order items: connection reset")}, code: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := testApp()
			a.fixer = tc.fixer
			code := run(context.Background(), []string{"fix:unknown-items"}, io.Discard, io.Discard, openWith(a))
			require.Equal(t, tc.code, code)
		})
	}
}
