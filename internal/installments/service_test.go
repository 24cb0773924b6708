package installments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/solarflow/solarshop-backend/internal/policy"
	"github.com/solarflow/solarshop-backend/pkg/db/dbtest"
	"github.com/solarflow/solarshop-backend/pkg/db/models"
	"github.com/solarflow/solarshop-backend/pkg/enums"
	pkgerrors "github.com/solarflow/solarshop-backend/pkg/errors"
)

type fixture struct {
	db       *gorm.DB
	svc      Service
	now      time.Time
	customer policy.Actor
	admin    policy.Actor
}

func newFixture(t *testing.T, enabled bool) fixture {
	t.Helper()
	client := dbtest.Open(t)
	f := fixture{
		db:       client.DB(),
		now:      time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
		customer: policy.Actor{UserID: uuid.New(), Role: enums.UserRoleCustomer},
		admin:    policy.Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin},
	}
	svc, err := NewService(ServiceParams{
		Repo:      NewRepository(client.DB()),
		Tx:        client,
		Enabled:   enabled,
		MaxMonths: 12,
		Now:       func() time.Time { return f.now },
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f fixture) order(t *testing.T, total int64) models.Order {
	t.Helper()
	userID := f.customer.UserID
	order := models.Order{
		OrderNumber:   "ORD-" + uuid.NewString()[:8],
		UserID:        &userID,
		CustomerName:  "Amara",
		CustomerEmail: "amara@example.com",
		TotalAmount:   decimal.NewFromInt(total),
		Status:        enums.OrderStatusAccepted,
		PaymentStatus: enums.PaymentStatusPending,
	}
	require.NoError(t, f.db.Create(&order).Error)
	return order
}

func TestCreatePlanSplitsBalance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	order := f.order(t, 1000)

	plan, err := f.svc.CreatePlan(ctx, f.customer, order.ID, CreatePlanRequest{Months: 3, DownPayment: decimal.NewFromInt(100)})
	require.NoError(t, err)
	assert.True(t, plan.FinancedAmount.Equal(decimal.NewFromInt(900)))
	assert.True(t, plan.MonthlyAmount.Equal(decimal.NewFromInt(300)))
	assert.Equal(t, enums.InstallmentStatusActive, plan.Status)
	assert.True(t, plan.NextDueDate.Equal(f.now.AddDate(0, 1, 0)))

	_, err = f.svc.CreatePlan(ctx, f.customer, order.ID, CreatePlanRequest{Months: 3})
	assert.ErrorIs(t, err, ErrPlanExists)

	plans, err := f.svc.ListForUser(ctx, f.customer)
	require.NoError(t, err)
	assert.Len(t, plans, 1)
}

func TestCreatePlanValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	order := f.order(t, 1000)

	_, err := f.svc.CreatePlan(ctx, f.customer, order.ID, CreatePlanRequest{Months: 13})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = f.svc.CreatePlan(ctx, f.customer, order.ID, CreatePlanRequest{Months: 6, DownPayment: decimal.NewFromInt(1000)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	stranger := policy.Actor{UserID: uuid.New(), Role: enums.UserRoleCustomer}
	_, err = f.svc.CreatePlan(ctx, stranger, order.ID, CreatePlanRequest{Months: 6})
	assert.ErrorIs(t, err, policy.ErrNotOwner)

	require.NoError(t, f.db.Model(&models.Order{}).Where("id = ?", order.ID).Update("payment_status", enums.PaymentStatusPaid).Error)
	_, err = f.svc.CreatePlan(ctx, f.customer, order.ID, CreatePlanRequest{Months: 6})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestCreatePlanDisabled(t *testing.T) {
	f := newFixture(t, false)
	order := f.order(t, 500)
	_, err := f.svc.CreatePlan(context.Background(), f.customer, order.ID, CreatePlanRequest{Months: 2})
	assert.ErrorIs(t, err, ErrPlansDisabled)
}

func TestRecordPaymentCompletesPlan(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	order := f.order(t, 600)
	plan, err := f.svc.CreatePlan(ctx, f.customer, order.ID, CreatePlanRequest{Months: 2})
	require.NoError(t, err)

	_, err = f.svc.RecordPayment(ctx, f.customer, plan.ID, RecordPaymentRequest{Amount: decimal.NewFromInt(300)})
	assert.ErrorIs(t, err, policy.ErrAdminRequired)
	_, err = f.svc.RecordPayment(ctx, f.admin, plan.ID, RecordPaymentRequest{Amount: decimal.Zero})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	got, err := f.svc.RecordPayment(ctx, f.admin, plan.ID, RecordPaymentRequest{Amount: decimal.NewFromInt(300), Reference: "MM-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, got.PaidInstallments)
	assert.Equal(t, enums.InstallmentStatusActive, got.Status)
	require.Len(t, got.Payments, 1)

	got, err = f.svc.RecordPayment(ctx, f.admin, plan.ID, RecordPaymentRequest{Amount: decimal.NewFromInt(300)})
	require.NoError(t, err)
	assert.Equal(t, enums.InstallmentStatusCompleted, got.Status)

	_, err = f.svc.RecordPayment(ctx, f.admin, plan.ID, RecordPaymentRequest{Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrPlanClosed)
}

func TestRecordPaymentTracksBalanceNotPaymentCount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	order := f.order(t, 1000)
	plan, err := f.svc.CreatePlan(ctx, f.customer, order.ID, CreatePlanRequest{Months: 3, DownPayment: decimal.NewFromInt(100)})
	require.NoError(t, err)

	cent := decimal.RequireFromString("0.01")
	var got *PlanDTO
	for i := 0; i < 3; i++ {
		got, err = f.svc.RecordPayment(ctx, f.admin, plan.ID, RecordPaymentRequest{Amount: cent})
		require.NoError(t, err)
	}
	assert.Equal(t, 0, got.PaidInstallments)
	assert.Equal(t, enums.InstallmentStatusActive, got.Status)
	assert.True(t, got.NextDueDate.Equal(plan.NextDueDate))
	assert.True(t, got.Balance.Equal(decimal.RequireFromString("899.97")))

	got, err = f.svc.RecordPayment(ctx, f.admin, plan.ID, RecordPaymentRequest{Amount: decimal.NewFromInt(300)})
	require.NoError(t, err)
	assert.Equal(t, 1, got.PaidInstallments)
	assert.True(t, got.NextDueDate.Equal(plan.NextDueDate.AddDate(0, 1, 0)))

	_, err = f.svc.RecordPayment(ctx, f.admin, plan.ID, RecordPaymentRequest{Amount: decimal.NewFromInt(600)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "more than the outstanding balance")

	got, err = f.svc.RecordPayment(ctx, f.admin, plan.ID, RecordPaymentRequest{Amount: decimal.RequireFromString("599.97")})
	require.NoError(t, err)
	assert.Equal(t, 3, got.PaidInstallments)
	assert.Equal(t, enums.InstallmentStatusCompleted, got.Status)
	assert.True(t, got.Balance.IsZero())
}

func TestMarkOverdue(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	order := f.order(t, 600)
	plan, err := f.svc.CreatePlan(ctx, f.customer, order.ID, CreatePlanRequest{Months: 2})
	require.NoError(t, err)

	n, err := f.svc.MarkOverdue(ctx, f.now)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = f.svc.MarkOverdue(ctx, f.now.AddDate(0, 2, 0))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := f.svc.RecordPayment(ctx, f.admin, plan.ID, RecordPaymentRequest{Amount: decimal.NewFromInt(300)})
	require.NoError(t, err)
	assert.Equal(t, enums.InstallmentStatusActive, got.Status, "a payment brings an overdue plan current")
}
