package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/solarflow/solarshop-backend/internal/cart"
	"github.com/solarflow/solarshop-backend/internal/policy"
	"github.com/solarflow/solarshop-backend/pkg/config"
	"github.com/solarflow/solarshop-backend/pkg/db/dbtest"
	"github.com/solarflow/solarshop-backend/pkg/db/models"
	"github.com/solarflow/solarshop-backend/pkg/enums"
	pkgerrors "github.com/solarflow/solarshop-backend/pkg/errors"
	"github.com/solarflow/solarshop-backend/pkg/outbox"
	"github.com/solarflow/solarshop-backend/pkg/pagination"
)

type fixture struct {
	db       *gorm.DB
	svc      Service
	carts    cart.Service
	now      time.Time
	admin    policy.Actor
	customer policy.Actor
	panel    models.Product
	system   models.SolarSystem
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	client := dbtest.Open(t)
	conn := client.DB()

	f := fixture{
		db:       conn,
		now:      time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		admin:    policy.Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin},
		customer: policy.Actor{UserID: uuid.New(), Role: enums.UserRoleCustomer},
	}
	f.panel = models.Product{SKU: "PNL-400", Name: "400W Panel", Category: enums.ProductCategoryPanel, Price: decimal.NewFromInt(100), Stock: 10, WarrantyMonths: 300, IsActive: true}
	f.system = models.SolarSystem{Slug: "home-5kw", Name: "Home 5kW", CapacityKW: decimal.NewFromInt(5), Price: decimal.NewFromInt(4000), IsActive: true}
	require.NoError(t, conn.Create(&f.panel).Error)
	require.NoError(t, conn.Create(&f.system).Error)

	svc, err := NewService(ServiceParams{
		Repo:   NewRepository(conn),
		Carts:  cart.NewRepository(conn),
		Tx:     client,
		Outbox: outbox.NewService(outbox.NewRepository(conn), nil),
		Commerce: config.CommerceConfig{
			Currency:              "USD",
			OrderNumberPrefix:     "ORD",
			TrackingNumberPrefix:  "TRK",
			WarrantyNumberPrefix:  "WAR",
			DefaultWarrantyMonths: 120,
		},
		Features: config.FeatureFlagsConfig{CustomBuilder: true},
		Now:      func() time.Time { return f.now },
	})
	require.NoError(t, err)
	f.svc = svc

	carts, err := cart.NewService(cart.NewRepository(conn), client, nil)
	require.NoError(t, err)
	f.carts = carts
	return f
}

func (f fixture) place(t *testing.T) *OrderDTO {
	t.Helper()
	userID := f.customer.UserID
	order, err := f.svc.Create(context.Background(), CreateInput{
		UserID:   &userID,
		Customer: customer(),
		Items: []ItemInput{
			{Type: enums.OrderItemTypeProduct, ProductID: &f.panel.ID, Name: f.panel.Name, Price: f.panel.Price, Quantity: 2},
			{Type: enums.OrderItemTypeSolarSystem, SolarSystemID: &f.system.ID, Name: f.system.Name, Price: f.system.Price, Quantity: 1},
		},
	})
	require.NoError(t, err)
	return order
}

func (f fixture) setStatus(t *testing.T, id uuid.UUID, status enums.OrderStatus) {
	t.Helper()
	require.NoError(t, f.db.Model(&models.Order{}).Where("id = ?", id).Update("status", status).Error)
}

func (f fixture) countEvents(t *testing.T, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.OutboxEvent{}).Where("event_type = ?", eventType).Count(&n).Error)
	return n
}

func customer() CustomerInput {
	return CustomerInput{
		Name:                "Ada Obi",
		Email:               "Ada@Example.com",
		Phone:               "+2348000000000",
		InstallationAddress: "12 Sun Street",
	}
}

func TestCreateComputesTotalAndReservesStock(t *testing.T) {
	f := newFixture(t)
	order := f.place(t)

	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Equal(t, enums.PaymentStatusPending, order.PaymentStatus)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(4200)), "total %s", order.TotalAmount)
	assert.Equal(t, "ada@example.com", order.CustomerEmail)
	assert.Len(t, order.Items, 2)

	var panel models.Product
	require.NoError(t, f.db.First(&panel, "id = ?", f.panel.ID).Error)
	assert.Equal(t, 8, panel.Stock)
}

func TestCreateRejectsInsufficientStock(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), CreateInput{
		Customer: customer(),
		Items:    []ItemInput{{Type: enums.OrderItemTypeProduct, ProductID: &f.panel.ID, Name: "Panel", Price: f.panel.Price, Quantity: 11}},
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	var count int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCheckoutFromCartClearsCart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := cart.Owner{SessionID: "guest-abc"}

	_, err := f.carts.AddItem(ctx, owner, cart.AddItemInput{ProductID: &f.panel.ID, Quantity: 3})
	require.NoError(t, err)

	order, err := f.svc.Checkout(ctx, owner, customer())
	require.NoError(t, err)
	assert.Nil(t, order.UserID)
	require.Len(t, order.Items, 1)
	assert.Equal(t, enums.OrderItemTypeProduct, order.Items[0].Type)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(300)))

	remaining, err := f.carts.Get(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, remaining.Items)

	_, err = f.svc.Checkout(ctx, owner, customer())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestCreateCustomUsesCatalogPrices(t *testing.T) {
	f := newFixture(t)
	order, err := f.svc.CreateCustom(context.Background(), nil, CustomBuildRequest{
		CustomerInput: customer(),
		Components: []CustomComponent{
			{ProductID: f.panel.ID, Quantity: 1},
			{ProductID: f.panel.ID, Quantity: 2},
		},
	})
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.Equal(t, enums.OrderItemTypeCustom, order.Items[0].Type)
	assert.Equal(t, 3, order.Items[0].Quantity)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(300)))

	_, err = f.svc.CreateCustom(context.Background(), nil, CustomBuildRequest{
		CustomerInput: customer(),
		Components:    []CustomComponent{{ProductID: uuid.New(), Quantity: 1}},
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestCancelRules(t *testing.T) {
	cases := []struct {
		status  enums.OrderStatus
		paid    bool
		wantErr error
	}{
		{status: enums.OrderStatusPending},
		{status: enums.OrderStatusProcessing},
		{status: enums.OrderStatusAccepted},
		{status: enums.OrderStatusScheduled, wantErr: ErrNotCancellable},
		{status: enums.OrderStatusInstalled, wantErr: ErrNotCancellable},
		{status: enums.OrderStatusReturned, wantErr: ErrNotCancellable},
		{status: enums.OrderStatusCancelled, wantErr: ErrNotCancellable},
		{status: enums.OrderStatusProcessing, paid: true, wantErr: ErrAlreadyPaid},
	}
	for _, tc := range cases {
		t.Run(string(tc.status), func(t *testing.T) {
			f := newFixture(t)
			order := f.place(t)
			f.setStatus(t, order.ID, tc.status)
			if tc.paid {
				require.NoError(t, f.db.Model(&models.Order{}).Where("id = ?", order.ID).Update("payment_status", enums.PaymentStatusPaid).Error)
			}

			got, err := f.svc.Cancel(context.Background(), f.customer, order.ID, "changed my mind")
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, enums.OrderStatusCancelled, got.Status)
			require.NotNil(t, got.CancelledAt)
			require.NotNil(t, got.CancellationReason)
			assert.Equal(t, "changed my mind", *got.CancellationReason)

			var panel models.Product
			require.NoError(t, f.db.First(&panel, "id = ?", f.panel.ID).Error)
			assert.Equal(t, 10, panel.Stock)
		})
	}
}

func TestCancelRequiresOwnership(t *testing.T) {
	f := newFixture(t)
	order := f.place(t)
	stranger := policy.Actor{UserID: uuid.New(), Role: enums.UserRoleCustomer}

	_, err := f.svc.Cancel(context.Background(), stranger, order.ID, "")
	assert.ErrorIs(t, err, policy.ErrNotOwner)

	_, err = f.svc.Decline(context.Background(), f.customer, order.ID, "")
	assert.ErrorIs(t, err, policy.ErrAdminRequired)
}

func TestAcceptIsTwoStep(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	order := f.place(t)

	got, err := f.svc.Accept(ctx, f.admin, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusProcessing, got.Status)

	got, err = f.svc.Accept(ctx, f.admin, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusAccepted, got.Status)

	_, err = f.svc.Accept(ctx, f.admin, order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	assert.Equal(t, int64(2), f.countEvents(t, enums.EventOrderStatusChanged))
}

func TestConfirmPaymentTwiceFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	order := f.place(t)

	got, err := f.svc.ConfirmPayment(ctx, f.admin, order.ID, ConfirmPaymentRequest{Method: enums.PaymentMethodBankTransfer, Reference: "TX-1"})
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, got.PaymentStatus)
	require.NotNil(t, got.PaidAt)
	require.NotNil(t, got.PaymentReference)
	assert.Equal(t, "TX-1", *got.PaymentReference)

	_, err = f.svc.ConfirmPayment(ctx, f.admin, order.ID, ConfirmPaymentRequest{Method: enums.PaymentMethodCash})
	assert.ErrorIs(t, err, ErrAlreadyPaid)

	again, err := f.svc.Get(ctx, f.admin, order.ID)
	require.NoError(t, err)
	require.NotNil(t, again.PaymentMethod)
	assert.Equal(t, enums.PaymentMethodBankTransfer, *again.PaymentMethod)
	assert.Equal(t, "TX-1", *again.PaymentReference)
	assert.Equal(t, int64(1), f.countEvents(t, enums.EventOrderPaid))
}

func TestConfirmPaymentRequiresReference(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	order := f.place(t)

	_, err := f.svc.ConfirmPayment(ctx, f.admin, order.ID, ConfirmPaymentRequest{Method: enums.PaymentMethodCard, Reference: "  "})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	got, err := f.svc.ConfirmPayment(ctx, f.admin, order.ID, ConfirmPaymentRequest{Method: enums.PaymentMethodCash})
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, got.PaymentStatus)
	assert.Nil(t, got.PaymentReference)
}

func TestConfirmPaymentSyncsInvoice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	order := f.place(t)
	invoice := models.Invoice{
		OrderID:       order.ID,
		InvoiceNumber: "INV-1",
		Subtotal:      order.TotalAmount,
		Tax:           decimal.Zero,
		TaxRate:       decimal.Zero,
		Total:         order.TotalAmount,
		Currency:      "USD",
		PaymentStatus: enums.PaymentStatusPending,
		IssuedAt:      f.now,
	}
	require.NoError(t, f.db.Create(&invoice).Error)

	_, err := f.svc.ConfirmPayment(ctx, f.admin, order.ID, ConfirmPaymentRequest{Method: enums.PaymentMethodCash})
	require.NoError(t, err)

	var reloaded models.Invoice
	require.NoError(t, f.db.First(&reloaded, "id = ?", invoice.ID).Error)
	assert.Equal(t, enums.PaymentStatusPaid, reloaded.PaymentStatus)
}

func TestScheduleInstallation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	order := f.place(t)

	_, err := f.svc.ScheduleInstallation(ctx, f.admin, order.ID, f.now.Add(-time.Hour))
	assert.ErrorIs(t, err, ErrDateNotFuture)
	_, err = f.svc.ScheduleInstallation(ctx, f.admin, order.ID, f.now)
	assert.ErrorIs(t, err, ErrDateNotFuture)

	_, err = f.svc.ScheduleInstallation(ctx, f.admin, order.ID, f.now.Add(48*time.Hour))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "pending orders are not schedulable")

	f.setStatus(t, order.ID, enums.OrderStatusAccepted)
	got, err := f.svc.ScheduleInstallation(ctx, f.admin, order.ID, f.now.Add(48*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusScheduled, got.Status)
	require.NotNil(t, got.InstallationDate)
	assert.True(t, got.InstallationDate.Equal(f.now.Add(48*time.Hour)))
}

func TestRefund(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	order := f.place(t)

	_, err := f.svc.Refund(ctx, f.admin, order.ID)
	assert.ErrorIs(t, err, ErrRefundNotAllowed)

	_, err = f.svc.ConfirmPayment(ctx, f.admin, order.ID, ConfirmPaymentRequest{Method: enums.PaymentMethodCash})
	require.NoError(t, err)
	got, err := f.svc.Refund(ctx, f.admin, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusRefunded, got.PaymentStatus)

	_, err = f.svc.Refund(ctx, f.admin, order.ID)
	assert.ErrorIs(t, err, ErrRefundNotAllowed)
}

func TestMarkInstalledCreatesWarranties(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	order := f.place(t)

	_, err := f.svc.MarkInstalled(ctx, f.admin, order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	f.setStatus(t, order.ID, enums.OrderStatusScheduled)
	got, err := f.svc.MarkInstalled(ctx, f.admin, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusInstalled, got.Status)
	require.NotNil(t, got.InstalledAt)

	var warranties []models.Warranty
	require.NoError(t, f.db.Where("order_id = ?", order.ID).Order("item_name ASC").Find(&warranties).Error)
	require.Len(t, warranties, 2)

	byName := map[string]models.Warranty{}
	for _, w := range warranties {
		byName[w.ItemName] = w
	}
	panel := byName[f.panel.Name]
	assert.Equal(t, enums.WarrantyStatusActive, panel.Status)
	assert.True(t, panel.EndDate.Equal(f.now.AddDate(0, 300, 0)))
	system := byName[f.system.Name]
	assert.True(t, system.EndDate.Equal(f.now.AddDate(0, 120, 0)), "default term applies when the catalog row has none")
	require.NotNil(t, system.UserID)
	assert.Equal(t, f.customer.UserID, *system.UserID)

	returned, err := f.svc.MarkReturned(ctx, f.admin, order.ID, "roof unsuitable")
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusReturned, returned.Status)

	var voided int64
	require.NoError(t, f.db.Model(&models.Warranty{}).Where("order_id = ? AND status = ?", order.ID, enums.WarrantyStatusVoid).Count(&voided).Error)
	assert.Equal(t, int64(2), voided)
}

func TestUpdateTracking(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	order := f.place(t)

	got, err := f.svc.UpdateTracking(ctx, f.admin, order.ID, nil)
	require.NoError(t, err)
	require.NotNil(t, got.TrackingNumber)
	assert.Regexp(t, `^TRK-20260301-[0-9A-F]{8}$`, *got.TrackingNumber)

	custom := "DHL-42"
	got, err = f.svc.UpdateTracking(ctx, f.admin, order.ID, &custom)
	require.NoError(t, err)
	assert.Equal(t, "DHL-42", *got.TrackingNumber)
}

func TestGetAndList(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	first := f.place(t)
	f.place(t)

	_, err := f.svc.Get(ctx, policy.Actor{UserID: uuid.New(), Role: enums.UserRoleCustomer}, first.ID)
	assert.ErrorIs(t, err, policy.ErrNotOwner)
	_, err = f.svc.Get(ctx, f.admin, uuid.New())
	assert.ErrorIs(t, err, ErrOrderNotFound)

	page, err := f.svc.ListForUser(ctx, f.customer, pagination.Params{Limit: 1})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.NotEmpty(t, page.NextCursor)

	next, err := f.svc.ListForUser(ctx, f.customer, pagination.Params{Limit: 1, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, next.Items, 1)
	assert.NotEqual(t, page.Items[0].ID, next.Items[0].ID)

	pending := enums.OrderStatusPending
	_, err = f.svc.ListByStatus(ctx, f.customer, ListFilters{Status: &pending}, pagination.Params{})
	assert.ErrorIs(t, err, policy.ErrAdminRequired)
	all, err := f.svc.ListByStatus(ctx, f.admin, ListFilters{Status: &pending}, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, all.Items, 2)
}
