package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/solarflow/solarshop-backend/internal/cart"
	"github.com/solarflow/solarshop-backend/internal/invoices"
	"github.com/solarflow/solarshop-backend/internal/orders"
	"github.com/solarflow/solarshop-backend/internal/policy"
	"github.com/solarflow/solarshop-backend/pkg/enums"
	pkgerrors "github.com/solarflow/solarshop-backend/pkg/errors"
	"github.com/solarflow/solarshop-backend/pkg/pagination"
)

type stubOrders struct {
	orders.Service
	checkout     func(context.Context, cart.Owner, orders.CustomerInput) (*orders.OrderDTO, error)
	cancel       func(context.Context, policy.Actor, uuid.UUID, string) (*orders.OrderDTO, error)
	listByStatus func(context.Context, policy.Actor, orders.ListFilters, pagination.Params) (*pagination.Page[orders.OrderDTO], error)
	schedule     func(context.Context, policy.Actor, uuid.UUID, time.Time) (*orders.OrderDTO, error)
	accept       func(context.Context, policy.Actor, uuid.UUID) (*orders.OrderDTO, error)
}

func (s *stubOrders) Checkout(ctx context.Context, owner cart.Owner, in orders.CustomerInput) (*orders.OrderDTO, error) {
	return s.checkout(ctx, owner, in)
}

func (s *stubOrders) Cancel(ctx context.Context, actor policy.Actor, id uuid.UUID, reason string) (*orders.OrderDTO, error) {
	return s.cancel(ctx, actor, id, reason)
}

func (s *stubOrders) ListByStatus(ctx context.Context, actor policy.Actor, f orders.ListFilters, p pagination.Params) (*pagination.Page[orders.OrderDTO], error) {
	return s.listByStatus(ctx, actor, f, p)
}

func (s *stubOrders) ScheduleInstallation(ctx context.Context, actor policy.Actor, id uuid.UUID, at time.Time) (*orders.OrderDTO, error) {
	return s.schedule(ctx, actor, id, at)
}

func (s *stubOrders) Accept(ctx context.Context, actor policy.Actor, id uuid.UUID) (*orders.OrderDTO, error) {
	return s.accept(ctx, actor, id)
}

type stubInvoices struct {
	invoices.Service
	file *invoices.File
	err  error
}

func (s *stubInvoices) DownloadForOrder(context.Context, policy.Actor, uuid.UUID) (*invoices.File, error) {
	return s.file, s.err
}

const checkoutBody = `{"customer_name":"Ada","customer_email":"ada@example.com","customer_phone":"555","installation_address":"1 Sun St"}`

func TestCheckoutUsesGuestSession(t *testing.T) {
	var owner cart.Owner
	svc := &stubOrders{checkout: func(_ context.Context, o cart.Owner, in orders.CustomerInput) (*orders.OrderDTO, error) {
		owner = o
		return &orders.OrderDTO{OrderNumber: "ORD-1", CustomerName: in.Name, Status: enums.OrderStatusPending}, nil
	}}

	req := asGuest(newRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(checkoutBody), nil), "guest-1")
	rec := httptest.NewRecorder()
	Checkout(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	if owner.SessionID != "guest-1" || owner.UserID != nil {
		t.Fatalf("unexpected owner %+v", owner)
	}
	var dto orders.OrderDTO
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &dto); err != nil {
		t.Fatalf("decode order: %v", err)
	}
	if dto.OrderNumber != "ORD-1" {
		t.Fatalf("unexpected order %+v", dto)
	}
}

func TestCheckoutPrefersUserOverGuest(t *testing.T) {
	userID := uuid.New()
	var owner cart.Owner
	svc := &stubOrders{checkout: func(_ context.Context, o cart.Owner, _ orders.CustomerInput) (*orders.OrderDTO, error) {
		owner = o
		return &orders.OrderDTO{}, nil
	}}

	req := newRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(checkoutBody), nil)
	req = asUser(asGuest(req, "guest-1"), userID, enums.UserRoleCustomer)
	rec := httptest.NewRecorder()
	Checkout(svc, nil).ServeHTTP(rec, req)

	if owner.UserID == nil || *owner.UserID != userID || owner.SessionID != "" {
		t.Fatalf("unexpected owner %+v", owner)
	}
}

func TestCheckoutValidatesCustomer(t *testing.T) {
	req := asGuest(newRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(`{"customer_name":"Ada"}`), nil), "g")
	rec := httptest.NewRecorder()
	Checkout(&stubOrders{}, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	if !strings.Contains(string(decodeEnvelope(t, rec).Error.Details), "customer_email") {
		t.Fatalf("expected field details, got %s", rec.Body.String())
	}
}

func TestCancelOrderRequiresAuthentication(t *testing.T) {
	rec := httptest.NewRecorder()
	CancelOrder(&stubOrders{}, nil).ServeHTTP(rec, newRequest(http.MethodPost, "/", nil, map[string]string{"id": uuid.NewString()}))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestCancelOrderMapsStateConflict(t *testing.T) {
	orderID := uuid.New()
	userID := uuid.New()
	svc := &stubOrders{cancel: func(_ context.Context, actor policy.Actor, id uuid.UUID, reason string) (*orders.OrderDTO, error) {
		if actor.UserID != userID || id != orderID || reason != "changed mind" {
			t.Fatalf("unexpected call %v %v %q", actor, id, reason)
		}
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order cannot be cancelled")
	}}

	req := newRequest(http.MethodPost, "/", strings.NewReader(`{"reason":"changed mind"}`), map[string]string{"id": orderID.String()})
	rec := httptest.NewRecorder()
	CancelOrder(svc, nil).ServeHTTP(rec, asUser(req, userID, enums.UserRoleCustomer))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", rec.Code)
	}
}

func TestAdminListOrdersParsesFilters(t *testing.T) {
	var got orders.ListFilters
	svc := &stubOrders{listByStatus: func(_ context.Context, _ policy.Actor, f orders.ListFilters, p pagination.Params) (*pagination.Page[orders.OrderDTO], error) {
		got = f
		if p.Limit != 5 {
			t.Fatalf("expected limit 5, got %d", p.Limit)
		}
		return &pagination.Page[orders.OrderDTO]{Items: []orders.OrderDTO{}}, nil
	}}

	req := newRequest(http.MethodGet, "/api/admin/v1/orders?status=processing&payment_status=paid&limit=5", nil, nil)
	rec := httptest.NewRecorder()
	AdminListOrders(svc, nil).ServeHTTP(rec, asUser(req, uuid.New(), enums.UserRoleAdmin))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if got.Status == nil || *got.Status != enums.OrderStatusProcessing {
		t.Fatalf("unexpected status filter %+v", got.Status)
	}
	if got.PaymentStatus == nil || *got.PaymentStatus != enums.PaymentStatusPaid {
		t.Fatalf("unexpected payment filter %+v", got.PaymentStatus)
	}
}

func TestAdminListOrdersRejectsUnknownStatus(t *testing.T) {
	req := newRequest(http.MethodGet, "/api/admin/v1/orders?status=lost", nil, nil)
	rec := httptest.NewRecorder()
	AdminListOrders(&stubOrders{}, nil).ServeHTTP(rec, asUser(req, uuid.New(), enums.UserRoleAdmin))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestAdminScheduleInstallationRejectsPastDate(t *testing.T) {
	called := false
	svc := &stubOrders{schedule: func(context.Context, policy.Actor, uuid.UUID, time.Time) (*orders.OrderDTO, error) {
		called = true
		return &orders.OrderDTO{}, nil
	}}
	req := newRequest(http.MethodPost, "/", strings.NewReader(`{"installation_date":"2001-01-01T00:00:00Z"}`), map[string]string{"id": uuid.NewString()})
	rec := httptest.NewRecorder()
	AdminScheduleInstallation(svc, nil).ServeHTTP(rec, asUser(req, uuid.New(), enums.UserRoleAdmin))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	if called {
		t.Fatal("service must not run for a past date")
	}
}

func TestAdminAcceptOrderRejectsBadID(t *testing.T) {
	req := newRequest(http.MethodPost, "/", nil, map[string]string{"id": "not-a-uuid"})
	rec := httptest.NewRecorder()
	AdminAcceptOrder(&stubOrders{}, nil).ServeHTTP(rec, asUser(req, uuid.New(), enums.UserRoleAdmin))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestAdminAcceptOrderReturnsOrder(t *testing.T) {
	id := uuid.New()
	svc := &stubOrders{accept: func(_ context.Context, _ policy.Actor, got uuid.UUID) (*orders.OrderDTO, error) {
		return &orders.OrderDTO{ID: got, Status: enums.OrderStatusAccepted}, nil
	}}
	req := newRequest(http.MethodPost, "/", nil, map[string]string{"id": id.String()})
	rec := httptest.NewRecorder()
	AdminAcceptOrder(svc, nil).ServeHTTP(rec, asUser(req, uuid.New(), enums.UserRoleAdmin))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), string(enums.OrderStatusAccepted)) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestDownloadOrderInvoiceStreamsPDF(t *testing.T) {
	svc := &stubInvoices{file: &invoices.File{Name: "invoice_INV-1.pdf", ContentType: "application/pdf", Data: []byte("%PDF")}}
	req := newRequest(http.MethodGet, "/", nil, map[string]string{"id": uuid.NewString()})
	rec := httptest.NewRecorder()
	DownloadOrderInvoice(svc, nil).ServeHTTP(rec, asUser(req, uuid.New(), enums.UserRoleCustomer))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "application/pdf" || rec.Body.String() != "%PDF" {
		t.Fatalf("unexpected response %q %q", rec.Header().Get("Content-Type"), rec.Body.String())
	}
}

func TestDownloadOrderInvoiceForbidden(t *testing.T) {
	svc := &stubInvoices{err: policy.ErrNotOwner}
	req := newRequest(http.MethodGet, "/", nil, map[string]string{"id": uuid.NewString()})
	rec := httptest.NewRecorder()
	DownloadOrderInvoice(svc, nil).ServeHTTP(rec, asUser(req, uuid.New(), enums.UserRoleCustomer))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rec.Code)
	}
}
