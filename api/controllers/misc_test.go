package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/solarflow/solarshop-backend/internal/cart"
	"github.com/solarflow/solarshop-backend/internal/notifications"
	"github.com/solarflow/solarshop-backend/internal/policy"
	"github.com/solarflow/solarshop-backend/internal/warranties"
	"github.com/solarflow/solarshop-backend/pkg/enums"
	pkgerrors "github.com/solarflow/solarshop-backend/pkg/errors"
)

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthReady(t *testing.T) {
	ok := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("refused") })

	rec := httptest.NewRecorder()
	HealthReady(ok, ok, nil).ServeHTTP(rec, newRequest(http.MethodGet, "/health/ready", nil, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	HealthReady(ok, down, nil).ServeHTTP(rec, newRequest(http.MethodGet, "/health/ready", nil, nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", rec.Code)
	}
	if !strings.Contains(string(decodeEnvelope(t, rec).Error.Details), `"redis":"down"`) {
		t.Fatalf("expected failing component in details, got %s", rec.Body.String())
	}
}

type stubCart struct {
	cart.Service
	owner cart.Owner
	added cart.AddItemInput
}

func (s *stubCart) AddItem(_ context.Context, owner cart.Owner, in cart.AddItemInput) (*cart.CartDTO, error) {
	s.owner, s.added = owner, in
	return &cart.CartDTO{}, nil
}

func (s *stubCart) Clear(_ context.Context, owner cart.Owner) error {
	s.owner = owner
	return nil
}

func TestAddCartItemForGuest(t *testing.T) {
	productID := uuid.New()
	svc := &stubCart{}
	body := `{"product_id":"` + productID.String() + `","quantity":2}`
	req := asGuest(newRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(body), nil), "guest-7")
	rec := httptest.NewRecorder()
	AddCartItem(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.owner.SessionID != "guest-7" || svc.added.Quantity != 2 || *svc.added.ProductID != productID {
		t.Fatalf("unexpected call owner=%+v input=%+v", svc.owner, svc.added)
	}
}

func TestCartWithoutSessionIsUnauthorized(t *testing.T) {
	rec := httptest.NewRecorder()
	ClearCart(&stubCart{}, nil).ServeHTTP(rec, newRequest(http.MethodDelete, "/api/v1/cart", nil, nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestClearCartReturnsNoContent(t *testing.T) {
	rec := httptest.NewRecorder()
	ClearCart(&stubCart{}, nil).ServeHTTP(rec, asGuest(newRequest(http.MethodDelete, "/api/v1/cart", nil, nil), "g"))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", rec.Code)
	}
}

type stubNotifications struct {
	notifications.Service
	params notifications.ListParams
	marked uuid.UUID
	err    error
}

func (s *stubNotifications) List(_ context.Context, p notifications.ListParams) (*notifications.ListResult, error) {
	s.params = p
	return &notifications.ListResult{Items: []notifications.NotificationDTO{}}, s.err
}

func (s *stubNotifications) MarkRead(_ context.Context, _ uuid.UUID, id uuid.UUID) error {
	s.marked = id
	return s.err
}

func TestListNotificationsScopesToCaller(t *testing.T) {
	userID := uuid.New()
	svc := &stubNotifications{}
	req := asUser(newRequest(http.MethodGet, "/api/v1/notifications?unread_only=true&limit=10", nil, nil), userID, enums.UserRoleCustomer)
	rec := httptest.NewRecorder()
	ListNotifications(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.params.UserID != userID || !svc.params.UnreadOnly || svc.params.Limit != 10 {
		t.Fatalf("unexpected params %+v", svc.params)
	}
}

func TestListNotificationsRejectsBadFlag(t *testing.T) {
	req := asUser(newRequest(http.MethodGet, "/api/v1/notifications?unread_only=maybe", nil, nil), uuid.New(), enums.UserRoleCustomer)
	rec := httptest.NewRecorder()
	ListNotifications(&stubNotifications{}, nil).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestMarkNotificationReadNotFound(t *testing.T) {
	id := uuid.New()
	svc := &stubNotifications{err: notifications.ErrNotificationNotFound}
	req := asUser(newRequest(http.MethodPost, "/", nil, map[string]string{"id": id.String()}), uuid.New(), enums.UserRoleCustomer)
	rec := httptest.NewRecorder()
	MarkNotificationRead(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
	if svc.marked != id {
		t.Fatalf("expected %s marked, got %s", id, svc.marked)
	}
}

type stubWarranties struct {
	warranties.Service
	filed warranties.FileClaimRequest
	err   error
}

func (s *stubWarranties) FileClaim(_ context.Context, _ policy.Actor, _ uuid.UUID, req warranties.FileClaimRequest) (*warranties.ClaimDTO, error) {
	s.filed = req
	if s.err != nil {
		return nil, s.err
	}
	return &warranties.ClaimDTO{Status: enums.ClaimStatusSubmitted}, nil
}

func TestFileWarrantyClaim(t *testing.T) {
	svc := &stubWarranties{}
	req := newRequest(http.MethodPost, "/", strings.NewReader(`{"description":"inverter shows fault 42"}`), map[string]string{"id": uuid.NewString()})
	rec := httptest.NewRecorder()
	FileWarrantyClaim(svc, nil).ServeHTTP(rec, asUser(req, uuid.New(), enums.UserRoleCustomer))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.filed.Description != "inverter shows fault 42" {
		t.Fatalf("unexpected request %+v", svc.filed)
	}
}

func TestFileWarrantyClaimFeatureDisabled(t *testing.T) {
	svc := &stubWarranties{err: pkgerrors.New(pkgerrors.CodeFeatureDisabled, "warranty claims are disabled")}
	req := newRequest(http.MethodPost, "/", strings.NewReader(`{"description":"inverter shows fault 42"}`), map[string]string{"id": uuid.NewString()})
	rec := httptest.NewRecorder()
	FileWarrantyClaim(svc, nil).ServeHTTP(rec, asUser(req, uuid.New(), enums.UserRoleCustomer))

	if rec.Code < http.StatusBadRequest {
		t.Fatalf("expected error status got %d", rec.Code)
	}
	if decodeEnvelope(t, rec).Error.Code != string(pkgerrors.CodeFeatureDisabled) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}
