package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/solarflow/solarshop-backend/api/responses"
	"github.com/solarflow/solarshop-backend/api/validators"
	"github.com/solarflow/solarshop-backend/internal/invoices"
	"github.com/solarflow/solarshop-backend/internal/orders"
	"github.com/solarflow/solarshop-backend/internal/policy"
	"github.com/solarflow/solarshop-backend/pkg/enums"
	pkgerrors "github.com/solarflow/solarshop-backend/pkg/errors"
	"github.com/solarflow/solarshop-backend/pkg/logger"
)

// orderAction runs one admin transition against the order named in the path.
type orderAction func(ctx context.Context, actor policy.Actor, id uuid.UUID, r *http.Request) (*orders.OrderDTO, error)

func adminOrderAction(svc orders.Service, logg *logger.Logger, action orderAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "orders service")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := action(r.Context(), actor, id, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// AdminListOrders filters the order book by status and payment status.
func AdminListOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "orders service")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var filters orders.ListFilters
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			filters.Status = &status
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("payment_status")); raw != "" {
			status, err := enums.ParsePaymentStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment_status"))
				return
			}
			filters.PaymentStatus = &status
		}

		page, err := svc.ListByStatus(r.Context(), actor, filters, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func AdminAcceptOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return adminOrderAction(svc, logg, func(ctx context.Context, actor policy.Actor, id uuid.UUID, _ *http.Request) (*orders.OrderDTO, error) {
		return svc.Accept(ctx, actor, id)
	})
}

func AdminDeclineOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return adminOrderAction(svc, logg, func(ctx context.Context, actor policy.Actor, id uuid.UUID, r *http.Request) (*orders.OrderDTO, error) {
		var req orders.ReasonRequest
		if err := validators.DecodeOptionalJSONBody(r, &req); err != nil {
			return nil, err
		}
		return svc.Decline(ctx, actor, id, req.Reason)
	})
}

func AdminCancelOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return adminOrderAction(svc, logg, func(ctx context.Context, actor policy.Actor, id uuid.UUID, r *http.Request) (*orders.OrderDTO, error) {
		var req orders.ReasonRequest
		if err := validators.DecodeOptionalJSONBody(r, &req); err != nil {
			return nil, err
		}
		return svc.Cancel(ctx, actor, id, req.Reason)
	})
}

func AdminConfirmPayment(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return adminOrderAction(svc, logg, func(ctx context.Context, actor policy.Actor, id uuid.UUID, r *http.Request) (*orders.OrderDTO, error) {
		var req orders.ConfirmPaymentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			return nil, err
		}
		return svc.ConfirmPayment(ctx, actor, id, req)
	})
}

func AdminScheduleInstallation(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return adminOrderAction(svc, logg, func(ctx context.Context, actor policy.Actor, id uuid.UUID, r *http.Request) (*orders.OrderDTO, error) {
		var req orders.ScheduleRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			return nil, err
		}
		return svc.ScheduleInstallation(ctx, actor, id, req.InstallationDate)
	})
}

func AdminMarkInstalled(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return adminOrderAction(svc, logg, func(ctx context.Context, actor policy.Actor, id uuid.UUID, _ *http.Request) (*orders.OrderDTO, error) {
		return svc.MarkInstalled(ctx, actor, id)
	})
}

func AdminMarkReturned(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return adminOrderAction(svc, logg, func(ctx context.Context, actor policy.Actor, id uuid.UUID, r *http.Request) (*orders.OrderDTO, error) {
		var req orders.ReasonRequest
		if err := validators.DecodeOptionalJSONBody(r, &req); err != nil {
			return nil, err
		}
		return svc.MarkReturned(ctx, actor, id, req.Reason)
	})
}

func AdminRefundOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return adminOrderAction(svc, logg, func(ctx context.Context, actor policy.Actor, id uuid.UUID, _ *http.Request) (*orders.OrderDTO, error) {
		return svc.Refund(ctx, actor, id)
	})
}

// AdminUpdateTracking sets the tracking number, generating one when the body omits it.
func AdminUpdateTracking(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return adminOrderAction(svc, logg, func(ctx context.Context, actor policy.Actor, id uuid.UUID, r *http.Request) (*orders.OrderDTO, error) {
		var req orders.TrackingRequest
		if err := validators.DecodeOptionalJSONBody(r, &req); err != nil {
			return nil, err
		}
		return svc.UpdateTracking(ctx, actor, id, req.TrackingNumber)
	})
}

// AdminGenerateInvoice creates (or returns the existing) invoice for an order.
func AdminGenerateInvoice(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "invoice service")
			return
		}
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		invoice, err := svc.Generate(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, invoice)
	}
}

func AdminDownloadInvoice(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "invoice service")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		file, err := svc.Download(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteFile(w, file.Name, file.ContentType, file.Data)
	}
}
