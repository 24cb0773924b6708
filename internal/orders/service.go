package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/solarflow/solarshop-backend/internal/cart"
	"github.com/solarflow/solarshop-backend/internal/policy"
	"github.com/solarflow/solarshop-backend/pkg/config"
	"github.com/solarflow/solarshop-backend/pkg/db/models"
	"github.com/solarflow/solarshop-backend/pkg/enums"
	pkgerrors "github.com/solarflow/solarshop-backend/pkg/errors"
	"github.com/solarflow/solarshop-backend/pkg/logger"
	"github.com/solarflow/solarshop-backend/pkg/numbering"
	"github.com/solarflow/solarshop-backend/pkg/outbox"
	"github.com/solarflow/solarshop-backend/pkg/outbox/payloads"
	"github.com/solarflow/solarshop-backend/pkg/pagination"
)

// Service drives the order lifecycle from placement to installation.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*OrderDTO, error)
	Checkout(ctx context.Context, owner cart.Owner, customer CustomerInput) (*OrderDTO, error)
	CreateCustom(ctx context.Context, userID *uuid.UUID, req CustomBuildRequest) (*OrderDTO, error)

	Get(ctx context.Context, actor policy.Actor, id uuid.UUID) (*OrderDTO, error)
	ListForUser(ctx context.Context, actor policy.Actor, params pagination.Params) (*pagination.Page[OrderDTO], error)
	ListByStatus(ctx context.Context, actor policy.Actor, filters ListFilters, params pagination.Params) (*pagination.Page[OrderDTO], error)

	Accept(ctx context.Context, actor policy.Actor, id uuid.UUID) (*OrderDTO, error)
	Decline(ctx context.Context, actor policy.Actor, id uuid.UUID, reason string) (*OrderDTO, error)
	Cancel(ctx context.Context, actor policy.Actor, id uuid.UUID, reason string) (*OrderDTO, error)
	ConfirmPayment(ctx context.Context, actor policy.Actor, id uuid.UUID, req ConfirmPaymentRequest) (*OrderDTO, error)
	ScheduleInstallation(ctx context.Context, actor policy.Actor, id uuid.UUID, date time.Time) (*OrderDTO, error)
	MarkInstalled(ctx context.Context, actor policy.Actor, id uuid.UUID) (*OrderDTO, error)
	MarkReturned(ctx context.Context, actor policy.Actor, id uuid.UUID, reason string) (*OrderDTO, error)
	Refund(ctx context.Context, actor policy.Actor, id uuid.UUID) (*OrderDTO, error)
	UpdateTracking(ctx context.Context, actor policy.Actor, id uuid.UUID, number *string) (*OrderDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type ServiceParams struct {
	Repo     *Repository
	Carts    *cart.Repository
	Tx       txRunner
	Outbox   eventEmitter
	Policy   policy.Policy
	Commerce config.CommerceConfig
	Features config.FeatureFlagsConfig
	Logger   *logger.Logger
	Now      func() time.Time
}

type service struct {
	repo     *Repository
	carts    *cart.Repository
	tx       txRunner
	outbox   eventEmitter
	policy   policy.Policy
	commerce config.CommerceConfig
	features config.FeatureFlagsConfig
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Policy == nil {
		params.Policy = policy.Default()
	}
	if params.Now == nil {
		params.Now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:     params.Repo,
		carts:    params.Carts,
		tx:       params.Tx,
		outbox:   params.Outbox,
		policy:   params.Policy,
		commerce: params.Commerce,
		features: params.Features,
		logg:     params.Logger,
		now:      params.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*OrderDTO, error) {
	var orderID uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.place(ctx, s.repo.WithTx(tx), input)
		if err != nil {
			return err
		}
		orderID = order.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.load(ctx, orderID)
}

func (s *service) Checkout(ctx context.Context, owner cart.Owner, customer CustomerInput) (*OrderDTO, error) {
	if !owner.Valid() {
		return nil, cart.ErrInvalidOwner
	}
	var orderID uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		carts := s.carts.WithTx(tx)
		c, err := carts.FindByOwner(ctx, owner)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		lines := cart.Snapshot(c)
		if len(lines) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}

		items := make([]ItemInput, 0, len(lines))
		for _, line := range lines {
			items = append(items, ItemInput{
				Type:          line.Type,
				ProductID:     line.ProductID,
				SolarSystemID: line.SolarSystemID,
				Name:          line.Name,
				Description:   line.Description,
				Price:         line.Price,
				Quantity:      line.Quantity,
			})
		}
		order, err := s.place(ctx, s.repo.WithTx(tx), CreateInput{UserID: owner.UserID, Customer: customer, Items: items})
		if err != nil {
			return err
		}
		if err := carts.ClearItems(ctx, c.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}
		orderID = order.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithField(ctx, "order_id", orderID.String()), "checkout completed")
	return s.load(ctx, orderID)
}

func (s *service) CreateCustom(ctx context.Context, userID *uuid.UUID, req CustomBuildRequest) (*OrderDTO, error) {
	if !s.features.CustomBuilder {
		return nil, pkgerrors.New(pkgerrors.CodeFeatureDisabled, "custom builder is disabled")
	}
	if len(req.Components) == 0 {
		return nil, ErrEmptyOrder
	}

	quantities := make(map[uuid.UUID]int, len(req.Components))
	ids := make([]uuid.UUID, 0, len(req.Components))
	for _, c := range req.Components {
		if c.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "component quantity must be positive")
		}
		if _, seen := quantities[c.ProductID]; !seen {
			ids = append(ids, c.ProductID)
		}
		quantities[c.ProductID] += c.Quantity
	}

	var orderID uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		products, err := repo.FindProducts(ctx, ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load components")
		}
		byID := make(map[uuid.UUID]models.Product, len(products))
		for _, p := range products {
			byID[p.ID] = p
		}

		items := make([]ItemInput, 0, len(ids))
		for _, id := range ids {
			p, ok := byID[id]
			if !ok || !p.IsActive {
				return pkgerrors.New(pkgerrors.CodeValidation, "component is not available").
					WithDetails(map[string]any{"product_id": id.String()})
			}
			productID := p.ID
			items = append(items, ItemInput{
				Type:        enums.OrderItemTypeCustom,
				ProductID:   &productID,
				Name:        p.Name,
				Description: p.Description,
				Price:       p.Price,
				Quantity:    quantities[id],
			})
		}

		order, err := s.place(ctx, repo, CreateInput{UserID: userID, Customer: req.CustomerInput, Items: items})
		if err != nil {
			return err
		}
		orderID = order.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.load(ctx, orderID)
}

// place reserves stock and inserts the order. Callers own the transaction.
func (s *service) place(ctx context.Context, repo *Repository, input CreateInput) (*models.Order, error) {
	if len(input.Items) == 0 {
		return nil, ErrEmptyOrder
	}
	customer := input.Customer
	if strings.TrimSpace(customer.Name) == "" || strings.TrimSpace(customer.Email) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer name and email are required")
	}

	order := &models.Order{
		OrderNumber:         numbering.Generate(s.commerce.OrderNumberPrefix, s.now()),
		UserID:              input.UserID,
		CustomerName:        strings.TrimSpace(customer.Name),
		CustomerEmail:       strings.ToLower(strings.TrimSpace(customer.Email)),
		CustomerPhone:       strings.TrimSpace(customer.Phone),
		InstallationAddress: strings.TrimSpace(customer.InstallationAddress),
		Notes:               customer.Notes,
		Status:              enums.OrderStatusPending,
		PaymentStatus:       enums.PaymentStatusPending,
		Currency:            s.currency(),
		Items:               make([]models.OrderItem, 0, len(input.Items)),
	}

	total := decimal.Zero
	for _, item := range input.Items {
		if item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive")
		}
		if item.Price.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item price must not be negative")
		}
		if !item.Type.IsValid() {
			item.Type = enums.OrderItemTypeUnknown
		}
		if item.ProductID != nil {
			ok, err := repo.DecrementStock(ctx, *item.ProductID, item.Quantity)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve stock")
			}
			if !ok {
				return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient stock").
					WithDetails(map[string]any{"product_id": item.ProductID.String(), "name": item.Name})
			}
		}
		row := models.OrderItem{
			ProductID:     item.ProductID,
			SolarSystemID: item.SolarSystemID,
			Type:          item.Type,
			Name:          item.Name,
			Description:   item.Description,
			Price:         item.Price,
			Quantity:      item.Quantity,
		}
		total = total.Add(row.LineTotal())
		order.Items = append(order.Items, row)
	}
	order.TotalAmount = total

	if err := repo.Create(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}
	return order, nil
}

func (s *service) Get(ctx context.Context, actor policy.Actor, id uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, findError(err)
	}
	if err := s.policy.Authorize(actor, policy.ActionViewOrder, order.UserID); err != nil {
		return nil, err
	}
	return FromModel(order), nil
}

func (s *service) ListForUser(ctx context.Context, actor policy.Actor, params pagination.Params) (*pagination.Page[OrderDTO], error) {
	if !actor.Authenticated() {
		return nil, policy.ErrUnauthenticated
	}
	rows, err := s.repo.ListForUser(ctx, actor.UserID, params)
	if err != nil {
		return nil, listError(err)
	}
	page := toPage(rows, pagination.NormalizeLimit(params.Limit))
	return &page, nil
}

func (s *service) ListByStatus(ctx context.Context, actor policy.Actor, filters ListFilters, params pagination.Params) (*pagination.Page[OrderDTO], error) {
	if err := s.policy.Authorize(actor, policy.ActionManageOrders, nil); err != nil {
		return nil, err
	}
	rows, err := s.repo.List(ctx, filters, params)
	if err != nil {
		return nil, listError(err)
	}
	page := toPage(rows, pagination.NormalizeLimit(params.Limit))
	return &page, nil
}

// Accept moves a new order into processing, then a processing order into accepted.
func (s *service) Accept(ctx context.Context, actor policy.Actor, id uuid.UUID) (*OrderDTO, error) {
	return s.transition(ctx, actor, policy.ActionManageOrders, id, func(_ txScope, order *models.Order) (*change, error) {
		switch order.Status {
		case enums.OrderStatusPending:
			return statusChange(enums.OrderStatusProcessing), nil
		case enums.OrderStatusProcessing:
			return statusChange(enums.OrderStatusAccepted), nil
		default:
			return nil, invalidTransition(string(order.Status), "accept")
		}
	})
}

func (s *service) Decline(ctx context.Context, actor policy.Actor, id uuid.UUID, reason string) (*OrderDTO, error) {
	return s.cancel(ctx, actor, policy.ActionManageOrders, id, reason)
}

func (s *service) Cancel(ctx context.Context, actor policy.Actor, id uuid.UUID, reason string) (*OrderDTO, error) {
	return s.cancel(ctx, actor, policy.ActionCancelOrder, id, reason)
}

func (s *service) cancel(ctx context.Context, actor policy.Actor, action policy.Action, id uuid.UUID, reason string) (*OrderDTO, error) {
	reason = strings.TrimSpace(reason)
	return s.transition(ctx, actor, action, id, func(scope txScope, order *models.Order) (*change, error) {
		if !order.Status.IsCancellable() {
			return nil, ErrNotCancellable
		}
		if order.PaymentStatus == enums.PaymentStatusPaid {
			return nil, ErrAlreadyPaid
		}
		for _, item := range order.Items {
			if item.ProductID == nil {
				continue
			}
			if err := scope.repo.RestoreStock(ctx, *item.ProductID, item.Quantity); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore stock")
			}
		}
		c := statusChange(enums.OrderStatusCancelled)
		c.updates["cancelled_at"] = s.now()
		if reason != "" {
			c.updates["cancellation_reason"] = reason
		}
		c.reason = reason
		return c, nil
	})
}

func (s *service) ConfirmPayment(ctx context.Context, actor policy.Actor, id uuid.UUID, req ConfirmPaymentRequest) (*OrderDTO, error) {
	if !req.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	reference := strings.TrimSpace(req.Reference)
	if req.Method.RequiresReference() && reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference is required for this method").
			WithDetails(map[string]any{"payment_method": req.Method})
	}

	return s.transition(ctx, actor, policy.ActionManageOrders, id, func(scope txScope, order *models.Order) (*change, error) {
		if order.PaymentStatus == enums.PaymentStatusPaid {
			return nil, ErrAlreadyPaid
		}
		if order.Status == enums.OrderStatusCancelled || order.Status == enums.OrderStatusReturned {
			return nil, invalidTransition(string(order.Status), "confirm payment for")
		}

		paidAt := s.now()
		method := req.Method
		c := &change{updates: map[string]any{
			"payment_status": enums.PaymentStatusPaid,
			"payment_method": method,
			"paid_at":        paidAt,
		}}
		if reference != "" {
			c.updates["payment_reference"] = reference
		}
		if err := scope.repo.SyncInvoicePaymentStatus(ctx, order.ID, enums.PaymentStatusPaid); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sync invoice payment status")
		}
		err := s.outbox.EmitIfNotExists(ctx, scope.tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(actor),
			OccurredAt:    paidAt,
			Data: payloads.OrderPaidEvent{
				OrderID:       order.ID,
				OrderNumber:   order.OrderNumber,
				UserID:        order.UserID,
				CustomerName:  order.CustomerName,
				CustomerEmail: order.CustomerEmail,
				TotalAmount:   order.TotalAmount,
				Currency:      order.Currency,
				PaymentMethod: method,
				Reference:     reference,
				PaidAt:        paidAt,
			},
		})
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order paid")
		}
		return c, nil
	})
}

func (s *service) ScheduleInstallation(ctx context.Context, actor policy.Actor, id uuid.UUID, date time.Time) (*OrderDTO, error) {
	if !date.After(s.now()) {
		return nil, ErrDateNotFuture
	}
	return s.transition(ctx, actor, policy.ActionManageOrders, id, func(_ txScope, order *models.Order) (*change, error) {
		if !order.Status.IsSchedulable() {
			return nil, invalidTransition(string(order.Status), "schedule")
		}
		c := statusChange(enums.OrderStatusScheduled)
		c.updates["installation_date"] = date.UTC()
		return c, nil
	})
}

// MarkInstalled completes the installation and starts one warranty per catalog-backed item.
func (s *service) MarkInstalled(ctx context.Context, actor policy.Actor, id uuid.UUID) (*OrderDTO, error) {
	return s.transition(ctx, actor, policy.ActionManageOrders, id, func(scope txScope, order *models.Order) (*change, error) {
		if order.Status != enums.OrderStatusScheduled {
			return nil, invalidTransition(string(order.Status), "mark installed")
		}
		installedAt := s.now()
		warranties, err := s.buildWarranties(ctx, scope.repo, order, installedAt)
		if err != nil {
			return nil, err
		}
		if err := scope.repo.CreateWarranties(ctx, warranties); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create warranties")
		}
		c := statusChange(enums.OrderStatusInstalled)
		c.updates["installed_at"] = installedAt
		return c, nil
	})
}

func (s *service) MarkReturned(ctx context.Context, actor policy.Actor, id uuid.UUID, reason string) (*OrderDTO, error) {
	reason = strings.TrimSpace(reason)
	return s.transition(ctx, actor, policy.ActionManageOrders, id, func(scope txScope, order *models.Order) (*change, error) {
		switch order.Status {
		case enums.OrderStatusAccepted, enums.OrderStatusScheduled, enums.OrderStatusInstalled:
		default:
			return nil, invalidTransition(string(order.Status), "return")
		}
		voided, err := scope.repo.VoidWarranties(ctx, order.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "void warranties")
		}
		if voided > 0 {
			s.logg.Info(s.logg.WithFields(ctx, map[string]any{"order_id": order.ID.String(), "voided": voided}), "warranties voided")
		}
		c := statusChange(enums.OrderStatusReturned)
		c.reason = reason
		return c, nil
	})
}

func (s *service) Refund(ctx context.Context, actor policy.Actor, id uuid.UUID) (*OrderDTO, error) {
	return s.transition(ctx, actor, policy.ActionManageOrders, id, func(scope txScope, order *models.Order) (*change, error) {
		if order.PaymentStatus != enums.PaymentStatusPaid {
			return nil, ErrRefundNotAllowed
		}
		if err := scope.repo.SyncInvoicePaymentStatus(ctx, order.ID, enums.PaymentStatusRefunded); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sync invoice payment status")
		}
		return &change{updates: map[string]any{"payment_status": enums.PaymentStatusRefunded}}, nil
	})
}

func (s *service) UpdateTracking(ctx context.Context, actor policy.Actor, id uuid.UUID, number *string) (*OrderDTO, error) {
	return s.transition(ctx, actor, policy.ActionManageOrders, id, func(_ txScope, order *models.Order) (*change, error) {
		if order.Status == enums.OrderStatusCancelled || order.Status == enums.OrderStatusReturned {
			return nil, invalidTransition(string(order.Status), "track")
		}
		tracking := ""
		if number != nil {
			tracking = strings.TrimSpace(*number)
		}
		if tracking == "" {
			tracking = numbering.Generate(s.commerce.TrackingNumberPrefix, s.now())
		}
		return &change{updates: map[string]any{"tracking_number": tracking}}, nil
	})
}

type txScope struct {
	tx   *gorm.DB
	repo *Repository
}

type change struct {
	updates map[string]any
	reason  string
}

func statusChange(to enums.OrderStatus) *change {
	return &change{updates: map[string]any{"status": to}}
}

// transition locks the order, authorizes the actor, applies the change and
// emits a status event when the status moved. Everything runs in one transaction.
func (s *service) transition(ctx context.Context, actor policy.Actor, action policy.Action, id uuid.UUID, apply func(txScope, *models.Order) (*change, error)) (*OrderDTO, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		scope := txScope{tx: tx, repo: s.repo.WithTx(tx)}
		order, err := scope.repo.FindForUpdate(ctx, id)
		if err != nil {
			return findError(err)
		}
		if err := s.policy.Authorize(actor, action, order.UserID); err != nil {
			return err
		}

		c, err := apply(scope, order)
		if err != nil {
			return err
		}
		if c == nil || len(c.updates) == 0 {
			return nil
		}
		c.updates["updated_at"] = s.now()
		if err := scope.repo.Update(ctx, order.ID, c.updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}

		next, moved := c.updates["status"].(enums.OrderStatus)
		if !moved || next == order.Status {
			return nil
		}
		err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(actor),
			OccurredAt:    s.now(),
			Data: payloads.OrderStatusChangedEvent{
				OrderID:        order.ID,
				OrderNumber:    order.OrderNumber,
				UserID:         order.UserID,
				CustomerEmail:  order.CustomerEmail,
				PreviousStatus: order.Status,
				Status:         next,
				Reason:         c.reason,
			},
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order status changed")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id": id.String(),
		"action":   string(action),
		"actor_id": actor.UserID.String(),
	}), "order updated")
	return s.load(ctx, id)
}

func (s *service) buildWarranties(ctx context.Context, repo *Repository, order *models.Order, start time.Time) ([]models.Warranty, error) {
	var productIDs, systemIDs []uuid.UUID
	for _, item := range order.Items {
		if item.ProductID != nil {
			productIDs = append(productIDs, *item.ProductID)
		}
		if item.SolarSystemID != nil {
			systemIDs = append(systemIDs, *item.SolarSystemID)
		}
	}
	products, err := repo.FindProducts(ctx, productIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	systems, err := repo.FindSystems(ctx, systemIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load solar systems")
	}
	months := make(map[uuid.UUID]int, len(products)+len(systems))
	for _, p := range products {
		months[p.ID] = p.WarrantyMonths
	}
	for _, sys := range systems {
		months[sys.ID] = sys.WarrantyMonths
	}

	out := make([]models.Warranty, 0, len(order.Items))
	for _, item := range order.Items {
		var ref uuid.UUID
		switch {
		case item.ProductID != nil:
			ref = *item.ProductID
		case item.SolarSystemID != nil:
			ref = *item.SolarSystemID
		default:
			continue
		}
		term := months[ref]
		if term <= 0 {
			term = s.commerce.DefaultWarrantyMonths
		}
		itemID := item.ID
		out = append(out, models.Warranty{
			WarrantyNumber: numbering.Generate(s.commerce.WarrantyNumberPrefix, start),
			OrderID:        order.ID,
			OrderItemID:    &itemID,
			UserID:         order.UserID,
			ProductID:      item.ProductID,
			SolarSystemID:  item.SolarSystemID,
			ItemName:       item.Name,
			StartDate:      start,
			EndDate:        start.AddDate(0, term, 0),
			Status:         enums.WarrantyStatusActive,
		})
	}
	return out, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, findError(err)
	}
	return FromModel(order), nil
}

func (s *service) currency() string {
	if s.commerce.Currency == "" {
		return "USD"
	}
	return s.commerce.Currency
}

func actorRef(actor policy.Actor) *outbox.ActorRef {
	if !actor.Authenticated() {
		return nil
	}
	return &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)}
}

func findError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrOrderNotFound
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
}

func listError(err error) error {
	if strings.Contains(err.Error(), "cursor") {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
}
