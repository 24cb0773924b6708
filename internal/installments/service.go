// Package installments spreads an order's balance over monthly payments.
package installments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/solarflow/solarshop-backend/internal/policy"
	"github.com/solarflow/solarshop-backend/pkg/db"
	"github.com/solarflow/solarshop-backend/pkg/db/models"
	"github.com/solarflow/solarshop-backend/pkg/enums"
	pkgerrors "github.com/solarflow/solarshop-backend/pkg/errors"
	"github.com/solarflow/solarshop-backend/pkg/logger"
)

var (
	ErrPlansDisabled = pkgerrors.New(pkgerrors.CodeFeatureDisabled, "installment plans are disabled")
	ErrPlanNotFound  = pkgerrors.New(pkgerrors.CodeNotFound, "installment plan not found")
	ErrPlanExists    = pkgerrors.New(pkgerrors.CodeConflict, "order already has an installment plan")
	ErrPlanClosed    = pkgerrors.New(pkgerrors.CodeStateConflict, "installment plan is closed")
)

type CreatePlanRequest struct {
	Months      int             `json:"months" validate:"required,gte=1"`
	DownPayment decimal.Decimal `json:"down_payment"`
}

type RecordPaymentRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference" validate:"max=120"`
}

type PaymentDTO struct {
	ID        uuid.UUID       `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Reference *string         `json:"reference,omitempty"`
	PaidAt    time.Time       `json:"paid_at"`
}

type PlanDTO struct {
	ID               uuid.UUID               `json:"id"`
	OrderID          uuid.UUID               `json:"order_id"`
	Months           int                     `json:"months"`
	DownPayment      decimal.Decimal         `json:"down_payment"`
	FinancedAmount   decimal.Decimal         `json:"financed_amount"`
	MonthlyAmount    decimal.Decimal         `json:"monthly_amount"`
	Balance          decimal.Decimal         `json:"balance"`
	PaidInstallments int                     `json:"paid_installments"`
	NextDueDate      time.Time               `json:"next_due_date"`
	Status           enums.InstallmentStatus `json:"status"`
	Payments         []PaymentDTO            `json:"payments"`
	CreatedAt        time.Time               `json:"created_at"`
}

type Service interface {
	CreatePlan(ctx context.Context, actor policy.Actor, orderID uuid.UUID, req CreatePlanRequest) (*PlanDTO, error)
	ListForUser(ctx context.Context, actor policy.Actor) ([]PlanDTO, error)
	RecordPayment(ctx context.Context, actor policy.Actor, planID uuid.UUID, req RecordPaymentRequest) (*PlanDTO, error)
	MarkOverdue(ctx context.Context, now time.Time) (int64, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ServiceParams struct {
	Repo      *Repository
	Tx        txRunner
	Policy    policy.Policy
	Enabled   bool
	MaxMonths int
	Logger    *logger.Logger
	Now       func() time.Time
}

type service struct {
	repo      *Repository
	tx        txRunner
	policy    policy.Policy
	enabled   bool
	maxMonths int
	logg      *logger.Logger
	now       func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("installment repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Policy == nil {
		params.Policy = policy.Default()
	}
	if params.MaxMonths <= 0 {
		params.MaxMonths = 36
	}
	if params.Now == nil {
		params.Now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:      params.Repo,
		tx:        params.Tx,
		policy:    params.Policy,
		enabled:   params.Enabled,
		maxMonths: params.MaxMonths,
		logg:      params.Logger,
		now:       params.Now,
	}, nil
}

func (s *service) CreatePlan(ctx context.Context, actor policy.Actor, orderID uuid.UUID, req CreatePlanRequest) (*PlanDTO, error) {
	if !s.enabled {
		return nil, ErrPlansDisabled
	}
	if req.Months < 1 || req.Months > s.maxMonths {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("months must be between 1 and %d", s.maxMonths))
	}
	if req.DownPayment.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "down payment must not be negative")
	}

	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if err := s.policy.Authorize(actor, policy.ActionCreatePlan, order.UserID); err != nil {
		return nil, err
	}
	if order.UserID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "guest orders cannot be financed")
	}
	switch {
	case order.Status == enums.OrderStatusCancelled || order.Status == enums.OrderStatusReturned:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is closed")
	case order.PaymentStatus == enums.PaymentStatusPaid || order.PaymentStatus == enums.PaymentStatusRefunded:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is already settled")
	}
	if !req.DownPayment.LessThan(order.TotalAmount) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "down payment must be less than the order total")
	}

	now := s.now()
	financed := order.TotalAmount.Sub(req.DownPayment).Round(2)
	plan := &models.InstallmentPlan{
		OrderID:        order.ID,
		UserID:         *order.UserID,
		Months:         req.Months,
		DownPayment:    req.DownPayment.Round(2),
		FinancedAmount: financed,
		MonthlyAmount:  financed.Div(decimal.NewFromInt(int64(req.Months))).RoundUp(2),
		NextDueDate:    now.AddDate(0, 1, 0),
		Status:         enums.InstallmentStatusActive,
	}
	if err := s.repo.Create(ctx, plan); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, ErrPlanExists
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create installment plan")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"plan_id":  plan.ID.String(),
		"order_id": order.ID.String(),
		"months":   plan.Months,
	}), "installment plan created")
	return toDTO(plan), nil
}

func (s *service) ListForUser(ctx context.Context, actor policy.Actor) ([]PlanDTO, error) {
	if !s.enabled {
		return nil, ErrPlansDisabled
	}
	if !actor.Authenticated() {
		return nil, policy.ErrUnauthenticated
	}
	rows, err := s.repo.ListForUser(ctx, actor.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list installment plans")
	}
	out := make([]PlanDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *toDTO(&rows[i]))
	}
	return out, nil
}

// RecordPayment books a payment against the outstanding balance. Partial amounts carry over;
// an installment counts as paid once the running total covers it, and the plan completes when
// the financed amount is fully paid.
func (s *service) RecordPayment(ctx context.Context, actor policy.Actor, planID uuid.UUID, req RecordPaymentRequest) (*PlanDTO, error) {
	if err := s.policy.Authorize(actor, policy.ActionManageInstalment, nil); err != nil {
		return nil, err
	}
	amount := req.Amount.Round(2)
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		plan, err := repo.FindForUpdate(ctx, planID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPlanNotFound
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load installment plan")
		}
		if plan.Status != enums.InstallmentStatusActive && plan.Status != enums.InstallmentStatusOverdue {
			return ErrPlanClosed
		}

		paidSoFar, err := repo.SumPayments(ctx, plan.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum installment payments")
		}
		outstanding := plan.FinancedAmount.Sub(paidSoFar)
		if amount.GreaterThan(outstanding) {
			return pkgerrors.New(pkgerrors.CodeValidation, "amount exceeds the outstanding balance").
				WithDetails(map[string]any{"outstanding": outstanding.StringFixed(2)})
		}

		now := s.now()
		payment := &models.InstallmentPayment{PlanID: plan.ID, Amount: amount, PaidAt: now}
		if ref := strings.TrimSpace(req.Reference); ref != "" {
			payment.Reference = &ref
		}
		if err := repo.AddPayment(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record installment payment")
		}

		covered := coveredInstallments(plan, paidSoFar.Add(amount))
		updates := map[string]any{
			"paid_installments": covered,
			"updated_at":        now,
		}
		if advanced := covered - plan.PaidInstallments; advanced > 0 {
			updates["next_due_date"] = plan.NextDueDate.AddDate(0, advanced, 0)
			updates["status"] = enums.InstallmentStatusActive
		}
		if covered >= plan.Months {
			updates["status"] = enums.InstallmentStatusCompleted
		}
		if err := repo.Update(ctx, plan.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update installment plan")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	plan, err := s.repo.FindByID(ctx, planID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload installment plan")
	}
	return toDTO(plan), nil
}

func (s *service) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.repo.MarkOverdue(ctx, now.UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark overdue installment plans")
	}
	return n, nil
}

// coveredInstallments is how many monthly amounts the running total pays for.
// The last installment may be short because the monthly amount is rounded up.
func coveredInstallments(plan *models.InstallmentPlan, total decimal.Decimal) int {
	if !total.LessThan(plan.FinancedAmount) {
		return plan.Months
	}
	if !plan.MonthlyAmount.IsPositive() {
		return 0
	}
	return min(int(total.Div(plan.MonthlyAmount).IntPart()), plan.Months-1)
}

func toDTO(plan *models.InstallmentPlan) *PlanDTO {
	dto := &PlanDTO{
		ID:               plan.ID,
		OrderID:          plan.OrderID,
		Months:           plan.Months,
		DownPayment:      plan.DownPayment,
		FinancedAmount:   plan.FinancedAmount,
		MonthlyAmount:    plan.MonthlyAmount,
		Balance:          plan.FinancedAmount,
		PaidInstallments: plan.PaidInstallments,
		NextDueDate:      plan.NextDueDate,
		Status:           plan.Status,
		Payments:         make([]PaymentDTO, 0, len(plan.Payments)),
		CreatedAt:        plan.CreatedAt,
	}
	for _, p := range plan.Payments {
		dto.Payments = append(dto.Payments, PaymentDTO{ID: p.ID, Amount: p.Amount, Reference: p.Reference, PaidAt: p.PaidAt})
		dto.Balance = dto.Balance.Sub(p.Amount)
	}
	return dto
}
