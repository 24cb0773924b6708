package warranties

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/solarflow/solarshop-backend/internal/policy"
	"github.com/solarflow/solarshop-backend/pkg/db/models"
	"github.com/solarflow/solarshop-backend/pkg/enums"
	pkgerrors "github.com/solarflow/solarshop-backend/pkg/errors"
	"github.com/solarflow/solarshop-backend/pkg/logger"
	"github.com/solarflow/solarshop-backend/pkg/numbering"
	"github.com/solarflow/solarshop-backend/pkg/outbox"
	"github.com/solarflow/solarshop-backend/pkg/outbox/payloads"
	"github.com/solarflow/solarshop-backend/pkg/pagination"
)

var (
	ErrWarrantyNotFound = pkgerrors.New(pkgerrors.CodeNotFound, "warranty not found")
	ErrClaimNotFound    = pkgerrors.New(pkgerrors.CodeNotFound, "warranty claim not found")
	ErrWarrantyInactive = pkgerrors.New(pkgerrors.CodeStateConflict, "warranty is not active")
	ErrClaimsDisabled   = pkgerrors.New(pkgerrors.CodeFeatureDisabled, "warranty claims are disabled")
)

type Service interface {
	ListForUser(ctx context.Context, actor policy.Actor, params pagination.Params) (*pagination.Page[WarrantyDTO], error)
	Get(ctx context.Context, actor policy.Actor, id uuid.UUID) (*WarrantyDTO, error)
	FileClaim(ctx context.Context, actor policy.Actor, warrantyID uuid.UUID, req FileClaimRequest) (*ClaimDTO, error)
	ListClaims(ctx context.Context, actor policy.Actor, filters ClaimFilters, params pagination.Params) (*pagination.Page[ClaimDTO], error)
	UpdateClaimStatus(ctx context.Context, actor policy.Actor, claimID uuid.UUID, req UpdateClaimRequest) (*ClaimDTO, error)
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ServiceParams struct {
	Repo          *Repository
	Tx            txRunner
	Outbox        outbox.Emitter
	Policy        policy.Policy
	ClaimsEnabled bool
	ClaimPrefix   string
	Logger        *logger.Logger
	Now           func() time.Time
}

type service struct {
	repo          *Repository
	tx            txRunner
	outbox        outbox.Emitter
	policy        policy.Policy
	claimsEnabled bool
	claimPrefix   string
	logg          *logger.Logger
	now           func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("warranty repository required")
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
	if params.ClaimPrefix == "" {
		params.ClaimPrefix = "CLM"
	}
	if params.Now == nil {
		params.Now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:          params.Repo,
		tx:            params.Tx,
		outbox:        params.Outbox,
		policy:        params.Policy,
		claimsEnabled: params.ClaimsEnabled,
		claimPrefix:   params.ClaimPrefix,
		logg:          params.Logger,
		now:           params.Now,
	}, nil
}

func (s *service) ListForUser(ctx context.Context, actor policy.Actor, params pagination.Params) (*pagination.Page[WarrantyDTO], error) {
	if !actor.Authenticated() {
		return nil, policy.ErrUnauthenticated
	}
	rows, err := s.repo.ListForUser(ctx, actor.UserID, params)
	if err != nil {
		return nil, listError(err, "list warranties")
	}
	page := pagination.BuildPage(rows, params.Limit, func(w models.Warranty) pagination.Cursor {
		return pagination.Cursor{CreatedAt: w.CreatedAt, ID: w.ID}
	})
	out := &pagination.Page[WarrantyDTO]{Items: make([]WarrantyDTO, 0, len(page.Items)), NextCursor: page.NextCursor}
	for _, w := range page.Items {
		out.Items = append(out.Items, warrantyDTO(w))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, actor policy.Actor, id uuid.UUID) (*WarrantyDTO, error) {
	w, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrWarrantyNotFound, "load warranty")
	}
	if err := s.policy.Authorize(actor, policy.ActionViewWarranty, w.UserID); err != nil {
		return nil, err
	}
	dto := warrantyDTO(*w)
	return &dto, nil
}

// FileClaim opens a claim on the caller's own warranty while it is in force.
func (s *service) FileClaim(ctx context.Context, actor policy.Actor, warrantyID uuid.UUID, req FileClaimRequest) (*ClaimDTO, error) {
	if !s.claimsEnabled {
		return nil, ErrClaimsDisabled
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "description is required")
	}

	w, err := s.repo.FindByID(ctx, warrantyID)
	if err != nil {
		return nil, notFound(err, ErrWarrantyNotFound, "load warranty")
	}
	if err := s.policy.Authorize(actor, policy.ActionFileClaim, w.UserID); err != nil {
		return nil, err
	}
	now := s.now()
	if w.Status != enums.WarrantyStatusActive || now.After(w.EndDate) {
		return nil, ErrWarrantyInactive.WithDetails(map[string]any{"status": w.Status, "end_date": w.EndDate})
	}

	claim := &models.WarrantyClaim{
		ClaimNumber: numbering.Generate(s.claimPrefix, now),
		WarrantyID:  w.ID,
		UserID:      actor.UserID,
		Description: description,
		Status:      enums.ClaimStatusSubmitted,
	}
	if err := s.repo.CreateClaim(ctx, claim); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create claim")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"claim_id":    claim.ID.String(),
		"warranty_id": w.ID.String(),
	}), "warranty claim filed")
	dto := claimDTO(*claim)
	return &dto, nil
}

func (s *service) ListClaims(ctx context.Context, actor policy.Actor, filters ClaimFilters, params pagination.Params) (*pagination.Page[ClaimDTO], error) {
	if err := s.policy.Authorize(actor, policy.ActionManageClaims, nil); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListClaims(ctx, filters, params)
	if err != nil {
		return nil, listError(err, "list claims")
	}
	page := pagination.BuildPage(rows, params.Limit, func(c models.WarrantyClaim) pagination.Cursor {
		return pagination.Cursor{CreatedAt: c.CreatedAt, ID: c.ID}
	})
	out := &pagination.Page[ClaimDTO]{Items: make([]ClaimDTO, 0, len(page.Items)), NextCursor: page.NextCursor}
	for _, c := range page.Items {
		out.Items = append(out.Items, claimDTO(c))
	}
	return out, nil
}

// UpdateClaimStatus moves a claim forward. Allowed moves: submitted to under_review,
// approved or rejected; under_review to approved or rejected; approved or rejected to resolved.
func (s *service) UpdateClaimStatus(ctx context.Context, actor policy.Actor, claimID uuid.UUID, req UpdateClaimRequest) (*ClaimDTO, error) {
	if err := s.policy.Authorize(actor, policy.ActionManageClaims, nil); err != nil {
		return nil, err
	}
	if !req.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid claim status")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		claim, err := repo.FindClaimForUpdate(ctx, claimID)
		if err != nil {
			return notFound(err, ErrClaimNotFound, "load claim")
		}
		if !claim.Status.CanTransitionTo(req.Status) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "claim status transition not allowed").
				WithDetails(map[string]any{"from": claim.Status, "to": req.Status})
		}

		now := s.now()
		updates := map[string]any{"status": req.Status, "updated_at": now}
		if req.AdminNotes != nil {
			updates["admin_notes"] = strings.TrimSpace(*req.AdminNotes)
		}
		if req.EstimatedRepairDate != nil {
			updates["estimated_repair_date"] = req.EstimatedRepairDate.UTC()
		}
		if req.Status == enums.ClaimStatusResolved {
			updates["resolved_at"] = now
		}
		if err := repo.UpdateClaim(ctx, claim.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update claim")
		}

		notes := ""
		if req.AdminNotes != nil {
			notes = strings.TrimSpace(*req.AdminNotes)
		}
		err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventClaimStatusChanged,
			AggregateType: enums.AggregateWarrantyClaim,
			AggregateID:   claim.ID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)},
			OccurredAt:    now,
			Data: payloads.ClaimStatusChangedEvent{
				ClaimID:             claim.ID,
				ClaimNumber:         claim.ClaimNumber,
				WarrantyID:          claim.WarrantyID,
				UserID:              claim.UserID,
				PreviousStatus:      claim.Status,
				Status:              req.Status,
				AdminNotes:          notes,
				EstimatedRepairDate: req.EstimatedRepairDate,
			},
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit claim status changed")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	claim, err := s.repo.FindClaim(ctx, claimID)
	if err != nil {
		return nil, notFound(err, ErrClaimNotFound, "load claim")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"claim_id": claimID.String(),
		"status":   string(req.Status),
	}), "warranty claim updated")
	dto := claimDTO(*claim)
	return &dto, nil
}

func (s *service) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.repo.ExpireBefore(ctx, now.UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire warranties")
	}
	return n, nil
}

func notFound(err error, sentinel error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}

func listError(err error, msg string) error {
	if strings.Contains(err.Error(), "cursor") {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
