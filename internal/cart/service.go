package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/solarflow/solarshop-backend/pkg/db/models"
	pkgerrors "github.com/solarflow/solarshop-backend/pkg/errors"
	"github.com/solarflow/solarshop-backend/pkg/logger"
)

const maxLineQuantity = 1000

var (
	ErrInvalidOwner = pkgerrors.New(pkgerrors.CodeValidation, "cart requires exactly one of user or session")
	ErrItemNotFound = pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
)

// Service manages the storefront cart.
type Service interface {
	Get(ctx context.Context, owner Owner) (*CartDTO, error)
	AddItem(ctx context.Context, owner Owner, input AddItemInput) (*CartDTO, error)
	UpdateItem(ctx context.Context, owner Owner, itemID uuid.UUID, input UpdateItemInput) (*CartDTO, error)
	RemoveItem(ctx context.Context, owner Owner, itemID uuid.UUID) (*CartDTO, error)
	Clear(ctx context.Context, owner Owner) error
	MergeGuest(ctx context.Context, sessionID string, userID uuid.UUID) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo *Repository
	tx   txRunner
	logg *logger.Logger
}

func NewService(repo *Repository, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx, logg: logg}, nil
}

func (s *service) Get(ctx context.Context, owner Owner) (*CartDTO, error) {
	if !owner.Valid() {
		return nil, ErrInvalidOwner
	}
	c, err := s.repo.FindByOwner(ctx, owner)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			empty := fromModel(nil)
			return &empty, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	dto := fromModel(c)
	return &dto, nil
}

func (s *service) AddItem(ctx context.Context, owner Owner, input AddItemInput) (*CartDTO, error) {
	if !owner.Valid() {
		return nil, ErrInvalidOwner
	}
	if (input.ProductID == nil) == (input.SolarSystemID == nil) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "exactly one of product_id or solar_system_id is required")
	}
	if input.Quantity <= 0 || input.Quantity > maxLineQuantity {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity out of range")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := s.ensurePurchasable(ctx, repo, input); err != nil {
			return err
		}

		c, err := repo.FindOrCreate(ctx, owner)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}

		for _, existing := range c.Items {
			if sameTarget(existing, input) {
				qty := existing.Quantity + input.Quantity
				if qty > maxLineQuantity {
					return pkgerrors.New(pkgerrors.CodeValidation, "quantity out of range")
				}
				if existing.Product != nil && qty > existing.Product.Stock {
					return insufficientStock(existing.Product)
				}
				return wrapWrite(repo.UpdateItemQuantity(ctx, existing.ID, qty))
			}
		}

		return wrapWrite(repo.CreateItem(ctx, &models.CartItem{
			CartID:        c.ID,
			ProductID:     input.ProductID,
			SolarSystemID: input.SolarSystemID,
			Quantity:      input.Quantity,
		}))
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, owner)
}

func (s *service) UpdateItem(ctx context.Context, owner Owner, itemID uuid.UUID, input UpdateItemInput) (*CartDTO, error) {
	if input.Quantity == 0 {
		return s.RemoveItem(ctx, owner, itemID)
	}
	if !owner.Valid() {
		return nil, ErrInvalidOwner
	}
	if input.Quantity < 0 || input.Quantity > maxLineQuantity {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity out of range")
	}

	c, err := s.repo.FindByOwner(ctx, owner)
	if err != nil {
		return nil, missingCart(err)
	}
	var target *models.CartItem
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			target = &c.Items[i]
			break
		}
	}
	if target == nil {
		return nil, ErrItemNotFound
	}
	if target.Product != nil && input.Quantity > target.Product.Stock {
		return nil, insufficientStock(target.Product)
	}
	if err := wrapWrite(s.repo.UpdateItemQuantity(ctx, itemID, input.Quantity)); err != nil {
		return nil, err
	}
	return s.Get(ctx, owner)
}

func (s *service) RemoveItem(ctx context.Context, owner Owner, itemID uuid.UUID) (*CartDTO, error) {
	if !owner.Valid() {
		return nil, ErrInvalidOwner
	}
	c, err := s.repo.FindByOwner(ctx, owner)
	if err != nil {
		return nil, missingCart(err)
	}
	affected, err := s.repo.DeleteItem(ctx, c.ID, itemID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart item")
	}
	if affected == 0 {
		return nil, ErrItemNotFound
	}
	return s.Get(ctx, owner)
}

func (s *service) Clear(ctx context.Context, owner Owner) error {
	if !owner.Valid() {
		return ErrInvalidOwner
	}
	c, err := s.repo.FindByOwner(ctx, owner)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return wrapWrite(s.repo.ClearItems(ctx, c.ID))
}

// MergeGuest moves a guest session's lines into the user's cart after sign-in.
func (s *service) MergeGuest(ctx context.Context, sessionID string, userID uuid.UUID) error {
	if sessionID == "" || userID == uuid.Nil {
		return nil
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		guest, err := repo.FindByOwner(ctx, Owner{SessionID: sessionID})
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load guest cart")
		}
		userCart, err := repo.FindOrCreate(ctx, Owner{UserID: &userID})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user cart")
		}

		remaining := guest.Items[:0]
		for _, item := range guest.Items {
			merged := false
			for _, existing := range userCart.Items {
				if sameTarget(existing, AddItemInput{ProductID: item.ProductID, SolarSystemID: item.SolarSystemID}) {
					qty := min(existing.Quantity+item.Quantity, maxLineQuantity)
					if err := repo.UpdateItemQuantity(ctx, existing.ID, qty); err != nil {
						return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "merge cart item")
					}
					merged = true
					break
				}
			}
			if !merged {
				remaining = append(remaining, item)
			}
		}
		if len(remaining) > 0 {
			if err := repo.MoveItems(ctx, guest.ID, userCart.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "move guest items")
			}
		}
		if err := repo.DeleteCart(ctx, guest.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete guest cart")
		}
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"user_id": userID.String(),
			"moved":   len(remaining),
		}), "guest cart merged")
		return nil
	})
}

func (s *service) ensurePurchasable(ctx context.Context, repo *Repository, input AddItemInput) error {
	if input.ProductID != nil {
		p, err := repo.FindProduct(ctx, *input.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		if !p.IsActive {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "product is not available")
		}
		if input.Quantity > p.Stock {
			return insufficientStock(p)
		}
		return nil
	}

	sys, err := repo.FindSystem(ctx, *input.SolarSystemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "solar system not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load solar system")
	}
	if !sys.IsActive {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "solar system is not available")
	}
	return nil
}

func sameTarget(item models.CartItem, input AddItemInput) bool {
	if input.ProductID != nil {
		return item.ProductID != nil && *item.ProductID == *input.ProductID
	}
	return input.SolarSystemID != nil && item.SolarSystemID != nil && *item.SolarSystemID == *input.SolarSystemID
}

func insufficientStock(p *models.Product) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient stock").
		WithDetails(map[string]any{"product_id": p.ID, "available": p.Stock})
}

func missingCart(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrItemNotFound
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
}

func wrapWrite(err error) error {
	if err == nil {
		return nil
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart")
}
