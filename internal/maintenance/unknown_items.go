package maintenance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/solarflow/solarshop-backend/pkg/db/models"
	"github.com/solarflow/solarshop-backend/pkg/enums"
	"github.com/solarflow/solarshop-backend/pkg/logger"
)

const customFallbackName = "Custom item"

// Summary reports one repair sweep.
type Summary struct {
	Scanned  int
	Products int
	Systems  int
	Custom   int
	Failed   int
}

func (s Summary) String() string {
	return fmt.Sprintf("scanned=%d products=%d solar_systems=%d custom=%d failed=%d",
		s.Scanned, s.Products, s.Systems, s.Custom, s.Failed)
}

type ItemFixer struct {
	repo *Repository
	logg *logger.Logger
	out  io.Writer
}

// NewItemFixer builds the repair sweep. Progress lines go to out when it is non-nil.
func NewItemFixer(repo *Repository, logg *logger.Logger, out io.Writer) (*ItemFixer, error) {
	if repo == nil {
		return nil, fmt.Errorf("maintenance repository required")
	}
	if out == nil {
		out = io.Discard
	}
	return &ItemFixer{repo: repo, logg: logg, out: out}, nil
}

// FixUnknownItems re-derives name, description and type for order items stored as
// unknown or with a blank/"Unknown" name. The referenced product wins, then the solar
// system; items with neither become custom lines.
func (f *ItemFixer) FixUnknownItems(ctx context.Context) (Summary, error) {
	var summary Summary
	items, err := f.repo.SuspectItems(ctx)
	if err != nil {
		return summary, fmt.Errorf("scan order items: %w", err)
	}
	fmt.Fprintf(f.out, "found %d order items to repair\n", len(items))

	var errs error
	for _, item := range items {
		summary.Scanned++
		kind, updates, err := f.resolve(ctx, item)
		if err == nil {
			err = f.repo.UpdateItem(ctx, item.ID, updates)
		}
		if err != nil {
			summary.Failed++
			errs = multierr.Append(errs, fmt.Errorf("item %s: %w", item.ID, err))
			fmt.Fprintf(f.out, "  ! %s failed: %v\n", item.ID, err)
			continue
		}
		switch kind {
		case enums.OrderItemTypeProduct:
			summary.Products++
		case enums.OrderItemTypeSolarSystem:
			summary.Systems++
		default:
			summary.Custom++
		}
		fmt.Fprintf(f.out, "  - %s -> %s %q\n", item.ID, kind, updates["name"])
	}

	fmt.Fprintf(f.out, "done: %s\n", summary)
	f.logg.Info(f.logg.WithFields(ctx, map[string]any{
		"scanned": summary.Scanned,
		"failed":  summary.Failed,
	}), "unknown order items repaired")
	return summary, errs
}

func (f *ItemFixer) resolve(ctx context.Context, item models.OrderItem) (enums.OrderItemType, map[string]any, error) {
	if item.ProductID != nil {
		p, err := f.repo.FindProduct(ctx, *item.ProductID)
		switch {
		case err == nil:
			return enums.OrderItemTypeProduct, map[string]any{
				"type":        enums.OrderItemTypeProduct,
				"name":        p.Name,
				"description": p.Description,
			}, nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return "", nil, fmt.Errorf("load product: %w", err)
		}
	}
	if item.SolarSystemID != nil {
		s, err := f.repo.FindSystem(ctx, *item.SolarSystemID)
		switch {
		case err == nil:
			return enums.OrderItemTypeSolarSystem, map[string]any{
				"type":        enums.OrderItemTypeSolarSystem,
				"name":        s.Name,
				"description": s.Description,
			}, nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return "", nil, fmt.Errorf("load solar system: %w", err)
		}
	}

	name := strings.TrimSpace(item.Name)
	if name == "" || strings.EqualFold(name, "unknown") {
		name = customFallbackName
	}
	return enums.OrderItemTypeCustom, map[string]any{
		"type": enums.OrderItemTypeCustom,
		"name": name,
	}, nil
}
