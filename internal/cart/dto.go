package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/solarflow/solarshop-backend/pkg/db/models"
	"github.com/solarflow/solarshop-backend/pkg/enums"
)

// Owner identifies a cart by exactly one of a user id or a guest session id.
type Owner struct {
	UserID    *uuid.UUID
	SessionID string
}

func (o Owner) Valid() bool {
	return (o.UserID != nil && *o.UserID != uuid.Nil) != (o.SessionID != "")
}

type AddItemInput struct {
	ProductID     *uuid.UUID `json:"product_id,omitempty"`
	SolarSystemID *uuid.UUID `json:"solar_system_id,omitempty"`
	Quantity      int        `json:"quantity" validate:"required,gte=1,lte=1000"`
}

type UpdateItemInput struct {
	Quantity int `json:"quantity" validate:"gte=0,lte=1000"`
}

type CartItemDTO struct {
	ID            uuid.UUID           `json:"id"`
	Type          enums.OrderItemType `json:"type"`
	ProductID     *uuid.UUID          `json:"product_id,omitempty"`
	SolarSystemID *uuid.UUID          `json:"solar_system_id,omitempty"`
	Name          string              `json:"name"`
	UnitPrice     decimal.Decimal     `json:"unit_price"`
	Quantity      int                 `json:"quantity"`
	LineTotal     decimal.Decimal     `json:"line_total"`
	Available     bool                `json:"available"`
}

type CartDTO struct {
	ID        *uuid.UUID      `json:"id,omitempty"`
	Items     []CartItemDTO   `json:"items"`
	ItemCount int             `json:"item_count"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// LineSnapshot is the priced view of a cart line used by checkout.
type LineSnapshot struct {
	Type          enums.OrderItemType
	ProductID     *uuid.UUID
	SolarSystemID *uuid.UUID
	Name          string
	Description   string
	Price         decimal.Decimal
	Quantity      int
}

func fromModel(c *models.Cart) CartDTO {
	out := CartDTO{Items: []CartItemDTO{}, Subtotal: decimal.Zero}
	if c == nil {
		return out
	}
	id := c.ID
	out.ID = &id
	for _, item := range c.Items {
		line := itemDTO(item)
		out.Items = append(out.Items, line)
		out.ItemCount += line.Quantity
		if line.Available {
			out.Subtotal = out.Subtotal.Add(line.LineTotal)
		}
	}
	return out
}

func itemDTO(item models.CartItem) CartItemDTO {
	dto := CartItemDTO{
		ID:            item.ID,
		ProductID:     item.ProductID,
		SolarSystemID: item.SolarSystemID,
		Quantity:      item.Quantity,
		UnitPrice:     decimal.Zero,
		LineTotal:     decimal.Zero,
	}
	switch {
	case item.Product != nil:
		dto.Type = enums.OrderItemTypeProduct
		dto.Name = item.Product.Name
		dto.UnitPrice = item.Product.Price
		dto.Available = item.Product.IsActive
	case item.SolarSystem != nil:
		dto.Type = enums.OrderItemTypeSolarSystem
		dto.Name = item.SolarSystem.Name
		dto.UnitPrice = item.SolarSystem.Price
		dto.Available = item.SolarSystem.IsActive
	default:
		dto.Type = enums.OrderItemTypeUnknown
	}
	dto.LineTotal = dto.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
	return dto
}

// Snapshot converts the loaded cart into priced lines, skipping lines whose catalog row is gone or inactive.
func Snapshot(c *models.Cart) []LineSnapshot {
	if c == nil {
		return nil
	}
	lines := make([]LineSnapshot, 0, len(c.Items))
	for _, item := range c.Items {
		switch {
		case item.Product != nil && item.Product.IsActive:
			lines = append(lines, LineSnapshot{
				Type:        enums.OrderItemTypeProduct,
				ProductID:   item.ProductID,
				Name:        item.Product.Name,
				Description: item.Product.Description,
				Price:       item.Product.Price,
				Quantity:    item.Quantity,
			})
		case item.SolarSystem != nil && item.SolarSystem.IsActive:
			lines = append(lines, LineSnapshot{
				Type:          enums.OrderItemTypeSolarSystem,
				SolarSystemID: item.SolarSystemID,
				Name:          item.SolarSystem.Name,
				Description:   item.SolarSystem.Description,
				Price:         item.SolarSystem.Price,
				Quantity:      item.Quantity,
			})
		}
	}
	return lines
}
