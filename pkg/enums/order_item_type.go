package enums

import "fmt"

// OrderItemType classifies the snapshot stored on an order line.
type OrderItemType string

const (
	OrderItemTypeProduct     OrderItemType = "product"
	OrderItemTypeSolarSystem OrderItemType = "solar_system"
	OrderItemTypeCustom      OrderItemType = "custom"
	OrderItemTypeUnknown     OrderItemType = "unknown"
)

var validOrderItemTypes = []OrderItemType{
	OrderItemTypeProduct,
	OrderItemTypeSolarSystem,
	OrderItemTypeCustom,
	OrderItemTypeUnknown,
}

// String implements fmt.Stringer.
func (o OrderItemType) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderItemType.
func (o OrderItemType) IsValid() bool {
	for _, candidate := range validOrderItemTypes {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOrderItemType converts raw input into a OrderItemType.
func ParseOrderItemType(value string) (OrderItemType, error) {
	for _, candidate := range validOrderItemTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order item type %q", value)
}
