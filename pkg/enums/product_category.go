package enums

import "fmt"

// ProductCategory groups catalog products.
type ProductCategory string

const (
	ProductCategoryPanel            ProductCategory = "panel"
	ProductCategoryInverter         ProductCategory = "inverter"
	ProductCategoryBattery          ProductCategory = "battery"
	ProductCategoryChargeController ProductCategory = "charge_controller"
	ProductCategoryMounting         ProductCategory = "mounting"
	ProductCategoryAccessory        ProductCategory = "accessory"
)

var validProductCategorys = []ProductCategory{
	ProductCategoryPanel,
	ProductCategoryInverter,
	ProductCategoryBattery,
	ProductCategoryChargeController,
	ProductCategoryMounting,
	ProductCategoryAccessory,
}

// String implements fmt.Stringer.
func (p ProductCategory) String() string {
	return string(p)
}

// IsValid reports whether the value is a known ProductCategory.
func (p ProductCategory) IsValid() bool {
	for _, candidate := range validProductCategorys {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseProductCategory converts raw input into a ProductCategory.
func ParseProductCategory(value string) (ProductCategory, error) {
	for _, candidate := range validProductCategorys {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product category %q", value)
}
