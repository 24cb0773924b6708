package enums

import "fmt"

// OrderStatus tracks the fulfilment lifecycle of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusAccepted   OrderStatus = "accepted"
	OrderStatusScheduled  OrderStatus = "scheduled"
	OrderStatusInstalled  OrderStatus = "installed"
	OrderStatusReturned   OrderStatus = "returned"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusAccepted,
	OrderStatusScheduled,
	OrderStatusInstalled,
	OrderStatusReturned,
	OrderStatusCancelled,
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOrderStatus converts raw input into a OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}

// IsCancellable reports whether an order in this status may still be cancelled or declined.
func (o OrderStatus) IsCancellable() bool {
	switch o {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusAccepted:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further fulfilment transitions are possible.
func (o OrderStatus) IsTerminal() bool {
	return o == OrderStatusCancelled || o == OrderStatusReturned
}

// IsSchedulable reports whether installation may be booked from this status.
func (o OrderStatus) IsSchedulable() bool {
	return o == OrderStatusProcessing || o == OrderStatusAccepted || o == OrderStatusScheduled
}
