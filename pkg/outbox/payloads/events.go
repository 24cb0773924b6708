package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/solarflow/solarshop-backend/pkg/enums"
)

// UserRegisteredEvent drives the welcome mail and the admin new-user notice.
type UserRegisteredEvent struct {
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
}

// OrderStatusChangedEvent is emitted on every order status transition.
type OrderStatusChangedEvent struct {
	OrderID        uuid.UUID         `json:"order_id"`
	OrderNumber    string            `json:"order_number"`
	UserID         *uuid.UUID        `json:"user_id,omitempty"`
	CustomerEmail  string            `json:"customer_email"`
	PreviousStatus enums.OrderStatus `json:"previous_status"`
	Status         enums.OrderStatus `json:"status"`
	Reason         string            `json:"reason,omitempty"`
}

// OrderPaidEvent is emitted once when an order's payment is confirmed.
type OrderPaidEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	OrderNumber   string              `json:"order_number"`
	UserID        *uuid.UUID          `json:"user_id,omitempty"`
	CustomerName  string              `json:"customer_name"`
	CustomerEmail string              `json:"customer_email"`
	TotalAmount   decimal.Decimal     `json:"total_amount"`
	Currency      string              `json:"currency"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	Reference     string              `json:"payment_reference,omitempty"`
	PaidAt        time.Time           `json:"paid_at"`
}

// ClaimStatusChangedEvent is emitted when an admin moves a warranty claim.
type ClaimStatusChangedEvent struct {
	ClaimID             uuid.UUID         `json:"claim_id"`
	ClaimNumber         string            `json:"claim_number"`
	WarrantyID          uuid.UUID         `json:"warranty_id"`
	UserID              uuid.UUID         `json:"user_id"`
	PreviousStatus      enums.ClaimStatus `json:"previous_status"`
	Status              enums.ClaimStatus `json:"status"`
	AdminNotes          string            `json:"admin_notes,omitempty"`
	EstimatedRepairDate *time.Time        `json:"estimated_repair_date,omitempty"`
}
