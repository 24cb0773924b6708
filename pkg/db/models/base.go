package models

import "github.com/google/uuid"

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// All lists every persisted model, in dependency order.
func All() []any {
	return []any{
		&User{},
		&Product{},
		&SolarSystem{},
		&Cart{},
		&CartItem{},
		&Order{},
		&OrderItem{},
		&Invoice{},
		&Warranty{},
		&WarrantyClaim{},
		&InstallmentPlan{},
		&InstallmentPayment{},
		&CompanySetting{},
		&Notification{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
