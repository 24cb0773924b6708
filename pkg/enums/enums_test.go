package enums

import "testing"

func TestParseOrderStatus(t *testing.T) {
	status, err := ParseOrderStatus("scheduled")
	if err != nil || status != OrderStatusScheduled {
		t.Fatalf("expected scheduled, got %q err=%v", status, err)
	}
	if _, err := ParseOrderStatus("SHIPPED"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestOrderStatusCancellable(t *testing.T) {
	cases := map[OrderStatus]bool{
		OrderStatusPending:    true,
		OrderStatusProcessing: true,
		OrderStatusAccepted:   true,
		OrderStatusScheduled:  false,
		OrderStatusInstalled:  false,
		OrderStatusReturned:   false,
		OrderStatusCancelled:  false,
	}
	for status, want := range cases {
		if got := status.IsCancellable(); got != want {
			t.Fatalf("%s: expected cancellable=%v got %v", status, want, got)
		}
	}
}

func TestPaymentMethodRequiresReference(t *testing.T) {
	if PaymentMethodCash.RequiresReference() {
		t.Fatal("cash should not require a reference")
	}
	for _, method := range []PaymentMethod{PaymentMethodBankTransfer, PaymentMethodCard, PaymentMethodMobileMoney, PaymentMethodCheque} {
		if !method.RequiresReference() {
			t.Fatalf("%s should require a reference", method)
		}
	}
}

func TestClaimStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to ClaimStatus
		ok       bool
	}{
		{ClaimStatusSubmitted, ClaimStatusUnderReview, true},
		{ClaimStatusSubmitted, ClaimStatusApproved, true},
		{ClaimStatusSubmitted, ClaimStatusResolved, false},
		{ClaimStatusUnderReview, ClaimStatusRejected, true},
		{ClaimStatusUnderReview, ClaimStatusSubmitted, false},
		{ClaimStatusApproved, ClaimStatusResolved, true},
		{ClaimStatusRejected, ClaimStatusResolved, true},
		{ClaimStatusResolved, ClaimStatusUnderReview, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.ok {
			t.Fatalf("%s -> %s: expected %v got %v", tt.from, tt.to, tt.ok, got)
		}
	}
}
