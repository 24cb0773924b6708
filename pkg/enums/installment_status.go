package enums

import "fmt"

// InstallmentStatus tracks the repayment state of an installment plan.
type InstallmentStatus string

const (
	InstallmentStatusActive    InstallmentStatus = "active"
	InstallmentStatusOverdue   InstallmentStatus = "overdue"
	InstallmentStatusCompleted InstallmentStatus = "completed"
	InstallmentStatusCancelled InstallmentStatus = "cancelled"
)

var validInstallmentStatuses = []InstallmentStatus{
	InstallmentStatusActive,
	InstallmentStatusOverdue,
	InstallmentStatusCompleted,
	InstallmentStatusCancelled,
}

// String implements fmt.Stringer.
func (i InstallmentStatus) String() string {
	return string(i)
}

// IsValid reports whether the value is a known InstallmentStatus.
func (i InstallmentStatus) IsValid() bool {
	for _, candidate := range validInstallmentStatuses {
		if candidate == i {
			return true
		}
	}
	return false
}

// ParseInstallmentStatus converts raw input into a InstallmentStatus.
func ParseInstallmentStatus(value string) (InstallmentStatus, error) {
	for _, candidate := range validInstallmentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid installment status %q", value)
}
