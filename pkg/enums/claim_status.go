package enums

import "fmt"

// ClaimStatus tracks the adjudication of a warranty claim.
type ClaimStatus string

const (
	ClaimStatusSubmitted   ClaimStatus = "submitted"
	ClaimStatusUnderReview ClaimStatus = "under_review"
	ClaimStatusApproved    ClaimStatus = "approved"
	ClaimStatusRejected    ClaimStatus = "rejected"
	ClaimStatusResolved    ClaimStatus = "resolved"
)

var validClaimStatuses = []ClaimStatus{
	ClaimStatusSubmitted,
	ClaimStatusUnderReview,
	ClaimStatusApproved,
	ClaimStatusRejected,
	ClaimStatusResolved,
}

// String implements fmt.Stringer.
func (c ClaimStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ClaimStatus.
func (c ClaimStatus) IsValid() bool {
	for _, candidate := range validClaimStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseClaimStatus converts raw input into a ClaimStatus.
func ParseClaimStatus(value string) (ClaimStatus, error) {
	for _, candidate := range validClaimStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid claim status %q", value)
}

var claimTransitions = map[ClaimStatus][]ClaimStatus{
	ClaimStatusSubmitted:   {ClaimStatusUnderReview, ClaimStatusApproved, ClaimStatusRejected},
	ClaimStatusUnderReview: {ClaimStatusApproved, ClaimStatusRejected},
	ClaimStatusApproved:    {ClaimStatusResolved},
	ClaimStatusRejected:    {ClaimStatusResolved},
}

// CanTransitionTo reports whether a claim may move forward to next.
func (c ClaimStatus) CanTransitionTo(next ClaimStatus) bool {
	for _, candidate := range claimTransitions[c] {
		if candidate == next {
			return true
		}
	}
	return false
}
