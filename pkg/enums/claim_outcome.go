package enums

import "fmt"

// ClaimOutcome records how a partner resolved a claim on a sell order.
type ClaimOutcome string

const (
	ClaimOutcomePending  ClaimOutcome = "pending"
	ClaimOutcomeAccepted ClaimOutcome = "accepted"
	ClaimOutcomeRejected ClaimOutcome = "rejected"
)

var validClaimOutcomes = []ClaimOutcome{
	ClaimOutcomePending,
	ClaimOutcomeAccepted,
	ClaimOutcomeRejected,
}

// String implements fmt.Stringer.
func (o ClaimOutcome) String() string {
	return string(o)
}

// IsValid reports whether the value is a known ClaimOutcome.
func (o ClaimOutcome) IsValid() bool {
	for _, candidate := range validClaimOutcomes {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseClaimOutcome converts raw input into a ClaimOutcome.
func ParseClaimOutcome(value string) (ClaimOutcome, error) {
	for _, candidate := range validClaimOutcomes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid claim outcome %q", value)
}
