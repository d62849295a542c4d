package enums

import "fmt"

// RejectionReason explains why a candidate shipment was not admitted to a plan.
type RejectionReason string

const (
	RejectionReasonWeight     RejectionReason = "weight"
	RejectionReasonVolume     RejectionReason = "volume"
	RejectionReasonBoth       RejectionReason = "both"
	RejectionReasonIncomplete RejectionReason = "incomplete_data"
)

var validRejectionReasons = []RejectionReason{
	RejectionReasonWeight,
	RejectionReasonVolume,
	RejectionReasonBoth,
	RejectionReasonIncomplete,
}

// IsValid reports whether the value matches the canonical rejection reason enum.
func (r RejectionReason) IsValid() bool {
	for _, candidate := range validRejectionReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRejectionReason converts the raw string to RejectionReason.
func ParseRejectionReason(value string) (RejectionReason, error) {
	for _, candidate := range validRejectionReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid rejection reason %q", value)
}
