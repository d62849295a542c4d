package enums

import "fmt"

// AnalysisStatus is the outcome classification for shipment/plan analyses.
type AnalysisStatus string

const (
	AnalysisStatusOK           AnalysisStatus = "ok"
	AnalysisStatusIncomplete   AnalysisStatus = "incomplete_data"
	AnalysisStatusNoContainer  AnalysisStatus = "no_container_found"
	AnalysisStatusOverCapacity AnalysisStatus = "over_capacity"
	AnalysisStatusCancelled    AnalysisStatus = "cancelled"
)

var validAnalysisStatuses = []AnalysisStatus{
	AnalysisStatusOK,
	AnalysisStatusIncomplete,
	AnalysisStatusNoContainer,
	AnalysisStatusOverCapacity,
	AnalysisStatusCancelled,
}

// IsValid reports whether the value matches the canonical analysis status enum.
func (a AnalysisStatus) IsValid() bool {
	for _, candidate := range validAnalysisStatuses {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAnalysisStatus converts the raw string to AnalysisStatus.
func ParseAnalysisStatus(value string) (AnalysisStatus, error) {
	for _, candidate := range validAnalysisStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid analysis status %q", value)
}
