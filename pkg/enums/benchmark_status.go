package enums

import "fmt"

// BenchmarkStatus classifies a line's final price against its benchmark price.
type BenchmarkStatus string

const (
	BenchmarkStatusNone    BenchmarkStatus = "No Benchmark"
	BenchmarkStatusTooLow  BenchmarkStatus = "Too Low"
	BenchmarkStatusOK      BenchmarkStatus = "OK"
	BenchmarkStatusTooHigh BenchmarkStatus = "Too High"
)

var validBenchmarkStatuses = []BenchmarkStatus{
	BenchmarkStatusNone,
	BenchmarkStatusTooLow,
	BenchmarkStatusOK,
	BenchmarkStatusTooHigh,
}

// IsValid reports whether the value matches the canonical benchmark status enum.
func (b BenchmarkStatus) IsValid() bool {
	for _, candidate := range validBenchmarkStatuses {
		if candidate == b {
			return true
		}
	}
	return false
}

// ParseBenchmarkStatus converts the raw string to BenchmarkStatus.
func ParseBenchmarkStatus(value string) (BenchmarkStatus, error) {
	for _, candidate := range validBenchmarkStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid benchmark status %q", value)
}
