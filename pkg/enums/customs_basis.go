package enums

import "fmt"

// CustomsBasis records which estimate won a customs charge computation.
type CustomsBasis string

const (
	CustomsBasisPerKg   CustomsBasis = "Per Kg"
	CustomsBasisPercent CustomsBasis = "Percent"
)

var validCustomsBases = []CustomsBasis{
	CustomsBasisPerKg,
	CustomsBasisPercent,
}

// IsValid reports whether the value matches the canonical customs basis enum.
func (c CustomsBasis) IsValid() bool {
	for _, candidate := range validCustomsBases {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCustomsBasis converts the raw string to CustomsBasis.
func ParseCustomsBasis(value string) (CustomsBasis, error) {
	for _, candidate := range validCustomsBases {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid customs basis %q", value)
}
