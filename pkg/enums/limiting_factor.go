package enums

import "fmt"

// LimitingFactor names the capacity dimension closest to saturation.
type LimitingFactor string

const (
	LimitingFactorWeight LimitingFactor = "weight"
	LimitingFactorVolume LimitingFactor = "volume"
	LimitingFactorBoth   LimitingFactor = "both"
)

var validLimitingFactors = []LimitingFactor{
	LimitingFactorWeight,
	LimitingFactorVolume,
	LimitingFactorBoth,
}

// IsValid reports whether the value matches the canonical limiting factor enum.
func (l LimitingFactor) IsValid() bool {
	for _, candidate := range validLimitingFactors {
		if candidate == l {
			return true
		}
	}
	return false
}

// ParseLimitingFactor converts the raw string to LimitingFactor.
func ParseLimitingFactor(value string) (LimitingFactor, error) {
	for _, candidate := range validLimitingFactors {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid limiting factor %q", value)
}
