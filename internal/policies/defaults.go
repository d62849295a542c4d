package policies

import (
	"github.com/shopspring/decimal"

	"github.com/orderlift/orderlift-backend/pkg/db/models"
)

// DefaultCustomsRules returns the starter per-kg duty rates keyed by
// material, plus a wildcard fallback so resolution never comes up empty.
// Callers persist them when a customs policy is created without rules.
func DefaultCustomsRules() []models.CustomsRule {
	materials := []struct {
		material  string
		ratePerKg int64
	}{
		{"STEEL", 13},
		{"GALVA", 24},
		{"INOX", 40},
		{"COPPER", 60},
		{"OTHER", 0},
	}

	rules := make([]models.CustomsRule, 0, len(materials)+1)
	for idx, m := range materials {
		rules = append(rules, models.CustomsRule{
			RuleAttributes: models.RuleAttributes{Material: m.material},
			RatePerKg:      decimal.NewFromInt(m.ratePerKg),
			RatePercent:    decimal.Zero,
			Priority:       5,
			Sequence:       90,
			Idx:            idx,
			IsActive:       true,
		})
	}
	rules = append(rules, models.CustomsRule{
		RatePerKg:   decimal.Zero,
		RatePercent: decimal.Zero,
		Priority:    10,
		Sequence:    90,
		Idx:         len(materials),
		IsActive:    true,
	})
	return rules
}
