package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/orderlift/orderlift-backend/pkg/enums"
)

// CustomsResult carries both candidate charges and the one applied.
type CustomsResult struct {
	ByKg      decimal.Decimal
	ByPercent decimal.Decimal
	Applied   decimal.Decimal
	Basis     enums.CustomsBasis
}

// ComputeCustomsAmount evaluates the weight-based and percentage-based
// customs charges for a line and applies whichever is greater. An exact tie
// resolves to the percentage basis.
func ComputeCustomsAmount(baseAmount, qty, unitWeightKg, ratePerKg, ratePercent decimal.Decimal) CustomsResult {
	byKg := qty.Mul(unitWeightKg).Mul(ratePerKg)
	byPercent := baseAmount.Mul(ratePercent).Div(hundred)

	result := CustomsResult{ByKg: byKg, ByPercent: byPercent}
	if byKg.GreaterThan(byPercent) {
		result.Applied = byKg
		result.Basis = enums.CustomsBasisPerKg
	} else {
		result.Applied = byPercent
		result.Basis = enums.CustomsBasisPercent
	}
	return result
}
