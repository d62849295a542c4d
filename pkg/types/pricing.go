package types

import (
	"github.com/shopspring/decimal"

	"github.com/orderlift/orderlift-backend/pkg/enums"
)

// ExpenseStepResult is one audited row of the expense stacking breakdown.
type ExpenseStepResult struct {
	Label        string             `json:"label"`
	Type         enums.ExpenseType  `json:"type"`
	Value        decimal.Decimal    `json:"value"`
	AppliesTo    enums.ExpenseBasis `json:"applies_to"`
	Scope        enums.ExpenseScope `json:"scope"`
	Sequence     int                `json:"sequence"`
	ExpenseKey   string             `json:"expense_key,omitempty"`
	Overridden   bool               `json:"overridden,omitempty"`
	Basis        decimal.Decimal    `json:"basis"`
	DeltaUnit    decimal.Decimal    `json:"delta_unit"`
	DeltaLine    decimal.Decimal    `json:"delta_line"`
	DeltaSheet   decimal.Decimal    `json:"delta_sheet"`
	RunningTotal decimal.Decimal    `json:"running_total"`
}

// ExpenseSteps is the ordered breakdown persisted per pricing line.
type ExpenseSteps []ExpenseStepResult

// Warnings is the bounded advisory list attached to a sheet.
type Warnings []string

// Append adds a warning unless the cap has been reached. It reports whether
// the warning was recorded.
func (w *Warnings) Append(cap int, warning string) bool {
	if cap > 0 && len(*w) >= cap {
		return false
	}
	*w = append(*w, warning)
	return true
}
