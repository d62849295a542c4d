package pricing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/orderlift/orderlift-backend/pkg/db/models"
	"github.com/orderlift/orderlift-backend/pkg/enums"
	"github.com/orderlift/orderlift-backend/pkg/types"
)

var hundred = decimal.NewFromInt(100)

// ExpenseStep is one resolved stacking step, template values already
// merged with any sheet-local override.
type ExpenseStep struct {
	Label      string
	Type       enums.ExpenseType
	AppliesTo  enums.ExpenseBasis
	Scope      enums.ExpenseScope
	Value      decimal.Decimal
	Sequence   int
	Idx        int
	Active     bool
	ExpenseKey string
	Overridden bool
}

// StackResult is the outcome of running the expense pipeline for one line.
type StackResult struct {
	ProjectedUnit    decimal.Decimal
	ProjectedLine    decimal.Decimal
	ExpenseTotalUnit decimal.Decimal
	LineFixedTotal   decimal.Decimal
	SheetFixedTotal  decimal.Decimal
	Steps            types.ExpenseSteps
}

// ApplyExpenses stacks the active steps onto the base unit price in
// (sequence, idx) order. Percentage steps grow the running total by
// basis×value/100 where the basis is either the untouched base price or the
// current running total. Fixed steps land per their scope: Per Unit adds
// straight onto the running total, Per Line adds value/qty onto the running
// total and the full value onto the line, Per Sheet only accumulates for
// later proportional allocation across the sheet.
func ApplyExpenses(baseUnit, qty decimal.Decimal, steps []ExpenseStep) StackResult {
	ordered := make([]ExpenseStep, 0, len(steps))
	for _, step := range steps {
		if step.Active {
			ordered = append(ordered, step)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Sequence != ordered[j].Sequence {
			return ordered[i].Sequence < ordered[j].Sequence
		}
		return ordered[i].Idx < ordered[j].Idx
	})

	running := baseUnit
	lineFixed := decimal.Zero
	sheetFixed := decimal.Zero
	results := make(types.ExpenseSteps, 0, len(ordered))

	for _, step := range ordered {
		result := types.ExpenseStepResult{
			Label:      step.Label,
			Type:       step.Type,
			Value:      step.Value,
			AppliesTo:  step.AppliesTo,
			Scope:      step.Scope,
			Sequence:   step.Sequence,
			ExpenseKey: step.ExpenseKey,
			Overridden: step.Overridden,
		}

		switch step.Type {
		case enums.ExpenseTypePercentage:
			basis := running
			if step.AppliesTo == enums.ExpenseBasisBasePrice {
				basis = baseUnit
			}
			result.Basis = basis
			delta := basis.Mul(step.Value).Div(hundred)
			running = running.Add(delta)
			result.DeltaUnit = delta

		case enums.ExpenseTypeFixed:
			switch step.Scope {
			case enums.ExpenseScopePerSheet:
				sheetFixed = sheetFixed.Add(step.Value)
				result.DeltaSheet = step.Value
			case enums.ExpenseScopePerLine:
				lineFixed = lineFixed.Add(step.Value)
				result.DeltaLine = step.Value
				if qty.IsPositive() {
					perUnit := step.Value.Div(qty)
					running = running.Add(perUnit)
					result.DeltaUnit = perUnit
				}
			default: // Per Unit
				running = running.Add(step.Value)
				result.DeltaUnit = step.Value
			}
		}

		result.RunningTotal = running
		results = append(results, result)
	}

	return StackResult{
		ProjectedUnit:    running,
		ProjectedLine:    running.Mul(qty).Add(lineFixed),
		ExpenseTotalUnit: running.Sub(baseUnit),
		LineFixedTotal:   lineFixed,
		SheetFixedTotal:  sheetFixed,
		Steps:            results,
	}
}

// StepKey builds the stable signature used to match overrides against
// expense templates across recomputes.
func StepKey(scenarioID, label string, scope enums.ExpenseScope, appliesTo enums.ExpenseBasis) string {
	return strings.Join([]string{
		scenarioID,
		strings.ToLower(strings.TrimSpace(label)),
		string(scope),
		string(appliesTo),
	}, "::")
}

// StepsFromTemplates converts scenario templates into pipeline steps,
// applying any override value keyed by the template's signature.
func StepsFromTemplates(scenarioID string, templates []models.ExpenseTemplate, overrides map[string]decimal.Decimal) []ExpenseStep {
	steps := make([]ExpenseStep, 0, len(templates))
	for _, tpl := range templates {
		key := StepKey(scenarioID, tpl.Label, tpl.Scope, tpl.AppliesTo)
		step := ExpenseStep{
			Label:      tpl.Label,
			Type:       tpl.Type,
			AppliesTo:  tpl.AppliesTo,
			Scope:      tpl.Scope,
			Value:      tpl.Value,
			Sequence:   tpl.Sequence,
			Idx:        tpl.Idx,
			Active:     tpl.IsActive,
			ExpenseKey: key,
		}
		if value, ok := overrides[key]; ok {
			step.Value = value
			step.Overridden = true
		}
		steps = append(steps, step)
	}
	return steps
}

// CustomsStep appends the computed customs charge as a trailing fixed step
// so the line breakdown shows it the same way as any other expense.
func CustomsStep(amount decimal.Decimal, qty decimal.Decimal, basis enums.CustomsBasis, running decimal.Decimal) types.ExpenseStepResult {
	perUnit := decimal.Zero
	if qty.IsPositive() {
		perUnit = amount.Div(qty)
	}
	return types.ExpenseStepResult{
		Label:        fmt.Sprintf("Customs (%s)", basis),
		Type:         enums.ExpenseTypeFixed,
		Value:        amount,
		AppliesTo:    enums.ExpenseBasisBasePrice,
		Scope:        enums.ExpenseScopePerLine,
		DeltaUnit:    perUnit,
		DeltaLine:    amount,
		RunningTotal: running.Add(perUnit),
	}
}
