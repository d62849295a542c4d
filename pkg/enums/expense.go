package enums

import "fmt"

// ExpenseType describes how an expense step contributes to the running total.
type ExpenseType string

const (
	ExpenseTypePercentage ExpenseType = "Percentage"
	ExpenseTypeFixed      ExpenseType = "Fixed"
)

var validExpenseTypes = []ExpenseType{
	ExpenseTypePercentage,
	ExpenseTypeFixed,
}

// IsValid reports whether the value matches the canonical expense type enum.
func (e ExpenseType) IsValid() bool {
	for _, candidate := range validExpenseTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseExpenseType converts the raw string to ExpenseType.
func ParseExpenseType(value string) (ExpenseType, error) {
	for _, candidate := range validExpenseTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid expense type %q", value)
}

// ExpenseBasis selects the amount a percentage step is computed against.
type ExpenseBasis string

const (
	ExpenseBasisBasePrice    ExpenseBasis = "Base Price"
	ExpenseBasisRunningTotal ExpenseBasis = "Running Total"
)

var validExpenseBases = []ExpenseBasis{
	ExpenseBasisBasePrice,
	ExpenseBasisRunningTotal,
}

// IsValid reports whether the value matches the canonical expense basis enum.
func (e ExpenseBasis) IsValid() bool {
	for _, candidate := range validExpenseBases {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseExpenseBasis converts the raw string to ExpenseBasis.
func ParseExpenseBasis(value string) (ExpenseBasis, error) {
	for _, candidate := range validExpenseBases {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid expense basis %q", value)
}

// ExpenseScope is the granularity at which a fixed expense is applied.
type ExpenseScope string

const (
	ExpenseScopePerUnit  ExpenseScope = "Per Unit"
	ExpenseScopePerLine  ExpenseScope = "Per Line"
	ExpenseScopePerSheet ExpenseScope = "Per Sheet"
)

var validExpenseScopes = []ExpenseScope{
	ExpenseScopePerUnit,
	ExpenseScopePerLine,
	ExpenseScopePerSheet,
}

// IsValid reports whether the value matches the canonical expense scope enum.
func (e ExpenseScope) IsValid() bool {
	for _, candidate := range validExpenseScopes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseExpenseScope converts the raw string to ExpenseScope.
func ParseExpenseScope(value string) (ExpenseScope, error) {
	for _, candidate := range validExpenseScopes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid expense scope %q", value)
}
