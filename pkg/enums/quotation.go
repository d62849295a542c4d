package enums

import "fmt"

// QuotationMode selects how pricing sheet lines are exported to a quotation.
type QuotationMode string

const (
	QuotationModeDetailed QuotationMode = "detailed"
	QuotationModeGrouped  QuotationMode = "grouped"
)

var validQuotationModes = []QuotationMode{
	QuotationModeDetailed,
	QuotationModeGrouped,
}

// IsValid reports whether the value matches the canonical quotation mode enum.
func (q QuotationMode) IsValid() bool {
	for _, candidate := range validQuotationModes {
		if candidate == q {
			return true
		}
	}
	return false
}

// ParseQuotationMode converts the raw string to QuotationMode.
func ParseQuotationMode(value string) (QuotationMode, error) {
	for _, candidate := range validQuotationModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid quotation mode %q", value)
}

// EventType is the canonical event_type attribute for published domain events.
type EventType string

const (
	EventSheetRecalcRequested EventType = "pricing_sheet_recalc_requested"
	EventSheetRecalculated    EventType = "pricing_sheet_recalculated"
	EventQuotationExported    EventType = "quotation_exported"
	EventPlanSubmitted        EventType = "load_plan_submitted"
	EventPlanCancelled        EventType = "load_plan_cancelled"
)
