package pricing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orderlift/orderlift-backend/pkg/db/models"
)

// OverrideIndex merges a sheet's override rows into lookup maps. Stale rows
// are ignored but kept around for audit.
type OverrideIndex struct {
	scenario map[string]decimal.Decimal               // expense key, sheet-wide
	line     map[uuid.UUID]map[string]decimal.Decimal // per line id
}

// NewOverrideIndex builds the index from raw override rows.
func NewOverrideIndex(overrides []models.ExpenseOverride) *OverrideIndex {
	idx := &OverrideIndex{
		scenario: map[string]decimal.Decimal{},
		line:     map[uuid.UUID]map[string]decimal.Decimal{},
	}
	for _, o := range overrides {
		if o.IsStale {
			continue
		}
		if o.LineID != nil {
			byKey, ok := idx.line[*o.LineID]
			if !ok {
				byKey = map[string]decimal.Decimal{}
				idx.line[*o.LineID] = byKey
			}
			byKey[o.ExpenseKey] = o.Value
			continue
		}
		idx.scenario[o.ExpenseKey] = o.Value
	}
	return idx
}

// ForLine returns the effective overrides for one line: scenario-wide values
// first, line-local values on top.
func (idx *OverrideIndex) ForLine(lineID uuid.UUID) map[string]decimal.Decimal {
	merged := make(map[string]decimal.Decimal, len(idx.scenario))
	for key, value := range idx.scenario {
		merged[key] = value
	}
	for key, value := range idx.line[lineID] {
		merged[key] = value
	}
	return merged
}

// SheetWide returns the scenario-level overrides only.
func (idx *OverrideIndex) SheetWide() map[string]decimal.Decimal {
	merged := make(map[string]decimal.Decimal, len(idx.scenario))
	for key, value := range idx.scenario {
		merged[key] = value
	}
	return merged
}

// StaleOverrideIDs returns the ids of live override rows whose expense key no
// longer exists in the recomputed template set. They are flagged, never
// deleted, so a restored template picks its override back up.
func StaleOverrideIDs(overrides []models.ExpenseOverride, validKeys map[string]struct{}) []uuid.UUID {
	var stale []uuid.UUID
	for _, o := range overrides {
		if o.IsStale {
			continue
		}
		if _, ok := validKeys[o.ExpenseKey]; !ok {
			stale = append(stale, o.ID)
		}
	}
	return stale
}
