package pricing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/orderlift/orderlift-backend/pkg/enums"
	pkgerrors "github.com/orderlift/orderlift-backend/pkg/errors"

	"github.com/orderlift/orderlift-backend/pkg/db/models"
)

// Export snapshots the sheet into a quotation. Detailed mode emits one row
// per sheet line; grouped mode collapses lines by display group and resolved
// scenario onto the catalog placeholder item so margins stay hidden. Either
// way the exported amounts sum back to the sheet's total selling amount.
func (s *service) Export(ctx context.Context, sheetID uuid.UUID, mode enums.QuotationMode, createdBy string) (*models.Quotation, error) {
	if !mode.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown quotation mode %q", mode)
	}
	sheet, err := s.GetSheet(ctx, sheetID)
	if err != nil {
		return nil, err
	}
	if len(sheet.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "sheet has no lines to export")
	}
	if sheet.Strict && len(sheet.Warnings) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStrictBlocked, "strict sheet has unresolved warnings").
			WithDetails(map[string]any{"warnings": sheet.Warnings})
	}

	var lines []models.QuotationLine
	switch mode {
	case enums.QuotationModeGrouped:
		lines, err = s.groupedLines(ctx, sheet)
		if err != nil {
			return nil, err
		}
	default:
		lines = detailedLines(sheet)
	}

	quotation := &models.Quotation{
		Name:      fmt.Sprintf("%s / %s", sheet.Name, time.Now().UTC().Format("20060102-150405")),
		SheetID:   sheet.ID,
		Customer:  sheet.Customer,
		Mode:      mode,
		Lines:     lines,
		CreatedBy: createdBy,
	}
	if err := s.repo.CreateQuotation(ctx, quotation); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating quotation")
	}

	if s.publisher != nil {
		payload := map[string]any{
			"quotation_id": quotation.ID.String(),
			"sheet_id":     sheet.ID.String(),
			"mode":         string(mode),
		}
		if err := s.publisher.PublishDomainEvent(ctx, string(enums.EventQuotationExported), payload); err != nil && s.logg != nil {
			s.logg.Warn(ctx, "publishing quotation event failed: "+err.Error())
		}
	}
	return quotation, nil
}

func (s *service) GetQuotation(ctx context.Context, id uuid.UUID) (*models.Quotation, error) {
	quotation, err := s.repo.GetQuotation(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "quotation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading quotation")
	}
	return quotation, nil
}

func (s *service) ListQuotations(ctx context.Context, sheetID uuid.UUID) ([]models.Quotation, error) {
	quotations, err := s.repo.ListQuotationsBySheet(ctx, sheetID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing quotations")
	}
	return quotations, nil
}

func detailedLines(sheet *models.PricingSheet) []models.QuotationLine {
	lines := make([]models.QuotationLine, 0, len(sheet.Lines))
	for i, line := range sheet.Lines {
		lines = append(lines, models.QuotationLine{
			Idx:          i,
			ItemCode:     line.ItemCode,
			DisplayGroup: line.DisplayGroup,
			ScenarioID:   line.ResolvedScenarioID,
			Qty:          line.Qty,
			Rate:         line.FinalUnitPrice,
			Amount:       line.FinalTotal,
		})
	}
	return lines
}

// groupedLines buckets by display group and resolved scenario. Each bucket
// becomes one placeholder row with qty 1 and amount equal to the bucket's
// summed final totals, so the read-back still reproduces the sheet total.
func (s *service) groupedLines(ctx context.Context, sheet *models.PricingSheet) ([]models.QuotationLine, error) {
	placeholder, err := s.catalog.EnsurePlaceholderItem(ctx)
	if err != nil {
		return nil, err
	}

	type bucketKey struct {
		group    string
		scenario uuid.UUID
	}
	buckets := map[bucketKey]decimal.Decimal{}
	order := []bucketKey{}
	for _, line := range sheet.Lines {
		key := bucketKey{group: line.DisplayGroup}
		if line.ResolvedScenarioID != nil {
			key.scenario = *line.ResolvedScenarioID
		}
		if _, ok := buckets[key]; !ok {
			order = append(order, key)
		}
		buckets[key] = buckets[key].Add(line.FinalTotal)
	}
	sort.SliceStable(order, func(i, j int) bool {
		if order[i].group != order[j].group {
			return order[i].group < order[j].group
		}
		return order[i].scenario.String() < order[j].scenario.String()
	})

	lines := make([]models.QuotationLine, 0, len(order))
	for i, key := range order {
		scenarioID := key.scenario
		var scenarioRef *uuid.UUID
		if scenarioID != uuid.Nil {
			scenarioRef = &scenarioID
		}
		lines = append(lines, models.QuotationLine{
			Idx:          i,
			ItemCode:     placeholder.Code,
			DisplayGroup: key.group,
			ScenarioID:   scenarioRef,
			Qty:          decimal.NewFromInt(1),
			Rate:         buckets[key],
			Amount:       buckets[key],
		})
	}
	return lines, nil
}
