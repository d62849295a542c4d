package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/orderlift/orderlift-backend/pkg/config"
	"github.com/orderlift/orderlift-backend/pkg/db"
	"github.com/orderlift/orderlift-backend/pkg/db/models"
	"github.com/orderlift/orderlift-backend/pkg/enums"
	pkgerrors "github.com/orderlift/orderlift-backend/pkg/errors"
	"github.com/orderlift/orderlift-backend/pkg/logger"
	"github.com/orderlift/orderlift-backend/pkg/metrics"
	"github.com/orderlift/orderlift-backend/pkg/types"
)

const engineLabel = "pricing"

// SheetStore is the persistence surface the service needs; *Repository
// satisfies it.
type SheetStore interface {
	CreateSheet(context.Context, *models.PricingSheet) error
	GetSheet(context.Context, uuid.UUID) (*models.PricingSheet, error)
	ListSheets(context.Context) ([]models.PricingSheet, error)
	SaveSheet(context.Context, *models.PricingSheet) error
	ReplaceLines(context.Context, uuid.UUID, []models.PricingLine) error
	DeleteSheet(context.Context, uuid.UUID) error
	ListOverrides(context.Context, uuid.UUID) ([]models.ExpenseOverride, error)
	SaveOverride(context.Context, *models.ExpenseOverride) error
	MarkOverridesStale(context.Context, []uuid.UUID) error
	CreateQuotation(context.Context, *models.Quotation) error
	GetQuotation(context.Context, uuid.UUID) (*models.Quotation, error)
	ListQuotationsBySheet(context.Context, uuid.UUID) ([]models.Quotation, error)
}

// ScenarioLoader resolves pricing scenarios with their templates.
type ScenarioLoader interface {
	GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.PricingScenario, error)
}

// PolicyResolver resolves the winning rule per policy kind.
type PolicyResolver interface {
	ResolveMargin(ctx context.Context, policyID uuid.UUID, matchCtx models.RuleAttributes) (*models.MarginRule, error)
	ResolveCustoms(ctx context.Context, policyID uuid.UUID, matchCtx models.RuleAttributes) (*models.CustomsRule, error)
	ResolveScenario(ctx context.Context, policyID uuid.UUID, matchCtx models.RuleAttributes) (*models.ScenarioRule, error)
}

// Catalog hydrates items and price list rates in batches.
type Catalog interface {
	ItemsByCode(ctx context.Context, codes []string) (map[string]models.Item, error)
	LatestRates(ctx context.Context, priceList string, codes []string, asOf time.Time) (map[string]decimal.Decimal, error)
	EnsurePlaceholderItem(ctx context.Context) (*models.Item, error)
}

// Publisher emits domain events after successful recomputes; nil disables it.
type Publisher interface {
	PublishDomainEvent(ctx context.Context, eventType string, payload any) error
}

// Service exposes pricing sheet management and the projection engine.
type Service interface {
	CreateSheet(ctx context.Context, input SheetInput) (*models.PricingSheet, error)
	GetSheet(ctx context.Context, id uuid.UUID) (*models.PricingSheet, error)
	ListSheets(ctx context.Context) ([]models.PricingSheet, error)
	ReplaceSheetLines(ctx context.Context, sheetID uuid.UUID, lines []LineInput) (*models.PricingSheet, error)
	DeleteSheet(ctx context.Context, id uuid.UUID) error

	Recalculate(ctx context.Context, sheetID uuid.UUID) (*models.PricingSheet, error)
	SetOverride(ctx context.Context, input OverrideInput) (*models.PricingSheet, error)

	Export(ctx context.Context, sheetID uuid.UUID, mode enums.QuotationMode, createdBy string) (*models.Quotation, error)
	GetQuotation(ctx context.Context, id uuid.UUID) (*models.Quotation, error)
	ListQuotations(ctx context.Context, sheetID uuid.UUID) ([]models.Quotation, error)
}

// SheetInput is the validated payload to create a pricing sheet.
type SheetInput struct {
	Name              string
	Customer          string
	PriceDate         time.Time
	Strict            bool
	DefaultScenarioID *uuid.UUID
	ScenarioPolicyID  *uuid.UUID
	MarginPolicyID    *uuid.UUID
	CustomsPolicyID   *uuid.UUID
	Attributes        models.RuleAttributes
	Lines             []LineInput
}

// LineInput is one requested sheet line.
type LineInput struct {
	ItemCode           string
	Qty                decimal.Decimal
	ScenarioOverrideID *uuid.UUID
	DisplayGroup       string
	ManualUnitPrice    *decimal.Decimal
}

// OverrideInput pins one expense value for the whole sheet or one line.
type OverrideInput struct {
	SheetID    uuid.UUID
	ScenarioID *uuid.UUID
	LineID     *uuid.UUID
	ExpenseKey string
	Value      decimal.Decimal
}

type service struct {
	repo      SheetStore
	scenarios ScenarioLoader
	policies  PolicyResolver
	catalog   Catalog
	cfg       config.PricingConfig
	logg      *logger.Logger
	metrics   *metrics.EngineMetrics
	publisher Publisher
}

// NewService builds the pricing service. metrics and publisher may be nil.
func NewService(
	repo SheetStore,
	scenarios ScenarioLoader,
	policies PolicyResolver,
	catalog Catalog,
	cfg config.PricingConfig,
	logg *logger.Logger,
	engineMetrics *metrics.EngineMetrics,
	publisher Publisher,
) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "pricing repository is required")
	}
	if scenarios == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "scenario loader is required")
	}
	if policies == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "policy resolver is required")
	}
	if catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "catalog is required")
	}
	return &service{
		repo:      repo,
		scenarios: scenarios,
		policies:  policies,
		catalog:   catalog,
		cfg:       cfg,
		logg:      logg,
		metrics:   engineMetrics,
		publisher: publisher,
	}, nil
}

func (s *service) CreateSheet(ctx context.Context, input SheetInput) (*models.PricingSheet, error) {
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sheet name is required")
	}
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sheet needs at least one line")
	}
	lines, err := linesFromInput(input.Lines)
	if err != nil {
		return nil, err
	}
	priceDate := input.PriceDate
	if priceDate.IsZero() {
		priceDate = time.Now().UTC()
	}

	sheet := &models.PricingSheet{
		Name:              input.Name,
		Customer:          input.Customer,
		PriceDate:         priceDate,
		Strict:            input.Strict,
		DefaultScenarioID: input.DefaultScenarioID,
		ScenarioPolicyID:  input.ScenarioPolicyID,
		MarginPolicyID:    input.MarginPolicyID,
		CustomsPolicyID:   input.CustomsPolicyID,
		Attributes:        input.Attributes,
		Lines:             lines,
	}
	if err := s.repo.CreateSheet(ctx, sheet); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Newf(pkgerrors.CodeConflict, "sheet %q already exists", sheet.Name)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating sheet")
	}
	return s.Recalculate(ctx, sheet.ID)
}

func (s *service) GetSheet(ctx context.Context, id uuid.UUID) (*models.PricingSheet, error) {
	sheet, err := s.repo.GetSheet(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "pricing sheet not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading sheet")
	}
	return sheet, nil
}

func (s *service) ListSheets(ctx context.Context) ([]models.PricingSheet, error) {
	sheets, err := s.repo.ListSheets(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing sheets")
	}
	return sheets, nil
}

func (s *service) ReplaceSheetLines(ctx context.Context, sheetID uuid.UUID, inputs []LineInput) (*models.PricingSheet, error) {
	if len(inputs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sheet needs at least one line")
	}
	if _, err := s.GetSheet(ctx, sheetID); err != nil {
		return nil, err
	}
	lines, err := linesFromInput(inputs)
	if err != nil {
		return nil, err
	}
	if err := s.repo.ReplaceLines(ctx, sheetID, lines); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "replacing lines")
	}
	return s.Recalculate(ctx, sheetID)
}

func (s *service) DeleteSheet(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetSheet(ctx, id); err != nil {
		return err
	}
	if err := s.repo.DeleteSheet(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting sheet")
	}
	return nil
}

func (s *service) SetOverride(ctx context.Context, input OverrideInput) (*models.PricingSheet, error) {
	if input.ExpenseKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "expense key is required")
	}
	sheet, err := s.GetSheet(ctx, input.SheetID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.ListOverrides(ctx, sheet.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading overrides")
	}

	override := &models.ExpenseOverride{
		SheetID:    sheet.ID,
		ScenarioID: input.ScenarioID,
		LineID:     input.LineID,
		ExpenseKey: input.ExpenseKey,
		Value:      input.Value,
	}
	for i := range existing {
		if existing[i].ExpenseKey == input.ExpenseKey && sameTarget(existing[i].LineID, input.LineID) {
			override = &existing[i]
			override.Value = input.Value
			override.IsStale = false
			break
		}
	}
	if err := s.repo.SaveOverride(ctx, override); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving override")
	}
	return s.Recalculate(ctx, sheet.ID)
}

func sameTarget(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// lineComputation carries per-line intermediate state across the passes of
// one recompute.
type lineComputation struct {
	line       *models.PricingLine
	item       *models.Item
	scenario   *models.PricingScenario
	matchCtx   models.RuleAttributes
	stack      StackResult
	marginStep *types.ExpenseStepResult
	customs    *CustomsResult
}

// Recalculate projects every line of the sheet from scratch: batched item
// and rate hydration, scenario chain resolution, expense stacking with
// override reconciliation, customs, proportional per-sheet allocation,
// benchmark banding and warning collection. Nothing is persisted when the
// sheet is strict and any warning fires.
func (s *service) Recalculate(ctx context.Context, sheetID uuid.UUID) (*models.PricingSheet, error) {
	started := time.Now()
	sheet, err := s.recalculate(ctx, sheetID)
	if s.metrics != nil {
		s.metrics.ObserveDuration(engineLabel, time.Since(started))
		if err != nil {
			s.metrics.IncFailure(engineLabel)
		} else {
			s.metrics.IncSuccess(engineLabel)
			s.metrics.AddWarnings(engineLabel, len(sheet.Warnings))
		}
	}
	return sheet, err
}

func (s *service) recalculate(ctx context.Context, sheetID uuid.UUID) (*models.PricingSheet, error) {
	sheet, err := s.GetSheet(ctx, sheetID)
	if err != nil {
		return nil, err
	}
	if s.logg != nil {
		ctx = s.logg.WithSheetID(ctx, sheet.ID.String())
	}
	warnings := types.Warnings{}

	comps, err := s.hydrate(ctx, sheet, &warnings)
	if err != nil {
		return nil, err
	}

	overrides, err := s.repo.ListOverrides(ctx, sheet.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading overrides")
	}
	overrideIdx := NewOverrideIndex(overrides)

	buyRates, benchmarkRates, err := s.resolveRates(ctx, sheet, comps)
	if err != nil {
		return nil, err
	}

	validKeys := map[string]struct{}{}
	totalBase := decimal.Zero
	totalQty := decimal.Zero
	sheetFixed := decimal.Zero
	seenSheetSteps := map[string]struct{}{}

	for _, comp := range comps {
		line := comp.line
		scenarioKey := comp.scenario.ID.String()

		buyRate, ok := buyRates[comp.scenario.BuyingPriceList][line.ItemCode]
		if !ok {
			line.BuyPriceMissing = true
			line.BuyUnitPrice = decimal.Zero
			warnings.Append(s.cfg.MaxWarnings, fmt.Sprintf("no buying price for %s in %q", line.ItemCode, comp.scenario.BuyingPriceList))
		} else {
			line.BuyPriceMissing = false
			line.BuyUnitPrice = buyRate
		}
		line.BaseAmount = line.BuyUnitPrice.Mul(line.Qty)
		totalBase = totalBase.Add(line.BaseAmount)
		totalQty = totalQty.Add(line.Qty)

		steps := StepsFromTemplates(scenarioKey, comp.scenario.Expenses, overrideIdx.ForLine(line.ID))
		for _, step := range steps {
			validKeys[step.ExpenseKey] = struct{}{}
		}
		comp.stack = ApplyExpenses(line.BuyUnitPrice, line.Qty, steps)

		// Per-sheet fixed amounts count once per distinct scenario step,
		// not once per line sharing the scenario.
		for _, step := range steps {
			if !step.Active || step.Type != enums.ExpenseTypeFixed || step.Scope != enums.ExpenseScopePerSheet {
				continue
			}
			if _, seen := seenSheetSteps[step.ExpenseKey]; seen {
				continue
			}
			seenSheetSteps[step.ExpenseKey] = struct{}{}
			sheetFixed = sheetFixed.Add(step.Value)
		}

		if err := s.applyMargin(ctx, sheet, comp, &warnings); err != nil {
			return nil, err
		}
		if err := s.applyCustoms(ctx, sheet, comp, &warnings); err != nil {
			return nil, err
		}
	}

	s.finalizeLines(sheet, comps, sheetFixed, totalBase, totalQty, benchmarkRates, &warnings)

	sheet.SheetFixedTotal = sheetFixed
	sheet.Warnings = warnings

	// Strict sheets abort before anything is written, including override
	// state changes.
	if sheet.Strict && len(warnings) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStrictBlocked, "recompute produced warnings on a strict sheet").
			WithDetails(map[string]any{"warnings": warnings})
	}

	stale := StaleOverrideIDs(overrides, validKeys)
	if len(stale) > 0 {
		if err := s.repo.MarkOverridesStale(ctx, stale); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marking stale overrides")
		}
	}

	if err := s.repo.SaveSheet(ctx, sheet); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving sheet")
	}

	if s.publisher != nil {
		payload := map[string]any{"sheet_id": sheet.ID.String(), "warnings": len(warnings)}
		if err := s.publisher.PublishDomainEvent(ctx, string(enums.EventSheetRecalculated), payload); err != nil && s.logg != nil {
			s.logg.Warn(ctx, "publishing recalculated event failed: "+err.Error())
		}
	}
	if s.logg != nil {
		s.logg.Info(ctx, fmt.Sprintf("pricing sheet recomputed: %d lines, %d warnings", len(sheet.Lines), len(warnings)))
	}
	return sheet, nil
}

// hydrate loads items and resolves the scenario chain for every line.
func (s *service) hydrate(ctx context.Context, sheet *models.PricingSheet, warnings *types.Warnings) ([]*lineComputation, error) {
	codes := make([]string, 0, len(sheet.Lines))
	for i := range sheet.Lines {
		if sheet.Lines[i].Qty.Sign() <= 0 {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "line %d has non-positive quantity", sheet.Lines[i].Idx)
		}
		codes = append(codes, sheet.Lines[i].ItemCode)
	}
	items, err := s.catalog.ItemsByCode(ctx, codes)
	if err != nil {
		return nil, err
	}

	comps := make([]*lineComputation, 0, len(sheet.Lines))
	scenarioIDs := make([]uuid.UUID, 0, len(sheet.Lines))

	for i := range sheet.Lines {
		line := &sheet.Lines[i]
		comp := &lineComputation{line: line}

		if item, ok := items[line.ItemCode]; ok {
			comp.item = &item
			line.Material = item.Material
			line.UnitWeightKg = decimal.NewFromFloat(item.UnitWeightKg)
			if line.DisplayGroup == "" {
				line.DisplayGroup = item.ItemGroup
			}
		} else {
			warnings.Append(s.cfg.MaxWarnings, fmt.Sprintf("item %s is not in the catalog", line.ItemCode))
		}

		comp.matchCtx = mergeMatchContext(sheet.Attributes, line, comp.item)

		scenarioID, err := s.resolveScenarioID(ctx, sheet, comp)
		if err != nil {
			return nil, err
		}
		line.ResolvedScenarioID = &scenarioID
		scenarioIDs = append(scenarioIDs, scenarioID)
		comps = append(comps, comp)
	}

	scenarios, err := s.scenarios.GetMany(ctx, scenarioIDs)
	if err != nil {
		return nil, err
	}
	for _, comp := range comps {
		scenario, ok := scenarios[*comp.line.ResolvedScenarioID]
		if !ok {
			return nil, pkgerrors.Newf(pkgerrors.CodeConfiguration,
				"scenario %s resolved for line %d does not exist", comp.line.ResolvedScenarioID, comp.line.Idx)
		}
		comp.scenario = &scenario
	}
	return comps, nil
}

// resolveScenarioID walks the chain: line override, scenario policy rule,
// sheet default. All three missing is a configuration error.
func (s *service) resolveScenarioID(ctx context.Context, sheet *models.PricingSheet, comp *lineComputation) (uuid.UUID, error) {
	if comp.line.ScenarioOverrideID != nil && *comp.line.ScenarioOverrideID != uuid.Nil {
		return *comp.line.ScenarioOverrideID, nil
	}
	if sheet.ScenarioPolicyID != nil {
		rule, err := s.policies.ResolveScenario(ctx, *sheet.ScenarioPolicyID, comp.matchCtx)
		if err != nil {
			return uuid.Nil, err
		}
		if rule != nil {
			return rule.ScenarioID, nil
		}
	}
	if sheet.DefaultScenarioID != nil && *sheet.DefaultScenarioID != uuid.Nil {
		return *sheet.DefaultScenarioID, nil
	}
	return uuid.Nil, pkgerrors.Newf(pkgerrors.CodeConfiguration,
		"no scenario for line %d: no line override, no policy match, no sheet default", comp.line.Idx)
}

// resolveRates fetches buying and benchmark rates, one query per distinct
// price list no matter how many lines reference it.
func (s *service) resolveRates(ctx context.Context, sheet *models.PricingSheet, comps []*lineComputation) (map[string]map[string]decimal.Decimal, map[string]map[string]decimal.Decimal, error) {
	buyLists := map[string][]string{}
	benchmarkLists := map[string][]string{}
	for _, comp := range comps {
		buyLists[comp.scenario.BuyingPriceList] = append(buyLists[comp.scenario.BuyingPriceList], comp.line.ItemCode)
		benchmarkLists[comp.scenario.BenchmarkPriceList] = append(benchmarkLists[comp.scenario.BenchmarkPriceList], comp.line.ItemCode)
	}

	buyRates := make(map[string]map[string]decimal.Decimal, len(buyLists))
	for list, codes := range buyLists {
		rates, err := s.catalog.LatestRates(ctx, list, codes, sheet.PriceDate)
		if err != nil {
			return nil, nil, err
		}
		buyRates[list] = rates
	}
	benchmarkRates := make(map[string]map[string]decimal.Decimal, len(benchmarkLists))
	for list, codes := range benchmarkLists {
		rates, err := s.catalog.LatestRates(ctx, list, codes, sheet.PriceDate)
		if err != nil {
			return nil, nil, err
		}
		benchmarkRates[list] = rates
	}
	return buyRates, benchmarkRates, nil
}

func (s *service) applyMargin(ctx context.Context, sheet *models.PricingSheet, comp *lineComputation, warnings *types.Warnings) error {
	if sheet.MarginPolicyID == nil {
		return nil
	}
	rule, err := s.policies.ResolveMargin(ctx, *sheet.MarginPolicyID, comp.matchCtx)
	if err != nil {
		return err
	}
	if rule == nil {
		warnings.Append(s.cfg.MaxWarnings, fmt.Sprintf("no margin rule matched line %d", comp.line.Idx))
		return nil
	}

	basis := comp.stack.ProjectedUnit
	if rule.AppliesTo == enums.ExpenseBasisBasePrice {
		basis = comp.line.BuyUnitPrice
	}
	delta := basis.Mul(rule.MarginPercent).Div(hundred)
	running := comp.stack.ProjectedUnit.Add(delta)
	comp.marginStep = &types.ExpenseStepResult{
		Label:        "Margin (policy)",
		Type:         enums.ExpenseTypePercentage,
		Value:        rule.MarginPercent,
		AppliesTo:    rule.AppliesTo,
		Scope:        enums.ExpenseScopePerUnit,
		Basis:        basis,
		DeltaUnit:    delta,
		RunningTotal: running,
	}
	return nil
}

func (s *service) applyCustoms(ctx context.Context, sheet *models.PricingSheet, comp *lineComputation, warnings *types.Warnings) error {
	if sheet.CustomsPolicyID == nil {
		return nil
	}
	rule, err := s.policies.ResolveCustoms(ctx, *sheet.CustomsPolicyID, comp.matchCtx)
	if err != nil {
		return err
	}
	if rule == nil {
		return nil
	}
	// A per-kg rule against a line with no weight silently prices the
	// by_kg branch at zero; surface that as a data-quality warning.
	if rule.RatePerKg.IsPositive() && !comp.line.UnitWeightKg.IsPositive() {
		warnings.Append(s.cfg.MaxWarnings, fmt.Sprintf("line %d has no unit weight for a per-kg customs rule", comp.line.Idx))
	}
	result := ComputeCustomsAmount(
		comp.line.BaseAmount,
		comp.line.Qty,
		comp.line.UnitWeightKg,
		rule.RatePerKg,
		rule.RatePercent,
	)
	comp.customs = &result
	return nil
}

// finalizeLines folds margin, customs and the proportional per-sheet
// allocation into each line and computes sheet aggregates.
func (s *service) finalizeLines(
	sheet *models.PricingSheet,
	comps []*lineComputation,
	sheetFixed, totalBase, totalQty decimal.Decimal,
	benchmarkRates map[string]map[string]decimal.Decimal,
	warnings *types.Warnings,
) {
	totalBuy := decimal.Zero
	totalCustoms := decimal.Zero
	totalSelling := decimal.Zero

	for _, comp := range comps {
		line := comp.line
		steps := comp.stack.Steps

		projectedUnit := comp.stack.ProjectedUnit
		if comp.marginStep != nil {
			projectedUnit = comp.marginStep.RunningTotal
			steps = append(steps, *comp.marginStep)
		}

		customsApplied := decimal.Zero
		if comp.customs != nil {
			customsApplied = comp.customs.Applied
			line.CustomsCharge = comp.customs.Applied
			line.CustomsBasis = comp.customs.Basis
			step := CustomsStep(comp.customs.Applied, line.Qty, comp.customs.Basis, projectedUnit)
			steps = append(steps, step)
			projectedUnit = step.RunningTotal
		} else {
			line.CustomsCharge = decimal.Zero
			line.CustomsBasis = ""
		}

		// Proportional allocation of per-sheet fixed amounts: base-amount
		// share, quantity share when every base is zero. Negative amounts
		// (rebates) allocate the same way.
		allocated := decimal.Zero
		if !sheetFixed.IsZero() {
			switch {
			case totalBase.IsPositive():
				allocated = sheetFixed.Mul(line.BaseAmount).Div(totalBase)
			case totalQty.IsPositive():
				allocated = sheetFixed.Mul(line.Qty).Div(totalQty)
			}
		}
		line.SheetAllocated = allocated

		line.Steps = steps
		line.ProjectedUnit = projectedUnit
		line.ProjectedTotal = projectedUnit.Mul(line.Qty).Add(comp.stack.LineFixedTotal).Add(allocated)

		line.FinalUnitPrice = projectedUnit
		if line.ManualUnitPrice != nil && line.ManualUnitPrice.IsPositive() {
			line.FinalUnitPrice = *line.ManualUnitPrice
		}
		line.FinalTotal = line.FinalUnitPrice.Mul(line.Qty).Add(comp.stack.LineFixedTotal).Add(allocated)

		line.PriceFloorBreached = line.FinalUnitPrice.IsNegative()
		if line.PriceFloorBreached {
			warnings.Append(s.cfg.MaxWarnings, fmt.Sprintf("line %d projects a negative sell price", line.Idx))
		}

		line.MarginPercent = decimal.Zero
		if line.BuyUnitPrice.IsPositive() {
			line.MarginPercent = line.FinalUnitPrice.Sub(line.BuyUnitPrice).Div(line.BuyUnitPrice).Mul(hundred)
			line.MarginFloorBreached = line.MarginPercent.LessThan(decimal.NewFromFloat(s.cfg.MinMarginPercent))
			if line.MarginFloorBreached {
				warnings.Append(s.cfg.MaxWarnings, fmt.Sprintf("line %d margin %s%% is under the floor", line.Idx, line.MarginPercent.StringFixed(2)))
			}
		} else {
			line.MarginFloorBreached = false
		}

		s.applyBenchmark(comp, benchmarkRates)

		totalBuy = totalBuy.Add(line.BaseAmount)
		totalCustoms = totalCustoms.Add(customsApplied)
		totalSelling = totalSelling.Add(line.FinalTotal)
	}

	sheet.TotalBuyAmount = totalBuy
	sheet.TotalCustoms = totalCustoms
	sheet.TotalSelling = totalSelling
	sheet.TotalExpenses = totalSelling.Sub(totalBuy).Sub(totalCustoms)
}

func (s *service) applyBenchmark(comp *lineComputation, benchmarkRates map[string]map[string]decimal.Decimal) {
	line := comp.line
	rate, ok := benchmarkRates[comp.scenario.BenchmarkPriceList][line.ItemCode]
	if !ok || !rate.IsPositive() {
		line.BenchmarkPrice = nil
		line.BenchmarkStatus = enums.BenchmarkStatusNone
		return
	}
	line.BenchmarkPrice = &rate

	ratio := line.FinalUnitPrice.Div(rate)
	low := decimal.NewFromFloat(s.cfg.BenchmarkLowRatio)
	high := decimal.NewFromFloat(s.cfg.BenchmarkHighRatio)
	switch {
	case ratio.LessThan(low):
		line.BenchmarkStatus = enums.BenchmarkStatusTooLow
	case ratio.GreaterThan(high):
		line.BenchmarkStatus = enums.BenchmarkStatusTooHigh
	default:
		line.BenchmarkStatus = enums.BenchmarkStatusOK
	}
}

func mergeMatchContext(base models.RuleAttributes, line *models.PricingLine, item *models.Item) models.RuleAttributes {
	ctx := base
	ctx.Item = line.ItemCode
	if item != nil {
		if item.ItemGroup != "" {
			ctx.ItemGroup = item.ItemGroup
		}
		if item.Material != "" {
			ctx.Material = item.Material
		}
	}
	if line.Material != "" {
		ctx.Material = line.Material
	}
	return ctx
}

func linesFromInput(inputs []LineInput) ([]models.PricingLine, error) {
	lines := make([]models.PricingLine, 0, len(inputs))
	for i, input := range inputs {
		if input.ItemCode == "" {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "line %d has no item code", i)
		}
		if input.Qty.Sign() <= 0 {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "line %d has non-positive quantity", i)
		}
		lines = append(lines, models.PricingLine{
			Idx:                i,
			ItemCode:           input.ItemCode,
			Qty:                input.Qty,
			ScenarioOverrideID: input.ScenarioOverrideID,
			DisplayGroup:       input.DisplayGroup,
			ManualUnitPrice:    input.ManualUnitPrice,
		})
	}
	return lines, nil
}
