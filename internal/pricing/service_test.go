package pricing

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/orderlift/orderlift-backend/pkg/config"
	"github.com/orderlift/orderlift-backend/pkg/db/models"
	"github.com/orderlift/orderlift-backend/pkg/enums"
	pkgerrors "github.com/orderlift/orderlift-backend/pkg/errors"
)

type stubSheetStore struct {
	sheets     map[uuid.UUID]*models.PricingSheet
	overrides  map[uuid.UUID][]models.ExpenseOverride
	quotations map[uuid.UUID]*models.Quotation
	saved      int
	staleIDs   []uuid.UUID
}

func newStubSheetStore() *stubSheetStore {
	return &stubSheetStore{
		sheets:     map[uuid.UUID]*models.PricingSheet{},
		overrides:  map[uuid.UUID][]models.ExpenseOverride{},
		quotations: map[uuid.UUID]*models.Quotation{},
	}
}

func (s *stubSheetStore) CreateSheet(_ context.Context, sheet *models.PricingSheet) error {
	if sheet.ID == uuid.Nil {
		sheet.ID = uuid.New()
	}
	for i := range sheet.Lines {
		if sheet.Lines[i].ID == uuid.Nil {
			sheet.Lines[i].ID = uuid.New()
		}
		sheet.Lines[i].SheetID = sheet.ID
	}
	clone := *sheet
	s.sheets[sheet.ID] = &clone
	return nil
}

func (s *stubSheetStore) GetSheet(_ context.Context, id uuid.UUID) (*models.PricingSheet, error) {
	sheet, ok := s.sheets[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *sheet
	clone.Lines = append([]models.PricingLine(nil), sheet.Lines...)
	return &clone, nil
}

func (s *stubSheetStore) ListSheets(_ context.Context) ([]models.PricingSheet, error) {
	out := make([]models.PricingSheet, 0, len(s.sheets))
	for _, sheet := range s.sheets {
		out = append(out, *sheet)
	}
	return out, nil
}

func (s *stubSheetStore) SaveSheet(_ context.Context, sheet *models.PricingSheet) error {
	clone := *sheet
	s.sheets[sheet.ID] = &clone
	s.saved++
	return nil
}

func (s *stubSheetStore) ReplaceLines(_ context.Context, sheetID uuid.UUID, lines []models.PricingLine) error {
	sheet, ok := s.sheets[sheetID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for i := range lines {
		lines[i].ID = uuid.New()
		lines[i].SheetID = sheetID
	}
	sheet.Lines = lines
	return nil
}

func (s *stubSheetStore) DeleteSheet(_ context.Context, id uuid.UUID) error {
	delete(s.sheets, id)
	return nil
}

func (s *stubSheetStore) ListOverrides(_ context.Context, sheetID uuid.UUID) ([]models.ExpenseOverride, error) {
	return append([]models.ExpenseOverride(nil), s.overrides[sheetID]...), nil
}

func (s *stubSheetStore) SaveOverride(_ context.Context, override *models.ExpenseOverride) error {
	if override.ID == uuid.Nil {
		override.ID = uuid.New()
		s.overrides[override.SheetID] = append(s.overrides[override.SheetID], *override)
		return nil
	}
	rows := s.overrides[override.SheetID]
	for i := range rows {
		if rows[i].ID == override.ID {
			rows[i] = *override
		}
	}
	return nil
}

func (s *stubSheetStore) MarkOverridesStale(_ context.Context, ids []uuid.UUID) error {
	s.staleIDs = append(s.staleIDs, ids...)
	for _, rows := range s.overrides {
		for i := range rows {
			for _, id := range ids {
				if rows[i].ID == id {
					rows[i].IsStale = true
				}
			}
		}
	}
	return nil
}

func (s *stubSheetStore) CreateQuotation(_ context.Context, quotation *models.Quotation) error {
	quotation.ID = uuid.New()
	s.quotations[quotation.ID] = quotation
	return nil
}

func (s *stubSheetStore) GetQuotation(_ context.Context, id uuid.UUID) (*models.Quotation, error) {
	quotation, ok := s.quotations[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return quotation, nil
}

func (s *stubSheetStore) ListQuotationsBySheet(_ context.Context, sheetID uuid.UUID) ([]models.Quotation, error) {
	out := []models.Quotation{}
	for _, quotation := range s.quotations {
		if quotation.SheetID == sheetID {
			out = append(out, *quotation)
		}
	}
	return out, nil
}

type stubScenarioLoader struct {
	scenarios map[uuid.UUID]models.PricingScenario
}

func (s *stubScenarioLoader) GetMany(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]models.PricingScenario, error) {
	out := map[uuid.UUID]models.PricingScenario{}
	for _, id := range ids {
		if scenario, ok := s.scenarios[id]; ok {
			out[id] = scenario
		}
	}
	return out, nil
}

type stubPolicyResolver struct {
	margin   *models.MarginRule
	customs  *models.CustomsRule
	scenario *models.ScenarioRule
}

func (s *stubPolicyResolver) ResolveMargin(context.Context, uuid.UUID, models.RuleAttributes) (*models.MarginRule, error) {
	return s.margin, nil
}

func (s *stubPolicyResolver) ResolveCustoms(context.Context, uuid.UUID, models.RuleAttributes) (*models.CustomsRule, error) {
	return s.customs, nil
}

func (s *stubPolicyResolver) ResolveScenario(context.Context, uuid.UUID, models.RuleAttributes) (*models.ScenarioRule, error) {
	return s.scenario, nil
}

type stubCatalog struct {
	items map[string]models.Item
	rates map[string]map[string]decimal.Decimal
}

func (s *stubCatalog) ItemsByCode(_ context.Context, codes []string) (map[string]models.Item, error) {
	out := map[string]models.Item{}
	for _, code := range codes {
		if item, ok := s.items[code]; ok {
			out[code] = item
		}
	}
	return out, nil
}

func (s *stubCatalog) LatestRates(_ context.Context, priceList string, codes []string, _ time.Time) (map[string]decimal.Decimal, error) {
	out := map[string]decimal.Decimal{}
	for _, code := range codes {
		if rate, ok := s.rates[priceList][code]; ok {
			out[code] = rate
		}
	}
	return out, nil
}

func (s *stubCatalog) EnsurePlaceholderItem(context.Context) (*models.Item, error) {
	return &models.Item{Code: "GROUPED-POSITION", Name: "Grouped Position", IsPlaceholder: true}, nil
}

type recordingPublisher struct {
	events []string
}

func (p *recordingPublisher) PublishDomainEvent(_ context.Context, eventType string, _ any) error {
	p.events = append(p.events, eventType)
	return nil
}

func testConfig() config.PricingConfig {
	return config.PricingConfig{
		MinMarginPercent:   0,
		BenchmarkLowRatio:  0.8,
		BenchmarkHighRatio: 1.1,
		MaxWarnings:        25,
	}
}

// stackedScenario carries the three-step template set whose projection over
// base 100 is unit 126.
func stackedScenario() models.PricingScenario {
	id := uuid.New()
	return models.PricingScenario{
		ID:                 id,
		Name:               "Import Standard",
		BuyingPriceList:    "Buying",
		BenchmarkPriceList: "Benchmark Selling",
		Expenses: []models.ExpenseTemplate{
			{ScenarioID: id, Label: "Freight", Type: enums.ExpenseTypePercentage, AppliesTo: enums.ExpenseBasisBasePrice, Scope: enums.ExpenseScopePerUnit, Value: decimal.NewFromInt(10), Sequence: 10, IsActive: true},
			{ScenarioID: id, Label: "Insurance", Type: enums.ExpenseTypePercentage, AppliesTo: enums.ExpenseBasisRunningTotal, Scope: enums.ExpenseScopePerUnit, Value: decimal.NewFromInt(10), Sequence: 20, IsActive: true},
			{ScenarioID: id, Label: "Handling", Type: enums.ExpenseTypeFixed, Scope: enums.ExpenseScopePerUnit, Value: decimal.NewFromInt(5), Sequence: 30, IsActive: true},
		},
	}
}

type fixture struct {
	svc       Service
	store     *stubSheetStore
	catalog   *stubCatalog
	policies  *stubPolicyResolver
	publisher *recordingPublisher
	scenario  models.PricingScenario
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	scenario := stackedScenario()
	store := newStubSheetStore()
	catalog := &stubCatalog{
		items: map[string]models.Item{
			"TUBE-40": {Code: "TUBE-40", ItemGroup: "Tubes", Material: "Steel", UnitWeightKg: 4},
		},
		rates: map[string]map[string]decimal.Decimal{
			"Buying": {"TUBE-40": decimal.NewFromInt(100)},
		},
	}
	policies := &stubPolicyResolver{}
	publisher := &recordingPublisher{}
	svc, err := NewService(
		store,
		&stubScenarioLoader{scenarios: map[uuid.UUID]models.PricingScenario{scenario.ID: scenario}},
		policies,
		catalog,
		testConfig(),
		nil,
		nil,
		publisher,
	)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &fixture{svc: svc, store: store, catalog: catalog, policies: policies, publisher: publisher, scenario: scenario}
}

func (f *fixture) sheetInput(lines ...LineInput) SheetInput {
	scenarioID := f.scenario.ID
	return SheetInput{
		Name:              "Sheet A",
		Customer:          "Acme Distribution",
		PriceDate:         time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		DefaultScenarioID: &scenarioID,
		Lines:             lines,
	}
}

func TestRecalculateStacksExpenses(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	sheet, err := f.svc.CreateSheet(context.Background(), f.sheetInput(
		LineInput{ItemCode: "TUBE-40", Qty: decimal.NewFromInt(2)},
	))
	if err != nil {
		t.Fatalf("CreateSheet: %v", err)
	}

	line := sheet.Lines[0]
	requireEqual(t, line.BuyUnitPrice, 100, "buy unit")
	requireEqual(t, line.ProjectedUnit, 126, "projected unit")
	requireEqual(t, line.FinalUnitPrice, 126, "final unit")
	requireEqual(t, line.FinalTotal, 252, "final total")
	requireEqual(t, sheet.TotalBuyAmount, 200, "total buy")
	requireEqual(t, sheet.TotalSelling, 252, "total selling")
	requireEqual(t, sheet.TotalExpenses, 52, "total expenses")
	if line.Material != "Steel" || line.DisplayGroup != "Tubes" {
		t.Fatalf("catalog hydration missing: material=%q group=%q", line.Material, line.DisplayGroup)
	}
	if len(f.publisher.events) == 0 || f.publisher.events[0] != string(enums.EventSheetRecalculated) {
		t.Fatalf("expected recalculated event, got %v", f.publisher.events)
	}
}

func TestRecalculateScenarioChain(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	// A line override steers past both the policy and the sheet default.
	alt := stackedScenario()
	loader := &stubScenarioLoader{scenarios: map[uuid.UUID]models.PricingScenario{
		f.scenario.ID: f.scenario,
		alt.ID:        alt,
	}}
	svc, err := NewService(f.store, loader, f.policies, f.catalog, testConfig(), nil, nil, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	altID := alt.ID
	sheet, err := svc.CreateSheet(context.Background(), f.sheetInput(
		LineInput{ItemCode: "TUBE-40", Qty: decimal.NewFromInt(1), ScenarioOverrideID: &altID},
	))
	if err != nil {
		t.Fatalf("CreateSheet: %v", err)
	}
	if got := *sheet.Lines[0].ResolvedScenarioID; got != alt.ID {
		t.Fatalf("line override ignored: resolved %s, want %s", got, alt.ID)
	}

	// Policy rule beats the sheet default when no line override is set.
	policyID := uuid.New()
	f.policies.scenario = &models.ScenarioRule{ScenarioID: alt.ID}
	input := f.sheetInput(LineInput{ItemCode: "TUBE-40", Qty: decimal.NewFromInt(1)})
	input.Name = "Sheet B"
	input.ScenarioPolicyID = &policyID
	sheet, err = svc.CreateSheet(context.Background(), input)
	if err != nil {
		t.Fatalf("CreateSheet with policy: %v", err)
	}
	if got := *sheet.Lines[0].ResolvedScenarioID; got != alt.ID {
		t.Fatalf("policy rule ignored: resolved %s, want %s", got, alt.ID)
	}
}

func TestRecalculateNoScenarioIsConfigurationError(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	input := f.sheetInput(LineInput{ItemCode: "TUBE-40", Qty: decimal.NewFromInt(1)})
	input.DefaultScenarioID = nil
	_, err := f.svc.CreateSheet(context.Background(), input)
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeConfiguration {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestRecalculateMissingBuyPriceWarns(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	delete(f.catalog.rates["Buying"], "TUBE-40")

	sheet, err := f.svc.CreateSheet(context.Background(), f.sheetInput(
		LineInput{ItemCode: "TUBE-40", Qty: decimal.NewFromInt(2)},
	))
	if err != nil {
		t.Fatalf("CreateSheet: %v", err)
	}
	line := sheet.Lines[0]
	if !line.BuyPriceMissing {
		t.Fatal("expected BuyPriceMissing on the line")
	}
	if !line.BuyUnitPrice.IsZero() {
		t.Fatalf("missing rate should price at zero, got %s", line.BuyUnitPrice)
	}
	if len(sheet.Warnings) == 0 {
		t.Fatal("expected a sheet warning")
	}
}

func TestRecalculateStrictBlocksOnWarnings(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	delete(f.catalog.rates["Buying"], "TUBE-40")

	input := f.sheetInput(LineInput{ItemCode: "TUBE-40", Qty: decimal.NewFromInt(1)})
	input.Strict = true
	savedBefore := f.store.saved
	_, err := f.svc.CreateSheet(context.Background(), input)
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeStrictBlocked {
		t.Fatalf("expected strict block, got %v", err)
	}
	if f.store.saved != savedBefore {
		t.Fatal("strict failure must not persist computed results")
	}
}

func TestRecalculateSheetFixedCountedOncePerScenario(t *testing.T) {
	t.Parallel()
	scenario := stackedScenario()
	scenario.Expenses = []models.ExpenseTemplate{
		{ScenarioID: scenario.ID, Label: "Documentation", Type: enums.ExpenseTypeFixed, Scope: enums.ExpenseScopePerSheet, Value: decimal.NewFromInt(100), Sequence: 10, IsActive: true},
	}
	store := newStubSheetStore()
	catalog := &stubCatalog{
		items: map[string]models.Item{
			"A": {Code: "A"}, "B": {Code: "B"},
		},
		rates: map[string]map[string]decimal.Decimal{
			"Buying": {"A": decimal.NewFromInt(30), "B": decimal.NewFromInt(10)},
		},
	}
	svc, err := NewService(store, &stubScenarioLoader{scenarios: map[uuid.UUID]models.PricingScenario{scenario.ID: scenario}}, &stubPolicyResolver{}, catalog, testConfig(), nil, nil, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	scenarioID := scenario.ID
	sheet, err := svc.CreateSheet(context.Background(), SheetInput{
		Name:              "Allocated",
		DefaultScenarioID: &scenarioID,
		Lines: []LineInput{
			{ItemCode: "A", Qty: decimal.NewFromInt(1)},
			{ItemCode: "B", Qty: decimal.NewFromInt(1)},
		},
	})
	if err != nil {
		t.Fatalf("CreateSheet: %v", err)
	}

	requireEqual(t, sheet.SheetFixedTotal, 100, "sheet fixed total")
	// Base amounts 30 and 10: allocation splits 75 / 25.
	requireEqual(t, sheet.Lines[0].SheetAllocated, 75, "line A allocation")
	requireEqual(t, sheet.Lines[1].SheetAllocated, 25, "line B allocation")
	requireEqual(t, sheet.Lines[0].FinalTotal, 105, "line A total")
	requireEqual(t, sheet.Lines[1].FinalTotal, 35, "line B total")
	requireEqual(t, sheet.TotalSelling, 140, "total selling")
}

func TestRecalculateManualPriceWins(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	manual := decimal.NewFromInt(150)
	sheet, err := f.svc.CreateSheet(context.Background(), f.sheetInput(
		LineInput{ItemCode: "TUBE-40", Qty: decimal.NewFromInt(2), ManualUnitPrice: &manual},
	))
	if err != nil {
		t.Fatalf("CreateSheet: %v", err)
	}
	line := sheet.Lines[0]
	requireEqual(t, line.ProjectedUnit, 126, "projected unit")
	requireEqual(t, line.FinalUnitPrice, 150, "final unit")
	requireEqual(t, line.FinalTotal, 300, "final total")
}

func TestRecalculateMarginPolicyStep(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	marginPolicyID := uuid.New()
	f.policies.margin = &models.MarginRule{
		MarginPercent: decimal.NewFromInt(10),
		AppliesTo:     enums.ExpenseBasisRunningTotal,
	}

	input := f.sheetInput(LineInput{ItemCode: "TUBE-40", Qty: decimal.NewFromInt(1)})
	input.MarginPolicyID = &marginPolicyID
	sheet, err := f.svc.CreateSheet(context.Background(), input)
	if err != nil {
		t.Fatalf("CreateSheet: %v", err)
	}
	// 126 running + 10% margin = 138.6.
	requireEqual(t, sheet.Lines[0].FinalUnitPrice, 138.6, "final unit")
	last := sheet.Lines[0].Steps[len(sheet.Lines[0].Steps)-1]
	if last.Label != "Margin (policy)" {
		t.Fatalf("expected trailing margin step, got %q", last.Label)
	}
}

func TestRecalculateCustomsAppliedLast(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	customsPolicyID := uuid.New()
	// by_kg = 2×4×10 = 80, by_percent = 200×10% = 20: weight basis wins.
	f.policies.customs = &models.CustomsRule{
		RatePerKg:   decimal.NewFromInt(10),
		RatePercent: decimal.NewFromInt(10),
	}

	input := f.sheetInput(LineInput{ItemCode: "TUBE-40", Qty: decimal.NewFromInt(2)})
	input.CustomsPolicyID = &customsPolicyID
	sheet, err := f.svc.CreateSheet(context.Background(), input)
	if err != nil {
		t.Fatalf("CreateSheet: %v", err)
	}
	line := sheet.Lines[0]
	requireEqual(t, line.CustomsCharge, 80, "customs charge")
	if line.CustomsBasis != enums.CustomsBasisPerKg {
		t.Fatalf("expected per-kg basis, got %q", line.CustomsBasis)
	}
	// 126 + 80/2 per unit = 166.
	requireEqual(t, line.FinalUnitPrice, 166, "final unit")
	requireEqual(t, sheet.TotalCustoms, 80, "total customs")
}

func TestRecalculateBenchmarkBanding(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name      string
		benchmark float64
		want      enums.BenchmarkStatus
	}{
		{"too low", 200, enums.BenchmarkStatusTooLow},
		{"in band", 126, enums.BenchmarkStatusOK},
		{"too high", 100, enums.BenchmarkStatusTooHigh},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			f.catalog.rates["Benchmark Selling"] = map[string]decimal.Decimal{
				"TUBE-40": decimal.NewFromFloat(tc.benchmark),
			}
			sheet, err := f.svc.CreateSheet(context.Background(), f.sheetInput(
				LineInput{ItemCode: "TUBE-40", Qty: decimal.NewFromInt(1)},
			))
			if err != nil {
				t.Fatalf("CreateSheet: %v", err)
			}
			if got := sheet.Lines[0].BenchmarkStatus; got != tc.want {
				t.Fatalf("benchmark status = %q, want %q", got, tc.want)
			}
		})
	}

	t.Run("no benchmark rate", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		sheet, err := f.svc.CreateSheet(context.Background(), f.sheetInput(
			LineInput{ItemCode: "TUBE-40", Qty: decimal.NewFromInt(1)},
		))
		if err != nil {
			t.Fatalf("CreateSheet: %v", err)
		}
		if got := sheet.Lines[0].BenchmarkStatus; got != enums.BenchmarkStatusNone {
			t.Fatalf("benchmark status = %q, want %q", got, enums.BenchmarkStatusNone)
		}
	})
}

func TestSetOverrideAppliesAndStaleRowsAreFlagged(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	sheet, err := f.svc.CreateSheet(context.Background(), f.sheetInput(
		LineInput{ItemCode: "TUBE-40", Qty: decimal.NewFromInt(1)},
	))
	if err != nil {
		t.Fatalf("CreateSheet: %v", err)
	}

	freightKey := StepKey(f.scenario.ID.String(), "Freight", enums.ExpenseScopePerUnit, enums.ExpenseBasisBasePrice)
	scenarioID := f.scenario.ID
	sheet, err = f.svc.SetOverride(context.Background(), OverrideInput{
		SheetID:    sheet.ID,
		ScenarioID: &scenarioID,
		ExpenseKey: freightKey,
		Value:      decimal.NewFromInt(20),
	})
	if err != nil {
		t.Fatalf("SetOverride: %v", err)
	}
	// Freight 20% base instead of 10%: (100+20)×1.1 + 5 = 137.
	requireEqual(t, sheet.Lines[0].FinalUnitPrice, 137, "overridden unit")

	// An override keyed to a template that no longer exists is flagged,
	// never deleted.
	_, err = f.svc.SetOverride(context.Background(), OverrideInput{
		SheetID:    sheet.ID,
		ScenarioID: &scenarioID,
		ExpenseKey: "gone::step::Per Unit::Base Price",
		Value:      decimal.NewFromInt(1),
	})
	if err != nil {
		t.Fatalf("SetOverride stale: %v", err)
	}
	if len(f.store.staleIDs) == 0 {
		t.Fatal("expected the orphaned override to be marked stale")
	}
	for _, row := range f.store.overrides[sheet.ID] {
		if row.ExpenseKey == freightKey && row.IsStale {
			t.Fatal("live override was wrongly marked stale")
		}
	}
}

func TestExportDetailed(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	sheet, err := f.svc.CreateSheet(context.Background(), f.sheetInput(
		LineInput{ItemCode: "TUBE-40", Qty: decimal.NewFromInt(2)},
	))
	if err != nil {
		t.Fatalf("CreateSheet: %v", err)
	}

	quotation, err := f.svc.Export(context.Background(), sheet.ID, enums.QuotationModeDetailed, "ops@orderlift.io")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(quotation.Lines) != 1 {
		t.Fatalf("expected 1 quotation line, got %d", len(quotation.Lines))
	}
	row := quotation.Lines[0]
	if row.ItemCode != "TUBE-40" {
		t.Fatalf("unexpected item code %q", row.ItemCode)
	}
	requireEqual(t, row.Rate, 126, "rate")
	requireEqual(t, row.Amount, 252, "amount")
	if f.publisher.events[len(f.publisher.events)-1] != string(enums.EventQuotationExported) {
		t.Fatalf("expected exported event, got %v", f.publisher.events)
	}
}

func TestExportGroupedReproducesSheetTotal(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.catalog.items["TUBE-60"] = models.Item{Code: "TUBE-60", ItemGroup: "Tubes"}
	f.catalog.items["FITTING-2"] = models.Item{Code: "FITTING-2", ItemGroup: "Fittings"}
	f.catalog.rates["Buying"]["TUBE-60"] = decimal.NewFromInt(50)
	f.catalog.rates["Buying"]["FITTING-2"] = decimal.NewFromInt(20)

	sheet, err := f.svc.CreateSheet(context.Background(), f.sheetInput(
		LineInput{ItemCode: "TUBE-40", Qty: decimal.NewFromInt(1)},
		LineInput{ItemCode: "TUBE-60", Qty: decimal.NewFromInt(2)},
		LineInput{ItemCode: "FITTING-2", Qty: decimal.NewFromInt(3)},
	))
	if err != nil {
		t.Fatalf("CreateSheet: %v", err)
	}

	quotation, err := f.svc.Export(context.Background(), sheet.ID, enums.QuotationModeGrouped, "")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(quotation.Lines) != 2 {
		t.Fatalf("expected 2 grouped rows, got %d", len(quotation.Lines))
	}
	total := decimal.Zero
	for _, row := range quotation.Lines {
		if row.ItemCode != "GROUPED-POSITION" {
			t.Fatalf("grouped rows must use the placeholder item, got %q", row.ItemCode)
		}
		total = total.Add(row.Amount)
	}
	if !total.Equal(sheet.TotalSelling) {
		t.Fatalf("grouped read-back = %s, want %s", total, sheet.TotalSelling)
	}
}

func TestExportStrictSheetWithWarningsBlocked(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	sheet, err := f.svc.CreateSheet(context.Background(), f.sheetInput(
		LineInput{ItemCode: "TUBE-40", Qty: decimal.NewFromInt(1)},
	))
	if err != nil {
		t.Fatalf("CreateSheet: %v", err)
	}
	// Flip the stored copy into a strict sheet carrying warnings.
	stored := f.store.sheets[sheet.ID]
	stored.Strict = true
	stored.Warnings = []string{"item X is not in the catalog"}

	_, err = f.svc.Export(context.Background(), sheet.ID, enums.QuotationModeDetailed, "")
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeStrictBlocked {
		t.Fatalf("expected strict block, got %v", err)
	}
}

func TestCreateSheetValidation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.svc.CreateSheet(context.Background(), SheetInput{Name: ""})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for empty name, got %v", err)
	}

	input := f.sheetInput(LineInput{ItemCode: "TUBE-40", Qty: decimal.NewFromInt(-1)})
	_, err = f.svc.CreateSheet(context.Background(), input)
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for negative qty, got %v", err)
	}
}

func TestRecalculateNegativeSheetFixedAllocates(t *testing.T) {
	t.Parallel()
	scenario := stackedScenario()
	scenario.Expenses = []models.ExpenseTemplate{
		{ScenarioID: scenario.ID, Label: "Volume Rebate", Type: enums.ExpenseTypeFixed, Scope: enums.ExpenseScopePerSheet, Value: decimal.NewFromInt(-20), Sequence: 10, IsActive: true},
	}
	store := newStubSheetStore()
	catalog := &stubCatalog{
		items: map[string]models.Item{
			"A": {Code: "A"}, "B": {Code: "B"},
		},
		rates: map[string]map[string]decimal.Decimal{
			"Buying": {"A": decimal.NewFromInt(30), "B": decimal.NewFromInt(10)},
		},
	}
	svc, err := NewService(store, &stubScenarioLoader{scenarios: map[uuid.UUID]models.PricingScenario{scenario.ID: scenario}}, &stubPolicyResolver{}, catalog, testConfig(), nil, nil, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	scenarioID := scenario.ID
	sheet, err := svc.CreateSheet(context.Background(), SheetInput{
		Name:              "Rebated",
		DefaultScenarioID: &scenarioID,
		Lines: []LineInput{
			{ItemCode: "A", Qty: decimal.NewFromInt(1)},
			{ItemCode: "B", Qty: decimal.NewFromInt(1)},
		},
	})
	if err != nil {
		t.Fatalf("CreateSheet: %v", err)
	}

	// A rebate allocates by the same base-amount shares as a charge.
	requireEqual(t, sheet.SheetFixedTotal, -20, "sheet fixed total")
	requireEqual(t, sheet.Lines[0].SheetAllocated, -15, "line A allocation")
	requireEqual(t, sheet.Lines[1].SheetAllocated, -5, "line B allocation")
	requireEqual(t, sheet.Lines[0].FinalTotal, 15, "line A total")
	requireEqual(t, sheet.Lines[1].FinalTotal, 5, "line B total")
	requireEqual(t, sheet.TotalSelling, 20, "total selling")
}

func TestStrictBlockLeavesOverrideStateUntouched(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	sheet, err := f.svc.CreateSheet(context.Background(), f.sheetInput(
		LineInput{ItemCode: "TUBE-40", Qty: decimal.NewFromInt(1)},
	))
	if err != nil {
		t.Fatalf("CreateSheet: %v", err)
	}

	// An orphaned override row and a warning source arrive together: the
	// strict abort must write neither sheet nor override state.
	f.store.overrides[sheet.ID] = []models.ExpenseOverride{{
		ID:         uuid.New(),
		SheetID:    sheet.ID,
		ExpenseKey: "gone::step::Per Unit::Base Price",
		Value:      decimal.NewFromInt(1),
	}}
	f.store.sheets[sheet.ID].Strict = true
	delete(f.catalog.rates["Buying"], "TUBE-40")
	savedBefore := f.store.saved

	_, err = f.svc.Recalculate(context.Background(), sheet.ID)
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeStrictBlocked {
		t.Fatalf("expected strict block, got %v", err)
	}
	if f.store.saved != savedBefore {
		t.Fatal("strict failure must not persist the sheet")
	}
	if len(f.store.staleIDs) != 0 {
		t.Fatalf("strict failure must not flag overrides stale, got %v", f.store.staleIDs)
	}
}

func TestRecalculatePerKgCustomsWithoutWeightWarns(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.catalog.items["TUBE-40"] = models.Item{Code: "TUBE-40", ItemGroup: "Tubes", Material: "Steel"}
	customsPolicyID := uuid.New()
	f.policies.customs = &models.CustomsRule{RatePerKg: decimal.NewFromInt(10)}

	input := f.sheetInput(LineInput{ItemCode: "TUBE-40", Qty: decimal.NewFromInt(2)})
	input.CustomsPolicyID = &customsPolicyID
	sheet, err := f.svc.CreateSheet(context.Background(), input)
	if err != nil {
		t.Fatalf("CreateSheet: %v", err)
	}

	requireEqual(t, sheet.Lines[0].CustomsCharge, 0, "customs charge")
	found := false
	for _, w := range sheet.Warnings {
		if strings.Contains(w, "no unit weight") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a missing-weight warning, got %v", sheet.Warnings)
	}
}

func TestRecalculateTwiceIsIdempotent(t *testing.T) {
	t.Parallel()
	scenario := stackedScenario()
	scenario.Expenses = append(scenario.Expenses,
		models.ExpenseTemplate{ScenarioID: scenario.ID, Label: "Documentation", Type: enums.ExpenseTypeFixed, Scope: enums.ExpenseScopePerSheet, Value: decimal.NewFromInt(50), Sequence: 40, IsActive: true},
	)
	store := newStubSheetStore()
	catalog := &stubCatalog{
		items: map[string]models.Item{
			"TUBE-40":   {Code: "TUBE-40", ItemGroup: "Tubes", Material: "Steel", UnitWeightKg: 4},
			"SHEET-2MM": {Code: "SHEET-2MM", ItemGroup: "Sheets", Material: "Steel", UnitWeightKg: 9},
		},
		rates: map[string]map[string]decimal.Decimal{
			"Buying": {"TUBE-40": decimal.NewFromInt(100), "SHEET-2MM": decimal.NewFromInt(40)},
		},
	}
	policies := &stubPolicyResolver{
		margin:  &models.MarginRule{MarginPercent: decimal.NewFromInt(10), AppliesTo: enums.ExpenseBasisRunningTotal},
		customs: &models.CustomsRule{RatePerKg: decimal.NewFromInt(2), RatePercent: decimal.NewFromInt(5)},
	}
	svc, err := NewService(store, &stubScenarioLoader{scenarios: map[uuid.UUID]models.PricingScenario{scenario.ID: scenario}}, policies, catalog, testConfig(), nil, nil, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	scenarioID := scenario.ID
	marginPolicyID := uuid.New()
	customsPolicyID := uuid.New()
	first, err := svc.CreateSheet(context.Background(), SheetInput{
		Name:              "Stable",
		DefaultScenarioID: &scenarioID,
		MarginPolicyID:    &marginPolicyID,
		CustomsPolicyID:   &customsPolicyID,
		Lines: []LineInput{
			{ItemCode: "TUBE-40", Qty: decimal.NewFromInt(2)},
			{ItemCode: "SHEET-2MM", Qty: decimal.NewFromInt(5)},
		},
	})
	if err != nil {
		t.Fatalf("CreateSheet: %v", err)
	}

	second, err := svc.Recalculate(context.Background(), first.ID)
	if err != nil {
		t.Fatalf("Recalculate: %v", err)
	}

	// Margin, customs and per-sheet allocation all in play: unchanged
	// inputs must reproduce totals and step breakdowns exactly.
	firstJSON, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("marshal first: %v", err)
	}
	secondJSON, err := json.Marshal(second)
	if err != nil {
		t.Fatalf("marshal second: %v", err)
	}
	if string(firstJSON) != string(secondJSON) {
		t.Fatalf("recalculation drifted:\nfirst:  %s\nsecond: %s", firstJSON, secondJSON)
	}
}
