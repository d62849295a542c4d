package logistics

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orderlift/orderlift-backend/pkg/config"
	"github.com/orderlift/orderlift-backend/pkg/db/models"
	"github.com/orderlift/orderlift-backend/pkg/enums"
	pkgerrors "github.com/orderlift/orderlift-backend/pkg/errors"
)

type stubStore struct {
	profiles  map[uuid.UUID]*models.ContainerProfile
	shipments map[uuid.UUID]*models.Shipment
	plans     map[uuid.UUID]*models.ContainerLoadPlan
	analyses  []*models.ShipmentAnalysis
}

func newStubStore() *stubStore {
	return &stubStore{
		profiles:  map[uuid.UUID]*models.ContainerProfile{},
		shipments: map[uuid.UUID]*models.Shipment{},
		plans:     map[uuid.UUID]*models.ContainerLoadPlan{},
	}
}

func (s *stubStore) CreateContainerProfile(_ context.Context, profile *models.ContainerProfile) error {
	profile.ID = uuid.New()
	s.profiles[profile.ID] = profile
	return nil
}

func (s *stubStore) GetContainerProfile(_ context.Context, id uuid.UUID) (*models.ContainerProfile, error) {
	profile, ok := s.profiles[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return profile, nil
}

func (s *stubStore) ListContainerProfiles(_ context.Context) ([]models.ContainerProfile, error) {
	out := []models.ContainerProfile{}
	for _, profile := range s.profiles {
		out = append(out, *profile)
	}
	return out, nil
}

func (s *stubStore) CreateShipment(_ context.Context, shipment *models.Shipment) error {
	shipment.ID = uuid.New()
	s.shipments[shipment.ID] = shipment
	return nil
}

func (s *stubStore) GetShipment(_ context.Context, id uuid.UUID) (*models.Shipment, error) {
	shipment, ok := s.shipments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return shipment, nil
}

func (s *stubStore) GetShipments(_ context.Context, ids []uuid.UUID) ([]models.Shipment, error) {
	out := []models.Shipment{}
	for _, id := range ids {
		if shipment, ok := s.shipments[id]; ok {
			out = append(out, *shipment)
		}
	}
	return out, nil
}

func (s *stubStore) ListEligibleShipments(_ context.Context, company, destinationZone string) ([]models.Shipment, error) {
	out := []models.Shipment{}
	for _, shipment := range s.shipments {
		if shipment.Status != enums.ShipmentStatusPending || shipment.LockedByPlanID != nil {
			continue
		}
		if company != "" && shipment.Company != company {
			continue
		}
		if destinationZone != "" && shipment.DestinationZone != destinationZone {
			continue
		}
		out = append(out, *shipment)
	}
	return out, nil
}

func (s *stubStore) SaveShipment(_ context.Context, shipment *models.Shipment) error {
	s.shipments[shipment.ID] = shipment
	return nil
}

func (s *stubStore) LockShipments(_ context.Context, planID uuid.UUID, shipmentIDs []uuid.UUID) error {
	for _, id := range shipmentIDs {
		if shipment, ok := s.shipments[id]; ok {
			lock := planID
			shipment.LockedByPlanID = &lock
			shipment.Status = enums.ShipmentStatusPlanned
		}
	}
	return nil
}

func (s *stubStore) UnlockShipments(_ context.Context, planID uuid.UUID) error {
	for _, shipment := range s.shipments {
		if shipment.LockedByPlanID != nil && *shipment.LockedByPlanID == planID {
			shipment.LockedByPlanID = nil
			shipment.Status = enums.ShipmentStatusPending
		}
	}
	return nil
}

func (s *stubStore) CreatePlan(_ context.Context, plan *models.ContainerLoadPlan) error {
	plan.ID = uuid.New()
	s.plans[plan.ID] = plan
	return nil
}

func (s *stubStore) GetPlan(_ context.Context, id uuid.UUID) (*models.ContainerLoadPlan, error) {
	plan, ok := s.plans[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *plan
	clone.Shipments = append([]models.LoadPlanShipment(nil), plan.Shipments...)
	return &clone, nil
}

func (s *stubStore) ListPlans(_ context.Context) ([]models.ContainerLoadPlan, error) {
	out := []models.ContainerLoadPlan{}
	for _, plan := range s.plans {
		out = append(out, *plan)
	}
	return out, nil
}

func (s *stubStore) SavePlan(_ context.Context, plan *models.ContainerLoadPlan) error {
	clone := *plan
	s.plans[plan.ID] = &clone
	return nil
}

func (s *stubStore) ReplacePlanShipments(_ context.Context, planID uuid.UUID, rows []models.LoadPlanShipment) error {
	plan, ok := s.plans[planID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for i := range rows {
		rows[i].ID = uuid.New()
		rows[i].PlanID = planID
	}
	plan.Shipments = rows
	return nil
}

func (s *stubStore) CreateAnalysis(_ context.Context, analysis *models.ShipmentAnalysis) error {
	analysis.ID = uuid.New()
	analysis.CreatedAt = time.Now().Add(time.Duration(len(s.analyses)) * time.Millisecond)
	s.analyses = append(s.analyses, analysis)
	return nil
}

func (s *stubStore) LatestAnalysis(_ context.Context, sourceType, sourceRef string) (*models.ShipmentAnalysis, error) {
	for i := len(s.analyses) - 1; i >= 0; i-- {
		if s.analyses[i].SourceType == sourceType && s.analyses[i].SourceRef == sourceRef {
			return s.analyses[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubStore) ListAnalyses(_ context.Context, sourceType, sourceRef string) ([]models.ShipmentAnalysis, error) {
	out := []models.ShipmentAnalysis{}
	for i := len(s.analyses) - 1; i >= 0; i-- {
		if s.analyses[i].SourceType == sourceType && s.analyses[i].SourceRef == sourceRef {
			out = append(out, *s.analyses[i])
		}
	}
	return out, nil
}

func (s *stubStore) MarkAnalysisCancelled(_ context.Context, id uuid.UUID) error {
	for _, analysis := range s.analyses {
		if analysis.ID == id {
			analysis.Status = enums.AnalysisStatusCancelled
		}
	}
	return nil
}

type stubCatalog struct {
	items map[string]models.Item
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

type recordingPublisher struct {
	events []string
}

func (p *recordingPublisher) PublishDomainEvent(_ context.Context, eventType string, _ any) error {
	p.events = append(p.events, eventType)
	return nil
}

type fixture struct {
	svc       Service
	store     *stubStore
	catalog   *stubCatalog
	publisher *recordingPublisher
	profileID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newStubStore()
	catalog := &stubCatalog{items: map[string]models.Item{
		"TUBE-40":   {Code: "TUBE-40", UnitWeightKg: 40, UnitVolumeM3: 0.1},
		"CRATE-XL":  {Code: "CRATE-XL", UnitWeightKg: 120, LengthCm: 100, WidthCm: 100, HeightCm: 50},
		"NO-METRIC": {Code: "NO-METRIC"},
	}}
	publisher := &recordingPublisher{}
	svc, err := NewService(store, catalog, config.LogisticsConfig{LimitingFactorEpsilon: 1.0}, nil, nil, publisher)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	f := &fixture{svc: svc, store: store, catalog: catalog, publisher: publisher}
	profile, err := svc.CreateContainerProfile(context.Background(), &models.ContainerProfile{
		Name: "20ft", MaxWeightKg: 28000, MaxVolumeM3: 33, CostRank: 10,
	})
	if err != nil {
		t.Fatalf("CreateContainerProfile: %v", err)
	}
	f.profileID = profile.ID
	return f
}

func (f *fixture) shipment(t *testing.T, reference string, qty float64) *models.Shipment {
	t.Helper()
	shipment, err := f.svc.CreateShipment(context.Background(), ShipmentInput{
		Reference:       reference,
		Company:         "OrderLift GmbH",
		DestinationZone: "EU-WEST",
		Items:           []ShipmentItemInput{{ItemCode: "TUBE-40", Qty: qty}},
	})
	if err != nil {
		t.Fatalf("CreateShipment %s: %v", reference, err)
	}
	return shipment
}

func (f *fixture) plan(t *testing.T, name string) *models.ContainerLoadPlan {
	t.Helper()
	plan, err := f.svc.CreatePlan(context.Background(), PlanInput{
		Name:               name,
		Company:            "OrderLift GmbH",
		DestinationZone:    "EU-WEST",
		ContainerProfileID: f.profileID,
	})
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}
	return plan
}

func TestCreateContainerProfileValidatesCapacity(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	_, err := f.svc.CreateContainerProfile(context.Background(), &models.ContainerProfile{
		Name: "broken", MaxWeightKg: 0, MaxVolumeM3: 10,
	})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestShipmentMetricsVolumeFallback(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	shipment, err := f.svc.CreateShipment(context.Background(), ShipmentInput{
		Reference: "SHP-001",
		Items: []ShipmentItemInput{
			{ItemCode: "TUBE-40", Qty: 10},
			{ItemCode: "CRATE-XL", Qty: 2},
		},
	})
	if err != nil {
		t.Fatalf("CreateShipment: %v", err)
	}
	m, err := f.svc.ShipmentMetrics(context.Background(), shipment)
	if err != nil {
		t.Fatalf("ShipmentMetrics: %v", err)
	}
	// TUBE-40: 10×40 kg, 10×0.1 m3. CRATE-XL: 2×120 kg, volume from
	// 100×100×50 cm = 0.5 m3 each.
	if m.WeightKg != 640 {
		t.Fatalf("weight = %v, want 640", m.WeightKg)
	}
	if m.VolumeM3 != 2 {
		t.Fatalf("volume = %v, want 2", m.VolumeM3)
	}
	if m.Incomplete() {
		t.Fatalf("unexpected missing items: %v", m.MissingItems)
	}
}

func TestShipmentMetricsTracksMissingItems(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	shipment, err := f.svc.CreateShipment(context.Background(), ShipmentInput{
		Reference: "SHP-002",
		Items: []ShipmentItemInput{
			{ItemCode: "NO-METRIC", Qty: 1},
			{ItemCode: "UNKNOWN", Qty: 1},
		},
	})
	if err != nil {
		t.Fatalf("CreateShipment: %v", err)
	}
	m, err := f.svc.ShipmentMetrics(context.Background(), shipment)
	if err != nil {
		t.Fatalf("ShipmentMetrics: %v", err)
	}
	if len(m.MissingItems) != 2 {
		t.Fatalf("expected 2 missing items, got %v", m.MissingItems)
	}
}

func TestSetPlanShipmentsComputesUtilization(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	plan := f.plan(t, "PLAN-001")
	shipment := f.shipment(t, "SHP-010", 280) // 11200 kg, 28 m3

	got, err := f.svc.SetPlanShipments(context.Background(), plan.ID, []uuid.UUID{shipment.ID})
	if err != nil {
		t.Fatalf("SetPlanShipments: %v", err)
	}
	if got.TotalWeightKg != 11200 || got.TotalVolumeM3 != 28 {
		t.Fatalf("totals = %v kg / %v m3", got.TotalWeightKg, got.TotalVolumeM3)
	}
	if got.WeightUtilization != 40 {
		t.Fatalf("weight utilization = %v, want 40", got.WeightUtilization)
	}
	if got.LimitingFactor != enums.LimitingFactorVolume {
		t.Fatalf("limiting factor = %q, want volume", got.LimitingFactor)
	}
	if got.AnalysisStatus != enums.AnalysisStatusOK {
		t.Fatalf("analysis status = %q, want ok", got.AnalysisStatus)
	}
}

func TestSetPlanShipmentsRejectsDuplicates(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	plan := f.plan(t, "PLAN-002")
	shipment := f.shipment(t, "SHP-020", 10)

	_, err := f.svc.SetPlanShipments(context.Background(), plan.ID, []uuid.UUID{shipment.ID, shipment.ID})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for duplicate shipment, got %v", err)
	}
}

func TestSetPlanShipmentsRejectsForeignLock(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	plan := f.plan(t, "PLAN-003")
	shipment := f.shipment(t, "SHP-030", 10)
	otherPlan := uuid.New()
	f.store.shipments[shipment.ID].LockedByPlanID = &otherPlan

	_, err := f.svc.SetPlanShipments(context.Background(), plan.ID, []uuid.UUID{shipment.ID})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestRecalculatePlanOverCapacityBlocksSave(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	plan := f.plan(t, "PLAN-004")
	// 800 × 40 kg = 32000 kg against a 28000 kg container.
	shipment := f.shipment(t, "SHP-040", 800)

	_, err := f.svc.SetPlanShipments(context.Background(), plan.ID, []uuid.UUID{shipment.ID})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected over-capacity state conflict, got %v", err)
	}
	stored := f.store.plans[plan.ID]
	if stored.TotalWeightKg != 0 {
		t.Fatalf("over-capacity recompute must not persist totals, got %v", stored.TotalWeightKg)
	}
}

func TestSubmitPlanLocksShipmentsAndSnapshots(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	plan := f.plan(t, "PLAN-005")
	shipment := f.shipment(t, "SHP-050", 100)
	if _, err := f.svc.SetPlanShipments(context.Background(), plan.ID, []uuid.UUID{shipment.ID}); err != nil {
		t.Fatalf("SetPlanShipments: %v", err)
	}

	got, err := f.svc.SubmitPlan(context.Background(), plan.ID)
	if err != nil {
		t.Fatalf("SubmitPlan: %v", err)
	}
	if got.Status != enums.LoadPlanStatusLoading {
		t.Fatalf("plan status = %q, want loading", got.Status)
	}
	locked := f.store.shipments[shipment.ID]
	if locked.LockedByPlanID == nil || *locked.LockedByPlanID != plan.ID {
		t.Fatal("shipment was not locked to the plan")
	}
	if locked.Status != enums.ShipmentStatusPlanned {
		t.Fatalf("shipment status = %q, want planned", locked.Status)
	}
	if len(f.store.analyses) != 1 || f.store.analyses[0].SourceType != SourceTypeLoadPlan {
		t.Fatalf("expected one plan snapshot, got %d", len(f.store.analyses))
	}
	if last := f.publisher.events[len(f.publisher.events)-1]; last != string(enums.EventPlanSubmitted) {
		t.Fatalf("expected submitted event, got %v", f.publisher.events)
	}
}

func TestCancelPlanUnlocksAndCancelsAnalysis(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	plan := f.plan(t, "PLAN-006")
	shipment := f.shipment(t, "SHP-060", 100)
	if _, err := f.svc.SetPlanShipments(context.Background(), plan.ID, []uuid.UUID{shipment.ID}); err != nil {
		t.Fatalf("SetPlanShipments: %v", err)
	}
	if _, err := f.svc.SubmitPlan(context.Background(), plan.ID); err != nil {
		t.Fatalf("SubmitPlan: %v", err)
	}

	got, err := f.svc.CancelPlan(context.Background(), plan.ID)
	if err != nil {
		t.Fatalf("CancelPlan: %v", err)
	}
	if got.Status != enums.LoadPlanStatusCancelled {
		t.Fatalf("plan status = %q, want cancelled", got.Status)
	}
	unlocked := f.store.shipments[shipment.ID]
	if unlocked.LockedByPlanID != nil || unlocked.Status != enums.ShipmentStatusPending {
		t.Fatal("shipment was not released on cancel")
	}
	if f.store.analyses[0].Status != enums.AnalysisStatusCancelled {
		t.Fatalf("analysis status = %q, want cancelled", f.store.analyses[0].Status)
	}
	if last := f.publisher.events[len(f.publisher.events)-1]; last != string(enums.EventPlanCancelled) {
		t.Fatalf("expected cancelled event, got %v", f.publisher.events)
	}
}

func TestSuggestExcludesAdmittedShipments(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	plan := f.plan(t, "PLAN-007")
	admitted := f.shipment(t, "SHP-070", 100)
	waiting := f.shipment(t, "SHP-071", 50)
	if _, err := f.svc.SetPlanShipments(context.Background(), plan.ID, []uuid.UUID{admitted.ID}); err != nil {
		t.Fatalf("SetPlanShipments: %v", err)
	}

	suggestion, err := f.svc.Suggest(context.Background(), plan.ID)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(suggestion.Selected) != 1 || suggestion.Selected[0].ShipmentID != waiting.ID {
		t.Fatalf("expected only the waiting shipment suggested, got %+v", suggestion.Selected)
	}
}

func TestAnalyzeSourceRecommendsContainer(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	analysis, err := f.svc.AnalyzeSource(context.Background(), AnalysisInput{
		SourceType: SourceTypeDeliveryNote,
		SourceRef:  "DN-0001",
		Customer:   "Acme Distribution",
		Items:      []ShipmentItemInput{{ItemCode: "TUBE-40", Qty: 280}},
	})
	if err != nil {
		t.Fatalf("AnalyzeSource: %v", err)
	}
	if analysis.Status != enums.AnalysisStatusOK {
		t.Fatalf("status = %q, want ok", analysis.Status)
	}
	if analysis.RecommendedContainerID == nil || *analysis.RecommendedContainerID != f.profileID {
		t.Fatal("expected the 20ft container recommended")
	}
	if analysis.LimitingFactor != enums.LimitingFactorVolume {
		t.Fatalf("limiting factor = %q, want volume", analysis.LimitingFactor)
	}
	if analysis.EngineVersion != EngineVersion {
		t.Fatalf("engine version = %q", analysis.EngineVersion)
	}
}

func TestAnalyzeSourceIncompleteAndNoContainer(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	analysis, err := f.svc.AnalyzeSource(context.Background(), AnalysisInput{
		SourceType: SourceTypeDeliveryNote,
		SourceRef:  "DN-0002",
		Items:      []ShipmentItemInput{{ItemCode: "NO-METRIC", Qty: 1}},
	})
	if err != nil {
		t.Fatalf("AnalyzeSource: %v", err)
	}
	if analysis.Status != enums.AnalysisStatusIncomplete || analysis.MissingCount != 1 {
		t.Fatalf("status = %q missing = %d, want incomplete_data/1", analysis.Status, analysis.MissingCount)
	}

	// A load no profile can carry.
	analysis, err = f.svc.AnalyzeSource(context.Background(), AnalysisInput{
		SourceType: SourceTypeSalesOrder,
		SourceRef:  "SO-0001",
		Items:      []ShipmentItemInput{{ItemCode: "TUBE-40", Qty: 10000}},
	})
	if err != nil {
		t.Fatalf("AnalyzeSource: %v", err)
	}
	if analysis.Status != enums.AnalysisStatusNoContainer {
		t.Fatalf("status = %q, want no_container_found", analysis.Status)
	}
}

func TestCancelSourceAnalysisMarksLatest(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	for range [2]struct{}{} {
		if _, err := f.svc.AnalyzeSource(context.Background(), AnalysisInput{
			SourceType: SourceTypeDeliveryNote,
			SourceRef:  "DN-0003",
			Items:      []ShipmentItemInput{{ItemCode: "TUBE-40", Qty: 1}},
		}); err != nil {
			t.Fatalf("AnalyzeSource: %v", err)
		}
	}

	if err := f.svc.CancelSourceAnalysis(context.Background(), SourceTypeDeliveryNote, "DN-0003"); err != nil {
		t.Fatalf("CancelSourceAnalysis: %v", err)
	}
	if f.store.analyses[0].Status == enums.AnalysisStatusCancelled {
		t.Fatal("older snapshot must stay untouched")
	}
	if f.store.analyses[1].Status != enums.AnalysisStatusCancelled {
		t.Fatalf("latest snapshot status = %q, want cancelled", f.store.analyses[1].Status)
	}
}
