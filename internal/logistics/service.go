package logistics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
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

const (
	plannerLabel = "planner"

	// EngineVersion tags every analysis snapshot with the algorithm revision
	// that produced it.
	EngineVersion = "container-v1"

	SourceTypeLoadPlan     = "container_load_plan"
	SourceTypeDeliveryNote = "delivery_note"
	SourceTypeSalesOrder   = "sales_order"
)

// Store is the persistence surface the service needs; *Repository
// satisfies it.
type Store interface {
	CreateContainerProfile(context.Context, *models.ContainerProfile) error
	GetContainerProfile(context.Context, uuid.UUID) (*models.ContainerProfile, error)
	ListContainerProfiles(context.Context) ([]models.ContainerProfile, error)

	CreateShipment(context.Context, *models.Shipment) error
	GetShipment(context.Context, uuid.UUID) (*models.Shipment, error)
	GetShipments(context.Context, []uuid.UUID) ([]models.Shipment, error)
	ListEligibleShipments(ctx context.Context, company, destinationZone string) ([]models.Shipment, error)
	SaveShipment(context.Context, *models.Shipment) error
	LockShipments(ctx context.Context, planID uuid.UUID, shipmentIDs []uuid.UUID) error
	UnlockShipments(ctx context.Context, planID uuid.UUID) error

	CreatePlan(context.Context, *models.ContainerLoadPlan) error
	GetPlan(context.Context, uuid.UUID) (*models.ContainerLoadPlan, error)
	ListPlans(context.Context) ([]models.ContainerLoadPlan, error)
	SavePlan(context.Context, *models.ContainerLoadPlan) error
	ReplacePlanShipments(ctx context.Context, planID uuid.UUID, rows []models.LoadPlanShipment) error

	CreateAnalysis(context.Context, *models.ShipmentAnalysis) error
	LatestAnalysis(ctx context.Context, sourceType, sourceRef string) (*models.ShipmentAnalysis, error)
	ListAnalyses(ctx context.Context, sourceType, sourceRef string) ([]models.ShipmentAnalysis, error)
	MarkAnalysisCancelled(context.Context, uuid.UUID) error
}

// Catalog hydrates item weight/volume metrics in batches.
type Catalog interface {
	ItemsByCode(ctx context.Context, codes []string) (map[string]models.Item, error)
}

// Publisher emits plan lifecycle events; nil disables it.
type Publisher interface {
	PublishDomainEvent(ctx context.Context, eventType string, payload any) error
}

// Service exposes shipment analysis and container load planning.
type Service interface {
	CreateContainerProfile(ctx context.Context, profile *models.ContainerProfile) (*models.ContainerProfile, error)
	ListContainerProfiles(ctx context.Context) ([]models.ContainerProfile, error)

	CreateShipment(ctx context.Context, input ShipmentInput) (*models.Shipment, error)
	GetShipment(ctx context.Context, id uuid.UUID) (*models.Shipment, error)
	ShipmentMetrics(ctx context.Context, shipment *models.Shipment) (Metrics, error)

	CreatePlan(ctx context.Context, input PlanInput) (*models.ContainerLoadPlan, error)
	GetPlan(ctx context.Context, id uuid.UUID) (*models.ContainerLoadPlan, error)
	ListPlans(ctx context.Context) ([]models.ContainerLoadPlan, error)
	SetPlanShipments(ctx context.Context, planID uuid.UUID, shipmentIDs []uuid.UUID) (*models.ContainerLoadPlan, error)
	RecalculatePlan(ctx context.Context, planID uuid.UUID) (*models.ContainerLoadPlan, error)
	Suggest(ctx context.Context, planID uuid.UUID) (*Suggestion, error)
	SubmitPlan(ctx context.Context, planID uuid.UUID) (*models.ContainerLoadPlan, error)
	CancelPlan(ctx context.Context, planID uuid.UUID) (*models.ContainerLoadPlan, error)

	AnalyzeSource(ctx context.Context, input AnalysisInput) (*models.ShipmentAnalysis, error)
	CancelSourceAnalysis(ctx context.Context, sourceType, sourceRef string) error
	ListAnalyses(ctx context.Context, sourceType, sourceRef string) ([]models.ShipmentAnalysis, error)
}

// ShipmentInput is the validated payload to register a shipment.
type ShipmentInput struct {
	Reference       string
	Customer        string
	Company         string
	DestinationZone string
	PostingDate     time.Time
	Items           []ShipmentItemInput
}

type ShipmentItemInput struct {
	ItemCode string
	Qty      float64
}

// PlanInput creates an empty draft plan bound to one container profile.
type PlanInput struct {
	Name               string
	Company            string
	DestinationZone    string
	ContainerProfileID uuid.UUID
}

// AnalysisInput describes one external document to analyze: a delivery note
// or a sales-order forecast.
type AnalysisInput struct {
	SourceType      string
	SourceRef       string
	Customer        string
	DestinationZone string
	Items           []ShipmentItemInput
}

// Metrics is the computed weight/volume footprint of one item set.
type Metrics struct {
	WeightKg     float64
	VolumeM3     float64
	MissingItems types.Warnings
}

// Incomplete reports whether any item lacked the data needed for packing.
func (m Metrics) Incomplete() bool { return len(m.MissingItems) > 0 }

type service struct {
	repo      Store
	catalog   Catalog
	cfg       config.LogisticsConfig
	logg      *logger.Logger
	metrics   *metrics.EngineMetrics
	publisher Publisher
}

// NewService builds the logistics service. metrics and publisher may be nil.
func NewService(
	repo Store,
	catalog Catalog,
	cfg config.LogisticsConfig,
	logg *logger.Logger,
	engineMetrics *metrics.EngineMetrics,
	publisher Publisher,
) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logistics repository is required")
	}
	if catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "catalog is required")
	}
	return &service{
		repo:      repo,
		catalog:   catalog,
		cfg:       cfg,
		logg:      logg,
		metrics:   engineMetrics,
		publisher: publisher,
	}, nil
}

func (s *service) CreateContainerProfile(ctx context.Context, profile *models.ContainerProfile) (*models.ContainerProfile, error) {
	if profile.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "container profile name is required")
	}
	if profile.MaxWeightKg <= 0 || profile.MaxVolumeM3 <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "container capacity must be positive on both dimensions")
	}
	if profile.CostRank == 0 {
		profile.CostRank = 100
	}
	profile.IsActive = true
	if err := s.repo.CreateContainerProfile(ctx, profile); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Newf(pkgerrors.CodeConflict, "container profile %q already exists", profile.Name)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating container profile")
	}
	return profile, nil
}

func (s *service) ListContainerProfiles(ctx context.Context) ([]models.ContainerProfile, error) {
	profiles, err := s.repo.ListContainerProfiles(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing container profiles")
	}
	return profiles, nil
}

func (s *service) CreateShipment(ctx context.Context, input ShipmentInput) (*models.Shipment, error) {
	if input.Reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipment reference is required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipment needs at least one item")
	}
	items := make([]models.ShipmentItem, 0, len(input.Items))
	for i, item := range input.Items {
		if item.ItemCode == "" || item.Qty <= 0 {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "shipment item %d is invalid", i)
		}
		items = append(items, models.ShipmentItem{ItemCode: item.ItemCode, Qty: item.Qty})
	}
	postingDate := input.PostingDate
	if postingDate.IsZero() {
		postingDate = time.Now().UTC()
	}
	shipment := &models.Shipment{
		Reference:       input.Reference,
		Customer:        input.Customer,
		Company:         input.Company,
		DestinationZone: input.DestinationZone,
		PostingDate:     postingDate,
		Status:          enums.ShipmentStatusPending,
		Items:           items,
	}
	if err := s.repo.CreateShipment(ctx, shipment); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Newf(pkgerrors.CodeConflict, "shipment %q already exists", shipment.Reference)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating shipment")
	}
	return shipment, nil
}

func (s *service) GetShipment(ctx context.Context, id uuid.UUID) (*models.Shipment, error) {
	shipment, err := s.repo.GetShipment(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shipment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading shipment")
	}
	return shipment, nil
}

// ShipmentMetrics totals the shipment's weight and volume from catalog item
// metrics. Volume falls back to L×W×H in centimeters when the unit volume
// is not maintained; items with neither are reported missing.
func (s *service) ShipmentMetrics(ctx context.Context, shipment *models.Shipment) (Metrics, error) {
	return s.itemMetrics(ctx, shipmentItemInputs(shipment.Items))
}

func (s *service) itemMetrics(ctx context.Context, inputs []ShipmentItemInput) (Metrics, error) {
	codes := make([]string, 0, len(inputs))
	for _, input := range inputs {
		codes = append(codes, input.ItemCode)
	}
	items, err := s.catalog.ItemsByCode(ctx, codes)
	if err != nil {
		return Metrics{}, err
	}

	m := Metrics{}
	for _, input := range inputs {
		item, ok := items[input.ItemCode]
		if !ok {
			m.MissingItems = append(m.MissingItems, fmt.Sprintf("item %s is not in the catalog", input.ItemCode))
			continue
		}
		unitVolume := item.UnitVolumeM3
		if unitVolume <= 0 {
			unitVolume = item.LengthCm * item.WidthCm * item.HeightCm / 1_000_000
		}
		if item.UnitWeightKg <= 0 || unitVolume <= 0 {
			m.MissingItems = append(m.MissingItems, fmt.Sprintf("item %s has no usable weight/volume", input.ItemCode))
			continue
		}
		m.WeightKg += item.UnitWeightKg * input.Qty
		m.VolumeM3 += unitVolume * input.Qty
	}
	m.WeightKg = Round3(m.WeightKg)
	m.VolumeM3 = Round3(m.VolumeM3)
	return m, nil
}

func shipmentItemInputs(items []models.ShipmentItem) []ShipmentItemInput {
	out := make([]ShipmentItemInput, 0, len(items))
	for _, item := range items {
		out = append(out, ShipmentItemInput{ItemCode: item.ItemCode, Qty: item.Qty})
	}
	return out
}

func (s *service) CreatePlan(ctx context.Context, input PlanInput) (*models.ContainerLoadPlan, error) {
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan name is required")
	}
	if _, err := s.containerProfile(ctx, input.ContainerProfileID); err != nil {
		return nil, err
	}
	profileID := input.ContainerProfileID
	plan := &models.ContainerLoadPlan{
		Name:               input.Name,
		Company:            input.Company,
		DestinationZone:    input.DestinationZone,
		ContainerProfileID: &profileID,
		Status:             enums.LoadPlanStatusDraft,
		AnalysisStatus:     enums.AnalysisStatusOK,
	}
	if err := s.repo.CreatePlan(ctx, plan); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Newf(pkgerrors.CodeConflict, "plan %q already exists", plan.Name)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating plan")
	}
	return plan, nil
}

func (s *service) GetPlan(ctx context.Context, id uuid.UUID) (*models.ContainerLoadPlan, error) {
	plan, err := s.repo.GetPlan(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "load plan not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading plan")
	}
	return plan, nil
}

func (s *service) ListPlans(ctx context.Context) ([]models.ContainerLoadPlan, error) {
	plans, err := s.repo.ListPlans(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing plans")
	}
	return plans, nil
}

// SetPlanShipments replaces the plan's shipment rows. A shipment referenced
// twice is rejected outright, and shipments locked by another active plan
// cannot be admitted.
func (s *service) SetPlanShipments(ctx context.Context, planID uuid.UUID, shipmentIDs []uuid.UUID) (*models.ContainerLoadPlan, error) {
	plan, err := s.mutablePlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	seen := map[uuid.UUID]struct{}{}
	for _, id := range shipmentIDs {
		if _, dup := seen[id]; dup {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "shipment %s is referenced twice", id)
		}
		seen[id] = struct{}{}
	}

	shipments, err := s.repo.GetShipments(ctx, shipmentIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading shipments")
	}
	if len(shipments) != len(shipmentIDs) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "one or more shipments do not exist")
	}

	rows := make([]models.LoadPlanShipment, 0, len(shipments))
	byID := map[uuid.UUID]models.Shipment{}
	for _, shipment := range shipments {
		if shipment.LockedByPlanID != nil && *shipment.LockedByPlanID != plan.ID {
			return nil, pkgerrors.Newf(pkgerrors.CodeConflict, "shipment %s is locked by another plan", shipment.Reference)
		}
		byID[shipment.ID] = shipment
	}
	for i, id := range shipmentIDs {
		shipment := byID[id]
		m, err := s.ShipmentMetrics(ctx, &shipment)
		if err != nil {
			return nil, err
		}
		rows = append(rows, models.LoadPlanShipment{
			ShipmentID: shipment.ID,
			Sequence:   i,
			Selected:   true,
			Customer:   shipment.Customer,
			WeightKg:   m.WeightKg,
			VolumeM3:   m.VolumeM3,
		})
	}

	if err := s.repo.ReplacePlanShipments(ctx, plan.ID, rows); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "replacing plan shipments")
	}
	return s.RecalculatePlan(ctx, plan.ID)
}

// RecalculatePlan recomputes totals over the selected rows, utilization
// against the assigned container and the limiting factor. An over-capacity
// result blocks the save.
func (s *service) RecalculatePlan(ctx context.Context, planID uuid.UUID) (*models.ContainerLoadPlan, error) {
	started := time.Now()
	plan, err := s.recalculatePlan(ctx, planID)
	if s.metrics != nil {
		s.metrics.ObserveDuration(plannerLabel, time.Since(started))
		if err != nil {
			s.metrics.IncFailure(plannerLabel)
		} else {
			s.metrics.IncSuccess(plannerLabel)
		}
	}
	return plan, err
}

func (s *service) recalculatePlan(ctx context.Context, planID uuid.UUID) (*models.ContainerLoadPlan, error) {
	plan, err := s.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if s.logg != nil {
		ctx = s.logg.WithPlanID(ctx, plan.ID.String())
	}
	profile, err := s.planProfile(ctx, plan)
	if err != nil {
		return nil, err
	}

	totalWeight, totalVolume := 0.0, 0.0
	incomplete := false
	for _, row := range plan.Shipments {
		if !row.Selected {
			continue
		}
		if row.WeightKg <= 0 || row.VolumeM3 <= 0 {
			incomplete = true
		}
		totalWeight += row.WeightKg
		totalVolume += row.VolumeM3
	}

	plan.TotalWeightKg = Round3(totalWeight)
	plan.TotalVolumeM3 = Round3(totalVolume)
	utilization := ComputeUtilization(totalWeight, totalVolume, profile.MaxWeightKg, profile.MaxVolumeM3)
	plan.WeightUtilization = utilization.WeightPct
	plan.VolumeUtilization = utilization.VolumePct
	plan.LimitingFactor = DetectLimitingFactor(utilization.WeightPct, utilization.VolumePct, s.cfg.LimitingFactorEpsilon)

	switch {
	case totalWeight > profile.MaxWeightKg || totalVolume > profile.MaxVolumeM3:
		plan.AnalysisStatus = enums.AnalysisStatusOverCapacity
	case incomplete:
		plan.AnalysisStatus = enums.AnalysisStatusIncomplete
	default:
		plan.AnalysisStatus = enums.AnalysisStatusOK
	}

	if plan.AnalysisStatus == enums.AnalysisStatusOverCapacity {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict,
			"plan exceeds container capacity: %.3f/%.3f kg, %.3f/%.3f m3",
			totalWeight, profile.MaxWeightKg, totalVolume, profile.MaxVolumeM3)
	}

	if err := s.repo.SavePlan(ctx, plan); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving plan")
	}
	if s.logg != nil {
		s.logg.Info(ctx, fmt.Sprintf("load plan recomputed: %.1f%% weight, %.1f%% volume", plan.WeightUtilization, plan.VolumeUtilization))
	}
	return plan, nil
}

// Suggest runs the greedy packer over eligible shipments against the plan's
// remaining capacity. It only proposes; nothing is admitted until
// SetPlanShipments.
func (s *service) Suggest(ctx context.Context, planID uuid.UUID) (*Suggestion, error) {
	plan, err := s.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	profile, err := s.planProfile(ctx, plan)
	if err != nil {
		return nil, err
	}

	usedWeight, usedVolume := 0.0, 0.0
	admitted := map[uuid.UUID]struct{}{}
	for _, row := range plan.Shipments {
		if !row.Selected {
			continue
		}
		admitted[row.ShipmentID] = struct{}{}
		usedWeight += row.WeightKg
		usedVolume += row.VolumeM3
	}
	remainingWeight := profile.MaxWeightKg - usedWeight
	remainingVolume := profile.MaxVolumeM3 - usedVolume

	pool, err := s.repo.ListEligibleShipments(ctx, plan.Company, plan.DestinationZone)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing eligible shipments")
	}

	candidates := make([]Candidate, 0, len(pool))
	for i := range pool {
		shipment := &pool[i]
		if _, dup := admitted[shipment.ID]; dup {
			continue
		}
		m, err := s.ShipmentMetrics(ctx, shipment)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, Candidate{
			ShipmentID: shipment.ID,
			Reference:  shipment.Reference,
			Customer:   shipment.Customer,
			WeightKg:   m.WeightKg,
			VolumeM3:   m.VolumeM3,
			Incomplete: m.Incomplete(),
		})
	}

	suggestion := SuggestShipments(candidates, remainingWeight, remainingVolume)
	return &suggestion, nil
}

// SubmitPlan moves a draft to loading: shipments are locked to the plan and
// an analysis snapshot is written.
func (s *service) SubmitPlan(ctx context.Context, planID uuid.UUID) (*models.ContainerLoadPlan, error) {
	plan, err := s.RecalculatePlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan.Status != enums.LoadPlanStatusDraft {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "plan is %s, only drafts can be submitted", plan.Status)
	}
	if len(plan.Shipments) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "plan has no shipments to submit")
	}

	shipmentIDs := make([]uuid.UUID, 0, len(plan.Shipments))
	for _, row := range plan.Shipments {
		if row.Selected {
			shipmentIDs = append(shipmentIDs, row.ShipmentID)
		}
	}
	if err := s.repo.LockShipments(ctx, plan.ID, shipmentIDs); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "locking shipments")
	}

	plan.Status = enums.LoadPlanStatusLoading
	if err := s.repo.SavePlan(ctx, plan); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving plan")
	}

	if err := s.snapshotPlan(ctx, plan); err != nil {
		return nil, err
	}
	s.publishLifecycle(ctx, plan, shipmentIDs)
	return plan, nil
}

// CancelPlan unlocks the shipments, cancels the plan and flips its latest
// analysis snapshot to cancelled.
func (s *service) CancelPlan(ctx context.Context, planID uuid.UUID) (*models.ContainerLoadPlan, error) {
	plan, err := s.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan.Status == enums.LoadPlanStatusShipped {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "a shipped plan cannot be cancelled")
	}
	if err := s.repo.UnlockShipments(ctx, plan.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unlocking shipments")
	}
	plan.Status = enums.LoadPlanStatusCancelled
	if err := s.repo.SavePlan(ctx, plan); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving plan")
	}
	if err := s.CancelSourceAnalysis(ctx, SourceTypeLoadPlan, plan.Name); err != nil {
		return nil, err
	}
	s.publishLifecycle(ctx, plan, nil)
	return plan, nil
}

// AnalyzeSource computes totals for an external document's items,
// recommends the cheapest fitting container and persists an immutable
// snapshot of the outcome.
func (s *service) AnalyzeSource(ctx context.Context, input AnalysisInput) (*models.ShipmentAnalysis, error) {
	if input.SourceType == "" || input.SourceRef == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "analysis source type and reference are required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "analysis needs at least one item")
	}

	m, err := s.itemMetrics(ctx, input.Items)
	if err != nil {
		return nil, err
	}

	analysis := &models.ShipmentAnalysis{
		SourceType:      input.SourceType,
		SourceRef:       input.SourceRef,
		Customer:        input.Customer,
		DestinationZone: input.DestinationZone,
		TotalWeightKg:   m.WeightKg,
		TotalVolumeM3:   m.VolumeM3,
		MissingItems:    m.MissingItems,
		MissingCount:    len(m.MissingItems),
		EngineVersion:   EngineVersion,
	}

	switch {
	case m.Incomplete():
		analysis.Status = enums.AnalysisStatusIncomplete
	default:
		profiles, err := s.repo.ListContainerProfiles(ctx)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing container profiles")
		}
		recommended := RecommendContainer(profiles, m.WeightKg, m.VolumeM3)
		if recommended == nil {
			analysis.Status = enums.AnalysisStatusNoContainer
			break
		}
		analysis.Status = enums.AnalysisStatusOK
		id := recommended.ID
		analysis.RecommendedContainerID = &id
		utilization := ComputeUtilization(m.WeightKg, m.VolumeM3, recommended.MaxWeightKg, recommended.MaxVolumeM3)
		analysis.WeightUtilization = utilization.WeightPct
		analysis.VolumeUtilization = utilization.VolumePct
		analysis.LimitingFactor = DetectLimitingFactor(utilization.WeightPct, utilization.VolumePct, s.cfg.LimitingFactorEpsilon)
	}

	if err := s.repo.CreateAnalysis(ctx, analysis); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating analysis")
	}
	return analysis, nil
}

// CancelSourceAnalysis marks the newest snapshot for the source cancelled.
// A source with no snapshots is a no-op.
func (s *service) CancelSourceAnalysis(ctx context.Context, sourceType, sourceRef string) error {
	latest, err := s.repo.LatestAnalysis(ctx, sourceType, sourceRef)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading latest analysis")
	}
	if err := s.repo.MarkAnalysisCancelled(ctx, latest.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancelling analysis")
	}
	return nil
}

func (s *service) ListAnalyses(ctx context.Context, sourceType, sourceRef string) ([]models.ShipmentAnalysis, error) {
	analyses, err := s.repo.ListAnalyses(ctx, sourceType, sourceRef)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing analyses")
	}
	return analyses, nil
}

func (s *service) snapshotPlan(ctx context.Context, plan *models.ContainerLoadPlan) error {
	planID := plan.ID
	analysis := &models.ShipmentAnalysis{
		SourceType:        SourceTypeLoadPlan,
		SourceRef:         plan.Name,
		DestinationZone:   plan.DestinationZone,
		TotalWeightKg:     plan.TotalWeightKg,
		TotalVolumeM3:     plan.TotalVolumeM3,
		Status:            plan.AnalysisStatus,
		WeightUtilization: plan.WeightUtilization,
		VolumeUtilization: plan.VolumeUtilization,
		LimitingFactor:    plan.LimitingFactor,
		EngineVersion:     EngineVersion,
		PlanID:            &planID,
	}
	analysis.RecommendedContainerID = plan.ContainerProfileID
	if err := s.repo.CreateAnalysis(ctx, analysis); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating plan snapshot")
	}
	return nil
}

func (s *service) publishLifecycle(ctx context.Context, plan *models.ContainerLoadPlan, shipmentIDs []uuid.UUID) {
	if s.publisher == nil {
		return
	}
	ids := make([]string, 0, len(shipmentIDs))
	for _, id := range shipmentIDs {
		ids = append(ids, id.String())
	}
	payload := map[string]any{
		"plan_id":      plan.ID.String(),
		"status":       string(plan.Status),
		"shipment_ids": ids,
	}
	eventType := enums.EventPlanSubmitted
	if plan.Status == enums.LoadPlanStatusCancelled {
		eventType = enums.EventPlanCancelled
	}
	if err := s.publisher.PublishDomainEvent(ctx, string(eventType), payload); err != nil && s.logg != nil {
		s.logg.Warn(ctx, "publishing plan lifecycle event failed: "+err.Error())
	}
}

func (s *service) mutablePlan(ctx context.Context, planID uuid.UUID) (*models.ContainerLoadPlan, error) {
	plan, err := s.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan.Status != enums.LoadPlanStatusDraft {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "plan is %s and can no longer be edited", plan.Status)
	}
	return plan, nil
}

func (s *service) planProfile(ctx context.Context, plan *models.ContainerLoadPlan) (*models.ContainerProfile, error) {
	if plan.ContainerProfileID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "plan has no container profile assigned")
	}
	return s.containerProfile(ctx, *plan.ContainerProfileID)
}

func (s *service) containerProfile(ctx context.Context, id uuid.UUID) (*models.ContainerProfile, error) {
	profile, err := s.repo.GetContainerProfile(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "container profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading container profile")
	}
	return profile, nil
}
