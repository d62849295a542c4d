package logistics

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orderlift/orderlift-backend/pkg/db/models"
	"github.com/orderlift/orderlift-backend/pkg/enums"
)

// Repository is the gorm-backed store for logistics documents.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a copy bound to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) Transaction(ctx context.Context, fn func(*Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}

func (r *Repository) CreateContainerProfile(ctx context.Context, profile *models.ContainerProfile) error {
	return r.db.WithContext(ctx).Create(profile).Error
}

func (r *Repository) GetContainerProfile(ctx context.Context, id uuid.UUID) (*models.ContainerProfile, error) {
	var profile models.ContainerProfile
	if err := r.db.WithContext(ctx).First(&profile, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *Repository) ListContainerProfiles(ctx context.Context) ([]models.ContainerProfile, error) {
	var profiles []models.ContainerProfile
	err := r.db.WithContext(ctx).
		Order("cost_rank asc, max_volume_m3 asc, max_weight_kg asc").
		Find(&profiles).Error
	return profiles, err
}

func (r *Repository) CreateShipment(ctx context.Context, shipment *models.Shipment) error {
	return r.db.WithContext(ctx).Create(shipment).Error
}

func (r *Repository) GetShipment(ctx context.Context, id uuid.UUID) (*models.Shipment, error) {
	var shipment models.Shipment
	if err := r.db.WithContext(ctx).Preload("Items").First(&shipment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &shipment, nil
}

func (r *Repository) GetShipments(ctx context.Context, ids []uuid.UUID) ([]models.Shipment, error) {
	var shipments []models.Shipment
	err := r.db.WithContext(ctx).Preload("Items").Where("id IN ?", ids).Find(&shipments).Error
	return shipments, err
}

// ListEligibleShipments returns pending, unlocked shipments matching the
// plan's company and destination filters. Empty filters match everything.
func (r *Repository) ListEligibleShipments(ctx context.Context, company, destinationZone string) ([]models.Shipment, error) {
	query := r.db.WithContext(ctx).Preload("Items").
		Where("status = ?", enums.ShipmentStatusPending).
		Where("locked_by_plan_id IS NULL")
	if company != "" {
		query = query.Where("company = ?", company)
	}
	if destinationZone != "" {
		query = query.Where("destination_zone = ?", destinationZone)
	}
	var shipments []models.Shipment
	err := query.Order("posting_date asc").Find(&shipments).Error
	return shipments, err
}

func (r *Repository) SaveShipment(ctx context.Context, shipment *models.Shipment) error {
	return r.db.WithContext(ctx).Save(shipment).Error
}

func (r *Repository) LockShipments(ctx context.Context, planID uuid.UUID, shipmentIDs []uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.Shipment{}).
		Where("id IN ?", shipmentIDs).
		Updates(map[string]any{
			"locked_by_plan_id": planID,
			"status":            enums.ShipmentStatusPlanned,
		}).Error
}

func (r *Repository) UnlockShipments(ctx context.Context, planID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.Shipment{}).
		Where("locked_by_plan_id = ?", planID).
		Updates(map[string]any{
			"locked_by_plan_id": nil,
			"status":            enums.ShipmentStatusPending,
		}).Error
}

func (r *Repository) CreatePlan(ctx context.Context, plan *models.ContainerLoadPlan) error {
	return r.db.WithContext(ctx).Create(plan).Error
}

func (r *Repository) GetPlan(ctx context.Context, id uuid.UUID) (*models.ContainerLoadPlan, error) {
	var plan models.ContainerLoadPlan
	err := r.db.WithContext(ctx).
		Preload("Shipments", func(db *gorm.DB) *gorm.DB { return db.Order("sequence asc") }).
		First(&plan, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *Repository) ListPlans(ctx context.Context) ([]models.ContainerLoadPlan, error) {
	var plans []models.ContainerLoadPlan
	err := r.db.WithContext(ctx).Order("created_at desc").Find(&plans).Error
	return plans, err
}

func (r *Repository) ListPlansByStatus(ctx context.Context, status enums.LoadPlanStatus) ([]models.ContainerLoadPlan, error) {
	var plans []models.ContainerLoadPlan
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at desc").
		Find(&plans).Error
	return plans, err
}

// ReleaseShipmentLocks is the reconcile variant of UnlockShipments: it
// reports how many rows were still pointing at the plan.
func (r *Repository) ReleaseShipmentLocks(ctx context.Context, planID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Shipment{}).
		Where("locked_by_plan_id = ?", planID).
		Updates(map[string]any{
			"locked_by_plan_id": nil,
			"status":            enums.ShipmentStatusPending,
		})
	return result.RowsAffected, result.Error
}

func (r *Repository) SavePlan(ctx context.Context, plan *models.ContainerLoadPlan) error {
	if err := r.db.WithContext(ctx).Save(plan).Error; err != nil {
		return err
	}
	for i := range plan.Shipments {
		plan.Shipments[i].PlanID = plan.ID
		if err := r.db.WithContext(ctx).Save(&plan.Shipments[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) ReplacePlanShipments(ctx context.Context, planID uuid.UUID, rows []models.LoadPlanShipment) error {
	if err := r.db.WithContext(ctx).
		Where("plan_id = ?", planID).
		Delete(&models.LoadPlanShipment{}).Error; err != nil {
		return err
	}
	for i := range rows {
		rows[i].PlanID = planID
		rows[i].Sequence = i
	}
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

func (r *Repository) CreateAnalysis(ctx context.Context, analysis *models.ShipmentAnalysis) error {
	return r.db.WithContext(ctx).Create(analysis).Error
}

// LatestAnalysis returns the most recent snapshot for one source document.
func (r *Repository) LatestAnalysis(ctx context.Context, sourceType, sourceRef string) (*models.ShipmentAnalysis, error) {
	var analysis models.ShipmentAnalysis
	err := r.db.WithContext(ctx).
		Where("source_type = ? AND source_ref = ?", sourceType, sourceRef).
		Order("created_at desc").
		First(&analysis).Error
	if err != nil {
		return nil, err
	}
	return &analysis, nil
}

func (r *Repository) ListAnalyses(ctx context.Context, sourceType, sourceRef string) ([]models.ShipmentAnalysis, error) {
	var analyses []models.ShipmentAnalysis
	err := r.db.WithContext(ctx).
		Where("source_type = ? AND source_ref = ?", sourceType, sourceRef).
		Order("created_at desc").
		Find(&analyses).Error
	return analyses, err
}

// MarkAnalysisCancelled flips one snapshot's status, the only mutation the
// audit trail permits.
func (r *Repository) MarkAnalysisCancelled(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.ShipmentAnalysis{}).
		Where("id = ?", id).
		Update("status", enums.AnalysisStatusCancelled).Error
}
