package scenarios

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orderlift/orderlift-backend/pkg/db/models"
)

// Repository wires pricing scenario persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create persists the scenario together with its expense templates.
func (r *Repository) Create(ctx context.Context, scenario *models.PricingScenario) error {
	return r.db.WithContext(ctx).Create(scenario).Error
}

// Get loads the scenario with templates preloaded.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.PricingScenario, error) {
	var scenario models.PricingScenario
	if err := r.db.WithContext(ctx).Preload("Expenses").First(&scenario, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &scenario, nil
}

// GetMany loads several scenarios with templates in one round trip.
func (r *Repository) GetMany(ctx context.Context, ids []uuid.UUID) ([]models.PricingScenario, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var scenarios []models.PricingScenario
	if err := r.db.WithContext(ctx).Preload("Expenses").Where("id IN ?", ids).Find(&scenarios).Error; err != nil {
		return nil, err
	}
	return scenarios, nil
}

// List returns all scenarios ordered by name, templates preloaded.
func (r *Repository) List(ctx context.Context) ([]models.PricingScenario, error) {
	var scenarios []models.PricingScenario
	if err := r.db.WithContext(ctx).Preload("Expenses").Order("name").Find(&scenarios).Error; err != nil {
		return nil, err
	}
	return scenarios, nil
}

// ReplaceTemplates swaps the expense template set of an existing scenario.
func (r *Repository) ReplaceTemplates(ctx context.Context, scenarioID uuid.UUID, templates []models.ExpenseTemplate) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("scenario_id = ?", scenarioID).Delete(&models.ExpenseTemplate{}).Error; err != nil {
		return err
	}
	if len(templates) == 0 {
		return nil
	}
	return tx.Create(&templates).Error
}
