package policies

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orderlift/orderlift-backend/pkg/db/models"
)

// Repository wires policy persistence for margin, customs and scenario
// assignment policies.
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

// CreateMarginPolicy persists the policy together with its rules.
func (r *Repository) CreateMarginPolicy(ctx context.Context, policy *models.MarginPolicy) error {
	return r.db.WithContext(ctx).Create(policy).Error
}

// GetMarginPolicy loads the policy with rules preloaded.
func (r *Repository) GetMarginPolicy(ctx context.Context, id uuid.UUID) (*models.MarginPolicy, error) {
	var policy models.MarginPolicy
	if err := r.db.WithContext(ctx).Preload("Rules").First(&policy, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &policy, nil
}

// ListMarginPolicies returns all policies, rules preloaded.
func (r *Repository) ListMarginPolicies(ctx context.Context) ([]models.MarginPolicy, error) {
	var policies []models.MarginPolicy
	if err := r.db.WithContext(ctx).Preload("Rules").Order("name").Find(&policies).Error; err != nil {
		return nil, err
	}
	return policies, nil
}

// ReplaceMarginRules swaps the rule set of an existing policy.
func (r *Repository) ReplaceMarginRules(ctx context.Context, policyID uuid.UUID, rules []models.MarginRule) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("policy_id = ?", policyID).Delete(&models.MarginRule{}).Error; err != nil {
		return err
	}
	if len(rules) == 0 {
		return nil
	}
	return tx.Create(&rules).Error
}

// CreateCustomsPolicy persists the policy together with its rules.
func (r *Repository) CreateCustomsPolicy(ctx context.Context, policy *models.CustomsPolicy) error {
	return r.db.WithContext(ctx).Create(policy).Error
}

// GetCustomsPolicy loads the policy with rules preloaded.
func (r *Repository) GetCustomsPolicy(ctx context.Context, id uuid.UUID) (*models.CustomsPolicy, error) {
	var policy models.CustomsPolicy
	if err := r.db.WithContext(ctx).Preload("Rules").First(&policy, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &policy, nil
}

// ListCustomsPolicies returns all policies, rules preloaded.
func (r *Repository) ListCustomsPolicies(ctx context.Context) ([]models.CustomsPolicy, error) {
	var policies []models.CustomsPolicy
	if err := r.db.WithContext(ctx).Preload("Rules").Order("name").Find(&policies).Error; err != nil {
		return nil, err
	}
	return policies, nil
}

// ReplaceCustomsRules swaps the rule set of an existing policy.
func (r *Repository) ReplaceCustomsRules(ctx context.Context, policyID uuid.UUID, rules []models.CustomsRule) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("policy_id = ?", policyID).Delete(&models.CustomsRule{}).Error; err != nil {
		return err
	}
	if len(rules) == 0 {
		return nil
	}
	return tx.Create(&rules).Error
}

// CreateScenarioPolicy persists the policy together with its rules.
func (r *Repository) CreateScenarioPolicy(ctx context.Context, policy *models.ScenarioPolicy) error {
	return r.db.WithContext(ctx).Create(policy).Error
}

// GetScenarioPolicy loads the policy with rules preloaded.
func (r *Repository) GetScenarioPolicy(ctx context.Context, id uuid.UUID) (*models.ScenarioPolicy, error) {
	var policy models.ScenarioPolicy
	if err := r.db.WithContext(ctx).Preload("Rules").First(&policy, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &policy, nil
}

// ListScenarioPolicies returns all policies, rules preloaded.
func (r *Repository) ListScenarioPolicies(ctx context.Context) ([]models.ScenarioPolicy, error) {
	var policies []models.ScenarioPolicy
	if err := r.db.WithContext(ctx).Preload("Rules").Order("name").Find(&policies).Error; err != nil {
		return nil, err
	}
	return policies, nil
}

// ReplaceScenarioRules swaps the rule set of an existing policy.
func (r *Repository) ReplaceScenarioRules(ctx context.Context, policyID uuid.UUID, rules []models.ScenarioRule) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("policy_id = ?", policyID).Delete(&models.ScenarioRule{}).Error; err != nil {
		return err
	}
	if len(rules) == 0 {
		return nil
	}
	return tx.Create(&rules).Error
}
