package scenarios

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/orderlift/orderlift-backend/pkg/db/models"
	"github.com/orderlift/orderlift-backend/pkg/enums"
	pkgerrors "github.com/orderlift/orderlift-backend/pkg/errors"
)

var minPercentage = decimal.NewFromInt(-100)

// Store is the persistence surface the service needs; *Repository
// satisfies it.
type Store interface {
	Create(context.Context, *models.PricingScenario) error
	Get(context.Context, uuid.UUID) (*models.PricingScenario, error)
	GetMany(context.Context, []uuid.UUID) ([]models.PricingScenario, error)
	List(context.Context) ([]models.PricingScenario, error)
	ReplaceTemplates(context.Context, uuid.UUID, []models.ExpenseTemplate) error
}

// Service exposes pricing scenario management.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.PricingScenario, error)
	Get(ctx context.Context, id uuid.UUID) (*models.PricingScenario, error)
	GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.PricingScenario, error)
	List(ctx context.Context) ([]models.PricingScenario, error)
	UpdateTemplates(ctx context.Context, id uuid.UUID, templates []models.ExpenseTemplate) (*models.PricingScenario, error)
}

// CreateInput is the validated payload to create a scenario.
type CreateInput struct {
	Name               string
	BuyingPriceList    string
	BenchmarkPriceList string
	Templates          []models.ExpenseTemplate
	SeedDefaults       bool
}

type service struct {
	repo Store
}

// NewService builds the scenario service.
func NewService(repo Store) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "scenarios repository is required")
	}
	return &service{repo: repo}, nil
}

// DefaultTemplates is the expense stack seeded onto new scenarios that ask
// for defaults: freight off the base price, a flat handling charge, then
// the commercial margin on the running total.
func DefaultTemplates() []models.ExpenseTemplate {
	return []models.ExpenseTemplate{
		{
			Label:     "Freight",
			Type:      enums.ExpenseTypePercentage,
			AppliesTo: enums.ExpenseBasisBasePrice,
			Scope:     enums.ExpenseScopePerUnit,
			Value:     decimal.NewFromInt(8),
			Sequence:  10,
			IsActive:  true,
		},
		{
			Label:     "Handling",
			Type:      enums.ExpenseTypeFixed,
			AppliesTo: enums.ExpenseBasisRunningTotal,
			Scope:     enums.ExpenseScopePerUnit,
			Value:     decimal.NewFromInt(12),
			Sequence:  20,
			IsActive:  true,
		},
		{
			Label:     "Commercial Margin",
			Type:      enums.ExpenseTypePercentage,
			AppliesTo: enums.ExpenseBasisRunningTotal,
			Scope:     enums.ExpenseScopePerUnit,
			Value:     decimal.NewFromInt(15),
			Sequence:  30,
			IsActive:  true,
		},
	}
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.PricingScenario, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "scenario name is required")
	}

	templates := input.Templates
	if len(templates) == 0 && input.SeedDefaults {
		templates = DefaultTemplates()
	}
	if err := validateTemplates(templates); err != nil {
		return nil, err
	}

	scenario := &models.PricingScenario{
		Name:     name,
		IsActive: true,
		Expenses: templates,
	}
	if list := strings.TrimSpace(input.BuyingPriceList); list != "" {
		scenario.BuyingPriceList = list
	} else {
		scenario.BuyingPriceList = "Buying"
	}
	if list := strings.TrimSpace(input.BenchmarkPriceList); list != "" {
		scenario.BenchmarkPriceList = list
	} else {
		scenario.BenchmarkPriceList = "Benchmark Selling"
	}

	if err := s.repo.Create(ctx, scenario); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating scenario")
	}
	return scenario, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.PricingScenario, error) {
	scenario, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "scenario not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading scenario")
	}
	return scenario, nil
}

func (s *service) GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.PricingScenario, error) {
	distinct := make([]uuid.UUID, 0, len(ids))
	seen := map[uuid.UUID]struct{}{}
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		distinct = append(distinct, id)
	}

	scenarios, err := s.repo.GetMany(ctx, distinct)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading scenarios")
	}
	out := make(map[uuid.UUID]models.PricingScenario, len(scenarios))
	for _, scenario := range scenarios {
		out[scenario.ID] = scenario
	}
	return out, nil
}

func (s *service) List(ctx context.Context) ([]models.PricingScenario, error) {
	scenarios, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing scenarios")
	}
	return scenarios, nil
}

func (s *service) UpdateTemplates(ctx context.Context, id uuid.UUID, templates []models.ExpenseTemplate) (*models.PricingScenario, error) {
	if err := validateTemplates(templates); err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	for i := range templates {
		templates[i].ScenarioID = id
	}
	if err := s.repo.ReplaceTemplates(ctx, id, templates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "replacing templates")
	}
	return s.Get(ctx, id)
}

func validateTemplates(templates []models.ExpenseTemplate) error {
	labels := map[string]int{}
	for i, tpl := range templates {
		label := strings.ToLower(strings.TrimSpace(tpl.Label))
		if label == "" {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "template %d has no label", i)
		}
		if prev, dup := labels[label]; dup {
			return pkgerrors.Newf(pkgerrors.CodeValidation,
				"templates %d and %d share the label %q", prev, i, tpl.Label)
		}
		labels[label] = i

		if !tpl.Type.IsValid() {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "template %q has invalid type %q", tpl.Label, tpl.Type)
		}
		if tpl.AppliesTo != "" && !tpl.AppliesTo.IsValid() {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "template %q has invalid basis %q", tpl.Label, tpl.AppliesTo)
		}
		if tpl.Scope != "" && !tpl.Scope.IsValid() {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "template %q has invalid scope %q", tpl.Label, tpl.Scope)
		}

		if tpl.Type == enums.ExpenseTypePercentage {
			if tpl.Scope != "" && tpl.Scope != enums.ExpenseScopePerUnit {
				return pkgerrors.Newf(pkgerrors.CodeValidation,
					"percentage template %q must be scoped Per Unit", tpl.Label)
			}
			if tpl.Value.LessThan(minPercentage) {
				return pkgerrors.Newf(pkgerrors.CodeValidation,
					"percentage template %q cannot discount below -100%%", tpl.Label)
			}
		}
	}
	return nil
}
