package policies

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/orderlift/orderlift-backend/pkg/db/models"
	pkgerrors "github.com/orderlift/orderlift-backend/pkg/errors"
)

type stubStore struct {
	marginPolicies   map[uuid.UUID]*models.MarginPolicy
	customsPolicies  map[uuid.UUID]*models.CustomsPolicy
	scenarioPolicies map[uuid.UUID]*models.ScenarioPolicy
}

func newStubStore() *stubStore {
	return &stubStore{
		marginPolicies:   map[uuid.UUID]*models.MarginPolicy{},
		customsPolicies:  map[uuid.UUID]*models.CustomsPolicy{},
		scenarioPolicies: map[uuid.UUID]*models.ScenarioPolicy{},
	}
}

func (s *stubStore) CreateMarginPolicy(_ context.Context, p *models.MarginPolicy) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	s.marginPolicies[p.ID] = p
	return nil
}

func (s *stubStore) GetMarginPolicy(_ context.Context, id uuid.UUID) (*models.MarginPolicy, error) {
	p, ok := s.marginPolicies[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

func (s *stubStore) ListMarginPolicies(_ context.Context) ([]models.MarginPolicy, error) {
	out := []models.MarginPolicy{}
	for _, p := range s.marginPolicies {
		out = append(out, *p)
	}
	return out, nil
}

func (s *stubStore) ReplaceMarginRules(_ context.Context, id uuid.UUID, rules []models.MarginRule) error {
	s.marginPolicies[id].Rules = rules
	return nil
}

func (s *stubStore) CreateCustomsPolicy(_ context.Context, p *models.CustomsPolicy) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	s.customsPolicies[p.ID] = p
	return nil
}

func (s *stubStore) GetCustomsPolicy(_ context.Context, id uuid.UUID) (*models.CustomsPolicy, error) {
	p, ok := s.customsPolicies[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

func (s *stubStore) ListCustomsPolicies(_ context.Context) ([]models.CustomsPolicy, error) {
	out := []models.CustomsPolicy{}
	for _, p := range s.customsPolicies {
		out = append(out, *p)
	}
	return out, nil
}

func (s *stubStore) ReplaceCustomsRules(_ context.Context, id uuid.UUID, rules []models.CustomsRule) error {
	s.customsPolicies[id].Rules = rules
	return nil
}

func (s *stubStore) CreateScenarioPolicy(_ context.Context, p *models.ScenarioPolicy) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	s.scenarioPolicies[p.ID] = p
	return nil
}

func (s *stubStore) GetScenarioPolicy(_ context.Context, id uuid.UUID) (*models.ScenarioPolicy, error) {
	p, ok := s.scenarioPolicies[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

func (s *stubStore) ListScenarioPolicies(_ context.Context) ([]models.ScenarioPolicy, error) {
	out := []models.ScenarioPolicy{}
	for _, p := range s.scenarioPolicies {
		out = append(out, *p)
	}
	return out, nil
}

func (s *stubStore) ReplaceScenarioRules(_ context.Context, id uuid.UUID, rules []models.ScenarioRule) error {
	s.scenarioPolicies[id].Rules = rules
	return nil
}

func mustService(t *testing.T, store Store) Service {
	t.Helper()
	svc, err := NewService(store)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestCreateMarginPolicy_RejectsDuplicateSignature(t *testing.T) {
	t.Parallel()

	svc := mustService(t, newStubStore())
	attrs := models.RuleAttributes{Tier: "Gold"}
	rules := []models.MarginRule{
		marginRule(attrs, 10, 10, 90, 0),
		marginRule(attrs, 20, 10, 90, 1),
	}

	_, err := svc.CreateMarginPolicy(context.Background(), "EU Margins", rules)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateMarginPolicy_AllowsSameAttributesDifferentPriority(t *testing.T) {
	t.Parallel()

	svc := mustService(t, newStubStore())
	attrs := models.RuleAttributes{Tier: "Gold"}
	rules := []models.MarginRule{
		marginRule(attrs, 10, 10, 90, 0),
		marginRule(attrs, 20, 20, 90, 1),
	}

	policy, err := svc.CreateMarginPolicy(context.Background(), "EU Margins", rules)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(policy.Rules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(policy.Rules))
	}
}

func TestCreateMarginPolicy_RequiresActiveRule(t *testing.T) {
	t.Parallel()

	svc := mustService(t, newStubStore())
	inactive := marginRule(models.RuleAttributes{}, 10, 10, 90, 0)
	inactive.IsActive = false

	_, err := svc.CreateMarginPolicy(context.Background(), "Empty", []models.MarginRule{inactive})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConfiguration {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestCreateCustomsPolicy_RejectsNegativeRates(t *testing.T) {
	t.Parallel()

	svc := mustService(t, newStubStore())
	rules := []models.CustomsRule{{
		RuleAttributes: models.RuleAttributes{Material: "STEEL"},
		RatePerKg:      decimal.NewFromFloat(-1),
		RatePercent:    decimal.NewFromInt(5),
		IsActive:       true,
	}}

	_, err := svc.CreateCustomsPolicy(context.Background(), "Import Duties", rules)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestResolveMargin_PicksMostSpecificRule(t *testing.T) {
	t.Parallel()

	store := newStubStore()
	svc := mustService(t, store)

	rules := []models.MarginRule{
		marginRule(models.RuleAttributes{}, 10, 10, 90, 0),
		marginRule(models.RuleAttributes{Item: "TUBE-40"}, 25, 10, 90, 1),
	}
	policy, err := svc.CreateMarginPolicy(context.Background(), "EU Margins", rules)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	rule, err := svc.ResolveMargin(context.Background(), policy.ID, models.RuleAttributes{Item: "tube-40"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if rule == nil || !rule.MarginPercent.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("expected item-pinned rule to win, got %+v", rule)
	}

	// No match at all returns nil without error.
	generic := []models.MarginRule{marginRule(models.RuleAttributes{Item: "OTHER"}, 5, 10, 90, 0)}
	other, err := svc.CreateMarginPolicy(context.Background(), "Pinned", generic)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	rule, err = svc.ResolveMargin(context.Background(), other.ID, models.RuleAttributes{Item: "TUBE-40"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if rule != nil {
		t.Fatalf("expected no match, got %+v", rule)
	}
}

func TestResolveScenario_UnknownPolicyIsNotFound(t *testing.T) {
	t.Parallel()

	svc := mustService(t, newStubStore())
	_, err := svc.ResolveScenario(context.Background(), uuid.New(), models.RuleAttributes{})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreateScenarioPolicy_RequiresTargetScenario(t *testing.T) {
	t.Parallel()

	svc := mustService(t, newStubStore())
	rules := []models.ScenarioRule{{
		RuleAttributes: models.RuleAttributes{Material: "INOX"},
		IsActive:       true,
	}}

	_, err := svc.CreateScenarioPolicy(context.Background(), "Scenario Routing", rules)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
