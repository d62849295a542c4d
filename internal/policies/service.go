package policies

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orderlift/orderlift-backend/pkg/db/models"
	pkgerrors "github.com/orderlift/orderlift-backend/pkg/errors"
)

// Service exposes policy management and rule resolution.
type Service interface {
	CreateMarginPolicy(ctx context.Context, name string, rules []models.MarginRule) (*models.MarginPolicy, error)
	UpdateMarginRules(ctx context.Context, policyID uuid.UUID, rules []models.MarginRule) (*models.MarginPolicy, error)
	GetMarginPolicy(ctx context.Context, id uuid.UUID) (*models.MarginPolicy, error)
	ListMarginPolicies(ctx context.Context) ([]models.MarginPolicy, error)
	ResolveMargin(ctx context.Context, policyID uuid.UUID, matchCtx models.RuleAttributes) (*models.MarginRule, error)

	CreateCustomsPolicy(ctx context.Context, name string, rules []models.CustomsRule) (*models.CustomsPolicy, error)
	UpdateCustomsRules(ctx context.Context, policyID uuid.UUID, rules []models.CustomsRule) (*models.CustomsPolicy, error)
	GetCustomsPolicy(ctx context.Context, id uuid.UUID) (*models.CustomsPolicy, error)
	ListCustomsPolicies(ctx context.Context) ([]models.CustomsPolicy, error)
	ResolveCustoms(ctx context.Context, policyID uuid.UUID, matchCtx models.RuleAttributes) (*models.CustomsRule, error)

	CreateScenarioPolicy(ctx context.Context, name string, rules []models.ScenarioRule) (*models.ScenarioPolicy, error)
	UpdateScenarioRules(ctx context.Context, policyID uuid.UUID, rules []models.ScenarioRule) (*models.ScenarioPolicy, error)
	GetScenarioPolicy(ctx context.Context, id uuid.UUID) (*models.ScenarioPolicy, error)
	ListScenarioPolicies(ctx context.Context) ([]models.ScenarioPolicy, error)
	ResolveScenario(ctx context.Context, policyID uuid.UUID, matchCtx models.RuleAttributes) (*models.ScenarioRule, error)
}

// Store is the persistence surface the service needs; *Repository
// satisfies it.
type Store interface {
	CreateMarginPolicy(context.Context, *models.MarginPolicy) error
	GetMarginPolicy(context.Context, uuid.UUID) (*models.MarginPolicy, error)
	ListMarginPolicies(context.Context) ([]models.MarginPolicy, error)
	ReplaceMarginRules(context.Context, uuid.UUID, []models.MarginRule) error

	CreateCustomsPolicy(context.Context, *models.CustomsPolicy) error
	GetCustomsPolicy(context.Context, uuid.UUID) (*models.CustomsPolicy, error)
	ListCustomsPolicies(context.Context) ([]models.CustomsPolicy, error)
	ReplaceCustomsRules(context.Context, uuid.UUID, []models.CustomsRule) error

	CreateScenarioPolicy(context.Context, *models.ScenarioPolicy) error
	GetScenarioPolicy(context.Context, uuid.UUID) (*models.ScenarioPolicy, error)
	ListScenarioPolicies(context.Context) ([]models.ScenarioPolicy, error)
	ReplaceScenarioRules(context.Context, uuid.UUID, []models.ScenarioRule) error
}

type service struct {
	repo Store
}

// NewService builds the policy service.
func NewService(repo Store) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "policies repository is required")
	}
	return &service{repo: repo}, nil
}

func (s *service) CreateMarginPolicy(ctx context.Context, name string, rules []models.MarginRule) (*models.MarginPolicy, error) {
	if strings.TrimSpace(name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "policy name is required")
	}
	if err := validateMarginRules(rules); err != nil {
		return nil, err
	}
	policy := &models.MarginPolicy{Name: strings.TrimSpace(name), IsActive: true, Rules: rules}
	if err := s.repo.CreateMarginPolicy(ctx, policy); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating margin policy")
	}
	return policy, nil
}

func (s *service) UpdateMarginRules(ctx context.Context, policyID uuid.UUID, rules []models.MarginRule) (*models.MarginPolicy, error) {
	if err := validateMarginRules(rules); err != nil {
		return nil, err
	}
	if _, err := s.GetMarginPolicy(ctx, policyID); err != nil {
		return nil, err
	}
	for i := range rules {
		rules[i].PolicyID = policyID
	}
	if err := s.repo.ReplaceMarginRules(ctx, policyID, rules); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "replacing margin rules")
	}
	return s.GetMarginPolicy(ctx, policyID)
}

func (s *service) GetMarginPolicy(ctx context.Context, id uuid.UUID) (*models.MarginPolicy, error) {
	policy, err := s.repo.GetMarginPolicy(ctx, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "margin policy")
	}
	return policy, nil
}

func (s *service) ListMarginPolicies(ctx context.Context) ([]models.MarginPolicy, error) {
	policies, err := s.repo.ListMarginPolicies(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing margin policies")
	}
	return policies, nil
}

func (s *service) ResolveMargin(ctx context.Context, policyID uuid.UUID, matchCtx models.RuleAttributes) (*models.MarginRule, error) {
	policy, err := s.GetMarginPolicy(ctx, policyID)
	if err != nil {
		return nil, err
	}
	if err := requireActiveRules(policy.Name, len(activeMargin(policy.Rules))); err != nil {
		return nil, err
	}
	match, ok := Resolve(MarginCandidates(policy.Rules), matchCtx)
	if !ok {
		return nil, nil
	}
	rule := match.Rule
	return &rule, nil
}

func (s *service) CreateCustomsPolicy(ctx context.Context, name string, rules []models.CustomsRule) (*models.CustomsPolicy, error) {
	if strings.TrimSpace(name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "policy name is required")
	}
	if err := validateCustomsRules(rules); err != nil {
		return nil, err
	}
	policy := &models.CustomsPolicy{Name: strings.TrimSpace(name), IsActive: true, Rules: rules}
	if err := s.repo.CreateCustomsPolicy(ctx, policy); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating customs policy")
	}
	return policy, nil
}

func (s *service) UpdateCustomsRules(ctx context.Context, policyID uuid.UUID, rules []models.CustomsRule) (*models.CustomsPolicy, error) {
	if err := validateCustomsRules(rules); err != nil {
		return nil, err
	}
	if _, err := s.GetCustomsPolicy(ctx, policyID); err != nil {
		return nil, err
	}
	for i := range rules {
		rules[i].PolicyID = policyID
	}
	if err := s.repo.ReplaceCustomsRules(ctx, policyID, rules); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "replacing customs rules")
	}
	return s.GetCustomsPolicy(ctx, policyID)
}

func (s *service) GetCustomsPolicy(ctx context.Context, id uuid.UUID) (*models.CustomsPolicy, error) {
	policy, err := s.repo.GetCustomsPolicy(ctx, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "customs policy")
	}
	return policy, nil
}

func (s *service) ListCustomsPolicies(ctx context.Context) ([]models.CustomsPolicy, error) {
	policies, err := s.repo.ListCustomsPolicies(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing customs policies")
	}
	return policies, nil
}

func (s *service) ResolveCustoms(ctx context.Context, policyID uuid.UUID, matchCtx models.RuleAttributes) (*models.CustomsRule, error) {
	policy, err := s.GetCustomsPolicy(ctx, policyID)
	if err != nil {
		return nil, err
	}
	if err := requireActiveRules(policy.Name, len(activeCustoms(policy.Rules))); err != nil {
		return nil, err
	}
	match, ok := Resolve(CustomsCandidates(policy.Rules), matchCtx)
	if !ok {
		return nil, nil
	}
	rule := match.Rule
	return &rule, nil
}

func (s *service) CreateScenarioPolicy(ctx context.Context, name string, rules []models.ScenarioRule) (*models.ScenarioPolicy, error) {
	if strings.TrimSpace(name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "policy name is required")
	}
	if err := validateScenarioRules(rules); err != nil {
		return nil, err
	}
	policy := &models.ScenarioPolicy{Name: strings.TrimSpace(name), IsActive: true, Rules: rules}
	if err := s.repo.CreateScenarioPolicy(ctx, policy); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating scenario policy")
	}
	return policy, nil
}

func (s *service) UpdateScenarioRules(ctx context.Context, policyID uuid.UUID, rules []models.ScenarioRule) (*models.ScenarioPolicy, error) {
	if err := validateScenarioRules(rules); err != nil {
		return nil, err
	}
	if _, err := s.GetScenarioPolicy(ctx, policyID); err != nil {
		return nil, err
	}
	for i := range rules {
		rules[i].PolicyID = policyID
	}
	if err := s.repo.ReplaceScenarioRules(ctx, policyID, rules); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "replacing scenario rules")
	}
	return s.GetScenarioPolicy(ctx, policyID)
}

func (s *service) GetScenarioPolicy(ctx context.Context, id uuid.UUID) (*models.ScenarioPolicy, error) {
	policy, err := s.repo.GetScenarioPolicy(ctx, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "scenario policy")
	}
	return policy, nil
}

func (s *service) ListScenarioPolicies(ctx context.Context) ([]models.ScenarioPolicy, error) {
	policies, err := s.repo.ListScenarioPolicies(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing scenario policies")
	}
	return policies, nil
}

func (s *service) ResolveScenario(ctx context.Context, policyID uuid.UUID, matchCtx models.RuleAttributes) (*models.ScenarioRule, error) {
	policy, err := s.GetScenarioPolicy(ctx, policyID)
	if err != nil {
		return nil, err
	}
	if err := requireActiveRules(policy.Name, len(activeScenario(policy.Rules))); err != nil {
		return nil, err
	}
	match, ok := Resolve(ScenarioCandidates(policy.Rules), matchCtx)
	if !ok {
		return nil, nil
	}
	rule := match.Rule
	return &rule, nil
}

// ruleSignature identifies a rule within a policy: same attribute tuple,
// priority and active flag means the resolver could never deterministically
// prefer one over the other by content, so saving both is rejected.
func ruleSignature(attrs models.RuleAttributes, priority int, active bool) string {
	parts := make([]string, 0, len(dimensions)+2)
	for _, dim := range dimensions {
		parts = append(parts, normalize(dim.value(attrs)))
	}
	parts = append(parts, fmt.Sprintf("p=%d", priority), fmt.Sprintf("a=%t", active))
	return strings.Join(parts, "|")
}

func validateMarginRules(rules []models.MarginRule) error {
	seen := map[string]int{}
	active := 0
	for i, rule := range rules {
		sig := ruleSignature(rule.RuleAttributes, rule.Priority, rule.IsActive)
		if prev, dup := seen[sig]; dup {
			return duplicateRuleErr(prev, i)
		}
		seen[sig] = i
		if rule.IsActive {
			active++
		}
	}
	return requireActiveRules("margin policy", active)
}

func validateCustomsRules(rules []models.CustomsRule) error {
	seen := map[string]int{}
	active := 0
	for i, rule := range rules {
		if rule.RatePerKg.IsNegative() || rule.RatePercent.IsNegative() {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "customs rule %d has a negative rate", i)
		}
		sig := ruleSignature(rule.RuleAttributes, rule.Priority, rule.IsActive)
		if prev, dup := seen[sig]; dup {
			return duplicateRuleErr(prev, i)
		}
		seen[sig] = i
		if rule.IsActive {
			active++
		}
	}
	return requireActiveRules("customs policy", active)
}

func validateScenarioRules(rules []models.ScenarioRule) error {
	seen := map[string]int{}
	active := 0
	for i, rule := range rules {
		if rule.ScenarioID == uuid.Nil {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "scenario rule %d is missing a target scenario", i)
		}
		sig := ruleSignature(rule.RuleAttributes, rule.Priority, rule.IsActive)
		if prev, dup := seen[sig]; dup {
			return duplicateRuleErr(prev, i)
		}
		seen[sig] = i
		if rule.IsActive {
			active++
		}
	}
	return requireActiveRules("scenario policy", active)
}

func duplicateRuleErr(first, second int) error {
	return pkgerrors.Newf(pkgerrors.CodeValidation,
		"rules %d and %d share the same attribute signature", first, second)
}

func requireActiveRules(label string, active int) error {
	if active == 0 {
		return pkgerrors.Newf(pkgerrors.CodeConfiguration, "%s has no active rules", label)
	}
	return nil
}

func activeMargin(rules []models.MarginRule) []models.MarginRule {
	out := rules[:0:0]
	for _, r := range rules {
		if r.IsActive {
			out = append(out, r)
		}
	}
	return out
}

func activeCustoms(rules []models.CustomsRule) []models.CustomsRule {
	out := rules[:0:0]
	for _, r := range rules {
		if r.IsActive {
			out = append(out, r)
		}
	}
	return out
}

func activeScenario(rules []models.ScenarioRule) []models.ScenarioRule {
	out := rules[:0:0]
	for _, r := range rules {
		if r.IsActive {
			out = append(out, r)
		}
	}
	return out
}

func notFoundOrInternal(err error, label string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "%s not found", label)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading "+label)
}
