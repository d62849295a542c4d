package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orderlift/orderlift-backend/api/responses"
	"github.com/orderlift/orderlift-backend/api/validators"
	policysvc "github.com/orderlift/orderlift-backend/internal/policies"
	"github.com/orderlift/orderlift-backend/pkg/db/models"
	"github.com/orderlift/orderlift-backend/pkg/enums"
	pkgerrors "github.com/orderlift/orderlift-backend/pkg/errors"
	"github.com/orderlift/orderlift-backend/pkg/logger"
)

// Margin policies hold tiered margin rules matched by specificity, customs
// policies hold duty rates per material, scenario policies assign scenarios
// to sheet lines. The handlers follow the same create/get/list/replace
// shape for all three so the router reads uniformly.

func CreateMarginPolicy(svc policysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload marginPolicyRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rules, err := toMarginRules(payload.Rules)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		policy, err := svc.CreateMarginPolicy(r.Context(), strings.TrimSpace(payload.Name), rules)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, policy)
	}
}

func GetMarginPolicy(svc policysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "policyID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		policy, err := svc.GetMarginPolicy(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, policy)
	}
}

func ListMarginPolicies(svc policysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		policies, err := svc.ListMarginPolicies(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, policies)
	}
}

func ReplaceMarginRules(svc policysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "policyID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload marginRulesRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rules, err := toMarginRules(payload.Rules)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		policy, err := svc.UpdateMarginRules(r.Context(), id, rules)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, policy)
	}
}

// ResolveMarginPolicy previews which rule wins for a given match context.
func ResolveMarginPolicy(svc policysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "policyID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload resolveRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rule, err := svc.ResolveMargin(r.Context(), id, payload.Attributes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, rule)
	}
}

func CreateCustomsPolicy(svc policysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload customsPolicyRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rules := toCustomsRules(payload.Rules)
		if len(rules) == 0 && payload.SeedDefaults {
			rules = policysvc.DefaultCustomsRules()
		}

		policy, err := svc.CreateCustomsPolicy(r.Context(), strings.TrimSpace(payload.Name), rules)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, policy)
	}
}

func GetCustomsPolicy(svc policysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "policyID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		policy, err := svc.GetCustomsPolicy(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, policy)
	}
}

func ListCustomsPolicies(svc policysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		policies, err := svc.ListCustomsPolicies(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, policies)
	}
}

func ReplaceCustomsRules(svc policysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "policyID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload customsRulesRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		policy, err := svc.UpdateCustomsRules(r.Context(), id, toCustomsRules(payload.Rules))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, policy)
	}
}

func ResolveCustomsPolicy(svc policysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "policyID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload resolveRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rule, err := svc.ResolveCustoms(r.Context(), id, payload.Attributes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, rule)
	}
}

func CreateScenarioPolicy(svc policysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload scenarioPolicyRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rules, err := toScenarioRules(payload.Rules)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		policy, err := svc.CreateScenarioPolicy(r.Context(), strings.TrimSpace(payload.Name), rules)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, policy)
	}
}

func GetScenarioPolicy(svc policysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "policyID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		policy, err := svc.GetScenarioPolicy(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, policy)
	}
}

func ListScenarioPolicies(svc policysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		policies, err := svc.ListScenarioPolicies(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, policies)
	}
}

func ReplaceScenarioRules(svc policysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "policyID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload scenarioRulesRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rules, err := toScenarioRules(payload.Rules)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		policy, err := svc.UpdateScenarioRules(r.Context(), id, rules)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, policy)
	}
}

func ResolveScenarioPolicy(svc policysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "policyID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload resolveRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rule, err := svc.ResolveScenario(r.Context(), id, payload.Attributes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, rule)
	}
}

type marginPolicyRequest struct {
	Name  string              `json:"name" validate:"required"`
	Rules []marginRuleRequest `json:"rules" validate:"omitempty,dive"`
}

type marginRulesRequest struct {
	Rules []marginRuleRequest `json:"rules" validate:"required,dive"`
}

type marginRuleRequest struct {
	Attributes    models.RuleAttributes `json:"attributes"`
	MarginPercent decimal.Decimal       `json:"margin_percent" validate:"required"`
	AppliesTo     string                `json:"applies_to"`
	Priority      int                   `json:"priority"`
	Sequence      int                   `json:"sequence"`
	IsActive      *bool                 `json:"is_active,omitempty"`
}

type customsPolicyRequest struct {
	Name         string               `json:"name" validate:"required"`
	Rules        []customsRuleRequest `json:"rules" validate:"omitempty,dive"`
	SeedDefaults bool                 `json:"seed_defaults"`
}

type customsRulesRequest struct {
	Rules []customsRuleRequest `json:"rules" validate:"required,dive"`
}

type customsRuleRequest struct {
	Attributes  models.RuleAttributes `json:"attributes"`
	RatePerKg   decimal.Decimal       `json:"rate_per_kg"`
	RatePercent decimal.Decimal       `json:"rate_percent"`
	Priority    int                   `json:"priority"`
	Sequence    int                   `json:"sequence"`
	IsActive    *bool                 `json:"is_active,omitempty"`
}

type scenarioPolicyRequest struct {
	Name  string                `json:"name" validate:"required"`
	Rules []scenarioRuleRequest `json:"rules" validate:"omitempty,dive"`
}

type scenarioRulesRequest struct {
	Rules []scenarioRuleRequest `json:"rules" validate:"required,dive"`
}

type scenarioRuleRequest struct {
	Attributes models.RuleAttributes `json:"attributes"`
	ScenarioID string                `json:"scenario_id" validate:"required"`
	Priority   int                   `json:"priority"`
	Sequence   int                   `json:"sequence"`
	IsActive   *bool                 `json:"is_active,omitempty"`
}

type resolveRequest struct {
	Attributes models.RuleAttributes `json:"attributes"`
}

func toMarginRules(rows []marginRuleRequest) ([]models.MarginRule, error) {
	rules := make([]models.MarginRule, 0, len(rows))
	for idx, row := range rows {
		appliesTo := enums.ExpenseBasisRunningTotal
		if raw := strings.TrimSpace(row.AppliesTo); raw != "" {
			parsed, err := enums.ParseExpenseBasis(raw)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid margin basis")
			}
			appliesTo = parsed
		}
		rules = append(rules, models.MarginRule{
			RuleAttributes: row.Attributes,
			MarginPercent:  row.MarginPercent,
			AppliesTo:      appliesTo,
			Priority:       row.Priority,
			Sequence:       row.Sequence,
			Idx:            idx,
			IsActive:       row.IsActive == nil || *row.IsActive,
		})
	}
	return rules, nil
}

func toCustomsRules(rows []customsRuleRequest) []models.CustomsRule {
	rules := make([]models.CustomsRule, 0, len(rows))
	for idx, row := range rows {
		rules = append(rules, models.CustomsRule{
			RuleAttributes: row.Attributes,
			RatePerKg:      row.RatePerKg,
			RatePercent:    row.RatePercent,
			Priority:       row.Priority,
			Sequence:       row.Sequence,
			Idx:            idx,
			IsActive:       row.IsActive == nil || *row.IsActive,
		})
	}
	return rules
}

func toScenarioRules(rows []scenarioRuleRequest) ([]models.ScenarioRule, error) {
	rules := make([]models.ScenarioRule, 0, len(rows))
	for idx, row := range rows {
		scenarioID, err := uuid.Parse(strings.TrimSpace(row.ScenarioID))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid scenario id")
		}
		rules = append(rules, models.ScenarioRule{
			RuleAttributes: row.Attributes,
			ScenarioID:     scenarioID,
			Priority:       row.Priority,
			Sequence:       row.Sequence,
			Idx:            idx,
			IsActive:       row.IsActive == nil || *row.IsActive,
		})
	}
	return rules, nil
}
