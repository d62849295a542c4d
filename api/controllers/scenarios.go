package controllers

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/orderlift/orderlift-backend/api/responses"
	"github.com/orderlift/orderlift-backend/api/validators"
	scenariosvc "github.com/orderlift/orderlift-backend/internal/scenarios"
	"github.com/orderlift/orderlift-backend/pkg/db/models"
	"github.com/orderlift/orderlift-backend/pkg/enums"
	pkgerrors "github.com/orderlift/orderlift-backend/pkg/errors"
	"github.com/orderlift/orderlift-backend/pkg/logger"
)

// CreateScenario registers a pricing scenario and its expense templates.
func CreateScenario(svc scenariosvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "scenario service unavailable"))
			return
		}

		var payload createScenarioRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		templates, err := toExpenseTemplates(payload.Templates)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		scenario, err := svc.Create(r.Context(), scenariosvc.CreateInput{
			Name:               strings.TrimSpace(payload.Name),
			BuyingPriceList:    strings.TrimSpace(payload.BuyingPriceList),
			BenchmarkPriceList: strings.TrimSpace(payload.BenchmarkPriceList),
			Templates:          templates,
			SeedDefaults:       payload.SeedDefaults,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, scenario)
	}
}

func GetScenario(svc scenariosvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "scenarioID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		scenario, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, scenario)
	}
}

func ListScenarios(svc scenariosvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scenarios, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, scenarios)
	}
}

// ReplaceScenarioTemplates swaps the scenario's expense stack.
func ReplaceScenarioTemplates(svc scenariosvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "scenarioID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload replaceTemplatesRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		templates, err := toExpenseTemplates(payload.Templates)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		scenario, err := svc.UpdateTemplates(r.Context(), id, templates)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, scenario)
	}
}

type createScenarioRequest struct {
	Name               string                   `json:"name" validate:"required"`
	BuyingPriceList    string                   `json:"buying_price_list" validate:"required"`
	BenchmarkPriceList string                   `json:"benchmark_price_list"`
	SeedDefaults       bool                     `json:"seed_defaults"`
	Templates          []expenseTemplateRequest `json:"templates" validate:"omitempty,dive"`
}

type replaceTemplatesRequest struct {
	Templates []expenseTemplateRequest `json:"templates" validate:"required,dive"`
}

type expenseTemplateRequest struct {
	Label     string          `json:"label" validate:"required"`
	Type      string          `json:"type" validate:"required"`
	AppliesTo string          `json:"applies_to"`
	Scope     string          `json:"scope"`
	Value     decimal.Decimal `json:"value" validate:"required"`
	Sequence  int             `json:"sequence"`
	IsActive  *bool           `json:"is_active,omitempty"`
}

func toExpenseTemplates(rows []expenseTemplateRequest) ([]models.ExpenseTemplate, error) {
	templates := make([]models.ExpenseTemplate, 0, len(rows))
	for idx, row := range rows {
		expType, err := enums.ParseExpenseType(strings.TrimSpace(row.Type))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid expense type")
		}

		appliesTo := enums.ExpenseBasisRunningTotal
		if raw := strings.TrimSpace(row.AppliesTo); raw != "" {
			if appliesTo, err = enums.ParseExpenseBasis(raw); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid expense basis")
			}
		}

		scope := enums.ExpenseScopePerUnit
		if raw := strings.TrimSpace(row.Scope); raw != "" {
			if scope, err = enums.ParseExpenseScope(raw); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid expense scope")
			}
		}

		active := true
		if row.IsActive != nil {
			active = *row.IsActive
		}

		templates = append(templates, models.ExpenseTemplate{
			Label:     strings.TrimSpace(row.Label),
			Type:      expType,
			AppliesTo: appliesTo,
			Scope:     scope,
			Value:     row.Value,
			Sequence:  row.Sequence,
			Idx:       idx,
			IsActive:  active,
		})
	}
	return templates, nil
}
