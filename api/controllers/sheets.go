package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orderlift/orderlift-backend/api/middleware"
	"github.com/orderlift/orderlift-backend/api/responses"
	"github.com/orderlift/orderlift-backend/api/validators"
	pricingsvc "github.com/orderlift/orderlift-backend/internal/pricing"
	"github.com/orderlift/orderlift-backend/pkg/db/models"
	"github.com/orderlift/orderlift-backend/pkg/enums"
	pkgerrors "github.com/orderlift/orderlift-backend/pkg/errors"
	"github.com/orderlift/orderlift-backend/pkg/logger"
)

// CreateSheet registers a pricing sheet with its lines and kicks off the
// first recalculation.
func CreateSheet(svc pricingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing service unavailable"))
			return
		}

		var payload createSheetRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sheet, err := svc.CreateSheet(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, sheet)
	}
}

func GetSheet(svc pricingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "sheetID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sheet, err := svc.GetSheet(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, sheet)
	}
}

func ListSheets(svc pricingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sheets, err := svc.ListSheets(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, sheets)
	}
}

// ReplaceSheetLines swaps the sheet's line set and recomputes projections.
func ReplaceSheetLines(svc pricingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "sheetID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload replaceLinesRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lines, err := toLineInputs(payload.Lines)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sheet, err := svc.ReplaceSheetLines(r.Context(), id, lines)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, sheet)
	}
}

func DeleteSheet(svc pricingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "sheetID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteSheet(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// RecalculateSheet replays the projection pipeline over the stored lines.
func RecalculateSheet(svc pricingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "sheetID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sheet, err := svc.Recalculate(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, sheet)
	}
}

// SetSheetOverride upserts a manual expense value and recomputes the sheet.
func SetSheetOverride(svc pricingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "sheetID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload overrideRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := pricingsvc.OverrideInput{
			SheetID:    id,
			ExpenseKey: strings.TrimSpace(payload.ExpenseKey),
			Value:      payload.Value,
		}
		if input.ScenarioID, err = optionalUUID(payload.ScenarioID, "scenario_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if input.LineID, err = optionalUUID(payload.LineID, "line_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sheet, err := svc.SetOverride(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, sheet)
	}
}

// ExportSheet freezes the sheet into a quotation in detailed or grouped mode.
func ExportSheet(svc pricingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "sheetID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload exportRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		mode, err := enums.ParseQuotationMode(strings.TrimSpace(payload.Mode))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid quotation mode"))
			return
		}

		quotation, err := svc.Export(r.Context(), id, mode, middleware.ActorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, quotation)
	}
}

func ListSheetQuotations(svc pricingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "sheetID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quotations, err := svc.ListQuotations(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, quotations)
	}
}

func GetQuotation(svc pricingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "quotationID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quotation, err := svc.GetQuotation(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, quotation)
	}
}

type createSheetRequest struct {
	Name              string                `json:"name" validate:"required"`
	Customer          string                `json:"customer"`
	PriceDate         *time.Time            `json:"price_date,omitempty"`
	Strict            bool                  `json:"strict"`
	DefaultScenarioID *string               `json:"default_scenario_id,omitempty"`
	ScenarioPolicyID  *string               `json:"scenario_policy_id,omitempty"`
	MarginPolicyID    *string               `json:"margin_policy_id,omitempty"`
	CustomsPolicyID   *string               `json:"customs_policy_id,omitempty"`
	Attributes        models.RuleAttributes `json:"attributes"`
	Lines             []sheetLineRequest    `json:"lines" validate:"omitempty,dive"`
}

type sheetLineRequest struct {
	ItemCode           string           `json:"item_code" validate:"required"`
	Qty                decimal.Decimal  `json:"qty" validate:"required"`
	ScenarioOverrideID *string          `json:"scenario_override_id,omitempty"`
	DisplayGroup       string           `json:"display_group"`
	ManualUnitPrice    *decimal.Decimal `json:"manual_unit_price,omitempty"`
}

type replaceLinesRequest struct {
	Lines []sheetLineRequest `json:"lines" validate:"required,dive"`
}

type overrideRequest struct {
	ScenarioID *string         `json:"scenario_id,omitempty"`
	LineID     *string         `json:"line_id,omitempty"`
	ExpenseKey string          `json:"expense_key" validate:"required"`
	Value      decimal.Decimal `json:"value" validate:"required"`
}

type exportRequest struct {
	Mode string `json:"mode" validate:"required"`
}

func (req createSheetRequest) toInput() (pricingsvc.SheetInput, error) {
	input := pricingsvc.SheetInput{
		Name:       strings.TrimSpace(req.Name),
		Customer:   strings.TrimSpace(req.Customer),
		Strict:     req.Strict,
		Attributes: req.Attributes,
	}
	if req.PriceDate != nil {
		input.PriceDate = *req.PriceDate
	}

	var err error
	if input.DefaultScenarioID, err = optionalUUID(req.DefaultScenarioID, "default_scenario_id"); err != nil {
		return pricingsvc.SheetInput{}, err
	}
	if input.ScenarioPolicyID, err = optionalUUID(req.ScenarioPolicyID, "scenario_policy_id"); err != nil {
		return pricingsvc.SheetInput{}, err
	}
	if input.MarginPolicyID, err = optionalUUID(req.MarginPolicyID, "margin_policy_id"); err != nil {
		return pricingsvc.SheetInput{}, err
	}
	if input.CustomsPolicyID, err = optionalUUID(req.CustomsPolicyID, "customs_policy_id"); err != nil {
		return pricingsvc.SheetInput{}, err
	}

	if input.Lines, err = toLineInputs(req.Lines); err != nil {
		return pricingsvc.SheetInput{}, err
	}
	return input, nil
}

func toLineInputs(rows []sheetLineRequest) ([]pricingsvc.LineInput, error) {
	lines := make([]pricingsvc.LineInput, 0, len(rows))
	for _, row := range rows {
		line := pricingsvc.LineInput{
			ItemCode:        strings.TrimSpace(row.ItemCode),
			Qty:             row.Qty,
			DisplayGroup:    strings.TrimSpace(row.DisplayGroup),
			ManualUnitPrice: row.ManualUnitPrice,
		}
		scenarioID, err := optionalUUID(row.ScenarioOverrideID, "scenario_override_id")
		if err != nil {
			return nil, err
		}
		line.ScenarioOverrideID = scenarioID
		lines = append(lines, line)
	}
	return lines, nil
}

func pathUUID(r *http.Request, param string) (uuid.UUID, error) {
	raw := chi.URLParam(r, param)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid identifier").
			WithDetails(map[string]any{"param": param})
	}
	return id, nil
}

func parseUUIDList(raw []string, field string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, value := range raw {
		id, err := uuid.Parse(strings.TrimSpace(value))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid identifier").
				WithDetails(map[string]any{"field": field, "value": value})
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func optionalUUID(raw *string, field string) (*uuid.UUID, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	id, err := uuid.Parse(strings.TrimSpace(*raw))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid identifier").
			WithDetails(map[string]any{"field": field})
	}
	return &id, nil
}
