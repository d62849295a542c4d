package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/orderlift/orderlift-backend/api/middleware"
	"github.com/orderlift/orderlift-backend/api/responses"
	"github.com/orderlift/orderlift-backend/api/validators"
	catalogsvc "github.com/orderlift/orderlift-backend/internal/catalog"
	"github.com/orderlift/orderlift-backend/pkg/db/models"
	pkgerrors "github.com/orderlift/orderlift-backend/pkg/errors"
	"github.com/orderlift/orderlift-backend/pkg/logger"
)

func CreateItem(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		var payload createItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.CreateItem(r.Context(), payload.toModel())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

func GetItem(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := strings.TrimSpace(chi.URLParam(r, "itemCode"))
		if code == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "item code is required"))
			return
		}

		item, err := svc.GetItem(r.Context(), code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, item)
	}
}

func ListItems(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.ListItems(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, items)
	}
}

// UpdateItemCost swaps the current cost price and archives the old one.
func UpdateItemCost(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := strings.TrimSpace(chi.URLParam(r, "itemCode"))
		if code == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "item code is required"))
			return
		}

		var payload updateCostRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor := middleware.ActorFromContext(r.Context())
		item, err := svc.UpdateItemCost(r.Context(), code, payload.NewCost, actor, strings.TrimSpace(payload.Notes))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, item)
	}
}

func ListItemCostHistory(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := strings.TrimSpace(chi.URLParam(r, "itemCode"))
		if code == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "item code is required"))
			return
		}

		history, err := svc.ListCostHistory(r.Context(), code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, history)
	}
}

// RecordMarketPrice logs a competitor price observation for an item.
func RecordMarketPrice(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := strings.TrimSpace(chi.URLParam(r, "itemCode"))
		if code == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "item code is required"))
			return
		}

		var payload marketPriceRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		recordedAt := time.Now().UTC()
		if payload.RecordedAt != nil {
			recordedAt = *payload.RecordedAt
		}

		entry, err := svc.RecordMarketPrice(r.Context(), code, strings.TrimSpace(payload.Source), payload.MarketPrice, recordedAt)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, entry)
	}
}

func ListMarketPrices(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := strings.TrimSpace(chi.URLParam(r, "itemCode"))
		if code == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "item code is required"))
			return
		}

		entries, err := svc.ListMarketPrices(r.Context(), code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, entries)
	}
}

// AddPriceListEntry appends a dated rate row to a named price list.
func AddPriceListEntry(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload priceListEntryRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry := &models.PriceListEntry{
			PriceList: strings.TrimSpace(payload.PriceList),
			ItemCode:  strings.TrimSpace(payload.ItemCode),
			Rate:      payload.Rate,
			ValidFrom: payload.ValidFrom,
			Buying:    payload.Buying,
			Enabled:   payload.Enabled == nil || *payload.Enabled,
		}
		if entry.ValidFrom.IsZero() {
			entry.ValidFrom = time.Now().UTC()
		}

		if err := svc.AddPriceListEntry(r.Context(), entry); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, entry)
	}
}

type createItemRequest struct {
	Code         string          `json:"code" validate:"required"`
	Name         string          `json:"name" validate:"required"`
	ItemGroup    string          `json:"item_group"`
	Material     string          `json:"material"`
	UnitWeightKg float64         `json:"unit_weight_kg" validate:"omitempty,gte=0"`
	UnitVolumeM3 float64         `json:"unit_volume_m3" validate:"omitempty,gte=0"`
	LengthCm     float64         `json:"length_cm" validate:"omitempty,gte=0"`
	WidthCm      float64         `json:"width_cm" validate:"omitempty,gte=0"`
	HeightCm     float64         `json:"height_cm" validate:"omitempty,gte=0"`
	CostPrice    decimal.Decimal `json:"cost_price"`
}

func (req createItemRequest) toModel() *models.Item {
	return &models.Item{
		Code:             strings.TrimSpace(req.Code),
		Name:             strings.TrimSpace(req.Name),
		ItemGroup:        strings.TrimSpace(req.ItemGroup),
		Material:         strings.TrimSpace(req.Material),
		UnitWeightKg:     req.UnitWeightKg,
		UnitVolumeM3:     req.UnitVolumeM3,
		LengthCm:         req.LengthCm,
		WidthCm:          req.WidthCm,
		HeightCm:         req.HeightCm,
		CurrentCostPrice: req.CostPrice,
		IsActive:         true,
	}
}

type updateCostRequest struct {
	NewCost decimal.Decimal `json:"new_cost" validate:"required"`
	Notes   string          `json:"notes"`
}

type marketPriceRequest struct {
	Source      string          `json:"source"`
	MarketPrice decimal.Decimal `json:"market_price" validate:"required"`
	RecordedAt  *time.Time      `json:"recorded_at,omitempty"`
}

type priceListEntryRequest struct {
	PriceList string          `json:"price_list" validate:"required"`
	ItemCode  string          `json:"item_code" validate:"required"`
	Rate      decimal.Decimal `json:"rate" validate:"required"`
	ValidFrom time.Time       `json:"valid_from"`
	Buying    bool            `json:"buying"`
	Enabled   *bool           `json:"enabled,omitempty"`
}
