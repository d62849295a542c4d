package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/orderlift/orderlift-backend/api/responses"
	"github.com/orderlift/orderlift-backend/api/validators"
	logisticssvc "github.com/orderlift/orderlift-backend/internal/logistics"
	"github.com/orderlift/orderlift-backend/pkg/db/models"
	pkgerrors "github.com/orderlift/orderlift-backend/pkg/errors"
	"github.com/orderlift/orderlift-backend/pkg/logger"
)

func CreateContainerProfile(svc logisticssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "logistics service unavailable"))
			return
		}

		var payload containerProfileRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		profile, err := svc.CreateContainerProfile(r.Context(), &models.ContainerProfile{
			Name:          strings.TrimSpace(payload.Name),
			ContainerType: strings.TrimSpace(payload.ContainerType),
			MaxWeightKg:   payload.MaxWeightKg,
			MaxVolumeM3:   payload.MaxVolumeM3,
			CostRank:      payload.CostRank,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, profile)
	}
}

func ListContainerProfiles(svc logisticssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profiles, err := svc.ListContainerProfiles(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, profiles)
	}
}

// CreateShipment registers an outbound delivery with its item lines.
func CreateShipment(svc logisticssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload shipmentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := logisticssvc.ShipmentInput{
			Reference:       strings.TrimSpace(payload.Reference),
			Customer:        strings.TrimSpace(payload.Customer),
			Company:         strings.TrimSpace(payload.Company),
			DestinationZone: strings.TrimSpace(payload.DestinationZone),
			Items:           toShipmentItems(payload.Items),
		}
		if payload.PostingDate != nil {
			input.PostingDate = *payload.PostingDate
		}

		shipment, err := svc.CreateShipment(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, shipment)
	}
}

func GetShipment(svc logisticssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "shipmentID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shipment, err := svc.GetShipment(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, shipment)
	}
}

// GetShipmentMetrics computes weight/volume totals for one shipment,
// including the dimension fallback for items without a declared volume.
func GetShipmentMetrics(svc logisticssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "shipmentID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shipment, err := svc.GetShipment(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		metrics, err := svc.ShipmentMetrics(r.Context(), shipment)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, metrics)
	}
}

func CreatePlan(svc logisticssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload planRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		profileID, err := optionalUUID(&payload.ContainerProfileID, "container_profile_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if profileID == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "container profile is required"))
			return
		}

		plan, err := svc.CreatePlan(r.Context(), logisticssvc.PlanInput{
			Name:               strings.TrimSpace(payload.Name),
			Company:            strings.TrimSpace(payload.Company),
			DestinationZone:    strings.TrimSpace(payload.DestinationZone),
			ContainerProfileID: *profileID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, plan)
	}
}

func GetPlan(svc logisticssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "planID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		plan, err := svc.GetPlan(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, plan)
	}
}

func ListPlans(svc logisticssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		plans, err := svc.ListPlans(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, plans)
	}
}

// SetPlanShipments replaces the plan's shipment set and recomputes capacity.
func SetPlanShipments(svc logisticssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "planID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload planShipmentsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shipmentIDs, err := parseUUIDList(payload.ShipmentIDs, "shipment_ids")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		plan, err := svc.SetPlanShipments(r.Context(), id, shipmentIDs)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, plan)
	}
}

func RecalculatePlan(svc logisticssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "planID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		plan, err := svc.RecalculatePlan(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, plan)
	}
}

// SuggestPlanShipments runs the greedy fill over eligible shipments.
func SuggestPlanShipments(svc logisticssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "planID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		suggestion, err := svc.Suggest(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, suggestion)
	}
}

// SubmitPlan locks the selected shipments and snapshots the analysis.
func SubmitPlan(svc logisticssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "planID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		plan, err := svc.SubmitPlan(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, plan)
	}
}

func CancelPlan(svc logisticssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "planID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		plan, err := svc.CancelPlan(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, plan)
	}
}

// AnalyzeSource recommends a container for an ad-hoc document's items.
func AnalyzeSource(svc logisticssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload analysisRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		analysis, err := svc.AnalyzeSource(r.Context(), logisticssvc.AnalysisInput{
			SourceType:      strings.TrimSpace(payload.SourceType),
			SourceRef:       strings.TrimSpace(payload.SourceRef),
			Customer:        strings.TrimSpace(payload.Customer),
			DestinationZone: strings.TrimSpace(payload.DestinationZone),
			Items:           toShipmentItems(payload.Items),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, analysis)
	}
}

func ListAnalyses(svc logisticssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sourceType := strings.TrimSpace(r.URL.Query().Get("source_type"))
		sourceRef := strings.TrimSpace(r.URL.Query().Get("source_ref"))
		if sourceType == "" || sourceRef == "" {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "source_type and source_ref are required"))
			return
		}

		analyses, err := svc.ListAnalyses(r.Context(), sourceType, sourceRef)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, analyses)
	}
}

type containerProfileRequest struct {
	Name          string  `json:"name" validate:"required"`
	ContainerType string  `json:"container_type"`
	MaxWeightKg   float64 `json:"max_weight_kg" validate:"required,gt=0"`
	MaxVolumeM3   float64 `json:"max_volume_m3" validate:"required,gt=0"`
	CostRank      int     `json:"cost_rank" validate:"omitempty,gt=0"`
}

type shipmentRequest struct {
	Reference       string                `json:"reference" validate:"required"`
	Customer        string                `json:"customer"`
	Company         string                `json:"company"`
	DestinationZone string                `json:"destination_zone"`
	PostingDate     *time.Time            `json:"posting_date,omitempty"`
	Items           []shipmentItemRequest `json:"items" validate:"required,dive"`
}

type shipmentItemRequest struct {
	ItemCode string  `json:"item_code" validate:"required"`
	Qty      float64 `json:"qty" validate:"required,gt=0"`
}

type planRequest struct {
	Name               string `json:"name" validate:"required"`
	Company            string `json:"company"`
	DestinationZone    string `json:"destination_zone"`
	ContainerProfileID string `json:"container_profile_id" validate:"required"`
}

type planShipmentsRequest struct {
	ShipmentIDs []string `json:"shipment_ids" validate:"required"`
}

type analysisRequest struct {
	SourceType      string                `json:"source_type" validate:"required"`
	SourceRef       string                `json:"source_ref" validate:"required"`
	Customer        string                `json:"customer"`
	DestinationZone string                `json:"destination_zone"`
	Items           []shipmentItemRequest `json:"items" validate:"required,dive"`
}

func toShipmentItems(rows []shipmentItemRequest) []logisticssvc.ShipmentItemInput {
	items := make([]logisticssvc.ShipmentItemInput, 0, len(rows))
	for _, row := range rows {
		items = append(items, logisticssvc.ShipmentItemInput{
			ItemCode: strings.TrimSpace(row.ItemCode),
			Qty:      row.Qty,
		})
	}
	return items
}
