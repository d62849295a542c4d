package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/orderlift/orderlift-backend/pkg/enums"
	"github.com/orderlift/orderlift-backend/pkg/types"
)

// ContainerProfile describes one container/vehicle class and its capacity.
type ContainerProfile struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name          string    `gorm:"column:name;not null;uniqueIndex"`
	ContainerType string    `gorm:"column:container_type"`
	MaxWeightKg   float64   `gorm:"column:max_weight_kg;not null"`
	MaxVolumeM3   float64   `gorm:"column:max_volume_m3;not null"`
	CostRank      int       `gorm:"column:cost_rank;not null;default:100"`
	IsActive      bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Shipment is one outbound delivery eligible for load planning.
type Shipment struct {
	ID              uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Reference       string               `gorm:"column:reference;not null;uniqueIndex"`
	Customer        string               `gorm:"column:customer"`
	Company         string               `gorm:"column:company"`
	DestinationZone string               `gorm:"column:destination_zone"`
	PostingDate     time.Time            `gorm:"column:posting_date;not null"`
	Status          enums.ShipmentStatus `gorm:"column:status;not null;default:'pending'"`
	LockedByPlanID  *uuid.UUID           `gorm:"column:locked_by_plan_id;type:uuid"`
	Items           []ShipmentItem       `gorm:"foreignKey:ShipmentID"`
	CreatedAt       time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// ShipmentItem is one item quantity inside a shipment.
type ShipmentItem struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ShipmentID uuid.UUID `gorm:"column:shipment_id;type:uuid;not null;index"`
	ItemCode   string    `gorm:"column:item_code;not null"`
	Qty        float64   `gorm:"column:qty;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

// ContainerLoadPlan assigns shipments to one container profile.
type ContainerLoadPlan struct {
	ID                 uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name               string               `gorm:"column:name;not null;uniqueIndex"`
	Company            string               `gorm:"column:company"`
	DestinationZone    string               `gorm:"column:destination_zone"`
	ContainerProfileID *uuid.UUID           `gorm:"column:container_profile_id;type:uuid"`
	Status             enums.LoadPlanStatus `gorm:"column:status;not null;default:'draft'"`
	Shipments          []LoadPlanShipment   `gorm:"foreignKey:PlanID"`
	TotalWeightKg      float64              `gorm:"column:total_weight_kg;not null;default:0"`
	TotalVolumeM3      float64              `gorm:"column:total_volume_m3;not null;default:0"`
	WeightUtilization  float64              `gorm:"column:weight_utilization_pct;not null;default:0"`
	VolumeUtilization  float64              `gorm:"column:volume_utilization_pct;not null;default:0"`
	LimitingFactor     enums.LimitingFactor `gorm:"column:limiting_factor"`
	AnalysisStatus     enums.AnalysisStatus `gorm:"column:analysis_status;not null;default:'ok'"`
	CreatedAt          time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// LoadPlanShipment is one shipment row inside a load plan with cached metrics.
type LoadPlanShipment struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PlanID     uuid.UUID `gorm:"column:plan_id;type:uuid;not null;index"`
	ShipmentID uuid.UUID `gorm:"column:shipment_id;type:uuid;not null"`
	Sequence   int       `gorm:"column:sequence;not null;default:0"`
	Selected   bool      `gorm:"column:selected;not null;default:true"`
	Customer   string    `gorm:"column:customer"`
	WeightKg   float64   `gorm:"column:weight_kg;not null;default:0"`
	VolumeM3   float64   `gorm:"column:volume_m3;not null;default:0"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

// ShipmentAnalysis is an immutable snapshot of one analysis run. Rows are
// only ever mutated to flip status to cancelled when the source document is
// cancelled.
type ShipmentAnalysis struct {
	ID                     uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SourceType             string               `gorm:"column:source_type;not null;index:idx_analysis_source"`
	SourceRef              string               `gorm:"column:source_ref;not null;index:idx_analysis_source"`
	Customer               string               `gorm:"column:customer"`
	DestinationZone        string               `gorm:"column:destination_zone"`
	TotalWeightKg          float64              `gorm:"column:total_weight_kg;not null;default:0"`
	TotalVolumeM3          float64              `gorm:"column:total_volume_m3;not null;default:0"`
	Status                 enums.AnalysisStatus `gorm:"column:status;not null"`
	MissingItems           types.Warnings       `gorm:"column:missing_items;type:jsonb;serializer:json"`
	MissingCount           int                  `gorm:"column:missing_count;not null;default:0"`
	RecommendedContainerID *uuid.UUID           `gorm:"column:recommended_container_id;type:uuid"`
	WeightUtilization      float64              `gorm:"column:weight_utilization_pct;not null;default:0"`
	VolumeUtilization      float64              `gorm:"column:volume_utilization_pct;not null;default:0"`
	LimitingFactor         enums.LimitingFactor `gorm:"column:limiting_factor"`
	EngineVersion          string               `gorm:"column:engine_version;not null;default:'container-v1'"`
	PlanID                 *uuid.UUID           `gorm:"column:plan_id;type:uuid"`
	CreatedAt              time.Time            `gorm:"column:created_at;autoCreateTime"`
}
