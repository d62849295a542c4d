package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orderlift/orderlift-backend/pkg/enums"
	"github.com/orderlift/orderlift-backend/pkg/types"
)

// PricingSheet is one multi-line sell-price projection document. Every save
// recomputes every line from scratch.
type PricingSheet struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name              string          `gorm:"column:name;not null;uniqueIndex"`
	Customer          string          `gorm:"column:customer"`
	PriceDate         time.Time       `gorm:"column:price_date;not null"`
	Strict            bool            `gorm:"column:strict;not null;default:false"`
	DefaultScenarioID *uuid.UUID      `gorm:"column:default_scenario_id;type:uuid"`
	ScenarioPolicyID  *uuid.UUID      `gorm:"column:scenario_policy_id;type:uuid"`
	MarginPolicyID    *uuid.UUID      `gorm:"column:margin_policy_id;type:uuid"`
	CustomsPolicyID   *uuid.UUID      `gorm:"column:customs_policy_id;type:uuid"`
	Attributes        RuleAttributes  `gorm:"embedded"`
	Lines             []PricingLine   `gorm:"foreignKey:SheetID"`
	TotalBuyAmount    decimal.Decimal `gorm:"column:total_buy_amount;type:numeric(16,4);not null;default:0"`
	TotalExpenses     decimal.Decimal `gorm:"column:total_expenses;type:numeric(16,4);not null;default:0"`
	TotalCustoms      decimal.Decimal `gorm:"column:total_customs;type:numeric(16,4);not null;default:0"`
	TotalSelling      decimal.Decimal `gorm:"column:total_selling;type:numeric(16,4);not null;default:0"`
	SheetFixedTotal   decimal.Decimal `gorm:"column:sheet_fixed_total;type:numeric(16,4);not null;default:0"`
	Warnings          types.Warnings  `gorm:"column:warnings;type:jsonb;serializer:json"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// PricingLine is one item row inside a pricing sheet, hydrated from the item
// catalog and carrying the full computed breakdown.
type PricingLine struct {
	ID                 uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SheetID            uuid.UUID             `gorm:"column:sheet_id;type:uuid;not null;index"`
	Idx                int                   `gorm:"column:idx;not null"`
	ItemCode           string                `gorm:"column:item_code;not null"`
	Qty                decimal.Decimal       `gorm:"column:qty;type:numeric(14,4);not null"`
	ScenarioOverrideID *uuid.UUID            `gorm:"column:scenario_override_id;type:uuid"`
	ResolvedScenarioID *uuid.UUID            `gorm:"column:resolved_scenario_id;type:uuid"`
	Material           string                `gorm:"column:material"`
	UnitWeightKg       decimal.Decimal       `gorm:"column:unit_weight_kg;type:numeric(12,4);not null;default:0"`
	DisplayGroup       string                `gorm:"column:display_group"`
	BuyUnitPrice       decimal.Decimal       `gorm:"column:buy_unit_price;type:numeric(14,4);not null;default:0"`
	BuyPriceMissing    bool                  `gorm:"column:buy_price_missing;not null;default:false"`
	BaseAmount         decimal.Decimal       `gorm:"column:base_amount;type:numeric(16,4);not null;default:0"`
	CustomsCharge      decimal.Decimal       `gorm:"column:customs_charge;type:numeric(16,4);not null;default:0"`
	CustomsBasis       enums.CustomsBasis    `gorm:"column:customs_basis"`
	Steps              types.ExpenseSteps    `gorm:"column:steps;type:jsonb;serializer:json"`
	SheetAllocated     decimal.Decimal       `gorm:"column:sheet_allocated;type:numeric(16,4);not null;default:0"`
	ProjectedUnit      decimal.Decimal       `gorm:"column:projected_unit;type:numeric(16,4);not null;default:0"`
	ProjectedTotal     decimal.Decimal       `gorm:"column:projected_total;type:numeric(16,4);not null;default:0"`
	ManualUnitPrice    *decimal.Decimal      `gorm:"column:manual_unit_price;type:numeric(16,4)"`
	FinalUnitPrice     decimal.Decimal       `gorm:"column:final_unit_price;type:numeric(16,4);not null;default:0"`
	FinalTotal         decimal.Decimal       `gorm:"column:final_total;type:numeric(16,4);not null;default:0"`
	MarginPercent      decimal.Decimal       `gorm:"column:margin_percent;type:numeric(9,4);not null;default:0"`
	BenchmarkPrice     *decimal.Decimal      `gorm:"column:benchmark_price;type:numeric(16,4)"`
	BenchmarkStatus    enums.BenchmarkStatus `gorm:"column:benchmark_status;not null;default:'No Benchmark'"`
	PriceFloorBreached bool                  `gorm:"column:price_floor_breached;not null;default:false"`
	MarginFloorBreached bool                 `gorm:"column:margin_floor_breached;not null;default:false"`
	CreatedAt          time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// ExpenseOverride pins a sheet-local value for one expense template. Rows are
// never hard-deleted; reconciliation marks them stale when the template set
// moves on without them.
type ExpenseOverride struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SheetID    uuid.UUID       `gorm:"column:sheet_id;type:uuid;not null;index"`
	ScenarioID *uuid.UUID      `gorm:"column:scenario_id;type:uuid"`
	LineID     *uuid.UUID      `gorm:"column:line_id;type:uuid"`
	ExpenseKey string          `gorm:"column:expense_key;not null"`
	Value      decimal.Decimal `gorm:"column:value;type:numeric(14,4);not null"`
	IsStale    bool            `gorm:"column:is_stale;not null;default:false"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
