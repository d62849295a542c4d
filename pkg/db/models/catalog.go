package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Item is the catalog record hydrating pricing and logistics lines.
type Item struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code             string          `gorm:"column:code;not null;uniqueIndex"`
	Name             string          `gorm:"column:name;not null"`
	ItemGroup        string          `gorm:"column:item_group"`
	Material         string          `gorm:"column:material"`
	UnitWeightKg     float64         `gorm:"column:unit_weight_kg;not null;default:0"`
	UnitVolumeM3     float64         `gorm:"column:unit_volume_m3;not null;default:0"`
	LengthCm         float64         `gorm:"column:length_cm;not null;default:0"`
	WidthCm          float64         `gorm:"column:width_cm;not null;default:0"`
	HeightCm         float64         `gorm:"column:height_cm;not null;default:0"`
	CurrentCostPrice decimal.Decimal `gorm:"column:current_cost_price;type:numeric(14,4);not null;default:0"`
	IsPlaceholder    bool            `gorm:"column:is_placeholder;not null;default:false"`
	IsActive         bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// PriceListEntry is one dated rate row inside a named price list.
type PriceListEntry struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PriceList string          `gorm:"column:price_list;not null;index:idx_price_list_item"`
	ItemCode  string          `gorm:"column:item_code;not null;index:idx_price_list_item"`
	Rate      decimal.Decimal `gorm:"column:rate;type:numeric(14,4);not null"`
	ValidFrom time.Time       `gorm:"column:valid_from;not null"`
	Buying    bool            `gorm:"column:buying;not null;default:false"`
	Enabled   bool            `gorm:"column:enabled;not null;default:true"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// MarketPriceEntry tracks a competitor price against our current cost.
type MarketPriceEntry struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ItemCode          string          `gorm:"column:item_code;not null;index"`
	Source            string          `gorm:"column:source"`
	MarketPrice       decimal.Decimal `gorm:"column:market_price;type:numeric(14,4);not null"`
	OurCurrentPrice   decimal.Decimal `gorm:"column:our_current_price;type:numeric(14,4);not null;default:0"`
	Difference        decimal.Decimal `gorm:"column:difference;type:numeric(14,4);not null;default:0"`
	DifferencePercent decimal.Decimal `gorm:"column:difference_percent;type:numeric(9,4);not null;default:0"`
	RecordedAt        time.Time       `gorm:"column:recorded_at;not null"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// ItemCostHistory is an append-only archive of superseded cost prices.
type ItemCostHistory struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ItemCode  string          `gorm:"column:item_code;not null;index"`
	CostPrice decimal.Decimal `gorm:"column:cost_price;type:numeric(14,4);not null"`
	Actor     string          `gorm:"column:actor"`
	Notes     string          `gorm:"column:notes"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}
