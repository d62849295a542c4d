package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orderlift/orderlift-backend/pkg/enums"
)

// Quotation is the terminal export of a pricing sheet. It is written once
// and never recomputed by the pricing engine.
type Quotation struct {
	ID        uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string              `gorm:"column:name;not null;uniqueIndex"`
	SheetID   uuid.UUID           `gorm:"column:sheet_id;type:uuid;not null;index"`
	Customer  string              `gorm:"column:customer;not null"`
	Mode      enums.QuotationMode `gorm:"column:mode;not null"`
	Lines     []QuotationLine     `gorm:"foreignKey:QuotationID"`
	CreatedBy string              `gorm:"column:created_by"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
}

// QuotationLine is one exported row: a sheet line in detailed mode, or one
// display-group/scenario aggregate in grouped mode.
type QuotationLine struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	QuotationID  uuid.UUID       `gorm:"column:quotation_id;type:uuid;not null;index"`
	Idx          int             `gorm:"column:idx;not null"`
	ItemCode     string          `gorm:"column:item_code;not null"`
	DisplayGroup string          `gorm:"column:display_group"`
	ScenarioID   *uuid.UUID      `gorm:"column:scenario_id;type:uuid"`
	Qty          decimal.Decimal `gorm:"column:qty;type:numeric(14,4);not null"`
	Rate         decimal.Decimal `gorm:"column:rate;type:numeric(16,4);not null"`
	Amount       decimal.Decimal `gorm:"column:amount;type:numeric(16,4);not null"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
}
