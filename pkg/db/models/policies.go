package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orderlift/orderlift-backend/pkg/enums"
)

// MarginPolicy owns the ordered margin rules resolved per pricing line.
type MarginPolicy struct {
	ID        uuid.UUID    `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string       `gorm:"column:name;not null;uniqueIndex"`
	IsActive  bool         `gorm:"column:is_active;not null;default:true"`
	Rules     []MarginRule `gorm:"foreignKey:PolicyID"`
	CreatedAt time.Time    `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time    `gorm:"column:updated_at;autoUpdateTime"`
}

// MarginRule carries a margin percentage applied on top of the stacked cost.
type MarginRule struct {
	ID             uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PolicyID       uuid.UUID          `gorm:"column:policy_id;type:uuid;not null;index"`
	RuleAttributes `gorm:"embedded"`
	MarginPercent  decimal.Decimal    `gorm:"column:margin_percent;type:numeric(9,4);not null"`
	AppliesTo      enums.ExpenseBasis `gorm:"column:applies_to;not null;default:'Running Total'"`
	Priority       int                `gorm:"column:priority;not null;default:10"`
	Sequence       int                `gorm:"column:sequence;not null;default:90"`
	Idx            int                `gorm:"column:idx;not null;default:0"`
	IsActive       bool               `gorm:"column:is_active;not null;default:true"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime"`
}

// CustomsPolicy owns the customs rate rules resolved per material.
type CustomsPolicy struct {
	ID        uuid.UUID     `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string        `gorm:"column:name;not null;uniqueIndex"`
	IsActive  bool          `gorm:"column:is_active;not null;default:true"`
	Rules     []CustomsRule `gorm:"foreignKey:PolicyID"`
	CreatedAt time.Time     `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time     `gorm:"column:updated_at;autoUpdateTime"`
}

// CustomsRule holds the weight and percentage customs rates for a material.
type CustomsRule struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PolicyID       uuid.UUID       `gorm:"column:policy_id;type:uuid;not null;index"`
	RuleAttributes `gorm:"embedded"`
	RatePerKg      decimal.Decimal `gorm:"column:rate_per_kg;type:numeric(12,4);not null"`
	RatePercent    decimal.Decimal `gorm:"column:rate_percent;type:numeric(9,4);not null"`
	Priority       int             `gorm:"column:priority;not null;default:10"`
	Sequence       int             `gorm:"column:sequence;not null;default:90"`
	Idx            int             `gorm:"column:idx;not null;default:0"`
	IsActive       bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// ScenarioPolicy owns the assignment rules that pick a pricing scenario
// for a line when no explicit override or sheet default applies first.
type ScenarioPolicy struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string         `gorm:"column:name;not null;uniqueIndex"`
	IsActive  bool           `gorm:"column:is_active;not null;default:true"`
	Rules     []ScenarioRule `gorm:"foreignKey:PolicyID"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// ScenarioRule maps a match context to a target pricing scenario.
type ScenarioRule struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PolicyID       uuid.UUID `gorm:"column:policy_id;type:uuid;not null;index"`
	RuleAttributes `gorm:"embedded"`
	ScenarioID     uuid.UUID `gorm:"column:scenario_id;type:uuid;not null"`
	Priority       int       `gorm:"column:priority;not null;default:10"`
	Sequence       int       `gorm:"column:sequence;not null;default:90"`
	Idx            int       `gorm:"column:idx;not null;default:0"`
	IsActive       bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}
