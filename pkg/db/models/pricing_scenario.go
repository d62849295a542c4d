package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orderlift/orderlift-backend/pkg/enums"
)

// PricingScenario bundles the expense templates and price-list references
// used to project a line's sell price.
type PricingScenario struct {
	ID                 uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name               string            `gorm:"column:name;not null;uniqueIndex"`
	BuyingPriceList    string            `gorm:"column:buying_price_list;not null;default:'Buying'"`
	BenchmarkPriceList string            `gorm:"column:benchmark_price_list;not null;default:'Benchmark Selling'"`
	IsActive           bool              `gorm:"column:is_active;not null;default:true"`
	Expenses           []ExpenseTemplate `gorm:"foreignKey:ScenarioID"`
	CreatedAt          time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// ExpenseTemplate is one cost/markup step inside a scenario's stacking order.
type ExpenseTemplate struct {
	ID         uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ScenarioID uuid.UUID          `gorm:"column:scenario_id;type:uuid;not null;index"`
	Label      string             `gorm:"column:label;not null"`
	Type       enums.ExpenseType  `gorm:"column:type;not null"`
	AppliesTo  enums.ExpenseBasis `gorm:"column:applies_to;not null;default:'Running Total'"`
	Scope      enums.ExpenseScope `gorm:"column:scope;not null;default:'Per Unit'"`
	Value      decimal.Decimal    `gorm:"column:value;type:numeric(14,4);not null"`
	Sequence   int                `gorm:"column:sequence;not null;default:90"`
	Idx        int                `gorm:"column:idx;not null;default:0"`
	IsActive   bool               `gorm:"column:is_active;not null;default:true"`
	CreatedAt  time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
