package models

// RuleAttributes is the fixed set of optional match dimensions shared by
// every policy rule. An empty field is a wildcard and matches any context.
type RuleAttributes struct {
	SalesPerson        string `gorm:"column:sales_person" json:"sales_person,omitempty"`
	GeographyTerritory string `gorm:"column:geography_territory" json:"geography_territory,omitempty"`
	GeographyCountry   string `gorm:"column:geography_country" json:"geography_country,omitempty"`
	GeographyCity      string `gorm:"column:geography_city" json:"geography_city,omitempty"`
	GeographyRegion    string `gorm:"column:geography_region" json:"geography_region,omitempty"`
	CustomerSegment    string `gorm:"column:customer_segment" json:"customer_segment,omitempty"`
	CustomerType       string `gorm:"column:customer_type" json:"customer_type,omitempty"`
	Tier               string `gorm:"column:tier" json:"tier,omitempty"`
	Item               string `gorm:"column:item" json:"item,omitempty"`
	SourceBundle       string `gorm:"column:source_bundle" json:"source_bundle,omitempty"`
	ItemGroup          string `gorm:"column:item_group" json:"item_group,omitempty"`
	Material           string `gorm:"column:material" json:"material,omitempty"`
}
