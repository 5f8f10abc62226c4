package models

import "time"

const (
	DiscountPercentage = "percentage"
	DiscountFixed      = "fixed"
)

type ShippingMethod struct {
	ID                    uint     `gorm:"primaryKey"          json:"id"`
	Name                  string   `gorm:"size:128;not null"   json:"name"`
	Description           string   `gorm:"size:255"            json:"description,omitempty"`
	BaseCost              float64  `gorm:"not null"            json:"base_cost"`
	CostPerItem           float64  `gorm:"not null"            json:"cost_per_item"`
	FreeShippingThreshold *float64 `json:"free_shipping_threshold,omitempty"`
	EstimatedDaysMin      int      `gorm:"not null"            json:"estimated_days_min"`
	EstimatedDaysMax      int      `gorm:"not null"            json:"estimated_days_max"`
	IsActive              bool     `gorm:"not null"            json:"is_active"`
	SortOrder             int      `gorm:"not null;default:0"  json:"sort_order"`
}

func (ShippingMethod) TableName() string { return "shipping_methods" }

// TaxRate.Rate is a percentage: 7.5 means 7.5%.
type TaxRate struct {
	ID       uint    `gorm:"primaryKey"                json:"id"`
	Country  string  `gorm:"size:2;uniqueIndex;not null" json:"country"`
	Rate     float64 `gorm:"not null"                  json:"rate"`
	IsActive bool    `gorm:"not null"                  json:"is_active"`
}

func (TaxRate) TableName() string { return "tax_rates" }

type Discount struct {
	ID                uint       `gorm:"primaryKey"                  json:"id"`
	Code              string     `gorm:"size:64;uniqueIndex;not null" json:"code"`
	Type              string     `gorm:"size:16;not null"            json:"type"`
	Value             float64    `gorm:"not null"                    json:"value"`
	MinOrderAmount    float64    `gorm:"not null;default:0"          json:"min_order_amount"`
	MaxDiscountAmount *float64   `json:"max_discount_amount,omitempty"`
	UsageLimit        *int       `json:"usage_limit,omitempty"`
	UsageCount        int        `gorm:"not null;default:0"          json:"usage_count"`
	ValidFrom         *time.Time `json:"valid_from,omitempty"`
	ValidUntil        *time.Time `json:"valid_until,omitempty"`
	IsActive          bool       `gorm:"not null"                    json:"is_active"`
	CreatedAt         time.Time  `json:"created_at"`
}

func (Discount) TableName() string { return "discounts" }
