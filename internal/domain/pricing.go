package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Currency is a priced currency, looked up by its ISO code.
type Currency struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
}

// TaxRatio is a tax rate, looked up by its percentage.
type TaxRatio struct {
	ID         int64           `json:"id"`
	Percentage decimal.Decimal `json:"percentage"`
}

// PriceLevel is a customer price tier.
type PriceLevel struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// PriceKey addresses a single price fact of an object.
// A nil PriceLevelID means the base price.
type PriceKey struct {
	Currency     string
	TaxRatio     decimal.Decimal
	PriceLevelID *int64
}

// Price is one cell of an object's price matrix.
type Price struct {
	ID                int64           `json:"id"`
	Object            ObjectRef       `json:"object"`
	Currency          string          `json:"currency"`
	TaxRatio          decimal.Decimal `json:"tax_ratio"`
	PriceLevelID      *int64          `json:"price_level_id,omitempty"`
	PriceExcludingTax decimal.Decimal `json:"price_excluding_tax"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// OldPrice is a historical price, kept without price levels.
type OldPrice struct {
	ID                int64           `json:"id"`
	Object            ObjectRef       `json:"object"`
	Currency          string          `json:"currency"`
	TaxRatio          decimal.Decimal `json:"tax_ratio"`
	PriceExcludingTax decimal.Decimal `json:"price_excluding_tax"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}
