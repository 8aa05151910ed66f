package models

import "time"

// GenericProduct marks a price that applies to a contract code of any product.
const GenericProduct = "GENERIC"

// MarketPrice is a mark-to-market price for one product contract.
type MarketPrice struct {
	ID        string    `gorm:"primaryKey" json:"-"`
	Product   string    `gorm:"size:50;not null;index:idx_product_contract" json:"product"`
	Contract  string    `gorm:"size:20;not null;index:idx_product_contract" json:"contract"`
	Price     float64   `gorm:"not null" json:"price"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ScopedKey returns the product::contract key of a price.
func ScopedKey(product, contract string) string {
	return product + "::" + contract
}

// DailyPackage is an externally produced market snapshot with news.
type DailyPackage struct {
	ID        string             `gorm:"primaryKey" json:"-"`
	Date      string             `gorm:"size:10;not null;index" json:"date"`
	Prices    map[string]float64 `gorm:"serializer:json;not null" json:"prices"`
	NewsText  string             `json:"news_text"`
	CreatedAt time.Time          `json:"created_at"`
}
