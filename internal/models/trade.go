package models

import "time"

// TradeStatus is the lifecycle state of a journal entry.
type TradeStatus string

const (
	TradeStatusActive   TradeStatus = "active"
	TradeStatusReversed TradeStatus = "reversed"
)

// TradeType distinguishes executed trades from book adjustments.
// Adjustments change the position without realizing P&L.
type TradeType string

const (
	TradeTypeRegular    TradeType = "regular"
	TradeTypeAdjustment TradeType = "adjustment"
)

// Trade represents a single entry of the trade journal.
// Quantity is signed: positive buys, negative sells.
type Trade struct {
	ID       string      `gorm:"primaryKey" json:"id"`
	Date     time.Time   `gorm:"index;not null" json:"date"`
	Trader   string      `gorm:"size:10;not null" json:"trader"`
	Product  string      `gorm:"size:50;not null" json:"product"`
	Contract string      `gorm:"size:20;not null" json:"contract"`
	Quantity float64     `gorm:"not null" json:"quantity"`
	Price    float64     `gorm:"not null" json:"price"`
	Status   TradeStatus `gorm:"size:16;index;default:active" json:"status"`
	Type     TradeType   `gorm:"size:16;default:regular" json:"type"`
}

// PositionKey returns the key the trade aggregates under.
func (t Trade) PositionKey() string {
	return PositionKey(t.Trader, t.Product, t.Contract)
}

// PositionKey builds the trader-product-contract key of a position.
func PositionKey(trader, product, contract string) string {
	return trader + "-" + product + "-" + contract
}
