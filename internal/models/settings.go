package models

// DefaultSettingsID is the primary key of the single settings row.
const DefaultSettingsID = "default"

// Settings holds the desk parameters that drive fees, conversions and reconciliation.
type Settings struct {
	ID                  string  `gorm:"primaryKey" json:"-"`
	BrentFeePerBbl      float64 `json:"brent_fee_per_bbl"`
	GasFeePerMMBtu      float64 `json:"gas_fee_per_mmbtu"`
	ExchangeRateRMB     float64 `json:"exchange_rate_rmb"`
	InitialRealizedPL   float64 `json:"initial_realized_pl"`
	ReconciliationBase  float64 `json:"reconciliation_base"`
	ReconciliationOther float64 `json:"reconciliation_other"`
	TTFMultiplier       float64 `json:"ttf_multiplier"`
}
