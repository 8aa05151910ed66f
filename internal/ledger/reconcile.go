package ledger

import (
	"math"

	"trade-analytics-terminal/internal/models"
)

// matchTolerance is the largest statement difference that still reconciles.
const matchTolerance = 1.0

// Reconciliation compares the terminal's equity with the broker statement.
type Reconciliation struct {
	RealizedTotal       float64 `json:"realized_total"`
	FloatingTotal       float64 `json:"floating_total"`
	ReconciliationBase  float64 `json:"reconciliation_base"`
	ReconciliationOther float64 `json:"reconciliation_other"`
	NetValue            float64 `json:"net_value"`
}

// Reconcile computes net value = realized + floating - base - other.
func Reconcile(realized, floating float64, settings models.Settings) Reconciliation {
	return Reconciliation{
		RealizedTotal:       realized,
		FloatingTotal:       floating,
		ReconciliationBase:  settings.ReconciliationBase,
		ReconciliationOther: settings.ReconciliationOther,
		NetValue:            realized + floating - settings.ReconciliationBase - settings.ReconciliationOther,
	}
}

// CheckResult is the outcome of comparing a statement value with the net value.
type CheckResult struct {
	StatementValue float64 `json:"statement_value"`
	NetValue       float64 `json:"net_value"`
	Diff           float64 `json:"diff"`
	Match          bool    `json:"is_match"`
	Status         string  `json:"status"`
}

// Check reports whether the statement matches the net value within tolerance.
func Check(statement, netValue float64) CheckResult {
	diff := statement - netValue
	res := CheckResult{
		StatementValue: statement,
		NetValue:       netValue,
		Diff:           diff,
		Match:          math.Abs(diff) < matchTolerance,
	}
	if res.Match {
		res.Status = "matched"
	} else {
		res.Status = "mismatch"
	}
	return res
}
