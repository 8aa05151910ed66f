// Package report renders the book as CSV exports and text reports.
package report

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02T15:04:05"
	stampLayout    = "2006-01-02 15:04:05"
)

var printer = message.NewPrinter(language.English)

// fixed rounds v half away from zero to places decimals.
func fixed(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}

// grouped formats v with thousands separators.
func grouped(v float64, places int) string {
	return printer.Sprintf("%.*f", places, v)
}

// usd formats v as a dollar amount, e.g. -$1,234.50.
func usd(v float64) string {
	return money.NewFromFloat(v, money.USD).Display()
}

// decimalString formats v with the fewest digits that round-trip.
func decimalString(v float64) string {
	return decimal.NewFromFloat(v).String()
}
