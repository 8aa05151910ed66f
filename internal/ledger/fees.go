package ledger

import "math"

// TradeFee is the one-way fee of a quantity.
func TradeFee(quantity, multiplier, feeRate float64) float64 {
	return math.Abs(quantity) * multiplier * feeRate
}

// RoundTripFee is the fee of opening and closing a quantity.
func RoundTripFee(quantity, multiplier, feeRate float64) float64 {
	return 2 * TradeFee(quantity, multiplier, feeRate)
}

// LandedCost converts an average price into a landed cost in RMB per GJ.
// Only Brent and Henry Hub have a landed-cost formula; others return 0.
func LandedCost(product string, avgPrice, exchangeRate float64) float64 {
	switch product {
	case brentProduct:
		return (avgPrice*0.134 + 0.46) * exchangeRate / 28.3
	case "Henry Hub":
		return (avgPrice*1.15 + 4.5) * exchangeRate / 28.3
	default:
		return 0
	}
}
