package ledger

import (
	"math"

	"trade-analytics-terminal/internal/models"
)

// ValuedPosition is a position marked to market.
type ValuedPosition struct {
	Position
	Mtm        float64 `json:"mtm"`
	FloatingPL float64 `json:"floating_pnl"`
	LandedCost float64 `json:"landed_cost"`
}

// ProductGroup aggregates the valued positions of one product.
type ProductGroup struct {
	Product       string           `json:"product"`
	Positions     []ValuedPosition `json:"positions"`
	TotalQuantity float64          `json:"total_quantity"`
	TotalFloating float64          `json:"total_floating"`
	// WeightedAvg is the quantity-weighted average open price of the group.
	WeightedAvg float64 `json:"weighted_avg"`
}

// Valuation is the marked book.
type Valuation struct {
	Positions     []ValuedPosition `json:"positions"`
	Groups        []ProductGroup   `json:"grouped"`
	TotalFloating float64          `json:"total_floating"`
	TotalQuantity float64          `json:"total_quantity"`
	Count         int              `json:"count"`
}

// Value marks every position against the book and groups them by product
// in order of first appearance.
func (e *Engine) Value(positions []Position, book PriceBook, settings models.Settings) Valuation {
	v := Valuation{Positions: make([]ValuedPosition, 0, len(positions)), Count: len(positions)}

	groupIdx := make(map[string]int)
	for _, pos := range positions {
		mtm := book.MarkFor(pos)
		vp := ValuedPosition{
			Position:   pos,
			Mtm:        mtm,
			FloatingPL: e.FloatingPnL(pos, mtm, settings),
			LandedCost: LandedCost(pos.Product, pos.AvgPrice, settings.ExchangeRateRMB),
		}
		v.Positions = append(v.Positions, vp)
		v.TotalFloating += vp.FloatingPL
		v.TotalQuantity += pos.Quantity

		idx, ok := groupIdx[pos.Product]
		if !ok {
			idx = len(v.Groups)
			groupIdx[pos.Product] = idx
			v.Groups = append(v.Groups, ProductGroup{Product: pos.Product})
		}
		g := &v.Groups[idx]
		g.Positions = append(g.Positions, vp)
		g.TotalQuantity += pos.Quantity
		g.TotalFloating += vp.FloatingPL
	}

	for i := range v.Groups {
		g := &v.Groups[i]
		var cost float64
		for _, p := range g.Positions {
			cost += p.TotalValue
		}
		if math.Abs(g.TotalQuantity) > quantityEpsilon {
			g.WeightedAvg = cost / g.TotalQuantity
		}
	}
	return v
}
