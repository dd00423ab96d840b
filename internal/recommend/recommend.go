package recommend

import (
	"sort"

	"github.com/shopspring/decimal"

	"stocksignal/internal/models"
)

// Candidate is one watched code with a non-hold signal, as assembled from
// the latest signal records.
type Candidate struct {
	Code          string
	Name          string
	SignalType    string
	Strength      int
	CurrentPrice  float64
	TargetPrice   *float64
	StopLossPrice *float64
	ActiveRules   []string
	// Quantity currently held; sized sells never exceed it.
	HeldQuantity int64
}

// Item is one ranked recommendation.
type Item struct {
	Code                  string          `json:"code"`
	Name                  string          `json:"name"`
	SignalType            string          `json:"signalType"`
	Strength              int             `json:"signalStrength"`
	CurrentPrice          float64         `json:"currentPrice"`
	SuggestedQuantity     int64           `json:"suggestedQuantity"`
	SuggestedAmount       decimal.Decimal `json:"suggestedAmount"`
	TargetPrice           *float64        `json:"targetPrice"`
	StopLossPrice         *float64        `json:"stopLossPrice"`
	ActiveRules           []string        `json:"activeSignals"`
	ExpectedProfitPercent float64         `json:"expectedProfitPercent"`
}

// Build partitions the candidates into ranked buy and sell lists. Buys are
// sized against the investment budget: each position gets the lesser of the
// remaining budget and budget*maxPositionPercent, allocated in rank order.
// Sells suggest closing the held quantity.
func Build(candidates []Candidate, budget decimal.Decimal, maxPositionPercent float64) (buys, sells []Item) {
	var buyCands, sellCands []Candidate
	for _, c := range candidates {
		switch c.SignalType {
		case models.SignalBuy:
			buyCands = append(buyCands, c)
		case models.SignalSell:
			sellCands = append(sellCands, c)
		}
	}

	rank(buyCands)
	rank(sellCands)

	perPositionCap := budget.Mul(decimal.NewFromFloat(maxPositionPercent / 100))
	remaining := budget
	for _, c := range buyCands {
		item := toItem(c)
		if c.CurrentPrice > 0 {
			alloc := remaining
			if perPositionCap.LessThan(alloc) {
				alloc = perPositionCap
			}
			price := decimal.NewFromFloat(c.CurrentPrice)
			qty := alloc.Div(price).Floor().IntPart()
			if qty > 0 {
				item.SuggestedQuantity = qty
				item.SuggestedAmount = price.Mul(decimal.NewFromInt(qty))
				remaining = remaining.Sub(item.SuggestedAmount)
			}
		}
		buys = append(buys, item)
	}

	for _, c := range sellCands {
		item := toItem(c)
		item.SuggestedQuantity = c.HeldQuantity
		if c.HeldQuantity > 0 {
			item.SuggestedAmount = decimal.NewFromFloat(c.CurrentPrice).Mul(decimal.NewFromInt(c.HeldQuantity))
		}
		sells = append(sells, item)
	}

	return buys, sells
}

func toItem(c Candidate) Item {
	return Item{
		Code:                  c.Code,
		Name:                  c.Name,
		SignalType:            c.SignalType,
		Strength:              c.Strength,
		CurrentPrice:          c.CurrentPrice,
		SuggestedAmount:       decimal.Zero,
		TargetPrice:           c.TargetPrice,
		StopLossPrice:         c.StopLossPrice,
		ActiveRules:           c.ActiveRules,
		ExpectedProfitPercent: expectedProfit(c),
	}
}

// expectedProfit is the percentage move from the current price to the
// target, in the direction the signal points.
func expectedProfit(c Candidate) float64 {
	if c.TargetPrice == nil || c.CurrentPrice <= 0 {
		return 0
	}
	move := (*c.TargetPrice - c.CurrentPrice) / c.CurrentPrice * 100
	if c.SignalType == models.SignalSell {
		move = -move
	}
	return move
}

// rank orders by strength descending, expected profit descending, then code
// ascending for a stable tie-break.
func rank(items []Candidate) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Strength != items[j].Strength {
			return items[i].Strength > items[j].Strength
		}
		pi, pj := expectedProfit(items[i]), expectedProfit(items[j])
		if pi != pj {
			return pi > pj
		}
		return items[i].Code < items[j].Code
	})
}
