package signal

import (
	"math"

	"stocksignal/internal/indicator"
	"stocksignal/internal/models"
)

const (
	RuleRSI         = "RSI"
	RuleMACD        = "MACD"
	RuleGoldenCross = "GoldenCross"
	RuleDeadCross   = "DeadCross"

	maxStrength = 3

	// Lookback window for the support/resistance scan.
	levelWindow = 25
)

// Thresholds are the RSI trigger levels from the user settings.
type Thresholds struct {
	RSIBuy  float64
	RSISell float64
}

// Result is the discrete evaluation of one bar: a direction, the count of
// rules backing it, and which rules fired in the winning direction.
type Result struct {
	Direction   string
	Strength    int
	ActiveRules []string
}

// Evaluate derives the signal at index i from the indicator set. It is a
// pure function of the current and previous bars' values: RSI against the
// thresholds, a MACD line crossing between i-1 and i, and a short/mid SMA
// cross between i-1 and i. Conflicting buy and sell rules yield hold.
func Evaluate(set indicator.Set, i int, th Thresholds) Result {
	var buyRules, sellRules []string

	if i >= 0 && i < len(set.RSI) && indicator.Valid(set.RSI[i]) {
		if set.RSI[i] <= th.RSIBuy {
			buyRules = append(buyRules, RuleRSI)
		} else if set.RSI[i] >= th.RSISell {
			sellRules = append(sellRules, RuleRSI)
		}
	}

	if crossedAbove(set.MACD, set.MACDSignal, i) {
		buyRules = append(buyRules, RuleMACD)
	} else if crossedBelow(set.MACD, set.MACDSignal, i) {
		sellRules = append(sellRules, RuleMACD)
	}

	if crossedAbove(set.SMAShort, set.SMAMid, i) {
		buyRules = append(buyRules, RuleGoldenCross)
	} else if crossedBelow(set.SMAShort, set.SMAMid, i) {
		sellRules = append(sellRules, RuleDeadCross)
	}

	switch {
	case len(buyRules) > 0 && len(sellRules) == 0:
		return Result{Direction: models.SignalBuy, Strength: clamp(len(buyRules)), ActiveRules: buyRules}
	case len(sellRules) > 0 && len(buyRules) == 0:
		return Result{Direction: models.SignalSell, Strength: clamp(len(sellRules)), ActiveRules: sellRules}
	default:
		return Result{Direction: models.SignalHold}
	}
}

// crossedAbove reports whether series a moved from at-or-below b to above b
// between i-1 and i. Both bars must have defined values.
func crossedAbove(a, b []float64, i int) bool {
	if i < 1 || i >= len(a) || i >= len(b) {
		return false
	}
	if !indicator.Valid(a[i-1]) || !indicator.Valid(b[i-1]) || !indicator.Valid(a[i]) || !indicator.Valid(b[i]) {
		return false
	}
	return a[i-1] <= b[i-1] && a[i] > b[i]
}

func crossedBelow(a, b []float64, i int) bool {
	if i < 1 || i >= len(a) || i >= len(b) {
		return false
	}
	if !indicator.Valid(a[i-1]) || !indicator.Valid(b[i-1]) || !indicator.Valid(a[i]) || !indicator.Valid(b[i]) {
		return false
	}
	return a[i-1] >= b[i-1] && a[i] < b[i]
}

func clamp(n int) int {
	if n > maxStrength {
		return maxStrength
	}
	return n
}

// PriceLevels are the derived trade levels for one bar.
type PriceLevels struct {
	Support    float64
	Resistance float64
	Target     float64
	StopLoss   float64
}

// Levels scans the trailing window of highs and lows ending at index i for
// support and resistance, then derives target and stop prices for the given
// direction. A sell signal flips the levels: the target is support, the stop
// is resistance.
func Levels(highs, lows []float64, i int, price, smaLong float64, direction string) PriceLevels {
	support, resistance := price, price
	if i >= 0 && i < len(lows) && i < len(highs) {
		start := i - levelWindow + 1
		if start < 0 {
			start = 0
		}
		support = lows[start]
		resistance = highs[start]
		for j := start + 1; j <= i; j++ {
			if lows[j] < support {
				support = lows[j]
			}
			if highs[j] > resistance {
				resistance = highs[j]
			}
		}
	}

	levels := PriceLevels{Support: support, Resistance: resistance}
	if direction == models.SignalSell {
		levels.Target = support
		levels.StopLoss = resistance
		return levels
	}

	target := price * 1.10
	if resistance > target {
		target = resistance
	}
	if !math.IsNaN(smaLong) && smaLong > price && smaLong > target {
		target = smaLong
	}
	stop := price * 0.95
	if support > stop && support < price {
		stop = support
	}
	levels.Target = target
	levels.StopLoss = stop
	return levels
}
