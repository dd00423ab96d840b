package risk

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"stocksignal/internal/models"
)

const (
	LevelError   = "error"
	LevelWarning = "warning"
	LevelInfo    = "info"

	CheckOK      = "ok"
	CheckWarning = "warning"
	CheckNeutral = "neutral"

	// Advisory warning kicks in at this share of the position cap.
	nearLimitRatio = 0.8
)

// Rules is the mutable risk-rule singleton. Percent fields are whole
// percentages, e.g. 30 means 30%.
type Rules struct {
	MaxPositionPercent float64 `json:"maxPositionPercent"`
	MaxLossPerTrade    float64 `json:"maxLossPerTrade"`
	MaxPortfolioLoss   float64 `json:"maxPortfolioLoss"`
	MaxOpenPositions   int     `json:"maxOpenPositions"`
}

func DefaultRules() Rules {
	return Rules{
		MaxPositionPercent: 30,
		MaxLossPerTrade:    5,
		MaxPortfolioLoss:   10,
		MaxOpenPositions:   5,
	}
}

// Finding is one evaluation remark. Only error-level findings block.
type Finding struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Snapshot is the portfolio state a trade is judged against.
type Snapshot struct {
	// Open positions marked to current prices.
	PortfolioValue decimal.Decimal
	// Total weighted-average cost of the open positions.
	CostBasis decimal.Decimal
	// Quantity held per code; only positive positions appear.
	Held map[string]int64
	// Stop-loss level from the latest signal for the evaluated code, when
	// one exists.
	StopLossPrice *float64
}

// Evaluation is the outcome of checking one proposed trade. Computed per
// request, never persisted. A rejection is a result, not an error.
type Evaluation struct {
	Passed                bool            `json:"passed"`
	Warnings              []Finding       `json:"warnings"`
	TradeAmount           decimal.Decimal `json:"tradeAmount"`
	CurrentPortfolioValue decimal.Decimal `json:"currentPortfolioValue"`
	ActivePositions       int             `json:"activePositions"`
}

// EvaluateTrade checks a proposed fill against the rules and portfolio
// state. Passed is false exactly when an error-level finding exists.
func EvaluateTrade(code, tradeType string, quantity int64, price decimal.Decimal, snapshot Snapshot, rules Rules) Evaluation {
	tradeAmount := price.Mul(decimal.NewFromInt(quantity))
	eval := Evaluation{
		TradeAmount:           tradeAmount,
		CurrentPortfolioValue: snapshot.PortfolioValue,
		ActivePositions:       len(snapshot.Held),
	}

	if tradeType == models.TradeTypeSell {
		if held := snapshot.Held[code]; held < quantity {
			eval.add(LevelError, fmt.Sprintf("selling %d exceeds the %d held for %s", quantity, held, code))
		}
		eval.Passed = !eval.hasError()
		return eval
	}

	// Open-position count applies to new codes only; adding to an existing
	// position never trips it.
	if _, held := snapshot.Held[code]; !held {
		switch {
		case len(snapshot.Held) >= rules.MaxOpenPositions:
			eval.add(LevelError, fmt.Sprintf("open positions already at the limit of %d", rules.MaxOpenPositions))
		case len(snapshot.Held) == rules.MaxOpenPositions-1:
			eval.add(LevelWarning, "this trade opens the last allowed position")
		}
	}

	// Concentration of the new position against the post-trade portfolio.
	if newTotal := snapshot.PortfolioValue.Add(tradeAmount); newTotal.IsPositive() {
		share, _ := tradeAmount.Div(newTotal).Float64()
		sharePct := share * 100
		switch {
		case sharePct > rules.MaxPositionPercent:
			eval.add(LevelError, fmt.Sprintf("trade would be %.1f%% of the portfolio, above the %.0f%% limit", sharePct, rules.MaxPositionPercent))
		case sharePct > rules.MaxPositionPercent*nearLimitRatio:
			eval.add(LevelWarning, fmt.Sprintf("trade would be %.1f%% of the portfolio, close to the %.0f%% limit", sharePct, rules.MaxPositionPercent))
		}
	}

	// Distance to the stop from the latest signal.
	if snapshot.StopLossPrice != nil {
		entry, _ := price.Float64()
		if entry > 0 {
			lossPct := (entry - *snapshot.StopLossPrice) / entry * 100
			if lossPct > rules.MaxLossPerTrade {
				eval.add(LevelError, fmt.Sprintf("loss to the stop line is %.1f%%, above the %.0f%% per-trade limit", lossPct, rules.MaxLossPerTrade))
			}
		}
	}

	// Current drawdown of the whole book against its cost basis.
	if snapshot.CostBasis.IsPositive() {
		lossPct, _ := snapshot.CostBasis.Sub(snapshot.PortfolioValue).
			Div(snapshot.CostBasis).Float64()
		lossPct *= 100
		if lossPct > rules.MaxPortfolioLoss {
			eval.add(LevelError, fmt.Sprintf("portfolio is down %.1f%%, above the %.0f%% loss limit", lossPct, rules.MaxPortfolioLoss))
		}
	}

	eval.Passed = !eval.hasError()
	return eval
}

func (e *Evaluation) add(level, message string) {
	e.Warnings = append(e.Warnings, Finding{Level: level, Message: message})
}

func (e *Evaluation) hasError() bool {
	for _, w := range e.Warnings {
		if w.Level == LevelError {
			return true
		}
	}
	return false
}

// ChecklistItem is one qualitative pre-trade check. Informative only.
type ChecklistItem struct {
	Label  string `json:"label"`
	Status string `json:"status"`
	Detail string `json:"detail"`
}

// ChecklistInput is the latest known state for the code under review. Nil
// pointers mean the value is not available yet.
type ChecklistInput struct {
	SignalType    string
	Strength      int
	RSI           *float64
	MACD          *float64
	MACDSignal    *float64
	TargetPrice   *float64
	StopLossPrice *float64
	CurrentPrice  *float64
}

// Checklist builds the ordered qualitative review for one code. Nothing
// here ever blocks a trade.
func Checklist(in ChecklistInput, rules Rules) []ChecklistItem {
	var items []ChecklistItem

	if in.SignalType != "" {
		status := CheckWarning
		if in.SignalType == models.SignalBuy || in.SignalType == models.SignalSell {
			status = CheckOK
		}
		items = append(items, ChecklistItem{
			Label:  "current signal: " + in.SignalType,
			Status: status,
			Detail: fmt.Sprintf("strength %d/3", in.Strength),
		})
	}

	if in.RSI != nil {
		rsi := *in.RSI
		item := ChecklistItem{Label: fmt.Sprintf("RSI %.1f", rsi)}
		switch {
		case rsi <= 30:
			item.Status = CheckOK
			item.Detail = "oversold zone, favorable for buying"
		case rsi >= 70:
			item.Status = CheckWarning
			item.Detail = "overbought zone, consider selling"
		default:
			item.Status = CheckNeutral
			item.Detail = "neutral zone"
		}
		items = append(items, item)
	}

	if in.MACD != nil && in.MACDSignal != nil {
		above := *in.MACD > *in.MACDSignal
		status := CheckWarning
		label := "MACD below signal line"
		if above {
			status = CheckOK
			label = "MACD above signal line"
		}
		items = append(items, ChecklistItem{
			Label:  label,
			Status: status,
			Detail: fmt.Sprintf("MACD=%.2f signal=%.2f", *in.MACD, *in.MACDSignal),
		})
	}

	if in.TargetPrice != nil && in.CurrentPrice != nil && *in.CurrentPrice > 0 {
		upside := (*in.TargetPrice - *in.CurrentPrice) / *in.CurrentPrice * 100
		status := CheckWarning
		if upside > 0 {
			status = CheckOK
		}
		items = append(items, ChecklistItem{
			Label:  fmt.Sprintf("target price %.0f", *in.TargetPrice),
			Status: status,
			Detail: fmt.Sprintf("upside %+.1f%%", upside),
		})
	}

	if in.StopLossPrice != nil && in.CurrentPrice != nil && *in.CurrentPrice > 0 {
		downside := (*in.StopLossPrice - *in.CurrentPrice) / *in.CurrentPrice * 100
		status := CheckWarning
		if math.Abs(downside) <= rules.MaxLossPerTrade {
			status = CheckOK
		}
		items = append(items, ChecklistItem{
			Label:  fmt.Sprintf("stop-loss line %.0f", *in.StopLossPrice),
			Status: status,
			Detail: fmt.Sprintf("downside %.1f%%", downside),
		})
	}

	items = append(items, ChecklistItem{
		Label:  fmt.Sprintf("max open positions %d", rules.MaxOpenPositions),
		Status: CheckNeutral,
		Detail: "from risk settings",
	})

	return items
}

// PriceSuggestion is one proposed limit or stop order level.
type PriceSuggestion struct {
	Type   string  `json:"type"`
	Label  string  `json:"label"`
	Price  float64 `json:"price"`
	Reason string  `json:"reason"`
}

// SuggestInput carries the latest price and signal levels for a code.
type SuggestInput struct {
	CurrentPrice  float64
	SupportPrice  *float64
	StopLossPrice *float64
	TargetPrice   *float64
}

// SuggestPrices derives limit, stop-loss, take-profit and trailing-stop
// levels from the current price and the signal's support/target lines.
func SuggestPrices(in SuggestInput) []PriceSuggestion {
	if in.CurrentPrice <= 0 {
		return nil
	}
	var out []PriceSuggestion

	if in.SupportPrice != nil {
		out = append(out, PriceSuggestion{
			Type:   "limit_buy",
			Label:  "limit near support",
			Price:  round1(*in.SupportPrice * 1.005),
			Reason: fmt.Sprintf("buy limit just above the %.0f support line", *in.SupportPrice),
		})
	}

	out = append(out, PriceSuggestion{
		Type:   "limit_buy",
		Label:  "limit at current minus 2%",
		Price:  round1(in.CurrentPrice * 0.98),
		Reason: "buy on a 2% dip from the current price",
	})

	if in.StopLossPrice != nil {
		out = append(out, PriceSuggestion{
			Type:   "stop_loss",
			Label:  "stop-loss",
			Price:  round1(*in.StopLossPrice),
			Reason: "stop line from the technical levels",
		})
	}

	if in.TargetPrice != nil {
		out = append(out, PriceSuggestion{
			Type:   "take_profit",
			Label:  "take-profit limit",
			Price:  round1(*in.TargetPrice),
			Reason: "target price from the technical levels",
		})
	}

	out = append(out, PriceSuggestion{
		Type:   "trailing_stop",
		Label:  "5% trailing stop",
		Price:  round1(in.CurrentPrice * 0.95),
		Reason: "cut losses 5% below the current price",
	})

	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
