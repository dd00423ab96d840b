package signal

import (
	"math"
	"reflect"
	"testing"

	"stocksignal/internal/indicator"
	"stocksignal/internal/models"
)

var testThresholds = Thresholds{RSIBuy: 30, RSISell: 70}

// twoBarSet builds an indicator set with exactly two bars, [prev, cur] per
// series.
func twoBarSet(rsi, macd, macdSig, smaShort, smaMid [2]float64) indicator.Set {
	return indicator.Set{
		RSI:        []float64{rsi[0], rsi[1]},
		MACD:       []float64{macd[0], macd[1]},
		MACDSignal: []float64{macdSig[0], macdSig[1]},
		SMAShort:   []float64{smaShort[0], smaShort[1]},
		SMAMid:     []float64{smaMid[0], smaMid[1]},
	}
}

func TestEvaluateRSIBuy(t *testing.T) {
	set := twoBarSet(
		[2]float64{40, 25},
		[2]float64{1, 1}, [2]float64{2, 2},
		[2]float64{10, 10}, [2]float64{11, 11},
	)
	got := Evaluate(set, 1, testThresholds)
	if got.Direction != models.SignalBuy || got.Strength != 1 {
		t.Fatalf("got %+v want buy strength 1", got)
	}
	if !reflect.DeepEqual(got.ActiveRules, []string{RuleRSI}) {
		t.Fatalf("rules got %v want [RSI]", got.ActiveRules)
	}
}

func TestEvaluateRSISell(t *testing.T) {
	set := twoBarSet(
		[2]float64{60, 75},
		[2]float64{2, 2}, [2]float64{1, 1},
		[2]float64{11, 11}, [2]float64{10, 10},
	)
	got := Evaluate(set, 1, testThresholds)
	if got.Direction != models.SignalSell || got.Strength != 1 {
		t.Fatalf("got %+v want sell strength 1", got)
	}
}

func TestEvaluateMACDCross(t *testing.T) {
	set := twoBarSet(
		[2]float64{50, 50},
		[2]float64{-1, 2}, [2]float64{0, 0},
		[2]float64{10, 10}, [2]float64{11, 11},
	)
	got := Evaluate(set, 1, testThresholds)
	if got.Direction != models.SignalBuy {
		t.Fatalf("direction got %s want buy", got.Direction)
	}
	if !reflect.DeepEqual(got.ActiveRules, []string{RuleMACD}) {
		t.Fatalf("rules got %v want [MACD]", got.ActiveRules)
	}
}

func TestEvaluateGoldenAndDeadCross(t *testing.T) {
	golden := twoBarSet(
		[2]float64{50, 50},
		[2]float64{1, 1}, [2]float64{2, 2},
		[2]float64{9, 12}, [2]float64{10, 10},
	)
	got := Evaluate(golden, 1, testThresholds)
	if got.Direction != models.SignalBuy || !reflect.DeepEqual(got.ActiveRules, []string{RuleGoldenCross}) {
		t.Fatalf("golden cross got %+v", got)
	}

	dead := twoBarSet(
		[2]float64{50, 50},
		[2]float64{2, 2}, [2]float64{1, 1},
		[2]float64{12, 9}, [2]float64{10, 10},
	)
	got = Evaluate(dead, 1, testThresholds)
	if got.Direction != models.SignalSell || !reflect.DeepEqual(got.ActiveRules, []string{RuleDeadCross}) {
		t.Fatalf("dead cross got %+v", got)
	}
}

func TestEvaluateConflictHolds(t *testing.T) {
	// RSI says buy while the short SMA crosses below the mid SMA.
	set := twoBarSet(
		[2]float64{40, 25},
		[2]float64{1, 1}, [2]float64{2, 2},
		[2]float64{12, 9}, [2]float64{10, 10},
	)
	got := Evaluate(set, 1, testThresholds)
	if got.Direction != models.SignalHold || got.Strength != 0 || len(got.ActiveRules) != 0 {
		t.Fatalf("conflict got %+v want hold", got)
	}
}

func TestEvaluateNoRulesHolds(t *testing.T) {
	set := twoBarSet(
		[2]float64{50, 50},
		[2]float64{2, 2}, [2]float64{1, 1},
		[2]float64{11, 11}, [2]float64{10, 10},
	)
	got := Evaluate(set, 1, testThresholds)
	if got.Direction != models.SignalHold {
		t.Fatalf("got %+v want hold", got)
	}
}

func TestEvaluateStrengthClamped(t *testing.T) {
	set := twoBarSet(
		[2]float64{40, 25},
		[2]float64{-1, 2}, [2]float64{0, 0},
		[2]float64{9, 12}, [2]float64{10, 10},
	)
	got := Evaluate(set, 1, testThresholds)
	if got.Direction != models.SignalBuy || got.Strength != 3 {
		t.Fatalf("got %+v want buy strength 3", got)
	}
	if len(got.ActiveRules) != 3 {
		t.Fatalf("rules got %v want 3 entries", got.ActiveRules)
	}
}

func TestEvaluateUndefinedIndicatorsIgnored(t *testing.T) {
	nan := math.NaN()
	set := twoBarSet(
		[2]float64{nan, nan},
		[2]float64{nan, 2}, [2]float64{0, 0},
		[2]float64{nan, 12}, [2]float64{10, 10},
	)
	got := Evaluate(set, 1, testThresholds)
	if got.Direction != models.SignalHold {
		t.Fatalf("got %+v want hold when indicators undefined", got)
	}
}

func TestLevelsBuy(t *testing.T) {
	highs := []float64{110, 120, 115, 112, 111}
	lows := []float64{100, 98, 101, 102, 103}
	got := Levels(highs, lows, 4, 105, math.NaN(), models.SignalBuy)
	if got.Support != 98 {
		t.Fatalf("support got %v want 98", got.Support)
	}
	if got.Resistance != 120 {
		t.Fatalf("resistance got %v want 120", got.Resistance)
	}
	// Resistance 120 beats price*1.10 = 115.5.
	if got.Target != 120 {
		t.Fatalf("target got %v want 120", got.Target)
	}
	// Support 98 is below price*0.95 = 99.75, so the tighter stop wins.
	if math.Abs(got.StopLoss-99.75) > 1e-9 {
		t.Fatalf("stop got %v want 99.75", got.StopLoss)
	}
}

func TestLevelsSellFlips(t *testing.T) {
	highs := []float64{110, 120, 115}
	lows := []float64{100, 98, 101}
	got := Levels(highs, lows, 2, 105, math.NaN(), models.SignalSell)
	if got.Target != 98 || got.StopLoss != 120 {
		t.Fatalf("got target %v stop %v want 98/120", got.Target, got.StopLoss)
	}
}

func TestLevelsSupportAsStop(t *testing.T) {
	highs := []float64{106, 106, 106}
	lows := []float64{104, 104, 104}
	got := Levels(highs, lows, 2, 105, math.NaN(), models.SignalBuy)
	// Support 104 sits inside the 5% band, so it becomes the stop.
	if got.StopLoss != 104 {
		t.Fatalf("stop got %v want 104", got.StopLoss)
	}
}
