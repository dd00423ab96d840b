package recommend

import (
	"testing"

	"github.com/shopspring/decimal"

	"stocksignal/internal/models"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func f(v float64) *float64 { return &v }

func TestBuildSizesAgainstBudget(t *testing.T) {
	buys, sells := Build([]Candidate{
		{Code: "7203", SignalType: models.SignalBuy, Strength: 2, CurrentPrice: 2000},
	}, d("100000"), 100)
	if len(sells) != 0 {
		t.Fatalf("sells got %d want 0", len(sells))
	}
	if len(buys) != 1 {
		t.Fatalf("buys got %d want 1", len(buys))
	}
	if buys[0].SuggestedQuantity != 50 {
		t.Fatalf("quantity got %d want 50", buys[0].SuggestedQuantity)
	}
	if !buys[0].SuggestedAmount.Equal(d("100000")) {
		t.Fatalf("amount got %s want 100000", buys[0].SuggestedAmount)
	}
}

func TestBuildPerPositionCap(t *testing.T) {
	buys, _ := Build([]Candidate{
		{Code: "7203", SignalType: models.SignalBuy, Strength: 2, CurrentPrice: 2000},
	}, d("100000"), 30)
	// Cap is 30000, so at 2000 per share only 15 fit.
	if buys[0].SuggestedQuantity != 15 {
		t.Fatalf("quantity got %d want 15", buys[0].SuggestedQuantity)
	}
}

func TestBuildRemainingBudgetShrinks(t *testing.T) {
	buys, _ := Build([]Candidate{
		{Code: "7203", SignalType: models.SignalBuy, Strength: 3, CurrentPrice: 2000},
		{Code: "9984", SignalType: models.SignalBuy, Strength: 1, CurrentPrice: 8000},
	}, d("100000"), 80)
	// Rank order: 7203 first (strength 3) takes 80000; 9984 gets the 20000
	// left, which buys 2 shares.
	if buys[0].Code != "7203" || buys[0].SuggestedQuantity != 40 {
		t.Fatalf("first got %s qty %d want 7203 qty 40", buys[0].Code, buys[0].SuggestedQuantity)
	}
	if buys[1].Code != "9984" || buys[1].SuggestedQuantity != 2 {
		t.Fatalf("second got %s qty %d want 9984 qty 2", buys[1].Code, buys[1].SuggestedQuantity)
	}
}

func TestBuildUnaffordableIsZero(t *testing.T) {
	buys, _ := Build([]Candidate{
		{Code: "7203", SignalType: models.SignalBuy, Strength: 1, CurrentPrice: 200000},
	}, d("100000"), 100)
	if buys[0].SuggestedQuantity != 0 {
		t.Fatalf("quantity got %d want 0", buys[0].SuggestedQuantity)
	}
	if !buys[0].SuggestedAmount.Equal(decimal.Zero) {
		t.Fatalf("amount got %s want 0", buys[0].SuggestedAmount)
	}
}

func TestBuildOrdering(t *testing.T) {
	buys, _ := Build([]Candidate{
		{Code: "9984", SignalType: models.SignalBuy, Strength: 2, CurrentPrice: 100, TargetPrice: f(110)},
		{Code: "7203", SignalType: models.SignalBuy, Strength: 2, CurrentPrice: 100, TargetPrice: f(110)},
		{Code: "6758", SignalType: models.SignalBuy, Strength: 2, CurrentPrice: 100, TargetPrice: f(120)},
		{Code: "8306", SignalType: models.SignalBuy, Strength: 3, CurrentPrice: 100, TargetPrice: f(101)},
	}, d("0"), 100)
	want := []string{"8306", "6758", "7203", "9984"}
	for i, code := range want {
		if buys[i].Code != code {
			t.Fatalf("rank %d got %s want %s", i, buys[i].Code, code)
		}
	}
}

func TestBuildSellsSuggestHeldQuantity(t *testing.T) {
	_, sells := Build([]Candidate{
		{Code: "7203", SignalType: models.SignalSell, Strength: 2, CurrentPrice: 2000, HeldQuantity: 100, TargetPrice: f(1900)},
	}, d("100000"), 30)
	if len(sells) != 1 {
		t.Fatalf("sells got %d want 1", len(sells))
	}
	if sells[0].SuggestedQuantity != 100 {
		t.Fatalf("quantity got %d want 100", sells[0].SuggestedQuantity)
	}
	// Sell toward a lower target is a positive expected move.
	if sells[0].ExpectedProfitPercent <= 0 {
		t.Fatalf("expected profit got %v want > 0", sells[0].ExpectedProfitPercent)
	}
}

func TestBuildHoldExcluded(t *testing.T) {
	buys, sells := Build([]Candidate{
		{Code: "7203", SignalType: models.SignalHold, CurrentPrice: 2000},
	}, d("100000"), 30)
	if len(buys) != 0 || len(sells) != 0 {
		t.Fatalf("hold produced recommendations: %d/%d", len(buys), len(sells))
	}
}
