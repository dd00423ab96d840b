package portfolio

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"stocksignal/internal/apperr"
	"stocksignal/internal/models"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func tx(code, typ string, qty int64, price string) models.Transaction {
	return models.Transaction{
		Code:     code,
		Type:     typ,
		Account:  models.AccountLive,
		Quantity: qty,
		Price:    d(price),
	}
}

func TestApplyBuyWeightedAverage(t *testing.T) {
	holdings := map[string]Holding{}
	if _, err := Apply(holdings, models.AccountLive, "7203", models.TradeTypeBuy, 100, d("2000")); err != nil {
		t.Fatalf("first buy: %v", err)
	}
	if _, err := Apply(holdings, models.AccountLive, "7203", models.TradeTypeBuy, 100, d("3000")); err != nil {
		t.Fatalf("second buy: %v", err)
	}
	h := holdings["7203"]
	if h.Quantity != 200 {
		t.Fatalf("quantity got %d want 200", h.Quantity)
	}
	if !h.AveragePrice.Equal(d("2500")) {
		t.Fatalf("average got %s want 2500", h.AveragePrice)
	}
}

func TestApplySellKeepsAverageAndRealizes(t *testing.T) {
	holdings := map[string]Holding{}
	if _, err := Apply(holdings, models.AccountLive, "7203", models.TradeTypeBuy, 200, d("2500")); err != nil {
		t.Fatalf("buy: %v", err)
	}
	realized, err := Apply(holdings, models.AccountLive, "7203", models.TradeTypeSell, 50, d("2700"))
	if err != nil {
		t.Fatalf("sell: %v", err)
	}
	if !realized.Equal(d("10000")) {
		t.Fatalf("realized got %s want 10000", realized)
	}
	h := holdings["7203"]
	if h.Quantity != 150 || !h.AveragePrice.Equal(d("2500")) {
		t.Fatalf("holding got %+v want 150@2500", h)
	}
}

func TestApplySellFullQuantityRemovesHolding(t *testing.T) {
	holdings := map[string]Holding{}
	if _, err := Apply(holdings, models.AccountLive, "7203", models.TradeTypeBuy, 100, d("2000")); err != nil {
		t.Fatalf("buy: %v", err)
	}
	if _, err := Apply(holdings, models.AccountLive, "7203", models.TradeTypeSell, 100, d("2100")); err != nil {
		t.Fatalf("sell: %v", err)
	}
	if _, ok := holdings["7203"]; ok {
		t.Fatalf("holding should be removed at zero quantity")
	}
}

func TestApplyOversellRejectedWithoutMutation(t *testing.T) {
	holdings := map[string]Holding{}
	if _, err := Apply(holdings, models.AccountLive, "7203", models.TradeTypeBuy, 100, d("2000")); err != nil {
		t.Fatalf("buy: %v", err)
	}
	_, err := Apply(holdings, models.AccountLive, "7203", models.TradeTypeSell, 150, d("2100"))
	var insufficientErr *apperr.InsufficientHoldingError
	if !errors.As(err, &insufficientErr) {
		t.Fatalf("err got %v want InsufficientHoldingError", err)
	}
	if insufficientErr.Want != 150 || insufficientErr.Held != 100 {
		t.Fatalf("err detail got %+v", insufficientErr)
	}
	if holdings["7203"].Quantity != 100 {
		t.Fatalf("holding mutated despite rejection")
	}
}

func TestReplayDeterministic(t *testing.T) {
	fills := []models.Transaction{
		tx("7203", models.TradeTypeBuy, 100, "2000"),
		tx("9984", models.TradeTypeBuy, 50, "8000"),
		tx("7203", models.TradeTypeBuy, 100, "2400"),
		tx("7203", models.TradeTypeSell, 150, "2500"),
	}
	h1, r1, err := Replay(fills)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	h2, r2, err := Replay(fills)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !r1.Equal(r2) {
		t.Fatalf("realized diverged: %s vs %s", r1, r2)
	}
	if len(h1) != len(h2) {
		t.Fatalf("holding count diverged")
	}
	for code, h := range h1 {
		other := h2[code]
		if h.Quantity != other.Quantity || !h.AveragePrice.Equal(other.AveragePrice) {
			t.Fatalf("holding %s diverged: %+v vs %+v", code, h, other)
		}
	}
	// avg 2200, sell 150 at 2500 realizes 45000.
	if !r1.Equal(d("45000")) {
		t.Fatalf("realized got %s want 45000", r1)
	}
}

func TestUnrealized(t *testing.T) {
	h := Holding{Code: "7203", Quantity: 100, AveragePrice: d("2000")}
	got := Unrealized(h, d("2150"))
	if !got.Equal(d("15000")) {
		t.Fatalf("unrealized got %s want 15000", got)
	}
}

func TestBookBuySellAndValue(t *testing.T) {
	book := NewBook(models.AccountPaper, d("100000"))
	if err := book.Buy("7203", 40, d("2000")); err != nil {
		t.Fatalf("buy: %v", err)
	}
	if !book.Cash().Equal(d("20000")) {
		t.Fatalf("cash got %s want 20000", book.Cash())
	}
	if err := book.Buy("7203", 100, d("2000")); err == nil {
		t.Fatalf("expected insufficient cash error")
	}
	realized, err := book.Sell("7203", 40, d("2500"))
	if err != nil {
		t.Fatalf("sell: %v", err)
	}
	if !realized.Equal(d("20000")) {
		t.Fatalf("realized got %s want 20000", realized)
	}
	if !book.Cash().Equal(d("120000")) {
		t.Fatalf("cash got %s want 120000", book.Cash())
	}
	value := book.Value(map[string]decimal.Decimal{})
	if !value.Equal(d("120000")) {
		t.Fatalf("value got %s want 120000", value)
	}
}
