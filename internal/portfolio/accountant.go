package portfolio

import (
	"sync"

	"github.com/shopspring/decimal"

	"stocksignal/internal/apperr"
	"stocksignal/internal/models"
)

// Holding is the derived position for one code: quantity and weighted
// average cost. Never stored; always a fold over the fill log.
type Holding struct {
	Code         string
	Quantity     int64
	AveragePrice decimal.Decimal
}

// Apply folds one fill into the holding map. Buys move the weighted average
// cost, sells reduce quantity and leave the average untouched; the returned
// decimal is the realized profit of a sell (zero for buys). A sell beyond
// the held quantity returns InsufficientHoldingError without mutating.
func Apply(holdings map[string]Holding, account, code, tradeType string, quantity int64, price decimal.Decimal) (decimal.Decimal, error) {
	if quantity <= 0 {
		return decimal.Zero, apperr.Validation("quantity", "must be positive")
	}
	qty := decimal.NewFromInt(quantity)
	h, ok := holdings[code]

	switch tradeType {
	case models.TradeTypeBuy:
		if !ok {
			holdings[code] = Holding{Code: code, Quantity: quantity, AveragePrice: price}
			return decimal.Zero, nil
		}
		oldQty := decimal.NewFromInt(h.Quantity)
		newQty := h.Quantity + quantity
		h.AveragePrice = oldQty.Mul(h.AveragePrice).Add(qty.Mul(price)).Div(decimal.NewFromInt(newQty))
		h.Quantity = newQty
		holdings[code] = h
		return decimal.Zero, nil

	case models.TradeTypeSell:
		if !ok || h.Quantity < quantity {
			held := int64(0)
			if ok {
				held = h.Quantity
			}
			return decimal.Zero, &apperr.InsufficientHoldingError{
				Code:    code,
				Account: account,
				Want:    quantity,
				Held:    held,
			}
		}
		realized := price.Sub(h.AveragePrice).Mul(qty)
		h.Quantity -= quantity
		if h.Quantity == 0 {
			delete(holdings, code)
		} else {
			holdings[code] = h
		}
		return realized, nil

	default:
		return decimal.Zero, apperr.Validation("type", "must be buy or sell")
	}
}

// Replay rebuilds holdings and cumulative realized profit from an ordered
// fill log. Replaying the same log always yields the same state.
func Replay(fills []models.Transaction) (map[string]Holding, decimal.Decimal, error) {
	holdings := make(map[string]Holding)
	realized := decimal.Zero
	for i := range fills {
		f := &fills[i]
		pnl, err := Apply(holdings, f.Account, f.Code, f.Type, f.Quantity, f.Price)
		if err != nil {
			return nil, decimal.Zero, err
		}
		realized = realized.Add(pnl)
	}
	return holdings, realized, nil
}

// Unrealized is quantity*(currentPrice - averagePrice) for one holding.
func Unrealized(h Holding, currentPrice decimal.Decimal) decimal.Decimal {
	return currentPrice.Sub(h.AveragePrice).Mul(decimal.NewFromInt(h.Quantity))
}

// Book is a virtual cash-and-holdings ledger used by backtests and the
// dry-run auto-trader. Fills apply atomically with respect to readers.
type Book struct {
	mu       sync.Mutex
	account  string
	cash     decimal.Decimal
	holdings map[string]Holding
	realized decimal.Decimal
}

func NewBook(account string, cash decimal.Decimal) *Book {
	return &Book{
		account:  account,
		cash:     cash,
		holdings: make(map[string]Holding),
	}
}

// Buy applies a cash-debited buy fill. Insufficient cash is a validation
// error; nothing is applied.
func (b *Book) Buy(code string, quantity int64, price decimal.Decimal) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	cost := price.Mul(decimal.NewFromInt(quantity))
	if cost.GreaterThan(b.cash) {
		return apperr.Validation("quantity", "insufficient cash")
	}
	if _, err := Apply(b.holdings, b.account, code, models.TradeTypeBuy, quantity, price); err != nil {
		return err
	}
	b.cash = b.cash.Sub(cost)
	return nil
}

// Sell applies a cash-credited sell fill and returns the realized profit.
func (b *Book) Sell(code string, quantity int64, price decimal.Decimal) (decimal.Decimal, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	realized, err := Apply(b.holdings, b.account, code, models.TradeTypeSell, quantity, price)
	if err != nil {
		return decimal.Zero, err
	}
	b.cash = b.cash.Add(price.Mul(decimal.NewFromInt(quantity)))
	b.realized = b.realized.Add(realized)
	return realized, nil
}

func (b *Book) Cash() decimal.Decimal {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cash
}

func (b *Book) Realized() decimal.Decimal {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.realized
}

// Holding returns the position for one code, reporting existence.
func (b *Book) Holding(code string) (Holding, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	h, ok := b.holdings[code]
	return h, ok
}

// Holdings returns a copy of the current positions.
func (b *Book) Holdings() map[string]Holding {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]Holding, len(b.holdings))
	for code, h := range b.holdings {
		out[code] = h
	}
	return out
}

// Value marks holdings to the given prices and adds free cash. A code with
// no quoted price is valued at its average cost.
func (b *Book) Value(prices map[string]decimal.Decimal) decimal.Decimal {
	b.mu.Lock()
	defer b.mu.Unlock()
	total := b.cash
	for code, h := range b.holdings {
		price, ok := prices[code]
		if !ok {
			price = h.AveragePrice
		}
		total = total.Add(price.Mul(decimal.NewFromInt(h.Quantity)))
	}
	return total
}
