// Package portfolio tracks the cash and position deltas produced by the
// engine's trades. Only trade sides flagged as personal move the portfolio;
// everything else in the stream is other participants' business.
package portfolio

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/wgarrett707/orderbook/src/engine"
)

// Portfolio holds cash (in price ticks, decimal to keep price*quantity
// products exact) and a signed position in lots.
type Portfolio struct {
	mu       sync.Mutex
	cash     decimal.Decimal
	position int64
}

// New creates a portfolio with the given starting cash, in ticks.
func New(initialCash decimal.Decimal) *Portfolio {
	return &Portfolio{cash: initialCash}
}

// Update applies a batch of trades. A personal buy side increases the
// position and decreases cash by price*quantity; a personal sell side does
// the inverse. Trades with no personal side are no-ops.
func (p *Portfolio) Update(trades []engine.Trade) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, trade := range trades {
		notional := decimal.NewFromInt(trade.Price).Mul(decimal.NewFromInt(trade.Quantity))

		if trade.Buy.Personal {
			p.position += trade.Quantity
			p.cash = p.cash.Sub(notional)
		}
		if trade.Sell.Personal {
			p.position -= trade.Quantity
			p.cash = p.cash.Add(notional)
		}
	}
}

// Cash returns the current cash balance in ticks.
func (p *Portfolio) Cash() decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cash
}

// Position returns the current signed position in lots.
func (p *Portfolio) Position() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position
}

// Value marks the position at the given price and returns cash plus position
// value, in ticks.
func (p *Portfolio) Value(markPrice decimal.Decimal) decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cash.Add(markPrice.Mul(decimal.NewFromInt(p.position)))
}
