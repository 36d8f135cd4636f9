// Package sim generates synthetic order flow and drives simulation runs
// against a live engine.
package sim

import (
	"math/rand"

	"github.com/wgarrett707/orderbook/src/engine"
)

// DefaultPrice seeds price generation while the book has no mid-price yet.
const DefaultPrice int64 = 10000

// Generator produces random limit orders around the book's mid-price. IDs
// are assigned from an internal counter, so one generator owns one ID space.
type Generator struct {
	rng       *rand.Rand
	orderType engine.OrderType
	nextID    uint64
}

// NewGenerator creates a generator seeded for reproducible runs.
func NewGenerator(seed int64) *Generator {
	return &Generator{
		rng:       rand.New(rand.NewSource(seed)),
		orderType: engine.Limit,
		nextID:    1,
	}
}

// SetType switches the generated order type between LIMIT and MARKET.
func (g *Generator) SetType(t engine.OrderType) {
	g.orderType = t
}

// NextID returns the next unused order ID and advances the counter.
func (g *Generator) NextID() uint64 {
	id := g.nextID
	g.nextID++
	return id
}

// IntN draws a uniform value in [0,n) from the generator's seeded stream.
func (g *Generator) IntN(n int) int {
	return g.rng.Intn(n)
}

// Orders generates n random GTC orders with quantity 1..100 and prices
// within ±1% of mid, rounded to the tick. A non-positive mid falls back to
// DefaultPrice.
func (g *Generator) Orders(n int, mid int64) []*engine.Order {
	if mid <= 0 {
		mid = DefaultPrice
	}

	orders := make([]*engine.Order, 0, n)
	for i := 0; i < n; i++ {
		quantity := int64(g.rng.Intn(100) + 1)
		price := g.priceAroundMid(mid)
		side := engine.Buy
		if g.rng.Intn(2) == 0 {
			side = engine.Sell
		}
		orders = append(orders, engine.NewOrder(g.NextID(), side, g.orderType, engine.GoodTillCancelled, price, quantity, false))
	}
	return orders
}

// priceAroundMid perturbs mid by a uniform -1%..+1% and rounds to a tick.
func (g *Generator) priceAroundMid(mid int64) int64 {
	percentageChange := float64(g.rng.Intn(2001)-1000) / 100000.0
	price := int64(float64(mid)*(1+percentageChange) + 0.5)
	if price <= 0 {
		price = DefaultPrice
	}
	return price
}
