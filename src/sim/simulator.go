package sim

import (
	"github.com/shopspring/decimal"

	"github.com/wgarrett707/orderbook/src/engine"
	"github.com/wgarrett707/orderbook/src/portfolio"
)

// Simulator runs random order flow through an engine while tracking a
// personal portfolio. Every 10th iteration it places a personal 100-lot
// limit order at the mid-price (a sell every 20th, otherwise a buy), and
// after each iteration it records the portfolio's marked-to-mid value.
type Simulator struct {
	eng    *engine.TradingEngine
	pf     *portfolio.Portfolio
	gen    *Generator
	values []decimal.Decimal
}

// NewSimulator wires a simulator to an engine and portfolio.
func NewSimulator(eng *engine.TradingEngine, pf *portfolio.Portfolio, gen *Generator) *Simulator {
	return &Simulator{eng: eng, pf: pf, gen: gen}
}

// Run executes iterations of random flow. Each iteration submits 1..10
// random orders; every trade the engine produces is fed to the portfolio,
// which only reacts to personal sides.
func (s *Simulator) Run(iterations int) error {
	for i := 0; i < iterations; i++ {
		numOrders := s.gen.IntN(10) + 1
		mid := s.currentMid()

		for _, order := range s.gen.Orders(numOrders, mid) {
			trades, err := s.eng.SubmitOrder(order)
			if err != nil {
				return err
			}
			s.pf.Update(trades)
		}

		if i%10 == 0 {
			if err := s.placePersonalOrder(i); err != nil {
				return err
			}
		}

		s.values = append(s.values, s.pf.Value(decimal.NewFromInt(s.currentMid())))
	}
	return nil
}

func (s *Simulator) placePersonalOrder(iteration int) error {
	side := engine.Buy
	if iteration%20 == 0 {
		side = engine.Sell
	}
	order := engine.NewOrder(s.gen.NextID(), side, engine.Limit, engine.GoodTillCancelled, s.currentMid(), 100, true)

	trades, err := s.eng.SubmitOrder(order)
	if err != nil {
		return err
	}
	s.pf.Update(trades)
	return nil
}

// currentMid truncates the book's mid-price to a tick, falling back to
// DefaultPrice on an empty or one-sided book.
func (s *Simulator) currentMid() int64 {
	mid, ok := s.eng.MidPrice()
	if !ok || mid <= 0 {
		return DefaultPrice
	}
	return int64(mid)
}

// PortfolioValues returns the per-iteration portfolio value series.
func (s *Simulator) PortfolioValues() []decimal.Decimal {
	return s.values
}
