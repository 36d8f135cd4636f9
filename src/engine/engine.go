package engine

import (
	"sync"
)

// TradingEngine is the thread-safe facade over a single instrument's book.
// One engine owns one OrderBook, the store of every order ever submitted,
// and the trade history accumulated across AddOrder calls (the book itself
// keeps none). All mutation goes through one lock: addOrder and cancelOrder
// are CPU-bound and run to completion, so a plain RWMutex gives the
// single-writer discipline the book requires.
type TradingEngine struct {
	mu     sync.RWMutex
	book   *OrderBook
	orders map[uint64]*Order
	trades []Trade
}

// NewTradingEngine creates a new engine with an empty book.
func NewTradingEngine() *TradingEngine {
	return &TradingEngine{
		book:   NewOrderBook(),
		orders: make(map[uint64]*Order),
	}
}

// SubmitOrder is the thread-safe entry point for all new orders. The order's
// status and filled quantity are mutated in place; the returned trades are
// those of this call only and are also appended to the engine's history.
func (te *TradingEngine) SubmitOrder(order *Order) ([]Trade, error) {
	te.mu.Lock()
	defer te.mu.Unlock()

	if _, exists := te.orders[order.ID]; exists {
		return nil, ErrDuplicateOrder
	}

	trades, err := te.book.AddOrder(order)
	if err != nil {
		return nil, err
	}

	te.orders[order.ID] = order
	te.trades = append(te.trades, trades...)
	return trades, nil
}

// CancelOrder removes a resting order from the book and marks it CANCELLED.
// Unknown or no-longer-resting IDs return false; cancelling twice returns
// true then false.
func (te *TradingEngine) CancelOrder(orderID uint64) bool {
	te.mu.Lock()
	defer te.mu.Unlock()

	if !te.book.CancelOrder(orderID) {
		return false
	}
	if order, ok := te.orders[orderID]; ok {
		order.Status = StatusCancelled
	}
	return true
}

// GetOrder returns a copy of an order by its ID, covering both resting and
// terminated orders.
func (te *TradingEngine) GetOrder(orderID uint64) (Order, bool) {
	te.mu.RLock()
	defer te.mu.RUnlock()

	order, ok := te.orders[orderID]
	if !ok {
		return Order{}, false
	}
	// Return a copy to avoid data races
	return *order, true
}

// TradeHistory returns a copy of every trade produced so far, in execution
// order.
func (te *TradingEngine) TradeHistory() []Trade {
	te.mu.RLock()
	defer te.mu.RUnlock()

	history := make([]Trade, len(te.trades))
	copy(history, te.trades)
	return history
}

// AggregatedPriceLevel is one row of a book snapshot: the total remaining
// quantity resting at a price.
type AggregatedPriceLevel struct {
	Price    int64 `json:"price"`
	Quantity int64 `json:"quantity"`
}

// Snapshot returns the aggregated per-price-level quantities for both sides,
// bids from highest price down and asks from lowest price up. A depth of 0
// means no limit.
func (te *TradingEngine) Snapshot(depth int) (bids []AggregatedPriceLevel, asks []AggregatedPriceLevel) {
	te.mu.RLock()
	defer te.mu.RUnlock()

	bidCount := 0
	te.book.bids.Ascend(func(l *PriceLevel) bool {
		if depth > 0 && bidCount >= depth {
			return false
		}
		bids = append(bids, AggregatedPriceLevel{Price: l.Price, Quantity: l.RestingQuantity()})
		bidCount++
		return true
	})

	askCount := 0
	te.book.asks.Ascend(func(l *PriceLevel) bool {
		if depth > 0 && askCount >= depth {
			return false
		}
		asks = append(asks, AggregatedPriceLevel{Price: l.Price, Quantity: l.RestingQuantity()})
		askCount++
		return true
	})

	return bids, asks
}

// BestBid returns the highest bid price, or false if there are no bids.
func (te *TradingEngine) BestBid() (int64, bool) {
	te.mu.RLock()
	defer te.mu.RUnlock()
	return te.book.BestBid()
}

// BestAsk returns the lowest ask price, or false if there are no asks.
func (te *TradingEngine) BestAsk() (int64, bool) {
	te.mu.RLock()
	defer te.mu.RUnlock()
	return te.book.BestAsk()
}

// MidPrice is the average of best bid and best ask; false when either side
// is empty.
func (te *TradingEngine) MidPrice() (float64, bool) {
	te.mu.RLock()
	defer te.mu.RUnlock()
	return te.book.MidPrice()
}

// BidInterest is the total resting quantity on the bid side.
func (te *TradingEngine) BidInterest() int64 {
	te.mu.RLock()
	defer te.mu.RUnlock()
	return te.book.BidInterest()
}

// AskInterest is the total resting quantity on the ask side.
func (te *TradingEngine) AskInterest() int64 {
	te.mu.RLock()
	defer te.mu.RUnlock()
	return te.book.AskInterest()
}

// NetInterest is bid interest minus ask interest.
func (te *TradingEngine) NetInterest() int64 {
	te.mu.RLock()
	defer te.mu.RUnlock()
	return te.book.NetInterest()
}
