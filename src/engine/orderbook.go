package engine

import (
	"container/list"
	"fmt"
	"time"

	"github.com/google/btree"
	"github.com/google/uuid"
)

// --- B-Tree Comparators ---

// AsksSort sorts price levels from lowest price to highest price (min-heap)
func AsksSort(a, b *PriceLevel) bool {
	return a.Price < b.Price
}

// BidsSort sorts price levels from highest price to lowest price (max-heap)
func BidsSort(a, b *PriceLevel) bool {
	return a.Price > b.Price
}

// --- PriceLevel ---

// PriceLevel is a FIFO queue of Orders at a specific price. A level never
// exists with an empty queue; it is pruned as soon as it drains.
type PriceLevel struct {
	Price  int64
	Orders *list.List // Queue of *Order
}

// NewPriceLevel creates a new PriceLevel queue
func NewPriceLevel(price int64) *PriceLevel {
	return &PriceLevel{
		Price:  price,
		Orders: list.New(),
	}
}

// AddOrder adds an order to the back of the queue (FIFO).
func (pl *PriceLevel) AddOrder(order *Order) {
	order.element = pl.Orders.PushBack(order)
}

// RemoveOrder removes a specific order from the queue. The FIFO order of the
// remaining occupants is preserved.
func (pl *PriceLevel) RemoveOrder(order *Order) {
	if order.element != nil {
		pl.Orders.Remove(order.element)
		order.element = nil
	}
}

// RestingQuantity sums the remaining quantity of every order in the queue.
func (pl *PriceLevel) RestingQuantity() int64 {
	var total int64
	for e := pl.Orders.Front(); e != nil; e = e.Next() {
		total += e.Value.(*Order).RemainingQuantity()
	}
	return total
}

// --- OrderBook (Not Thread-Safe) ---

// OrderBook maintains the two sides of the book for a single instrument.
// It is NOT thread-safe and must be protected by a mutex.
type OrderBook struct {
	bids *btree.BTreeG[*PriceLevel] // Max-heap (highest price first)
	asks *btree.BTreeG[*PriceLevel] // Min-heap (lowest price first)

	bidPriceMap map[int64]*PriceLevel
	askPriceMap map[int64]*PriceLevel

	// Order index: an entry exists iff the order currently rests in a side.
	orderMap map[uint64]*list.Element
}

// NewOrderBook creates and initializes a new OrderBook.
func NewOrderBook() *OrderBook {
	return &OrderBook{
		bids:        btree.NewG(2, BidsSort),
		asks:        btree.NewG(2, AsksSort),
		bidPriceMap: make(map[int64]*PriceLevel),
		askPriceMap: make(map[int64]*PriceLevel),
		orderMap:    make(map[uint64]*list.Element),
	}
}

// crosses reports whether an order may execute against an opposing level at
// levelPrice. Market orders cross every level.
func crosses(order *Order, levelPrice int64) bool {
	if order.Type == Market {
		return true
	}
	if order.Side == Buy {
		return levelPrice <= order.Price
	}
	return levelPrice >= order.Price
}

// fillable walks the eligible opposing levels summing available resting
// quantity, without mutating any state. It is the fill-or-kill feasibility
// check: under the single-writer discipline the book cannot change between
// this check and the sweep, so a feasible order always fills completely and
// no rollback path is needed.
func (ob *OrderBook) fillable(order *Order) bool {
	opposing := ob.asks
	if order.Side == Sell {
		opposing = ob.bids
	}

	var available int64
	opposing.Ascend(func(pl *PriceLevel) bool {
		if !crosses(order, pl.Price) {
			return false
		}
		for e := pl.Orders.Front(); e != nil; e = e.Next() {
			available += e.Value.(*Order).RemainingQuantity()
			if available >= order.Quantity {
				return false
			}
		}
		return true
	})
	return available >= order.Quantity
}

// AddOrder validates and processes a new order, attempting to match it
// against the opposing side and then applying the order's duration policy to
// any remainder. The returned trades are in execution (price-time priority)
// order. Business outcomes such as an infeasible fill-or-kill are reported
// through the order's status, never through the error.
func (ob *OrderBook) AddOrder(order *Order) ([]Trade, error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}
	if _, exists := ob.orderMap[order.ID]; exists {
		return nil, fmt.Errorf("%w: %d", ErrDuplicateOrder, order.ID)
	}

	// Fill-or-kill feasibility pre-check: all or nothing, decided before any
	// state is touched.
	if order.Duration == FillOrKill && !ob.fillable(order) {
		order.Status = StatusCancelled
		return nil, nil
	}

	var trades []Trade
	if order.Side == Buy {
		trades = ob.matchBuyOrder(order)
	} else {
		trades = ob.matchSellOrder(order)
	}

	switch {
	case order.RemainingQuantity() == 0:
		order.Status = StatusFilled
	case order.FilledQuantity > 0:
		order.Status = StatusPartiallyFilled
	default:
		order.Status = StatusOpen
	}

	if order.RemainingQuantity() > 0 {
		switch order.Duration {
		case GoodTillCancelled:
			// Rest the remainder. A market remainder rests at the order's
			// (otherwise unused) price field, exactly like the limit case.
			ob.restOrder(order)
		case ImmediateOrCancel:
			if order.FilledQuantity == 0 {
				order.Status = StatusCancelled
			}
		case FillOrKill:
			// Unreachable: the pre-check is exact.
		}
	}

	return trades, nil
}

func (ob *OrderBook) matchBuyOrder(order *Order) []Trade {
	trades := []Trade{}

	for order.RemainingQuantity() > 0 && ob.asks.Len() > 0 {
		bestAskLevel, _ := ob.asks.Min()
		if !crosses(order, bestAskLevel.Price) {
			break
		}

		for bestAskLevel.Orders.Len() > 0 {
			askOrder := bestAskLevel.Orders.Front().Value.(*Order)

			tradeQuantity := min(order.RemainingQuantity(), askOrder.RemainingQuantity())
			tradePrice := askOrder.Price // Passive order's price

			trades = append(trades, newTrade(order, askOrder, tradePrice, tradeQuantity))

			order.FilledQuantity += tradeQuantity
			askOrder.FilledQuantity += tradeQuantity

			if askOrder.RemainingQuantity() == 0 {
				askOrder.Status = StatusFilled
				ob.removeOrder(askOrder)
			} else {
				// Partial fill; the remainder keeps its FIFO position.
				askOrder.Status = StatusPartiallyFilled
			}

			if order.RemainingQuantity() == 0 {
				return trades
			}
		}
	}
	return trades
}

func (ob *OrderBook) matchSellOrder(order *Order) []Trade {
	trades := []Trade{}

	for order.RemainingQuantity() > 0 && ob.bids.Len() > 0 {
		bestBidLevel, _ := ob.bids.Min()
		if !crosses(order, bestBidLevel.Price) {
			break
		}

		for bestBidLevel.Orders.Len() > 0 {
			bidOrder := bestBidLevel.Orders.Front().Value.(*Order)

			tradeQuantity := min(order.RemainingQuantity(), bidOrder.RemainingQuantity())
			tradePrice := bidOrder.Price // Passive order's price

			trades = append(trades, newTrade(bidOrder, order, tradePrice, tradeQuantity))

			order.FilledQuantity += tradeQuantity
			bidOrder.FilledQuantity += tradeQuantity

			if bidOrder.RemainingQuantity() == 0 {
				bidOrder.Status = StatusFilled
				ob.removeOrder(bidOrder)
			} else {
				// Partial fill; the remainder keeps its FIFO position.
				bidOrder.Status = StatusPartiallyFilled
			}

			if order.RemainingQuantity() == 0 {
				return trades
			}
		}
	}
	return trades
}

// newTrade snapshots both sides of an execution.
func newTrade(buyOrder, sellOrder *Order, price, quantity int64) Trade {
	return Trade{
		TradeID:   uuid.New().String(),
		Buy:       TradeSide{OrderID: buyOrder.ID, Price: price, Quantity: quantity, Personal: buyOrder.Personal},
		Sell:      TradeSide{OrderID: sellOrder.ID, Price: price, Quantity: quantity, Personal: sellOrder.Personal},
		Price:     price,
		Quantity:  quantity,
		Timestamp: time.Now().UnixNano() / 1_000_000, // Unix Milliseconds
	}
}

// restOrder appends a remainder to its own side's FIFO at its price and
// registers it in the order index.
func (ob *OrderBook) restOrder(order *Order) {
	priceMap, tree := ob.sideOf(order.Side)

	level, exists := priceMap[order.Price]
	if !exists {
		level = NewPriceLevel(order.Price)
		priceMap[order.Price] = level
		tree.ReplaceOrInsert(level) // O(log N)
	}

	level.AddOrder(order)
	ob.orderMap[order.ID] = order.element
}

func (ob *OrderBook) sideOf(side Side) (map[int64]*PriceLevel, *btree.BTreeG[*PriceLevel]) {
	if side == Buy {
		return ob.bidPriceMap, ob.bids
	}
	return ob.askPriceMap, ob.asks
}

// removeOrder excises a resting order from its level and the order index,
// pruning the level if it is left empty.
func (ob *OrderBook) removeOrder(order *Order) {
	delete(ob.orderMap, order.ID)

	priceMap, tree := ob.sideOf(order.Side)
	level := priceMap[order.Price]
	level.RemoveOrder(order)
	if level.Orders.Len() == 0 {
		delete(priceMap, order.Price)
		tree.Delete(level)
	}
}

// CancelOrder removes a resting order from the book by its ID. An unknown ID
// returns false, which makes cancellation idempotent. The status flip to
// CANCELLED is the caller's responsibility.
func (ob *OrderBook) CancelOrder(orderID uint64) bool {
	element, exists := ob.orderMap[orderID]
	if !exists {
		return false
	}
	ob.removeOrder(element.Value.(*Order))
	return true
}

// GetOrder returns the resting order for an ID, or nil if it is not in the
// book.
func (ob *OrderBook) GetOrder(orderID uint64) *Order {
	element, exists := ob.orderMap[orderID]
	if !exists {
		return nil
	}
	return element.Value.(*Order)
}

// --- Aggregate queries ---

// BestBid returns the highest bid price, or false if there are no bids.
func (ob *OrderBook) BestBid() (int64, bool) {
	level, ok := ob.bids.Min()
	if !ok {
		return 0, false
	}
	return level.Price, true
}

// BestAsk returns the lowest ask price, or false if there are no asks.
func (ob *OrderBook) BestAsk() (int64, bool) {
	level, ok := ob.asks.Min()
	if !ok {
		return 0, false
	}
	return level.Price, true
}

// MidPrice is the average of the best bid and best ask. It is defined only
// when both sides are non-empty.
func (ob *OrderBook) MidPrice() (float64, bool) {
	bid, okBid := ob.BestBid()
	ask, okAsk := ob.BestAsk()
	if !okBid || !okAsk {
		return 0, false
	}
	return float64(bid+ask) / 2, true
}

// BidInterest is the total resting quantity on the bid side.
func (ob *OrderBook) BidInterest() int64 {
	var total int64
	ob.bids.Ascend(func(pl *PriceLevel) bool {
		total += pl.RestingQuantity()
		return true
	})
	return total
}

// AskInterest is the total resting quantity on the ask side.
func (ob *OrderBook) AskInterest() int64 {
	var total int64
	ob.asks.Ascend(func(pl *PriceLevel) bool {
		total += pl.RestingQuantity()
		return true
	})
	return total
}

// NetInterest is bid interest minus ask interest.
func (ob *OrderBook) NetInterest() int64 {
	return ob.BidInterest() - ob.AskInterest()
}

func min(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
