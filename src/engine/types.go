package engine

import (
	"container/list"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Side defines the side of an order (BUY or SELL).
type Side string
type OrderType string
type Duration string
type OrderStatus string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

const (
	Limit  OrderType = "LIMIT"
	Market OrderType = "MARKET"
)

// Duration controls what happens to the unfilled remainder of an order.
const (
	GoodTillCancelled Duration = "GOOD_TILL_CANCELLED"
	ImmediateOrCancel Duration = "IMMEDIATE_OR_CANCEL"
	FillOrKill        Duration = "FILL_OR_KILL"
)

const (
	StatusOpen            OrderStatus = "OPEN"
	StatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	StatusFilled          OrderStatus = "FILLED"
	StatusCancelled       OrderStatus = "CANCELLED"
)

// Input validation errors. Unrecognized enum values are rejected at the
// boundary rather than defaulted.
var (
	ErrInvalidOrderID  = errors.New("order id must be non-zero")
	ErrDuplicateOrder  = errors.New("order id already in use")
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrInvalidPrice    = errors.New("price must be positive for limit orders")
	ErrInvalidSide     = errors.New("invalid side; must be BUY or SELL")
	ErrInvalidType     = errors.New("invalid type; must be LIMIT or MARKET")
	ErrInvalidDuration = errors.New("invalid duration; must be GOOD_TILL_CANCELLED, IMMEDIATE_OR_CANCEL or FILL_OR_KILL")
)

// Order represents a single order in the matching engine.
// Prices are integer ticks (cents). Quantity is the original quantity and
// never changes, so FilledQuantity + RemainingQuantity() == Quantity holds
// at all times.
type Order struct {
	ID             uint64      `json:"orderId"`
	Side           Side        `json:"side"`
	Type           OrderType   `json:"type"`
	Duration       Duration    `json:"duration"`
	Price          int64       `json:"price"` // Ignored for MARKET orders
	Quantity       int64       `json:"quantity"`
	FilledQuantity int64       `json:"filled_quantity"`
	Status         OrderStatus `json:"status"`
	Personal       bool        `json:"isPersonalOrder"`
	Timestamp      int64       `json:"timestamp"` // Unix milliseconds

	// Internal field to store its place in the PriceLevel queue.
	element *list.Element
}

// RemainingQuantity calculates the unfilled quantity.
func (o *Order) RemainingQuantity() int64 {
	return o.Quantity - o.FilledQuantity
}

// Validate rejects malformed orders before the book mutates any state.
func (o *Order) Validate() error {
	if o.ID == 0 {
		return ErrInvalidOrderID
	}
	if o.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	switch o.Side {
	case Buy, Sell:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidSide, o.Side)
	}
	switch o.Type {
	case Limit, Market:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidType, o.Type)
	}
	switch o.Duration {
	case GoodTillCancelled, ImmediateOrCancel, FillOrKill:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidDuration, o.Duration)
	}
	if o.Type == Limit && o.Price <= 0 {
		return ErrInvalidPrice
	}
	return nil
}

// TradeSide is an immutable snapshot of one side of an execution. It is not
// a live reference to the mutable Order.
type TradeSide struct {
	OrderID  uint64 `json:"order_id"`
	Price    int64  `json:"price"`
	Quantity int64  `json:"quantity"`
	Personal bool   `json:"is_personal"`
}

// Trade represents a single trade that has been executed. Quantity is the
// matched quantity and equals both sides' snapshot quantities.
type Trade struct {
	TradeID   string    `json:"trade_id"`
	Buy       TradeSide `json:"buy"`
	Sell      TradeSide `json:"sell"`
	Price     int64     `json:"price"`
	Quantity  int64     `json:"quantity"`
	Timestamp int64     `json:"timestamp"`
}

// NewOrder creates a new Order with a timestamp.
func NewOrder(id uint64, side Side, orderType OrderType, duration Duration, price, quantity int64, personal bool) *Order {
	return &Order{
		ID:             id,
		Side:           side,
		Type:           orderType,
		Duration:       duration,
		Price:          price,
		Quantity:       quantity,
		FilledQuantity: 0,
		Status:         StatusOpen,
		Personal:       personal,
		Timestamp:      time.Now().UnixNano() / 1_000_000, // Unix Milliseconds
	}
}

// ParseSide converts a wire string into a Side.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToUpper(strings.TrimSpace(s))) {
	case Buy:
		return Buy, nil
	case Sell:
		return Sell, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSide, s)
	}
}

// ParseOrderType converts a wire string into an OrderType.
func ParseOrderType(s string) (OrderType, error) {
	switch OrderType(strings.ToUpper(strings.TrimSpace(s))) {
	case Limit:
		return Limit, nil
	case Market:
		return Market, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
	}
}

// ParseDuration converts a wire string into a Duration. An empty string maps
// to GOOD_TILL_CANCELLED, matching the wire format's optional duration field.
func ParseDuration(s string) (Duration, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(s))
	if trimmed == "" {
		return GoodTillCancelled, nil
	}
	switch Duration(trimmed) {
	case GoodTillCancelled, ImmediateOrCancel, FillOrKill:
		return Duration(trimmed), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDuration, s)
	}
}
