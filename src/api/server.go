package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/wgarrett707/orderbook/src/engine"
	"github.com/wgarrett707/orderbook/src/portfolio"
)

// ticksPerUnit converts decimal wire prices into the engine's integer ticks.
var ticksPerUnit = decimal.NewFromInt(100)

// Server owns the HTTP surface and every piece of mutable state behind it:
// the engine, the portfolio fed from its trades, the logger and the metrics.
// Nothing lives in package globals.
type Server struct {
	eng     *engine.TradingEngine
	pf      *portfolio.Portfolio
	log     *zap.Logger
	mux     *http.ServeMux
	metrics *metrics
}

func NewServer(eng *engine.TradingEngine, pf *portfolio.Portfolio, log *zap.Logger) *Server {
	s := &Server{
		eng:     eng,
		pf:      pf,
		log:     log,
		mux:     http.NewServeMux(),
		metrics: newMetrics(),
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start(addr string) error {
	return http.ListenAndServe(addr, s.mux)
}

// ServeHTTP allows Server to satisfy http.Handler, delegating to its mux.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/orders", s.handleOrders)
	s.mux.HandleFunc("/orders/", s.handleOrderByID)
	s.mux.HandleFunc("/orderbook", s.handleOrderBook)
	s.mux.HandleFunc("/trades", s.handleTrades)
	s.mux.HandleFunc("/portfolio", s.handlePortfolio)
	// Legacy route name kept for old clients
	s.mux.HandleFunc("/addOrder", s.handleOrders)
	s.mux.Handle("/metrics", s.metrics.handler())
	// simple health check
	s.mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"status": "healthy"})
	})
}

type createOrderRequest struct {
	OrderID  uint64      `json:"orderId"`
	Price    json.Number `json:"price"` // decimal units, converted to ticks
	Quantity int64       `json:"quantity"`
	Side     string      `json:"side"`
	Type     string      `json:"type"`
	Duration string      `json:"duration"`
	Personal bool        `json:"isPersonalOrder"`
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createOrder(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	if err := decoder.Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	order, err := req.toOrder()
	if err != nil {
		s.metrics.ordersRejected.Inc()
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	trades, err := s.eng.SubmitOrder(order)
	if err != nil {
		s.metrics.ordersRejected.Inc()
		s.log.Warn("order rejected", zap.Uint64("order_id", order.ID), zap.Error(err))
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// The submitted *Order now rests in the book and may be mutated by
	// concurrent requests; render the response from a copy taken under the
	// engine lock instead.
	snap, _ := s.eng.GetOrder(order.ID)

	s.metrics.ordersSubmitted.WithLabelValues(string(snap.Side)).Inc()
	s.metrics.tradesExecuted.Add(float64(len(trades)))
	for _, t := range trades {
		s.metrics.tradedQuantity.Add(float64(t.Quantity))
	}
	s.pf.Update(trades)

	s.log.Info("order processed",
		zap.Uint64("order_id", snap.ID),
		zap.String("side", string(snap.Side)),
		zap.String("status", string(snap.Status)),
		zap.Int64("filled", snap.FilledQuantity),
		zap.Int("trades", len(trades)))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCodeFor(snap.Status))
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"order_id":           snap.ID,
		"status":             string(snap.Status),
		"filled_quantity":    snap.FilledQuantity,
		"remaining_quantity": snap.RemainingQuantity(),
		"trades":             tradeViews(trades),
	})
}

// statusCodeFor maps the post-submission order status onto an HTTP code.
func statusCodeFor(status engine.OrderStatus) int {
	switch status {
	case engine.StatusFilled, engine.StatusCancelled:
		return http.StatusOK
	case engine.StatusPartiallyFilled:
		return http.StatusAccepted
	default: // resting OPEN
		return http.StatusCreated
	}
}

func (req *createOrderRequest) toOrder() (*engine.Order, error) {
	side, err := engine.ParseSide(req.Side)
	if err != nil {
		return nil, err
	}
	orderType, err := engine.ParseOrderType(req.Type)
	if err != nil {
		return nil, err
	}
	duration, err := engine.ParseDuration(req.Duration)
	if err != nil {
		return nil, err
	}

	var price int64
	if req.Price != "" {
		d, err := decimal.NewFromString(req.Price.String())
		if err != nil {
			return nil, errors.New("invalid price")
		}
		ticks := d.Mul(ticksPerUnit)
		if !ticks.IsInteger() {
			return nil, errors.New("price is finer than one tick")
		}
		price = ticks.IntPart()
	}

	return engine.NewOrder(req.OrderID, side, orderType, duration, price, req.Quantity, req.Personal), nil
}

func (s *Server) handleOrderByID(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/orders/")
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	switch r.Method {
	case http.MethodGet:
		s.getOrder(w, id)
	case http.MethodDelete:
		s.cancelOrder(w, id)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) getOrder(w http.ResponseWriter, id uint64) {
	order, ok := s.eng.GetOrder(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "order not found")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"order_id":           order.ID,
		"side":               string(order.Side),
		"type":               string(order.Type),
		"duration":           string(order.Duration),
		"price":              order.Price,
		"quantity":           order.Quantity,
		"filled_quantity":    order.FilledQuantity,
		"remaining_quantity": order.RemainingQuantity(),
		"status":             string(order.Status),
		"timestamp":          order.Timestamp,
	})
}

// cancelOrder is idempotent: cancelling an unknown or already-cancelled
// order is a normal outcome reported as cancelled=false, not an error.
func (s *Server) cancelOrder(w http.ResponseWriter, id uint64) {
	cancelled := s.eng.CancelOrder(id)
	if cancelled {
		s.metrics.ordersCancelled.Inc()
		s.log.Info("order cancelled", zap.Uint64("order_id", id))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"order_id":  id,
		"cancelled": cancelled,
	})
}

func (s *Server) handleOrderBook(w http.ResponseWriter, r *http.Request) {
	depth := 0
	if depthParam := r.URL.Query().Get("depth"); depthParam != "" {
		v, err := strconv.Atoi(depthParam)
		if err != nil || v < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid depth")
			return
		}
		depth = v
	}

	bids, asks := s.eng.Snapshot(depth)

	body := map[string]interface{}{
		"timestamp":    time.Now().UnixNano() / 1_000_000,
		"bids":         bids,
		"asks":         asks,
		"bid_interest": s.eng.BidInterest(),
		"ask_interest": s.eng.AskInterest(),
		"net_interest": s.eng.NetInterest(),
	}
	if bid, ok := s.eng.BestBid(); ok {
		body["best_bid"] = bid
	}
	if ask, ok := s.eng.BestAsk(); ok {
		body["best_ask"] = ask
	}
	if mid, ok := s.eng.MidPrice(); ok {
		body["mid_price"] = mid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(body)
}

// tradeView is the wire shape of one executed trade.
type tradeView struct {
	BuyOrderID  uint64 `json:"buyOrderId"`
	SellOrderID uint64 `json:"sellOrderId"`
	Price       int64  `json:"price"`
	Quantity    int64  `json:"quantity"`
}

func tradeViews(trades []engine.Trade) []tradeView {
	views := make([]tradeView, 0, len(trades))
	for _, t := range trades {
		views = append(views, tradeView{
			BuyOrderID:  t.Buy.OrderID,
			SellOrderID: t.Sell.OrderID,
			Price:       t.Price,
			Quantity:    t.Quantity,
		})
	}
	return views
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(tradeViews(s.eng.TradeHistory()))
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"cash":     s.pf.Cash(),
		"position": s.pf.Position(),
	}
	if mid, ok := s.eng.MidPrice(); ok {
		body["value"] = s.pf.Value(decimal.NewFromFloat(mid))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(body)
}

// helper for simple error bodies
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
