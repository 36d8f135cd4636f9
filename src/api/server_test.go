package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	api "github.com/wgarrett707/orderbook/src/api"
	"github.com/wgarrett707/orderbook/src/engine"
	"github.com/wgarrett707/orderbook/src/portfolio"
)

func newTestServer() *api.Server {
	return api.NewServer(engine.NewTradingEngine(), portfolio.New(decimal.NewFromInt(1_000_000)), zap.NewNop())
}

func doPost(t *testing.T, srv *api.Server, body []byte, wantCode int) map[string]interface{} {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	if rr.Code != wantCode {
		t.Fatalf("expected %d, got %d body=%s", wantCode, rr.Code, rr.Body.String())
	}
	var got map[string]interface{}
	_ = json.Unmarshal(rr.Body.Bytes(), &got)
	return got
}

func TestCreateOrder_Rested(t *testing.T) {
	srv := newTestServer()

	body := []byte(`{"orderId":1,"price":100.50,"quantity":10,"side":"BUY","type":"LIMIT","duration":"GOOD_TILL_CANCELLED"}`)
	got := doPost(t, srv, body, http.StatusCreated)

	if got["status"] != "OPEN" {
		t.Fatalf("expected status OPEN, got %v", got["status"])
	}
	if got["remaining_quantity"].(float64) != 10 {
		t.Fatalf("expected remaining_quantity 10, got %v", got["remaining_quantity"])
	}
}

func TestCreateOrder_PartialFill(t *testing.T) {
	srv := newTestServer()

	// Seed book: sells so the incoming buy walks two levels and remains
	doPost(t, srv, []byte(`{"orderId":1,"price":150.50,"quantity":300,"side":"SELL","type":"LIMIT"}`), http.StatusCreated)
	doPost(t, srv, []byte(`{"orderId":2,"price":150.52,"quantity":400,"side":"SELL","type":"LIMIT"}`), http.StatusCreated)

	got := doPost(t, srv, []byte(`{"orderId":3,"price":150.53,"quantity":800,"side":"BUY","type":"LIMIT"}`), http.StatusAccepted)

	if got["status"] != "PARTIALLY_FILLED" {
		t.Fatalf("expected status PARTIALLY_FILLED, got %v", got["status"])
	}
	if got["filled_quantity"].(float64) != 700 {
		t.Fatalf("expected filled_quantity 700, got %v", got["filled_quantity"])
	}
	trades, ok := got["trades"].([]interface{})
	if !ok || len(trades) != 2 {
		t.Fatalf("expected 2 trades, got %v", got["trades"])
	}
	first := trades[0].(map[string]interface{})
	if first["sellOrderId"].(float64) != 1 {
		t.Fatalf("expected first trade against order 1, got %v", first)
	}
	if first["price"].(float64) != 15050 {
		t.Fatalf("expected execution at resting price 15050 ticks, got %v", first["price"])
	}
}

func TestCreateOrder_FOKCancelled(t *testing.T) {
	srv := newTestServer()

	doPost(t, srv, []byte(`{"orderId":1,"price":100,"quantity":5,"side":"SELL","type":"LIMIT"}`), http.StatusCreated)

	got := doPost(t, srv, []byte(`{"orderId":2,"price":100,"quantity":10,"side":"BUY","type":"LIMIT","duration":"FILL_OR_KILL"}`), http.StatusOK)
	if got["status"] != "CANCELLED" {
		t.Fatalf("expected status CANCELLED, got %v", got["status"])
	}
	trades := got["trades"].([]interface{})
	if len(trades) != 0 {
		t.Fatalf("expected no trades, got %v", trades)
	}
}

func TestCreateOrder_RejectsUnknownEnums(t *testing.T) {
	srv := newTestServer()

	for _, body := range []string{
		`{"orderId":1,"price":100,"quantity":10,"side":"HOLD","type":"LIMIT"}`,
		`{"orderId":1,"price":100,"quantity":10,"side":"BUY","type":"STOP"}`,
		`{"orderId":1,"price":100,"quantity":10,"side":"BUY","type":"LIMIT","duration":"DAY"}`,
		`{"orderId":1,"price":100,"quantity":0,"side":"BUY","type":"LIMIT"}`,
	} {
		got := doPost(t, srv, []byte(body), http.StatusBadRequest)
		if got["error"] == nil || got["error"] == "" {
			t.Fatalf("expected error body for %s", body)
		}
	}
}

func TestGetAndCancelOrder(t *testing.T) {
	srv := newTestServer()

	doPost(t, srv, []byte(`{"orderId":7,"price":100,"quantity":10,"side":"BUY","type":"LIMIT"}`), http.StatusCreated)

	req := httptest.NewRequest(http.MethodGet, "/orders/7", nil)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	// Cancel twice: true then false, both 200
	for i, want := range []bool{true, false} {
		req = httptest.NewRequest(http.MethodDelete, "/orders/7", nil)
		rr = httptest.NewRecorder()
		srv.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("cancel %d: expected 200, got %d", i, rr.Code)
		}
		var got map[string]interface{}
		_ = json.Unmarshal(rr.Body.Bytes(), &got)
		if got["cancelled"] != want {
			t.Fatalf("cancel %d: expected cancelled=%v, got %v", i, want, got["cancelled"])
		}
	}

	req = httptest.NewRequest(http.MethodGet, "/orders/99", nil)
	rr = httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown order, got %d", rr.Code)
	}
}

func TestOrderBookAndTrades(t *testing.T) {
	srv := newTestServer()

	doPost(t, srv, []byte(`{"orderId":1,"price":100,"quantity":10,"side":"BUY","type":"LIMIT"}`), http.StatusCreated)
	doPost(t, srv, []byte(`{"orderId":2,"price":101,"quantity":5,"side":"SELL","type":"LIMIT"}`), http.StatusCreated)
	doPost(t, srv, []byte(`{"orderId":3,"price":100,"quantity":4,"side":"SELL","type":"LIMIT"}`), http.StatusOK)

	req := httptest.NewRequest(http.MethodGet, "/orderbook", nil)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var book map[string]interface{}
	_ = json.Unmarshal(rr.Body.Bytes(), &book)
	if book["bid_interest"].(float64) != 6 {
		t.Fatalf("expected bid_interest 6, got %v", book["bid_interest"])
	}
	if book["mid_price"].(float64) != 10050 {
		t.Fatalf("expected mid_price 10050, got %v", book["mid_price"])
	}

	req = httptest.NewRequest(http.MethodGet, "/trades", nil)
	rr = httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	var trades []map[string]interface{}
	_ = json.Unmarshal(rr.Body.Bytes(), &trades)
	if len(trades) != 1 {
		t.Fatalf("expected 1 trade in history, got %d", len(trades))
	}
	if trades[0]["buyOrderId"].(float64) != 1 || trades[0]["sellOrderId"].(float64) != 3 {
		t.Fatalf("unexpected trade ids: %v", trades[0])
	}
}

// Posts crossing buys and sells from parallel goroutines while other
// goroutines read the book. The response for each POST must come from a
// consistent snapshot even when the submitted order is being matched by a
// concurrent request; run with -race.
func TestConcurrentCrossingOrders(t *testing.T) {
	srv := newTestServer()

	const perSide = 100
	var wg sync.WaitGroup

	post := func(startID int, side string) {
		defer wg.Done()
		for i := 0; i < perSide; i++ {
			body := fmt.Sprintf(`{"orderId":%d,"price":100,"quantity":10,"side":%q,"type":"LIMIT"}`, startID+i, side)
			req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader([]byte(body)))
			req.Header.Set("Content-Type", "application/json")
			rr := httptest.NewRecorder()
			srv.ServeHTTP(rr, req)
			if rr.Code < 200 || rr.Code > 299 {
				t.Errorf("%s order %d: unexpected status %d body=%s", side, startID+i, rr.Code, rr.Body.String())
				return
			}
		}
	}

	wg.Add(3)
	go post(1, "BUY")
	go post(1001, "SELL")
	go func() {
		defer wg.Done()
		for i := 0; i < perSide; i++ {
			req := httptest.NewRequest(http.MethodGet, "/orderbook", nil)
			rr := httptest.NewRecorder()
			srv.ServeHTTP(rr, req)
			if rr.Code != http.StatusOK {
				t.Errorf("orderbook read %d: status %d", i, rr.Code)
				return
			}
		}
	}()
	wg.Wait()

	// Equal opposing flow at one price nets out completely
	req := httptest.NewRequest(http.MethodGet, "/trades", nil)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	var trades []map[string]interface{}
	_ = json.Unmarshal(rr.Body.Bytes(), &trades)
	var traded float64
	for _, trade := range trades {
		traded += trade["quantity"].(float64)
	}
	if traded != perSide*10 {
		t.Fatalf("expected %d total quantity traded, got %v", perSide*10, traded)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer()

	for _, path := range []string{"/health", "/metrics"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rr := httptest.NewRecorder()
		srv.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rr.Code)
		}
	}
}
