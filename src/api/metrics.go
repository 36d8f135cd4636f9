package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metrics holds the server's Prometheus collectors on a private registry so
// no process-wide default registry is touched.
type metrics struct {
	registry *prometheus.Registry

	ordersSubmitted *prometheus.CounterVec
	ordersRejected  prometheus.Counter
	ordersCancelled prometheus.Counter
	tradesExecuted  prometheus.Counter
	tradedQuantity  prometheus.Counter
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		ordersSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orderbook_orders_submitted_total",
			Help: "Orders accepted by the engine, by side.",
		}, []string{"side"}),
		ordersRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orderbook_orders_rejected_total",
			Help: "Orders rejected for malformed input.",
		}),
		ordersCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orderbook_orders_cancelled_total",
			Help: "Resting orders removed through the cancel endpoint.",
		}),
		tradesExecuted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orderbook_trades_executed_total",
			Help: "Trades produced by order submissions.",
		}),
		tradedQuantity: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orderbook_traded_quantity_total",
			Help: "Total quantity matched across all trades.",
		}),
	}
	m.registry.MustRegister(m.ordersSubmitted, m.ordersRejected, m.ordersCancelled, m.tradesExecuted, m.tradedQuantity)
	return m
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
