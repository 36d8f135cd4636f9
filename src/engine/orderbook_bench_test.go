package engine

import (
	"math/rand"
	"testing"
)

// randomOrders builds a batch of limit orders clustered around a mid price,
// mirroring the shape of real flow: small quantities, ±1% price noise.
func randomOrders(n int, rng *rand.Rand) []*Order {
	const mid = 10000
	orders := make([]*Order, 0, n)
	for i := 0; i < n; i++ {
		quantity := int64(rng.Intn(100) + 1)
		price := mid + int64(rng.Intn(201)) - 100
		side := Buy
		if rng.Intn(2) == 0 {
			side = Sell
		}
		orders = append(orders, NewOrder(uint64(i+1), side, Limit, GoodTillCancelled, price, quantity, false))
	}
	return orders
}

func BenchmarkAddOrder(b *testing.B) {
	rng := rand.New(rand.NewSource(42))
	orders := randomOrders(b.N, rng)
	ob := NewOrderBook()

	b.ResetTimer()
	for _, order := range orders {
		_, _ = ob.AddOrder(order)
	}
}

func BenchmarkAddOrderDeepBook(b *testing.B) {
	rng := rand.New(rand.NewSource(42))
	ob := NewOrderBook()

	// Pre-build a deep one-sided book so every incoming order sweeps levels.
	for i := 0; i < 10000; i++ {
		_, _ = ob.AddOrder(NewOrder(uint64(i+1), Sell, Limit, GoodTillCancelled, 10000+int64(i%500), 100, false))
	}
	orders := make([]*Order, 0, b.N)
	for i := 0; i < b.N; i++ {
		orders = append(orders, NewOrder(uint64(100000+i), Buy, Limit, ImmediateOrCancel, 10000+int64(rng.Intn(500)), int64(rng.Intn(100)+1), false))
	}

	b.ResetTimer()
	for _, order := range orders {
		_, _ = ob.AddOrder(order)
	}
}

func BenchmarkCancelOrder(b *testing.B) {
	ob := NewOrderBook()
	for i := 0; i < b.N; i++ {
		_, _ = ob.AddOrder(NewOrder(uint64(i+1), Buy, Limit, GoodTillCancelled, 10000+int64(i%100), 10, false))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ob.CancelOrder(uint64(i + 1))
	}
}
