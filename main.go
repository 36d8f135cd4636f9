package main

import (
	"flag"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/wgarrett707/orderbook/src/api"
	"github.com/wgarrett707/orderbook/src/engine"
	"github.com/wgarrett707/orderbook/src/feed"
	"github.com/wgarrett707/orderbook/src/portfolio"
	"github.com/wgarrett707/orderbook/src/sim"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "HTTP listen address")
		csvPath    = flag.String("csv", "", "optional CSV file of orders to preload")
		iterations = flag.Int("simulate", 0, "run this many simulation iterations before serving")
		seed       = flag.Int64("seed", 1, "random seed for the order generator")
		cash       = flag.Int64("cash", 10_000_000, "starting portfolio cash in ticks")
	)
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	eng := engine.NewTradingEngine()
	pf := portfolio.New(decimal.NewFromInt(*cash))

	if *csvPath != "" {
		orders, err := feed.LoadFile(*csvPath)
		if err != nil {
			logger.Fatal("failed to load csv orders", zap.String("path", *csvPath), zap.Error(err))
		}
		for _, order := range orders {
			trades, err := eng.SubmitOrder(order)
			if err != nil {
				logger.Fatal("failed to preload order", zap.Uint64("order_id", order.ID), zap.Error(err))
			}
			pf.Update(trades)
		}
		logger.Info("preloaded orders from csv", zap.String("path", *csvPath), zap.Int("orders", len(orders)))
	}

	if *iterations > 0 {
		simulator := sim.NewSimulator(eng, pf, sim.NewGenerator(*seed))
		if err := simulator.Run(*iterations); err != nil {
			logger.Fatal("simulation failed", zap.Error(err))
		}
		values := simulator.PortfolioValues()
		logger.Info("simulation complete",
			zap.Int("iterations", *iterations),
			zap.Int("trades", len(eng.TradeHistory())),
			zap.String("portfolio_value", values[len(values)-1].String()))
	}

	srv := api.NewServer(eng, pf, logger)
	logger.Info("starting API server", zap.String("addr", *addr))
	if err := srv.Start(*addr); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}
