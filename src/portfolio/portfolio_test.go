package portfolio

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/wgarrett707/orderbook/src/engine"
)

func trade(price, quantity int64, buyPersonal, sellPersonal bool) engine.Trade {
	return engine.Trade{
		Buy:      engine.TradeSide{OrderID: 1, Price: price, Quantity: quantity, Personal: buyPersonal},
		Sell:     engine.TradeSide{OrderID: 2, Price: price, Quantity: quantity, Personal: sellPersonal},
		Price:    price,
		Quantity: quantity,
	}
}

func TestUpdateAppliesOnlyPersonalSides(t *testing.T) {
	assert := assert.New(t)
	pf := New(decimal.NewFromInt(100000))

	// Non-personal trades never move the portfolio
	pf.Update([]engine.Trade{trade(100, 10, false, false)})
	assert.True(pf.Cash().Equal(decimal.NewFromInt(100000)))
	assert.Equal(int64(0), pf.Position())

	// Personal buy: position up, cash down by price*quantity
	pf.Update([]engine.Trade{trade(100, 10, true, false)})
	assert.True(pf.Cash().Equal(decimal.NewFromInt(99000)))
	assert.Equal(int64(10), pf.Position())

	// Personal sell: the inverse
	pf.Update([]engine.Trade{trade(150, 4, false, true)})
	assert.True(pf.Cash().Equal(decimal.NewFromInt(99600)))
	assert.Equal(int64(6), pf.Position())
}

func TestUpdateBothSidesPersonal(t *testing.T) {
	assert := assert.New(t)
	pf := New(decimal.NewFromInt(1000))

	// Self-cross: cash and position net out
	pf.Update([]engine.Trade{trade(100, 5, true, true)})
	assert.True(pf.Cash().Equal(decimal.NewFromInt(1000)))
	assert.Equal(int64(0), pf.Position())
}

func TestValueMarksPosition(t *testing.T) {
	assert := assert.New(t)
	pf := New(decimal.NewFromInt(1000))

	pf.Update([]engine.Trade{trade(100, 3, true, false)})
	// cash 700, position 3 marked at 120 = 360
	assert.True(pf.Value(decimal.NewFromInt(120)).Equal(decimal.NewFromInt(1060)))
}
