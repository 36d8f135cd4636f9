// Package feed ingests order batches from CSV.
//
// Expected columns per row:
//
//	orderId,quantity,price,type,side,duration[,personal]
//
// Prices are decimal strings ("150.50") converted to integer ticks. Rows
// with unknown enum values or non-tick-aligned prices are rejected with an
// error naming the line; nothing is silently defaulted.
package feed

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/wgarrett707/orderbook/src/engine"
)

// ticksPerUnit converts between decimal prices on the wire and the engine's
// integer ticks (cents).
var ticksPerUnit = decimal.NewFromInt(100)

// ParseOrders reads CSV rows from r and returns the orders in file order.
func ParseOrders(r io.Reader) ([]*engine.Order, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // personal column is optional
	reader.TrimLeadingSpace = true

	var orders []*engine.Order
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("feed: read csv: %w", err)
		}
		line++

		order, err := parseRecord(record)
		if err != nil {
			return nil, fmt.Errorf("feed: line %d: %w", line, err)
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// LoadFile parses every order in the CSV file at path.
func LoadFile(path string) ([]*engine.Order, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("feed: %w", err)
	}
	defer f.Close()
	return ParseOrders(f)
}

func parseRecord(record []string) (*engine.Order, error) {
	if len(record) < 6 {
		return nil, fmt.Errorf("expected at least 6 fields, got %d", len(record))
	}

	id, err := strconv.ParseUint(strings.TrimSpace(record[0]), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("order id %q: %w", record[0], err)
	}
	quantity, err := strconv.ParseInt(strings.TrimSpace(record[1]), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("quantity %q: %w", record[1], err)
	}
	price, err := parsePriceTicks(record[2])
	if err != nil {
		return nil, err
	}
	orderType, err := engine.ParseOrderType(record[3])
	if err != nil {
		return nil, err
	}
	side, err := engine.ParseSide(record[4])
	if err != nil {
		return nil, err
	}
	duration, err := engine.ParseDuration(record[5])
	if err != nil {
		return nil, err
	}

	personal := false
	if len(record) > 6 {
		personal, err = strconv.ParseBool(strings.TrimSpace(record[6]))
		if err != nil {
			return nil, fmt.Errorf("personal flag %q: %w", record[6], err)
		}
	}

	order := engine.NewOrder(id, side, orderType, duration, price, quantity, personal)
	if err := order.Validate(); err != nil {
		return nil, err
	}
	return order, nil
}

// parsePriceTicks converts a decimal price string into integer ticks.
func parsePriceTicks(s string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("price %q: %w", s, err)
	}
	ticks := d.Mul(ticksPerUnit)
	if !ticks.IsInteger() {
		return 0, fmt.Errorf("price %q is finer than one tick", s)
	}
	return ticks.IntPart(), nil
}
