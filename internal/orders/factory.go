// Package orders provides the order factory.
package orders

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/tathienbao/strategy-engine/internal/clock"
	"github.com/tathienbao/strategy-engine/internal/ids"
	"github.com/tathienbao/strategy-engine/internal/types"
)

// Factory builds orders stamped with generated identifiers and the
// current clock time. A factory is rebuilt whenever the engine changes
// clock so backtest orders carry virtual timestamps.
type Factory struct {
	idGen *ids.OrderIDGenerator
	clk   clock.Clock
}

// NewFactory creates an order factory.
func NewFactory(traderTag string, strategyTag string, clk clock.Clock) *Factory {
	return &Factory{
		idGen: ids.NewOrderIDGenerator(traderTag, strategyTag, clk),
		clk:   clk,
	}
}

// Market builds a market order.
func (f *Factory) Market(symbol types.Symbol, side types.OrderSide, qty decimal.Decimal, purpose types.OrderPurpose) (types.Order, error) {
	if !qty.IsPositive() {
		return types.Order{}, types.ErrInvalidQuantity
	}
	return types.Order{
		ID:          f.idGen.GenerateOrderID(),
		Symbol:      symbol,
		Side:        side,
		Type:        types.OrderTypeMarket,
		Quantity:    qty,
		Purpose:     purpose,
		TimeInForce: types.TIFDay,
		Status:      types.OrderStatusInitialized,
		Timestamp:   f.clk.TimeNow(),
	}, nil
}

// Limit builds a limit order.
func (f *Factory) Limit(symbol types.Symbol, side types.OrderSide, qty, price decimal.Decimal, purpose types.OrderPurpose, tif types.TimeInForce, expire time.Time) (types.Order, error) {
	if !qty.IsPositive() {
		return types.Order{}, types.ErrInvalidQuantity
	}
	return types.Order{
		ID:          f.idGen.GenerateOrderID(),
		Symbol:      symbol,
		Side:        side,
		Type:        types.OrderTypeLimit,
		Quantity:    qty,
		Price:       price,
		Purpose:     purpose,
		TimeInForce: tif,
		ExpireTime:  expire,
		Status:      types.OrderStatusInitialized,
		Timestamp:   f.clk.TimeNow(),
	}, nil
}

// StopMarket builds a stop-market order.
func (f *Factory) StopMarket(symbol types.Symbol, side types.OrderSide, qty, trigger decimal.Decimal, purpose types.OrderPurpose, tif types.TimeInForce, expire time.Time) (types.Order, error) {
	if !qty.IsPositive() {
		return types.Order{}, types.ErrInvalidQuantity
	}
	return types.Order{
		ID:          f.idGen.GenerateOrderID(),
		Symbol:      symbol,
		Side:        side,
		Type:        types.OrderTypeStopMarket,
		Quantity:    qty,
		Price:       trigger,
		Purpose:     purpose,
		TimeInForce: tif,
		ExpireTime:  expire,
		Status:      types.OrderStatusInitialized,
		Timestamp:   f.clk.TimeNow(),
	}, nil
}

// Atomic builds an atomic order: a market entry with a stop-loss child
// and an optional take-profit child on the opposite side.
func (f *Factory) Atomic(symbol types.Symbol, side types.OrderSide, qty, stopPrice decimal.Decimal, takeProfit *decimal.Decimal) (types.AtomicOrder, error) {
	entry, err := f.Market(symbol, side, qty, types.PurposeEntry)
	if err != nil {
		return types.AtomicOrder{}, err
	}

	stopLoss, err := f.StopMarket(symbol, side.Opposite(), qty, stopPrice, types.PurposeStopLoss, types.TIFGTC, time.Time{})
	if err != nil {
		return types.AtomicOrder{}, err
	}

	atomic := types.AtomicOrder{Entry: entry, StopLoss: stopLoss}

	if takeProfit != nil {
		tp, err := f.Limit(symbol, side.Opposite(), qty, *takeProfit, types.PurposeTakeProfit, types.TIFGTC, time.Time{})
		if err != nil {
			return types.AtomicOrder{}, err
		}
		atomic.TakeProfit = &tp
	}

	if err := atomic.Validate(); err != nil {
		return types.AtomicOrder{}, err
	}
	return atomic, nil
}

// Reset zeroes the identifier counter.
func (f *Factory) Reset() {
	f.idGen.Reset()
}
