package engine

import (
	"time"

	"github.com/tathienbao/strategy-engine/internal/types"
)

// TickHandler receives ticks from a data client.
type TickHandler func(types.Tick)

// BarHandler receives bars from a data client.
type BarHandler func(types.BarType, types.Bar)

// InstrumentHandler receives instrument updates from a data client.
type InstrumentHandler func(types.Instrument)

// DataClient is the market-data boundary consumed by the engine.
// Implementations must marshal their callbacks onto the dispatcher
// thread; the engine is single-threaded and takes no locks.
type DataClient interface {
	Symbols() []types.Symbol
	Instrument(symbol types.Symbol) (types.Instrument, error)

	HistoricalBars(barType types.BarType, quantity int, onBar BarHandler) error
	HistoricalBarsFrom(barType types.BarType, from time.Time, onBar BarHandler) error

	SubscribeBars(barType types.BarType, onBar BarHandler) error
	UnsubscribeBars(barType types.BarType) error
	SubscribeTicks(symbol types.Symbol, onTick TickHandler) error
	UnsubscribeTicks(symbol types.Symbol) error
	SubscribeInstrument(symbol types.Symbol, onInstrument InstrumentHandler) error
}

// ExecutionClient is the order-transport boundary consumed by the
// engine. Commands flow out through Execute; order events flow back
// through the handler the runtime registered with the dispatcher.
type ExecutionClient interface {
	Execute(cmd types.Command) error

	Order(id types.OrderID) (types.Order, error)
	Orders(strategyID types.StrategyID) map[types.OrderID]types.Order
	OrdersActive(strategyID types.StrategyID) map[types.OrderID]types.Order
	OrdersCompleted(strategyID types.StrategyID) map[types.OrderID]types.Order

	IsOrderExists(id types.OrderID) bool
	IsOrderActive(id types.OrderID) bool
	IsOrderComplete(id types.OrderID) bool

	Account() (types.Account, error)
}

// Portfolio is the position-accounting boundary consumed by the
// engine. Positions are created by the portfolio on first fill and
// closed when net quantity returns to zero.
type Portfolio interface {
	Position(id types.PositionID) (types.Position, error)
	Positions(strategyID types.StrategyID) map[types.PositionID]types.Position
	PositionsActive(strategyID types.StrategyID) map[types.PositionID]types.Position
	PositionsClosed(strategyID types.StrategyID) map[types.PositionID]types.Position
	PositionForOrder(orderID types.OrderID) (types.Position, error)

	IsPositionExists(id types.PositionID) bool
	IsStrategyFlat(strategyID types.StrategyID) bool
}
