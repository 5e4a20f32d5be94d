package engine

import (
	"fmt"
	"time"

	"github.com/tathienbao/strategy-engine/internal/types"
)

// Market-data accessors.

// LastTick returns the most recent tick for the symbol.
func (e *Engine) LastTick(symbol types.Symbol) (types.Tick, error) {
	return e.cache.LastTick(symbol)
}

// LastBar returns the newest bar for the bar type.
func (e *Engine) LastBar(barType types.BarType) (types.Bar, error) {
	return e.cache.LastBar(barType)
}

// Bar returns the bar at reverse index i (0 = newest).
func (e *Engine) Bar(barType types.BarType, i int) (types.Bar, error) {
	return e.cache.Bar(barType, i)
}

// Bars returns a snapshot copy of the bar history, newest first.
func (e *Engine) Bars(barType types.BarType) ([]types.Bar, error) {
	return e.cache.Bars(barType)
}

// BarCount returns the number of bars cached for the bar type.
func (e *Engine) BarCount(barType types.BarType) int {
	return e.cache.BarCount(barType)
}

// Indicator registry surface.

// RegisterIndicator binds an indicator and its updater to a bar type.
func (e *Engine) RegisterIndicator(barType types.BarType, ind Indicator, update UpdateFn) {
	e.registry.Register(barType, ind, update)
}

// Indicators returns a copy of the indicators bound to the bar type.
func (e *Engine) Indicators(barType types.BarType) []Indicator {
	return e.registry.Indicators(barType)
}

// IndicatorsInitialized returns true iff every indicator bound to the
// bar type reports initialized.
func (e *Engine) IndicatorsInitialized(barType types.BarType) bool {
	return e.registry.Initialized(barType)
}

// IndicatorsInitializedAll folds initialization across all bar types.
func (e *Engine) IndicatorsInitializedAll() bool {
	return e.registry.InitializedAll()
}

// Data-client surface.

// Symbols returns every symbol the data client provides.
func (e *Engine) Symbols() []types.Symbol {
	if e.data == nil {
		e.logger.Error("symbols suppressed", "err", types.ErrNoDataClient)
		return nil
	}
	return e.data.Symbols()
}

// Instruments returns the data client's symbol universe. Kept for
// compatibility with existing strategies; use Instrument for the full
// specification of a single symbol.
func (e *Engine) Instruments() []types.Symbol {
	return e.Symbols()
}

// Instrument returns the instrument specification for the symbol.
func (e *Engine) Instrument(symbol types.Symbol) (types.Instrument, error) {
	if e.data == nil {
		return types.Instrument{}, types.ErrNoDataClient
	}
	return e.data.Instrument(symbol)
}

// HistoricalBars downloads the last quantity bars for the bar type
// into the engine's cache.
func (e *Engine) HistoricalBars(barType types.BarType, quantity int) error {
	if e.data == nil {
		e.logger.Error("historical bars suppressed", "err", types.ErrNoDataClient)
		return nil
	}
	if err := e.data.HistoricalBars(barType, quantity, e.HandleBar); err != nil {
		return fmt.Errorf("historical bars: %w", err)
	}
	return nil
}

// HistoricalBarsFrom downloads bars from the given time into the
// engine's cache.
func (e *Engine) HistoricalBarsFrom(barType types.BarType, from time.Time) error {
	if e.data == nil {
		e.logger.Error("historical bars suppressed", "err", types.ErrNoDataClient)
		return nil
	}
	if err := e.data.HistoricalBarsFrom(barType, from, e.HandleBar); err != nil {
		return fmt.Errorf("historical bars from: %w", err)
	}
	return nil
}

// SubscribeBars subscribes the engine's dispatcher to the bar stream.
func (e *Engine) SubscribeBars(barType types.BarType) error {
	if e.data == nil {
		e.logger.Error("subscribe bars suppressed", "err", types.ErrNoDataClient)
		return nil
	}
	return e.data.SubscribeBars(barType, e.HandleBar)
}

// UnsubscribeBars removes the bar-stream subscription.
func (e *Engine) UnsubscribeBars(barType types.BarType) error {
	if e.data == nil {
		e.logger.Error("unsubscribe bars suppressed", "err", types.ErrNoDataClient)
		return nil
	}
	return e.data.UnsubscribeBars(barType)
}

// SubscribeTicks subscribes the engine's dispatcher to the tick stream.
func (e *Engine) SubscribeTicks(symbol types.Symbol) error {
	if e.data == nil {
		e.logger.Error("subscribe ticks suppressed", "err", types.ErrNoDataClient)
		return nil
	}
	return e.data.SubscribeTicks(symbol, e.HandleTick)
}

// UnsubscribeTicks removes the tick-stream subscription.
func (e *Engine) UnsubscribeTicks(symbol types.Symbol) error {
	if e.data == nil {
		e.logger.Error("unsubscribe ticks suppressed", "err", types.ErrNoDataClient)
		return nil
	}
	return e.data.UnsubscribeTicks(symbol)
}

// SubscribeInstrument subscribes the engine's dispatcher to instrument
// updates.
func (e *Engine) SubscribeInstrument(symbol types.Symbol) error {
	if e.data == nil {
		e.logger.Error("subscribe instrument suppressed", "err", types.ErrNoDataClient)
		return nil
	}
	return e.data.SubscribeInstrument(symbol, e.HandleInstrument)
}

// Execution-client surface.

// Order returns the live order state from the execution client.
func (e *Engine) Order(id types.OrderID) (types.Order, error) {
	if e.exec == nil {
		return types.Order{}, types.ErrNoExecutionClient
	}
	return e.exec.Order(id)
}

// Orders returns every order of this strategy.
func (e *Engine) Orders() map[types.OrderID]types.Order {
	if e.exec == nil {
		e.logger.Error("orders suppressed", "err", types.ErrNoExecutionClient)
		return nil
	}
	return e.exec.Orders(e.cfg.StrategyID)
}

// OrdersActive returns the working orders of this strategy.
func (e *Engine) OrdersActive() map[types.OrderID]types.Order {
	if e.exec == nil {
		e.logger.Error("orders suppressed", "err", types.ErrNoExecutionClient)
		return nil
	}
	return e.exec.OrdersActive(e.cfg.StrategyID)
}

// OrdersCompleted returns the completed orders of this strategy.
func (e *Engine) OrdersCompleted() map[types.OrderID]types.Order {
	if e.exec == nil {
		e.logger.Error("orders suppressed", "err", types.ErrNoExecutionClient)
		return nil
	}
	return e.exec.OrdersCompleted(e.cfg.StrategyID)
}

// Portfolio surface.

// Position returns the position with the given id.
func (e *Engine) Position(id types.PositionID) (types.Position, error) {
	if e.portfolio == nil {
		return types.Position{}, types.ErrNoPortfolio
	}
	return e.portfolio.Position(id)
}

// Positions returns every position of this strategy.
func (e *Engine) Positions() map[types.PositionID]types.Position {
	if e.portfolio == nil {
		e.logger.Error("positions suppressed", "err", types.ErrNoPortfolio)
		return nil
	}
	return e.portfolio.Positions(e.cfg.StrategyID)
}

// PositionsActive returns the open positions of this strategy.
func (e *Engine) PositionsActive() map[types.PositionID]types.Position {
	if e.portfolio == nil {
		e.logger.Error("positions suppressed", "err", types.ErrNoPortfolio)
		return nil
	}
	return e.portfolio.PositionsActive(e.cfg.StrategyID)
}

// PositionsClosed returns the closed positions of this strategy.
func (e *Engine) PositionsClosed() map[types.PositionID]types.Position {
	if e.portfolio == nil {
		e.logger.Error("positions suppressed", "err", types.ErrNoPortfolio)
		return nil
	}
	return e.portfolio.PositionsClosed(e.cfg.StrategyID)
}

// IsFlat returns true if this strategy holds no open positions.
func (e *Engine) IsFlat() bool {
	if e.portfolio == nil {
		return true
	}
	return e.portfolio.IsStrategyFlat(e.cfg.StrategyID)
}

// Clock convenience surface.

// TimeNow returns the clock's current time.
func (e *Engine) TimeNow() time.Time {
	return e.clk.TimeNow()
}

// SetTimer registers a repeating timer on the clock.
func (e *Engine) SetTimer(label string, interval time.Duration) error {
	return e.clk.SetTimer(label, interval)
}

// SetTimeAlert registers a one-shot alert on the clock.
func (e *Engine) SetTimeAlert(label string, alertTime time.Time) error {
	return e.clk.SetTimeAlert(label, alertTime)
}
