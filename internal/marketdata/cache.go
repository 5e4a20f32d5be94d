// Package marketdata caches the engine's view of ticks and bars.
package marketdata

import (
	"fmt"
	"log/slog"

	"github.com/tathienbao/strategy-engine/internal/types"
)

// Cache holds the last tick per symbol and a bounded, newest-first bar
// history per bar type. It is owned by a single strategy instance and
// mutated only from the dispatcher thread, so it takes no locks.
type Cache struct {
	capacity int
	logger   *slog.Logger
	ticks    map[types.Symbol]types.Tick
	bars     map[types.BarType][]types.Bar
}

// NewCache creates a cache retaining at most capacity bars per bar
// type.
func NewCache(capacity int, logger *slog.Logger) (*Cache, error) {
	if capacity <= 0 {
		return nil, types.ErrInvalidCapacity
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		capacity: capacity,
		logger:   logger,
		ticks:    make(map[types.Symbol]types.Tick),
		bars:     make(map[types.BarType][]types.Bar),
	}, nil
}

// AddTick stores the tick as the latest for its symbol.
func (c *Cache) AddTick(tick types.Tick) {
	c.ticks[tick.Symbol] = tick
}

// AddBar appends the bar at the front of its bar-type history, evicting
// the oldest bar once capacity is reached.
func (c *Cache) AddBar(barType types.BarType, bar types.Bar) {
	history, ok := c.bars[barType]
	if !ok {
		history = make([]types.Bar, 0, c.capacity)
	}

	history = append(history, types.Bar{})
	copy(history[1:], history)
	history[0] = bar

	if len(history) > c.capacity {
		history = history[:c.capacity]
	}
	c.bars[barType] = history
}

// LastTick returns the most recent tick for the symbol.
func (c *Cache) LastTick(symbol types.Symbol) (types.Tick, error) {
	tick, ok := c.ticks[symbol]
	if !ok {
		return types.Tick{}, fmt.Errorf("%w: %s", types.ErrTickNotFound, symbol)
	}
	return tick, nil
}

// LastBar returns the newest bar for the bar type.
func (c *Cache) LastBar(barType types.BarType) (types.Bar, error) {
	return c.Bar(barType, 0)
}

// Bar returns the bar at reverse index i (0 = newest).
func (c *Cache) Bar(barType types.BarType, i int) (types.Bar, error) {
	history, ok := c.bars[barType]
	if !ok {
		return types.Bar{}, fmt.Errorf("%w: %s", types.ErrBarTypeNotFound, barType)
	}
	if i < 0 || i >= len(history) {
		return types.Bar{}, fmt.Errorf("%w: index %d of %d bars for %s",
			types.ErrBarIndexOutOfRange, i, len(history), barType)
	}
	return history[i], nil
}

// Bars returns a stable snapshot copy of the bar history, newest first.
func (c *Cache) Bars(barType types.BarType) ([]types.Bar, error) {
	history, ok := c.bars[barType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrBarTypeNotFound, barType)
	}
	snapshot := make([]types.Bar, len(history))
	copy(snapshot, history)
	return snapshot, nil
}

// BarCount returns the number of bars held for the bar type.
func (c *Cache) BarCount(barType types.BarType) int {
	return len(c.bars[barType])
}

// BarTypes returns every bar type with cached history.
func (c *Cache) BarTypes() []types.BarType {
	out := make([]types.BarType, 0, len(c.bars))
	for bt := range c.bars {
		out = append(out, bt)
	}
	return out
}

// TickSnapshot returns a copy of the per-symbol last-tick map.
func (c *Cache) TickSnapshot() map[types.Symbol]types.Tick {
	out := make(map[types.Symbol]types.Tick, len(c.ticks))
	for sym, tick := range c.ticks {
		out[sym] = tick
	}
	return out
}

// Reset clears all cached ticks and bars.
func (c *Cache) Reset() {
	c.ticks = make(map[types.Symbol]types.Tick)
	c.bars = make(map[types.BarType][]types.Bar)
}
