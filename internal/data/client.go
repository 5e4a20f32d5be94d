package data

import (
	"fmt"
	"sort"
	"time"

	"github.com/tathienbao/strategy-engine/internal/engine"
	"github.com/tathienbao/strategy-engine/internal/types"
)

// CSVClient serves preloaded bar series through the engine's
// market-data boundary. The backtest runner drives delivery by calling
// Publish for each bar in time order; live subscriptions simply record
// the engine's handlers.
type CSVClient struct {
	instruments map[types.Symbol]types.Instrument
	series      map[types.BarType][]types.Bar

	barSubs        map[types.BarType]engine.BarHandler
	tickSubs       map[types.Symbol]engine.TickHandler
	instrumentSubs map[types.Symbol]engine.InstrumentHandler
}

// NewCSVClient creates an empty CSV data client.
func NewCSVClient() *CSVClient {
	return &CSVClient{
		instruments:    make(map[types.Symbol]types.Instrument),
		series:         make(map[types.BarType][]types.Bar),
		barSubs:        make(map[types.BarType]engine.BarHandler),
		tickSubs:       make(map[types.Symbol]engine.TickHandler),
		instrumentSubs: make(map[types.Symbol]engine.InstrumentHandler),
	}
}

// AddInstrument registers an instrument specification.
func (c *CSVClient) AddInstrument(instrument types.Instrument) {
	c.instruments[instrument.Symbol] = instrument
}

// AddBarSeries loads a bar series for the bar type. Bars are sorted by
// timestamp ascending.
func (c *CSVClient) AddBarSeries(barType types.BarType, bars []types.Bar) {
	sorted := append([]types.Bar(nil), bars...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	c.series[barType] = sorted
}

// LoadBarSeries reads a CSV file into a bar series for the bar type.
func (c *CSVClient) LoadBarSeries(barType types.BarType, path string) error {
	bars, err := LoadBarsFile(path)
	if err != nil {
		return err
	}
	c.AddBarSeries(barType, bars)
	return nil
}

// Symbols returns every symbol with a registered instrument.
func (c *CSVClient) Symbols() []types.Symbol {
	out := make([]types.Symbol, 0, len(c.instruments))
	for symbol := range c.instruments {
		out = append(out, symbol)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Instrument returns the instrument specification for the symbol.
func (c *CSVClient) Instrument(symbol types.Symbol) (types.Instrument, error) {
	instrument, ok := c.instruments[symbol]
	if !ok {
		return types.Instrument{}, fmt.Errorf("%w: %s", types.ErrInstrumentNotFound, symbol)
	}
	return instrument, nil
}

// HistoricalBars delivers the last quantity bars of the series in
// chronological order.
func (c *CSVClient) HistoricalBars(barType types.BarType, quantity int, onBar engine.BarHandler) error {
	bars, ok := c.series[barType]
	if !ok {
		return fmt.Errorf("%w: %s", types.ErrBarTypeNotFound, barType)
	}
	start := len(bars) - quantity
	if start < 0 {
		start = 0
	}
	for _, bar := range bars[start:] {
		onBar(barType, bar)
	}
	return nil
}

// HistoricalBarsFrom delivers the bars at or after the given time in
// chronological order.
func (c *CSVClient) HistoricalBarsFrom(barType types.BarType, from time.Time, onBar engine.BarHandler) error {
	bars, ok := c.series[barType]
	if !ok {
		return fmt.Errorf("%w: %s", types.ErrBarTypeNotFound, barType)
	}
	for _, bar := range bars {
		if bar.Timestamp.Before(from) {
			continue
		}
		onBar(barType, bar)
	}
	return nil
}

// SubscribeBars records the handler for the bar type.
func (c *CSVClient) SubscribeBars(barType types.BarType, onBar engine.BarHandler) error {
	c.barSubs[barType] = onBar
	return nil
}

// UnsubscribeBars removes the bar subscription.
func (c *CSVClient) UnsubscribeBars(barType types.BarType) error {
	delete(c.barSubs, barType)
	return nil
}

// SubscribeTicks records the handler for the symbol.
func (c *CSVClient) SubscribeTicks(symbol types.Symbol, onTick engine.TickHandler) error {
	c.tickSubs[symbol] = onTick
	return nil
}

// UnsubscribeTicks removes the tick subscription.
func (c *CSVClient) UnsubscribeTicks(symbol types.Symbol) error {
	delete(c.tickSubs, symbol)
	return nil
}

// SubscribeInstrument records the handler and immediately delivers the
// known instrument, if any.
func (c *CSVClient) SubscribeInstrument(symbol types.Symbol, onInstrument engine.InstrumentHandler) error {
	c.instrumentSubs[symbol] = onInstrument
	if instrument, ok := c.instruments[symbol]; ok {
		onInstrument(instrument)
	}
	return nil
}

// SubscribedBarTypes returns the bar types with active subscriptions,
// sorted for deterministic replay.
func (c *CSVClient) SubscribedBarTypes() []types.BarType {
	out := make([]types.BarType, 0, len(c.barSubs))
	for barType := range c.barSubs {
		out = append(out, barType)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// BarSeries returns the loaded series for the bar type.
func (c *CSVClient) BarSeries(barType types.BarType) []types.Bar {
	return c.series[barType]
}

// Publish delivers a bar to the subscribed handler, if any.
func (c *CSVClient) Publish(barType types.BarType, bar types.Bar) {
	if handler, ok := c.barSubs[barType]; ok {
		handler(barType, bar)
	}
}

// PublishTick delivers a tick to the subscribed handler, if any.
func (c *CSVClient) PublishTick(tick types.Tick) {
	if handler, ok := c.tickSubs[tick.Symbol]; ok {
		handler(tick)
	}
}
