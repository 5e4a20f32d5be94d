// Package strategy contains sample strategies hosted by the engine.
package strategy

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tathienbao/strategy-engine/internal/engine"
	"github.com/tathienbao/strategy-engine/internal/types"
	"github.com/tathienbao/strategy-engine/pkg/indicator"
)

// EMACrossConfig holds configuration for the EMA-cross strategy.
type EMACrossConfig struct {
	Symbol        types.Symbol
	BarSpec       types.BarSpec
	FastPeriod    int
	SlowPeriod    int
	ATRPeriod     int
	ATRMultiplier decimal.Decimal // stop distance in ATRs
	TradeSize     decimal.Decimal
}

// DefaultEMACrossConfig returns sensible defaults for a FX minute
// series.
func DefaultEMACrossConfig(symbol types.Symbol) EMACrossConfig {
	return EMACrossConfig{
		Symbol: symbol,
		BarSpec: types.BarSpec{
			Period:     1,
			Resolution: types.ResolutionMinute,
			PriceType:  types.PriceTypeMid,
		},
		FastPeriod:    10,
		SlowPeriod:    20,
		ATRPeriod:     14,
		ATRMultiplier: decimal.RequireFromString("2.0"),
		TradeSize:     decimal.NewFromInt(100000),
	}
}

// Validate checks the configuration.
func (c EMACrossConfig) Validate() error {
	if c.FastPeriod <= 0 || c.SlowPeriod <= 0 || c.ATRPeriod <= 0 {
		return fmt.Errorf("%w: indicator periods must be positive", types.ErrInvalidConfig)
	}
	if c.FastPeriod >= c.SlowPeriod {
		return fmt.Errorf("%w: fast period must be below slow period", types.ErrInvalidConfig)
	}
	if !c.TradeSize.IsPositive() {
		return fmt.Errorf("%w: trade size must be positive", types.ErrInvalidConfig)
	}
	return nil
}

// EMACross trades fast/slow EMA crossovers with an ATR-sized stop.
// A golden cross enters long, a death cross enters short; each entry
// ships as an atomic order so the stop is in place from the first fill.
type EMACross struct {
	engine.Base

	cfg  EMACrossConfig
	fast *indicator.EMA
	slow *indicator.SMA
	atr  *indicator.ATR

	barType    types.BarType
	positionID types.PositionID
	lastDiff   decimal.Decimal
	hasDiff    bool
}

// NewEMACross creates the strategy. Call Validate on the config first.
func NewEMACross(cfg EMACrossConfig) *EMACross {
	return &EMACross{
		cfg:  cfg,
		fast: indicator.NewEMA(cfg.FastPeriod),
		slow: indicator.NewSMA(cfg.SlowPeriod),
		atr:  indicator.NewATR(cfg.ATRPeriod),
	}
}

// Name returns the strategy's display name.
func (s *EMACross) Name() string {
	return fmt.Sprintf("EMACross(%d,%d)", s.cfg.FastPeriod, s.cfg.SlowPeriod)
}

// OnStart subscribes to the configured bar series and binds the
// indicators so the engine updates them ahead of OnBar.
func (s *EMACross) OnStart() error {
	s.barType = types.BarType{Symbol: s.cfg.Symbol, Spec: s.cfg.BarSpec}

	s.Engine.RegisterIndicator(s.barType, s.fast, func(bar types.Bar) {
		s.fast.Update(bar.Close)
	})
	s.Engine.RegisterIndicator(s.barType, s.slow, func(bar types.Bar) {
		s.slow.Update(bar.Close)
	})
	s.Engine.RegisterIndicator(s.barType, s.atr, func(bar types.Bar) {
		s.atr.Update(bar.High, bar.Low, bar.Close)
	})

	return s.Engine.SubscribeBars(s.barType)
}

// OnBar checks for a crossover once every indicator is warm.
func (s *EMACross) OnBar(barType types.BarType, bar types.Bar) error {
	if barType != s.barType {
		return nil
	}
	if !s.Engine.IndicatorsInitialized(s.barType) {
		return nil
	}

	diff := s.fast.Value().Sub(s.slow.Value())
	defer func() {
		s.lastDiff = diff
		s.hasDiff = true
	}()

	if !s.hasDiff {
		return nil
	}

	crossedUp := s.lastDiff.Sign() <= 0 && diff.Sign() > 0
	crossedDown := s.lastDiff.Sign() >= 0 && diff.Sign() < 0
	if !crossedUp && !crossedDown {
		return nil
	}

	if !s.Engine.IsFlat() {
		if err := s.Engine.FlattenAllPositions(); err != nil {
			return err
		}
	}

	side := types.SideBuy
	if crossedDown {
		side = types.SideSell
	}
	return s.enter(side, bar)
}

// enter submits an atomic market entry with an ATR-distance stop.
func (s *EMACross) enter(side types.OrderSide, bar types.Bar) error {
	stopDistance := s.atr.Value().Mul(s.cfg.ATRMultiplier)
	stopPrice := bar.Close.Sub(stopDistance)
	if side == types.SideSell {
		stopPrice = bar.Close.Add(stopDistance)
	}

	atomic, err := s.Engine.OrderFactory().Atomic(s.cfg.Symbol, side, s.cfg.TradeSize, stopPrice, nil)
	if err != nil {
		return fmt.Errorf("build atomic order: %w", err)
	}

	s.positionID = s.Engine.GeneratePositionID()
	return s.Engine.SubmitAtomicOrder(atomic, s.positionID)
}

// OnReset clears the crossover memory; the engine resets the
// indicators through the registry.
func (s *EMACross) OnReset() error {
	s.lastDiff = decimal.Zero
	s.hasDiff = false
	s.positionID = ""
	return nil
}

// OnSave persists the crossover memory.
func (s *EMACross) OnSave() (map[string]string, error) {
	state := map[string]string{
		"has_diff": fmt.Sprintf("%t", s.hasDiff),
	}
	if s.hasDiff {
		state["last_diff"] = s.lastDiff.String()
	}
	if s.positionID != "" {
		state["position_id"] = s.positionID.String()
	}
	return state, nil
}

// OnLoad restores the crossover memory.
func (s *EMACross) OnLoad(state map[string]string) error {
	if raw, ok := state["last_diff"]; ok {
		diff, err := decimal.NewFromString(raw)
		if err != nil {
			return fmt.Errorf("restore last_diff: %w", err)
		}
		s.lastDiff = diff
		s.hasDiff = true
	}
	if raw, ok := state["position_id"]; ok {
		s.positionID = types.PositionID(raw)
	}
	return nil
}
