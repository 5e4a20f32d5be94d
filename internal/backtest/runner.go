// Package backtest replays historical bars through a hosted strategy
// under a virtual clock. Runs are deterministic: replaying the same
// data against the same strategy produces the same command sequence.
package backtest

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tathienbao/strategy-engine/internal/clock"
	"github.com/tathienbao/strategy-engine/internal/data"
	"github.com/tathienbao/strategy-engine/internal/engine"
	"github.com/tathienbao/strategy-engine/internal/execution"
	"github.com/tathienbao/strategy-engine/internal/portfolio"
	"github.com/tathienbao/strategy-engine/internal/types"
)

// Config holds backtest configuration.
type Config struct {
	StartTime      time.Time // zero means from the first bar
	EndTime        time.Time // zero means to the last bar
	InitialBalance decimal.Decimal
}

// EquityPoint is the account equity at a point in time.
type EquityPoint struct {
	Timestamp time.Time
	Equity    decimal.Decimal
	Drawdown  decimal.Decimal
}

// Result holds backtest results.
type Result struct {
	Bars          int
	StartBalance  decimal.Decimal
	EndBalance    decimal.Decimal
	TotalReturn   decimal.Decimal // ratio, 0.15 = 15%
	MaxDrawdown   decimal.Decimal // ratio
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       decimal.Decimal
	ProfitFactor  decimal.Decimal
	SharpeRatio   decimal.Decimal
	TradePnLs     []decimal.Decimal
	EquityCurve   []EquityPoint
}

// Runner wires a hosted strategy to simulated infrastructure and
// replays bar data through it.
type Runner struct {
	cfg    Config
	logger *slog.Logger

	eng       *engine.Engine
	clk       *clock.TestClock
	dataCl    *data.CSVClient
	exec      *execution.PaperClient
	portfolio *portfolio.Portfolio

	// Realized PnL bookkeeping, keyed by position id. A position's
	// cashflow nets to its PnL once it returns to flat.
	cashflow  map[types.PositionID]decimal.Decimal
	openQty   map[types.PositionID]decimal.Decimal
	tradePnLs []decimal.Decimal

	equity      decimal.Decimal
	highWater   decimal.Decimal
	equityCurve []EquityPoint
	barCount    int
}

// NewRunner assembles the simulated infrastructure around an engine.
// The engine must not yet have clients registered; the runner
// registers its own and rebinds the engine to a virtual clock.
func NewRunner(cfg Config, eng *engine.Engine, start time.Time, logger *slog.Logger) (*Runner, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.InitialBalance.IsZero() {
		cfg.InitialBalance = execution.DefaultConfig().InitialBalance
	}

	clk := clock.NewTestClock(start)
	if err := eng.ChangeClock(clk); err != nil {
		return nil, fmt.Errorf("bind virtual clock: %w", err)
	}

	execCfg := execution.DefaultConfig()
	execCfg.InitialBalance = cfg.InitialBalance
	exec := execution.NewPaperClient(execCfg, clk)
	pf := portfolio.New(logger)
	dataCl := data.NewCSVClient()

	r := &Runner{
		cfg:       cfg,
		logger:    logger,
		eng:       eng,
		clk:       clk,
		dataCl:    dataCl,
		exec:      exec,
		portfolio: pf,
		cashflow:  make(map[types.PositionID]decimal.Decimal),
		openQty:   make(map[types.PositionID]decimal.Decimal),
		equity:    cfg.InitialBalance,
		highWater: cfg.InitialBalance,
	}

	// The portfolio sees fills first so strategy hooks observe
	// up-to-date positions; the runner's own bookkeeping follows, and
	// the engine's dispatcher last.
	exec.BindIndexer(pf)
	exec.RegisterHandler(pf.HandleEvent)
	exec.RegisterHandler(r.trackFill)
	exec.RegisterHandler(eng.HandleEvent)

	eng.RegisterDataClient(dataCl)
	eng.RegisterExecutionClient(exec)
	eng.RegisterPortfolio(pf)

	return r, nil
}

// DataClient exposes the runner's CSV client for loading bar series.
func (r *Runner) DataClient() *data.CSVClient { return r.dataCl }

// ExecutionClient exposes the simulated venue.
func (r *Runner) ExecutionClient() *execution.PaperClient { return r.exec }

// Portfolio exposes the position ledger.
func (r *Runner) Portfolio() *portfolio.Portfolio { return r.portfolio }

type timedBar struct {
	barType types.BarType
	bar     types.Bar
}

// Run starts the engine, replays every subscribed bar series in time
// order, then stops the engine and computes results.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	if err := r.eng.Start(); err != nil {
		return nil, fmt.Errorf("start engine: %w", err)
	}

	stream := r.mergeSeries()
	r.logger.Info("backtest starting", "bars", len(stream))

	for _, item := range stream {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		ts := item.bar.Timestamp
		if !r.cfg.StartTime.IsZero() && ts.Before(r.cfg.StartTime) {
			continue
		}
		if !r.cfg.EndTime.IsZero() && ts.After(r.cfg.EndTime) {
			break
		}

		// Advance the clock; expired timers fire as events first.
		for _, timeEvent := range r.clk.IterateTime(ts) {
			r.eng.HandleEvent(timeEvent)
		}

		// Match resting orders against the bar, then deliver it.
		r.exec.ProcessBar(item.barType, item.bar)
		r.dataCl.Publish(item.barType, item.bar)

		r.barCount++
		r.recordEquity(ts)
	}

	if err := r.eng.Stop(); err != nil {
		r.logger.Error("engine stop failed", "err", err)
	}

	return r.results(), nil
}

// mergeSeries interleaves the subscribed bar series by timestamp.
// Ties break on bar-type name so replays stay deterministic.
func (r *Runner) mergeSeries() []timedBar {
	var stream []timedBar
	for _, barType := range r.dataCl.SubscribedBarTypes() {
		for _, bar := range r.dataCl.BarSeries(barType) {
			stream = append(stream, timedBar{barType: barType, bar: bar})
		}
	}
	sort.SliceStable(stream, func(i, j int) bool {
		if !stream[i].bar.Timestamp.Equal(stream[j].bar.Timestamp) {
			return stream[i].bar.Timestamp.Before(stream[j].bar.Timestamp)
		}
		return stream[i].barType.String() < stream[j].barType.String()
	})
	return stream
}

// trackFill nets fill cashflows into realized trade PnLs.
func (r *Runner) trackFill(event types.Event) {
	fill, ok := event.(types.OrderFilled)
	if !ok {
		return
	}
	positionID, ok := r.exec.PositionIDFor(fill.OrderID)
	if !ok {
		return
	}

	notional := fill.FillPrice.Mul(fill.FilledQty)
	signedQty := fill.FilledQty
	if fill.Side == types.SideBuy {
		notional = notional.Neg()
	} else {
		signedQty = signedQty.Neg()
	}

	r.cashflow[positionID] = r.cashflow[positionID].Add(notional)
	r.openQty[positionID] = r.openQty[positionID].Add(signedQty)

	if r.openQty[positionID].IsZero() {
		pnl := r.cashflow[positionID]
		r.tradePnLs = append(r.tradePnLs, pnl)
		r.equity = r.equity.Add(pnl)
		delete(r.cashflow, positionID)
		delete(r.openQty, positionID)
	}
}

func (r *Runner) recordEquity(ts time.Time) {
	if r.equity.GreaterThan(r.highWater) {
		r.highWater = r.equity
	}
	var drawdown decimal.Decimal
	if r.highWater.IsPositive() {
		drawdown = r.highWater.Sub(r.equity).Div(r.highWater)
	}
	r.equityCurve = append(r.equityCurve, EquityPoint{
		Timestamp: ts,
		Equity:    r.equity,
		Drawdown:  drawdown,
	})
}

func (r *Runner) results() *Result {
	result := &Result{
		Bars:         r.barCount,
		StartBalance: r.cfg.InitialBalance,
		EndBalance:   r.equity,
		TotalTrades:  len(r.tradePnLs),
		TradePnLs:    r.tradePnLs,
		EquityCurve:  r.equityCurve,
	}

	if r.cfg.InitialBalance.IsPositive() {
		result.TotalReturn = r.equity.Sub(r.cfg.InitialBalance).Div(r.cfg.InitialBalance)
	}

	for _, pnl := range r.tradePnLs {
		if pnl.IsPositive() {
			result.WinningTrades++
		} else if pnl.IsNegative() {
			result.LosingTrades++
		}
	}
	if result.TotalTrades > 0 {
		result.WinRate = decimal.NewFromInt(int64(result.WinningTrades)).
			Div(decimal.NewFromInt(int64(result.TotalTrades)))
	}

	m := NewMetrics(result, decimal.Zero)
	result.MaxDrawdown = m.MaxDrawdown()
	result.ProfitFactor = m.ProfitFactor()
	result.SharpeRatio = m.SharpeRatio()

	return result
}
