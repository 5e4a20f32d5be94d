// Package engine hosts user-defined trading strategies and mediates
// every interaction between strategy logic and the surrounding trading
// infrastructure: market data, execution, portfolio accounting, and the
// clock.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"github.com/tathienbao/strategy-engine/internal/clock"
	"github.com/tathienbao/strategy-engine/internal/ids"
	"github.com/tathienbao/strategy-engine/internal/marketdata"
	"github.com/tathienbao/strategy-engine/internal/metrics"
	"github.com/tathienbao/strategy-engine/internal/orders"
	"github.com/tathienbao/strategy-engine/internal/types"
)

// State is the lifecycle state of the strategy host.
type State int

const (
	StateCreated State = iota
	StateRunning
	StateStopped
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "RUNNING"
	case StateStopped:
		return "STOPPED"
	case StateDisposed:
		return "DISPOSED"
	default:
		return "CREATED"
	}
}

// Config holds engine configuration.
type Config struct {
	TraderID      types.TraderID
	StrategyID    types.StrategyID
	IDTagTrader   string
	IDTagStrategy string

	// FlattenOnSLReject flattens the associated position when a
	// stop-loss order is rejected by the venue.
	FlattenOnSLReject bool

	// FlattenOnStop flattens every active position during Stop.
	FlattenOnStop bool

	// CancelAllOrdersOnStop cancels every active order during Stop.
	CancelAllOrdersOnStop bool

	// BarCapacity is the maximum number of bars retained per bar type.
	BarCapacity int
}

// DefaultConfig returns default engine configuration.
func DefaultConfig(traderID types.TraderID, strategyID types.StrategyID) Config {
	return Config{
		TraderID:              traderID,
		StrategyID:            strategyID,
		IDTagTrader:           "001",
		IDTagStrategy:         "001",
		FlattenOnSLReject:     true,
		FlattenOnStop:         true,
		CancelAllOrdersOnStop: true,
		BarCapacity:           1000,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.TraderID == "" {
		return fmt.Errorf("%w: trader id is required", types.ErrInvalidConfig)
	}
	if c.StrategyID == "" {
		return fmt.Errorf("%w: strategy id is required", types.ErrInvalidConfig)
	}
	if c.IDTagTrader == "" || c.IDTagStrategy == "" {
		return fmt.Errorf("%w: identifier tags are required", types.ErrInvalidConfig)
	}
	if c.BarCapacity <= 0 {
		return fmt.Errorf("%w: bar capacity must be positive", types.ErrInvalidConfig)
	}
	return nil
}

// Engine is the strategy host. It owns the market-data cache, the
// indicator registry, and the order ledger, sequences all external
// events into a single-threaded strategy view, and dispatches the user
// hooks. All mutation must happen on one logical thread; the engine
// takes no locks.
type Engine struct {
	cfg    Config
	logger *slog.Logger
	strat  Strategy

	clk         clock.Clock
	factory     *orders.Factory
	positionIDs *ids.PositionIDGenerator
	cache       *marketdata.Cache
	registry    *IndicatorRegistry
	rates       *ExchangeRateCalculator
	recorder    *metrics.Recorder

	data      DataClient
	exec      ExecutionClient
	portfolio Portfolio

	state State

	// Order ledger. Every order id appears in at most one register.
	entryOrders      map[types.OrderID]types.Order
	stopLossOrders   map[types.OrderID]types.Order
	takeProfitOrders map[types.OrderID]types.Order
	atomicChildren   map[types.OrderID][]types.OrderID
	modifyBuffer     map[types.OrderID]types.ModifyOrder
}

// New creates an engine hosting the given strategy. The strategy's
// hooks are not invoked until Start.
func New(cfg Config, strat Strategy, clk clock.Clock, logger *slog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if strat == nil {
		return nil, fmt.Errorf("%w: strategy is required", types.ErrInvalidConfig)
	}
	if clk == nil {
		return nil, fmt.Errorf("%w: clock is required", types.ErrInvalidConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("strategy", cfg.StrategyID.String())

	cache, err := marketdata.NewCache(cfg.BarCapacity, logger)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:              cfg,
		logger:           logger,
		strat:            strat,
		clk:              clk,
		factory:          orders.NewFactory(cfg.IDTagTrader, cfg.IDTagStrategy, clk),
		positionIDs:      ids.NewPositionIDGenerator(cfg.IDTagTrader, cfg.IDTagStrategy, clk),
		cache:            cache,
		registry:         NewIndicatorRegistry(),
		rates:            NewExchangeRateCalculator(),
		state:            StateCreated,
		entryOrders:      make(map[types.OrderID]types.Order),
		stopLossOrders:   make(map[types.OrderID]types.Order),
		takeProfitOrders: make(map[types.OrderID]types.Order),
		atomicChildren:   make(map[types.OrderID][]types.OrderID),
		modifyBuffer:     make(map[types.OrderID]types.ModifyOrder),
	}

	clk.RegisterLogger(logger)
	clk.RegisterHandler(func(ev types.TimeEvent) { e.HandleEvent(ev) })
	strat.bindEngine(e)

	return e, nil
}

// RegisterDataClient registers the market-data client.
func (e *Engine) RegisterDataClient(c DataClient) { e.data = c }

// RegisterExecutionClient registers the execution client.
func (e *Engine) RegisterExecutionClient(c ExecutionClient) { e.exec = c }

// RegisterPortfolio registers the portfolio.
func (e *Engine) RegisterPortfolio(p Portfolio) { e.portfolio = p }

// RegisterRecorder registers a metrics recorder.
func (e *Engine) RegisterRecorder(r *metrics.Recorder) { e.recorder = r }

// State returns the current lifecycle state.
func (e *Engine) State() State { return e.state }

// IsRunning returns true while the engine dispatches user hooks.
func (e *Engine) IsRunning() bool { return e.state == StateRunning }

// TraderID returns the hosting trader's identifier.
func (e *Engine) TraderID() types.TraderID { return e.cfg.TraderID }

// StrategyID returns the hosted strategy's identifier.
func (e *Engine) StrategyID() types.StrategyID { return e.cfg.StrategyID }

// Clock returns the engine's clock.
func (e *Engine) Clock() clock.Clock { return e.clk }

// OrderFactory returns the order factory.
func (e *Engine) OrderFactory() *orders.Factory { return e.factory }

// GeneratePositionID returns the next position identifier.
func (e *Engine) GeneratePositionID() types.PositionID {
	return e.positionIDs.GeneratePositionID()
}

// ChangeClock swaps the clock and rebuilds the order factory and
// position-id generator against it. Backtest use only; refuses while
// running.
func (e *Engine) ChangeClock(clk clock.Clock) error {
	if e.state == StateRunning {
		return types.ErrEngineRunning
	}
	e.clk = clk
	e.factory = orders.NewFactory(e.cfg.IDTagTrader, e.cfg.IDTagStrategy, clk)
	e.positionIDs = ids.NewPositionIDGenerator(e.cfg.IDTagTrader, e.cfg.IDTagStrategy, clk)
	clk.RegisterLogger(e.logger)
	clk.RegisterHandler(func(ev types.TimeEvent) { e.HandleEvent(ev) })
	return nil
}

// Start transitions the engine to RUNNING and invokes OnStart.
func (e *Engine) Start() error {
	switch e.state {
	case StateRunning:
		return fmt.Errorf("%w: already started", types.ErrEngineRunning)
	case StateDisposed:
		return types.ErrEngineDisposed
	}

	e.logger.Info("starting strategy engine", "trader", e.cfg.TraderID)
	e.state = StateRunning
	e.callHook("OnStart", e.strat.OnStart)
	return nil
}

// Stop winds the strategy down. Each step runs regardless of partial
// failure: timers and alerts are cancelled, active positions are
// flattened when configured, active orders are cancelled when
// configured, hooks stop dispatching, residual ledger entries are
// reported, and OnStop runs last.
func (e *Engine) Stop() error {
	if e.state != StateRunning {
		return fmt.Errorf("engine not running (state %s)", e.state)
	}

	e.logger.Info("stopping strategy engine")

	e.clk.CancelAllTimers()
	e.clk.CancelAllTimeAlerts()

	if e.cfg.FlattenOnStop {
		if e.portfolio == nil {
			e.logger.Error("flatten on stop skipped", "err", types.ErrNoPortfolio)
		} else if !e.portfolio.IsStrategyFlat(e.cfg.StrategyID) {
			e.FlattenAllPositions()
		}
	}

	if e.cfg.CancelAllOrdersOnStop {
		e.CancelAllOrders("engine stop")
	}

	e.state = StateStopped
	e.warnResiduals()
	e.callHook("OnStop", e.strat.OnStop)

	e.logger.Info("strategy engine stopped")
	return nil
}

// Reset returns the engine to a clean state: the tick and bar caches
// are cleared, every indicator and its bar count is reset, the
// identifier generators and order factory restart from zero, and the
// ledger is emptied. Refused while running.
func (e *Engine) Reset() error {
	if e.state == StateRunning {
		return types.ErrEngineRunning
	}
	if e.state == StateDisposed {
		return types.ErrEngineDisposed
	}

	e.logger.Info("resetting strategy engine")

	e.cache.Reset()
	e.registry.ResetAll()
	e.factory.Reset()
	e.positionIDs.Reset()

	e.entryOrders = make(map[types.OrderID]types.Order)
	e.stopLossOrders = make(map[types.OrderID]types.Order)
	e.takeProfitOrders = make(map[types.OrderID]types.Order)
	e.atomicChildren = make(map[types.OrderID][]types.OrderID)
	e.modifyBuffer = make(map[types.OrderID]types.ModifyOrder)

	e.callHook("OnReset", e.strat.OnReset)
	return nil
}

// Dispose releases the client references. OnDispose errors are logged,
// never raised.
func (e *Engine) Dispose() error {
	if e.state == StateRunning {
		return types.ErrEngineRunning
	}
	if e.state == StateDisposed {
		return nil
	}

	e.callHook("OnDispose", e.strat.OnDispose)

	e.data = nil
	e.exec = nil
	e.portfolio = nil
	e.state = StateDisposed

	e.logger.Info("strategy engine disposed")
	return nil
}

// Save returns the strategy's opaque state map. The engine round-trips
// whatever the strategy returned.
func (e *Engine) Save() (map[string]string, error) {
	return e.strat.OnSave()
}

// Load hands a previously saved state map back to the strategy.
func (e *Engine) Load(state map[string]string) error {
	return e.strat.OnLoad(state)
}

// warnResiduals reports every order left in the ledger after stop.
func (e *Engine) warnResiduals() {
	for id := range e.entryOrders {
		e.logger.Warn("residual entry order after stop", "order_id", id)
	}
	for id := range e.stopLossOrders {
		e.logger.Warn("residual stop-loss order after stop", "order_id", id)
	}
	for id := range e.takeProfitOrders {
		e.logger.Warn("residual take-profit order after stop", "order_id", id)
	}
	for parent, children := range e.atomicChildren {
		e.logger.Warn("residual atomic order after stop", "entry_order_id", parent, "children", len(children))
	}
	for id := range e.modifyBuffer {
		e.logger.Warn("residual buffered modify after stop", "order_id", id)
	}
}

// ExchangeRate returns the MID rate converting quoteCurrency into
// baseCurrency using the cached tick snapshot.
func (e *Engine) ExchangeRate(quoteCurrency, baseCurrency string) (decimal.Decimal, error) {
	ticks := e.cache.TickSnapshot()
	bids := make(map[string]decimal.Decimal, len(ticks))
	asks := make(map[string]decimal.Decimal, len(ticks))
	for sym, tick := range ticks {
		bids[sym.Code] = tick.Bid
		asks[sym.Code] = tick.Ask
	}
	return e.rates.Rate(quoteCurrency, baseCurrency, bids, asks)
}
