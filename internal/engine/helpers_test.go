package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tathienbao/strategy-engine/internal/clock"
	"github.com/tathienbao/strategy-engine/internal/types"
)

var (
	testSymbol  = types.Symbol{Code: "EUR/USD", Venue: "SIM"}
	testBarType = types.BarType{Symbol: testSymbol, Spec: types.BarSpec{
		Period: 1, Resolution: types.ResolutionMinute, PriceType: types.PriceTypeMid,
	}}
	testStart = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
)

// fakeExec records commands and serves a static order book.
type fakeExec struct {
	commands []types.Command
	orders   map[types.OrderID]types.Order
	active   map[types.OrderID]types.Order
	execErr  error
}

func newFakeExec() *fakeExec {
	return &fakeExec{
		orders: make(map[types.OrderID]types.Order),
		active: make(map[types.OrderID]types.Order),
	}
}

func (f *fakeExec) Execute(cmd types.Command) error {
	f.commands = append(f.commands, cmd)
	return f.execErr
}

func (f *fakeExec) Order(id types.OrderID) (types.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return types.Order{}, types.ErrOrderNotFound
	}
	return order, nil
}

func (f *fakeExec) Orders(types.StrategyID) map[types.OrderID]types.Order       { return f.orders }
func (f *fakeExec) OrdersActive(types.StrategyID) map[types.OrderID]types.Order { return f.active }
func (f *fakeExec) OrdersCompleted(types.StrategyID) map[types.OrderID]types.Order {
	return map[types.OrderID]types.Order{}
}

func (f *fakeExec) IsOrderExists(id types.OrderID) bool {
	_, ok := f.orders[id]
	return ok
}
func (f *fakeExec) IsOrderActive(id types.OrderID) bool {
	_, ok := f.active[id]
	return ok
}
func (f *fakeExec) IsOrderComplete(types.OrderID) bool { return false }

func (f *fakeExec) Account() (types.Account, error) {
	return types.Account{Currency: "USD", CashBalance: decimal.NewFromInt(100000)}, nil
}

// fakePortfolio serves canned positions.
type fakePortfolio struct {
	positions map[types.PositionID]types.Position
	byOrder   map[types.OrderID]types.PositionID
}

func newFakePortfolio() *fakePortfolio {
	return &fakePortfolio{
		positions: make(map[types.PositionID]types.Position),
		byOrder:   make(map[types.OrderID]types.PositionID),
	}
}

func (f *fakePortfolio) Position(id types.PositionID) (types.Position, error) {
	position, ok := f.positions[id]
	if !ok {
		return types.Position{}, types.ErrPositionNotFound
	}
	return position, nil
}

func (f *fakePortfolio) Positions(types.StrategyID) map[types.PositionID]types.Position {
	return f.positions
}

func (f *fakePortfolio) PositionsActive(types.StrategyID) map[types.PositionID]types.Position {
	out := make(map[types.PositionID]types.Position)
	for id, position := range f.positions {
		if position.IsEntered() {
			out[id] = position
		}
	}
	return out
}

func (f *fakePortfolio) PositionsClosed(types.StrategyID) map[types.PositionID]types.Position {
	return map[types.PositionID]types.Position{}
}

func (f *fakePortfolio) PositionForOrder(orderID types.OrderID) (types.Position, error) {
	positionID, ok := f.byOrder[orderID]
	if !ok {
		return types.Position{}, types.ErrPositionNotFound
	}
	return f.Position(positionID)
}

func (f *fakePortfolio) IsPositionExists(id types.PositionID) bool {
	_, ok := f.positions[id]
	return ok
}

func (f *fakePortfolio) IsStrategyFlat(types.StrategyID) bool {
	for _, position := range f.positions {
		if position.IsEntered() {
			return false
		}
	}
	return true
}

// recordingStrategy counts hook invocations and can be armed to fail.
type recordingStrategy struct {
	Base

	started   int
	stopped   int
	resets    int
	disposed  int
	bars      []types.Bar
	ticks     []types.Tick
	events    []types.Event
	barHook   func(types.BarType, types.Bar) error
	eventHook func(types.Event) error
}

func (s *recordingStrategy) Name() string { return "recording" }

func (s *recordingStrategy) OnStart() error { s.started++; return nil }
func (s *recordingStrategy) OnStop() error  { s.stopped++; return nil }
func (s *recordingStrategy) OnReset() error { s.resets++; return nil }
func (s *recordingStrategy) OnDispose() error {
	s.disposed++
	return nil
}

func (s *recordingStrategy) OnTick(tick types.Tick) error {
	s.ticks = append(s.ticks, tick)
	return nil
}

func (s *recordingStrategy) OnBar(barType types.BarType, bar types.Bar) error {
	s.bars = append(s.bars, bar)
	if s.barHook != nil {
		return s.barHook(barType, bar)
	}
	return nil
}

func (s *recordingStrategy) OnEvent(event types.Event) error {
	s.events = append(s.events, event)
	if s.eventHook != nil {
		return s.eventHook(event)
	}
	return nil
}

func newTestEngine(t *testing.T) (*Engine, *recordingStrategy, *fakeExec, *fakePortfolio) {
	t.Helper()

	strat := &recordingStrategy{}
	clk := clock.NewTestClock(testStart)
	eng, err := New(DefaultConfig("TRADER-001", "EMA-001"), strat, clk, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	exec := newFakeExec()
	pf := newFakePortfolio()
	eng.RegisterExecutionClient(exec)
	eng.RegisterPortfolio(pf)
	return eng, strat, exec, pf
}

func decimal100k() decimal.Decimal {
	return decimal.NewFromInt(100000)
}

func timeZero() time.Time {
	return time.Time{}
}

func testBar(close string) types.Bar {
	price := decimal.RequireFromString(close)
	return types.Bar{
		Open: price, High: price, Low: price, Close: price,
		Volume:    100,
		Timestamp: testStart,
	}
}
