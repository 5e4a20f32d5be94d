package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/tathienbao/strategy-engine/internal/clock"
	"github.com/tathienbao/strategy-engine/internal/types"
)

func TestEngine_Lifecycle(t *testing.T) {
	eng, strat, _, _ := newTestEngine(t)

	if eng.State() != StateCreated {
		t.Fatalf("State = %s, want CREATED", eng.State())
	}

	if err := eng.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !eng.IsRunning() || strat.started != 1 {
		t.Fatalf("IsRunning = %v, started = %d", eng.IsRunning(), strat.started)
	}

	if err := eng.Start(); !errors.Is(err, types.ErrEngineRunning) {
		t.Fatalf("second Start() error = %v, want ErrEngineRunning", err)
	}

	if err := eng.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if eng.State() != StateStopped || strat.stopped != 1 {
		t.Fatalf("State = %s, stopped = %d", eng.State(), strat.stopped)
	}

	// Stopped engines restart.
	if err := eng.Start(); err != nil {
		t.Fatalf("restart error = %v", err)
	}
	if err := eng.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	if err := eng.Dispose(); err != nil {
		t.Fatalf("Dispose() error = %v", err)
	}
	if strat.disposed != 1 {
		t.Fatalf("disposed = %d, want 1", strat.disposed)
	}
	if err := eng.Start(); !errors.Is(err, types.ErrEngineDisposed) {
		t.Fatalf("Start() after dispose error = %v, want ErrEngineDisposed", err)
	}
}

func TestEngine_ResetRefusedWhileRunning(t *testing.T) {
	eng, _, _, _ := newTestEngine(t)

	if err := eng.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := eng.Reset(); !errors.Is(err, types.ErrEngineRunning) {
		t.Fatalf("Reset() while running error = %v, want ErrEngineRunning", err)
	}
}

func TestEngine_ResetClearsState(t *testing.T) {
	eng, strat, _, _ := newTestEngine(t)

	if err := eng.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	eng.HandleBar(testBarType, testBar("1.2000"))

	order, err := eng.OrderFactory().Market(testSymbol, types.SideBuy, decimal100k(), types.PurposeEntry)
	if err != nil {
		t.Fatalf("Market() error = %v", err)
	}
	if err := eng.RegisterEntryOrder(order, "P-1"); err != nil {
		t.Fatalf("RegisterEntryOrder() error = %v", err)
	}

	if err := eng.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := eng.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	if strat.resets != 1 {
		t.Errorf("resets = %d, want 1", strat.resets)
	}
	if eng.BarCount(testBarType) != 0 {
		t.Errorf("BarCount = %d after reset, want 0", eng.BarCount(testBarType))
	}
	if len(eng.EntryOrders()) != 0 {
		t.Errorf("EntryOrders = %d after reset, want 0", len(eng.EntryOrders()))
	}

	// Generators replay the same ids after reset.
	first, err := eng.OrderFactory().Market(testSymbol, types.SideBuy, decimal100k(), types.PurposeEntry)
	if err != nil {
		t.Fatalf("Market() error = %v", err)
	}
	if first.ID != order.ID {
		t.Errorf("post-reset id = %s, want %s", first.ID, order.ID)
	}
}

func TestEngine_HooksNotDispatchedUnlessRunning(t *testing.T) {
	eng, strat, _, _ := newTestEngine(t)

	// Not started: data is cached but hooks stay silent.
	eng.HandleBar(testBarType, testBar("1.2000"))
	if len(strat.bars) != 0 {
		t.Fatalf("OnBar fired before start")
	}
	if eng.BarCount(testBarType) != 1 {
		t.Fatalf("BarCount = %d, want 1 (cache always updates)", eng.BarCount(testBarType))
	}

	if err := eng.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	eng.HandleBar(testBarType, testBar("1.2001"))
	if len(strat.bars) != 1 {
		t.Fatalf("OnBar count = %d, want 1", len(strat.bars))
	}
}

func TestEngine_HookPanicIsolated(t *testing.T) {
	eng, strat, _, _ := newTestEngine(t)
	strat.barHook = func(types.BarType, types.Bar) error {
		panic("strategy bug")
	}

	if err := eng.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// Must not panic through the dispatcher.
	eng.HandleBar(testBarType, testBar("1.2000"))

	if !eng.IsRunning() {
		t.Error("engine should still be running after a hook panic")
	}
	if eng.BarCount(testBarType) != 1 {
		t.Error("bar should be cached despite the hook panic")
	}
}

func TestEngine_IndicatorsUpdateBeforeOnBar(t *testing.T) {
	eng, strat, _, _ := newTestEngine(t)

	var updates int
	eng.RegisterIndicator(testBarType, &stubIndicator{}, func(types.Bar) { updates++ })

	var seenAtHook int
	strat.barHook = func(types.BarType, types.Bar) error {
		seenAtHook = updates
		return nil
	}

	if err := eng.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	eng.HandleBar(testBarType, testBar("1.2000"))

	if seenAtHook != 1 {
		t.Fatalf("updater ran %d times before OnBar, want 1", seenAtHook)
	}
}

func TestEngine_StopCancelsOrdersAndFlattens(t *testing.T) {
	eng, _, exec, pf := newTestEngine(t)

	pf.positions["P-1"] = types.Position{
		ID: "P-1", Symbol: testSymbol,
		MarketPosition: types.MarketPositionLong,
		Quantity:       decimal100k(),
	}
	exec.active["O-1"] = types.Order{ID: "O-1", Symbol: testSymbol, Status: types.OrderStatusWorking}

	if err := eng.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := eng.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	var flattens, cancels int
	for _, cmd := range exec.commands {
		switch c := cmd.(type) {
		case types.SubmitOrder:
			if c.Order.Purpose == types.PurposeExit {
				flattens++
			}
		case types.CancelOrder:
			cancels++
		}
	}
	if flattens != 1 {
		t.Errorf("flatten orders = %d, want 1", flattens)
	}
	if cancels != 1 {
		t.Errorf("cancel commands = %d, want 1", cancels)
	}
}

func TestEngine_ChangeClockRefusedWhileRunning(t *testing.T) {
	eng, _, _, _ := newTestEngine(t)

	if err := eng.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	err := eng.ChangeClock(clock.NewTestClock(testStart))
	if !errors.Is(err, types.ErrEngineRunning) {
		t.Fatalf("ChangeClock() error = %v, want ErrEngineRunning", err)
	}
}

func TestEngine_SaveLoadRoundTrip(t *testing.T) {
	eng, _, _, _ := newTestEngine(t)

	state, err := eng.Save()
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := eng.Load(state); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
}

func TestEngine_TimeEventsDispatchThroughHandleEvent(t *testing.T) {
	eng, strat, _, _ := newTestEngine(t)

	if err := eng.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := eng.SetTimer("heartbeat", time.Minute); err != nil {
		t.Fatalf("SetTimer() error = %v", err)
	}

	clk := eng.Clock().(*clock.TestClock)
	for _, ev := range clk.IterateTime(testStart.Add(3 * time.Minute)) {
		eng.HandleEvent(ev)
	}

	timeEvents := 0
	for _, ev := range strat.events {
		if te, ok := ev.(types.TimeEvent); ok && te.Label == "heartbeat" {
			timeEvents++
		}
	}
	if timeEvents != 3 {
		t.Fatalf("time events = %d, want 3", timeEvents)
	}
}

type stubIndicator struct{ initialized bool }

func (s *stubIndicator) Initialized() bool { return s.initialized }
func (s *stubIndicator) Reset()            { s.initialized = false }
