package engine

import (
	"fmt"
	"runtime/debug"
	"time"

	"github.com/tathienbao/strategy-engine/internal/types"
)

// HandleTick ingests a tick: the cache is updated first, then OnTick
// fires if the engine is running. Must be called from the dispatcher
// thread.
func (e *Engine) HandleTick(tick types.Tick) {
	e.cache.AddTick(tick)
	if e.recorder != nil {
		e.recorder.RecordTick(tick.Symbol.String())
	}
	if e.state == StateRunning {
		e.callHook("OnTick", func() error { return e.strat.OnTick(tick) })
	}
}

// HandleBar ingests a bar: the cache is updated, every indicator bound
// to the bar type is fed, then OnBar fires if the engine is running.
// Updaters run before OnBar so indicators always reflect the latest
// bar when the hook reads them.
func (e *Engine) HandleBar(barType types.BarType, bar types.Bar) {
	e.cache.AddBar(barType, bar)
	e.registry.Update(barType, bar)
	if e.recorder != nil {
		e.recorder.RecordBar(barType.String())
	}
	if e.state == StateRunning {
		e.callHook("OnBar", func() error { return e.strat.OnBar(barType, bar) })
	}
}

// HandleInstrument ingests an instrument update.
func (e *Engine) HandleInstrument(instrument types.Instrument) {
	if e.state == StateRunning {
		e.callHook("OnInstrument", func() error { return e.strat.OnInstrument(instrument) })
	}
}

// HandleEvent ingests an event: the order-event reducer applies it to
// the ledger first, then OnEvent fires if the engine is running. The
// user hook therefore observes all engine-side mutations derived from
// the event.
func (e *Engine) HandleEvent(event types.Event) {
	e.reduce(event)
	if e.recorder != nil {
		e.recorder.RecordEvent(eventName(event))
	}
	if e.state == StateRunning {
		e.callHook("OnEvent", func() error { return e.strat.OnEvent(event) })
	}
}

// callHook invokes a user hook, isolating the engine from errors and
// panics. A strategy bug must never take down the runtime.
func (e *Engine) callHook(name string, fn func() error) {
	start := time.Now()
	defer func() {
		if e.recorder != nil {
			e.recorder.RecordHookDuration(name, time.Since(start))
		}
		if r := recover(); r != nil {
			e.logger.Error("strategy hook panicked",
				"hook", name,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			if e.recorder != nil {
				e.recorder.RecordHookFailure(name)
			}
		}
	}()

	if err := fn(); err != nil {
		e.logger.Error("strategy hook failed", "hook", name, "err", err)
		if e.recorder != nil {
			e.recorder.RecordHookFailure(name)
		}
	}
}

func eventName(event types.Event) string {
	switch event.(type) {
	case types.OrderRejected:
		return "order_rejected"
	case types.OrderCancelled:
		return "order_cancelled"
	case types.OrderModified:
		return "order_modified"
	case types.OrderCancelReject:
		return "order_cancel_reject"
	case types.OrderFilled:
		return "order_filled"
	case types.OrderPartiallyFilled:
		return "order_partially_filled"
	case types.OrderExpired:
		return "order_expired"
	case types.AccountEvent:
		return "account"
	case types.PositionEvent:
		return "position"
	case types.TimeEvent:
		return "time"
	default:
		return fmt.Sprintf("%T", event)
	}
}
