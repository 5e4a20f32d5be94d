package engine

import (
	"github.com/tathienbao/strategy-engine/internal/types"
)

// Strategy is the hook surface a strategy author implements. The
// engine invokes hooks only while RUNNING (except the lifecycle hooks,
// which fire from their lifecycle operations); errors and panics from
// hooks are caught and logged, never propagated.
//
// Implementations embed Base, which supplies no-op defaults for every
// hook and the engine handle, so authors override only what they need.
type Strategy interface {
	// Name returns the strategy's display name.
	Name() string

	// OnStart fires when the engine starts.
	OnStart() error

	// OnTick fires for every tick delivered while running.
	OnTick(tick types.Tick) error

	// OnBar fires for every bar delivered while running, after the
	// bar has been cached and every bound indicator updated.
	OnBar(barType types.BarType, bar types.Bar) error

	// OnInstrument fires for instrument updates.
	OnInstrument(instrument types.Instrument) error

	// OnEvent fires for every order, position, account, and time
	// event, after the engine has applied it to the ledger.
	OnEvent(event types.Event) error

	// OnStop fires at the end of the stop sequence.
	OnStop() error

	// OnReset fires after the engine has cleared its state.
	OnReset() error

	// OnSave returns an opaque state map for persistence.
	OnSave() (map[string]string, error)

	// OnLoad restores the strategy from a previously saved state map.
	OnLoad(state map[string]string) error

	// OnDispose fires when the engine is disposed.
	OnDispose() error

	bindEngine(e *Engine)
}

// Base provides default no-op hook implementations and the engine
// handle. Embed it in every strategy.
type Base struct {
	Engine *Engine
}

func (b *Base) bindEngine(e *Engine) { b.Engine = e }

// OnStart does nothing by default.
func (b *Base) OnStart() error { return nil }

// OnTick does nothing by default.
func (b *Base) OnTick(types.Tick) error { return nil }

// OnBar does nothing by default.
func (b *Base) OnBar(types.BarType, types.Bar) error { return nil }

// OnInstrument does nothing by default.
func (b *Base) OnInstrument(types.Instrument) error { return nil }

// OnEvent does nothing by default.
func (b *Base) OnEvent(types.Event) error { return nil }

// OnStop does nothing by default.
func (b *Base) OnStop() error { return nil }

// OnReset does nothing by default.
func (b *Base) OnReset() error { return nil }

// OnSave returns an empty state map by default.
func (b *Base) OnSave() (map[string]string, error) { return map[string]string{}, nil }

// OnLoad does nothing by default.
func (b *Base) OnLoad(map[string]string) error { return nil }

// OnDispose does nothing by default.
func (b *Base) OnDispose() error { return nil }
