// Package clock provides the time seam between the live runtime and
// the deterministic backtest runtime.
package clock

import (
	"log/slog"
	"time"

	"github.com/tathienbao/strategy-engine/internal/types"
)

// Handler receives time events produced by timers and time alerts.
type Handler func(types.TimeEvent)

// Clock abstracts time for the engine. Two implementations exist: a
// live clock over wall time with real timers, and a test clock over
// virtual time advanced explicitly.
type Clock interface {
	// TimeNow returns the current time in UTC.
	TimeNow() time.Time

	// RegisterHandler sets the handler invoked when a timer or time
	// alert fires. The handler must marshal onto the dispatcher
	// thread; the engine itself is not re-entrancy safe.
	RegisterHandler(h Handler)

	// RegisterLogger sets the logger used for timer diagnostics.
	RegisterLogger(l *slog.Logger)

	// SetTimer registers a repeating timer firing every interval.
	SetTimer(label string, interval time.Duration) error

	// SetTimeAlert registers a one-shot alert at alertTime.
	SetTimeAlert(label string, alertTime time.Time) error

	// CancelAllTimers removes every registered timer.
	CancelAllTimers()

	// CancelAllTimeAlerts removes every registered time alert.
	CancelAllTimeAlerts()
}
