package metrics

import (
	"time"
)

// Recorder provides methods for recording engine metrics.
type Recorder struct{}

// NewRecorder creates a new metrics recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// RecordTick records a tick ingested for the symbol.
func (r *Recorder) RecordTick(symbol string) {
	TicksIngested.WithLabelValues(symbol).Inc()
}

// RecordBar records a bar ingested for the bar type.
func (r *Recorder) RecordBar(barType string) {
	BarsIngested.WithLabelValues(barType).Inc()
}

// RecordEvent records a processed event.
func (r *Recorder) RecordEvent(event string) {
	EventsProcessed.WithLabelValues(event).Inc()
}

// RecordCommand records a command forwarded to the execution client.
func (r *Recorder) RecordCommand(command string) {
	CommandsIssued.WithLabelValues(command).Inc()
}

// RecordOrderSubmitted records an order submission.
func (r *Recorder) RecordOrderSubmitted(side, purpose string) {
	OrdersSubmitted.WithLabelValues(side, purpose).Inc()
}

// RecordHookFailure records a strategy hook error or panic.
func (r *Recorder) RecordHookFailure(hook string) {
	HookFailures.WithLabelValues(hook).Inc()
}

// RecordHookDuration records a strategy hook's execution time.
func (r *Recorder) RecordHookDuration(hook string, duration time.Duration) {
	HookDuration.WithLabelValues(hook).Observe(duration.Seconds())
}

// Timer is a helper for measuring latency.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Elapsed returns the elapsed duration.
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}
