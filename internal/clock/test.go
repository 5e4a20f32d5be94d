package clock

import (
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/tathienbao/strategy-engine/internal/types"
)

// TestClock is the virtual-time clock used by the backtest runtime.
// Time moves only when SetTime or IterateTime is called, so event
// sequences are fully deterministic.
type TestClock struct {
	logger  *slog.Logger
	handler Handler
	current time.Time
	timers  map[string]*virtualTimer
	alerts  map[string]time.Time
}

type virtualTimer struct {
	interval time.Duration
	nextFire time.Time
}

// NewTestClock creates a test clock fixed at the given start time.
func NewTestClock(start time.Time) *TestClock {
	return &TestClock{
		logger:  slog.Default(),
		current: start.UTC(),
		timers:  make(map[string]*virtualTimer),
		alerts:  make(map[string]time.Time),
	}
}

// TimeNow returns the current virtual time.
func (c *TestClock) TimeNow() time.Time {
	return c.current
}

// RegisterHandler sets the time-event handler. IterateTime returns the
// generated events rather than invoking the handler, so the backtest
// runtime controls dispatch order; the handler is kept for parity with
// the live clock.
func (c *TestClock) RegisterHandler(h Handler) {
	c.handler = h
}

// RegisterLogger sets the logger.
func (c *TestClock) RegisterLogger(l *slog.Logger) {
	if l != nil {
		c.logger = l
	}
}

// SetTime moves the clock to t without generating any time events.
func (c *TestClock) SetTime(t time.Time) {
	c.current = t.UTC()
}

// IterateTime advances the clock to t and returns the time events that
// timers and alerts would have generated in (previous, t], ordered by
// fire time.
func (c *TestClock) IterateTime(t time.Time) []types.TimeEvent {
	t = t.UTC()
	if !t.After(c.current) {
		c.current = t
		return nil
	}

	var events []types.TimeEvent

	for label, timer := range c.timers {
		for !timer.nextFire.After(t) {
			events = append(events, types.TimeEvent{
				BaseEvent: types.NewBaseEvent(timer.nextFire),
				Label:     label,
			})
			timer.nextFire = timer.nextFire.Add(timer.interval)
		}
	}

	for label, alertTime := range c.alerts {
		if !alertTime.After(t) {
			events = append(events, types.TimeEvent{
				BaseEvent: types.NewBaseEvent(alertTime),
				Label:     label,
			})
			delete(c.alerts, label)
		}
	}

	// Tie-break on label so simultaneous fires replay identically.
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Timestamp.Equal(events[j].Timestamp) {
			return events[i].Label < events[j].Label
		}
		return events[i].Timestamp.Before(events[j].Timestamp)
	})

	c.current = t
	return events
}

// SetTimer registers a repeating virtual timer firing every interval.
func (c *TestClock) SetTimer(label string, interval time.Duration) error {
	if label == "" {
		return errors.New("timer label must not be empty")
	}
	if interval <= 0 {
		return errors.New("timer interval must be positive")
	}
	if _, ok := c.timers[label]; ok {
		return errors.New("timer label already registered: " + label)
	}
	c.timers[label] = &virtualTimer{
		interval: interval,
		nextFire: c.current.Add(interval),
	}
	return nil
}

// SetTimeAlert registers a one-shot virtual alert at alertTime.
func (c *TestClock) SetTimeAlert(label string, alertTime time.Time) error {
	if label == "" {
		return errors.New("alert label must not be empty")
	}
	if !alertTime.After(c.current) {
		return errors.New("alert time must be after the current time")
	}
	if _, ok := c.alerts[label]; ok {
		return errors.New("alert label already registered: " + label)
	}
	c.alerts[label] = alertTime.UTC()
	return nil
}

// CancelAllTimers removes every registered timer.
func (c *TestClock) CancelAllTimers() {
	c.timers = make(map[string]*virtualTimer)
}

// CancelAllTimeAlerts removes every registered time alert.
func (c *TestClock) CancelAllTimeAlerts() {
	c.alerts = make(map[string]time.Time)
}
