package clock

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/tathienbao/strategy-engine/internal/types"
)

// LiveClock is the wall-time clock used by the live runtime. Timers and
// alerts run on their own goroutines and invoke the registered handler;
// the runtime is responsible for marshalling those callbacks onto the
// dispatcher thread.
type LiveClock struct {
	mu      sync.Mutex
	logger  *slog.Logger
	handler Handler
	timers  map[string]chan struct{}
	alerts  map[string]chan struct{}
}

// NewLiveClock creates a live clock.
func NewLiveClock() *LiveClock {
	return &LiveClock{
		logger: slog.Default(),
		timers: make(map[string]chan struct{}),
		alerts: make(map[string]chan struct{}),
	}
}

// TimeNow returns the current wall time in UTC.
func (c *LiveClock) TimeNow() time.Time {
	return time.Now().UTC()
}

// RegisterHandler sets the time-event handler.
func (c *LiveClock) RegisterHandler(h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = h
}

// RegisterLogger sets the logger.
func (c *LiveClock) RegisterLogger(l *slog.Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if l != nil {
		c.logger = l
	}
}

// SetTimer registers a repeating timer firing every interval.
func (c *LiveClock) SetTimer(label string, interval time.Duration) error {
	if label == "" {
		return errors.New("timer label must not be empty")
	}
	if interval <= 0 {
		return errors.New("timer interval must be positive")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.timers[label]; ok {
		return errors.New("timer label already registered: " + label)
	}

	stop := make(chan struct{})
	c.timers[label] = stop

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case t := <-ticker.C:
				c.fire(label, t.UTC())
			}
		}
	}()

	return nil
}

// SetTimeAlert registers a one-shot alert at alertTime.
func (c *LiveClock) SetTimeAlert(label string, alertTime time.Time) error {
	if label == "" {
		return errors.New("alert label must not be empty")
	}
	delay := time.Until(alertTime)
	if delay <= 0 {
		return errors.New("alert time must be in the future")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.alerts[label]; ok {
		return errors.New("alert label already registered: " + label)
	}

	stop := make(chan struct{})
	c.alerts[label] = stop

	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-stop:
		case t := <-timer.C:
			c.fire(label, t.UTC())
			c.mu.Lock()
			delete(c.alerts, label)
			c.mu.Unlock()
		}
	}()

	return nil
}

// CancelAllTimers stops and removes every registered timer.
func (c *LiveClock) CancelAllTimers() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for label, stop := range c.timers {
		close(stop)
		delete(c.timers, label)
	}
}

// CancelAllTimeAlerts stops and removes every registered time alert.
func (c *LiveClock) CancelAllTimeAlerts() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for label, stop := range c.alerts {
		close(stop)
		delete(c.alerts, label)
	}
}

func (c *LiveClock) fire(label string, at time.Time) {
	c.mu.Lock()
	handler := c.handler
	logger := c.logger
	c.mu.Unlock()

	if handler == nil {
		logger.Warn("time event dropped: no handler registered", "label", label)
		return
	}
	handler(types.TimeEvent{BaseEvent: types.NewBaseEvent(at), Label: label})
}
