package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event is the sum type carried through the dispatcher. The order-event
// reducer branches on the concrete variant; new variants must be added
// here, not discovered by reflection.
type Event interface {
	EventID() uuid.UUID
	EventTime() time.Time
	isEvent()
}

// BaseEvent carries the fields common to all events.
type BaseEvent struct {
	ID        uuid.UUID
	Timestamp time.Time
}

// NewBaseEvent creates a base event stamped with a fresh identifier.
func NewBaseEvent(ts time.Time) BaseEvent {
	return BaseEvent{ID: uuid.New(), Timestamp: ts}
}

func (e BaseEvent) EventID() uuid.UUID   { return e.ID }
func (e BaseEvent) EventTime() time.Time { return e.Timestamp }
func (e BaseEvent) isEvent()             {}

// OrderRejected signals the venue refused an order.
type OrderRejected struct {
	BaseEvent
	OrderID OrderID
	Reason  string
}

// OrderCancelled signals an order was cancelled at the venue.
type OrderCancelled struct {
	BaseEvent
	OrderID OrderID
}

// OrderModified acknowledges a modify command.
type OrderModified struct {
	BaseEvent
	OrderID       OrderID
	ModifiedPrice decimal.Decimal
}

// OrderCancelReject signals the venue refused a cancel or modify.
type OrderCancelReject struct {
	BaseEvent
	OrderID  OrderID
	Response string
	Reason   string
}

// OrderFilled signals an order filled completely.
type OrderFilled struct {
	BaseEvent
	OrderID   OrderID
	Symbol    Symbol
	Side      OrderSide
	FillPrice decimal.Decimal
	FilledQty decimal.Decimal
}

// OrderPartiallyFilled signals a partial execution with quantity still
// working at the venue.
type OrderPartiallyFilled struct {
	BaseEvent
	OrderID   OrderID
	Symbol    Symbol
	Side      OrderSide
	FillPrice decimal.Decimal
	FilledQty decimal.Decimal
	LeavesQty decimal.Decimal
}

// OrderExpired signals an order lapsed at the venue.
type OrderExpired struct {
	BaseEvent
	OrderID OrderID
}

// AccountEvent carries an account-state update.
type AccountEvent struct {
	BaseEvent
	Account Account
}

// PositionEvent signals a position was opened, changed, or closed.
type PositionEvent struct {
	BaseEvent
	Position Position
}

// TimeEvent is produced by clock timers and time alerts and is
// processed like any other event.
type TimeEvent struct {
	BaseEvent
	Label string
}
