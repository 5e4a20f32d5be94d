package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderSide is the direction of an order.
type OrderSide int

const (
	SideBuy OrderSide = iota
	SideSell
)

func (s OrderSide) String() string {
	if s == SideSell {
		return "SELL"
	}
	return "BUY"
}

// Opposite returns the opposing side.
func (s OrderSide) Opposite() OrderSide {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// OrderType is the execution type of an order.
type OrderType int

const (
	OrderTypeMarket OrderType = iota
	OrderTypeLimit
	OrderTypeStopMarket
)

func (t OrderType) String() string {
	switch t {
	case OrderTypeLimit:
		return "LIMIT"
	case OrderTypeStopMarket:
		return "STOP_MARKET"
	default:
		return "MARKET"
	}
}

// OrderPurpose tags the role an order plays in a position's lifecycle.
type OrderPurpose int

const (
	PurposeNone OrderPurpose = iota
	PurposeEntry
	PurposeStopLoss
	PurposeTakeProfit
	PurposeExit
)

func (p OrderPurpose) String() string {
	switch p {
	case PurposeEntry:
		return "ENTRY"
	case PurposeStopLoss:
		return "STOP_LOSS"
	case PurposeTakeProfit:
		return "TAKE_PROFIT"
	case PurposeExit:
		return "EXIT"
	default:
		return "NONE"
	}
}

// TimeInForce controls how long an order stays working.
type TimeInForce int

const (
	TIFDay TimeInForce = iota
	TIFGTC
	TIFGTD
	TIFIOC
	TIFFOC
)

func (t TimeInForce) String() string {
	switch t {
	case TIFGTC:
		return "GTC"
	case TIFGTD:
		return "GTD"
	case TIFIOC:
		return "IOC"
	case TIFFOC:
		return "FOC"
	default:
		return "DAY"
	}
}

// OrderStatus is the lifecycle state of an order.
type OrderStatus int

const (
	OrderStatusInitialized OrderStatus = iota
	OrderStatusSubmitted
	OrderStatusWorking
	OrderStatusPartiallyFilled
	OrderStatusFilled
	OrderStatusCancelled
	OrderStatusRejected
	OrderStatusExpired
)

func (s OrderStatus) String() string {
	switch s {
	case OrderStatusInitialized:
		return "INITIALIZED"
	case OrderStatusSubmitted:
		return "SUBMITTED"
	case OrderStatusWorking:
		return "WORKING"
	case OrderStatusPartiallyFilled:
		return "PARTIALLY_FILLED"
	case OrderStatusFilled:
		return "FILLED"
	case OrderStatusCancelled:
		return "CANCELLED"
	case OrderStatusRejected:
		return "REJECTED"
	case OrderStatusExpired:
		return "EXPIRED"
	default:
		return "UNKNOWN"
	}
}

// IsFinal returns true if the order is in a terminal state.
func (s OrderStatus) IsFinal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCancelled, OrderStatusRejected, OrderStatusExpired:
		return true
	default:
		return false
	}
}

// Order is an immutable order snapshot. Orders are created by the order
// factory, owned by the ledger while registered, and passed by value
// through the execution-command boundary.
type Order struct {
	ID          OrderID
	Symbol      Symbol
	Side        OrderSide
	Type        OrderType
	Quantity    decimal.Decimal
	Price       decimal.Decimal // zero for market orders
	Purpose     OrderPurpose
	TimeInForce TimeInForce
	ExpireTime  time.Time // zero unless TIF is GTD
	Status      OrderStatus
	Timestamp   time.Time
}

// AtomicOrder groups an entry order with its contingent children.
// The stop-loss is mandatory; the take-profit is optional.
type AtomicOrder struct {
	Entry      Order
	StopLoss   Order
	TakeProfit *Order
}

// HasTakeProfit returns true if a take-profit child is present.
func (a AtomicOrder) HasTakeProfit() bool {
	return a.TakeProfit != nil
}

// ChildIDs returns the identifiers of the contingent child orders.
func (a AtomicOrder) ChildIDs() []OrderID {
	ids := []OrderID{a.StopLoss.ID}
	if a.TakeProfit != nil {
		ids = append(ids, a.TakeProfit.ID)
	}
	return ids
}

// Validate checks the atomic-order side invariant: every child must be
// on the opposite side of the entry.
func (a AtomicOrder) Validate() error {
	if a.StopLoss.Side != a.Entry.Side.Opposite() {
		return ErrAtomicOrderSides
	}
	if a.TakeProfit != nil && a.TakeProfit.Side != a.Entry.Side.Opposite() {
		return ErrAtomicOrderSides
	}
	return nil
}
