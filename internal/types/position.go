package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarketPosition is the direction of an aggregate holding.
type MarketPosition int

const (
	MarketPositionFlat MarketPosition = iota
	MarketPositionLong
	MarketPositionShort
)

func (p MarketPosition) String() string {
	switch p {
	case MarketPositionLong:
		return "LONG"
	case MarketPositionShort:
		return "SHORT"
	default:
		return "FLAT"
	}
}

// Position is an aggregate holding in a symbol. Positions are created by
// the portfolio on the first fill against a position id and closed when
// the net quantity returns to zero.
type Position struct {
	ID             PositionID
	Symbol         Symbol
	MarketPosition MarketPosition
	Quantity       decimal.Decimal
	EntryOrderID   OrderID
	AvgEntryPrice  decimal.Decimal
	EntryTime      time.Time
	ExitTime       time.Time
	FillCount      int
}

// IsEntered returns true if the position has been opened by a fill and
// is not yet closed.
func (p Position) IsEntered() bool {
	return p.MarketPosition != MarketPositionFlat
}

// IsFlat returns true if the position carries no net quantity.
func (p Position) IsFlat() bool {
	return p.MarketPosition == MarketPositionFlat
}

// FlattenSide returns the order side that closes the position.
func (p Position) FlattenSide() OrderSide {
	if p.MarketPosition == MarketPositionLong {
		return SideSell
	}
	return SideBuy
}
