package types

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// BarResolution is the time unit of a bar specification.
type BarResolution int

const (
	ResolutionSecond BarResolution = iota
	ResolutionMinute
	ResolutionHour
	ResolutionDay
)

func (r BarResolution) String() string {
	switch r {
	case ResolutionSecond:
		return "SECOND"
	case ResolutionMinute:
		return "MINUTE"
	case ResolutionHour:
		return "HOUR"
	case ResolutionDay:
		return "DAY"
	default:
		return "UNKNOWN"
	}
}

// PriceType is the quote side a bar series is built from.
type PriceType int

const (
	PriceTypeBid PriceType = iota
	PriceTypeAsk
	PriceTypeMid
	PriceTypeLast
)

func (p PriceType) String() string {
	switch p {
	case PriceTypeBid:
		return "BID"
	case PriceTypeAsk:
		return "ASK"
	case PriceTypeMid:
		return "MID"
	case PriceTypeLast:
		return "LAST"
	default:
		return "UNKNOWN"
	}
}

// BarSpec describes how a bar series is aggregated.
type BarSpec struct {
	Period     int
	Resolution BarResolution
	PriceType  PriceType
}

func (s BarSpec) String() string {
	return fmt.Sprintf("%d-%s[%s]", s.Period, s.Resolution, s.PriceType)
}

// BarType keys a bar stream: the symbol plus its bar specification.
// BarTypes compare by value and are usable as map keys.
type BarType struct {
	Symbol Symbol
	Spec   BarSpec
}

// NewBarType creates a bar type for the given symbol and specification.
func NewBarType(symbol Symbol, spec BarSpec) BarType {
	return BarType{Symbol: symbol, Spec: spec}
}

func (bt BarType) String() string {
	return bt.Symbol.String() + "-" + bt.Spec.String()
}

// Tick is a single bid/ask quote observation.
type Tick struct {
	Symbol    Symbol
	Bid       decimal.Decimal
	Ask       decimal.Decimal
	Timestamp time.Time
}

// Mid returns the midpoint of bid and ask.
func (t Tick) Mid() decimal.Decimal {
	return t.Bid.Add(t.Ask).Div(decimal.NewFromInt(2))
}

// Bar is one OHLCV candle.
type Bar struct {
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    int64
	Timestamp time.Time
}
