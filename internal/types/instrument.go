package types

import (
	"github.com/shopspring/decimal"
)

// Symbol is an opaque instrument key: code plus venue.
// Symbols compare by value and are usable as map keys.
type Symbol struct {
	Code  string
	Venue string
}

// NewSymbol creates a symbol from an instrument code and venue.
func NewSymbol(code, venue string) Symbol {
	return Symbol{Code: code, Venue: venue}
}

func (s Symbol) String() string {
	return s.Code + "." + s.Venue
}

// SecurityType classifies an instrument.
type SecurityType int

const (
	SecurityTypeForex SecurityType = iota
	SecurityTypeFuture
	SecurityTypeStock
	SecurityTypeCrypto
)

func (t SecurityType) String() string {
	switch t {
	case SecurityTypeForex:
		return "FOREX"
	case SecurityTypeFuture:
		return "FUTURE"
	case SecurityTypeStock:
		return "STOCK"
	case SecurityTypeCrypto:
		return "CRYPTO"
	default:
		return "UNKNOWN"
	}
}

// Instrument holds the static trading specification of a symbol.
type Instrument struct {
	Symbol        Symbol
	TickSize      decimal.Decimal
	TickPrecision int32
	SecurityType  SecurityType
	BaseCurrency  string
	QuoteCurrency string
}
