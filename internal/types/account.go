package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account holds the broker account state as last reported by the
// execution client.
type Account struct {
	ID            string
	Currency      string
	CashBalance   decimal.Decimal
	FreeEquity    decimal.Decimal
	MarginUsed    decimal.Decimal
	UnrealizedPnL decimal.Decimal
	RealizedPnL   decimal.Decimal
	LastUpdated   time.Time
}
