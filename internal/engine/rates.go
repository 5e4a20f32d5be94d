package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/tathienbao/strategy-engine/internal/types"
)

// ExchangeRateCalculator computes MID conversion rates between a quote
// currency and the account's base currency from a per-symbol bid/ask
// snapshot. Symbol codes are expected in concatenated form, e.g.
// "AUDUSD" quotes AUD in USD.
type ExchangeRateCalculator struct{}

// NewExchangeRateCalculator creates a calculator.
func NewExchangeRateCalculator() *ExchangeRateCalculator {
	return &ExchangeRateCalculator{}
}

var two = decimal.NewFromInt(2)

// Rate returns the MID rate converting one unit of quoteCurrency into
// baseCurrency. Both the direct pair and its inverse are searched.
func (c *ExchangeRateCalculator) Rate(quoteCurrency, baseCurrency string, bids, asks map[string]decimal.Decimal) (decimal.Decimal, error) {
	if quoteCurrency == baseCurrency {
		return decimal.NewFromInt(1), nil
	}

	direct := quoteCurrency + baseCurrency
	if bid, ok := bids[direct]; ok {
		if ask, ok := asks[direct]; ok {
			return bid.Add(ask).Div(two), nil
		}
	}

	inverse := baseCurrency + quoteCurrency
	if bid, ok := bids[inverse]; ok {
		if ask, ok := asks[inverse]; ok {
			mid := bid.Add(ask).Div(two)
			if mid.IsZero() {
				return decimal.Zero, fmt.Errorf("%w: %s/%s", types.ErrRateNotFound, quoteCurrency, baseCurrency)
			}
			return decimal.NewFromInt(1).Div(mid), nil
		}
	}

	return decimal.Zero, fmt.Errorf("%w: %s/%s", types.ErrRateNotFound, quoteCurrency, baseCurrency)
}
