package indicator

import (
	"github.com/shopspring/decimal"
)

// EMA calculates Exponential Moving Average. The first full period is
// seeded with a simple average, then smoothed with alpha = 2/(period+1).
type EMA struct {
	period int
	alpha  decimal.Decimal
	seed   *SMA
	value  decimal.Decimal
	count  int
}

// NewEMA creates a new EMA calculator with the given period.
func NewEMA(period int) *EMA {
	if period < 1 {
		period = 1
	}
	return &EMA{
		period: period,
		alpha:  decimal.NewFromInt(2).Div(decimal.NewFromInt(int64(period) + 1)),
		seed:   NewSMA(period),
	}
}

// Update adds a new value and returns the current EMA.
// Returns zero until a full period has been seen.
func (e *EMA) Update(value decimal.Decimal) decimal.Decimal {
	e.count++

	if e.count <= e.period {
		seeded := e.seed.Update(value)
		if e.count == e.period {
			e.value = seeded
		}
		return e.value
	}

	e.value = value.Sub(e.value).Mul(e.alpha).Add(e.value)
	return e.value
}

// Value returns the current EMA value without adding new data.
func (e *EMA) Value() decimal.Decimal {
	if e.count < e.period {
		return decimal.Zero
	}
	return e.value
}

// Initialized returns true once a full period of data has been seen.
func (e *EMA) Initialized() bool {
	return e.count >= e.period
}

// Period returns the EMA period.
func (e *EMA) Period() int {
	return e.period
}

// Count returns the number of values seen since the last reset.
func (e *EMA) Count() int {
	return e.count
}

// Reset clears all data.
func (e *EMA) Reset() {
	e.seed.Reset()
	e.value = decimal.Zero
	e.count = 0
}
