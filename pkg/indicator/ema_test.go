package indicator

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestEMA_WarmUp(t *testing.T) {
	ema := NewEMA(10)

	for i := 1; i <= 9; i++ {
		ema.Update(decimal.NewFromInt(int64(i)))
		if ema.Initialized() {
			t.Fatalf("EMA initialized after %d values, want 10", i)
		}
	}

	ema.Update(decimal.NewFromInt(10))
	if !ema.Initialized() {
		t.Error("EMA should be initialized after 10 values")
	}

	// Seed value is the simple average of the first 10 values.
	expected := decimal.RequireFromString("5.5")
	if !ema.Value().Equal(expected) {
		t.Errorf("seed EMA = %s, want %s", ema.Value(), expected)
	}
}

func TestEMA_Smoothing(t *testing.T) {
	ema := NewEMA(3)

	ema.Update(decimal.NewFromInt(10))
	ema.Update(decimal.NewFromInt(20))
	ema.Update(decimal.NewFromInt(30)) // seed = 20

	// alpha = 2/4 = 0.5; EMA = (40-20)*0.5 + 20 = 30
	result := ema.Update(decimal.NewFromInt(40))
	expected := decimal.NewFromInt(30)
	if !result.Equal(expected) {
		t.Errorf("EMA = %s, want %s", result, expected)
	}
}

func TestEMA_Reset(t *testing.T) {
	ema := NewEMA(3)
	ema.Update(decimal.NewFromInt(10))
	ema.Update(decimal.NewFromInt(20))
	ema.Update(decimal.NewFromInt(30))

	ema.Reset()

	if ema.Initialized() {
		t.Error("EMA should not be initialized after reset")
	}
	if ema.Count() != 0 {
		t.Errorf("Count = %d, want 0", ema.Count())
	}
	if !ema.Value().IsZero() {
		t.Errorf("Value after reset = %s, want 0", ema.Value())
	}
}
