package ids

import (
	"testing"
	"time"

	"github.com/tathienbao/strategy-engine/internal/clock"
)

func fixedClock(t *testing.T) *clock.TestClock {
	t.Helper()
	return clock.NewTestClock(time.Date(2020, 3, 14, 9, 26, 53, 0, time.UTC))
}

func TestOrderIDGenerator_Format(t *testing.T) {
	gen := NewOrderIDGenerator("000", "EMA-001", fixedClock(t))

	want := []string{
		"O-20200314-092653-000-EMA-001-1",
		"O-20200314-092653-000-EMA-001-2",
		"O-20200314-092653-000-EMA-001-3",
	}
	for i, w := range want {
		got := gen.GenerateOrderID()
		if got.String() != w {
			t.Errorf("id %d = %s, want %s", i+1, got, w)
		}
	}
}

func TestPositionIDGenerator_Prefix(t *testing.T) {
	gen := NewPositionIDGenerator("000", "EMA-001", fixedClock(t))

	got := gen.GeneratePositionID()
	want := "P-20200314-092653-000-EMA-001-1"
	if got.String() != want {
		t.Errorf("id = %s, want %s", got, want)
	}
}

func TestGenerator_DistinctAndIncreasing(t *testing.T) {
	gen := NewOrderIDGenerator("001", "S-001", fixedClock(t))

	seen := make(map[string]bool)
	for i := 1; i <= 100; i++ {
		id := gen.GenerateOrderID().String()
		if seen[id] {
			t.Fatalf("duplicate id generated: %s", id)
		}
		seen[id] = true
		if gen.Count() != i {
			t.Fatalf("counter = %d, want %d", gen.Count(), i)
		}
	}
}

func TestGenerator_Reset(t *testing.T) {
	gen := NewOrderIDGenerator("000", "EMA-001", fixedClock(t))

	first := gen.GenerateOrderID()
	gen.Reset()
	if gen.Count() != 0 {
		t.Errorf("counter after reset = %d, want 0", gen.Count())
	}

	again := gen.GenerateOrderID()
	if first != again {
		t.Errorf("replay after reset = %s, want %s", again, first)
	}
}
