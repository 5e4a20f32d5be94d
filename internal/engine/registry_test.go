package engine

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/tathienbao/strategy-engine/internal/types"
	"github.com/tathienbao/strategy-engine/pkg/indicator"
)

func TestRegistry_UpdatesCountPerBinding(t *testing.T) {
	registry := NewIndicatorRegistry()

	sma := indicator.NewSMA(3)
	registry.Register(testBarType, sma, func(bar types.Bar) { sma.Update(bar.Close) })

	for i := 0; i < 5; i++ {
		registry.Update(testBarType, testBar("1.2000"))
	}

	count := registry.UpdateCount(testBarType, 0)
	if count != 5 {
		t.Errorf("count = %d, want 5", count)
	}
}

func TestRegistry_InitializedTracksWarmup(t *testing.T) {
	registry := NewIndicatorRegistry()

	sma := indicator.NewSMA(3)
	registry.Register(testBarType, sma, func(bar types.Bar) { sma.Update(bar.Close) })

	if registry.Initialized(testBarType) {
		t.Fatal("fresh indicator should not be initialized")
	}

	for i := 0; i < 3; i++ {
		registry.Update(testBarType, testBar("1.2000"))
	}
	if !registry.Initialized(testBarType) {
		t.Fatal("indicator should be initialized after its period")
	}
}

func TestRegistry_InitializedFalseWithNoBindings(t *testing.T) {
	registry := NewIndicatorRegistry()
	if registry.Initialized(testBarType) {
		t.Error("bar type with no bindings must report not initialized")
	}
	if registry.InitializedAll() {
		t.Error("empty registry must report not initialized")
	}
}

func TestRegistry_InitializedAllSpansBarTypes(t *testing.T) {
	registry := NewIndicatorRegistry()

	otherBarType := types.BarType{Symbol: testSymbol, Spec: types.BarSpec{
		Period: 5, Resolution: types.ResolutionMinute, PriceType: types.PriceTypeMid,
	}}

	fast := indicator.NewSMA(1)
	slow := indicator.NewSMA(3)
	registry.Register(testBarType, fast, func(bar types.Bar) { fast.Update(bar.Close) })
	registry.Register(otherBarType, slow, func(bar types.Bar) { slow.Update(bar.Close) })

	registry.Update(testBarType, testBar("1.2000"))
	if registry.InitializedAll() {
		t.Fatal("slow series not warm yet")
	}

	for i := 0; i < 3; i++ {
		registry.Update(otherBarType, testBar("1.2000"))
	}
	if !registry.InitializedAll() {
		t.Fatal("all series warm, InitializedAll should be true")
	}
}

func TestRegistry_ResetCascades(t *testing.T) {
	registry := NewIndicatorRegistry()

	sma := indicator.NewSMA(2)
	registry.Register(testBarType, sma, func(bar types.Bar) { sma.Update(bar.Close) })

	registry.Update(testBarType, testBar("1.2000"))
	registry.Update(testBarType, testBar("1.2010"))
	if !sma.Initialized() {
		t.Fatal("indicator should be warm")
	}

	registry.ResetAll()

	if sma.Initialized() {
		t.Error("indicator should be reset")
	}
	count := registry.UpdateCount(testBarType, 0)
	if count != 0 {
		t.Errorf("count = %d after reset, want 0", count)
	}
	if !sma.Value().Equal(decimal.Zero) {
		t.Errorf("value = %s after reset, want 0", sma.Value())
	}
}

func TestRegistry_IndicatorsReturnsCopy(t *testing.T) {
	registry := NewIndicatorRegistry()
	sma := indicator.NewSMA(2)
	registry.Register(testBarType, sma, func(bar types.Bar) { sma.Update(bar.Close) })

	indicators := registry.Indicators(testBarType)
	if len(indicators) != 1 {
		t.Fatalf("indicators = %d, want 1", len(indicators))
	}
	indicators[0] = nil
	if registry.Indicators(testBarType)[0] == nil {
		t.Error("mutating the returned slice must not affect the registry")
	}
}
