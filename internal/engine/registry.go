package engine

import (
	"github.com/tathienbao/strategy-engine/internal/types"
)

// Indicator is the capability the engine tracks for every registered
// indicator. Concrete indicators expose their own typed update methods;
// the strategy binds one of those to a bar stream via an UpdateFn.
type Indicator interface {
	Initialized() bool
	Reset()
}

// UpdateFn feeds one bar into an indicator. The strategy chooses which
// bar fields reach the indicator's update method.
type UpdateFn func(types.Bar)

type indicatorBinding struct {
	indicator Indicator
	update    UpdateFn
	barCount  int
}

// IndicatorRegistry maps bar types to the ordered indicator bindings
// registered against them, and tracks how many bars each binding has
// received.
type IndicatorRegistry struct {
	bindings map[types.BarType][]*indicatorBinding
}

// NewIndicatorRegistry creates an empty registry.
func NewIndicatorRegistry() *IndicatorRegistry {
	return &IndicatorRegistry{
		bindings: make(map[types.BarType][]*indicatorBinding),
	}
}

// Register appends an indicator binding for the bar type.
func (r *IndicatorRegistry) Register(barType types.BarType, ind Indicator, update UpdateFn) {
	r.bindings[barType] = append(r.bindings[barType], &indicatorBinding{
		indicator: ind,
		update:    update,
	})
}

// Update feeds the bar to every binding registered for the bar type, in
// registration order.
func (r *IndicatorRegistry) Update(barType types.BarType, bar types.Bar) {
	for _, b := range r.bindings[barType] {
		b.update(bar)
		b.barCount++
	}
}

// Indicators returns a copy of the indicators bound to the bar type.
func (r *IndicatorRegistry) Indicators(barType types.BarType) []Indicator {
	bindings := r.bindings[barType]
	out := make([]Indicator, len(bindings))
	for i, b := range bindings {
		out[i] = b.indicator
	}
	return out
}

// UpdateCount returns the number of bars delivered to the i-th binding
// for the bar type since the last reset.
func (r *IndicatorRegistry) UpdateCount(barType types.BarType, i int) int {
	bindings := r.bindings[barType]
	if i < 0 || i >= len(bindings) {
		return 0
	}
	return bindings[i].barCount
}

// Initialized returns true iff every indicator bound to the bar type
// reports initialized. A bar type with no bindings reports false.
func (r *IndicatorRegistry) Initialized(barType types.BarType) bool {
	bindings, ok := r.bindings[barType]
	if !ok || len(bindings) == 0 {
		return false
	}
	for _, b := range bindings {
		if !b.indicator.Initialized() {
			return false
		}
	}
	return true
}

// InitializedAll folds Initialized across every registered bar type.
func (r *IndicatorRegistry) InitializedAll() bool {
	for bt := range r.bindings {
		if !r.Initialized(bt) {
			return false
		}
	}
	return true
}

// ResetAll resets every registered indicator and zeroes the per-binding
// bar counts.
func (r *IndicatorRegistry) ResetAll() {
	for _, bindings := range r.bindings {
		for _, b := range bindings {
			b.indicator.Reset()
			b.barCount = 0
		}
	}
}
