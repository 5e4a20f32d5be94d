// Package ids generates monotonic, collision-free order and position
// identifiers scoped by trader and strategy.
package ids

import (
	"fmt"

	"github.com/tathienbao/strategy-engine/internal/clock"
	"github.com/tathienbao/strategy-engine/internal/types"
)

// Generator produces identifiers of the form
// {prefix}-{YYYYMMDD}-{HHMMSS}-{trader}-{strategy}-{counter}.
// The counter is monotonic within a run; the datetime component keeps
// identifiers unique across runs.
type Generator struct {
	prefix      string
	traderTag   string
	strategyTag string
	clk         clock.Clock
	counter     int
}

// NewGenerator creates a generator for the given prefix and tags.
func NewGenerator(prefix, traderTag, strategyTag string, clk clock.Clock) *Generator {
	return &Generator{
		prefix:      prefix,
		traderTag:   traderTag,
		strategyTag: strategyTag,
		clk:         clk,
	}
}

// Generate increments the counter and returns the next identifier.
func (g *Generator) Generate() string {
	g.counter++
	return fmt.Sprintf("%s-%s-%s-%s-%d",
		g.prefix,
		g.clk.TimeNow().Format("20060102-150405"),
		g.traderTag,
		g.strategyTag,
		g.counter,
	)
}

// Count returns the number of identifiers generated since the last
// reset.
func (g *Generator) Count() int {
	return g.counter
}

// Reset zeroes the counter.
func (g *Generator) Reset() {
	g.counter = 0
}

// OrderIDGenerator generates order identifiers with prefix "O".
type OrderIDGenerator struct {
	Generator
}

// NewOrderIDGenerator creates an order identifier generator.
func NewOrderIDGenerator(traderTag, strategyTag string, clk clock.Clock) *OrderIDGenerator {
	return &OrderIDGenerator{Generator: *NewGenerator("O", traderTag, strategyTag, clk)}
}

// GenerateOrderID returns the next order identifier.
func (g *OrderIDGenerator) GenerateOrderID() types.OrderID {
	return types.OrderID(g.Generate())
}

// PositionIDGenerator generates position identifiers with prefix "P".
type PositionIDGenerator struct {
	Generator
}

// NewPositionIDGenerator creates a position identifier generator.
func NewPositionIDGenerator(traderTag, strategyTag string, clk clock.Clock) *PositionIDGenerator {
	return &PositionIDGenerator{Generator: *NewGenerator("P", traderTag, strategyTag, clk)}
}

// GeneratePositionID returns the next position identifier.
func (g *PositionIDGenerator) GeneratePositionID() types.PositionID {
	return types.PositionID(g.Generate())
}
