// Package portfolio tracks positions built from execution fills. It
// learns the order-to-position association when orders are accepted
// and nets fills into aggregate positions per position id.
package portfolio

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tathienbao/strategy-engine/internal/types"
)

type orderIndex struct {
	positionID types.PositionID
	strategyID types.StrategyID
}

// Portfolio is an in-memory position ledger.
type Portfolio struct {
	logger *slog.Logger

	mu         sync.RWMutex
	positions  map[types.PositionID]*types.Position
	byStrategy map[types.StrategyID]map[types.PositionID]struct{}
	orders     map[types.OrderID]orderIndex
}

// New creates an empty portfolio.
func New(logger *slog.Logger) *Portfolio {
	if logger == nil {
		logger = slog.Default()
	}
	return &Portfolio{
		logger:     logger,
		positions:  make(map[types.PositionID]*types.Position),
		byStrategy: make(map[types.StrategyID]map[types.PositionID]struct{}),
		orders:     make(map[types.OrderID]orderIndex),
	}
}

// IndexOrder records which position an accepted order belongs to.
// Called by the execution client before any fill for the order.
func (p *Portfolio) IndexOrder(orderID types.OrderID, positionID types.PositionID, strategyID types.StrategyID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orders[orderID] = orderIndex{positionID: positionID, strategyID: strategyID}
}

// HandleEvent nets fill events into positions. Other events are
// ignored. Register this ahead of the engine's event handler so hooks
// observe up-to-date positions.
func (p *Portfolio) HandleEvent(event types.Event) {
	switch ev := event.(type) {
	case types.OrderFilled:
		p.applyFill(ev.OrderID, ev.Symbol, ev.Side, ev.FillPrice, ev.FilledQty, ev.EventTime())
	case types.OrderPartiallyFilled:
		p.applyFill(ev.OrderID, ev.Symbol, ev.Side, ev.FillPrice, ev.FilledQty, ev.EventTime())
	}
}

func (p *Portfolio) applyFill(orderID types.OrderID, symbol types.Symbol, side types.OrderSide, price, qty decimal.Decimal, eventTime time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx, ok := p.orders[orderID]
	if !ok {
		p.logger.Warn("fill for unindexed order", "order_id", orderID)
		return
	}

	position, ok := p.positions[idx.positionID]
	if !ok {
		position = &types.Position{
			ID:           idx.positionID,
			Symbol:       symbol,
			EntryOrderID: orderID,
			EntryTime:    eventTime,
		}
		p.positions[idx.positionID] = position
		strategyPositions, ok := p.byStrategy[idx.strategyID]
		if !ok {
			strategyPositions = make(map[types.PositionID]struct{})
			p.byStrategy[idx.strategyID] = strategyPositions
		}
		strategyPositions[idx.positionID] = struct{}{}
	}

	p.net(position, side, price, qty)
	position.FillCount++
	if position.IsFlat() {
		position.ExitTime = eventTime
	}
}

// net applies a signed fill to the position, flipping direction when a
// fill trades through flat.
func (p *Portfolio) net(position *types.Position, side types.OrderSide, price, qty decimal.Decimal) {
	signed := qty
	if side == types.SideSell {
		signed = qty.Neg()
	}

	current := position.Quantity
	if position.MarketPosition == types.MarketPositionShort {
		current = current.Neg()
	}
	next := current.Add(signed)

	sameDirection := current.IsZero() || current.Sign() == signed.Sign()
	if sameDirection {
		// Adding exposure: average the entry price.
		total := current.Abs().Add(qty)
		position.AvgEntryPrice = position.AvgEntryPrice.Mul(current.Abs()).
			Add(price.Mul(qty)).Div(total)
	} else if current.Sign() != next.Sign() && !next.IsZero() {
		// Traded through flat: the residual is a fresh entry.
		position.AvgEntryPrice = price
	}

	position.Quantity = next.Abs()
	switch {
	case next.IsZero():
		position.MarketPosition = types.MarketPositionFlat
	case next.Sign() > 0:
		position.MarketPosition = types.MarketPositionLong
	default:
		position.MarketPosition = types.MarketPositionShort
	}
}

// Position returns the position with the given id.
func (p *Portfolio) Position(id types.PositionID) (types.Position, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	position, ok := p.positions[id]
	if !ok {
		return types.Position{}, fmt.Errorf("%w: %s", types.ErrPositionNotFound, id)
	}
	return *position, nil
}

// PositionForOrder returns the position an order was submitted
// against, whether or not the order has filled.
func (p *Portfolio) PositionForOrder(orderID types.OrderID) (types.Position, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	idx, ok := p.orders[orderID]
	if !ok {
		return types.Position{}, fmt.Errorf("%w: no position for order %s", types.ErrPositionNotFound, orderID)
	}
	position, ok := p.positions[idx.positionID]
	if !ok {
		return types.Position{}, fmt.Errorf("%w: %s", types.ErrPositionNotFound, idx.positionID)
	}
	return *position, nil
}

// Positions returns every position of the strategy.
func (p *Portfolio) Positions(strategyID types.StrategyID) map[types.PositionID]types.Position {
	return p.positionsWhere(strategyID, func(types.Position) bool { return true })
}

// PositionsActive returns the strategy's open positions.
func (p *Portfolio) PositionsActive(strategyID types.StrategyID) map[types.PositionID]types.Position {
	return p.positionsWhere(strategyID, func(pos types.Position) bool { return pos.IsEntered() })
}

// PositionsClosed returns the strategy's closed positions.
func (p *Portfolio) PositionsClosed(strategyID types.StrategyID) map[types.PositionID]types.Position {
	return p.positionsWhere(strategyID, func(pos types.Position) bool { return pos.IsFlat() && pos.FillCount > 0 })
}

func (p *Portfolio) positionsWhere(strategyID types.StrategyID, keep func(types.Position) bool) map[types.PositionID]types.Position {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[types.PositionID]types.Position)
	for id := range p.byStrategy[strategyID] {
		if position, ok := p.positions[id]; ok && keep(*position) {
			out[id] = *position
		}
	}
	return out
}

// IsPositionExists reports whether the position id is known.
func (p *Portfolio) IsPositionExists(id types.PositionID) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.positions[id]
	return ok
}

// IsStrategyFlat returns true if the strategy holds no open positions.
func (p *Portfolio) IsStrategyFlat(strategyID types.StrategyID) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for id := range p.byStrategy[strategyID] {
		if position, ok := p.positions[id]; ok && position.IsEntered() {
			return false
		}
	}
	return true
}

// Reset clears all positions and order associations.
func (p *Portfolio) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.positions = make(map[types.PositionID]*types.Position)
	p.byStrategy = make(map[types.StrategyID]map[types.PositionID]struct{})
	p.orders = make(map[types.OrderID]orderIndex)
}
