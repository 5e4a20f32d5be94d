package engine

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/tathienbao/strategy-engine/internal/types"
)

// sendCommand forwards a command to the execution client. A missing
// client is logged and the operation suppressed; the engine continues.
func (e *Engine) sendCommand(cmd types.Command) error {
	if e.exec == nil {
		e.logger.Error("command suppressed", "err", types.ErrNoExecutionClient, "command", fmt.Sprintf("%T", cmd))
		return nil
	}
	if e.recorder != nil {
		e.recorder.RecordCommand(commandName(cmd))
	}
	if err := e.exec.Execute(cmd); err != nil {
		return fmt.Errorf("execute command: %w", err)
	}
	return nil
}

// register places an order into the given register, enforcing that an
// order id lives in at most one register.
func (e *Engine) register(reg map[types.OrderID]types.Order, order types.Order) error {
	if e.isRegistered(order.ID) {
		return fmt.Errorf("%w: %s", types.ErrDuplicateOrder, order.ID)
	}
	reg[order.ID] = order
	return nil
}

func (e *Engine) isRegistered(id types.OrderID) bool {
	if _, ok := e.entryOrders[id]; ok {
		return true
	}
	if _, ok := e.stopLossOrders[id]; ok {
		return true
	}
	_, ok := e.takeProfitOrders[id]
	return ok
}

// SubmitOrder forwards a SubmitOrder command tagged with the trader,
// strategy, and position.
func (e *Engine) SubmitOrder(order types.Order, positionID types.PositionID) error {
	if e.recorder != nil {
		e.recorder.RecordOrderSubmitted(order.Side.String(), order.Purpose.String())
	}
	return e.sendCommand(types.SubmitOrder{
		TraderID:   e.cfg.TraderID,
		StrategyID: e.cfg.StrategyID,
		PositionID: positionID,
		Order:      order,
	})
}

// RegisterEntryOrder places an order in the entry register. The
// position id tags the eventual submit command; the engine keeps no
// order-to-position map of its own and relies on the execution client
// for that association.
func (e *Engine) RegisterEntryOrder(order types.Order, positionID types.PositionID) error {
	_ = positionID
	return e.register(e.entryOrders, order)
}

// RegisterStopLossOrder places an order in the stop-loss register.
func (e *Engine) RegisterStopLossOrder(order types.Order) error {
	return e.register(e.stopLossOrders, order)
}

// RegisterTakeProfitOrder places an order in the take-profit register.
func (e *Engine) RegisterTakeProfitOrder(order types.Order) error {
	return e.register(e.takeProfitOrders, order)
}

// SubmitEntryOrder registers the order as an entry and submits it.
func (e *Engine) SubmitEntryOrder(order types.Order, positionID types.PositionID) error {
	if err := e.RegisterEntryOrder(order, positionID); err != nil {
		return err
	}
	return e.SubmitOrder(order, positionID)
}

// SubmitStopLossOrder registers the order as a stop-loss and submits it.
func (e *Engine) SubmitStopLossOrder(order types.Order, positionID types.PositionID) error {
	if err := e.RegisterStopLossOrder(order); err != nil {
		return err
	}
	return e.SubmitOrder(order, positionID)
}

// SubmitTakeProfitOrder registers the order as a take-profit and
// submits it.
func (e *Engine) SubmitTakeProfitOrder(order types.Order, positionID types.PositionID) error {
	if err := e.RegisterTakeProfitOrder(order); err != nil {
		return err
	}
	return e.SubmitOrder(order, positionID)
}

// SubmitAtomicOrder registers the entry and its children in their
// registers, records the parent-to-children mapping, and forwards a
// SubmitAtomicOrder command.
func (e *Engine) SubmitAtomicOrder(atomic types.AtomicOrder, positionID types.PositionID) error {
	if err := atomic.Validate(); err != nil {
		return err
	}
	if err := e.register(e.entryOrders, atomic.Entry); err != nil {
		return err
	}
	if err := e.register(e.stopLossOrders, atomic.StopLoss); err != nil {
		return err
	}
	if atomic.TakeProfit != nil {
		if err := e.register(e.takeProfitOrders, *atomic.TakeProfit); err != nil {
			return err
		}
	}
	e.atomicChildren[atomic.Entry.ID] = atomic.ChildIDs()

	if e.recorder != nil {
		e.recorder.RecordOrderSubmitted(atomic.Entry.Side.String(), "ATOMIC")
	}
	return e.sendCommand(types.SubmitAtomicOrder{
		TraderID:   e.cfg.TraderID,
		StrategyID: e.cfg.StrategyID,
		PositionID: positionID,
		Atomic:     atomic,
	})
}

// ModifyOrder asks the venue to re-price a working order. Only one
// modify per order is in flight at a time: a second request while the
// first awaits its ack replaces the buffered command and is re-issued,
// if still needed, when the ack arrives.
func (e *Engine) ModifyOrder(order types.Order, newPrice decimal.Decimal) error {
	cmd := types.ModifyOrder{
		TraderID:      e.cfg.TraderID,
		StrategyID:    e.cfg.StrategyID,
		Order:         order,
		ModifiedPrice: newPrice,
	}

	if buffered, ok := e.modifyBuffer[order.ID]; ok {
		e.logger.Warn("modify already in flight, coalescing",
			"order_id", order.ID,
			"buffered_price", buffered.ModifiedPrice.String(),
			"new_price", newPrice.String(),
		)
		e.modifyBuffer[order.ID] = cmd
		return nil
	}

	e.modifyBuffer[order.ID] = cmd
	return e.sendCommand(cmd)
}

// CancelOrder forwards a CancelOrder command.
func (e *Engine) CancelOrder(order types.Order, reason string) error {
	return e.sendCommand(types.CancelOrder{
		TraderID:   e.cfg.TraderID,
		StrategyID: e.cfg.StrategyID,
		Order:      order,
		Reason:     reason,
	})
}

// CancelAllOrders cancels every order the execution client holds
// active for this strategy.
func (e *Engine) CancelAllOrders(reason string) error {
	if e.exec == nil {
		e.logger.Error("cancel all orders suppressed", "err", types.ErrNoExecutionClient)
		return nil
	}

	active := e.exec.OrdersActive(e.cfg.StrategyID)
	for _, id := range sortedOrderIDs(active) {
		if err := e.CancelOrder(active[id], reason); err != nil {
			e.logger.Error("cancel order failed", "order_id", id, "err", err)
		}
	}
	return nil
}

// FlattenPosition closes the position with a market order on the
// opposite side. A flat position is skipped with a warning.
func (e *Engine) FlattenPosition(positionID types.PositionID) error {
	if e.portfolio == nil {
		e.logger.Error("flatten suppressed", "err", types.ErrNoPortfolio, "position_id", positionID)
		return nil
	}

	position, err := e.portfolio.Position(positionID)
	if err != nil {
		return fmt.Errorf("flatten position: %w", err)
	}
	if position.IsFlat() {
		e.logger.Warn("position already flat", "position_id", positionID)
		return nil
	}

	order, err := e.factory.Market(position.Symbol, position.FlattenSide(), position.Quantity, types.PurposeExit)
	if err != nil {
		return fmt.Errorf("flatten position: %w", err)
	}
	return e.SubmitOrder(order, positionID)
}

// FlattenAllPositions flattens every active position of this strategy.
func (e *Engine) FlattenAllPositions() error {
	if e.portfolio == nil {
		e.logger.Error("flatten all suppressed", "err", types.ErrNoPortfolio)
		return nil
	}

	active := e.portfolio.PositionsActive(e.cfg.StrategyID)
	for _, id := range sortedPositionIDs(active) {
		if err := e.FlattenPosition(id); err != nil {
			e.logger.Error("flatten position failed", "position_id", id, "err", err)
		}
	}
	return nil
}

// CollateralInquiry requests an account-state report.
func (e *Engine) CollateralInquiry() error {
	return e.sendCommand(types.CollateralInquiry{
		TraderID:   e.cfg.TraderID,
		StrategyID: e.cfg.StrategyID,
	})
}

// Account returns the account state from the execution client.
func (e *Engine) Account() (types.Account, error) {
	if e.exec == nil {
		return types.Account{}, types.ErrNoExecutionClient
	}
	return e.exec.Account()
}

// EntryOrders returns a copy of the entry register.
func (e *Engine) EntryOrders() map[types.OrderID]types.Order {
	return copyOrders(e.entryOrders)
}

// StopLossOrders returns a copy of the stop-loss register.
func (e *Engine) StopLossOrders() map[types.OrderID]types.Order {
	return copyOrders(e.stopLossOrders)
}

// TakeProfitOrders returns a copy of the take-profit register.
func (e *Engine) TakeProfitOrders() map[types.OrderID]types.Order {
	return copyOrders(e.takeProfitOrders)
}

// AtomicOrderIDs returns a copy of the atomic parent-to-children map.
func (e *Engine) AtomicOrderIDs() map[types.OrderID][]types.OrderID {
	out := make(map[types.OrderID][]types.OrderID, len(e.atomicChildren))
	for parent, children := range e.atomicChildren {
		out[parent] = append([]types.OrderID(nil), children...)
	}
	return out
}

// BufferedModifies returns a copy of the in-flight modify buffer.
func (e *Engine) BufferedModifies() map[types.OrderID]types.ModifyOrder {
	out := make(map[types.OrderID]types.ModifyOrder, len(e.modifyBuffer))
	for id, cmd := range e.modifyBuffer {
		out[id] = cmd
	}
	return out
}

func copyOrders(in map[types.OrderID]types.Order) map[types.OrderID]types.Order {
	out := make(map[types.OrderID]types.Order, len(in))
	for id, order := range in {
		out[id] = order
	}
	return out
}

// sortedOrderIDs keeps outbound command sequences deterministic.
func sortedOrderIDs(in map[types.OrderID]types.Order) []types.OrderID {
	out := make([]types.OrderID, 0, len(in))
	for id := range in {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortedPositionIDs(in map[types.PositionID]types.Position) []types.PositionID {
	out := make([]types.PositionID, 0, len(in))
	for id := range in {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func commandName(cmd types.Command) string {
	switch cmd.(type) {
	case types.SubmitOrder:
		return "submit_order"
	case types.SubmitAtomicOrder:
		return "submit_atomic_order"
	case types.ModifyOrder:
		return "modify_order"
	case types.CancelOrder:
		return "cancel_order"
	case types.CollateralInquiry:
		return "collateral_inquiry"
	default:
		return fmt.Sprintf("%T", cmd)
	}
}
