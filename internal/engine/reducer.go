package engine

import (
	"github.com/tathienbao/strategy-engine/internal/types"
)

// reduce applies an event to the order ledger before the user hook
// observes it.
func (e *Engine) reduce(event types.Event) {
	switch ev := event.(type) {
	case types.OrderRejected:
		e.onOrderRejected(ev)
	case types.OrderCancelled:
		e.removeAtomicChildren(ev.OrderID)
		e.removeFromRegisters(ev.OrderID)
	case types.OrderExpired:
		e.removeAtomicChildren(ev.OrderID)
		e.removeFromRegisters(ev.OrderID)
	case types.OrderFilled:
		// A filled atomic parent releases its children to be tracked
		// independently; they stay in their own registers.
		delete(e.atomicChildren, ev.OrderID)
		e.removeFromRegisters(ev.OrderID)
	case types.OrderPartiallyFilled:
		e.logger.Info("order partially filled",
			"order_id", ev.OrderID,
			"filled_qty", ev.FilledQty.String(),
			"leaves_qty", ev.LeavesQty.String(),
		)
	case types.OrderModified:
		e.drainModifyBuffer(ev.OrderID)
	case types.OrderCancelReject:
		e.drainModifyBuffer(ev.OrderID)
	}
}

// onOrderRejected removes the order and any atomic children from the
// ledger. A rejected stop-loss leaves an entered position unprotected,
// so when configured the engine flattens it immediately.
func (e *Engine) onOrderRejected(ev types.OrderRejected) {
	e.logger.Warn("order rejected", "order_id", ev.OrderID, "reason", ev.Reason)

	if _, isStopLoss := e.stopLossOrders[ev.OrderID]; isStopLoss && e.cfg.FlattenOnSLReject {
		e.flattenForRejectedStop(ev.OrderID)
	}

	e.removeAtomicChildren(ev.OrderID)
	e.removeFromRegisters(ev.OrderID)
}

func (e *Engine) flattenForRejectedStop(orderID types.OrderID) {
	if e.portfolio == nil {
		e.logger.Error("flatten on stop-loss reject suppressed", "err", types.ErrNoPortfolio, "order_id", orderID)
		return
	}

	position, err := e.portfolio.PositionForOrder(orderID)
	if err != nil {
		e.logger.Warn("no position for rejected stop-loss", "order_id", orderID, "err", err)
		return
	}
	if !position.IsEntered() {
		return
	}

	e.logger.Warn("stop-loss rejected for entered position, flattening",
		"order_id", orderID,
		"position_id", position.ID,
	)
	if err := e.FlattenPosition(position.ID); err != nil {
		e.logger.Error("flatten after stop-loss reject failed", "position_id", position.ID, "err", err)
	}
}

// removeAtomicChildren drops the children of an atomic parent from all
// registers. The venue will not accept children of an order it has
// already resolved.
func (e *Engine) removeAtomicChildren(parentID types.OrderID) {
	children, ok := e.atomicChildren[parentID]
	if !ok {
		return
	}
	for _, child := range children {
		e.removeFromRegisters(child)
	}
	delete(e.atomicChildren, parentID)
}

func (e *Engine) removeFromRegisters(id types.OrderID) {
	delete(e.entryOrders, id)
	delete(e.stopLossOrders, id)
	delete(e.takeProfitOrders, id)
}

// drainModifyBuffer resolves an in-flight modify on its terminal ack.
// If the user requested a newer price while the previous modify was in
// flight, the buffered command no longer matches the order's current
// price and is re-issued; either way the buffer entry is removed.
func (e *Engine) drainModifyBuffer(orderID types.OrderID) {
	buffered, ok := e.modifyBuffer[orderID]
	if !ok {
		return
	}
	delete(e.modifyBuffer, orderID)

	if e.exec == nil {
		e.logger.Error("modify drain suppressed", "err", types.ErrNoExecutionClient, "order_id", orderID)
		return
	}

	current, err := e.exec.Order(orderID)
	if err != nil {
		e.logger.Warn("modify drain: order not found at execution client", "order_id", orderID, "err", err)
		return
	}

	if !buffered.ModifiedPrice.Equal(current.Price) {
		e.logger.Info("re-issuing superseding modify",
			"order_id", orderID,
			"price", buffered.ModifiedPrice.String(),
			"current_price", current.Price.String(),
		)
		if err := e.sendCommand(buffered); err != nil {
			e.logger.Error("re-issue modify failed", "order_id", orderID, "err", err)
		}
	}
}
