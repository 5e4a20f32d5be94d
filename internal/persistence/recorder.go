package persistence

import (
	"context"
	"log/slog"

	"github.com/tathienbao/strategy-engine/internal/types"
)

// OrderSource looks up the current state of an order by identifier.
type OrderSource interface {
	Order(id types.OrderID) (types.Order, error)
}

// PositionSource looks up the position an order contributed to.
type PositionSource interface {
	PositionForOrder(orderID types.OrderID) (types.Position, error)
}

// Recorder bridges the execution event stream to the repository. It is
// registered as an event handler; persistence failures are logged and
// never interrupt trading.
type Recorder struct {
	repo       Repository
	strategyID types.StrategyID
	orders     OrderSource
	positions  PositionSource
	logger     *slog.Logger
}

// NewRecorder creates a recorder writing to repo on behalf of one
// strategy.
func NewRecorder(repo Repository, strategyID types.StrategyID, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{repo: repo, strategyID: strategyID, logger: logger}
}

// BindSources attaches the order and position lookups used for audit
// records. Without sources the recorder stores fills only.
func (r *Recorder) BindSources(orders OrderSource, positions PositionSource) {
	r.orders = orders
	r.positions = positions
}

// HandleEvent persists the order behind every order event, each fill,
// and any position a fill closed. Other event kinds pass through.
func (r *Recorder) HandleEvent(event types.Event) {
	switch e := event.(type) {
	case types.OrderRejected:
		r.recordOrder(e.OrderID)
	case types.OrderCancelled:
		r.recordOrder(e.OrderID)
	case types.OrderModified:
		r.recordOrder(e.OrderID)
	case types.OrderExpired:
		r.recordOrder(e.OrderID)
	case types.OrderPartiallyFilled:
		r.recordOrder(e.OrderID)
		r.recordFill(FillRecord{
			OrderID:   e.OrderID,
			Symbol:    e.Symbol,
			Side:      e.Side,
			FillPrice: e.FillPrice,
			FilledQty: e.FilledQty,
			FillTime:  e.Timestamp,
		})
	case types.OrderFilled:
		r.recordOrder(e.OrderID)
		r.recordFill(FillRecord{
			OrderID:   e.OrderID,
			Symbol:    e.Symbol,
			Side:      e.Side,
			FillPrice: e.FillPrice,
			FilledQty: e.FilledQty,
			FillTime:  e.Timestamp,
		})
		r.recordClosedPosition(e.OrderID)
	}
}

func (r *Recorder) recordOrder(id types.OrderID) {
	if r.orders == nil {
		return
	}
	order, err := r.orders.Order(id)
	if err != nil {
		r.logger.Warn("order lookup failed",
			"order_id", id,
			"error", err)
		return
	}
	if err := r.repo.SaveOrder(context.Background(), r.strategyID, order); err != nil {
		r.logger.Error("persist order failed",
			"order_id", id,
			"error", err)
	}
}

func (r *Recorder) recordFill(record FillRecord) {
	if err := r.repo.SaveFill(context.Background(), record); err != nil {
		r.logger.Error("persist fill failed",
			"order_id", record.OrderID,
			"error", err)
	}
}

// recordClosedPosition writes the position an order belongs to once a
// fill has returned it to flat. Open positions are not persisted; they
// are rebuilt from fills on recovery.
func (r *Recorder) recordClosedPosition(orderID types.OrderID) {
	if r.positions == nil {
		return
	}
	position, err := r.positions.PositionForOrder(orderID)
	if err != nil {
		return
	}
	if !position.IsFlat() || position.FillCount == 0 {
		return
	}
	if err := r.repo.SavePosition(context.Background(), r.strategyID, position); err != nil {
		r.logger.Error("persist position failed",
			"position_id", position.ID,
			"error", err)
	}
}
