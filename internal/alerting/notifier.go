package alerting

import (
	"context"

	"github.com/tathienbao/strategy-engine/internal/types"
)

// Notifier turns execution events into alerts. It is registered as an
// event handler next to the engine's dispatcher; alert failures are
// swallowed by the underlying alerter chain.
type Notifier struct {
	alerter Alerter
}

// NewNotifier creates a notifier sending through the alerter.
func NewNotifier(alerter Alerter) *Notifier {
	return &Notifier{alerter: alerter}
}

// HandleEvent alerts on order rejections and fills. Other event kinds
// pass through silently.
func (n *Notifier) HandleEvent(event types.Event) {
	ctx := context.Background()

	switch e := event.(type) {
	case types.OrderRejected:
		_ = n.alerter.Alert(ctx, SeverityHigh, "order rejected",
			"order_id", e.OrderID,
			"reason", e.Reason,
		)
	case types.OrderCancelReject:
		_ = n.alerter.Alert(ctx, SeverityWarning, "venue rejected order change",
			"order_id", e.OrderID,
			"response", e.Response,
			"reason", e.Reason,
		)
	case types.OrderFilled:
		_ = n.alerter.Alert(ctx, SeverityInfo, "order filled",
			"order_id", e.OrderID,
			"symbol", e.Symbol.String(),
			"side", e.Side.String(),
			"price", e.FillPrice.String(),
			"quantity", e.FilledQty.String(),
		)
	case types.OrderExpired:
		_ = n.alerter.Alert(ctx, SeverityWarning, "order expired",
			"order_id", e.OrderID,
		)
	}
}
