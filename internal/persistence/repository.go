// Package persistence provides durable storage for strategy state and
// trading audit records.
package persistence

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tathienbao/strategy-engine/internal/types"
)

// Repository defines the interface for state persistence.
type Repository interface {
	// Strategy state operations. State is the key/value map produced
	// by a strategy's save hook.
	SaveStrategyState(ctx context.Context, strategyID types.StrategyID, state map[string]string) error
	LoadStrategyState(ctx context.Context, strategyID types.StrategyID) (map[string]string, error)

	// Order audit operations
	SaveOrder(ctx context.Context, strategyID types.StrategyID, order types.Order) error
	GetOrders(ctx context.Context, strategyID types.StrategyID) ([]types.Order, error)

	// Fill audit operations
	SaveFill(ctx context.Context, fill FillRecord) error
	GetFills(ctx context.Context, from, to time.Time) ([]FillRecord, error)

	// Position audit operations
	SavePosition(ctx context.Context, strategyID types.StrategyID, position types.Position) error
	GetClosedPositions(ctx context.Context, strategyID types.StrategyID) ([]types.Position, error)

	// Equity operations
	SaveEquitySnapshot(ctx context.Context, snapshot EquitySnapshot) error
	GetEquityHistory(ctx context.Context, from, to time.Time) ([]EquitySnapshot, error)

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}

// FillRecord is a persisted execution fill.
type FillRecord struct {
	ID        int64
	OrderID   types.OrderID
	Symbol    types.Symbol
	Side      types.OrderSide
	FillPrice decimal.Decimal
	FilledQty decimal.Decimal
	FillTime  time.Time
}

// EquitySnapshot is a persisted point on the account equity curve.
type EquitySnapshot struct {
	ID        int64
	Timestamp time.Time
	Equity    decimal.Decimal
}
