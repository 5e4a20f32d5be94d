package types

import (
	"github.com/shopspring/decimal"
)

// Command is the sum type forwarded to the execution client. Every
// command is tagged with the trader and strategy that issued it.
type Command interface {
	isCommand()
}

// SubmitOrder asks the venue to accept a single order against a
// position.
type SubmitOrder struct {
	TraderID   TraderID
	StrategyID StrategyID
	PositionID PositionID
	Order      Order
}

// SubmitAtomicOrder asks the venue to activate an entry order together
// with its contingent children.
type SubmitAtomicOrder struct {
	TraderID   TraderID
	StrategyID StrategyID
	PositionID PositionID
	Atomic     AtomicOrder
}

// ModifyOrder asks the venue to re-price a working order.
type ModifyOrder struct {
	TraderID      TraderID
	StrategyID    StrategyID
	Order         Order
	ModifiedPrice decimal.Decimal
}

// CancelOrder asks the venue to cancel a working order.
type CancelOrder struct {
	TraderID   TraderID
	StrategyID StrategyID
	Order      Order
	Reason     string
}

// CollateralInquiry requests an account-state report, answered with an
// AccountEvent.
type CollateralInquiry struct {
	TraderID   TraderID
	StrategyID StrategyID
}

func (SubmitOrder) isCommand()       {}
func (SubmitAtomicOrder) isCommand() {}
func (ModifyOrder) isCommand()       {}
func (CancelOrder) isCommand()       {}
func (CollateralInquiry) isCommand() {}
