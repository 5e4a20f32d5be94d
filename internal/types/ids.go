package types

// TraderID identifies a trader across all strategies it runs.
type TraderID string

func (id TraderID) String() string { return string(id) }

// StrategyID identifies a strategy instance within a trader.
type StrategyID string

func (id StrategyID) String() string { return string(id) }

// OrderID is a venue-unique order identifier produced by an
// OrderIDGenerator.
type OrderID string

func (id OrderID) String() string { return string(id) }

// PositionID is a unique position identifier produced by a
// PositionIDGenerator.
type PositionID string

func (id PositionID) String() string { return string(id) }
