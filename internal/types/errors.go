// Package types defines the value objects, events, and commands shared
// across the strategy engine.
package types

import "errors"

// Sentinel errors for the strategy engine.
var (
	// Precondition errors
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrEngineRunning    = errors.New("engine is running")
	ErrEngineDisposed   = errors.New("engine is disposed")
	ErrAtomicOrderSides = errors.New("atomic child orders must oppose the entry side")
	ErrInvalidQuantity  = errors.New("order quantity must be positive")
	ErrInvalidCapacity  = errors.New("bar capacity must be positive")

	// Lookup errors
	ErrTickNotFound       = errors.New("no tick cached for symbol")
	ErrBarTypeNotFound    = errors.New("no bars cached for bar type")
	ErrBarIndexOutOfRange = errors.New("bar index out of range")
	ErrOrderNotFound      = errors.New("order not found")
	ErrPositionNotFound   = errors.New("position not found")
	ErrInstrumentNotFound = errors.New("instrument not found")
	ErrRateNotFound       = errors.New("no exchange rate for currency pair")

	// Client registration errors
	ErrNoDataClient      = errors.New("data client not registered")
	ErrNoExecutionClient = errors.New("execution client not registered")
	ErrNoPortfolio       = errors.New("portfolio not registered")

	// Execution errors
	ErrDuplicateOrder    = errors.New("duplicate order id")
	ErrOrderNotWorking   = errors.New("order is not working")
	ErrRateLimitExceeded = errors.New("command rate limit exceeded")
)
