// Package execution provides a simulated execution client for paper
// trading and backtesting. Orders are matched against market data fed
// by the runner; every state change is reported as an event to the
// registered handlers in deterministic order.
package execution

import (
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/tathienbao/strategy-engine/internal/clock"
	"github.com/tathienbao/strategy-engine/internal/types"
)

// EventHandler receives execution events.
type EventHandler func(event types.Event)

// OrderIndexer learns the order-to-position association when an order
// is accepted, before any fill happens.
type OrderIndexer interface {
	IndexOrder(orderID types.OrderID, positionID types.PositionID, strategyID types.StrategyID)
}

// Config holds paper execution configuration.
type Config struct {
	InitialBalance    decimal.Decimal
	Currency          string
	SlippageTicks     int
	CommissionPerSide decimal.Decimal
	RequestsPerSecond int
}

// DefaultConfig returns default paper execution config.
func DefaultConfig() Config {
	return Config{
		InitialBalance:    decimal.NewFromInt(100000),
		Currency:          "USD",
		SlippageTicks:     0,
		CommissionPerSide: decimal.Zero,
		RequestsPerSecond: 100,
	}
}

type orderRecord struct {
	order      types.Order
	positionID types.PositionID
	strategyID types.StrategyID
	filledQty  decimal.Decimal
}

// PaperClient simulates a venue. It accepts commands from the engine,
// holds working orders, and matches them against ticks and bars pushed
// by the runner.
type PaperClient struct {
	cfg     Config
	clk     clock.Clock
	limiter *rate.Limiter

	mu          sync.RWMutex
	records     map[types.OrderID]*orderRecord
	instruments map[types.Symbol]types.Instrument
	lastPrice   map[types.Symbol]decimal.Decimal
	account     types.Account

	handlers []EventHandler
	indexer  OrderIndexer
}

// NewPaperClient creates a paper execution client driven by the given
// clock.
func NewPaperClient(cfg Config, clk clock.Clock) *PaperClient {
	return &PaperClient{
		cfg:         cfg,
		clk:         clk,
		limiter:     rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.RequestsPerSecond),
		records:     make(map[types.OrderID]*orderRecord),
		instruments: make(map[types.Symbol]types.Instrument),
		lastPrice:   make(map[types.Symbol]decimal.Decimal),
		account: types.Account{
			Currency:    cfg.Currency,
			CashBalance: cfg.InitialBalance,
			FreeEquity:  cfg.InitialBalance,
		},
	}
}

// RegisterHandler appends an event handler. Handlers fire in
// registration order for every emitted event.
func (p *PaperClient) RegisterHandler(handler EventHandler) {
	p.handlers = append(p.handlers, handler)
}

// BindIndexer sets the order indexer notified on order acceptance.
func (p *PaperClient) BindIndexer(indexer OrderIndexer) {
	p.indexer = indexer
}

// AddInstrument registers an instrument used for slippage and price
// rounding.
func (p *PaperClient) AddInstrument(instrument types.Instrument) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.instruments[instrument.Symbol] = instrument
}

// Execute accepts a command from the engine. Commands beyond the
// configured request rate are refused with ErrRateLimitExceeded.
func (p *PaperClient) Execute(cmd types.Command) error {
	if !p.limiter.Allow() {
		return fmt.Errorf("%w: %T", types.ErrRateLimitExceeded, cmd)
	}

	switch c := cmd.(type) {
	case types.SubmitOrder:
		return p.submit(c.Order, c.PositionID, c.StrategyID)
	case types.SubmitAtomicOrder:
		return p.submitAtomic(c.Atomic, c.PositionID, c.StrategyID)
	case types.ModifyOrder:
		return p.modify(c)
	case types.CancelOrder:
		return p.cancel(c)
	case types.CollateralInquiry:
		p.mu.RLock()
		account := p.account
		p.mu.RUnlock()
		p.emit(types.AccountEvent{BaseEvent: types.NewBaseEvent(p.clk.TimeNow()), Account: account})
		return nil
	default:
		return fmt.Errorf("unsupported command %T", cmd)
	}
}

func (p *PaperClient) submit(order types.Order, positionID types.PositionID, strategyID types.StrategyID) error {
	p.mu.Lock()
	if _, exists := p.records[order.ID]; exists {
		p.mu.Unlock()
		return fmt.Errorf("%w: %s", types.ErrDuplicateOrder, order.ID)
	}

	order.Status = types.OrderStatusWorking
	rec := &orderRecord{order: order, positionID: positionID, strategyID: strategyID}
	p.records[order.ID] = rec
	p.mu.Unlock()

	if p.indexer != nil {
		p.indexer.IndexOrder(order.ID, positionID, strategyID)
	}

	if order.Type == types.OrderTypeMarket {
		p.fillMarket(order.ID)
	}
	return nil
}

func (p *PaperClient) submitAtomic(atomic types.AtomicOrder, positionID types.PositionID, strategyID types.StrategyID) error {
	if err := atomic.Validate(); err != nil {
		return err
	}
	if err := p.submit(atomic.StopLoss, positionID, strategyID); err != nil {
		return err
	}
	if atomic.TakeProfit != nil {
		if err := p.submit(*atomic.TakeProfit, positionID, strategyID); err != nil {
			return err
		}
	}
	// Entry last: its fill event must find the children already working.
	return p.submit(atomic.Entry, positionID, strategyID)
}

func (p *PaperClient) modify(cmd types.ModifyOrder) error {
	p.mu.Lock()
	rec, ok := p.records[cmd.Order.ID]
	if !ok || rec.order.Status != types.OrderStatusWorking {
		p.mu.Unlock()
		p.emit(types.OrderCancelReject{
			BaseEvent: types.NewBaseEvent(p.clk.TimeNow()),
			OrderID:   cmd.Order.ID,
			Response:  "MODIFY_REJECT",
			Reason:    "order not working",
		})
		return nil
	}
	rec.order.Price = cmd.ModifiedPrice
	p.mu.Unlock()

	p.emit(types.OrderModified{
		BaseEvent:     types.NewBaseEvent(p.clk.TimeNow()),
		OrderID:       cmd.Order.ID,
		ModifiedPrice: cmd.ModifiedPrice,
	})
	return nil
}

func (p *PaperClient) cancel(cmd types.CancelOrder) error {
	p.mu.Lock()
	rec, ok := p.records[cmd.Order.ID]
	if !ok || rec.order.Status != types.OrderStatusWorking {
		p.mu.Unlock()
		p.emit(types.OrderCancelReject{
			BaseEvent: types.NewBaseEvent(p.clk.TimeNow()),
			OrderID:   cmd.Order.ID,
			Response:  "CANCEL_REJECT",
			Reason:    "order not working",
		})
		return nil
	}
	rec.order.Status = types.OrderStatusCancelled
	p.mu.Unlock()

	p.emit(types.OrderCancelled{
		BaseEvent: types.NewBaseEvent(p.clk.TimeNow()),
		OrderID:   cmd.Order.ID,
	})
	return nil
}

// ProcessTick updates the last price and matches working orders
// against the tick's mid price.
func (p *PaperClient) ProcessTick(tick types.Tick) {
	mid := tick.Mid()
	p.mu.Lock()
	p.lastPrice[tick.Symbol] = mid
	p.mu.Unlock()
	p.match(tick.Symbol, mid, mid)
}

// ProcessBar updates the last price to the bar close and matches
// working orders against the bar's low-high range.
func (p *PaperClient) ProcessBar(barType types.BarType, bar types.Bar) {
	p.mu.Lock()
	p.lastPrice[barType.Symbol] = bar.Close
	p.mu.Unlock()
	p.match(barType.Symbol, bar.Low, bar.High)
}

// match fills working limit and stop orders whose trigger price falls
// inside [low, high]. Iteration is id-sorted so replayed runs emit
// identical event sequences.
func (p *PaperClient) match(symbol types.Symbol, low, high decimal.Decimal) {
	p.mu.RLock()
	ids := make([]types.OrderID, 0, len(p.records))
	for id, rec := range p.records {
		if rec.order.Symbol == symbol && rec.order.Status == types.OrderStatusWorking {
			ids = append(ids, id)
		}
	}
	p.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		p.mu.RLock()
		rec, ok := p.records[id]
		var order types.Order
		if ok {
			order = rec.order
		}
		p.mu.RUnlock()
		if !ok || order.Status != types.OrderStatusWorking {
			continue
		}

		if price, triggered := triggerPrice(order, low, high); triggered {
			p.fill(id, price)
		}
	}
}

// triggerPrice reports whether the order executes within the price
// range and at what price.
func triggerPrice(order types.Order, low, high decimal.Decimal) (decimal.Decimal, bool) {
	switch order.Type {
	case types.OrderTypeLimit:
		// Buy limit fills at or below its price, sell limit at or above.
		if order.Side == types.SideBuy && low.LessThanOrEqual(order.Price) {
			return order.Price, true
		}
		if order.Side == types.SideSell && high.GreaterThanOrEqual(order.Price) {
			return order.Price, true
		}
	case types.OrderTypeStopMarket:
		// Buy stop triggers at or above its price, sell stop at or below.
		if order.Side == types.SideBuy && high.GreaterThanOrEqual(order.Price) {
			return order.Price, true
		}
		if order.Side == types.SideSell && low.LessThanOrEqual(order.Price) {
			return order.Price, true
		}
	}
	return decimal.Zero, false
}

// fillMarket fills a market order at the last known price. Without a
// price the order is rejected.
func (p *PaperClient) fillMarket(id types.OrderID) {
	p.mu.RLock()
	rec, ok := p.records[id]
	var price decimal.Decimal
	var havePrice bool
	if ok {
		price, havePrice = p.lastPrice[rec.order.Symbol]
	}
	p.mu.RUnlock()
	if !ok {
		return
	}
	if !havePrice {
		p.mu.Lock()
		rec.order.Status = types.OrderStatusRejected
		p.mu.Unlock()
		p.emit(types.OrderRejected{
			BaseEvent: types.NewBaseEvent(p.clk.TimeNow()),
			OrderID:   id,
			Reason:    "no market price",
		})
		return
	}
	p.fill(id, price)
}

func (p *PaperClient) fill(id types.OrderID, price decimal.Decimal) {
	p.mu.Lock()
	rec, ok := p.records[id]
	if !ok || rec.order.Status.IsFinal() {
		p.mu.Unlock()
		return
	}

	price = p.applySlippage(rec.order, price)
	rec.order.Status = types.OrderStatusFilled
	rec.filledQty = rec.order.Quantity
	p.account.CashBalance = p.account.CashBalance.Sub(p.cfg.CommissionPerSide)
	p.account.FreeEquity = p.account.CashBalance
	event := types.OrderFilled{
		BaseEvent: types.NewBaseEvent(p.clk.TimeNow()),
		OrderID:   id,
		Symbol:    rec.order.Symbol,
		Side:      rec.order.Side,
		FillPrice: price,
		FilledQty: rec.order.Quantity,
	}
	p.mu.Unlock()

	p.emit(event)
}

// applySlippage moves the price against the aggressor by the
// configured number of ticks. Requires the instrument's tick size;
// unknown instruments fill at the raw price.
func (p *PaperClient) applySlippage(order types.Order, price decimal.Decimal) decimal.Decimal {
	if p.cfg.SlippageTicks == 0 {
		return price
	}
	instrument, ok := p.instruments[order.Symbol]
	if !ok {
		return price
	}
	offset := instrument.TickSize.Mul(decimal.NewFromInt(int64(p.cfg.SlippageTicks)))
	if order.Side == types.SideBuy {
		return price.Add(offset)
	}
	return price.Sub(offset)
}

func (p *PaperClient) emit(event types.Event) {
	for _, handler := range p.handlers {
		handler(event)
	}
}

// Order returns the current state of the order.
func (p *PaperClient) Order(id types.OrderID) (types.Order, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	rec, ok := p.records[id]
	if !ok {
		return types.Order{}, fmt.Errorf("%w: %s", types.ErrOrderNotFound, id)
	}
	return rec.order, nil
}

// Orders returns every order submitted by the strategy.
func (p *PaperClient) Orders(strategyID types.StrategyID) map[types.OrderID]types.Order {
	return p.ordersWhere(strategyID, func(types.Order) bool { return true })
}

// OrdersActive returns the strategy's working orders.
func (p *PaperClient) OrdersActive(strategyID types.StrategyID) map[types.OrderID]types.Order {
	return p.ordersWhere(strategyID, func(o types.Order) bool { return o.Status == types.OrderStatusWorking })
}

// OrdersCompleted returns the strategy's orders in a final state.
func (p *PaperClient) OrdersCompleted(strategyID types.StrategyID) map[types.OrderID]types.Order {
	return p.ordersWhere(strategyID, func(o types.Order) bool { return o.Status.IsFinal() })
}

func (p *PaperClient) ordersWhere(strategyID types.StrategyID, keep func(types.Order) bool) map[types.OrderID]types.Order {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[types.OrderID]types.Order)
	for id, rec := range p.records {
		if rec.strategyID == strategyID && keep(rec.order) {
			out[id] = rec.order
		}
	}
	return out
}

// IsOrderExists reports whether the order id is known.
func (p *PaperClient) IsOrderExists(id types.OrderID) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.records[id]
	return ok
}

// IsOrderActive reports whether the order is working.
func (p *PaperClient) IsOrderActive(id types.OrderID) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	rec, ok := p.records[id]
	return ok && rec.order.Status == types.OrderStatusWorking
}

// IsOrderComplete reports whether the order is in a final state.
func (p *PaperClient) IsOrderComplete(id types.OrderID) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	rec, ok := p.records[id]
	return ok && rec.order.Status.IsFinal()
}

// PositionIDFor returns the position id the order was submitted
// against.
func (p *PaperClient) PositionIDFor(id types.OrderID) (types.PositionID, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	rec, ok := p.records[id]
	if !ok {
		return "", false
	}
	return rec.positionID, true
}

// Account returns the simulated account state.
func (p *PaperClient) Account() (types.Account, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.account, nil
}

// Reset clears all orders and restores the initial account, keeping
// registered handlers and instruments.
func (p *PaperClient) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = make(map[types.OrderID]*orderRecord)
	p.lastPrice = make(map[types.Symbol]decimal.Decimal)
	p.account = types.Account{
		Currency:    p.cfg.Currency,
		CashBalance: p.cfg.InitialBalance,
		FreeEquity:  p.cfg.InitialBalance,
	}
	p.limiter = rate.NewLimiter(rate.Limit(p.cfg.RequestsPerSecond), p.cfg.RequestsPerSecond)
}
