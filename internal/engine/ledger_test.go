package engine

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/tathienbao/strategy-engine/internal/types"
)

func entryOrder(t *testing.T, eng *Engine) types.Order {
	t.Helper()
	order, err := eng.OrderFactory().Market(testSymbol, types.SideBuy, decimal100k(), types.PurposeEntry)
	if err != nil {
		t.Fatalf("Market() error = %v", err)
	}
	return order
}

func TestLedger_RegisterRejectsDuplicateAcrossRegisters(t *testing.T) {
	eng, _, _, _ := newTestEngine(t)
	order := entryOrder(t, eng)

	if err := eng.RegisterEntryOrder(order, "P-1"); err != nil {
		t.Fatalf("RegisterEntryOrder() error = %v", err)
	}
	if err := eng.RegisterStopLossOrder(order); !errors.Is(err, types.ErrDuplicateOrder) {
		t.Fatalf("RegisterStopLossOrder() error = %v, want ErrDuplicateOrder", err)
	}
	if err := eng.RegisterEntryOrder(order, "P-2"); !errors.Is(err, types.ErrDuplicateOrder) {
		t.Fatalf("re-register error = %v, want ErrDuplicateOrder", err)
	}
}

func TestLedger_SubmitEntryOrderRegistersAndSends(t *testing.T) {
	eng, _, exec, _ := newTestEngine(t)
	order := entryOrder(t, eng)

	if err := eng.SubmitEntryOrder(order, "P-1"); err != nil {
		t.Fatalf("SubmitEntryOrder() error = %v", err)
	}

	if _, ok := eng.EntryOrders()[order.ID]; !ok {
		t.Error("order missing from entry register")
	}
	if len(exec.commands) != 1 {
		t.Fatalf("commands = %d, want 1", len(exec.commands))
	}
	submit, ok := exec.commands[0].(types.SubmitOrder)
	if !ok {
		t.Fatalf("command = %T, want SubmitOrder", exec.commands[0])
	}
	if submit.PositionID != "P-1" || submit.StrategyID != "EMA-001" {
		t.Errorf("tags = %s/%s, want P-1/EMA-001", submit.PositionID, submit.StrategyID)
	}
}

func TestLedger_SubmitAtomicOrderRegistersAllLegs(t *testing.T) {
	eng, _, exec, _ := newTestEngine(t)

	takeProfit := decimal.RequireFromString("1.2100")
	atomic, err := eng.OrderFactory().Atomic(testSymbol, types.SideBuy, decimal100k(),
		decimal.RequireFromString("1.1900"), &takeProfit)
	if err != nil {
		t.Fatalf("Atomic() error = %v", err)
	}

	if err := eng.SubmitAtomicOrder(atomic, "P-1"); err != nil {
		t.Fatalf("SubmitAtomicOrder() error = %v", err)
	}

	if _, ok := eng.EntryOrders()[atomic.Entry.ID]; !ok {
		t.Error("entry missing from register")
	}
	if _, ok := eng.StopLossOrders()[atomic.StopLoss.ID]; !ok {
		t.Error("stop-loss missing from register")
	}
	if _, ok := eng.TakeProfitOrders()[atomic.TakeProfit.ID]; !ok {
		t.Error("take-profit missing from register")
	}
	children := eng.AtomicOrderIDs()[atomic.Entry.ID]
	if len(children) != 2 {
		t.Errorf("atomic children = %d, want 2", len(children))
	}
	if len(exec.commands) != 1 {
		t.Errorf("commands = %d, want 1", len(exec.commands))
	}
}

func TestLedger_AtomicOrderSideInvariant(t *testing.T) {
	eng, _, exec, _ := newTestEngine(t)

	entry, _ := eng.OrderFactory().Market(testSymbol, types.SideBuy, decimal100k(), types.PurposeEntry)
	badStop, _ := eng.OrderFactory().StopMarket(testSymbol, types.SideBuy, decimal100k(),
		decimal.RequireFromString("1.1900"), types.PurposeStopLoss, types.TIFGTC, timeZero())

	err := eng.SubmitAtomicOrder(types.AtomicOrder{Entry: entry, StopLoss: badStop}, "P-1")
	if !errors.Is(err, types.ErrAtomicOrderSides) {
		t.Fatalf("SubmitAtomicOrder() error = %v, want ErrAtomicOrderSides", err)
	}
	if len(exec.commands) != 0 {
		t.Errorf("commands = %d, want 0", len(exec.commands))
	}
}

func TestLedger_ModifyCoalescesWhileInFlight(t *testing.T) {
	eng, _, exec, _ := newTestEngine(t)

	order, err := eng.OrderFactory().StopMarket(testSymbol, types.SideSell, decimal100k(),
		decimal.RequireFromString("1.1990"), types.PurposeStopLoss, types.TIFGTC, timeZero())
	if err != nil {
		t.Fatalf("StopMarket() error = %v", err)
	}

	if err := eng.ModifyOrder(order, decimal.RequireFromString("1.2000")); err != nil {
		t.Fatalf("first ModifyOrder() error = %v", err)
	}
	if err := eng.ModifyOrder(order, decimal.RequireFromString("1.2005")); err != nil {
		t.Fatalf("second ModifyOrder() error = %v", err)
	}

	// Only the first modify went to the venue; the second is buffered.
	if len(exec.commands) != 1 {
		t.Fatalf("commands = %d, want 1", len(exec.commands))
	}
	buffered := eng.BufferedModifies()[order.ID]
	if !buffered.ModifiedPrice.Equal(decimal.RequireFromString("1.2005")) {
		t.Errorf("buffered price = %s, want 1.2005", buffered.ModifiedPrice)
	}
}

func TestLedger_CancelAllOrdersIsDeterministic(t *testing.T) {
	eng, _, exec, _ := newTestEngine(t)

	exec.active["O-B"] = types.Order{ID: "O-B", Symbol: testSymbol}
	exec.active["O-A"] = types.Order{ID: "O-A", Symbol: testSymbol}
	exec.active["O-C"] = types.Order{ID: "O-C", Symbol: testSymbol}

	if err := eng.CancelAllOrders("test"); err != nil {
		t.Fatalf("CancelAllOrders() error = %v", err)
	}

	want := []types.OrderID{"O-A", "O-B", "O-C"}
	if len(exec.commands) != len(want) {
		t.Fatalf("commands = %d, want %d", len(exec.commands), len(want))
	}
	for i, cmd := range exec.commands {
		cancel := cmd.(types.CancelOrder)
		if cancel.Order.ID != want[i] {
			t.Errorf("cancel %d = %s, want %s", i, cancel.Order.ID, want[i])
		}
	}
}

func TestLedger_FlattenPositionSubmitsOppositeMarketOrder(t *testing.T) {
	eng, _, exec, pf := newTestEngine(t)

	pf.positions["P-1"] = types.Position{
		ID: "P-1", Symbol: testSymbol,
		MarketPosition: types.MarketPositionShort,
		Quantity:       decimal100k(),
	}

	if err := eng.FlattenPosition("P-1"); err != nil {
		t.Fatalf("FlattenPosition() error = %v", err)
	}

	submit := exec.commands[0].(types.SubmitOrder)
	if submit.Order.Side != types.SideBuy {
		t.Errorf("flatten side = %s, want BUY", submit.Order.Side)
	}
	if submit.Order.Purpose != types.PurposeExit {
		t.Errorf("purpose = %s, want EXIT", submit.Order.Purpose)
	}
	if submit.Order.Type != types.OrderTypeMarket {
		t.Errorf("type = %s, want MARKET", submit.Order.Type)
	}
}

func TestLedger_FlattenFlatPositionIsNoOp(t *testing.T) {
	eng, _, exec, pf := newTestEngine(t)

	pf.positions["P-1"] = types.Position{ID: "P-1", Symbol: testSymbol}

	if err := eng.FlattenPosition("P-1"); err != nil {
		t.Fatalf("FlattenPosition() error = %v", err)
	}
	if len(exec.commands) != 0 {
		t.Errorf("commands = %d, want 0", len(exec.commands))
	}
}

func TestLedger_CommandsSuppressedWithoutExecutionClient(t *testing.T) {
	eng, _, _, _ := newTestEngine(t)

	eng.RegisterExecutionClient(nil)
	order := entryOrder(t, eng)

	// No client: logged and suppressed, never an error.
	if err := eng.SubmitOrder(order, "P-1"); err != nil {
		t.Fatalf("SubmitOrder() error = %v, want nil (suppressed)", err)
	}
}
