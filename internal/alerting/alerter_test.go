package alerting

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tathienbao/strategy-engine/internal/types"
)

func TestFormatFields(t *testing.T) {
	got := FormatFields("symbol", "EUR/USD.SIM", "price", "1.2000")
	want := "• symbol: EUR/USD.SIM\n• price: 1.2000"
	if got != want {
		t.Errorf("FormatFields() = %q, want %q", got, want)
	}
}

func TestFormatFields_Empty(t *testing.T) {
	if got := FormatFields(); got != "" {
		t.Errorf("FormatFields() = %q, want empty", got)
	}
}

func TestFormatFields_SkipsNonStringKeys(t *testing.T) {
	got := FormatFields(42, "oops", "key", "value")
	if got != "• key: value" {
		t.Errorf("FormatFields() = %q, want key/value only", got)
	}
}

func TestSeverityStrings(t *testing.T) {
	cases := map[Severity]string{
		SeverityInfo:     "INFO",
		SeverityWarning:  "WARNING",
		SeverityHigh:     "HIGH",
		SeverityCritical: "CRITICAL",
	}
	for severity, want := range cases {
		if got := severity.String(); got != want {
			t.Errorf("Severity(%d).String() = %q, want %q", severity, got, want)
		}
	}
}

func TestMultiAlerter_FansOut(t *testing.T) {
	first := NewMockAlerter()
	second := NewMockAlerter()
	multi := NewMultiAlerter(nil, first, second)

	err := multi.Alert(context.Background(), SeverityWarning, "test", "k", "v")
	if err != nil {
		t.Fatalf("Alert() error = %v", err)
	}

	if len(first.Alerts()) != 1 || len(second.Alerts()) != 1 {
		t.Errorf("alerts = %d/%d, want 1/1", len(first.Alerts()), len(second.Alerts()))
	}
	if first.Alerts()[0].Severity != SeverityWarning {
		t.Errorf("severity = %s, want WARNING", first.Alerts()[0].Severity)
	}
}

func TestMultiAlerter_JoinsFailures(t *testing.T) {
	failing := NewMockAlerter()
	wantErr := errors.New("channel down")
	failing.FailWith(wantErr)
	healthy := NewMockAlerter()
	multi := NewMultiAlerter(nil, failing, healthy)

	err := multi.Alert(context.Background(), SeverityInfo, "test")
	if !errors.Is(err, wantErr) {
		t.Fatalf("Alert() error = %v, want channel down", err)
	}
	// The healthy channel still received the alert.
	if len(healthy.Alerts()) != 1 {
		t.Errorf("healthy alerts = %d, want 1", len(healthy.Alerts()))
	}
}

// plainAlerter supports alerts only, not run summaries.
type plainAlerter struct{}

func (plainAlerter) Name() string { return "plain" }
func (plainAlerter) Alert(context.Context, Severity, string, ...any) error {
	return nil
}

func TestMultiAlerter_SendsSummaryToCapableChannels(t *testing.T) {
	mock := NewMockAlerter()
	multi := NewMultiAlerter(nil, plainAlerter{}, mock)

	summary := RunSummary{Strategy: "EMACross(10,20)", TotalTrades: 3}
	if err := multi.SendRunSummary(context.Background(), summary); err != nil {
		t.Fatalf("SendRunSummary() error = %v", err)
	}

	summaries := mock.Summaries()
	if len(summaries) != 1 {
		t.Fatalf("summaries = %d, want 1", len(summaries))
	}
	if summaries[0].Strategy != "EMACross(10,20)" || summaries[0].TotalTrades != 3 {
		t.Errorf("summary = %+v", summaries[0])
	}
}

func TestMultiAlerter_JoinsSummaryFailures(t *testing.T) {
	failing := NewMockAlerter()
	wantErr := errors.New("channel down")
	failing.FailWith(wantErr)
	multi := NewMultiAlerter(nil, failing)

	err := multi.SendRunSummary(context.Background(), RunSummary{})
	if !errors.Is(err, wantErr) {
		t.Fatalf("SendRunSummary() error = %v, want channel down", err)
	}
}

func TestMultiAlerter_NoChannels(t *testing.T) {
	multi := NewMultiAlerter(nil)
	if err := multi.Alert(context.Background(), SeverityInfo, "test"); err != nil {
		t.Errorf("Alert() error = %v, want nil", err)
	}
}

func TestNotifier_AlertsOnReject(t *testing.T) {
	mock := NewMockAlerter()
	notifier := NewNotifier(mock)

	notifier.HandleEvent(types.OrderRejected{
		BaseEvent: types.NewBaseEvent(time.Now()),
		OrderID:   "O-1",
		Reason:    "insufficient margin",
	})

	alerts := mock.Alerts()
	if len(alerts) != 1 {
		t.Fatalf("alerts = %d, want 1", len(alerts))
	}
	if alerts[0].Severity != SeverityHigh {
		t.Errorf("severity = %s, want HIGH", alerts[0].Severity)
	}
	if alerts[0].Message != "order rejected" {
		t.Errorf("message = %q", alerts[0].Message)
	}
}

func TestNotifier_AlertsOnFill(t *testing.T) {
	mock := NewMockAlerter()
	notifier := NewNotifier(mock)

	notifier.HandleEvent(types.OrderFilled{
		BaseEvent: types.NewBaseEvent(time.Now()),
		OrderID:   "O-1",
		Symbol:    types.Symbol{Code: "EUR/USD", Venue: "SIM"},
		Side:      types.SideBuy,
		FillPrice: decimal.RequireFromString("1.2001"),
		FilledQty: decimal.NewFromInt(100000),
	})

	alerts := mock.Alerts()
	if len(alerts) != 1 {
		t.Fatalf("alerts = %d, want 1", len(alerts))
	}
	if alerts[0].Severity != SeverityInfo {
		t.Errorf("severity = %s, want INFO", alerts[0].Severity)
	}
}

func TestNotifier_IgnoresOtherEvents(t *testing.T) {
	mock := NewMockAlerter()
	notifier := NewNotifier(mock)

	notifier.HandleEvent(types.OrderCancelled{
		BaseEvent: types.NewBaseEvent(time.Now()),
		OrderID:   "O-1",
	})

	if len(mock.Alerts()) != 0 {
		t.Errorf("alerts = %d, want 0", len(mock.Alerts()))
	}
}

func TestRunSummaryFormat(t *testing.T) {
	summary := RunSummary{
		Strategy:      "EMACross(10,20)",
		Symbol:        "EUR/USD.SIM",
		Start:         time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC),
		End:           time.Date(2025, 3, 14, 17, 0, 0, 0, time.UTC),
		StartBalance:  decimal.NewFromInt(100000),
		EndBalance:    decimal.NewFromInt(101500),
		TotalReturn:   decimal.RequireFromString("0.015"),
		MaxDrawdown:   decimal.RequireFromString("0.004"),
		TotalTrades:   12,
		WinningTrades: 7,
		LosingTrades:  5,
		WinRate:       decimal.RequireFromString("0.5833"),
	}

	text := formatRunSummaryHTML(summary)
	for _, want := range []string{"EMACross(10,20)", "EUR/USD.SIM", "1.50%", "0.40%", "Wins: 7 | Losses: 5"} {
		if !strings.Contains(text, want) {
			t.Errorf("summary missing %q:\n%s", want, text)
		}
	}
}
