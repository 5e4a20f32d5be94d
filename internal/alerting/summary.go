package alerting

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RunSummary is a compact summary of a completed backtest or trading
// session, suitable for a notification channel.
type RunSummary struct {
	Strategy      string
	Symbol        string
	Start         time.Time
	End           time.Time
	StartBalance  decimal.Decimal
	EndBalance    decimal.Decimal
	TotalReturn   decimal.Decimal // ratio
	MaxDrawdown   decimal.Decimal // ratio
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       decimal.Decimal // ratio
}

func formatRunSummaryHTML(s RunSummary) string {
	plEmoji := "📈"
	if s.EndBalance.LessThan(s.StartBalance) {
		plEmoji = "📉"
	}

	hundred := decimal.NewFromInt(100)
	return fmt.Sprintf(`%s <b>Run Summary: %s</b>
<b>Symbol:</b> %s
<b>Window:</b> %s — %s

<b>Performance:</b>
• Start Balance: $%s
• End Balance: $%s
• Return: %s%%
• Max Drawdown: %s%%

<b>Trades:</b>
• Total: %d
• Wins: %d | Losses: %d
• Win Rate: %s%%`,
		plEmoji,
		s.Strategy,
		s.Symbol,
		s.Start.Format("2006-01-02 15:04"),
		s.End.Format("2006-01-02 15:04"),
		s.StartBalance.StringFixed(2),
		s.EndBalance.StringFixed(2),
		s.TotalReturn.Mul(hundred).StringFixed(2),
		s.MaxDrawdown.Mul(hundred).StringFixed(2),
		s.TotalTrades,
		s.WinningTrades,
		s.LosingTrades,
		s.WinRate.Mul(hundred).StringFixed(1),
	)
}
