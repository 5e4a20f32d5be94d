package backtest

import (
	"math"

	"github.com/shopspring/decimal"
)

// Metrics computes performance statistics from a backtest result.
type Metrics struct {
	tradePnLs    []decimal.Decimal
	equityCurve  []EquityPoint
	riskFreeRate decimal.Decimal // annual, 0.05 = 5%
}

// NewMetrics creates a metrics calculator over the result.
func NewMetrics(result *Result, riskFreeRate decimal.Decimal) *Metrics {
	return &Metrics{
		tradePnLs:    result.TradePnLs,
		equityCurve:  result.EquityCurve,
		riskFreeRate: riskFreeRate,
	}
}

// SharpeRatio calculates the annualized Sharpe ratio from per-bar
// equity returns, annualized over 252 trading days.
func (m *Metrics) SharpeRatio() decimal.Decimal {
	returns := m.calculateReturns()
	if len(returns) < 2 {
		return decimal.Zero
	}

	meanReturn := mean(returns)
	stdDev := standardDeviation(returns)
	if stdDev.IsZero() {
		return decimal.Zero
	}

	dailyRf := m.riskFreeRate.Div(decimal.NewFromInt(252))
	excessReturn := meanReturn.Sub(dailyRf)

	sqrt252 := decimal.NewFromFloat(math.Sqrt(252))
	return excessReturn.Div(stdDev).Mul(sqrt252)
}

// MaxDrawdown returns the maximum drawdown as a ratio.
func (m *Metrics) MaxDrawdown() decimal.Decimal {
	if len(m.equityCurve) == 0 {
		return decimal.Zero
	}

	hwm := m.equityCurve[0].Equity
	maxDD := decimal.Zero

	for _, point := range m.equityCurve {
		if point.Equity.GreaterThan(hwm) {
			hwm = point.Equity
		}
		if hwm.IsPositive() {
			dd := hwm.Sub(point.Equity).Div(hwm)
			if dd.GreaterThan(maxDD) {
				maxDD = dd
			}
		}
	}

	return maxDD
}

// WinRate returns the win rate as a ratio.
func (m *Metrics) WinRate() decimal.Decimal {
	if len(m.tradePnLs) == 0 {
		return decimal.Zero
	}

	wins := 0
	for _, pnl := range m.tradePnLs {
		if pnl.IsPositive() {
			wins++
		}
	}
	return decimal.NewFromInt(int64(wins)).Div(decimal.NewFromInt(int64(len(m.tradePnLs))))
}

// ProfitFactor calculates gross profit over gross loss.
func (m *Metrics) ProfitFactor() decimal.Decimal {
	grossProfit := decimal.Zero
	grossLoss := decimal.Zero

	for _, pnl := range m.tradePnLs {
		if pnl.IsPositive() {
			grossProfit = grossProfit.Add(pnl)
		} else {
			grossLoss = grossLoss.Add(pnl.Abs())
		}
	}

	if grossLoss.IsZero() {
		return decimal.Zero
	}
	return grossProfit.Div(grossLoss)
}

// AverageWin returns the average winning trade PnL.
func (m *Metrics) AverageWin() decimal.Decimal {
	total := decimal.Zero
	count := 0
	for _, pnl := range m.tradePnLs {
		if pnl.IsPositive() {
			total = total.Add(pnl)
			count++
		}
	}
	if count == 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(int64(count)))
}

// AverageLoss returns the average losing trade PnL as a negative
// number.
func (m *Metrics) AverageLoss() decimal.Decimal {
	total := decimal.Zero
	count := 0
	for _, pnl := range m.tradePnLs {
		if pnl.IsNegative() {
			total = total.Add(pnl)
			count++
		}
	}
	if count == 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(int64(count)))
}

// calculateReturns derives per-point returns from the equity curve.
func (m *Metrics) calculateReturns() []decimal.Decimal {
	if len(m.equityCurve) < 2 {
		return nil
	}
	returns := make([]decimal.Decimal, 0, len(m.equityCurve)-1)
	for i := 1; i < len(m.equityCurve); i++ {
		prev := m.equityCurve[i-1].Equity
		if prev.IsZero() {
			continue
		}
		returns = append(returns, m.equityCurve[i].Equity.Sub(prev).Div(prev))
	}
	return returns
}

func mean(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total.Div(decimal.NewFromInt(int64(len(values))))
}

func standardDeviation(values []decimal.Decimal) decimal.Decimal {
	if len(values) < 2 {
		return decimal.Zero
	}
	avg := mean(values)
	sumSq := decimal.Zero
	for _, v := range values {
		diff := v.Sub(avg)
		sumSq = sumSq.Add(diff.Mul(diff))
	}
	variance := sumSq.Div(decimal.NewFromInt(int64(len(values) - 1)))
	return decimal.NewFromFloat(math.Sqrt(variance.InexactFloat64()))
}
