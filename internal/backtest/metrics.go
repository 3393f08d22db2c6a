package backtest

import (
	"math"

	"tradecore/internal/policy"
)

// Metrics 为回测绩效指标束。
// 无亏损且有盈利时，利润因子与 Sortino 以 policy.MetricCap 作为显式哨兵，
// 避免无穷大进入序列化与报表。
type Metrics struct {
	TotalReturn      float64 `json:"total_return"`
	AnnualizedReturn float64 `json:"annualized_return"`
	SharpeRatio      float64 `json:"sharpe_ratio"`
	SortinoRatio     float64 `json:"sortino_ratio"`
	MaxDrawdown      float64 `json:"max_drawdown"`
	WinRate          float64 `json:"win_rate"`
	ProfitFactor     float64 `json:"profit_factor"`
	AverageWin       float64 `json:"average_win"`
	AverageLoss      float64 `json:"average_loss"`
	BestTrade        float64 `json:"best_trade"`
	WorstTrade       float64 `json:"worst_trade"`
	MaxWinStreak     int     `json:"max_win_streak"`
	MaxLossStreak    int     `json:"max_loss_streak"`
	TradeCount       int     `json:"trade_count"`
}

func calculateMetrics(curve []EquityPoint, trades []Trade, initialCapital float64) Metrics {
	metrics := Metrics{TradeCount: len(trades)}
	if len(curve) == 0 || initialCapital <= 0 {
		return metrics
	}

	final := curve[len(curve)-1].Equity
	metrics.TotalReturn = final/initialCapital - 1

	// 年化采用几何复利，按 252 个交易日折算。
	days := len(curve)
	if days > 0 && final > 0 {
		metrics.AnnualizedReturn = math.Pow(final/initialCapital, float64(policy.TradingDaysPerYear)/float64(days)) - 1
	}

	returns := dailyReturns(curve)
	metrics.SharpeRatio = sharpeRatio(returns)
	metrics.SortinoRatio = sortinoRatio(returns)
	metrics.MaxDrawdown = maxDrawdown(curve)

	fillTradeStats(&metrics, trades)
	return metrics
}

func dailyReturns(curve []EquityPoint) []float64 {
	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev <= 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, curve[i].Equity/prev-1)
	}
	return returns
}

func sharpeRatio(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	mean := meanOf(returns)
	std := stdDevOf(returns, mean)
	if std == 0 {
		return 0
	}
	return (mean / std) * math.Sqrt(float64(policy.TradingDaysPerYear))
}

// sortinoRatio 只以下行波动为分母。
// 均值为正且无任何下行样本时返回 policy.MetricCap。
func sortinoRatio(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	mean := meanOf(returns)

	downside := 0.0
	for _, r := range returns {
		if r < 0 {
			downside += r * r
		}
	}
	downsideDev := math.Sqrt(downside / float64(len(returns)))
	if downsideDev == 0 {
		if mean > 0 {
			return policy.MetricCap
		}
		return 0
	}
	return (mean / downsideDev) * math.Sqrt(float64(policy.TradingDaysPerYear))
}

func maxDrawdown(curve []EquityPoint) float64 {
	peak := 0.0
	maxDD := 0.0
	for _, point := range curve {
		if point.Equity > peak {
			peak = point.Equity
		}
		if peak <= 0 {
			continue
		}
		dd := (peak - point.Equity) / peak
		if dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

func fillTradeStats(metrics *Metrics, trades []Trade) {
	if len(trades) == 0 {
		return
	}

	var grossWin, grossLoss float64
	var winCount, lossCount int
	var winStreak, lossStreak int
	best := trades[0].PnL
	worst := trades[0].PnL

	for _, trade := range trades {
		if trade.PnL > best {
			best = trade.PnL
		}
		if trade.PnL < worst {
			worst = trade.PnL
		}

		if trade.PnL > 0 {
			grossWin += trade.PnL
			winCount++
			winStreak++
			lossStreak = 0
		} else if trade.PnL < 0 {
			grossLoss += -trade.PnL
			lossCount++
			lossStreak++
			winStreak = 0
		} else {
			winStreak = 0
			lossStreak = 0
		}

		if winStreak > metrics.MaxWinStreak {
			metrics.MaxWinStreak = winStreak
		}
		if lossStreak > metrics.MaxLossStreak {
			metrics.MaxLossStreak = lossStreak
		}
	}

	metrics.BestTrade = best
	metrics.WorstTrade = worst
	metrics.WinRate = float64(winCount) / float64(len(trades))

	switch {
	case grossLoss > 0:
		metrics.ProfitFactor = grossWin / grossLoss
		if metrics.ProfitFactor > policy.MetricCap {
			metrics.ProfitFactor = policy.MetricCap
		}
	case grossWin > 0:
		metrics.ProfitFactor = policy.MetricCap
	default:
		metrics.ProfitFactor = 0
	}

	if winCount > 0 {
		metrics.AverageWin = grossWin / float64(winCount)
	}
	if lossCount > 0 {
		metrics.AverageLoss = -grossLoss / float64(lossCount)
	}
}

func meanOf(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}

func stdDevOf(values []float64, mean float64) float64 {
	if len(values) <= 1 {
		return 0
	}
	variance := 0.0
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	variance /= float64(len(values) - 1)
	return math.Sqrt(variance)
}
