package backtest

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradecore/internal/policy"
)

var testStart = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func flatBars(count int, price float64) []Bar {
	bars := make([]Bar, count)
	date := testStart
	for i := range bars {
		bars[i] = Bar{Date: date, Open: price, High: price, Low: price, Close: price, Volume: 1e6}
		date = date.Add(24 * time.Hour)
	}
	return bars
}

func TestRun_ZeroSignalsStaysFlat(t *testing.T) {
	engine, err := NewEngine(100000, nil)
	require.NoError(t, err)

	result, err := engine.Run(flatBars(100, 50), nil)
	require.NoError(t, err)

	require.Len(t, result.EquityCurve, 100)
	for _, point := range result.EquityCurve {
		assert.Equal(t, 100000.0, point.Equity)
		assert.Equal(t, 100000.0, point.Cash)
		assert.Equal(t, 0.0, point.Invested)
	}

	assert.Empty(t, result.Trades)
	assert.Equal(t, 100000.0, result.FinalEquity)

	metrics := result.Metrics
	assert.Equal(t, 0.0, metrics.TotalReturn)
	assert.Equal(t, 0.0, metrics.SharpeRatio)
	assert.Equal(t, 0.0, metrics.SortinoRatio)
	assert.Equal(t, 0.0, metrics.MaxDrawdown)
	assert.Equal(t, 0.0, metrics.WinRate)
	assert.Equal(t, 0.0, metrics.ProfitFactor)
	assert.Equal(t, 0, metrics.TradeCount)
}

func TestRun_RejectsLookAheadSignal(t *testing.T) {
	engine, err := NewEngine(100000, nil)
	require.NoError(t, err)

	bars := flatBars(10, 50)
	signals := []Signal{{Date: testStart.AddDate(0, 0, 30), Side: SignalBuy, Confidence: 0.8}}

	_, err = engine.Run(bars, signals)
	require.Error(t, err)
}

func TestRun_RoundTripTrade(t *testing.T) {
	engine, err := NewEngine(100000, nil)
	require.NoError(t, err)

	bars := flatBars(20, 100)
	// 让后半段价格翻倍，买入后卖出必然盈利。
	for i := 10; i < 20; i++ {
		bars[i].Open = 200
		bars[i].High = 200
		bars[i].Low = 200
		bars[i].Close = 200
	}

	signals := []Signal{
		{Date: bars[2].Date, Side: SignalBuy, Confidence: 1.0},
		{Date: bars[15].Date, Side: SignalSell},
	}

	result, err := engine.Run(bars, signals)
	require.NoError(t, err)

	require.Len(t, result.Trades, 1)
	trade := result.Trades[0]
	assert.Equal(t, bars[2].Date, trade.EntryDate)
	assert.Equal(t, bars[15].Date, trade.ExitDate)
	assert.Positive(t, trade.PnL)
	assert.Positive(t, trade.Quantity)

	assert.Greater(t, result.FinalEquity, result.InitialCapital)
	assert.Equal(t, 1.0, result.Metrics.WinRate)
	assert.Equal(t, policy.MetricCap, result.Metrics.ProfitFactor)
}

func TestRun_BuyRejectedWithoutCash(t *testing.T) {
	engine, err := NewEngine(1000, nil)
	require.NoError(t, err)

	bars := flatBars(10, 2000) // one share costs more than total capital
	signals := []Signal{{Date: bars[1].Date, Side: SignalBuy, Confidence: 1.0}}

	result, err := engine.Run(bars, signals)
	require.NoError(t, err)

	assert.Empty(t, result.Trades)
	assert.Equal(t, 1000.0, result.FinalEquity)
}

func TestRun_SellWithoutPositionIgnored(t *testing.T) {
	engine, err := NewEngine(100000, nil)
	require.NoError(t, err)

	bars := flatBars(10, 50)
	signals := []Signal{{Date: bars[3].Date, Side: SignalSell}}

	result, err := engine.Run(bars, signals)
	require.NoError(t, err)

	assert.Empty(t, result.Trades)
	assert.NotEmpty(t, result.Notes)
}

// 相同种子的合成序列与回测结果必须完全可复现。
func TestRun_Deterministic(t *testing.T) {
	runOnce := func() Result {
		engine, err := NewEngine(100000, nil)
		require.NoError(t, err)

		bars := GenerateBars(99, 120, 100, testStart)
		signals := GenerateSignals(99, bars, 7)

		result, err := engine.Run(bars, signals)
		require.NoError(t, err)
		return result
	}

	first := runOnce()
	second := runOnce()

	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, firstJSON, secondJSON)
}

func TestRun_EquityAccounting(t *testing.T) {
	engine, err := NewEngine(100000, nil)
	require.NoError(t, err)

	bars := flatBars(10, 100)
	signals := []Signal{{Date: bars[1].Date, Side: SignalBuy, Confidence: 1.0}}

	result, err := engine.Run(bars, signals)
	require.NoError(t, err)

	for _, point := range result.EquityCurve {
		assert.InDelta(t, point.Equity, point.Cash+point.Invested, 1e-9)
	}
}

func TestRun_RequiresBars(t *testing.T) {
	engine, err := NewEngine(100000, nil)
	require.NoError(t, err)

	_, err = engine.Run(nil, nil)
	require.Error(t, err)
}

func TestNewEngine_RequiresCapital(t *testing.T) {
	_, err := NewEngine(0, nil)
	require.Error(t, err)

	_, err = NewEngine(-5, nil)
	require.Error(t, err)
}
