package backtest

import (
	"math"
	"math/rand"
	"time"
)

// GenerateBars 以给定种子生成确定性的合成日线序列。
// 同一种子与参数必然产出字节一致的序列，供回测复现与测试使用。
func GenerateBars(seed int64, count int, startPrice float64, start time.Time) []Bar {
	rng := rand.New(rand.NewSource(seed))
	bars := make([]Bar, 0, count)

	price := startPrice
	date := start.UTC().Truncate(24 * time.Hour)
	for i := 0; i < count; i++ {
		// 日收益取轻微正漂移的正态扰动。
		ret := rng.NormFloat64()*0.015 + 0.0003
		open := price
		close := price * (1 + ret)
		high := math.Max(open, close) * (1 + rng.Float64()*0.01)
		low := math.Min(open, close) * (1 - rng.Float64()*0.01)
		volume := 1e6 * (0.5 + rng.Float64())

		bars = append(bars, Bar{
			Date:   date,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  close,
			Volume: volume,
		})

		price = close
		date = date.Add(24 * time.Hour)
	}
	return bars
}

// GenerateSignals 以给定种子在行情序列上生成交替的买卖信号。
// interval 为信号之间的最小间隔天数。
func GenerateSignals(seed int64, bars []Bar, interval int) []Signal {
	if interval <= 0 {
		interval = 5
	}
	rng := rand.New(rand.NewSource(seed))
	signals := make([]Signal, 0)

	holding := false
	for i := interval; i < len(bars); i += interval {
		side := SignalBuy
		if holding {
			side = SignalSell
		}
		signals = append(signals, Signal{
			Date:       bars[i].Date,
			Side:       side,
			Confidence: 0.5 + rng.Float64()*0.5,
			StdDev:     rng.Float64() * 0.4,
		})
		holding = !holding
	}
	return signals
}
