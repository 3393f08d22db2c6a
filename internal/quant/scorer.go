// Package quant 基于日线行情计算四个量化模型分数。
// 分数是决策流水线的入口信号：四个模型彼此独立打分，
// 综合分取算术平均，标准差用于度量模型分歧。
package quant

import (
	"context"
	"fmt"
	"math"
	"time"

	talib "github.com/markcheno/go-talib"
	"go.uber.org/zap"

	"tradecore/internal/exchange"
	"tradecore/internal/policy"
)

const minDailyCandles = 60

// ScoreSet 汇总一次量化打分结果。
type ScoreSet struct {
	Ticker           string    `json:"ticker"`
	GeneratedAt      time.Time `json:"generated_at"`
	Momentum         float64   `json:"momentum"`
	Trend            float64   `json:"trend"`
	Volatility       float64   `json:"volatility"`
	Volume           float64   `json:"volume"`
	Composite        float64   `json:"composite"`
	StdDev           float64   `json:"std_dev"`
	HighDisagreement bool      `json:"high_disagreement"`
	GapRisk          float64   `json:"gap_risk"`
}

// Values 按固定顺序返回四个模型分数。
func (s ScoreSet) Values() [4]float64 {
	return [4]float64{s.Momentum, s.Trend, s.Volatility, s.Volume}
}

// Scorer 根据市场快照计算量化分数。
type Scorer struct {
	logger *zap.Logger
}

// NewScorer 创建量化打分器。
func NewScorer(logger *zap.Logger) *Scorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scorer{logger: logger}
}

// Score 计算四个模型分数、综合分与分歧度。
func (s *Scorer) Score(ctx context.Context, snapshot exchange.MarketSnapshot) (ScoreSet, error) {
	if len(snapshot.Daily) < minDailyCandles {
		return ScoreSet{}, fmt.Errorf("quant: 日线数量不足，至少需要 %d 根，当前 %d", minDailyCandles, len(snapshot.Daily))
	}

	select {
	case <-ctx.Done():
		return ScoreSet{}, ctx.Err()
	default:
	}

	series := NewSeries(snapshot.Daily)

	momentum := momentumScore(series)
	trend := trendScore(series)
	volatility := volatilityScore(series)
	volume := volumeScore(series)

	values := []float64{momentum, trend, volatility, volume}
	composite := average(values)
	std := populationStdDev(values, composite)

	result := ScoreSet{
		Ticker:           snapshot.Ticker,
		GeneratedAt:      snapshot.RetrievedAt,
		Momentum:         momentum,
		Trend:            trend,
		Volatility:       volatility,
		Volume:           volume,
		Composite:        composite,
		StdDev:           std,
		HighDisagreement: std > policy.HighModelDisagreementThreshold,
		GapRisk:          gapRiskScore(series),
	}

	s.logger.Debug("量化打分完成",
		zap.String("ticker", snapshot.Ticker),
		zap.Float64("composite", composite),
		zap.Float64("std_dev", std),
		zap.Bool("high_disagreement", result.HighDisagreement),
	)

	return result, nil
}

// momentumScore 以 RSI-14 为基础，直接落在 [0,1]。
func momentumScore(series Series) float64 {
	rsi := talib.Rsi(series.Close, 14)
	return clamp01(Last(rsi) / 100)
}

// trendScore 用 EMA12 与 EMA26 的相对间距度量趋势，0.5 为无趋势。
func trendScore(series Series) float64 {
	ema12 := talib.Ema(series.Close, 12)
	ema26 := talib.Ema(series.Close, 26)

	fast := Last(ema12)
	slow := Last(ema26)
	spread := SafeDivide(fast-slow, slow)

	// tanh 压缩：±5% 的间距即接近满分/零分。
	return clamp01(0.5 + 0.5*math.Tanh(spread*20))
}

// volatilityScore 波动越低得分越高，ATR 相对值 5% 以上记零分。
func volatilityScore(series Series) float64 {
	atr := talib.Atr(series.High, series.Low, series.Close, 14)
	atrRel := SafeDivide(Last(atr), Last(series.Close))
	return clamp01(1 - atrRel/0.05)
}

// volumeScore 以当前成交量相对20日均量的比值打分，1 倍均量对应 0.5。
func volumeScore(series Series) float64 {
	avg20 := average(SliceTail(series.Volume, 20))
	ratio := SafeDivide(Last(series.Volume), avg20)
	return clamp01(ratio / 2)
}

// gapRiskScore 统计近60日隔夜跳空幅度，给出 [0,1] 的跳空风险分。
func gapRiskScore(series Series) float64 {
	window := 60
	if series.Len() < window+1 {
		window = series.Len() - 1
	}
	if window <= 0 {
		return 0
	}

	start := series.Len() - window
	var sum float64
	for i := start; i < series.Len(); i++ {
		prevClose := series.Close[i-1]
		if prevClose <= 0 {
			continue
		}
		gap := math.Abs(series.Open[i]-prevClose) / prevClose
		sum += gap
	}
	avgGap := sum / float64(window)

	// 平均跳空 2% 即视为满格风险。
	return clamp01(avgGap / 0.02)
}

func populationStdDev(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	variance := 0.0
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}
