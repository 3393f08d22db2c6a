package quant

import (
	"context"
	"math"
	"testing"
	"time"

	"tradecore/internal/exchange"
)

func syntheticSnapshot(count int, drift float64) exchange.MarketSnapshot {
	candles := make([]exchange.Candle, count)
	price := 100.0
	ts := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := range candles {
		open := price
		close := price * (1 + drift)
		candles[i] = exchange.Candle{
			Timestamp: ts,
			Open:      open,
			High:      math.Max(open, close) * 1.005,
			Low:       math.Min(open, close) * 0.995,
			Close:     close,
			Volume:    1e6,
		}
		price = close
		ts = ts.Add(24 * time.Hour)
	}
	return exchange.MarketSnapshot{
		Ticker:      "BTC/USDT",
		Daily:       candles,
		RetrievedAt: ts,
	}
}

func TestScore_RequiresEnoughHistory(t *testing.T) {
	scorer := NewScorer(nil)

	_, err := scorer.Score(context.Background(), syntheticSnapshot(30, 0.001))
	if err == nil {
		t.Fatal("expected error with insufficient candles")
	}
}

func TestScore_AllScoresInUnitRange(t *testing.T) {
	scorer := NewScorer(nil)

	scores, err := scorer.Score(context.Background(), syntheticSnapshot(120, 0.002))
	if err != nil {
		t.Fatalf("score failed: %v", err)
	}

	for i, v := range scores.Values() {
		if v < 0 || v > 1 {
			t.Errorf("score %d out of [0,1]: %f", i, v)
		}
	}
	if scores.Composite < 0 || scores.Composite > 1 {
		t.Errorf("composite out of range: %f", scores.Composite)
	}
	if scores.GapRisk < 0 || scores.GapRisk > 1 {
		t.Errorf("gap risk out of range: %f", scores.GapRisk)
	}
}

func TestScore_CompositeIsMeanOfModels(t *testing.T) {
	scorer := NewScorer(nil)

	scores, err := scorer.Score(context.Background(), syntheticSnapshot(120, 0.002))
	if err != nil {
		t.Fatalf("score failed: %v", err)
	}

	values := scores.Values()
	mean := (values[0] + values[1] + values[2] + values[3]) / 4
	if math.Abs(scores.Composite-mean) > 1e-9 {
		t.Errorf("composite %f does not match mean %f", scores.Composite, mean)
	}
}

func TestScore_DisagreementFlagTracksStdDev(t *testing.T) {
	scorer := NewScorer(nil)

	scores, err := scorer.Score(context.Background(), syntheticSnapshot(120, 0.002))
	if err != nil {
		t.Fatalf("score failed: %v", err)
	}

	if scores.HighDisagreement != (scores.StdDev > 0.50) {
		t.Errorf("flag %t inconsistent with std dev %f", scores.HighDisagreement, scores.StdDev)
	}
}

func TestScore_UptrendScoresAboveDowntrend(t *testing.T) {
	scorer := NewScorer(nil)

	up, err := scorer.Score(context.Background(), syntheticSnapshot(120, 0.004))
	if err != nil {
		t.Fatalf("uptrend score failed: %v", err)
	}
	down, err := scorer.Score(context.Background(), syntheticSnapshot(120, -0.004))
	if err != nil {
		t.Fatalf("downtrend score failed: %v", err)
	}

	if up.Momentum <= down.Momentum {
		t.Errorf("uptrend momentum %f must exceed downtrend %f", up.Momentum, down.Momentum)
	}
	if up.Trend <= down.Trend {
		t.Errorf("uptrend trend %f must exceed downtrend %f", up.Trend, down.Trend)
	}
}
