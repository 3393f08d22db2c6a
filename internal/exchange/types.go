package exchange

import "time"

const (
	// Timeframe1d 为决策与回测使用的主周期。
	Timeframe1d = "1d"
	// Timeframe1w 为趋势背景周期。
	Timeframe1w = "1w"
)

// Candle 代表单根K线。
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// MarketSnapshot 聚合单个标的的日线与周线数据。
type MarketSnapshot struct {
	Ticker      string
	Daily       []Candle
	Weekly      []Candle
	RetrievedAt time.Time
}

// SnapshotRequest 控制一次快照采集的参数。
type SnapshotRequest struct {
	LimitDaily  int
	LimitWeekly int
}

// DefaultSnapshotRequest 返回默认快照参数。
func DefaultSnapshotRequest() SnapshotRequest {
	return SnapshotRequest{
		LimitDaily:  252,
		LimitWeekly: 104,
	}
}

// LatestClose 返回快照中最近的日线收盘价，缺数据时为 0。
func (s MarketSnapshot) LatestClose() float64 {
	if len(s.Daily) > 0 {
		return s.Daily[len(s.Daily)-1].Close
	}
	if len(s.Weekly) > 0 {
		return s.Weekly[len(s.Weekly)-1].Close
	}
	return 0
}

// AverageDailyVolume 返回最近 window 根日线的平均成交量。
func (s MarketSnapshot) AverageDailyVolume(window int) float64 {
	if window <= 0 || len(s.Daily) == 0 {
		return 0
	}
	start := len(s.Daily) - window
	if start < 0 {
		start = 0
	}
	sum := 0.0
	count := 0
	for _, c := range s.Daily[start:] {
		sum += c.Volume
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
