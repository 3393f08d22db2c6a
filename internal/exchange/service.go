package exchange

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// MarketDataService 聚合多周期K线获取。
type MarketDataService struct {
	client *Client
	logger *zap.Logger
}

// NewMarketDataService 创建市场数据服务。
func NewMarketDataService(client *Client, logger *zap.Logger) *MarketDataService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MarketDataService{
		client: client,
		logger: logger,
	}
}

// GetSnapshot 并发拉取日线与周线，组装市场数据快照。
func (s *MarketDataService) GetSnapshot(ctx context.Context, req SnapshotRequest) (MarketSnapshot, error) {
	defaultReq := DefaultSnapshotRequest()
	if req.LimitDaily <= 0 {
		req.LimitDaily = defaultReq.LimitDaily
	}
	if req.LimitWeekly <= 0 {
		req.LimitWeekly = defaultReq.LimitWeekly
	}

	var (
		daily  []Candle
		weekly []Candle
	)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		data, err := s.client.FetchCandles(groupCtx, Timeframe1d, int64(req.LimitDaily))
		if err != nil {
			return err
		}
		daily = data
		return nil
	})

	group.Go(func() error {
		data, err := s.client.FetchCandles(groupCtx, Timeframe1w, int64(req.LimitWeekly))
		if err != nil {
			return err
		}
		weekly = data
		return nil
	})

	if err := group.Wait(); err != nil {
		return MarketSnapshot{}, err
	}

	return MarketSnapshot{
		Ticker:      s.client.Symbol(),
		Daily:       daily,
		Weekly:      weekly,
		RetrievedAt: time.Now().UTC(),
	}, nil
}
