package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tradecore/internal/ai"
	"tradecore/internal/arbiter"
	"tradecore/internal/config"
	"tradecore/internal/exchange"
	"tradecore/internal/execution"
	"tradecore/internal/monitor"
	"tradecore/internal/pipeline"
	"tradecore/internal/quant"
	"tradecore/internal/store"
)

// quantAdapter 把行情快照与量化评分组合为流水线的量化数据源。
type quantAdapter struct {
	markets map[string]*exchange.MarketDataService
	scorer  *quant.Scorer
	sectors map[string]string
}

func (a *quantAdapter) Score(ctx context.Context, ticker string) (quant.ScoreSet, pipeline.MarketFacts, error) {
	market, ok := a.markets[ticker]
	if !ok {
		return quant.ScoreSet{}, pipeline.MarketFacts{}, fmt.Errorf("未配置标的 %s 的行情源", ticker)
	}

	snapshot, err := market.GetSnapshot(ctx, exchange.DefaultSnapshotRequest())
	if err != nil {
		return quant.ScoreSet{}, pipeline.MarketFacts{}, err
	}

	scores, err := a.scorer.Score(ctx, snapshot)
	if err != nil {
		return quant.ScoreSet{}, pipeline.MarketFacts{}, err
	}

	facts := pipeline.MarketFacts{
		Price:          snapshot.LatestClose(),
		AvgDailyVolume: snapshot.AverageDailyVolume(20),
		Sector:         a.sectors[ticker],
	}
	return scores, facts, nil
}

type orchestrator struct {
	tickers   []string
	pipeline  *pipeline.Pipeline
	executor  *execution.Executor
	portfolio *paperPortfolio
	monitor   *monitor.Service
	logger    *zap.Logger

	decisionInterval time.Duration
	lastDecision     time.Time
}

func (o *orchestrator) Monitor() *monitor.Service {
	return o.monitor
}

func newOrchestrator(cfg *config.Config, logger *zap.Logger, store *store.Store) (*orchestrator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	aiClient, err := ai.NewClient(cfg.OpenAI, logger)
	if err != nil {
		return nil, fmt.Errorf("初始化AI客户端失败: %w", err)
	}

	monitorSvc, err := monitor.NewService(store, logger)
	if err != nil {
		return nil, fmt.Errorf("初始化监控服务失败: %w", err)
	}

	markets := make(map[string]*exchange.MarketDataService, len(cfg.App.Tickers))
	for _, ticker := range cfg.App.Tickers {
		client, err := exchange.NewClient(cfg.Exchange, ticker, logger)
		if err != nil {
			return nil, fmt.Errorf("初始化行情客户端失败 (%s): %w", ticker, err)
		}
		markets[ticker] = exchange.NewMarketDataService(client, logger)
	}

	quantSrc := &quantAdapter{
		markets: markets,
		scorer:  quant.NewScorer(logger),
		sectors: cfg.App.Sectors,
	}

	portfolio := newPaperPortfolio(cfg.Execution.PaperCapital, cfg.App.Sectors)

	pipe := pipeline.New(quantSrc, aiClient, aiClient, aiClient, portfolio, cfg.Pipeline, logger)

	if !cfg.Execution.Simulation {
		return nil, fmt.Errorf("当前仅支持模拟执行，请开启 execution.simulation")
	}
	executor := execution.NewExecutor(execution.NewSimulatedBroker(logger), logger)

	interval := cfg.Scheduler.DecisionInterval
	if interval <= 0 {
		interval = time.Hour
	}

	return &orchestrator{
		tickers:          cfg.App.Tickers,
		pipeline:         pipe,
		executor:         executor,
		portfolio:        portfolio,
		monitor:          monitorSvc,
		logger:           logger,
		decisionInterval: interval,
	}, nil
}

// Tick 按决策间隔推进一轮：每个标的独立跑完整流水线。
// 单标的失败只记录事件，不阻断其余标的。
func (o *orchestrator) Tick(ctx context.Context) error {
	now := time.Now().UTC()
	if !o.lastDecision.IsZero() && now.Sub(o.lastDecision) < o.decisionInterval {
		return nil
	}
	o.lastDecision = now

	for _, ticker := range o.tickers {
		if err := ctx.Err(); err != nil {
			return err
		}
		o.runTicker(ctx, ticker)
	}
	return nil
}

func (o *orchestrator) runTicker(ctx context.Context, ticker string) {
	state, err := o.pipeline.Run(ctx, ticker)
	if err != nil {
		// 失败的运行依然带着截至失败点的完整审计日志。
		o.monitor.RecordError(ctx, "决策流水线失败", err, map[string]interface{}{
			"ticker":  ticker,
			"run_id":  state.RunID,
			"journal": state.Journal,
		})
		return
	}

	record := state.Record
	o.portfolio.MarkPrice(ticker, state.Price)

	if record.Final.Action == arbiter.ActionBuy || record.Final.Action == arbiter.ActionSell {
		o.executeDecision(ctx, state, record)
	}

	o.monitor.RecordDecision(ctx, record)
	o.logger.Info("决策已落库",
		zap.String("ticker", ticker),
		zap.String("action", string(record.Final.Action)),
		zap.Float64("size_fraction", record.Final.SizeFraction),
	)
}

func (o *orchestrator) executeDecision(ctx context.Context, state *pipeline.TradingState, record *pipeline.DecisionRecord) {
	snapshot, err := o.portfolio.Snapshot(ctx, state.Ticker)
	if err != nil {
		o.monitor.RecordError(ctx, "获取组合快照失败", err, map[string]interface{}{"ticker": state.Ticker})
		return
	}

	order, err := o.executor.BuildOrder(execution.Plan{
		Ticker:         state.Ticker,
		Action:         record.Final.Action,
		SizeFraction:   record.Final.SizeFraction,
		MarketPrice:    state.Price,
		PortfolioValue: snapshot.Value,
		AvgDailyVolume: state.Market.AvgDailyVolume,
		RiskResult:     state.Risk,
		PreTradeResult: state.PreTrade,
	})
	if err != nil {
		o.monitor.RecordError(ctx, "构建订单失败", err, map[string]interface{}{"ticker": state.Ticker})
		return
	}
	if order == nil {
		return
	}

	result, err := o.executor.Execute(ctx, order)
	record.Execution = &result
	o.monitor.RecordOrder(ctx, order)
	if err != nil {
		o.monitor.RecordError(ctx, "订单执行失败", err, map[string]interface{}{
			"ticker":   state.Ticker,
			"order_id": order.ID,
		})
		return
	}

	o.portfolio.ApplyFill(order)
}
