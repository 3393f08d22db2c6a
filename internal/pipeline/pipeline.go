// Package pipeline 实现按阶段推进的决策流水线。
// 每个阶段的产出只在该阶段成功后提交进 TradingState，
// 失败时调用方仍能拿到截至失败点的完整审计日志。
package pipeline

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"tradecore/internal/ai"
	"tradecore/internal/arbiter"
	"tradecore/internal/config"
	"tradecore/internal/jury"
	"tradecore/internal/pretrade"
	"tradecore/internal/quant"
	"tradecore/internal/risk"
)

// QuantSource 提供量化评分与随行市场事实。
type QuantSource interface {
	Score(ctx context.Context, ticker string) (quant.ScoreSet, MarketFacts, error)
}

// VerdictSource 提供定性裁定。
type VerdictSource interface {
	GenerateVerdict(ctx context.Context, ticker string, scores quant.ScoreSet) (ai.Verdict, error)
}

// DebateSource 提供多空论证与辩论结论。
type DebateSource interface {
	GenerateDebate(ctx context.Context, ticker string, scores quant.ScoreSet) (ai.Debate, error)
}

// VoterSource 为陪审团提供绑定上下文的投票函数。
type VoterSource interface {
	JuryVoter(ticker string, scores quant.ScoreSet, debate ai.Debate) jury.VoterFunc
}

// PortfolioSource 提供决策前的组合只读快照。
type PortfolioSource interface {
	Snapshot(ctx context.Context, ticker string) (PortfolioSnapshot, error)
}

// Pipeline 按固定阶段顺序推进单标的决策。
// 每个标的一次运行独占一个 TradingState，运行之间不共享任何可变状态。
type Pipeline struct {
	quant     QuantSource
	verdicts  VerdictSource
	debates   DebateSource
	voters    VoterSource
	portfolio PortfolioSource
	riskEng   *risk.Engine
	validator *pretrade.Validator
	cfg       config.PipelineConfig
	logger    *zap.Logger
}

// New 创建决策流水线。
func New(
	quantSrc QuantSource,
	verdictSrc VerdictSource,
	debateSrc DebateSource,
	voterSrc VoterSource,
	portfolioSrc PortfolioSource,
	cfg config.PipelineConfig,
	logger *zap.Logger,
) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		quant:     quantSrc,
		verdicts:  verdictSrc,
		debates:   debateSrc,
		voters:    voterSrc,
		portfolio: portfolioSrc,
		riskEng:   risk.NewEngine(logger),
		validator: pretrade.NewValidator(logger),
		cfg:       cfg,
		logger:    logger,
	}
}

// Run 对单个标的执行一次完整决策。
// 返回的 TradingState 永不为 nil：即使某阶段失败，
// 其 Journal 也完整记录了截至失败点的全部阶段。
func (p *Pipeline) Run(ctx context.Context, ticker string) (*TradingState, error) {
	state := newTradingState(ticker)
	logger := p.logger.With(zap.String("run_id", state.RunID), zap.String("ticker", ticker))
	logger.Info("决策流水线启动")

	// 阶段一：量化评分。
	stageStart := time.Now().UTC()
	scores, facts, err := p.scoreWithTimeout(ctx, ticker)
	if err != nil {
		state.appendJournal(StageQuantScoring, stageStart, fmt.Sprintf("量化评分失败: %v", err), false)
		return state, fmt.Errorf("pipeline: 量化评分阶段失败: %w", err)
	}
	state.Scores = scores
	state.Market = facts
	state.Price = facts.Price
	state.appendJournal(StageQuantScoring, stageStart,
		fmt.Sprintf("综合分 %.3f，标准差 %.3f，高分歧 %t", scores.Composite, scores.StdDev, scores.HighDisagreement), false)

	// 阶段二：裁定。
	stageStart = time.Now().UTC()
	verdict, err := p.verdictWithTimeout(ctx, ticker, scores)
	if err != nil {
		state.appendJournal(StageVerdict, stageStart, fmt.Sprintf("裁定生成失败: %v", err), false)
		return state, fmt.Errorf("pipeline: 裁定阶段失败: %w", err)
	}
	state.Verdict = verdict
	state.appendJournal(StageVerdict, stageStart,
		fmt.Sprintf("结论 %s，信心 %.2f", verdict.Category, verdict.Confidence), false)

	// 否决直接短路到决策阶段：多空论证为空、辩论零轮、陪审团不触发。
	if verdict.Vetoed() {
		p.skipStages(state, "否决短路",
			StageResearch, StageDebate, StageJurySpawn, StageJuryJoin, StageRiskCheck, StagePreTrade)
		return p.decide(state, logger), nil
	}

	// 阶段三/四：多空论证与辩论结论。
	stageStart = time.Now().UTC()
	debate, err := p.debateWithTimeout(ctx, ticker, scores)
	if err != nil {
		state.appendJournal(StageResearch, stageStart, fmt.Sprintf("多空论证失败: %v", err), false)
		return state, fmt.Errorf("pipeline: 辩论阶段失败: %w", err)
	}
	state.Debate = debate
	state.appendJournal(StageResearch, stageStart,
		fmt.Sprintf("多头 %d 字，空头 %d 字", len([]rune(debate.BullCase)), len([]rune(debate.BearCase))), false)

	stageStart = time.Now().UTC()
	state.appendJournal(StageDebate, stageStart,
		fmt.Sprintf("结论 %s，共 %d 轮", debate.Outcome, debate.Rounds), false)

	// 阶段五：辩论分歧时触发陪审团，一致则跳过。
	if debate.Outcome == ai.DebateDisagreement {
		stageStart = time.Now().UTC()
		votes, err := p.collectVotes(ctx, ticker, scores, debate)
		if err != nil {
			state.appendJournal(StageJurySpawn, stageStart, fmt.Sprintf("陪审团投票失败: %v", err), false)
			return state, fmt.Errorf("pipeline: 陪审团阶段失败: %w", err)
		}
		state.appendJournal(StageJurySpawn, stageStart, fmt.Sprintf("收齐 %d 张票", len(votes)), false)

		stageStart = time.Now().UTC()
		juryResult, err := jury.Aggregate(votes)
		if err != nil {
			state.appendJournal(StageJuryJoin, stageStart, fmt.Sprintf("聚合失败: %v", err), false)
			return state, fmt.Errorf("pipeline: 陪审团聚合失败: %w", err)
		}
		state.Jury = juryResult
		state.appendJournal(StageJuryJoin, stageStart,
			fmt.Sprintf("计票 %d/%d/%d，结论 %s", juryResult.Tally.Buy, juryResult.Tally.Sell, juryResult.Tally.Hold, juryResult.Decision), false)
	} else {
		p.skipStages(state, "辩论一致", StageJurySpawn, StageJuryJoin)
	}

	// 阶段六/七：风控与交易前校验。
	if err := p.runGates(ctx, state); err != nil {
		return state, err
	}

	return p.decide(state, logger), nil
}

// runGates 执行风控检查与交易前校验两个阶段。
// 风控始终运行（无交易意向时拟建仓比例为 0）；
// 交易前校验只针对真实存在的订单意向，观望时记为跳过。
func (p *Pipeline) runGates(ctx context.Context, state *TradingState) error {
	stageStart := time.Now().UTC()
	snapshot, err := p.portfolio.Snapshot(ctx, state.Ticker)
	if err != nil {
		state.appendJournal(StageRiskCheck, stageStart, fmt.Sprintf("获取组合快照失败: %v", err), false)
		return fmt.Errorf("pipeline: 组合快照获取失败: %w", err)
	}

	var juryPtr *jury.Result
	if state.Jury.Spawned {
		juryPtr = &state.Jury
	}
	direction, _ := arbiter.Direction(juryPtr, state.Scores.Composite)

	proposedFraction := 0.0
	if direction == arbiter.ActionBuy || direction == arbiter.ActionSell {
		proposedFraction = arbiter.PositionSize(state.Verdict.Confidence, state.Scores.StdDev, state.Scores.HighDisagreement)
	}

	state.Risk = p.riskEng.RunChecks(risk.Context{
		Ticker:           state.Ticker,
		Sector:           state.Market.Sector,
		ProposedFraction: proposedFraction,
		PortfolioValue:   snapshot.Value,
		Cash:             snapshot.Cash,
		Holdings:         snapshot.Holdings,
		SectorLimits:     snapshot.SectorLimits,
		GapRisk:          state.Scores.GapRisk,
		ModelStdDev:      state.Scores.StdDev,
	})
	state.appendJournal(StageRiskCheck, stageStart,
		fmt.Sprintf("通过 %t，失败项 %v", state.Risk.Passed, state.Risk.FailedChecks), false)

	quantity := int64(0)
	if state.Market.Price > 0 {
		quantity = int64(math.Floor(proposedFraction * snapshot.Value / state.Market.Price))
	}
	if quantity <= 0 {
		// 无订单意向时无物可校验，聚合结论为空通过。
		state.PreTrade = pretrade.Result{Passed: true}
		p.skipStages(state, "无交易意向", StagePreTrade)
		return nil
	}

	side := pretrade.SideBuy
	if direction == arbiter.ActionSell {
		side = pretrade.SideSell
	}

	stageStart = time.Now().UTC()
	state.PreTrade = p.validator.Validate(pretrade.Context{
		Ticker:         state.Ticker,
		Side:           side,
		Quantity:       quantity,
		Price:          state.Market.Price,
		PortfolioValue: snapshot.Value,
		RecentOrders:   snapshot.RecentOrders,
		Now:            time.Now().UTC(),
	})
	state.appendJournal(StagePreTrade, stageStart,
		fmt.Sprintf("通过 %t，失败项 %v", state.PreTrade.Passed, state.PreTrade.FailedChecks), false)
	return nil
}

// decide 执行最终仲裁并冻结决策记录。
func (p *Pipeline) decide(state *TradingState, logger *zap.Logger) *TradingState {
	stageStart := time.Now().UTC()

	var juryPtr *jury.Result
	if state.Jury.Spawned {
		juryPtr = &state.Jury
	}

	state.Final = arbiter.Resolve(arbiter.Inputs{
		Verdict:  state.Verdict,
		Debate:   state.Debate,
		Jury:     juryPtr,
		Risk:     state.Risk,
		PreTrade: state.PreTrade,
		Scores:   state.Scores,
	})
	state.appendJournal(StageDecision, stageStart,
		fmt.Sprintf("动作 %s，仓位 %.4f，理由: %s", state.Final.Action, state.Final.SizeFraction, state.Final.Reason), false)

	state.Freeze()
	logger.Info("决策流水线完成",
		zap.String("action", string(state.Final.Action)),
		zap.Float64("size_fraction", state.Final.SizeFraction),
		zap.Bool("requires_human", state.Final.RequiresHuman),
	)
	return state
}

// skipStages 为被分支跳过的阶段补记审计条目，保证每次运行轨迹完整。
func (p *Pipeline) skipStages(state *TradingState, reason string, stages ...string) {
	for _, stage := range stages {
		now := time.Now().UTC()
		state.appendJournal(stage, now, fmt.Sprintf("跳过（%s）", reason), true)
	}
}

func (p *Pipeline) scoreWithTimeout(ctx context.Context, ticker string) (quant.ScoreSet, MarketFacts, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.cfg.CollaboratorTimeout)
	defer cancel()
	return p.quant.Score(callCtx, ticker)
}

func (p *Pipeline) verdictWithTimeout(ctx context.Context, ticker string, scores quant.ScoreSet) (ai.Verdict, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.cfg.CollaboratorTimeout)
	defer cancel()
	return p.verdicts.GenerateVerdict(callCtx, ticker, scores)
}

func (p *Pipeline) debateWithTimeout(ctx context.Context, ticker string, scores quant.ScoreSet) (ai.Debate, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.cfg.CollaboratorTimeout)
	defer cancel()
	return p.debates.GenerateDebate(callCtx, ticker, scores)
}

// collectVotes 以散集模式并发收集恰好十张票。
// 单个陪审员失败在池内降级为 HOLD，不会阻断整个流水线。
func (p *Pipeline) collectVotes(ctx context.Context, ticker string, scores quant.ScoreSet, debate ai.Debate) ([]jury.Vote, error) {
	pool, err := jury.NewPool(p.voters.JuryVoter(ticker, scores, debate), p.cfg.VoterTimeout, p.logger)
	if err != nil {
		return nil, err
	}
	return pool.Collect(ctx)
}
