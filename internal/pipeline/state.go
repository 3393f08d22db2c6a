package pipeline

import (
	"time"

	"github.com/google/uuid"

	"tradecore/internal/ai"
	"tradecore/internal/arbiter"
	"tradecore/internal/execution"
	"tradecore/internal/jury"
	"tradecore/internal/pretrade"
	"tradecore/internal/quant"
	"tradecore/internal/risk"
)

// 流水线阶段名称，审计日志按此命名。
const (
	StageQuantScoring = "quant_scoring"
	StageVerdict      = "verdict"
	StageResearch     = "bull_bear_research"
	StageDebate       = "debate"
	StageJurySpawn    = "jury_spawn"
	StageJuryJoin     = "jury_aggregate"
	StageRiskCheck    = "risk_check"
	StagePreTrade     = "pretrade_validation"
	StageDecision     = "decision"
)

// JournalEntry 为一条阶段审计记录，追加后不可修改。
type JournalEntry struct {
	Stage     string    `json:"stage"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
	Detail    string    `json:"detail"`
	Skipped   bool      `json:"skipped,omitempty"`
}

// MarketFacts 为量化阶段随评分一并产出的市场事实。
type MarketFacts struct {
	Price          float64 `json:"price"`
	AvgDailyVolume float64 `json:"avg_daily_volume"`
	Sector         string  `json:"sector"`
}

// PortfolioSnapshot 为决策前由调用方一次性提供的组合快照。
// 核心只读，不持有也不锁定组合。
type PortfolioSnapshot struct {
	Value        float64                `json:"value"`
	Cash         float64                `json:"cash"`
	Holdings     []risk.HoldingSnapshot `json:"holdings"`
	RecentOrders []pretrade.OrderStamp  `json:"recent_orders"`
	SectorLimits map[string]float64     `json:"sector_limits,omitempty"`
}

// TradingState 为单标的单次运行的可变累加器，由流水线独占。
// 运行结束后通过 Freeze 冻结为不可变的决策记录。
type TradingState struct {
	RunID     string             `json:"run_id"`
	Ticker    string             `json:"ticker"`
	Price     float64            `json:"price"`
	Market    MarketFacts        `json:"market"`
	Scores    quant.ScoreSet     `json:"scores"`
	Verdict   ai.Verdict         `json:"verdict"`
	Debate    ai.Debate          `json:"debate"`
	Jury      jury.Result        `json:"jury"`
	Risk      risk.Result        `json:"risk"`
	PreTrade  pretrade.Result    `json:"pretrade"`
	Final     arbiter.Decision   `json:"final"`
	Journal   []JournalEntry     `json:"journal"`
	StartedAt time.Time          `json:"started_at"`
	Record    *DecisionRecord    `json:"-"`
}

func newTradingState(ticker string) *TradingState {
	return &TradingState{
		RunID:     uuid.NewString(),
		Ticker:    ticker,
		Journal:   make([]JournalEntry, 0, 9),
		StartedAt: time.Now().UTC(),
	}
}

// appendJournal 追加一条阶段记录，journal 只增不删。
func (s *TradingState) appendJournal(stage string, startedAt time.Time, detail string, skipped bool) {
	s.Journal = append(s.Journal, JournalEntry{
		Stage:     stage,
		StartedAt: startedAt,
		EndedAt:   time.Now().UTC(),
		Detail:    detail,
		Skipped:   skipped,
	})
}

// DecisionRecord 为一次运行的最终产物，冻结后不可变，
// 是持久化、上报与展示的统一单元。
type DecisionRecord struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	RunID     string            `json:"run_id"`
	Ticker    string            `json:"ticker"`
	Price     float64           `json:"price"`
	Scores    quant.ScoreSet    `json:"scores"`
	Verdict   ai.Verdict        `json:"verdict"`
	BullCase  string            `json:"bull_case"`
	BearCase  string            `json:"bear_case"`
	Debate    ai.Debate         `json:"debate"`
	Jury      jury.Result       `json:"jury"`
	Risk      risk.Result       `json:"risk"`
	PreTrade  pretrade.Result   `json:"pretrade"`
	Final     arbiter.Decision  `json:"final"`
	Execution *execution.Result `json:"execution,omitempty"`
	Journal   []JournalEntry    `json:"journal"`
}

// Freeze 把运行状态冻结为决策记录。调用后状态不应再被修改。
func (s *TradingState) Freeze() *DecisionRecord {
	record := &DecisionRecord{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		RunID:     s.RunID,
		Ticker:    s.Ticker,
		Price:     s.Price,
		Scores:    s.Scores,
		Verdict:   s.Verdict,
		BullCase:  s.Debate.BullCase,
		BearCase:  s.Debate.BearCase,
		Debate:    s.Debate,
		Jury:      s.Jury,
		Risk:      s.Risk,
		PreTrade:  s.PreTrade,
		Final:     s.Final,
		Journal:   append([]JournalEntry(nil), s.Journal...),
	}
	s.Record = record
	return record
}
