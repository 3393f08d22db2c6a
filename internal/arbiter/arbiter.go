package arbiter

import (
	"fmt"

	"tradecore/internal/ai"
	"tradecore/internal/jury"
	"tradecore/internal/policy"
	"tradecore/internal/pretrade"
	"tradecore/internal/quant"
	"tradecore/internal/risk"
)

// Action 为仲裁后的最终动作。
type Action string

const (
	ActionBuy       Action = "BUY"
	ActionSell      Action = "SELL"
	ActionHold      Action = "HOLD"
	ActionBlocked   Action = "BLOCKED"
	ActionEscalated Action = "ESCALATED"
)

// Inputs 汇总仲裁所需的全部组件结论。
// Jury 为 nil 表示陪审团未被触发（辩论一致或上游短路）。
type Inputs struct {
	Verdict  ai.Verdict
	Debate   ai.Debate
	Jury     *jury.Result
	Risk     risk.Result
	PreTrade pretrade.Result
	Scores   quant.ScoreSet
}

// Decision 为仲裁产出，一经生成不可修改。
type Decision struct {
	Action         Action   `json:"action"`
	SizeFraction   float64  `json:"size_fraction"`
	Reason         string   `json:"reason"`
	RequiresHuman  bool     `json:"requires_human"`
	BlockedSources []string `json:"blocked_sources,omitempty"`
}

// Resolve 按固定优先级合成最终决策：
// 否决 > 陪审团升级 > 风控失败 > 交易前校验失败 > 陪审团/辩论结论。
// 高优先级来源一旦命中，低优先级来源仅作记录，不再影响动作。
func Resolve(in Inputs) Decision {
	if in.Verdict.Vetoed() {
		return Decision{
			Action:         ActionBlocked,
			Reason:         fmt.Sprintf("裁定否决: %s", in.Verdict.Reasoning),
			BlockedSources: []string{"verdict_veto"},
		}
	}

	if in.Jury != nil && in.Jury.EscalatedToHuman {
		return Decision{
			Action:        ActionEscalated,
			Reason:        fmt.Sprintf("陪审团 %d-%d 平票，升级人工裁决", in.Jury.Tally.Buy, in.Jury.Tally.Sell),
			RequiresHuman: true,
		}
	}

	if !in.Risk.Passed {
		return Decision{
			Action:         ActionBlocked,
			Reason:         fmt.Sprintf("风控未通过: %v", in.Risk.FailedChecks),
			BlockedSources: in.Risk.FailedChecks,
		}
	}

	if !in.PreTrade.Passed {
		return Decision{
			Action:         ActionBlocked,
			Reason:         fmt.Sprintf("交易前校验未通过: %v", in.PreTrade.FailedChecks),
			BlockedSources: in.PreTrade.FailedChecks,
		}
	}

	action, reason := Direction(in.Jury, in.Scores.Composite)
	decision := Decision{Action: action, Reason: reason}
	if action == ActionBuy || action == ActionSell {
		decision.SizeFraction = PositionSize(in.Verdict.Confidence, in.Scores.StdDev, in.Scores.HighDisagreement)
	}
	return decision
}

// Direction 在无阻断来源时确定方向：
// 陪审团已裁决则采用其结论，否则按辩论一致结论与综合分阈值落向。
// 流水线在风控与交易前校验阶段用同一规则预判交易意向。
func Direction(juryResult *jury.Result, composite float64) (Action, string) {
	if juryResult != nil {
		switch juryResult.Decision {
		case jury.ChoiceBuy:
			return ActionBuy, fmt.Sprintf("陪审团多数裁决买入（%d 票）", juryResult.Tally.Buy)
		case jury.ChoiceSell:
			return ActionSell, fmt.Sprintf("陪审团多数裁决卖出（%d 票）", juryResult.Tally.Sell)
		default:
			return ActionHold, "陪审团无多数结论，保持观望"
		}
	}

	switch {
	case composite > policy.DebateBuyThreshold:
		return ActionBuy, fmt.Sprintf("辩论一致且综合分 %.3f 达到买入阈值", composite)
	case composite < policy.DebateSellThreshold:
		return ActionSell, fmt.Sprintf("辩论一致且综合分 %.3f 低于卖出阈值", composite)
	default:
		return ActionHold, fmt.Sprintf("综合分 %.3f 位于中性区间，保持观望", composite)
	}
}

// PositionSize 计算建仓比例：
//
//	size = MaxPositionPct × confidence × (1 − stdDev)
//
// 模型高分歧时减半，最终不超过 MaxPositionPct 且不小于 0。
func PositionSize(confidence, stdDev float64, highDisagreement bool) float64 {
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	if stdDev < 0 {
		stdDev = 0
	}
	if stdDev > 1 {
		stdDev = 1
	}

	size := policy.MaxPositionPct * confidence * (1 - stdDev)
	if highDisagreement {
		size /= 2
	}
	if size > policy.MaxPositionPct {
		size = policy.MaxPositionPct
	}
	if size < 0 {
		size = 0
	}
	return size
}
