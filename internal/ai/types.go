package ai

import (
	"errors"
	"fmt"
	"strings"

	"tradecore/internal/policy"
)

// VerdictCategory 为裁定的三种结论。
type VerdictCategory string

const (
	VerdictApprove VerdictCategory = "APPROVE"
	VerdictNeutral VerdictCategory = "NEUTRAL"
	VerdictVeto    VerdictCategory = "VETO"
)

// Verdict 表示最高权限的定性裁定。
// 核心收到的 VETO 一律视为最终结论；低信心 VETO 的降级发生在生成侧（见 Normalize）。
type Verdict struct {
	Category           VerdictCategory `json:"category"`
	Confidence         float64         `json:"confidence"`
	Reasoning          string          `json:"reasoning"`
	Mode               string          `json:"mode"`
	SupportingPassages int             `json:"supporting_passages"`
}

// Vetoed 返回该裁定是否构成硬否决。
func (v Verdict) Vetoed() bool {
	return v.Category == VerdictVeto
}

// Validate 校验裁定字段合法性。
func (v Verdict) Validate() error {
	switch v.Category {
	case VerdictApprove, VerdictNeutral, VerdictVeto:
	default:
		return fmt.Errorf("category 字段取值非法: %s", v.Category)
	}
	if v.Confidence < 0 || v.Confidence > 1 {
		return fmt.Errorf("confidence 必须在 [0,1] 区间，目前为 %f", v.Confidence)
	}
	if strings.TrimSpace(v.Reasoning) == "" {
		return errors.New("reasoning 不能为空")
	}
	if v.SupportingPassages < 0 {
		return fmt.Errorf("supporting_passages 不能为负，目前为 %d", v.SupportingPassages)
	}
	return nil
}

// Normalize 执行生成侧的契约义务：
// 信心度低于 policy.MinVetoConfidence 的 VETO 降级为 NEUTRAL。
func (v Verdict) Normalize() Verdict {
	if v.Category == VerdictVeto && v.Confidence < policy.MinVetoConfidence {
		v.Category = VerdictNeutral
	}
	return v
}

// DebateOutcome 为多空辩论的两种收敛结果。
type DebateOutcome string

const (
	DebateAgreement    DebateOutcome = "agreement"
	DebateDisagreement DebateOutcome = "disagreement"
)

// Debate 表示一轮多空辩论的产出。
type Debate struct {
	BullCase string        `json:"bull_case"`
	BearCase string        `json:"bear_case"`
	Outcome  DebateOutcome `json:"outcome"`
	Rounds   int           `json:"rounds"`
}

// Validate 校验辩论结果合法性。
func (d Debate) Validate() error {
	switch d.Outcome {
	case DebateAgreement, DebateDisagreement:
	default:
		return fmt.Errorf("outcome 字段取值非法: %s", d.Outcome)
	}
	if d.Rounds < 0 {
		return fmt.Errorf("rounds 不能为负，目前为 %d", d.Rounds)
	}
	if strings.TrimSpace(d.BullCase) == "" || strings.TrimSpace(d.BearCase) == "" {
		return errors.New("bull_case 与 bear_case 不能为空")
	}
	return nil
}

// voterPayload 为陪审员接口返回的原始载荷。
type voterPayload struct {
	Vote      string `json:"vote"`
	Reasoning string `json:"reasoning"`
	FocusArea string `json:"focus_area"`
}

func (p voterPayload) validate() error {
	switch strings.ToUpper(strings.TrimSpace(p.Vote)) {
	case "BUY", "SELL", "HOLD":
	default:
		return fmt.Errorf("vote 字段取值非法: %s", p.Vote)
	}
	if strings.TrimSpace(p.Reasoning) == "" {
		return errors.New("reasoning 不能为空")
	}
	return nil
}
