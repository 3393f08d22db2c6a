// Package jury 实现陪审团投票的聚合与收集。
// 聚合是纯函数：同一组票无论到达顺序如何，结论必须一致。
package jury

import (
	"fmt"

	"tradecore/internal/policy"
)

// Aggregate 对恰好 policy.JurySize 张票进行计票并给出裁决。
// 票数不等于规定值属于系统误用，立即报错而不是猜测。
//
// 裁决优先级：
//  1. 两个最高票恰好 5-5 平 → ESCALATED，强制人工裁决，禁止任何启发式破平；
//  2. 最高票 ≥ 6 → 形成有效多数，采纳该选项；
//  3. 其余情况（如 4/3/3）→ 无足够共识，HOLD。
func Aggregate(votes []Vote) (Result, error) {
	if len(votes) != policy.JurySize {
		return Result{}, fmt.Errorf("jury: 票数必须为 %d，实际 %d", policy.JurySize, len(votes))
	}

	tally := Tally{}
	for _, v := range votes {
		switch v.Choice {
		case ChoiceBuy:
			tally.Buy++
		case ChoiceSell:
			tally.Sell++
		case ChoiceHold:
			tally.Hold++
		default:
			return Result{}, fmt.Errorf("jury: 非法投票选项 %q (agent %d)", v.Choice, v.AgentID)
		}
	}

	result := Result{
		Spawned: true,
		Votes:   append([]Vote(nil), votes...),
		Tally:   tally,
	}

	top, second, topChoice := rankTallies(tally)

	switch {
	case top == policy.JuryTieCount && second == policy.JuryTieCount:
		result.Decision = ChoiceEscalated
		result.EscalatedToHuman = true
	case top >= policy.JuryMajorityThreshold:
		result.Decision = topChoice
	default:
		result.Decision = ChoiceHold
	}

	return result, nil
}

// rankTallies 返回最高与次高票数以及最高票对应的选项。
// 选项遍历顺序固定（BUY、SELL、HOLD），保证结果与票序无关。
func rankTallies(t Tally) (top int, second int, topChoice Choice) {
	entries := []struct {
		choice Choice
		count  int
	}{
		{ChoiceBuy, t.Buy},
		{ChoiceSell, t.Sell},
		{ChoiceHold, t.Hold},
	}

	topChoice = ChoiceHold
	for _, e := range entries {
		if e.count > top {
			second = top
			top = e.count
			topChoice = e.choice
		} else if e.count > second {
			second = e.count
		}
	}
	return top, second, topChoice
}
