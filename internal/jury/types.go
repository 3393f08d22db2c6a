package jury

// Choice 表示陪审员可投的选项或聚合结论。
type Choice string

const (
	ChoiceBuy  Choice = "BUY"
	ChoiceSell Choice = "SELL"
	ChoiceHold Choice = "HOLD"
	// ChoiceEscalated 为 5-5 平票时的聚合结论哨兵，陪审员本身不可投。
	ChoiceEscalated Choice = "ESCALATED"
)

// Vote 为单个陪审员的投票记录。
type Vote struct {
	AgentID   int    `json:"agent_id"`
	Choice    Choice `json:"vote"`
	Reasoning string `json:"reasoning"`
	FocusArea string `json:"focus_area"`
	// Degraded 标记该票由投票失败降级产生，原因写入 Reasoning。
	Degraded bool `json:"degraded,omitempty"`
}

// Tally 为三个选项的票数统计。
type Tally struct {
	Buy  int `json:"buy"`
	Sell int `json:"sell"`
	Hold int `json:"hold"`
}

// Result 为一次陪审团裁决的完整输出，聚合后不可变。
type Result struct {
	Spawned          bool   `json:"spawned"`
	Votes            []Vote `json:"votes"`
	Tally            Tally  `json:"tally"`
	Decision         Choice `json:"decision"`
	EscalatedToHuman bool   `json:"escalated_to_human"`
}
