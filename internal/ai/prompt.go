package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/template"

	"tradecore/internal/quant"
)

const verdictTemplate = `
你是投资委员会的首席裁定人，拥有 APPROVE / NEUTRAL / VETO 的最终定性权。

标的: {{ .Ticker }}
量化模型输出:
{{ .ScoresJSON }}

请基于量化信号与你的判断给出裁定。VETO 仅用于存在重大不可接受风险的情形。

请严格输出唯一的 JSON 对象，格式如下：
{
  "category": "APPROVE|NEUTRAL|VETO",
  "confidence": 0.0-1.0,
  "reasoning": "...",
  "mode": "...",                // 本次裁定采用的分析模式标签
  "supporting_passages": 0      // 支撑结论的材料段落数
}
`

const debateTemplate = `
你需要分别以多头研究员与空头研究员的身份完成一轮完整辩论，再判断双方是否收敛。

标的: {{ .Ticker }}
量化模型输出:
{{ .ScoresJSON }}

请严格输出唯一的 JSON 对象，格式如下：
{
  "bull_case": "...",                       // 多头论点全文
  "bear_case": "...",                       // 空头论点全文
  "outcome": "agreement|disagreement",      // 双方是否达成方向一致
  "rounds": 1                                // 实际辩论轮数
}
`

const voterTemplate = `
你是投资陪审团的第 {{ .AgentID }} 号陪审员，关注领域为 {{ .FocusArea }}。
陪审团成员彼此独立，禁止参考其他成员的观点。

标的: {{ .Ticker }}
量化模型输出:
{{ .ScoresJSON }}

多头论点:
{{ .BullCase }}

空头论点:
{{ .BearCase }}

请仅从你的关注领域出发投票，严格输出唯一的 JSON 对象：
{
  "vote": "BUY|SELL|HOLD",
  "reasoning": "...",
  "focus_area": "{{ .FocusArea }}"
}
`

var (
	verdictTmpl = template.Must(template.New("verdict").Parse(verdictTemplate))
	debateTmpl  = template.Must(template.New("debate").Parse(debateTemplate))
	voterTmpl   = template.Must(template.New("voter").Parse(voterTemplate))
)

// focusAreas 按 agent 序号循环分配，保证十名陪审员视角分散。
var focusAreas = []string{
	"valuation",
	"momentum",
	"risk",
	"macro",
	"sentiment",
	"liquidity",
	"sector",
	"technicals",
	"volatility",
	"positioning",
}

// FocusAreaFor 返回指定陪审员的关注领域。
func FocusAreaFor(agentID int) string {
	if agentID <= 0 {
		return focusAreas[0]
	}
	return focusAreas[(agentID-1)%len(focusAreas)]
}

type promptContext struct {
	Ticker     string
	ScoresJSON string
	AgentID    int
	FocusArea  string
	BullCase   string
	BearCase   string
}

func renderPrompt(tmpl *template.Template, ctx promptContext) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ctx); err != nil {
		return "", fmt.Errorf("渲染提示词失败: %w", err)
	}
	return buf.String(), nil
}

func scoresJSON(scores quant.ScoreSet) (string, error) {
	payload, err := json.MarshalIndent(scores, "", "  ")
	if err != nil {
		return "", fmt.Errorf("序列化量化分数失败: %w", err)
	}
	return string(payload), nil
}
