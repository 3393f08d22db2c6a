package monitor

import (
	"time"

	"tradecore/internal/backtest"
	"tradecore/internal/execution"
	"tradecore/internal/pipeline"
)

// EventType 表示监控事件类型。
type EventType string

const (
	EventDecision    EventType = "decision"
	EventOrder       EventType = "order"
	EventBacktestRun EventType = "backtest_run"
	EventError       EventType = "error"
)

// Event 封装通用监控事件。
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// DecisionPayload 记录一次完整决策及其审计日志。
type DecisionPayload struct {
	Record pipeline.DecisionRecord `json:"record"`
}

// OrderPayload 记录订单及其全部状态迁移历史。
type OrderPayload struct {
	Order execution.Order `json:"order"`
}

// BacktestPayload 记录一次回测产物。
type BacktestPayload struct {
	Ticker string          `json:"ticker"`
	Result backtest.Result `json:"result"`
}

// ErrorPayload 记录异常。
type ErrorPayload struct {
	Message string                 `json:"message"`
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}
