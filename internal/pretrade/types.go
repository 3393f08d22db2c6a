package pretrade

import "time"

// Side 表示订单方向。
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderStamp 记录一笔历史订单的去重指纹。
type OrderStamp struct {
	Ticker   string    `json:"ticker"`
	Side     Side      `json:"side"`
	PlacedAt time.Time `json:"placed_at"`
}

// Context 为一次交易前校验的不可变输入。
// 该类型与 internal/risk 的快照结构相似但刻意独立：
// 两个模块除 policy.MaxPositionPct 外不得共享任何常量或类型。
type Context struct {
	Ticker         string       `json:"ticker"`
	Side           Side         `json:"side"`
	Quantity       int64        `json:"quantity"`
	Price          float64      `json:"price"`
	PortfolioValue float64      `json:"portfolio_value"`
	RecentOrders   []OrderStamp `json:"recent_orders"`
	Now            time.Time    `json:"now"`
}

// Severity 标记检查失败的级别。
type Severity string

const (
	SeverityError Severity = "error"
	SeverityWarn  Severity = "warn"
)

// CheckResult 记录单项校验的结论与审计细节。
type CheckResult struct {
	Name      string   `json:"name"`
	Passed    bool     `json:"passed"`
	Severity  Severity `json:"severity"`
	Detail    string   `json:"detail"`
	Value     float64  `json:"value"`
	Threshold float64  `json:"threshold"`
}

// Result 汇总四项校验的完整结果。
type Result struct {
	Passed       bool          `json:"passed"`
	Checks       []CheckResult `json:"checks"`
	FailedChecks []string      `json:"failed_checks"`
}
