// Package policy 集中维护受保护的交易常量。
// 这些数值属于风控底线，修改必须经过人工审批，禁止通过配置文件或环境变量覆盖。
package policy

import "time"

const (
	// MaxPositionPct 单笔仓位占组合净值的上限。
	// 风控与交易前校验共享的唯一常量，两侧不得再引用对方的其他阈值。
	MaxPositionPct = 0.12

	// MinCashReservePct 交易后必须保留的现金比例下限。
	MinCashReservePct = 0.10

	// MaxCorrelatedPositions 允许的高相关持仓数量上限（不含拟建仓标的）。
	MaxCorrelatedPositions = 3

	// CorrelationThreshold 判定两只标的高相关的30日相关系数阈值。
	CorrelationThreshold = 0.70

	// StressCorrelationThreshold 压力情景（最差10日）相关系数阈值，命中即拒绝。
	StressCorrelationThreshold = 0.80

	// MaxSectorConcentration 单一行业敞口上限（默认值，按行业可单独收紧）。
	MaxSectorConcentration = 0.40

	// GapRiskThreshold 跳空风险评分上限。
	GapRiskThreshold = 0.70

	// HighModelDisagreementThreshold 量化模型分歧（标准差）阈值，超过视为高分歧。
	HighModelDisagreementThreshold = 0.50
)

const (
	// JurySize 陪审团规模，投票数必须恰好等于该值。
	JurySize = 10

	// JuryMajorityThreshold 形成有效多数所需的最低票数。
	JuryMajorityThreshold = 6

	// JuryTieCount 触发强制人工升级的对半平票数。
	JuryTieCount = 5
)

const (
	// MaxOrderQuantity 单笔订单股数上限。
	MaxOrderQuantity = 100000

	// DuplicateOrderWindow 同标的同方向的重复订单检测窗口。
	DuplicateOrderWindow = 60 * time.Second

	// PortfolioImpactPct 单笔订单金额占组合的告警阈值。
	PortfolioImpactPct = 0.10
)

const (
	// MinVetoConfidence 否决裁定生效所需的最低信心度。
	// 低于该值的 VETO 必须在裁定生成侧降级为 NEUTRAL，核心收到的 VETO 一律视为最终结论。
	MinVetoConfidence = 0.85

	// DebateBuyThreshold 辩论达成一致时，综合分高于该值给出买入。
	DebateBuyThreshold = 0.6

	// DebateSellThreshold 辩论达成一致时，综合分低于该值给出卖出。
	DebateSellThreshold = 0.4
)

const (
	// SlippageBasePct 所有成交都承担的基础滑点。
	SlippageBasePct = 0.0005

	// SlippageImpactCoeff 市场冲击系数，乘以订单量占日均成交量的比例。
	SlippageImpactCoeff = 0.1

	// SlippageMaxPct 单笔成交允许计入的滑点上限。
	SlippageMaxPct = 0.02
)

const (
	// TradingDaysPerYear 年化指标使用的交易日数量。
	TradingDaysPerYear = 252

	// MetricCap 利润因子与 Sortino 在无亏损/无下行波动且收益为正时的显式哨兵上限。
	// 无穷大无法 JSON 序列化，统一以该上限表示。
	MetricCap = 9999.0
)
