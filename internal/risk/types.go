package risk

// HoldingSnapshot 描述一笔既有持仓及其与拟建仓标的的相关性元数据。
// 快照由调用方在每次决策前一次性提供，核心只读不持有组合。
type HoldingSnapshot struct {
	Ticker string `json:"ticker"`
	Value  float64 `json:"value"`
	Sector string `json:"sector"`
	// Correlation30D 为该持仓与拟建仓标的的30日收益相关系数。
	Correlation30D float64 `json:"correlation_30d"`
	// StressCorrelation 为最差10日（压力情景）相关系数。
	StressCorrelation float64 `json:"stress_correlation"`
}

// Context 为一次风控评估的不可变输入快照。
type Context struct {
	Ticker           string            `json:"ticker"`
	Sector           string            `json:"sector"`
	ProposedFraction float64           `json:"proposed_fraction"`
	PortfolioValue   float64           `json:"portfolio_value"`
	Cash             float64           `json:"cash"`
	Holdings         []HoldingSnapshot `json:"holdings"`
	// SectorLimits 允许按行业收紧敞口上限，缺省使用 policy.MaxSectorConcentration。
	SectorLimits map[string]float64 `json:"sector_limits,omitempty"`
	GapRisk      float64            `json:"gap_risk"`
	ModelStdDev  float64            `json:"model_std_dev"`
}

// CheckResult 记录单项检查的结论与审计细节。
type CheckResult struct {
	Name      string  `json:"name"`
	Passed    bool    `json:"passed"`
	Detail    string  `json:"detail"`
	Value     float64 `json:"value"`
	Threshold float64 `json:"threshold"`
}

// Result 汇总七项检查的完整结果。
type Result struct {
	Passed       bool          `json:"passed"`
	Checks       []CheckResult `json:"checks"`
	FailedChecks []string      `json:"failed_checks"`
}
