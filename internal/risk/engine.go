// Package risk 实现组合安全性检查。
// 七项检查按固定顺序全部执行，任何一项失败都不会中断后续检查，
// 完整结果上报给决策仲裁器处理；本包只产出值，从不抛错。
package risk

import (
	"fmt"

	"go.uber.org/zap"

	"tradecore/internal/policy"
)

// 检查名称按执行顺序排列，顺序是审计契约的一部分。
const (
	CheckPositionSize        = "position_size"
	CheckCashReserve         = "cash_reserve"
	CheckCorrelation         = "correlation"
	CheckStressCorrelation   = "stress_correlation"
	CheckSectorConcentration = "sector_concentration"
	CheckGapRisk             = "gap_risk"
	CheckModelDisagreement   = "model_disagreement"
)

// Engine 执行全部风控检查。
type Engine struct {
	logger *zap.Logger
}

// NewEngine 创建风控引擎。
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

// RunChecks 对给定快照执行七项检查并返回完整结果。
func (e *Engine) RunChecks(ctx Context) Result {
	checks := []CheckResult{
		checkPositionSize(ctx),
		checkCashReserve(ctx),
		checkCorrelation(ctx),
		checkStressCorrelation(ctx),
		checkSectorConcentration(ctx),
		checkGapRisk(ctx),
		checkModelDisagreement(ctx),
	}

	result := Result{
		Passed: true,
		Checks: checks,
	}
	for _, check := range checks {
		if !check.Passed {
			result.Passed = false
			result.FailedChecks = append(result.FailedChecks, check.Name)
		}
	}

	if !result.Passed {
		e.logger.Info("风控检查未通过",
			zap.String("ticker", ctx.Ticker),
			zap.Strings("failed_checks", result.FailedChecks),
		)
	}

	return result
}

func checkPositionSize(ctx Context) CheckResult {
	passed := ctx.ProposedFraction <= policy.MaxPositionPct
	detail := fmt.Sprintf("拟建仓占比 %.2f%%，上限 %.2f%%", ctx.ProposedFraction*100, policy.MaxPositionPct*100)
	return CheckResult{
		Name:      CheckPositionSize,
		Passed:    passed,
		Detail:    detail,
		Value:     ctx.ProposedFraction,
		Threshold: policy.MaxPositionPct,
	}
}

func checkCashReserve(ctx Context) CheckResult {
	proposedCost := ctx.ProposedFraction * ctx.PortfolioValue
	reserve := 0.0
	if ctx.PortfolioValue > 0 {
		reserve = (ctx.Cash - proposedCost) / ctx.PortfolioValue
	}
	passed := reserve >= policy.MinCashReservePct
	detail := fmt.Sprintf("交易后现金占比 %.2f%%，下限 %.2f%%", reserve*100, policy.MinCashReservePct*100)
	return CheckResult{
		Name:      CheckCashReserve,
		Passed:    passed,
		Detail:    detail,
		Value:     reserve,
		Threshold: policy.MinCashReservePct,
	}
}

func checkCorrelation(ctx Context) CheckResult {
	count := 0
	for _, h := range ctx.Holdings {
		if h.Correlation30D >= policy.CorrelationThreshold {
			count++
		}
	}
	passed := count < policy.MaxCorrelatedPositions
	detail := fmt.Sprintf("30日相关系数≥%.2f 的持仓 %d 个，上限 %d 个",
		policy.CorrelationThreshold, count, policy.MaxCorrelatedPositions)
	return CheckResult{
		Name:      CheckCorrelation,
		Passed:    passed,
		Detail:    detail,
		Value:     float64(count),
		Threshold: float64(policy.MaxCorrelatedPositions),
	}
}

func checkStressCorrelation(ctx Context) CheckResult {
	count := 0
	worst := 0.0
	for _, h := range ctx.Holdings {
		if h.StressCorrelation >= policy.StressCorrelationThreshold {
			count++
		}
		if h.StressCorrelation > worst {
			worst = h.StressCorrelation
		}
	}
	passed := count == 0
	detail := fmt.Sprintf("压力相关系数≥%.2f 的持仓 %d 个（最高 %.2f），要求为 0",
		policy.StressCorrelationThreshold, count, worst)
	return CheckResult{
		Name:      CheckStressCorrelation,
		Passed:    passed,
		Detail:    detail,
		Value:     float64(count),
		Threshold: 0,
	}
}

func checkSectorConcentration(ctx Context) CheckResult {
	limit := policy.MaxSectorConcentration
	if custom, ok := ctx.SectorLimits[ctx.Sector]; ok && custom > 0 {
		limit = custom
	}

	existing := 0.0
	if ctx.PortfolioValue > 0 {
		for _, h := range ctx.Holdings {
			if h.Sector == ctx.Sector {
				existing += h.Value / ctx.PortfolioValue
			}
		}
	}
	total := existing + ctx.ProposedFraction

	passed := total <= limit
	detail := fmt.Sprintf("行业 %q 交易后敞口 %.2f%%，上限 %.2f%%", ctx.Sector, total*100, limit*100)
	return CheckResult{
		Name:      CheckSectorConcentration,
		Passed:    passed,
		Detail:    detail,
		Value:     total,
		Threshold: limit,
	}
}

func checkGapRisk(ctx Context) CheckResult {
	passed := ctx.GapRisk < policy.GapRiskThreshold
	detail := fmt.Sprintf("跳空风险评分 %.2f，上限 %.2f", ctx.GapRisk, policy.GapRiskThreshold)
	return CheckResult{
		Name:      CheckGapRisk,
		Passed:    passed,
		Detail:    detail,
		Value:     ctx.GapRisk,
		Threshold: policy.GapRiskThreshold,
	}
}

func checkModelDisagreement(ctx Context) CheckResult {
	passed := ctx.ModelStdDev <= policy.HighModelDisagreementThreshold
	detail := fmt.Sprintf("量化模型分歧 %.3f，上限 %.3f", ctx.ModelStdDev, policy.HighModelDisagreementThreshold)
	return CheckResult{
		Name:      CheckModelDisagreement,
		Passed:    passed,
		Detail:    detail,
		Value:     ctx.ModelStdDev,
		Threshold: policy.HighModelDisagreementThreshold,
	}
}
