// Package pretrade 实现订单层面的交易前校验。
// 与 internal/risk 完全隔离：风控看组合，本包只看订单本身。
// 四项校验按固定顺序全部执行，结果是纯值，从不抛错。
package pretrade

import (
	"fmt"

	"go.uber.org/zap"

	"tradecore/internal/policy"
)

const (
	CheckQuantitySanity    = "quantity_sanity"
	CheckDuplicateOrder    = "duplicate_detection"
	CheckPortfolioImpact   = "portfolio_impact"
	CheckDollarSanity      = "dollar_sanity"
)

// Validator 执行交易前校验。
type Validator struct {
	logger *zap.Logger
}

// NewValidator 创建校验器。
func NewValidator(logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{logger: logger}
}

// Validate 对给定订单请求执行四项校验并返回完整结果。
func (v *Validator) Validate(ctx Context) Result {
	checks := []CheckResult{
		checkQuantitySanity(ctx),
		checkDuplicate(ctx),
		checkPortfolioImpact(ctx),
		checkDollarSanity(ctx),
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
		v.logger.Info("交易前校验未通过",
			zap.String("ticker", ctx.Ticker),
			zap.Strings("failed_checks", result.FailedChecks),
		)
	}

	return result
}

func checkQuantitySanity(ctx Context) CheckResult {
	passed := ctx.Quantity > 0 && ctx.Quantity <= policy.MaxOrderQuantity
	detail := fmt.Sprintf("订单数量 %d，合法区间 (0, %d]", ctx.Quantity, int64(policy.MaxOrderQuantity))
	return CheckResult{
		Name:      CheckQuantitySanity,
		Passed:    passed,
		Severity:  SeverityError,
		Detail:    detail,
		Value:     float64(ctx.Quantity),
		Threshold: policy.MaxOrderQuantity,
	}
}

func checkDuplicate(ctx Context) CheckResult {
	windowStart := ctx.Now.Add(-policy.DuplicateOrderWindow)
	duplicates := 0
	for _, stamp := range ctx.RecentOrders {
		if stamp.Ticker != ctx.Ticker || stamp.Side != ctx.Side {
			continue
		}
		if stamp.PlacedAt.After(windowStart) && !stamp.PlacedAt.After(ctx.Now) {
			duplicates++
		}
	}
	passed := duplicates == 0
	detail := fmt.Sprintf("近 %s 内同标的同方向订单 %d 笔，要求为 0", policy.DuplicateOrderWindow, duplicates)
	return CheckResult{
		Name:      CheckDuplicateOrder,
		Passed:    passed,
		Severity:  SeverityError,
		Detail:    detail,
		Value:     float64(duplicates),
		Threshold: 0,
	}
}

// checkPortfolioImpact 是告警级检查：超限同样计为失败，
// 但 Severity 标记为 warn，供下游审计时区分硬性限制。
func checkPortfolioImpact(ctx Context) CheckResult {
	value := float64(ctx.Quantity) * ctx.Price
	impact := 0.0
	if ctx.PortfolioValue > 0 {
		impact = value / ctx.PortfolioValue
	}
	passed := impact <= policy.PortfolioImpactPct
	detail := fmt.Sprintf("单笔金额占组合 %.2f%%，告警阈值 %.2f%%", impact*100, policy.PortfolioImpactPct*100)
	return CheckResult{
		Name:      CheckPortfolioImpact,
		Passed:    passed,
		Severity:  SeverityWarn,
		Detail:    detail,
		Value:     impact,
		Threshold: policy.PortfolioImpactPct,
	}
}

func checkDollarSanity(ctx Context) CheckResult {
	value := float64(ctx.Quantity) * ctx.Price
	limit := policy.MaxPositionPct * ctx.PortfolioValue
	passed := value <= limit
	detail := fmt.Sprintf("单笔金额 %.2f，上限 %.2f", value, limit)
	return CheckResult{
		Name:      CheckDollarSanity,
		Passed:    passed,
		Severity:  SeverityError,
		Detail:    detail,
		Value:     value,
		Threshold: limit,
	}
}
