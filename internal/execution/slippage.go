package execution

import "tradecore/internal/policy"

// EstimateSlippage 估算滑点比例：基础滑点加上与日均成交量占比成正比的冲击成本。
// 回测引擎与实盘执行共用该模型，保证两侧成交假设一致。
func EstimateSlippage(quantity int64, avgDailyVolume float64) float64 {
	slippage := policy.SlippageBasePct
	if avgDailyVolume > 0 && quantity > 0 {
		participation := float64(quantity) / avgDailyVolume
		slippage += policy.SlippageImpactCoeff * participation
	}
	if slippage > policy.SlippageMaxPct {
		slippage = policy.SlippageMaxPct
	}
	return slippage
}

// ApplySlippage 按方向把滑点折算进成交价：买入抬价，卖出压价。
func ApplySlippage(price, slippage float64, buy bool) float64 {
	if buy {
		return price * (1 + slippage)
	}
	return price * (1 - slippage)
}
