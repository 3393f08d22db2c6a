package execution

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"tradecore/internal/arbiter"
	"tradecore/internal/pretrade"
	"tradecore/internal/risk"
)

// Plan 描述一次待执行的交易目标。
type Plan struct {
	Ticker         string
	Action         arbiter.Action
	SizeFraction   float64
	MarketPrice    float64
	PortfolioValue float64
	AvgDailyVolume float64
	RiskResult     risk.Result
	PreTradeResult pretrade.Result
}

// Result 为一次执行的结果摘要。
type Result struct {
	Order         *Order
	Executed      bool
	ExecutionTime time.Time
	Notes         []string
}

// Broker 抽象订单提交通道，模拟盘与实盘各自实现。
type Broker interface {
	Submit(ctx context.Context, order *Order) error
}

// Executor 把仲裁决策转化为订单并驱动其生命周期。
type Executor struct {
	broker Broker
	logger *zap.Logger
}

// NewExecutor 创建执行器。
func NewExecutor(broker Broker, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{broker: broker, logger: logger}
}

// BuildOrder 根据执行计划创建初始订单。
// 仅 BUY/SELL 且仓位比例为正时产生订单，其余动作返回 nil。
func (e *Executor) BuildOrder(plan Plan) (*Order, error) {
	if plan.Action != arbiter.ActionBuy && plan.Action != arbiter.ActionSell {
		return nil, nil
	}
	if plan.SizeFraction <= 0 {
		return nil, nil
	}
	if plan.MarketPrice <= 0 {
		return nil, fmt.Errorf("市场价格非法: %f", plan.MarketPrice)
	}

	quantity := int64(math.Floor(plan.SizeFraction * plan.PortfolioValue / plan.MarketPrice))
	if quantity <= 0 {
		return nil, nil
	}

	side := pretrade.SideBuy
	if plan.Action == arbiter.ActionSell {
		side = pretrade.SideSell
	}

	order := NewOrder(plan.Ticker, side, quantity, plan.MarketPrice)
	order.Slippage = EstimateSlippage(quantity, plan.AvgDailyVolume)
	order.RiskResult = plan.RiskResult
	order.PreTradeResult = plan.PreTradeResult
	return order, nil
}

// Execute 提交订单并等待经纪通道驱动其走完生命周期。
func (e *Executor) Execute(ctx context.Context, order *Order) (Result, error) {
	result := Result{
		Order:         order,
		ExecutionTime: time.Now().UTC(),
		Notes:         make([]string, 0),
	}
	if order == nil {
		result.Notes = append(result.Notes, "无订单需要执行")
		return result, nil
	}

	if err := e.broker.Submit(ctx, order); err != nil {
		result.Notes = append(result.Notes, fmt.Sprintf("下单失败: %v", err))
		return result, err
	}

	result.Executed = order.State == StateFilled || order.State == StatePartiallyFilled
	e.logger.Info("订单执行完成",
		zap.String("order_id", order.ID),
		zap.String("ticker", order.Ticker),
		zap.String("state", string(order.State)),
		zap.Float64("fill_price", order.FillPrice),
	)
	return result, nil
}

// SimulatedBroker 以共享滑点模型立即全量成交订单。
type SimulatedBroker struct {
	logger *zap.Logger
}

// NewSimulatedBroker 创建模拟经纪通道。
func NewSimulatedBroker(logger *zap.Logger) *SimulatedBroker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SimulatedBroker{logger: logger}
}

// Submit 驱动订单 SUBMITTED → PENDING → FILLED，成交价计入滑点。
func (b *SimulatedBroker) Submit(ctx context.Context, order *Order) error {
	if order == nil {
		return errors.New("订单不能为空")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := order.Transition(StatePending, "模拟经纪接受订单"); err != nil {
		return err
	}

	order.BrokerOrderID = "sim-" + order.ID
	order.FillPrice = ApplySlippage(order.Price, order.Slippage, order.Side == pretrade.SideBuy)
	order.FilledQuantity = order.Quantity

	if err := order.Transition(StateFilled, "模拟撮合全量成交"); err != nil {
		return err
	}

	b.logger.Debug("模拟成交",
		zap.String("order_id", order.ID),
		zap.Float64("fill_price", order.FillPrice),
		zap.Float64("slippage", order.Slippage),
	)
	return nil
}
