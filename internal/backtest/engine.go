// Package backtest 以确定性方式回放历史行情与交易信号。
// 仓位与滑点计算复用实盘路径的同一套函数，保证两侧口径一致。
package backtest

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"tradecore/internal/arbiter"
	"tradecore/internal/execution"
)

// Bar 为一根日线行情。
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// SignalSide 表示信号方向。
type SignalSide string

const (
	SignalBuy  SignalSide = "BUY"
	SignalSell SignalSide = "SELL"
)

// Signal 为一条交易信号。仓位参数沿用实盘仓位公式的输入。
type Signal struct {
	Date             time.Time  `json:"date"`
	Side             SignalSide `json:"side"`
	Confidence       float64    `json:"confidence"`
	StdDev           float64    `json:"std_dev"`
	HighDisagreement bool       `json:"high_disagreement"`
}

// EquityPoint 为权益曲线上的一个采样点。
type EquityPoint struct {
	Date     time.Time `json:"date"`
	Equity   float64   `json:"equity"`
	Cash     float64   `json:"cash"`
	Invested float64   `json:"invested"`
}

// Trade 为一笔完整的买入卖出往返。
type Trade struct {
	EntryDate  time.Time `json:"entry_date"`
	ExitDate   time.Time `json:"exit_date"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	Quantity   int64     `json:"quantity"`
	PnL        float64   `json:"pnl"`
}

// Result 为一次回测的完整产物，返回后不可修改。
type Result struct {
	InitialCapital float64       `json:"initial_capital"`
	FinalEquity    float64       `json:"final_equity"`
	EquityCurve    []EquityPoint `json:"equity_curve"`
	Trades         []Trade       `json:"trades"`
	Metrics        Metrics       `json:"metrics"`
	Notes          []string      `json:"notes,omitempty"`
}

// volumeWindow 计算日均成交量时回看的根数。
const volumeWindow = 20

// Engine 执行单标的的逐日回放。
type Engine struct {
	initialCapital float64
	logger         *zap.Logger
}

// NewEngine 创建回测引擎。
func NewEngine(initialCapital float64, logger *zap.Logger) (*Engine, error) {
	if initialCapital <= 0 {
		return nil, fmt.Errorf("backtest: 初始资金必须为正，目前为 %f", initialCapital)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{initialCapital: initialCapital, logger: logger}, nil
}

// Run 逐日回放行情与信号。
// 信号日期必须是行情日期的子集，否则构成前视偏差，立即报错。
// 零信号依然产出合法结果：权益曲线长度等于行情根数，交易指标全部为中性零值。
func (e *Engine) Run(bars []Bar, signals []Signal) (Result, error) {
	if len(bars) == 0 {
		return Result{}, fmt.Errorf("backtest: 行情序列不能为空")
	}

	barIndex := make(map[time.Time]int, len(bars))
	for i, bar := range bars {
		barIndex[bar.Date] = i
	}

	signalsByDate := make(map[time.Time][]Signal, len(signals))
	for _, sig := range signals {
		if _, ok := barIndex[sig.Date]; !ok {
			return Result{}, fmt.Errorf("backtest: 信号日期 %s 不在行情序列中", sig.Date.Format("2006-01-02"))
		}
		signalsByDate[sig.Date] = append(signalsByDate[sig.Date], sig)
	}

	result := Result{
		InitialCapital: e.initialCapital,
		EquityCurve:    make([]EquityPoint, 0, len(bars)),
		Trades:         make([]Trade, 0),
		Notes:          make([]string, 0),
	}

	cash := e.initialCapital
	var positionQty int64
	var entryPrice float64
	var entryDate time.Time

	for i, bar := range bars {
		for _, sig := range signalsByDate[bar.Date] {
			switch sig.Side {
			case SignalBuy:
				equity := cash + float64(positionQty)*bar.Close
				fraction := arbiter.PositionSize(sig.Confidence, sig.StdDev, sig.HighDisagreement)
				quantity := int64(math.Floor(fraction * equity / bar.Close))
				if quantity <= 0 {
					continue
				}

				slippage := execution.EstimateSlippage(quantity, averageVolume(bars, i))
				fillPrice := execution.ApplySlippage(bar.Close, slippage, true)
				cost := float64(quantity) * fillPrice
				if cost > cash {
					result.Notes = append(result.Notes,
						fmt.Sprintf("%s 现金不足，买入被拒绝", bar.Date.Format("2006-01-02")))
					continue
				}

				// 加仓时按成本加权更新持仓均价。
				totalCost := entryPrice*float64(positionQty) + cost
				positionQty += quantity
				entryPrice = totalCost / float64(positionQty)
				if entryDate.IsZero() {
					entryDate = bar.Date
				}
				cash -= cost

			case SignalSell:
				if positionQty <= 0 {
					result.Notes = append(result.Notes,
						fmt.Sprintf("%s 无持仓，卖出被忽略", bar.Date.Format("2006-01-02")))
					continue
				}

				slippage := execution.EstimateSlippage(positionQty, averageVolume(bars, i))
				fillPrice := execution.ApplySlippage(bar.Close, slippage, false)
				proceeds := float64(positionQty) * fillPrice
				cash += proceeds

				result.Trades = append(result.Trades, Trade{
					EntryDate:  entryDate,
					ExitDate:   bar.Date,
					EntryPrice: entryPrice,
					ExitPrice:  fillPrice,
					Quantity:   positionQty,
					PnL:        proceeds - entryPrice*float64(positionQty),
				})
				positionQty = 0
				entryPrice = 0
				entryDate = time.Time{}

			default:
				return Result{}, fmt.Errorf("backtest: 非法信号方向 %q", sig.Side)
			}
		}

		invested := float64(positionQty) * bar.Close
		result.EquityCurve = append(result.EquityCurve, EquityPoint{
			Date:     bar.Date,
			Equity:   cash + invested,
			Cash:     cash,
			Invested: invested,
		})
	}

	result.FinalEquity = result.EquityCurve[len(result.EquityCurve)-1].Equity
	result.Metrics = calculateMetrics(result.EquityCurve, result.Trades, e.initialCapital)

	e.logger.Info("回测完成",
		zap.Int("bars", len(bars)),
		zap.Int("trades", len(result.Trades)),
		zap.Float64("final_equity", result.FinalEquity),
	)
	return result, nil
}

// averageVolume 取当前根之前（含当前根）最多 volumeWindow 根的平均成交量。
func averageVolume(bars []Bar, index int) float64 {
	start := index - volumeWindow + 1
	if start < 0 {
		start = 0
	}
	window := bars[start : index+1]
	total := 0.0
	for _, bar := range window {
		total += bar.Volume
	}
	return total / float64(len(window))
}
