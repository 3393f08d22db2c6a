package app

import (
	"context"
	"sync"
	"time"

	"tradecore/internal/execution"
	"tradecore/internal/pipeline"
	"tradecore/internal/pretrade"
	"tradecore/internal/risk"
)

type paperHolding struct {
	quantity  int64
	lastPrice float64
	sector    string
}

// paperPortfolio 为模拟账户，跟踪现金、持仓与近期订单指纹。
// 决策流水线只读快照，成交回报通过 ApplyFill 写回。
type paperPortfolio struct {
	mu           sync.Mutex
	cash         float64
	holdings     map[string]paperHolding
	sectors      map[string]string
	recentOrders []pretrade.OrderStamp
}

func newPaperPortfolio(initialCapital float64, sectors map[string]string) *paperPortfolio {
	return &paperPortfolio{
		cash:     initialCapital,
		holdings: make(map[string]paperHolding),
		sectors:  sectors,
	}
}

// Snapshot 构造一次性组合快照，供风控与交易前校验使用。
func (p *paperPortfolio) Snapshot(ctx context.Context, ticker string) (pipeline.PortfolioSnapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pruneOrdersLocked(time.Now().UTC())

	holdings := make([]risk.HoldingSnapshot, 0, len(p.holdings))
	value := p.cash
	for symbol, holding := range p.holdings {
		marketValue := float64(holding.quantity) * holding.lastPrice
		value += marketValue
		if symbol == ticker {
			continue
		}
		holdings = append(holdings, risk.HoldingSnapshot{
			Ticker: symbol,
			Value:  marketValue,
			Sector: holding.sector,
		})
	}

	return pipeline.PortfolioSnapshot{
		Value:        value,
		Cash:         p.cash,
		Holdings:     holdings,
		RecentOrders: append([]pretrade.OrderStamp(nil), p.recentOrders...),
	}, nil
}

// MarkPrice 更新持仓市价。
func (p *paperPortfolio) MarkPrice(ticker string, price float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	holding, ok := p.holdings[ticker]
	if !ok {
		return
	}
	holding.lastPrice = price
	p.holdings[ticker] = holding
}

// ApplyFill 把成交写回账户并登记订单指纹。
func (p *paperPortfolio) ApplyFill(order *execution.Order) {
	if order == nil || order.FilledQuantity <= 0 {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	amount := float64(order.FilledQuantity) * order.FillPrice
	holding := p.holdings[order.Ticker]
	holding.lastPrice = order.FillPrice
	holding.sector = p.sectors[order.Ticker]

	if order.Side == pretrade.SideBuy {
		p.cash -= amount
		holding.quantity += order.FilledQuantity
	} else {
		p.cash += amount
		holding.quantity -= order.FilledQuantity
	}

	if holding.quantity <= 0 {
		delete(p.holdings, order.Ticker)
	} else {
		p.holdings[order.Ticker] = holding
	}

	p.recentOrders = append(p.recentOrders, pretrade.OrderStamp{
		Ticker:   order.Ticker,
		Side:     order.Side,
		PlacedAt: order.UpdatedAt,
	})
}

// pruneOrdersLocked 丢弃早于去重窗口两倍的历史指纹，防止无界增长。
func (p *paperPortfolio) pruneOrdersLocked(now time.Time) {
	cutoff := now.Add(-10 * time.Minute)
	kept := p.recentOrders[:0]
	for _, stamp := range p.recentOrders {
		if stamp.PlacedAt.After(cutoff) {
			kept = append(kept, stamp)
		}
	}
	p.recentOrders = kept
}
