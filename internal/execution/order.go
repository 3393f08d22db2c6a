package execution

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"tradecore/internal/pretrade"
	"tradecore/internal/risk"
)

// State 表示订单生命周期状态。
type State string

const (
	StateSubmitted       State = "SUBMITTED"
	StatePending         State = "PENDING"
	StateFilled          State = "FILLED"
	StatePartiallyFilled State = "PARTIALLY_FILLED"
	StateRejected        State = "REJECTED"
	StateExpired         State = "EXPIRED"
	StateCancelled       State = "CANCELLED"
)

// legalTransitions 为订单状态机的完整合法迁移表。
// FILLED/REJECTED/EXPIRED/CANCELLED 为终态，无任何出边。
var legalTransitions = map[State][]State{
	StateSubmitted:       {StatePending, StateRejected},
	StatePending:         {StateFilled, StatePartiallyFilled, StateRejected, StateExpired, StateCancelled},
	StatePartiallyFilled: {StateFilled, StateCancelled},
	StateFilled:          {},
	StateRejected:        {},
	StateExpired:         {},
	StateCancelled:       {},
}

// Terminal 返回该状态是否为终态。
func (s State) Terminal() bool {
	return len(legalTransitions[s]) == 0
}

// canTransition 判断 from → to 是否在合法迁移表中。
func canTransition(from, to State) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// InvalidTransitionError 表示一次非法的状态迁移请求。
// 属于调用方使用错误，必须立即失败，禁止静默纠正。
type InvalidTransitionError struct {
	OrderID string
	From    State
	To      State
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("订单 %s 非法状态迁移: %s -> %s", e.OrderID, e.From, e.To)
}

// TransitionRecord 为一次状态迁移的不可变审计记录。
type TransitionRecord struct {
	From      State     `json:"from"`
	To        State     `json:"to"`
	Timestamp time.Time `json:"timestamp"`
	Reason    string    `json:"reason"`
}

// Order 表示一笔由执行子系统独占管理的订单。
// 创建后除 Transition 外禁止直接修改状态字段。
type Order struct {
	ID             string             `json:"id"`
	Ticker         string             `json:"ticker"`
	Side           pretrade.Side      `json:"side"`
	Quantity       int64              `json:"quantity"`
	Price          float64            `json:"price"`
	State          State              `json:"state"`
	BrokerOrderID  string             `json:"broker_order_id,omitempty"`
	FillPrice      float64            `json:"fill_price"`
	FilledQuantity int64              `json:"filled_quantity"`
	Slippage       float64            `json:"slippage"`
	RiskResult     risk.Result        `json:"risk_result"`
	PreTradeResult pretrade.Result    `json:"pretrade_result"`
	History        []TransitionRecord `json:"history"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// NewOrder 创建处于 SUBMITTED 初始态的订单。
func NewOrder(ticker string, side pretrade.Side, quantity int64, price float64) *Order {
	now := time.Now().UTC()
	return &Order{
		ID:        uuid.NewString(),
		Ticker:    ticker,
		Side:      side,
		Quantity:  quantity,
		Price:     price,
		State:     StateSubmitted,
		History:   make([]TransitionRecord, 0, 4),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Transition 执行一次状态迁移并追加审计记录。
// 迁移不在合法表中时返回 *InvalidTransitionError，订单保持原状。
func (o *Order) Transition(to State, reason string) error {
	if !canTransition(o.State, to) {
		return &InvalidTransitionError{OrderID: o.ID, From: o.State, To: to}
	}

	now := time.Now().UTC()
	o.History = append(o.History, TransitionRecord{
		From:      o.State,
		To:        to,
		Timestamp: now,
		Reason:    reason,
	})
	o.State = to
	o.UpdatedAt = now
	return nil
}
