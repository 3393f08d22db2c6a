package monitor

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tradecore/internal/backtest"
	"tradecore/internal/execution"
	"tradecore/internal/pipeline"
	"tradecore/internal/store"
)

// Service 负责持久化决策记录、订单与回测产物。
// 核心组件只产出内存结构，所有落库都经由本服务。
type Service struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewService 初始化监控服务，创建所需表结构。
func NewService(store *store.Store, logger *zap.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("monitor: store 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		db:     store.DB(),
		logger: logger,
	}

	if err := s.initSchema(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Service) initSchema() error {
	stmt := `
CREATE TABLE IF NOT EXISTS monitor_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	event_type TEXT NOT NULL,
	payload TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_monitor_events_type ON monitor_events(event_type);

CREATE TABLE IF NOT EXISTS decisions (
	id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	ticker TEXT NOT NULL,
	action TEXT NOT NULL,
	size_fraction REAL NOT NULL,
	requires_human INTEGER NOT NULL,
	record TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_decisions_ticker ON decisions(ticker);
`
	if _, err := s.db.Exec(stmt); err != nil {
		return fmt.Errorf("monitor: 初始化表失败: %w", err)
	}
	return nil
}

// Record 写入单个事件。
func (s *Service) Record(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("monitor: 序列化事件失败: %w", err)
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO monitor_events (event_type, payload, created_at) VALUES (?, ?, ?)`,
		string(event.Type), string(payload), event.Timestamp.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("monitor: 写入事件失败: %w", err)
	}

	return nil
}

// RecordDecision 持久化决策记录，同时写入事件流与决策主表。
func (s *Service) RecordDecision(ctx context.Context, record *pipeline.DecisionRecord) {
	if record == nil {
		return
	}

	if err := s.Record(ctx, Event{
		Type:      EventDecision,
		Timestamp: record.Timestamp,
		Payload:   DecisionPayload{Record: *record},
	}); err != nil {
		s.logger.Warn("记录决策事件失败", zap.Error(err))
	}

	payload, err := json.Marshal(record)
	if err != nil {
		s.logger.Warn("序列化决策记录失败", zap.Error(err))
		return
	}

	requiresHuman := 0
	if record.Final.RequiresHuman {
		requiresHuman = 1
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO decisions (id, run_id, ticker, action, size_fraction, requires_human, record, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.RunID, record.Ticker, string(record.Final.Action),
		record.Final.SizeFraction, requiresHuman, string(payload),
		record.Timestamp.Format(time.RFC3339),
	)
	if err != nil {
		s.logger.Warn("写入决策主表失败", zap.Error(err))
	}
}

// RecordOrder 记录订单及其完整状态迁移历史。
func (s *Service) RecordOrder(ctx context.Context, order *execution.Order) {
	if order == nil {
		return
	}
	if err := s.Record(ctx, Event{
		Type:      EventOrder,
		Timestamp: order.UpdatedAt,
		Payload:   OrderPayload{Order: *order},
	}); err != nil {
		s.logger.Warn("记录订单事件失败", zap.Error(err))
	}
}

// RecordBacktest 记录一次回测产物。
func (s *Service) RecordBacktest(ctx context.Context, ticker string, result backtest.Result) {
	if err := s.Record(ctx, Event{
		Type:      EventBacktestRun,
		Timestamp: time.Now().UTC(),
		Payload:   BacktestPayload{Ticker: ticker, Result: result},
	}); err != nil {
		s.logger.Warn("记录回测事件失败", zap.Error(err))
	}
}

// RecordError 记录异常。
func (s *Service) RecordError(ctx context.Context, msg string, err error, ctxMap map[string]interface{}) {
	payload := ErrorPayload{
		Message: msg,
		Error:   err.Error(),
		Context: ctxMap,
	}
	if recErr := s.Record(ctx, Event{
		Type:      EventError,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}); recErr != nil {
		s.logger.Warn("记录异常事件失败", zap.Error(recErr))
	}
}

// DecisionSummary 为决策主表的一行摘要。
type DecisionSummary struct {
	ID            string    `json:"id"`
	RunID         string    `json:"run_id"`
	Ticker        string    `json:"ticker"`
	Action        string    `json:"action"`
	SizeFraction  float64   `json:"size_fraction"`
	RequiresHuman bool      `json:"requires_human"`
	CreatedAt     time.Time `json:"created_at"`
}

// ListDecisions 按时间倒序检索最近决策摘要。
func (s *Service) ListDecisions(ctx context.Context, ticker string, limit int) ([]DecisionSummary, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT id, run_id, ticker, action, size_fraction, requires_human, created_at FROM decisions`
	args := make([]interface{}, 0, 2)
	if ticker != "" {
		query += ` WHERE ticker = ?`
		args = append(args, ticker)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("monitor: 查询决策失败: %w", err)
	}
	defer rows.Close()

	summaries := make([]DecisionSummary, 0, limit)
	for rows.Next() {
		var (
			summary       DecisionSummary
			requiresHuman int
			created       string
		)
		if scanErr := rows.Scan(&summary.ID, &summary.RunID, &summary.Ticker,
			&summary.Action, &summary.SizeFraction, &requiresHuman, &created); scanErr != nil {
			return nil, fmt.Errorf("monitor: 解析决策失败: %w", scanErr)
		}
		summary.RequiresHuman = requiresHuman != 0
		if ts, parseErr := time.Parse(time.RFC3339, created); parseErr == nil {
			summary.CreatedAt = ts
		}
		summaries = append(summaries, summary)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("monitor: 读取决策失败: %w", err)
	}

	return summaries, nil
}

// GetDecision 按 ID 取回完整决策记录。
func (s *Service) GetDecision(ctx context.Context, id string) (*pipeline.DecisionRecord, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT record FROM decisions WHERE id = ?`, id,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("monitor: 决策 %s 不存在", id)
	}
	if err != nil {
		return nil, fmt.Errorf("monitor: 查询决策失败: %w", err)
	}

	var record pipeline.DecisionRecord
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		return nil, fmt.Errorf("monitor: 反序列化决策失败: %w", err)
	}
	return &record, nil
}

// ListEvents 按类型检索最近事件。
func (s *Service) ListEvents(ctx context.Context, eventType EventType, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT event_type, payload, created_at FROM monitor_events`
	args := make([]interface{}, 0, 2)
	if eventType != "" {
		query += ` WHERE event_type = ?`
		args = append(args, string(eventType))
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("monitor: 查询事件失败: %w", err)
	}
	defer rows.Close()

	events := make([]Event, 0, limit)
	for rows.Next() {
		var (
			typ     string
			payload string
			created string
		)
		if scanErr := rows.Scan(&typ, &payload, &created); scanErr != nil {
			return nil, fmt.Errorf("monitor: 解析事件失败: %w", scanErr)
		}

		ts, parseErr := time.Parse(time.RFC3339, created)
		if parseErr != nil {
			ts = time.Now().UTC()
		}

		events = append(events, Event{
			Type:      EventType(typ),
			Timestamp: ts,
			Payload:   json.RawMessage(payload),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("monitor: 读取事件失败: %w", err)
	}

	return events, nil
}
