package config

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
)

// Config 聚合了系统运行所需的全部配置项。
// 注意：风控阈值与陪审团规模等受保护常量位于 internal/policy，不在配置范围内。
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Exchange  ExchangeConfig  `mapstructure:"exchange"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Execution ExecutionConfig `mapstructure:"execution"`
	Backtest  BacktestConfig  `mapstructure:"backtest"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// AppConfig 控制应用级参数。
type AppConfig struct {
	Environment string   `mapstructure:"environment"`
	Tickers     []string `mapstructure:"tickers"`
	// Sectors 为标的到行业的映射，用于行业集中度检查。
	Sectors map[string]string `mapstructure:"sectors"`
}

// ExchangeConfig 描述行情数据源连接信息。
type ExchangeConfig struct {
	Name       string      `mapstructure:"name"`
	APIKey     string      `mapstructure:"api_key"`
	APISecret  string      `mapstructure:"api_secret"`
	UseSandbox bool        `mapstructure:"use_sandbox"`
	Retry      RetryConfig `mapstructure:"retry"`
}

// RetryConfig 统一控制重试机制。
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	MinDelay    time.Duration `mapstructure:"min_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// OpenAIConfig 描述大模型调用参数。
type OpenAIConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// PipelineConfig 控制决策流水线的调用边界。
type PipelineConfig struct {
	CollaboratorTimeout time.Duration `mapstructure:"collaborator_timeout"`
	VoterTimeout        time.Duration `mapstructure:"voter_timeout"`
}

// ExecutionConfig 控制下单行为。
type ExecutionConfig struct {
	Simulation bool `mapstructure:"simulation"`
	// PaperCapital 为模拟账户的初始资金。
	PaperCapital float64 `mapstructure:"paper_capital"`
}

// BacktestConfig 定义回测默认参数。
type BacktestConfig struct {
	InitialCapital float64 `mapstructure:"initial_capital"`
	BarLimit       int     `mapstructure:"bar_limit"`
}

// DatabaseConfig 管理数据库连接。
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	InMemory        bool          `mapstructure:"in_memory"`
}

// LoggingConfig 控制日志输出。
type LoggingConfig struct {
	Level            string   `mapstructure:"level"`
	Encoding         string   `mapstructure:"encoding"`
	Development      bool     `mapstructure:"development"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// SchedulerConfig 控制主循环节奏。
type SchedulerConfig struct {
	LoopInterval     time.Duration `mapstructure:"loop_interval"`
	DecisionInterval time.Duration `mapstructure:"decision_interval"`
	MonitorPort      int           `mapstructure:"monitor_port"`
}

// Validate 对配置进行基本校验。
func (c *Config) Validate() error {
	var err error

	if c.App.Environment == "" {
		err = multierr.Append(err, errors.New("app.environment 不能为空"))
	}
	if len(c.App.Tickers) == 0 {
		err = multierr.Append(err, errors.New("app.tickers 至少包含一个标的"))
	}
	if c.Exchange.Name == "" {
		err = multierr.Append(err, errors.New("exchange.name 不能为空"))
	}
	if c.Exchange.Retry.MaxAttempts <= 0 {
		err = multierr.Append(err, errors.New("exchange.retry.max_attempts 必须大于0"))
	}
	if c.Exchange.Retry.MinDelay <= 0 || c.Exchange.Retry.MaxDelay <= 0 {
		err = multierr.Append(err, errors.New("exchange.retry.delay 必须为正"))
	}
	if c.Exchange.Retry.MinDelay > c.Exchange.Retry.MaxDelay {
		err = multierr.Append(err, errors.New("exchange.retry.min_delay 不能大于 max_delay"))
	}
	if c.OpenAI.APIKey == "" {
		err = multierr.Append(err, errors.New("openai.api_key 不能为空"))
	}
	if c.OpenAI.Model == "" {
		err = multierr.Append(err, errors.New("openai.model 不能为空"))
	}
	if c.OpenAI.Timeout <= 0 {
		err = multierr.Append(err, errors.New("openai.timeout 必须大于0"))
	}
	if c.Pipeline.CollaboratorTimeout <= 0 {
		err = multierr.Append(err, errors.New("pipeline.collaborator_timeout 必须大于0"))
	}
	if c.Pipeline.VoterTimeout <= 0 {
		err = multierr.Append(err, errors.New("pipeline.voter_timeout 必须大于0"))
	}
	if c.Pipeline.VoterTimeout > c.Pipeline.CollaboratorTimeout {
		err = multierr.Append(err, errors.New("pipeline.voter_timeout 不应大于 collaborator_timeout"))
	}
	if c.Execution.Simulation && c.Execution.PaperCapital <= 0 {
		err = multierr.Append(err, errors.New("execution.paper_capital 模拟模式下必须大于0"))
	}
	if c.Backtest.InitialCapital <= 0 {
		err = multierr.Append(err, errors.New("backtest.initial_capital 必须大于0"))
	}
	if c.Backtest.BarLimit <= 0 {
		err = multierr.Append(err, errors.New("backtest.bar_limit 必须大于0"))
	}
	if c.Database.Path == "" && !c.Database.InMemory {
		err = multierr.Append(err, errors.New("database.path 不能为空"))
	}
	if c.Database.MaxOpenConns <= 0 {
		err = multierr.Append(err, errors.New("database.max_open_conns 必须大于0"))
	}
	if c.Database.MaxIdleConns < 0 {
		err = multierr.Append(err, errors.New("database.max_idle_conns 不能为负"))
	}
	if c.Database.ConnMaxLifetime < 0 {
		err = multierr.Append(err, errors.New("database.conn_max_lifetime 不能为负"))
	}
	if c.Logging.Level == "" {
		err = multierr.Append(err, errors.New("logging.level 不能为空"))
	}
	if c.Logging.Encoding == "" {
		err = multierr.Append(err, errors.New("logging.encoding 不能为空"))
	}
	if len(c.Logging.OutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.output_paths 至少包含一个输出目标"))
	}
	if len(c.Logging.ErrorOutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.error_output_paths 至少包含一个输出目标"))
	}
	if c.Scheduler.LoopInterval <= 0 {
		err = multierr.Append(err, errors.New("scheduler.loop_interval 必须大于0"))
	}
	if c.Scheduler.DecisionInterval <= 0 {
		err = multierr.Append(err, errors.New("scheduler.decision_interval 必须大于0"))
	}
	if c.Scheduler.DecisionInterval < c.Scheduler.LoopInterval {
		err = multierr.Append(err, errors.New("scheduler.decision_interval 不应小于 loop_interval"))
	}
	if c.Scheduler.MonitorPort < 0 || c.Scheduler.MonitorPort > 65535 {
		err = multierr.Append(err, errors.New("scheduler.monitor_port 必须位于[0,65535]"))
	}

	if err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}

	return nil
}
