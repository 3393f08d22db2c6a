package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"tradecore/internal/backtest"
	"tradecore/internal/config"
	"tradecore/internal/log"
	"tradecore/internal/monitor"
	"tradecore/internal/store"
)

func main() {
	var (
		configPath string
		ticker     string
		seed       int64
		interval   int
		persist    bool
	)
	flag.StringVar(&configPath, "config", "", "配置文件路径，默认使用 configs/config.yaml")
	flag.StringVar(&ticker, "ticker", "SYNTH", "回测标的名称")
	flag.Int64Var(&seed, "seed", 42, "合成行情随机种子，同一种子结果可复现")
	flag.IntVar(&interval, "interval", 5, "合成信号最小间隔天数")
	flag.BoolVar(&persist, "persist", false, "是否把回测结果写入数据库")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger, err := log.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	engine, err := backtest.NewEngine(cfg.Backtest.InitialCapital, logger)
	if err != nil {
		logger.Error("初始化回测引擎失败", zap.Error(err))
		os.Exit(1)
	}

	start := time.Now().UTC().AddDate(0, 0, -cfg.Backtest.BarLimit)
	bars := backtest.GenerateBars(seed, cfg.Backtest.BarLimit, 100, start)
	signals := backtest.GenerateSignals(seed, bars, interval)

	result, err := engine.Run(bars, signals)
	if err != nil {
		logger.Error("回测执行失败", zap.Error(err))
		os.Exit(1)
	}

	if persist {
		sqliteStore, err := store.NewSQLite(cfg.Database)
		if err != nil {
			logger.Error("初始化数据库失败", zap.Error(err))
			os.Exit(1)
		}
		defer func() {
			_ = sqliteStore.Close()
		}()

		monitorSvc, err := monitor.NewService(sqliteStore, logger)
		if err != nil {
			logger.Error("初始化监控服务失败", zap.Error(err))
			os.Exit(1)
		}
		monitorSvc.RecordBacktest(context.Background(), ticker, result)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result.Metrics); err != nil {
		logger.Error("输出回测指标失败", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("回测完成",
		zap.String("ticker", ticker),
		zap.Int("trades", len(result.Trades)),
		zap.Float64("final_equity", result.FinalEquity),
	)
}
