package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"crypto-scalp-trader/internal/api"
	"crypto-scalp-trader/internal/ledger"
	"crypto-scalp-trader/internal/recorder"
	"crypto-scalp-trader/internal/risk"
	"crypto-scalp-trader/internal/screener"
	"crypto-scalp-trader/internal/service"
	"crypto-scalp-trader/internal/session"
	"crypto-scalp-trader/internal/strategy"
	"crypto-scalp-trader/pkg/ta"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	service.InitLogger()
	defer service.Logger.Sync()

	// API 凭证放 .env，不进配置文件
	if err := godotenv.Load(); err != nil {
		service.Logger.Warn("No .env file found, relying on process environment")
	}

	configPath := "config"
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		service.Logger.Fatal("Configuration directory 'config/' not found. Please create it.")
	}
	cfg, err := service.LoadConfig(configPath)
	if err != nil {
		service.Logger.Fatal("Failed to load config", zap.Error(err))
	}
	if err := cfg.Validate(); err != nil {
		service.Logger.Fatal("Invalid configuration", zap.Error(err))
	}

	sugar := service.Logger.Sugar()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. 订单/行情网关
	gateway := api.NewRestClient(cfg.Exchange.RESTURL, cfg.Exchange.APIKey, cfg.Exchange.SecretKey, sugar)

	// 2. 准入筛选：REST 拉一次种子数据，之后由 WS 行情流持续刷新
	scr := screener.NewScreener(
		cfg.Screener.MinQuoteVolume,
		cfg.Screener.MinPriceMovementPct,
		cfg.Screener.MaxStale,
		sugar,
	)
	if stats, err := gateway.GetTickerStats(ctx, cfg.Trading.Symbols); err != nil {
		service.Logger.Warn("Initial ticker stats fetch failed, symbols start ineligible", zap.Error(err))
	} else {
		scr.Seed(stats)
	}

	connector := api.NewConnector(cfg.Exchange.WSURL, cfg.Trading.Symbols)
	go connector.Start()
	go scr.Run(connector.GetStatsChannel())

	// 3. 指标、信号、仓位、风控
	calc := ta.NewCalculator(cfg.Strategy.RSIPeriod, cfg.Strategy.EMAFast, cfg.Strategy.EMASlow, sugar)
	eval := strategy.NewEvaluator(cfg.Strategy.RSIOversold, cfg.Strategy.RSIOverbought, sugar)
	led := ledger.NewLedger(ledger.Options{
		StopLossPct:         cfg.Trading.StopLossPct,
		TakeProfitPct:       cfg.Trading.TakeProfitPct,
		MaxPositions:        cfg.Trading.MaxPositions,
		TrailingStopEnabled: cfg.Exit.TrailingStopEnabled,
		TrailingStopPct:     cfg.Exit.TrailingStopPct,
		MaxHoldTime:         cfg.Exit.MaxHoldTime,
	}, sugar)
	governor := risk.NewGovernor(cfg.Risk.MaxDailyTrades, cfg.Trading.InitialInvestment, cfg.Risk.MaxDailyLossPct, sugar)

	// 4. 成交记录出口
	rec, err := recorder.NewRecorder(cfg.Recorder.TradeLogPath, sugar)
	if err != nil {
		service.Logger.Fatal("Failed to open trade recorder", zap.Error(err))
	}
	defer rec.Close()
	governor.OnUpdate = rec.RecordRiskCounters

	// 5. 主循环
	loop := session.NewLoop(cfg, gateway, scr, calc, eval, led, governor, rec, sugar)
	if err := loop.Run(ctx); err != nil && ctx.Err() == nil {
		service.Logger.Fatal("Session loop exited", zap.Error(err))
	}
}
