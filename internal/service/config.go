package service

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// ExchangeConfig 定义了交易所的连接信息
// API Key/Secret 不放在配置文件里，从环境变量读取（见 LoadConfig）
type ExchangeConfig struct {
	RESTURL   string
	WSURL     string
	APIKey    string
	SecretKey string
}

// TradingConfig 定义了交易对、轮询节奏和仓位参数
type TradingConfig struct {
	Symbols           []string
	Timeframe         string        // K 线周期，例如 "1m"
	PollInterval      time.Duration // 主循环轮询间隔
	InitialInvestment float64       // 初始本金 (USDT)，日内亏损上限的基准
	PositionSizePct   float64       // 单笔使用可用余额的比例，例如 0.2
	StopLossPct       float64       // 止损比例，例如 0.005
	TakeProfitPct     float64       // 止盈比例，例如 0.008
	MaxPositions      int           // 最大同时持仓数量
}

// StrategyConfig 定义了信号计算所需的指标参数
type StrategyConfig struct {
	RSIPeriod     int
	RSIOversold   float64
	RSIOverbought float64
	EMAFast       int
	EMASlow       int
	KlineLookback int // 每次拉取的 K 线数量，需覆盖最慢指标的预热期
}

// ScreenerConfig 定义了交易对准入的市场条件
type ScreenerConfig struct {
	MinQuoteVolume      float64       // 24h 最小成交额 (USDT)
	MinPriceMovementPct float64       // 24h 最小价格波动百分比（绝对值）
	MaxStale            time.Duration // 行情快照最大可容忍的过期时间
}

// RiskConfig 定义了日内风控预算
type RiskConfig struct {
	MaxDailyTrades  int
	MaxDailyLossPct float64 // 相对 InitialInvestment 的比例
}

// ExitConfig 定义了可选的离场变体（默认关闭）
type ExitConfig struct {
	TrailingStopEnabled bool
	TrailingStopPct     float64
	MaxHoldTime         time.Duration // >0 时启用：持仓超时且无盈利则强制离场
}

// RecorderConfig 定义了成交记录的落盘位置
type RecorderConfig struct {
	TradeLogPath string
}

type Config struct {
	Exchange ExchangeConfig `mapstructure:"Exchange"`
	Trading  TradingConfig  `mapstructure:"Trading"`
	Strategy StrategyConfig `mapstructure:"Strategy"`
	Screener ScreenerConfig `mapstructure:"Screener"`
	Risk     RiskConfig     `mapstructure:"Risk"`
	Exit     ExitConfig     `mapstructure:"Exit"`
	Recorder RecorderConfig `mapstructure:"Recorder"`
}

// LoadConfig 读取并解析配置文件，随后从环境变量注入 API 凭证
func LoadConfig(configPath string) (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configPath)

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.Exchange.APIKey = os.Getenv("BINANCE_API_KEY")
	cfg.Exchange.SecretKey = os.Getenv("BINANCE_API_SECRET")

	return &cfg, nil
}

// Validate 检查所有阈值。任何一项非法都应让进程在启动阶段直接退出。
func (c *Config) Validate() error {
	if len(c.Trading.Symbols) == 0 {
		return fmt.Errorf("trading.symbols must not be empty")
	}
	if c.Trading.Timeframe == "" {
		return fmt.Errorf("trading.timeframe is required")
	}
	if _, err := ParseIntervalDuration(c.Trading.Timeframe); err != nil {
		return fmt.Errorf("trading.timeframe: %w", err)
	}
	if c.Trading.PollInterval <= 0 {
		return fmt.Errorf("trading.poll_interval must be > 0")
	}
	if c.Trading.InitialInvestment <= 0 {
		return fmt.Errorf("trading.initial_investment must be > 0")
	}
	if c.Trading.PositionSizePct <= 0 || c.Trading.PositionSizePct > 1 {
		return fmt.Errorf("trading.position_size_pct must be in (0, 1]")
	}
	if c.Trading.StopLossPct <= 0 || c.Trading.StopLossPct >= 1 {
		return fmt.Errorf("trading.stop_loss_pct must be in (0, 1)")
	}
	if c.Trading.TakeProfitPct <= 0 {
		return fmt.Errorf("trading.take_profit_pct must be > 0")
	}
	if c.Trading.MaxPositions <= 0 {
		return fmt.Errorf("trading.max_positions must be > 0")
	}
	if c.Strategy.RSIPeriod <= 1 {
		return fmt.Errorf("strategy.rsi_period must be > 1")
	}
	if c.Strategy.RSIOversold <= 0 || c.Strategy.RSIOverbought >= 100 ||
		c.Strategy.RSIOversold >= c.Strategy.RSIOverbought {
		return fmt.Errorf("strategy rsi thresholds must satisfy 0 < oversold < overbought < 100")
	}
	if c.Strategy.EMAFast <= 0 || c.Strategy.EMASlow <= c.Strategy.EMAFast {
		return fmt.Errorf("strategy ema windows must satisfy 0 < fast < slow")
	}
	if c.Strategy.KlineLookback < c.Strategy.EMASlow || c.Strategy.KlineLookback < c.Strategy.RSIPeriod {
		return fmt.Errorf("strategy.kline_lookback must cover the slowest indicator window")
	}
	if c.Screener.MinQuoteVolume < 0 || c.Screener.MinPriceMovementPct < 0 {
		return fmt.Errorf("screener thresholds must be >= 0")
	}
	if c.Screener.MaxStale <= 0 {
		return fmt.Errorf("screener.max_stale must be > 0")
	}
	if c.Risk.MaxDailyTrades <= 0 {
		return fmt.Errorf("risk.max_daily_trades must be > 0")
	}
	if c.Risk.MaxDailyLossPct <= 0 || c.Risk.MaxDailyLossPct >= 1 {
		return fmt.Errorf("risk.max_daily_loss_pct must be in (0, 1)")
	}
	if c.Exit.TrailingStopEnabled && (c.Exit.TrailingStopPct <= 0 || c.Exit.TrailingStopPct >= 1) {
		return fmt.Errorf("exit.trailing_stop_pct must be in (0, 1) when trailing stop is enabled")
	}
	if c.Exit.MaxHoldTime < 0 {
		return fmt.Errorf("exit.max_hold_time must be >= 0")
	}
	return nil
}
