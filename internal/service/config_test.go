package service

import (
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Trading: TradingConfig{
			Symbols:           []string{"BTCUSDT", "ETHUSDT"},
			Timeframe:         "1m",
			PollInterval:      time.Minute,
			InitialInvestment: 5,
			PositionSizePct:   0.2,
			StopLossPct:       0.005,
			TakeProfitPct:     0.008,
			MaxPositions:      5,
		},
		Strategy: StrategyConfig{
			RSIPeriod:     7,
			RSIOversold:   40,
			RSIOverbought: 60,
			EMAFast:       5,
			EMASlow:       12,
			KlineLookback: 100,
		},
		Screener: ScreenerConfig{
			MinQuoteVolume:      500000,
			MinPriceMovementPct: 0.2,
			MaxStale:            5 * time.Minute,
		},
		Risk: RiskConfig{
			MaxDailyTrades:  50,
			MaxDailyLossPct: 0.10,
		},
	}
}

func TestValidateAcceptsReferenceConfig(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidateRejectsBrokenConfigs(t *testing.T) {
	cases := map[string]func(*Config){
		"no symbols":          func(c *Config) { c.Trading.Symbols = nil },
		"bad timeframe":       func(c *Config) { c.Trading.Timeframe = "banana" },
		"zero poll interval":  func(c *Config) { c.Trading.PollInterval = 0 },
		"zero investment":     func(c *Config) { c.Trading.InitialInvestment = 0 },
		"oversized fraction":  func(c *Config) { c.Trading.PositionSizePct = 1.5 },
		"negative stop loss":  func(c *Config) { c.Trading.StopLossPct = -0.01 },
		"rsi inverted":        func(c *Config) { c.Strategy.RSIOversold = 70; c.Strategy.RSIOverbought = 30 },
		"ema inverted":        func(c *Config) { c.Strategy.EMAFast = 12; c.Strategy.EMASlow = 5 },
		"short lookback":      func(c *Config) { c.Strategy.KlineLookback = 3 },
		"zero max trades":     func(c *Config) { c.Risk.MaxDailyTrades = 0 },
		"loss pct over one":   func(c *Config) { c.Risk.MaxDailyLossPct = 1.5 },
		"zero max stale":      func(c *Config) { c.Screener.MaxStale = 0 },
		"trailing pct absent": func(c *Config) { c.Exit.TrailingStopEnabled = true },
	}

	for name, mutate := range cases {
		cfg := validConfig()
		mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("case %q: expected validation error", name)
		}
	}
}

func TestParseIntervalDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"1m":  time.Minute,
		"5m":  5 * time.Minute,
		"1h":  time.Hour,
		"30s": 30 * time.Second,
		"1d":  24 * time.Hour,
	}
	for in, want := range cases {
		got, err := ParseIntervalDuration(in)
		if err != nil {
			t.Fatalf("%q: unexpected error %v", in, err)
		}
		if got != want {
			t.Fatalf("%q: expected %v, got %v", in, want, got)
		}
	}

	for _, bad := range []string{"", "m", "10x", "-5m", "0m"} {
		if _, err := ParseIntervalDuration(bad); err == nil {
			t.Fatalf("%q: expected error", bad)
		}
	}
}

func TestFormatIntervalRoundTrip(t *testing.T) {
	for _, d := range []time.Duration{time.Minute, 5 * time.Minute, time.Hour, 30 * time.Second} {
		s := FormatInterval(d)
		got, err := ParseIntervalDuration(s)
		if err != nil || got != d {
			t.Fatalf("round trip %v -> %q -> %v (err %v)", d, s, got, err)
		}
	}
}
