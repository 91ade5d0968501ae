package ta

import (
	"fmt"

	"crypto-scalp-trader/internal/model"

	"github.com/markcheno/go-talib"
	"go.uber.org/zap"
)

// MinBars 是构建快照所需的最少可用 K 线数量。
// 覆盖 RSI 和慢速 EMA 的预热期之后还要留出安全余量，不足时视为数据不可用。
const MinBars = 30

// Calculator 负责把 K 线序列加工成只读的指标快照
type Calculator struct {
	rsiPeriod int
	emaFast   int
	emaSlow   int
	logger    *zap.SugaredLogger
}

// NewCalculator 初始化技术指标计算器
func NewCalculator(rsiPeriod, emaFast, emaSlow int, logger *zap.SugaredLogger) *Calculator {
	return &Calculator{
		rsiPeriod: rsiPeriod,
		emaFast:   emaFast,
		emaSlow:   emaSlow,
		logger:    logger,
	}
}

// BuildSnapshot 计算 RSI 和快/慢 EMA 序列，返回与 bars 下标对齐的快照。
// FirstValid 之前的下标处于指标预热期，值未定义，调用方不得使用。
// K 线数量不足时返回 model.ErrDataUnavailable。
func (c *Calculator) BuildSnapshot(symbol string, bars []model.Bar) (*model.Snapshot, error) {
	if len(bars) < MinBars {
		c.logger.Debugw("Not enough bars for snapshot",
			"symbol", symbol, "bars", len(bars), "min", MinBars)
		return nil, fmt.Errorf("%w: %s has %d bars, need %d",
			model.ErrDataUnavailable, symbol, len(bars), MinBars)
	}

	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}

	snap := &model.Snapshot{
		Symbol:     symbol,
		Bars:       bars,
		RSI:        talib.Rsi(closes, c.rsiPeriod),
		EMAFast:    talib.Ema(closes, c.emaFast),
		EMASlow:    talib.Ema(closes, c.emaSlow),
		FirstValid: c.firstValid(),
	}

	if !snap.Ready() {
		return nil, fmt.Errorf("%w: %s indicators not warmed up", model.ErrDataUnavailable, symbol)
	}
	return snap, nil
}

// firstValid 返回所有指标都已走完预热期的第一个下标。
// talib 对预热期内的下标填零：RSI 从 period 开始有效，EMA 从 period-1 开始有效。
func (c *Calculator) firstValid() int {
	first := c.rsiPeriod
	if c.emaSlow-1 > first {
		first = c.emaSlow - 1
	}
	return first
}
