package screener

import (
	"math"
	"sync"
	"time"

	"crypto-scalp-trader/internal/model"

	"go.uber.org/zap"
)

// Screener 维护每个交易对最近一次的 24h 行情快照，并据此做准入判断。
// 写入来自 Connector 的推送 goroutine，读取来自 Session Loop，用读写锁隔离。
//
// 准入是纯谓词：快照存在且未过期、24h 成交额和价格波动都过线才放行。
// 没有数据一律按不合格处理，绝不默认放行。
type Screener struct {
	mu      sync.RWMutex
	records map[string]model.TickerStats

	minQuoteVolume float64
	minMovementPct float64
	maxStale       time.Duration
	logger         *zap.SugaredLogger
}

// NewScreener 初始化准入筛选器
func NewScreener(minQuoteVolume, minMovementPct float64, maxStale time.Duration, logger *zap.SugaredLogger) *Screener {
	return &Screener{
		records:        make(map[string]model.TickerStats),
		minQuoteVolume: minQuoteVolume,
		minMovementPct: minMovementPct,
		maxStale:       maxStale,
		logger:         logger,
	}
}

// Update 写入一条行情快照（REST 种子数据和 WS 推送共用）
func (s *Screener) Update(stats model.TickerStats) {
	if stats.Symbol == "" {
		return
	}
	s.mu.Lock()
	s.records[stats.Symbol] = stats
	s.mu.Unlock()
}

// Seed 批量写入启动时拉取的快照
func (s *Screener) Seed(stats []model.TickerStats) {
	for _, st := range stats {
		s.Update(st)
	}
	s.logger.Infow("Screener seeded", "symbols", len(stats))
}

// Run 持续消费 Connector 的行情通道，直到通道关闭
func (s *Screener) Run(ch <-chan model.TickerStats) {
	for stats := range ch {
		s.Update(stats)
	}
	s.logger.Warn("Ticker stats channel closed, screener updates stopped")
}

// IsEligible 判断该交易对当前是否值得评估信号。无副作用。
func (s *Screener) IsEligible(symbol string) bool {
	s.mu.RLock()
	rec, ok := s.records[symbol]
	s.mu.RUnlock()

	if !ok {
		return false
	}
	if time.Since(rec.UpdatedAt) > s.maxStale {
		s.logger.Debugw("Ticker stats stale", "symbol", symbol, "age", time.Since(rec.UpdatedAt))
		return false
	}
	if rec.QuoteVolume < s.minQuoteVolume {
		return false
	}
	if math.Abs(rec.PriceChangePct) < s.minMovementPct {
		return false
	}
	return true
}

// LastPrice 返回最近一次行情快照里的价格（可能过期，调用方自行判断用途）
func (s *Screener) LastPrice(symbol string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[symbol]
	if !ok {
		return 0, false
	}
	return rec.LastPrice, true
}
