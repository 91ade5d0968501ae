package ledger

import (
	"fmt"
	"time"

	"crypto-scalp-trader/internal/model"

	"go.uber.org/zap"
)

// Options 定义了仓位的保护性离场参数
type Options struct {
	StopLossPct   float64
	TakeProfitPct float64
	MaxPositions  int

	// 可选变体，默认关闭
	TrailingStopEnabled bool
	TrailingStopPct     float64
	MaxHoldTime         time.Duration // >0 时启用超时强制离场
}

// Ledger 是交易对到持仓的唯一映射，持仓唯一性由 Open/Close 契约保证。
// 只有 Session Loop 这一个 goroutine 会调用写操作，因此不加锁；
// 决策与状态变更必须串行，这是全局不变式，不是实现偷懒。
type Ledger struct {
	opts      Options
	positions map[string]*model.Position
	logger    *zap.SugaredLogger
}

// NewLedger 初始化空仓位账本
func NewLedger(opts Options, logger *zap.SugaredLogger) *Ledger {
	return &Ledger{
		opts:      opts,
		positions: make(map[string]*model.Position),
		logger:    logger,
	}
}

// Open 在订单网关确认成交之后登记新仓位。
// 同一交易对已有持仓时返回 ErrPositionExists（编排层 bug，禁止静默成功）。
// 止损/止盈价在此一次性算出，之后不再重算。
func (l *Ledger) Open(symbol string, entryPrice, quantity float64, orderID int64, openedAt time.Time) (*model.Position, error) {
	if _, ok := l.positions[symbol]; ok {
		return nil, fmt.Errorf("open %s: %w", symbol, model.ErrPositionExists)
	}
	if len(l.positions) >= l.opts.MaxPositions {
		return nil, fmt.Errorf("open %s: %w", symbol, model.ErrMaxPositionsOpen)
	}
	if entryPrice <= 0 || quantity <= 0 {
		return nil, fmt.Errorf("open %s: invalid entry price %.8f or quantity %.8f", symbol, entryPrice, quantity)
	}

	pos := &model.Position{
		Symbol:          symbol,
		EntryPrice:      entryPrice,
		Quantity:        quantity,
		StopLossPrice:   entryPrice * (1 - l.opts.StopLossPct),
		TakeProfitPrice: entryPrice * (1 + l.opts.TakeProfitPct),
		OpenedAt:        openedAt,
		OrderID:         orderID,
	}
	if l.opts.TrailingStopEnabled {
		pos.TrailingStopPrice = entryPrice * (1 - l.opts.TrailingStopPct)
	}
	l.positions[symbol] = pos

	l.logger.Infow("Position opened",
		"symbol", symbol,
		"entry", entryPrice,
		"qty", quantity,
		"stop_loss", pos.StopLossPrice,
		"take_profit", pos.TakeProfitPrice)
	return pos, nil
}

// Close 在订单网关确认平仓之后移除仓位，返回被移除的仓位供调用方核算盈亏。
// 无持仓时返回 ErrPositionNotFound。
func (l *Ledger) Close(symbol string) (*model.Position, error) {
	pos, ok := l.positions[symbol]
	if !ok {
		return nil, fmt.Errorf("close %s: %w", symbol, model.ErrPositionNotFound)
	}
	delete(l.positions, symbol)
	return pos, nil
}

// Get 查询某个交易对的持仓
func (l *Ledger) Get(symbol string) (*model.Position, bool) {
	pos, ok := l.positions[symbol]
	return pos, ok
}

// Len 返回当前持仓数量
func (l *Ledger) Len() int { return len(l.positions) }

// CheckProtectiveExit 判断当前价格是否触发保护性离场（含边界）。
// 纯谓词，不做任何状态变更；实际平仓由调用方走订单网关后再 Close。
func (l *Ledger) CheckProtectiveExit(symbol string, currentPrice float64) bool {
	pos, ok := l.positions[symbol]
	if !ok {
		return false
	}
	if currentPrice <= pos.StopLossPrice || currentPrice >= pos.TakeProfitPrice {
		return true
	}
	if l.opts.TrailingStopEnabled && currentPrice <= pos.TrailingStopPrice {
		return true
	}
	return false
}

// RaiseTrailingStop 随价格向有利方向移动抬升追踪止损价，只升不降。
// 未启用追踪止损或无持仓时为空操作。
func (l *Ledger) RaiseTrailingStop(symbol string, currentPrice float64) {
	if !l.opts.TrailingStopEnabled {
		return
	}
	pos, ok := l.positions[symbol]
	if !ok {
		return
	}
	candidate := currentPrice * (1 - l.opts.TrailingStopPct)
	if candidate > pos.TrailingStopPrice {
		l.logger.Debugw("Trailing stop raised",
			"symbol", symbol, "from", pos.TrailingStopPrice, "to", candidate)
		pos.TrailingStopPrice = candidate
	}
}

// ShouldForceExit 判断是否触发超时强制离场：持仓时间超过 MaxHoldTime 且仍未盈利。
// MaxHoldTime 为 0 时该规则关闭。
func (l *Ledger) ShouldForceExit(symbol string, currentPrice float64, now time.Time) bool {
	if l.opts.MaxHoldTime <= 0 {
		return false
	}
	pos, ok := l.positions[symbol]
	if !ok {
		return false
	}
	return now.Sub(pos.OpenedAt) > l.opts.MaxHoldTime && currentPrice <= pos.EntryPrice
}
