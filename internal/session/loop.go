package session

import (
	"context"
	"fmt"
	"time"

	"crypto-scalp-trader/internal/ledger"
	"crypto-scalp-trader/internal/model"
	"crypto-scalp-trader/internal/risk"
	"crypto-scalp-trader/internal/screener"
	"crypto-scalp-trader/internal/service"
	"crypto-scalp-trader/internal/strategy"
	"crypto-scalp-trader/pkg/ta"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Gateway 是行情与订单网关的边界。由 api.RestClient 实现，测试中用假实现替换。
type Gateway interface {
	GetBalance(ctx context.Context, asset string) (float64, error)
	GetKlines(ctx context.Context, symbol, interval string, limit int) ([]model.Bar, error)
	GetTickerStats(ctx context.Context, symbols []string) ([]model.TickerStats, error)
	PlaceMarketOrder(ctx context.Context, symbol, side string, quantity float64) (*model.OrderResult, error)
}

// TradeSink 接收已完结交易的单向通知
type TradeSink interface {
	RecordTrade(rec model.TradeRecord)
}

// QuoteAsset 是计价资产。余额查询与成交额阈值都以它为单位。
const QuoteAsset = "USDT"

// quantityPrecision 下单数量保留的小数位数，向下取整，绝不超买
const quantityPrecision = 6

// Loop 按固定节奏驱动整条决策流水线：
// 日边界清零 → 风控闸门 → 逐个交易对（准入 → 快照 → 信号 → 仓位/风控变更）。
// 所有决策和状态变更都发生在 Sweep 这一个 goroutine 里，串行是全局不变式。
// 单个交易对的失败只记日志并跳过，绝不中断整轮扫描。
type Loop struct {
	cfg      *service.Config
	gateway  Gateway
	screener *screener.Screener
	calc     *ta.Calculator
	eval     *strategy.Evaluator
	ledger   *ledger.Ledger
	governor *risk.Governor
	sink     TradeSink
	logger   *zap.SugaredLogger

	lastDay time.Time
	now     func() time.Time
}

// NewLoop 组装会话主循环
func NewLoop(
	cfg *service.Config,
	gateway Gateway,
	scr *screener.Screener,
	calc *ta.Calculator,
	eval *strategy.Evaluator,
	led *ledger.Ledger,
	governor *risk.Governor,
	sink TradeSink,
	logger *zap.SugaredLogger,
) *Loop {
	return &Loop{
		cfg:      cfg,
		gateway:  gateway,
		screener: scr,
		calc:     calc,
		eval:     eval,
		ledger:   led,
		governor: governor,
		sink:     sink,
		logger:   logger,
		lastDay:  time.Now(),
		now:      time.Now,
	}
}

// Run 阻塞运行，直到 ctx 取消
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Infow("Session loop started",
		"symbols", len(l.cfg.Trading.Symbols),
		"poll_interval", l.cfg.Trading.PollInterval)

	ticker := time.NewTicker(l.cfg.Trading.PollInterval)
	defer ticker.Stop()

	l.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Session loop stopped")
			return ctx.Err()
		case <-ticker.C:
			l.Sweep(ctx)
		}
	}
}

// Sweep 执行一轮完整扫描
func (l *Loop) Sweep(ctx context.Context) {
	now := l.now()
	l.rollDay(now)

	if !l.governor.CanTrade() {
		trades, loss := l.governor.Counters()
		l.logger.Infow("Daily limits reached, skipping sweep",
			"trades_today", trades, "realized_loss_today", loss)
		return
	}

	for _, symbol := range l.cfg.Trading.Symbols {
		if err := l.processSymbol(ctx, symbol, now); err != nil {
			l.logger.Warnw("Symbol skipped this tick", "symbol", symbol, "err", err)
		}
	}
}

// rollDay 跨过本地日边界时清零日内计数
func (l *Loop) rollDay(now time.Time) {
	y1, m1, d1 := l.lastDay.Date()
	y2, m2, d2 := now.Date()
	if y1 != y2 || m1 != m2 || d1 != d2 {
		l.governor.ResetDaily()
	}
	l.lastDay = now
}

// processSymbol 处理单个交易对。返回的任何错误都只隔离到该交易对。
func (l *Loop) processSymbol(ctx context.Context, symbol string, now time.Time) error {
	_, held := l.ledger.Get(symbol)

	// 空仓时先过持仓上限和准入，省掉不合格交易对的 K 线拉取。
	// 上限必须在下单前检查，不能等确认成交后才被账本拒绝。
	if !held {
		if l.ledger.Len() >= l.cfg.Trading.MaxPositions {
			return nil
		}
		if !l.screener.IsEligible(symbol) {
			return nil
		}
	}

	bars, err := l.gateway.GetKlines(ctx, symbol, l.cfg.Trading.Timeframe, l.cfg.Strategy.KlineLookback)
	if err != nil {
		return err
	}
	snap, err := l.calc.BuildSnapshot(symbol, bars)
	if err != nil {
		return err
	}
	price := snap.Bars[len(snap.Bars)-1].Close

	if held {
		return l.manageOpenPosition(ctx, symbol, snap, price, now)
	}

	if l.eval.Evaluate(snap, false) == strategy.ActionEnter {
		return l.enterPosition(ctx, symbol, price, now)
	}
	return nil
}

// manageOpenPosition 依次检查：追踪止损抬升 → 保护性离场 → 超时强平 → 离场信号
func (l *Loop) manageOpenPosition(ctx context.Context, symbol string, snap *model.Snapshot, price float64, now time.Time) error {
	l.ledger.RaiseTrailingStop(symbol, price)

	var reason string
	switch {
	case l.ledger.CheckProtectiveExit(symbol, price):
		reason = l.protectiveReason(symbol, price)
	case l.ledger.ShouldForceExit(symbol, price, now):
		reason = "max_hold"
	case l.eval.Evaluate(snap, true) == strategy.ActionExit:
		reason = "signal"
	default:
		return nil
	}
	return l.exitPosition(ctx, symbol, reason, now)
}

func (l *Loop) protectiveReason(symbol string, price float64) string {
	pos, ok := l.ledger.Get(symbol)
	if !ok {
		return "stop_loss"
	}
	switch {
	case price <= pos.StopLossPrice:
		return "stop_loss"
	case price >= pos.TakeProfitPrice:
		return "take_profit"
	default:
		return "trailing_stop"
	}
}

// enterPosition 先下单、拿到交易所回执后才登记仓位和计数。
// 下单失败时账本必须保持原样。
func (l *Loop) enterPosition(ctx context.Context, symbol string, price float64, now time.Time) error {
	balance, err := l.gateway.GetBalance(ctx, QuoteAsset)
	if err != nil {
		return err
	}

	quantity := sizeQuantity(balance, l.cfg.Trading.PositionSizePct, price)
	if quantity <= 0 {
		return fmt.Errorf("%w: balance %.2f %s at price %.8f", model.ErrInsufficientFunds, balance, QuoteAsset, price)
	}

	res, err := l.gateway.PlaceMarketOrder(ctx, symbol, "BUY", quantity)
	if err != nil {
		return err
	}

	if _, err := l.ledger.Open(symbol, res.ExecutedPrice, res.ExecutedQty, res.OrderID, now); err != nil {
		// 此时订单已成交但账本拒绝登记，属于编排层 bug，必须大声失败
		l.logger.Errorw("Ledger rejected confirmed entry order",
			"symbol", symbol, "order_id", res.OrderID, "err", err)
		return err
	}
	l.governor.RecordTradeOpened()
	return nil
}

// exitPosition 先下平仓单、确认成交后才移除仓位并核算盈亏
func (l *Loop) exitPosition(ctx context.Context, symbol, reason string, now time.Time) error {
	pos, ok := l.ledger.Get(symbol)
	if !ok {
		return fmt.Errorf("exit %s: %w", symbol, model.ErrPositionNotFound)
	}

	res, err := l.gateway.PlaceMarketOrder(ctx, symbol, "SELL", pos.Quantity)
	if err != nil {
		return err
	}

	closed, err := l.ledger.Close(symbol)
	if err != nil {
		l.logger.Errorw("Ledger rejected confirmed exit order",
			"symbol", symbol, "order_id", res.OrderID, "err", err)
		return err
	}

	profit := (res.ExecutedPrice - closed.EntryPrice) * closed.Quantity
	l.governor.RecordTradeClosed(profit)
	l.sink.RecordTrade(model.TradeRecord{
		Symbol:     symbol,
		EntryPrice: closed.EntryPrice,
		ExitPrice:  res.ExecutedPrice,
		Quantity:   closed.Quantity,
		Profit:     profit,
		OpenedAt:   closed.OpenedAt,
		ClosedAt:   now,
		Reason:     reason,
	})
	return nil
}

// sizeQuantity 固定比例仓位：余额 × 比例 ÷ 价格，向下取整到交易所精度
func sizeQuantity(balance, fraction, price float64) float64 {
	if price <= 0 {
		return 0
	}
	raw := balance * fraction / price
	return decimal.NewFromFloat(raw).RoundFloor(quantityPrecision).InexactFloat64()
}
