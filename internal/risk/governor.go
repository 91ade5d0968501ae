package risk

import (
	"math"

	"go.uber.org/zap"
)

// Governor 管理跨所有交易对的日内风控预算：当日交易次数和已实现亏损。
// 状态只能通过下面四个方法变更，其他组件一律只读。
// 计数器在每个本地日边界由 Session Loop 调用 ResetDaily 清零。
type Governor struct {
	maxDailyTrades int
	maxDailyLoss   float64 // initial_investment * max_daily_loss_pct

	tradesToday  int
	realizedLoss float64 // 当日亏损绝对值累计，非负

	// OnUpdate 在每次预算变更后被调用，用于对外发布最新计数（单向通知）
	OnUpdate func(tradesToday int, realizedLoss float64)

	logger *zap.SugaredLogger
}

// NewGovernor 初始化风控预算
func NewGovernor(maxDailyTrades int, initialInvestment, maxDailyLossPct float64, logger *zap.SugaredLogger) *Governor {
	return &Governor{
		maxDailyTrades: maxDailyTrades,
		maxDailyLoss:   initialInvestment * maxDailyLossPct,
		logger:         logger,
	}
}

// CanTrade 判断当前是否还允许新的入场
func (g *Governor) CanTrade() bool {
	return g.tradesToday < g.maxDailyTrades && g.realizedLoss < g.maxDailyLoss
}

// RecordTradeOpened 在入场订单确认后计一次交易
func (g *Governor) RecordTradeOpened() {
	g.tradesToday++
	g.logger.Infow("Trade counted", "trades_today", g.tradesToday, "max", g.maxDailyTrades)
	g.notify()
}

// RecordTradeClosed 在平仓订单确认后核算盈亏，亏损计入当日累计
func (g *Governor) RecordTradeClosed(profit float64) {
	if profit < 0 {
		g.realizedLoss += math.Abs(profit)
		g.logger.Warnw("Loss recorded",
			"loss", math.Abs(profit),
			"realized_loss_today", g.realizedLoss,
			"max_daily_loss", g.maxDailyLoss)
	}
	g.notify()
}

// ResetDaily 在日边界清零两个计数器
func (g *Governor) ResetDaily() {
	g.tradesToday = 0
	g.realizedLoss = 0
	g.logger.Info("Daily risk counters reset")
	g.notify()
}

// Counters 返回当前计数，供外部指标/告警读取
func (g *Governor) Counters() (tradesToday int, realizedLoss float64) {
	return g.tradesToday, g.realizedLoss
}

func (g *Governor) notify() {
	if g.OnUpdate != nil {
		g.OnUpdate(g.tradesToday, g.realizedLoss)
	}
}
