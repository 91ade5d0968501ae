package strategy

import (
	"crypto-scalp-trader/internal/model"

	"go.uber.org/zap"
)

// Evaluator 根据指标快照的最后两根 K 线给出 ENTER/EXIT/HOLD 决策。
//
// 入场和离场都是五个条件的合取：RSI 超卖/超买 + 动量拐头 + EMA 趋势 +
// 成交量放大 + 价格动作同向确认。成交量和价格的确认条款是为了压低短周期
// 噪声带来的假信号，宁可错过也不误触发，不允许被简化掉。
// 所有比较都是严格不等号，相等一律判 false，整体偏向不动作。
type Evaluator struct {
	oversold   float64
	overbought float64
	logger     *zap.SugaredLogger
}

// NewEvaluator 初始化信号评估器
func NewEvaluator(oversold, overbought float64, logger *zap.SugaredLogger) *Evaluator {
	return &Evaluator{
		oversold:   oversold,
		overbought: overbought,
		logger:     logger,
	}
}

// Evaluate 是策略的唯一决策入口。
// 快照不足两根完整 K 线时直接返回 HOLD；positionOpen 决定只评估入场还是只评估离场。
func (e *Evaluator) Evaluate(snap *model.Snapshot, positionOpen bool) Action {
	if snap == nil || !snap.Ready() {
		return ActionHold
	}

	last := len(snap.Bars) - 1
	prev := last - 1

	if positionOpen {
		if e.exitSignal(snap, prev, last) {
			e.logger.Infow("Exit signal",
				"symbol", snap.Symbol,
				"rsi", snap.RSI[last],
				"ema_fast", snap.EMAFast[last],
				"ema_slow", snap.EMASlow[last],
				"close", snap.Bars[last].Close)
			return ActionExit
		}
		return ActionHold
	}

	if e.entrySignal(snap, prev, last) {
		e.logger.Infow("Entry signal",
			"symbol", snap.Symbol,
			"rsi", snap.RSI[last],
			"ema_fast", snap.EMAFast[last],
			"ema_slow", snap.EMASlow[last],
			"close", snap.Bars[last].Close)
		return ActionEnter
	}
	return ActionHold
}

// entrySignal 入场条件（全部成立才触发）：
//  1. RSI 处于超卖区
//  2. RSI 较上一根拐头向上
//  3. 快 EMA 上穿慢 EMA，或已位于慢 EMA 之上
//  4. 成交量放大
//  5. 收盘价走高
func (e *Evaluator) entrySignal(snap *model.Snapshot, prev, last int) bool {
	rsiOversold := snap.RSI[last] < e.oversold
	rsiTurningUp := snap.RSI[last] > snap.RSI[prev]

	crossedUp := snap.EMAFast[prev] <= snap.EMASlow[prev] && snap.EMAFast[last] > snap.EMASlow[last]
	fastAbove := snap.EMAFast[last] > snap.EMASlow[last]

	volumeUp := snap.Bars[last].Volume > snap.Bars[prev].Volume
	closeUp := snap.Bars[last].Close > snap.Bars[prev].Close

	return rsiOversold && rsiTurningUp && (crossedUp || fastAbove) && volumeUp && closeUp
}

// exitSignal 离场条件，与入场对称：超买 + RSI 拐头向下 + EMA 转弱 + 放量 + 收盘走低
func (e *Evaluator) exitSignal(snap *model.Snapshot, prev, last int) bool {
	rsiOverbought := snap.RSI[last] > e.overbought
	rsiTurningDown := snap.RSI[last] < snap.RSI[prev]

	crossedDown := snap.EMAFast[prev] >= snap.EMASlow[prev] && snap.EMAFast[last] < snap.EMASlow[last]
	fastBelow := snap.EMAFast[last] < snap.EMASlow[last]

	volumeUp := snap.Bars[last].Volume > snap.Bars[prev].Volume
	closeDown := snap.Bars[last].Close < snap.Bars[prev].Close

	return rsiOverbought && rsiTurningDown && (crossedDown || fastBelow) && volumeUp && closeDown
}
