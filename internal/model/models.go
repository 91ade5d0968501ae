package model

import "time"

// Bar 代表一根已完成的 K 线
type Bar struct {
	OpenTime  time.Time
	CloseTime time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// TickerStats 代表单个交易对的 24h 行情快照，用于准入筛选
type TickerStats struct {
	Symbol         string
	LastPrice      float64
	PriceChangePct float64 // 24h 涨跌幅（百分比，可为负）
	QuoteVolume    float64 // 24h 成交额 (USDT)
	UpdatedAt      time.Time
}

// Snapshot 是某个交易对的只读指标序列。
// 由 ta.Calculator 一次性构建，构建后不再修改；决策组件只读不写。
// RSI/EMAFast/EMASlow 与 Bars 按下标对齐，FirstValid 之前的下标未定义（预热期）。
type Snapshot struct {
	Symbol     string
	Bars       []Bar
	RSI        []float64
	EMAFast    []float64
	EMASlow    []float64
	FirstValid int
}

// Complete 判断下标 i 处的指标是否已全部就绪
func (s *Snapshot) Complete(i int) bool {
	return i >= s.FirstValid && i < len(s.Bars)
}

// Ready 判断最后两根 K 线是否全部字段就绪。
// 不满足时不允许做任何决策（按 Hold 处理）。
func (s *Snapshot) Ready() bool {
	return len(s.Bars) >= 2 && s.Complete(len(s.Bars)-2)
}

// Position 代表某个交易对当前的持仓。
// StopLossPrice / TakeProfitPrice 在建仓时由入场价和固定比例一次性算出，之后不再变化。
// TrailingStopPrice 仅在启用追踪止损时使用，只会单调上移。
type Position struct {
	Symbol            string
	EntryPrice        float64
	Quantity          float64
	StopLossPrice     float64
	TakeProfitPrice   float64
	TrailingStopPrice float64
	OpenedAt          time.Time
	OrderID           int64
}

// OrderResult 是订单网关确认成交后的回执
type OrderResult struct {
	Symbol        string
	Side          string // "BUY" 或 "SELL"
	ExecutedPrice float64
	ExecutedQty   float64
	OrderID       int64
}

// TradeRecord 记录一次完整的开仓和平仓，供外部日志/可视化消费
type TradeRecord struct {
	Symbol     string
	EntryPrice float64
	ExitPrice  float64
	Quantity   float64
	Profit     float64
	OpenedAt   time.Time
	ClosedAt   time.Time
	Reason     string // 平仓原因: "signal", "stop_loss", "take_profit", "trailing_stop", "max_hold"
}
