package risk

import (
	"math"
	"testing"

	"go.uber.org/zap"
)

func newTestGovernor(maxTrades int, investment, lossPct float64) *Governor {
	return NewGovernor(maxTrades, investment, lossPct, zap.NewNop().Sugar())
}

func TestCanTradeUntilMaxDailyTrades(t *testing.T) {
	g := newTestGovernor(3, 1000, 0.10)

	for i := 0; i < 3; i++ {
		if !g.CanTrade() {
			t.Fatalf("expected can_trade before trade %d", i+1)
		}
		g.RecordTradeOpened()
	}
	if g.CanTrade() {
		t.Fatalf("expected can_trade false at max daily trades")
	}

	g.ResetDaily()
	if !g.CanTrade() {
		t.Fatalf("expected can_trade true again after daily reset")
	}
}

func TestLossBudgetBlocksTrading(t *testing.T) {
	g := newTestGovernor(100, 1000, 0.10) // 亏损上限 100

	g.RecordTradeClosed(-60)
	if !g.CanTrade() {
		t.Fatalf("expected can_trade with loss below budget")
	}
	g.RecordTradeClosed(-50)
	if g.CanTrade() {
		t.Fatalf("expected can_trade false once realized loss reaches budget")
	}

	g.ResetDaily()
	if !g.CanTrade() {
		t.Fatalf("expected can_trade true after reset")
	}
}

func TestProfitsDoNotReduceRealizedLoss(t *testing.T) {
	g := newTestGovernor(100, 1000, 0.10)

	g.RecordTradeClosed(-30)
	g.RecordTradeClosed(500) // 盈利不冲抵已实现亏损
	_, loss := g.Counters()
	if math.Abs(loss-30) > 1e-9 {
		t.Fatalf("expected realized loss 30, got %v", loss)
	}
}

func TestOnUpdateFiresOnEveryMutation(t *testing.T) {
	g := newTestGovernor(10, 1000, 0.10)

	var calls int
	g.OnUpdate = func(trades int, loss float64) { calls++ }

	g.RecordTradeOpened()
	g.RecordTradeClosed(-5)
	g.RecordTradeClosed(5)
	g.ResetDaily()
	if calls != 4 {
		t.Fatalf("expected 4 counter notifications, got %d", calls)
	}
}
