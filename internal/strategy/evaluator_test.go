package strategy

import (
	"testing"

	"crypto-scalp-trader/internal/model"

	"go.uber.org/zap"
)

func newTestEvaluator() *Evaluator {
	return NewEvaluator(40, 60, zap.NewNop().Sugar())
}

// testSnapshot builds a two-bar snapshot with all indicators populated.
func testSnapshot(rsiPrev, rsiLast, emaFPrev, emaFLast, emaSPrev, emaSLast, volPrev, volLast, closePrev, closeLast float64) *model.Snapshot {
	return &model.Snapshot{
		Symbol: "BTCUSDT",
		Bars: []model.Bar{
			{Close: closePrev, Volume: volPrev},
			{Close: closeLast, Volume: volLast},
		},
		RSI:     []float64{rsiPrev, rsiLast},
		EMAFast: []float64{emaFPrev, emaFLast},
		EMASlow: []float64{emaSPrev, emaSLast},
	}
}

func entrySnapshot() *model.Snapshot {
	// RSI rising inside the oversold zone, EMA fast crossing above slow,
	// volume and close both higher than the previous bar.
	return testSnapshot(35, 38, 99, 101, 100, 100, 1000, 1500, 99.5, 100.5)
}

func exitSnapshot() *model.Snapshot {
	return testSnapshot(65, 62, 101, 99, 100, 100, 1000, 1500, 100.5, 99.5)
}

func TestEvaluateHoldsOnNilSnapshot(t *testing.T) {
	eval := newTestEvaluator()
	if got := eval.Evaluate(nil, false); got != ActionHold {
		t.Fatalf("expected HOLD for nil snapshot, got %s", got)
	}
}

func TestEvaluateHoldsWithFewerThanTwoCompleteBars(t *testing.T) {
	eval := newTestEvaluator()

	single := &model.Snapshot{
		Symbol:  "BTCUSDT",
		Bars:    []model.Bar{{Close: 100, Volume: 1000}},
		RSI:     []float64{38},
		EMAFast: []float64{101},
		EMASlow: []float64{100},
	}
	if got := eval.Evaluate(single, false); got != ActionHold {
		t.Fatalf("expected HOLD for single bar, got %s", got)
	}

	// Two bars, but the previous one is still inside the indicator warm-up.
	warming := entrySnapshot()
	warming.FirstValid = 1
	if got := eval.Evaluate(warming, false); got != ActionHold {
		t.Fatalf("expected HOLD while warming up, got %s", got)
	}
}

func TestEntrySignalFires(t *testing.T) {
	eval := newTestEvaluator()
	if got := eval.Evaluate(entrySnapshot(), false); got != ActionEnter {
		t.Fatalf("expected ENTER, got %s", got)
	}
}

func TestEntryAcceptsFastAboveSlowWithoutCross(t *testing.T) {
	eval := newTestEvaluator()
	// Fast EMA already above slow on both bars: the level arm alone must pass.
	snap := testSnapshot(35, 38, 102, 103, 100, 100, 1000, 1500, 99.5, 100.5)
	if got := eval.Evaluate(snap, false); got != ActionEnter {
		t.Fatalf("expected ENTER on fast-above-slow, got %s", got)
	}
}

func TestEntryRequiresEveryCondition(t *testing.T) {
	eval := newTestEvaluator()

	cases := map[string]*model.Snapshot{
		"rsi not oversold":  testSnapshot(35, 45, 99, 101, 100, 100, 1000, 1500, 99.5, 100.5),
		"rsi falling":       testSnapshot(39, 38, 99, 101, 100, 100, 1000, 1500, 99.5, 100.5),
		"ema fast below":    testSnapshot(35, 38, 99, 99, 100, 100, 1000, 1500, 99.5, 100.5),
		"volume not rising": testSnapshot(35, 38, 99, 101, 100, 100, 1500, 1000, 99.5, 100.5),
		"close not rising":  testSnapshot(35, 38, 99, 101, 100, 100, 1000, 1500, 100.5, 99.5),
		"volume tie":        testSnapshot(35, 38, 99, 101, 100, 100, 1500, 1500, 99.5, 100.5),
		"close tie":         testSnapshot(35, 38, 99, 101, 100, 100, 1000, 1500, 100.5, 100.5),
		"rsi tie":           testSnapshot(38, 38, 99, 101, 100, 100, 1000, 1500, 99.5, 100.5),
		"ema tie":           testSnapshot(35, 38, 99, 100, 100, 100, 1000, 1500, 99.5, 100.5),
	}

	for name, snap := range cases {
		if got := eval.Evaluate(snap, false); got != ActionHold {
			t.Fatalf("case %q: expected HOLD, got %s", name, got)
		}
	}
}

func TestExitSignalFires(t *testing.T) {
	eval := newTestEvaluator()
	if got := eval.Evaluate(exitSnapshot(), true); got != ActionExit {
		t.Fatalf("expected EXIT, got %s", got)
	}
}

func TestExitRequiresEveryCondition(t *testing.T) {
	eval := newTestEvaluator()

	cases := map[string]*model.Snapshot{
		"rsi not overbought": testSnapshot(65, 55, 101, 99, 100, 100, 1000, 1500, 100.5, 99.5),
		"rsi rising":         testSnapshot(61, 62, 101, 99, 100, 100, 1000, 1500, 100.5, 99.5),
		"ema fast above":     testSnapshot(65, 62, 101, 101, 100, 100, 1000, 1500, 100.5, 99.5),
		"volume not rising":  testSnapshot(65, 62, 101, 99, 100, 100, 1500, 1000, 100.5, 99.5),
		"close not falling":  testSnapshot(65, 62, 101, 99, 100, 100, 1000, 1500, 99.5, 100.5),
	}

	for name, snap := range cases {
		if got := eval.Evaluate(snap, true); got != ActionHold {
			t.Fatalf("case %q: expected HOLD, got %s", name, got)
		}
	}
}

func TestEntryAndExitAreMutuallyExclusive(t *testing.T) {
	eval := newTestEvaluator()

	// A snapshot that fires ENTER when flat can never fire EXIT when held:
	// with oversold < overbought the RSI cannot be on both sides at once.
	snap := entrySnapshot()
	if got := eval.Evaluate(snap, false); got != ActionEnter {
		t.Fatalf("expected ENTER when flat, got %s", got)
	}
	if got := eval.Evaluate(snap, true); got != ActionHold {
		t.Fatalf("expected HOLD when held, got %s", got)
	}

	snap = exitSnapshot()
	if got := eval.Evaluate(snap, true); got != ActionExit {
		t.Fatalf("expected EXIT when held, got %s", got)
	}
	if got := eval.Evaluate(snap, false); got != ActionHold {
		t.Fatalf("expected HOLD when flat, got %s", got)
	}
}
