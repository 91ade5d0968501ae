package ta

import (
	"errors"
	"testing"
	"time"

	"crypto-scalp-trader/internal/model"

	"go.uber.org/zap"
)

func makeBars(closes []float64) []model.Bar {
	bars := make([]model.Bar, len(closes))
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		bars[i] = model.Bar{
			OpenTime:  start.Add(time.Duration(i) * time.Minute),
			CloseTime: start.Add(time.Duration(i+1) * time.Minute),
			Open:      c,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    1000,
		}
	}
	return bars
}

func TestBuildSnapshotRejectsShortHistory(t *testing.T) {
	calc := NewCalculator(7, 5, 12, zap.NewNop().Sugar())

	closes := make([]float64, MinBars-1)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	_, err := calc.BuildSnapshot("BTCUSDT", makeBars(closes))
	if !errors.Is(err, model.ErrDataUnavailable) {
		t.Fatalf("expected ErrDataUnavailable, got %v", err)
	}
}

func TestBuildSnapshotAlignsSeries(t *testing.T) {
	calc := NewCalculator(7, 5, 12, zap.NewNop().Sugar())

	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + float64(i%5) // 有涨有跌，RSI 不会退化
	}
	snap, err := calc.BuildSnapshot("BTCUSDT", makeBars(closes))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(snap.RSI) != len(snap.Bars) ||
		len(snap.EMAFast) != len(snap.Bars) ||
		len(snap.EMASlow) != len(snap.Bars) {
		t.Fatalf("indicator series not aligned to bars")
	}
	if !snap.Ready() {
		t.Fatalf("expected snapshot ready with %d bars", len(snap.Bars))
	}

	last := len(snap.Bars) - 1
	if snap.RSI[last] <= 0 || snap.RSI[last] >= 100 {
		t.Fatalf("RSI out of range: %v", snap.RSI[last])
	}
	if snap.EMAFast[last] <= 0 || snap.EMASlow[last] <= 0 {
		t.Fatalf("EMA not populated on last bar")
	}
}

func TestFirstValidCoversSlowestIndicator(t *testing.T) {
	calc := NewCalculator(14, 5, 12, zap.NewNop().Sugar())
	if got := calc.firstValid(); got != 14 {
		t.Fatalf("expected first valid 14 (RSI window), got %d", got)
	}

	calc = NewCalculator(7, 5, 26, zap.NewNop().Sugar())
	if got := calc.firstValid(); got != 25 {
		t.Fatalf("expected first valid 25 (slow EMA window - 1), got %d", got)
	}
}
