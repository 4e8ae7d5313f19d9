package models

import (
	"testing"
	"time"
)

func TestNormalizeTimeframe(t *testing.T) {
	cases := map[string]Timeframe{
		"":    TF1d,
		"1m":  TF1m,
		"5m":  TF5m,
		"15m": TF15m,
		"1h":  TF1h,
		"1d":  TF1d,
		"4h":  TF1d, // unsupported falls back to default
		"bad": TF1d,
	}
	for in, want := range cases {
		if got := NormalizeTimeframe(in); got != want {
			t.Fatalf("NormalizeTimeframe(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestPriceSeriesRejectsUnorderedTimestamps(t *testing.T) {
	base := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)
	_, err := NewPriceSeries("AAPL", TF1d, []PricePoint{
		{Timestamp: base.Add(time.Hour), Close: 1},
		{Timestamp: base, Close: 2},
	})
	if err == nil {
		t.Fatalf("expected ordering error")
	}
	// equal timestamps are not increasing either
	_, err = NewPriceSeries("AAPL", TF1d, []PricePoint{
		{Timestamp: base, Close: 1},
		{Timestamp: base, Close: 2},
	})
	if err == nil {
		t.Fatalf("expected ordering error on equal timestamps")
	}
}

func TestPriceSeriesCopiesInput(t *testing.T) {
	base := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)
	points := []PricePoint{{Timestamp: base, Close: 1}}
	s, err := NewPriceSeries("AAPL", TF1d, points)
	if err != nil {
		t.Fatalf("series: %v", err)
	}
	points[0].Close = 99
	if s.At(0).Close != 1 {
		t.Fatalf("series aliases caller slice")
	}
}

func TestIndicatorSetHas(t *testing.T) {
	set := &IndicatorSet{Incomplete: []string{"sma_200", "macd"}}
	if set.Complete() {
		t.Fatalf("set with missing indicators reports complete")
	}
	if set.Has("macd") {
		t.Fatalf("macd should be missing")
	}
	if !set.Has("rsi") {
		t.Fatalf("rsi should be present")
	}
}
