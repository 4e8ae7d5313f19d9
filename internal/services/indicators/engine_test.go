package indicators

import (
	"math"
	"testing"
	"time"

	"StockPulse/internal/domain/models"
)

func mkSeries(t *testing.T, closes []float64) *models.PriceSeries {
	t.Helper()
	base := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)
	points := make([]models.PricePoint, len(closes))
	for i, c := range closes {
		points[i] = models.PricePoint{
			Timestamp: base.Add(time.Duration(i) * 24 * time.Hour),
			Open:      c,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    1000,
		}
	}
	s, err := models.NewPriceSeries("AAPL", models.TF1d, points)
	if err != nil {
		t.Fatalf("series: %v", err)
	}
	return s
}

func flatCloses(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestComputeEmptySeries(t *testing.T) {
	e := NewEngine()
	s := mkSeries(t, nil)
	if _, err := e.Compute(s); err != models.ErrIncompleteData {
		t.Fatalf("expected ErrIncompleteData, got %v", err)
	}
}

func TestComputeFlatSeriesNeutralReadings(t *testing.T) {
	e := NewEngine()
	set, err := e.Compute(mkSeries(t, flatCloses(250, 100)))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if !set.Complete() {
		t.Fatalf("expected complete set, missing %v", set.Incomplete)
	}
	if set.RSI != 50 {
		t.Fatalf("flat series RSI = %v, want 50", set.RSI)
	}
	if set.BBPosition != 0.5 {
		t.Fatalf("flat series BB position = %v, want 0.5", set.BBPosition)
	}
	if set.BBWidth != 0 {
		t.Fatalf("flat series BB width = %v, want 0", set.BBWidth)
	}
	if set.SMA20 != 100 || set.SMA50 != 100 || set.SMA200 != 100 {
		t.Fatalf("flat series SMA = %v/%v/%v, want 100", set.SMA20, set.SMA50, set.SMA200)
	}
	if set.EMA12 != 100 || set.EMA26 != 100 {
		t.Fatalf("flat series EMA = %v/%v, want 100", set.EMA12, set.EMA26)
	}
	if set.MACDHist != 0 {
		t.Fatalf("flat series MACD hist = %v, want 0", set.MACDHist)
	}
	if set.OBV != 0 {
		t.Fatalf("flat series OBV = %v, want 0", set.OBV)
	}
	if set.VolumeRatio != 1 {
		t.Fatalf("flat series volume ratio = %v, want 1", set.VolumeRatio)
	}
}

func TestComputeMonotonicRise(t *testing.T) {
	closes := make([]float64, 250)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	set, err := NewEngine().Compute(mkSeries(t, closes))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if set.RSI != 100 {
		t.Fatalf("all-gains RSI = %v, want 100", set.RSI)
	}
	if set.SMA20 <= set.SMA50 || set.SMA50 <= set.SMA200 {
		t.Fatalf("rising series should stack SMAs: %v %v %v", set.SMA20, set.SMA50, set.SMA200)
	}
	if set.MACDHist <= 0 {
		t.Fatalf("rising series MACD hist = %v, want > 0", set.MACDHist)
	}
	if set.StochK < 80 {
		t.Fatalf("rising series stoch %%K = %v, want near 100", set.StochK)
	}
	if set.WilliamsR < -20 {
		t.Fatalf("rising series williams %%R = %v, want overbought (> -20)", set.WilliamsR)
	}
	if set.OBV <= 0 {
		t.Fatalf("rising series OBV = %v, want > 0", set.OBV)
	}
}

func TestComputeShortSeriesListsIncomplete(t *testing.T) {
	set, err := NewEngine().Compute(mkSeries(t, flatCloses(5, 100)))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if set.Complete() {
		t.Fatalf("5-bar series should not be complete")
	}
	for _, name := range []string{"sma_20", "sma_50", "sma_200", "ema_12", "ema_26", "rsi", "macd", "bollinger", "stochastic", "williams_r", "atr", "volume_ratio", "support_resistance"} {
		if set.Has(name) {
			t.Fatalf("expected %s to be incomplete for 5 bars", name)
		}
	}
	if !set.Has("obv") {
		t.Fatalf("obv needs only 2 bars")
	}
	if set.VWAP == 0 {
		t.Fatalf("vwap should always be computed")
	}
}

func TestComputeDeterministic(t *testing.T) {
	closes := make([]float64, 250)
	for i := range closes {
		closes[i] = 100 + 10*math.Sin(float64(i)/7)
	}
	e := NewEngine()
	a, err := e.Compute(mkSeries(t, closes))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	b, err := e.Compute(mkSeries(t, closes))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if a.RSI != b.RSI || a.MACD != b.MACD || a.ATR != b.ATR || a.StochK != b.StochK {
		t.Fatalf("same input produced different readings: %+v vs %+v", a, b)
	}
}

func TestATRFlatBars(t *testing.T) {
	// high-low is always 2 and closes never gap, so TR is 2 on every bar
	set, err := NewEngine().Compute(mkSeries(t, flatCloses(30, 100)))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if math.Abs(set.ATR-2) > 1e-9 {
		t.Fatalf("ATR = %v, want 2", set.ATR)
	}
}

func TestStochasticZeroRange(t *testing.T) {
	points := make([]models.PricePoint, 30)
	base := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)
	for i := range points {
		points[i] = models.PricePoint{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Open:      100, High: 100, Low: 100, Close: 100, Volume: 10,
		}
	}
	s, err := models.NewPriceSeries("X", models.TF1h, points)
	if err != nil {
		t.Fatalf("series: %v", err)
	}
	set, err := NewEngine().Compute(s)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if set.StochK != 50 || set.StochD != 50 {
		t.Fatalf("zero-range stoch = %v/%v, want 50/50", set.StochK, set.StochD)
	}
	if set.WilliamsR != -50 {
		t.Fatalf("zero-range williams %%R = %v, want -50", set.WilliamsR)
	}
}

func TestSupportResistanceBracketsPrice(t *testing.T) {
	closes := make([]float64, 250)
	for i := range closes {
		closes[i] = 100 + 10*math.Sin(float64(i)/5)
	}
	set, err := NewEngine().Compute(mkSeries(t, closes))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	price := closes[len(closes)-1]
	if set.Support >= price {
		t.Fatalf("support %v not below price %v", set.Support, price)
	}
	if set.Resistance <= price {
		t.Fatalf("resistance %v not above price %v", set.Resistance, price)
	}
}
