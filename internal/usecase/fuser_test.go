package usecase

import (
	"math"
	"testing"
	"time"

	"StockPulse/internal/domain/models"
	"StockPulse/internal/services/indicators"
	"StockPulse/pkg/config"
)

func testFusionConfig() config.FusionConfig {
	return config.FusionConfig{
		Weights:            config.DefaultWeights(),
		Threshold:          0.15,
		IncompleteDiscount: 0.75,
		StaleDiscount:      0.9,
	}
}

func oneBarSeries(t *testing.T, close float64) *models.PriceSeries {
	t.Helper()
	s, err := models.NewPriceSeries("AAPL", models.TF1d, []models.PricePoint{{
		Timestamp: time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC),
		Open:      close, High: close, Low: close, Close: close, Volume: 100,
	}})
	if err != nil {
		t.Fatalf("series: %v", err)
	}
	return s
}

// completeSet marks every indicator as computed with neutral readings.
func completeSet() *models.IndicatorSet {
	return &models.IndicatorSet{
		Symbol: "AAPL",
		RSI:    50, StochK: 50, WilliamsR: -50, BBPosition: 0.5,
		SMA20: 100, SMA50: 100, VWAP: 100, VolumeRatio: 1, ATR: 2,
	}
}

func TestFuseAllNeutralIsHold(t *testing.T) {
	f := NewFuser(testFusionConfig())
	sig, err := f.Fuse(completeSet(), models.NeutralSentiment("AAPL", time.Now()), oneBarSeries(t, 100))
	if err != nil {
		t.Fatalf("fuse: %v", err)
	}
	if sig.Type != models.SignalHold {
		t.Fatalf("neutral readings fused to %s, want HOLD", sig.Type)
	}
	if sig.Confidence != 0 {
		t.Fatalf("neutral confidence = %v, want 0", sig.Confidence)
	}
	if len(sig.Votes) != 0 {
		t.Fatalf("neutral readings should cast no directional votes, got %v", sig.Votes)
	}
}

func TestFuseStrongBuy(t *testing.T) {
	ind := completeSet()
	ind.RSI = 25          // oversold
	ind.MACDHist = 1.2    // bullish cross
	ind.BBPosition = 0.02 // at lower band
	ind.StochK = 10
	ind.WilliamsR = -90
	ind.SMA20, ind.SMA50 = 110, 100

	f := NewFuser(testFusionConfig())
	sig, err := f.Fuse(ind, models.SentimentScore{Score: 0.6, DocCount: 5}, oneBarSeries(t, 100))
	if err != nil {
		t.Fatalf("fuse: %v", err)
	}
	if sig.Type != models.SignalBuy {
		t.Fatalf("fused to %s, want BUY", sig.Type)
	}
	if sig.Confidence <= 0 || sig.Confidence > 100 {
		t.Fatalf("confidence %v out of range", sig.Confidence)
	}
	if math.Abs(sig.PriceTarget-115) > 1e-9 {
		t.Fatalf("price target = %v, want 115", sig.PriceTarget)
	}
	if sig.StopLoss != 96 {
		t.Fatalf("stop loss = %v, want 96 (price - 2*ATR)", sig.StopLoss)
	}
	if len(sig.Votes) == 0 {
		t.Fatalf("expected directional votes")
	}
}

func TestFuseStrongSell(t *testing.T) {
	ind := completeSet()
	ind.RSI = 80
	ind.MACDHist = -0.5
	ind.BBPosition = 0.99
	ind.StochK = 92
	ind.WilliamsR = -5
	ind.SMA20, ind.SMA50 = 95, 100

	f := NewFuser(testFusionConfig())
	sig, err := f.Fuse(ind, models.SentimentScore{Score: -0.7, DocCount: 3}, oneBarSeries(t, 100))
	if err != nil {
		t.Fatalf("fuse: %v", err)
	}
	if sig.Type != models.SignalSell {
		t.Fatalf("fused to %s, want SELL", sig.Type)
	}
	if math.Abs(sig.PriceTarget-85) > 1e-9 {
		t.Fatalf("price target = %v, want 85", sig.PriceTarget)
	}
	if sig.StopLoss != 104 {
		t.Fatalf("stop loss = %v, want 104 (price + 2*ATR)", sig.StopLoss)
	}
}

func TestFuseExactThresholdIsHold(t *testing.T) {
	// weight only rsi so norm is exactly +1 * w / w = 1 when voting; use a
	// custom weight table to land the normalized score exactly on the threshold
	cfg := config.FusionConfig{
		Weights:   map[string]float64{"rsi": 0.15, "macd": 0.85},
		Threshold: 0.15,
	}
	ind := completeSet()
	ind.RSI = 25 // +1 vote, weight 0.15; macd neutral, weight 0.85
	// norm = 0.15 / 1.0 = threshold exactly

	sig, err := NewFuser(cfg).Fuse(ind, models.SentimentScore{NoData: true}, oneBarSeries(t, 100))
	if err != nil {
		t.Fatalf("fuse: %v", err)
	}
	if sig.Type != models.SignalHold {
		t.Fatalf("score on threshold fused to %s, want HOLD", sig.Type)
	}
}

func TestFuseIncompleteDiscount(t *testing.T) {
	cfg := config.FusionConfig{
		Weights:            map[string]float64{"rsi": 1},
		Threshold:          0.15,
		IncompleteDiscount: 0.75,
	}
	full := completeSet()
	full.RSI = 25

	partial := completeSet()
	partial.RSI = 25
	partial.Incomplete = []string{"sma_200"}

	sent := models.SentimentScore{NoData: true}
	f := NewFuser(cfg)
	a, err := f.Fuse(full, sent, oneBarSeries(t, 100))
	if err != nil {
		t.Fatalf("fuse: %v", err)
	}
	b, err := f.Fuse(partial, sent, oneBarSeries(t, 100))
	if err != nil {
		t.Fatalf("fuse: %v", err)
	}
	if a.Confidence != 100 {
		t.Fatalf("full confidence = %v, want 100", a.Confidence)
	}
	if b.Confidence != 75 {
		t.Fatalf("discounted confidence = %v, want 75", b.Confidence)
	}
	if !b.IndicatorsIncomplete {
		t.Fatalf("expected IndicatorsIncomplete flag")
	}
}

func TestFuseStaleSentimentDiscount(t *testing.T) {
	cfg := config.FusionConfig{
		Weights:       map[string]float64{"sentiment": 1},
		Threshold:     0.15,
		StaleDiscount: 0.9,
	}
	ind := completeSet()
	sig, err := NewFuser(cfg).Fuse(ind, models.SentimentScore{Score: 0.9, Stale: true, DocCount: 2}, oneBarSeries(t, 100))
	if err != nil {
		t.Fatalf("fuse: %v", err)
	}
	if sig.Type != models.SignalBuy {
		t.Fatalf("fused to %s, want BUY", sig.Type)
	}
	// 0.9 sentiment scales the score to 0.9, then the stale discount applies
	if sig.Confidence != 81 {
		t.Fatalf("stale confidence = %v, want 81", sig.Confidence)
	}
	if !sig.SentimentStale {
		t.Fatalf("expected SentimentStale flag")
	}
}

func TestFuseSentimentScalesWithMagnitude(t *testing.T) {
	cfg := config.FusionConfig{
		Weights:   map[string]float64{"sentiment": 1},
		Threshold: 0.15,
	}
	f := NewFuser(cfg)
	ind := completeSet()

	weak, err := f.Fuse(ind, models.SentimentScore{Score: 0.25, DocCount: 2}, oneBarSeries(t, 100))
	if err != nil {
		t.Fatalf("fuse weak: %v", err)
	}
	strong, err := f.Fuse(ind, models.SentimentScore{Score: 1.0, DocCount: 2}, oneBarSeries(t, 100))
	if err != nil {
		t.Fatalf("fuse strong: %v", err)
	}
	if weak.Confidence != 25 {
		t.Fatalf("weak sentiment confidence = %v, want 25", weak.Confidence)
	}
	if strong.Confidence != 100 {
		t.Fatalf("strong sentiment confidence = %v, want 100", strong.Confidence)
	}

	// inside the neutral band sentiment contributes nothing
	banded, err := f.Fuse(ind, models.SentimentScore{Score: 0.1, DocCount: 2}, oneBarSeries(t, 100))
	if err != nil {
		t.Fatalf("fuse banded: %v", err)
	}
	if banded.Type != models.SignalHold || banded.Confidence != 0 {
		t.Fatalf("in-band sentiment fused to %s/%v, want HOLD/0", banded.Type, banded.Confidence)
	}
}

func TestFuseNoSentimentDataExcludedFromDenominator(t *testing.T) {
	cfg := config.FusionConfig{
		Weights:   map[string]float64{"rsi": 1, "sentiment": 1},
		Threshold: 0.15,
	}
	ind := completeSet()
	ind.RSI = 25

	sig, err := NewFuser(cfg).Fuse(ind, models.SentimentScore{NoData: true}, oneBarSeries(t, 100))
	if err != nil {
		t.Fatalf("fuse: %v", err)
	}
	// sentiment weight must not dilute the score when no docs exist
	if sig.Confidence != 100 {
		t.Fatalf("confidence = %v, want 100 with sentiment excluded", sig.Confidence)
	}
}

func TestFuseMissingIndicatorsSkipVotes(t *testing.T) {
	ind := &models.IndicatorSet{
		Symbol:     "AAPL",
		Incomplete: []string{"rsi", "macd", "bollinger", "stochastic", "williams_r", "sma_20", "sma_50", "volume_ratio", "atr"},
	}
	sig, err := NewFuser(testFusionConfig()).Fuse(ind, models.SentimentScore{NoData: true}, oneBarSeries(t, 100))
	if err != nil {
		t.Fatalf("fuse: %v", err)
	}
	if sig.Type != models.SignalHold || sig.Confidence != 0 {
		t.Fatalf("no indicators should fuse to HOLD/0, got %s/%v", sig.Type, sig.Confidence)
	}
	if sig.PriceTarget != 0 || sig.StopLoss != 0 {
		t.Fatalf("hold signal should carry no target/stop")
	}
}

// fallingSeries is the mirror of risingSeries: 250 strictly decreasing daily
// closes, driving RSI to the floor.
func fallingSeries() (*models.PriceSeries, error) {
	base := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)
	points := make([]models.PricePoint, 250)
	for i := range points {
		c := 350 - float64(i)
		points[i] = models.PricePoint{
			Timestamp: base.Add(time.Duration(i) * 24 * time.Hour),
			Open:      c, High: c + 1, Low: c - 1, Close: c, Volume: 1000,
		}
	}
	return models.NewPriceSeries("AAPL", models.TF1d, points)
}

func TestFuseFallingSeriesLeansBuy(t *testing.T) {
	series, err := fallingSeries()
	if err != nil {
		t.Fatalf("series: %v", err)
	}
	set, err := indicators.NewEngine().Compute(series)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if set.RSI >= 30 {
		t.Fatalf("falling series RSI = %v, want oversold (< 30)", set.RSI)
	}

	sig, err := NewFuser(testFusionConfig()).Fuse(set, models.SentimentScore{NoData: true}, series)
	if err != nil {
		t.Fatalf("fuse: %v", err)
	}
	var rsiVote int
	var lean float64
	for _, v := range sig.Votes {
		if v.Name == "rsi" {
			rsiVote = v.Vote
		}
		lean += v.Weight * float64(v.Vote)
	}
	if rsiVote != 1 {
		t.Fatalf("oversold RSI vote = %d, want +1", rsiVote)
	}
	// trend indicators pull the other way, but the weighted sum stays bullish
	if lean <= 0 {
		t.Fatalf("weighted vote sum = %v, want positive", lean)
	}
	if sig.Type == models.SignalSell {
		t.Fatalf("falling series fused to SELL, want buy-leaning HOLD or BUY")
	}
}

func TestFuseEmptySeries(t *testing.T) {
	s, err := models.NewPriceSeries("AAPL", models.TF1d, nil)
	if err != nil {
		t.Fatalf("series: %v", err)
	}
	if _, err := NewFuser(testFusionConfig()).Fuse(completeSet(), models.NeutralSentiment("AAPL", time.Now()), s); err == nil {
		t.Fatalf("expected error for empty series")
	}
}
