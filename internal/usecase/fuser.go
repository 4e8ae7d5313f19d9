package usecase

import (
	"fmt"

	"StockPulse/internal/domain/models"
	"StockPulse/pkg/config"
)

// Vote rule boundaries. The weight table is configurable; the rules are not.
const (
	rsiOversold    = 30.0
	rsiOverbought  = 70.0
	stochLow       = 20.0
	stochHigh      = 80.0
	wrOversold     = -80.0
	wrOverbought   = -20.0
	bbLowPos       = 0.05
	bbHighPos      = 0.95
	sentimentBand  = 0.2
	volumeConfirm  = 1.5
	targetFraction = 0.15
	stopATRMult    = 2.0
)

// Fuser turns an indicator set plus a sentiment score into one directional
// signal. Pure and safe for concurrent use.
type Fuser struct {
	weights            map[string]float64
	threshold          float64
	incompleteDiscount float64
	staleDiscount      float64
}

func NewFuser(cfg config.FusionConfig) *Fuser {
	w := cfg.Weights
	if w == nil {
		w = config.DefaultWeights()
	}
	return &Fuser{
		weights:            w,
		threshold:          cfg.Threshold,
		incompleteDiscount: cfg.IncompleteDiscount,
		staleDiscount:      cfg.StaleDiscount,
	}
}

// Fuse applies the vote rules, sums weighted votes, and maps the normalized
// score onto BUY/SELL/HOLD with symmetric thresholds. Scores exactly on the
// threshold resolve to HOLD. Confidence is the normalized magnitude on a
// 0..100 scale, discounted for incomplete indicators and stale sentiment.
func (f *Fuser) Fuse(ind *models.IndicatorSet, sent models.SentimentScore, series *models.PriceSeries) (*models.Signal, error) {
	last, ok := series.Last()
	if !ok {
		return nil, models.ErrIncompleteData
	}
	price := last.Close

	var votes []models.IndicatorVote
	var score, maxScore float64

	cast := func(name string, vote int, reason string) {
		w := f.weights[name]
		if w == 0 {
			return
		}
		maxScore += w
		score += w * float64(vote)
		if vote != 0 {
			votes = append(votes, models.IndicatorVote{Name: name, Vote: vote, Weight: w, Reason: reason})
		}
	}

	if ind.Has("rsi") {
		switch {
		case ind.RSI < rsiOversold:
			cast("rsi", 1, fmt.Sprintf("RSI oversold (%.1f < %.0f)", ind.RSI, rsiOversold))
		case ind.RSI > rsiOverbought:
			cast("rsi", -1, fmt.Sprintf("RSI overbought (%.1f > %.0f)", ind.RSI, rsiOverbought))
		default:
			cast("rsi", 0, "")
		}
	}

	if ind.Has("macd") {
		switch {
		case ind.MACDHist > 0:
			cast("macd", 1, "MACD above signal line")
		case ind.MACDHist < 0:
			cast("macd", -1, "MACD below signal line")
		default:
			cast("macd", 0, "")
		}
	}

	if ind.Has("bollinger") {
		switch {
		case ind.BBPosition < bbLowPos:
			cast("bollinger", 1, "price at lower Bollinger band")
		case ind.BBPosition > bbHighPos:
			cast("bollinger", -1, "price at upper Bollinger band")
		default:
			cast("bollinger", 0, "")
		}
	}

	if ind.Has("stochastic") {
		switch {
		case ind.StochK < stochLow:
			cast("stochastic", 1, fmt.Sprintf("stochastic %%K oversold (%.1f)", ind.StochK))
		case ind.StochK > stochHigh:
			cast("stochastic", -1, fmt.Sprintf("stochastic %%K overbought (%.1f)", ind.StochK))
		default:
			cast("stochastic", 0, "")
		}
	}

	if ind.Has("williams_r") {
		switch {
		case ind.WilliamsR < wrOversold:
			cast("williams_r", 1, "Williams %R oversold")
		case ind.WilliamsR > wrOverbought:
			cast("williams_r", -1, "Williams %R overbought")
		default:
			cast("williams_r", 0, "")
		}
	}

	if ind.Has("sma_20") && ind.Has("sma_50") {
		switch {
		case ind.SMA20 > ind.SMA50:
			cast("sma_cross", 1, "SMA20 above SMA50")
		case ind.SMA20 < ind.SMA50:
			cast("sma_cross", -1, "SMA20 below SMA50")
		default:
			cast("sma_cross", 0, "")
		}
	}

	if ind.Has("volume_ratio") {
		switch {
		case price > ind.VWAP && ind.VolumeRatio > volumeConfirm:
			cast("volume", 1, "above VWAP on elevated volume")
		case price < ind.VWAP && ind.VolumeRatio > volumeConfirm:
			cast("volume", -1, "below VWAP on elevated volume")
		default:
			cast("volume", 0, "")
		}
	}

	// Sentiment is the one fractional vote: outside the neutral band its
	// contribution scales with the score magnitude, so 0.25 moves the fused
	// score a quarter as much as 1.0.
	if !sent.NoData {
		if w := f.weights["sentiment"]; w != 0 {
			maxScore += w
			switch {
			case sent.Score >= sentimentBand:
				score += w * sent.Score
				votes = append(votes, models.IndicatorVote{Name: "sentiment", Vote: 1, Weight: w, Reason: fmt.Sprintf("bullish sentiment (%.2f)", sent.Score)})
			case sent.Score <= -sentimentBand:
				score += w * sent.Score
				votes = append(votes, models.IndicatorVote{Name: "sentiment", Vote: -1, Weight: w, Reason: fmt.Sprintf("bearish sentiment (%.2f)", sent.Score)})
			}
		}
	}

	sig := &models.Signal{
		Symbol:               series.Symbol,
		Type:                 models.SignalHold,
		Timestamp:            last.Timestamp,
		PriceAtSignal:        price,
		Votes:                votes,
		IndicatorsIncomplete: !ind.Complete(),
		SentimentStale:       sent.Stale,
	}
	if maxScore == 0 {
		return sig, nil
	}

	norm := score / maxScore // [-1, 1]
	switch {
	case norm > f.threshold:
		sig.Type = models.SignalBuy
	case norm < -f.threshold:
		sig.Type = models.SignalSell
	}

	conf := abs(norm) * 100
	if !ind.Complete() {
		conf *= f.incompleteDiscount
	}
	if sent.Stale {
		conf *= f.staleDiscount
	}
	if conf > 100 {
		conf = 100
	}
	sig.Confidence = conf

	if sig.Type != models.SignalHold && ind.Has("atr") {
		if sig.Type == models.SignalBuy {
			sig.PriceTarget = price * (1 + targetFraction)
			sig.StopLoss = price - stopATRMult*ind.ATR
		} else {
			sig.PriceTarget = price * (1 - targetFraction)
			sig.StopLoss = price + stopATRMult*ind.ATR
		}
	}
	return sig, nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
