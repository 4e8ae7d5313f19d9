package indicators

import (
	"math"

	"StockPulse/internal/domain/models"
)

// Indicator periods. Fixed basket; the fusion weight table is configurable,
// the math is not.
const (
	smaShort  = 20
	smaMid    = 50
	smaLong   = 200
	emaFast   = 12
	emaSlow   = 26
	rsiPeriod = 14
	macdSig   = 9
	bbPeriod  = 20
	bbK       = 2.0
	stochLen  = 14
	stochD    = 3
	wrPeriod  = 14
	atrPeriod = 14
	volAvgLen = 20
	srWindow  = 50

	eps = 1e-12
)

// Engine computes the indicator basket. Stateless and safe for concurrent use.
type Engine struct{}

func NewEngine() *Engine { return &Engine{} }

// Compute derives every indicator the available history supports. Names of
// indicators the series is too short for are listed in Incomplete; the call
// fails only when the series is empty.
func (e *Engine) Compute(series *models.PriceSeries) (*models.IndicatorSet, error) {
	n := series.Len()
	if n == 0 {
		return nil, models.ErrIncompleteData
	}

	closes := series.Closes()
	last := series.At(n - 1)
	set := &models.IndicatorSet{Symbol: series.Symbol, Timestamp: last.Timestamp}

	missing := func(name string) { set.Incomplete = append(set.Incomplete, name) }

	if n >= smaShort {
		set.SMA20 = sma(closes, smaShort)
	} else {
		missing("sma_20")
	}
	if n >= smaMid {
		set.SMA50 = sma(closes, smaMid)
	} else {
		missing("sma_50")
	}
	if n >= smaLong {
		set.SMA200 = sma(closes, smaLong)
	} else {
		missing("sma_200")
	}

	if n >= emaFast {
		set.EMA12 = lastOf(emaSeries(closes, emaFast))
	} else {
		missing("ema_12")
	}
	if n >= emaSlow {
		set.EMA26 = lastOf(emaSeries(closes, emaSlow))
	} else {
		missing("ema_26")
	}

	if n >= rsiPeriod+1 {
		set.RSI = rsi(closes, rsiPeriod)
	} else {
		missing("rsi")
	}

	if n >= emaSlow+macdSig {
		set.MACD, set.MACDSignal = macd(closes)
		set.MACDHist = set.MACD - set.MACDSignal
	} else {
		missing("macd")
	}

	if n >= bbPeriod {
		mean, std := meanStd(closes[n-bbPeriod:])
		set.BBMiddle = mean
		set.BBUpper = mean + bbK*std
		set.BBLower = mean - bbK*std
		if mean > eps {
			set.BBWidth = (set.BBUpper - set.BBLower) / mean
		}
		width := set.BBUpper - set.BBLower
		if width < eps {
			set.BBPosition = 0.5 // degenerate band, price is "in the middle"
		} else {
			set.BBPosition = (last.Close - set.BBLower) / width
		}
	} else {
		missing("bollinger")
	}

	if n >= stochLen+stochD-1 {
		set.StochK, set.StochD = stochastic(series)
	} else {
		missing("stochastic")
	}

	if n >= wrPeriod {
		set.WilliamsR = williamsR(series)
	} else {
		missing("williams_r")
	}

	if n >= atrPeriod+1 {
		set.ATR = atr(series)
	} else {
		missing("atr")
	}

	set.VWAP = vwap(series)
	if n >= volAvgLen {
		set.VolumeRatio = volumeRatio(series)
	} else {
		missing("volume_ratio")
	}
	if n >= 2 {
		set.OBV = obv(series)
	} else {
		missing("obv")
	}

	if n >= 10 {
		set.Support, set.Resistance = supportResistance(series)
	} else {
		missing("support_resistance")
	}

	return set, nil
}

func sma(values []float64, period int) float64 {
	var sum float64
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	return sum / float64(period)
}

// emaSeries returns the full EMA, seeded with the first value.
func emaSeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	alpha := 2.0 / float64(period+1)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

func lastOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return values[len(values)-1]
}

// rsi uses Wilder smoothing. A flat series (no gains, no losses) reads as
// neutral 50; all-gains reads as 100.
func rsi(values []float64, period int) float64 {
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		d := values[i] - values[i-1]
		if d > 0 {
			avgGain += d
		} else {
			avgLoss -= d
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	for i := period + 1; i < len(values); i++ {
		d := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if d > 0 {
			gain = d
		} else {
			loss = -d
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}
	if avgLoss < eps {
		if avgGain < eps {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

func macd(values []float64) (line, signal float64) {
	fast := emaSeries(values, emaFast)
	slow := emaSeries(values, emaSlow)
	diff := make([]float64, len(values))
	for i := range values {
		diff[i] = fast[i] - slow[i]
	}
	sig := emaSeries(diff, macdSig)
	return lastOf(diff), lastOf(sig)
}

func meanStd(values []float64) (mean, std float64) {
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	for _, v := range values {
		d := v - mean
		std += d * d
	}
	std = math.Sqrt(std / float64(len(values)))
	return mean, std
}

// stochastic returns the latest %K and its stochD-bar average %D.
// A zero high-low range reads as 50.
func stochastic(series *models.PriceSeries) (k, d float64) {
	n := series.Len()
	ks := make([]float64, 0, stochD)
	for off := stochD - 1; off >= 0; off-- {
		end := n - off
		ks = append(ks, rawStochK(series, end))
	}
	var sum float64
	for _, v := range ks {
		sum += v
	}
	return ks[len(ks)-1], sum / float64(len(ks))
}

func rawStochK(series *models.PriceSeries, end int) float64 {
	lo, hi := rangeLowHigh(series, end-stochLen, end)
	rng := hi - lo
	if rng < eps {
		return 50
	}
	return 100 * (series.At(end-1).Close - lo) / rng
}

// williamsR is in [-100, 0]. A zero range reads as -50.
func williamsR(series *models.PriceSeries) float64 {
	n := series.Len()
	lo, hi := rangeLowHigh(series, n-wrPeriod, n)
	rng := hi - lo
	if rng < eps {
		return -50
	}
	return -100 * (hi - series.At(n-1).Close) / rng
}

func rangeLowHigh(series *models.PriceSeries, from, to int) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for i := from; i < to; i++ {
		p := series.At(i)
		if p.Low < lo {
			lo = p.Low
		}
		if p.High > hi {
			hi = p.High
		}
	}
	return lo, hi
}

// atr is the simple rolling mean of the true range over atrPeriod bars.
func atr(series *models.PriceSeries) float64 {
	n := series.Len()
	var sum float64
	for i := n - atrPeriod; i < n; i++ {
		cur, prev := series.At(i), series.At(i-1)
		tr := cur.High - cur.Low
		if d := math.Abs(cur.High - prev.Close); d > tr {
			tr = d
		}
		if d := math.Abs(cur.Low - prev.Close); d > tr {
			tr = d
		}
		sum += tr
	}
	return sum / float64(atrPeriod)
}

func vwap(series *models.PriceSeries) float64 {
	var pv, vol float64
	for i := 0; i < series.Len(); i++ {
		p := series.At(i)
		typical := (p.High + p.Low + p.Close) / 3
		pv += typical * p.Volume
		vol += p.Volume
	}
	if vol < eps {
		last, _ := series.Last()
		return last.Close
	}
	return pv / vol
}

func volumeRatio(series *models.PriceSeries) float64 {
	n := series.Len()
	var sum float64
	for i := n - volAvgLen; i < n; i++ {
		sum += series.At(i).Volume
	}
	avg := sum / float64(volAvgLen)
	if avg < eps {
		return 1
	}
	return series.At(n-1).Volume / avg
}

func obv(series *models.PriceSeries) float64 {
	var total float64
	for i := 1; i < series.Len(); i++ {
		cur, prev := series.At(i), series.At(i-1)
		switch {
		case cur.Close > prev.Close:
			total += cur.Volume
		case cur.Close < prev.Close:
			total -= cur.Volume
		}
	}
	return total
}

// supportResistance scans the last srWindow bars for local extrema: support is
// the highest local low below the last close, resistance the lowest local high
// above it. Falls back to the window min/max when no extremum qualifies.
func supportResistance(series *models.PriceSeries) (support, resistance float64) {
	n := series.Len()
	start := n - srWindow
	if start < 0 {
		start = 0
	}
	price := series.At(n - 1).Close

	winLo, winHi := rangeLowHigh(series, start, n)
	support, resistance = winLo, winHi

	bestSup := math.Inf(-1)
	bestRes := math.Inf(1)
	for i := start + 1; i < n-1; i++ {
		cur := series.At(i)
		prev, next := series.At(i-1), series.At(i+1)
		if cur.Low < prev.Low && cur.Low < next.Low && cur.Low < price && cur.Low > bestSup {
			bestSup = cur.Low
		}
		if cur.High > prev.High && cur.High > next.High && cur.High > price && cur.High < bestRes {
			bestRes = cur.High
		}
	}
	if !math.IsInf(bestSup, -1) {
		support = bestSup
	}
	if !math.IsInf(bestRes, 1) {
		resistance = bestRes
	}
	return support, resistance
}
