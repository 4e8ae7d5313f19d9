package models

import "time"

// IndicatorSet holds every indicator computed from one price series snapshot.
// When the series is too short for some lookbacks the set is still returned
// with Incomplete listing the names that could not be computed.
type IndicatorSet struct {
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`

	SMA20  float64 `json:"sma_20"`
	SMA50  float64 `json:"sma_50"`
	SMA200 float64 `json:"sma_200"`
	EMA12  float64 `json:"ema_12"`
	EMA26  float64 `json:"ema_26"`

	RSI float64 `json:"rsi"`

	MACD       float64 `json:"macd"`
	MACDSignal float64 `json:"macd_signal"`
	MACDHist   float64 `json:"macd_hist"`

	BBUpper    float64 `json:"bb_upper"`
	BBMiddle   float64 `json:"bb_middle"`
	BBLower    float64 `json:"bb_lower"`
	BBWidth    float64 `json:"bb_width"`
	BBPosition float64 `json:"bb_position"`

	StochK    float64 `json:"stoch_k"`
	StochD    float64 `json:"stoch_d"`
	WilliamsR float64 `json:"williams_r"`

	ATR float64 `json:"atr"`

	VWAP        float64 `json:"vwap"`
	VolumeRatio float64 `json:"volume_ratio"`
	OBV         float64 `json:"obv"`

	Support    float64 `json:"support"`
	Resistance float64 `json:"resistance"`

	// Incomplete lists indicator names that could not be computed from the
	// available history. Empty means the full basket is present.
	Incomplete []string `json:"incomplete,omitempty"`
}

// Complete reports whether every indicator in the basket was computed.
func (s *IndicatorSet) Complete() bool { return len(s.Incomplete) == 0 }

// Has reports whether the named indicator was computed.
func (s *IndicatorSet) Has(name string) bool {
	for _, n := range s.Incomplete {
		if n == name {
			return false
		}
	}
	return true
}
