package models

import "time"

// SignalType is the fused directional call.
type SignalType string

const (
	SignalBuy  SignalType = "BUY"
	SignalSell SignalType = "SELL"
	SignalHold SignalType = "HOLD"
)

// IndicatorVote records one indicator's contribution to a fused signal.
// Vote is -1, 0, or +1; Weight is the weight it carried in the sum.
type IndicatorVote struct {
	Name   string  `json:"name"`
	Vote   int     `json:"vote"`
	Weight float64 `json:"weight"`
	Reason string  `json:"reason,omitempty"`
}

// Signal is an immutable fused trading signal, keyed by Symbol+Timestamp.
type Signal struct {
	Symbol        string          `json:"symbol"`
	Type          SignalType      `json:"type"`
	Confidence    float64         `json:"confidence"` // [0, 100]
	Timestamp     time.Time       `json:"timestamp"`
	PriceAtSignal float64         `json:"price_at_signal"`
	Votes         []IndicatorVote `json:"votes"`

	// PriceTarget and StopLoss are ATR-derived levels, zero for HOLD.
	PriceTarget float64 `json:"price_target,omitempty"`
	StopLoss    float64 `json:"stop_loss,omitempty"`

	// Degradation markers carried through from the inputs.
	IndicatorsIncomplete bool `json:"indicators_incomplete,omitempty"`
	SentimentStale       bool `json:"sentiment_stale,omitempty"`
}
