package models

import "time"

// SentimentScore is the aggregated text sentiment for a symbol at a point in
// time. Score is in [-1, 1]. NoData marks the neutral fallback used when no
// text was available or the source failed; Stale marks scores derived from
// text older than the configured freshness window.
type SentimentScore struct {
	Symbol    string    `json:"symbol"`
	Score     float64   `json:"score"`
	AsOf      time.Time `json:"as_of"`
	NewestDoc time.Time `json:"newest_doc,omitempty"`
	DocCount  int       `json:"doc_count"`
	NoData    bool      `json:"no_data,omitempty"`
	Stale     bool      `json:"stale,omitempty"`
}

// NeutralSentiment is the no-data fallback: score 0, NoData set.
func NeutralSentiment(symbol string, asOf time.Time) SentimentScore {
	return SentimentScore{Symbol: symbol, Score: 0, AsOf: asOf, NoData: true}
}

// TextItem is one raw document fed into sentiment scoring.
type TextItem struct {
	Symbol    string    `json:"symbol"`
	Text      string    `json:"text"`
	Source    string    `json:"source,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
