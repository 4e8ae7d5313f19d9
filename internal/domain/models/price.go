package models

import (
	"fmt"
	"time"
)

// PricePoint is a single OHLCV bar.
type PricePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// PriceSeries is an immutable snapshot of bars for one symbol and timeframe.
// Timestamps are strictly increasing; NewPriceSeries enforces it.
type PriceSeries struct {
	Symbol    string
	Timeframe Timeframe
	points    []PricePoint
}

// NewPriceSeries validates ordering and returns a series owning a copy of points.
func NewPriceSeries(symbol string, tf Timeframe, points []PricePoint) (*PriceSeries, error) {
	cp := make([]PricePoint, len(points))
	copy(cp, points)
	for i := 1; i < len(cp); i++ {
		if !cp[i].Timestamp.After(cp[i-1].Timestamp) {
			return nil, fmt.Errorf("price series %s: timestamp at index %d not increasing", symbol, i)
		}
	}
	return &PriceSeries{Symbol: symbol, Timeframe: tf, points: cp}, nil
}

func (s *PriceSeries) Len() int { return len(s.points) }

// At returns the bar at index i. Panics on out-of-range like a slice would.
func (s *PriceSeries) At(i int) PricePoint { return s.points[i] }

// Last returns the most recent bar, or false when the series is empty.
func (s *PriceSeries) Last() (PricePoint, bool) {
	if len(s.points) == 0 {
		return PricePoint{}, false
	}
	return s.points[len(s.points)-1], true
}

// Closes returns a copy of the close prices in chronological order.
func (s *PriceSeries) Closes() []float64 {
	out := make([]float64, len(s.points))
	for i, p := range s.points {
		out[i] = p.Close
	}
	return out
}

// Volumes returns a copy of the volumes in chronological order.
func (s *PriceSeries) Volumes() []float64 {
	out := make([]float64, len(s.points))
	for i, p := range s.points {
		out[i] = p.Volume
	}
	return out
}
