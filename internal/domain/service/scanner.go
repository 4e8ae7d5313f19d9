package service

import (
	"context"
	"time"

	"StockPulse/internal/domain/models"
)

// IndicatorEngine computes the full indicator basket from a price series.
// Implementations are pure: no I/O, deterministic for a given series.
type IndicatorEngine interface {
	Compute(series *models.PriceSeries) (*models.IndicatorSet, error)
}

// SentimentScorer aggregates text sentiment for a symbol. It never fails the
// pipeline: on any upstream problem it returns the neutral no-data score.
type SentimentScorer interface {
	Score(ctx context.Context, symbol string, asOf time.Time) models.SentimentScore
}

// SignalFuser combines indicators and sentiment into a directional signal.
// Pure; the caller supplies the timestamp and price via the series.
type SignalFuser interface {
	Fuse(indicators *models.IndicatorSet, sentiment models.SentimentScore, series *models.PriceSeries) (*models.Signal, error)
}
