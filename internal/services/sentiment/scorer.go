package sentiment

import (
	"context"
	"fmt"
	"time"

	"StockPulse/internal/domain/models"
	"StockPulse/internal/domain/repository"
	svccache "StockPulse/internal/service/cache"
	"StockPulse/pkg/logger"
)

// Scorer aggregates lexicon sentiment over recent documents for a symbol.
// It never returns an error: any upstream failure degrades to the neutral
// no-data score so fusion is never blocked on sentiment.
type Scorer struct {
	source   repository.TextSource
	log      *logger.Logger
	cache    *svccache.TTLCache
	cacheTTL time.Duration
	window   time.Duration
	maxAge   time.Duration
}

type ScorerOptions struct {
	Window   time.Duration // how far back to pull documents
	MaxAge   time.Duration // newest doc older than this marks the score stale
	CacheTTL time.Duration
}

func NewScorer(source repository.TextSource, log *logger.Logger, opts ScorerOptions) *Scorer {
	return &Scorer{
		source:   source,
		log:      log,
		cache:    svccache.NewTTLCache(),
		cacheTTL: opts.CacheTTL,
		window:   opts.Window,
		maxAge:   opts.MaxAge,
	}
}

func (s *Scorer) Score(ctx context.Context, symbol string, asOf time.Time) models.SentimentScore {
	if s.source == nil {
		return models.NeutralSentiment(symbol, asOf)
	}

	key := fmt.Sprintf("sentiment:%s", symbol)
	if s.cacheTTL > 0 {
		if v, ok := s.cache.Get(key); ok {
			if sc, ok2 := v.(models.SentimentScore); ok2 {
				sc.AsOf = asOf
				sc.Stale = s.isStale(sc.NewestDoc, asOf)
				return sc
			}
		}
	}

	items, err := s.source.Texts(ctx, symbol, asOf.Add(-s.window))
	if err != nil {
		s.log.Warn("sentiment source failed, using neutral score",
			logger.String("symbol", symbol), logger.Error(err))
		return models.NeutralSentiment(symbol, asOf)
	}
	if len(items) == 0 {
		return models.NeutralSentiment(symbol, asOf)
	}

	var sum float64
	var scored int
	var newest time.Time
	for _, it := range items {
		if it.Timestamp.After(newest) {
			newest = it.Timestamp
		}
		if v, ok := scoreText(it.Text); ok {
			sum += v
			scored++
		}
	}
	if scored == 0 {
		return models.NeutralSentiment(symbol, asOf)
	}

	score := models.SentimentScore{
		Symbol:    symbol,
		Score:     clamp(sum/float64(scored), -1, 1),
		AsOf:      asOf,
		NewestDoc: newest,
		DocCount:  scored,
		Stale:     s.isStale(newest, asOf),
	}
	if s.cacheTTL > 0 {
		s.cache.Set(key, score, s.cacheTTL)
	}
	return score
}

func (s *Scorer) isStale(newest, asOf time.Time) bool {
	return s.maxAge > 0 && !newest.IsZero() && asOf.Sub(newest) > s.maxAge
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
