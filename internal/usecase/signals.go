package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"StockPulse/internal/domain/models"
	drepo "StockPulse/internal/domain/repository"
	"StockPulse/pkg/cache"
	"StockPulse/pkg/logger"
)

// SignalService is the read surface over the signal store, with an optional
// cache in front of Latest lookups.
type SignalService struct {
	store    drepo.SignalStore
	cache    cache.Service // optional
	cacheTTL time.Duration
	log      *logger.Logger
}

func NewSignalService(store drepo.SignalStore, c cache.Service, cacheTTL time.Duration, log *logger.Logger) *SignalService {
	return &SignalService{store: store, cache: c, cacheTTL: cacheTTL, log: log}
}

func latestKey(symbol string) string { return fmt.Sprintf("signal:latest:%s", symbol) }

// GetLatest returns the most recent signal for symbol.
func (s *SignalService) GetLatest(ctx context.Context, symbol string) (*models.Signal, error) {
	sym := normalizeSymbol(symbol)
	if s.cache != nil && s.cacheTTL > 0 {
		var cached models.Signal
		if err := s.cache.Get(ctx, latestKey(sym), &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.Warn("latest signal cache read failed",
				logger.String("symbol", sym), logger.Error(err))
		}
	}

	sig, err := s.store.Latest(ctx, sym)
	if err != nil {
		return nil, err
	}
	if s.cache != nil && s.cacheTTL > 0 {
		if err := s.cache.Set(ctx, latestKey(sym), sig, s.cacheTTL); err != nil {
			s.log.Warn("latest signal cache write failed",
				logger.String("symbol", sym), logger.Error(err))
		}
	}
	return sig, nil
}

// GetHistory returns recorded signals for symbol in [from, to], ascending.
func (s *SignalService) GetHistory(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.Signal, error) {
	return s.store.History(ctx, normalizeSymbol(symbol), from, to, limit)
}

// Invalidate drops the cached latest signal for symbol.
func (s *SignalService) Invalidate(ctx context.Context, symbol string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, latestKey(normalizeSymbol(symbol))); err != nil {
		s.log.Warn("latest signal cache invalidate failed",
			logger.String("symbol", symbol), logger.Error(err))
	}
}
