package usecase

import (
	"context"
	"sync"
	"time"

	"StockPulse/internal/domain/models"
)

// QuoteBoard keeps the last live trade per symbol. It is the sink behind the
// quote pipeline and lets scans use a fresher price than the last closed bar.
type QuoteBoard struct {
	mu    sync.RWMutex
	last  map[string]*models.Quote
	onSet func(symbol string, price float64)
}

func NewQuoteBoard(onSet func(symbol string, price float64)) *QuoteBoard {
	return &QuoteBoard{last: make(map[string]*models.Quote), onSet: onSet}
}

// Process implements middleware.Proc.
func (b *QuoteBoard) Process(_ context.Context, q *models.Quote) error {
	b.mu.Lock()
	cur := b.last[q.Symbol]
	if cur == nil || !q.Timestamp.Before(cur.Timestamp) {
		b.last[q.Symbol] = q
	}
	b.mu.Unlock()
	if b.onSet != nil {
		b.onSet(q.Symbol, q.Price)
	}
	return nil
}

// Last returns the freshest quote for symbol, if any.
func (b *QuoteBoard) Last(symbol string) (float64, time.Time, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	q, ok := b.last[symbol]
	if !ok {
		return 0, time.Time{}, false
	}
	return q.Price, q.Timestamp, true
}
