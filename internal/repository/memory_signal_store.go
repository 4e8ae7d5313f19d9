package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"StockPulse/internal/domain/models"
	"StockPulse/internal/domain/repository"
)

// symbolSlot owns one symbol's history. Each slot carries its own mutex so
// appends for different symbols never contend on the same lock.
type symbolSlot struct {
	mu   sync.Mutex
	sigs []*models.Signal // ascending by timestamp
}

// MemorySignalStore is the in-process SignalStore. The store-wide lock guards
// only the symbol map; all per-symbol work happens under the slot lock.
type MemorySignalStore struct {
	mu    sync.RWMutex
	slots map[string]*symbolSlot
}

func NewMemorySignalStore() repository.SignalStore {
	return &MemorySignalStore{
		slots: make(map[string]*symbolSlot),
	}
}

func (s *MemorySignalStore) Init(ctx context.Context) error { return nil }

// slot returns the symbol's slot, creating it on first use.
func (s *MemorySignalStore) slot(symbol string) *symbolSlot {
	s.mu.RLock()
	sl, ok := s.slots[symbol]
	s.mu.RUnlock()
	if ok {
		return sl
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if sl, ok = s.slots[symbol]; !ok {
		sl = &symbolSlot{}
		s.slots[symbol] = sl
	}
	return sl
}

func (s *MemorySignalStore) lookup(symbol string) *symbolSlot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.slots[symbol]
}

func (s *MemorySignalStore) Append(ctx context.Context, sig *models.Signal) error {
	if sig == nil || sig.Symbol == "" {
		return fmt.Errorf("signal invalid")
	}
	sl := s.slot(sig.Symbol)
	sl.mu.Lock()
	defer sl.mu.Unlock()

	for _, e := range sl.sigs {
		if e.Timestamp.Equal(sig.Timestamp) {
			return fmt.Errorf("%w: %s@%s", models.ErrDuplicateTimestamp, sig.Symbol, sig.Timestamp.Format(time.RFC3339))
		}
	}
	cp := *sig // store a copy; callers keep no aliasing handle
	sl.sigs = append(sl.sigs, &cp)
	sort.Slice(sl.sigs, func(i, j int) bool { return sl.sigs[i].Timestamp.Before(sl.sigs[j].Timestamp) })
	return nil
}

func (s *MemorySignalStore) Latest(ctx context.Context, symbol string) (*models.Signal, error) {
	sl := s.lookup(symbol)
	if sl == nil {
		return nil, fmt.Errorf("%w: %s", models.ErrSymbolNotFound, symbol)
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if len(sl.sigs) == 0 {
		return nil, fmt.Errorf("%w: %s", models.ErrSymbolNotFound, symbol)
	}
	cp := *sl.sigs[len(sl.sigs)-1]
	return &cp, nil
}

func (s *MemorySignalStore) History(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.Signal, error) {
	sl := s.lookup(symbol)
	if sl == nil {
		return nil, nil
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	var out []*models.Signal
	for _, sig := range sl.sigs {
		if !from.IsZero() && sig.Timestamp.Before(from) {
			continue
		}
		if !to.IsZero() && sig.Timestamp.After(to) {
			continue
		}
		cp := *sig
		out = append(out, &cp)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *MemorySignalStore) Health(ctx context.Context) error { return nil }

func (s *MemorySignalStore) Close() error { return nil }
