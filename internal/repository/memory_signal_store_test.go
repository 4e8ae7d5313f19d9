package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"StockPulse/internal/domain/models"
)

func sigAt(symbol string, ts time.Time) *models.Signal {
	return &models.Signal{
		Symbol:    symbol,
		Type:      models.SignalBuy,
		Timestamp: ts,
	}
}

func TestMemoryStoreAppendAndLatest(t *testing.T) {
	s := NewMemorySignalStore()
	ctx := context.Background()
	base := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		if err := s.Append(ctx, sigAt("AAPL", base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	latest, err := s.Latest(ctx, "AAPL")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if !latest.Timestamp.Equal(base.Add(2 * time.Hour)) {
		t.Fatalf("latest = %v, want newest timestamp", latest.Timestamp)
	}
}

func TestMemoryStoreDuplicateTimestamp(t *testing.T) {
	s := NewMemorySignalStore()
	ctx := context.Background()
	ts := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)

	if err := s.Append(ctx, sigAt("AAPL", ts)); err != nil {
		t.Fatalf("first append: %v", err)
	}
	err := s.Append(ctx, sigAt("AAPL", ts))
	if !errors.Is(err, models.ErrDuplicateTimestamp) {
		t.Fatalf("expected ErrDuplicateTimestamp, got %v", err)
	}
	// same timestamp on another symbol is fine
	if err := s.Append(ctx, sigAt("MSFT", ts)); err != nil {
		t.Fatalf("other symbol append: %v", err)
	}
}

func TestMemoryStoreLatestUnknownSymbol(t *testing.T) {
	s := NewMemorySignalStore()
	_, err := s.Latest(context.Background(), "NOPE")
	if !errors.Is(err, models.ErrSymbolNotFound) {
		t.Fatalf("expected ErrSymbolNotFound, got %v", err)
	}
}

func TestMemoryStoreHistoryOrderAndRange(t *testing.T) {
	s := NewMemorySignalStore()
	ctx := context.Background()
	base := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)

	// append out of order; history must come back ascending
	for _, off := range []int{3, 0, 4, 1, 2} {
		if err := s.Append(ctx, sigAt("AAPL", base.Add(time.Duration(off)*time.Hour))); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	all, err := s.History(ctx, "AAPL", time.Time{}, time.Time{}, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("history len = %d, want 5", len(all))
	}
	for i := 1; i < len(all); i++ {
		if !all[i].Timestamp.After(all[i-1].Timestamp) {
			t.Fatalf("history not ascending at %d", i)
		}
	}

	ranged, err := s.History(ctx, "AAPL", base.Add(time.Hour), base.Add(3*time.Hour), 0)
	if err != nil {
		t.Fatalf("history ranged: %v", err)
	}
	if len(ranged) != 3 {
		t.Fatalf("ranged len = %d, want 3 (bounds inclusive)", len(ranged))
	}

	limited, err := s.History(ctx, "AAPL", time.Time{}, time.Time{}, 2)
	if err != nil {
		t.Fatalf("history limited: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("limited len = %d, want 2", len(limited))
	}
}

func TestMemoryStoreHistoryEmptySymbol(t *testing.T) {
	s := NewMemorySignalStore()
	out, err := s.History(context.Background(), "NOPE", time.Time{}, time.Time{}, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected empty history, got %d", len(out))
	}
}

func TestMemoryStoreCopiesOnRead(t *testing.T) {
	s := NewMemorySignalStore()
	ctx := context.Background()
	ts := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)
	if err := s.Append(ctx, sigAt("AAPL", ts)); err != nil {
		t.Fatalf("append: %v", err)
	}

	a, _ := s.Latest(ctx, "AAPL")
	a.Confidence = 99

	b, _ := s.Latest(ctx, "AAPL")
	if b.Confidence == 99 {
		t.Fatalf("mutation through returned pointer leaked into the store")
	}
}

func TestMemoryStoreAppendsIndependentAcrossSymbols(t *testing.T) {
	s := NewMemorySignalStore().(*MemorySignalStore)
	ctx := context.Background()
	ts := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)

	if err := s.Append(ctx, sigAt("AAPL", ts)); err != nil {
		t.Fatalf("seed append: %v", err)
	}

	// hold AAPL's slot lock; appends for other symbols must not queue behind it
	sl := s.slot("AAPL")
	sl.mu.Lock()

	done := make(chan error, 1)
	go func() { done <- s.Append(ctx, sigAt("MSFT", ts)) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("append: %v", err)
		}
	case <-time.After(2 * time.Second):
		sl.mu.Unlock()
		t.Fatalf("append for MSFT blocked behind AAPL's lock")
	}
	sl.mu.Unlock()

	// AAPL resumes normally once its lock is released
	if err := s.Append(ctx, sigAt("AAPL", ts.Add(time.Hour))); err != nil {
		t.Fatalf("append after unlock: %v", err)
	}
}

func TestMemoryStoreConcurrentAppends(t *testing.T) {
	s := NewMemorySignalStore()
	ctx := context.Background()
	base := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			sym := fmt.Sprintf("SYM%d", g%4)
			for i := 0; i < 50; i++ {
				ts := base.Add(time.Duration(g*1000+i) * time.Second)
				_ = s.Append(ctx, sigAt(sym, ts))
			}
		}(g)
	}
	wg.Wait()

	total := 0
	for i := 0; i < 4; i++ {
		out, err := s.History(ctx, fmt.Sprintf("SYM%d", i), time.Time{}, time.Time{}, 0)
		if err != nil {
			t.Fatalf("history: %v", err)
		}
		total += len(out)
	}
	if total != 400 {
		t.Fatalf("recorded %d signals, want 400", total)
	}
}
