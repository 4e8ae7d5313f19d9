package usecase

import (
	"context"
	"testing"
	"time"

	"StockPulse/internal/domain/models"
)

func TestQuoteBoardKeepsFreshest(t *testing.T) {
	b := NewQuoteBoard(nil)
	ctx := context.Background()
	base := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)

	if err := b.Process(ctx, &models.Quote{Symbol: "AAPL", Price: 100, Timestamp: base.Add(time.Second)}); err != nil {
		t.Fatalf("process: %v", err)
	}
	// older quote must not replace a newer one
	if err := b.Process(ctx, &models.Quote{Symbol: "AAPL", Price: 90, Timestamp: base}); err != nil {
		t.Fatalf("process: %v", err)
	}

	price, ts, ok := b.Last("AAPL")
	if !ok {
		t.Fatalf("expected a quote")
	}
	if price != 100 || !ts.Equal(base.Add(time.Second)) {
		t.Fatalf("last = %v@%v, want 100 at the newer timestamp", price, ts)
	}
}

func TestQuoteBoardUnknownSymbol(t *testing.T) {
	b := NewQuoteBoard(nil)
	if _, _, ok := b.Last("NOPE"); ok {
		t.Fatalf("expected no quote")
	}
}

func TestQuoteBoardOnSetHook(t *testing.T) {
	var gotSym string
	var gotPrice float64
	b := NewQuoteBoard(func(symbol string, price float64) {
		gotSym, gotPrice = symbol, price
	})
	if err := b.Process(context.Background(), &models.Quote{Symbol: "AAPL", Price: 123.45, Timestamp: time.Now()}); err != nil {
		t.Fatalf("process: %v", err)
	}
	if gotSym != "AAPL" || gotPrice != 123.45 {
		t.Fatalf("hook saw %s/%v", gotSym, gotPrice)
	}
}
