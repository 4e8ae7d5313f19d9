package sentiment

import (
	"context"
	"strings"
	"sync"
	"time"

	"StockPulse/internal/domain/models"
)

// TextBuffer is a bounded in-memory document store fed by the text consumer
// and read by the scorer. Oldest documents are evicted per symbol.
type TextBuffer struct {
	mu      sync.RWMutex
	bySym   map[string][]models.TextItem
	maxDocs int
}

func NewTextBuffer(maxDocs int) *TextBuffer {
	if maxDocs <= 0 {
		maxDocs = 200
	}
	return &TextBuffer{bySym: make(map[string][]models.TextItem), maxDocs: maxDocs}
}

// Add appends a document, evicting the oldest when the symbol is at capacity.
func (b *TextBuffer) Add(item models.TextItem) {
	sym := strings.ToUpper(item.Symbol)
	if sym == "" || item.Text == "" {
		return
	}
	item.Symbol = sym

	b.mu.Lock()
	defer b.mu.Unlock()
	docs := append(b.bySym[sym], item)
	if len(docs) > b.maxDocs {
		docs = docs[len(docs)-b.maxDocs:]
	}
	b.bySym[sym] = docs
}

// Texts returns copies of documents for symbol newer than since.
func (b *TextBuffer) Texts(_ context.Context, symbol string, since time.Time) ([]models.TextItem, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []models.TextItem
	for _, it := range b.bySym[strings.ToUpper(symbol)] {
		if it.Timestamp.After(since) {
			out = append(out, it)
		}
	}
	return out, nil
}

// Len reports the number of buffered documents for symbol.
func (b *TextBuffer) Len(symbol string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.bySym[strings.ToUpper(symbol)])
}
