package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"StockPulse/internal/domain/models"
)

// monitorEntry is one monitored symbol's mutable state. Only the scheduler
// writes it; readers get copies via snapshot().
type monitorEntry struct {
	mu       sync.Mutex
	model    models.MonitoredSymbol
	cancel   context.CancelFunc
	inFlight bool
}

func (e *monitorEntry) snapshot() models.MonitoredSymbol {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.model
}

// tryAcquire claims the single in-flight scan slot for this symbol.
func (e *monitorEntry) tryAcquire() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inFlight {
		return false
	}
	e.inFlight = true
	return true
}

func (e *monitorEntry) release() {
	e.mu.Lock()
	e.inFlight = false
	e.mu.Unlock()
}

// registry tracks monitored symbols and their loop cancel funcs.
type registry struct {
	mu      sync.RWMutex
	entries map[string]*monitorEntry
}

func newRegistry() *registry {
	return &registry{entries: make(map[string]*monitorEntry)}
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func (r *registry) add(e *monitorEntry) error {
	sym := e.model.Symbol
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[sym]; exists {
		return fmt.Errorf("symbol %s already monitored", sym)
	}
	r.entries[sym] = e
	return nil
}

// remove detaches the entry and returns it. The caller cancels its loop; an
// in-flight scan keeps its claimed slot and finishes recording.
func (r *registry) remove(symbol string) (*monitorEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrSymbolNotFound, symbol)
	}
	delete(r.entries, symbol)
	return e, nil
}

func (r *registry) get(symbol string) (*monitorEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[symbol]
	return e, ok
}

func (r *registry) list() []models.MonitoredSymbol {
	r.mu.RLock()
	entries := make([]*monitorEntry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	out := make([]models.MonitoredSymbol, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.snapshot())
	}
	return out
}

func (r *registry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
