package middleware

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"StockPulse/internal/domain/models"
)

type sinkProc struct {
	mu     sync.Mutex
	quotes []*models.Quote
	err    error
}

func (s *sinkProc) Process(_ context.Context, q *models.Quote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.quotes = append(s.quotes, q)
	return nil
}

func (s *sinkProc) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.quotes)
}

type countMetrics struct {
	mu     sync.Mutex
	errors map[string]int
}

func newCountMetrics() *countMetrics { return &countMetrics{errors: make(map[string]int)} }

func (m *countMetrics) RecordScan(string, string)        {}
func (m *countMetrics) RecordConfidence(string, float64) {}
func (m *countMetrics) RecordLastPrice(string, float64)  {}
func (m *countMetrics) RecordLatency(string, float64)    {}
func (m *countMetrics) RecordScanState(string, models.ScanState) {}
func (m *countMetrics) RecordError(kind string) {
	m.mu.Lock()
	m.errors[kind]++
	m.mu.Unlock()
}

func (m *countMetrics) errorCount(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[kind]
}

func quote(symbol string, price float64, ts time.Time) *models.Quote {
	return &models.Quote{Symbol: symbol, Price: price, Volume: 10, Timestamp: ts}
}

func TestPipelineForwardsValidQuote(t *testing.T) {
	sink := &sinkProc{}
	p := NewQuotePipeline(sink, newCountMetrics())
	if err := p.Process(context.Background(), quote("AAPL", 100, time.Now())); err != nil {
		t.Fatalf("process: %v", err)
	}
	if sink.count() != 1 {
		t.Fatalf("forwarded %d quotes, want 1", sink.count())
	}
}

func TestPipelineRejectsInvalidQuotes(t *testing.T) {
	sink := &sinkProc{}
	m := newCountMetrics()
	p := NewQuotePipeline(sink, m)

	bad := []*models.Quote{
		nil,
		{Symbol: "", Price: 1, Timestamp: time.Now()},
		{Symbol: "AAPL", Price: 1},                             // zero timestamp
		{Symbol: "AAPL", Price: -1, Timestamp: time.Now()},     // negative price
		{Symbol: "AAPL", Volume: -1, Timestamp: time.Now()},    // negative volume
	}
	for i, q := range bad {
		if err := p.Process(context.Background(), q); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
	if sink.count() != 0 {
		t.Fatalf("invalid quotes reached the sink")
	}
	if m.errorCount("pipeline_validate") != len(bad) {
		t.Fatalf("validate errors = %d, want %d", m.errorCount("pipeline_validate"), len(bad))
	}
}

func TestPipelineThrottlesPerSymbol(t *testing.T) {
	sink := &sinkProc{}
	m := newCountMetrics()
	p := NewQuotePipeline(sink, m, WithMaxRPS(1))

	now := time.Now()
	if err := p.Process(context.Background(), quote("AAPL", 100, now)); err != nil {
		t.Fatalf("first: %v", err)
	}
	// second quote inside the same second is dropped without error
	if err := p.Process(context.Background(), quote("AAPL", 101, now)); err != nil {
		t.Fatalf("throttled quote should not error: %v", err)
	}
	// a different symbol is not affected
	if err := p.Process(context.Background(), quote("MSFT", 50, now)); err != nil {
		t.Fatalf("other symbol: %v", err)
	}
	if sink.count() != 2 {
		t.Fatalf("forwarded %d, want 2 (one throttled)", sink.count())
	}
	if m.errorCount("pipeline_throttle") != 1 {
		t.Fatalf("throttle count = %d, want 1", m.errorCount("pipeline_throttle"))
	}
}

func TestPipelineBuffersOnDownstreamError(t *testing.T) {
	sink := &sinkProc{err: fmt.Errorf("downstream down")}
	m := newCountMetrics()
	p := NewQuotePipeline(sink, m, WithBufferSize(4))

	if err := p.Process(context.Background(), quote("AAPL", 100, time.Now())); err == nil {
		t.Fatalf("expected downstream error")
	}
	if len(p.bufCh) != 1 {
		t.Fatalf("buffer depth = %d, want 1", len(p.bufCh))
	}

	// recover downstream and let the flusher drain the buffer
	sink.mu.Lock()
	sink.err = nil
	sink.mu.Unlock()
	p.Start(context.Background())
	defer p.Stop()

	deadline := time.After(2 * time.Second)
	for sink.count() == 0 {
		select {
		case <-deadline:
			t.Fatalf("buffered quote was never flushed")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestPipelineTransform(t *testing.T) {
	sink := &sinkProc{}
	p := NewQuotePipeline(sink, newCountMetrics(), WithTransform(func(q *models.Quote) *models.Quote {
		q.Symbol = "X:" + q.Symbol
		return q
	}))
	if err := p.Process(context.Background(), quote("AAPL", 100, time.Now())); err != nil {
		t.Fatalf("process: %v", err)
	}
	sink.mu.Lock()
	defer sink.mu.Unlock()
	if sink.quotes[0].Symbol != "X:AAPL" {
		t.Fatalf("transform not applied, got %s", sink.quotes[0].Symbol)
	}
}
