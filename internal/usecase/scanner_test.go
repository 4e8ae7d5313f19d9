package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"StockPulse/internal/domain/models"
	drepo "StockPulse/internal/domain/repository"
	internalrepo "StockPulse/internal/repository"
	"StockPulse/internal/services/indicators"
	"StockPulse/pkg/config"
	"StockPulse/pkg/logger"
)

type fakeMarket struct {
	mu      sync.Mutex
	calls   int
	failN   int   // first failN calls fail
	failErr error // error to fail with
	block   chan struct{}
	series  func() (*models.PriceSeries, error)
}

func (f *fakeMarket) Fetch(ctx context.Context, symbol string, tf models.Timeframe, lookback int) (*models.PriceSeries, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.mu.Unlock()

	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if n <= f.failN {
		return nil, f.failErr
	}
	return f.series()
}

func (f *fakeMarket) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type neutralScorer struct{}

func (neutralScorer) Score(_ context.Context, symbol string, asOf time.Time) models.SentimentScore {
	return models.NeutralSentiment(symbol, asOf)
}

type nopMetrics struct{}

func (nopMetrics) RecordScan(string, string)               {}
func (nopMetrics) RecordError(string)                      {}
func (nopMetrics) RecordConfidence(string, float64)        {}
func (nopMetrics) RecordLastPrice(string, float64)         {}
func (nopMetrics) RecordLatency(string, float64)           {}
func (nopMetrics) RecordScanState(string, models.ScanState) {}

type capturePublisher struct {
	mu   sync.Mutex
	sigs []*models.Signal
}

func (p *capturePublisher) Publish(_ context.Context, sig *models.Signal) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sigs = append(p.sigs, sig)
	return nil
}

func (p *capturePublisher) PublishBatch(ctx context.Context, sigs []*models.Signal) error {
	for _, s := range sigs {
		if err := p.Publish(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func (p *capturePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sigs)
}

// risingSeries yields a strong BUY setup at a fixed timestamp so repeated
// scans of the same data hit the duplicate guard.
func risingSeries() (*models.PriceSeries, error) {
	base := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)
	points := make([]models.PricePoint, 250)
	for i := range points {
		c := 100 + float64(i)
		points[i] = models.PricePoint{
			Timestamp: base.Add(time.Duration(i) * 24 * time.Hour),
			Open:      c, High: c + 1, Low: c - 1, Close: c, Volume: 1000,
		}
	}
	return models.NewPriceSeries("AAPL", models.TF1d, points)
}

func newTestScheduler(t *testing.T, market drepo.MarketData, store drepo.SignalStore, pub drepo.Publisher, cfg SchedulerConfig) *Scheduler {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "console", Output: "stdout"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	fuser := NewFuser(config.FusionConfig{
		Weights:            config.DefaultWeights(),
		Threshold:          0.15,
		IncompleteDiscount: 0.75,
		StaleDiscount:      0.9,
	})
	return NewScheduler(market, indicators.NewEngine(), neutralScorer{}, fuser,
		store, pub, nopMetrics{}, l, nil, cfg)
}

func TestScanNowRecordsAndPublishes(t *testing.T) {
	market := &fakeMarket{series: risingSeries}
	store := internalrepo.NewMemorySignalStore()
	pub := &capturePublisher{}
	s := newTestScheduler(t, market, store, pub, SchedulerConfig{Interval: time.Hour})
	if err := s.Start(context.Background(), nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Shutdown(context.Background())

	sig, err := s.ScanNow(context.Background(), "aapl")
	if err != nil {
		t.Fatalf("scan now: %v", err)
	}
	if sig.Symbol != "AAPL" {
		t.Fatalf("symbol = %s, want normalized AAPL", sig.Symbol)
	}
	if sig.Type == "" {
		t.Fatalf("signal has no type")
	}
	if sig.Confidence < 0 || sig.Confidence > 100 {
		t.Fatalf("confidence %v out of range", sig.Confidence)
	}

	stored, err := store.Latest(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if !stored.Timestamp.Equal(sig.Timestamp) {
		t.Fatalf("stored %v, returned %v", stored.Timestamp, sig.Timestamp)
	}
	if pub.count() != 1 {
		t.Fatalf("published %d signals, want 1", pub.count())
	}
}

func TestScanNowIdempotentOnUnchangedData(t *testing.T) {
	market := &fakeMarket{series: risingSeries}
	store := internalrepo.NewMemorySignalStore()
	s := newTestScheduler(t, market, store, nil, SchedulerConfig{Interval: time.Hour})
	if err := s.Start(context.Background(), nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Shutdown(context.Background())

	first, err := s.ScanNow(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("first scan: %v", err)
	}
	second, err := s.ScanNow(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("second scan: %v", err)
	}
	// same bars, same verdict; each scan records under its own scan time
	if first.Type != second.Type || first.Confidence != second.Confidence {
		t.Fatalf("unchanged data fused differently: %s/%v vs %s/%v",
			first.Type, first.Confidence, second.Type, second.Confidence)
	}
	if first.Timestamp.Equal(second.Timestamp) {
		t.Fatalf("repeat scans should carry distinct timestamps")
	}
	hist, err := store.History(context.Background(), "AAPL", time.Time{}, time.Time{}, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("store has %d signals, want 2", len(hist))
	}
}

func TestFetchRetriesOnErrFetch(t *testing.T) {
	market := &fakeMarket{
		series:  risingSeries,
		failN:   2,
		failErr: fmt.Errorf("upstream 503: %w", models.ErrFetch),
	}
	store := internalrepo.NewMemorySignalStore()
	s := newTestScheduler(t, market, store, nil, SchedulerConfig{
		Interval:   time.Hour,
		RetryMax:   3,
		BackoffMin: time.Millisecond,
		BackoffMax: 5 * time.Millisecond,
	})
	if err := s.Start(context.Background(), nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Shutdown(context.Background())

	if _, err := s.ScanNow(context.Background(), "AAPL"); err != nil {
		t.Fatalf("scan should succeed on third attempt: %v", err)
	}
	if got := market.callCount(); got != 3 {
		t.Fatalf("fetch called %d times, want 3", got)
	}
}

func TestFetchDoesNotRetryOtherErrors(t *testing.T) {
	market := &fakeMarket{
		series:  risingSeries,
		failN:   10,
		failErr: errors.New("bad symbol"),
	}
	s := newTestScheduler(t, market, internalrepo.NewMemorySignalStore(), nil, SchedulerConfig{
		Interval:   time.Hour,
		RetryMax:   3,
		BackoffMin: time.Millisecond,
	})
	if err := s.Start(context.Background(), nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Shutdown(context.Background())

	if _, err := s.ScanNow(context.Background(), "AAPL"); err == nil {
		t.Fatalf("expected error")
	}
	if got := market.callCount(); got != 1 {
		t.Fatalf("fetch called %d times, want 1 (no retry)", got)
	}
}

func TestAddMonitoredDuplicate(t *testing.T) {
	s := newTestScheduler(t, &fakeMarket{series: risingSeries}, internalrepo.NewMemorySignalStore(), nil, SchedulerConfig{Interval: time.Hour})
	if err := s.Start(context.Background(), nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Shutdown(context.Background())

	if err := s.AddMonitored("AAPL", models.TF1d, time.Hour); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.AddMonitored("aapl", models.TF1d, time.Hour); err == nil {
		t.Fatalf("expected duplicate add to fail")
	}
	if s.MonitoredCount() != 1 {
		t.Fatalf("count = %d, want 1", s.MonitoredCount())
	}
}

func TestRemoveMonitoredIsolation(t *testing.T) {
	s := newTestScheduler(t, &fakeMarket{series: risingSeries}, internalrepo.NewMemorySignalStore(), nil, SchedulerConfig{Interval: time.Hour})
	if err := s.Start(context.Background(), []string{"AAPL", "MSFT"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Shutdown(context.Background())

	if err := s.RemoveMonitored("AAPL"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := s.RemoveMonitored("AAPL"); !errors.Is(err, models.ErrSymbolNotFound) {
		t.Fatalf("expected ErrSymbolNotFound, got %v", err)
	}
	list := s.ListMonitored()
	if len(list) != 1 || list[0].Symbol != "MSFT" {
		t.Fatalf("remaining = %+v, want just MSFT", list)
	}
}

func TestSingleScanInFlightPerSymbol(t *testing.T) {
	market := &fakeMarket{series: risingSeries, block: make(chan struct{})}
	s := newTestScheduler(t, market, internalrepo.NewMemorySignalStore(), nil, SchedulerConfig{Interval: time.Hour})
	if err := s.Start(context.Background(), nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Shutdown(context.Background())

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		close(started)
		_, err := s.ScanNow(context.Background(), "AAPL")
		done <- err
	}()
	<-started
	// wait for the first scan to claim its slot
	deadline := time.After(2 * time.Second)
	for market.callCount() == 0 {
		select {
		case <-deadline:
			t.Fatalf("first scan never reached fetch")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if _, err := s.ScanNow(context.Background(), "AAPL"); err == nil {
		t.Fatalf("second concurrent scan should be rejected")
	}

	close(market.block)
	if err := <-done; err != nil {
		t.Fatalf("first scan: %v", err)
	}
}

func TestScheduledLoopRecords(t *testing.T) {
	market := &fakeMarket{series: risingSeries}
	store := internalrepo.NewMemorySignalStore()
	s := newTestScheduler(t, market, store, nil, SchedulerConfig{Interval: 20 * time.Millisecond})
	if err := s.Start(context.Background(), []string{"AAPL"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Shutdown(context.Background())

	deadline := time.After(2 * time.Second)
	for {
		if _, err := store.Latest(context.Background(), "AAPL"); err == nil {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("scheduled loop never recorded a signal")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestScheduledLoopHonorsMinConfidence(t *testing.T) {
	market := &fakeMarket{series: risingSeries}
	store := internalrepo.NewMemorySignalStore()
	s := newTestScheduler(t, market, store, nil, SchedulerConfig{
		Interval:      20 * time.Millisecond,
		MinConfidence: 101, // nothing clears this bar
	})
	if err := s.Start(context.Background(), []string{"AAPL"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Shutdown(context.Background())

	deadline := time.After(500 * time.Millisecond)
	for market.callCount() < 2 {
		select {
		case <-deadline:
			t.Fatalf("loop never ticked")
		case <-time.After(10 * time.Millisecond):
		}
	}
	if _, err := store.Latest(context.Background(), "AAPL"); err == nil {
		t.Fatalf("low-confidence scheduled scans must not be recorded")
	}

	// a manual scan bypasses the confidence gate; retry if it collides with
	// a scheduled tick holding the in-flight slot
	var scanErr error
	for attempt := 0; attempt < 20; attempt++ {
		if _, scanErr = s.ScanNow(context.Background(), "AAPL"); scanErr == nil {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if scanErr != nil {
		t.Fatalf("scan now: %v", scanErr)
	}
	if _, err := store.Latest(context.Background(), "AAPL"); err != nil {
		t.Fatalf("manual scan should record: %v", err)
	}
}

type splitMarket struct {
	good *fakeMarket
	bad  *fakeMarket
}

func (m *splitMarket) Fetch(ctx context.Context, symbol string, tf models.Timeframe, lookback int) (*models.PriceSeries, error) {
	if symbol == "BAD" {
		return m.bad.Fetch(ctx, symbol, tf, lookback)
	}
	return m.good.Fetch(ctx, symbol, tf, lookback)
}

func TestFailingSymbolDoesNotHaltOthers(t *testing.T) {
	market := &splitMarket{
		good: &fakeMarket{series: risingSeries},
		bad:  &fakeMarket{failN: 1 << 30, failErr: fmt.Errorf("feed down: %w", models.ErrFetch)},
	}
	store := internalrepo.NewMemorySignalStore()
	s := newTestScheduler(t, market, store, nil, SchedulerConfig{
		Interval:   20 * time.Millisecond,
		RetryMax:   2,
		BackoffMin: time.Millisecond,
		BackoffMax: 2 * time.Millisecond,
	})
	if err := s.Start(context.Background(), []string{"GOOD", "BAD"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Shutdown(context.Background())

	// the healthy symbol keeps recording
	deadline := time.After(2 * time.Second)
	for {
		if _, err := store.Latest(context.Background(), "GOOD"); err == nil {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("healthy symbol never recorded")
		case <-time.After(10 * time.Millisecond):
		}
	}

	// the failing symbol surfaces an errored status, not a crash
	deadline = time.After(2 * time.Second)
	for {
		errored := false
		for _, m := range s.ListMonitored() {
			if m.Symbol == "BAD" && m.State == models.ScanErrored && m.LastError != "" {
				errored = true
			}
		}
		if errored {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("failing symbol never reported ERRORED")
		case <-time.After(10 * time.Millisecond):
		}
	}
	if _, err := store.Latest(context.Background(), "BAD"); err == nil {
		t.Fatalf("failing symbol must not record signals")
	}
}

func TestInFlightScanSurvivesRemoval(t *testing.T) {
	market := &fakeMarket{series: risingSeries, block: make(chan struct{})}
	store := internalrepo.NewMemorySignalStore()
	s := newTestScheduler(t, market, store, nil, SchedulerConfig{Interval: 20 * time.Millisecond})
	if err := s.Start(context.Background(), []string{"AAPL"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Shutdown(context.Background())

	// wait until a scheduled scan is blocked inside fetch
	deadline := time.After(2 * time.Second)
	for market.callCount() == 0 {
		select {
		case <-deadline:
			t.Fatalf("loop never reached fetch")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if err := s.RemoveMonitored("AAPL"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	close(market.block)

	// the in-flight scan runs on the root context and must still record
	deadline = time.After(2 * time.Second)
	for {
		if _, err := store.Latest(context.Background(), "AAPL"); err == nil {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("in-flight scan did not record after removal")
		case <-time.After(10 * time.Millisecond):
		}
	}
	if s.MonitoredCount() != 0 {
		t.Fatalf("symbol should be unmonitored")
	}
}
