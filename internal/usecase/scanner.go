package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"StockPulse/internal/domain/models"
	drepo "StockPulse/internal/domain/repository"
	dservice "StockPulse/internal/domain/service"
	"StockPulse/internal/service/ratelimit"
	"StockPulse/pkg/logger"
)

// SchedulerConfig tunes the scan loops.
type SchedulerConfig struct {
	Timeframe     models.Timeframe
	Interval      time.Duration
	Lookback      int
	MaxConcurrent int
	FetchTimeout  time.Duration
	RetryMax      int
	BackoffMin    time.Duration
	BackoffMax    time.Duration
	MaxFetchRPS   float64
	MinConfidence float64 // scheduled scans below this are fused but not recorded
}

// Scheduler runs one scan loop per monitored symbol: fetch bars, compute
// indicators and sentiment, fuse, record. Failures are retried with backoff
// and isolated per symbol.
type Scheduler struct {
	market    drepo.MarketData
	engine    dservice.IndicatorEngine
	sentiment dservice.SentimentScorer
	fuser     dservice.SignalFuser
	store     drepo.SignalStore
	publisher drepo.Publisher // optional
	metrics   drepo.Metrics
	log       *logger.Logger
	limiter   *ratelimit.Limiter
	quotes    *QuoteBoard // optional

	cfg SchedulerConfig
	reg *registry
	sem chan struct{} // fan-out bound across symbols

	rootCtx    context.Context
	rootCancel context.CancelFunc
}

func NewScheduler(
	market drepo.MarketData,
	engine dservice.IndicatorEngine,
	sentimentScorer dservice.SentimentScorer,
	fuser dservice.SignalFuser,
	store drepo.SignalStore,
	publisher drepo.Publisher,
	metrics drepo.Metrics,
	log *logger.Logger,
	quotes *QuoteBoard,
	cfg SchedulerConfig,
) *Scheduler {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 8
	}
	if cfg.RetryMax <= 0 {
		cfg.RetryMax = 3
	}
	if cfg.BackoffMin <= 0 {
		cfg.BackoffMin = 500 * time.Millisecond
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = 10 * time.Second
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = 250
	}
	if cfg.Timeframe == "" {
		cfg.Timeframe = models.DefaultTimeframe()
	}
	return &Scheduler{
		market:    market,
		engine:    engine,
		sentiment: sentimentScorer,
		fuser:     fuser,
		store:     store,
		publisher: publisher,
		metrics:   metrics,
		log:       log,
		limiter:   ratelimit.New(),
		quotes:    quotes,
		cfg:       cfg,
		reg:       newRegistry(),
		sem:       make(chan struct{}, cfg.MaxConcurrent),
	}
}

// Start spawns the scan loops for the initial symbol set.
func (s *Scheduler) Start(ctx context.Context, symbols []string) error {
	s.rootCtx, s.rootCancel = context.WithCancel(context.WithoutCancel(ctx))
	for _, sym := range symbols {
		if err := s.AddMonitored(sym, s.cfg.Timeframe, s.cfg.Interval); err != nil {
			return fmt.Errorf("add %s: %w", sym, err)
		}
	}
	s.log.Info("scheduler started",
		logger.Int("symbols", len(symbols)),
		logger.Duration("interval", s.cfg.Interval))
	return nil
}

// Shutdown cancels every loop. In-flight scans are cut off with the root
// context; callers should allow a grace period before closing stores.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	for _, m := range s.reg.list() {
		if e, ok := s.reg.get(m.Symbol); ok && e.cancel != nil {
			e.cancel()
		}
	}
	if s.rootCancel != nil {
		s.rootCancel()
	}
	return nil
}

// AddMonitored registers a symbol and starts its scan loop. Adding an already
// monitored symbol is an error; other loops are untouched either way.
func (s *Scheduler) AddMonitored(symbol string, tf models.Timeframe, interval time.Duration) error {
	sym := normalizeSymbol(symbol)
	if sym == "" {
		return fmt.Errorf("symbol empty")
	}
	if !models.IsValidTimeframe(tf) {
		tf = s.cfg.Timeframe
	}
	if interval <= 0 {
		interval = s.cfg.Interval
	}

	loopCtx, cancel := context.WithCancel(s.rootCtx)
	e := &monitorEntry{
		model: models.MonitoredSymbol{
			Symbol:       sym,
			Timeframe:    tf,
			ScanInterval: interval,
			State:        models.ScanIdle,
		},
		cancel: cancel,
	}
	if err := s.reg.add(e); err != nil {
		cancel()
		return err
	}
	go s.loop(loopCtx, e)
	s.log.Info("symbol monitored",
		logger.String("symbol", sym),
		logger.String("timeframe", string(tf)),
		logger.Duration("interval", interval))
	return nil
}

// RemoveMonitored cancels the symbol's loop. An in-flight scan runs on the
// root context and still records its result.
func (s *Scheduler) RemoveMonitored(symbol string) error {
	e, err := s.reg.remove(normalizeSymbol(symbol))
	if err != nil {
		return err
	}
	if e.cancel != nil {
		e.cancel()
	}
	s.log.Info("symbol unmonitored", logger.String("symbol", symbol))
	return nil
}

// ListMonitored returns a snapshot of every monitored symbol.
func (s *Scheduler) ListMonitored() []models.MonitoredSymbol {
	return s.reg.list()
}

// MonitoredCount reports how many symbols have active loops.
func (s *Scheduler) MonitoredCount() int { return s.reg.count() }

// ScanNow performs an immediate scan and returns the fused signal. Monitored
// symbols reuse their entry (and its one-in-flight rule); unknown symbols get
// an ad-hoc scan with scheduler defaults and the result is still recorded.
func (s *Scheduler) ScanNow(ctx context.Context, symbol string) (*models.Signal, error) {
	sym := normalizeSymbol(symbol)
	if sym == "" {
		return nil, fmt.Errorf("symbol empty")
	}
	e, ok := s.reg.get(sym)
	if !ok {
		e = &monitorEntry{model: models.MonitoredSymbol{
			Symbol:       sym,
			Timeframe:    s.cfg.Timeframe,
			ScanInterval: s.cfg.Interval,
			State:        models.ScanIdle,
		}}
	}
	if !e.tryAcquire() {
		return nil, fmt.Errorf("scan already in flight for %s", sym)
	}
	defer e.release()
	return s.scanOnce(ctx, e, 0)
}

func (s *Scheduler) loop(loopCtx context.Context, e *monitorEntry) {
	ticker := time.NewTicker(e.snapshot().ScanInterval)
	defer ticker.Stop()
	for {
		select {
		case <-loopCtx.Done():
			return
		case <-ticker.C:
			if !e.tryAcquire() {
				continue // previous scan still running
			}
			// Scans run on the root context: removing the symbol stops
			// future ticks but never aborts a scan mid-record.
			sig, err := s.scanOnce(s.rootCtx, e, s.cfg.MinConfidence)
			e.release()
			if err != nil {
				s.log.Warn("scheduled scan failed",
					logger.String("symbol", e.snapshot().Symbol),
					logger.Error(err))
				continue
			}
			if sig != nil {
				s.log.Debug("scheduled scan recorded",
					logger.String("symbol", sig.Symbol),
					logger.String("type", string(sig.Type)),
					logger.Float64("confidence", sig.Confidence))
			}
		}
	}
}

// scanOnce runs the full fetch -> score -> fuse -> record sequence for one
// symbol. The caller must hold the entry's in-flight slot.
func (s *Scheduler) scanOnce(ctx context.Context, e *monitorEntry, minConfidence float64) (*models.Signal, error) {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-s.sem }()

	m := e.snapshot()
	start := time.Now()

	s.setState(e, models.ScanFetching)
	series, err := s.fetchWithRetry(ctx, m.Symbol, m.Timeframe)
	if err != nil {
		s.fail(e, "fetch", err)
		return nil, err
	}
	s.metrics.RecordLatency("fetch", time.Since(start).Seconds())

	s.setState(e, models.ScanScoring)
	ind, err := s.engine.Compute(series)
	if err != nil {
		s.fail(e, "indicators", err)
		return nil, err
	}
	last, _ := series.Last()
	sent := s.sentiment.Score(ctx, m.Symbol, last.Timestamp)

	sig, err := s.fuser.Fuse(ind, sent, series)
	if err != nil {
		s.fail(e, "fuse", err)
		return nil, err
	}
	if price, ts, ok := s.liveQuote(m.Symbol); ok && ts.After(sig.Timestamp) {
		sig.PriceAtSignal = price
	}
	// The fuser stamps the bar close; recorded signals carry the scan time so
	// repeat scans of an unchanged bar append as their own entries.
	sig.Timestamp = time.Now().UTC()

	if sig.Confidence >= minConfidence {
		if err := s.store.Append(ctx, sig); err != nil {
			if errors.Is(err, models.ErrDuplicateTimestamp) {
				// Same bar scanned twice; the stored signal stands.
				s.metrics.RecordScan(m.Symbol, "duplicate")
			} else {
				s.fail(e, "store", err)
				return nil, err
			}
		} else {
			s.publish(ctx, sig)
			s.setState(e, models.ScanRecorded)
			s.metrics.RecordScan(m.Symbol, "recorded")
			s.metrics.RecordConfidence(m.Symbol, sig.Confidence)
		}
	} else {
		s.metrics.RecordScan(m.Symbol, "below_min_confidence")
	}

	e.mu.Lock()
	e.model.State = models.ScanIdle
	e.model.LastScan = time.Now()
	e.model.LastSignal = sig
	e.model.LastError = ""
	e.mu.Unlock()
	s.metrics.RecordScanState(m.Symbol, models.ScanIdle)
	s.metrics.RecordLatency("scan", time.Since(start).Seconds())
	return sig, nil
}

func (s *Scheduler) fetchWithRetry(ctx context.Context, symbol string, tf models.Timeframe) (*models.PriceSeries, error) {
	backoff := s.cfg.BackoffMin
	var lastErr error
	for attempt := 1; attempt <= s.cfg.RetryMax; attempt++ {
		if err := s.waitForToken(ctx); err != nil {
			return nil, err
		}
		fetchCtx := ctx
		var cancel context.CancelFunc
		if s.cfg.FetchTimeout > 0 {
			fetchCtx, cancel = context.WithTimeout(ctx, s.cfg.FetchTimeout)
		}
		series, err := s.market.Fetch(fetchCtx, symbol, tf, s.cfg.Lookback)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			return series, nil
		}
		lastErr = err
		if !errors.Is(err, models.ErrFetch) {
			return nil, err
		}
		s.metrics.RecordError("fetch_retry")
		if attempt == s.cfg.RetryMax {
			break
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		backoff *= 2
		if backoff > s.cfg.BackoffMax {
			backoff = s.cfg.BackoffMax
		}
	}
	return nil, fmt.Errorf("fetch %s after %d attempts: %w", symbol, s.cfg.RetryMax, lastErr)
}

func (s *Scheduler) waitForToken(ctx context.Context) error {
	if s.cfg.MaxFetchRPS <= 0 {
		return nil
	}
	for !s.limiter.Allow("fetch", s.cfg.MaxFetchRPS, s.cfg.MaxFetchRPS) {
		select {
		case <-time.After(50 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (s *Scheduler) liveQuote(symbol string) (float64, time.Time, bool) {
	if s.quotes == nil {
		return 0, time.Time{}, false
	}
	return s.quotes.Last(symbol)
}

func (s *Scheduler) publish(ctx context.Context, sig *models.Signal) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, sig); err != nil {
		// Publishing is best-effort; the signal is already recorded.
		s.metrics.RecordError("publish")
		s.log.Warn("signal publish failed",
			logger.String("symbol", sig.Symbol), logger.Error(err))
	}
}

func (s *Scheduler) setState(e *monitorEntry, state models.ScanState) {
	e.mu.Lock()
	e.model.State = state
	sym := e.model.Symbol
	e.mu.Unlock()
	s.metrics.RecordScanState(sym, state)
}

func (s *Scheduler) fail(e *monitorEntry, stage string, err error) {
	e.mu.Lock()
	e.model.State = models.ScanErrored
	e.model.LastError = err.Error()
	sym := e.model.Symbol
	e.mu.Unlock()
	s.metrics.RecordScanState(sym, models.ScanErrored)
	s.metrics.RecordScan(sym, "error")
	s.metrics.RecordError(stage)
}
