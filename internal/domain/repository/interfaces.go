package repository

import (
	"context"
	"time"

	"StockPulse/internal/domain/models"
)

// MarketData fetches historical bars for a symbol. Implementations wrap
// transient transport failures in models.ErrFetch so the scheduler retries.
type MarketData interface {
	Fetch(ctx context.Context, symbol string, tf models.Timeframe, lookback int) (*models.PriceSeries, error)
}

// QuoteStream delivers live last-trade quotes over a persistent connection.
type QuoteStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context, symbols []string) error
	Read(ctx context.Context) (<-chan *models.Quote, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// SignalStore is an append-only record of fused signals.
type SignalStore interface {
	Init(ctx context.Context) error // ensure tables, health checks
	Append(ctx context.Context, sig *models.Signal) error
	Latest(ctx context.Context, symbol string) (*models.Signal, error)
	History(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.Signal, error)
	Health(ctx context.Context) error // ping
	Close() error
}

// Publisher fans recorded signals out to external consumers.
type Publisher interface {
	Publish(ctx context.Context, sig *models.Signal) error
	PublishBatch(ctx context.Context, sigs []*models.Signal) error
	Close() error
}

// TextSource supplies raw documents for sentiment scoring.
type TextSource interface {
	Texts(ctx context.Context, symbol string, since time.Time) ([]models.TextItem, error)
}

type Metrics interface {
	RecordScan(symbol, outcome string)
	RecordError(kind string)
	RecordConfidence(symbol string, confidence float64)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
	RecordScanState(symbol string, state models.ScanState)
}
