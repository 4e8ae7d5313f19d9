package marketdata

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"StockPulse/internal/domain/models"
	httpkit "StockPulse/pkg/http"
	"StockPulse/pkg/logger"
)

// Client fetches OHLCV candles from a Finnhub-style REST API.
// Transport and API-level failures are wrapped in models.ErrFetch so the
// scheduler treats them as retryable.
type Client struct {
	http    *httpkit.Client
	baseURL string
	apiKey  string
	log     *logger.Logger
}

func NewClient(baseURL, apiKey string, timeout time.Duration, log *logger.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		http:    httpkit.NewClient(httpkit.WithTimeout(timeout)),
		baseURL: baseURL,
		apiKey:  apiKey,
		log:     log,
	}
}

// candleResponse mirrors the upstream candle payload (parallel arrays).
type candleResponse struct {
	Status  string    `json:"s"`
	Times   []int64   `json:"t"`
	Opens   []float64 `json:"o"`
	Highs   []float64 `json:"h"`
	Lows    []float64 `json:"l"`
	Closes  []float64 `json:"c"`
	Volumes []float64 `json:"v"`
}

func (c *Client) Fetch(ctx context.Context, symbol string, tf models.Timeframe, lookback int) (*models.PriceSeries, error) {
	if lookback <= 0 {
		lookback = 250
	}
	to := time.Now()
	from := to.Add(-time.Duration(lookback+5) * tf.Duration())

	var resp candleResponse
	err := c.http.SendAndParse(ctx, &httpkit.RequestOptions{
		Method: httpkit.MethodGet,
		URL:    c.baseURL + "/stock/candle",
		QueryParams: map[string][]string{
			"symbol":     {symbol},
			"resolution": {resolution(tf)},
			"from":       {strconv.FormatInt(from.Unix(), 10)},
			"to":         {strconv.FormatInt(to.Unix(), 10)},
			"token":      {c.apiKey},
		},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", models.ErrFetch, symbol, err)
	}
	if resp.Status != "ok" {
		return nil, fmt.Errorf("%w: %s: upstream status %q", models.ErrFetch, symbol, resp.Status)
	}
	n := len(resp.Times)
	if n == 0 || len(resp.Closes) != n || len(resp.Opens) != n || len(resp.Highs) != n || len(resp.Lows) != n || len(resp.Volumes) != n {
		return nil, fmt.Errorf("%w: %s: malformed candle arrays", models.ErrFetch, symbol)
	}

	points := make([]models.PricePoint, 0, n)
	for i := 0; i < n; i++ {
		points = append(points, models.PricePoint{
			Timestamp: time.Unix(resp.Times[i], 0).UTC(),
			Open:      resp.Opens[i],
			High:      resp.Highs[i],
			Low:       resp.Lows[i],
			Close:     resp.Closes[i],
			Volume:    resp.Volumes[i],
		})
	}
	if len(points) > lookback {
		points = points[len(points)-lookback:]
	}

	series, err := models.NewPriceSeries(symbol, tf, points)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrFetch, err)
	}
	c.log.Debug("fetched candles",
		logger.String("symbol", symbol),
		logger.String("timeframe", string(tf)),
		logger.Int("bars", series.Len()))
	return series, nil
}

func resolution(tf models.Timeframe) string {
	switch tf {
	case models.TF1m:
		return "1"
	case models.TF5m:
		return "5"
	case models.TF15m:
		return "15"
	case models.TF1h:
		return "60"
	default:
		return "D"
	}
}
