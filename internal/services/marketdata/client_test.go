package marketdata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"StockPulse/internal/domain/models"
	"StockPulse/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "console", Output: "stdout"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func candleJSON(n int) string {
	ts, opens, highs, lows, closes, vols := "", "", "", "", "", ""
	base := int64(1700000000)
	for i := 0; i < n; i++ {
		sep := ""
		if i > 0 {
			sep = ","
		}
		c := 100 + i
		ts += fmt.Sprintf("%s%d", sep, base+int64(i)*86400)
		opens += fmt.Sprintf("%s%d", sep, c)
		highs += fmt.Sprintf("%s%d", sep, c+1)
		lows += fmt.Sprintf("%s%d", sep, c-1)
		closes += fmt.Sprintf("%s%d", sep, c)
		vols += fmt.Sprintf("%s%d", sep, 1000)
	}
	return fmt.Sprintf(`{"s":"ok","t":[%s],"o":[%s],"h":[%s],"l":[%s],"c":[%s],"v":[%s]}`,
		ts, opens, highs, lows, closes, vols)
}

func TestFetchParsesCandles(t *testing.T) {
	var gotPath, gotSymbol, gotResolution string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotSymbol = r.URL.Query().Get("symbol")
		gotResolution = r.URL.Query().Get("resolution")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, candleJSON(30))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", 5*time.Second, testLogger(t))
	series, err := c.Fetch(context.Background(), "AAPL", models.TF1d, 250)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if gotPath != "/stock/candle" {
		t.Fatalf("path = %s", gotPath)
	}
	if gotSymbol != "AAPL" || gotResolution != "D" {
		t.Fatalf("query = %s/%s", gotSymbol, gotResolution)
	}
	if series.Len() != 30 {
		t.Fatalf("bars = %d, want 30", series.Len())
	}
	last, _ := series.Last()
	if last.Close != 129 {
		t.Fatalf("last close = %v, want 129", last.Close)
	}
}

func TestFetchTrimsToLookback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, candleJSON(50))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", 5*time.Second, testLogger(t))
	series, err := c.Fetch(context.Background(), "AAPL", models.TF1d, 20)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if series.Len() != 20 {
		t.Fatalf("bars = %d, want trimmed 20", series.Len())
	}
	// kept bars must be the newest ones
	last, _ := series.Last()
	if last.Close != 149 {
		t.Fatalf("last close = %v, want 149", last.Close)
	}
}

func TestFetchUpstreamStatusIsErrFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"s":"no_data"}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", 5*time.Second, testLogger(t))
	_, err := c.Fetch(context.Background(), "AAPL", models.TF1d, 20)
	if !errors.Is(err, models.ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}
}

func TestFetchHTTPErrorIsErrFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broken", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", 5*time.Second, testLogger(t))
	_, err := c.Fetch(context.Background(), "AAPL", models.TF1d, 20)
	if !errors.Is(err, models.ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}
}

func TestFetchMalformedArraysIsErrFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"s":"ok","t":[1,2],"o":[1],"h":[1],"l":[1],"c":[1],"v":[1]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", 5*time.Second, testLogger(t))
	_, err := c.Fetch(context.Background(), "AAPL", models.TF1d, 20)
	if !errors.Is(err, models.ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}
}
