package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	icache "StockPulse/internal/service/cache"
	"StockPulse/internal/service/metrics"
	"StockPulse/internal/service/ratelimit"
	"StockPulse/internal/usecase"
	applogger "StockPulse/pkg/logger"
)

// QuickHandler serves cache-fronted, rate-limited signal reads on plain
// net/http. It bypasses the request-validation stack for latency-sensitive
// polling clients.
type QuickHandler struct {
	signals *usecase.SignalService
	cache   icache.BytesCache
	rl      *ratelimit.Limiter
	l       *applogger.Logger
}

func NewQuickHandler(signals *usecase.SignalService) *QuickHandler {
	metrics.Register()
	return &QuickHandler{signals: signals, rl: ratelimit.New()}
}

func (h *QuickHandler) SetCache(c icache.BytesCache) { h.cache = c }

// SetLogger injects a structured logger.
func (h *QuickHandler) SetLogger(l *applogger.Logger) { h.l = l }

func (h *QuickHandler) Latest() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		endpoint := "quick_latest"
		defer func() { metrics.StageLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

		symbol := r.URL.Query().Get("symbol")
		if symbol == "" {
			if h.l != nil {
				h.l.Warn("quick.latest missing symbol")
			}
			http.Error(w, "symbol required", http.StatusBadRequest)
			return
		}
		if !h.rl.Allow(r.RemoteAddr+":latest", 5, 2) {
			if h.l != nil {
				h.l.Warn("quick.latest rate_limited", applogger.String("remote", r.RemoteAddr))
			}
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		cacheKey := "quick:latest:" + symbol
		if h.cache != nil {
			if b, ok, err := h.cache.GetBytes(cacheKey); err != nil {
				if h.l != nil {
					h.l.Warn("quick.latest cache_get_error", applogger.Error(err))
				}
			} else if ok {
				w.Header().Set("Content-Type", "application/json")
				if h.l != nil {
					h.l.Debug("quick.latest cache_hit", applogger.String("key", cacheKey))
				}
				if _, err := w.Write(b); err != nil && h.l != nil {
					h.l.Warn("quick.latest write_error", applogger.Error(err))
				}
				return
			}
			if h.l != nil {
				h.l.Debug("quick.latest cache_miss", applogger.String("key", cacheKey))
			}
		}
		sig, err := h.signals.GetLatest(r.Context(), symbol)
		if err != nil {
			metrics.StageErrors.WithLabelValues(endpoint).Inc()
			if h.l != nil {
				h.l.Error("quick.latest error", applogger.Error(err))
			}
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		b, err := json.Marshal(sig)
		if err != nil {
			if h.l != nil {
				h.l.Error("quick.latest marshal_error", applogger.Error(err))
			}
			http.Error(w, "encode error", http.StatusInternalServerError)
			return
		}
		if h.cache != nil {
			if err := h.cache.SetBytes(cacheKey, b, 15*time.Second); err != nil && h.l != nil {
				h.l.Warn("quick.latest cache_set_error", applogger.Error(err))
			}
		}
		if _, err := w.Write(b); err != nil && h.l != nil {
			h.l.Warn("quick.latest write_error", applogger.Error(err))
		}
	}
}

func (h *QuickHandler) History() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		endpoint := "quick_history"
		defer func() { metrics.StageLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

		symbol := r.URL.Query().Get("symbol")
		if symbol == "" {
			if h.l != nil {
				h.l.Warn("quick.history missing symbol")
			}
			http.Error(w, "symbol required", http.StatusBadRequest)
			return
		}
		limit := parseInt(r.URL.Query().Get("limit"), 100)
		if !h.rl.Allow(r.RemoteAddr+":history", 3, 1) {
			if h.l != nil {
				h.l.Warn("quick.history rate_limited", applogger.String("remote", r.RemoteAddr))
			}
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		sigs, err := h.signals.GetHistory(r.Context(), symbol, time.Time{}, time.Time{}, limit)
		if err != nil {
			metrics.StageErrors.WithLabelValues(endpoint).Inc()
			if h.l != nil {
				h.l.Error("quick.history error", applogger.Error(err))
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(sigs); err != nil && h.l != nil {
			h.l.Warn("quick.history write_error", applogger.Error(err))
		}
	}
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
