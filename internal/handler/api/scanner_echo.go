package api

import (
	"errors"
	"time"

	models "StockPulse/internal/domain/models"
	svcmetrics "StockPulse/internal/service/metrics"
	"StockPulse/internal/usecase"
	xhttp "StockPulse/pkg/http"
	xlogger "StockPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// ScannerEchoHandler exposes the scan/query surface over Echo.
type ScannerEchoHandler struct {
	logger    *xlogger.Logger
	scheduler *usecase.Scheduler
	signals   *usecase.SignalService
	quick     *QuickHandler
}

func NewScannerEchoHandler(logger *xlogger.Logger, scheduler *usecase.Scheduler, signals *usecase.SignalService) *ScannerEchoHandler {
	svcmetrics.Register()
	return &ScannerEchoHandler{logger: logger, scheduler: scheduler, signals: signals}
}

func (h *ScannerEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/scan/:symbol", h.ScanNow)
	g.GET("/signals/:symbol/latest", h.Latest)
	g.GET("/signals/:symbol", h.History)
	g.GET("/monitored", h.ListMonitored)
	g.POST("/monitored", h.AddMonitored)
	g.DELETE("/monitored/:symbol", h.RemoveMonitored)
	g.GET("/status", h.Status)

	if h.quick != nil {
		q := e.Group("/quick")
		q.GET("/latest", echo.WrapHandler(h.quick.Latest()))
		q.GET("/history", echo.WrapHandler(h.quick.History()))
	}
}

// SetQuick mounts the plain net/http quick endpoints under /quick.
func (h *ScannerEchoHandler) SetQuick(q *QuickHandler) { h.quick = q }

func (h *ScannerEchoHandler) ScanNow(c echo.Context) error {
	start := time.Now()
	req := &models.ScanNowRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	sig, err := h.scheduler.ScanNow(c.Request().Context(), req.Symbol)
	if err != nil {
		svcmetrics.StageErrors.WithLabelValues("scan_now").Inc()
		h.logger.Error("scan now failed", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, mapDomainError(err))
	}
	h.signals.Invalidate(c.Request().Context(), req.Symbol)
	svcmetrics.StageLatency.WithLabelValues("scan_now").Observe(time.Since(start).Seconds())
	return xhttp.SuccessResponse(c, sig)
}

func (h *ScannerEchoHandler) Latest(c echo.Context) error {
	req := &models.LatestSignalRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	sig, err := h.signals.GetLatest(c.Request().Context(), req.Symbol)
	if err != nil {
		return xhttp.AppErrorResponse(c, mapDomainError(err))
	}
	return xhttp.SuccessResponse(c, sig)
}

func (h *ScannerEchoHandler) History(c echo.Context) error {
	req := &models.SignalHistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	var from, to time.Time
	if req.From > 0 {
		from = time.Unix(req.From, 0).UTC()
	}
	if req.To > 0 {
		to = time.Unix(req.To, 0).UTC()
	}
	sigs, err := h.signals.GetHistory(c.Request().Context(), req.Symbol, from, to, req.Limit)
	if err != nil {
		return xhttp.AppErrorResponse(c, mapDomainError(err))
	}
	return xhttp.ListResponse(c, sigs, int64(len(sigs)))
}

func (h *ScannerEchoHandler) ListMonitored(c echo.Context) error {
	list := h.scheduler.ListMonitored()
	return xhttp.ListResponse(c, list, int64(len(list)))
}

func (h *ScannerEchoHandler) AddMonitored(c echo.Context) error {
	req := &models.AddMonitoredRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	tf := models.NormalizeTimeframe(req.Timeframe)
	interval := time.Duration(req.IntervalSecs) * time.Second
	if err := h.scheduler.AddMonitored(req.Symbol, tf, interval); err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}
	return xhttp.CreatedResponse(c, map[string]string{"symbol": req.Symbol})
}

func (h *ScannerEchoHandler) RemoveMonitored(c echo.Context) error {
	req := &models.RemoveMonitoredRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	if err := h.scheduler.RemoveMonitored(req.Symbol); err != nil {
		return xhttp.AppErrorResponse(c, mapDomainError(err))
	}
	return xhttp.NoContentResponse(c)
}

// Status reports the per-symbol scan states, mirroring what the scheduler
// exposes internally.
func (h *ScannerEchoHandler) Status(c echo.Context) error {
	list := h.scheduler.ListMonitored()
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"monitored": len(list),
		"symbols":   list,
	})
}

func mapDomainError(err error) error {
	switch {
	case errors.Is(err, models.ErrSymbolNotFound):
		return xhttp.NotFoundError(err.Error())
	case errors.Is(err, models.ErrDuplicateTimestamp):
		return xhttp.NewAppError("ERR_CONFLICT", "", err.Error(), 409)
	case errors.Is(err, models.ErrFetch):
		return xhttp.InternalErrorf("market data unavailable: %v", err)
	default:
		return xhttp.InternalError(err.Error())
	}
}
