package usecase

import (
	"context"
	"fmt"

	"StockPulse/pkg/logger"
	"StockPulse/pkg/queue"
)

// ScanRequestPayload is the queue payload for an on-demand scan.
type ScanRequestPayload struct {
	Symbol string `json:"symbol"`
}

// ScanJob runs queued on-demand scans. Enqueuing instead of scanning inline
// lets bursty callers ride the queue's retry and DLQ handling.
type ScanJob struct {
	scheduler *Scheduler
	log       *logger.Logger
}

func NewScanJob(scheduler *Scheduler, log *logger.Logger) *ScanJob {
	return &ScanJob{scheduler: scheduler, log: log}
}

func (j *ScanJob) Name() string { return "scan_request" }

func (j *ScanJob) Type() string { return "scan.request" }

func (j *ScanJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[ScanRequestPayload](payload)
	if err != nil {
		return fmt.Errorf("parse scan request: %w", err)
	}
	sig, err := j.scheduler.ScanNow(ctx, p.Symbol)
	if err != nil {
		return err
	}
	j.log.Info("queued scan completed",
		logger.String("symbol", sig.Symbol),
		logger.String("type", string(sig.Type)),
		logger.Float64("confidence", sig.Confidence))
	return nil
}

var _ queue.Job = (*ScanJob)(nil)
