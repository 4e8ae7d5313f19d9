package models

import "time"

// ScanState is the lifecycle state of one monitored symbol's scan loop.
type ScanState string

const (
	ScanIdle     ScanState = "IDLE"
	ScanFetching ScanState = "FETCHING"
	ScanScoring  ScanState = "SCORING"
	ScanRecorded ScanState = "RECORDED"
	ScanErrored  ScanState = "ERRORED"
)

// MonitoredSymbol describes one symbol under periodic scanning. Mutable fields
// (state, last scan, last signal, last error) are written only by the
// scheduler; readers get copies.
type MonitoredSymbol struct {
	Symbol       string        `json:"symbol"`
	Timeframe    Timeframe     `json:"timeframe"`
	ScanInterval time.Duration `json:"scan_interval"`
	State        ScanState     `json:"state"`
	LastScan     time.Time     `json:"last_scan,omitempty"`
	LastSignal   *Signal       `json:"last_signal,omitempty"`
	LastError    string        `json:"last_error,omitempty"`
}
