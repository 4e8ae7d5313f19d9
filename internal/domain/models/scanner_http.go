package models

// Requests for scanner HTTP endpoints. Defined in domain for consistency and reuse.

type ScanNowRequest struct {
	Symbol string `param:"symbol" json:"symbol" validate:"required,max=16"`
}

type LatestSignalRequest struct {
	Symbol string `param:"symbol" json:"symbol" validate:"required,max=16"`
}

type SignalHistoryRequest struct {
	Symbol string `param:"symbol" json:"symbol" validate:"required,max=16"`
	From   int64  `query:"from" json:"from" validate:"gte=0"`
	To     int64  `query:"to" json:"to" validate:"gte=0"`
	Limit  int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
}

type AddMonitoredRequest struct {
	Symbol       string `json:"symbol" validate:"required,max=16"`
	Timeframe    string `json:"timeframe" default:"1d" validate:"oneof=1m 5m 15m 1h 1d"`
	IntervalSecs int    `json:"interval_secs" default:"300" validate:"gte=1,lte=86400"`
}

type RemoveMonitoredRequest struct {
	Symbol string `param:"symbol" json:"symbol" validate:"required,max=16"`
}
