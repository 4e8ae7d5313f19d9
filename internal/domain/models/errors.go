package models

import "errors"

var (
	// ErrFetch wraps transient market data failures; the scheduler retries these.
	ErrFetch = errors.New("market data fetch failed")

	// ErrIncompleteData marks a series too short for the full indicator basket.
	ErrIncompleteData = errors.New("insufficient price history")

	// ErrDuplicateTimestamp is returned by stores when a signal with the same
	// symbol and timestamp was already recorded.
	ErrDuplicateTimestamp = errors.New("duplicate signal timestamp")

	// ErrSymbolNotFound is returned for lookups of symbols with no data and
	// for scheduler operations on unmonitored symbols.
	ErrSymbolNotFound = errors.New("symbol not found")
)
