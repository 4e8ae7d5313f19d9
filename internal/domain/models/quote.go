package models

import "time"

// Quote is a live last-trade tick from the quote stream.
type Quote struct {
	Symbol    string    `json:"s"`
	Price     float64   `json:"p"`
	Volume    float64   `json:"v"`
	Timestamp time.Time `json:"t"`
}
