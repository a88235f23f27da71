package model

import "time"

// Deal entry/type codes as reported by the MT5 terminal.
const (
	DealTypeBuy  = 0
	DealTypeSell = 1
)

// DealRecord is a single executed trade record pulled from the MT5 terminal,
// identified by its ticket number. Records are immutable: they are read from
// the terminal history and never mutated by the adapter.
type DealRecord struct {
	Ticket     int64     `json:"ticket"`
	Order      int64     `json:"order,omitempty"`
	Symbol     string    `json:"symbol"`
	Type       int       `json:"type"`
	Volume     float64   `json:"volume"`
	Price      float64   `json:"price"`
	Profit     float64   `json:"profit"`
	Commission float64   `json:"commission"`
	Swap       float64   `json:"swap"`
	Time       time.Time `json:"time"`
	Comment    string    `json:"comment,omitempty"`
}
