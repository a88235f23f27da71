package mt5

import (
	"time"

	"github.com/Checker-Finance/mt5-adapter/pkg/model"
)

// dealDTO is the gateway's wire representation of a closed deal. Times are
// unix seconds, as the terminal reports them.
type dealDTO struct {
	Ticket     int64   `json:"ticket"`
	Order      int64   `json:"order"`
	Symbol     string  `json:"symbol"`
	Type       int     `json:"type"`
	Volume     float64 `json:"volume"`
	Price      float64 `json:"price"`
	Profit     float64 `json:"profit"`
	Commission float64 `json:"commission"`
	Swap       float64 `json:"swap"`
	Time       int64   `json:"time"`
	Comment    string  `json:"comment"`
}

func (d dealDTO) toModel() model.DealRecord {
	return model.DealRecord{
		Ticket:     d.Ticket,
		Order:      d.Order,
		Symbol:     d.Symbol,
		Type:       d.Type,
		Volume:     d.Volume,
		Price:      d.Price,
		Profit:     d.Profit,
		Commission: d.Commission,
		Swap:       d.Swap,
		Time:       time.Unix(d.Time, 0).UTC(),
		Comment:    d.Comment,
	}
}

type dealsResponse struct {
	Deals []dealDTO `json:"deals"`
}

// TerminalInfo describes the state of the connected MT5 terminal.
type TerminalInfo struct {
	Connected bool   `json:"connected"`
	Build     int    `json:"build"`
	Name      string `json:"name"`
	Company   string `json:"company"`
}

// AccountInfo describes the trading account the terminal is logged into.
type AccountInfo struct {
	Login    int64   `json:"login"`
	Balance  float64 `json:"balance"`
	Equity   float64 `json:"equity"`
	Currency string  `json:"currency"`
	Server   string  `json:"server"`
}
