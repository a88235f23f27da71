package model

// Economic event types accepted by the BrokerOps economics service.
const (
	EventTypeTradeExecuted = "TRADE_EXECUTED"
)

// EconomicEvent is the normalized representation of a deal's financial
// impact, posted to BrokerOps as POST /economics/event. Exactly one
// EconomicEvent is derived from each DealRecord.
//
// Fees and Costs are always non-negative: MT5 reports commission and swap
// as signed debits, BrokerOps expects absolute values.
type EconomicEvent struct {
	TraceID      string  `json:"traceId"`
	Type         string  `json:"type"`
	GrossRevenue float64 `json:"grossRevenue"`
	Fees         float64 `json:"fees"`
	Costs        float64 `json:"costs"`
	Currency     string  `json:"currency"`
	Source       string  `json:"source"`
}
