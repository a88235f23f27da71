package mt5

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Checker-Finance/mt5-adapter/pkg/model"
)

// Mapper translates closed MT5 deals into the economics event shape
// BrokerOps ingests.
type Mapper struct {
	currency string
	source   string
}

func NewMapper(currency, source string) *Mapper {
	return &Mapper{currency: currency, source: source}
}

// Map converts a deal into an economics event. The trace id is taken from
// the deal comment when the order flow stamped one there; otherwise it is
// synthesized from the ticket so the event is still traceable.
func (m *Mapper) Map(deal model.DealRecord) model.EconomicEvent {
	traceID := deal.Comment
	if traceID == "" {
		traceID = fmt.Sprintf("mt5-%d", deal.Ticket)
	}

	// Commission and swap arrive negative on the terminal side; BrokerOps
	// expects fees and costs as magnitudes.
	fees := decimal.NewFromFloat(deal.Commission).Abs()
	costs := decimal.NewFromFloat(deal.Swap).Abs()

	return model.EconomicEvent{
		TraceID:      traceID,
		Type:         model.EventTypeTradeExecuted,
		GrossRevenue: deal.Profit,
		Fees:         fees.InexactFloat64(),
		Costs:        costs.InexactFloat64(),
		Currency:     m.currency,
		Source:       m.source,
	}
}

// MapBatch converts a slice of deals, dropping duplicate tickets within
// the batch. The first occurrence wins.
func (m *Mapper) MapBatch(deals []model.DealRecord) []MappedDeal {
	seen := make(map[int64]struct{}, len(deals))
	out := make([]MappedDeal, 0, len(deals))
	for _, d := range deals {
		if _, dup := seen[d.Ticket]; dup {
			continue
		}
		seen[d.Ticket] = struct{}{}
		out = append(out, MappedDeal{Deal: d, Event: m.Map(d)})
	}
	return out
}

// MappedDeal pairs a deal with the event mapped from it.
type MappedDeal struct {
	Deal  model.DealRecord
	Event model.EconomicEvent
}
