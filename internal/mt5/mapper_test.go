package mt5

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Checker-Finance/mt5-adapter/pkg/model"
)

func TestMapper_CommentBecomesTraceID(t *testing.T) {
	m := NewMapper("USD", "mt5")

	ev := m.Map(model.DealRecord{
		Ticket:     12345678,
		Profit:     12.50,
		Commission: -0.50,
		Swap:       -0.10,
		Comment:    "order-42",
	})

	assert.Equal(t, "order-42", ev.TraceID)
	assert.Equal(t, model.EventTypeTradeExecuted, ev.Type)
	assert.Equal(t, 12.50, ev.GrossRevenue)
	assert.Equal(t, 0.50, ev.Fees)
	assert.Equal(t, 0.10, ev.Costs)
	assert.Equal(t, "USD", ev.Currency)
	assert.Equal(t, "mt5", ev.Source)
}

func TestMapper_TicketFallbackTraceID(t *testing.T) {
	m := NewMapper("USD", "mt5")

	ev := m.Map(model.DealRecord{Ticket: 12345678})

	assert.Equal(t, "mt5-12345678", ev.TraceID)
}

func TestMapper_FeesAndCostsAreMagnitudes(t *testing.T) {
	m := NewMapper("USD", "mt5")

	tests := []struct {
		name       string
		commission float64
		swap       float64
		wantFees   float64
		wantCosts  float64
	}{
		{"negative inputs", -0.50, -0.10, 0.50, 0.10},
		{"already positive", 0.25, 0.05, 0.25, 0.05},
		{"zero", 0, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := m.Map(model.DealRecord{Ticket: 1, Commission: tt.commission, Swap: tt.swap})
			assert.Equal(t, tt.wantFees, ev.Fees)
			assert.Equal(t, tt.wantCosts, ev.Costs)
		})
	}
}

func TestMapper_LossKeepsEventType(t *testing.T) {
	m := NewMapper("USD", "mt5")

	ev := m.Map(model.DealRecord{Ticket: 2, Profit: -40.00})

	assert.Equal(t, model.EventTypeTradeExecuted, ev.Type)
	assert.Equal(t, -40.00, ev.GrossRevenue, "losses pass through signed")
}

func TestMapper_MapBatchDropsDuplicateTickets(t *testing.T) {
	m := NewMapper("USD", "mt5")
	now := time.Now()

	mapped := m.MapBatch([]model.DealRecord{
		{Ticket: 1, Comment: "first", Time: now},
		{Ticket: 2, Comment: "second", Time: now},
		{Ticket: 1, Comment: "dup-of-first", Time: now},
	})

	require.Len(t, mapped, 2)
	assert.Equal(t, "first", mapped[0].Event.TraceID, "first occurrence wins")
	assert.Equal(t, "second", mapped[1].Event.TraceID)
}
