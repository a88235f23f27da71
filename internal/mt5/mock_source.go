package mt5

import (
	"context"
	"time"

	"github.com/Checker-Finance/mt5-adapter/pkg/model"
)

// MockSource serves a single canned deal. It exists so the adapter can be
// exercised end to end without a terminal attached.
type MockSource struct {
	now func() time.Time
}

func NewMockSource() *MockSource {
	return &MockSource{now: time.Now}
}

func (s *MockSource) Name() string { return "mt5-mock" }

func (s *MockSource) FetchDeals(_ context.Context, since, until time.Time) ([]model.DealRecord, error) {
	dealTime := s.now().UTC().Add(-time.Hour)
	if dealTime.Before(since) || dealTime.After(until) {
		return nil, nil
	}
	return []model.DealRecord{
		{
			Ticket:     12345678,
			Order:      12345677,
			Symbol:     "EURUSD",
			Type:       model.DealTypeBuy,
			Volume:     0.10,
			Price:      1.0850,
			Profit:     12.50,
			Commission: -0.50,
			Swap:       -0.10,
			Time:       dealTime,
			Comment:    "demo-order-001",
		},
	}, nil
}

func (s *MockSource) TerminalInfo(context.Context) (*TerminalInfo, error) {
	return &TerminalInfo{Connected: true, Build: 4380, Name: "MetaTrader 5", Company: "Mock"}, nil
}

func (s *MockSource) AccountInfo(context.Context) (*AccountInfo, error) {
	return &AccountInfo{Login: 1000001, Balance: 10000, Equity: 10012.50, Currency: "USD", Server: "Mock-Demo"}, nil
}
