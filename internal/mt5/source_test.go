package mt5

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Checker-Finance/mt5-adapter/internal/httpclient"
)

func liveSource(t *testing.T, baseURL string) *LiveSource {
	t.Helper()
	exec := httpclient.New(zap.NewNop(), nil, &http.Client{Timeout: time.Second}, httpclient.Policy{
		MaxAttempts: 1,
		BackoffBase: time.Millisecond,
	})
	return NewLiveSource(zap.NewNop(), exec, baseURL)
}

func TestLiveSource_FetchDeals(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/deals", r.URL.Path)
		assert.NotEmpty(t, r.URL.Query().Get("from"))
		assert.NotEmpty(t, r.URL.Query().Get("to"))
		_, _ = w.Write([]byte(`{"deals":[
			{"ticket":12345678,"order":12345677,"symbol":"EURUSD","type":0,
			 "volume":0.1,"price":1.085,"profit":12.5,"commission":-0.5,
			 "swap":-0.1,"time":1724700000,"comment":"demo-order-001"}
		]}`))
	}))
	defer srv.Close()

	deals, err := liveSource(t, srv.URL).FetchDeals(context.Background(),
		time.Now().Add(-24*time.Hour), time.Now())

	require.NoError(t, err)
	require.Len(t, deals, 1)
	d := deals[0]
	assert.EqualValues(t, 12345678, d.Ticket)
	assert.Equal(t, "EURUSD", d.Symbol)
	assert.Equal(t, "demo-order-001", d.Comment)
	assert.Equal(t, time.Unix(1724700000, 0).UTC(), d.Time)
}

func TestLiveSource_GatewayDownIsSourceUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	_, err := liveSource(t, srv.URL).FetchDeals(context.Background(),
		time.Now().Add(-time.Hour), time.Now())

	assert.ErrorIs(t, err, ErrSourceUnavailable)
}

func TestMockSource_ServesCannedDeal(t *testing.T) {
	src := NewMockSource()

	deals, err := src.FetchDeals(context.Background(), time.Now().Add(-24*time.Hour), time.Now())

	require.NoError(t, err)
	require.Len(t, deals, 1)
	assert.EqualValues(t, 12345678, deals[0].Ticket)
	assert.Equal(t, "demo-order-001", deals[0].Comment)
	assert.Equal(t, 12.50, deals[0].Profit)
}

func TestMockSource_RespectsWindow(t *testing.T) {
	src := NewMockSource()

	// Window entirely in the past; the canned deal is one hour old.
	deals, err := src.FetchDeals(context.Background(),
		time.Now().Add(-48*time.Hour), time.Now().Add(-24*time.Hour))

	require.NoError(t, err)
	assert.Empty(t, deals)
}
