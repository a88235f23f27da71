package mt5

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/Checker-Finance/mt5-adapter/internal/httpclient"
	"github.com/Checker-Finance/mt5-adapter/pkg/model"
)

// ErrSourceUnavailable indicates the MT5 gateway could not be reached or
// refused the session. Sync runs treat it as fatal: there is nothing to
// map without deals.
var ErrSourceUnavailable = errors.New("mt5 gateway unavailable")

// DealSource fetches closed deals from an MT5 terminal.
type DealSource interface {
	FetchDeals(ctx context.Context, since, until time.Time) ([]model.DealRecord, error)
	TerminalInfo(ctx context.Context) (*TerminalInfo, error)
	AccountInfo(ctx context.Context) (*AccountInfo, error)
	Name() string
}

// LiveSource talks to an MT5 gateway process over HTTP. The gateway sits
// next to the terminal and exposes history and account state as JSON.
type LiveSource struct {
	logger  *zap.Logger
	exec    *httpclient.Executor
	baseURL string
}

func NewLiveSource(logger *zap.Logger, exec *httpclient.Executor, baseURL string) *LiveSource {
	return &LiveSource{
		logger:  logger,
		exec:    exec,
		baseURL: baseURL,
	}
}

func (s *LiveSource) Name() string { return "mt5-gateway" }

func (s *LiveSource) FetchDeals(ctx context.Context, since, until time.Time) ([]model.DealRecord, error) {
	q := url.Values{}
	q.Set("from", strconv.FormatInt(since.Unix(), 10))
	q.Set("to", strconv.FormatInt(until.Unix(), 10))

	var resp dealsResponse
	res := s.exec.DoJSON(ctx, http.MethodGet, s.baseURL+"/api/deals?"+q.Encode(), nil, nil, &resp, "mt5-gateway")
	if res.Err != nil {
		return nil, fmt.Errorf("%w: fetch deals: %v", ErrSourceUnavailable, res.Err)
	}

	deals := make([]model.DealRecord, 0, len(resp.Deals))
	for _, d := range resp.Deals {
		deals = append(deals, d.toModel())
	}
	s.logger.Debug("fetched deal history",
		zap.Int("count", len(deals)),
		zap.Time("since", since),
		zap.Time("until", until))
	return deals, nil
}

func (s *LiveSource) TerminalInfo(ctx context.Context) (*TerminalInfo, error) {
	var info TerminalInfo
	res := s.exec.DoJSON(ctx, http.MethodGet, s.baseURL+"/api/terminal", nil, nil, &info, "mt5-gateway")
	if res.Err != nil {
		return nil, fmt.Errorf("%w: terminal info: %v", ErrSourceUnavailable, res.Err)
	}
	return &info, nil
}

func (s *LiveSource) AccountInfo(ctx context.Context) (*AccountInfo, error) {
	var info AccountInfo
	res := s.exec.DoJSON(ctx, http.MethodGet, s.baseURL+"/api/account", nil, nil, &info, "mt5-gateway")
	if res.Err != nil {
		return nil, fmt.Errorf("%w: account info: %v", ErrSourceUnavailable, res.Err)
	}
	return &info, nil
}
