package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Checker-Finance/mt5-adapter/internal/metrics"
	"github.com/Checker-Finance/mt5-adapter/internal/rate"
)

// Policy controls retry behavior for outbound requests. A request is
// attempted at most MaxAttempts times; after a failed attempt n (0-based)
// the executor sleeps Backoff(n) before retrying.
type Policy struct {
	MaxAttempts int
	BackoffBase time.Duration
}

// Backoff returns the delay after the given 0-based attempt:
// base, base*2, base*4, ...
func (p Policy) Backoff(attempt int) time.Duration {
	d := p.BackoffBase
	for i := 0; i < attempt; i++ {
		d *= 2
	}
	return d
}

// Result captures the terminal outcome of an executed request, including
// how many attempts were consumed and whether the final failure was a
// timeout rather than a refused connection or error status.
type Result struct {
	Status   int
	Attempts int
	TimedOut bool
	Body     []byte
	Err      error
}

// Success reports whether the request landed with a non-error status.
func (r Result) Success() bool {
	return r.Err == nil && r.Status >= 200 && r.Status < 300
}

// ClientError reports whether the terminal response was a 4xx. Client
// errors are never retried: resending an identical request cannot succeed.
func (r Result) ClientError() bool {
	return r.Status >= 400 && r.Status < 500
}

// Executor wraps an http.Client with rate limiting, retry with exponential
// backoff, and JSON encode/decode. Transport errors and 5xx responses are
// retried; 4xx responses terminate immediately.
type Executor struct {
	logger  *zap.Logger
	rateMgr *rate.Manager
	client  *http.Client
	policy  Policy
}

func New(logger *zap.Logger, rateMgr *rate.Manager, client *http.Client, policy Policy) *Executor {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &Executor{
		logger:  logger,
		rateMgr: rateMgr,
		client:  client,
		policy:  policy,
	}
}

// DoJSON executes an HTTP request with the executor's retry policy. The
// payload (if non-nil) is marshaled once and resent on every attempt; on a
// successful response the body is decoded into out (if non-nil). rateKey
// selects the token bucket used to pace requests to this target.
func (e *Executor) DoJSON(ctx context.Context, method, url string, headers http.Header, payload any, out any, rateKey string) Result {
	var body []byte
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return Result{Err: fmt.Errorf("marshal request payload: %w", err)}
		}
		body = b
	}

	res := Result{}
	for attempt := 0; attempt < e.policy.MaxAttempts; attempt++ {
		res.Attempts = attempt + 1

		if e.rateMgr != nil && rateKey != "" {
			if err := e.rateMgr.Wait(ctx, rateKey); err != nil {
				res.Err = err
				return res
			}
		}

		status, respBody, err := e.doOnce(ctx, method, url, headers, body)
		res.Status = status
		res.Body = respBody
		res.Err = err

		if err != nil {
			res.TimedOut = isTimeout(err)
			metrics.IncBrokerOpsRequest(url, method, "transport_error")
			e.logger.Warn("request attempt failed",
				zap.String("method", method),
				zap.String("url", url),
				zap.Int("attempt", res.Attempts),
				zap.Bool("timeout", res.TimedOut),
				zap.Error(err))
		} else if status >= 500 {
			res.TimedOut = false
			res.Err = fmt.Errorf("server error: status %d", status)
			metrics.IncBrokerOpsRequest(url, method, fmt.Sprintf("%d", status))
			e.logger.Warn("request attempt rejected by server",
				zap.String("method", method),
				zap.String("url", url),
				zap.Int("attempt", res.Attempts),
				zap.Int("status", status))
		} else if status >= 400 {
			// Client error: terminal, never retried.
			res.TimedOut = false
			res.Err = fmt.Errorf("client error: status %d", status)
			metrics.IncBrokerOpsRequest(url, method, fmt.Sprintf("%d", status))
			return res
		} else {
			res.TimedOut = false
			res.Err = nil
			metrics.IncBrokerOpsRequest(url, method, "success")
			if out != nil && len(respBody) > 0 {
				if derr := json.Unmarshal(respBody, out); derr != nil {
					res.Err = fmt.Errorf("decode response: %w", derr)
				}
			}
			return res
		}

		if attempt < e.policy.MaxAttempts-1 {
			if err := sleepCtx(ctx, e.policy.Backoff(attempt)); err != nil {
				res.Err = err
				return res
			}
		}
	}

	return res
}

func (e *Executor) doOnce(ctx context.Context, method, url string, headers http.Header, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	start := time.Now()
	resp, err := e.client.Do(req)
	metrics.ObserveDuration(metrics.BrokerOpsRequestDuration, start, url, method)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response body: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
