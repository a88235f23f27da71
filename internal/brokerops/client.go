package brokerops

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Checker-Finance/mt5-adapter/internal/httpclient"
	"github.com/Checker-Finance/mt5-adapter/pkg/model"
)

// Config carries the BrokerOps endpoints and credentials.
type Config struct {
	EconomicsURL string
	WebhooksURL  string
	APIKey       string
}

// Client talks to the BrokerOps economics and webhooks services.
type Client struct {
	logger *zap.Logger
	cfg    Config
	exec   *httpclient.Executor
	// Health probes bypass the retrying executor; a probe that needs
	// three attempts to answer is not healthy.
	probe *http.Client
}

func NewClient(logger *zap.Logger, cfg Config, exec *httpclient.Executor) *Client {
	return &Client{
		logger: logger,
		cfg:    cfg,
		exec:   exec,
		probe:  &http.Client{Timeout: 2 * time.Second},
	}
}

func (c *Client) headers() http.Header {
	h := http.Header{}
	if c.cfg.APIKey != "" {
		h.Set("X-API-Key", c.cfg.APIKey)
	}
	return h
}

// Deliver posts one economics event and classifies the result. Transient
// failures and 5xx are retried by the executor; a 4xx terminates at once.
func (c *Client) Deliver(ctx context.Context, ev model.EconomicEvent) DeliveryOutcome {
	res := c.exec.DoJSON(ctx, http.MethodPost, c.cfg.EconomicsURL+"/economics/event",
		c.headers(), ev, nil, "economics")

	out := DeliveryOutcome{Status: res.Status, Attempts: res.Attempts, Err: res.Err}
	switch {
	case res.Success():
		out.Kind = OutcomeDelivered
		c.logger.Info("event delivered",
			zap.String("traceId", ev.TraceID),
			zap.Int("attempts", res.Attempts))
	case res.ClientError():
		out.Kind = OutcomeRejected
		c.logger.Error("event rejected by economics service",
			zap.String("traceId", ev.TraceID),
			zap.Int("status", res.Status),
			zap.ByteString("body", res.Body))
	case res.TimedOut:
		out.Kind = OutcomeTimeout
		c.logger.Error("event delivery timed out",
			zap.String("traceId", ev.TraceID),
			zap.Int("attempts", res.Attempts))
	default:
		out.Kind = OutcomeTransient
		c.logger.Error("event delivery failed",
			zap.String("traceId", ev.TraceID),
			zap.Int("attempts", res.Attempts),
			zap.Error(res.Err))
	}
	return out
}

// RegisterWebhook subscribes a callback URL with the webhooks service.
// Passing no events registers the default subscriptions.
func (c *Client) RegisterWebhook(ctx context.Context, callbackURL string, events []string) (*WebhookRegistration, error) {
	if len(events) == 0 {
		events = DefaultWebhookEvents
	}

	var reg WebhookRegistration
	res := c.exec.DoJSON(ctx, http.MethodPost, c.cfg.WebhooksURL+"/webhooks",
		c.headers(), webhookRequest{URL: callbackURL, Events: events}, &reg, "webhooks")
	if res.Err != nil {
		return nil, fmt.Errorf("register webhook: %w", res.Err)
	}

	c.logger.Info("webhook registered",
		zap.String("id", reg.ID),
		zap.String("url", callbackURL),
		zap.Strings("events", events))
	return &reg, nil
}

// CheckEconomics probes the economics service health endpoint.
func (c *Client) CheckEconomics(ctx context.Context) model.CheckResult {
	return c.check(ctx, "economics", c.cfg.EconomicsURL+"/health")
}

// CheckWebhooks probes the webhooks service health endpoint.
func (c *Client) CheckWebhooks(ctx context.Context) model.CheckResult {
	return c.check(ctx, "webhooks", c.cfg.WebhooksURL+"/health")
}

func (c *Client) check(ctx context.Context, target, url string) model.CheckResult {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return model.CheckResult{Target: target, OK: false, Detail: err.Error()}
	}
	resp, err := c.probe.Do(req)
	latency := time.Since(start)
	if err != nil {
		return model.CheckResult{Target: target, OK: false, Detail: err.Error(), Latency: latency}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.CheckResult{
			Target:  target,
			OK:      false,
			Detail:  fmt.Sprintf("status %d", resp.StatusCode),
			Latency: latency,
		}
	}
	return model.CheckResult{Target: target, OK: true, Latency: latency}
}
