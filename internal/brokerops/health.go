package brokerops

import (
	"context"
	"fmt"
	"time"

	"github.com/Checker-Finance/mt5-adapter/internal/mt5"
	"github.com/Checker-Finance/mt5-adapter/pkg/model"
)

// HealthChecker probes every dependency the adapter needs for a sync run:
// the MT5 gateway on one side and both BrokerOps services on the other.
type HealthChecker struct {
	source mt5.DealSource
	client *Client
}

func NewHealthChecker(source mt5.DealSource, client *Client) *HealthChecker {
	return &HealthChecker{source: source, client: client}
}

// Report runs all checks and returns the aggregate.
func (h *HealthChecker) Report(ctx context.Context) model.HealthReport {
	report := model.HealthReport{
		Checks: []model.CheckResult{
			h.checkSource(ctx),
			h.checkAccount(ctx),
			h.client.CheckEconomics(ctx),
			h.client.CheckWebhooks(ctx),
		},
	}
	return report
}

// checkAccount verifies the terminal is logged into a trading account and
// surfaces the login, balance and server an operator checks first.
func (h *HealthChecker) checkAccount(ctx context.Context) model.CheckResult {
	start := time.Now()
	acct, err := h.source.AccountInfo(ctx)
	latency := time.Since(start)
	if err != nil {
		return model.CheckResult{Target: "account", OK: false, Detail: err.Error(), Latency: latency}
	}
	if acct.Login == 0 {
		return model.CheckResult{Target: "account", OK: false, Detail: "no account logged in", Latency: latency}
	}
	return model.CheckResult{
		Target:  "account",
		OK:      true,
		Detail:  fmt.Sprintf("login %d balance %.2f %s on %s", acct.Login, acct.Balance, acct.Currency, acct.Server),
		Latency: latency,
	}
}

func (h *HealthChecker) checkSource(ctx context.Context) model.CheckResult {
	start := time.Now()
	info, err := h.source.TerminalInfo(ctx)
	latency := time.Since(start)
	if err != nil {
		return model.CheckResult{Target: h.source.Name(), OK: false, Detail: err.Error(), Latency: latency}
	}
	if !info.Connected {
		return model.CheckResult{Target: h.source.Name(), OK: false, Detail: "terminal not connected", Latency: latency}
	}
	return model.CheckResult{
		Target:  h.source.Name(),
		OK:      true,
		Detail:  fmt.Sprintf("%s build %d", info.Name, info.Build),
		Latency: latency,
	}
}
