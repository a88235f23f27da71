package model

import "time"

// CheckResult is the outcome of probing a single dependency.
type CheckResult struct {
	Target  string        `json:"target"`
	OK      bool          `json:"ok"`
	Detail  string        `json:"detail,omitempty"`
	Latency time.Duration `json:"latency"`
}

// HealthReport aggregates connectivity checks against the MT5 terminal
// gateway and the BrokerOps economics and webhooks services.
type HealthReport struct {
	Checks []CheckResult `json:"checks"`
}

// Healthy reports whether every check passed.
func (r *HealthReport) Healthy() bool {
	for _, c := range r.Checks {
		if !c.OK {
			return false
		}
	}
	return true
}
