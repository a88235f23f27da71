package model

import "time"

// RunState tracks the phase a sync run is in. A run moves
// fetching → mapping → delivering → done; aborted is reachable from any
// phase on a fatal error (source unreachable, tracker persistence failure).
type RunState string

const (
	RunStateFetching   RunState = "fetching"
	RunStateMapping    RunState = "mapping"
	RunStateDelivering RunState = "delivering"
	RunStateDone       RunState = "done"
	RunStateAborted    RunState = "aborted"
)

// SyncSummary is the structured result of one sync run. The caller owns
// presentation (console, log, metrics); the orchestrator only reports.
type SyncSummary struct {
	RunID         string        `json:"run_id"`
	Since         time.Time     `json:"since"`
	State         RunState      `json:"state"`
	Fetched       int           `json:"fetched"`
	Delivered     int           `json:"delivered"`
	AlreadySynced int           `json:"already_synced"`
	Failed        int           `json:"failed"`
	FailedTickets []int64       `json:"failed_tickets,omitempty"`
	StartedAt     time.Time     `json:"started_at"`
	Duration      time.Duration `json:"duration"`
}
