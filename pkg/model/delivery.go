package model

import "time"

// Delivery record statuses.
const (
	DeliveryStatusDelivered = "delivered"
)

// DeliveryRecord tracks that a given ticket has been successfully posted to
// BrokerOps. At most one record per ticket ever transitions to "delivered";
// repeated sync runs over overlapping windows must never re-deliver a ticket
// that already has one.
type DeliveryRecord struct {
	Ticket      int64     `json:"ticket"`
	TraceID     string    `json:"trace_id"`
	Status      string    `json:"status"`
	DeliveredAt time.Time `json:"delivered_at"`
	RunID       string    `json:"run_id,omitempty"`
}
