package brokerops

import "time"

// OutcomeKind classifies the terminal result of a delivery attempt series.
type OutcomeKind string

const (
	// OutcomeDelivered means BrokerOps acknowledged the event.
	OutcomeDelivered OutcomeKind = "delivered"
	// OutcomeRejected means BrokerOps returned a 4xx; the payload is bad
	// and resending it cannot help.
	OutcomeRejected OutcomeKind = "rejected"
	// OutcomeTimeout means every attempt ran out the clock.
	OutcomeTimeout OutcomeKind = "timeout"
	// OutcomeTransient means retries were exhausted on connection errors
	// or 5xx responses.
	OutcomeTransient OutcomeKind = "transient"
)

// DeliveryOutcome reports what happened to one event.
type DeliveryOutcome struct {
	Kind     OutcomeKind
	Status   int
	Attempts int
	Err      error
}

func (o DeliveryOutcome) Delivered() bool {
	return o.Kind == OutcomeDelivered
}

// DefaultWebhookEvents are the subscriptions registered when the caller
// does not narrow them.
var DefaultWebhookEvents = []string{
	"trace.completed",
	"override.approved",
	"economics.recorded",
}

type webhookRequest struct {
	URL    string   `json:"url"`
	Events []string `json:"events"`
}

// WebhookRegistration is the service's record of a registered endpoint.
type WebhookRegistration struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Events    []string  `json:"events"`
	CreatedAt time.Time `json:"createdAt"`
}
