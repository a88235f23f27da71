package publisher

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/Checker-Finance/mt5-adapter/internal/metrics"
	"github.com/Checker-Finance/mt5-adapter/pkg/model"
)

// Publisher emits delivery notifications onto JetStream so downstream
// consumers (reconciliation, reporting) see every economics event the
// adapter successfully handed to BrokerOps.
type Publisher struct {
	logger      *zap.Logger
	nc          *nats.Conn
	js          nats.JetStreamContext
	subject     string
	syncSubject string
	source      string
}

// envelope is the wire shape published per delivered deal.
type envelope struct {
	ID          string               `json:"id"`
	Source      string               `json:"source"`
	Subject     string               `json:"subject"`
	Event       model.EconomicEvent  `json:"event"`
	Delivery    model.DeliveryRecord `json:"delivery"`
	PublishedAt time.Time            `json:"publishedAt"`
}

func New(logger *zap.Logger, natsURL, subject, syncSubject, source string) (*Publisher, error) {
	nc, err := nats.Connect(natsURL,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("get jetstream context: %w", err)
	}

	return &Publisher{
		logger:      logger,
		nc:          nc,
		js:          js,
		subject:     subject,
		syncSubject: syncSubject,
		source:      source,
	}, nil
}

// PublishDelivered emits a notification for a successfully delivered event.
func (p *Publisher) PublishDelivered(ev model.EconomicEvent, rec model.DeliveryRecord) error {
	env := envelope{
		ID:          uuid.NewString(),
		Source:      p.source,
		Subject:     p.subject,
		Event:       ev,
		Delivery:    rec,
		PublishedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(env)
	if err != nil {
		metrics.IncNATSMessage(p.subject, "error")
		return fmt.Errorf("marshal envelope: %w", err)
	}

	start := time.Now()
	if _, err := p.js.Publish(p.subject, data); err != nil {
		metrics.IncNATSMessage(p.subject, "error")
		return fmt.Errorf("publish to %s: %w", p.subject, err)
	}
	metrics.ObserveDuration(metrics.NATSMessageLatency, start, p.subject)
	metrics.IncNATSMessage(p.subject, "ok")

	p.logger.Debug("published delivery notification",
		zap.String("subject", p.subject),
		zap.String("traceId", ev.TraceID))
	return nil
}

// runEnvelope is the wire shape published per completed sync run.
type runEnvelope struct {
	ID          string            `json:"id"`
	Source      string            `json:"source"`
	Subject     string            `json:"subject"`
	Summary     model.SyncSummary `json:"summary"`
	PublishedAt time.Time         `json:"publishedAt"`
}

// PublishSyncCompleted emits the summary of a finished sync run so
// reconciliation consumers can account for every pass, including aborted
// ones.
func (p *Publisher) PublishSyncCompleted(sum model.SyncSummary) error {
	env := runEnvelope{
		ID:          uuid.NewString(),
		Source:      p.source,
		Subject:     p.syncSubject,
		Summary:     sum,
		PublishedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(env)
	if err != nil {
		metrics.IncNATSMessage(p.syncSubject, "error")
		return fmt.Errorf("marshal run envelope: %w", err)
	}

	start := time.Now()
	if _, err := p.js.Publish(p.syncSubject, data); err != nil {
		metrics.IncNATSMessage(p.syncSubject, "error")
		return fmt.Errorf("publish to %s: %w", p.syncSubject, err)
	}
	metrics.ObserveDuration(metrics.NATSMessageLatency, start, p.syncSubject)
	metrics.IncNATSMessage(p.syncSubject, "ok")

	p.logger.Debug("published sync summary",
		zap.String("subject", p.syncSubject),
		zap.String("runId", sum.RunID),
		zap.String("state", string(sum.State)))
	return nil
}

// Close drains the connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		if err := p.nc.Drain(); err != nil {
			p.logger.Warn("nats drain failed", zap.Error(err))
		}
	}
}
