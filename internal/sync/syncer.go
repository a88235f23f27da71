package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Checker-Finance/mt5-adapter/internal/brokerops"
	"github.com/Checker-Finance/mt5-adapter/internal/metrics"
	"github.com/Checker-Finance/mt5-adapter/internal/mt5"
	"github.com/Checker-Finance/mt5-adapter/internal/tracker"
	"github.com/Checker-Finance/mt5-adapter/pkg/model"
)

// DeliveryClient is the slice of the BrokerOps client the syncer needs.
type DeliveryClient interface {
	Deliver(ctx context.Context, ev model.EconomicEvent) brokerops.DeliveryOutcome
}

// DeliveredPublisher is notified after each durable delivery. Optional.
type DeliveredPublisher interface {
	PublishDelivered(ev model.EconomicEvent, rec model.DeliveryRecord) error
}

// Syncer orchestrates one pass: fetch closed deals, map them to economics
// events, deliver the ones not yet synced, and record each delivery before
// moving on.
type Syncer struct {
	logger    *zap.Logger
	source    mt5.DealSource
	mapper    *mt5.Mapper
	tracker   tracker.Tracker
	client    DeliveryClient
	publisher DeliveredPublisher
}

func NewSyncer(logger *zap.Logger, source mt5.DealSource, mapper *mt5.Mapper, tr tracker.Tracker, client DeliveryClient, pub DeliveredPublisher) *Syncer {
	return &Syncer{
		logger:    logger,
		source:    source,
		mapper:    mapper,
		tracker:   tr,
		client:    client,
		publisher: pub,
	}
}

// Run syncs all deals closed since the given time. Per-deal delivery
// failures are isolated: the run continues and reports them in the
// summary. Source and ledger failures abort the run; the returned summary
// is still populated with whatever progress was made.
func (s *Syncer) Run(ctx context.Context, since time.Time) (*model.SyncSummary, error) {
	summary := &model.SyncSummary{
		RunID:     uuid.NewString(),
		Since:     since,
		State:     model.RunStateFetching,
		StartedAt: time.Now().UTC(),
	}
	defer func() {
		summary.Duration = time.Since(summary.StartedAt)
		metrics.IncSyncRun(string(summary.State))
	}()

	log := s.logger.With(zap.String("runId", summary.RunID))
	log.Info("sync run starting",
		zap.String("source", s.source.Name()),
		zap.Time("since", since))

	deals, err := s.source.FetchDeals(ctx, since, time.Now().UTC())
	if err != nil {
		summary.State = model.RunStateAborted
		metrics.IncError("sync", "source")
		return summary, fmt.Errorf("fetch deals: %w", err)
	}
	summary.Fetched = len(deals)

	summary.State = model.RunStateMapping
	mapped := s.mapper.MapBatch(deals)
	if dropped := len(deals) - len(mapped); dropped > 0 {
		log.Warn("duplicate tickets in fetch window", zap.Int("dropped", dropped))
	}

	summary.State = model.RunStateDelivering
	for _, md := range mapped {
		if err := ctx.Err(); err != nil {
			summary.State = model.RunStateAborted
			return summary, err
		}

		if err := s.syncOne(ctx, md, summary, log); err != nil {
			summary.State = model.RunStateAborted
			return summary, err
		}
	}

	summary.State = model.RunStateDone
	metrics.SetLastSync(time.Now())
	log.Info("sync run complete",
		zap.Int("fetched", summary.Fetched),
		zap.Int("delivered", summary.Delivered),
		zap.Int("alreadySynced", summary.AlreadySynced),
		zap.Int("failed", summary.Failed))
	return summary, nil
}

// syncOne handles a single deal. A non-nil return aborts the whole run;
// delivery failures are recorded in the summary and return nil.
func (s *Syncer) syncOne(ctx context.Context, md mt5.MappedDeal, summary *model.SyncSummary, log *zap.Logger) error {
	seen, err := s.tracker.HasDelivered(ctx, md.Deal.Ticket)
	if err != nil {
		metrics.IncError("sync", "tracker")
		return fmt.Errorf("check ticket %d: %w", md.Deal.Ticket, err)
	}
	if seen {
		summary.AlreadySynced++
		metrics.IncSyncDeal("already_synced")
		log.Debug("ticket already synced", zap.Int64("ticket", md.Deal.Ticket))
		return nil
	}

	outcome := s.client.Deliver(ctx, md.Event)
	if !outcome.Delivered() {
		summary.Failed++
		summary.FailedTickets = append(summary.FailedTickets, md.Deal.Ticket)
		metrics.IncSyncDeal("failed")
		log.Warn("deal delivery failed",
			zap.Int64("ticket", md.Deal.Ticket),
			zap.String("outcome", string(outcome.Kind)),
			zap.Int("attempts", outcome.Attempts))
		return nil
	}

	rec := model.DeliveryRecord{
		Ticket:      md.Deal.Ticket,
		TraceID:     md.Event.TraceID,
		Status:      model.DeliveryStatusDelivered,
		DeliveredAt: time.Now().UTC(),
		RunID:       summary.RunID,
	}
	// The record must be durable before the next deal is touched;
	// otherwise a crash here would double-deliver on the next window.
	if err := s.tracker.MarkDelivered(ctx, rec); err != nil {
		metrics.IncError("sync", "tracker")
		return fmt.Errorf("mark ticket %d delivered: %w", md.Deal.Ticket, err)
	}

	summary.Delivered++
	metrics.IncSyncDeal("delivered")

	if s.publisher != nil {
		if err := s.publisher.PublishDelivered(md.Event, rec); err != nil {
			// Notification only; the delivery itself already stands.
			log.Warn("delivered-event publish failed",
				zap.Int64("ticket", md.Deal.Ticket), zap.Error(err))
		}
	}
	return nil
}

// SyncDeal processes a single deal outside a windowed run, for deals
// arriving over the live stream. The tracker still guards against
// duplicates with the periodic job.
func (s *Syncer) SyncDeal(ctx context.Context, deal model.DealRecord) error {
	sum := &model.SyncSummary{
		RunID:     uuid.NewString(),
		State:     model.RunStateDelivering,
		StartedAt: time.Now().UTC(),
	}
	md := s.mapper.MapBatch([]model.DealRecord{deal})[0]
	log := s.logger.With(zap.String("runId", sum.RunID), zap.Bool("stream", true))
	return s.syncOne(ctx, md, sum, log)
}

// IsFatal reports whether a run error was a hard abort rather than a
// context cancellation.
func IsFatal(err error) bool {
	return err != nil &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}
