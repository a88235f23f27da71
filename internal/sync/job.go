package sync

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Checker-Finance/mt5-adapter/pkg/model"
)

// Job runs the syncer on a fixed interval. Each tick syncs from
// (last window start - overlap), so deals that closed while the previous
// pass was running are never missed; the tracker makes re-seen tickets
// harmless.
// SyncNotifier receives the summary of every finished run. Optional.
type SyncNotifier interface {
	PublishSyncCompleted(sum model.SyncSummary) error
}

type Job struct {
	logger   *zap.Logger
	syncer   *Syncer
	interval time.Duration
	window   time.Duration
	overlap  time.Duration
	notifier SyncNotifier

	// Serializes runs: the ticker loop and on-demand API syncs must never
	// interleave check-then-mark sequences against the same tracker.
	runMu sync.Mutex

	mu       sync.RWMutex
	last     *model.SyncSummary
	lastTick time.Time
}

func NewJob(logger *zap.Logger, syncer *Syncer, interval, window, overlap time.Duration) *Job {
	return &Job{
		logger:   logger,
		syncer:   syncer,
		interval: interval,
		window:   window,
		overlap:  overlap,
	}
}

// SetNotifier attaches a per-run summary notifier. Must be called before
// the job starts.
func (j *Job) SetNotifier(n SyncNotifier) {
	j.notifier = n
}

// Last returns the most recent run summary, if any.
func (j *Job) Last() *model.SyncSummary {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.last
}

// RunOnce executes a single pass and records its summary. Concurrent
// callers queue; at most one run is ever in flight.
func (j *Job) RunOnce(ctx context.Context) (*model.SyncSummary, error) {
	j.runMu.Lock()
	defer j.runMu.Unlock()

	since := j.nextSince()
	sum, err := j.syncer.Run(ctx, since)

	j.mu.Lock()
	j.last = sum
	j.lastTick = sum.StartedAt
	j.mu.Unlock()

	if j.notifier != nil {
		if nerr := j.notifier.PublishSyncCompleted(*sum); nerr != nil {
			// Reporting only; the run result already stands.
			j.logger.Warn("sync summary publish failed",
				zap.String("runId", sum.RunID), zap.Error(nerr))
		}
	}
	return sum, err
}

func (j *Job) nextSince() time.Time {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.lastTick.IsZero() {
		return time.Now().UTC().Add(-j.window)
	}
	return j.lastTick.Add(-j.overlap)
}

// Run loops until the context is canceled. A fatal run error is logged
// and the loop continues on the next tick; the terminal and BrokerOps
// both come and go in practice.
func (j *Job) Run(ctx context.Context) {
	j.logger.Info("sync job starting",
		zap.Duration("interval", j.interval),
		zap.Duration("window", j.window),
		zap.Duration("overlap", j.overlap))

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		if sum, err := j.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			j.logger.Error("sync run failed",
				zap.String("state", string(sum.State)),
				zap.Error(err))
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			j.logger.Info("sync job stopping")
			return
		}
	}
}
