package tracker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Checker-Finance/mt5-adapter/internal/metrics"
	"github.com/Checker-Finance/mt5-adapter/pkg/model"
)

// ErrPersistence wraps failures of the durable store. Callers treat it as
// fatal: continuing a sync run without a working ledger would risk
// duplicate deliveries on the next pass.
var ErrPersistence = errors.New("delivery ledger unavailable")

// Tracker records which deal tickets have already been delivered so a
// ticket is never pushed to BrokerOps twice, no matter how often the same
// window is re-synced.
type Tracker interface {
	// HasDelivered reports whether the ticket was already delivered. A
	// storage failure returns an error wrapping ErrPersistence rather
	// than a false negative.
	HasDelivered(ctx context.Context, ticket int64) (bool, error)

	// MarkDelivered durably records a completed delivery. It must return
	// only once the record is persisted.
	MarkDelivered(ctx context.Context, rec model.DeliveryRecord) error

	// Lookup returns the stored record for a ticket, if any.
	Lookup(ctx context.Context, ticket int64) (*model.DeliveryRecord, error)
}

const redisKeyPrefix = "mt5:delivered:"

// HybridTracker keeps the delivery ledger in Postgres and mirrors it into
// Redis as a read-through cache. When constructed without a pool it runs
// redis-only, which doubles as the test configuration against miniredis.
type HybridTracker struct {
	logger   *zap.Logger
	pool     *pgxpool.Pool
	rdb      *redis.Client
	cacheTTL time.Duration
}

func NewHybridTracker(logger *zap.Logger, pool *pgxpool.Pool, rdb *redis.Client, cacheTTL time.Duration) *HybridTracker {
	return &HybridTracker{
		logger:   logger,
		pool:     pool,
		rdb:      rdb,
		cacheTTL: cacheTTL,
	}
}

func redisKey(ticket int64) string {
	return redisKeyPrefix + strconv.FormatInt(ticket, 10)
}

func (t *HybridTracker) HasDelivered(ctx context.Context, ticket int64) (bool, error) {
	if t.rdb != nil {
		n, err := t.rdb.Exists(ctx, redisKey(ticket)).Result()
		if err == nil && n > 0 {
			return true, nil
		}
		if err != nil {
			if t.pool == nil {
				return false, fmt.Errorf("%w: redis exists: %v", ErrPersistence, err)
			}
			// Cache trouble is survivable while the ledger is up.
			t.logger.Warn("redis lookup failed, falling through to postgres",
				zap.Int64("ticket", ticket), zap.Error(err))
		}
	}

	if t.pool == nil {
		return false, nil
	}

	var exists bool
	err := t.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM economics.delivery_record WHERE ticket = $1)`,
		ticket).Scan(&exists)
	if err != nil {
		metrics.IncError("tracker", "lookup")
		return false, fmt.Errorf("%w: query delivery_record: %v", ErrPersistence, err)
	}

	if exists && t.rdb != nil {
		// Re-warm the cache so the next window skips the DB round trip.
		if err := t.rdb.Set(ctx, redisKey(ticket), "1", t.cacheTTL).Err(); err != nil {
			t.logger.Warn("redis warm failed", zap.Int64("ticket", ticket), zap.Error(err))
		}
	}
	return exists, nil
}

func (t *HybridTracker) MarkDelivered(ctx context.Context, rec model.DeliveryRecord) error {
	if t.pool != nil {
		_, err := t.pool.Exec(ctx,
			`INSERT INTO economics.delivery_record (ticket, trace_id, status, delivered_at, run_id)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (ticket) DO NOTHING`,
			rec.Ticket, rec.TraceID, rec.Status, rec.DeliveredAt, rec.RunID)
		if err != nil {
			metrics.IncError("tracker", "mark")
			return fmt.Errorf("%w: insert delivery_record: %v", ErrPersistence, err)
		}
		if t.rdb != nil {
			if err := t.rdb.Set(ctx, redisKey(rec.Ticket), rec.TraceID, t.cacheTTL).Err(); err != nil {
				t.logger.Warn("redis mark failed", zap.Int64("ticket", rec.Ticket), zap.Error(err))
			}
		}
		return nil
	}

	if t.rdb == nil {
		return fmt.Errorf("%w: no backing store configured", ErrPersistence)
	}
	// Redis-only mode: redis IS the ledger, so a write failure is fatal.
	// SetNX keeps the first record if two runs ever race on a ticket.
	if err := t.rdb.SetNX(ctx, redisKey(rec.Ticket), rec.TraceID, t.cacheTTL).Err(); err != nil {
		metrics.IncError("tracker", "mark")
		return fmt.Errorf("%w: redis setnx: %v", ErrPersistence, err)
	}
	return nil
}

func (t *HybridTracker) Lookup(ctx context.Context, ticket int64) (*model.DeliveryRecord, error) {
	if t.pool != nil {
		var rec model.DeliveryRecord
		err := t.pool.QueryRow(ctx,
			`SELECT ticket, trace_id, status, delivered_at, run_id
			   FROM economics.delivery_record WHERE ticket = $1`,
			ticket).Scan(&rec.Ticket, &rec.TraceID, &rec.Status, &rec.DeliveredAt, &rec.RunID)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: query delivery_record: %v", ErrPersistence, err)
		}
		return &rec, nil
	}

	if t.rdb == nil {
		return nil, nil
	}
	traceID, err := t.rdb.Get(ctx, redisKey(ticket)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: redis get: %v", ErrPersistence, err)
	}
	return &model.DeliveryRecord{
		Ticket:  ticket,
		TraceID: traceID,
		Status:  model.DeliveryStatusDelivered,
	}, nil
}
