package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Checker-Finance/mt5-adapter/internal/mt5"
	"github.com/Checker-Finance/mt5-adapter/pkg/model"
)

func TestJob_RunOnceRecordsSummary(t *testing.T) {
	src := &fakeSource{deals: []model.DealRecord{deal(1, "a")}}
	tr, _ := newTestTracker(t)
	j := NewJob(zap.NewNop(), newSyncer(t, src, tr, &fakeClient{}, nil),
		time.Minute, 24*time.Hour, 10*time.Minute)

	require.Nil(t, j.Last())

	sum, err := j.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Delivered)
	assert.Same(t, sum, j.Last())
}

type fakeNotifier struct {
	summaries []model.SyncSummary
}

func (f *fakeNotifier) PublishSyncCompleted(sum model.SyncSummary) error {
	f.summaries = append(f.summaries, sum)
	return nil
}

func TestJob_NotifiesAfterEachRun(t *testing.T) {
	src := &fakeSource{deals: []model.DealRecord{deal(1, "a")}}
	tr, _ := newTestTracker(t)
	j := NewJob(zap.NewNop(), newSyncer(t, src, tr, &fakeClient{}, nil),
		time.Minute, 24*time.Hour, 10*time.Minute)
	n := &fakeNotifier{}
	j.SetNotifier(n)

	_, err := j.RunOnce(context.Background())
	require.NoError(t, err)
	_, err = j.RunOnce(context.Background())
	require.NoError(t, err)

	require.Len(t, n.summaries, 2, "one summary per run")
	assert.Equal(t, model.RunStateDone, n.summaries[0].State)
	assert.Equal(t, 1, n.summaries[0].Delivered)
	assert.Equal(t, 1, n.summaries[1].AlreadySynced)
}

func TestJob_NotifiesAbortedRuns(t *testing.T) {
	src := &fakeSource{err: mt5.ErrSourceUnavailable}
	tr, _ := newTestTracker(t)
	j := NewJob(zap.NewNop(), newSyncer(t, src, tr, &fakeClient{}, nil),
		time.Minute, 24*time.Hour, 10*time.Minute)
	n := &fakeNotifier{}
	j.SetNotifier(n)

	_, err := j.RunOnce(context.Background())
	require.Error(t, err)

	require.Len(t, n.summaries, 1)
	assert.Equal(t, model.RunStateAborted, n.summaries[0].State)
}

func TestJob_WindowThenOverlap(t *testing.T) {
	src := &fakeSource{}
	tr, _ := newTestTracker(t)
	j := NewJob(zap.NewNop(), newSyncer(t, src, tr, &fakeClient{}, nil),
		time.Minute, 24*time.Hour, 10*time.Minute)

	// First pass reaches back a full window.
	first := j.nextSince()
	assert.WithinDuration(t, time.Now().Add(-24*time.Hour), first, time.Minute)

	_, err := j.RunOnce(context.Background())
	require.NoError(t, err)

	// Subsequent passes start a little before the previous tick.
	second := j.nextSince()
	assert.WithinDuration(t, time.Now().Add(-10*time.Minute), second, time.Minute)
}
