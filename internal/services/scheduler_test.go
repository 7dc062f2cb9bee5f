package services

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crocodileps/Mon-ps-sub009/pkg/logger"
)

func TestSchedulerRunJob(t *testing.T) {
	f := newFixture(t)
	s := NewScheduler(f.svc, Schedules{}, logger.Discard())
	ctx := context.Background()

	require.NoError(t, s.RunJob(ctx, JobResolve))
	require.NoError(t, s.RunJob(ctx, JobReload))
	assert.Error(t, s.RunJob(ctx, "compact"))

	jobs := f.svc.Metrics().JobRuns
	assert.Equal(t, 1.0, testutil.ToFloat64(jobs.WithLabelValues(JobResolve, "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(jobs.WithLabelValues(JobReload, "ok")))
}

func TestSchedulerJobFailureIsRecorded(t *testing.T) {
	f := newFixture(t)
	svc := NewMatchdayService(MatchdayDeps{Engine: f.svc.Engine()}, logger.Discard())
	s := NewScheduler(svc, Schedules{}, logger.Discard())

	assert.ErrorIs(t, s.RunJob(context.Background(), JobResolve), ErrNoStore)
	assert.Equal(t, 1.0, testutil.ToFloat64(svc.Metrics().JobRuns.WithLabelValues(JobResolve, "error")))
}

func TestSchedulerStartStop(t *testing.T) {
	f := newFixture(t)

	bad := NewScheduler(f.svc, Schedules{Resolve: "every tuesday"}, logger.Discard())
	assert.Error(t, bad.Start())

	s := NewScheduler(f.svc, Schedules{Resolve: "*/15 * * * *", Reload: "@hourly"}, logger.Discard())
	require.NoError(t, s.Start())
	assert.Error(t, s.Start())
	assert.Len(t, s.cron.Entries(), 2)
	s.Stop()
	s.Stop()
}
