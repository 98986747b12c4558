package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"card_recommend/config"
	"card_recommend/models"
	"card_recommend/repository"
)

func sweeperConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Jobs.RetentionMin = 10
	cfg.Jobs.SweepIntervalSec = 1
	return cfg
}

func TestSweep_RemovesOnlyExpiredTerminalJobs(t *testing.T) {
	jobs := repository.NewMemoryJobStore()
	done, err := jobs.Create()
	require.NoError(t, err)
	require.NoError(t, jobs.Fail(done, "upstream down"))
	pending, err := jobs.Create()
	require.NoError(t, err)

	s := NewScheduler(sweeperConfig(), jobs)

	assert.Zero(t, s.sweep(time.Now()), "recently finished jobs are retained")
	assert.Equal(t, 1, s.sweep(time.Now().Add(11*time.Minute)))

	_, err = jobs.Get(done)
	assert.ErrorIs(t, err, repository.ErrJobNotFound)
	job, err := jobs.Get(pending)
	require.NoError(t, err)
	assert.Equal(t, models.JobPending, job.Status)
}

type countingPruner struct {
	calls atomic.Int32
}

func (p *countingPruner) PruneFinished(time.Time) int {
	p.calls.Add(1)
	return 0
}

func TestScheduler_RunsAndStops(t *testing.T) {
	pruner := &countingPruner{}
	s := NewScheduler(sweeperConfig(), pruner)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	assert.Eventually(t, func() bool { return pruner.calls.Load() > 0 }, 5*time.Second, 50*time.Millisecond)
	cancel()
	s.Wait()

	status := s.Status()[TaskJobSweep]
	assert.False(t, status.IsRunning)
	assert.False(t, status.LastRun.IsZero())
	assert.True(t, status.NextRun.After(status.LastRun))
}

func TestCheckTasks_SkipsUntilDue(t *testing.T) {
	pruner := &countingPruner{}
	s := NewScheduler(sweeperConfig(), pruner)
	now := time.Now()
	s.initTasks(now)

	s.checkTasks(now)
	s.Wait()
	assert.Zero(t, pruner.calls.Load())

	s.checkTasks(now.Add(time.Second))
	s.Wait()
	assert.Equal(t, int32(1), pruner.calls.Load())
}
