package application

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/marketledger/pkg/cache"
)

type failingLocker struct{}

func (failingLocker) SetNX(context.Context, string, []byte, time.Duration) (bool, error) {
	return false, errDown
}

func TestSimulationJobRunRespectsLock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, openNow)
	f.seed(t)
	locker := cache.NewMemoryCache()

	first := NewSimulationJob(f.sim, locker, nil, SimulationJobConfig{Interval: time.Minute, InstanceID: "a"})
	second := NewSimulationJob(f.sim, locker, nil, SimulationJobConfig{Interval: time.Minute, InstanceID: "b"})

	assert.True(t, first.run(ctx))
	assert.False(t, second.run(ctx))

	n, err := f.history.Count(ctx, "PETR4")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestSimulationJobNeverSkipsItsOwnIntervals(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, openNow)
	f.seed(t)
	locker := cache.NewMemoryCache()

	interval := 100 * time.Millisecond
	job := NewSimulationJob(f.sim, locker, nil, SimulationJobConfig{Interval: interval, InstanceID: "a"})
	other := NewSimulationJob(f.sim, locker, nil, SimulationJobConfig{Interval: interval, InstanceID: "b"})

	const rounds = 5
	for i := 0; i < rounds; i++ {
		require.True(t, job.run(ctx), "round %d skipped", i)
		// 同一周期内的其他实例被挡住
		assert.False(t, other.run(ctx), "round %d ran twice", i)
		time.Sleep(interval)
	}

	n, err := f.history.Count(ctx, "PETR4")
	require.NoError(t, err)
	assert.EqualValues(t, rounds, n)
}

func TestSimulationJobRunsWhenLockUnavailable(t *testing.T) {
	f := newFixture(t, openNow)
	f.seed(t)
	job := NewSimulationJob(f.sim, failingLocker{}, nil, SimulationJobConfig{Interval: time.Minute})
	assert.True(t, job.run(context.Background()))
}

func TestSimulationJobStartBootstrapsAndTicks(t *testing.T) {
	f := newFixture(t, openNow)
	job := NewSimulationJob(f.sim, nil, nil, SimulationJobConfig{
		Interval:     10 * time.Millisecond,
		SeedDefaults: true,
	})

	ctx, cancel := context.WithCancel(context.Background())
	var done atomic.Bool
	go func() {
		_ = job.Start(ctx)
		done.Store(true)
	}()

	// 回填 11 根，之后每轮 tick 追加 1 根
	require.Eventually(t, func() bool {
		n, err := f.history.Count(context.Background(), "PETR4")
		return err == nil && n > 11
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	assert.Eventually(t, done.Load, time.Second, 5*time.Millisecond)
}
