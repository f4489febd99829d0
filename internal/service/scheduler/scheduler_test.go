package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/config"
	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/service/contract"
	"github.com/KvizadSaderah/bg-real-estate-finder-sub000/internal/service/ingestion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCycleRunner 트리거 횟수를 세는 테스트용 CycleRunner입니다.
type fakeCycleRunner struct {
	calls atomic.Int32
	err   error
}

var _ contract.CycleRunner = (*fakeCycleRunner)(nil)

func (r *fakeCycleRunner) RunCycle(_ context.Context, runBy contract.RunBy) (*contract.IngestionSession, error) {
	r.calls.Add(1)
	if r.err != nil {
		return nil, r.err
	}
	return &contract.IngestionSession{
		ID:     "test-session",
		RunBy:  runBy,
		Status: contract.SessionStatusCompleted,
	}, nil
}

func TestScheduler(t *testing.T) {
	t.Parallel()

	t.Run("스케줄에 맞춰 사이클이 반복 트리거된다", func(t *testing.T) {
		t.Parallel()

		runner := &fakeCycleRunner{}
		s := NewService(config.ScheduleConfig{Runnable: true, TimeSpec: "@every 100ms"}, runner)

		ctx, cancel := context.WithCancel(context.Background())
		var wg sync.WaitGroup
		wg.Add(1)

		require.NoError(t, s.Start(ctx, &wg))

		assert.Eventually(t, func() bool {
			return runner.calls.Load() >= 2
		}, 2*time.Second, 20*time.Millisecond, "스케줄러가 사이클을 반복 트리거해야 한다")

		cancel()
		wg.Wait()

		// 중지 후에는 더 이상 트리거되지 않아야 합니다.
		stopped := runner.calls.Load()
		time.Sleep(250 * time.Millisecond)
		assert.Equal(t, stopped, runner.calls.Load())
	})

	t.Run("스케줄이 비활성화되어 있으면 Cron 엔진을 기동하지 않는다", func(t *testing.T) {
		t.Parallel()

		runner := &fakeCycleRunner{}
		s := NewService(config.ScheduleConfig{Runnable: false, TimeSpec: "@every 100ms"}, runner)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		var wg sync.WaitGroup
		wg.Add(1)

		require.NoError(t, s.Start(ctx, &wg))
		wg.Wait()

		time.Sleep(250 * time.Millisecond)
		assert.Zero(t, runner.calls.Load())
	})

	t.Run("실행 중 거부 에러는 트리거 건너뛰기로 처리된다", func(t *testing.T) {
		t.Parallel()

		runner := &fakeCycleRunner{err: ingestion.ErrCycleAlreadyRunning}
		s := NewService(config.ScheduleConfig{Runnable: true, TimeSpec: "@every 100ms"}, runner)

		ctx, cancel := context.WithCancel(context.Background())
		var wg sync.WaitGroup
		wg.Add(1)

		require.NoError(t, s.Start(ctx, &wg))

		assert.Eventually(t, func() bool {
			return runner.calls.Load() >= 2
		}, 2*time.Second, 20*time.Millisecond, "거부된 트리거 이후에도 다음 스케줄은 계속 시도되어야 한다")

		cancel()
		wg.Wait()
	})

	t.Run("잘못된 Cron 표현식은 Start에서 에러를 반환한다", func(t *testing.T) {
		t.Parallel()

		s := NewService(config.ScheduleConfig{Runnable: true, TimeSpec: "not-a-cron"}, &fakeCycleRunner{})

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		var wg sync.WaitGroup
		wg.Add(1)

		assert.Error(t, s.Start(ctx, &wg))
		wg.Wait()
	})
}
