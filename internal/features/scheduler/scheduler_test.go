package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"go-regula/internal/testsupport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newScheduler(t *testing.T, lockPath string, jobs ...Job) *Scheduler {
	t.Helper()
	s, err := New(lockPath, testsupport.NewClock(), zap.NewNop(), jobs...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop(context.Background()) })
	return s
}

func TestNewRejectsInvalidJobs(t *testing.T) {
	noop := func(context.Context) error { return nil }

	_, err := New("", testsupport.NewClock(), zap.NewNop(), Job{Name: "a", Interval: 0, Run: noop})
	assert.Error(t, err)

	_, err = New("", testsupport.NewClock(), zap.NewNop(),
		Job{Name: "a", Interval: time.Second, Run: noop},
		Job{Name: "a", Interval: time.Second, Run: noop})
	assert.Error(t, err)
}

func TestRunNowRecordsStatus(t *testing.T) {
	boom := errors.New("boom")
	var calls atomic.Int32
	s := newScheduler(t, "", Job{Name: "flaky", Interval: time.Minute, Run: func(context.Context) error {
		if calls.Add(1) == 1 {
			return boom
		}
		return nil
	}})

	require.ErrorIs(t, s.RunNow("flaky"), boom)
	st := s.Status()
	require.Len(t, st, 1)
	assert.Equal(t, 1, st[0].Runs)
	assert.Equal(t, "boom", st[0].LastError)
	require.NotNil(t, st[0].LastRun)
	assert.Equal(t, testsupport.Epoch, *st[0].LastRun)

	require.NoError(t, s.RunNow("flaky"))
	st = s.Status()
	assert.Equal(t, 2, st[0].Runs)
	assert.Empty(t, st[0].LastError)

	assert.ErrorIs(t, s.RunNow("missing"), ErrUnknownJob)
}

func TestJobNeverOverlapsItself(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	s := newScheduler(t, "", Job{Name: "slow", Interval: time.Minute, Run: func(context.Context) error {
		close(started)
		<-release
		return nil
	}})

	done := make(chan error, 1)
	go func() { done <- s.RunNow("slow") }()
	<-started

	assert.ErrorIs(t, s.RunNow("slow"), ErrJobBusy)
	close(release)
	require.NoError(t, <-done)
}

func TestSecondInstanceStaysPassive(t *testing.T) {
	lock := filepath.Join(t.TempDir(), "regula-scheduler.lock")
	noop := Job{Name: "noop", Interval: time.Hour, Run: func(context.Context) error { return nil }}

	first := newScheduler(t, lock, noop)
	second := newScheduler(t, lock, noop)

	ok, err := first.Start()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, first.Active())

	ok, err = second.Start()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, second.Active())

	require.NoError(t, first.Stop(context.Background()))

	third := newScheduler(t, lock, noop)
	ok, err = third.Start()
	require.NoError(t, err)
	assert.True(t, ok, "the lock is released on stop")
}

func TestStopWaitsForInFlightJob(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	var finished atomic.Bool

	s := newScheduler(t, "", Job{Name: "batch", Interval: time.Second, Run: func(ctx context.Context) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		finished.Store(true)
		return nil
	}})
	ok, err := s.Start()
	require.NoError(t, err)
	require.True(t, ok)

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("job never fired")
	}

	stopped := make(chan error, 1)
	go func() { stopped <- s.Stop(context.Background()) }()

	select {
	case <-stopped:
		t.Fatal("Stop returned while the job was still running")
	case <-time.After(200 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-stopped)
	assert.True(t, finished.Load())
}

func TestStopWaitsForRunNow(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool

	s := newScheduler(t, "", Job{Name: "sweep", Interval: time.Hour, Run: func(ctx context.Context) error {
		close(started)
		<-release
		finished.Store(true)
		return nil
	}})
	ok, err := s.Start()
	require.NoError(t, err)
	require.True(t, ok)

	ran := make(chan error, 1)
	go func() { ran <- s.RunNow("sweep") }()
	<-started

	stopped := make(chan error, 1)
	go func() { stopped <- s.Stop(context.Background()) }()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a manual run was in flight")
	case <-time.After(200 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-ran)
	require.NoError(t, <-stopped)
	assert.True(t, finished.Load())

	assert.ErrorIs(t, s.RunNow("sweep"), ErrStopped)
}

func TestStopGivesUpAtDeadline(t *testing.T) {
	started := make(chan struct{}, 1)
	s := newScheduler(t, "", Job{Name: "stuck", Interval: time.Second, Run: func(ctx context.Context) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
		return ctx.Err()
	}})
	_, err := s.Start()
	require.NoError(t, err)

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("job never fired")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Stop(ctx), context.DeadlineExceeded)

	_, err = s.Start()
	assert.Error(t, err, "a stopped scheduler cannot restart")
}
