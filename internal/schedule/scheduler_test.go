package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

type blockingJob struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
	err     error
}

func (b *blockingJob) Name() string { return "blocking" }

func (b *blockingJob) Run(ctx context.Context) error {
	b.calls.Add(1)
	if b.started != nil {
		close(b.started)
	}
	if b.release != nil {
		<-b.release
	}
	return b.err
}

func TestRunNow_RunsJob(t *testing.T) {
	s := NewCronScheduler()
	job := &blockingJob{err: errors.New("boom")}
	require.NoError(t, s.AddJob(job, "0 */6 * * *"))

	err := s.RunNow(context.Background(), "blocking")
	require.EqualError(t, err, "boom")
	require.Equal(t, int32(1), job.calls.Load())
}

func TestRunNow_UnknownJob(t *testing.T) {
	s := NewCronScheduler()
	require.Error(t, s.RunNow(context.Background(), "missing"))
}

func TestRunNow_SkipsWhileRunning(t *testing.T) {
	s := NewCronScheduler()
	job := &blockingJob{started: make(chan struct{}), release: make(chan struct{})}
	require.NoError(t, s.AddJob(job, "0 */6 * * *"))

	done := make(chan error, 1)
	go func() { done <- s.RunNow(context.Background(), "blocking") }()
	<-job.started

	require.ErrorIs(t, s.RunNow(context.Background(), "blocking"), ErrJobRunning)
	close(job.release)
	require.NoError(t, <-done)
	require.Equal(t, int32(1), job.calls.Load())
}

func TestAddJob_InvalidSpec(t *testing.T) {
	s := NewCronScheduler()
	require.Error(t, s.AddJob(&blockingJob{}, "not a cron"))
}
