package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

var ErrJobRunning = errors.New("job still running")

type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type Scheduler interface {
	AddJob(job Job, spec string) error
	RunNow(ctx context.Context, name string) error
	Start(ctx context.Context)
	Stop()
}

// guardedJob serialises cron ticks and manual triggers of one job.
type guardedJob struct {
	job     Job
	spec    string
	running atomic.Bool
}

type CronScheduler struct {
	cron *cron.Cron

	mu   sync.Mutex
	jobs map[string]*guardedJob
	ctx  context.Context
}

func NewCronScheduler() *CronScheduler {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return &CronScheduler{
		cron: cron.New(cron.WithParser(parser)),
		jobs: make(map[string]*guardedJob),
	}
}

func (c *CronScheduler) AddJob(job Job, spec string) error {
	name := job.Name()
	logger := logutil.GetLogger(context.Background()).With(zap.String("job", name), zap.String("spec", spec))
	g := &guardedJob{job: job, spec: spec}
	if _, err := c.cron.AddFunc(spec, func() {
		_ = c.run(c.baseContext(), g)
	}); err != nil {
		logger.Error("schedule job failed", zap.Error(err))
		return err
	}
	c.mu.Lock()
	c.jobs[name] = g
	c.mu.Unlock()
	logger.Info("job scheduled")
	return nil
}

// RunNow runs a scheduled job synchronously. It returns ErrJobRunning when a
// cron tick or another trigger is already executing it.
func (c *CronScheduler) RunNow(ctx context.Context, name string) error {
	c.mu.Lock()
	g, ok := c.jobs[name]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("job %q not scheduled", name)
	}
	return c.run(ctx, g)
}

func (c *CronScheduler) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	c.mu.Lock()
	c.ctx = ctx
	c.mu.Unlock()
	c.cron.Start()
}

func (c *CronScheduler) Stop() {
	ctx := c.cron.Stop()
	<-ctx.Done()
}

func (c *CronScheduler) baseContext() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ctx == nil {
		return context.Background()
	}
	return c.ctx
}

func (c *CronScheduler) run(ctx context.Context, g *guardedJob) error {
	logger := logutil.GetLogger(ctx).With(
		zap.String("job", g.job.Name()),
		zap.String("spec", g.spec),
	)
	if !g.running.CompareAndSwap(false, true) {
		logger.Info("job skipped: still running")
		return ErrJobRunning
	}
	defer g.running.Store(false)

	start := time.Now()
	logger.Info("job started")
	err := g.job.Run(ctx)
	elapsed := time.Since(start)
	if err != nil {
		logger.Error("job finished", zap.Error(err), zap.Duration("duration", elapsed))
		return err
	}
	logger.Info("job finished", zap.Duration("duration", elapsed))
	return nil
}
