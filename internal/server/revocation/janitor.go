package revocation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/volunteerhub/internal/logging"
	"github.com/robfig/cron/v3"
)

// Job is one maintenance task. It receives a context bounded by the job's
// interval.
type Job func(ctx context.Context) error

// Janitor runs periodic revocation maintenance: sweeping the memory list,
// purging expired Postgres rows and saving snapshots. A run still in progress
// when the next tick arrives is skipped, and a panicking job is logged.
type Janitor struct {
	cron *cron.Cron
	log  logging.Logger

	mu   sync.RWMutex
	base context.Context
}

func NewJanitor(log logging.Logger) *Janitor {
	cl := cronLogger{log: log}
	return &Janitor{
		cron: cron.New(cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		log:  log,
		base: context.Background(),
	}
}

// Every schedules job under name at a fixed interval. Intervals below one
// second are rounded up to one second by the scheduler.
func (j *Janitor) Every(name string, interval time.Duration, job Job) {
	j.cron.Schedule(cron.Every(interval), cron.FuncJob(func() {
		ctx, cancel := context.WithTimeout(j.context(), interval)
		defer cancel()

		start := time.Now()
		if err := job(ctx); err != nil {
			j.log.Error(ctx, "janitor job failed", "job", name, "error", err)
			return
		}
		j.log.Debug(ctx, "janitor job done", "job", name, "duration", time.Since(start))
	}))
}

// Len reports how many jobs are scheduled.
func (j *Janitor) Len() int {
	return len(j.cron.Entries())
}

// Run starts the scheduler and blocks until ctx is done, then waits for
// running jobs to finish.
func (j *Janitor) Run(ctx context.Context) {
	j.mu.Lock()
	j.base = ctx
	j.mu.Unlock()

	j.cron.Start()
	<-ctx.Done()
	<-j.cron.Stop().Done()
}

func (j *Janitor) context() context.Context {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.base
}

// SweepJob drops expired entries from m.
func SweepJob(m *Memory) Job {
	return func(ctx context.Context) error {
		m.Sweep()
		return nil
	}
}

// PurgeJob deletes expired rows from the Postgres backend.
func PurgeJob(p *Postgres) Job {
	return func(ctx context.Context) error {
		_, err := p.Purge(ctx)
		return err
	}
}

// SnapshotJob saves m through s, bounding the data lost on a crash to one
// interval.
func SnapshotJob(s *Snapshotter, m *Memory) Job {
	return func(ctx context.Context) error {
		if _, err := s.Save(ctx, m); err != nil {
			return fmt.Errorf("snapshot: %w", err)
		}
		return nil
	}
}

// cronLogger adapts logging.Logger to cron.Logger.
type cronLogger struct {
	log logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(context.Background(), "cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(context.Background(), "cron: "+msg, append(keysAndValues, "error", err)...)
}
