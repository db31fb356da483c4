// Package scheduler runs periodic store maintenance using gocron v2.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/happy-observatory/observatory/internal/shared/biztime"
	"github.com/happy-observatory/observatory/internal/shared/goroutine"
	"github.com/happy-observatory/observatory/internal/shared/logger"
)

// Sweeper removes expired entries and returns how many were removed.
// Both rate limiters and revocation stores satisfy it.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// SchedulerManager owns the background sweep jobs.
type SchedulerManager struct {
	scheduler gocron.Scheduler
	logger    logger.Interface

	started   bool
	startedMu sync.RWMutex
}

func NewSchedulerManager(log logger.Interface) (*SchedulerManager, error) {
	scheduler, err := gocron.NewScheduler(
		gocron.WithLocation(biztime.Location()),
	)
	if err != nil {
		return nil, err
	}

	return &SchedulerManager{
		scheduler: scheduler,
		logger:    log,
	}, nil
}

// RegisterSweepJob runs sweeper every interval. A run never overlaps the
// previous one, and a panic inside Sweep is logged without stopping the job.
func (m *SchedulerManager) RegisterSweepJob(name string, interval time.Duration, sweeper Sweeper) error {
	if interval <= 0 {
		return fmt.Errorf("sweep job %q: interval must be positive, got %s", name, interval)
	}

	_, err := m.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			// A sweep should finish well within its own interval.
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			defer cancel()
			goroutine.SafeRun(m.logger, name, func() {
				m.runSweep(ctx, name, sweeper)
			})
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("sweep", name),
		gocron.WithName(name),
	)
	if err != nil {
		return err
	}

	m.logger.Infow("registered sweep job", "job", name, "interval", interval.String())
	return nil
}

func (m *SchedulerManager) runSweep(ctx context.Context, name string, sweeper Sweeper) {
	startTime := biztime.NowUTC()

	removed, err := sweeper.Sweep(ctx)
	if err != nil {
		// Shutdown cancels in-flight sweeps; not worth an error line.
		if ctx.Err() != nil {
			return
		}
		m.logger.Errorw("sweep failed",
			"job", name,
			"error", err,
			"duration", time.Since(startTime),
		)
		return
	}

	if removed > 0 {
		m.logger.Infow("sweep removed expired entries",
			"job", name,
			"count", removed,
			"duration", time.Since(startTime),
		)
	} else {
		m.logger.Debugw("sweep found nothing to remove", "job", name)
	}
}

// Start starts the scheduler and all registered jobs.
func (m *SchedulerManager) Start() {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if m.started {
		return
	}

	m.scheduler.Start()
	m.started = true
	m.logger.Infow("scheduler manager started", "job_count", len(m.scheduler.Jobs()))
}

// Stop shuts the scheduler down and waits for running jobs to complete.
func (m *SchedulerManager) Stop() error {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if !m.started {
		return nil
	}

	m.logger.Infow("stopping scheduler manager")

	err := m.scheduler.Shutdown()
	m.started = false

	if err != nil {
		m.logger.Errorw("scheduler manager shutdown with error", "error", err)
		return err
	}

	m.logger.Infow("scheduler manager stopped")
	return nil
}

func (m *SchedulerManager) IsStarted() bool {
	m.startedMu.RLock()
	defer m.startedMu.RUnlock()
	return m.started
}

// Jobs returns all registered jobs for inspection.
func (m *SchedulerManager) Jobs() []gocron.Job {
	return m.scheduler.Jobs()
}
