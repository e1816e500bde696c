package monitor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/NordCoder/Alive/internal/domain/activity"
	"github.com/NordCoder/Alive/internal/domain/clock"
)

var (
	ErrAlreadyStarted = errors.New("scheduler already started")
	ErrSweepRunning   = errors.New("monitor pass already running")
	ErrLocked         = errors.New("monitor pass is running on another replica")
	ErrStopped        = errors.New("scheduler stopped")
)

type Sweeper interface {
	Sweep(ctx context.Context, today time.Time) (Report, error)
}

// Locker guards a pass across replicas. A nil Locker means single-replica.
type Locker interface {
	TryLock(ctx context.Context) (unlock func(context.Context), acquired bool, err error)
}

type RunnerConfig struct {
	Schedule   Schedule
	Location   *time.Location
	RunOnStart bool
	Lock       Locker
}

// Runner fires the monitor on its schedule. At most one pass is in flight; a tick that lands
// while a pass is running is skipped.
type Runner struct {
	sweeper Sweeper
	clock   clock.Clock
	cfg     RunnerConfig
	log     *zap.Logger

	running atomic.Bool
	runs    sync.WaitGroup

	mu         sync.Mutex
	stopped    bool
	stopLoop   context.CancelFunc
	cancelRuns context.CancelFunc
	loopDone   chan struct{}
}

func NewRunner(s Sweeper, c clock.Clock, cfg RunnerConfig, log *zap.Logger) *Runner {
	if c == nil {
		c = clock.System{}
	}
	if cfg.Schedule == nil {
		cfg.Schedule = Interval(24 * time.Hour)
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{sweeper: s, clock: c, cfg: cfg, log: log.With(zap.String("component", "scheduler"))}
}

// Start launches the timer loop. Passes run on a context detached from ctx's cancellation;
// they are only abandoned by Stop.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loopDone != nil {
		return ErrAlreadyStarted
	}

	loopCtx, stopLoop := context.WithCancel(ctx)
	runCtx, cancelRuns := context.WithCancel(context.WithoutCancel(ctx))
	r.stopLoop, r.cancelRuns = stopLoop, cancelRuns
	r.loopDone = make(chan struct{})

	go r.loop(loopCtx, runCtx)
	r.log.Info("scheduler started", zap.Bool("run_on_start", r.cfg.RunOnStart))
	return nil
}

func (r *Runner) loop(ctx, runCtx context.Context) {
	defer close(r.loopDone)

	if r.cfg.RunOnStart {
		r.fire(runCtx)
	}
	for {
		now := r.clock.Now()
		wait := r.cfg.Schedule.Next(now).Sub(now)
		r.log.Debug("next pass scheduled", zap.Duration("in", wait))
		select {
		case <-ctx.Done():
			return
		case <-r.clock.After(wait):
			r.fire(runCtx)
		}
	}
}

func (r *Runner) fire(ctx context.Context) {
	if !r.running.CompareAndSwap(false, true) {
		mSkippedTicks.Inc()
		r.log.Warn("tick skipped, previous pass still running")
		return
	}
	r.runs.Add(1)
	go func() {
		defer r.runs.Done()
		defer r.running.Store(false)
		if _, err := r.run(ctx); err != nil && !errors.Is(err, ErrLocked) {
			r.log.Error("monitor pass failed", zap.Error(err))
		}
	}()
}

// Trigger runs one pass as of today under the same single-flight guard as the timer.
func (r *Runner) Trigger(ctx context.Context) (Report, error) {
	return r.TriggerAt(ctx, time.Time{})
}

// TriggerAt is Trigger evaluated as of day. A zero day means today in the runner's location.
func (r *Runner) TriggerAt(ctx context.Context, day time.Time) (Report, error) {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return Report{}, ErrStopped
	}
	if !r.running.CompareAndSwap(false, true) {
		r.mu.Unlock()
		return Report{}, ErrSweepRunning
	}
	r.runs.Add(1)
	r.mu.Unlock()

	defer r.runs.Done()
	defer r.running.Store(false)
	return r.runAt(ctx, day)
}

func (r *Runner) run(ctx context.Context) (Report, error) {
	return r.runAt(ctx, time.Time{})
}

func (r *Runner) runAt(ctx context.Context, day time.Time) (Report, error) {
	if r.cfg.Lock != nil {
		unlock, ok, err := r.cfg.Lock.TryLock(ctx)
		if err != nil {
			return Report{}, err
		}
		if !ok {
			mSkippedTicks.Inc()
			r.log.Info("pass skipped, lock held elsewhere")
			return Report{}, ErrLocked
		}
		defer unlock(context.WithoutCancel(ctx))
	}
	if day.IsZero() {
		day = activity.Today(r.clock.Now(), r.cfg.Location)
	}
	return r.sweeper.Sweep(ctx, day)
}

// Stop halts the timer and waits for an in-flight pass. When ctx expires first the pass is
// canceled, which stops it before the next user, and ctx's error is returned.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	r.stopped = true
	stopLoop, cancelRuns, loopDone := r.stopLoop, r.cancelRuns, r.loopDone
	r.mu.Unlock()
	if loopDone == nil {
		return nil
	}

	stopLoop()
	<-loopDone

	done := make(chan struct{})
	go func() {
		r.runs.Wait()
		close(done)
	}()

	select {
	case <-done:
		cancelRuns()
		r.log.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		cancelRuns()
		<-done
		r.log.Warn("scheduler stopped, in-flight pass abandoned")
		return ctx.Err()
	}
}
