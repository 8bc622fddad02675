package executor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wesleyorama2/vuload/internal/performance"
	"github.com/wesleyorama2/vuload/internal/performance/metrics"
)

// ConstantVUs runs a fixed number of VUs for a specified duration.
//
// Every VU loops as fast as the target answers (closed model), pausing for
// the iteration's think time. When the duration expires no new iteration
// starts; iterations in flight get GracefulStop to finish before their
// requests are cancelled.
type ConstantVUs struct {
	config    Config
	scheduler *performance.VUScheduler

	startTime atomic.Int64
	running   atomic.Bool

	mu         sync.Mutex
	loopCancel context.CancelFunc
	reqCancel  context.CancelFunc
	done       chan struct{}
}

// NewConstantVUs creates a new constant VUs executor.
func NewConstantVUs() *ConstantVUs {
	return &ConstantVUs{}
}

// Type returns the executor type.
func (e *ConstantVUs) Type() Type {
	return TypeConstantVUs
}

// Init initializes the executor with configuration.
func (e *ConstantVUs) Init(config Config) error {
	if config.Type == "" {
		config.Type = TypeConstantVUs
	}
	if config.Type != TypeConstantVUs {
		return fmt.Errorf("invalid config type: expected %s, got %s", TypeConstantVUs, config.Type)
	}
	if err := config.Validate(); err != nil {
		return err
	}

	e.config = config
	return nil
}

// Run spawns the VUs and blocks until the duration has elapsed and every
// VU has returned. It returns early only when ctx is cancelled or Stop is
// called.
func (e *ConstantVUs) Run(ctx context.Context, scheduler *performance.VUScheduler) error {
	if e.config.VUs == 0 {
		return fmt.Errorf("executor not initialized")
	}
	if !e.running.CompareAndSwap(false, true) {
		return fmt.Errorf("executor already running")
	}
	defer e.running.Store(false)

	start := time.Now()
	deadline := start.Add(e.config.Duration)

	loopCtx, loopCancel := context.WithDeadline(ctx, deadline)
	defer loopCancel()
	reqCtx, reqCancel := context.WithDeadline(ctx, deadline.Add(e.config.GracefulStop))
	defer reqCancel()

	done := make(chan struct{})

	e.mu.Lock()
	e.scheduler = scheduler
	e.loopCancel = loopCancel
	e.reqCancel = reqCancel
	e.done = done
	e.startTime.Store(start.UnixNano())
	e.mu.Unlock()

	scheduler.Metrics().SetPhase(metrics.PhaseSteady)

	var wg sync.WaitGroup
	for i := 0; i < e.config.VUs; i++ {
		vu := scheduler.SpawnVU()
		wg.Add(1)
		go func() {
			defer wg.Done()
			scheduler.RunVU(loopCtx, reqCtx, vu)
		}()
	}

	wg.Wait()
	close(done)

	// loopCtx ends at the deadline, on Stop or on cancellation; VUs that
	// returned before that must not shorten the run.
	<-loopCtx.Done()

	scheduler.Metrics().SetPhase(metrics.PhaseDone)

	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

// Progress returns current progress (0.0 to 1.0).
func (e *ConstantVUs) Progress() float64 {
	start := e.startTime.Load()
	if start == 0 {
		return 0.0
	}
	if !e.running.Load() {
		return 1.0
	}

	progress := float64(time.Since(time.Unix(0, start))) / float64(e.config.Duration)
	if progress > 1.0 {
		progress = 1.0
	}
	return progress
}

// Stats returns executor statistics.
func (e *ConstantVUs) Stats() Stats {
	e.mu.Lock()
	scheduler := e.scheduler
	e.mu.Unlock()

	s := Stats{
		TotalDuration: e.config.Duration,
		TargetVUs:     e.config.VUs,
	}
	if start := e.startTime.Load(); start != 0 {
		s.StartTime = time.Unix(0, start)
		s.Elapsed = time.Since(s.StartTime)
	}
	if scheduler != nil {
		s.ActiveVUs = scheduler.Metrics().ActiveVUs()
		s.Iterations = scheduler.Metrics().Iterations()
	}
	return s
}

// Stop ends the run early. No new iterations start; in-flight ones get the
// graceful-stop window, after which their requests are cancelled.
func (e *ConstantVUs) Stop(ctx context.Context) error {
	e.mu.Lock()
	loopCancel, reqCancel, done := e.loopCancel, e.reqCancel, e.done
	e.mu.Unlock()

	if loopCancel == nil {
		return nil
	}

	loopCancel()

	grace := time.NewTimer(e.config.GracefulStop)
	defer grace.Stop()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		reqCancel()
		return ctx.Err()
	case <-grace.C:
	}

	reqCancel()

	select {
	case <-done:
		return fmt.Errorf("graceful stop timeout after %v", e.config.GracefulStop)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ensure ConstantVUs implements Executor
var _ Executor = (*ConstantVUs)(nil)
