package performance

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/wesleyorama2/vuload/internal/performance/check"
	"github.com/wesleyorama2/vuload/internal/performance/metrics"
	"github.com/wesleyorama2/vuload/internal/performance/setup"
)

// SchedulerConfig wires the shared pieces every VU of a run uses.
type SchedulerConfig struct {
	Iteration Iteration
	Client    Doer
	Metrics   *metrics.Engine
	Checks    *check.Collector
	Setup     *setup.Result

	// RPS caps the request rate across all VUs (0 = unlimited)
	RPS float64

	Logger logrus.FieldLogger
}

// VUScheduler manages the lifecycle of Virtual Users.
//
// It provides:
// - VU spawning with the shared client, collectors and setup result
// - An optional global rate limiter
// - Graceful shutdown coordination
type VUScheduler struct {
	iteration Iteration
	client    Doer
	metrics   *metrics.Engine
	checks    *check.Collector
	setup     *setup.Result
	limiter   *rate.Limiter
	log       logrus.FieldLogger

	vus   map[int]*VirtualUser
	vusMu sync.RWMutex

	nextVUID atomic.Int32

	shutdownCh   chan struct{}
	shutdownOnce sync.Once
	running      sync.WaitGroup
}

// NewVUScheduler creates a scheduler. Missing collectors are created, so
// the zero config only needs a Client.
func NewVUScheduler(cfg SchedulerConfig) *VUScheduler {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewEngine()
	}
	if cfg.Checks == nil {
		cfg.Checks = check.NewCollector(0)
	}
	if cfg.Setup == nil {
		cfg.Setup = setup.NewResult("", nil)
	}
	if cfg.Logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		cfg.Logger = l
	}
	if cfg.Iteration.Method == "" {
		cfg.Iteration = DefaultIteration()
	}

	s := &VUScheduler{
		iteration:  cfg.Iteration,
		client:     cfg.Client,
		metrics:    cfg.Metrics,
		checks:     cfg.Checks,
		setup:      cfg.Setup,
		log:        cfg.Logger,
		vus:        make(map[int]*VirtualUser),
		shutdownCh: make(chan struct{}),
	}

	if cfg.RPS > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RPS), 1)
	}

	return s
}

// Metrics returns the shared metrics engine.
func (s *VUScheduler) Metrics() *metrics.Engine {
	return s.metrics
}

// Checks returns the shared check collector.
func (s *VUScheduler) Checks() *check.Collector {
	return s.checks
}

// SpawnVU creates and registers a new VU. The caller runs it.
func (s *VUScheduler) SpawnVU() *VirtualUser {
	id := int(s.nextVUID.Add(1))

	vu := NewVirtualUser(id, s.iteration, s.client, s.metrics, s.checks, s.setup, s.log)

	s.vusMu.Lock()
	s.vus[id] = vu
	s.vusMu.Unlock()

	return vu
}

// GetVU returns a VU by ID, or nil if not found.
func (s *VUScheduler) GetVU(id int) *VirtualUser {
	s.vusMu.RLock()
	defer s.vusMu.RUnlock()
	return s.vus[id]
}

// VUs returns every registered VU.
func (s *VUScheduler) VUs() []*VirtualUser {
	s.vusMu.RLock()
	defer s.vusMu.RUnlock()

	out := make([]*VirtualUser, 0, len(s.vus))
	for _, vu := range s.vus {
		out = append(out, vu)
	}
	return out
}

// ActiveVUCount returns the count of non-stopped VUs.
func (s *VUScheduler) ActiveVUCount() int {
	s.vusMu.RLock()
	defer s.vusMu.RUnlock()

	count := 0
	for _, vu := range s.vus {
		if vu.State() != VUStateStopped {
			count++
		}
	}
	return count
}

// StopAllVUs requests all VUs to stop after their current iteration.
func (s *VUScheduler) StopAllVUs() {
	s.vusMu.RLock()
	defer s.vusMu.RUnlock()

	for _, vu := range s.vus {
		vu.RequestStop()
	}
}

// RunVU loops vu until loopCtx is done, the VU is stopped or the scheduler
// shuts down.
//
// loopCtx only decides whether another iteration starts; rate-limit waits
// and think time are cut short by it. Requests run on reqCtx, so an
// iteration already in flight when loopCtx ends is allowed to finish.
func (s *VUScheduler) RunVU(loopCtx, reqCtx context.Context, vu *VirtualUser) {
	s.running.Add(1)
	defer s.running.Done()
	defer vu.MarkStopped()

	s.metrics.AddActiveVUs(1)
	defer s.metrics.AddActiveVUs(-1)

	for {
		select {
		case <-loopCtx.Done():
			return
		case <-s.shutdownCh:
			return
		case <-vu.Stopping():
			return
		default:
		}

		if s.limiter != nil {
			if err := s.limiter.Wait(loopCtx); err != nil {
				return
			}
		}

		if err := vu.RunIteration(reqCtx); err != nil {
			if reqCtx.Err() != nil {
				s.log.WithField("vu", vu.ID).Debug("iteration interrupted")
			}
			return
		}

		vu.Think(loopCtx)
	}
}

// Wait blocks until every RunVU call has returned or ctx is done.
// Returns false when ctx ended first.
func (s *VUScheduler) Wait(ctx context.Context) bool {
	done := make(chan struct{})
	go func() {
		s.running.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}

// Shutdown stops all VUs and waits up to timeout for them to exit. Idle
// connections of the shared client are closed afterwards.
func (s *VUScheduler) Shutdown(timeout time.Duration) {
	s.shutdownOnce.Do(func() { close(s.shutdownCh) })
	s.StopAllVUs()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if !s.Wait(ctx) {
		s.log.WithField("active", s.ActiveVUCount()).Warn("VUs still running after shutdown timeout")
	}

	if c, ok := s.client.(interface{ CloseIdleConnections() }); ok {
		c.CloseIdleConnections()
	}
}
