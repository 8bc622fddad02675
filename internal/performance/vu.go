// Package performance runs virtual users: each VU repeatedly executes one
// Iteration against the target and feeds metrics and check outcomes into
// shared collectors.
package performance

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wesleyorama2/vuload/internal/http"
	"github.com/wesleyorama2/vuload/internal/performance/check"
	"github.com/wesleyorama2/vuload/internal/performance/metrics"
	"github.com/wesleyorama2/vuload/internal/performance/setup"
)

// VUState represents the lifecycle state of a Virtual User.
type VUState int32

const (
	// VUStateIdle indicates the VU is between iterations.
	VUStateIdle VUState = iota
	// VUStateRunning indicates the VU is inside an iteration.
	VUStateRunning
	// VUStateStopping indicates the VU has been asked to stop.
	VUStateStopping
	// VUStateStopped indicates the VU goroutine has exited.
	VUStateStopped
)

func (s VUState) String() string {
	switch s {
	case VUStateIdle:
		return "idle"
	case VUStateRunning:
		return "running"
	case VUStateStopping:
		return "stopping"
	case VUStateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Iteration is the unit of work a VU repeats.
type Iteration struct {
	// Name groups the request in the per-request metrics
	Name   string
	Method string
	// Path is resolved against the setup result's base URL
	Path   string
	Checks check.Set
	// ThinkTime is the pause after each iteration
	ThinkTime time.Duration
}

// DefaultIteration lists users and checks for a 200.
func DefaultIteration() Iteration {
	return Iteration{
		Name:   "GET /api/users",
		Method: "GET",
		Path:   "/api/users",
		Checks: check.Set{check.Status(200)},
	}
}

// Doer executes HTTP requests. *http.Client implements it.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// VirtualUser is one simulated user.
//
// All VUs of a run share the HTTP client (and so its connection pool), the
// metrics engine, the check collector and the setup result.
type VirtualUser struct {
	ID int

	iteration Iteration
	client    Doer
	metrics   *metrics.Engine
	checks    *check.Collector
	setup     *setup.Result
	log       logrus.FieldLogger

	state      atomic.Int32
	iterations atomic.Int64

	stopCh   chan struct{}
	stopOnce sync.Once
	doneCh   chan struct{}
	doneOnce sync.Once
}

// NewVirtualUser creates a VU. The setup result is shared, never copied.
func NewVirtualUser(id int, it Iteration, client Doer, m *metrics.Engine, checks *check.Collector, result *setup.Result, log logrus.FieldLogger) *VirtualUser {
	return &VirtualUser{
		ID:        id,
		iteration: it,
		client:    client,
		metrics:   m,
		checks:    checks,
		setup:     result,
		log:       log,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// State returns the current VU state.
func (vu *VirtualUser) State() VUState {
	return VUState(vu.state.Load())
}

// Iterations returns the number of completed iterations.
func (vu *VirtualUser) Iterations() int64 {
	return vu.iterations.Load()
}

// Setup returns the setup result this VU was spawned with.
func (vu *VirtualUser) Setup() *setup.Result {
	return vu.setup
}

// RunIteration executes one iteration: the request, its metrics sample, one
// outcome per check, and the iteration duration.
//
// A request that fails at the transport level still completes the
// iteration (as a status-0 response). Only cancellation of ctx interrupts
// it; an interrupted iteration records nothing and returns ctx.Err().
func (vu *VirtualUser) RunIteration(ctx context.Context) error {
	st := vu.State()
	if st == VUStateStopping || st == VUStateStopped {
		return fmt.Errorf("VU %d is %s", vu.ID, st)
	}

	vu.state.CompareAndSwap(int32(VUStateIdle), int32(VUStateRunning))
	defer vu.state.CompareAndSwap(int32(VUStateRunning), int32(VUStateIdle))

	start := time.Now()
	resp := vu.do(ctx)

	if err := ctx.Err(); err != nil {
		return err
	}

	n := vu.iterations.Add(1)

	vu.metrics.Record(metrics.Sample{
		Name:     vu.iteration.Name,
		Duration: resp.Duration(),
		Status:   resp.StatusCode,
		Failed:   resp.Failed(),
		Bytes:    int64(len(resp.Body)),
	})

	outcomes := check.Evaluate(resp, vu.iteration.Checks, check.Tags{VUID: vu.ID, Iteration: n})
	vu.checks.Record(outcomes...)

	vu.metrics.RecordIteration(time.Since(start))

	if resp.Error != nil && vu.log != nil {
		vu.log.WithFields(logrus.Fields{"vu": vu.ID, "iteration": n}).
			WithError(resp.Error).Debug("request failed")
	}

	return nil
}

func (vu *VirtualUser) do(ctx context.Context) *http.Response {
	req := http.NewRequest(vu.iteration.Method, vu.url())

	start := time.Now()
	resp, err := vu.client.Do(ctx, req)
	if err != nil {
		return http.ErrorResponse(err, time.Since(start))
	}
	return resp
}

// url joins the shared base URL with the iteration path. Without a base URL
// the path is left to the client's own base.
func (vu *VirtualUser) url() string {
	if vu.setup == nil || vu.setup.BaseURL() == "" {
		return vu.iteration.Path
	}
	return strings.TrimRight(vu.setup.BaseURL(), "/") + "/" + strings.TrimLeft(vu.iteration.Path, "/")
}

// Think pauses for the iteration's think time. It returns early when ctx is
// done or the VU is asked to stop.
func (vu *VirtualUser) Think(ctx context.Context) {
	if vu.iteration.ThinkTime <= 0 {
		return
	}

	timer := time.NewTimer(vu.iteration.ThinkTime)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-vu.stopCh:
	case <-timer.C:
	}
}

// RequestStop asks the VU to stop after its current iteration.
func (vu *VirtualUser) RequestStop() {
	if vu.state.CompareAndSwap(int32(VUStateRunning), int32(VUStateStopping)) ||
		vu.state.CompareAndSwap(int32(VUStateIdle), int32(VUStateStopping)) {
		vu.stopOnce.Do(func() { close(vu.stopCh) })
	}
}

// Stopping returns a channel closed once RequestStop was called.
func (vu *VirtualUser) Stopping() <-chan struct{} {
	return vu.stopCh
}

// WaitForStop waits for the VU to stop. Returns false on timeout.
func (vu *VirtualUser) WaitForStop(timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-vu.doneCh:
		return true
	case <-timer.C:
		return false
	}
}

// MarkStopped marks the VU as fully stopped. Called when its goroutine
// exits.
func (vu *VirtualUser) MarkStopped() {
	vu.state.Store(int32(VUStateStopped))
	vu.stopOnce.Do(func() { close(vu.stopCh) })
	vu.doneOnce.Do(func() { close(vu.doneCh) })
}
