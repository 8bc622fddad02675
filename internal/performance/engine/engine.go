// Package engine orchestrates a run: setup, the constant-VU load phase and
// threshold evaluation.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/wesleyorama2/vuload/internal/http"
	"github.com/wesleyorama2/vuload/internal/performance"
	"github.com/wesleyorama2/vuload/internal/performance/check"
	"github.com/wesleyorama2/vuload/internal/performance/config"
	"github.com/wesleyorama2/vuload/internal/performance/executor"
	"github.com/wesleyorama2/vuload/internal/performance/metrics"
	"github.com/wesleyorama2/vuload/internal/performance/setup"
)

// ErrAlreadyRunning is returned by Run while another Run is in progress.
var ErrAlreadyRunning = errors.New("engine is already running")

// recentOutcomes is how many check outcomes the summary keeps verbatim.
const recentOutcomes = 100

// shutdownTimeout bounds the wait for VUs once the executor has returned.
const shutdownTimeout = 5 * time.Second

// Engine runs one load test.
//
// Example usage:
//
//	cfg := config.Default()
//	eng, _ := engine.NewEngine(cfg)
//	summary, _ := eng.Run(context.Background())
//	fmt.Printf("passed: %v\n", summary.Passed)
type Engine struct {
	config    config.RunConfig
	iteration performance.Iteration
	client    performance.Doer
	log       logrus.FieldLogger
	mconfig   metrics.Config

	mu       sync.RWMutex
	running  bool
	runID    string
	metrics  *metrics.Engine
	checks   *check.Collector
	executor executor.Executor
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log logrus.FieldLogger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// WithIteration replaces the default GET /api/users iteration.
func WithIteration(it performance.Iteration) Option {
	return func(e *Engine) {
		e.iteration = it
	}
}

// WithClient replaces the HTTP client built from the configuration.
func WithClient(client performance.Doer) Option {
	return func(e *Engine) {
		e.client = client
	}
}

// WithMetricsConfig overrides the metrics engine configuration.
func WithMetricsConfig(c metrics.Config) Option {
	return func(e *Engine) {
		e.mconfig = c
	}
}

// NewEngine validates cfg and freezes a copy of it. Later changes to cfg are
// not seen by the engine.
func NewEngine(cfg *config.RunConfig, opts ...Option) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("invalid configuration: nil config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	e := &Engine{
		config:    *cfg.Clone(),
		iteration: performance.DefaultIteration(),
		mconfig:   metrics.DefaultConfig(),
	}
	e.iteration.ThinkTime = e.config.ThinkTime.Std()

	for _, opt := range opts {
		opt(e)
	}

	if e.log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		e.log = l
	}
	if e.client == nil {
		e.client = newClient(&e.config)
	}

	return e, nil
}

func newClient(cfg *config.RunConfig) *http.Client {
	tc := http.DefaultTransportConfig()
	if tc.MaxIdleConns < cfg.VUs {
		tc.MaxIdleConns = cfg.VUs
	}
	if cfg.HTTP.MaxIdleConnsPerHost > 0 {
		tc.MaxIdleConnsPerHost = cfg.HTTP.MaxIdleConnsPerHost
	}
	tc.MaxConnsPerHost = cfg.HTTP.MaxConnsPerHost
	tc.InsecureSkipVerify = cfg.HTTP.InsecureSkipVerify

	opts := []http.ClientOption{
		http.WithBaseURL(cfg.BaseURL),
		http.WithTransport(http.NewTransport(tc)),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, http.WithTimeout(cfg.Timeout.Std()))
	}
	if cfg.HTTP.UserAgent != "" {
		opts = append(opts, http.WithUserAgent(cfg.HTTP.UserAgent))
	}
	for k, v := range cfg.HTTP.Headers {
		opts = append(opts, http.WithHeader(k, v))
	}
	return http.NewClient(opts...)
}

// Config returns a copy of the frozen configuration.
func (e *Engine) Config() config.RunConfig {
	return *e.config.Clone()
}

// Run executes the whole test and returns its summary.
//
// The setup phase completes before any VU starts. A setup error (strict
// policy, or cancellation during setup) aborts the run with no summary.
// Cancelling ctx during the load phase still yields a summary, returned
// together with the context error. Failed thresholds mark the summary as
// not passed; they are not an error.
func (e *Engine) Run(ctx context.Context) (*Summary, error) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	e.running = true
	e.runID = uuid.NewString()
	e.metrics = metrics.NewEngineWithConfig(e.mconfig)
	e.checks = check.NewCollector(recentOutcomes)
	e.executor = nil
	runID, m, checks := e.runID, e.metrics, e.checks
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()
	defer m.Stop()

	log := e.log.WithField("run_id", runID)
	start := time.Now()

	log.WithFields(logrus.Fields{
		"base_url": e.config.BaseURL,
		"vus":      e.config.VUs,
		"duration": e.config.Duration.String(),
	}).Info("starting run")

	m.SetPhase(metrics.PhaseSetup)
	setupStart := time.Now()
	seeder := setup.NewSeeder(e.client, e.config.BaseURL, e.config.Setup, m, log)
	result, err := seeder.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("setup: %w", err)
	}
	setupDuration := time.Since(setupStart)

	scheduler := performance.NewVUScheduler(performance.SchedulerConfig{
		Iteration: e.iteration,
		Client:    e.client,
		Metrics:   m,
		Checks:    checks,
		Setup:     result,
		RPS:       e.config.RPS,
		Logger:    log,
	})

	exec, err := executor.New(executor.Config{
		Type:         executor.TypeConstantVUs,
		VUs:          e.config.VUs,
		Duration:     e.config.Duration.Std(),
		GracefulStop: e.config.GracefulStop.Std(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create executor: %w", err)
	}

	e.mu.Lock()
	e.executor = exec
	e.mu.Unlock()

	runErr := exec.Run(ctx, scheduler)
	scheduler.Shutdown(shutdownTimeout)

	m.Stop()
	snapshot := m.Snapshot()

	summary := &Summary{
		RunID:      runID,
		Name:       e.config.Name,
		BaseURL:    result.BaseURL(),
		VUs:        e.config.VUs,
		Configured: e.config.Duration.Std(),
		StartTime:  start,
		EndTime:    time.Now(),
		Setup: SetupSummary{
			Users:    result.Users(),
			Seeded:   result.Seeded(),
			Failed:   result.Failed(),
			Duration: setupDuration,
		},
		Checks:         checks.Results(),
		RecentOutcomes: checks.Recent(),
		Metrics:        snapshot,
		Requests:       m.RequestStats(),
		TimeSeries:     m.TimeSeries(),
	}
	summary.Duration = summary.EndTime.Sub(start)
	summary.CheckPassRate = checks.PassRate()
	summary.Thresholds = EvaluateThresholds(e.config.Thresholds, snapshot, checks)
	summary.Passed = allPassed(summary.Thresholds)

	if runErr != nil {
		summary.Error = runErr.Error()
		log.WithError(runErr).Warn("run interrupted")
	}

	log.WithFields(logrus.Fields{
		"requests":   snapshot.TotalRequests,
		"iterations": snapshot.Iterations,
		"passed":     summary.Passed,
	}).Info("run finished")

	return summary, runErr
}

// RunID returns the ID of the current or last run.
func (e *Engine) RunID() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.runID
}

// IsRunning returns true if the engine is currently running.
func (e *Engine) IsRunning() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.running
}

// Progress returns the load-phase progress (0.0 to 1.0). It stays 0 during
// setup.
func (e *Engine) Progress() float64 {
	e.mu.RLock()
	exec := e.executor
	e.mu.RUnlock()

	if exec == nil {
		return 0.0
	}
	return exec.Progress()
}

// Live returns a point-in-time view of the running test, or false before
// the first Run.
func (e *Engine) Live() (Live, bool) {
	e.mu.RLock()
	m, checks := e.metrics, e.checks
	e.mu.RUnlock()

	if m == nil {
		return Live{}, false
	}

	snap := m.Snapshot()
	return Live{
		Phase:         snap.CurrentPhase,
		Elapsed:       snap.Elapsed,
		Progress:      e.Progress(),
		ActiveVUs:     snap.ActiveVUs,
		Requests:      snap.TotalRequests,
		Failed:        snap.FailedRequests,
		Iterations:    snap.Iterations,
		CheckPassRate: checks.PassRate(),
	}, true
}

// Stop ends the load phase early. In-flight iterations get the configured
// graceful-stop window.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.RLock()
	exec := e.executor
	running := e.running
	e.mu.RUnlock()

	if !running || exec == nil {
		return nil
	}
	return exec.Stop(ctx)
}

func allPassed(results []ThresholdResult) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}
