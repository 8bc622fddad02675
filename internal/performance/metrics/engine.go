// Package metrics aggregates request and iteration measurements for a run
// using HDR histograms and lock-free counters.
package metrics

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Engine collects and aggregates run metrics.
//
// Latencies go into HDR histograms (overall, per request name, and one for
// whole iterations); counters are atomic. A background goroutine closes a
// time bucket every BucketInterval until Stop is called.
//
// # Thread Safety
//
// Engine is safe for concurrent use. hdrhistogram.Histogram is not, so
// every histogram is guarded by a mutex.
type Engine struct {
	latencyHist   *hdrhistogram.Histogram
	latencyHistMu sync.Mutex

	requestHists   map[string]*requestHist
	requestHistsMu sync.Mutex

	iterationHist   *hdrhistogram.Histogram
	iterationHistMu sync.Mutex

	totalRequests  atomic.Int64
	failedRequests atomic.Int64
	totalBytes     atomic.Int64
	iterations     atomic.Int64

	activeVUs atomic.Int32

	buckets *bucketRing

	phaseMu      sync.RWMutex
	currentPhase Phase
	phaseHistory []PhaseChange

	startTime time.Time

	emitterCancel context.CancelFunc
	emitterWg     sync.WaitGroup
	stopOnce      sync.Once

	config Config
}

type requestHist struct {
	hist   *hdrhistogram.Histogram
	failed int64
}

// NewEngine creates a metrics engine with the default configuration and
// starts its bucket emitter.
func NewEngine() *Engine {
	return NewEngineWithConfig(DefaultConfig())
}

// NewEngineWithConfig creates a metrics engine and starts its bucket emitter.
func NewEngineWithConfig(config Config) *Engine {
	def := DefaultConfig()
	if config.BucketInterval <= 0 {
		config.BucketInterval = def.BucketInterval
	}
	if config.HistogramMin <= 0 {
		config.HistogramMin = def.HistogramMin
	}
	if config.HistogramMax <= config.HistogramMin {
		config.HistogramMax = def.HistogramMax
	}
	if config.HistogramSigFigs <= 0 {
		config.HistogramSigFigs = def.HistogramSigFigs
	}

	ctx, cancel := context.WithCancel(context.Background())

	e := &Engine{
		latencyHist:   config.newHistogram(),
		requestHists:  make(map[string]*requestHist),
		iterationHist: config.newHistogram(),
		buckets:       newBucketRing(config.MaxBuckets),
		currentPhase:  PhaseInit,
		startTime:     time.Now(),
		emitterCancel: cancel,
		config:        config,
	}

	e.emitterWg.Add(1)
	go e.runEmitter(ctx)

	return e
}

func (c Config) newHistogram() *hdrhistogram.Histogram {
	return hdrhistogram.New(c.HistogramMin, c.HistogramMax, c.HistogramSigFigs)
}

func (e *Engine) clamp(d time.Duration) int64 {
	v := d.Microseconds()
	if v < e.config.HistogramMin {
		v = e.config.HistogramMin
	}
	if v > e.config.HistogramMax {
		v = e.config.HistogramMax
	}
	return v
}

// Record records one completed request.
func (e *Engine) Record(s Sample) {
	v := e.clamp(s.Duration)

	e.latencyHistMu.Lock()
	_ = e.latencyHist.RecordValue(v)
	e.latencyHistMu.Unlock()

	if s.Name != "" {
		e.requestHistsMu.Lock()
		rh, ok := e.requestHists[s.Name]
		if !ok {
			rh = &requestHist{hist: e.config.newHistogram()}
			e.requestHists[s.Name] = rh
		}
		_ = rh.hist.RecordValue(v)
		if s.Failed {
			rh.failed++
		}
		e.requestHistsMu.Unlock()
	}

	e.totalRequests.Add(1)
	e.totalBytes.Add(s.Bytes)
	if s.Failed {
		e.failedRequests.Add(1)
	}

	e.buckets.record(s.Failed)
}

// RecordIteration records the duration of one completed VU iteration.
func (e *Engine) RecordIteration(d time.Duration) {
	v := e.clamp(d)

	e.iterationHistMu.Lock()
	_ = e.iterationHist.RecordValue(v)
	e.iterationHistMu.Unlock()

	e.iterations.Add(1)
}

// SetPhase moves the run to phase. Setting the current phase is a no-op.
func (e *Engine) SetPhase(phase Phase) {
	e.phaseMu.Lock()
	defer e.phaseMu.Unlock()

	if e.currentPhase == phase {
		return
	}

	e.currentPhase = phase
	e.phaseHistory = append(e.phaseHistory, PhaseChange{
		Phase:     phase,
		Timestamp: time.Now(),
		Requests:  e.totalRequests.Load(),
	})
}

// Phase returns the current phase.
func (e *Engine) Phase() Phase {
	e.phaseMu.RLock()
	defer e.phaseMu.RUnlock()
	return e.currentPhase
}

// PhaseHistory returns the phase transitions in order.
func (e *Engine) PhaseHistory() []PhaseChange {
	e.phaseMu.RLock()
	defer e.phaseMu.RUnlock()

	out := make([]PhaseChange, len(e.phaseHistory))
	copy(out, e.phaseHistory)
	return out
}

// SetActiveVUs updates the active VU gauge.
func (e *Engine) SetActiveVUs(count int) {
	e.activeVUs.Store(int32(count))
}

// AddActiveVUs adjusts the active VU gauge by delta.
func (e *Engine) AddActiveVUs(delta int) {
	e.activeVUs.Add(int32(delta))
}

// ActiveVUs returns the active VU gauge.
func (e *Engine) ActiveVUs() int {
	return int(e.activeVUs.Load())
}

// TotalRequests returns the number of recorded requests.
func (e *Engine) TotalRequests() int64 {
	return e.totalRequests.Load()
}

// Iterations returns the number of recorded iterations.
func (e *Engine) Iterations() int64 {
	return e.iterations.Load()
}

func (e *Engine) runEmitter(ctx context.Context) {
	defer e.emitterWg.Done()

	ticker := time.NewTicker(e.config.BucketInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.emitBucket()
		}
	}
}

func (e *Engine) emitBucket() TimeBucket {
	e.latencyHistMu.Lock()
	p50 := e.latencyHist.ValueAtQuantile(50)
	p95 := e.latencyHist.ValueAtQuantile(95)
	p99 := e.latencyHist.ValueAtQuantile(99)
	e.latencyHistMu.Unlock()

	return e.buckets.emit(TimeBucket{
		TotalRequests:   e.totalRequests.Load(),
		TotalFailures:   e.failedRequests.Load(),
		TotalIterations: e.iterations.Load(),
		LatencyP50:      micros(p50),
		LatencyP95:      micros(p95),
		LatencyP99:      micros(p99),
		ActiveVUs:       e.ActiveVUs(),
		Phase:           e.Phase(),
	})
}

// TimeSeries returns the retained buckets, oldest first.
func (e *Engine) TimeSeries() []TimeBucket {
	return e.buckets.all()
}

// LatestBucket returns the most recently closed bucket.
func (e *Engine) LatestBucket() (TimeBucket, bool) {
	return e.buckets.latest()
}

// Snapshot returns a point-in-time view of all metrics.
func (e *Engine) Snapshot() *Snapshot {
	e.latencyHistMu.Lock()
	latency := statsOf(e.latencyHist)
	e.latencyHistMu.Unlock()

	e.iterationHistMu.Lock()
	iteration := statsOf(e.iterationHist)
	e.iterationHistMu.Unlock()

	elapsed := time.Since(e.startTime)
	total := e.totalRequests.Load()
	failed := e.failedRequests.Load()

	rps := 0.0
	if elapsed > 0 {
		rps = float64(total) / elapsed.Seconds()
	}
	steadyRPS, steadyBuckets := e.buckets.steadyStateRPS()
	if steadyBuckets > 0 {
		rps = steadyRPS
	}

	errorRate := 0.0
	if total > 0 {
		errorRate = float64(failed) / float64(total)
	}

	return &Snapshot{
		TotalRequests:     total,
		SuccessRequests:   total - failed,
		FailedRequests:    failed,
		TotalBytes:        e.totalBytes.Load(),
		Latency:           latency,
		Iterations:        e.iterations.Load(),
		IterationDuration: iteration,
		RPS:               rps,
		SteadyStateRPS:    steadyRPS,
		ErrorRate:         errorRate,
		ActiveVUs:         e.ActiveVUs(),
		CurrentPhase:      e.Phase(),
		Elapsed:           elapsed,
		StartTime:         e.startTime,
		Timestamp:         time.Now(),
	}
}

// RequestStats returns the per-name breakdown.
func (e *Engine) RequestStats() map[string]RequestStats {
	e.requestHistsMu.Lock()
	defer e.requestHistsMu.Unlock()

	out := make(map[string]RequestStats, len(e.requestHists))
	for name, rh := range e.requestHists {
		out[name] = RequestStats{Latency: statsOf(rh.hist), Failed: rh.failed}
	}
	return out
}

// Stop stops the emitter and closes a final bucket. It is safe to call more
// than once.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		e.emitterCancel()
		e.emitterWg.Wait()
		e.emitBucket()
	})
}

// Reset clears every metric and restarts the clock. The emitter keeps
// running.
func (e *Engine) Reset() {
	e.latencyHistMu.Lock()
	e.latencyHist.Reset()
	e.latencyHistMu.Unlock()

	e.iterationHistMu.Lock()
	e.iterationHist.Reset()
	e.iterationHistMu.Unlock()

	e.requestHistsMu.Lock()
	e.requestHists = make(map[string]*requestHist)
	e.requestHistsMu.Unlock()

	e.totalRequests.Store(0)
	e.failedRequests.Store(0)
	e.totalBytes.Store(0)
	e.iterations.Store(0)
	e.activeVUs.Store(0)

	e.phaseMu.Lock()
	e.currentPhase = PhaseInit
	e.phaseHistory = nil
	e.phaseMu.Unlock()

	e.buckets.reset()
	e.startTime = time.Now()
}

func statsOf(h *hdrhistogram.Histogram) LatencyStats {
	if h.TotalCount() == 0 {
		return LatencyStats{}
	}
	return LatencyStats{
		Min:    micros(h.Min()),
		Max:    micros(h.Max()),
		Mean:   time.Duration(h.Mean() * float64(time.Microsecond)),
		StdDev: time.Duration(h.StdDev() * float64(time.Microsecond)),
		P50:    micros(h.ValueAtQuantile(50)),
		P90:    micros(h.ValueAtQuantile(90)),
		P95:    micros(h.ValueAtQuantile(95)),
		P99:    micros(h.ValueAtQuantile(99)),
		Count:  h.TotalCount(),
	}
}

func micros(v int64) time.Duration {
	return time.Duration(v) * time.Microsecond
}
