package metrics

import "time"

// Phase is the stage of a run a metric was recorded in.
type Phase string

const (
	// PhaseInit is before anything was sent.
	PhaseInit Phase = "init"

	// PhaseSetup covers the seed requests issued before any VU starts.
	PhaseSetup Phase = "setup"

	// PhaseSteady is the main load phase, all VUs iterating.
	PhaseSteady Phase = "steady"

	// PhaseDone is after the last VU stopped.
	PhaseDone Phase = "done"
)

// Sample is one completed HTTP request.
type Sample struct {
	// Name groups samples in the per-request breakdown ("setup", "list users")
	Name     string
	Duration time.Duration
	Status   int
	Failed   bool
	Bytes    int64
}

// Snapshot contains a point-in-time view of all metrics.
type Snapshot struct {
	TotalRequests   int64 `json:"totalRequests" yaml:"totalRequests"`
	SuccessRequests int64 `json:"successRequests" yaml:"successRequests"`
	FailedRequests  int64 `json:"failedRequests" yaml:"failedRequests"`
	TotalBytes      int64 `json:"totalBytes" yaml:"totalBytes"`

	// Latency covers every request, setup included
	Latency LatencyStats `json:"latency" yaml:"latency"`

	Iterations        int64        `json:"iterations" yaml:"iterations"`
	IterationDuration LatencyStats `json:"iterationDuration" yaml:"iterationDuration"`

	// RPS is the steady-state rate when steady buckets exist, the overall
	// rate otherwise
	RPS            float64 `json:"rps" yaml:"rps"`
	SteadyStateRPS float64 `json:"steadyStateRps" yaml:"steadyStateRps"`
	ErrorRate      float64 `json:"errorRate" yaml:"errorRate"`

	ActiveVUs    int           `json:"activeVUs" yaml:"activeVUs"`
	CurrentPhase Phase         `json:"currentPhase" yaml:"currentPhase"`
	Elapsed      time.Duration `json:"elapsed" yaml:"elapsed"`
	StartTime    time.Time     `json:"startTime" yaml:"startTime"`
	Timestamp    time.Time     `json:"timestamp" yaml:"timestamp"`
}

// LatencyStats contains latency statistics.
type LatencyStats struct {
	Min    time.Duration `json:"min" yaml:"min"`
	Max    time.Duration `json:"max" yaml:"max"`
	Mean   time.Duration `json:"mean" yaml:"mean"`
	StdDev time.Duration `json:"stdDev" yaml:"stdDev"`
	P50    time.Duration `json:"p50" yaml:"p50"`
	P90    time.Duration `json:"p90" yaml:"p90"`
	P95    time.Duration `json:"p95" yaml:"p95"`
	P99    time.Duration `json:"p99" yaml:"p99"`
	Count  int64         `json:"count" yaml:"count"`
}

// Quantile returns the statistic named by a threshold metric ("p95", "avg",
// "med", ...).
func (s LatencyStats) Quantile(name string) (time.Duration, bool) {
	switch name {
	case "min":
		return s.Min, true
	case "max":
		return s.Max, true
	case "avg", "mean":
		return s.Mean, true
	case "med", "p50":
		return s.P50, true
	case "p90":
		return s.P90, true
	case "p95":
		return s.P95, true
	case "p99":
		return s.P99, true
	default:
		return 0, false
	}
}

// RequestStats is the per-name breakdown.
type RequestStats struct {
	Latency LatencyStats `json:"latency" yaml:"latency"`
	Failed  int64        `json:"failed" yaml:"failed"`
}

// TimeBucket is one interval of the run's time series. Totals are
// cumulative; Interval* fields cover only this bucket.
type TimeBucket struct {
	Timestamp time.Time     `json:"timestamp"`
	Interval  time.Duration `json:"interval"`

	TotalRequests   int64 `json:"totalRequests"`
	TotalFailures   int64 `json:"totalFailures"`
	TotalIterations int64 `json:"totalIterations"`

	IntervalRequests  int64   `json:"intervalRequests"`
	IntervalRPS       float64 `json:"intervalRPS"`
	IntervalErrorRate float64 `json:"intervalErrorRate"`

	LatencyP50 time.Duration `json:"latencyP50"`
	LatencyP95 time.Duration `json:"latencyP95"`
	LatencyP99 time.Duration `json:"latencyP99"`

	ActiveVUs int   `json:"activeVUs"`
	Phase     Phase `json:"phase"`
}

// PhaseChange records when a phase transition occurred.
type PhaseChange struct {
	Phase     Phase
	Timestamp time.Time
	// Requests is the total request count at the time of the change
	Requests int64
}

// Config contains configuration for the metrics engine.
type Config struct {
	// BucketInterval is the interval for time-series buckets (default: 1s)
	BucketInterval time.Duration

	// MaxBuckets is the number of buckets kept (default: 3600)
	MaxBuckets int

	// Histogram range in microseconds and precision
	HistogramMin     int64
	HistogramMax     int64
	HistogramSigFigs int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		BucketInterval:   time.Second,
		MaxBuckets:       3600,
		HistogramMin:     1,
		HistogramMax:     3600000000, // 1 hour in microseconds
		HistogramSigFigs: 3,
	}
}
