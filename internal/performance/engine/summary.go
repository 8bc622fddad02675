package engine

import (
	"time"

	"github.com/wesleyorama2/vuload/internal/performance/check"
	"github.com/wesleyorama2/vuload/internal/performance/metrics"
	"github.com/wesleyorama2/vuload/internal/performance/setup"
)

// Summary is the complete result of a run.
type Summary struct {
	RunID      string        `json:"runId" yaml:"runId"`
	Name       string        `json:"name" yaml:"name"`
	BaseURL    string        `json:"baseUrl" yaml:"baseUrl"`
	VUs        int           `json:"vus" yaml:"vus"`
	Configured time.Duration `json:"configuredDuration" yaml:"configuredDuration"`
	StartTime  time.Time     `json:"startTime" yaml:"startTime"`
	EndTime    time.Time     `json:"endTime" yaml:"endTime"`
	Duration   time.Duration `json:"duration" yaml:"duration"`

	Setup SetupSummary `json:"setup" yaml:"setup"`

	Checks         []check.Result  `json:"checks" yaml:"checks"`
	CheckPassRate  float64         `json:"checkPassRate" yaml:"checkPassRate"`
	RecentOutcomes []check.Outcome `json:"recentOutcomes,omitempty" yaml:"-"`

	Metrics    *metrics.Snapshot               `json:"metrics" yaml:"metrics"`
	Requests   map[string]metrics.RequestStats `json:"requests,omitempty" yaml:"requests,omitempty"`
	TimeSeries []metrics.TimeBucket            `json:"timeSeries,omitempty" yaml:"-"`

	Thresholds []ThresholdResult `json:"thresholds,omitempty" yaml:"thresholds,omitempty"`
	Passed     bool              `json:"passed" yaml:"passed"`

	// Error is set when the load phase was interrupted
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// SetupSummary describes the seeding phase.
type SetupSummary struct {
	Users    []setup.User  `json:"users" yaml:"users"`
	Seeded   int           `json:"seeded" yaml:"seeded"`
	Failed   int           `json:"failed" yaml:"failed"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// Live is a point-in-time view of a running test.
type Live struct {
	Phase         metrics.Phase
	Elapsed       time.Duration
	Progress      float64
	ActiveVUs     int
	Requests      int64
	Failed        int64
	Iterations    int64
	CheckPassRate float64
}
