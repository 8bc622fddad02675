// Package executor provides load generation strategies.
package executor

import (
	"context"
	"time"

	"github.com/wesleyorama2/vuload/internal/performance"
)

// Type identifies the type of executor.
type Type string

const (
	// TypeConstantVUs runs a fixed number of VUs for a duration.
	TypeConstantVUs Type = "constant-vus"
)

// Executor controls how load is generated on top of a VUScheduler.
type Executor interface {
	// Type returns the executor type.
	Type() Type

	// Init validates and stores the configuration. Called once before Run.
	Init(config Config) error

	// Run blocks until the load is done or ctx is cancelled.
	Run(ctx context.Context, scheduler *performance.VUScheduler) error

	// Progress returns the fraction of the run completed (0.0 to 1.0).
	Progress() float64

	// Stats returns a snapshot of executor statistics.
	Stats() Stats

	// Stop ends the run early, letting in-flight iterations finish within
	// the graceful-stop window.
	Stop(ctx context.Context) error
}

// Config contains configuration for an executor.
type Config struct {
	Type Type `json:"type" yaml:"type"`

	VUs      int           `json:"vus" yaml:"vus"`
	Duration time.Duration `json:"duration" yaml:"duration"`

	// GracefulStop is how long in-flight requests may run past Duration
	// before they are cancelled
	GracefulStop time.Duration `json:"gracefulStop,omitempty" yaml:"gracefulStop,omitempty"`
}

// Stats contains real-time executor statistics.
type Stats struct {
	StartTime     time.Time     `json:"startTime"`
	Elapsed       time.Duration `json:"elapsed"`
	TotalDuration time.Duration `json:"totalDuration"`

	ActiveVUs  int   `json:"activeVUs"`
	TargetVUs  int   `json:"targetVUs"`
	Iterations int64 `json:"iterations"`
}

// Validate validates the executor configuration.
func (c *Config) Validate() error {
	switch c.Type {
	case "":
		return &ValidationError{Field: "type", Message: "executor type is required"}
	case TypeConstantVUs:
		if c.VUs <= 0 {
			return &ValidationError{Field: "vus", Message: "vus must be > 0"}
		}
		if c.Duration <= 0 {
			return &ValidationError{Field: "duration", Message: "duration must be > 0"}
		}
		if c.GracefulStop < 0 {
			return &ValidationError{Field: "gracefulStop", Message: "gracefulStop cannot be negative"}
		}
	default:
		return &ValidationError{Field: "type", Message: "unknown executor type: " + string(c.Type)}
	}
	return nil
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "validation error on field '" + e.Field + "': " + e.Message
}

// New returns the executor for config.Type, already initialized.
func New(config Config) (Executor, error) {
	var e Executor
	switch config.Type {
	case TypeConstantVUs:
		e = NewConstantVUs()
	default:
		return nil, &ValidationError{Field: "type", Message: "unknown executor type: " + string(config.Type)}
	}
	if err := e.Init(config); err != nil {
		return nil, err
	}
	return e, nil
}
