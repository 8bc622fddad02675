package perf

import (
	"context"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/wesleyorama2/vuload/internal/performance/config"
	"github.com/wesleyorama2/vuload/internal/performance/engine"
	"github.com/wesleyorama2/vuload/internal/performance/output"
)

type (
	// Config is the run configuration.
	Config = config.RunConfig

	// Duration is a time.Duration that reads "30s" style strings.
	Duration = config.Duration

	// Thresholds are the pass/fail criteria of a run.
	Thresholds = config.ThresholdsConfig

	// Summary is the result of a run.
	Summary = engine.Summary

	// ThresholdResult is one evaluated threshold.
	ThresholdResult = engine.ThresholdResult

	// Format is a summary output format.
	Format = output.Format
)

// Summary formats.
const (
	FormatText  = output.FormatText
	FormatJSON  = output.FormatJSON
	FormatYAML  = output.FormatYAML
	FormatJUnit = output.FormatJUnit
)

// DefaultConfig returns the default configuration with BASE_URL applied.
func DefaultConfig() *Config {
	cfg := config.Default()
	cfg.ApplyEnv(os.Getenv)
	return cfg
}

// LoadConfig reads a configuration file on top of the defaults and applies
// BASE_URL.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path, os.Getenv)
}

// Option configures Run.
type Option func(*[]engine.Option)

// WithLogger makes the run log through log.
func WithLogger(log logrus.FieldLogger) Option {
	return func(opts *[]engine.Option) {
		*opts = append(*opts, engine.WithLogger(log))
	}
}

// Run validates cfg, runs the test and returns its summary. See
// engine.Engine.Run for how errors and summaries relate.
func Run(ctx context.Context, cfg *Config, opts ...Option) (*Summary, error) {
	var engineOpts []engine.Option
	for _, opt := range opts {
		opt(&engineOpts)
	}

	eng, err := engine.NewEngine(cfg, engineOpts...)
	if err != nil {
		return nil, err
	}
	return eng.Run(ctx)
}

// WriteSummary renders summary to w without colors.
func WriteSummary(w io.Writer, summary *Summary, format Format) error {
	return output.Write(w, summary, format, output.Options{NoColor: true})
}
