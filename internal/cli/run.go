package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wesleyorama2/vuload/internal/performance/config"
	"github.com/wesleyorama2/vuload/internal/performance/engine"
	"github.com/wesleyorama2/vuload/internal/performance/output"
	"github.com/wesleyorama2/vuload/internal/storage"
)

type runOptions struct {
	configFile    string
	baseURL       string
	vus           int
	duration      time.Duration
	thinkTime     time.Duration
	rps           float64
	timeout       time.Duration
	setupPolicy   string
	setupRetries  int
	format        string
	summaryExport string
	history       string
	quiet         bool
	noColor       bool
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a load test",
		Long: `Run the users-API load test: seed users, then keep the configured number of
VUs iterating GET /api/users until the duration elapses.

Settings are layered: built-in defaults, then --config, then BASE_URL, then
flags.

Examples:
  vuload run
  BASE_URL=http://staging:3000 vuload run --vus 50 --duration 30s
  vuload run --config load.yaml --format json --summary-export summary.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(cmd, root, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.configFile, "config", "c", "", "Configuration file (YAML or JSON)")
	f.StringVar(&opts.baseURL, "base-url", "", "Target base URL (overrides BASE_URL)")
	f.IntVar(&opts.vus, "vus", config.DefaultVUs, "Number of virtual users")
	f.DurationVar(&opts.duration, "duration", config.DefaultDuration, "Test duration (e.g. 60s, 5m)")
	f.DurationVar(&opts.thinkTime, "think-time", 0, "Pause at the end of every iteration")
	f.Float64Var(&opts.rps, "rps", 0, "Global request rate cap (0 = unlimited)")
	f.DurationVarP(&opts.timeout, "timeout", "t", config.DefaultTimeout, "Request timeout")
	f.StringVar(&opts.setupPolicy, "setup-policy", string(config.SetupTolerate), "What a failed seed does: tolerate or strict")
	f.IntVar(&opts.setupRetries, "setup-retries", 0, "Retries per seed request on transport errors and 5xx")
	f.StringVar(&opts.format, "format", string(output.FormatText), "Summary format: text, json, yaml or junit")
	f.StringVar(&opts.summaryExport, "summary-export", "", "Also write the summary to this file (.json, .yaml or .xml)")
	f.StringVar(&opts.history, "history", "", "Record the run in this history file")
	f.BoolVarP(&opts.quiet, "quiet", "q", false, "Disable live progress; print only PASSED/FAILED for text output")
	f.BoolVar(&opts.noColor, "no-color", false, "Disable colored output")

	return cmd
}

// buildConfig layers flags over the file and environment configuration.
// Only flags given on the command line override.
func buildConfig(cmd *cobra.Command, opts *runOptions) (*config.RunConfig, error) {
	cfg, err := config.Load(opts.configFile, os.Getenv)
	if err != nil {
		return nil, err
	}

	f := cmd.Flags()
	if f.Changed("base-url") {
		cfg.BaseURL = opts.baseURL
	}
	if f.Changed("vus") {
		cfg.VUs = opts.vus
	}
	if f.Changed("duration") {
		cfg.Duration = config.Duration(opts.duration)
	}
	if f.Changed("think-time") {
		cfg.ThinkTime = config.Duration(opts.thinkTime)
	}
	if f.Changed("rps") {
		cfg.RPS = opts.rps
	}
	if f.Changed("timeout") {
		cfg.Timeout = config.Duration(opts.timeout)
	}
	if f.Changed("setup-policy") {
		cfg.Setup.Policy = config.SetupPolicy(opts.setupPolicy)
	}
	if f.Changed("setup-retries") {
		cfg.Setup.Retries = opts.setupRetries
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runLoad(cmd *cobra.Command, root *rootOptions, opts *runOptions) error {
	log, err := root.logger(cmd)
	if err != nil {
		return err
	}

	format, err := output.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	cfg, err := buildConfig(cmd, opts)
	if err != nil {
		return err
	}

	eng, err := engine.NewEngine(cfg, engine.WithLogger(log))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Live progress goes to stderr so stdout carries only the summary.
	var wg sync.WaitGroup
	progressCtx, stopProgress := context.WithCancel(ctx)
	if format == output.FormatText && !opts.quiet {
		progress := output.NewProgress(cmd.ErrOrStderr(), output.ProgressOptions{})
		wg.Add(1)
		go func() {
			defer wg.Done()
			progress.Run(progressCtx, eng.Live)
		}()
	}

	summary, runErr := eng.Run(ctx)
	stopProgress()
	wg.Wait()

	if summary == nil {
		return fmt.Errorf("run failed: %w", runErr)
	}

	if err := output.Write(cmd.OutOrStdout(), summary, format, output.Options{
		NoColor: opts.noColor,
		Quiet:   opts.quiet,
	}); err != nil {
		return err
	}

	if opts.summaryExport != "" {
		if err := output.ExportFile(opts.summaryExport, summary); err != nil {
			return err
		}
	}

	if opts.history != "" {
		if err := saveHistory(opts.history, eng.Config(), summary); err != nil {
			log.WithError(err).Warn("failed to record run history")
		}
	}

	if runErr != nil {
		return fmt.Errorf("run interrupted: %w", runErr)
	}
	if !summary.Passed {
		return ErrThresholdsFailed
	}
	return nil
}

func saveHistory(path string, cfg config.RunConfig, summary *engine.Summary) error {
	store, err := storage.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	return store.Save(cfg, summary)
}
