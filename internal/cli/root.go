package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/wesleyorama2/vuload/internal/logging"
	"github.com/wesleyorama2/vuload/internal/performance/config"
)

// ErrThresholdsFailed is returned by the run command when the run finished
// but at least one threshold failed.
var ErrThresholdsFailed = errors.New("thresholds failed")

// Exit codes.
const (
	ExitOK               = 0
	ExitError            = 1
	ExitThresholdsFailed = 99
)

// rootOptions are the persistent flags shared by every command.
type rootOptions struct {
	logLevel  string
	logFormat string
}

func (o *rootOptions) logger(cmd *cobra.Command) (*logrus.Logger, error) {
	return logging.New(o.logLevel, o.logFormat, cmd.ErrOrStderr())
}

// NewRootCmd builds the vuload command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:     "vuload",
		Short:   "A constant-VU load generator for HTTP users APIs",
		Version: config.Version,
		Long: `vuload runs a fixed number of virtual users against a users API for a fixed
duration. Before the load starts it seeds test users with POST /api/users;
every iteration then issues GET /api/users and checks for a 200 response.

The target defaults to http://localhost:3000 and can be changed with the
BASE_URL environment variable or --base-url. "vuload serve" starts a users
API to aim at.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", logging.FormatText, "Log format (text, json)")

	cmd.AddCommand(newRunCmd(opts))
	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newHistoryCmd())

	return cmd
}

// ExitCode maps a command error to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrThresholdsFailed):
		return ExitThresholdsFailed
	default:
		return ExitError
	}
}

// Execute runs the root command and returns the process exit code.
// This is called by main.main().
func Execute() int {
	err := NewRootCmd().Execute()
	if err != nil && !errors.Is(err, ErrThresholdsFailed) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return ExitCode(err)
}
