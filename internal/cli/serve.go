package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wesleyorama2/vuload/internal/target"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var (
		addr      string
		rateLimit float64
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the users API that runs target",
		Long: `Start an in-memory users API:

  GET/POST        /api/users
  GET/PUT/DELETE  /api/users/{id}
  GET             /health
  GET             /metrics   (Prometheus)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := root.logger(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := target.New(target.Config{
				Addr:      addr,
				RateLimit: rateLimit,
				Logger:    log,
			})
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", target.DefaultAddr, "Listen address")
	cmd.Flags().Float64Var(&rateLimit, "rate-limit", target.DefaultRateLimit, "Accepted requests per second (0 = unlimited)")

	return cmd
}
