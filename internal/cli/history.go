package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/wesleyorama2/vuload/internal/performance/output"
	"github.com/wesleyorama2/vuload/internal/storage"
)

// DefaultHistoryPath is where "vuload history" looks without --history.
const DefaultHistoryPath = "vuload-history.db"

func newHistoryCmd() *cobra.Command {
	var (
		path   string
		limit  int
		format string
	)

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recorded runs or show one of them",
		Long: `Without arguments, list the runs recorded with "vuload run --history",
newest first. With a run ID, print that run's summary.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := storage.Open(path)
			if err != nil {
				return err
			}
			defer store.Close()

			if len(args) == 1 {
				f, err := output.ParseFormat(format)
				if err != nil {
					return err
				}
				item, err := store.Get(args[0])
				if err != nil {
					return err
				}
				return output.Write(cmd.OutOrStdout(), item.Summary, f, output.Options{NoColor: true})
			}

			items, err := store.List(limit)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN ID\tSTARTED\tTARGET\tVUS\tDURATION\tREQUESTS\tCHECKS\tRESULT")
			for _, item := range items {
				s := item.Summary
				if s == nil {
					continue
				}
				var requests int64
				if s.Metrics != nil {
					requests = s.Metrics.TotalRequests
				}
				result := "PASSED"
				if !item.Passed() {
					result = "FAILED"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%d\t%.2f%%\t%s\n",
					item.ID,
					item.Timestamp.Local().Format(time.DateTime),
					s.BaseURL,
					s.VUs,
					s.Duration.Round(time.Millisecond),
					requests,
					s.CheckPassRate*100,
					result)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&path, "history", DefaultHistoryPath, "History file")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to list (0 = all)")
	cmd.Flags().StringVar(&format, "format", string(output.FormatText), "Summary format for a single run")

	return cmd
}
