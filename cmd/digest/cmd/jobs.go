package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var jobsLimit int

func init() {
	jobsCmd.Flags().IntVarP(&jobsLimit, "limit", "n", 20, "number of jobs to list")
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List recent jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.cleanup()

		jobs, err := rt.jobs.ListRecent(cmd.Context(), jobsLimit)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "STARTED\tSOURCE\tFLOW\tSTATUS\tERROR\tCALLS\tDURATION")
		for _, job := range jobs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
				job.StartedAt.Format(time.RFC3339),
				job.Source,
				job.Flow,
				job.Status,
				job.ErrorCode,
				job.ModelCalls,
				job.FinishedAt.Sub(job.StartedAt).Round(time.Millisecond),
			)
		}
		return w.Flush()
	},
}
