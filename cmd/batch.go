package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kilianp07/arbitrage/app"
	"github.com/kilianp07/arbitrage/pkg/export"
)

var batchFormat string

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run every stored configuration against every market",
	RunE:  runBatch,
}

func init() {
	batchCmd.Flags().StringVar(&batchFormat, "format", "table", "output format: table, csv or json")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	switch batchFormat {
	case "table", "csv", "json":
	default:
		return fmt.Errorf("unknown format %q", batchFormat)
	}
	return withService(func(svc *app.Service) error {
		jobs, err := svc.AllJobs(cmd.Context())
		if err != nil {
			return err
		}
		results := svc.Batch(cmd.Context(), jobs)
		rows := batchRows(results)

		out := cmd.OutOrStdout()
		switch batchFormat {
		case "csv":
			return export.WriteBatchCSV(out, rows)
		case "json":
			return export.WriteBatchJSON(out, rows)
		default:
			return writeBatchTable(out, rows)
		}
	})
}

func batchRows(results []app.JobResult) []export.BatchRow {
	rows := make([]export.BatchRow, len(results))
	for i, r := range results {
		row := export.BatchRow{
			MarketID:    r.Job.MarketID,
			Profile:     r.Job.Profile.Name,
			Status:      r.Status(),
			Intervals:   len(r.Run.Result.Schedule),
			TotalCycles: r.Run.Result.TotalCycles,
			Revenue:     r.Run.Result.Revenue,
			DurationMS:  r.Run.Duration.Milliseconds(),
		}
		if r.Err != nil {
			row.Error = r.Err.Error()
		}
		rows[i] = row
	}
	return rows
}

func writeBatchTable(out io.Writer, rows []export.BatchRow) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MARKET\tCONFIGURATION\tSTATUS\tCYCLES\tREVENUE\tDURATION")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%dms\n", r.MarketID, r.Profile, r.Status, r.TotalCycles, r.Revenue, r.DurationMS)
	}
	return w.Flush()
}
