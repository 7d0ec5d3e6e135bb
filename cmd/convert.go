package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/arbitrage/core/model"
	"github.com/kilianp07/arbitrage/core/prices"
)

var (
	convertInterval int
	convertStart    string
	convertOut      string
)

var convertCmd = &cobra.Command{
	Use:   "convert <file>",
	Short: "Convert a raw JSON price array into a dated price series",
	Args:  cobra.ExactArgs(1),
	RunE:  runConvert,
	// Conversion needs no configuration.
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
}

func init() {
	convertCmd.Flags().IntVarP(&convertInterval, "interval", "i", 60, "minutes between two raw values")
	convertCmd.Flags().StringVar(&convertStart, "start", prices.DefaultStart.Format(time.DateOnly), "date of the first value (YYYY-MM-DD or RFC 3339)")
	convertCmd.Flags().StringVarP(&convertOut, "out", "o", "", "output file (default stdout)")
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	values, err := prices.ParseRaw(raw)
	if err != nil {
		return err
	}
	start, err := parseStart(convertStart)
	if err != nil {
		return err
	}
	points, err := prices.Prepare(values, convertInterval, prices.WithStart(start))
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if convertOut != "" {
		f, err := os.Create(convertOut)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(model.NewPriceSeries(points))
}

func parseStart(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid start %q", s)
	}
	return t, nil
}
