package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/kilianp07/arbitrage/app"
	"github.com/kilianp07/arbitrage/core/model"
	"github.com/kilianp07/arbitrage/pkg/export"
)

var (
	runMarket  string
	runProfile string
	runOut     string
	runFormat  string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Optimize one stored configuration against one market",
	Long: `Optimize one stored configuration against one market.

Missing --market or --profile values are asked for interactively. The result
is written to <out>/<unix timestamp>.json (or .csv with --format csv).`,
	RunE: runMarketCmd,
}

func init() {
	runCmd.Flags().StringVarP(&runMarket, "market", "m", "", "market id")
	runCmd.Flags().StringVarP(&runProfile, "profile", "p", "", "storage configuration name")
	runCmd.Flags().StringVarP(&runOut, "out", "o", "", "output directory (default catalog.out_dir)")
	runCmd.Flags().StringVar(&runFormat, "format", "json", "output format: json or csv")
	rootCmd.AddCommand(runCmd)
}

// selectFn asks the user to pick one of items. Tests replace it.
var selectFn = func(label string, items []string) (string, error) {
	sel := promptui.Select{Label: label, Items: items, Size: 10}
	_, v, err := sel.Run()
	return v, err
}

func runMarketCmd(cmd *cobra.Command, args []string) error {
	if runFormat != "json" && runFormat != "csv" {
		return fmt.Errorf("unknown format %q", runFormat)
	}
	return withService(func(svc *app.Service) error {
		ctx := cmd.Context()
		marketID, profile, err := pickRun(ctx, svc)
		if err != nil {
			return err
		}
		run, err := svc.CalculateRevenue(ctx, marketID, profile)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Total cycles: %d\n", run.Result.TotalCycles)
		fmt.Fprintf(out, "Revenue: %d EUR\n", run.Result.Revenue)

		path, err := writeRun(run, profile)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Result written to %s\n", path)
		return nil
	})
}

func pickRun(ctx context.Context, svc *app.Service) (string, model.StorageProfile, error) {
	marketID := runMarket
	if marketID == "" {
		markets, err := svc.Markets(ctx)
		if err != nil {
			return "", model.StorageProfile{}, err
		}
		if len(markets) == 0 {
			return "", model.StorageProfile{}, errors.New("no markets available")
		}
		ids := make([]string, len(markets))
		for i, m := range markets {
			ids[i] = m.ID
		}
		if marketID, err = selectFn("Select market file", ids); err != nil {
			return "", model.StorageProfile{}, err
		}
	}

	name := runProfile
	if name == "" {
		profiles, err := svc.Profiles(ctx)
		if err != nil {
			return "", model.StorageProfile{}, err
		}
		if len(profiles) == 0 {
			return "", model.StorageProfile{}, errors.New("no configurations available")
		}
		names := make([]string, len(profiles))
		for i, p := range profiles {
			names[i] = p.Name
		}
		if name, err = selectFn("Select configuration", names); err != nil {
			return "", model.StorageProfile{}, err
		}
	}
	profile, err := svc.Profile(ctx, name)
	return marketID, profile, err
}

func writeRun(run app.Run, profile model.StorageProfile) (string, error) {
	dir := runOut
	if dir == "" {
		dir = cfg.Catalog.OutDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("%d.%s", time.Now().Unix(), runFormat))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if runFormat == "csv" {
		err = export.WriteScheduleCSV(f, run.Result.Schedule)
	} else {
		err = export.WriteScheduleJSON(f, run.Result, profile)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return path, err
}
