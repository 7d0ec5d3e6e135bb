package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kilianp07/arbitrage/app"
)

var marketsCmd = &cobra.Command{
	Use:   "markets",
	Short: "Market related commands",
}

var marketsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List available markets",
	RunE:  runMarketsLs,
}

var configsCmd = &cobra.Command{
	Use:     "configs",
	Aliases: []string{"configurations"},
	Short:   "Storage configuration commands",
}

var configsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List stored storage configurations",
	RunE:  runConfigsLs,
}

func init() {
	marketsCmd.AddCommand(marketsLsCmd)
	configsCmd.AddCommand(configsLsCmd)
	rootCmd.AddCommand(marketsCmd, configsCmd)
}

func runMarketsLs(cmd *cobra.Command, args []string) error {
	return withService(func(svc *app.Service) error {
		markets, err := svc.Markets(cmd.Context())
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tYEAR\tINTERVAL")
		for _, m := range markets {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", m.ID, m.Name, m.Year, m.Interval)
		}
		return w.Flush()
	})
}

func runConfigsLs(cmd *cobra.Command, args []string) error {
	return withService(func(svc *app.Service) error {
		profiles, err := svc.Profiles(cmd.Context())
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tPOWER_LIMIT\tCAPACITY\tINITIAL_SOC")
		for _, p := range profiles {
			fmt.Fprintf(w, "%s\t%g\t%g\t%g\n", p.Name, p.PowerLimit, p.Capacity, p.InitialSoC)
		}
		return w.Flush()
	})
}
