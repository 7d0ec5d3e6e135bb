package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/arbitrage/api"
	"github.com/kilianp07/arbitrage/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  serve,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return withService(func(svc *app.Service) error {
		collected := svc.Start(ctx)
		srv := api.NewServer(svc, cfg.Server)
		err := srv.Start(ctx)
		stop()
		<-collected
		return err
	})
}
