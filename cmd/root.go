package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/arbitrage/app"
	"github.com/kilianp07/arbitrage/config"
	coremon "github.com/kilianp07/arbitrage/core/monitoring"
	"github.com/kilianp07/arbitrage/infra/logger"
	"github.com/kilianp07/arbitrage/infra/monitoring"
)

const defaultConfigPath = "config.yaml"

var (
	cfgPath string
	cfg     *config.Config

	// newService builds the service behind every command.
	newService = app.New
)

var rootCmd = &cobra.Command{
	Use:               "arbitrage",
	Short:             "Energy storage arbitrage optimizer",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE:              serve,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", defaultConfigPath, "configuration file")
}

// Execute runs the CLI.
func Execute() error {
	defer coremon.Flush(2 * time.Second)
	return rootCmd.Execute()
}

// setup loads the configuration and initialises logging and monitoring.
func setup(cmd *cobra.Command, args []string) error {
	c, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.SetLevel(c.Logging.Level); err != nil {
		return err
	}
	mon, err := monitoring.NewSentryMonitor(c.Sentry)
	if err != nil {
		return fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)
	cfg = c
	return nil
}

// loadConfig falls back to defaults and environment when the default file is
// absent; an explicitly named file must exist.
func loadConfig(path string) (*config.Config, error) {
	if path == defaultConfigPath {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return config.Load("")
		}
	}
	return config.Load(path)
}

func withService(fn func(*app.Service) error) error {
	svc, err := newService(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	return fn(svc)
}
