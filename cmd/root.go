package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/timetabler/app"
	"github.com/kilianp07/timetabler/config"
	"github.com/kilianp07/timetabler/infra/logger"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:          "timetabler",
	Short:        "Bus timetable optimiser",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

// withService loads the configuration, opens a Service and closes it after fn.
func withService(cfg *config.Config, fn func(*app.Service) error) error {
	svc, err := app.New(cfg)
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

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
