package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/prosumer/app"
	"github.com/kilianp07/prosumer/config"
	coremon "github.com/kilianp07/prosumer/core/monitoring"
	"github.com/kilianp07/prosumer/infra/logger"
	// registers the nop, prometheus and influx metrics sinks
	_ "github.com/kilianp07/prosumer/infra/metrics"
	// registers the mqtt metrics sink
	sentrymon "github.com/kilianp07/prosumer/infra/monitoring"
	_ "github.com/kilianp07/prosumer/infra/mqtt"
)

const flushTimeout = 2 * time.Second

var (
	cfgPath  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:          "prosumer",
	Short:        "PV/battery dispatch and appliance load shifting simulator",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

// newService loads the configuration and builds the application service.
func newService() (*app.Service, *config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	logger.SetLevel(cfg.Log.Level)
	if err := logger.SetFormat(cfg.Log.Format); err != nil {
		return nil, nil, err
	}
	mon, err := sentrymon.NewSentryMonitor(cfg.Monitoring)
	if err != nil {
		return nil, nil, err
	}
	coremon.Init(mon)
	svc, err := app.New(cfg, app.WithLogger(logger.New("service")))
	if err != nil {
		return nil, nil, err
	}
	return svc, cfg, nil
}

func closeService(svc *app.Service) {
	if err := svc.Close(); err != nil {
		logger.New("main").Errorf("service close: %v", err)
	}
	coremon.Flush(flushTimeout)
}
