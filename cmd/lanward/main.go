package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/HerbHall/lanward/internal/config"
	"github.com/HerbHall/lanward/internal/engine"
	"github.com/HerbHall/lanward/internal/event"
	"github.com/HerbHall/lanward/internal/version"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:          "lanward",
		Short:        "LANWard — LAN discovery, registry, and access control",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to configuration file")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Start the monitoring engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version.Info())
		},
	}

	root.AddCommand(runCmd, versionCmd)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, v, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := config.NewLogger(v)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	logger.Info("starting", zap.String("version", version.Info()))

	eng, err := engine.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing engine: %w", err)
	}
	defer eng.Close()

	// Log the cycle summaries so a headless run shows signs of life.
	eng.Bus().Subscribe(event.TopicMonitorCycle, func(_ context.Context, ev event.Event) {
		logger.Debug("cycle complete", zap.Any("summary", ev.Payload))
	})
	eng.Bus().Subscribe(event.TopicDeviceDiscovered, func(_ context.Context, ev event.Event) {
		logger.Info("device discovered", zap.Any("device", ev.Payload))
	})

	eng.StartMonitoring()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
	return nil
}
