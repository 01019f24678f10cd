package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/wrenlabs/rca-scheduler/pkg/api"
	"github.com/wrenlabs/rca-scheduler/pkg/cli/output"
	"github.com/wrenlabs/rca-scheduler/pkg/config"
	"github.com/wrenlabs/rca-scheduler/pkg/graph"
	"github.com/wrenlabs/rca-scheduler/pkg/hopper"
	"github.com/wrenlabs/rca-scheduler/pkg/metricsource"
	"github.com/wrenlabs/rca-scheduler/pkg/scheduler"
	"github.com/wrenlabs/rca-scheduler/pkg/store/factory"
	"github.com/wrenlabs/rca-scheduler/pkg/workerpool"
)

var (
	configPath string
	graphPath  string
	httpPort   int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Load configuration and run the scheduler on a cron cadence",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&configPath, "config", "c", "./host.yaml", "path to the host configuration file")
	serveCmd.Flags().StringVarP(&graphPath, "graph", "g", "./graph.yaml", "path to the graph definition file")
	serveCmd.Flags().IntVarP(&httpPort, "port", "p", 0, "HTTP surface port (overrides none if 0)")
}

func runServe(cmd *cobra.Command, args []string) error {
	output.Info("loading host configuration from %s", configPath)
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	output.Info("loading graph definition from %s", graphPath)
	provider, err := graph.LoadDefinition(graphPath)
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	st, err := factory.New(cfg.Storage.Type, cfg.Storage.DSN)
	if err != nil {
		return fmt.Errorf("serve: open store: %w", err)
	}
	defer st.Close()

	net, err := hopper.NewWatermillHopper()
	if err != nil {
		return fmt.Errorf("serve: start network facade: %w", err)
	}
	defer net.Close()

	metricSource := metricsource.NewStaticMetricSource()
	pool := workerpool.New(cfg.Host.WorkerPoolSize)
	defer pool.Shutdown()

	ctx := context.Background()
	sched, err := scheduler.New(ctx, cfg, pool, provider, metricSource, st, net)
	if err != nil {
		return fmt.Errorf("serve: build scheduler: %w", err)
	}
	output.Success("scheduler ready: %d tasklets scheduled", len(sched.Tasklets()))

	serverConfig := api.DefaultServerConfig()
	if httpPort != 0 {
		serverConfig.Port = httpPort
	}
	server := api.NewServer(sched, serverConfig, Version)
	go func() {
		if err := server.Start(); err != nil {
			output.Error("api server stopped: %v", err)
		}
	}()

	c := cron.New()
	entryID, err := c.AddFunc(fmt.Sprintf("@every %s", cfg.Host.TickInterval), func() {
		sched.Run(ctx)
	})
	if err != nil {
		return fmt.Errorf("serve: schedule tick cron: %w", err)
	}
	c.Start()
	output.Success("tick cron registered: entry=%d interval=%s", entryID, cfg.Host.TickInterval)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	output.Info("shutting down")
	c.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Host.TickInterval)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		output.Error("api shutdown: %v", err)
	}
	return nil
}
