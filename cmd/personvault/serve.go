package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"personvault/internal/platform/config"
	"personvault/internal/platform/logger"
)

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the outbox relay",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, v)
		},
	}

	cmd.Flags().String("addr", "", "override listen address (host:port)")
	_ = v.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))

	return cmd
}

func runServe(cmd *cobra.Command, v *viper.Viper) error {
	cfg, err := config.FromViper(v)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a, err := buildApp(ctx, cfg, log, reg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Error("failed to release resources", "error", err)
		}
	}()

	log.Info("starting personvault",
		"addr", cfg.Server.Addr,
		"storage", cfg.Storage,
		"kafka", len(cfg.Kafka.Brokers) > 0,
		"redis", cfg.Redis.URL != "",
	)
	return a.Run(ctx)
}
