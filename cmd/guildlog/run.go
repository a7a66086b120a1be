package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/intrntsrfr/guildlog"
	"github.com/intrntsrfr/guildlog/config"
	"github.com/intrntsrfr/guildlog/database"
	"github.com/intrntsrfr/guildlog/discord"
	"github.com/intrntsrfr/guildlog/eventlog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Connect to Discord and start logging",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx)
		},
	}
}

func run(ctx context.Context) error {
	conf, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if err := conf.Validate(); err != nil {
		return err
	}
	level, _ := conf.Log.ZapLevel()
	logger := guildlog.NewLogger(level, conf.Log.Format)
	log := logger.Zap()
	defer func() { _ = log.Sync() }()

	db, err := database.Open(&database.Config{
		Log:    log.Named("database"),
		Driver: conf.Storage.Driver,
		Path:   conf.Storage.Path,
	})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	client, err := discord.New(conf.Discord.Token, log.Named("discord"))
	if err != nil {
		_ = db.Close()
		return err
	}
	shards := conf.Discord.Shards
	if shards == 0 {
		if shards, err = client.RecommendedShards(ctx); err != nil {
			log.Warn("failed to get recommended shard count, using 1", zap.Error(err))
			shards = 1
		}
	}

	b, err := guildlog.NewBot(conf, shards, db, client, logger)
	if err != nil {
		_ = db.Close()
		return err
	}
	defer b.Close()

	if conf.Metrics.Addr != "" {
		srv := metricsServer(conf.Metrics.Addr)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server stopped", zap.Error(err))
			}
		}()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
		log.Info("serving metrics", zap.String("addr", conf.Metrics.Addr))
	}

	if err := b.Run(ctx); err != nil {
		return err
	}
	log.Info("bot is now running", zap.Int("shards", shards))
	<-ctx.Done()
	log.Info("shutting down")
	return nil
}

func metricsServer(addr string) *http.Server {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	reg.MustRegister(eventlog.Collectors()...)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
