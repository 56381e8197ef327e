package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/lane-heatmap-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/lane-heatmap-service/internal/adapter/kafka"
	"github.com/couchcryptid/lane-heatmap-service/internal/config"
	"github.com/couchcryptid/lane-heatmap-service/internal/geocoder"
	"github.com/couchcryptid/lane-heatmap-service/internal/observability"
	"github.com/couchcryptid/lane-heatmap-service/internal/pipeline"
	"github.com/couchcryptid/lane-heatmap-service/internal/state"
	"github.com/couchcryptid/lane-heatmap-service/internal/zipdata"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ref, err := zipdata.NewLoader(cfg.ZipFetchTimeout, logger).Load(ctx, cfg.ZipBasePath, cfg.ZipExtraPath)
	if err != nil {
		logger.Error("failed to load zip reference data", "error", err)
		os.Exit(1)
	}

	geo, closeCache, err := geocoder.New(ctx, cfg, metrics, logger)
	if err != nil {
		logger.Error("failed to initialize geocoder", "error", err)
		os.Exit(1)
	}

	// Publishing is feature-flagged via KAFKA_ENABLED / KAFKA_BROKERS.
	var (
		publisher pipeline.LanePublisher
		kafkaPub  *kafkaadapter.Publisher
	)
	if cfg.KafkaEnabled {
		kafkaPub = kafkaadapter.NewPublisher(cfg, logger)
		publisher = kafkaPub
		logger.Info("kafka lane publishing enabled", "topic", cfg.KafkaLanesTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("kafka lane publishing disabled")
	}

	store := state.NewStore()
	p := pipeline.New(ref, geo, publisher, store, logger, metrics)

	if cfg.LanesCSVPath != "" {
		if _, err := p.LoadFile(ctx, cfg.LanesCSVPath); err != nil {
			// The UI shows the error; the service keeps running so a file can be uploaded.
			logger.Error("initial lane file load failed", "path", cfg.LanesCSVPath, "error", err)
		}
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, store, cfg.LanesRawDir, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if kafkaPub != nil {
		if err := kafkaPub.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}
	if err := closeCache(); err != nil {
		logger.Error("zip cache close error", "error", err)
	}

	logger.Info("shutdown complete")
}
