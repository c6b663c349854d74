package main

import (
	"flag"
	"log"
	"net/http"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wnt/curvewatch/internal/config"
	"github.com/wnt/curvewatch/internal/cronserver"
	"github.com/wnt/curvewatch/internal/database"
	"github.com/wnt/curvewatch/internal/lock"
	"github.com/wnt/curvewatch/internal/logger"
	"github.com/wnt/curvewatch/internal/pipeline"
)

func main() {
	// Parse command-line arguments
	envFile := flag.String("envFile", ".env", "Path to .env file")
	flag.Parse()

	// Load environment variables from the specified file
	if err := godotenv.Load(*envFile); err != nil {
		log.Printf("No .env file found at %s, using environment variables", *envFile)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog := logger.New(cfg.LogLevel)

	db, err := database.Connect(cfg)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to connect to database")
	}

	locker, err := lock.NewLocker(cfg.RedisURL, zlog)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer locker.Close()

	pipe, err := pipeline.Build(cfg, db, zlog)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to build pipeline")
	}

	server := cronserver.New(cfg.CronSecret, locker, cronserver.NewRunStatusStore(db), zlog)
	server.Register(pipeline.JobMarketRefresh, pipe.RefreshJob)
	server.Register(pipeline.JobWhaleScan, pipe.WhaleScanJob)
	server.Register(pipeline.JobAlertDispatch, pipe.AlertDispatchJob)
	server.Register(pipeline.JobSnapshotPrune, pipe.SnapshotPruneJob)

	// Standalone metrics listener for the Prometheus scraper
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(":"+cfg.MetricsPort, mux); err != nil {
			zlog.Error().Err(err).Msg("Metrics listener stopped")
		}
	}()

	zlog.Info().
		Str("port", cfg.HTTPPort).
		Msg("Starting cron trigger server")

	if err := server.Run(":" + cfg.HTTPPort); err != nil {
		zlog.Fatal().Err(err).Msg("Cron trigger server stopped")
	}
}
