// Command runjob runs a single pipeline job from the command line,
// bypassing the HTTP trigger surface. Useful for local development and
// one-off backfills.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/wnt/curvewatch/internal/config"
	"github.com/wnt/curvewatch/internal/cronserver"
	"github.com/wnt/curvewatch/internal/database"
	"github.com/wnt/curvewatch/internal/logger"
	"github.com/wnt/curvewatch/internal/pipeline"
)

func main() {
	envFile := flag.String("envFile", ".env", "Path to .env file")
	jobName := flag.String("job", pipeline.JobMarketRefresh, "Job to run")
	timeout := flag.Duration("timeout", 2*time.Minute, "Cycle timeout")
	flag.Parse()

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

	pipe, err := pipeline.Build(cfg, db, zlog)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to build pipeline")
	}

	jobs := map[string]cronserver.JobFunc{
		pipeline.JobMarketRefresh: pipe.RefreshJob,
		pipeline.JobWhaleScan:     pipe.WhaleScanJob,
		pipeline.JobAlertDispatch: pipe.AlertDispatchJob,
		pipeline.JobSnapshotPrune: pipe.SnapshotPruneJob,
	}

	fn, ok := jobs[*jobName]
	if !ok {
		zlog.Fatal().Str("job", *jobName).Msg("Unknown job")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	status := cronserver.NewRunStatusStore(db)

	summary, err := fn(ctx)
	if err != nil {
		if statusErr := status.RecordFailure(*jobName, err.Error()); statusErr != nil {
			zlog.Error().Err(statusErr).Msg("Failed to record job failure")
		}
		zlog.Fatal().Err(err).Str("job", *jobName).Msg("Job failed")
	}

	if statusErr := status.RecordSuccess(*jobName, summary); statusErr != nil {
		zlog.Error().Err(statusErr).Msg("Failed to record job success")
	}

	fmt.Printf("%s: %s\n", *jobName, summary)
}
