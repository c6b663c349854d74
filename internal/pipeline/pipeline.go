// Package pipeline wires the aggregator, whale detector and alert
// dispatcher into the job functions exposed on the cron trigger
// surface.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/wnt/curvewatch/internal/alert"
	"github.com/wnt/curvewatch/internal/market"
	"github.com/wnt/curvewatch/internal/whale"
)

// Job names as registered on the trigger surface
const (
	JobMarketRefresh = "market-refresh"
	JobWhaleScan     = "whale-scan"
	JobAlertDispatch = "alert-dispatch"
	JobSnapshotPrune = "snapshot-prune"
)

const snapshotRetention = 7 * 24 * time.Hour

// Pipeline bundles the components behind the scheduled jobs
type Pipeline struct {
	aggregator *market.Aggregator
	snapshots  *market.SnapshotStore
	detector   *whale.Detector
	dispatcher *alert.Dispatcher
	logger     zerolog.Logger
}

// New creates the pipeline
func New(
	aggregator *market.Aggregator,
	snapshots *market.SnapshotStore,
	detector *whale.Detector,
	dispatcher *alert.Dispatcher,
	logger zerolog.Logger,
) *Pipeline {
	return &Pipeline{
		aggregator: aggregator,
		snapshots:  snapshots,
		detector:   detector,
		dispatcher: dispatcher,
		logger:     logger.With().Str("component", "pipeline").Logger(),
	}
}

// RefreshJob rebuilds the token snapshot and records a scored snapshot
// row per token. A snapshot write failure is reported in the summary
// but does not fail the job: the refreshed cache is already serving.
func (p *Pipeline) RefreshJob(ctx context.Context) (string, error) {
	tokens, err := p.aggregator.Refresh(ctx)
	if err != nil {
		return "", fmt.Errorf("market refresh failed: %w", err)
	}

	summary := fmt.Sprintf("tokens=%d", len(tokens))
	if err := p.snapshots.Save(tokens); err != nil {
		p.logger.Warn().Err(err).Msg("Snapshot history write failed")
		summary += " snapshot_write=failed"
	}

	return summary, nil
}

// WhaleScanJob refreshes the snapshot if needed and scans the top
// tokens for large transfers
func (p *Pipeline) WhaleScanJob(ctx context.Context) (string, error) {
	tokens, err := p.aggregator.Refresh(ctx)
	if err != nil {
		return "", fmt.Errorf("snapshot unavailable for whale scan: %w", err)
	}

	summary, err := p.detector.Run(ctx, tokens)
	if err != nil {
		return summary.String(), fmt.Errorf("whale scan aborted: %w", err)
	}
	return summary.String(), nil
}

// AlertDispatchJob matches subscriptions against the current snapshot
// and delivers under quotas
func (p *Pipeline) AlertDispatchJob(ctx context.Context) (string, error) {
	tokens, err := p.aggregator.Refresh(ctx)
	if err != nil {
		return "", fmt.Errorf("snapshot unavailable for alert dispatch: %w", err)
	}

	summary, err := p.dispatcher.Run(ctx, tokens)
	if err != nil {
		return summary.String(), fmt.Errorf("alert dispatch aborted: %w", err)
	}
	return summary.String(), nil
}

// SnapshotPruneJob removes snapshot history older than the retention
// window
func (p *Pipeline) SnapshotPruneJob(_ context.Context) (string, error) {
	removed, err := p.snapshots.Prune(snapshotRetention)
	if err != nil {
		return "", fmt.Errorf("snapshot prune failed: %w", err)
	}
	return fmt.Sprintf("removed=%d", removed), nil
}
