package whale

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/wnt/curvewatch/internal/logger"
	"github.com/wnt/curvewatch/internal/market"
	"github.com/wnt/curvewatch/internal/metrics"
	"github.com/wnt/curvewatch/internal/models"
	"github.com/wnt/curvewatch/internal/notify"
	"github.com/wnt/curvewatch/internal/rpc"
)

const candidateFetchLimit = 50

// transferSource fetches recent transfers for a token
type transferSource interface {
	GetTokenTransfers(ctx context.Context, mints []string, limit int) ([]rpc.TokenTransfer, error)
}

// TransferCandidate is one observed transfer before dedup. Immutable
// once built; Signature is the natural key.
type TransferCandidate struct {
	Signature       string
	TokenAddress    string
	TokenSymbol     string
	Direction       models.TransferDirection
	AmountTokens    float64
	AmountUsd       float64
	SenderAccount   string
	ReceiverAccount string
	BlockTime       time.Time
}

// Summary carries the running totals of one detector run
type Summary struct {
	TokensReviewed int
	Candidates     int
	Inserted       int
	Skipped        int
	Errors         int
}

// String renders the summary for the run status row
func (s Summary) String() string {
	return fmt.Sprintf("reviewed=%d candidates=%d inserted=%d skipped=%d errors=%d",
		s.TokensReviewed, s.Candidates, s.Inserted, s.Skipped, s.Errors)
}

// Config tunes the detector
type Config struct {
	MinUsd         float64       // USD floor for a transfer to count as a whale
	TokenScanDelay time.Duration // pause between tokens, upstream enforces per-key rates
	TopTokenCount  int           // how many top-scored tokens to scan
	AlertChatID    string        // broadcast channel recipient for new events
}

// Detector scans top tokens for large transfers, deduplicates them
// against the event store, and posts new events to the alert channel.
// Tokens are processed serially on purpose: the inter-token delay keeps
// the scan under the provider's per-key rate limit.
type Detector struct {
	transfers transferSource
	store     *EventStore
	channel   notify.Channel
	cfg       Config
	logger    zerolog.Logger
}

// NewDetector creates a whale detector
func NewDetector(transfers transferSource, store *EventStore, channel notify.Channel, cfg Config, log zerolog.Logger) *Detector {
	if cfg.TopTokenCount <= 0 {
		cfg.TopTokenCount = 10
	}
	return &Detector{
		transfers: transfers,
		store:     store,
		channel:   channel,
		cfg:       cfg,
		logger:    log.With().Str("component", "whale_detector").Logger(),
	}
}

// Run scans the top tokens of the given snapshot. Failures within one
// token never stop the next; partial success is still success at the
// job level, reported through the summary.
func (d *Detector) Run(ctx context.Context, snapshot []market.TokenRecord) (Summary, error) {
	var summary Summary

	top := snapshot
	if len(top) > d.cfg.TopTokenCount {
		top = top[:d.cfg.TopTokenCount]
	}

	for i, token := range top {
		if i > 0 && d.cfg.TokenScanDelay > 0 {
			select {
			case <-time.After(d.cfg.TokenScanDelay):
			case <-ctx.Done():
				return summary, ctx.Err()
			}
		}

		summary.TokensReviewed++
		if err := d.scanToken(ctx, token, &summary); err != nil {
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			summary.Errors++
			l := logger.WithToken(d.logger, token.Address)
			l.Warn().
				Err(err).
				Msg("Token scan failed, continuing with next token")
		}
	}

	d.logger.Info().
		Int("reviewed", summary.TokensReviewed).
		Int("candidates", summary.Candidates).
		Int("inserted", summary.Inserted).
		Int("skipped", summary.Skipped).
		Int("errors", summary.Errors).
		Msg("Whale scan completed")

	return summary, nil
}

// scanToken runs the per-token pipeline: fetch candidates, drop the
// already-known signatures in one batched lookup, persist the rest,
// then notify per event.
func (d *Detector) scanToken(ctx context.Context, token market.TokenRecord, summary *Summary) error {
	log := logger.WithToken(d.logger, token.Address)

	candidates, err := d.fetchCandidates(ctx, token)
	if err != nil {
		// A rejected request means the token degrades to zero whale
		// activity for this cycle; retry-worthy failures were already
		// retried inside the client.
		return fmt.Errorf("candidate fetch failed: %w", err)
	}
	if len(candidates) == 0 {
		return nil
	}
	summary.Candidates += len(candidates)

	hashes := make([]string, len(candidates))
	for i, c := range candidates {
		hashes[i] = c.Signature
	}

	existing, err := d.store.ExistingHashes(hashes)
	if err != nil {
		return fmt.Errorf("dedup lookup failed: %w", err)
	}

	var fresh []TransferCandidate
	for _, c := range candidates {
		if existing[c.Signature] {
			summary.Skipped++
			metrics.RecordWhaleEvent("duplicate")
			continue
		}
		fresh = append(fresh, c)
	}
	if len(fresh) == 0 {
		return nil
	}

	events := make([]models.WhaleEvent, len(fresh))
	for i, c := range fresh {
		events[i] = models.WhaleEvent{
			TxHash:          c.Signature,
			TokenAddress:    c.TokenAddress,
			TokenSymbol:     c.TokenSymbol,
			Direction:       c.Direction,
			AmountTokens:    c.AmountTokens,
			AmountUsd:       c.AmountUsd,
			SenderAccount:   c.SenderAccount,
			ReceiverAccount: c.ReceiverAccount,
			BlockTime:       c.BlockTime,
		}
	}

	inserted, err := d.store.InsertNew(events)
	if err != nil {
		summary.Errors++
		log.Error().Err(err).Int("batch", len(events)).Msg("Whale event insert failed")
		return nil
	}
	summary.Inserted += int(inserted)
	for i := int64(0); i < inserted; i++ {
		metrics.RecordWhaleEvent("inserted")
	}

	d.notifyEvents(ctx, fresh, log)
	return nil
}

// fetchCandidates pulls recent transfers for one token and keeps those
// above the USD floor
func (d *Detector) fetchCandidates(ctx context.Context, token market.TokenRecord) ([]TransferCandidate, error) {
	transfers, err := d.transfers.GetTokenTransfers(ctx, []string{token.Address}, candidateFetchLimit)
	if err != nil {
		return nil, err
	}

	var candidates []TransferCandidate
	for _, t := range transfers {
		if t.Signature == "" {
			continue
		}

		usd := t.AmountTokens * token.PriceUsd
		if usd < d.cfg.MinUsd {
			metrics.RecordWhaleEvent("below_floor")
			continue
		}

		candidates = append(candidates, TransferCandidate{
			Signature:       t.Signature,
			TokenAddress:    token.Address,
			TokenSymbol:     token.Symbol,
			Direction:       parseDirection(t.Direction),
			AmountTokens:    t.AmountTokens,
			AmountUsd:       usd,
			SenderAccount:   t.FromAccount,
			ReceiverAccount: t.ToAccount,
			BlockTime:       time.Unix(t.BlockTime, 0).UTC(),
		})
	}

	return candidates, nil
}

// notifyEvents posts each new event individually. One failed post never
// blocks the remaining events.
func (d *Detector) notifyEvents(ctx context.Context, events []TransferCandidate, log zerolog.Logger) {
	if d.channel == nil || d.cfg.AlertChatID == "" {
		return
	}

	for _, e := range events {
		msg := fmt.Sprintf("🐋 Whale %s: %.0f %s ($%.0f) on %s",
			e.Direction, e.AmountTokens, e.TokenSymbol, e.AmountUsd, e.TokenAddress)

		if err := d.channel.Send(ctx, d.cfg.AlertChatID, msg); err != nil {
			log.Warn().
				Err(err).
				Str("signature", e.Signature).
				Msg("Whale alert post failed, continuing")
		}
	}
}

func parseDirection(s string) models.TransferDirection {
	switch s {
	case "mint":
		return models.DirectionMint
	case "burn":
		return models.DirectionBurn
	default:
		return models.DirectionTransfer
	}
}
