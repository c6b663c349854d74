package market

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/wnt/curvewatch/internal/address"
	"github.com/wnt/curvewatch/internal/metrics"
	"github.com/wnt/curvewatch/internal/rpc"
	"github.com/wnt/curvewatch/internal/scoring"
	"github.com/wnt/curvewatch/internal/services"
	"golang.org/x/sync/errgroup"
)

const (
	transferFetchLimit = 100
	trendingChainID    = "solana"
)

// curveSource provides the bonding-curve candidate list (primary feed)
type curveSource interface {
	GetCandidates(ctx context.Context, limit int) ([]services.CurveCandidate, error)
}

// trendingSource provides the ranked trending feed, used only as a
// fallback when the primary feed is down and no stale snapshot exists
type trendingSource interface {
	GetTrendingPairs(ctx context.Context, chainID string) ([]services.TrendingPair, error)
}

// pairsSource provides batched price/volume/liquidity lookups
type pairsSource interface {
	GetPairsBatch(ctx context.Context, addresses []string) ([]services.PairInfo, error)
}

// transferSource provides per-token transfer summaries
type transferSource interface {
	GetTokenTransfers(ctx context.Context, mints []string, limit int) ([]rpc.TokenTransfer, error)
}

// Config tunes the aggregation cycle
type Config struct {
	SnapshotTTL      time.Duration // callers within this window share one snapshot
	StaleSnapshotMax time.Duration // relaxed window for serving stale data on primary failure
	PairChunkDelay   time.Duration // pause between pair batch requests
	CandidateLimit   int
	WhaleMinUsd      float64
}

// Aggregator merges the three upstream feeds into unified token records
type Aggregator struct {
	curve     curveSource
	pairs     pairsSource
	transfers transferSource
	trending  trendingSource
	recoverer *address.Recoverer
	cache     *SnapshotCache
	weights   scoring.Weights
	cfg       Config
	logger    zerolog.Logger
}

// NewAggregator creates a new market data aggregator
func NewAggregator(
	curve curveSource,
	pairs pairsSource,
	transfers transferSource,
	trending trendingSource,
	recoverer *address.Recoverer,
	cache *SnapshotCache,
	weights scoring.Weights,
	cfg Config,
	logger zerolog.Logger,
) *Aggregator {
	if cfg.CandidateLimit <= 0 {
		cfg.CandidateLimit = 50
	}
	return &Aggregator{
		curve:     curve,
		pairs:     pairs,
		transfers: transfers,
		trending:  trending,
		recoverer: recoverer,
		cache:     cache,
		weights:   weights,
		cfg:       cfg,
		logger:    logger.With().Str("component", "aggregator").Logger(),
	}
}

// Refresh returns the current token snapshot, rebuilding it when the
// cached one has aged past the TTL. Partial upstream failure degrades
// the affected tokens to safe defaults; only a primary feed failure
// falls back to stale data or the placeholder set.
func (a *Aggregator) Refresh(ctx context.Context) ([]TokenRecord, error) {
	if a.cache.Fresh(a.cfg.SnapshotTTL) {
		tokens, _, _ := a.cache.Get()
		return tokens, nil
	}

	start := time.Now()

	candidates, err := a.curve.GetCandidates(ctx, a.cfg.CandidateLimit)
	if err != nil {
		return a.fallback(ctx, err)
	}

	tokens := a.buildRecords(candidates)
	if len(tokens) == 0 {
		return a.fallback(ctx, fmt.Errorf("candidate feed returned no usable tokens"))
	}

	addresses := make([]string, len(tokens))
	for i := range tokens {
		addresses[i] = tokens[i].Address
	}

	var (
		pairsByToken     map[string]services.PairInfo
		transfersByToken map[string][]rpc.TokenTransfer
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		pairsByToken = a.fetchPairs(gctx, addresses)
		return nil
	})
	g.Go(func() error {
		transfersByToken = a.fetchTransfers(gctx, addresses)
		return nil
	})
	// The fetchers degrade internally and never return an error; Wait
	// only propagates context cancellation.
	if err := g.Wait(); err != nil {
		return a.fallback(ctx, err)
	}

	now := time.Now()
	for i := range tokens {
		a.merge(&tokens[i], pairsByToken, transfersByToken)
		tokens[i].Score = scoring.Score(scoring.Inputs{
			Progress:           tokens[i].Progress,
			Volume24hUsd:       tokens[i].Volume24hUsd,
			LiquidityUsd:       tokens[i].LiquidityUsd,
			VolumeChange24hPct: tokens[i].PriceChange24hPct,
			WhaleInflowUsd:     tokens[i].WhaleInflowUsd,
			RugRisk:            tokens[i].RugRisk,
		}, a.weights)
		tokens[i].ObservedAt = now
	}

	sort.SliceStable(tokens, func(i, j int) bool {
		return tokens[i].Score > tokens[j].Score
	})

	a.cache.Set(tokens)
	metrics.RecordRefresh(time.Since(start).Seconds())
	metrics.TokensScored.Set(float64(len(tokens)))

	a.logger.Info().
		Int("tokens", len(tokens)).
		Dur("elapsed", time.Since(start)).
		Msg("Market snapshot refreshed")

	return tokens, nil
}

// buildRecords maps curve candidates to token records, routing mint
// addresses through recovery. Unrecoverable addresses are skipped and
// logged, never used as RPC keys.
func (a *Aggregator) buildRecords(candidates []services.CurveCandidate) []TokenRecord {
	tokens := make([]TokenRecord, 0, len(candidates))
	seen := make(map[string]bool, len(candidates))

	for _, c := range candidates {
		if c.Complete {
			continue
		}

		mint, ok := a.recoverer.Recover(c.Mint)
		if !ok {
			a.logger.Warn().
				Str("raw_mint", c.Mint).
				Str("symbol", c.Symbol).
				Msg("Skipping candidate with unrecoverable mint address")
			continue
		}
		if seen[mint] {
			continue
		}
		seen[mint] = true

		tokens = append(tokens, TokenRecord{
			Address:  mint,
			Name:     c.Name,
			Symbol:   c.Symbol,
			Progress: c.Progress,
		})
	}

	return tokens
}

// fetchPairs performs chunked batch lookups against the market-pair
// provider, pausing between chunks to respect its rate limits. A failed
// chunk leaves its tokens on defaults.
func (a *Aggregator) fetchPairs(ctx context.Context, addresses []string) map[string]services.PairInfo {
	out := make(map[string]services.PairInfo, len(addresses))

	for start := 0; start < len(addresses); start += services.MaxPairAddressesPerCall {
		end := start + services.MaxPairAddressesPerCall
		if end > len(addresses) {
			end = len(addresses)
		}
		chunk := addresses[start:end]

		if start > 0 && a.cfg.PairChunkDelay > 0 {
			select {
			case <-time.After(a.cfg.PairChunkDelay):
			case <-ctx.Done():
				return out
			}
		}

		pairs, err := a.pairs.GetPairsBatch(ctx, chunk)
		if err != nil {
			a.logger.Warn().
				Err(err).
				Int("chunk_size", len(chunk)).
				Msg("Pair batch lookup failed, tokens keep default market data")
			continue
		}

		// Keep the deepest pair per token when the provider returns several
		for _, p := range pairs {
			existing, ok := out[p.BaseToken.Address]
			if !ok || p.Liquidity.Usd > existing.Liquidity.Usd {
				out[p.BaseToken.Address] = p
			}
		}
	}

	return out
}

// fetchTransfers pulls recent transfers for all tokens in one batched
// call and groups them by mint. Failure degrades every token to zero
// whale activity.
func (a *Aggregator) fetchTransfers(ctx context.Context, addresses []string) map[string][]rpc.TokenTransfer {
	out := make(map[string][]rpc.TokenTransfer)

	transfers, err := a.transfers.GetTokenTransfers(ctx, addresses, transferFetchLimit)
	if err != nil {
		a.logger.Warn().
			Err(err).
			Int("tokens", len(addresses)).
			Msg("Transfer summary fetch failed, tokens keep zero whale activity")
		return out
	}

	for _, t := range transfers {
		out[t.Mint] = append(out[t.Mint], t)
	}
	return out
}

// merge folds pair data and transfer summaries into one token record
func (a *Aggregator) merge(token *TokenRecord, pairs map[string]services.PairInfo, transfers map[string][]rpc.TokenTransfer) {
	if pair, ok := pairs[token.Address]; ok {
		token.PriceUsd = pair.Price()
		token.LiquidityUsd = pair.Liquidity.Usd
		token.Volume24hUsd = pair.Volume.H24
		token.PriceChange24hPct = pair.PriceChange.H24
		if pair.BaseToken.Name != "" {
			token.Name = pair.BaseToken.Name
		}
	}

	token.RugRisk = estimateRugRisk(*token)

	for _, t := range transfers[token.Address] {
		usd := t.AmountTokens * token.PriceUsd
		if usd >= a.cfg.WhaleMinUsd {
			token.WhaleCount++
			token.WhaleInflowUsd += usd
		}
	}
}

// estimateRugRisk derives a rough 0-100 risk figure from liquidity
// depth and curve maturity. Thin books early on the curve carry most of
// the rug risk.
func estimateRugRisk(token TokenRecord) float64 {
	risk := 50.0

	switch {
	case token.LiquidityUsd >= 100_000:
		risk -= 30
	case token.LiquidityUsd >= 25_000:
		risk -= 15
	case token.LiquidityUsd < 5_000:
		risk += 25
	}

	if token.Progress >= 80 {
		risk -= 10
	} else if token.Progress < 20 {
		risk += 10
	}

	if risk < 0 {
		return 0
	}
	if risk > 100 {
		return 100
	}
	return risk
}

// fallback serves the last cached snapshot while it is within the
// relaxed staleness window, then the trending feed, then the
// deterministic placeholder set. The dashboard never hard-fails on an
// upstream outage.
func (a *Aggregator) fallback(ctx context.Context, cause error) ([]TokenRecord, error) {
	if tokens, setAt, ok := a.cache.Get(); ok && time.Since(setAt) < a.cfg.StaleSnapshotMax {
		a.logger.Warn().
			Err(cause).
			Time("snapshot_at", setAt).
			Msg("Primary feed failed, serving stale snapshot")
		return tokens, nil
	}

	if tokens := a.trendingTokens(ctx); len(tokens) > 0 {
		a.logger.Warn().
			Err(cause).
			Int("tokens", len(tokens)).
			Msg("Primary feed failed, serving trending fallback")
		return tokens, nil
	}

	a.logger.Error().
		Err(cause).
		Msg("Primary feed failed with no usable snapshot, serving placeholders")
	return placeholderTokens(), nil
}

// trendingTokens builds unscored records from the trending feed. Market
// data and scores are absent; the set only keeps the dashboard alive
// until the primary feed recovers.
func (a *Aggregator) trendingTokens(ctx context.Context) []TokenRecord {
	if a.trending == nil {
		return nil
	}

	pairs, err := a.trending.GetTrendingPairs(ctx, trendingChainID)
	if err != nil {
		a.logger.Warn().Err(err).Msg("Trending fallback fetch failed")
		return nil
	}

	now := time.Now()
	tokens := make([]TokenRecord, 0, len(pairs))
	for _, p := range pairs {
		mint, ok := a.recoverer.Recover(p.TokenAddress)
		if !ok {
			continue
		}
		tokens = append(tokens, TokenRecord{
			Address:    mint,
			Name:       p.Name,
			Symbol:     p.Symbol,
			ObservedAt: now,
		})
	}
	return tokens
}

// placeholderTokens is the fixed fallback set served when no real data
// is available
func placeholderTokens() []TokenRecord {
	now := time.Now()
	return []TokenRecord{
		{
			Address:    "So11111111111111111111111111111111111111112",
			Name:       "Wrapped SOL",
			Symbol:     "SOL",
			Progress:   100,
			RugRisk:    0,
			ObservedAt: now,
		},
	}
}
