package market

import (
	"context"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wnt/curvewatch/internal/address"
	"github.com/wnt/curvewatch/internal/rpc"
	"github.com/wnt/curvewatch/internal/scoring"
	"github.com/wnt/curvewatch/internal/services"
)

type fakeCurve struct {
	candidates []services.CurveCandidate
	err        error
	calls      int
}

func (f *fakeCurve) GetCandidates(ctx context.Context, limit int) ([]services.CurveCandidate, error) {
	f.calls++
	return f.candidates, f.err
}

type fakePairs struct {
	pairs []services.PairInfo
	err   error
	calls int
}

func (f *fakePairs) GetPairsBatch(ctx context.Context, addresses []string) ([]services.PairInfo, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.pairs, nil
}

type fakeTransfers struct {
	transfers []rpc.TokenTransfer
	err       error
}

func (f *fakeTransfers) GetTokenTransfers(ctx context.Context, mints []string, limit int) ([]rpc.TokenTransfer, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.transfers, nil
}

type fakeTrending struct {
	pairs []services.TrendingPair
	err   error
}

func (f *fakeTrending) GetTrendingPairs(ctx context.Context, chainID string) ([]services.TrendingPair, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.pairs, nil
}

func testMint(t *testing.T) string {
	t.Helper()
	return solana.NewWallet().PublicKey().String()
}

func newTestAggregator(curve *fakeCurve, pairs *fakePairs, transfers *fakeTransfers, cfg Config) *Aggregator {
	return NewAggregator(
		curve, pairs, transfers,
		&fakeTrending{err: assert.AnError},
		address.NewRecoverer(),
		NewSnapshotCache(),
		scoring.DefaultWeights,
		cfg,
		zerolog.Nop(),
	)
}

func defaultTestConfig() Config {
	return Config{
		SnapshotTTL:      30 * time.Second,
		StaleSnapshotMax: 10 * time.Minute,
		WhaleMinUsd:      1000,
	}
}

func TestRefresh(t *testing.T) {
	t.Run("builds scored records from all three feeds", func(t *testing.T) {
		mint1 := testMint(t)
		mint2 := testMint(t)

		curve := &fakeCurve{candidates: []services.CurveCandidate{
			{Mint: mint1, Name: "Alpha", Symbol: "ALPH", Progress: 60},
			{Mint: mint2, Name: "Beta", Symbol: "BETA", Progress: 30},
			{Mint: testMint(t), Name: "Done", Symbol: "DONE", Progress: 100, Complete: true},
		}}
		pairs := &fakePairs{pairs: []services.PairInfo{
			{
				BaseToken:   services.PairToken{Address: mint1, Name: "Alpha Token"},
				PriceUsd:    "10",
				Liquidity:   services.PairLiquidity{Usd: 50_000},
				Volume:      services.PairVolume{H24: 100_000},
				PriceChange: services.PairPriceChange{H24: 12},
			},
		}}
		transfers := &fakeTransfers{transfers: []rpc.TokenTransfer{
			{Signature: "sig1", Mint: mint1, Direction: "transfer", AmountTokens: 500},
			{Signature: "sig2", Mint: mint1, Direction: "transfer", AmountTokens: 10}, // $100, below floor
		}}

		agg := newTestAggregator(curve, pairs, transfers, defaultTestConfig())

		tokens, err := agg.Refresh(context.Background())
		require.NoError(t, err)
		require.Len(t, tokens, 2, "completed candidates must be excluded")

		byAddr := make(map[string]TokenRecord, len(tokens))
		for _, tok := range tokens {
			byAddr[tok.Address] = tok
		}

		alpha := byAddr[mint1]
		assert.Equal(t, "Alpha Token", alpha.Name, "pair data overrides the candidate name")
		assert.Equal(t, 10.0, alpha.PriceUsd)
		assert.Equal(t, 50_000.0, alpha.LiquidityUsd)
		assert.Equal(t, 100_000.0, alpha.Volume24hUsd)
		assert.Equal(t, 1, alpha.WhaleCount, "only the transfer above the floor counts")
		assert.Equal(t, 5_000.0, alpha.WhaleInflowUsd)
		assert.Greater(t, alpha.Score, 0.0)
		assert.False(t, alpha.ObservedAt.IsZero())

		beta := byAddr[mint2]
		assert.Zero(t, beta.LiquidityUsd)
		assert.Zero(t, beta.WhaleCount)

		// Descending score order
		for i := 1; i < len(tokens); i++ {
			assert.GreaterOrEqual(t, tokens[i-1].Score, tokens[i].Score)
		}
	})

	t.Run("pair feed failure degrades tokens to defaults", func(t *testing.T) {
		candidates := []services.CurveCandidate{
			{Mint: testMint(t), Symbol: "AAA", Progress: 10},
			{Mint: testMint(t), Symbol: "BBB", Progress: 20},
			{Mint: testMint(t), Symbol: "CCC", Progress: 30},
		}
		curve := &fakeCurve{candidates: candidates}
		pairs := &fakePairs{err: assert.AnError}
		transfers := &fakeTransfers{err: assert.AnError}

		agg := newTestAggregator(curve, pairs, transfers, defaultTestConfig())

		tokens, err := agg.Refresh(context.Background())
		require.NoError(t, err, "partial upstream failure is not a refresh failure")
		require.Len(t, tokens, 3, "every candidate survives with defaults")

		for _, tok := range tokens {
			assert.Zero(t, tok.PriceUsd)
			assert.Zero(t, tok.LiquidityUsd)
			assert.Zero(t, tok.WhaleCount)
		}
	})

	t.Run("recovers corrupted mint addresses", func(t *testing.T) {
		mint := testMint(t)
		corrupted := mint[:15] + "pump" + mint[15:]

		curve := &fakeCurve{candidates: []services.CurveCandidate{
			{Mint: corrupted, Symbol: "FIX", Progress: 40},
		}}
		agg := newTestAggregator(curve, &fakePairs{}, &fakeTransfers{}, defaultTestConfig())

		tokens, err := agg.Refresh(context.Background())
		require.NoError(t, err)
		require.Len(t, tokens, 1)
		assert.Equal(t, mint, tokens[0].Address)
	})

	t.Run("skips unrecoverable mints and dedupes repeats", func(t *testing.T) {
		mint := testMint(t)
		curve := &fakeCurve{candidates: []services.CurveCandidate{
			{Mint: mint, Symbol: "REAL", Progress: 40},
			{Mint: mint, Symbol: "REAL", Progress: 40},
			{Mint: "not-a-mint-at-all", Symbol: "BAD", Progress: 40},
		}}
		agg := newTestAggregator(curve, &fakePairs{}, &fakeTransfers{}, defaultTestConfig())

		tokens, err := agg.Refresh(context.Background())
		require.NoError(t, err)
		require.Len(t, tokens, 1)
		assert.Equal(t, mint, tokens[0].Address)
	})

	t.Run("fresh cache short-circuits the feeds", func(t *testing.T) {
		curve := &fakeCurve{candidates: []services.CurveCandidate{
			{Mint: testMint(t), Symbol: "ONE", Progress: 50},
		}}
		agg := newTestAggregator(curve, &fakePairs{}, &fakeTransfers{}, defaultTestConfig())

		_, err := agg.Refresh(context.Background())
		require.NoError(t, err)
		_, err = agg.Refresh(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 1, curve.calls, "second refresh within the TTL must reuse the snapshot")
	})

	t.Run("primary failure serves a stale snapshot within the window", func(t *testing.T) {
		curve := &fakeCurve{err: assert.AnError}
		agg := newTestAggregator(curve, &fakePairs{}, &fakeTransfers{}, defaultTestConfig())

		stale := []TokenRecord{{Address: "cached", Score: 55}}
		agg.cache.Set(stale)
		agg.cache.setAt = time.Now().Add(-time.Minute) // past TTL, within the stale window

		tokens, err := agg.Refresh(context.Background())
		require.NoError(t, err)
		assert.Equal(t, stale, tokens)
	})

	t.Run("primary failure with nothing cached serves the trending feed", func(t *testing.T) {
		mint := testMint(t)
		trending := &fakeTrending{pairs: []services.TrendingPair{
			{TokenAddress: mint, ChainID: "solana", Name: "Trendy", Symbol: "TRND", Rank: 1},
			{TokenAddress: "garbage-address", ChainID: "solana", Symbol: "BAD", Rank: 2},
		}}
		agg := NewAggregator(
			&fakeCurve{err: assert.AnError}, &fakePairs{}, &fakeTransfers{}, trending,
			address.NewRecoverer(), NewSnapshotCache(), scoring.DefaultWeights,
			defaultTestConfig(), zerolog.Nop(),
		)

		tokens, err := agg.Refresh(context.Background())
		require.NoError(t, err)
		require.Len(t, tokens, 1, "unrecoverable trending addresses are dropped")
		assert.Equal(t, mint, tokens[0].Address)
		assert.Equal(t, "TRND", tokens[0].Symbol)
		assert.Zero(t, tokens[0].Score)
	})

	t.Run("primary and trending failure serves placeholders", func(t *testing.T) {
		curve := &fakeCurve{err: assert.AnError}
		agg := newTestAggregator(curve, &fakePairs{}, &fakeTransfers{}, defaultTestConfig())

		tokens, err := agg.Refresh(context.Background())
		require.NoError(t, err)
		require.Len(t, tokens, 1)
		assert.Equal(t, "So11111111111111111111111111111111111111112", tokens[0].Address)
	})

	t.Run("empty candidate feed falls back", func(t *testing.T) {
		curve := &fakeCurve{}
		agg := newTestAggregator(curve, &fakePairs{}, &fakeTransfers{}, defaultTestConfig())

		tokens, err := agg.Refresh(context.Background())
		require.NoError(t, err)
		require.Len(t, tokens, 1, "placeholder set expected")
	})
}

func TestFetchPairsKeepsDeepestPair(t *testing.T) {
	mint := testMint(t)
	pairs := &fakePairs{pairs: []services.PairInfo{
		{BaseToken: services.PairToken{Address: mint}, PriceUsd: "1", Liquidity: services.PairLiquidity{Usd: 1_000}},
		{BaseToken: services.PairToken{Address: mint}, PriceUsd: "2", Liquidity: services.PairLiquidity{Usd: 9_000}},
	}}
	agg := newTestAggregator(&fakeCurve{}, pairs, &fakeTransfers{}, defaultTestConfig())

	out := agg.fetchPairs(context.Background(), []string{mint})
	require.Contains(t, out, mint)
	assert.Equal(t, 9_000.0, out[mint].Liquidity.Usd)
}

func TestEstimateRugRisk(t *testing.T) {
	tests := []struct {
		name  string
		token TokenRecord
		want  float64
	}{
		{"deep liquidity late curve", TokenRecord{LiquidityUsd: 150_000, Progress: 90}, 10},
		{"mid liquidity mid curve", TokenRecord{LiquidityUsd: 30_000, Progress: 50}, 35},
		{"thin book early curve", TokenRecord{LiquidityUsd: 1_000, Progress: 5}, 85},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, estimateRugRisk(tt.token))
		})
	}
}
