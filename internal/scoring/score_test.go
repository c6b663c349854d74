package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurveSpeed(t *testing.T) {
	tests := []struct {
		name      string
		volume    float64
		liquidity float64
		progress  float64
		want      float64
	}{
		{
			name:      "zero liquidity yields zero speed",
			volume:    50_000,
			liquidity: 0,
			progress:  50,
			want:      0,
		},
		{
			name:      "negative liquidity yields zero speed",
			volume:    50_000,
			liquidity: -100,
			progress:  50,
			want:      0,
		},
		{
			name:      "ratio 1 at mid curve",
			volume:    10_000,
			liquidity: 10_000,
			progress:  50,
			want:      7.5, // 1 * 5 * 1.5
		},
		{
			name:      "high pressure capped at 10",
			volume:    1_000_000,
			liquidity: 1_000,
			progress:  90,
			want:      10,
		},
		{
			name:      "progress above 100 clamps before the multiplier",
			volume:    1_000,
			liquidity: 10_000,
			progress:  250,
			want:      1, // 0.1 * 5 * 2, not 0.1 * 5 * 3.5
		},
		{
			name:      "negative progress clamps to zero",
			volume:    1_000,
			liquidity: 10_000,
			progress:  -10,
			want:      0.5, // 0.1 * 5 * 1
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CurveSpeed(tt.volume, tt.liquidity, tt.progress)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestScore(t *testing.T) {
	t.Run("deterministic for identical inputs", func(t *testing.T) {
		in := Inputs{
			Progress:           65,
			Volume24hUsd:       42_000,
			LiquidityUsd:       18_500,
			VolumeChange24hPct: 37.2,
			WhaleInflowUsd:     12_345,
			RugRisk:            31,
		}

		first := Score(in, DefaultWeights)
		for i := 0; i < 100; i++ {
			assert.Equal(t, first, Score(in, DefaultWeights))
		}
	})

	t.Run("known component values", func(t *testing.T) {
		in := Inputs{
			Progress:           50,
			Volume24hUsd:       10_000,
			LiquidityUsd:       10_000,
			VolumeChange24hPct: 40,
			WhaleInflowUsd:     25_000,
			RugRisk:            20,
		}

		// speed = 7.5 -> component 75
		// momentum = 50 + 40/2 = 70
		// whale = 25000/50000 * 100 = 50
		// safety = 100 - 20 = 80
		want := 0.35*75 + 0.25*70 + 0.25*50 + 0.15*80
		assert.InDelta(t, want, Score(in, DefaultWeights), 1e-9)
	})

	t.Run("whale component saturates at the scale", func(t *testing.T) {
		base := Inputs{LiquidityUsd: 1, WhaleInflowUsd: DefaultWeights.WhaleInflowScaleUsd}
		over := base
		over.WhaleInflowUsd = DefaultWeights.WhaleInflowScaleUsd * 10

		assert.Equal(t, Score(base, DefaultWeights), Score(over, DefaultWeights))
	})

	t.Run("extreme inputs stay within 0-100", func(t *testing.T) {
		extremes := []Inputs{
			{},
			{Progress: 100, Volume24hUsd: 1e12, LiquidityUsd: 1, VolumeChange24hPct: 1e6, WhaleInflowUsd: 1e9},
			{Progress: -50, VolumeChange24hPct: -1e6, RugRisk: 1e6},
		}

		for _, in := range extremes {
			got := Score(in, DefaultWeights)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 100.0)
		}
	})

	t.Run("momentum band clamps", func(t *testing.T) {
		w := Weights{Momentum: 1}

		crash := Inputs{VolumeChange24hPct: -500}
		assert.Equal(t, 0.0, Score(crash, w))

		surge := Inputs{VolumeChange24hPct: 500}
		assert.Equal(t, 100.0, Score(surge, w))
	})

	t.Run("zero whale scale disables the whale component", func(t *testing.T) {
		w := Weights{WhaleInflow: 1, WhaleInflowScaleUsd: 0}
		in := Inputs{WhaleInflowUsd: 1_000_000}
		assert.Equal(t, 0.0, Score(in, w))
	})
}
