// Package scoring computes the composite opportunity score for a token.
// Everything here is pure: no I/O, no shared state, identical inputs
// always produce identical output.
package scoring

// Weights is the tuning table for the composite score. Weight changes
// never require touching call sites.
type Weights struct {
	CurveSpeed  float64
	Momentum    float64
	WhaleInflow float64
	Safety      float64

	// WhaleInflowScaleUsd is the inflow at which the whale component
	// saturates at 100.
	WhaleInflowScaleUsd float64
}

// DefaultWeights is the production tuning. The four weights sum to 1 so
// the composite stays on the 0-100 scale.
var DefaultWeights = Weights{
	CurveSpeed:          0.35,
	Momentum:            0.25,
	WhaleInflow:         0.25,
	Safety:              0.15,
	WhaleInflowScaleUsd: 50_000,
}

// Inputs are the raw signals for one token.
type Inputs struct {
	Progress           float64 // bonding-curve completion, 0-100
	Volume24hUsd       float64
	LiquidityUsd       float64
	VolumeChange24hPct float64
	WhaleInflowUsd     float64
	RugRisk            float64 // 0-100, higher is riskier
}

// CurveSpeed measures volume pressure relative to liquidity, amplified
// as the curve nears completion. Progress is clamped to [0,100] before
// the multiplier so out-of-range upstream values cannot push speed past
// its cap. Result is in [0,10].
func CurveSpeed(volume24hUsd, liquidityUsd, progress float64) float64 {
	if liquidityUsd <= 0 {
		return 0
	}
	progress = clamp(progress, 0, 100)
	ratio := volume24hUsd / liquidityUsd
	multiplier := 1 + progress/100
	return clamp(ratio*5*multiplier, 0, 10)
}

// Score combines the signals into a composite score in [0,100].
func Score(in Inputs, w Weights) float64 {
	speed := CurveSpeed(in.Volume24hUsd, in.LiquidityUsd, in.Progress)
	speedComponent := speed / 10 * 100

	// A 24h volume change of +100% maps to the top of the momentum band
	momentumComponent := clamp(50+in.VolumeChange24hPct/2, 0, 100)

	whaleComponent := 0.0
	if w.WhaleInflowScaleUsd > 0 {
		whaleComponent = clamp(in.WhaleInflowUsd/w.WhaleInflowScaleUsd*100, 0, 100)
	}

	safetyComponent := 100 - clamp(in.RugRisk, 0, 100)

	composite := w.CurveSpeed*speedComponent +
		w.Momentum*momentumComponent +
		w.WhaleInflow*whaleComponent +
		w.Safety*safetyComponent

	return clamp(composite, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
