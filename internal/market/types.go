package market

import "time"

// TokenRecord is the unified per-token view built each aggregation
// cycle. Records are ephemeral: they live in the snapshot cache and are
// rebuilt on every refresh, never persisted with full fidelity.
type TokenRecord struct {
	Address           string
	Name              string
	Symbol            string
	Progress          float64 // bonding-curve completion, 0-100
	LiquidityUsd      float64
	PriceUsd          float64
	Volume24hUsd      float64
	PriceChange24hPct float64
	Score             float64
	WhaleCount        int
	WhaleInflowUsd    float64
	RugRisk           float64 // 0-100
	ObservedAt        time.Time
}
