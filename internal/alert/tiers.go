package alert

import "github.com/wnt/curvewatch/internal/models"

// TierParams are the per-tier alert defaults: used when a subscription
// carries no explicit threshold, and as the daily delivery quota.
type TierParams struct {
	DailyQuota        int
	ScoreThreshold    float64
	ProgressThreshold float64
}

var tierTable = map[models.Tier]TierParams{
	models.TierFree:     {DailyQuota: 1, ScoreThreshold: 80, ProgressThreshold: 90},
	models.TierPro:      {DailyQuota: 10, ScoreThreshold: 70, ProgressThreshold: 80},
	models.TierUltimate: {DailyQuota: 100, ScoreThreshold: 60, ProgressThreshold: 70},
}

// ParamsFor returns the parameters for a tier, defaulting unknown tiers
// to free
func ParamsFor(tier models.Tier) TierParams {
	if params, ok := tierTable[tier]; ok {
		return params
	}
	return tierTable[models.TierFree]
}
