package services

import (
	"context"
	"fmt"
	"strconv"

	"github.com/wnt/curvewatch/internal/utils"
)

// CurveClient talks to the bonding-curve platform API that lists
// candidate tokens still on their pricing curve
type CurveClient struct {
	httpClient *utils.HTTPClient
}

// NewCurveClient creates a new client for the bonding-curve API
func NewCurveClient(baseURL string) *CurveClient {
	return &CurveClient{
		httpClient: utils.NewHTTPClient(
			utils.WithBaseURL(baseURL),
			utils.WithDefaultHeaders(map[string]string{
				"Accept": "application/json",
			}),
		),
	}
}

// CurveCandidate represents one token on the bonding curve. Mint
// addresses from this feed are the ones observed to arrive corrupted,
// so callers must route them through address recovery before use.
type CurveCandidate struct {
	Mint         string  `json:"mint"`
	Name         string  `json:"name"`
	Symbol       string  `json:"symbol"`
	Progress     float64 `json:"bonding_curve_progress"`
	UsdMarketCap float64 `json:"usd_market_cap"`
	Complete     bool    `json:"complete"`
	CreatedAt    int64   `json:"created_timestamp"`
}

// GetCandidates fetches up to limit tokens currently on the curve,
// ordered by recent activity
func (c *CurveClient) GetCandidates(ctx context.Context, limit int) ([]CurveCandidate, error) {
	response, err := c.httpClient.Get(ctx, "/coins", map[string]string{
		"limit": strconv.Itoa(limit),
		"sort":  "last_trade_timestamp",
	})
	if err != nil {
		return nil, err
	}

	var candidates []CurveCandidate
	if err := response.DecodeJSON(&candidates); err != nil {
		return nil, fmt.Errorf("malformed curve candidates response: %w", err)
	}

	return candidates, nil
}
