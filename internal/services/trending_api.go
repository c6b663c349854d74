package services

import (
	"context"
	"fmt"

	"github.com/wnt/curvewatch/internal/utils"
)

// TrendingClient talks to the trending-pairs provider, which returns
// ranked pairs for a chain
type TrendingClient struct {
	httpClient *utils.HTTPClient
}

// NewTrendingClient creates a new client for the trending-pairs API
func NewTrendingClient(baseURL string) *TrendingClient {
	return &TrendingClient{
		httpClient: utils.NewHTTPClient(
			utils.WithBaseURL(baseURL),
			utils.WithDefaultHeaders(map[string]string{
				"Accept": "application/json",
			}),
		),
	}
}

// TrendingPair represents one ranked entry from the trending feed
type TrendingPair struct {
	TokenAddress string `json:"tokenAddress"`
	ChainID      string `json:"chainId"`
	Name         string `json:"name"`
	Symbol       string `json:"symbol"`
	Rank         int    `json:"rank"`
}

// GetTrendingPairs fetches the ranked pairs for a chain
func (c *TrendingClient) GetTrendingPairs(ctx context.Context, chainID string) ([]TrendingPair, error) {
	response, err := c.httpClient.Get(ctx, "", map[string]string{"chainId": chainID})
	if err != nil {
		return nil, err
	}

	var pairs []TrendingPair
	if err := response.DecodeJSON(&pairs); err != nil {
		return nil, fmt.Errorf("malformed trending response: %w", err)
	}

	return pairs, nil
}
