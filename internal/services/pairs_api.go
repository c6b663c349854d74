package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/wnt/curvewatch/internal/utils"
)

// MaxPairAddressesPerCall is the upstream's per-request address limit
const MaxPairAddressesPerCall = 30

// PairsClient talks to the market-pair data provider (price, volume,
// liquidity per pair, batched by token address)
type PairsClient struct {
	httpClient *utils.HTTPClient
}

// NewPairsClient creates a new client for the market-pair API
func NewPairsClient(baseURL string) *PairsClient {
	return &PairsClient{
		httpClient: utils.NewHTTPClient(
			utils.WithBaseURL(baseURL),
			utils.WithDefaultHeaders(map[string]string{
				"Accept": "application/json",
			}),
		),
	}
}

// PairLiquidity is the nested liquidity block of a pair
type PairLiquidity struct {
	Usd float64 `json:"usd"`
}

// PairVolume is the nested volume block of a pair
type PairVolume struct {
	H24 float64 `json:"h24"`
}

// PairPriceChange is the nested price-change block of a pair
type PairPriceChange struct {
	H24 float64 `json:"h24"`
}

// PairToken identifies one side of a pair
type PairToken struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

// PairInfo represents one market pair as returned by the provider.
// PriceUsd arrives as a string on the wire.
type PairInfo struct {
	ChainID     string          `json:"chainId"`
	PairAddress string          `json:"pairAddress"`
	BaseToken   PairToken       `json:"baseToken"`
	PriceUsd    string          `json:"priceUsd"`
	Liquidity   PairLiquidity   `json:"liquidity"`
	Volume      PairVolume      `json:"volume"`
	PriceChange PairPriceChange `json:"priceChange"`
	Fdv         float64         `json:"fdv"`
}

// Price returns the pair price as a float, 0 when absent or malformed
func (p PairInfo) Price() float64 {
	v, err := strconv.ParseFloat(p.PriceUsd, 64)
	if err != nil {
		return 0
	}
	return v
}

type pairsResponse struct {
	Pairs []PairInfo `json:"pairs"`
}

// GetPairsBatch fetches market data for up to MaxPairAddressesPerCall
// token addresses in one request
func (c *PairsClient) GetPairsBatch(ctx context.Context, addresses []string) ([]PairInfo, error) {
	if len(addresses) == 0 {
		return nil, nil
	}
	if len(addresses) > MaxPairAddressesPerCall {
		return nil, fmt.Errorf("batch of %d exceeds the %d-address limit", len(addresses), MaxPairAddressesPerCall)
	}

	path := fmt.Sprintf("/tokens/%s", strings.Join(addresses, ","))

	response, err := c.httpClient.Get(ctx, path, nil)
	if err != nil {
		return nil, err
	}

	var body pairsResponse
	if err := response.DecodeJSON(&body); err != nil {
		return nil, fmt.Errorf("malformed pairs response: %w", err)
	}

	return body.Pairs, nil
}
