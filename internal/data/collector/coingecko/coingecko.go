package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/songzhibin97/deepdive/internal/data"
	"github.com/songzhibin97/deepdive/internal/models"
	"github.com/songzhibin97/deepdive/internal/utils/request"
)

const (
	sourceName = "coingecko"

	// referencePlatform is preferred when a coin is deployed on several chains.
	referencePlatform = "ethereum"
)

type CoinGeckoDataSource struct {
	baseURL    string
	apiKey     string
	httpClient *resty.Client
}

func NewCoinGeckoDataSource(baseURL, apiKey string, timeout time.Duration) *CoinGeckoDataSource {
	return &CoinGeckoDataSource{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: request.New(timeout),
	}
}

func (c *CoinGeckoDataSource) Name() string {
	return sourceName
}

// CoinData is the subset of /coins/{id} the pipeline consumes.
type CoinData struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Links  struct {
		Homepage []string `json:"homepage"`
	} `json:"links"`
	Description struct {
		En string `json:"en"`
	} `json:"description"`
	Platforms  map[string]string `json:"platforms"`
	MarketData struct {
		CurrentPrice             map[string]*float64 `json:"current_price"`
		MarketCap                map[string]*float64 `json:"market_cap"`
		FullyDilutedValuation    map[string]*float64 `json:"fully_diluted_valuation"`
		TotalVolume              map[string]*float64 `json:"total_volume"`
		PriceChangePercentage24h *float64            `json:"price_change_percentage_24h"`
		PriceChangePercentage7d  *float64            `json:"price_change_percentage_7d"`
		TotalSupply              *float64            `json:"total_supply"`
		CirculatingSupply        *float64            `json:"circulating_supply"`
		MaxSupply                *float64            `json:"max_supply"`
	} `json:"market_data"`
}

func (c *CoinGeckoDataSource) get(ctx context.Context, op, path string, params map[string]string, out interface{}) error {
	req := c.httpClient.R().SetContext(ctx).SetQueryParams(params)
	if c.apiKey != "" {
		req.SetHeader("x-cg-demo-api-key", c.apiKey)
	}

	resp, err := req.Get(c.baseURL + path)
	if err != nil {
		return data.NewProviderError(sourceName, op, data.ErrUnavailable, fmt.Errorf("failed to execute request: %w", err))
	}

	if resp.StatusCode() != http.StatusOK {
		return data.StatusError(sourceName, op, resp.StatusCode())
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return data.NewProviderError(sourceName, op, data.ErrMalformed, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

// SearchCoin returns the id of the first coin matching query.
func (c *CoinGeckoDataSource) SearchCoin(ctx context.Context, query string) (string, error) {
	var result struct {
		Coins []struct {
			ID string `json:"id"`
		} `json:"coins"`
	}

	if err := c.get(ctx, "search", "/search", map[string]string{"query": query}, &result); err != nil {
		return "", err
	}

	if len(result.Coins) == 0 || result.Coins[0].ID == "" {
		return "", data.NewProviderError(sourceName, "search", data.ErrNotFound, fmt.Errorf("no coin matches %q", query))
	}
	return result.Coins[0].ID, nil
}

// GetCoinData fetches the full entity for a coin id.
func (c *CoinGeckoDataSource) GetCoinData(ctx context.Context, coinID string) (*CoinData, error) {
	params := map[string]string{
		"localization":   "false",
		"tickers":        "false",
		"community_data": "true",
		"developer_data": "true",
	}

	var coin CoinData
	if err := c.get(ctx, "coin", "/coins/"+coinID, params, &coin); err != nil {
		return nil, err
	}
	return &coin, nil
}

// ResolveContractAddress returns the coin's contract address, preferring the reference chain.
// It is the standalone form of Profile.ContractAddress in CollectMarketData and costs a
// second coin fetch, so the collector does not call it.
func (c *CoinGeckoDataSource) ResolveContractAddress(ctx context.Context, coinID string) (*string, error) {
	coin, err := c.GetCoinData(ctx, coinID)
	if err != nil {
		return nil, err
	}
	return contractAddress(coin.Platforms), nil
}

// CollectMarketData implements data.MarketSource
func (c *CoinGeckoDataSource) CollectMarketData(ctx context.Context, name string) (*models.MarketSnapshot, error) {
	coinID, err := c.SearchCoin(ctx, name)
	if err != nil {
		return nil, err
	}

	coin, err := c.GetCoinData(ctx, coinID)
	if err != nil {
		return nil, err
	}

	return snapshotOf(coin), nil
}

func snapshotOf(coin *CoinData) *models.MarketSnapshot {
	md := coin.MarketData

	snapshot := &models.MarketSnapshot{
		TokenMetrics: models.TokenMetrics{
			Price:                 md.CurrentPrice["usd"],
			MarketCap:             md.MarketCap["usd"],
			FullyDilutedValuation: md.FullyDilutedValuation["usd"],
			Volume24h:             md.TotalVolume["usd"],
			PriceChange24h:        md.PriceChangePercentage24h,
			PriceChange7d:         md.PriceChangePercentage7d,
		},
		Tokenomics: models.Tokenomics{
			TotalSupply:       md.TotalSupply,
			CirculatingSupply: md.CirculatingSupply,
			MaxSupply:         md.MaxSupply,
		},
		Profile: models.ProjectProfile{
			ContractAddress: contractAddress(coin.Platforms),
		},
	}

	if coin.Symbol != "" {
		snapshot.Profile.Symbol = models.String(strings.ToUpper(coin.Symbol))
	}
	if coin.Description.En != "" {
		snapshot.Profile.Description = models.String(coin.Description.En)
	}
	for _, homepage := range coin.Links.Homepage {
		if homepage != "" {
			snapshot.Profile.Website = models.String(homepage)
			break
		}
	}

	return snapshot
}

// contractAddress picks the reference chain's address, else the first non-empty one by chain name.
func contractAddress(platforms map[string]string) *string {
	if addr := platforms[referencePlatform]; addr != "" {
		return models.String(addr)
	}

	chains := make([]string, 0, len(platforms))
	for chain := range platforms {
		chains = append(chains, chain)
	}
	sort.Strings(chains)

	for _, chain := range chains {
		if addr := platforms[chain]; addr != "" {
			return models.String(addr)
		}
	}
	return nil
}
