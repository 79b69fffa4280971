package defillama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/songzhibin97/deepdive/internal/data"
	"github.com/songzhibin97/deepdive/internal/models"
	"github.com/songzhibin97/deepdive/internal/utils/request"
)

const sourceName = "defillama"

// derived buckets reported next to the real chains
var derivedBuckets = map[string]bool{
	"borrowed":      true,
	"staking":       true,
	"pool2":         true,
	"vesting":       true,
	"offers":        true,
	"doublecounted": true,
	"liquidstaking": true,
}

type DefiLlamaDataSource struct {
	baseURL    string
	httpClient *resty.Client
}

func NewDefiLlamaDataSource(baseURL string, timeout time.Duration) *DefiLlamaDataSource {
	return &DefiLlamaDataSource{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: request.New(timeout),
	}
}

func (d *DefiLlamaDataSource) Name() string {
	return sourceName
}

// ProtocolSummary is one entry of /protocols.
type ProtocolSummary struct {
	Name     string   `json:"name"`
	Slug     string   `json:"slug"`
	TVL      *float64 `json:"tvl"`
	Change1d *float64 `json:"change_1d"`
	Change7d *float64 `json:"change_7d"`
	Mcap     *float64 `json:"mcap"`
}

// ProtocolDetail is the subset of /protocol/{slug} the pipeline consumes.
type ProtocolDetail struct {
	Name string `json:"name"`
	TVL  []struct {
		Date              int64   `json:"date"`
		TotalLiquidityUSD float64 `json:"totalLiquidityUSD"`
	} `json:"tvl"`
	CurrentChainTvls map[string]float64 `json:"currentChainTvls"`
}

func (d *DefiLlamaDataSource) get(ctx context.Context, op, path string, out interface{}) error {
	resp, err := d.httpClient.R().SetContext(ctx).Get(d.baseURL + path)
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

// SearchProtocol returns the first protocol whose name contains name, case-insensitively.
func (d *DefiLlamaDataSource) SearchProtocol(ctx context.Context, name string) (*ProtocolSummary, error) {
	var protocols []ProtocolSummary
	if err := d.get(ctx, "search", "/protocols", &protocols); err != nil {
		return nil, err
	}

	needle := strings.ToLower(name)
	for i := range protocols {
		if protocols[i].Slug != "" && strings.Contains(strings.ToLower(protocols[i].Name), needle) {
			return &protocols[i], nil
		}
	}
	return nil, data.NewProviderError(sourceName, "search", data.ErrNotFound, fmt.Errorf("no protocol matches %q", name))
}

// GetProtocol fetches the detail entity for slug.
func (d *DefiLlamaDataSource) GetProtocol(ctx context.Context, slug string) (*ProtocolDetail, error) {
	var detail ProtocolDetail
	if err := d.get(ctx, "protocol", "/protocol/"+slug, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// CollectProtocolMetrics implements data.ProtocolSource
func (d *DefiLlamaDataSource) CollectProtocolMetrics(ctx context.Context, name string) (*models.ProtocolMetrics, error) {
	if strings.TrimSpace(name) == "" {
		return nil, data.NewProviderError(sourceName, "search", data.ErrNotFound, fmt.Errorf("empty protocol name"))
	}

	summary, err := d.SearchProtocol(ctx, name)
	if err != nil {
		return nil, err
	}

	detail, err := d.GetProtocol(ctx, summary.Slug)
	if err != nil {
		return nil, err
	}

	return metricsOf(summary, detail), nil
}

func metricsOf(summary *ProtocolSummary, detail *ProtocolDetail) *models.ProtocolMetrics {
	metrics := &models.ProtocolMetrics{
		Change1d: summary.Change1d,
		Change7d: summary.Change7d,
	}

	if n := len(detail.TVL); n > 0 {
		metrics.TVL = models.Float(detail.TVL[n-1].TotalLiquidityUSD)
	} else if summary.TVL != nil {
		metrics.TVL = summary.TVL
	}

	chains := make(map[string]float64, len(detail.CurrentChainTvls))
	for chain, tvl := range detail.CurrentChainTvls {
		if isDerivedBucket(chain) {
			continue
		}
		chains[chain] = tvl
	}
	if len(chains) > 0 {
		metrics.ChainTVLs = chains
	}

	if summary.Mcap != nil && metrics.TVL != nil && *metrics.TVL > 0 {
		metrics.McapTVLRatio = models.Float(*summary.Mcap / *metrics.TVL)
	}

	return metrics
}

// isDerivedBucket reports keys like "borrowed" or "Ethereum-staking".
func isDerivedBucket(key string) bool {
	lower := strings.ToLower(key)
	if derivedBuckets[lower] {
		return true
	}
	// 只看最后一段, 名称本身带连字符的链保留
	if i := strings.LastIndex(lower, "-"); i >= 0 {
		return derivedBuckets[lower[i+1:]]
	}
	return false
}
