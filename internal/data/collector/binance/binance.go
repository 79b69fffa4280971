package binance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"

	"github.com/songzhibin97/deepdive/internal/data"
	"github.com/songzhibin97/deepdive/internal/models"
)

const (
	sourceName = "binance"

	quoteAsset = "USDT"

	// 交易所返回的无效交易对错误码
	codeInvalidSymbol = -1121
)

// BinanceDataSource reads public 24h tickers. No key is needed for market data.
type BinanceDataSource struct {
	client *binance.Client
}

func NewBinanceDataSource(baseURL string, timeout time.Duration) *BinanceDataSource {
	client := binance.NewClient("", "")
	if baseURL != "" {
		client.BaseURL = strings.TrimRight(baseURL, "/")
	}
	client.HTTPClient = &http.Client{
		Timeout:   timeout,
		Transport: &http.Transport{Proxy: http.ProxyFromEnvironment},
	}

	return &BinanceDataSource{client: client}
}

func (b *BinanceDataSource) Name() string {
	return sourceName
}

// CollectTicker implements data.TickerSource
func (b *BinanceDataSource) CollectTicker(ctx context.Context, symbol string) (*models.TokenMetrics, error) {
	base := strings.ToUpper(strings.TrimSpace(symbol))
	if base == "" || base == quoteAsset {
		return nil, data.NewProviderError(sourceName, "ticker", data.ErrNotFound, fmt.Errorf("no %s pair for %q", quoteAsset, symbol))
	}
	pair := base + quoteAsset

	stats, err := b.client.NewListPriceChangeStatsService().Symbol(pair).Do(ctx)
	if err != nil {
		return nil, tickerError(pair, err)
	}
	if len(stats) == 0 || stats[0] == nil {
		return nil, data.NewProviderError(sourceName, "ticker", data.ErrNotFound, fmt.Errorf("no ticker for %s", pair))
	}

	return metricsOf(stats[0])
}

func tickerError(pair string, err error) error {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == codeInvalidSymbol {
			return data.NewProviderError(sourceName, "ticker", data.ErrNotFound, fmt.Errorf("%s: %w", pair, err))
		}
		return data.NewProviderError(sourceName, "ticker", data.ErrUnavailable, fmt.Errorf("%s: %w", pair, err))
	}
	return data.NewProviderError(sourceName, "ticker", data.ErrUnavailable, fmt.Errorf("failed to execute request: %w", err))
}

func metricsOf(stats *binance.PriceChangeStats) (*models.TokenMetrics, error) {
	price, err := strconv.ParseFloat(stats.LastPrice, 64)
	if err != nil {
		return nil, data.NewProviderError(sourceName, "ticker", data.ErrMalformed, fmt.Errorf("failed to parse price: %w", err))
	}

	// quote volume is denominated in USDT, comparable to the USD volume of the market-data provider
	volume, err := strconv.ParseFloat(stats.QuoteVolume, 64)
	if err != nil {
		return nil, data.NewProviderError(sourceName, "ticker", data.ErrMalformed, fmt.Errorf("failed to parse volume: %w", err))
	}

	priceChange, err := strconv.ParseFloat(stats.PriceChangePercent, 64)
	if err != nil {
		return nil, data.NewProviderError(sourceName, "ticker", data.ErrMalformed, fmt.Errorf("failed to parse price change: %w", err))
	}

	return &models.TokenMetrics{
		Price:          models.Float(price),
		Volume24h:      models.Float(volume),
		PriceChange24h: models.Float(priceChange),
	}, nil
}
