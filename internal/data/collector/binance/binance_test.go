package binance

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/songzhibin97/deepdive/internal/data"
)

type tickerResponse struct {
	Symbol             string `json:"symbol"`
	LastPrice          string `json:"lastPrice"`
	Volume             string `json:"volume"`
	PriceChangePercent string `json:"priceChangePercent"`
	QuoteVolume        string `json:"quoteVolume"`
}

func setupTestServer(t *testing.T, wantSymbol string, status int, response interface{}) (*httptest.Server, *BinanceDataSource) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/ticker/24hr", r.URL.Path)
		assert.Equal(t, wantSymbol, r.URL.Query().Get("symbol"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if raw, ok := response.(string); ok {
			_, _ = w.Write([]byte(raw))
			return
		}
		require.NoError(t, json.NewEncoder(w).Encode(response))
	}))

	ds := NewBinanceDataSource(server.URL, time.Second)
	ds.client.HTTPClient = server.Client()

	return server, ds
}

func TestBinanceDataSource_Name(t *testing.T) {
	ds := NewBinanceDataSource("", time.Second)
	assert.Equal(t, "binance", ds.Name())
}

func TestBinanceDataSource_CollectTicker(t *testing.T) {
	tests := []struct {
		name        string
		symbol      string
		response    interface{}
		expectError bool
		wantKind    error
		expected    struct {
			price          float64
			volume         float64
			priceChange24h float64
		}
	}{
		{
			name:   "valid response",
			symbol: "btc",
			response: tickerResponse{
				Symbol:             "BTCUSDT",
				LastPrice:          "50000.00",
				Volume:             "1000.50",
				PriceChangePercent: "2.5",
				QuoteVolume:        "50000000.00",
			},
			expected: struct {
				price          float64
				volume         float64
				priceChange24h float64
			}{
				price:          50000.00,
				volume:         50000000.00,
				priceChange24h: 2.5,
			},
		},
		{
			name:   "invalid number format",
			symbol: "BTC",
			response: tickerResponse{
				LastPrice:          "invalid",
				QuoteVolume:        "1000.50",
				PriceChangePercent: "2.5",
			},
			expectError: true,
			wantKind:    data.ErrMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, ds := setupTestServer(t, "BTCUSDT", http.StatusOK, tt.response)
			defer server.Close()

			metrics, err := ds.CollectTicker(context.Background(), tt.symbol)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, metrics)
				assert.True(t, errors.Is(err, tt.wantKind), "got %v", err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected.price, *metrics.Price)
			assert.Equal(t, tt.expected.volume, *metrics.Volume24h)
			assert.Equal(t, tt.expected.priceChange24h, *metrics.PriceChange24h)
			assert.Nil(t, metrics.MarketCap)
		})
	}
}

func TestBinanceDataSource_ErrorHandling(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		response   string
		wantKind   error
	}{
		{
			name:       "invalid symbol",
			statusCode: http.StatusBadRequest,
			response:   `{"code":-1121,"msg":"Invalid symbol."}`,
			wantKind:   data.ErrNotFound,
		},
		{
			name:       "http 429 rate limit",
			statusCode: http.StatusTooManyRequests,
			response:   `{"code":-1003,"msg":"Too many requests."}`,
			wantKind:   data.ErrUnavailable,
		},
		{
			name:       "http 500",
			statusCode: http.StatusInternalServerError,
			response:   `oops`,
			wantKind:   data.ErrUnavailable,
		},
		{
			name:       "invalid json response",
			statusCode: http.StatusOK,
			response:   "invalid json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, ds := setupTestServer(t, "XYZUSDT", tt.statusCode, tt.response)
			defer server.Close()

			metrics, err := ds.CollectTicker(context.Background(), "XYZ")
			require.Error(t, err)
			assert.Nil(t, metrics)

			var perr *data.ProviderError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, "binance", perr.Source)
			if tt.wantKind != nil {
				assert.True(t, errors.Is(err, tt.wantKind), "got %v", err)
			}
		})
	}
}

func TestBinanceDataSource_SkipsQuoteAsset(t *testing.T) {
	ds := NewBinanceDataSource("http://127.0.0.1:1", time.Second)

	for _, symbol := range []string{"", "  ", "usdt"} {
		metrics, err := ds.CollectTicker(context.Background(), symbol)
		assert.Nil(t, metrics)
		assert.True(t, errors.Is(err, data.ErrNotFound), "symbol %q: %v", symbol, err)
	}
}

func TestBinanceIntegration(t *testing.T) {
	// 如果设置了 -short 标志,跳过集成测试
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ds := NewBinanceDataSource("https://api.binance.com", 10*time.Second)
	ctx := context.Background()

	// 测试一些常见的交易对
	for _, symbol := range []string{"BTC", "ETH", "BNB"} {
		t.Run(symbol, func(t *testing.T) {
			metrics, err := ds.CollectTicker(ctx, symbol)
			if err != nil {
				// 网络受限环境下不视为失败
				t.Skipf("ticker unavailable: %v", err)
			}
			require.NotNil(t, metrics)
			assert.Greater(t, *metrics.Price, 0.0)

			// 记录市场数据,方便调试
			t.Logf("Ticker for %s: price=%v volume=%v", symbol, *metrics.Price, *metrics.Volume24h)
		})

		// 避免触发 API 限制
		time.Sleep(time.Second)
	}
}
