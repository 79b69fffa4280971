package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/songzhibin97/deepdive/internal/data"
	"github.com/songzhibin97/deepdive/internal/metrics"
	"github.com/songzhibin97/deepdive/internal/models"
)

// Sources groups the provider clients. A nil source is treated as not configured.
type Sources struct {
	Market     data.MarketSource
	Protocol   data.ProtocolSource
	Repository data.RepositorySource
	Social     data.SocialSource
	Mentions   data.MentionSource
	Ticker     data.TickerSource
}

// MultiSourceCollector fans a project name out to every source and merges what comes back.
type MultiSourceCollector struct {
	sources Sources
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewMultiSourceCollector(sources Sources, logger *slog.Logger, m *metrics.Metrics) *MultiSourceCollector {
	if logger == nil {
		logger = slog.Default()
	}
	return &MultiSourceCollector{
		sources: sources,
		logger:  logger,
		metrics: m,
	}
}

// Request names the project being collected.
type Request struct {
	Name            string
	Handle          string
	ContractAddress *string
}

// ResolveHandle returns the canonical username behind handle, or false when it cannot be resolved.
func (c *MultiSourceCollector) ResolveHandle(ctx context.Context, handle string) (string, bool) {
	src := c.sources.Social
	if src == nil {
		c.record("twitter", "lookup_user", notConfigured("twitter", "lookup_user"))
		return "", false
	}

	profile := absorb(ctx, c, src.Name(), "lookup_user", func(ctx context.Context) (*models.SocialProfile, error) {
		return src.LookupUser(ctx, handle)
	})
	if profile == nil || profile.Username == "" {
		return "", false
	}
	return profile.Username, true
}

// Collect never fails. Every provider error degrades to absent fields.
func (c *MultiSourceCollector) Collect(ctx context.Context, req Request) *models.ProjectRecord {
	var (
		wg sync.WaitGroup

		snapshot  *models.MarketSnapshot
		ticker    *models.TokenMetrics
		protocol  *models.ProtocolMetrics
		technical *models.TechnicalMetrics
		social    *models.SocialMetrics
		sentiment *float64
		mentions  *int64
	)

	run := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}

	run(func() {
		snapshot = collectMarket(ctx, c, req.Name)
		// 交易所行情只补全缺失字段, 依赖行情源给出的代币符号
		if snapshot != nil && snapshot.Profile.Symbol != nil {
			ticker = collectTicker(ctx, c, *snapshot.Profile.Symbol)
		}
	})
	run(func() { protocol = collectProtocol(ctx, c, req.Name) })
	run(func() { technical = collectTechnical(ctx, c, req.Name) })
	run(func() { social = collectSocial(ctx, c, req.Name, req.Handle) })
	run(func() { sentiment = collectSentiment(ctx, c, req.Name) })
	run(func() { mentions = collectMentions(ctx, c, req.Name) })

	wg.Wait()

	record := models.NewProjectRecord(req.Name)
	record.ContractAddress = req.ContractAddress

	if snapshot != nil {
		record.TokenMetrics = snapshot.TokenMetrics
		record.Tokenomics = snapshot.Tokenomics
		record.ApplyProfile(snapshot.Profile)
	}
	if ticker != nil {
		record.TokenMetrics.FillFrom(models.TokenMetrics{
			Price:          ticker.Price,
			Volume24h:      ticker.Volume24h,
			PriceChange24h: ticker.PriceChange24h,
		})
	}
	if protocol != nil {
		record.ProtocolMetrics = *protocol
	}
	if technical != nil {
		record.TechnicalMetrics = *technical
	}
	if social != nil {
		record.SocialMetrics = *social
	}
	record.SocialMetrics.SentimentScore = sentiment
	record.SocialMetrics.RecentMentions = mentions

	c.logger.Info("collected project data",
		"project", req.Name,
		"market", snapshot != nil,
		"protocol", protocol != nil,
		"repository", technical != nil,
		"social", social != nil,
	)
	return record
}

func collectMarket(ctx context.Context, c *MultiSourceCollector, name string) *models.MarketSnapshot {
	src := c.sources.Market
	if src == nil {
		c.record("coingecko", "market", notConfigured("coingecko", "market"))
		return nil
	}
	return absorb(ctx, c, src.Name(), "market", func(ctx context.Context) (*models.MarketSnapshot, error) {
		return src.CollectMarketData(ctx, name)
	})
}

func collectTicker(ctx context.Context, c *MultiSourceCollector, symbol string) *models.TokenMetrics {
	src := c.sources.Ticker
	if src == nil {
		return nil
	}
	return absorb(ctx, c, src.Name(), "ticker", func(ctx context.Context) (*models.TokenMetrics, error) {
		return src.CollectTicker(ctx, symbol)
	})
}

func collectProtocol(ctx context.Context, c *MultiSourceCollector, name string) *models.ProtocolMetrics {
	src := c.sources.Protocol
	if src == nil {
		c.record("defillama", "protocol", notConfigured("defillama", "protocol"))
		return nil
	}
	return absorb(ctx, c, src.Name(), "protocol", func(ctx context.Context) (*models.ProtocolMetrics, error) {
		return src.CollectProtocolMetrics(ctx, name)
	})
}

func collectTechnical(ctx context.Context, c *MultiSourceCollector, name string) *models.TechnicalMetrics {
	src := c.sources.Repository
	if src == nil {
		c.record("github", "repository", notConfigured("github", "repository"))
		return nil
	}
	return absorb(ctx, c, src.Name(), "repository", func(ctx context.Context) (*models.TechnicalMetrics, error) {
		return src.CollectTechnicalMetrics(ctx, name)
	})
}

func collectSocial(ctx context.Context, c *MultiSourceCollector, name, handle string) *models.SocialMetrics {
	src := c.sources.Social
	if src == nil {
		c.record("twitter", "social", notConfigured("twitter", "social"))
		return nil
	}
	return absorb(ctx, c, src.Name(), "social", func(ctx context.Context) (*models.SocialMetrics, error) {
		return src.CollectSocialMetrics(ctx, name, handle)
	})
}

func collectSentiment(ctx context.Context, c *MultiSourceCollector, name string) *float64 {
	src := c.sources.Social
	if src == nil {
		return nil
	}
	return absorb(ctx, c, src.Name(), "sentiment", func(ctx context.Context) (*float64, error) {
		score, err := src.SentimentScore(ctx, name)
		if err != nil {
			return nil, err
		}
		return models.Float(score), nil
	})
}

func collectMentions(ctx context.Context, c *MultiSourceCollector, name string) *int64 {
	src := c.sources.Mentions
	if src == nil {
		return nil
	}
	return absorb(ctx, c, src.Name(), "mentions", func(ctx context.Context) (*int64, error) {
		count, err := src.CountMentions(ctx, name)
		if err != nil {
			return nil, err
		}
		return models.Int(count), nil
	})
}

// absorb runs one provider call and maps any error or panic to the zero value of T.
func absorb[T any](ctx context.Context, c *MultiSourceCollector, source, op string, call func(context.Context) (T, error)) (result T) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			result = zero
			c.record(source, op, data.NewProviderError(source, op, data.ErrUnavailable, fmt.Errorf("panic: %v", r)))
		}
	}()

	v, err := call(ctx)
	c.record(source, op, err)
	if err != nil {
		var zero T
		return zero
	}
	return v
}

func (c *MultiSourceCollector) record(source, op string, err error) {
	c.metrics.ProviderCall(source, data.KindOf(err))

	switch {
	case err == nil:
		c.logger.Debug("provider call succeeded", "source", source, "op", op)
	case errors.Is(err, data.ErrNotConfigured), errors.Is(err, data.ErrNotFound):
		c.logger.Info("provider returned no data", "source", source, "op", op, "reason", err)
	default:
		c.logger.Warn("provider call failed", "source", source, "op", op, "error", err)
	}
}

func notConfigured(source, op string) error {
	return data.NewProviderError(source, op, data.ErrNotConfigured, nil)
}
