package data

import (
	"context"
	"time"

	"github.com/songzhibin97/deepdive/internal/models"
)

// MarketSource 行情数据源 (CoinGecko)
type MarketSource interface {
	Name() string

	// CollectMarketData resolves name to a coin and projects its market, supply and profile fields
	CollectMarketData(ctx context.Context, name string) (*models.MarketSnapshot, error)
}

// ProtocolSource 协议锁仓数据源 (DefiLlama)
type ProtocolSource interface {
	Name() string

	// CollectProtocolMetrics resolves name to a protocol slug and returns its TVL figures
	CollectProtocolMetrics(ctx context.Context, name string) (*models.ProtocolMetrics, error)
}

// RepositorySource 代码仓库数据源 (GitHub)
type RepositorySource interface {
	Name() string

	// CollectTechnicalMetrics resolves name to a repository and returns its activity figures
	CollectTechnicalMetrics(ctx context.Context, name string) (*models.TechnicalMetrics, error)
}

// SocialSource 社交数据源 (X/Twitter)
type SocialSource interface {
	Name() string

	// LookupUser fetches the account behind handle (with or without the leading @)
	LookupUser(ctx context.Context, handle string) (*models.SocialProfile, error)

	// CollectSocialMetrics returns follower figures for handle, searching one by name when handle is empty
	CollectSocialMetrics(ctx context.Context, name, handle string) (*models.SocialMetrics, error)

	// SentimentScore scores recent mentions of name
	SentimentScore(ctx context.Context, name string) (float64, error)
}

// MentionSource 新闻提及数据源
type MentionSource interface {
	Name() string

	// CountMentions counts recent news items mentioning name
	CountMentions(ctx context.Context, name string) (int64, error)
}

// TickerSource 交易所行情, 仅用于补全缺失字段
type TickerSource interface {
	Name() string

	// CollectTicker returns 24h ticker figures for a base asset symbol
	CollectTicker(ctx context.Context, symbol string) (*models.TokenMetrics, error)
}

// ReportStorage 处理报告文件的持久化
type ReportStorage interface {
	// Save writes a report under name, replacing any existing file
	Save(ctx context.Context, name string, content []byte) error

	// List returns report file names, newest first
	List(ctx context.Context) ([]string, error)

	// Read returns the content of a report
	Read(ctx context.Context, name string) ([]byte, error)

	// Delete removes a report
	Delete(ctx context.Context, name string) error

	// Prune removes reports last modified before now minus maxAge and returns how many
	Prune(ctx context.Context, maxAge time.Duration) (int, error)
}
