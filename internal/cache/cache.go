// Package cache memoizes single-project analyses in redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/songzhibin97/deepdive/internal/configs"
	"github.com/songzhibin97/deepdive/internal/models"
	"github.com/songzhibin97/deepdive/internal/pipeline"
)

const (
	keyPrefix         = "deepdive:analysis:"
	renderSuffix      = ":render"
	connectionTimeout = 5 * time.Second
)

var ErrEmptyAddress = errors.New("redis address is required")

// NewClient connects to redis and verifies the connection.
func NewClient(cfg configs.CacheConfig) (*redis.Client, error) {
	if cfg.RedisAddr == "" {
		return nil, ErrEmptyAddress
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// Key is the cache key of an analysis request.
func Key(raw string, explicit models.InputType) string {
	inputType := explicit
	if inputType == "" {
		inputType = pipeline.Classify(raw).Type
	}
	return keyPrefix + string(inputType) + ":" + strings.ToLower(strings.TrimSpace(raw))
}

// CachedAnalyzer wraps an analyzer with a read-through cache. Redis errors never fail a request.
type CachedAnalyzer struct {
	next   pipeline.Analyzer
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedAnalyzer(next pipeline.Analyzer, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedAnalyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedAnalyzer{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Analyze implements pipeline.Analyzer
func (c *CachedAnalyzer) Analyze(ctx context.Context, raw string, explicit models.InputType) (*models.AnalysisReport, error) {
	if strings.TrimSpace(raw) == "" {
		return c.next.Analyze(ctx, raw, explicit)
	}

	key := Key(raw, explicit)
	if report, err := c.get(ctx, key); err == nil {
		c.logger.Debug("analysis cache hit", "key", key)
		return report, nil
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("analysis cache read failed", "key", key, "error", err)
	}

	report, err := c.next.Analyze(ctx, raw, explicit)
	if err != nil {
		return nil, err
	}

	if err := c.set(ctx, key, report, c.ttl); err != nil {
		c.logger.Warn("analysis cache write failed", "key", key, "error", err)
	}
	return report, nil
}

// SetReportURL patches the cached report of a request with its rendered file URL and drops the
// render claim. The entry keeps its remaining TTL; a missing entry is left alone.
func (c *CachedAnalyzer) SetReportURL(ctx context.Context, raw string, explicit models.InputType, url string) error {
	key := Key(raw, explicit)
	report, err := c.get(ctx, key)
	switch {
	case errors.Is(err, redis.Nil):
	case err != nil:
		return err
	default:
		patched := report.WithReportURL(url)
		if err := c.set(ctx, key, &patched, redis.KeepTTL); err != nil {
			return err
		}
	}
	return c.client.Del(ctx, key+renderSuffix).Err()
}

// ClaimRender marks the request's report as being rendered. Only the first caller within the
// TTL gets true; later cache hits skip the duplicate render. A redis failure grants the claim.
func (c *CachedAnalyzer) ClaimRender(ctx context.Context, raw string, explicit models.InputType) bool {
	key := Key(raw, explicit) + renderSuffix
	ok, err := c.client.SetNX(ctx, key, 1, c.ttl).Result()
	if err != nil {
		c.logger.Warn("render claim failed", "key", key, "error", err)
		return true
	}
	return ok
}

// ReleaseRender drops a claim after a failed render so the next hit can retry.
func (c *CachedAnalyzer) ReleaseRender(ctx context.Context, raw string, explicit models.InputType) error {
	return c.client.Del(ctx, Key(raw, explicit)+renderSuffix).Err()
}

func (c *CachedAnalyzer) get(ctx context.Context, key string) (*models.AnalysisReport, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}
	var report models.AnalysisReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, fmt.Errorf("failed to decode cached report: %w", err)
	}
	return &report, nil
}

func (c *CachedAnalyzer) set(ctx context.Context, key string, report *models.AnalysisReport, ttl time.Duration) error {
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return c.client.Set(ctx, key, body, ttl).Err()
}
