package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/songzhibin97/deepdive/internal/configs"
	"github.com/songzhibin97/deepdive/internal/models"
)

type countingAnalyzer struct {
	calls int
	err   error
}

func (a *countingAnalyzer) Analyze(ctx context.Context, raw string, explicit models.InputType) (*models.AnalysisReport, error) {
	a.calls++
	if a.err != nil {
		return nil, a.err
	}
	return &models.AnalysisReport{
		ProjectData:       *models.NewProjectRecord(raw),
		Scores:            models.NewScoreSet(5, 5, 5, 5, 5),
		AnalysisTimestamp: "2024-06-30T12:00:00Z",
	}, nil
}

func setupCache(t *testing.T, next *countingAnalyzer) (*CachedAnalyzer, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewCachedAnalyzer(next, client, 5*time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil))), mr
}

func TestKey(t *testing.T) {
	assert.Equal(t, "deepdive:analysis:project_name:uniswap", Key("  Uniswap ", ""))
	assert.Equal(t, "deepdive:analysis:twitter_handle:@uniswap", Key("@Uniswap", ""))
	assert.Equal(t, "deepdive:analysis:contract_address:uniswap", Key("Uniswap", models.InputContractAddress))
}

func TestCachedAnalyzer_ReadThrough(t *testing.T) {
	next := &countingAnalyzer{}
	c, mr := setupCache(t, next)
	ctx := context.Background()

	first, err := c.Analyze(ctx, "Uniswap", "")
	require.NoError(t, err)
	second, err := c.Analyze(ctx, "uniswap ", "")
	require.NoError(t, err)

	assert.Equal(t, 1, next.calls)
	assert.Equal(t, first, second)
	assert.Equal(t, 5*time.Minute, mr.TTL("deepdive:analysis:project_name:uniswap"))

	mr.FastForward(6 * time.Minute)
	_, err = c.Analyze(ctx, "Uniswap", "")
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
}

func TestCachedAnalyzer_ErrorsAreNotCached(t *testing.T) {
	next := &countingAnalyzer{err: errors.New("boom")}
	c, mr := setupCache(t, next)

	_, err := c.Analyze(context.Background(), "Uniswap", "")
	require.Error(t, err)
	assert.False(t, mr.Exists("deepdive:analysis:project_name:uniswap"))
}

func TestCachedAnalyzer_RedisDown(t *testing.T) {
	next := &countingAnalyzer{}
	c, mr := setupCache(t, next)
	mr.Close()

	report, err := c.Analyze(context.Background(), "Uniswap", "")
	require.NoError(t, err)
	assert.Equal(t, "Uniswap", report.ProjectData.ProjectName)
	assert.Equal(t, 1, next.calls)
}

func TestCachedAnalyzer_CorruptEntryBypassed(t *testing.T) {
	next := &countingAnalyzer{}
	c, mr := setupCache(t, next)
	require.NoError(t, mr.Set("deepdive:analysis:project_name:uniswap", "not json"))

	report, err := c.Analyze(context.Background(), "Uniswap", "")
	require.NoError(t, err)
	assert.Equal(t, "Uniswap", report.ProjectData.ProjectName)
	assert.Equal(t, 1, next.calls)
}

func TestCachedAnalyzer_SetReportURL(t *testing.T) {
	next := &countingAnalyzer{}
	c, mr := setupCache(t, next)
	ctx := context.Background()

	// 未缓存时忽略
	require.NoError(t, c.SetReportURL(ctx, "Ghost", "", "/reports/Ghost.pdf"))
	assert.False(t, mr.Exists("deepdive:analysis:project_name:ghost"))

	_, err := c.Analyze(ctx, "Uniswap", "")
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)

	require.NoError(t, c.SetReportURL(ctx, "Uniswap", "", "/reports/Uniswap_20240630_120000.pdf"))
	assert.Equal(t, 3*time.Minute, mr.TTL("deepdive:analysis:project_name:uniswap"))

	report, err := c.Analyze(ctx, "Uniswap", "")
	require.NoError(t, err)
	require.NotNil(t, report.ReportURL)
	assert.Equal(t, "/reports/Uniswap_20240630_120000.pdf", *report.ReportURL)
	assert.Equal(t, 1, next.calls)
}

func TestCachedAnalyzer_RenderClaim(t *testing.T) {
	c, mr := setupCache(t, &countingAnalyzer{})
	ctx := context.Background()
	claimKey := "deepdive:analysis:project_name:uniswap:render"

	// 渲染进行中的重复命中不再提交
	assert.True(t, c.ClaimRender(ctx, "Uniswap", ""))
	assert.False(t, c.ClaimRender(ctx, " uniswap ", ""))
	assert.Equal(t, 5*time.Minute, mr.TTL(claimKey))

	// 失败后释放, 下次可重新渲染
	require.NoError(t, c.ReleaseRender(ctx, "Uniswap", ""))
	assert.True(t, c.ClaimRender(ctx, "Uniswap", ""))

	_, err := c.Analyze(ctx, "Uniswap", "")
	require.NoError(t, err)
	require.NoError(t, c.SetReportURL(ctx, "Uniswap", "", "/reports/Uniswap.pdf"))
	assert.False(t, mr.Exists(claimKey))

	// 不同输入类型互不影响
	assert.True(t, c.ClaimRender(ctx, "@uniswap", ""))
	assert.True(t, c.ClaimRender(ctx, "Uniswap", models.InputSocialHandle))
}

func TestCachedAnalyzer_RenderClaimRedisDown(t *testing.T) {
	c, mr := setupCache(t, &countingAnalyzer{})
	mr.Close()

	assert.True(t, c.ClaimRender(context.Background(), "Uniswap", ""))
}

func TestNewClient(t *testing.T) {
	_, err := NewClient(configs.CacheConfig{})
	assert.ErrorIs(t, err, ErrEmptyAddress)

	mr := miniredis.RunT(t)
	client, err := NewClient(configs.CacheConfig{RedisAddr: mr.Addr()})
	require.NoError(t, err)
	client.Close()
}
