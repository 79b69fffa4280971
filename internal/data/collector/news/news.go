package news

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mmcdole/gofeed"

	"github.com/songzhibin97/deepdive/internal/data"
	"github.com/songzhibin97/deepdive/internal/utils/request"
)

const (
	sourceName = "news"

	mentionWindow = 7 * 24 * time.Hour
)

// NewsDataSource counts recent Google News RSS items about a project.
type NewsDataSource struct {
	baseURL    string
	httpClient *resty.Client
	now        func() time.Time
}

func NewNewsDataSource(baseURL string, timeout time.Duration) *NewsDataSource {
	return &NewsDataSource{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: request.New(timeout),
		now:        time.Now,
	}
}

func (n *NewsDataSource) Name() string {
	return sourceName
}

// FetchFeed returns the parsed search feed for name.
func (n *NewsDataSource) FetchFeed(ctx context.Context, name string) (*gofeed.Feed, error) {
	params := map[string]string{
		"q":    fmt.Sprintf("%q crypto", name),
		"hl":   "en-US",
		"gl":   "US",
		"ceid": "US:en",
	}

	resp, err := n.httpClient.R().SetContext(ctx).SetQueryParams(params).Get(n.baseURL + "/rss/search")
	if err != nil {
		return nil, data.NewProviderError(sourceName, "search", data.ErrUnavailable, fmt.Errorf("failed to execute request: %w", err))
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, data.StatusError(sourceName, "search", resp.StatusCode())
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(resp.Body()))
	if err != nil {
		return nil, data.NewProviderError(sourceName, "search", data.ErrMalformed, fmt.Errorf("parse feed: %w", err))
	}
	return feed, nil
}

// CountMentions implements data.MentionSource
func (n *NewsDataSource) CountMentions(ctx context.Context, name string) (int64, error) {
	if strings.TrimSpace(name) == "" {
		return 0, data.NewProviderError(sourceName, "search", data.ErrNotFound, fmt.Errorf("empty project name"))
	}

	feed, err := n.FetchFeed(ctx, name)
	if err != nil {
		return 0, err
	}

	return countSince(feed.Items, n.now().Add(-mentionWindow)), nil
}

// countSince counts dated items published after cutoff.
func countSince(items []*gofeed.Item, cutoff time.Time) int64 {
	var count int64
	for _, item := range items {
		if item.PublishedParsed == nil {
			continue
		}
		if item.PublishedParsed.After(cutoff) {
			count++
		}
	}
	return count
}
