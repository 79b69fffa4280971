package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/songzhibin97/deepdive/internal/data"
	"github.com/songzhibin97/deepdive/internal/models"
	"github.com/songzhibin97/deepdive/internal/utils/request"
)

const (
	sourceName = "github"

	commitWindow   = 30 * 24 * time.Hour
	commitsPerPage = 100
	// maxCommitPages bounds the history walk; busier repositories get an approximate count.
	maxCommitPages = 3
)

type GitHubDataSource struct {
	baseURL    string
	token      string
	httpClient *resty.Client
	now        func() time.Time
}

func NewGitHubDataSource(baseURL, token string, timeout time.Duration) *GitHubDataSource {
	return &GitHubDataSource{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: request.New(timeout),
		now:        time.Now,
	}
}

func (g *GitHubDataSource) Name() string {
	return sourceName
}

type Repository struct {
	FullName        string `json:"full_name"`
	StargazersCount int64  `json:"stargazers_count"`
	ForksCount      int64  `json:"forks_count"`
}

type Commit struct {
	SHA    string `json:"sha"`
	Commit struct {
		Author struct {
			Date time.Time `json:"date"`
		} `json:"author"`
	} `json:"commit"`
}

func (g *GitHubDataSource) request(ctx context.Context, op, path string, params map[string]string) (*resty.Response, error) {
	if g.token == "" {
		return nil, data.NewProviderError(sourceName, op, data.ErrNotConfigured, nil)
	}

	resp, err := g.httpClient.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetHeader("Accept", "application/vnd.github+json").
		SetAuthToken(g.token).
		Get(g.baseURL + path)
	if err != nil {
		return nil, data.NewProviderError(sourceName, op, data.ErrUnavailable, fmt.Errorf("failed to execute request: %w", err))
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, data.StatusError(sourceName, op, resp.StatusCode())
	}
	return resp, nil
}

func (g *GitHubDataSource) get(ctx context.Context, op, path string, params map[string]string, out interface{}) (*resty.Response, error) {
	resp, err := g.request(ctx, op, path, params)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return nil, data.NewProviderError(sourceName, op, data.ErrMalformed, fmt.Errorf("failed to decode response: %w", err))
	}
	return resp, nil
}

// SearchRepository returns the full name of the most starred repository matching name.
func (g *GitHubDataSource) SearchRepository(ctx context.Context, name string) (string, error) {
	var result struct {
		TotalCount int64 `json:"total_count"`
		Items      []struct {
			FullName string `json:"full_name"`
		} `json:"items"`
	}

	params := map[string]string{
		"q":        name,
		"sort":     "stars",
		"order":    "desc",
		"per_page": "1",
	}
	if _, err := g.get(ctx, "search", "/search/repositories", params, &result); err != nil {
		return "", err
	}

	if len(result.Items) == 0 || result.Items[0].FullName == "" {
		return "", data.NewProviderError(sourceName, "search", data.ErrNotFound, fmt.Errorf("no repository matches %q", name))
	}
	return result.Items[0].FullName, nil
}

func (g *GitHubDataSource) GetRepository(ctx context.Context, fullName string) (*Repository, error) {
	var repo Repository
	if _, err := g.get(ctx, "repository", "/repos/"+fullName, nil, &repo); err != nil {
		return nil, err
	}
	return &repo, nil
}

// RecentCommits walks history newest first and counts commits inside the window.
// It also returns the date of the newest commit, if any.
func (g *GitHubDataSource) RecentCommits(ctx context.Context, fullName string) (int64, *time.Time, error) {
	cutoff := g.now().Add(-commitWindow)

	var (
		count  int64
		latest *time.Time
	)
	for page := 1; page <= maxCommitPages; page++ {
		var commits []Commit
		params := map[string]string{
			"per_page": strconv.Itoa(commitsPerPage),
			"page":     strconv.Itoa(page),
		}
		if _, err := g.get(ctx, "commits", "/repos/"+fullName+"/commits", params, &commits); err != nil {
			return 0, nil, err
		}

		for _, c := range commits {
			date := c.Commit.Author.Date
			if latest == nil {
				latest = &date
			}
			if !date.After(cutoff) {
				return count, latest, nil
			}
			count++
		}

		if len(commits) < commitsPerPage {
			break
		}
	}
	return count, latest, nil
}

// ContributorCount reads the total from the pagination links of a one-per-page listing.
func (g *GitHubDataSource) ContributorCount(ctx context.Context, fullName string) (int64, error) {
	var contributors []json.RawMessage
	params := map[string]string{"per_page": "1", "anon": "true"}
	resp, err := g.get(ctx, "contributors", "/repos/"+fullName+"/contributors", params, &contributors)
	if err != nil {
		return 0, err
	}

	if last, ok := lastPage(resp.Header().Get("Link")); ok {
		return last, nil
	}
	return int64(len(contributors)), nil
}

// CollectTechnicalMetrics implements data.RepositorySource
func (g *GitHubDataSource) CollectTechnicalMetrics(ctx context.Context, name string) (*models.TechnicalMetrics, error) {
	fullName, err := g.SearchRepository(ctx, name)
	if err != nil {
		return nil, err
	}

	repo, err := g.GetRepository(ctx, fullName)
	if err != nil {
		return nil, err
	}

	metrics := &models.TechnicalMetrics{
		Stars: models.Int(repo.StargazersCount),
		Forks: models.Int(repo.ForksCount),
	}

	// 提交和贡献者统计失败时保留仓库基础数据
	if count, latest, err := g.RecentCommits(ctx, fullName); err == nil {
		metrics.CommitsLastMonth = models.Int(count)
		if latest != nil {
			metrics.LastCommitDate = models.String(latest.UTC().Format(time.RFC3339))
		}
	}
	if contributors, err := g.ContributorCount(ctx, fullName); err == nil {
		metrics.Contributors = models.Int(contributors)
	}

	return metrics, nil
}

// lastPage extracts the page number of the rel="last" entry of a Link header.
func lastPage(link string) (int64, bool) {
	for _, part := range strings.Split(link, ",") {
		segments := strings.Split(part, ";")
		if len(segments) < 2 {
			continue
		}

		isLast := false
		for _, attr := range segments[1:] {
			if strings.TrimSpace(attr) == `rel="last"` {
				isLast = true
			}
		}
		if !isLast {
			continue
		}

		raw := strings.Trim(strings.TrimSpace(segments[0]), "<>")
		u, err := url.Parse(raw)
		if err != nil {
			return 0, false
		}
		page, err := strconv.ParseInt(u.Query().Get("page"), 10, 64)
		if err != nil {
			return 0, false
		}
		return page, true
	}
	return 0, false
}
