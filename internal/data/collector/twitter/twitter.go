package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/songzhibin97/deepdive/internal/data"
	"github.com/songzhibin97/deepdive/internal/models"
	"github.com/songzhibin97/deepdive/internal/utils/request"
)

const (
	sourceName = "twitter"

	sentimentSampleSize = 100
	handleSampleSize    = 10
	maxMentionScore     = 10.0
)

type TwitterDataSource struct {
	baseURL     string
	bearerToken string
	httpClient  *resty.Client
}

func NewTwitterDataSource(baseURL, bearerToken string, timeout time.Duration) *TwitterDataSource {
	return &TwitterDataSource{
		baseURL:     strings.TrimRight(baseURL, "/"),
		bearerToken: bearerToken,
		httpClient:  request.New(timeout),
	}
}

func (t *TwitterDataSource) Name() string {
	return sourceName
}

type PublicMetrics struct {
	FollowersCount int64 `json:"followers_count"`
	FollowingCount int64 `json:"following_count"`
	TweetCount     int64 `json:"tweet_count"`
	LikeCount      int64 `json:"like_count"`
}

type User struct {
	ID            string        `json:"id"`
	Username      string        `json:"username"`
	Name          string        `json:"name"`
	Description   string        `json:"description"`
	PublicMetrics PublicMetrics `json:"public_metrics"`
}

type Tweet struct {
	ID            string `json:"id"`
	AuthorID      string `json:"author_id"`
	PublicMetrics struct {
		LikeCount    int64 `json:"like_count"`
		RetweetCount int64 `json:"retweet_count"`
	} `json:"public_metrics"`
	ReferencedTweets []struct {
		Type string `json:"type"`
	} `json:"referenced_tweets"`
}

// Mention is the engagement of one post used for sentiment.
type Mention struct {
	Likes    int64
	Reshares int64
}

type searchResponse struct {
	Data     []Tweet `json:"data"`
	Includes struct {
		Users []User `json:"users"`
	} `json:"includes"`
}

func (t *TwitterDataSource) get(ctx context.Context, op, path string, params map[string]string, out interface{}) error {
	if t.bearerToken == "" {
		return data.NewProviderError(sourceName, op, data.ErrNotConfigured, nil)
	}

	resp, err := t.httpClient.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetAuthToken(t.bearerToken).
		Get(t.baseURL + path)
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

func (t *TwitterDataSource) getUser(ctx context.Context, handle string) (*User, error) {
	username := strings.TrimPrefix(strings.TrimSpace(handle), "@")
	if username == "" {
		return nil, data.NewProviderError(sourceName, "user", data.ErrNotFound, fmt.Errorf("empty handle"))
	}

	var result struct {
		Data *User `json:"data"`
	}
	params := map[string]string{"user.fields": "public_metrics,description,created_at"}
	if err := t.get(ctx, "user", "/2/users/by/username/"+username, params, &result); err != nil {
		return nil, err
	}

	if result.Data == nil {
		return nil, data.NewProviderError(sourceName, "user", data.ErrNotFound, fmt.Errorf("no user %q", username))
	}
	return result.Data, nil
}

// LookupUser implements data.SocialSource
func (t *TwitterDataSource) LookupUser(ctx context.Context, handle string) (*models.SocialProfile, error) {
	user, err := t.getUser(ctx, handle)
	if err != nil {
		return nil, err
	}

	return &models.SocialProfile{
		ID:          user.ID,
		Username:    user.Username,
		Name:        user.Name,
		Description: user.Description,
	}, nil
}

// SearchProjectHandle returns the author of the first recent post about name.
func (t *TwitterDataSource) SearchProjectHandle(ctx context.Context, name string) (string, error) {
	var result searchResponse
	params := map[string]string{
		"query":        name + " crypto",
		"max_results":  fmt.Sprint(handleSampleSize),
		"tweet.fields": "author_id",
		"expansions":   "author_id",
	}
	if err := t.get(ctx, "search_handle", "/2/tweets/search/recent", params, &result); err != nil {
		return "", err
	}

	if len(result.Data) == 0 {
		return "", data.NewProviderError(sourceName, "search_handle", data.ErrNotFound, fmt.Errorf("no posts about %q", name))
	}

	authorID := result.Data[0].AuthorID
	for _, u := range result.Includes.Users {
		if u.ID == authorID && u.Username != "" {
			return u.Username, nil
		}
	}
	return "", data.NewProviderError(sourceName, "search_handle", data.ErrMalformed, fmt.Errorf("author %s missing from includes", authorID))
}

// CollectSocialMetrics implements data.SocialSource
func (t *TwitterDataSource) CollectSocialMetrics(ctx context.Context, name, handle string) (*models.SocialMetrics, error) {
	if handle == "" {
		found, err := t.SearchProjectHandle(ctx, name)
		if err != nil {
			return nil, err
		}
		handle = found
	}

	user, err := t.getUser(ctx, handle)
	if err != nil {
		return nil, err
	}

	m := user.PublicMetrics
	return &models.SocialMetrics{
		Followers:      models.Int(m.FollowersCount),
		EngagementRate: models.Float(EngagementRate(m.LikeCount, m.TweetCount, m.FollowersCount)),
	}, nil
}

// SentimentScore implements data.SocialSource
func (t *TwitterDataSource) SentimentScore(ctx context.Context, name string) (float64, error) {
	tag := strings.ReplaceAll(strings.TrimSpace(name), " ", "")
	if tag == "" {
		return 0, data.NewProviderError(sourceName, "sentiment", data.ErrNotFound, fmt.Errorf("empty project name"))
	}

	var result searchResponse
	params := map[string]string{
		"query":        fmt.Sprintf("$%s OR #%s crypto -is:retweet", tag, tag),
		"max_results":  fmt.Sprint(sentimentSampleSize),
		"tweet.fields": "public_metrics,referenced_tweets",
	}
	if err := t.get(ctx, "sentiment", "/2/tweets/search/recent", params, &result); err != nil {
		return 0, err
	}

	mentions := make([]Mention, 0, len(result.Data))
	for _, tweet := range result.Data {
		if isReshare(tweet) {
			continue
		}
		mentions = append(mentions, Mention{
			Likes:    tweet.PublicMetrics.LikeCount,
			Reshares: tweet.PublicMetrics.RetweetCount,
		})
		if len(mentions) == sentimentSampleSize {
			break
		}
	}
	return Sentiment(mentions), nil
}

func isReshare(tweet Tweet) bool {
	for _, ref := range tweet.ReferencedTweets {
		if ref.Type == "retweeted" {
			return true
		}
	}
	return false
}

// EngagementRate is likes per tweet per follower as a percentage, 0 without followers or tweets.
func EngagementRate(likes, tweets, followers int64) float64 {
	if followers <= 0 || tweets <= 0 {
		return 0
	}
	return round2(float64(likes) / float64(tweets) / float64(followers) * 100)
}

// Sentiment averages min(10, (likes + 2*reshares) / 10) over mentions, 0 when empty.
func Sentiment(mentions []Mention) float64 {
	if len(mentions) == 0 {
		return 0
	}

	var total float64
	for _, m := range mentions {
		total += math.Min(maxMentionScore, float64(m.Likes+2*m.Reshares)/10)
	}
	return round2(total / float64(len(mentions)))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
