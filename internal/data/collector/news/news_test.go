package news

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/songzhibin97/deepdive/internal/data"
)

var fixedNow = time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)

func rssBody(dates ...string) string {
	items := ""
	for i, d := range dates {
		pub := ""
		if d != "" {
			pub = "<pubDate>" + d + "</pubDate>"
		}
		items += fmt.Sprintf("<item><title>Story %d</title><link>https://news.example/%d</link>%s</item>", i, i, pub)
	}
	return `<?xml version="1.0" encoding="UTF-8"?><rss version="2.0"><channel><title>search</title>` + items + `</channel></rss>`
}

func setupTestServer(handler http.HandlerFunc) (*httptest.Server, *NewsDataSource) {
	server := httptest.NewServer(handler)

	ds := NewNewsDataSource(server.URL, time.Second)
	ds.httpClient = resty.NewWithClient(server.Client())
	ds.now = func() time.Time { return fixedNow }

	return server, ds
}

func TestNewsDataSource_CountMentions(t *testing.T) {
	server, ds := setupTestServer(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rss/search", r.URL.Path)
		assert.Equal(t, `"Uniswap" crypto`, r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(rssBody(
			fixedNow.Add(-time.Hour).Format(time.RFC1123Z),
			fixedNow.Add(-6*24*time.Hour).Format(time.RFC1123Z),
			fixedNow.Add(-8*24*time.Hour).Format(time.RFC1123Z),
			"",
		)))
	})
	defer server.Close()

	count, err := ds.CountMentions(context.Background(), "Uniswap")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestNewsDataSource_EmptyFeed(t *testing.T) {
	server, ds := setupTestServer(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(rssBody()))
	})
	defer server.Close()

	count, err := ds.CountMentions(context.Background(), "Nothing")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestNewsDataSource_ErrorHandling(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		handler  http.HandlerFunc
		wantKind error
	}{
		{
			name:  "service unavailable",
			query: "Uniswap",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			},
			wantKind: data.ErrUnavailable,
		},
		{
			name:  "not a feed",
			query: "Uniswap",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("definitely not xml"))
			},
			wantKind: data.ErrMalformed,
		},
		{
			name:     "blank name",
			query:    "",
			handler:  func(w http.ResponseWriter, r *http.Request) {},
			wantKind: data.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, ds := setupTestServer(tt.handler)
			defer server.Close()

			_, err := ds.CountMentions(context.Background(), tt.query)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantKind), "got %v", err)
		})
	}
}
