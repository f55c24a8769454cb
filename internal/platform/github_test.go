package platform_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JavaZeroo/gitee-monitor/internal/domain"
	"github.com/JavaZeroo/gitee-monitor/internal/platform"
)

func githubClientFor(t *testing.T, srv *httptest.Server, token string) platform.Client {
	t.Helper()
	return platform.NewGitHubClient(platform.ClientConfig{
		BaseURL:        srv.URL,
		AccessToken:    token,
		RequestTimeout: 5 * time.Second,
	}, testLogger(t))
}

func TestGitHubFetchPRSendsAPIHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/vnd.github.v3+json", r.Header.Get("Accept"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		assert.Equal(t, "token secret", r.Header.Get("Authorization"))
		w.Write([]byte(`{"number": 1, "title": "t", "state": "open", "user": {"login": "x"}}`))
	}))
	defer srv.Close()

	client := githubClientFor(t, srv, "secret")
	state, err := client.FetchPR(context.Background(), "golang", "go", 1)
	require.NoError(t, err)
	assert.Equal(t, domain.PRStatusOpen, state.Status)
}

func TestGitHubMergedIsClosedWithMergedAt(t *testing.T) {
	cases := []struct {
		name string
		body string
		want domain.PRStatus
	}{
		{
			"open",
			`{"number": 1, "state": "open", "merged_at": null, "user": {"login": "x"}}`,
			domain.PRStatusOpen,
		},
		{
			"closed without merge",
			`{"number": 1, "state": "closed", "merged_at": null, "user": {"login": "x"}}`,
			domain.PRStatusClosed,
		},
		{
			"closed with merge timestamp",
			`{"number": 1, "state": "closed", "merged_at": "2024-03-01T10:30:00Z", "user": {"login": "x"}}`,
			domain.PRStatusMerged,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			client := githubClientFor(t, srv, "")
			state, err := client.FetchPR(context.Background(), "golang", "go", 1)
			require.NoError(t, err)
			assert.Equal(t, tc.want, state.Status)
		})
	}
}

func TestGitHubListOpenPRsFiltersByAuthor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/golang/go/pulls", r.URL.Path)
		assert.Equal(t, "open", r.URL.Query().Get("state"))
		w.Write([]byte(`[
			{"number": 101, "state": "open", "user": {"login": "dave"}},
			{"number": 102, "state": "open", "user": {"login": "erin"}}
		]`))
	}))
	defer srv.Close()

	client := githubClientFor(t, srv, "")
	numbers, err := client.ListOpenPRs(context.Background(), "golang", "go", "erin")
	require.NoError(t, err)
	assert.Equal(t, []int{102}, numbers)
}

func TestGitHubRateLimitHeadersOnForbidden(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	client := githubClientFor(t, srv, "")
	_, err := client.FetchPR(context.Background(), "golang", "go", 1)
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.False(t, platform.IsRetryable(err))
}
