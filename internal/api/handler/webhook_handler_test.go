package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JavaZeroo/gitee-monitor/internal/domain"
	"github.com/JavaZeroo/gitee-monitor/internal/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json"})
	require.NoError(t, err)
	return log
}

func TestSenderPlatform(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/webhook", nil)
	r.Header.Set("X-Gitee-Event", "pull_request")
	platform, event := senderPlatform(r)
	assert.Equal(t, domain.PlatformGitee, platform)
	assert.Equal(t, "pull_request", event)

	r = httptest.NewRequest(http.MethodPost, "/webhook", nil)
	r.Header.Set("X-GitHub-Event", "pull_request")
	platform, event = senderPlatform(r)
	assert.Equal(t, domain.PlatformGitHub, platform)

	r = httptest.NewRequest(http.MethodPost, "/webhook", nil)
	platform, _ = senderPlatform(r)
	assert.Empty(t, platform)
}

func TestNormalizeGiteePayload(t *testing.T) {
	payload := webhookPayload{
		Action: "update_label",
		PullRequest: &webhookPR{
			Number: 12345,
			Title:  "Fix gradient overflow",
			State:  "open",
		},
	}
	payload.PullRequest.User.Login = "carol"
	payload.PullRequest.Head.Ref = "fix-amp"
	payload.PullRequest.Base.Ref = "master"
	payload.PullRequest.Base.Repo.Name = "mindspore"
	payload.PullRequest.Base.Repo.Owner.Login = "mindspore"
	payload.PullRequest.Labels = []struct {
		Name  string `json:"name"`
		Color string `json:"color"`
	}{{Name: "approved", Color: "0e8a16"}}

	event := normalize(domain.PlatformGitee, payload)

	assert.Equal(t, "gitee:mindspore/mindspore#12345", event.Key.String())
	assert.False(t, event.Removed)
	require.NotNil(t, event.State)
	assert.Equal(t, domain.PRStatusOpen, event.State.Status)
	assert.Equal(t, "carol", event.State.Author)
	assert.Equal(t, []domain.Label{{Name: "approved", Color: "0e8a16"}}, event.State.Labels)
}

func TestNormalizeMergedStates(t *testing.T) {
	mergedAt := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)

	cases := []struct {
		name     string
		state    string
		merged   bool
		mergedAt *time.Time
		want     domain.PRStatus
	}{
		{"open", "open", false, nil, domain.PRStatusOpen},
		{"closed unmerged", "closed", false, nil, domain.PRStatusClosed},
		{"closed with merged flag", "closed", true, nil, domain.PRStatusMerged},
		{"closed with merged_at", "closed", false, &mergedAt, domain.PRStatusMerged},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pr := &webhookPR{Number: 1, State: tc.state, Merged: tc.merged, MergedAt: tc.mergedAt}
			event := normalize(domain.PlatformGitHub, webhookPayload{PullRequest: pr})
			assert.Equal(t, tc.want, event.State.Status)
		})
	}
}

func TestReceiveIgnoresUnrelatedEvents(t *testing.T) {
	// the engine is never reached on these paths
	h := NewWebhookHandler(nil, testLogger(t))

	t.Run("no event header", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.Receive(w, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{}")))
		assert.Equal(t, http.StatusAccepted, w.Code)
	})

	t.Run("push event", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{}"))
		r.Header.Set("X-GitHub-Event", "push")
		w := httptest.NewRecorder()
		h.Receive(w, r)
		assert.Equal(t, http.StatusAccepted, w.Code)
	})
}

func TestReceiveRejectsMalformedBody(t *testing.T) {
	h := NewWebhookHandler(nil, testLogger(t))

	t.Run("invalid json", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{not json"))
		r.Header.Set("X-Gitee-Event", "pull_request")
		w := httptest.NewRecorder()
		h.Receive(w, r)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing pull_request", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"action": "open"}`))
		r.Header.Set("X-Gitee-Event", "pull_request")
		w := httptest.NewRecorder()
		h.Receive(w, r)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
