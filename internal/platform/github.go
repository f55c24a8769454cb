package platform

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/JavaZeroo/gitee-monitor/internal/domain"
	"github.com/JavaZeroo/gitee-monitor/internal/pkg/logger"
)

// githubClient speaks the GitHub v3 REST dialect.
type githubClient struct {
	rest   *restClient
	logger *logger.Logger
}

func NewGitHubClient(cfg ClientConfig, log *logger.Logger) Client {
	log = log.Component("platform/github")
	token := cfg.AccessToken
	headers := func(h http.Header) {
		h.Set("Accept", "application/vnd.github.v3+json")
		h.Set("User-Agent", "gitee-monitor/1.0")
		if token != "" {
			h.Set("Authorization", "token "+token)
		}
	}
	return &githubClient{
		rest:   newRESTClient(cfg, headers, log),
		logger: log,
	}
}

// githubPR mirrors GitHub's pull request payload. GitHub only knows
// open/closed; a merged PR is closed with merged_at set.
type githubPR struct {
	Number   int        `json:"number"`
	Title    string     `json:"title"`
	State    string     `json:"state"` // open, closed
	MergedAt *time.Time `json:"merged_at"`
	User     struct {
		Login string `json:"login"`
	} `json:"user"`
	Head struct {
		Ref string `json:"ref"`
	} `json:"head"`
	Base struct {
		Ref string `json:"ref"`
	} `json:"base"`
	Labels []struct {
		Name  string `json:"name"`
		Color string `json:"color"`
	} `json:"labels"`
}

func (p githubPR) toState() domain.PRState {
	status := domain.PRStatus(p.State)
	if p.State == "closed" && p.MergedAt != nil {
		status = domain.PRStatusMerged
	}

	state := domain.PRState{
		Title:        p.Title,
		Author:       p.User.Login,
		SourceBranch: p.Head.Ref,
		TargetBranch: p.Base.Ref,
		Status:       status,
		Labels:       make([]domain.Label, 0, len(p.Labels)),
	}
	for _, l := range p.Labels {
		state.Labels = append(state.Labels, domain.Label{Name: l.Name, Color: l.Color})
	}
	return state
}

func (c *githubClient) FetchPR(ctx context.Context, owner, repo string, number int) (domain.PRState, error) {
	var pr githubPR
	path := fmt.Sprintf("/repos/%s/%s/pulls/%d", owner, repo, number)
	if err := c.rest.getJSON(ctx, path, nil, &pr); err != nil {
		return domain.PRState{}, fmt.Errorf("fetch github pr %s/%s#%d: %w", owner, repo, number, err)
	}

	c.logger.Debug("fetched pr",
		"owner", owner,
		"repo", repo,
		"number", number,
		"status", pr.State,
	)

	return pr.toState(), nil
}

func (c *githubClient) ListOpenPRs(ctx context.Context, owner, repo, author string) ([]int, error) {
	var prs []githubPR
	path := fmt.Sprintf("/repos/%s/%s/pulls", owner, repo)
	query := url.Values{
		"state":     {"open"},
		"sort":      {"created"},
		"direction": {"desc"},
		"per_page":  {"100"},
	}
	if err := c.rest.getJSON(ctx, path, query, &prs); err != nil {
		return nil, fmt.Errorf("list github prs %s/%s: %w", owner, repo, err)
	}

	var numbers []int
	for _, pr := range prs {
		if pr.User.Login == author {
			numbers = append(numbers, pr.Number)
		}
	}

	c.logger.Debug("listed open prs",
		"owner", owner,
		"repo", repo,
		"author", author,
		"count", len(numbers),
	)

	return numbers, nil
}
