package platform

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/JavaZeroo/gitee-monitor/internal/domain"
	"github.com/JavaZeroo/gitee-monitor/internal/pkg/logger"
)

// giteeClient speaks the Gitee v5 REST dialect.
type giteeClient struct {
	rest   *restClient
	logger *logger.Logger
}

func NewGiteeClient(cfg ClientConfig, log *logger.Logger) Client {
	log = log.Component("platform/gitee")
	token := cfg.AccessToken
	headers := func(h http.Header) {
		if token != "" {
			h.Set("Authorization", "token "+token)
		}
	}
	return &giteeClient{
		rest:   newRESTClient(cfg, headers, log),
		logger: log,
	}
}

// giteePR mirrors the fields of Gitee's pull request payload the
// engine cares about. Gitee reports merged as a first-class state.
type giteePR struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	State  string `json:"state"` // open, closed, merged
	User   struct {
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

func (p giteePR) toState() domain.PRState {
	state := domain.PRState{
		Title:        p.Title,
		Author:       p.User.Login,
		SourceBranch: p.Head.Ref,
		TargetBranch: p.Base.Ref,
		Status:       domain.PRStatus(p.State),
		Labels:       make([]domain.Label, 0, len(p.Labels)),
	}
	for _, l := range p.Labels {
		state.Labels = append(state.Labels, domain.Label{Name: l.Name, Color: l.Color})
	}
	return state
}

func (c *giteeClient) FetchPR(ctx context.Context, owner, repo string, number int) (domain.PRState, error) {
	var pr giteePR
	path := fmt.Sprintf("/repos/%s/%s/pulls/%d", owner, repo, number)
	if err := c.rest.getJSON(ctx, path, nil, &pr); err != nil {
		return domain.PRState{}, fmt.Errorf("fetch gitee pr %s/%s#%d: %w", owner, repo, number, err)
	}

	c.logger.Debug("fetched pr",
		"owner", owner,
		"repo", repo,
		"number", number,
		"status", pr.State,
	)

	return pr.toState(), nil
}

func (c *giteeClient) ListOpenPRs(ctx context.Context, owner, repo, author string) ([]int, error) {
	var prs []giteePR
	path := fmt.Sprintf("/repos/%s/%s/pulls", owner, repo)
	query := url.Values{
		"state":     {"open"},
		"sort":      {"updated"},
		"direction": {"desc"},
		"per_page":  {"100"},
	}
	if err := c.rest.getJSON(ctx, path, query, &prs); err != nil {
		return nil, fmt.Errorf("list gitee prs %s/%s: %w", owner, repo, err)
	}

	// Gitee has no author filter on the list endpoint, filter locally
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
