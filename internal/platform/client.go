package platform

import (
	"context"
	"fmt"
	"time"

	"github.com/JavaZeroo/gitee-monitor/internal/domain"
	"github.com/JavaZeroo/gitee-monitor/internal/pkg/logger"
)

// Client is the uniform contract over one hosting platform's REST
// dialect. Implementations normalize field names, status enums and
// pagination into the shared domain types; callers see no difference
// beyond which platform a TrackedKey names.
type Client interface {
	// FetchPR returns the current state of a single pull request.
	FetchPR(ctx context.Context, owner, repo string, number int) (domain.PRState, error)

	// ListOpenPRs returns the numbers of the author's currently open
	// pull requests in the repository.
	ListOpenPRs(ctx context.Context, owner, repo, author string) ([]int, error)
}

// ClientConfig carries the per-platform connection settings.
type ClientConfig struct {
	BaseURL        string
	AccessToken    string
	RequestTimeout time.Duration
}

// Registry maps a platform to its client.
type Registry map[domain.Platform]Client

// NewRegistry builds clients for both supported platforms.
func NewRegistry(gitee, github ClientConfig, log *logger.Logger) Registry {
	return Registry{
		domain.PlatformGitee:  NewGiteeClient(gitee, log),
		domain.PlatformGitHub: NewGitHubClient(github, log),
	}
}

// For returns the client registered for the platform.
func (r Registry) For(p domain.Platform) (Client, error) {
	client, ok := r[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownPlatform, p)
	}
	return client, nil
}
