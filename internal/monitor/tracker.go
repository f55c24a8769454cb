package monitor

import (
	"context"
	"errors"
	"fmt"

	"github.com/JavaZeroo/gitee-monitor/internal/domain"
	"github.com/JavaZeroo/gitee-monitor/internal/pkg/logger"
	"github.com/JavaZeroo/gitee-monitor/internal/platform"
	"github.com/JavaZeroo/gitee-monitor/internal/ratelimit"
)

// TrackedStore supplies the explicitly tracked keys and accepts
// removals when a pull request disappears from its platform.
type TrackedStore interface {
	List(ctx context.Context) ([]domain.TrackedKey, error)
	Remove(ctx context.Context, key domain.TrackedKey) error
}

// AuthorStore supplies the followed-author rules.
type AuthorStore interface {
	List(ctx context.Context) ([]domain.FollowedAuthor, error)
}

// Tracker resolves the working set for a cycle: the explicit keys
// unioned with every followed author's currently open pull requests.
// Derived keys are never persisted; they are recomputed each cycle, so
// removing a followed author simply stops contributing keys from the
// next resolution on.
type Tracker struct {
	tracked TrackedStore
	authors AuthorStore
	clients platform.Registry
	limits  ratelimit.Set
	logger  *logger.Logger
}

func NewTracker(
	tracked TrackedStore,
	authors AuthorStore,
	clients platform.Registry,
	limits ratelimit.Set,
	log *logger.Logger,
) *Tracker {
	return &Tracker{
		tracked: tracked,
		authors: authors,
		clients: clients,
		limits:  limits,
		logger:  log.Component("monitor/tracker"),
	}
}

// Resolve builds the deduplicated working set. A failing author
// expansion skips that author for this cycle and is reported; an auth
// failure marks the whole platform failed so the pool skips its keys
// too.
func (t *Tracker) Resolve(ctx context.Context, rep *reporter) []domain.TrackedKey {
	seen := make(map[domain.TrackedKey]struct{})
	var keys []domain.TrackedKey

	add := func(key domain.TrackedKey) {
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}

	explicit, err := t.tracked.List(ctx)
	if err != nil {
		rep.resolveError(fmt.Sprintf("list tracked prs: %v", err))
	}
	for _, key := range explicit {
		add(key)
	}

	followed, err := t.authors.List(ctx)
	if err != nil {
		rep.resolveError(fmt.Sprintf("list followed authors: %v", err))
	}

	for _, author := range followed {
		if rep.platformIsFailed(author.Platform) {
			continue
		}
		for _, key := range t.expand(ctx, author, rep) {
			add(key)
		}
	}

	t.logger.Debug("resolved tracking set",
		"explicit", len(explicit),
		"followed_authors", len(followed),
		"total", len(keys),
	)

	return keys
}

func (t *Tracker) expand(ctx context.Context, author domain.FollowedAuthor, rep *reporter) []domain.TrackedKey {
	client, err := t.clients.For(author.Platform)
	if err != nil {
		rep.resolveError(fmt.Sprintf("author %s on %s: %v", author.Author, author.Platform, err))
		return nil
	}

	if err := t.limits.For(author.Platform).Acquire(ctx); err != nil {
		rep.resolveError(fmt.Sprintf("author %s on %s: %v", author.Author, author.Platform, err))
		return nil
	}

	owner, repo := author.SplitRepo()
	numbers, err := client.ListOpenPRs(ctx, owner, repo, author.Author)
	if err != nil {
		if errors.Is(err, domain.ErrAuth) {
			rep.platformFailed(author.Platform, err)
			t.logger.Error("platform auth failed during resolution",
				"platform", author.Platform,
				"error", err,
			)
		} else {
			rep.resolveError(fmt.Sprintf("author %s in %s: %v", author.Author, author.Repo, err))
			t.logger.Warn("author expansion failed, skipping this cycle",
				"author", author.Author,
				"repo", author.Repo,
				"error", err,
			)
		}
		return nil
	}

	derived := make([]domain.TrackedKey, 0, len(numbers))
	for _, n := range numbers {
		derived = append(derived, domain.TrackedKey{
			Platform: author.Platform,
			Owner:    owner,
			Repo:     repo,
			Number:   n,
		})
	}
	return derived
}
