package service

import (
	"context"
	"fmt"
	"regexp"

	. "github.com/go-ozzo/ozzo-validation"

	"github.com/JavaZeroo/gitee-monitor/internal/domain"
	"github.com/JavaZeroo/gitee-monitor/internal/pkg/logger"
	"github.com/JavaZeroo/gitee-monitor/internal/repository"
)

// repoPattern is the exact "owner/repo" form a followed-author rule
// must use. Anything else is rejected here and never reaches the
// engine.
var repoPattern = regexp.MustCompile(`^[^/\s]+/[^/\s]+$`)

var namePattern = regexp.MustCompile(`^[^/\s]+$`)

// TrackingService is the command boundary for the engine's
// configuration-backed inputs: explicit tracked pull requests and
// followed authors. Mutations take effect on the next resolution, not
// retroactively.
type TrackingService struct {
	tracked repository.TrackedRepository
	authors repository.AuthorRepository
	logger  *logger.Logger
}

func NewTrackingService(
	tracked repository.TrackedRepository,
	authors repository.AuthorRepository,
	log *logger.Logger,
) *TrackingService {
	return &TrackingService{
		tracked: tracked,
		authors: authors,
		logger:  log.Component("service/tracking"),
	}
}

type TrackedCommand struct {
	Platform string `json:"platform"`
	Owner    string `json:"owner"`
	Repo     string `json:"repo"`
	Number   int    `json:"pull_request_id"`
}

func (c TrackedCommand) Validate() error {
	return ValidateStruct(&c,
		Field(&c.Platform, Required, In(string(domain.PlatformGitee), string(domain.PlatformGitHub))),
		Field(&c.Owner, Required, Match(namePattern)),
		Field(&c.Repo, Required, Match(namePattern)),
		Field(&c.Number, Required, Min(1)),
	)
}

func (c TrackedCommand) key() domain.TrackedKey {
	return domain.TrackedKey{
		Platform: domain.Platform(c.Platform),
		Owner:    c.Owner,
		Repo:     c.Repo,
		Number:   c.Number,
	}
}

type AuthorCommand struct {
	Platform string `json:"platform"`
	Author   string `json:"author"`
	Repo     string `json:"repo"`
}

func (c AuthorCommand) Validate() error {
	return ValidateStruct(&c,
		Field(&c.Platform, Required, In(string(domain.PlatformGitee), string(domain.PlatformGitHub))),
		Field(&c.Author, Required, Match(namePattern)),
		Field(&c.Repo, Required, Match(repoPattern)),
	)
}

func (c AuthorCommand) author() domain.FollowedAuthor {
	return domain.FollowedAuthor{
		Platform: domain.Platform(c.Platform),
		Author:   c.Author,
		Repo:     c.Repo,
	}
}

func (s *TrackingService) AddTracked(ctx context.Context, cmd TrackedCommand) (domain.TrackedKey, error) {
	if err := cmd.Validate(); err != nil {
		return domain.TrackedKey{}, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	key := cmd.key()
	if err := s.tracked.Add(ctx, key); err != nil {
		return domain.TrackedKey{}, fmt.Errorf("add tracked pr: %w", err)
	}
	return key, nil
}

func (s *TrackingService) RemoveTracked(ctx context.Context, cmd TrackedCommand) error {
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	if err := s.tracked.Remove(ctx, cmd.key()); err != nil {
		return fmt.Errorf("remove tracked pr: %w", err)
	}
	return nil
}

func (s *TrackingService) FollowAuthor(ctx context.Context, cmd AuthorCommand) (domain.FollowedAuthor, error) {
	if err := cmd.Validate(); err != nil {
		return domain.FollowedAuthor{}, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	author := cmd.author()
	if err := s.authors.Add(ctx, author); err != nil {
		return domain.FollowedAuthor{}, fmt.Errorf("follow author: %w", err)
	}
	return author, nil
}

func (s *TrackingService) UnfollowAuthor(ctx context.Context, cmd AuthorCommand) error {
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	if err := s.authors.Remove(ctx, cmd.author()); err != nil {
		return fmt.Errorf("unfollow author: %w", err)
	}
	return nil
}
