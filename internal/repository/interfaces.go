package repository

import (
	"context"

	"github.com/JavaZeroo/gitee-monitor/internal/domain"
)

type TrackedRepository interface {
	List(ctx context.Context) ([]domain.TrackedKey, error)
	Add(ctx context.Context, key domain.TrackedKey) error
	Remove(ctx context.Context, key domain.TrackedKey) error
}

type AuthorRepository interface {
	List(ctx context.Context) ([]domain.FollowedAuthor, error)
	Add(ctx context.Context, author domain.FollowedAuthor) error
	Remove(ctx context.Context, author domain.FollowedAuthor) error
}
