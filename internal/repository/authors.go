package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JavaZeroo/gitee-monitor/internal/domain"
	"github.com/JavaZeroo/gitee-monitor/internal/pkg/logger"
)

type AuthorRepo struct {
	db     *pgxpool.Pool
	logger *logger.Logger
}

func NewAuthorRepo(db *pgxpool.Pool, logger *logger.Logger) *AuthorRepo {
	return &AuthorRepo{
		db:     db,
		logger: logger.Component("repository/authors"),
	}
}

func (r *AuthorRepo) List(ctx context.Context) ([]domain.FollowedAuthor, error) {
	rows, err := r.db.Query(ctx, `
        SELECT platform, author, repo
        FROM followed_authors
        ORDER BY created_at
    `)
	if err != nil {
		return nil, fmt.Errorf("query followed authors: %w", err)
	}
	defer rows.Close()

	var authors []domain.FollowedAuthor
	for rows.Next() {
		var author domain.FollowedAuthor
		if err := rows.Scan(&author.Platform, &author.Author, &author.Repo); err != nil {
			return nil, fmt.Errorf("scan followed author: %w", err)
		}
		authors = append(authors, author)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate followed authors: %w", err)
	}

	return authors, nil
}

func (r *AuthorRepo) Add(ctx context.Context, author domain.FollowedAuthor) error {
	tag, err := r.db.Exec(ctx, `
        INSERT INTO followed_authors (platform, author, repo)
        VALUES ($1, $2, $3)
        ON CONFLICT DO NOTHING
    `, author.Platform, author.Author, author.Repo)
	if err != nil {
		return fmt.Errorf("insert followed author: %w", err)
	}

	if tag.RowsAffected() == 0 {
		r.logger.Debug("author already followed",
			"author", author.Author,
			"repo", author.Repo,
		)
		return nil
	}

	r.logger.Info("author followed",
		"platform", author.Platform,
		"author", author.Author,
		"repo", author.Repo,
	)
	return nil
}

func (r *AuthorRepo) Remove(ctx context.Context, author domain.FollowedAuthor) error {
	tag, err := r.db.Exec(ctx, `
        DELETE FROM followed_authors
        WHERE platform = $1 AND author = $2 AND repo = $3
    `, author.Platform, author.Author, author.Repo)
	if err != nil {
		return fmt.Errorf("delete followed author: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrPRNotFound
	}

	r.logger.Info("author unfollowed",
		"platform", author.Platform,
		"author", author.Author,
		"repo", author.Repo,
	)
	return nil
}
