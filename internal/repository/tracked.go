package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JavaZeroo/gitee-monitor/internal/domain"
	"github.com/JavaZeroo/gitee-monitor/internal/pkg/logger"
)

type TrackedRepo struct {
	db     *pgxpool.Pool
	logger *logger.Logger
}

func NewTrackedRepo(db *pgxpool.Pool, logger *logger.Logger) *TrackedRepo {
	return &TrackedRepo{
		db:     db,
		logger: logger.Component("repository/tracked"),
	}
}

// List returns every explicitly tracked key, oldest first.
func (r *TrackedRepo) List(ctx context.Context) ([]domain.TrackedKey, error) {
	rows, err := r.db.Query(ctx, `
        SELECT platform, owner, repo, pull_request_id
        FROM tracked_prs
        ORDER BY created_at
    `)
	if err != nil {
		return nil, fmt.Errorf("query tracked prs: %w", err)
	}
	defer rows.Close()

	var keys []domain.TrackedKey
	for rows.Next() {
		var key domain.TrackedKey
		if err := rows.Scan(&key.Platform, &key.Owner, &key.Repo, &key.Number); err != nil {
			return nil, fmt.Errorf("scan tracked pr: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tracked prs: %w", err)
	}

	return keys, nil
}

// Add inserts the key; adding an already tracked key is a no-op.
func (r *TrackedRepo) Add(ctx context.Context, key domain.TrackedKey) error {
	tag, err := r.db.Exec(ctx, `
        INSERT INTO tracked_prs (platform, owner, repo, pull_request_id)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT DO NOTHING
    `, key.Platform, key.Owner, key.Repo, key.Number)
	if err != nil {
		return fmt.Errorf("insert tracked pr: %w", err)
	}

	if tag.RowsAffected() == 0 {
		r.logger.Debug("pr already tracked", "key", key.String())
		return nil
	}

	r.logger.Info("pr added to tracking", "key", key.String())
	return nil
}

// Remove deletes the key. Returns ErrPRNotFound when it was not
// tracked.
func (r *TrackedRepo) Remove(ctx context.Context, key domain.TrackedKey) error {
	tag, err := r.db.Exec(ctx, `
        DELETE FROM tracked_prs
        WHERE platform = $1 AND owner = $2 AND repo = $3 AND pull_request_id = $4
    `, key.Platform, key.Owner, key.Repo, key.Number)
	if err != nil {
		return fmt.Errorf("delete tracked pr: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrPRNotFound
	}

	r.logger.Info("pr removed from tracking", "key", key.String())
	return nil
}
