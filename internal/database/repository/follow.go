package repository

import (
	"context"
	"fmt"

	"github.com/artur/social-points-bot/internal/database/models"
)

// FollowRepository handles platform follow persistence
type FollowRepository struct{}

// NewFollowRepository creates a new FollowRepository
func NewFollowRepository() *FollowRepository {
	return &FollowRepository{}
}

// RecordFollow records an acknowledged platform follow
func (r *FollowRepository) RecordFollow(ctx context.Context, q DBExecutor, follow *models.PlatformFollow) error {
	query := q.Rebind(`
		INSERT INTO platform_follows (user_id, platform, reward, created_at)
		VALUES (?, ?, ?, ?)
	`)

	_, err := q.ExecContext(ctx, query,
		follow.UserID,
		follow.Platform,
		follow.Reward,
		follow.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record platform follow: %w", err)
	}
	return nil
}

// GetUserFollowCount returns total acknowledged follows for a user
func (r *FollowRepository) GetUserFollowCount(ctx context.Context, q DBExecutor, userID int64) (int64, error) {
	var count int64
	err := q.GetContext(ctx, &count, q.Rebind(`SELECT COUNT(*) FROM platform_follows WHERE user_id = ?`), userID)
	return count, err
}

// PlatformCount represents a platform with its follow count
type PlatformCount struct {
	Platform string `db:"platform" json:"platform"`
	Count    int64  `db:"count" json:"count"`
}

// GetPopularPlatforms returns most acknowledged platforms (top N)
func (r *FollowRepository) GetPopularPlatforms(ctx context.Context, q DBExecutor, limit int) ([]PlatformCount, error) {
	query := q.Rebind(`
		SELECT platform, COUNT(*) AS count
		FROM platform_follows
		GROUP BY platform
		ORDER BY count DESC, platform
		LIMIT ?
	`)

	var platforms []PlatformCount
	if err := q.SelectContext(ctx, &platforms, query, limit); err != nil {
		return nil, fmt.Errorf("failed to get popular platforms: %w", err)
	}
	return platforms, nil
}
