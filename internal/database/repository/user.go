package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/artur/social-points-bot/internal/database/models"
)

const (
	MinLeaderboardLimit = 1
	MaxLeaderboardLimit = 100
)

const userColumns = `id, chat_id, COALESCE(handle, '') AS handle, points, referrals_count, created_at, updated_at`

// UserRepository handles user data persistence
type UserRepository struct{}

// NewUserRepository creates a new UserRepository
func NewUserRepository() *UserRepository {
	return &UserRepository{}
}

// Upsert creates the user on first contact and refreshes a changed handle.
// Concurrent first-contact calls converge on one row through the chat_id unique constraint.
func (r *UserRepository) Upsert(ctx context.Context, q DBExecutor, chatID int64, handle string) (*models.User, error) {
	now := time.Now().UTC()

	query := q.Rebind(`
		INSERT INTO users (chat_id, handle, points, referrals_count, created_at, updated_at)
		VALUES (?, ?, 0, 0, ?, ?)
		ON CONFLICT (chat_id) DO NOTHING
	`)
	if _, err := q.ExecContext(ctx, query, chatID, nullString(handle), now, now); err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	user, err := r.GetByChatID(ctx, q, chatID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user %d missing after upsert", chatID)
	}

	if handle != "" && user.Handle != handle {
		query := q.Rebind(`UPDATE users SET handle = ?, updated_at = ? WHERE id = ?`)
		if _, err := q.ExecContext(ctx, query, handle, now, user.ID); err != nil {
			return nil, fmt.Errorf("failed to update handle: %w", err)
		}
		user.Handle = handle
		user.UpdatedAt = now
	}

	return user, nil
}

// GetByChatID retrieves user by Telegram chat ID
func (r *UserRepository) GetByChatID(ctx context.Context, q DBExecutor, chatID int64) (*models.User, error) {
	user := &models.User{}
	query := q.Rebind(`SELECT ` + userColumns + ` FROM users WHERE chat_id = ?`)

	err := q.GetContext(ctx, user, query, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetPoints returns the balance of a user, 0 if the user does not exist
func (r *UserRepository) GetPoints(ctx context.Context, q DBExecutor, chatID int64) (int64, error) {
	var points int64
	err := q.GetContext(ctx, &points, q.Rebind(`SELECT points FROM users WHERE chat_id = ?`), chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get points: %w", err)
	}
	return points, nil
}

// CountExisting returns how many of the given internal IDs exist
func (r *UserRepository) CountExisting(ctx context.Context, q DBExecutor, firstID, secondID int64) (int64, error) {
	var count int64
	query := q.Rebind(`SELECT COUNT(*) FROM users WHERE id IN (?, ?)`)
	if err := q.GetContext(ctx, &count, query, firstID, secondID); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

// AddPoints credits amount to the user and returns the new balance
func (r *UserRepository) AddPoints(ctx context.Context, q DBExecutor, userID, amount int64) (int64, error) {
	var total int64
	query := q.Rebind(`UPDATE users SET points = points + ?, updated_at = ? WHERE id = ? RETURNING points`)

	err := q.GetContext(ctx, &total, query, amount, time.Now().UTC(), userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrUserNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to add points to user %d: %w", userID, err)
	}
	return total, nil
}

// AddReferral credits the referral reward and bumps referrals_count
func (r *UserRepository) AddReferral(ctx context.Context, q DBExecutor, referrerID, reward int64) error {
	query := q.Rebind(`
		UPDATE users
		SET points = points + ?, referrals_count = referrals_count + 1, updated_at = ?
		WHERE id = ?
	`)

	result, err := q.ExecContext(ctx, query, reward, time.Now().UTC(), referrerID)
	if err != nil {
		return fmt.Errorf("failed to credit referrer %d: %w", referrerID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for referrer %d: %w", referrerID, err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// TopByPoints returns users ordered by points, earliest registration first on ties
func (r *UserRepository) TopByPoints(ctx context.Context, q DBExecutor, limit int) ([]models.User, error) {
	return r.top(ctx, q, "points", limit)
}

// TopByReferrals returns users ordered by referrals_count, earliest registration first on ties
func (r *UserRepository) TopByReferrals(ctx context.Context, q DBExecutor, limit int) ([]models.User, error) {
	return r.top(ctx, q, "referrals_count", limit)
}

// top interpolates metric, which is always one of the column constants above.
func (r *UserRepository) top(ctx context.Context, q DBExecutor, metric string, limit int) ([]models.User, error) {
	query := q.Rebind(`
		SELECT ` + userColumns + `
		FROM users
		ORDER BY ` + metric + ` DESC, id ASC
		LIMIT ?
	`)

	var users []models.User
	if err := q.SelectContext(ctx, &users, query, ClampLimit(limit)); err != nil {
		return nil, fmt.Errorf("failed to get leaderboard by %s: %w", metric, err)
	}
	return users, nil
}

// GetTotalUsers returns total number of unique users
func (r *UserRepository) GetTotalUsers(ctx context.Context, q DBExecutor) (int64, error) {
	var count int64
	err := q.GetContext(ctx, &count, "SELECT COUNT(*) FROM users")
	return count, err
}

// ClampLimit bounds a leaderboard size to [MinLeaderboardLimit, MaxLeaderboardLimit]
func ClampLimit(limit int) int {
	if limit < MinLeaderboardLimit {
		return MinLeaderboardLimit
	}
	if limit > MaxLeaderboardLimit {
		return MaxLeaderboardLimit
	}
	return limit
}
