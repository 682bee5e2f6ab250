package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/artur/social-points-bot/internal/database"
	"github.com/artur/social-points-bot/internal/database/models"
)

var ErrReferralExists = errors.New("referral already exists")

// ReferralRepository handles referral edge persistence
type ReferralRepository struct{}

// NewReferralRepository creates a new ReferralRepository
func NewReferralRepository() *ReferralRepository {
	return &ReferralRepository{}
}

// Create inserts the edge. A second insert for the same pair returns ErrReferralExists.
func (r *ReferralRepository) Create(ctx context.Context, q DBExecutor, referral *models.Referral) error {
	query := q.Rebind(`
		INSERT INTO referrals (referred_user, referrer, reward, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`)

	err := q.GetContext(ctx, &referral.ID, query,
		referral.ReferredUser,
		referral.Referrer,
		referral.Reward,
		referral.CreatedAt,
	)
	if database.IsUniqueViolation(err) {
		return ErrReferralExists
	}
	if err != nil {
		return fmt.Errorf("failed to create referral: %w", err)
	}
	return nil
}

// CountByReferrer returns the number of edges where the user is the inviter
func (r *ReferralRepository) CountByReferrer(ctx context.Context, q DBExecutor, referrerID int64) (int64, error) {
	var count int64
	err := q.GetContext(ctx, &count, q.Rebind(`SELECT COUNT(*) FROM referrals WHERE referrer = ?`), referrerID)
	return count, err
}

// ListByReferrer returns the inviter's edges, oldest first
func (r *ReferralRepository) ListByReferrer(ctx context.Context, q DBExecutor, referrerID int64) ([]models.Referral, error) {
	query := q.Rebind(`
		SELECT id, referred_user, referrer, reward, created_at
		FROM referrals
		WHERE referrer = ?
		ORDER BY id
	`)

	var referrals []models.Referral
	if err := q.SelectContext(ctx, &referrals, query, referrerID); err != nil {
		return nil, fmt.Errorf("failed to list referrals: %w", err)
	}
	return referrals, nil
}

// GetTotalReferrals returns total number of referral edges
func (r *ReferralRepository) GetTotalReferrals(ctx context.Context, q DBExecutor) (int64, error) {
	var count int64
	err := q.GetContext(ctx, &count, "SELECT COUNT(*) FROM referrals")
	return count, err
}
