package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/artur/social-points-bot/internal/database"
	"github.com/artur/social-points-bot/internal/database/models"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrNegativeReward = errors.New("reward must not be negative")
)

// RecordResult is the outcome of RecordReferralAndReward.
type RecordResult int

const (
	RecordCreated RecordResult = iota + 1
	RecordAlreadyExists
	RecordInvalidPair
)

func (r RecordResult) String() string {
	switch r {
	case RecordCreated:
		return "created"
	case RecordAlreadyExists:
		return "already_exists"
	case RecordInvalidPair:
		return "invalid_pair"
	default:
		return "unknown"
	}
}

// Store is the persistence façade shared by the ledger, the bot adapter and the health endpoint.
// Every operation acquires its connection under acquireTimeout.
type Store struct {
	db             *database.DB
	acquireTimeout time.Duration

	Users     *UserRepository
	Referrals *ReferralRepository
	Follows   *FollowRepository
	Stats     *StatsRepository
}

// NewStore creates a new Store
func NewStore(db *database.DB, acquireTimeout time.Duration) *Store {
	return &Store{
		db:             db,
		acquireTimeout: acquireTimeout,
		Users:          NewUserRepository(),
		Referrals:      NewReferralRepository(),
		Follows:        NewFollowRepository(),
		Stats:          NewStatsRepository(),
	}
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.acquireTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.acquireTimeout)
}

// inTx runs fn in one transaction. The transaction is rolled back on every
// path that does not reach Commit, including context cancellation.
func (s *Store) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	var opts *sql.TxOptions
	if s.db.Dialect == database.DialectPostgres {
		opts = &sql.TxOptions{Isolation: sql.LevelReadCommitted}
	}

	tx, err := s.db.BeginTxx(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			log.Printf("[DB] Failed to roll back transaction: %v", err)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Ping checks that a connection can be acquired.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.db.PingContext(ctx)
}

// UpsertUser returns the user with chatID, creating it on first contact.
func (s *Store) UpsertUser(ctx context.Context, chatID int64, handle string) (*models.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.Users.Upsert(ctx, s.db, chatID, handle)
}

// GetUserByChatID returns nil when the user is unknown.
func (s *Store) GetUserByChatID(ctx context.Context, chatID int64) (*models.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.Users.GetByChatID(ctx, s.db, chatID)
}

// GetPoints returns 0 for unknown users without creating them.
func (s *Store) GetPoints(ctx context.Context, chatID int64) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.Users.GetPoints(ctx, s.db, chatID)
}

func (s *Store) TopByPoints(ctx context.Context, limit int) ([]models.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.Users.TopByPoints(ctx, s.db, limit)
}

func (s *Store) TopByReferrals(ctx context.Context, limit int) ([]models.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.Users.TopByReferrals(ctx, s.db, limit)
}

// RecordReferralAndReward inserts the referral edge and credits the referrer in one
// transaction. It is the only code path that changes referrals_count.
func (s *Store) RecordReferralAndReward(ctx context.Context, referredUserID, referrerID, reward int64) (RecordResult, error) {
	if reward < 0 {
		return 0, ErrNegativeReward
	}
	if referredUserID == referrerID {
		return RecordInvalidPair, nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result := RecordCreated
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		found, err := s.Users.CountExisting(ctx, tx, referredUserID, referrerID)
		if err != nil {
			return err
		}
		if found != 2 {
			result = RecordInvalidPair
			return nil
		}

		referral := &models.Referral{
			ReferredUser: referredUserID,
			Referrer:     referrerID,
			Reward:       reward,
			CreatedAt:    time.Now().UTC(),
		}
		if err := s.Referrals.Create(ctx, tx, referral); err != nil {
			if errors.Is(err, ErrReferralExists) {
				result = RecordAlreadyExists
				return errRollback
			}
			return err
		}

		return s.Users.AddReferral(ctx, tx, referrerID, reward)
	})
	if err != nil && !errors.Is(err, errRollback) {
		return 0, err
	}
	return result, nil
}

// errRollback aborts a transaction without reporting a failure.
var errRollback = errors.New("rollback")

// CreditPoints adds amount to the user's balance and logs the platform follow
// in the same transaction. Returns the new balance.
func (s *Store) CreditPoints(ctx context.Context, chatID, amount int64, platform string) (int64, error) {
	if amount < 0 {
		return 0, ErrNegativeReward
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var total int64
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		user, err := s.Users.GetByChatID(ctx, tx, chatID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}

		total, err = s.Users.AddPoints(ctx, tx, user.ID, amount)
		if err != nil {
			return err
		}

		return s.Follows.RecordFollow(ctx, tx, &models.PlatformFollow{
			UserID:    user.ID,
			Platform:  platform,
			Reward:    amount,
			CreatedAt: time.Now().UTC(),
		})
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

// RecordCommand stores a command execution for a registered user; unknown users are skipped.
func (s *Store) RecordCommand(ctx context.Context, chatID int64, command string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	user, err := s.Users.GetByChatID(ctx, s.db, chatID)
	if err != nil {
		return err
	}
	if user == nil {
		return nil
	}
	return s.Stats.RecordCommand(ctx, s.db, user.ID, command)
}

func (s *Store) TotalUsers(ctx context.Context) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.Users.GetTotalUsers(ctx, s.db)
}

func (s *Store) TotalCommands(ctx context.Context) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.Stats.GetTotalCommands(ctx, s.db)
}

func (s *Store) PopularCommands(ctx context.Context, limit int) ([]CommandCount, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.Stats.GetPopularCommands(ctx, s.db, limit)
}

func (s *Store) PopularPlatforms(ctx context.Context, limit int) ([]PlatformCount, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.Follows.GetPopularPlatforms(ctx, s.db, limit)
}
