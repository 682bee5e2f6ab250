// Package ledger owns the points and referral rules on top of the persistence layer.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime/debug"

	"github.com/artur/social-points-bot/internal/database"
	"github.com/artur/social-points-bot/internal/database/models"
	"github.com/artur/social-points-bot/internal/database/repository"
)

const (
	// ReferralReward is credited to the inviter once per new referral edge.
	ReferralReward int64 = 100
	// FollowReward is credited for every acknowledged platform follow.
	FollowReward int64 = 10
)

var (
	ErrUnknownUser = errors.New("unknown user")
	ErrTransient   = errors.New("storage temporarily unavailable")
	ErrStorage     = errors.New("storage failure")
)

// ReferralResult is the outcome of RegisterReferral.
type ReferralResult int

const (
	ReferralCreated ReferralResult = iota + 1
	ReferralAlreadyExists
	ReferralInvalidPair
	ReferralUnknownUser
)

func (r ReferralResult) String() string {
	switch r {
	case ReferralCreated:
		return "created"
	case ReferralAlreadyExists:
		return "already_exists"
	case ReferralInvalidPair:
		return "invalid_pair"
	case ReferralUnknownUser:
		return "unknown_user"
	default:
		return "unknown"
	}
}

// Store is the persistence surface the ledger needs. *repository.Store implements it.
type Store interface {
	UpsertUser(ctx context.Context, chatID int64, handle string) (*models.User, error)
	GetUserByChatID(ctx context.Context, chatID int64) (*models.User, error)
	GetPoints(ctx context.Context, chatID int64) (int64, error)
	TopByPoints(ctx context.Context, limit int) ([]models.User, error)
	TopByReferrals(ctx context.Context, limit int) ([]models.User, error)
	RecordReferralAndReward(ctx context.Context, referredUserID, referrerID, reward int64) (repository.RecordResult, error)
	CreditPoints(ctx context.Context, chatID, amount int64, platform string) (int64, error)
	RecordCommand(ctx context.Context, chatID int64, command string) error
}

// Service applies ledger rules. Storage errors never leave it raw: callers see
// ErrUnknownUser, ErrTransient or ErrStorage.
type Service struct {
	store Store
}

// NewService creates a new ledger Service
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Greet registers the user on first contact and refreshes the handle.
func (s *Service) Greet(ctx context.Context, chatID int64, handle string) (*models.User, error) {
	user, err := s.store.UpsertUser(ctx, chatID, handle)
	if err != nil {
		return nil, s.translate("greet", err)
	}
	return user, nil
}

// CreditPlatformFollow awards FollowReward to an existing user and returns the new total.
// Every call credits again.
func (s *Service) CreditPlatformFollow(ctx context.Context, chatID int64, platform string) (int64, error) {
	total, err := s.store.CreditPoints(ctx, chatID, FollowReward, platform)
	if errors.Is(err, repository.ErrUserNotFound) {
		return 0, ErrUnknownUser
	}
	if err != nil {
		return 0, s.translate("credit platform follow", err)
	}

	log.Printf("[LEDGER] User %d acknowledged %s follow, total %d", chatID, platform, total)
	return total, nil
}

// RegisterReferral records the inviter -> target edge and credits the inviter.
// The inviter must already be registered; the target is created if needed.
func (s *Service) RegisterReferral(ctx context.Context, targetChatID, inviterChatID int64) (ReferralResult, error) {
	if targetChatID == inviterChatID {
		return ReferralInvalidPair, nil
	}

	inviter, err := s.store.GetUserByChatID(ctx, inviterChatID)
	if err != nil {
		return 0, s.translate("register referral", err)
	}
	if inviter == nil {
		return ReferralUnknownUser, nil
	}

	target, err := s.store.UpsertUser(ctx, targetChatID, "")
	if err != nil {
		return 0, s.translate("register referral", err)
	}

	result, err := s.store.RecordReferralAndReward(ctx, target.ID, inviter.ID, ReferralReward)
	if err != nil {
		return 0, s.translate("register referral", err)
	}

	switch result {
	case repository.RecordCreated:
		log.Printf("[LEDGER] User %d invited by %d, +%d points", targetChatID, inviterChatID, ReferralReward)
		return ReferralCreated, nil
	case repository.RecordAlreadyExists:
		return ReferralAlreadyExists, nil
	default:
		return ReferralInvalidPair, nil
	}
}

// Points returns the balance and whether the user is registered.
func (s *Service) Points(ctx context.Context, chatID int64) (int64, bool, error) {
	points, err := s.store.GetPoints(ctx, chatID)
	if err != nil {
		return 0, false, s.translate("points", err)
	}
	if points > 0 {
		return points, true, nil
	}

	user, err := s.store.GetUserByChatID(ctx, chatID)
	if err != nil {
		return 0, false, s.translate("points", err)
	}
	return 0, user != nil, nil
}

// User returns the registered user or ErrUnknownUser.
func (s *Service) User(ctx context.Context, chatID int64) (*models.User, error) {
	user, err := s.store.GetUserByChatID(ctx, chatID)
	if err != nil {
		return nil, s.translate("user", err)
	}
	if user == nil {
		return nil, ErrUnknownUser
	}
	return user, nil
}

func (s *Service) TopByPoints(ctx context.Context, limit int) ([]models.User, error) {
	users, err := s.store.TopByPoints(ctx, limit)
	if err != nil {
		return nil, s.translate("top by points", err)
	}
	return users, nil
}

func (s *Service) TopByReferrals(ctx context.Context, limit int) ([]models.User, error) {
	users, err := s.store.TopByReferrals(ctx, limit)
	if err != nil {
		return nil, s.translate("top by referrals", err)
	}
	return users, nil
}

// RecordCommand stores command statistics for registered users.
func (s *Service) RecordCommand(ctx context.Context, chatID int64, command string) error {
	if err := s.store.RecordCommand(ctx, chatID, command); err != nil {
		return s.translate("record command", err)
	}
	return nil
}

func (s *Service) translate(op string, err error) error {
	if database.IsTransient(err) || errors.Is(err, context.Canceled) {
		log.Printf("[LEDGER] %s: transient storage error: %v", op, err)
		return fmt.Errorf("%s: %w", op, ErrTransient)
	}

	log.Printf("[LEDGER] %s: storage failure: %v\n%s", op, err, debug.Stack())
	return fmt.Errorf("%s: %w", op, ErrStorage)
}
