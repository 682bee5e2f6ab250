package handler

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/artur/social-points-bot/internal/database/models"
)

const (
	leaderboardSize = 10

	msgEmptyLeaderboard = "The leaderboard is empty. Send /start and be the first!"
)

// LeaderboardHandler serves /leaderboard and /top_referrals.
type LeaderboardHandler struct {
	ledger Ledger
}

func NewLeaderboardHandler(l Ledger) *LeaderboardHandler {
	return &LeaderboardHandler{ledger: l}
}

func (h *LeaderboardHandler) CanHandle(update tgbotapi.Update) bool {
	return isCommand(update, "leaderboard", "top_referrals")
}

func (h *LeaderboardHandler) Handle(ctx context.Context, update tgbotapi.Update) tgbotapi.Chattable {
	chatID := update.Message.Chat.ID

	if update.Message.Command() == "top_referrals" {
		users, err := h.ledger.TopByReferrals(ctx, leaderboardSize)
		if err != nil {
			return errorReply("LEADERBOARD", chatID, err)
		}
		return reply(chatID, formatTopReferrals(users))
	}

	users, err := h.ledger.TopByPoints(ctx, leaderboardSize)
	if err != nil {
		return errorReply("LEADERBOARD", chatID, err)
	}
	return reply(chatID, formatLeaderboard(users))
}

func formatLeaderboard(users []models.User) string {
	if len(users) == 0 {
		return msgEmptyLeaderboard
	}

	var b strings.Builder
	b.WriteString("🏆 Top by points:\n")
	for i, u := range users {
		fmt.Fprintf(&b, "\n%d. %s: %d points", i+1, displayName(u), u.Points)
	}
	return b.String()
}

func formatTopReferrals(users []models.User) string {
	if len(users) == 0 {
		return msgEmptyLeaderboard
	}

	var b strings.Builder
	b.WriteString("🤝 Top by referrals:\n")
	for i, u := range users {
		fmt.Fprintf(&b, "\n%d. %s: %d referrals, %d points", i+1, displayName(u), u.ReferralsCount, u.Points)
	}
	return b.String()
}
