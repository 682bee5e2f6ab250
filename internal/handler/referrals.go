package handler

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/artur/social-points-bot/internal/ledger"
)

// ReferralsInfoHandler replies with the personal invite link.
type ReferralsInfoHandler struct {
	botUsername string
}

func NewReferralsInfoHandler(botUsername string) *ReferralsInfoHandler {
	return &ReferralsInfoHandler{botUsername: botUsername}
}

func (h *ReferralsInfoHandler) CanHandle(update tgbotapi.Update) bool {
	return isCommand(update, "referrals_info")
}

func (h *ReferralsInfoHandler) Handle(_ context.Context, update tgbotapi.Update) tgbotapi.Chattable {
	chatID := update.Message.Chat.ID
	return reply(chatID, formatReferralsInfo(h.botUsername, chatID))
}

func inviteLink(botUsername string, chatID int64) string {
	return fmt.Sprintf("https://t.me/%s?start=%d", botUsername, chatID)
}

func formatReferralsInfo(botUsername string, chatID int64) string {
	return fmt.Sprintf("🔗 Your invite link:\n%s\n\nYou get %d points for every friend who joins through it.",
		inviteLink(botUsername, chatID), ledger.ReferralReward)
}
