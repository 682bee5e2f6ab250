package handler

import (
	"context"
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/artur/social-points-bot/internal/ledger"
)

// Platform is a social network users can follow for points.
type Platform struct {
	Command string
	Label   string
}

// Platforms is the closed set of recognised platforms, in display order.
var Platforms = []Platform{
	{Command: "youtube", Label: "YouTube"},
	{Command: "instagram", Label: "Instagram"},
	{Command: "tiktok", Label: "TikTok"},
	{Command: "twitter", Label: "Twitter"},
	{Command: "facebook", Label: "Facebook"},
	{Command: "telegram_group", Label: "Telegram Group"},
}

// PlatformByCommand looks up a platform by its command name.
func PlatformByCommand(command string) (Platform, bool) {
	for _, p := range Platforms {
		if p.Command == command {
			return p, true
		}
	}
	return Platform{}, false
}

// PlatformHandler credits a follow for any platform in Platforms.
type PlatformHandler struct {
	ledger Ledger
	urls   map[string]string
}

func NewPlatformHandler(l Ledger, urls map[string]string) *PlatformHandler {
	return &PlatformHandler{
		ledger: l,
		urls:   urls,
	}
}

func (h *PlatformHandler) CanHandle(update tgbotapi.Update) bool {
	cmd, ok := command(update)
	if !ok {
		return false
	}
	_, ok = PlatformByCommand(cmd)
	return ok
}

func (h *PlatformHandler) Handle(ctx context.Context, update tgbotapi.Update) tgbotapi.Chattable {
	chatID := update.Message.Chat.ID
	platform, _ := PlatformByCommand(update.Message.Command())

	total, err := h.ledger.CreditPlatformFollow(ctx, chatID, platform.Label)
	if err != nil {
		return errorReply("PLATFORM", chatID, err)
	}

	log.Printf("[PLATFORM] Chat %d followed %s", chatID, platform.Label)
	return reply(chatID, formatFollow(platform, h.urls[platform.Label], total))
}

func formatFollow(p Platform, url string, total int64) string {
	text := fmt.Sprintf("✅ Thanks for following us on %s! +%d points.\nYour total: %d points.",
		p.Label, ledger.FollowReward, total)
	if url != "" {
		text += "\n\n" + url
	}
	return text
}
