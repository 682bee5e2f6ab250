package handler

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/artur/social-points-bot/internal/ledger"
)

// maxCaptionLength is Telegram's limit for photo captions; longer welcomes go out as text.
const maxCaptionLength = 1024

// WelcomeConfig is the presentational part of the greeting.
type WelcomeConfig struct {
	SiteURL      string
	ImageURL     string
	PlatformURLs map[string]string
}

// StartHandler registers the user and, for deep links, the referral.
type StartHandler struct {
	ledger  Ledger
	welcome WelcomeConfig
}

func NewStartHandler(l Ledger, welcome WelcomeConfig) *StartHandler {
	return &StartHandler{
		ledger:  l,
		welcome: welcome,
	}
}

func (h *StartHandler) CanHandle(update tgbotapi.Update) bool {
	return isCommand(update, "start")
}

func (h *StartHandler) Handle(ctx context.Context, update tgbotapi.Update) tgbotapi.Chattable {
	msg := update.Message
	chatID := msg.Chat.ID

	var firstName, handle string
	if msg.From != nil {
		firstName, handle = msg.From.FirstName, msg.From.UserName
	}
	userName := getUserName(firstName, handle)

	log.Printf("[START] Greeting user: %s", userName)

	// Сохраняем пользователя в БД
	if _, err := h.ledger.Greet(ctx, chatID, handle); err != nil {
		return errorReply("START", chatID, err)
	}

	if inviterChatID, ok := parseInviter(msg.CommandArguments()); ok {
		h.registerReferral(ctx, chatID, inviterChatID)
	}

	text := formatWelcome(userName, h.welcome)
	if h.welcome.ImageURL != "" && utf8.RuneCountInString(text) <= maxCaptionLength {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(h.welcome.ImageURL))
		photo.Caption = text
		return photo
	}
	return reply(chatID, text)
}

// registerReferral never affects the greeting: duplicates and bad links are silent.
func (h *StartHandler) registerReferral(ctx context.Context, chatID, inviterChatID int64) {
	result, err := h.ledger.RegisterReferral(ctx, chatID, inviterChatID)
	if err != nil {
		log.Printf("[START] Failed to register referral %d -> %d: %v", inviterChatID, chatID, err)
		return
	}
	if result != ledger.ReferralCreated {
		log.Printf("[START] Referral %d -> %d skipped: %s", inviterChatID, chatID, result)
	}
}

// parseInviter reads the deep-link payload of /start.
func parseInviter(args string) (int64, bool) {
	args = strings.TrimSpace(args)
	if args == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(args, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func formatGreeting(userName string) string {
	if userName == "" {
		return "Hi! Glad to see you! 👋"
	}
	return "Hi, " + userName + "! Glad to see you! 👋"
}

func formatWelcome(userName string, welcome WelcomeConfig) string {
	var b strings.Builder
	b.WriteString(formatGreeting(userName))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Follow us and earn %d points for every platform:\n", ledger.FollowReward)
	for _, p := range Platforms {
		url := welcome.PlatformURLs[p.Label]
		if url == "" {
			fmt.Fprintf(&b, "• %s: /%s\n", p.Label, p.Command)
			continue
		}
		fmt.Fprintf(&b, "• %s: %s then /%s\n", p.Label, url, p.Command)
	}
	fmt.Fprintf(&b, "\nInvite friends and get %d points for each one: /referrals_info\n", ledger.ReferralReward)
	b.WriteString("Check your balance with /my_points and the /leaderboard.")
	if welcome.SiteURL != "" {
		b.WriteString("\n\nSite: " + welcome.SiteURL)
	}
	return b.String()
}
