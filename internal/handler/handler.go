// Package handler turns chat commands into ledger calls and composes the replies.
package handler

import (
	"context"
	"errors"
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/artur/social-points-bot/internal/database/models"
	"github.com/artur/social-points-bot/internal/ledger"
)

const (
	msgUnregistered = "You are not registered yet. Send /start to join."
	msgTryLater     = "The service is busy right now, please try again later."
	msgFailed       = "Something went wrong. Please try again."
)

// Ledger is the part of the ledger service used by the handlers.
type Ledger interface {
	Greet(ctx context.Context, chatID int64, handle string) (*models.User, error)
	RegisterReferral(ctx context.Context, targetChatID, inviterChatID int64) (ledger.ReferralResult, error)
	CreditPlatformFollow(ctx context.Context, chatID int64, platform string) (int64, error)
	Points(ctx context.Context, chatID int64) (int64, bool, error)
	User(ctx context.Context, chatID int64) (*models.User, error)
	TopByPoints(ctx context.Context, limit int) ([]models.User, error)
	TopByReferrals(ctx context.Context, limit int) ([]models.User, error)
}

// command returns the command name of a chat message.
func command(update tgbotapi.Update) (string, bool) {
	if update.Message == nil || update.Message.Chat == nil || !update.Message.IsCommand() {
		return "", false
	}
	return update.Message.Command(), true
}

func isCommand(update tgbotapi.Update, names ...string) bool {
	cmd, ok := command(update)
	if !ok {
		return false
	}
	for _, name := range names {
		if cmd == name {
			return true
		}
	}
	return false
}

func reply(chatID int64, text string) tgbotapi.Chattable {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	return msg
}

// errorReply maps ledger errors to user-facing messages and logs everything
// that is not a plain unknown user.
func errorReply(tag string, chatID int64, err error) tgbotapi.Chattable {
	switch {
	case errors.Is(err, ledger.ErrUnknownUser):
		return reply(chatID, msgUnregistered)
	case errors.Is(err, ledger.ErrTransient):
		log.Printf("[%s] Chat %d: %v", tag, chatID, err)
		return reply(chatID, msgTryLater)
	default:
		log.Printf("[%s] Chat %d: %v", tag, chatID, err)
		return reply(chatID, msgFailed)
	}
}

// displayName falls back to a synthetic placeholder for users without a handle.
func displayName(user models.User) string {
	if user.Handle != "" {
		return user.Handle
	}
	return fmt.Sprintf("player %d", user.ID)
}

func getUserName(firstName, userName string) string {
	if firstName != "" {
		return firstName
	}
	return userName
}
