package handler

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type PointsHandler struct {
	ledger Ledger
}

func NewPointsHandler(l Ledger) *PointsHandler {
	return &PointsHandler{ledger: l}
}

func (h *PointsHandler) CanHandle(update tgbotapi.Update) bool {
	return isCommand(update, "my_points")
}

func (h *PointsHandler) Handle(ctx context.Context, update tgbotapi.Update) tgbotapi.Chattable {
	chatID := update.Message.Chat.ID

	points, registered, err := h.ledger.Points(ctx, chatID)
	if err != nil {
		return errorReply("POINTS", chatID, err)
	}
	if !registered {
		return reply(chatID, msgUnregistered)
	}
	return reply(chatID, formatPoints(points))
}

func formatPoints(points int64) string {
	return fmt.Sprintf("💰 You have %d points.", points)
}
