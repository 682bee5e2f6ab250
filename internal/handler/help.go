package handler

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type HelpHandler struct{}

func NewHelpHandler() *HelpHandler {
	return &HelpHandler{}
}

func (h *HelpHandler) CanHandle(update tgbotapi.Update) bool {
	return isCommand(update, "help")
}

func (h *HelpHandler) Handle(_ context.Context, update tgbotapi.Update) tgbotapi.Chattable {
	return reply(update.Message.Chat.ID, formatHelp())
}

func formatHelp() string {
	var b strings.Builder
	b.WriteString("/start - register and see how to earn points\n")
	b.WriteString("/my_points - your balance\n")
	b.WriteString("/leaderboard - top by points\n")
	b.WriteString("/top_referrals - top by invited friends\n")
	b.WriteString("/referrals_info - your invite link\n")
	for _, p := range Platforms {
		fmt.Fprintf(&b, "/%s - I follow you on %s\n", p.Command, p.Label)
	}
	b.WriteString("/addtask YYYY-MM-DD [HH:MM] title - add a task\n")
	b.WriteString("/tasks - your tasks\n")
	b.WriteString("/done id - mark a task done\n")
	b.WriteString("/deltask id - delete a task")
	return b.String()
}
