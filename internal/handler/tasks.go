package handler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/artur/social-points-bot/internal/tasks"
)

const (
	usageAddTask = "Usage: /addtask YYYY-MM-DD [HH:MM] title"
	msgNoTasks   = "You have no tasks. Add one with /addtask YYYY-MM-DD title"
)

// TaskStore is the to-do list collaborator.
type TaskStore interface {
	Add(ctx context.Context, userID int64, title string, due time.Time) (*tasks.Task, error)
	List(ctx context.Context, userID int64) ([]tasks.Task, error)
	Complete(ctx context.Context, userID int64, id uint) error
	Delete(ctx context.Context, userID int64, id uint) error
}

// TaskHandler serves /addtask, /tasks, /done and /deltask.
type TaskHandler struct {
	ledger Ledger
	tasks  TaskStore
}

func NewTaskHandler(l Ledger, store TaskStore) *TaskHandler {
	return &TaskHandler{
		ledger: l,
		tasks:  store,
	}
}

func (h *TaskHandler) CanHandle(update tgbotapi.Update) bool {
	return isCommand(update, "addtask", "tasks", "done", "deltask")
}

func (h *TaskHandler) Handle(ctx context.Context, update tgbotapi.Update) tgbotapi.Chattable {
	msg := update.Message
	chatID := msg.Chat.ID

	// задачи привязаны к users.id, поэтому сначала нужен зарегистрированный пользователь
	user, err := h.ledger.User(ctx, chatID)
	if err != nil {
		return errorReply("TASKS", chatID, err)
	}

	args := msg.CommandArguments()
	switch msg.Command() {
	case "addtask":
		return h.add(ctx, chatID, user.ID, args)
	case "tasks":
		return h.list(ctx, chatID, user.ID)
	case "done":
		return h.complete(ctx, chatID, user.ID, args)
	default:
		return h.delete(ctx, chatID, user.ID, args)
	}
}

func (h *TaskHandler) add(ctx context.Context, chatID, userID int64, args string) tgbotapi.Chattable {
	due, title, err := tasks.ParseAddArgs(args)
	if err == nil {
		var task *tasks.Task
		if task, err = h.tasks.Add(ctx, userID, title, due); err == nil {
			log.Printf("[TASKS] Chat %d added task #%d", chatID, task.ID)
			return reply(chatID, fmt.Sprintf("📝 Task #%d added: %s (due %s)", task.ID, task.Title, formatDue(task.DueDate)))
		}
	}

	switch {
	case errors.Is(err, tasks.ErrInvalidDate):
		return reply(chatID, "Invalid date. "+usageAddTask)
	case errors.Is(err, tasks.ErrEmptyTitle):
		return reply(chatID, "Task title is empty. "+usageAddTask)
	case errors.Is(err, tasks.ErrTitleTooLong):
		return reply(chatID, "Task title is too long, keep it under 200 characters.")
	default:
		return taskErrorReply(chatID, err)
	}
}

func (h *TaskHandler) list(ctx context.Context, chatID, userID int64) tgbotapi.Chattable {
	list, err := h.tasks.List(ctx, userID)
	if err != nil {
		return taskErrorReply(chatID, err)
	}
	return reply(chatID, formatTasks(list))
}

func (h *TaskHandler) complete(ctx context.Context, chatID, userID int64, args string) tgbotapi.Chattable {
	id, ok := parseTaskID(args)
	if !ok {
		return reply(chatID, "Usage: /done <task id>")
	}

	if err := h.tasks.Complete(ctx, userID, id); err != nil {
		if errors.Is(err, tasks.ErrTaskNotFound) {
			return reply(chatID, fmt.Sprintf("Task #%d not found.", id))
		}
		return taskErrorReply(chatID, err)
	}
	return reply(chatID, fmt.Sprintf("✅ Task #%d done.", id))
}

func (h *TaskHandler) delete(ctx context.Context, chatID, userID int64, args string) tgbotapi.Chattable {
	id, ok := parseTaskID(args)
	if !ok {
		return reply(chatID, "Usage: /deltask <task id>")
	}

	if err := h.tasks.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, tasks.ErrTaskNotFound) {
			return reply(chatID, fmt.Sprintf("Task #%d not found.", id))
		}
		return taskErrorReply(chatID, err)
	}
	return reply(chatID, fmt.Sprintf("🗑 Task #%d deleted.", id))
}

func taskErrorReply(chatID int64, err error) tgbotapi.Chattable {
	log.Printf("[TASKS] Chat %d: %v", chatID, err)
	if errors.Is(err, tasks.ErrUnavailable) {
		return reply(chatID, msgTryLater)
	}
	return reply(chatID, msgFailed)
}

func parseTaskID(args string) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimSpace(args), "#"), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func formatDue(due time.Time) string {
	if due.Hour() == 0 && due.Minute() == 0 {
		return due.Format("2006-01-02")
	}
	return due.Format("2006-01-02 15:04")
}

func formatTasks(list []tasks.Task) string {
	if len(list) == 0 {
		return msgNoTasks
	}

	var b strings.Builder
	b.WriteString("📋 Your tasks:\n")
	for _, t := range list {
		mark := "⬜"
		if t.Done {
			mark = "✅"
		}
		fmt.Fprintf(&b, "\n%s #%d %s · %s", mark, t.ID, formatDue(t.DueDate), t.Title)
	}
	return b.String()
}
