package bot

import (
	"context"
	"log"
	"runtime/debug"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
)

// Handler processes one kind of update. A nil reply means nothing is sent.
type Handler interface {
	CanHandle(update tgbotapi.Update) bool
	Handle(ctx context.Context, update tgbotapi.Update) tgbotapi.Chattable
}

// API is the part of *tgbotapi.BotAPI the bot uses.
type API interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// CommandRecorder stores per-command statistics after a command was handled.
type CommandRecorder interface {
	RecordCommand(ctx context.Context, chatID int64, command string) error
}

type Options struct {
	Workers        int
	HandlerTimeout time.Duration
	Deduper        Deduper
	Recorder       CommandRecorder
}

type Bot struct {
	api      API
	username string
	handlers []Handler
	opts     Options

	sem chan struct{}
	wg  sync.WaitGroup
}

func New(token string, opts Options) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	log.Printf("[BOT] Authorized on account %s", api.Self.UserName)

	return NewWithAPI(api, api.Self.UserName, opts), nil
}

// NewWithAPI builds a bot over an already authorized API client.
func NewWithAPI(api API, username string, opts Options) *Bot {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Deduper == nil {
		opts.Deduper = NopDeduper{}
	}

	return &Bot{
		api:      api,
		username: username,
		handlers: make([]Handler, 0),
		opts:     opts,
		sem:      make(chan struct{}, opts.Workers),
	}
}

// Username is the bot account name used in invite links.
func (b *Bot) Username() string {
	return b.username
}

func (b *Bot) RegisterHandler(h Handler) {
	b.handlers = append(b.handlers, h)
	log.Printf("[BOT] Registered handler: %T", h)
}

// SendStartupNotification tells the admin chat that the bot is up. Zero chatID disables it.
func (b *Bot) SendStartupNotification(chatID int64) {
	if chatID == 0 {
		return
	}
	msg := tgbotapi.NewMessage(chatID, "🚀 Bot started")
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("[BOT] Failed to send startup notification: %v", err)
	}
}

// Run polls updates until ctx is cancelled, then waits for in-flight handlers.
func (b *Bot) Run(ctx context.Context) {
	log.Printf("[BOT] Starting bot with %d handlers, %d workers", len(b.handlers), b.opts.Workers)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.wg.Wait()
			log.Printf("[BOT] Stopped")
			return
		case update, ok := <-updates:
			if !ok {
				b.wg.Wait()
				log.Printf("[BOT] Updates channel closed")
				return
			}
			b.dispatch(ctx, update)
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	// Логируем входящее обновление
	if update.Message != nil && update.Message.From != nil {
		log.Printf("[BOT] Message from %s (@%s): %s",
			update.Message.From.FirstName,
			update.Message.From.UserName,
			update.Message.Text)
	}
	if update.CallbackQuery != nil && update.CallbackQuery.From != nil {
		log.Printf("[BOT] Callback from %s (@%s): %s",
			update.CallbackQuery.From.FirstName,
			update.CallbackQuery.From.UserName,
			update.CallbackQuery.Data)
	}

	// Пропускаем только если нет ни сообщения, ни callback
	if update.Message == nil && update.CallbackQuery == nil {
		log.Printf("[BOT] Skipping update: no message or callback")
		return
	}

	fresh, err := b.opts.Deduper.FirstSeen(ctx, update.UpdateID)
	if err != nil {
		// без redis обрабатываем как новое
		log.Printf("[BOT] Dedup check failed for update %d: %v", update.UpdateID, err)
		fresh = true
	}
	if !fresh {
		log.Printf("[BOT] Skipping duplicate update %d", update.UpdateID)
		return
	}

	handler := b.route(update)
	if handler == nil {
		log.Printf("[BOT] No handler found for update")
		return
	}

	select {
	case b.sem <- struct{}{}:
	case <-ctx.Done():
		return
	}

	traceID := uuid.NewString()[:8]
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() { <-b.sem }()
		b.handle(ctx, handler, update, traceID)
	}()
}

func (b *Bot) route(update tgbotapi.Update) Handler {
	for _, handler := range b.handlers {
		if handler.CanHandle(update) {
			return handler
		}
	}
	return nil
}

// handle runs one handler. It is detached from Run's cancellation so that
// shutdown lets started handlers finish within HandlerTimeout.
func (b *Bot) handle(parent context.Context, handler Handler, update tgbotapi.Update, traceID string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[BOT] [%s] Handler %T panicked: %v\n%s", traceID, handler, r, debug.Stack())
		}
	}()

	ctx := context.WithoutCancel(parent)
	if b.opts.HandlerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.opts.HandlerTimeout)
		defer cancel()
	}

	start := time.Now()
	log.Printf("[BOT] [%s] Handling with: %T", traceID, handler)

	if reply := handler.Handle(ctx, update); reply != nil {
		if _, err := b.api.Send(reply); err != nil {
			log.Printf("[BOT] [%s] Failed to send reply: %v", traceID, err)
		}
	}

	b.recordCommand(ctx, update, traceID)

	log.Printf("[BOT] [%s] Done in %s", traceID, time.Since(start).Round(time.Millisecond))
}

func (b *Bot) recordCommand(ctx context.Context, update tgbotapi.Update, traceID string) {
	if b.opts.Recorder == nil || update.Message == nil || update.Message.Chat == nil || !update.Message.IsCommand() {
		return
	}
	// Записываем статистику команды
	if err := b.opts.Recorder.RecordCommand(ctx, update.Message.Chat.ID, update.Message.Command()); err != nil {
		log.Printf("[BOT] [%s] Failed to record command: %v", traceID, err)
	}
}
