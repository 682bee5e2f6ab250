package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/artur/social-points-bot/internal/api"
	"github.com/artur/social-points-bot/internal/bot"
	"github.com/artur/social-points-bot/internal/config"
	"github.com/artur/social-points-bot/internal/database"
	"github.com/artur/social-points-bot/internal/database/repository"
	"github.com/artur/social-points-bot/internal/handler"
	"github.com/artur/social-points-bot/internal/ledger"
	"github.com/artur/social-points-bot/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Инициализация базы данных
	databaseURL := cfg.DatabaseURL
	if databaseURL == "" {
		databaseURL = cfg.DBPath
	}

	db, err := database.New(databaseURL, cfg.Pool)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Запускаем миграции
	if err := db.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	store := repository.NewStore(db, cfg.Pool.AcquireTimeout)
	service := ledger.NewService(store)

	taskStore, err := tasks.Open(db.DB.DB, db.Dialect)
	if err != nil {
		log.Fatalf("Failed to open task store: %v", err)
	}

	opts := bot.Options{
		Workers:        cfg.Workers,
		HandlerTimeout: cfg.HandlerTimeout,
		Recorder:       service,
	}
	if cfg.RedisURL != "" {
		deduper, err := bot.NewRedisDeduper(cfg.RedisURL, bot.DefaultDedupTTL)
		if err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		defer deduper.Close()
		opts.Deduper = deduper
	}

	b, err := bot.New(cfg.BotToken, opts)
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	// Регистрируем обработчики
	b.RegisterHandler(handler.NewStartHandler(service, handler.WelcomeConfig{
		SiteURL:      cfg.SiteURL,
		ImageURL:     cfg.WelcomeImageURL,
		PlatformURLs: cfg.PlatformURLs,
	}))
	b.RegisterHandler(handler.NewHelpHandler())
	b.RegisterHandler(handler.NewPointsHandler(service))
	b.RegisterHandler(handler.NewLeaderboardHandler(service))
	b.RegisterHandler(handler.NewReferralsInfoHandler(b.Username()))
	b.RegisterHandler(handler.NewPlatformHandler(service, cfg.PlatformURLs))
	b.RegisterHandler(handler.NewTaskHandler(service, taskStore))

	var server *http.Server
	if cfg.HealthAddr != "" {
		server = api.NewServer(cfg.HealthAddr, store)
		go func() {
			log.Printf("[API] Listening on %s", cfg.HealthAddr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("[API] Server failed: %v", err)
			}
		}()
	}

	// Отправляем уведомление о запуске
	b.SendStartupNotification(cfg.AdminChatID)

	// Запускаем бота
	b.Run(ctx)

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("[API] Shutdown failed: %v", err)
		}
	}

	log.Printf("[BOT] Bye")
}
