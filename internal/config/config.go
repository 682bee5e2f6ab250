package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

var ErrMissingToken = errors.New("TELEGRAM_BOT_TOKEN environment variable is not set")

// Config holds all runtime settings of the bot process.
type Config struct {
	BotToken    string
	AdminChatID int64

	DatabaseURL string
	DBPath      string
	Pool        PoolConfig

	Workers        int
	HandlerTimeout time.Duration

	RedisURL   string
	HealthAddr string

	SiteURL         string
	WelcomeImageURL string
	PlatformURLs    map[string]string
}

// PoolConfig describes connection pool tuning.
type PoolConfig struct {
	Size           int
	Overflow       int
	Recycle        time.Duration
	AcquireTimeout time.Duration
}

// Load reads configuration from .env (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("[CONFIG] No .env file found, using system environment variables")
	}

	cfg := &Config{
		BotToken:        getEnv("TELEGRAM_BOT_TOKEN", ""),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		DBPath:          getEnv("DB_PATH", "/data/bot.db"),
		RedisURL:        getEnv("REDIS_URL", ""),
		HealthAddr:      getEnv("HEALTH_ADDR", ""),
		SiteURL:         getEnv("SITE_URL", ""),
		WelcomeImageURL: getEnv("WELCOME_IMAGE_URL", ""),
		PlatformURLs: map[string]string{
			"YouTube":        getEnv("YOUTUBE_URL", ""),
			"Instagram":      getEnv("INSTAGRAM_URL", ""),
			"TikTok":         getEnv("TIKTOK_URL", ""),
			"Twitter":        getEnv("TWITTER_URL", ""),
			"Facebook":       getEnv("FACEBOOK_URL", ""),
			"Telegram Group": getEnv("TELEGRAM_GROUP_URL", ""),
		},
	}

	if cfg.BotToken == "" {
		return nil, ErrMissingToken
	}

	var err error
	if cfg.Pool.Size, err = getInt("DB_POOL_SIZE", 10); err != nil {
		return nil, err
	}
	if cfg.Pool.Overflow, err = getInt("DB_MAX_OVERFLOW", 20); err != nil {
		return nil, err
	}
	// 0 в SetMaxOpenConns означает пул без ограничений
	if cfg.Pool.Size+cfg.Pool.Overflow < 1 {
		return nil, errors.New("invalid DB_POOL_SIZE/DB_MAX_OVERFLOW: pool needs at least one connection")
	}
	if cfg.Pool.Recycle, err = getSeconds("DB_POOL_RECYCLE", 3600); err != nil {
		return nil, err
	}
	if cfg.Pool.AcquireTimeout, err = getSeconds("DB_POOL_TIMEOUT", 30); err != nil {
		return nil, err
	}
	if cfg.Workers, err = getInt("BOT_WORKERS", 8); err != nil {
		return nil, err
	}
	if cfg.HandlerTimeout, err = getSeconds("HANDLER_TIMEOUT", 30); err != nil {
		return nil, err
	}
	if raw := getEnv("ADMIN_CHAT_ID", ""); raw != "" {
		// chat id группы бывает отрицательным
		if cfg.AdminChatID, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return nil, fmt.Errorf("invalid ADMIN_CHAT_ID: %w", err)
		}
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return n, nil
}

func getSeconds(key string, fallback int) (time.Duration, error) {
	n, err := getInt(key, fallback)
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Second, nil
}
