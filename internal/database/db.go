package database

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/artur/social-points-bot/internal/config"
)

// Dialect identifies the SQL backend behind a DB.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

const sqlitePragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate"

// DB wraps the shared connection pool.
type DB struct {
	*sqlx.DB
	Dialect Dialect
}

// ParseURL maps a database URL to a dialect, a database/sql driver name and a driver DSN.
// postgres:// and postgresql:// URLs go to pgx; sqlite:// URLs and bare paths go to sqlite.
func ParseURL(databaseURL string) (Dialect, string, string) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return DialectPostgres, "pgx", databaseURL
	default:
		path := strings.TrimPrefix(databaseURL, "sqlite://")
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return DialectSQLite, "sqlite", path + sep + sqlitePragmas
	}
}

// New opens the pool, applies pool tuning and verifies connectivity.
func New(databaseURL string, pool config.PoolConfig) (*DB, error) {
	dialect, driverName, dsn := ParseURL(databaseURL)

	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	maxOpen, maxIdle, recycle := pool.Size+pool.Overflow, pool.Size, pool.Recycle
	if strings.Contains(dsn, ":memory:") {
		// каждое соединение in-memory sqlite - отдельная база, держим ровно одно
		maxOpen, maxIdle, recycle = 1, 1, 0
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(recycle)
	db.SetConnMaxIdleTime(recycle)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("[DB] Connected to %s (max open %d, idle %d, recycle %s)", dialect, maxOpen, maxIdle, recycle)

	return &DB{DB: db, Dialect: dialect}, nil
}
