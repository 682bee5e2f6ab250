package database

import (
	"fmt"
	"log"
)

type columnTypes struct {
	pk        string
	integer   string
	timestamp string
	now       string
}

func (db *DB) columnTypes() columnTypes {
	if db.Dialect == DialectPostgres {
		return columnTypes{
			pk:        "BIGSERIAL PRIMARY KEY",
			integer:   "BIGINT",
			timestamp: "TIMESTAMPTZ",
			now:       "NOW()",
		}
	}
	return columnTypes{
		pk:        "INTEGER PRIMARY KEY AUTOINCREMENT",
		integer:   "INTEGER",
		timestamp: "DATETIME",
		now:       "CURRENT_TIMESTAMP",
	}
}

// Migrate runs all database migrations
func (db *DB) Migrate() error {
	log.Printf("[DB] Running migrations...")

	t := db.columnTypes()

	migrations := []string{
		// Users table
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS users (
			id %[1]s,
			chat_id %[2]s NOT NULL UNIQUE,
			handle TEXT,
			points %[2]s NOT NULL DEFAULT 0 CHECK (points >= 0),
			referrals_count %[2]s NOT NULL DEFAULT 0 CHECK (referrals_count >= 0),
			created_at %[3]s NOT NULL DEFAULT %[4]s,
			updated_at %[3]s NOT NULL DEFAULT %[4]s
		)`, t.pk, t.integer, t.timestamp, t.now),
		`CREATE INDEX IF NOT EXISTS idx_users_points ON users(points DESC, id)`,
		`CREATE INDEX IF NOT EXISTS idx_users_referrals_count ON users(referrals_count DESC, id)`,

		// Referral edges
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS referrals (
			id %[1]s,
			referred_user %[2]s NOT NULL REFERENCES users(id),
			referrer %[2]s NOT NULL REFERENCES users(id),
			reward %[2]s NOT NULL DEFAULT 100,
			created_at %[3]s NOT NULL DEFAULT %[4]s,
			UNIQUE (referred_user, referrer)
		)`, t.pk, t.integer, t.timestamp, t.now),
		`CREATE INDEX IF NOT EXISTS idx_referrals_referrer ON referrals(referrer)`,

		// Platform follow acknowledgements
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS platform_follows (
			id %[1]s,
			user_id %[2]s NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			platform TEXT NOT NULL,
			reward %[2]s NOT NULL,
			created_at %[3]s NOT NULL DEFAULT %[4]s
		)`, t.pk, t.integer, t.timestamp, t.now),
		`CREATE INDEX IF NOT EXISTS idx_platform_follows_user_id ON platform_follows(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_platform_follows_platform ON platform_follows(platform)`,

		// Command stats table
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS command_stats (
			id %[1]s,
			user_id %[2]s NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			command TEXT NOT NULL,
			executed_at %[3]s NOT NULL DEFAULT %[4]s
		)`, t.pk, t.integer, t.timestamp, t.now),
		`CREATE INDEX IF NOT EXISTS idx_command_stats_user_id ON command_stats(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_command_stats_command ON command_stats(command)`,
	}

	for i, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}

	log.Printf("[DB] Migrations completed successfully")
	return nil
}
