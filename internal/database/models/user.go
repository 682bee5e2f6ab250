package models

import "time"

// User represents a Telegram user stored in database
type User struct {
	ID             int64     `db:"id"`
	ChatID         int64     `db:"chat_id"`
	Handle         string    `db:"handle"`
	Points         int64     `db:"points"`
	ReferralsCount int64     `db:"referrals_count"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}
