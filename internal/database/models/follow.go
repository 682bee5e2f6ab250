package models

import "time"

// PlatformFollow records one acknowledged follow of a social platform
type PlatformFollow struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	Platform  string    `db:"platform"`
	Reward    int64     `db:"reward"`
	CreatedAt time.Time `db:"created_at"`
}
