package models

import "time"

// Referral is a directed inviter -> target edge, stored at most once per pair
type Referral struct {
	ID           int64     `db:"id"`
	ReferredUser int64     `db:"referred_user"`
	Referrer     int64     `db:"referrer"`
	Reward       int64     `db:"reward"`
	CreatedAt    time.Time `db:"created_at"`
}
