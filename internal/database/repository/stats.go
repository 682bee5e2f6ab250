package repository

import (
	"context"
	"fmt"
	"time"
)

// CommandCount represents command usage statistics
type CommandCount struct {
	Command string `db:"command" json:"command"`
	Count   int64  `db:"count" json:"count"`
}

// StatsRepository handles command statistics persistence
type StatsRepository struct{}

// NewStatsRepository creates a new StatsRepository
func NewStatsRepository() *StatsRepository {
	return &StatsRepository{}
}

// RecordCommand records a command execution
func (r *StatsRepository) RecordCommand(ctx context.Context, q DBExecutor, userID int64, command string) error {
	query := q.Rebind(`INSERT INTO command_stats (user_id, command, executed_at) VALUES (?, ?, ?)`)
	_, err := q.ExecContext(ctx, query, userID, command, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record command: %w", err)
	}
	return nil
}

// GetCommandCount returns total commands executed by a user
func (r *StatsRepository) GetCommandCount(ctx context.Context, q DBExecutor, userID int64) (int64, error) {
	var count int64
	err := q.GetContext(ctx, &count, q.Rebind(`SELECT COUNT(*) FROM command_stats WHERE user_id = ?`), userID)
	return count, err
}

// GetTotalCommands returns total commands executed by all users
func (r *StatsRepository) GetTotalCommands(ctx context.Context, q DBExecutor) (int64, error) {
	var count int64
	err := q.GetContext(ctx, &count, "SELECT COUNT(*) FROM command_stats")
	return count, err
}

// GetPopularCommands returns most popular commands (top N)
func (r *StatsRepository) GetPopularCommands(ctx context.Context, q DBExecutor, limit int) ([]CommandCount, error) {
	query := q.Rebind(`
		SELECT command, COUNT(*) AS count
		FROM command_stats
		GROUP BY command
		ORDER BY count DESC
		LIMIT ?
	`)

	var results []CommandCount
	if err := q.SelectContext(ctx, &results, query, limit); err != nil {
		return nil, fmt.Errorf("failed to get popular commands: %w", err)
	}
	return results, nil
}
