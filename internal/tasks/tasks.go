// Package tasks keeps per-user to-do items next to the points ledger.
package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/artur/social-points-bot/internal/database"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04"
	maxTitleLength = 200
)

var (
	ErrTaskNotFound = errors.New("task not found")
	ErrInvalidDate  = errors.New("invalid due date, use YYYY-MM-DD or YYYY-MM-DD HH:MM")
	ErrEmptyTitle   = errors.New("task title is empty")
	ErrTitleTooLong = errors.New("task title is too long")
	ErrUnavailable  = errors.New("task storage temporarily unavailable")
)

// Task is a to-do item owned by users.id.
type Task struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    int64     `gorm:"not null;index"`
	Title     string    `gorm:"size:200;not null"`
	DueDate   time.Time `gorm:"not null;index"`
	Done      bool      `gorm:"not null;default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Task) TableName() string {
	return "tasks"
}

// Store manages tasks through gorm on top of the shared connection pool.
type Store struct {
	db *gorm.DB
}

// Open wraps an already configured pool and migrates the tasks table.
func Open(sqlDB *sql.DB, dialect database.Dialect) (*Store, error) {
	var dialector gorm.Dialector
	switch dialect {
	case database.DialectPostgres:
		dialector = postgres.New(postgres.Config{Conn: sqlDB})
	default:
		dialector = &sqlite.Dialector{Conn: sqlDB}
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Error),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open task store: %w", err)
	}

	if err := db.AutoMigrate(&Task{}); err != nil {
		return nil, fmt.Errorf("failed to migrate tasks: %w", err)
	}

	log.Printf("[TASKS] Task store ready (%s)", dialect)
	return &Store{db: db}, nil
}

// Add creates a task for userID.
func (s *Store) Add(ctx context.Context, userID int64, title string, due time.Time) (*Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrEmptyTitle
	}
	if len([]rune(title)) > maxTitleLength {
		return nil, ErrTitleTooLong
	}

	task := &Task{UserID: userID, Title: title, DueDate: due}
	if err := s.db.WithContext(ctx).Create(task).Error; err != nil {
		return nil, storageError("create task", err)
	}
	return task, nil
}

// List returns the user's tasks ordered by due date.
func (s *Store) List(ctx context.Context, userID int64) ([]Task, error) {
	var tasks []Task
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("due_date ASC").
		Order("id ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, storageError("list tasks", err)
	}
	return tasks, nil
}

// Complete marks the task done. Tasks of other users are reported as not found.
func (s *Store) Complete(ctx context.Context, userID int64, id uint) error {
	result := s.db.WithContext(ctx).
		Model(&Task{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("done", true)
	if result.Error != nil {
		return storageError("complete task", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// Delete removes the task.
func (s *Store) Delete(ctx context.Context, userID int64, id uint) error {
	result := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&Task{})
	if result.Error != nil {
		return storageError("delete task", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func storageError(op string, err error) error {
	if database.IsTransient(err) || errors.Is(err, context.Canceled) {
		log.Printf("[TASKS] Failed to %s: %v", op, err)
		return fmt.Errorf("failed to %s: %w", op, ErrUnavailable)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

// ParseDue accepts "2006-01-02" and "2006-01-02 15:04".
func ParseDue(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{dateTimeLayout, dateLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidDate
}

// ParseAddArgs splits "/addtask" arguments into a due date and a title.
// The time part is optional: "2024-05-01 18:30 Call mom" or "2024-05-01 Call mom".
func ParseAddArgs(args string) (time.Time, string, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return time.Time{}, "", ErrInvalidDate
	}

	if len(fields) >= 2 {
		if due, err := time.Parse(dateTimeLayout, fields[0]+" "+fields[1]); err == nil {
			title := strings.Join(fields[2:], " ")
			if title == "" {
				return time.Time{}, "", ErrEmptyTitle
			}
			return due, title, nil
		}
	}

	due, err := time.Parse(dateLayout, fields[0])
	if err != nil {
		return time.Time{}, "", ErrInvalidDate
	}
	title := strings.Join(fields[1:], " ")
	if title == "" {
		return time.Time{}, "", ErrEmptyTitle
	}
	return due, title, nil
}
