package store

import (
	"context"
	"errors"
	"time"

	"github.com/araneaimer/nitebot/internal/domain"
)

var ErrNotFound = errors.New("not found")

// Repo defines storage operations for audience tracking and reminders.
type Repo interface {
	// TouchUser records that userID wrote in chatID at the given time.
	TouchUser(ctx context.Context, userID, chatID int64, at time.Time) error
	CountUsers(ctx context.Context) (int, error)
	ClearUsers(ctx context.Context) error

	ListChats(ctx context.Context) ([]int64, error)
	CountChats(ctx context.Context) (int, error)
	RemoveChat(ctx context.Context, chatID int64) error

	AddReminder(ctx context.Context, r *domain.Reminder) error
	ListDueReminders(ctx context.Context, now time.Time, limit int) ([]domain.Reminder, error)
	ListReminders(ctx context.Context, chatID int64) ([]domain.Reminder, error)
	DeleteReminder(ctx context.Context, id int64) error

	Close() error
}
