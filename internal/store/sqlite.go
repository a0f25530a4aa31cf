package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	"github.com/araneaimer/nitebot/internal/domain"
)

// SQLiteRepo implements Repo using an embedded SQLite database.
type SQLiteRepo struct{ db *sql.DB }

// OpenSQLite opens (or creates) the SQLite database at the given path,
// applies recommended PRAGMAs, runs SQL migrations, and returns a repository.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Reasonable pooling for SQLite; it's a single-writer engine.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &SQLiteRepo{db: db}, nil
}

// applyPragmas configures the SQLite connection for durability and concurrency.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database resources.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

// TouchUser upserts both the user and the chat it wrote in.
func (r *SQLiteRepo) TouchUser(ctx context.Context, userID, chatID int64, at time.Time) error {
	ts := at.UTC().Unix()
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO users (user_id, chat_id, first_seen, last_seen)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			chat_id   = excluded.chat_id,
			last_seen = excluded.last_seen`,
		userID, chatID, ts, ts,
	); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO chats (chat_id, first_seen, last_seen)
		VALUES (?, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET last_seen = excluded.last_seen`,
		chatID, ts, ts,
	); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// CountUsers returns the number of unique users seen.
func (r *SQLiteRepo) CountUsers(ctx context.Context) (int, error) {
	return r.count(ctx, "users")
}

// ClearUsers resets the unique-user statistics. Known chats are kept for broadcasts.
func (r *SQLiteRepo) ClearUsers(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM users`)
	return err
}

// ListChats returns every chat id that may receive a broadcast, oldest first.
func (r *SQLiteRepo) ListChats(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT chat_id FROM chats ORDER BY first_seen ASC, chat_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		res = append(res, id)
	}
	return res, rows.Err()
}

// CountChats returns the broadcast audience size.
func (r *SQLiteRepo) CountChats(ctx context.Context) (int, error) {
	return r.count(ctx, "chats")
}

// RemoveChat forgets a chat, e.g. after the bot was blocked there.
func (r *SQLiteRepo) RemoveChat(ctx context.Context, chatID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM chats WHERE chat_id = ?`, chatID)
	return err
}

func (r *SQLiteRepo) count(ctx context.Context, table string) (int, error) {
	var n int
	// table names are package constants, never user input
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM `+table).Scan(&n)
	return n, err
}

// AddReminder inserts a reminder and sets its ID.
func (r *SQLiteRepo) AddReminder(ctx context.Context, rem *domain.Reminder) error {
	if rem == nil {
		return errors.New("nil reminder")
	}
	if strings.TrimSpace(rem.Text) == "" {
		return errors.New("empty reminder text")
	}
	created := rem.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO reminders (chat_id, text, fire_at, created_at)
		VALUES (?, ?, ?, ?)`,
		rem.ChatID, rem.Text, rem.FireAt.UTC().Unix(), created.UTC().Unix(),
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rem.ID = id
	rem.CreatedAt = fromUnix(created.UTC().Unix())
	return nil
}

// ListDueReminders returns up to `limit` reminders whose fire_at is <= now.
// Results are ordered by fire_at ascending.
func (r *SQLiteRepo) ListDueReminders(ctx context.Context, now time.Time, limit int) ([]domain.Reminder, error) {
	return r.queryReminders(ctx, `
		SELECT id, chat_id, text, fire_at, created_at
		FROM reminders
		WHERE fire_at <= ?
		ORDER BY fire_at ASC, id ASC
		LIMIT ?`,
		now.UTC().Unix(), limit,
	)
}

// ListReminders returns a chat's pending reminders, soonest first.
func (r *SQLiteRepo) ListReminders(ctx context.Context, chatID int64) ([]domain.Reminder, error) {
	return r.queryReminders(ctx, `
		SELECT id, chat_id, text, fire_at, created_at
		FROM reminders
		WHERE chat_id = ?
		ORDER BY fire_at ASC, id ASC`,
		chatID,
	)
}

// DeleteReminder removes a reminder; a missing id yields ErrNotFound.
func (r *SQLiteRepo) DeleteReminder(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reminders WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteRepo) queryReminders(ctx context.Context, query string, args ...any) ([]domain.Reminder, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.Reminder
	for rows.Next() {
		rem, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, rem)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}
