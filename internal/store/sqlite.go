// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides thread/message persistence with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist.
// Timestamps are stored as integer milliseconds since epoch.
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS threads (
			id              TEXT PRIMARY KEY,
			title           TEXT NOT NULL,
			created_at      INTEGER NOT NULL,
			last_message_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_threads_last_message
			ON threads(last_message_at DESC);

		CREATE TABLE IF NOT EXISTS messages (
			id        TEXT PRIMARY KEY,
			thread_id TEXT NOT NULL,
			text      TEXT NOT NULL,
			is_user   INTEGER NOT NULL,
			timestamp INTEGER NOT NULL,
			FOREIGN KEY (thread_id) REFERENCES threads(id)
		);

		CREATE INDEX IF NOT EXISTS idx_messages_thread_timestamp
			ON messages(thread_id, timestamp);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// CreateThread creates a new thread in the database.
// If a thread with the same ID already exists, it returns ErrDuplicateThread.
func (s *SQLiteStore) CreateThread(ctx context.Context, thread *Thread) error {
	query := `
		INSERT INTO threads (id, title, created_at, last_message_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		thread.ID,
		thread.Title,
		thread.CreatedAt.UnixMilli(),
		thread.LastMessageAt.UnixMilli(),
	)
	if err != nil {
		// Check for UNIQUE constraint violation
		if isConstraintViolation(err) {
			return ErrDuplicateThread
		}
		return fmt.Errorf("inserting thread: %w", err)
	}

	s.logger.Debug("created thread", "id", thread.ID, "title", thread.Title)
	return nil
}

// isConstraintViolation checks if the error is a SQLite UNIQUE constraint violation
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "constraint failed")
}

// GetThread retrieves a thread by ID.
// Returns ErrNotFound if the thread doesn't exist.
func (s *SQLiteStore) GetThread(ctx context.Context, id string) (*Thread, error) {
	query := `
		SELECT id, title, created_at, last_message_at
		FROM threads
		WHERE id = ?
	`

	var thread Thread
	var createdAt, lastMessageAt int64

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&thread.ID,
		&thread.Title,
		&createdAt,
		&lastMessageAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying thread: %w", err)
	}

	thread.CreatedAt = fromMillis(createdAt)
	thread.LastMessageAt = fromMillis(lastMessageAt)

	return &thread, nil
}

// GetThreads retrieves threads ordered by most recent activity.
// If limit is 0 or negative, DefaultThreadLimit is used. An empty database
// yields an empty slice, not an error.
func (s *SQLiteStore) GetThreads(ctx context.Context, limit int) ([]*Thread, error) {
	if limit <= 0 {
		limit = DefaultThreadLimit
	}
	if limit > MaxThreadLimit {
		limit = MaxThreadLimit
	}

	query := `
		SELECT id, title, created_at, last_message_at
		FROM threads
		ORDER BY last_message_at DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying threads: %w", err)
	}
	defer rows.Close()

	threads := []*Thread{}
	for rows.Next() {
		var thread Thread
		var createdAt, lastMessageAt int64

		if err := rows.Scan(&thread.ID, &thread.Title, &createdAt, &lastMessageAt); err != nil {
			return nil, fmt.Errorf("scanning thread row: %w", err)
		}

		thread.CreatedAt = fromMillis(createdAt)
		thread.LastMessageAt = fromMillis(lastMessageAt)
		threads = append(threads, &thread)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating thread rows: %w", err)
	}

	return threads, nil
}

// UpdateThreadTitle overwrites a thread's title.
// Returns ErrNotFound if the thread doesn't exist.
func (s *SQLiteStore) UpdateThreadTitle(ctx context.Context, id, title string) error {
	query := `UPDATE threads SET title = ? WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, title, id)
	if err != nil {
		return fmt.Errorf("updating thread title: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Debug("updated thread title", "id", id, "title", title)
	return nil
}

// SaveMessage saves a message and advances the owning thread's
// last_message_at in a single transaction. Either both writes land or
// neither does. Returns ErrThreadNotFound if the thread doesn't exist.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE threads SET last_message_at = ? WHERE id = ?`,
		msg.Timestamp.UnixMilli(), msg.ThreadID,
	)
	if err != nil {
		return fmt.Errorf("updating thread timestamp: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrThreadNotFound
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO messages (id, thread_id, text, is_user, timestamp) VALUES (?, ?, ?, ?, ?)`,
		msg.ID, msg.ThreadID, msg.Text, boolToInt(msg.IsUser), msg.Timestamp.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing message: %w", err)
	}

	s.logger.Debug("saved message", "id", msg.ID, "thread_id", msg.ThreadID, "is_user", msg.IsUser)
	return nil
}

// GetMessagesForThread retrieves messages for a thread, limited to the most
// recent `limit` messages. Messages are returned in chronological order
// (oldest first). If limit is 0 or negative, all messages are returned.
func (s *SQLiteStore) GetMessagesForThread(ctx context.Context, threadID string, limit int) ([]*Message, error) {
	var query string
	var args []any

	// rowid breaks timestamp ties so a message and its paired reply written
	// in the same millisecond keep their insertion order.
	if limit > 0 {
		// Get the N most recent messages, but return them in chronological order.
		// We use a subquery to get the most recent N, then order ascending.
		query = `
			SELECT id, thread_id, text, is_user, timestamp
			FROM (
				SELECT rowid AS rid, id, thread_id, text, is_user, timestamp
				FROM messages
				WHERE thread_id = ?
				ORDER BY timestamp DESC, rid DESC
				LIMIT ?
			)
			ORDER BY timestamp ASC, rid ASC
		`
		args = []any{threadID, limit}
	} else {
		query = `
			SELECT id, thread_id, text, is_user, timestamp
			FROM messages
			WHERE thread_id = ?
			ORDER BY timestamp ASC, rowid ASC
		`
		args = []any{threadID}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	messages := []*Message{}
	for rows.Next() {
		var msg Message
		var isUser int
		var timestamp int64

		if err := rows.Scan(&msg.ID, &msg.ThreadID, &msg.Text, &isUser, &timestamp); err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}

		msg.IsUser = isUser != 0
		msg.Timestamp = fromMillis(timestamp)
		messages = append(messages, &msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating message rows: %w", err)
	}

	return messages, nil
}

// DeleteThread removes a thread and all of its messages.
// Messages are deleted before the thread row to preserve referential
// integrity at every intermediate point.
// Returns ErrNotFound if the thread doesn't exist.
func (s *SQLiteStore) DeleteThread(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE thread_id = ?`, id); err != nil {
		return fmt.Errorf("deleting messages: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM threads WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting thread: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing thread delete: %w", err)
	}

	s.logger.Debug("deleted thread", "id", id)
	return nil
}

// DeleteAllThreads removes every thread and message, messages first.
func (s *SQLiteStore) DeleteAllThreads(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages`); err != nil {
		return fmt.Errorf("deleting messages: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM threads`); err != nil {
		return fmt.Errorf("deleting threads: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing bulk delete: %w", err)
	}

	s.logger.Info("deleted all threads")
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// fromMillis converts an integer millisecond timestamp to a UTC time.Time.
func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// Ensure SQLiteStore implements Store interface
var _ Store = (*SQLiteStore)(nil)
