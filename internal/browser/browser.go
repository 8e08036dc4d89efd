// ABOUTME: ThreadBrowser mediates thread listing, creation and selection
// ABOUTME: Thin consumer of the store; selection of a missing thread is a reported no-op

package browser

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/2389/confidant/internal/store"
)

// PlaceholderTitle is the title a thread carries until its first user
// message overwrites it.
const PlaceholderTitle = "New Chat"

// ThreadStore defines what the browser needs from storage
type ThreadStore interface {
	CreateThread(ctx context.Context, thread *store.Thread) error
	GetThread(ctx context.Context, id string) (*store.Thread, error)
	GetThreads(ctx context.Context, limit int) ([]*store.Thread, error)
	DeleteThread(ctx context.Context, id string) error
}

// Browser lists threads by recency and tracks the current selection.
type Browser struct {
	store  ThreadStore
	logger *slog.Logger

	selected string
}

// New creates a ThreadBrowser. Pass nil logger for default.
func New(st ThreadStore, logger *slog.Logger) *Browser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Browser{
		store:  st,
		logger: logger.With("component", "browser"),
	}
}

// NewThread creates a thread with a placeholder title and selects it.
func (b *Browser) NewThread(ctx context.Context) (*store.Thread, error) {
	now := time.Now()
	thread := &store.Thread{
		ID:            uuid.New().String(),
		Title:         PlaceholderTitle,
		CreatedAt:     now,
		LastMessageAt: now,
	}
	if err := b.store.CreateThread(ctx, thread); err != nil {
		return nil, err
	}

	b.selected = thread.ID
	b.logger.Debug("thread created", "thread_id", thread.ID)
	return thread, nil
}

// SelectThread verifies the thread exists and selects it. Selecting a
// nonexistent ID returns store.ErrNotFound and leaves the current
// selection unchanged.
func (b *Browser) SelectThread(ctx context.Context, id string) error {
	if _, err := b.store.GetThread(ctx, id); err != nil {
		b.logger.Debug("selection rejected", "thread_id", id, "error", err)
		return err
	}
	b.selected = id
	return nil
}

// Selected returns the currently selected thread ID, or "" when none.
func (b *Browser) Selected() string {
	return b.selected
}

// ListThreads returns threads ordered by most recent activity.
func (b *Browser) ListThreads(ctx context.Context, limit int) ([]*store.Thread, error) {
	return b.store.GetThreads(ctx, limit)
}

// DeleteThread removes a thread; a deleted selection is cleared.
func (b *Browser) DeleteThread(ctx context.Context, id string) error {
	if err := b.store.DeleteThread(ctx, id); err != nil {
		return err
	}
	if b.selected == id {
		b.selected = ""
	}
	return nil
}
