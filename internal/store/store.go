// ABOUTME: Store interface and data types for confidant persistence
// ABOUTME: Defines Thread, Message structs and the Store interface for database operations

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicateThread is returned when trying to create a thread that already exists
var ErrDuplicateThread = errors.New("thread already exists")

// ErrThreadNotFound is returned by SaveMessage when the message references a
// thread that does not exist
var ErrThreadNotFound = errors.New("message references unknown thread")

// DefaultThreadLimit is the page size used by GetThreads when the caller
// passes a non-positive limit. MaxThreadLimit caps how many threads a
// single GetThreads call may return.
const (
	DefaultThreadLimit = 20
	MaxThreadLimit     = 100
)

// Thread represents a persisted conversation container, ordered in listings
// by recency of activity.
type Thread struct {
	ID            string
	Title         string
	CreatedAt     time.Time
	LastMessageAt time.Time
}

// Message represents a single utterance within a thread. Messages are
// immutable once saved.
type Message struct {
	ID        string
	ThreadID  string
	Text      string
	IsUser    bool
	Timestamp time.Time
}

// Store defines the interface for thread and message persistence.
//
// SaveMessage is the only compound write: it advances the owning thread's
// LastMessageAt and inserts the message in one atomic unit. A partial write
// must never be observable.
type Store interface {
	CreateThread(ctx context.Context, thread *Thread) error
	GetThread(ctx context.Context, id string) (*Thread, error)
	GetThreads(ctx context.Context, limit int) ([]*Thread, error)
	UpdateThreadTitle(ctx context.Context, id, title string) error

	SaveMessage(ctx context.Context, msg *Message) error
	GetMessagesForThread(ctx context.Context, threadID string, limit int) ([]*Message, error)

	DeleteThread(ctx context.Context, id string) error
	DeleteAllThreads(ctx context.Context) error

	// Close releases any resources held by the store
	Close() error
}
