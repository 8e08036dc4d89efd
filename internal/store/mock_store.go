// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without SQLite and to inject write failures

package store

import (
	"context"
	"sort"
	"sync"
)

// MockStore is an in-memory Store implementation for testing.
//
// The Fail* hooks let tests inject write failures to exercise error paths
// that SQLite won't produce on demand.
type MockStore struct {
	mu       sync.RWMutex
	threads  map[string]*Thread
	messages map[string][]*Message // keyed by threadID

	// Failure injection hooks. When non-nil, the corresponding operation
	// returns the hook's error (if any) instead of applying the write.
	FailSaveMessage func(msg *Message) error
	FailUpdateTitle func(id, title string) error
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		threads:  make(map[string]*Thread),
		messages: make(map[string][]*Message),
	}
}

// CreateThread stores a new thread.
func (m *MockStore) CreateThread(ctx context.Context, thread *Thread) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.threads[thread.ID]; exists {
		return ErrDuplicateThread
	}

	// Make a copy to avoid external modification
	t := *thread
	m.threads[t.ID] = &t
	return nil
}

// GetThread retrieves a thread by ID.
func (m *MockStore) GetThread(ctx context.Context, id string) (*Thread, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	thread, ok := m.threads[id]
	if !ok {
		return nil, ErrNotFound
	}
	t := *thread
	return &t, nil
}

// GetThreads returns threads sorted by LastMessageAt descending.
func (m *MockStore) GetThreads(ctx context.Context, limit int) ([]*Thread, error) {
	if limit <= 0 {
		limit = DefaultThreadLimit
	}
	if limit > MaxThreadLimit {
		limit = MaxThreadLimit
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	threads := make([]*Thread, 0, len(m.threads))
	for _, thread := range m.threads {
		t := *thread
		threads = append(threads, &t)
	}

	sort.Slice(threads, func(i, j int) bool {
		return threads[i].LastMessageAt.After(threads[j].LastMessageAt)
	})

	if len(threads) > limit {
		threads = threads[:limit]
	}
	return threads, nil
}

// UpdateThreadTitle overwrites a thread's title.
func (m *MockStore) UpdateThreadTitle(ctx context.Context, id, title string) error {
	if m.FailUpdateTitle != nil {
		if err := m.FailUpdateTitle(id, title); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	thread, ok := m.threads[id]
	if !ok {
		return ErrNotFound
	}
	thread.Title = title
	return nil
}

// SaveMessage appends a message and advances the thread's LastMessageAt.
// Both changes apply together or not at all, mirroring the SQLite
// transaction semantics.
func (m *MockStore) SaveMessage(ctx context.Context, msg *Message) error {
	if m.FailSaveMessage != nil {
		if err := m.FailSaveMessage(msg); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	thread, ok := m.threads[msg.ThreadID]
	if !ok {
		return ErrThreadNotFound
	}

	thread.LastMessageAt = msg.Timestamp
	mc := *msg
	m.messages[msg.ThreadID] = append(m.messages[msg.ThreadID], &mc)
	return nil
}

// GetMessagesForThread returns the most recent `limit` messages in
// chronological order.
func (m *MockStore) GetMessagesForThread(ctx context.Context, threadID string, limit int) ([]*Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.messages[threadID]
	sorted := make([]*Message, len(all))
	copy(sorted, all)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	if limit > 0 && len(sorted) > limit {
		sorted = sorted[len(sorted)-limit:]
	}

	out := make([]*Message, len(sorted))
	for i, msg := range sorted {
		mc := *msg
		out[i] = &mc
	}
	return out, nil
}

// DeleteThread removes a thread and its messages.
func (m *MockStore) DeleteThread(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.threads[id]; !ok {
		return ErrNotFound
	}
	delete(m.messages, id)
	delete(m.threads, id)
	return nil
}

// DeleteAllThreads removes every thread and message.
func (m *MockStore) DeleteAllThreads(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.messages = make(map[string][]*Message)
	m.threads = make(map[string]*Thread)
	return nil
}

// Close is a no-op for the mock.
func (m *MockStore) Close() error {
	return nil
}

// MessageCount reports how many messages a thread holds. Test helper.
func (m *MockStore) MessageCount(threadID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.messages[threadID])
}

// Ensure MockStore implements Store interface
var _ Store = (*MockStore)(nil)
