// Package store provides persistent storage for confidant using SQLite.
//
// # Data Models
//
//   - Thread: a conversation container; listings order by LastMessageAt
//   - Message: one immutable utterance, user- or assistant-authored
//
// Timestamps are held as time.Time in Go and persisted as integer
// milliseconds since epoch.
//
// # Invariants
//
//   - Every message references an existing thread at insertion time;
//     deletes cascade messages before threads.
//   - SaveMessage is atomic: the thread's LastMessageAt advance and the
//     message insert land together or not at all.
//   - Within a thread, GetMessagesForThread returns messages oldest-first;
//     with a limit, the most recent N are selected before ordering.
//   - A thread's LastMessageAt equals the timestamp of its most recently
//     saved message, or CreatedAt while the thread is empty.
//
// # SQLite Configuration
//
// The store uses SQLite with WAL mode for concurrent reads:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA foreign_keys=ON;
//
// # Error Handling
//
// Common errors:
//
//   - ErrNotFound: requested entity does not exist
//   - ErrDuplicateThread: thread ID already taken
//   - ErrThreadNotFound: SaveMessage against a missing thread
//
// Any other error from a store method wraps an underlying driver fault and
// means the storage layer is unavailable; the store never retries.
//
// All methods accept context.Context for cancellation support.
//
// # Testing
//
// Use NewMockStore() for unit tests; it implements Store in memory and
// supports failure injection. Use NewSQLiteStore with t.TempDir() for
// integration tests against real SQLite.
package store
