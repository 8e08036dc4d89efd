// Package sendflow orchestrates one conversational turn at a time.
//
// # State machine
//
// Each turn moves Idle → Sending → (Completed | Failed) → Idle. The gate in
// SendTurn rejects empty input, a missing thread selection, and re-entrant
// calls while a turn is Sending — silently, with no side effects.
//
// The ordering discipline is record first, then act: the user message is
// persisted before the provider is contacted, so there is always a durable
// record even when the remote call never happens. Provider failures and
// empty replies are absorbed into a fixed apology message that is persisted
// like any other assistant reply; Failed is reserved for persistence
// failures. Every accepted turn therefore leaves the thread with a paired
// user/assistant message couple.
//
// # Observability
//
// State transitions are published through a Notifier, an in-memory fan-out
// with buffered per-subscriber channels. Terminal updates carry the
// refreshed ordered message list so observers never have to re-query.
package sendflow
