// ABOUTME: SendFlowController coordinates one conversational turn end to end
// ABOUTME: Persist user message, call the provider, persist the paired reply, emit updates

package sendflow

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2389/confidant/internal/provider"
	"github.com/2389/confidant/internal/store"
)

// TurnState is the controller's per-turn state.
type TurnState string

const (
	StateIdle      TurnState = "idle"
	StateSending   TurnState = "sending"
	StateCompleted TurnState = "completed"
	StateFailed    TurnState = "failed"
)

// Fixed assistant texts substituted when the provider cannot supply a reply.
// Persisting one of these keeps every user message paired with an assistant
// message, so the conversation never stalls mid-turn.
const (
	fallbackEmptyReply   = "Sorry, I lost my train of thought there. What were we saying?"
	fallbackConnectivity = "Sorry, I'm having trouble connecting right now. Give me a minute and try again."
)

// titleMaxRunes bounds the thread title taken from the first user message.
const titleMaxRunes = 50

// ConversationStore defines what the controller needs from storage
type ConversationStore interface {
	SaveMessage(ctx context.Context, msg *store.Message) error
	GetMessagesForThread(ctx context.Context, threadID string, limit int) ([]*store.Message, error)
	UpdateThreadTitle(ctx context.Context, id, title string) error
}

// Update is one observable state transition of a turn. Terminal updates
// (Completed, Failed) carry the refreshed ordered message list.
type Update struct {
	State    TurnState
	ThreadID string
	Messages []*store.Message
	Err      error
}

// Config holds the controller's tunables.
type Config struct {
	// HistoryLimit bounds how many prior messages are sent as context
	// per turn. Zero means the store default of 50.
	HistoryLimit int

	// ReplyTimeout bounds the provider call. Zero disables the deadline;
	// expiry behaves exactly like a provider failure.
	ReplyTimeout time.Duration
}

// DefaultHistoryLimit is used when Config.HistoryLimit is zero.
const DefaultHistoryLimit = 50

// Controller orchestrates one user-initiated turn at a time.
//
// At most one turn may be in flight per controller; SendTurn calls arriving
// while a turn is Sending are rejected at the gate, which also prevents
// interleaved writes to the same thread's last-message timestamp.
type Controller struct {
	store    ConversationStore
	provider provider.Provider
	notifier *Notifier
	cfg      Config
	logger   *slog.Logger

	mu       sync.Mutex
	threadID string
	sending  bool
}

// New creates a SendFlowController. Pass nil logger for default.
func New(st ConversationStore, p provider.Provider, cfg Config, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	return &Controller{
		store:    st,
		provider: p,
		notifier: NewNotifier(logger),
		cfg:      cfg,
		logger:   logger.With("component", "sendflow"),
	}
}

// Subscribe registers an observer for turn updates. The subscription is
// released when ctx is cancelled.
func (c *Controller) Subscribe(ctx context.Context) <-chan *Update {
	ch, _ := c.notifier.Subscribe(ctx)
	return ch
}

// SelectThread sets the thread that subsequent turns write into.
func (c *Controller) SelectThread(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.threadID = id
}

// CurrentThread returns the selected thread ID, or "" when none is selected.
func (c *Controller) CurrentThread() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.threadID
}

// Sending reports whether a turn is in flight.
func (c *Controller) Sending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sending
}

// SendTurn runs one conversational turn. It returns false when the
// precondition gate rejects the call: empty text after trimming, no selected
// thread, or a turn already in flight. Rejection has no side effects and
// emits nothing.
//
// An accepted turn always reaches a terminal state: Failed only when the
// user message (or the paired reply) could not be persisted, Completed
// otherwise — provider failures are absorbed into a fixed apology reply.
func (c *Controller) SendTurn(ctx context.Context, text string) bool {
	text = strings.TrimSpace(text)

	c.mu.Lock()
	if text == "" || c.threadID == "" || c.sending {
		c.mu.Unlock()
		return false
	}
	c.sending = true
	threadID := c.threadID
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.sending = false
		c.mu.Unlock()
	}()

	c.notifier.Publish(&Update{State: StateSending, ThreadID: threadID})

	// Prompt context is read before the new message is saved, so it
	// naturally excludes this turn's text. An empty history also marks
	// the thread's first-ever turn.
	history, err := c.store.GetMessagesForThread(ctx, threadID, c.cfg.HistoryLimit)
	if err != nil {
		c.fail(ctx, threadID, err)
		return true
	}
	firstTurn := len(history) == 0

	userMsg := &store.Message{
		ID:        uuid.New().String(),
		ThreadID:  threadID,
		Text:      text,
		IsUser:    true,
		Timestamp: time.Now(),
	}
	if err := c.store.SaveMessage(ctx, userMsg); err != nil {
		// Never contact the provider with unsaved content
		c.fail(ctx, threadID, err)
		return true
	}

	c.logger.Debug("user message recorded",
		"thread_id", threadID,
		"message_id", userMsg.ID)

	// The title reflects the opener regardless of how the reply turns out
	if firstTurn {
		if err := c.store.UpdateThreadTitle(ctx, threadID, truncateTitle(text)); err != nil {
			c.logger.Error("failed to set thread title",
				"error", err,
				"thread_id", threadID)
		}
	}

	replyText := c.requestReply(ctx, text, history)

	assistantMsg := &store.Message{
		ID:        uuid.New().String(),
		ThreadID:  threadID,
		Text:      replyText,
		IsUser:    false,
		Timestamp: time.Now(),
	}
	if err := c.store.SaveMessage(ctx, assistantMsg); err != nil {
		// A generated reply must not be dropped silently
		c.fail(ctx, threadID, err)
		return true
	}

	c.logger.Debug("assistant message recorded",
		"thread_id", threadID,
		"message_id", assistantMsg.ID)

	c.emitTerminal(ctx, threadID, StateCompleted, nil)
	return true
}

// requestReply calls the provider and maps every failure mode to a fixed
// apology text. The turn still completes; only the underlying cause is
// logged.
func (c *Controller) requestReply(ctx context.Context, text string, history []*store.Message) string {
	callCtx := ctx
	if c.cfg.ReplyTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.cfg.ReplyTimeout)
		defer cancel()
	}

	reply, err := c.provider.Respond(callCtx, text, toTurns(history))
	switch {
	case errors.Is(err, provider.ErrEmptyReply):
		c.logger.Warn("provider returned empty reply, substituting fallback reply")
		return fallbackEmptyReply
	case err != nil:
		c.logger.Warn("provider call failed, substituting fallback reply", "error", err)
		return fallbackConnectivity
	case strings.TrimSpace(reply) == "":
		c.logger.Warn("provider returned empty reply, substituting fallback reply")
		return fallbackEmptyReply
	default:
		return reply
	}
}

// fail emits a Failed update carrying the persistence error.
func (c *Controller) fail(ctx context.Context, threadID string, err error) {
	c.logger.Error("turn failed", "thread_id", threadID, "error", err)
	c.emitTerminal(ctx, threadID, StateFailed, err)
}

// emitTerminal publishes the terminal update with the refreshed message
// list. A read failure at this point degrades to an update without
// messages; the turn's outcome is already decided.
func (c *Controller) emitTerminal(ctx context.Context, threadID string, state TurnState, turnErr error) {
	messages, err := c.store.GetMessagesForThread(ctx, threadID, c.cfg.HistoryLimit)
	if err != nil {
		c.logger.Error("failed to refresh messages for update",
			"error", err,
			"thread_id", threadID)
		messages = nil
	}
	c.notifier.Publish(&Update{
		State:    state,
		ThreadID: threadID,
		Messages: messages,
		Err:      turnErr,
	})
}

// toTurns maps stored messages to neutral provider turns, preserving order.
func toTurns(messages []*store.Message) []provider.Turn {
	turns := make([]provider.Turn, 0, len(messages))
	for _, msg := range messages {
		role := provider.RoleAssistant
		if msg.IsUser {
			role = provider.RoleUser
		}
		turns = append(turns, provider.Turn{Role: role, Content: msg.Text})
	}
	return turns
}

// truncateTitle bounds the first-message title to titleMaxRunes runes.
func truncateTitle(text string) string {
	runes := []rune(text)
	if len(runes) <= titleMaxRunes {
		return text
	}
	return string(runes[:titleMaxRunes])
}
