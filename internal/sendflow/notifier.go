// ABOUTME: In-memory fan-out of turn updates to controller observers
// ABOUTME: Buffered per-subscriber channels with context-scoped cleanup

package sendflow

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// subscriberBufferSize is the channel buffer for each subscriber.
const subscriberBufferSize = 16

// Notifier provides in-memory pub/sub for turn Updates. The chat UI
// subscribes once and receives every state transition the controller
// publishes.
type Notifier struct {
	mu          sync.RWMutex
	subscribers map[string]chan *Update // subID -> ch
	logger      *slog.Logger
}

// NewNotifier creates a notifier. Pass nil logger for default.
func NewNotifier(logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		subscribers: make(map[string]chan *Update),
		logger:      logger.With("component", "notifier"),
	}
}

// Subscribe registers an observer. Returns a channel of updates and a
// subscription ID for later unsubscription. The subscription is
// automatically cleaned up when ctx is cancelled.
func (n *Notifier) Subscribe(ctx context.Context) (<-chan *Update, string) {
	subID := uuid.New().String()
	ch := make(chan *Update, subscriberBufferSize)

	n.mu.Lock()
	n.subscribers[subID] = ch
	n.mu.Unlock()

	n.logger.Debug("subscriber added", "sub_id", subID)

	// Auto-cleanup on context cancellation
	go func() {
		<-ctx.Done()
		n.Unsubscribe(subID)
	}()

	return ch, subID
}

// Publish sends an update to all subscribers.
// Non-blocking: updates are dropped for subscribers whose channels are full.
func (n *Notifier) Publish(update *Update) {
	n.mu.RLock()
	targets := make([]chan *Update, 0, len(n.subscribers))
	for _, ch := range n.subscribers {
		targets = append(targets, ch)
	}
	n.mu.RUnlock()

	for _, ch := range targets {
		select {
		case ch <- update:
			// Sent
		default:
			n.logger.Debug("dropped update for slow subscriber",
				"state", update.State,
				"thread_id", update.ThreadID)
		}
	}
}

// Unsubscribe removes a subscription and closes its channel.
func (n *Notifier) Unsubscribe(subID string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	ch, ok := n.subscribers[subID]
	if !ok {
		return
	}
	delete(n.subscribers, subID)
	close(ch)

	n.logger.Debug("subscriber removed", "sub_id", subID)
}

// Close shuts down the notifier and closes all subscriber channels.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()

	for subID, ch := range n.subscribers {
		close(ch)
		delete(n.subscribers, subID)
	}

	n.logger.Debug("notifier closed")
}
