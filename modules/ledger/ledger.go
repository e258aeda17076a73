package ledger

import (
	"context"
	"maps"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/example/taskdesk/domain/apperr"
	"github.com/example/taskdesk/domain/chat"
	"github.com/example/taskdesk/domain/user"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"
)

// MaxMessageLength is the maximum message size in bytes.
const MaxMessageLength = 5000

// MessageStore is the slice of the record store the ledger needs.
type MessageStore interface {
	FindUserByID(ctx context.Context, id string) (*user.User, error)
	CreateMessage(ctx context.Context, m *chat.Message) error
	FindMessageByID(ctx context.Context, id string) (*chat.Message, error)
	FindMessagesBetween(ctx context.Context, a, b string) ([]chat.Message, error)
	MarkMessageSeen(ctx context.Context, id string) (bool, error)
	MarkMessagesSeen(ctx context.Context, senderID, receiverID string) (int64, error)
	CountUnseenBySender(ctx context.Context, receiverID string) (chat.UnseenCounts, error)
}

// CountCache holds precomputed unseen counts per viewer.
type CountCache interface {
	Get(ctx context.Context, viewerID string) (chat.UnseenCounts, bool, error)
	Set(ctx context.Context, viewerID string, counts chat.UnseenCounts) error
	Invalidate(ctx context.Context, viewerID string) error
	InvalidateAll(ctx context.Context) error
}

// NopCache never holds anything.
type NopCache struct{}

// Get always misses.
func (NopCache) Get(context.Context, string) (chat.UnseenCounts, bool, error) { return nil, false, nil }

// Set does nothing.
func (NopCache) Set(context.Context, string, chat.UnseenCounts) error { return nil }

// Invalidate does nothing.
func (NopCache) Invalidate(context.Context, string) error { return nil }

// InvalidateAll does nothing.
func (NopCache) InvalidateAll(context.Context) error { return nil }

// Notice names the user who must hear about a new message.
type Notice struct {
	Target string
}

// Ledger stores direct messages and derives unseen counts from them.
type Ledger struct {
	store  MessageStore
	cache  CountCache
	clock  clockwork.Clock
	logger types.Logger

	flight singleflight.Group

	// generations guards cache fills: a fill is only written back when no
	// mutation touched the viewer's counts since the fill started. epoch
	// covers mutations that touch every viewer at once.
	mu          sync.Mutex
	epoch       uint64
	generations map[string]uint64
}

// New creates a Ledger. A nil cache disables caching.
func New(store MessageStore, cache CountCache, clock clockwork.Clock, logger types.Logger) *Ledger {
	if cache == nil {
		cache = NopCache{}
	}
	return &Ledger{
		store:       store,
		cache:       cache,
		clock:       clock,
		logger:      logger,
		generations: make(map[string]uint64),
	}
}

// Send appends a message from sender to receiver.
func (l *Ledger) Send(ctx context.Context, senderID, receiverID, text string) (*chat.Message, Notice, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, Notice{}, apperr.Invalid("message text cannot be empty")
	}
	if len(text) > MaxMessageLength {
		return nil, Notice{}, apperr.Invalid("message text exceeds %d bytes", MaxMessageLength)
	}
	if !utf8.ValidString(text) {
		return nil, Notice{}, apperr.Invalid("message text is not valid UTF-8")
	}
	if senderID == receiverID {
		return nil, Notice{}, apperr.Invalid("cannot send a message to yourself")
	}
	if _, err := l.store.FindUserByID(ctx, senderID); err != nil {
		return nil, Notice{}, err
	}
	if _, err := l.store.FindUserByID(ctx, receiverID); err != nil {
		return nil, Notice{}, err
	}

	msg := &chat.Message{
		ID:         uuid.New().String(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Text:       text,
		CreatedAt:  l.clock.Now().UTC(),
	}
	if err := l.store.CreateMessage(ctx, msg); err != nil {
		return nil, Notice{}, err
	}
	l.touch(ctx, receiverID)

	l.logger.Debug("Message stored", "message_id", msg.ID, "sender_id", senderID, "receiver_id", receiverID)
	return msg, Notice{Target: receiverID}, nil
}

// History returns every message between a and b, oldest first.
func (l *Ledger) History(ctx context.Context, a, b string) ([]chat.Message, error) {
	return l.store.FindMessagesBetween(ctx, a, b)
}

// MarkSeen flags one message as seen by its receiver. Repeating it is a no-op.
func (l *Ledger) MarkSeen(ctx context.Context, messageID, viewerID string) (*chat.Message, error) {
	msg, err := l.store.FindMessageByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.ReceiverID != viewerID {
		return nil, apperr.Forbidden("message %s is not addressed to %s", messageID, viewerID)
	}

	changed, err := l.store.MarkMessageSeen(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if changed {
		l.touch(ctx, viewerID)
	}
	msg.Seen = true
	return msg, nil
}

// MarkAllSeenFrom flags every message from counterpart to viewer as seen and
// returns how many changed.
func (l *Ledger) MarkAllSeenFrom(ctx context.Context, counterpartID, viewerID string) (int64, error) {
	n, err := l.store.MarkMessagesSeen(ctx, counterpartID, viewerID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		l.touch(ctx, viewerID)
	}
	return n, nil
}

// OpenConversation returns the history between viewer and counterpart as it
// was before opening, then marks the counterpart's messages as seen.
func (l *Ledger) OpenConversation(ctx context.Context, viewerID, counterpartID string) ([]chat.Message, int64, error) {
	history, err := l.History(ctx, viewerID, counterpartID)
	if err != nil {
		return nil, 0, err
	}
	n, err := l.MarkAllSeenFrom(ctx, counterpartID, viewerID)
	if err != nil {
		return nil, 0, err
	}
	return history, n, nil
}

// UnseenCounts returns counterpart -> unseen message count for viewer.
// Counterparts with nothing unseen are absent.
func (l *Ledger) UnseenCounts(ctx context.Context, viewerID string) (chat.UnseenCounts, error) {
	counts, ok, err := l.cache.Get(ctx, viewerID)
	if err != nil {
		l.logger.Warn("Unseen count cache read failed", "viewer_id", viewerID, "error", err)
	}
	if ok {
		return counts, nil
	}

	v, err, _ := l.flight.Do(viewerID, func() (any, error) {
		return l.fill(context.WithoutCancel(ctx), viewerID)
	})
	if err != nil {
		return nil, err
	}
	return maps.Clone(v.(chat.UnseenCounts)), nil
}

func (l *Ledger) fill(ctx context.Context, viewerID string) (chat.UnseenCounts, error) {
	epoch, gen := l.generation(viewerID)

	counts, err := l.store.CountUnseenBySender(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.epoch != epoch || l.generations[viewerID] != gen {
		return counts, nil
	}
	if err := l.cache.Set(ctx, viewerID, counts); err != nil {
		l.logger.Warn("Unseen count cache write failed", "viewer_id", viewerID, "error", err)
	}
	return counts, nil
}

func (l *Ledger) generation(viewerID string) (uint64, uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.epoch, l.generations[viewerID]
}

// touch records that viewerID's unseen counts changed. It must run after
// the durable write.
func (l *Ledger) touch(ctx context.Context, viewerID string) {
	l.mu.Lock()
	l.generations[viewerID]++
	l.mu.Unlock()

	if err := l.cache.Invalidate(ctx, viewerID); err != nil {
		l.logger.Warn("Unseen count cache invalidation failed", "viewer_id", viewerID, "error", err)
	}
}

// Reset drops every cached count. It runs after bulk deletions that may
// touch any viewer, such as removing an employee and their messages.
func (l *Ledger) Reset(ctx context.Context) {
	l.mu.Lock()
	l.epoch++
	l.mu.Unlock()

	if err := l.cache.InvalidateAll(ctx); err != nil {
		l.logger.Warn("Unseen count cache reset failed", "error", err)
	}
}
