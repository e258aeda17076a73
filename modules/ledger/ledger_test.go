package ledger

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/example/taskdesk/domain/apperr"
	"github.com/example/taskdesk/domain/chat"
	"github.com/example/taskdesk/domain/user"
	"github.com/example/taskdesk/events"
	"github.com/example/taskdesk/modules/store"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger implements types.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(_ string, _ ...any)         {}
func (m *mockLogger) Info(_ string, _ ...any)          {}
func (m *mockLogger) Warn(_ string, _ ...any)          {}
func (m *mockLogger) Error(_ string, _ ...any)         {}
func (m *mockLogger) With(_ ...any) types.Logger       { return m }
func (m *mockLogger) WithModule(_ string) types.Logger { return m }
func (m *mockLogger) WithError(_ error) types.Logger   { return m }

// mapCache is an in-process CountCache.
type mapCache struct {
	mu      sync.Mutex
	entries map[string]chat.UnseenCounts
	sets    int
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string]chat.UnseenCounts)}
}

func (c *mapCache) Get(_ context.Context, viewerID string) (chat.UnseenCounts, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	counts, ok := c.entries[viewerID]
	return counts, ok, nil
}

func (c *mapCache) Set(_ context.Context, viewerID string, counts chat.UnseenCounts) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[viewerID] = counts
	c.sets++
	return nil
}

func (c *mapCache) Invalidate(_ context.Context, viewerID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, viewerID)
	return nil
}

func (c *mapCache) InvalidateAll(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
	return nil
}

type fixture struct {
	store *store.Store
	clock clockwork.FakeClock
	a     string
	b     string
	c     string
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := store.Open(":memory:", false)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	f := &fixture{
		store: store.New(db),
		clock: clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)),
	}
	f.a = f.createUser(t, "alice", user.RoleAdmin)
	f.b = f.createUser(t, "bob", user.RoleEmployee)
	f.c = f.createUser(t, "carol", user.RoleEmployee)
	return f
}

func (f *fixture) createUser(t *testing.T, name string, role user.Role) string {
	t.Helper()
	u := &user.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        name + "@example.com",
		PasswordHash: "hash",
		Role:         role,
	}
	require.NoError(t, f.store.CreateUser(context.Background(), u))
	return u.ID
}

// recount derives viewer's unseen count for counterpart from history.
func recount(t *testing.T, l *Ledger, viewer, counterpart string) int {
	t.Helper()
	history, err := l.History(context.Background(), viewer, counterpart)
	require.NoError(t, err)
	n := 0
	for _, m := range history {
		if m.SenderID == counterpart && m.ReceiverID == viewer && !m.Seen {
			n++
		}
	}
	return n
}

func TestLedger_SendValidation(t *testing.T) {
	f := setupFixture(t)
	l := New(f.store, nil, f.clock, &mockLogger{})

	tests := []struct {
		name     string
		receiver string
		text     string
		want     error
	}{
		{name: "empty", receiver: f.b, text: "", want: apperr.ErrInvalid},
		{name: "whitespace only", receiver: f.b, text: " \n\t ", want: apperr.ErrInvalid},
		{name: "too long", receiver: f.b, text: strings.Repeat("x", MaxMessageLength+1), want: apperr.ErrInvalid},
		{name: "invalid utf8", receiver: f.b, text: "hi \xff", want: apperr.ErrInvalid},
		{name: "to self", receiver: f.a, text: "hi", want: apperr.ErrInvalid},
		{name: "unknown receiver", receiver: "ghost", text: "hi", want: apperr.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := l.Send(context.Background(), f.a, tt.receiver, tt.text)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestLedger_SendFromRemovedUserIsRejected(t *testing.T) {
	f := setupFixture(t)
	l := New(f.store, nil, f.clock, &mockLogger{})
	ctx := context.Background()

	require.NoError(t, f.store.DeleteEmployee(ctx, f.c))

	_, _, err := l.Send(ctx, f.c, f.a, "still here?")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, _, err = l.Send(ctx, "never-existed", f.a, "hello")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	counts, err := l.UnseenCounts(ctx, f.a)
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestLedger_SendThenHistoryTail(t *testing.T) {
	f := setupFixture(t)
	l := New(f.store, nil, f.clock, &mockLogger{})
	ctx := context.Background()

	_, _, err := l.Send(ctx, f.b, f.a, "earlier")
	require.NoError(t, err)

	msg, notice, err := l.Send(ctx, f.a, f.b, "  hi  ")
	require.NoError(t, err)
	assert.Equal(t, "hi", msg.Text)
	assert.False(t, msg.Seen)
	assert.Equal(t, Notice{Target: f.b}, notice)

	history, err := l.History(ctx, f.b, f.a)
	require.NoError(t, err)
	require.Len(t, history, 2)

	tail := history[len(history)-1]
	assert.Equal(t, msg.ID, tail.ID)
	assert.False(t, tail.Seen)

	occurrences := 0
	for _, m := range history {
		if m.ID == msg.ID {
			occurrences++
		}
	}
	assert.Equal(t, 1, occurrences)
}

func TestLedger_HistoryStableOrderOnEqualTimestamps(t *testing.T) {
	f := setupFixture(t)
	l := New(f.store, nil, f.clock, &mockLogger{})
	ctx := context.Background()

	// The fake clock does not move, so every message shares one timestamp.
	var ids []string
	for i, from := range []string{f.a, f.b, f.a, f.b, f.a} {
		to := f.b
		if from == f.b {
			to = f.a
		}
		msg, _, err := l.Send(ctx, from, to, strings.Repeat("m", i+1))
		require.NoError(t, err)
		ids = append(ids, msg.ID)
	}

	history, err := l.History(ctx, f.a, f.b)
	require.NoError(t, err)
	got := make([]string, 0, len(history))
	for _, m := range history {
		got = append(got, m.ID)
	}
	assert.Equal(t, ids, got)
}

func TestLedger_MarkSeen(t *testing.T) {
	f := setupFixture(t)
	l := New(f.store, nil, f.clock, &mockLogger{})
	ctx := context.Background()

	msg, _, err := l.Send(ctx, f.a, f.b, "hello")
	require.NoError(t, err)

	_, err = l.MarkSeen(ctx, msg.ID, f.a)
	assert.True(t, errors.Is(err, apperr.ErrForbidden), "sender cannot mark: %v", err)

	_, err = l.MarkSeen(ctx, "missing", f.b)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	seen, err := l.MarkSeen(ctx, msg.ID, f.b)
	require.NoError(t, err)
	assert.True(t, seen.Seen)

	// Idempotent.
	seen, err = l.MarkSeen(ctx, msg.ID, f.b)
	require.NoError(t, err)
	assert.True(t, seen.Seen)

	counts, err := l.UnseenCounts(ctx, f.b)
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestLedger_UnseenCountsMatchRecount(t *testing.T) {
	f := setupFixture(t)
	cache := newMapCache()
	l := New(f.store, cache, f.clock, &mockLogger{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _, err := l.Send(ctx, f.a, f.b, "from a")
		require.NoError(t, err)
	}
	_, _, err := l.Send(ctx, f.c, f.b, "from c")
	require.NoError(t, err)
	_, _, err = l.Send(ctx, f.b, f.a, "reply")
	require.NoError(t, err)

	counts, err := l.UnseenCounts(ctx, f.b)
	require.NoError(t, err)
	assert.Equal(t, chat.UnseenCounts{f.a: 3, f.c: 1}, counts)
	for counterpart, n := range counts {
		assert.Equal(t, recount(t, l, f.b, counterpart), n)
	}

	// Served from cache until the next mutation.
	_, err = l.UnseenCounts(ctx, f.b)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)

	_, _, err = l.Send(ctx, f.a, f.b, "one more")
	require.NoError(t, err)
	counts, err = l.UnseenCounts(ctx, f.b)
	require.NoError(t, err)
	assert.Equal(t, 4, counts[f.a])
	assert.Equal(t, recount(t, l, f.b, f.a), counts[f.a])
}

func TestLedger_MarkAllSeenFromIsIdempotent(t *testing.T) {
	f := setupFixture(t)
	l := New(f.store, newMapCache(), f.clock, &mockLogger{})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, _, err := l.Send(ctx, f.a, f.b, "ping")
		require.NoError(t, err)
	}
	_, _, err := l.Send(ctx, f.c, f.b, "other")
	require.NoError(t, err)

	n, err := l.MarkAllSeenFrom(ctx, f.a, f.b)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = l.MarkAllSeenFrom(ctx, f.a, f.b)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	counts, err := l.UnseenCounts(ctx, f.b)
	require.NoError(t, err)
	_, hasA := counts[f.a]
	assert.False(t, hasA)
	assert.Equal(t, 1, counts[f.c])
}

// A sends to an offline B; B fetches history, opens the conversation and the
// unseen entry for A disappears.
func TestScenario_OfflineSendThenOpen(t *testing.T) {
	f := setupFixture(t)
	l := New(f.store, newMapCache(), f.clock, &mockLogger{})
	ctx := context.Background()

	sent, _, err := l.Send(ctx, f.a, f.b, "hi")
	require.NoError(t, err)

	history, err := l.History(ctx, f.a, f.b)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, sent.ID, history[0].ID)
	assert.False(t, history[0].Seen)

	counts, err := l.UnseenCounts(ctx, f.b)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[f.a])

	opened, marked, err := l.OpenConversation(ctx, f.b, f.a)
	require.NoError(t, err)
	assert.Equal(t, int64(1), marked)
	require.Len(t, opened, 1)
	assert.False(t, opened[0].Seen, "history is returned as it was before opening")

	counts, err = l.UnseenCounts(ctx, f.b)
	require.NoError(t, err)
	_, hasA := counts[f.a]
	assert.False(t, hasA)
}

// gatedStore blocks CountUnseenBySender until released.
type gatedStore struct {
	*store.Store
	entered chan struct{}
	release chan struct{}
	calls   int
	mu      sync.Mutex
}

func (s *gatedStore) CountUnseenBySender(ctx context.Context, receiverID string) (chat.UnseenCounts, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	s.entered <- struct{}{}
	<-s.release
	return s.Store.CountUnseenBySender(ctx, receiverID)
}

func TestLedger_StaleFillIsNotCached(t *testing.T) {
	f := setupFixture(t)
	gated := &gatedStore{Store: f.store, entered: make(chan struct{}, 1), release: make(chan struct{})}
	cache := newMapCache()
	l := New(gated, cache, f.clock, &mockLogger{})
	ctx := context.Background()

	done := make(chan chat.UnseenCounts)
	go func() {
		counts, err := l.UnseenCounts(ctx, f.b)
		assert.NoError(t, err)
		done <- counts
	}()

	<-gated.entered
	// A message lands while the count query is in flight.
	_, _, err := l.Send(ctx, f.a, f.b, "racing")
	require.NoError(t, err)
	close(gated.release)
	<-done

	cache.mu.Lock()
	_, cached := cache.entries[f.b]
	cache.mu.Unlock()
	assert.False(t, cached, "a fill that raced a mutation must not be cached")

	counts, err := l.UnseenCounts(ctx, f.b)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[f.a])
}

func TestLedger_ConcurrentUnseenCountsAreCoalesced(t *testing.T) {
	f := setupFixture(t)
	gated := &gatedStore{Store: f.store, entered: make(chan struct{}, 10), release: make(chan struct{})}
	l := New(gated, nil, f.clock, &mockLogger{})
	ctx := context.Background()

	_, _, err := l.Send(ctx, f.a, f.b, "hi")
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make(chan chat.UnseenCounts, 5)
	wg.Add(1)
	go func() {
		defer wg.Done()
		counts, err := l.UnseenCounts(ctx, f.b)
		assert.NoError(t, err)
		results <- counts
	}()
	<-gated.entered

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			counts, err := l.UnseenCounts(ctx, f.b)
			assert.NoError(t, err)
			results <- counts
		}()
	}
	// Let the joiners reach the in-flight call before releasing it.
	time.Sleep(50 * time.Millisecond)
	close(gated.release)
	wg.Wait()
	close(results)

	for counts := range results {
		assert.Equal(t, 1, counts[f.a])
	}
	gated.mu.Lock()
	defer gated.mu.Unlock()
	assert.LessOrEqual(t, gated.calls, 5)
	assert.GreaterOrEqual(t, gated.calls, 1)
}

func TestLedger_ResetDropsCachedCounts(t *testing.T) {
	f := setupFixture(t)
	cache := newMapCache()
	l := New(f.store, cache, f.clock, &mockLogger{})
	ctx := context.Background()

	_, _, err := l.Send(ctx, f.a, f.b, "hi")
	require.NoError(t, err)
	_, _, err = l.Send(ctx, f.b, f.c, "hey")
	require.NoError(t, err)
	_, err = l.UnseenCounts(ctx, f.b)
	require.NoError(t, err)
	_, err = l.UnseenCounts(ctx, f.c)
	require.NoError(t, err)
	require.Len(t, cache.entries, 2)

	require.NoError(t, f.store.DeleteEmployee(ctx, f.c))
	m := &LedgerModule{ledger: l, clock: f.clock, logger: &mockLogger{}}
	require.NoError(t, m.handleEmployeeDeleted(ctx, events.EmployeeDeletedEvent{EmployeeID: f.c}, nil))

	cache.mu.Lock()
	assert.Empty(t, cache.entries)
	cache.mu.Unlock()

	counts, err := l.UnseenCounts(ctx, f.b)
	require.NoError(t, err)
	assert.Equal(t, chat.UnseenCounts{f.a: 1}, counts)
}

func TestLedger_FillRacingResetIsNotCached(t *testing.T) {
	f := setupFixture(t)
	gated := &gatedStore{Store: f.store, entered: make(chan struct{}, 1), release: make(chan struct{})}
	cache := newMapCache()
	l := New(gated, cache, f.clock, &mockLogger{})
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := l.UnseenCounts(ctx, f.b)
		assert.NoError(t, err)
	}()

	<-gated.entered
	l.Reset(ctx)
	close(gated.release)
	<-done

	cache.mu.Lock()
	defer cache.mu.Unlock()
	_, cached := cache.entries[f.b]
	assert.False(t, cached)
}
