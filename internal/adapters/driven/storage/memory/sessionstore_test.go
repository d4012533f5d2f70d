package memory

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-study/internal/core/domain"
)

func newTestSessionStore(t *testing.T, maxSessions, maxExchanges int) *SessionStore {
	t.Helper()
	store, err := NewSessionStore(maxSessions, maxExchanges)
	require.NoError(t, err)

	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return store
}

func exchange(q, a string) []domain.Message {
	return []domain.Message{
		{Role: domain.RoleUser, Content: q},
		{Role: domain.RoleAssistant, Content: a},
	}
}

func TestNewSessionStore_InvalidLimits(t *testing.T) {
	_, err := NewSessionStore(0, 10)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = NewSessionStore(10, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSessionStore_CreateAndAppend(t *testing.T) {
	store := newTestSessionStore(t, 10, 10)

	sess := store.Create()
	require.NotEmpty(t, sess.ID)
	assert.Empty(t, sess.Messages)

	require.NoError(t, store.Append(sess.ID, "doc-1", exchange("what is osmosis?", "diffusion of water")...))
	require.NoError(t, store.Append(sess.ID, "doc-1", exchange("and why?", "gradients")...))

	got, err := store.Get(sess.ID)
	require.NoError(t, err)
	assert.Len(t, got.Messages, 4)
	assert.Equal(t, []string{"doc-1"}, got.DocIDs)
	assert.True(t, got.LastActivity.After(got.CreatedAt))
}

func TestSessionStore_GetReturnsCopy(t *testing.T) {
	store := newTestSessionStore(t, 10, 10)
	sess := store.Create()
	require.NoError(t, store.Append(sess.ID, "doc-1", exchange("q", "a")...))

	got, err := store.Get(sess.ID)
	require.NoError(t, err)
	got.Messages[0].Content = "mutated"

	again, err := store.Get(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "q", again.Messages[0].Content)
}

func TestSessionStore_TrimsToMaxExchanges(t *testing.T) {
	store := newTestSessionStore(t, 10, 2)
	sess := store.Create()

	for i := range 5 {
		require.NoError(t, store.Append(sess.ID, "doc-1", exchange(fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))...))
	}

	got, err := store.Get(sess.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 4)
	assert.Equal(t, "q3", got.Messages[0].Content)
	assert.Equal(t, "a4", got.Messages[3].Content)
}

func TestSessionStore_EvictsLeastRecentlyUsed(t *testing.T) {
	store := newTestSessionStore(t, 2, 10)

	first := store.Create()
	second := store.Create()

	// Touch the first so the second becomes the eviction candidate.
	_, err := store.Get(first.ID)
	require.NoError(t, err)

	third := store.Create()

	_, err = store.Get(second.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = store.Get(first.ID)
	assert.NoError(t, err)
	_, err = store.Get(third.ID)
	assert.NoError(t, err)
}

func TestSessionStore_ClearAndDelete(t *testing.T) {
	store := newTestSessionStore(t, 10, 10)
	sess := store.Create()
	require.NoError(t, store.Append(sess.ID, "doc-1", exchange("q", "a")...))

	require.NoError(t, store.Clear(sess.ID))
	got, err := store.Get(sess.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Messages)

	require.NoError(t, store.Delete(sess.ID))
	assert.ErrorIs(t, store.Delete(sess.ID), domain.ErrNotFound)
	assert.ErrorIs(t, store.Clear(sess.ID), domain.ErrNotFound)
	assert.ErrorIs(t, store.Append(sess.ID, "doc-1"), domain.ErrNotFound)
}

func TestSessionStore_ListMostRecentFirst(t *testing.T) {
	store := newTestSessionStore(t, 10, 10)
	a := store.Create()
	b := store.Create()
	require.NoError(t, store.Append(a.ID, "doc-1", exchange("q", "a")...))

	list := store.List()
	require.Len(t, list, 2)
	assert.Equal(t, a.ID, list[0].ID)
	assert.Equal(t, b.ID, list[1].ID)
}

func TestSessionStore_Concurrent(t *testing.T) {
	store, err := NewSessionStore(100, 10)
	require.NoError(t, err)
	sess := store.Create()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Append(sess.ID, "doc-1", domain.Message{Role: domain.RoleUser, Content: fmt.Sprint(i)})
			_, _ = store.Get(sess.ID)
		}()
	}
	wg.Wait()

	got, err := store.Get(sess.ID)
	require.NoError(t, err)
	assert.Len(t, got.Messages, 20)
}
