package notification

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInbox_ListIsPerUserNewestFirst(t *testing.T) {
	t.Parallel()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC))
	in := NewInbox(time.Hour, clock)

	in.Add(InboxItem{ID: "a", UserID: "u1", Title: "first"})
	clock.Advance(time.Minute)
	in.Add(InboxItem{ID: "b", UserID: "u1", Title: "second"})
	in.Add(InboxItem{ID: "c", UserID: "u2", Title: "other user"})

	items := in.List("u1", 0)
	require.Len(t, items, 2)
	assert.Equal(t, "b", items[0].ID)
	assert.Equal(t, "a", items[1].ID)

	limited := in.List("u1", 1)
	require.Len(t, limited, 1)
	assert.Equal(t, "b", limited[0].ID)

	assert.Len(t, in.List("u2", 0), 1)
	assert.Empty(t, in.List("u3", 0))
}

func TestInbox_UserPrefixIsExact(t *testing.T) {
	t.Parallel()
	in := NewInbox(time.Hour, nil)
	in.Add(InboxItem{ID: "x", UserID: "u1"})
	in.Add(InboxItem{ID: "y", UserID: "u10"})

	assert.Len(t, in.List("u1", 0), 1)
	assert.Len(t, in.List("u10", 0), 1)
}

func TestInbox_MarkReadAndUnreadCount(t *testing.T) {
	t.Parallel()
	in := NewInbox(time.Hour, nil)
	in.Add(InboxItem{ID: "a", UserID: "u1"})
	in.Add(InboxItem{ID: "b", UserID: "u1"})
	assert.Equal(t, 2, in.UnreadCount("u1"))

	item, err := in.MarkRead("u1", "a")
	require.NoError(t, err)
	assert.True(t, item.Read)
	assert.Equal(t, 1, in.UnreadCount("u1"))

	_, err = in.MarkRead("u2", "b")
	require.ErrorIs(t, err, ErrInboxItemNotFound, "items are owner scoped")
	_, err = in.MarkRead("u1", "missing")
	require.ErrorIs(t, err, ErrInboxItemNotFound)
}

func TestInbox_Delete(t *testing.T) {
	t.Parallel()
	in := NewInbox(time.Hour, nil)
	in.Add(InboxItem{ID: "a", UserID: "u1"})

	require.ErrorIs(t, in.Delete("u2", "a"), ErrInboxItemNotFound)
	require.NoError(t, in.Delete("u1", "a"))
	require.ErrorIs(t, in.Delete("u1", "a"), ErrInboxItemNotFound)
	assert.Empty(t, in.List("u1", 0))
}

func TestInbox_ItemsExpire(t *testing.T) {
	t.Parallel()
	in := NewInbox(50*time.Millisecond, nil)
	in.Add(InboxItem{ID: "a", UserID: "u1"})
	require.Len(t, in.List("u1", 0), 1)

	assert.Eventually(t, func() bool {
		return len(in.List("u1", 0)) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestNewInbox_DefaultTTL(t *testing.T) {
	t.Parallel()
	in := NewInbox(0, nil)
	assert.Equal(t, DefaultInboxTTL, in.ttl)
}

func TestInbox_ExpiryFollowsClock(t *testing.T) {
	t.Parallel()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC))
	in := NewInbox(time.Hour, clock)
	added := in.Add(InboxItem{ID: "a", UserID: "u1"})
	assert.Equal(t, clock.Now().Add(time.Hour), added.ExpiresAt)

	clock.Advance(40 * time.Minute)
	item, err := in.MarkRead("u1", "a")
	require.NoError(t, err)
	assert.Equal(t, added.ExpiresAt, item.ExpiresAt, "marking read keeps the original deadline")

	clock.Advance(19 * time.Minute)
	require.Len(t, in.List("u1", 0), 1)

	clock.Advance(time.Minute)
	assert.Empty(t, in.List("u1", 0))
	assert.Zero(t, in.UnreadCount("u1"))
	_, err = in.MarkRead("u1", "a")
	require.ErrorIs(t, err, ErrInboxItemNotFound)
	require.ErrorIs(t, in.Delete("u1", "a"), ErrInboxItemNotFound)
}
