package notification

import (
	"slices"
	"strings"
	"time"

	"github.com/coastcare/coastal-alerts/internal/alerting"
	"github.com/coastcare/coastal-alerts/internal/errors"
	"github.com/jonboulle/clockwork"
	"github.com/patrickmn/go-cache"
)

// DefaultInboxTTL is how long an in-app notification stays visible.
const DefaultInboxTTL = 72 * time.Hour

// ErrInboxItemNotFound is returned for unknown or expired inbox items.
var ErrInboxItemNotFound = errors.New("notification not found")

// InboxItem is one in-app notification for a user.
type InboxItem struct {
	ID        string                     `json:"id"`
	UserID    string                     `json:"user_id"`
	AlertID   string                     `json:"alert_id"`
	Title     string                     `json:"title"`
	Message   string                     `json:"message"`
	Severity  string                     `json:"severity"`
	Read      bool                       `json:"read"`
	CreatedAt time.Time                  `json:"created_at"`
	ExpiresAt time.Time                  `json:"expires_at"`
	Data      *alerting.NotificationData `json:"data,omitempty"`
}

// Inbox is the per-user in-app notification store. Items expire
// individually after the configured TTL, measured on the inbox clock; the
// cache TTL only evicts them from memory.
type Inbox struct {
	items *cache.Cache
	ttl   time.Duration
	clock clockwork.Clock
}

// NewInbox creates an inbox. ttl <= 0 selects DefaultInboxTTL and a nil
// clock selects the real clock.
func NewInbox(ttl time.Duration, clock clockwork.Clock) *Inbox {
	if ttl <= 0 {
		ttl = DefaultInboxTTL
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Inbox{
		items: cache.New(ttl, ttl/2),
		ttl:   ttl,
		clock: clock,
	}
}

func inboxKey(userID, id string) string {
	return userID + "/" + id
}

// Add stores item, assigning CreatedAt when unset.
func (in *Inbox) Add(item InboxItem) InboxItem {
	now := in.clock.Now()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.ExpiresAt = now.Add(in.ttl)
	in.items.Set(inboxKey(item.UserID, item.ID), item, in.ttl)
	return item
}

// get returns a live item. Items past ExpiresAt are evicted.
func (in *Inbox) get(key string) (InboxItem, bool) {
	obj, ok := in.items.Get(key)
	if !ok {
		return InboxItem{}, false
	}
	item, ok := obj.(InboxItem)
	if !ok || in.expired(item) {
		in.items.Delete(key)
		return InboxItem{}, false
	}
	return item, true
}

func (in *Inbox) expired(item InboxItem) bool {
	return !in.clock.Now().Before(item.ExpiresAt)
}

// List returns the user's items newest first. limit <= 0 returns all.
func (in *Inbox) List(userID string, limit int) []InboxItem {
	prefix := userID + "/"
	var out []InboxItem
	for key, it := range in.items.Items() {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if item, ok := it.Object.(InboxItem); ok && !in.expired(item) {
			out = append(out, item)
		}
	}
	slices.SortFunc(out, func(a, b InboxItem) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// UnreadCount returns the number of unread items for the user.
func (in *Inbox) UnreadCount(userID string) int {
	n := 0
	for _, item := range in.List(userID, 0) {
		if !item.Read {
			n++
		}
	}
	return n
}

// MarkRead flags one item as read, keeping its remaining lifetime.
func (in *Inbox) MarkRead(userID, id string) (InboxItem, error) {
	key := inboxKey(userID, id)
	item, ok := in.get(key)
	if !ok {
		return InboxItem{}, ErrInboxItemNotFound
	}
	item.Read = true
	in.items.Set(key, item, item.ExpiresAt.Sub(in.clock.Now()))
	return item, nil
}

// Delete removes one item.
func (in *Inbox) Delete(userID, id string) error {
	key := inboxKey(userID, id)
	if _, ok := in.get(key); !ok {
		return ErrInboxItemNotFound
	}
	in.items.Delete(key)
	return nil
}
