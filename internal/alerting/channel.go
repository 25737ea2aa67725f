package alerting

import (
	"context"
	"slices"
	"sync"

	"github.com/coastcare/coastal-alerts/internal/datastore/entities"
	"github.com/coastcare/coastal-alerts/internal/errors"
)

// Channel delivers a notification to one recipient. Deliver must honour ctx
// cancellation; the dispatcher treats a timeout as a failed delivery.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, recipient *entities.User, data *NotificationData) error
}

// ChannelRegistry maps method names to channels.
type ChannelRegistry struct {
	mu       sync.RWMutex
	channels map[string]Channel
}

// NewChannelRegistry creates a registry holding channels.
func NewChannelRegistry(channels ...Channel) *ChannelRegistry {
	r := &ChannelRegistry{channels: make(map[string]Channel, len(channels))}
	for _, ch := range channels {
		r.Register(ch)
	}
	return r
}

// Register adds ch, replacing any channel with the same name.
func (r *ChannelRegistry) Register(ch Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels[ch.Name()] = ch
}

// Resolve returns the channel for name. Unknown names resolve to a channel
// that always fails.
func (r *ChannelRegistry) Resolve(name string) Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if ch, ok := r.channels[name]; ok {
		return ch
	}
	return notImplementedChannel{name: name}
}

// Names returns the registered method names in sorted order.
func (r *ChannelRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.channels))
	for name := range r.channels {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

type notImplementedChannel struct {
	name string
}

func (c notImplementedChannel) Name() string { return c.name }

func (c notImplementedChannel) Deliver(context.Context, *entities.User, *NotificationData) error {
	return errors.Newf("Unknown notification method: %s", c.name)
}
