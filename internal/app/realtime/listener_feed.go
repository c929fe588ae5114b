package realtime

import (
	"context"
	"errors"
	"sync"
)

// ErrFeedUnavailable is returned by ListenerFeed.Subscribe while the LISTEN
// connection is down.
var ErrFeedUnavailable = errors.New("change feed unavailable")

// ListenerFeed is the Feed used with the Postgres driver. It hands out
// broadcaster subscriptions only while the PGListener holds an active LISTEN,
// and ends them all when that connection drops so subscribers fall back to
// polling.
type ListenerFeed struct {
	broadcaster *Broadcaster

	mu sync.RWMutex
	up bool
}

// NewListenerFeed creates a feed that starts down.
func NewListenerFeed(b *Broadcaster) *ListenerFeed {
	return &ListenerFeed{broadcaster: b}
}

// Subscribe registers on the broadcaster or fails with ErrFeedUnavailable.
func (f *ListenerFeed) Subscribe(ctx context.Context) (*Subscription, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if !f.up {
		return nil, ErrFeedUnavailable
	}
	return f.broadcaster.Subscribe(ctx)
}

// Publish forwards ev to the broadcaster.
func (f *ListenerFeed) Publish(ev ChangeEvent) {
	f.broadcaster.Publish(ev)
}

// ListenerUp marks the feed available.
func (f *ListenerFeed) ListenerUp() {
	f.mu.Lock()
	f.up = true
	f.mu.Unlock()
}

// ListenerDown refuses new subscriptions and closes the open ones. Events
// published while down are lost, so subscribers must refetch once they
// subscribe again.
func (f *ListenerFeed) ListenerDown() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.up {
		return
	}
	f.up = false
	f.broadcaster.CloseSubscriptions()
}

// Listening reports whether subscriptions are currently handed out.
func (f *ListenerFeed) Listening() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.up
}
