package realtime

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

const defaultSubscriberCapacity = 64

// BroadcasterOption customizes a Broadcaster.
type BroadcasterOption func(*Broadcaster)

// BroadcasterWithCapacity sets the per-subscriber buffer size.
func BroadcasterWithCapacity(n int) BroadcasterOption {
	return func(b *Broadcaster) {
		if n > 0 {
			b.capacity = n
		}
	}
}

// BroadcasterWithLogger sets the logger used for drop diagnostics.
func BroadcasterWithLogger(l zerolog.Logger) BroadcasterOption {
	return func(b *Broadcaster) { b.logger = l }
}

// Broadcaster is an in-process Feed: every published event is delivered to
// every open subscription.
type Broadcaster struct {
	mu       sync.RWMutex
	subs     map[*subscriber]struct{}
	capacity int
	closed   bool
	logger   zerolog.Logger
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster(opts ...BroadcasterOption) *Broadcaster {
	b := &Broadcaster{
		subs:     map[*subscriber]struct{}{},
		capacity: defaultSubscriberCapacity,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Subscribe registers a subscriber. The subscription ends on Close or when
// ctx is done.
func (b *Broadcaster) Subscribe(ctx context.Context) (*Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sub := &subscriber{ch: make(chan ChangeEvent, b.capacity)}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrFeedClosed
	}
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { b.remove(sub) })
	return NewSubscription(sub.ch, func() {
		stop()
		b.remove(sub)
	}), nil
}

// Publish delivers ev to all subscribers without blocking.
func (b *Broadcaster) Publish(ev ChangeEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subs {
		if !sub.deliver(ev) {
			b.logger.Debug().Str("op", string(ev.Op)).Str("id", ev.ID.String()).Msg("Subscriber buffer full, event coalesced")
		}
	}
}

// Subscribers returns the number of open subscriptions.
func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close ends every subscription and refuses new ones.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for sub := range b.subs {
		sub.close()
		delete(b.subs, sub)
	}
}

// CloseSubscriptions ends every open subscription but keeps accepting new
// ones.
func (b *Broadcaster) CloseSubscriptions() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs {
		sub.close()
		delete(b.subs, sub)
	}
}

func (b *Broadcaster) remove(sub *subscriber) {
	b.mu.Lock()
	delete(b.subs, sub)
	b.mu.Unlock()
	sub.close()
}

type subscriber struct {
	mu     sync.Mutex
	ch     chan ChangeEvent
	closed bool
}

// deliver enqueues ev. A full buffer already holds events that will trigger a
// refetch, so the incoming one is dropped and false is returned.
func (s *subscriber) deliver(ev ChangeEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return true
	}
	select {
	case s.ch <- ev:
		return true
	default:
		return false
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}
