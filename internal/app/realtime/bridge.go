package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/scribelink/internal/app/models"
	"github.com/yigit/scribelink/internal/pkg/jobs"
	"github.com/yigit/scribelink/internal/pkg/metrics"
)

const (
	DefaultSettleDelay  = 100 * time.Millisecond
	DefaultPollInterval = 30 * time.Second
)

// ErrBridgeClosed is returned by Subscribe after Close.
var ErrBridgeClosed = errors.New("bridge closed")

// Enricher loads the caller's own view of match requests.
type Enricher interface {
	ListForSession(ctx context.Context, session models.Session) ([]models.EnrichedMatchRequest, error)
}

// EnricherFunc adapts a function to Enricher.
type EnricherFunc func(ctx context.Context, session models.Session) ([]models.EnrichedMatchRequest, error)

func (f EnricherFunc) ListForSession(ctx context.Context, session models.Session) ([]models.EnrichedMatchRequest, error) {
	return f(ctx, session)
}

// OnChange receives a freshly fetched view.
type OnChange func(requests []models.EnrichedMatchRequest)

// BridgeOption customizes a Bridge.
type BridgeOption func(*Bridge)

func BridgeWithSettleDelay(d time.Duration) BridgeOption {
	return func(b *Bridge) {
		if d >= 0 {
			b.settle = d
		}
	}
}

func BridgeWithPollInterval(d time.Duration) BridgeOption {
	return func(b *Bridge) {
		if d > 0 {
			b.poll = d
		}
	}
}

func BridgeWithLogger(l zerolog.Logger) BridgeOption {
	return func(b *Bridge) { b.logger = l }
}

// Bridge keeps one session's view of its match requests fresh. It holds at
// most one feed subscription; when subscribing fails it polls instead, and
// each poll tries the feed again. A resumed subscription refetches right away
// since events published in between are lost.
//
// onChange is never called after Close returns, and never with the result of
// a fetch started before the latest Subscribe. onChange must not call
// Subscribe or Close.
type Bridge struct {
	feed     Feed
	enricher Enricher
	settle   time.Duration
	poll     time.Duration
	logger   zerolog.Logger

	mu       sync.Mutex
	gen      uint64
	cancel   context.CancelFunc
	stopPoll context.CancelFunc
	sub      *Subscription
	realtime bool
	closed   bool

	deliverMu sync.Mutex
}

// NewBridge creates an idle bridge.
func NewBridge(feed Feed, enricher Enricher, opts ...BridgeOption) *Bridge {
	b := &Bridge{
		feed:     feed,
		enricher: enricher,
		settle:   DefaultSettleDelay,
		poll:     DefaultPollInterval,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Subscribe replaces any previous subscription with a new one for session.
// An initial fetch is delivered right away. Feed errors are not returned:
// the bridge switches to polling every poll interval instead.
func (b *Bridge) Subscribe(ctx context.Context, session models.Session, onChange OnChange) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrBridgeClosed
	}
	b.teardownLocked()
	b.gen++
	gen := b.gen
	subCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel

	sub, err := b.feed.Subscribe(subCtx)
	if err != nil {
		b.logger.Warn().Err(err).Str("userID", session.UserID.String()).Dur("interval", b.poll).
			Msg("Realtime subscription failed, falling back to polling")
		b.startPollingLocked(subCtx, gen, session, onChange)
	} else {
		b.sub = sub
		b.realtime = true
		metrics.RealtimeSubscriptions.Inc()
		go b.consume(subCtx, gen, sub, session, onChange)
	}
	b.mu.Unlock()

	go func() { _ = b.refresh(subCtx, gen, session, onChange) }()
	return nil
}

// RealtimeEnabled reports whether the bridge is fed by the change feed rather
// than polling.
func (b *Bridge) RealtimeEnabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.realtime
}

// Close releases the subscription or polling loop. It waits for an in-flight
// onChange call to finish.
func (b *Bridge) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.gen++
	b.teardownLocked()
	b.mu.Unlock()

	b.deliverMu.Lock()
	b.deliverMu.Unlock() //nolint:staticcheck
}

func (b *Bridge) teardownLocked() {
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
	if b.stopPoll != nil {
		b.stopPoll()
		b.stopPoll = nil
	}
	if b.sub != nil {
		b.sub.Close()
		b.sub = nil
	}
	if b.realtime {
		metrics.RealtimeSubscriptions.Dec()
		b.realtime = false
	}
}

func (b *Bridge) startPollingLocked(ctx context.Context, gen uint64, session models.Session, onChange OnChange) {
	metrics.PollingFallbacks.Inc()
	b.realtime = false
	pollCtx, stop := context.WithCancel(ctx)
	b.stopPoll = stop
	runner := jobs.New(pollCtx)
	runner.Every(b.poll, "realtime_poll", func(pollCtx context.Context) error {
		if b.resume(ctx, gen, session, onChange) {
			return nil
		}
		return b.refresh(pollCtx, gen, session, onChange)
	})
}

// resume swaps polling for a feed subscription once the feed accepts one
// again, then refetches.
func (b *Bridge) resume(ctx context.Context, gen uint64, session models.Session, onChange OnChange) bool {
	b.mu.Lock()
	if b.closed || b.gen != gen || b.sub != nil {
		b.mu.Unlock()
		return false
	}
	sub, err := b.feed.Subscribe(ctx)
	if err != nil {
		b.mu.Unlock()
		return false
	}
	if b.stopPoll != nil {
		b.stopPoll()
		b.stopPoll = nil
	}
	b.sub = sub
	b.realtime = true
	metrics.RealtimeSubscriptions.Inc()
	go b.consume(ctx, gen, sub, session, onChange)
	b.mu.Unlock()

	b.logger.Info().Str("userID", session.UserID.String()).Msg("Change feed available again, realtime resumed")
	_ = b.refresh(ctx, gen, session, onChange)
	return true
}

func (b *Bridge) consume(ctx context.Context, gen uint64, sub *Subscription, session models.Session, onChange OnChange) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Events:
			if !ok {
				b.feedLost(ctx, gen, session, onChange)
				return
			}
			if !ev.Concerns(session.UserID) {
				continue
			}
			if !b.waitSettle(ctx) {
				return
			}
			b.drain(sub)
			_ = b.refresh(ctx, gen, session, onChange)
		}
	}
}

// feedLost switches a live subscription to polling when the feed closes
// underneath it.
func (b *Bridge) feedLost(ctx context.Context, gen uint64, session models.Session, onChange OnChange) {
	if ctx.Err() != nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.gen != gen || b.closed {
		return
	}
	b.logger.Warn().Str("userID", session.UserID.String()).Msg("Change feed closed, falling back to polling")
	b.sub = nil
	if b.realtime {
		metrics.RealtimeSubscriptions.Dec()
	}
	b.startPollingLocked(ctx, gen, session, onChange)
}

func (b *Bridge) waitSettle(ctx context.Context) bool {
	if b.settle <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(b.settle)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// drain discards events queued during the settle delay; the refetch that
// follows covers them.
func (b *Bridge) drain(sub *Subscription) {
	for {
		select {
		case _, ok := <-sub.Events:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

func (b *Bridge) refresh(ctx context.Context, gen uint64, session models.Session, onChange OnChange) error {
	list, err := b.enricher.ListForSession(ctx, session)
	if err != nil {
		if ctx.Err() == nil {
			b.logger.Warn().Err(err).Str("userID", session.UserID.String()).Msg("Match request refetch failed")
		}
		return err
	}

	b.deliverMu.Lock()
	defer b.deliverMu.Unlock()
	if !b.current(gen) {
		return nil
	}
	onChange(list)
	return nil
}

func (b *Bridge) current(gen uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.closed && b.gen == gen
}
