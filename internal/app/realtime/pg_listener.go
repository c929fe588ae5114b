package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const (
	listenRetryMin = 500 * time.Millisecond
	listenRetryMax = 30 * time.Second
)

// Publisher receives decoded change events.
type Publisher interface {
	Publish(ev ChangeEvent)
}

// StateObserver is told when the LISTEN connection comes up or drops.
type StateObserver interface {
	ListenerUp()
	ListenerDown()
}

// PGListenerOption customizes a PGListener.
type PGListenerOption func(*PGListener)

// PGListenerWithObserver reports LISTEN state changes to o.
func PGListenerWithObserver(o StateObserver) PGListenerOption {
	return func(l *PGListener) { l.observer = o }
}

// PGListener holds a pool connection in LISTEN mode on the channel fed by the
// match_requests trigger and republishes notifications.
type PGListener struct {
	pool    *pgxpool.Pool
	channel string
	out     Publisher
	logger  zerolog.Logger

	observer  StateObserver
	listening atomic.Bool
}

// NewPGListener creates a listener for channel.
func NewPGListener(pool *pgxpool.Pool, channel string, out Publisher, logger zerolog.Logger, opts ...PGListenerOption) *PGListener {
	l := &PGListener{pool: pool, channel: channel, out: out, logger: logger}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Run listens until ctx is done, reconnecting with backoff when the
// connection drops.
func (l *PGListener) Run(ctx context.Context) error {
	backoff := listenRetryMin
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return nil
		}
		l.logger.Warn().Err(err).Dur("retryIn", backoff).Msg("Change feed listener interrupted")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, listenRetryMax)
	}
}

func (l *PGListener) listen(ctx context.Context) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listen connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return fmt.Errorf("listen %s: %w", l.channel, err)
	}
	l.setListening(true)
	defer l.setListening(false)
	l.logger.Info().Str("channel", l.channel).Msg("Listening for match request changes")

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			// The connection may still be in LISTEN state; do not return it
			// to the pool for reuse.
			_ = conn.Conn().Close(context.Background())
			return err
		}
		ev, err := DecodeNotification(n.Payload)
		if err != nil {
			l.logger.Warn().Err(err).Str("payload", n.Payload).Msg("Undecodable change notification")
			ev = ChangeEvent{}
		}
		l.out.Publish(ev)
	}
}

func (l *PGListener) setListening(up bool) {
	l.listening.Store(up)
	if l.observer == nil {
		return
	}
	if up {
		l.observer.ListenerUp()
	} else {
		l.observer.ListenerDown()
	}
}

// Listening reports whether the listener currently holds an active LISTEN.
func (l *PGListener) Listening() bool {
	return l.listening.Load()
}

// DecodeNotification parses the JSON payload emitted by the trigger.
func DecodeNotification(payload string) (ChangeEvent, error) {
	var ev ChangeEvent
	if payload == "" {
		return ev, errors.New("empty payload")
	}
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return ev, fmt.Errorf("decode change notification: %w", err)
	}
	return ev, nil
}
