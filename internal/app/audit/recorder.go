// Package audit records user and system activity to the activity log
// without blocking the caller.
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/yigit/scribelink/internal/app/models"
	"github.com/yigit/scribelink/internal/app/repositories"
	"github.com/yigit/scribelink/internal/pkg/metrics"
)

const (
	DefaultQueueSize    = 256
	DefaultWriteTimeout = 3 * time.Second
)

// Recorder accepts activity entries.
type Recorder interface {
	Record(ctx context.Context, e models.AuditEntry)
}

// Nop discards every entry.
type Nop struct{}

func (Nop) Record(context.Context, models.AuditEntry) {}

type clientKey struct{}

type client struct {
	ip        string
	userAgent string
}

// WithClient stores the caller's address and user agent in ctx so entries
// recorded deeper in the call chain carry them.
func WithClient(ctx context.Context, ip, userAgent string) context.Context {
	return context.WithValue(ctx, clientKey{}, client{ip: ip, userAgent: userAgent})
}

// Event builds an entry for the session. Missing id and timestamp are filled
// by the recorder.
func Event(s models.Session, kind models.AuditKind, action string, details map[string]interface{}) models.AuditEntry {
	e := models.AuditEntry{
		SessionID: s.SessionID,
		Kind:      kind,
		Action:    action,
		Details:   details,
	}
	if !s.IsZero() {
		id := s.UserID
		e.UserID = &id
	}
	return e
}

// AsyncRecorder queues entries and writes them from a single worker. When
// the queue is full the entry is dropped and counted.
type AsyncRecorder struct {
	store        repositories.AuditStore
	queue        chan models.AuditEntry
	writeTimeout time.Duration
	logger       zerolog.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewAsyncRecorder starts the worker. Call Close to flush and stop it.
func NewAsyncRecorder(store repositories.AuditStore, queueSize int, writeTimeout time.Duration, logger zerolog.Logger) *AsyncRecorder {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if writeTimeout <= 0 {
		writeTimeout = DefaultWriteTimeout
	}
	r := &AsyncRecorder{
		store:        store,
		queue:        make(chan models.AuditEntry, queueSize),
		writeTimeout: writeTimeout,
		logger:       logger,
		done:         make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *AsyncRecorder) Record(ctx context.Context, e models.AuditEntry) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if c, ok := ctx.Value(clientKey{}).(client); ok {
		if e.IPAddress == "" {
			e.IPAddress = c.ip
		}
		if e.UserAgent == "" {
			e.UserAgent = c.userAgent
		}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	select {
	case r.queue <- e:
	default:
		metrics.AuditDropped.Inc()
		r.logger.Warn().Str("action", e.Action).Str("kind", string(e.Kind)).Msg("Audit queue full, dropping entry")
	}
}

func (r *AsyncRecorder) run() {
	defer close(r.done)
	for e := range r.queue {
		r.write(e)
	}
}

func (r *AsyncRecorder) write(e models.AuditEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), r.writeTimeout)
	defer cancel()
	if err := r.store.Insert(ctx, &e); err != nil {
		metrics.AuditWriteErrors.Inc()
		r.logger.Error().Err(err).Str("action", e.Action).Msg("Failed to write audit entry")
	}
}

// Close stops accepting entries and waits until queued ones are written or
// ctx ends.
func (r *AsyncRecorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
