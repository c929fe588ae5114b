package realtime

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/yigit/scribelink/internal/app/models"
)

// Op is the kind of row change.
type Op string

const (
	OpInsert Op = "INSERT"
	OpUpdate Op = "UPDATE"
	OpDelete Op = "DELETE"
)

// ErrFeedClosed is returned by Subscribe after the feed was shut down.
var ErrFeedClosed = errors.New("change feed closed")

// ChangeEvent describes one change to the match_requests table. The id fields
// may be zero when the source does not know them.
type ChangeEvent struct {
	Op        Op                 `json:"op"`
	ID        uuid.UUID          `json:"id"`
	StudentID uuid.UUID          `json:"studentId"`
	WriterID  uuid.UUID          `json:"writerId"`
	ExamID    uuid.UUID          `json:"examId"`
	Status    models.MatchStatus `json:"status"`
}

// EventFor builds the event for a stored match request.
func EventFor(op Op, m *models.MatchRequest) ChangeEvent {
	return ChangeEvent{
		Op:        op,
		ID:        m.ID,
		StudentID: m.StudentID,
		WriterID:  m.WriterID,
		ExamID:    m.ExamID,
		Status:    m.Status,
	}
}

// Concerns reports whether the event may change userID's view. Events without
// participant ids concern everyone.
func (e ChangeEvent) Concerns(userID uuid.UUID) bool {
	if e.StudentID == uuid.Nil && e.WriterID == uuid.Nil {
		return true
	}
	return e.StudentID == userID || e.WriterID == userID
}

// Feed is a source of change events on the match_requests table.
type Feed interface {
	Subscribe(ctx context.Context) (*Subscription, error)
}

// Subscription is one open registration on a Feed. Events is closed after
// Close or when the feed shuts down.
type Subscription struct {
	Events <-chan ChangeEvent
	cancel func()
	once   sync.Once
}

// NewSubscription wraps a channel and its release func.
func NewSubscription(events <-chan ChangeEvent, cancel func()) *Subscription {
	return &Subscription{Events: events, cancel: cancel}
}

// Close releases the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
}
