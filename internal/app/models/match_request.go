package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MatchStatus is the state of a match request.
type MatchStatus string

const (
	StatusPending   MatchStatus = "pending"
	StatusAccepted  MatchStatus = "accepted"
	StatusRejected  MatchStatus = "rejected"
	StatusCancelled MatchStatus = "cancelled"
	StatusCompleted MatchStatus = "completed"
)

// ParseMatchStatus validates s against the closed status set.
func ParseMatchStatus(s string) (MatchStatus, error) {
	switch st := MatchStatus(s); st {
	case StatusPending, StatusAccepted, StatusRejected, StatusCancelled, StatusCompleted:
		return st, nil
	}
	return "", fmt.Errorf("unknown match status %q", s)
}

// Terminal reports whether no role may move the request out of s.
func (s MatchStatus) Terminal() bool {
	return s == StatusRejected || s == StatusCancelled || s == StatusCompleted
}

// transitions lists, per acting role and current status, the statuses the
// role may set. Anything absent is refused.
var transitions = map[Role]map[MatchStatus][]MatchStatus{
	RoleWriter: {
		StatusPending:  {StatusAccepted, StatusRejected},
		StatusAccepted: {StatusCompleted, StatusRejected},
	},
	RoleStudent: {
		StatusPending:  {StatusCancelled},
		StatusAccepted: {StatusCancelled},
	},
}

// AllowedTransitions returns the statuses role may move a request in from to.
func AllowedTransitions(role Role, from MatchStatus) []MatchStatus {
	next := transitions[role.Canonical()][from]
	out := make([]MatchStatus, len(next))
	copy(out, next)
	return out
}

// CanTransition reports whether role may move a request from one status to another.
func CanTransition(role Role, from, to MatchStatus) bool {
	for _, s := range transitions[role.Canonical()][from] {
		if s == to {
			return true
		}
	}
	return false
}

// MatchRequest is one student's ask to one writer for one exam
// ('match_requests' table).
type MatchRequest struct {
	ID        uuid.UUID   `json:"id" db:"id"`
	StudentID uuid.UUID   `json:"studentId" db:"student_id"`
	WriterID  uuid.UUID   `json:"writerId" db:"writer_id"`
	ExamID    uuid.UUID   `json:"examId" db:"exam_id"`
	Status    MatchStatus `json:"status" db:"status"`
	CreatedAt time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time   `json:"updatedAt" db:"updated_at"`
}

// IsParticipant reports whether userID is the student or the writer.
func (m *MatchRequest) IsParticipant(userID uuid.UUID) bool {
	return m.StudentID == userID || m.WriterID == userID
}

// CounterpartOf returns the id of the other participant.
func (m *MatchRequest) CounterpartOf(userID uuid.UUID) uuid.UUID {
	if m.StudentID == userID {
		return m.WriterID
	}
	return m.StudentID
}

// EnrichedMatchRequest is a match request joined with the counterpart's
// contact details and the exam. Counterpart and Exam are nil when the lookup
// failed.
type EnrichedMatchRequest struct {
	MatchRequest
	Counterpart *Contact      `json:"counterpart"`
	Exam        *ExamRequest  `json:"exam"`
	AllowedNext []MatchStatus `json:"allowedNext"`
}
