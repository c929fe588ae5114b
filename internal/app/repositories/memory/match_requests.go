package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yigit/scribelink/internal/app/models"
	"github.com/yigit/scribelink/internal/app/realtime"
	"github.com/yigit/scribelink/internal/pkg/apperrors"
)

// MatchRequestStore implements repositories.MatchRequestStore. Every write is
// published to the database's publisher after the lock is released.
type MatchRequestStore struct {
	db *DB
}

func (s *MatchRequestStore) Create(_ context.Context, m *models.MatchRequest) error {
	s.db.mu.Lock()
	if _, ok := s.db.exams[m.ExamID]; !ok {
		s.db.mu.Unlock()
		return apperrors.NewResourceNotFoundError("referenced exam or profile does not exist")
	}
	for _, r := range s.db.matchRequests {
		if r.v.Status == models.StatusPending && r.v.StudentID == m.StudentID && r.v.WriterID == m.WriterID {
			s.db.mu.Unlock()
			return apperrors.ErrDuplicatePending
		}
	}
	s.db.matchRequests[m.ID] = row[models.MatchRequest]{seq: s.db.nextSeq(), v: *m}
	s.db.mu.Unlock()

	s.db.publisher.Publish(realtime.EventFor(realtime.OpInsert, m))
	return nil
}

func (s *MatchRequestStore) GetByID(_ context.Context, id uuid.UUID) (*models.MatchRequest, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	r, ok := s.db.matchRequests[id]
	if !ok {
		return nil, apperrors.ErrMatchRequestNotFound
	}
	m := r.v
	return &m, nil
}

func (s *MatchRequestStore) HasPending(_ context.Context, studentID, writerID uuid.UUID) (bool, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	for _, r := range s.db.matchRequests {
		if r.v.Status == models.StatusPending && r.v.StudentID == studentID && r.v.WriterID == writerID {
			return true, nil
		}
	}
	return false, nil
}

func (s *MatchRequestStore) UpdateStatus(_ context.Context, id uuid.UUID, from, to models.MatchStatus) (*models.MatchRequest, error) {
	s.db.mu.Lock()
	r, ok := s.db.matchRequests[id]
	if !ok {
		s.db.mu.Unlock()
		return nil, apperrors.ErrMatchRequestNotFound
	}
	if r.v.Status != from {
		s.db.mu.Unlock()
		return nil, apperrors.ErrStaleStatus
	}
	r.v.Status = to
	r.v.UpdatedAt = time.Now().UTC()
	s.db.matchRequests[id] = r
	m := r.v
	s.db.mu.Unlock()

	s.db.publisher.Publish(realtime.EventFor(realtime.OpUpdate, &m))
	return &m, nil
}

func (s *MatchRequestStore) ListForParticipant(_ context.Context, userID uuid.UUID, role models.Role) ([]models.MatchRequest, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	keep := func(m models.MatchRequest) bool { return m.WriterID == userID }
	if role.IsStudent() {
		keep = func(m models.MatchRequest) bool { return m.StudentID == userID }
	}
	return sorted(s.db.matchRequests, keep, func(a, b models.MatchRequest) bool {
		return a.CreatedAt.After(b.CreatedAt)
	}, true), nil
}

func (s *MatchRequestStore) CompletedWriterIDs(_ context.Context, examName string) ([]uuid.UUID, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	seen := map[uuid.UUID]bool{}
	ids := []uuid.UUID{}
	for _, r := range s.db.matchRequests {
		if r.v.Status != models.StatusCompleted || seen[r.v.WriterID] {
			continue
		}
		exam, ok := s.db.exams[r.v.ExamID]
		if !ok || exam.v.ExamName != examName {
			continue
		}
		seen[r.v.WriterID] = true
		ids = append(ids, r.v.WriterID)
	}
	return ids, nil
}

func (s *MatchRequestStore) Delete(_ context.Context, id uuid.UUID) error {
	s.db.mu.Lock()
	r, ok := s.db.matchRequests[id]
	if !ok {
		s.db.mu.Unlock()
		return apperrors.ErrMatchRequestNotFound
	}
	delete(s.db.matchRequests, id)
	s.db.mu.Unlock()

	s.db.publisher.Publish(realtime.EventFor(realtime.OpDelete, &r.v))
	return nil
}

func (s *MatchRequestStore) DeleteForParticipant(_ context.Context, ids []uuid.UUID, userID uuid.UUID) (int64, error) {
	s.db.mu.Lock()
	removed := []models.MatchRequest{}
	for _, id := range ids {
		r, ok := s.db.matchRequests[id]
		if !ok || !r.v.IsParticipant(userID) {
			continue
		}
		delete(s.db.matchRequests, id)
		removed = append(removed, r.v)
	}
	s.db.mu.Unlock()

	s.publishDeletes(removed)
	return int64(len(removed)), nil
}

func (s *MatchRequestStore) DeleteByExam(_ context.Context, examID uuid.UUID) (int64, error) {
	s.db.mu.Lock()
	removed := []models.MatchRequest{}
	for id, r := range s.db.matchRequests {
		if r.v.ExamID == examID {
			delete(s.db.matchRequests, id)
			removed = append(removed, r.v)
		}
	}
	s.db.mu.Unlock()

	s.publishDeletes(removed)
	return int64(len(removed)), nil
}

func (s *MatchRequestStore) publishDeletes(list []models.MatchRequest) {
	for i := range list {
		s.db.publisher.Publish(realtime.EventFor(realtime.OpDelete, &list[i]))
	}
}

// AuditStore implements repositories.AuditStore.
type AuditStore struct {
	db *DB
}

func (s *AuditStore) Insert(_ context.Context, e *models.AuditEntry) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	entry := *e
	if entry.Details != nil {
		details := make(map[string]interface{}, len(entry.Details))
		for k, v := range entry.Details {
			details[k] = v
		}
		entry.Details = details
	}
	s.db.audit = append(s.db.audit, entry)
	return nil
}
