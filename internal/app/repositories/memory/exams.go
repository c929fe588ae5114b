package memory

import (
	"context"

	"github.com/google/uuid"
	"github.com/yigit/scribelink/internal/app/models"
	"github.com/yigit/scribelink/internal/app/repositories"
	"github.com/yigit/scribelink/internal/pkg/apperrors"
)

// ExamStore implements repositories.ExamStore.
type ExamStore struct {
	db *DB
}

func (s *ExamStore) Create(_ context.Context, e *models.ExamRequest) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.profiles[e.StudentID]; !ok {
		return apperrors.ErrProfileNotFound
	}
	s.db.exams[e.ID] = row[models.ExamRequest]{seq: s.db.nextSeq(), v: *e}
	return nil
}

func (s *ExamStore) GetByID(_ context.Context, id uuid.UUID) (*models.ExamRequest, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	r, ok := s.db.exams[id]
	if !ok {
		return nil, apperrors.ErrExamNotFound
	}
	e := r.v
	return &e, nil
}

func (s *ExamStore) ListByStudent(_ context.Context, studentID uuid.UUID, order repositories.ExamOrder) ([]models.ExamRequest, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	byCreated := func(a, b models.ExamRequest) bool { return a.CreatedAt.After(b.CreatedAt) }
	less := byCreated
	if order == repositories.ExamOrderByDate {
		less = func(a, b models.ExamRequest) bool {
			if !a.Date.Equal(b.Date) {
				return a.Date.After(b.Date)
			}
			return byCreated(a, b)
		}
	}
	return sorted(s.db.exams, func(e models.ExamRequest) bool { return e.StudentID == studentID }, less, true), nil
}

func (s *ExamStore) Delete(_ context.Context, id uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.exams[id]; !ok {
		return apperrors.ErrExamNotFound
	}
	for _, m := range s.db.matchRequests {
		if m.v.ExamID == id {
			return apperrors.NewConflictError("exam still has match requests")
		}
	}
	delete(s.db.exams, id)
	return nil
}
