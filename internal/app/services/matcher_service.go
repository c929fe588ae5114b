package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/yigit/scribelink/internal/app/models"
	"github.com/yigit/scribelink/internal/app/repositories"
	"github.com/yigit/scribelink/internal/pkg/apperrors"
	"github.com/yigit/scribelink/internal/pkg/metrics"
)

// MatcherService finds writers who can cover an exam
type MatcherService interface {
	// FindCandidates returns the writers in postalCode other than
	// excludeUserID, experienced writers for examName first.
	FindCandidates(ctx context.Context, postalCode, examName string, excludeUserID uuid.UUID) ([]models.Candidate, error)
	// CandidatesForExam runs FindCandidates for an exam owned by the caller.
	CandidatesForExam(ctx context.Context, session models.Session, examID uuid.UUID) ([]models.Candidate, error)
}

type matcherServiceImpl struct {
	profiles      repositories.ProfileStore
	exams         repositories.ExamStore
	matchRequests repositories.MatchRequestStore
	logger        zerolog.Logger
}

// NewMatcherService creates a new matcher service instance
func NewMatcherService(repos *repositories.Repositories, logger zerolog.Logger) MatcherService {
	return &matcherServiceImpl{
		profiles:      repos.Profiles,
		exams:         repos.Exams,
		matchRequests: repos.MatchRequests,
		logger:        logger,
	}
}

func (s *matcherServiceImpl) FindCandidates(ctx context.Context, postalCode, examName string, excludeUserID uuid.UUID) ([]models.Candidate, error) {
	writers, err := s.profiles.ListWritersByPostalCode(ctx, postalCode, excludeUserID)
	if err != nil {
		return nil, fmt.Errorf("error listing writers: %w", err)
	}
	candidates := make([]models.Candidate, 0, len(writers))
	if len(writers) == 0 {
		return candidates, nil
	}

	experienced, err := s.matchRequests.CompletedWriterIDs(ctx, examName)
	if err != nil {
		// Ranking is best effort; the unranked list is still useful.
		metrics.RankingFallbacks.Inc()
		s.logger.Warn().Err(err).Str("postalCode", postalCode).Str("examName", examName).
			Msg("Experience lookup failed, returning writers unranked")
		for _, w := range writers {
			candidates = append(candidates, models.Candidate{Profile: w})
		}
		return candidates, nil
	}

	seen := make(map[uuid.UUID]bool, len(experienced))
	for _, id := range experienced {
		seen[id] = true
	}

	// Stable partition: experienced writers keep their relative order, then
	// the rest keep theirs.
	var rest []models.Candidate
	for _, w := range writers {
		c := models.Candidate{Profile: w, HasExperience: seen[w.ID]}
		if c.HasExperience {
			candidates = append(candidates, c)
		} else {
			rest = append(rest, c)
		}
	}
	return append(candidates, rest...), nil
}

func (s *matcherServiceImpl) CandidatesForExam(ctx context.Context, session models.Session, examID uuid.UUID) ([]models.Candidate, error) {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		return nil, err
	}
	if exam.StudentID != session.UserID {
		return nil, apperrors.NewForbiddenError("exam belongs to another student")
	}
	return s.FindCandidates(ctx, exam.PostalCode, exam.ExamName, session.UserID)
}
