package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/yigit/scribelink/internal/app/audit"
	"github.com/yigit/scribelink/internal/app/models"
	"github.com/yigit/scribelink/internal/app/models/dto"
	"github.com/yigit/scribelink/internal/app/repositories"
	"github.com/yigit/scribelink/internal/pkg/apperrors"
)

// ExamDateLayout is the wire format of ExamRequest.Date
const ExamDateLayout = "2006-01-02"

// ExamService manages a student's exam requests
type ExamService interface {
	// CreateExam stores the exam and returns it with the matched writers.
	CreateExam(ctx context.Context, session models.Session, req *dto.CreateExamRequest) (*dto.ExamCreatedResponse, error)
	ListExams(ctx context.Context, session models.Session) ([]models.ExamRequest, error)
	// DeleteExam removes the exam's match requests, then the exam. A failure
	// between the two steps leaves the exam without its requests.
	DeleteExam(ctx context.Context, session models.Session, examID uuid.UUID) error
}

type examServiceImpl struct {
	exams         repositories.ExamStore
	matchRequests repositories.MatchRequestStore
	matcher       MatcherService
	recorder      audit.Recorder
	logger        zerolog.Logger
}

// NewExamService creates a new exam service instance
func NewExamService(repos *repositories.Repositories, matcher MatcherService, recorder audit.Recorder, logger zerolog.Logger) ExamService {
	return &examServiceImpl{
		exams:         repos.Exams,
		matchRequests: repos.MatchRequests,
		matcher:       matcher,
		recorder:      recorder,
		logger:        logger,
	}
}

func (s *examServiceImpl) CreateExam(ctx context.Context, session models.Session, req *dto.CreateExamRequest) (*dto.ExamCreatedResponse, error) {
	if !session.Role.IsStudent() {
		return nil, apperrors.NewForbiddenError("only students can post exams")
	}
	date, err := time.Parse(ExamDateLayout, req.Date)
	if err != nil {
		return nil, apperrors.NewValidationError(map[string]string{"date": "must be a date in YYYY-MM-DD format"})
	}

	exam := &models.ExamRequest{
		ID:                    uuid.New(),
		StudentID:             session.UserID,
		Date:                  date,
		ExamName:              strings.TrimSpace(req.ExamName),
		QualificationRequired: strings.TrimSpace(req.QualificationRequired),
		Center:                strings.TrimSpace(req.Center),
		PostalCode:            req.PostalCode,
		Status:                models.ExamStatusOpen,
		CreatedAt:             time.Now().UTC(),
	}
	if err := s.exams.Create(ctx, exam); err != nil {
		return nil, fmt.Errorf("error creating exam: %w", err)
	}
	s.recorder.Record(ctx, audit.Event(session, models.AuditDataChange, "exam_created", map[string]interface{}{
		"examId":   exam.ID.String(),
		"examName": exam.ExamName,
	}))

	candidates, err := s.matcher.FindCandidates(ctx, exam.PostalCode, exam.ExamName, session.UserID)
	if err != nil {
		// The exam is stored; candidates can be fetched again from its own endpoint.
		s.logger.Warn().Err(err).Str("examID", exam.ID.String()).Msg("Candidate lookup failed after exam creation")
		candidates = []models.Candidate{}
	}
	return &dto.ExamCreatedResponse{Exam: exam, Candidates: candidates}, nil
}

func (s *examServiceImpl) ListExams(ctx context.Context, session models.Session) ([]models.ExamRequest, error) {
	exams, err := s.exams.ListByStudent(ctx, session.UserID, repositories.ExamOrderByDate)
	if err == nil {
		return exams, nil
	}
	s.logger.Warn().Err(err).Str("studentID", session.UserID.String()).Msg("Date ordered exam list failed, retrying by creation time")
	exams, err = s.exams.ListByStudent(ctx, session.UserID, repositories.ExamOrderByCreated)
	if err != nil {
		return nil, fmt.Errorf("error listing exams: %w", err)
	}
	return exams, nil
}

func (s *examServiceImpl) DeleteExam(ctx context.Context, session models.Session, examID uuid.UUID) error {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		return err
	}
	if exam.StudentID != session.UserID {
		return apperrors.NewForbiddenError("exam belongs to another student")
	}

	removed, err := s.matchRequests.DeleteByExam(ctx, examID)
	if err != nil {
		return fmt.Errorf("error deleting match requests for exam: %w", err)
	}
	if err := s.exams.Delete(ctx, examID); err != nil {
		s.logger.Error().Err(err).Str("examID", examID.String()).Int64("removedRequests", removed).
			Msg("Exam delete failed after its match requests were removed")
		return err
	}

	s.recorder.Record(ctx, audit.Event(session, models.AuditDataChange, "exam_deleted", map[string]interface{}{
		"examId":          examID.String(),
		"removedRequests": removed,
	}))
	return nil
}
