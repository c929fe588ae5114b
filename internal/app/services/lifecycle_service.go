package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/yigit/scribelink/internal/app/audit"
	"github.com/yigit/scribelink/internal/app/models"
	"github.com/yigit/scribelink/internal/app/repositories"
	"github.com/yigit/scribelink/internal/pkg/apperrors"
	"github.com/yigit/scribelink/internal/pkg/metrics"
)

// LifecycleService creates match requests and moves them through their statuses
type LifecycleService interface {
	CreateRequest(ctx context.Context, session models.Session, writerID, examID uuid.UUID) (*models.MatchRequest, error)
	Transition(ctx context.Context, session models.Session, requestID uuid.UUID, to models.MatchStatus) (*models.MatchRequest, error)
	DeleteRequest(ctx context.Context, session models.Session, requestID uuid.UUID) error
	// DeleteRequests removes those of ids the caller participates in and
	// returns how many were removed.
	DeleteRequests(ctx context.Context, session models.Session, ids []uuid.UUID) (int64, error)
}

type lifecycleServiceImpl struct {
	profiles      repositories.ProfileStore
	exams         repositories.ExamStore
	matchRequests repositories.MatchRequestStore
	recorder      audit.Recorder
	logger        zerolog.Logger
}

// NewLifecycleService creates a new lifecycle service instance
func NewLifecycleService(repos *repositories.Repositories, recorder audit.Recorder, logger zerolog.Logger) LifecycleService {
	return &lifecycleServiceImpl{
		profiles:      repos.Profiles,
		exams:         repos.Exams,
		matchRequests: repos.MatchRequests,
		recorder:      recorder,
		logger:        logger,
	}
}

func (s *lifecycleServiceImpl) CreateRequest(ctx context.Context, session models.Session, writerID, examID uuid.UUID) (*models.MatchRequest, error) {
	if !session.Role.IsStudent() {
		return nil, apperrors.NewForbiddenError("only students can request a writer")
	}

	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		return nil, err
	}
	if exam.StudentID != session.UserID {
		return nil, apperrors.NewForbiddenError("exam belongs to another student")
	}

	writer, err := s.profiles.GetByID(ctx, writerID)
	if err != nil {
		return nil, err
	}
	if !writer.Role.IsWriter() {
		return nil, apperrors.ErrNotAWriter
	}

	pending, err := s.matchRequests.HasPending(ctx, session.UserID, writerID)
	if err != nil {
		return nil, fmt.Errorf("error checking pending requests: %w", err)
	}
	if pending {
		metrics.DuplicatePendingRejected.Inc()
		return nil, apperrors.ErrDuplicatePending
	}

	now := time.Now().UTC()
	m := &models.MatchRequest{
		ID:        uuid.New(),
		StudentID: session.UserID,
		WriterID:  writerID,
		ExamID:    examID,
		Status:    models.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.matchRequests.Create(ctx, m); err != nil {
		// The pending-pair index catches a create that raced the check above.
		if errors.Is(err, apperrors.ErrDuplicatePending) {
			metrics.DuplicatePendingRejected.Inc()
		}
		return nil, err
	}

	metrics.MatchRequestsCreated.Inc()
	s.recorder.Record(ctx, audit.Event(session, models.AuditDataChange, "notification_created", map[string]interface{}{
		"matchRequestId": m.ID.String(),
		"writerId":       writerID.String(),
		"examId":         examID.String(),
	}))
	s.logger.Info().Str("matchRequestID", m.ID.String()).Str("studentID", m.StudentID.String()).
		Str("writerID", writerID.String()).Msg("Match request created")
	return m, nil
}

func (s *lifecycleServiceImpl) Transition(ctx context.Context, session models.Session, requestID uuid.UUID, to models.MatchStatus) (*models.MatchRequest, error) {
	m, err := s.matchRequests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	switch {
	case session.Role.IsWriter() && m.WriterID == session.UserID:
	case session.Role.IsStudent() && m.StudentID == session.UserID:
	default:
		return nil, apperrors.NewForbiddenError("not a participant of this request")
	}

	if !models.CanTransition(session.Role, m.Status, to) {
		msg := fmt.Sprintf("cannot move request from %s to %s", m.Status, to)
		if m.Status.Terminal() {
			msg = fmt.Sprintf("request is already %s", m.Status)
		}
		return nil, apperrors.NewCustomError(apperrors.ErrInvalidTransition, msg).
			WithDetails(map[string]interface{}{
				"from":    m.Status,
				"to":      to,
				"allowed": models.AllowedTransitions(session.Role, m.Status),
			})
	}

	updated, err := s.matchRequests.UpdateStatus(ctx, requestID, m.Status, to)
	if err != nil {
		return nil, err
	}

	metrics.MatchTransitions.WithLabelValues(string(to)).Inc()
	s.recorder.Record(ctx, audit.Event(session, models.AuditDataChange, "notification_"+string(to), map[string]interface{}{
		"matchRequestId": requestID.String(),
		"from":           string(m.Status),
	}))
	s.logger.Info().Str("matchRequestID", requestID.String()).Str("from", string(m.Status)).
		Str("to", string(to)).Str("role", string(session.Role)).Msg("Match request status changed")
	return updated, nil
}

func (s *lifecycleServiceImpl) DeleteRequest(ctx context.Context, session models.Session, requestID uuid.UUID) error {
	m, err := s.matchRequests.GetByID(ctx, requestID)
	if err != nil {
		return err
	}
	if !m.IsParticipant(session.UserID) {
		return apperrors.NewForbiddenError("not a participant of this request")
	}
	if err := s.matchRequests.Delete(ctx, requestID); err != nil {
		return err
	}
	s.recorder.Record(ctx, audit.Event(session, models.AuditDataChange, "notification_deleted", map[string]interface{}{
		"matchRequestId": requestID.String(),
	}))
	return nil
}

func (s *lifecycleServiceImpl) DeleteRequests(ctx context.Context, session models.Session, ids []uuid.UUID) (int64, error) {
	n, err := s.matchRequests.DeleteForParticipant(ctx, ids, session.UserID)
	if err != nil {
		return 0, fmt.Errorf("error deleting match requests: %w", err)
	}
	if n > 0 {
		s.recorder.Record(ctx, audit.Event(session, models.AuditDataChange, "notification_deleted", map[string]interface{}{
			"requested": len(ids),
			"deleted":   n,
		}))
	}
	return n, nil
}
