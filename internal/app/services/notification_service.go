package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/yigit/scribelink/internal/app/models"
	"github.com/yigit/scribelink/internal/app/repositories"
	"github.com/yigit/scribelink/internal/pkg/export"
	"github.com/yigit/scribelink/internal/pkg/metrics"
)

// NotificationService builds the caller's view of their match requests
type NotificationService interface {
	// ListForSession returns the caller's requests newest first, each joined
	// with the counterpart's contact and the exam. A failed lookup leaves
	// the field nil and keeps the row.
	ListForSession(ctx context.Context, session models.Session) ([]models.EnrichedMatchRequest, error)
	// Export renders ListForSession as a spreadsheet.
	Export(ctx context.Context, session models.Session) (*export.Workbook, error)
}

type notificationServiceImpl struct {
	profiles      repositories.ProfileStore
	exams         repositories.ExamStore
	matchRequests repositories.MatchRequestStore
	logger        zerolog.Logger
}

// NewNotificationService creates a new notification service instance
func NewNotificationService(repos *repositories.Repositories, logger zerolog.Logger) NotificationService {
	return &notificationServiceImpl{
		profiles:      repos.Profiles,
		exams:         repos.Exams,
		matchRequests: repos.MatchRequests,
		logger:        logger,
	}
}

func (s *notificationServiceImpl) ListForSession(ctx context.Context, session models.Session) ([]models.EnrichedMatchRequest, error) {
	rows, err := s.matchRequests.ListForParticipant(ctx, session.UserID, session.Role)
	if err != nil {
		return nil, fmt.Errorf("error listing match requests: %w", err)
	}

	contacts := map[uuid.UUID]*models.Contact{}
	exams := map[uuid.UUID]*models.ExamRequest{}
	out := make([]models.EnrichedMatchRequest, 0, len(rows))
	for _, m := range rows {
		counterpartID := m.CounterpartOf(session.UserID)
		contact, ok := contacts[counterpartID]
		if !ok {
			contact = s.lookupContact(ctx, counterpartID)
			contacts[counterpartID] = contact
		}
		exam, ok := exams[m.ExamID]
		if !ok {
			exam = s.lookupExam(ctx, m.ExamID)
			exams[m.ExamID] = exam
		}
		out = append(out, models.EnrichedMatchRequest{
			MatchRequest: m,
			Counterpart:  contact,
			Exam:         exam,
			AllowedNext:  models.AllowedTransitions(session.Role, m.Status),
		})
	}
	return out, nil
}

func (s *notificationServiceImpl) lookupContact(ctx context.Context, id uuid.UUID) *models.Contact {
	p, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		metrics.EnrichmentMisses.WithLabelValues("counterpart").Inc()
		s.logger.Warn().Err(err).Str("profileID", id.String()).Msg("Counterpart lookup failed")
		return nil
	}
	return p.Contact()
}

func (s *notificationServiceImpl) lookupExam(ctx context.Context, id uuid.UUID) *models.ExamRequest {
	e, err := s.exams.GetByID(ctx, id)
	if err != nil {
		metrics.EnrichmentMisses.WithLabelValues("exam").Inc()
		s.logger.Warn().Err(err).Str("examID", id.String()).Msg("Exam lookup failed")
		return nil
	}
	return e
}

var exportHeader = []string{"Request ID", "Status", "Requested At", "Counterpart", "Mobile", "Email", "Exam", "Exam Date", "Center", "Postal Code"}

func (s *notificationServiceImpl) Export(ctx context.Context, session models.Session) (*export.Workbook, error) {
	list, err := s.ListForSession(ctx, session)
	if err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(list))
	for _, r := range list {
		row := []string{r.ID.String(), string(r.Status), r.CreatedAt.Format("2006-01-02 15:04"), "", "", "", "", "", "", ""}
		if r.Counterpart != nil {
			row[3], row[4], row[5] = r.Counterpart.Name, r.Counterpart.Mobile, r.Counterpart.Email
		}
		if r.Exam != nil {
			row[6], row[7], row[8], row[9] = r.Exam.ExamName, r.Exam.Date.Format(ExamDateLayout), r.Exam.Center, r.Exam.PostalCode
		}
		rows = append(rows, row)
	}

	return export.NewWorkbook([]export.SheetSpec{{
		Title:  "Requests",
		Header: exportHeader,
		Rows:   rows,
	}})
}
