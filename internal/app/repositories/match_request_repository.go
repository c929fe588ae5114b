package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/scribelink/internal/app/models"
	"github.com/yigit/scribelink/internal/db"
	"github.com/yigit/scribelink/internal/pkg/apperrors"
	"github.com/yigit/scribelink/internal/pkg/dberrors"
	"github.com/yigit/scribelink/internal/pkg/logger"
)

var matchRequestColumns = []string{"id", "student_id", "writer_id", "exam_id", "status", "created_at", "updated_at"}

// MatchRequestRepository handles match request database operations
type MatchRequestRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewMatchRequestRepository creates a new MatchRequestRepository
func NewMatchRequestRepository(db *pgxpool.Pool) *MatchRequestRepository {
	return &MatchRequestRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func scanMatchRequest(row pgx.Row, m *models.MatchRequest) error {
	return row.Scan(&m.ID, &m.StudentID, &m.WriterID, &m.ExamID, &m.Status, &m.CreatedAt, &m.UpdatedAt)
}

// Create inserts a match request
func (r *MatchRequestRepository) Create(ctx context.Context, m *models.MatchRequest) error {
	ctx, cancel := db.WithTimeout(ctx)
	defer cancel()

	sql, args, err := r.sb.Insert("match_requests").
		Columns(matchRequestColumns...).
		Values(m.ID, m.StudentID, m.WriterID, m.ExamID, m.Status, m.CreatedAt, m.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		if dberrors.IsDuplicateConstraintError(err, dberrors.ConstraintPendingPair) {
			return apperrors.ErrDuplicatePending
		}
		if dberrors.IsForeignKeyError(err) {
			return apperrors.NewResourceNotFoundError("referenced exam or profile does not exist")
		}
		logger.Error().Err(err).Str("studentID", m.StudentID.String()).Str("writerID", m.WriterID.String()).Msg("Error creating match request")
		return fmt.Errorf("error creating match request: %w", err)
	}
	return nil
}

// GetByID retrieves a match request by id
func (r *MatchRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.MatchRequest, error) {
	ctx, cancel := db.WithTimeout(ctx)
	defer cancel()

	sql, args, err := r.sb.Select(matchRequestColumns...).
		From("match_requests").
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	m := &models.MatchRequest{}
	if err := scanMatchRequest(r.db.QueryRow(ctx, sql, args...), m); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrMatchRequestNotFound
		}
		return nil, fmt.Errorf("error getting match request: %w", err)
	}
	return m, nil
}

// HasPending reports whether the pair has a pending request
func (r *MatchRequestRepository) HasPending(ctx context.Context, studentID, writerID uuid.UUID) (bool, error) {
	ctx, cancel := db.WithTimeout(ctx)
	defer cancel()

	sql, args, err := r.sb.Select("1").
		Prefix("SELECT EXISTS(").
		From("match_requests").
		Where(squirrel.Eq{"student_id": studentID, "writer_id": writerID, "status": models.StatusPending}).
		Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("error building SQL: %w", err)
	}

	var exists bool
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("error checking pending request: %w", err)
	}
	return exists, nil
}

// UpdateStatus performs a compare-and-set status change
func (r *MatchRequestRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.MatchStatus) (*models.MatchRequest, error) {
	ctx, cancel := db.WithTimeout(ctx)
	defer cancel()

	sql, args, err := r.sb.Update("match_requests").
		Set("status", to).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": id, "status": from}).
		Suffix("RETURNING id, student_id, writer_id, exam_id, status, created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	m := &models.MatchRequest{}
	err = scanMatchRequest(r.db.QueryRow(ctx, sql, args...), m)
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		logger.Error().Err(err).Str("matchRequestID", id.String()).Msg("Error updating match request status")
		return nil, fmt.Errorf("error updating match request status: %w", err)
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, apperrors.ErrStaleStatus
}

// ListForParticipant lists a participant's match requests, newest first
func (r *MatchRequestRepository) ListForParticipant(ctx context.Context, userID uuid.UUID, role models.Role) ([]models.MatchRequest, error) {
	ctx, cancel := db.WithTimeout(ctx)
	defer cancel()

	column := "writer_id"
	if role.IsStudent() {
		column = "student_id"
	}
	sql, args, err := r.sb.Select(matchRequestColumns...).
		From("match_requests").
		Where(squirrel.Eq{column: userID}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying match requests: %w", err)
	}
	defer rows.Close()

	list := []models.MatchRequest{}
	for rows.Next() {
		var m models.MatchRequest
		if err := scanMatchRequest(rows, &m); err != nil {
			return nil, fmt.Errorf("error scanning match request row: %w", err)
		}
		list = append(list, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating match request rows: %w", err)
	}
	return list, nil
}

// CompletedWriterIDs lists writers with a completed request for an exam name
func (r *MatchRequestRepository) CompletedWriterIDs(ctx context.Context, examName string) ([]uuid.UUID, error) {
	ctx, cancel := db.WithTimeout(ctx)
	defer cancel()

	sql, args, err := r.sb.Select("DISTINCT m.writer_id").
		From("match_requests m").
		Join("exam_requests e ON e.id = m.exam_id").
		Where(squirrel.Eq{"m.status": models.StatusCompleted, "e.exam_name": examName}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying experienced writers: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("error collecting experienced writers: %w", err)
	}
	return ids, nil
}

// Delete removes a match request by id
func (r *MatchRequestRepository) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := db.WithTimeout(ctx)
	defer cancel()

	sql, args, err := r.sb.Delete("match_requests").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error deleting match request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrMatchRequestNotFound
	}
	return nil
}

// DeleteForParticipant removes the given requests the user participates in
func (r *MatchRequestRepository) DeleteForParticipant(ctx context.Context, ids []uuid.UUID, userID uuid.UUID) (int64, error) {
	ctx, cancel := db.WithTimeout(ctx)
	defer cancel()

	if len(ids) == 0 {
		return 0, nil
	}
	sql, args, err := r.sb.Delete("match_requests").
		Where(squirrel.Eq{"id": ids}).
		Where(squirrel.Or{squirrel.Eq{"student_id": userID}, squirrel.Eq{"writer_id": userID}}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("error building SQL: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("error deleting match requests: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteByExam removes every match request referencing an exam
func (r *MatchRequestRepository) DeleteByExam(ctx context.Context, examID uuid.UUID) (int64, error) {
	ctx, cancel := db.WithTimeout(ctx)
	defer cancel()

	sql, args, err := r.sb.Delete("match_requests").Where(squirrel.Eq{"exam_id": examID}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("error building SQL: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("error deleting match requests for exam: %w", err)
	}
	return tag.RowsAffected(), nil
}
