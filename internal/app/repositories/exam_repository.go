package repositories

import (
	"context"
	"errors"
	"fmt"

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

var examColumns = []string{
	"id", "student_id", "exam_date", "exam_name", "qualification_required",
	"center", "postal_code", "status", "created_at",
}

// ExamRepository handles exam request database operations
type ExamRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewExamRepository creates a new ExamRepository
func NewExamRepository(db *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func scanExam(row pgx.Row, e *models.ExamRequest) error {
	return row.Scan(&e.ID, &e.StudentID, &e.Date, &e.ExamName, &e.QualificationRequired,
		&e.Center, &e.PostalCode, &e.Status, &e.CreatedAt)
}

// Create inserts an exam request
func (r *ExamRepository) Create(ctx context.Context, e *models.ExamRequest) error {
	ctx, cancel := db.WithTimeout(ctx)
	defer cancel()

	sql, args, err := r.sb.Insert("exam_requests").
		Columns(examColumns...).
		Values(e.ID, e.StudentID, e.Date, e.ExamName, e.QualificationRequired,
			e.Center, e.PostalCode, e.Status, e.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		if dberrors.IsForeignKeyError(err) {
			return apperrors.ErrProfileNotFound
		}
		logger.Error().Err(err).Str("studentID", e.StudentID.String()).Msg("Error creating exam request")
		return fmt.Errorf("error creating exam request: %w", err)
	}
	return nil
}

// GetByID retrieves an exam request by id
func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ExamRequest, error) {
	ctx, cancel := db.WithTimeout(ctx)
	defer cancel()

	sql, args, err := r.sb.Select(examColumns...).
		From("exam_requests").
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	e := &models.ExamRequest{}
	if err := scanExam(r.db.QueryRow(ctx, sql, args...), e); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrExamNotFound
		}
		return nil, fmt.Errorf("error getting exam request: %w", err)
	}
	return e, nil
}

// ListByStudent lists a student's exam requests, newest first
func (r *ExamRepository) ListByStudent(ctx context.Context, studentID uuid.UUID, order ExamOrder) ([]models.ExamRequest, error) {
	ctx, cancel := db.WithTimeout(ctx)
	defer cancel()

	q := r.sb.Select(examColumns...).
		From("exam_requests").
		Where(squirrel.Eq{"student_id": studentID})
	if order == ExamOrderByDate {
		q = q.OrderBy("exam_date DESC", "created_at DESC")
	} else {
		q = q.OrderBy("created_at DESC")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying exam requests: %w", err)
	}
	defer rows.Close()

	exams := []models.ExamRequest{}
	for rows.Next() {
		var e models.ExamRequest
		if err := scanExam(rows, &e); err != nil {
			return nil, fmt.Errorf("error scanning exam request row: %w", err)
		}
		exams = append(exams, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating exam request rows: %w", err)
	}
	return exams, nil
}

// Delete removes an exam request. Dependent match requests must be removed first.
func (r *ExamRepository) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := db.WithTimeout(ctx)
	defer cancel()

	sql, args, err := r.sb.Delete("exam_requests").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		if dberrors.IsForeignKeyError(err) {
			return apperrors.NewConflictError("exam still has match requests")
		}
		logger.Error().Err(err).Str("examID", id.String()).Msg("Error deleting exam request")
		return fmt.Errorf("error deleting exam request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrExamNotFound
	}
	return nil
}
