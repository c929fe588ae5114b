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
	"github.com/yigit/scribelink/internal/pkg/logger"
)

var profileColumns = []string{
	"id", "role", "name", "age", "gender", "mobile", "email",
	"district", "state", "postal_code", "verified", "created_at", "updated_at",
}

// ProfileRepository handles profile database operations
type ProfileRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewProfileRepository creates a new ProfileRepository
func NewProfileRepository(db *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func scanProfile(row pgx.Row, p *models.Profile) error {
	return row.Scan(&p.ID, &p.Role, &p.Name, &p.Age, &p.Gender, &p.Mobile, &p.Email,
		&p.District, &p.State, &p.PostalCode, &p.Verified, &p.CreatedAt, &p.UpdatedAt)
}

func insertProfileQuery(sb squirrel.StatementBuilderType, p *models.Profile) squirrel.InsertBuilder {
	return sb.Insert("profiles").
		Columns(profileColumns...).
		Values(p.ID, p.Role, p.Name, p.Age, p.Gender, p.Mobile, p.Email,
			p.District, p.State, p.PostalCode, p.Verified, p.CreatedAt, p.UpdatedAt)
}

// GetByID retrieves a profile by id
func (r *ProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	ctx, cancel := db.WithTimeout(ctx)
	defer cancel()

	sql, args, err := r.sb.Select(profileColumns...).
		From("profiles").
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	p := &models.Profile{}
	if err := scanProfile(r.db.QueryRow(ctx, sql, args...), p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrProfileNotFound
		}
		logger.Error().Err(err).Str("profileID", id.String()).Msg("Error scanning profile row")
		return nil, fmt.Errorf("error getting profile: %w", err)
	}
	return p, nil
}

// ListWritersByPostalCode lists writers in a postal area, excluding one id
func (r *ProfileRepository) ListWritersByPostalCode(ctx context.Context, postalCode string, excludeID uuid.UUID) ([]models.Profile, error) {
	ctx, cancel := db.WithTimeout(ctx)
	defer cancel()

	sql, args, err := r.sb.Select(profileColumns...).
		From("profiles").
		Where(squirrel.Eq{"role": models.RoleWriter, "postal_code": postalCode}).
		Where(squirrel.NotEq{"id": excludeID}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Str("postalCode", postalCode).Msg("Error querying writers")
		return nil, fmt.Errorf("error querying writers: %w", err)
	}
	defer rows.Close()

	writers := []models.Profile{}
	for rows.Next() {
		var p models.Profile
		if err := scanProfile(rows, &p); err != nil {
			return nil, fmt.Errorf("error scanning writer row: %w", err)
		}
		writers = append(writers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating writer rows: %w", err)
	}
	return writers, nil
}

// Update saves the mutable profile fields
func (r *ProfileRepository) Update(ctx context.Context, p *models.Profile) error {
	ctx, cancel := db.WithTimeout(ctx)
	defer cancel()

	p.UpdatedAt = time.Now().UTC()
	sql, args, err := r.sb.Update("profiles").
		SetMap(map[string]interface{}{
			"name":        p.Name,
			"age":         p.Age,
			"gender":      p.Gender,
			"mobile":      p.Mobile,
			"district":    p.District,
			"state":       p.State,
			"postal_code": p.PostalCode,
			"updated_at":  p.UpdatedAt,
		}).
		Where(squirrel.Eq{"id": p.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Str("profileID", p.ID.String()).Msg("Error updating profile")
		return fmt.Errorf("error updating profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrProfileNotFound
	}
	return nil
}

// Count returns the number of stored profiles
func (r *ProfileRepository) Count(ctx context.Context) (int, error) {
	ctx, cancel := db.WithTimeout(ctx)
	defer cancel()

	sql, args, err := r.sb.Select("COUNT(*)").From("profiles").ToSql()
	if err != nil {
		return 0, fmt.Errorf("error building SQL: %w", err)
	}
	var n int
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("error counting profiles: %w", err)
	}
	return n, nil
}
