package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
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

// AccountRepository handles credential database operations
type AccountRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewAccountRepository creates a new AccountRepository
func NewAccountRepository(db *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// CreateAccount inserts a profile and its credential in one transaction
func (r *AccountRepository) CreateAccount(ctx context.Context, p *models.Profile, c *models.Credential) error {
	profileSQL, profileArgs, err := insertProfileQuery(r.sb, p).ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	credSQL, credArgs, err := r.sb.Insert("credentials").
		Columns("user_id", "email", "password_hash").
		Values(c.UserID, strings.ToLower(c.Email), c.PasswordHash).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}

	err = db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, profileSQL, profileArgs...); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, credSQL, credArgs...)
		return err
	})
	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, dberrors.ConstraintCredentialMail) {
			return apperrors.ErrEmailAlreadyExists
		}
		logger.Error().Err(err).Str("email", c.Email).Msg("Error creating account")
		return fmt.Errorf("error creating account: %w", err)
	}
	return nil
}

// GetCredentialByEmail retrieves a credential by (case-insensitive) email
func (r *AccountRepository) GetCredentialByEmail(ctx context.Context, email string) (*models.Credential, error) {
	ctx, cancel := db.WithTimeout(ctx)
	defer cancel()

	sql, args, err := r.sb.Select("user_id", "email", "password_hash", "last_login_at").
		From("credentials").
		Where(squirrel.Eq{"email": strings.ToLower(email)}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	c := &models.Credential{}
	err = r.db.QueryRow(ctx, sql, args...).Scan(&c.UserID, &c.Email, &c.PasswordHash, &c.LastLoginAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error getting credential: %w", err)
	}
	return c, nil
}

// TouchLastLogin records a successful login
func (r *AccountRepository) TouchLastLogin(ctx context.Context, userID uuid.UUID) error {
	ctx, cancel := db.WithTimeout(ctx)
	defer cancel()

	sql, args, err := r.sb.Update("credentials").
		Set("last_login_at", time.Now().UTC()).
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("error updating last login: %w", err)
	}
	return nil
}
