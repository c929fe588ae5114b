package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/scribelink/internal/app/models"
	"github.com/yigit/scribelink/internal/db"
)

// AuditRepository appends to the activity log
type AuditRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewAuditRepository creates a new AuditRepository
func NewAuditRepository(db *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Insert appends one entry
func (r *AuditRepository) Insert(ctx context.Context, e *models.AuditEntry) error {
	ctx, cancel := db.WithTimeout(ctx)
	defer cancel()

	details := e.Details
	if details == nil {
		details = map[string]interface{}{}
	}
	sql, args, err := r.sb.Insert("activity_logs").
		Columns("id", "user_id", "session_id", "kind", "action", "details", "page_path", "ip_address", "user_agent", "created_at").
		Values(e.ID, e.UserID, e.SessionID, e.Kind, e.Action, details, e.PagePath, e.IPAddress, e.UserAgent, e.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("error inserting activity log: %w", err)
	}
	return nil
}
