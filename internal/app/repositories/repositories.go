package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/scribelink/internal/app/models"
)

// ProfileStore persists user profiles.
type ProfileStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	// ListWritersByPostalCode returns writer profiles in postalCode other than
	// excludeID, in store order.
	ListWritersByPostalCode(ctx context.Context, postalCode string, excludeID uuid.UUID) ([]models.Profile, error)
	Update(ctx context.Context, p *models.Profile) error
	Count(ctx context.Context) (int, error)
}

// AccountStore persists login credentials together with their profile.
type AccountStore interface {
	// CreateAccount inserts the profile and its credential atomically.
	CreateAccount(ctx context.Context, p *models.Profile, c *models.Credential) error
	GetCredentialByEmail(ctx context.Context, email string) (*models.Credential, error)
	TouchLastLogin(ctx context.Context, userID uuid.UUID) error
}

// ExamOrder selects the sort used by ExamStore.ListByStudent.
type ExamOrder int

const (
	ExamOrderByDate ExamOrder = iota
	ExamOrderByCreated
)

// ExamStore persists exam requests.
type ExamStore interface {
	Create(ctx context.Context, e *models.ExamRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ExamRequest, error)
	// ListByStudent returns the student's exams, newest first by order.
	ListByStudent(ctx context.Context, studentID uuid.UUID, order ExamOrder) ([]models.ExamRequest, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// MatchRequestStore persists match requests.
type MatchRequestStore interface {
	// Create inserts a pending request. It returns apperrors.ErrDuplicatePending
	// when the pair already has a pending request.
	Create(ctx context.Context, m *models.MatchRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.MatchRequest, error)
	HasPending(ctx context.Context, studentID, writerID uuid.UUID) (bool, error)
	// UpdateStatus moves the request from one status to another only if it is
	// still in from. It returns apperrors.ErrStaleStatus otherwise.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.MatchStatus) (*models.MatchRequest, error)
	// ListForParticipant returns requests where userID is the student (for
	// student roles) or the writer, newest first.
	ListForParticipant(ctx context.Context, userID uuid.UUID, role models.Role) ([]models.MatchRequest, error)
	// CompletedWriterIDs returns the distinct writers with a completed request
	// on an exam named examName.
	CompletedWriterIDs(ctx context.Context, examName string) ([]uuid.UUID, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// DeleteForParticipant deletes those of ids in which userID participates
	// and returns how many rows were removed.
	DeleteForParticipant(ctx context.Context, ids []uuid.UUID, userID uuid.UUID) (int64, error)
	DeleteByExam(ctx context.Context, examID uuid.UUID) (int64, error)
}

// AuditStore appends activity log entries.
type AuditStore interface {
	Insert(ctx context.Context, e *models.AuditEntry) error
}

// Repositories groups the stores used by the services.
type Repositories struct {
	Profiles      ProfileStore
	Accounts      AccountStore
	Exams         ExamStore
	MatchRequests MatchRequestStore
	Audit         AuditStore
}

// NewRepositories builds the PostgreSQL implementations.
func NewRepositories(pool *pgxpool.Pool) *Repositories {
	profiles := NewProfileRepository(pool)
	return &Repositories{
		Profiles:      profiles,
		Accounts:      NewAccountRepository(pool),
		Exams:         NewExamRepository(pool),
		MatchRequests: NewMatchRequestRepository(pool),
		Audit:         NewAuditRepository(pool),
	}
}
