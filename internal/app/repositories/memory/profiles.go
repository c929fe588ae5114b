package memory

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yigit/scribelink/internal/app/models"
	"github.com/yigit/scribelink/internal/pkg/apperrors"
)

// ProfileStore implements repositories.ProfileStore.
type ProfileStore struct {
	db *DB
}

// Insert stores a profile without a credential. Used by seeding and tests.
func (s *ProfileStore) Insert(_ context.Context, p *models.Profile) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.profiles[p.ID]; ok {
		return apperrors.NewConflictError("profile already exists")
	}
	s.db.profiles[p.ID] = row[models.Profile]{seq: s.db.nextSeq(), v: *p}
	return nil
}

func (s *ProfileStore) GetByID(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	r, ok := s.db.profiles[id]
	if !ok {
		return nil, apperrors.ErrProfileNotFound
	}
	p := r.v
	return &p, nil
}

func (s *ProfileStore) ListWritersByPostalCode(_ context.Context, postalCode string, excludeID uuid.UUID) ([]models.Profile, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	return sorted(s.db.profiles, func(p models.Profile) bool {
		return p.Role == models.RoleWriter && p.PostalCode == postalCode && p.ID != excludeID
	}, nil, false), nil
}

func (s *ProfileStore) Update(_ context.Context, p *models.Profile) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	r, ok := s.db.profiles[p.ID]
	if !ok {
		return apperrors.ErrProfileNotFound
	}
	p.UpdatedAt = time.Now().UTC()
	cur := r.v
	cur.Name, cur.Age, cur.Gender, cur.Mobile = p.Name, p.Age, p.Gender, p.Mobile
	cur.District, cur.State, cur.PostalCode = p.District, p.State, p.PostalCode
	cur.UpdatedAt = p.UpdatedAt
	s.db.profiles[p.ID] = row[models.Profile]{seq: r.seq, v: cur}
	*p = cur
	return nil
}

func (s *ProfileStore) Count(context.Context) (int, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	return len(s.db.profiles), nil
}

// AccountStore implements repositories.AccountStore.
type AccountStore struct {
	db *DB
}

func (s *AccountStore) CreateAccount(_ context.Context, p *models.Profile, c *models.Credential) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	email := strings.ToLower(c.Email)
	if _, ok := s.db.credentials[email]; ok {
		return apperrors.ErrEmailAlreadyExists
	}
	if _, ok := s.db.profiles[p.ID]; ok {
		return apperrors.NewConflictError("profile already exists")
	}
	cred := *c
	cred.Email = email
	s.db.profiles[p.ID] = row[models.Profile]{seq: s.db.nextSeq(), v: *p}
	s.db.credentials[email] = cred
	return nil
}

func (s *AccountStore) GetCredentialByEmail(_ context.Context, email string) (*models.Credential, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	c, ok := s.db.credentials[strings.ToLower(email)]
	if !ok {
		return nil, apperrors.ErrInvalidCredentials
	}
	return &c, nil
}

func (s *AccountStore) TouchLastLogin(_ context.Context, userID uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	now := time.Now().UTC()
	for email, c := range s.db.credentials {
		if c.UserID == userID {
			c.LastLoginAt = &now
			s.db.credentials[email] = c
			return nil
		}
	}
	return apperrors.ErrProfileNotFound
}
