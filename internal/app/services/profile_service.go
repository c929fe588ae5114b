package services

import (
	"context"
	"strings"

	"github.com/yigit/scribelink/internal/app/audit"
	"github.com/yigit/scribelink/internal/app/models"
	"github.com/yigit/scribelink/internal/app/models/dto"
	"github.com/yigit/scribelink/internal/app/repositories"
)

// ProfileService reads and updates the caller's own profile
type ProfileService interface {
	GetProfile(ctx context.Context, session models.Session) (*models.Profile, error)
	UpdateProfile(ctx context.Context, session models.Session, req *dto.UpdateProfileRequest) (*models.Profile, error)
}

type profileServiceImpl struct {
	profiles repositories.ProfileStore
	recorder audit.Recorder
}

// NewProfileService creates a new profile service instance
func NewProfileService(repos *repositories.Repositories, recorder audit.Recorder) ProfileService {
	return &profileServiceImpl{profiles: repos.Profiles, recorder: recorder}
}

func (s *profileServiceImpl) GetProfile(ctx context.Context, session models.Session) (*models.Profile, error) {
	return s.profiles.GetByID(ctx, session.UserID)
}

func (s *profileServiceImpl) UpdateProfile(ctx context.Context, session models.Session, req *dto.UpdateProfileRequest) (*models.Profile, error) {
	profile, err := s.profiles.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	profile.Name = strings.TrimSpace(req.Name)
	profile.Age = req.Age
	profile.Gender = req.Gender
	profile.Mobile = req.Mobile
	profile.District = strings.TrimSpace(req.District)
	profile.State = strings.TrimSpace(req.State)
	profile.PostalCode = req.PostalCode
	if err := s.profiles.Update(ctx, profile); err != nil {
		return nil, err
	}
	s.recorder.Record(ctx, audit.Event(session, models.AuditDataChange, "profile_updated", nil))
	return profile, nil
}
