package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/yigit/scribelink/internal/app/audit"
	"github.com/yigit/scribelink/internal/app/models"
	"github.com/yigit/scribelink/internal/app/models/dto"
	"github.com/yigit/scribelink/internal/app/repositories"
	"github.com/yigit/scribelink/internal/pkg/apperrors"
	"github.com/yigit/scribelink/internal/pkg/auth"
	"github.com/yigit/scribelink/internal/pkg/validation"
)

// SessionTerminator drops whatever realtime state a user holds for a session.
type SessionTerminator interface {
	Disconnect(userID uuid.UUID, sessionID string)
}

// AuthService handles registration, login and session lookups
type AuthService struct {
	accounts   repositories.AccountStore
	profiles   repositories.ProfileStore
	jwtService *auth.JWTService
	recorder   audit.Recorder
	sessions   SessionTerminator
	logger     zerolog.Logger
}

// NewAuthService creates a new AuthService. sessions may be nil.
func NewAuthService(
	repos *repositories.Repositories,
	jwtService *auth.JWTService,
	recorder audit.Recorder,
	sessions SessionTerminator,
	logger zerolog.Logger,
) *AuthService {
	return &AuthService{
		accounts:   repos.Accounts,
		profiles:   repos.Profiles,
		jwtService: jwtService,
		recorder:   recorder,
		sessions:   sessions,
		logger:     logger,
	}
}

// validateRegistration repeats the form rules for callers that bypass binding
func (s *AuthService) validateRegistration(req *dto.RegisterRequest) error {
	fields := map[string]string{}
	if len(strings.TrimSpace(req.Name)) < validation.NameMinLength {
		fields["name"] = fmt.Sprintf("must be at least %d characters", validation.NameMinLength)
	}
	if !validation.IsEmail(req.Email) {
		fields["email"] = "must be a valid email address"
	}
	if len(req.Password) < validation.PasswordMinLength {
		fields["password"] = fmt.Sprintf("must be at least %d characters", validation.PasswordMinLength)
	}
	if !validation.IsMobile(req.Mobile) {
		fields["mobile"] = "must be a 10 digit mobile number"
	}
	if len(strings.TrimSpace(req.District)) < validation.RegionMinLength {
		fields["district"] = fmt.Sprintf("must be at least %d characters", validation.RegionMinLength)
	}
	if len(strings.TrimSpace(req.State)) < validation.RegionMinLength {
		fields["state"] = fmt.Sprintf("must be at least %d characters", validation.RegionMinLength)
	}
	if !validation.IsPostalCode(req.PostalCode) {
		fields["postalCode"] = "must be a 6 digit postal code"
	}
	if !req.Role.Valid() {
		fields["role"] = "must be one of: student writer disabled"
	}
	if len(fields) > 0 {
		return apperrors.NewValidationError(fields)
	}
	return nil
}

// Register creates a profile and its credential, then logs the user in
func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest, sessionID string) (*dto.AuthResponse, error) {
	if err := s.validateRegistration(req); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	now := time.Now().UTC()
	email := strings.ToLower(strings.TrimSpace(req.Email))
	profile := &models.Profile{
		ID:         uuid.New(),
		Role:       req.Role,
		Name:       strings.TrimSpace(req.Name),
		Age:        req.Age,
		Gender:     req.Gender,
		Mobile:     req.Mobile,
		Email:      email,
		District:   strings.TrimSpace(req.District),
		State:      strings.TrimSpace(req.State),
		PostalCode: req.PostalCode,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	cred := &models.Credential{UserID: profile.ID, Email: email, PasswordHash: hash}
	if err := s.accounts.CreateAccount(ctx, profile, cred); err != nil {
		return nil, err
	}

	session := models.Session{UserID: profile.ID, Email: email, Role: profile.Role, SessionID: sessionID}
	s.recorder.Record(ctx, audit.Event(session, models.AuditAuthEvent, "register", map[string]interface{}{"role": string(profile.Role)}))
	s.logger.Info().Str("userID", profile.ID.String()).Str("role", string(profile.Role)).Msg("Account registered")
	return s.issue(profile)
}

// Login checks the password and issues an access token
func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest, sessionID string) (*dto.AuthResponse, error) {
	cred, err := s.accounts.GetCredentialByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		return nil, apperrors.ErrInvalidCredentials
	}
	if !auth.CheckPassword(cred.PasswordHash, req.Password) {
		s.recorder.Record(ctx, audit.Event(models.Session{SessionID: sessionID}, models.AuditAuthEvent, "login_failed", nil))
		return nil, apperrors.ErrInvalidCredentials
	}

	profile, err := s.profiles.GetByID(ctx, cred.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.accounts.TouchLastLogin(ctx, profile.ID); err != nil {
		s.logger.Warn().Err(err).Str("userID", profile.ID.String()).Msg("Failed to update last login")
	}

	session := models.Session{UserID: profile.ID, Email: profile.Email, Role: profile.Role, SessionID: sessionID}
	s.recorder.Record(ctx, audit.Event(session, models.AuditAuthEvent, "login", nil))
	return s.issue(profile)
}

// Session returns the caller's profile
func (s *AuthService) Session(ctx context.Context, session models.Session) (*dto.SessionResponse, error) {
	profile, err := s.profiles.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	return &dto.SessionResponse{Profile: profile, SessionID: session.SessionID}, nil
}

// Logout tears down the caller's realtime connection. Access tokens are
// stateless and simply expire.
func (s *AuthService) Logout(ctx context.Context, session models.Session) {
	if s.sessions != nil && session.SessionID != "" {
		s.sessions.Disconnect(session.UserID, session.SessionID)
	}
	s.recorder.Record(ctx, audit.Event(session, models.AuditAuthEvent, "logout", nil))
}

func (s *AuthService) issue(profile *models.Profile) (*dto.AuthResponse, error) {
	token, expiresIn, err := s.jwtService.GenerateAccessToken(profile.ID, profile.Email, string(profile.Role))
	if err != nil {
		return nil, fmt.Errorf("error generating access token: %w", err)
	}
	return &dto.AuthResponse{
		Token: dto.TokenResponse{
			AccessToken: token,
			TokenType:   "Bearer",
			ExpiresIn:   int64(expiresIn),
		},
		Profile: profile,
	}, nil
}
