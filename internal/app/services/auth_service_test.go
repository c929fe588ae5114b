package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/scribelink/internal/app/models"
	"github.com/yigit/scribelink/internal/app/models/dto"
	"github.com/yigit/scribelink/internal/pkg/apperrors"
	"github.com/yigit/scribelink/internal/pkg/auth"
	"golang.org/x/crypto/bcrypt"
)

type recordingTerminator struct{ ids []string }

func (r *recordingTerminator) Disconnect(userID uuid.UUID, sessionID string) {
	r.ids = append(r.ids, userID.String()+"/"+sessionID)
}

func newAuthService(t *testing.T, f *fixture, term SessionTerminator) *AuthService {
	t.Helper()
	old := auth.BcryptCost
	auth.BcryptCost = bcrypt.MinCost
	t.Cleanup(func() { auth.BcryptCost = old })
	jwtService := auth.NewJWTService(auth.JWTConfig{SecretKey: "test-secret", AccessTokenExp: time.Hour, TokenIssuer: "scribelink-test"})
	return NewAuthService(f.repos, jwtService, f.recorder, term, zerolog.Nop())
}

func validRegistration() *dto.RegisterRequest {
	return &dto.RegisterRequest{
		Name:       "Asha Rao",
		Age:        27,
		Gender:     "female",
		Mobile:     "9876543210",
		Email:      "Asha@Example.com",
		Password:   "secret1",
		District:   "Bengaluru Urban",
		State:      "Karnataka",
		PostalCode: "560001",
		Role:       models.RoleWriter,
	}
}

func TestRegisterThenLogin(t *testing.T) {
	f := newFixture(t)
	svc := newAuthService(t, f, nil)
	ctx := context.Background()

	reg, err := svc.Register(ctx, validRegistration(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", reg.Profile.Email)
	assert.Equal(t, "Bearer", reg.Token.TokenType)
	assert.NotEmpty(t, reg.Token.AccessToken)

	login, err := svc.Login(ctx, &dto.LoginRequest{Email: "ASHA@example.com", Password: "secret1"}, "sess-2")
	require.NoError(t, err)
	assert.Equal(t, reg.Profile.ID, login.Profile.ID)

	sess, err := svc.Session(ctx, models.Session{UserID: reg.Profile.ID, SessionID: "sess-2"})
	require.NoError(t, err)
	assert.Equal(t, "Asha Rao", sess.Profile.Name)
	assert.Equal(t, []string{"register", "login"}, f.recorder.actions())
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newFixture(t)
	svc := newAuthService(t, f, nil)
	_, err := svc.Register(context.Background(), validRegistration(), "s")
	require.NoError(t, err)
	_, err = svc.Register(context.Background(), validRegistration(), "s")
	assert.ErrorIs(t, err, apperrors.ErrEmailAlreadyExists)
}

func TestRegister_ValidatesFields(t *testing.T) {
	f := newFixture(t)
	svc := newAuthService(t, f, nil)
	req := validRegistration()
	req.Mobile = "12345"
	req.PostalCode = "56001"
	req.Password = "abc"
	req.Role = "admin"

	_, err := svc.Register(context.Background(), req, "s")
	require.ErrorIs(t, err, apperrors.ErrValidationFailed)
	var custom *apperrors.CustomError
	require.ErrorAs(t, err, &custom)
	for _, field := range []string{"mobile", "postalCode", "password", "role"} {
		assert.Contains(t, custom.Details, field)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	f := newFixture(t)
	svc := newAuthService(t, f, nil)
	_, err := svc.Register(context.Background(), validRegistration(), "s")
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), &dto.LoginRequest{Email: "asha@example.com", Password: "nope"}, "s")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	_, err = svc.Login(context.Background(), &dto.LoginRequest{Email: "ghost@example.com", Password: "secret1"}, "s")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestLogout_DisconnectsRealtimeSession(t *testing.T) {
	f := newFixture(t)
	term := &recordingTerminator{}
	svc := newAuthService(t, f, term)
	userID := uuid.New()
	svc.Logout(context.Background(), models.Session{UserID: userID, SessionID: "sess-9"})
	assert.Equal(t, []string{userID.String() + "/sess-9"}, term.ids)
}

func TestUpdateProfile_KeepsEmailAndRole(t *testing.T) {
	f := newFixture(t)
	p := f.profile(models.RoleWriter, "560001")
	svc := NewProfileService(f.repos, f.recorder)

	updated, err := svc.UpdateProfile(context.Background(), sessionOf(p), &dto.UpdateProfileRequest{
		Name: "New Name", Mobile: "9123456780", District: "Mysuru", State: "Karnataka", PostalCode: "570001",
	})
	require.NoError(t, err)
	assert.Equal(t, "New Name", updated.Name)
	assert.Equal(t, "570001", updated.PostalCode)
	assert.Equal(t, p.Email, updated.Email)
	assert.Equal(t, models.RoleWriter, updated.Role)
}
