package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/yigit/scribelink/internal/app/models"
	"github.com/yigit/scribelink/internal/app/repositories"
	"github.com/yigit/scribelink/internal/pkg/apperrors"
	"github.com/yigit/scribelink/internal/pkg/auth"
)

// DemoPassword is the password of every seeded account.
const DemoPassword = "scribe123"

type demoAccount struct {
	name       string
	email      string
	role       models.Role
	gender     string
	age        int
	mobile     string
	district   string
	state      string
	postalCode string
}

var demoAccounts = []demoAccount{
	{"Asha Rao", "asha.writer@scribelink.app", models.RoleWriter, "female", 24, "9845012345", "Bengaluru Urban", "Karnataka", "560001"},
	{"Kiran Kumar", "kiran.writer@scribelink.app", models.RoleWriter, "male", 27, "9845067890", "Bengaluru Urban", "Karnataka", "560001"},
	{"Meera Iyer", "meera.writer@scribelink.app", models.RoleWriter, "female", 22, "9812233445", "New Delhi", "Delhi", "110001"},
	{"Rahul Verma", "rahul.student@scribelink.app", models.RoleDisabled, "male", 19, "9900112233", "Bengaluru Urban", "Karnataka", "560001"},
}

// CreateDefaultData inserts demo writers and one student when the store has
// no profiles yet. Existing accounts are left untouched.
func CreateDefaultData(ctx context.Context, repos *repositories.Repositories, lgr zerolog.Logger) error {
	count, err := repos.Profiles.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count profiles: %w", err)
	}
	if count > 0 {
		lgr.Info().Int("profiles", count).Msg("Profiles present, skipping demo data")
		return nil
	}

	lgr.Info().Msg("Creating demo accounts...")
	hash, err := auth.HashPassword(DemoPassword)
	if err != nil {
		return fmt.Errorf("failed to hash demo password: %w", err)
	}

	var finalErr error // To collect potential errors without stopping the process
	created := 0
	for _, a := range demoAccounts {
		now := time.Now().UTC()
		p := &models.Profile{
			ID:         uuid.New(),
			Role:       a.role,
			Name:       a.name,
			Age:        a.age,
			Gender:     a.gender,
			Mobile:     a.mobile,
			Email:      strings.ToLower(a.email),
			District:   a.district,
			State:      a.state,
			PostalCode: a.postalCode,
			Verified:   a.role == models.RoleWriter,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		cred := &models.Credential{UserID: p.ID, Email: p.Email, PasswordHash: hash}

		err := repos.Accounts.CreateAccount(ctx, p, cred)
		switch {
		case errors.Is(err, apperrors.ErrEmailAlreadyExists):
			lgr.Debug().Str("email", p.Email).Msg("Demo account already exists")
		case err != nil:
			lgr.Error().Err(err).Str("email", p.Email).Msg("Error creating demo account")
			finalErr = errors.Join(finalErr, err)
		default:
			created++
		}
	}

	lgr.Info().Int("created", created).Msg("Demo data created")
	return finalErr
}
