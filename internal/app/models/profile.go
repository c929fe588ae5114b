package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile is a registered user as stored in the 'profiles' table.
type Profile struct {
	ID         uuid.UUID `json:"id" db:"id"`
	Role       Role      `json:"role" db:"role"`
	Name       string    `json:"name" db:"name"`
	Age        int       `json:"age" db:"age"`
	Gender     string    `json:"gender" db:"gender"`
	Mobile     string    `json:"mobile" db:"mobile"`
	Email      string    `json:"email" db:"email"`
	District   string    `json:"district" db:"district"`
	State      string    `json:"state" db:"state"`
	PostalCode string    `json:"postalCode" db:"postal_code"`
	Verified   bool      `json:"verified" db:"verified"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt" db:"updated_at"`
}

// Contact is the subset of a profile shown to the other party of a request.
type Contact struct {
	Name   string `json:"name"`
	Mobile string `json:"mobile"`
	Email  string `json:"email"`
}

// Contact returns the public contact fields of p.
func (p *Profile) Contact() *Contact {
	return &Contact{Name: p.Name, Mobile: p.Mobile, Email: p.Email}
}

// Credential is the login identity of a profile ('credentials' table).
type Credential struct {
	UserID       uuid.UUID  `db:"user_id"`
	Email        string     `db:"email"`
	PasswordHash string     `db:"password_hash"`
	LastLoginAt  *time.Time `db:"last_login_at"`
}

// Candidate is a writer returned by the matcher.
type Candidate struct {
	Profile       Profile `json:"profile"`
	HasExperience bool    `json:"hasExperience"`
}
