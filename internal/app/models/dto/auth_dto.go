package dto

import "github.com/yigit/scribelink/internal/app/models"

// RegisterRequest represents the sign-up form
type RegisterRequest struct {
	Name       string      `json:"name" binding:"required,min=2"`
	Age        int         `json:"age" binding:"omitempty,min=0,max=120"`
	Gender     string      `json:"gender" binding:"omitempty,oneof=male female other"`
	Mobile     string      `json:"mobile" binding:"required,mobile"`
	Email      string      `json:"email" binding:"required,looseemail"`
	Password   string      `json:"password" binding:"required,min=6"`
	District   string      `json:"district" binding:"required,min=2"`
	State      string      `json:"state" binding:"required,min=2"`
	PostalCode string      `json:"postalCode" binding:"required,postalcode"`
	Role       models.Role `json:"role" binding:"required,oneof=student writer disabled"`
}

// LoginRequest represents login credentials
type LoginRequest struct {
	Email    string `json:"email" binding:"required,looseemail"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse represents JWT token information
type TokenResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
	ExpiresIn   int64  `json:"expiresIn"`
}

// AuthResponse represents successful authentication response
type AuthResponse struct {
	Token   TokenResponse   `json:"token"`
	Profile *models.Profile `json:"profile"`
}

// SessionResponse describes the caller's current session
type SessionResponse struct {
	Profile   *models.Profile `json:"profile"`
	SessionID string          `json:"sessionId"`
}

// UpdateProfileRequest represents profile update data. Email and role are
// fixed at registration.
type UpdateProfileRequest struct {
	Name       string `json:"name" binding:"required,min=2"`
	Age        int    `json:"age" binding:"omitempty,min=0,max=120"`
	Gender     string `json:"gender" binding:"omitempty,oneof=male female other"`
	Mobile     string `json:"mobile" binding:"required,mobile"`
	District   string `json:"district" binding:"required,min=2"`
	State      string `json:"state" binding:"required,min=2"`
	PostalCode string `json:"postalCode" binding:"required,postalcode"`
}
