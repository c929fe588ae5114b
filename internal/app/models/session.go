package models

import "github.com/google/uuid"

// Session identifies the caller of a service operation. It is built per
// request from the bearer token and the client session header and passed
// explicitly to every service call.
type Session struct {
	UserID    uuid.UUID
	Email     string
	Role      Role
	SessionID string
}

// IsZero reports whether the session carries no identity.
func (s Session) IsZero() bool {
	return s.UserID == uuid.Nil
}
