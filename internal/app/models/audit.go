package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditKind groups audit entries the way the activity log is queried.
type AuditKind string

const (
	AuditPageNavigation AuditKind = "page_navigation"
	AuditActivity       AuditKind = "activity"
	AuditAuthEvent      AuditKind = "auth_event"
	AuditFormSubmission AuditKind = "form_submission"
	AuditError          AuditKind = "error"
	AuditDataChange     AuditKind = "data_change"
	AuditSystemAction   AuditKind = "system_action"
)

// Valid reports whether k is a known kind.
func (k AuditKind) Valid() bool {
	switch k {
	case AuditPageNavigation, AuditActivity, AuditAuthEvent, AuditFormSubmission,
		AuditError, AuditDataChange, AuditSystemAction:
		return true
	}
	return false
}

// AuditEntry is one append-only row of 'activity_logs'.
type AuditEntry struct {
	ID        uuid.UUID              `json:"id" db:"id"`
	UserID    *uuid.UUID             `json:"userId,omitempty" db:"user_id"`
	SessionID string                 `json:"sessionId" db:"session_id"`
	Kind      AuditKind              `json:"kind" db:"kind"`
	Action    string                 `json:"action" db:"action"`
	Details   map[string]interface{} `json:"details,omitempty" db:"details"`
	PagePath  string                 `json:"pagePath,omitempty" db:"page_path"`
	IPAddress string                 `json:"ipAddress,omitempty" db:"ip_address"`
	UserAgent string                 `json:"userAgent,omitempty" db:"user_agent"`
	CreatedAt time.Time              `json:"createdAt" db:"created_at"`
}
