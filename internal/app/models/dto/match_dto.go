package dto

import (
	"github.com/google/uuid"
	"github.com/yigit/scribelink/internal/app/models"
)

// CreateExamRequest represents a new exam posted by a student
type CreateExamRequest struct {
	Date                  string `json:"date" binding:"required,datetime=2006-01-02"`
	ExamName              string `json:"examName" binding:"required,min=2"`
	QualificationRequired string `json:"qualificationRequired" binding:"required"`
	Center                string `json:"center" binding:"required"`
	PostalCode            string `json:"postalCode" binding:"required,postalcode"`
}

// ExamCreatedResponse returns the new exam with the writers matched to it
type ExamCreatedResponse struct {
	Exam       *models.ExamRequest `json:"exam"`
	Candidates []models.Candidate  `json:"candidates"`
}

// CreateMatchRequestRequest asks a writer to cover an exam
type CreateMatchRequestRequest struct {
	WriterID uuid.UUID `json:"writerId" binding:"required"`
	ExamID   uuid.UUID `json:"examId" binding:"required"`
}

// UpdateStatusRequest moves a match request to a new status
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending accepted rejected cancelled completed"`
}

// BulkDeleteRequest lists match requests to remove
type BulkDeleteRequest struct {
	IDs []uuid.UUID `json:"ids" binding:"required,min=1,max=100"`
}

// ActivityRequest is an activity log entry sent by the browser
type ActivityRequest struct {
	Kind     models.AuditKind       `json:"kind" binding:"required,oneof=page_navigation activity auth_event form_submission error data_change system_action"`
	Action   string                 `json:"action" binding:"required,max=200"`
	Details  map[string]interface{} `json:"details"`
	PagePath string                 `json:"pagePath" binding:"max=500"`
}

// RealtimeFrame is pushed to websocket clients whenever their view changes
type RealtimeFrame struct {
	Type     string                        `json:"type"`
	Realtime bool                          `json:"realtime"`
	Data     []models.EnrichedMatchRequest `json:"data"`
}

// RealtimeFrameType is the frame type carrying match request lists
const RealtimeFrameType = "match_requests"
