package dto

import "time"

// APIResponse is the envelope of every successful response.
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewSuccessResponse wraps data in the success envelope.
func NewSuccessResponse(data interface{}) APIResponse {
	return APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

// MessageResponse represents a response carrying only a message
type MessageResponse struct {
	Message string `json:"message"`
}

// DeleteResponse reports how many rows a delete removed.
type DeleteResponse struct {
	Deleted int64 `json:"deleted"`
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Realtime bool   `json:"realtime"`
}
