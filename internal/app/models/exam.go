package models

import (
	"time"

	"github.com/google/uuid"
)

// ExamStatus is the lifecycle state of an exam request. Only "open" is
// written today.
type ExamStatus string

const ExamStatusOpen ExamStatus = "open"

// ExamRequest is an exam a student needs a writer for ('exam_requests' table).
type ExamRequest struct {
	ID                    uuid.UUID  `json:"id" db:"id"`
	StudentID             uuid.UUID  `json:"studentId" db:"student_id"`
	Date                  time.Time  `json:"date" db:"exam_date"`
	ExamName              string     `json:"examName" db:"exam_name"`
	QualificationRequired string     `json:"qualificationRequired" db:"qualification_required"`
	Center                string     `json:"center" db:"center"`
	PostalCode            string     `json:"postalCode" db:"postal_code"`
	Status                ExamStatus `json:"status" db:"status"`
	CreatedAt             time.Time  `json:"createdAt" db:"created_at"`
}
