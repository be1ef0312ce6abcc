package models

import "time"

type Program struct {
	ID                 int64     `json:"id"`
	CoachID            int64     `json:"coach_id"`
	Title              string    `json:"title"`
	Description        *string   `json:"description,omitempty"`
	Price              float64   `json:"price"`
	CurrentEnrollments int       `json:"current_enrollments"`
	IsActive           bool      `json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

const (
	EnrollmentStatusActive    = "ACTIVE"
	EnrollmentStatusPaused    = "PAUSED"
	EnrollmentStatusCancelled = "CANCELLED"
	EnrollmentStatusCompleted = "COMPLETED"
)

type Enrollment struct {
	ID              int64     `json:"id"`
	StudentID       int64     `json:"student_id"`
	ProgramID       int64     `json:"program_id"`
	CoachID         int64     `json:"coach_id"`
	CohortID        *int64    `json:"cohort_id,omitempty"`
	Status          string    `json:"status"`
	PaymentStatus   string    `json:"payment_status"`
	StripeSessionID *string   `json:"stripe_session_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
