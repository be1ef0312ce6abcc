package models

import "time"

type Event struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	Price       float64   `json:"price"`
	StartsAt    time.Time `json:"starts_at"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

const (
	AttendeeStatusRegistered = "REGISTERED"
	AttendeeStatusCancelled  = "CANCELLED"
)

type EventAttendee struct {
	ID              int64     `json:"id"`
	EventID         int64     `json:"event_id"`
	StudentID       int64     `json:"student_id"`
	Status          string    `json:"status"`
	PaymentStatus   string    `json:"payment_status"`
	StripeSessionID *string   `json:"stripe_session_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
