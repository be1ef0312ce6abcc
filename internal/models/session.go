package models

import "time"

const (
	SessionStatusScheduled  = "SCHEDULED"
	SessionStatusInProgress = "IN_PROGRESS"
	SessionStatusCompleted  = "COMPLETED"
	SessionStatusCancelled  = "CANCELLED"
)

const (
	PaymentStatusPending  = "PENDING"
	PaymentStatusPaid     = "PAID"
	PaymentStatusRefunded = "REFUNDED"
)

type Session struct {
	ID              int64     `json:"id"`
	CoachID         int64     `json:"coach_id"`
	ScheduledTime   time.Time `json:"scheduled_time"`
	Duration        int       `json:"duration"`
	Status          string    `json:"status"`
	PaymentStatus   string    `json:"payment_status"`
	StripeSessionID *string   `json:"stripe_session_id,omitempty"`
	MeetLink        *string   `json:"meet_link"`
	GoogleEventID   *string   `json:"google_event_id,omitempty"`
	Title           string    `json:"title"`
	Notes           *string   `json:"notes"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// EndTime is the exclusive end of the session window.
func (s Session) EndTime() time.Time {
	return s.ScheduledTime.Add(time.Duration(s.Duration) * time.Minute)
}

// ConflictsWith reports whether s blocks a proposed booking of durationMinutes
// starting at start. Windows are half-open: a session that ends exactly at
// start, or begins exactly at the proposed end, does not conflict.
// SessionRepository.HasConflict implements the same predicate in SQL.
func (s Session) ConflictsWith(start time.Time, durationMinutes int) bool {
	if s.Status != SessionStatusScheduled {
		return false
	}
	end := start.Add(time.Duration(durationMinutes) * time.Minute)

	// An earlier (or simultaneous) session still running at start.
	if !s.ScheduledTime.After(start) && s.EndTime().After(start) {
		return true
	}
	// A session starting inside [start, end).
	return !s.ScheduledTime.Before(start) && s.ScheduledTime.Before(end)
}

type SessionAttendance struct {
	ID        int64      `json:"id"`
	SessionID int64      `json:"session_id"`
	StudentID int64      `json:"student_id"`
	Attended  bool       `json:"attended"`
	JoinedAt  *time.Time `json:"joined_at,omitempty"`
	LeftAt    *time.Time `json:"left_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type SessionDetail struct {
	Session
	Attendees []SessionAttendance `json:"attendees"`
}
