package models

import "time"

type Coach struct {
	ID                 int64      `json:"id"`
	UserID             int64      `json:"user_id"`
	FullName           string     `json:"full_name"`
	Email              string     `json:"email"`
	HourlyRate         float64    `json:"hourly_rate"`
	Timezone           string     `json:"timezone"`
	IsActive           bool       `json:"is_active"`
	TotalSessions      int        `json:"total_sessions"`
	GoogleAccessToken  *string    `json:"-"`
	GoogleRefreshToken *string    `json:"-"`
	GoogleTokenExpiry  *time.Time `json:"-"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// HasCalendarIntegration reports whether the coach connected Google Calendar.
func (c Coach) HasCalendarIntegration() bool {
	return c.GoogleAccessToken != nil && *c.GoogleAccessToken != "" &&
		c.GoogleRefreshToken != nil && *c.GoogleRefreshToken != ""
}
