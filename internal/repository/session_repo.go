package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Nebulafr/Nebula-sub000/internal/models"
	"github.com/jackc/pgx/v5"
)

const sessionColumns = `
	id, coach_id, scheduled_time, duration, status, payment_status, stripe_session_id,
	meet_link, google_event_id, title, notes, created_at, updated_at
`

type CreateSessionInput struct {
	CoachID         int64
	ScheduledTime   time.Time
	Duration        int
	PaymentStatus   string
	StripeSessionID *string
	Title           string
	Notes           *string
}

type SessionListFilter struct {
	StudentID int64
	CoachID   int64
	Status    string
	Timeframe string
	Limit     int
	Offset    int
}

type SessionRepository struct {
	db DBTX
}

func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

func scanSession(row pgx.Row) (*models.Session, error) {
	var session models.Session
	err := row.Scan(
		&session.ID,
		&session.CoachID,
		&session.ScheduledTime,
		&session.Duration,
		&session.Status,
		&session.PaymentStatus,
		&session.StripeSessionID,
		&session.MeetLink,
		&session.GoogleEventID,
		&session.Title,
		&session.Notes,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// LockCoachSchedule serializes bookings for one coach until the surrounding
// transaction ends.
func (r *SessionRepository) LockCoachSchedule(ctx context.Context, coachID int64) error {
	_, err := r.db.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", coachID)
	return err
}

func (r *SessionRepository) Create(ctx context.Context, input CreateSessionInput) (*models.Session, error) {
	query := `
		INSERT INTO sessions (coach_id, scheduled_time, duration, status, payment_status, stripe_session_id, title, notes)
		VALUES ($1, $2, $3, 'SCHEDULED', $4, $5, $6, $7)
		RETURNING ` + sessionColumns

	paymentStatus := input.PaymentStatus
	if paymentStatus == "" {
		paymentStatus = models.PaymentStatusPending
	}

	session, err := scanSession(r.db.QueryRow(
		ctx,
		query,
		input.CoachID,
		input.ScheduledTime.UTC(),
		input.Duration,
		paymentStatus,
		input.StripeSessionID,
		input.Title,
		input.Notes,
	))
	if err != nil {
		return nil, translateError(err)
	}
	return session, nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id int64) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	return scanSession(r.db.QueryRow(ctx, query, id))
}

func (r *SessionRepository) GetByStripeSessionID(ctx context.Context, stripeSessionID string) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE stripe_session_id = $1`
	return scanSession(r.db.QueryRow(ctx, query, stripeSessionID))
}

func (r *SessionRepository) List(ctx context.Context, filter SessionListFilter) ([]models.Session, int, error) {
	args := []any{}
	whereParts := []string{"TRUE"}

	if filter.CoachID > 0 {
		args = append(args, filter.CoachID)
		whereParts = append(whereParts, fmt.Sprintf("coach_id = $%d", len(args)))
	}
	if filter.StudentID > 0 {
		args = append(args, filter.StudentID)
		whereParts = append(whereParts, fmt.Sprintf(
			"id IN (SELECT session_id FROM session_attendances WHERE student_id = $%d)", len(args)))
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		args = append(args, strings.ToUpper(status))
		whereParts = append(whereParts, fmt.Sprintf("status = $%d", len(args)))
	}

	switch strings.TrimSpace(filter.Timeframe) {
	case "upcoming":
		whereParts = append(whereParts, "(scheduled_time + (duration * INTERVAL '1 minute')) > NOW()")
	case "past":
		whereParts = append(whereParts, "(scheduled_time + (duration * INTERVAL '1 minute')) <= NOW()")
	}
	where := strings.Join(whereParts, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM sessions WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, filter.Offset)
	query := fmt.Sprintf(`
		SELECT %s
		FROM sessions
		WHERE %s
		ORDER BY scheduled_time ASC, id ASC
		LIMIT $%d OFFSET $%d
	`, sessionColumns, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	sessions := make([]models.Session, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, 0, err
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return sessions, total, nil
}

func (r *SessionRepository) UpdateStatus(ctx context.Context, id int64, status string) (*models.Session, error) {
	query := `
		UPDATE sessions
		SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + sessionColumns
	return scanSession(r.db.QueryRow(ctx, query, id, status))
}

func (r *SessionRepository) UpdatePaymentState(
	ctx context.Context,
	id int64,
	status string,
	paymentStatus string,
) (*models.Session, error) {
	query := `
		UPDATE sessions
		SET status = $2, payment_status = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + sessionColumns
	return scanSession(r.db.QueryRow(ctx, query, id, status, paymentStatus))
}

func (r *SessionRepository) UpdateCalendarDetails(
	ctx context.Context,
	id int64,
	meetLink *string,
	googleEventID *string,
) error {
	_, err := r.db.Exec(ctx, `
		UPDATE sessions
		SET meet_link = $2, google_event_id = $3, updated_at = NOW()
		WHERE id = $1
	`, id, meetLink, googleEventID)
	return err
}

func (r *SessionRepository) Reschedule(
	ctx context.Context,
	id int64,
	scheduledTime time.Time,
	duration int,
) (*models.Session, error) {
	query := `
		UPDATE sessions
		SET scheduled_time = $2, duration = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'SCHEDULED'
		RETURNING ` + sessionColumns
	return scanSession(r.db.QueryRow(ctx, query, id, scheduledTime.UTC(), duration))
}

// HasConflict mirrors models.Session.ConflictsWith. excludeSessionID may be
// zero.
func (r *SessionRepository) HasConflict(
	ctx context.Context,
	coachID int64,
	start time.Time,
	durationMinutes int,
	excludeSessionID int64,
) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM sessions
			WHERE coach_id = $1
			  AND status = 'SCHEDULED'
			  AND id <> $4
			  AND (
				(scheduled_time <= $2::timestamptz
				 AND scheduled_time + (duration * INTERVAL '1 minute') > $2::timestamptz)
				OR
				(scheduled_time >= $2::timestamptz
				 AND scheduled_time < $2::timestamptz + ($3::int * INTERVAL '1 minute'))
			  )
		)
	`
	var hasConflict bool
	if err := r.db.QueryRow(ctx, query, coachID, start.UTC(), durationMinutes, excludeSessionID).Scan(&hasConflict); err != nil {
		return false, err
	}
	return hasConflict, nil
}
