package repository

import (
	"context"

	"github.com/Nebulafr/Nebula-sub000/internal/models"
	"github.com/jackc/pgx/v5"
)

const eventAttendeeColumns = `
	id, event_id, student_id, status, payment_status, stripe_session_id, created_at, updated_at
`

type CreateEventAttendeeInput struct {
	EventID         int64
	StudentID       int64
	Status          string
	PaymentStatus   string
	StripeSessionID *string
}

type EventAttendeeRepository struct {
	db DBTX
}

func NewEventAttendeeRepository(db DBTX) *EventAttendeeRepository {
	return &EventAttendeeRepository{db: db}
}

func scanEventAttendee(row pgx.Row) (*models.EventAttendee, error) {
	var attendee models.EventAttendee
	err := row.Scan(
		&attendee.ID,
		&attendee.EventID,
		&attendee.StudentID,
		&attendee.Status,
		&attendee.PaymentStatus,
		&attendee.StripeSessionID,
		&attendee.CreatedAt,
		&attendee.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &attendee, nil
}

func (r *EventAttendeeRepository) GetByID(ctx context.Context, id int64) (*models.EventAttendee, error) {
	query := `SELECT ` + eventAttendeeColumns + ` FROM event_attendees WHERE id = $1`
	return scanEventAttendee(r.db.QueryRow(ctx, query, id))
}

func (r *EventAttendeeRepository) GetByEventAndStudent(
	ctx context.Context,
	eventID int64,
	studentID int64,
) (*models.EventAttendee, error) {
	query := `SELECT ` + eventAttendeeColumns + ` FROM event_attendees WHERE event_id = $1 AND student_id = $2`
	return scanEventAttendee(r.db.QueryRow(ctx, query, eventID, studentID))
}

func (r *EventAttendeeRepository) Create(ctx context.Context, input CreateEventAttendeeInput) (*models.EventAttendee, error) {
	query := `
		INSERT INTO event_attendees (event_id, student_id, status, payment_status, stripe_session_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + eventAttendeeColumns
	attendee, err := scanEventAttendee(r.db.QueryRow(
		ctx,
		query,
		input.EventID,
		input.StudentID,
		input.Status,
		input.PaymentStatus,
		input.StripeSessionID,
	))
	if err != nil {
		return nil, translateError(err)
	}
	return attendee, nil
}

func (r *EventAttendeeRepository) Register(
	ctx context.Context,
	id int64,
	stripeSessionID *string,
) (*models.EventAttendee, error) {
	query := `
		UPDATE event_attendees
		SET status = 'REGISTERED',
			payment_status = 'PAID',
			stripe_session_id = COALESCE($2, stripe_session_id),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + eventAttendeeColumns
	return scanEventAttendee(r.db.QueryRow(ctx, query, id, stripeSessionID))
}

func (r *EventAttendeeRepository) UpdatePaymentState(
	ctx context.Context,
	id int64,
	status string,
	paymentStatus string,
) (*models.EventAttendee, error) {
	query := `
		UPDATE event_attendees
		SET status = $2, payment_status = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + eventAttendeeColumns
	return scanEventAttendee(r.db.QueryRow(ctx, query, id, status, paymentStatus))
}
