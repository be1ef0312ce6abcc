package repository

import (
	"context"
	"time"

	"github.com/Nebulafr/Nebula-sub000/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store groups the repositories used by the services. Implementations bound
// to a transaction return themselves from WithTx.
type Store interface {
	Users() UserStore
	Coaches() CoachStore
	Students() StudentStore
	Programs() ProgramStore
	Events() EventStore
	Sessions() SessionStore
	Attendances() AttendanceStore
	Enrollments() EnrollmentStore
	EventAttendees() EventAttendeeStore
	WebhookEvents() WebhookEventStore
	WithTx(ctx context.Context, fn func(tx Store) error) error
}

type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

type CoachStore interface {
	Create(ctx context.Context, userID int64, hourlyRate float64, timezone string) (*models.Coach, error)
	GetByID(ctx context.Context, id int64) (*models.Coach, error)
	GetByUserID(ctx context.Context, userID int64) (*models.Coach, error)
	IncrementTotalSessions(ctx context.Context, id int64) error
	UpdateGoogleAccessToken(ctx context.Context, id int64, accessToken string, expiry *time.Time) error
}

type StudentStore interface {
	Create(ctx context.Context, userID int64, timezone *string) (*models.Student, error)
	GetByID(ctx context.Context, id int64) (*models.Student, error)
	GetByUserID(ctx context.Context, userID int64) (*models.Student, error)
}

type ProgramStore interface {
	GetByID(ctx context.Context, id int64) (*models.Program, error)
	IncrementEnrollments(ctx context.Context, id int64) error
	DecrementEnrollments(ctx context.Context, id int64) error
}

type EventStore interface {
	GetByID(ctx context.Context, id int64) (*models.Event, error)
}

type SessionStore interface {
	LockCoachSchedule(ctx context.Context, coachID int64) error
	HasConflict(ctx context.Context, coachID int64, start time.Time, durationMinutes int, excludeSessionID int64) (bool, error)
	Create(ctx context.Context, input CreateSessionInput) (*models.Session, error)
	GetByID(ctx context.Context, id int64) (*models.Session, error)
	GetByStripeSessionID(ctx context.Context, stripeSessionID string) (*models.Session, error)
	List(ctx context.Context, filter SessionListFilter) ([]models.Session, int, error)
	UpdateStatus(ctx context.Context, id int64, status string) (*models.Session, error)
	UpdatePaymentState(ctx context.Context, id int64, status string, paymentStatus string) (*models.Session, error)
	UpdateCalendarDetails(ctx context.Context, id int64, meetLink *string, googleEventID *string) error
	Reschedule(ctx context.Context, id int64, scheduledTime time.Time, duration int) (*models.Session, error)
}

type AttendanceStore interface {
	Create(ctx context.Context, sessionID int64, studentID int64) (*models.SessionAttendance, error)
	ListBySession(ctx context.Context, sessionID int64) ([]models.SessionAttendance, error)
}

type EnrollmentStore interface {
	GetByID(ctx context.Context, id int64) (*models.Enrollment, error)
	GetByStudentAndProgram(ctx context.Context, studentID int64, programID int64) (*models.Enrollment, error)
	Create(ctx context.Context, input CreateEnrollmentInput) (*models.Enrollment, error)
	Activate(ctx context.Context, id int64, stripeSessionID *string, cohortID *int64) (*models.Enrollment, error)
	UpdatePaymentState(ctx context.Context, id int64, status string, paymentStatus string) (*models.Enrollment, error)
}

type EventAttendeeStore interface {
	GetByID(ctx context.Context, id int64) (*models.EventAttendee, error)
	GetByEventAndStudent(ctx context.Context, eventID int64, studentID int64) (*models.EventAttendee, error)
	Create(ctx context.Context, input CreateEventAttendeeInput) (*models.EventAttendee, error)
	Register(ctx context.Context, id int64, stripeSessionID *string) (*models.EventAttendee, error)
	UpdatePaymentState(ctx context.Context, id int64, status string, paymentStatus string) (*models.EventAttendee, error)
}

type WebhookEventStore interface {
	Record(ctx context.Context, input RecordWebhookEventInput) (*models.WebhookEvent, error)
	MarkProcessed(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, reason string) error
	ListRetryable(ctx context.Context, maxAttempts int, limit int) ([]models.WebhookEvent, error)
	IncrementAttempts(ctx context.Context, id int64) error
}

// PgStore is the PostgreSQL Store.
type PgStore struct {
	pool           *pgxpool.Pool
	users          *UserRepository
	coaches        *CoachRepository
	students       *StudentRepository
	programs       *ProgramRepository
	events         *EventRepository
	sessions       *SessionRepository
	attendances    *AttendanceRepository
	enrollments    *EnrollmentRepository
	eventAttendees *EventAttendeeRepository
	webhookEvents  *WebhookEventRepository
}

func NewStore(pool *pgxpool.Pool) *PgStore {
	return newStore(pool, pool)
}

func newStore(pool *pgxpool.Pool, db DBTX) *PgStore {
	return &PgStore{
		pool:           pool,
		users:          NewUserRepository(db),
		coaches:        NewCoachRepository(db),
		students:       NewStudentRepository(db),
		programs:       NewProgramRepository(db),
		events:         NewEventRepository(db),
		sessions:       NewSessionRepository(db),
		attendances:    NewAttendanceRepository(db),
		enrollments:    NewEnrollmentRepository(db),
		eventAttendees: NewEventAttendeeRepository(db),
		webhookEvents:  NewWebhookEventRepository(db),
	}
}

func (s *PgStore) Users() UserStore                   { return s.users }
func (s *PgStore) Coaches() CoachStore                { return s.coaches }
func (s *PgStore) Students() StudentStore             { return s.students }
func (s *PgStore) Programs() ProgramStore             { return s.programs }
func (s *PgStore) Events() EventStore                 { return s.events }
func (s *PgStore) Sessions() SessionStore             { return s.sessions }
func (s *PgStore) Attendances() AttendanceStore       { return s.attendances }
func (s *PgStore) Enrollments() EnrollmentStore       { return s.enrollments }
func (s *PgStore) EventAttendees() EventAttendeeStore { return s.eventAttendees }
func (s *PgStore) WebhookEvents() WebhookEventStore   { return s.webhookEvents }

// WithTx runs fn inside a transaction. Nested calls reuse the outer one.
func (s *PgStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	if s.pool == nil {
		return fn(s)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(newStore(nil, tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
