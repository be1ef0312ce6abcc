package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Nebulafr/Nebula-sub000/internal/auth"
	"github.com/Nebulafr/Nebula-sub000/internal/calendar"
	"github.com/Nebulafr/Nebula-sub000/internal/mailer"
	"github.com/Nebulafr/Nebula-sub000/internal/models"
	"github.com/Nebulafr/Nebula-sub000/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
)

const (
	defaultSessionDuration = 60
	minSessionDuration     = 15
	maxSessionDuration     = 480
)

type BookSessionInput struct {
	CoachID   int64
	Date      string
	StartTime string
	// Duration in minutes; zero means the default of 60.
	Duration int
	Timezone string
	Title    string
	Notes    *string
}

// ValidatedBooking is a booking request that passed every precondition.
type ValidatedBooking struct {
	Coach         *models.Coach
	Student       *models.Student
	ScheduledTime time.Time
	Duration      int
	Timezone      string
}

type PersistBookingInput struct {
	Coach           *models.Coach
	Student         *models.Student
	ScheduledTime   time.Time
	Duration        int
	Timezone        string
	Title           string
	Notes           *string
	PaymentStatus   string
	StripeSessionID *string
}

type BookingResult struct {
	Session  *models.Session `json:"session"`
	MeetLink *string         `json:"meetLink"`
}

type BookingService struct {
	store    repository.Store
	calendar CalendarProvider
	mailer   Mailer
	notifier Notifier
	tasks    TaskRunner
	logger   *logrus.Logger
}

func NewBookingService(
	store repository.Store,
	calendarProvider CalendarProvider,
	mail Mailer,
	notifier Notifier,
	tasks TaskRunner,
	logger *logrus.Logger,
) *BookingService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &BookingService{
		store:    store,
		calendar: calendarProvider,
		mailer:   mail,
		notifier: notifier,
		tasks:    tasks,
		logger:   logger,
	}
}

func (s *BookingService) BookSession(
	ctx context.Context,
	principal auth.Principal,
	input BookSessionInput,
) (*BookingResult, error) {
	if !principal.IsStudent() {
		return nil, Unauthorized("Only students can book sessions")
	}

	booking, err := s.ValidateBooking(ctx, principal.UserID, input)
	if err != nil {
		return nil, err
	}

	return s.PersistBooking(ctx, PersistBookingInput{
		Coach:         booking.Coach,
		Student:       booking.Student,
		ScheduledTime: booking.ScheduledTime,
		Duration:      booking.Duration,
		Timezone:      booking.Timezone,
		Title:         input.Title,
		Notes:         input.Notes,
		PaymentStatus: models.PaymentStatusPending,
	})
}

// ValidateBooking checks every booking precondition without writing
// anything.
func (s *BookingService) ValidateBooking(
	ctx context.Context,
	studentUserID int64,
	input BookSessionInput,
) (*ValidatedBooking, error) {
	coach, err := s.store.Coaches().GetByID(ctx, input.CoachID)
	if err != nil {
		return nil, notFoundIfMissing(err, "Coach not found")
	}
	if !coach.IsActive {
		return nil, NotFound("Coach not found")
	}

	student, err := s.store.Students().GetByUserID(ctx, studentUserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, BadRequest("Please complete your student profile before booking")
		}
		return nil, err
	}

	duration, err := resolveDuration(input.Duration)
	if err != nil {
		return nil, err
	}

	timezone := resolveTimezone(input.Timezone, student.Timezone)
	scheduledTime, err := parseSchedule(input.Date, input.StartTime, timezone)
	if err != nil {
		return nil, err
	}

	if err := ensureSlotAvailable(ctx, s.store.Sessions(), coach.ID, scheduledTime, duration, 0); err != nil {
		return nil, err
	}

	return &ValidatedBooking{
		Coach:         coach,
		Student:       student,
		ScheduledTime: scheduledTime,
		Duration:      duration,
		Timezone:      timezone,
	}, nil
}

// PersistBooking writes the session, the coach counter and the attendance
// row in one transaction, then runs the best-effort side effects. The slot is
// re-checked under a per-coach lock.
func (s *BookingService) PersistBooking(ctx context.Context, input PersistBookingInput) (*BookingResult, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = fmt.Sprintf("Coaching session with %s", input.Coach.FullName)
	}

	var session *models.Session
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.Sessions().LockCoachSchedule(ctx, input.Coach.ID); err != nil {
			return err
		}
		// Checked before the slot, since a stored checkout occupies the
		// slot it paid for.
		if input.StripeSessionID != nil {
			if _, err := tx.Sessions().GetByStripeSessionID(ctx, *input.StripeSessionID); err == nil {
				return repository.ErrDuplicate
			} else if !errors.Is(err, pgx.ErrNoRows) {
				return err
			}
		}
		if err := ensureSlotAvailable(ctx, tx.Sessions(), input.Coach.ID, input.ScheduledTime, input.Duration, 0); err != nil {
			return err
		}

		created, err := tx.Sessions().Create(ctx, repository.CreateSessionInput{
			CoachID:         input.Coach.ID,
			ScheduledTime:   input.ScheduledTime,
			Duration:        input.Duration,
			PaymentStatus:   input.PaymentStatus,
			StripeSessionID: input.StripeSessionID,
			Title:           title,
			Notes:           input.Notes,
		})
		if err != nil {
			return err
		}
		if err := tx.Coaches().IncrementTotalSessions(ctx, input.Coach.ID); err != nil {
			return err
		}
		if _, err := tx.Attendances().Create(ctx, created.ID, input.Student.ID); err != nil {
			return err
		}

		session = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"session_id": session.ID,
		"coach_id":   input.Coach.ID,
		"student_id": input.Student.ID,
		"start":      session.ScheduledTime.Format(time.RFC3339),
	}).Info("Session booked")

	result := &BookingResult{Session: session}
	if meetLink := s.attachMeeting(ctx, input, session); meetLink != nil {
		result.MeetLink = meetLink
	}
	s.dispatchConfirmations(input, session)

	return result, nil
}

// attachMeeting creates the calendar event when the coach connected Google
// Calendar. Failures are logged and leave the session without a link.
func (s *BookingService) attachMeeting(
	ctx context.Context,
	input PersistBookingInput,
	session *models.Session,
) *string {
	coach := input.Coach
	if s.calendar == nil || !coach.HasCalendarIntegration() {
		return nil
	}

	description := "Coaching session booked on Nebula."
	if session.Notes != nil && *session.Notes != "" {
		description += "\n\n" + *session.Notes
	}

	meeting, err := s.calendar.CreateMeeting(ctx, calendar.Credentials{
		AccessToken:  *coach.GoogleAccessToken,
		RefreshToken: *coach.GoogleRefreshToken,
		Expiry:       coach.GoogleTokenExpiry,
	}, calendar.MeetingRequest{
		Summary:        session.Title,
		Description:    description,
		Start:          session.ScheduledTime,
		End:            session.EndTime(),
		Timezone:       input.Timezone,
		AttendeeEmails: []string{input.Student.Email, coach.Email},
	})
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"session_id": session.ID,
			"coach_id":   coach.ID,
			"error":      err.Error(),
		}).Warn("Calendar event creation failed")
		return nil
	}

	if meeting.RefreshedToken != nil {
		expiry := meeting.RefreshedToken.Expiry
		if err := s.store.Coaches().UpdateGoogleAccessToken(ctx, coach.ID, meeting.RefreshedToken.AccessToken, &expiry); err != nil {
			s.logger.WithError(err).WithField("coach_id", coach.ID).Warn("Failed to persist refreshed Google token")
		}
	}

	var meetLink *string
	if meeting.MeetLink != "" {
		meetLink = &meeting.MeetLink
	}
	var eventID *string
	if meeting.EventID != "" {
		eventID = &meeting.EventID
	}
	if err := s.store.Sessions().UpdateCalendarDetails(ctx, session.ID, meetLink, eventID); err != nil {
		s.logger.WithError(err).WithField("session_id", session.ID).Warn("Failed to store calendar details")
	}
	session.MeetLink = meetLink
	session.GoogleEventID = eventID
	return meetLink
}

func (s *BookingService) dispatchConfirmations(input PersistBookingInput, session *models.Session) {
	meetLink := ""
	if session.MeetLink != nil {
		meetLink = *session.MeetLink
	}
	messages := mailer.SessionBooked(mailer.SessionBookedData{
		StudentName:  input.Student.FullName,
		StudentEmail: input.Student.Email,
		CoachName:    input.Coach.FullName,
		CoachEmail:   input.Coach.Email,
		Title:        session.Title,
		Start:        session.ScheduledTime,
		Duration:     session.Duration,
		Timezone:     input.Timezone,
		MeetLink:     meetLink,
	})

	s.tasks.Dispatch("booking-confirmation-email", func(ctx context.Context) error {
		var errs []error
		for _, msg := range messages {
			if err := s.mailer.Send(ctx, msg); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})

	snapshot := *session
	userIDs := []int64{input.Student.UserID, input.Coach.UserID}
	s.tasks.Dispatch("booking-notification", func(context.Context) error {
		s.notifier.Notify(userIDs, NotificationSessionBooked, snapshot)
		return nil
	})
}

func resolveDuration(duration int) (int, error) {
	if duration == 0 {
		return defaultSessionDuration, nil
	}
	if duration < minSessionDuration || duration > maxSessionDuration {
		return 0, BadRequest(fmt.Sprintf("Duration must be between %d and %d minutes", minSessionDuration, maxSessionDuration))
	}
	return duration, nil
}

// resolveTimezone prefers the request, then the student's stored zone.
func resolveTimezone(requested string, stored *string) string {
	if tz := strings.TrimSpace(requested); tz != "" {
		return tz
	}
	if stored != nil && strings.TrimSpace(*stored) != "" {
		return strings.TrimSpace(*stored)
	}
	return "UTC"
}

// parseSchedule interprets a wall-clock date and time in timezone and
// returns the UTC instant.
func parseSchedule(date, startTime, timezone string) (time.Time, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return time.Time{}, BadRequest("Invalid timezone")
	}

	date = strings.TrimSpace(date)
	startTime = strings.TrimSpace(startTime)
	layout := "2006-01-02 15:04"
	if strings.Count(startTime, ":") == 2 {
		layout = "2006-01-02 15:04:05"
	}

	parsed, err := time.ParseInLocation(layout, date+" "+startTime, loc)
	if err != nil {
		return time.Time{}, BadRequest("Invalid date or time format")
	}
	return parsed.UTC(), nil
}
