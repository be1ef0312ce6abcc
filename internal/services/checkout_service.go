package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/Nebulafr/Nebula-sub000/internal/auth"
	"github.com/Nebulafr/Nebula-sub000/internal/models"
	"github.com/Nebulafr/Nebula-sub000/internal/payments"
	"github.com/Nebulafr/Nebula-sub000/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
)

var ErrPaymentsDisabled = errors.New("payment provider is not configured")

type ProgramCheckoutInput struct {
	ProgramID  int64
	CohortID   *int64
	SuccessURL string
	CancelURL  string
}

type SessionCheckoutInput struct {
	Booking    BookSessionInput
	SuccessURL string
	CancelURL  string
}

type EventCheckoutInput struct {
	EventID    int64
	SuccessURL string
	CancelURL  string
}

// CheckoutResult points the client at the provider's hosted page, or at the
// success URL when nothing had to be paid.
type CheckoutResult struct {
	URL       string `json:"url"`
	SessionID string `json:"sessionId,omitempty"`
}

type bookingFlow interface {
	ValidateBooking(ctx context.Context, studentUserID int64, input BookSessionInput) (*ValidatedBooking, error)
	PersistBooking(ctx context.Context, input PersistBookingInput) (*BookingResult, error)
}

type CheckoutService struct {
	store      repository.Store
	booking    bookingFlow
	reconciler *Reconciler
	payments   PaymentProvider
	currency   string
	appURL     string
	logger     *logrus.Logger
}

func NewCheckoutService(
	store repository.Store,
	booking bookingFlow,
	reconciler *Reconciler,
	provider PaymentProvider,
	currency string,
	appURL string,
	logger *logrus.Logger,
) *CheckoutService {
	if currency == "" {
		currency = "usd"
	}
	return &CheckoutService{
		store:      store,
		booking:    booking,
		reconciler: reconciler,
		payments:   provider,
		currency:   currency,
		appURL:     strings.TrimRight(appURL, "/"),
		logger:     logger,
	}
}

func (s *CheckoutService) CreateProgramCheckout(
	ctx context.Context,
	principal auth.Principal,
	input ProgramCheckoutInput,
) (*CheckoutResult, error) {
	program, err := s.store.Programs().GetByID(ctx, input.ProgramID)
	if err != nil {
		return nil, notFoundIfMissing(err, "Program not found")
	}
	if !program.IsActive {
		return nil, NotFound("Program not found")
	}

	student, err := s.studentFor(ctx, principal)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.Enrollments().GetByStudentAndProgram(ctx, student.ID, program.ID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err == nil && existing.Status == models.EnrollmentStatusActive && existing.PaymentStatus == models.PaymentStatusPaid {
		return nil, BadRequest("Already enrolled in this program")
	}

	successURL, cancelURL := s.urls(input.SuccessURL, input.CancelURL, "programs")
	if program.Price == 0 {
		if _, err := s.reconciler.EnrollInProgram(ctx, student, program, input.CohortID, nil); err != nil {
			return nil, err
		}
		return &CheckoutResult{URL: successURL}, nil
	}

	intent := CheckoutIntent{
		Type:      IntentProgramEnrollment,
		UserID:    principal.UserID,
		ProgramID: program.ID,
		CohortID:  input.CohortID,
	}
	return s.startCheckout(ctx, payments.CheckoutRequest{
		ProductName:   program.Title,
		Description:   derefString(program.Description),
		UnitAmount:    toMinorUnits(program.Price),
		SuccessURL:    successURL,
		CancelURL:     cancelURL,
		CustomerEmail: principal.Email,
	}, intent)
}

func (s *CheckoutService) CreateSessionCheckout(
	ctx context.Context,
	principal auth.Principal,
	input SessionCheckoutInput,
) (*CheckoutResult, error) {
	if !principal.IsStudent() {
		return nil, Unauthorized("Only students can book sessions")
	}

	booking, err := s.booking.ValidateBooking(ctx, principal.UserID, input.Booking)
	if err != nil {
		return nil, err
	}

	price := SessionPrice(booking.Coach.HourlyRate, booking.Duration)
	successURL, cancelURL := s.urls(input.SuccessURL, input.CancelURL, "sessions")
	if price == 0 {
		if _, err := s.booking.PersistBooking(ctx, PersistBookingInput{
			Coach:         booking.Coach,
			Student:       booking.Student,
			ScheduledTime: booking.ScheduledTime,
			Duration:      booking.Duration,
			Timezone:      booking.Timezone,
			Title:         input.Booking.Title,
			Notes:         input.Booking.Notes,
			PaymentStatus: models.PaymentStatusPaid,
		}); err != nil {
			return nil, err
		}
		return &CheckoutResult{URL: successURL}, nil
	}

	intent := CheckoutIntent{
		Type:          IntentSessionBooking,
		UserID:        principal.UserID,
		CoachID:       booking.Coach.ID,
		ScheduledTime: booking.ScheduledTime,
		Duration:      booking.Duration,
		Timezone:      booking.Timezone,
		Notes:         input.Booking.Notes,
	}
	return s.startCheckout(ctx, payments.CheckoutRequest{
		ProductName: fmt.Sprintf("Coaching session with %s", booking.Coach.FullName),
		Description: fmt.Sprintf("%d minute session on %s", booking.Duration,
			booking.ScheduledTime.UTC().Format("2006-01-02 15:04 UTC")),
		UnitAmount:    int64(price) * 100,
		SuccessURL:    successURL,
		CancelURL:     cancelURL,
		CustomerEmail: principal.Email,
	}, intent)
}

func (s *CheckoutService) CreateEventCheckout(
	ctx context.Context,
	principal auth.Principal,
	input EventCheckoutInput,
) (*CheckoutResult, error) {
	event, err := s.store.Events().GetByID(ctx, input.EventID)
	if err != nil {
		return nil, notFoundIfMissing(err, "Event not found")
	}
	if !event.IsActive {
		return nil, NotFound("Event not found")
	}

	student, err := s.studentFor(ctx, principal)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.EventAttendees().GetByEventAndStudent(ctx, event.ID, student.ID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err == nil && existing.Status == models.AttendeeStatusRegistered && existing.PaymentStatus == models.PaymentStatusPaid {
		return nil, BadRequest("Already registered for this event")
	}

	successURL, cancelURL := s.urls(input.SuccessURL, input.CancelURL, "events")
	if event.Price == 0 {
		if _, err := s.reconciler.RegisterForEvent(ctx, student, event, nil); err != nil {
			return nil, err
		}
		return &CheckoutResult{URL: successURL}, nil
	}

	intent := CheckoutIntent{
		Type:    IntentEventRegistration,
		UserID:  principal.UserID,
		EventID: event.ID,
	}
	return s.startCheckout(ctx, payments.CheckoutRequest{
		ProductName:   event.Title,
		Description:   derefString(event.Description),
		UnitAmount:    toMinorUnits(event.Price),
		SuccessURL:    successURL,
		CancelURL:     cancelURL,
		CustomerEmail: principal.Email,
	}, intent)
}

func (s *CheckoutService) startCheckout(
	ctx context.Context,
	req payments.CheckoutRequest,
	intent CheckoutIntent,
) (*CheckoutResult, error) {
	if s.payments == nil {
		return nil, ErrPaymentsDisabled
	}

	req.Currency = s.currency
	req.Metadata = intent.Metadata()
	session, err := s.payments.CreateCheckoutSession(ctx, req)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"checkout_session_id": session.ID,
		"type":                intent.Type,
		"user_id":             intent.UserID,
		"amount":              req.UnitAmount,
	}).Info("Checkout session created")
	return &CheckoutResult{URL: session.URL, SessionID: session.ID}, nil
}

func (s *CheckoutService) studentFor(ctx context.Context, principal auth.Principal) (*models.Student, error) {
	student, err := s.store.Students().GetByUserID(ctx, principal.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, BadRequest("Please complete your student profile before checking out")
		}
		return nil, err
	}
	return student, nil
}

func (s *CheckoutService) urls(successURL, cancelURL, kind string) (string, string) {
	if strings.TrimSpace(successURL) == "" {
		successURL = fmt.Sprintf("%s/%s/checkout/success", s.appURL, kind)
	}
	if strings.TrimSpace(cancelURL) == "" {
		cancelURL = fmt.Sprintf("%s/%s/checkout/cancel", s.appURL, kind)
	}
	return successURL, cancelURL
}

// SessionPrice is the whole-dollar price of a session: hourly rate scaled by
// duration, rounded.
func SessionPrice(hourlyRate float64, durationMinutes int) float64 {
	return math.Round(hourlyRate * float64(durationMinutes) / 60)
}

func toMinorUnits(price float64) int64 {
	return int64(math.Round(price * 100))
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
