package services

import (
	"context"
	"errors"

	"github.com/Nebulafr/Nebula-sub000/internal/mailer"
	"github.com/Nebulafr/Nebula-sub000/internal/models"
	"github.com/Nebulafr/Nebula-sub000/internal/payments"
	"github.com/Nebulafr/Nebula-sub000/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
)

type bookingPersister interface {
	PersistBooking(ctx context.Context, input PersistBookingInput) (*BookingResult, error)
}

// Reconciler applies a completed payment to the enrollment, session or event
// registration it paid for. Every branch is safe to repeat.
type Reconciler struct {
	store    repository.Store
	booking  bookingPersister
	mailer   Mailer
	notifier Notifier
	tasks    TaskRunner
	logger   *logrus.Logger
}

func NewReconciler(
	store repository.Store,
	booking bookingPersister,
	mail Mailer,
	notifier Notifier,
	tasks TaskRunner,
	logger *logrus.Logger,
) *Reconciler {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &Reconciler{
		store:    store,
		booking:  booking,
		mailer:   mail,
		notifier: notifier,
		tasks:    tasks,
		logger:   logger,
	}
}

func (r *Reconciler) HandleCheckoutCompleted(ctx context.Context, checkout payments.CompletedCheckout) error {
	intent, err := ParseCheckoutIntent(checkout.Metadata)
	if err != nil {
		r.logger.WithFields(logrus.Fields{
			"checkout_session_id": checkout.SessionID,
			"reason":              err.Error(),
		}).Warn("Ignoring checkout without usable metadata")
		return nil
	}

	entry := r.logger.WithFields(logrus.Fields{
		"checkout_session_id": checkout.SessionID,
		"type":                intent.Type,
		"user_id":             intent.UserID,
	})
	stripeSessionID := &checkout.SessionID

	switch intent.Type {
	case IntentProgramEnrollment:
		err = r.reconcileProgram(ctx, intent, stripeSessionID)
	case IntentSessionBooking:
		err = r.reconcileSession(ctx, intent, checkout.SessionID)
	case IntentEventRegistration:
		err = r.reconcileEvent(ctx, intent, stripeSessionID)
	}
	if err != nil {
		entry.WithError(err).Error("Checkout reconciliation failed")
		return err
	}
	entry.Info("Checkout reconciled")
	return nil
}

func (r *Reconciler) reconcileProgram(ctx context.Context, intent CheckoutIntent, stripeSessionID *string) error {
	student, err := r.store.Students().GetByUserID(ctx, intent.UserID)
	if err != nil {
		return notFoundIfMissing(err, "Student not found")
	}
	program, err := r.store.Programs().GetByID(ctx, intent.ProgramID)
	if err != nil {
		return notFoundIfMissing(err, "Program not found")
	}

	_, err = r.EnrollInProgram(ctx, student, program, intent.CohortID, stripeSessionID)
	return err
}

// EnrollInProgram creates or re-activates the (student, program) enrollment
// as ACTIVE/PAID. The program counter moves only when the enrollment becomes
// active.
func (r *Reconciler) EnrollInProgram(
	ctx context.Context,
	student *models.Student,
	program *models.Program,
	cohortID *int64,
	stripeSessionID *string,
) (*models.Enrollment, error) {
	var enrollment *models.Enrollment
	err := r.store.WithTx(ctx, func(tx repository.Store) error {
		existing, err := tx.Enrollments().GetByStudentAndProgram(ctx, student.ID, program.ID)
		switch {
		case err == nil:
			wasActive := existing.Status == models.EnrollmentStatusActive
			enrollment, err = tx.Enrollments().Activate(ctx, existing.ID, stripeSessionID, cohortID)
			if err != nil {
				return err
			}
			if wasActive {
				return nil
			}
		case errors.Is(err, pgx.ErrNoRows):
			enrollment, err = tx.Enrollments().Create(ctx, repository.CreateEnrollmentInput{
				StudentID:       student.ID,
				ProgramID:       program.ID,
				CoachID:         program.CoachID,
				CohortID:        cohortID,
				Status:          models.EnrollmentStatusActive,
				PaymentStatus:   models.PaymentStatusPaid,
				StripeSessionID: stripeSessionID,
			})
			if err != nil {
				return err
			}
		default:
			return err
		}
		return tx.Programs().IncrementEnrollments(ctx, program.ID)
	})
	if err != nil {
		return nil, err
	}

	snapshot := *enrollment
	r.tasks.Dispatch("enrollment-notification", func(context.Context) error {
		r.notifier.Notify([]int64{student.UserID}, NotificationEnrollmentActive, snapshot)
		return nil
	})
	return enrollment, nil
}

func (r *Reconciler) reconcileSession(ctx context.Context, intent CheckoutIntent, checkoutSessionID string) error {
	if _, err := r.store.Sessions().GetByStripeSessionID(ctx, checkoutSessionID); err == nil {
		r.logger.WithField("checkout_session_id", checkoutSessionID).Info("Session already reconciled")
		return nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	coach, err := r.store.Coaches().GetByID(ctx, intent.CoachID)
	if err != nil {
		return notFoundIfMissing(err, "Coach not found")
	}
	student, err := r.store.Students().GetByUserID(ctx, intent.UserID)
	if err != nil {
		return notFoundIfMissing(err, "Student not found")
	}

	timezone := resolveTimezone(intent.Timezone, student.Timezone)
	_, err = r.booking.PersistBooking(ctx, PersistBookingInput{
		Coach:           coach,
		Student:         student,
		ScheduledTime:   intent.ScheduledTime,
		Duration:        intent.Duration,
		Timezone:        timezone,
		Notes:           intent.Notes,
		PaymentStatus:   models.PaymentStatusPaid,
		StripeSessionID: &checkoutSessionID,
	})
	if errors.Is(err, repository.ErrDuplicate) {
		// A concurrent delivery stored the same checkout while this one
		// waited on the coach lock.
		return nil
	}
	return err
}

func (r *Reconciler) reconcileEvent(ctx context.Context, intent CheckoutIntent, stripeSessionID *string) error {
	student, err := r.store.Students().GetByUserID(ctx, intent.UserID)
	if err != nil {
		return notFoundIfMissing(err, "Student not found")
	}
	event, err := r.store.Events().GetByID(ctx, intent.EventID)
	if err != nil {
		return notFoundIfMissing(err, "Event not found")
	}

	_, err = r.RegisterForEvent(ctx, student, event, stripeSessionID)
	return err
}

// RegisterForEvent creates or updates the attendee row as REGISTERED/PAID and
// sends the confirmation the first time the student becomes registered.
func (r *Reconciler) RegisterForEvent(
	ctx context.Context,
	student *models.Student,
	event *models.Event,
	stripeSessionID *string,
) (*models.EventAttendee, error) {
	var attendee *models.EventAttendee
	firstTime := false
	err := r.store.WithTx(ctx, func(tx repository.Store) error {
		existing, err := tx.EventAttendees().GetByEventAndStudent(ctx, event.ID, student.ID)
		switch {
		case err == nil:
			firstTime = existing.Status != models.AttendeeStatusRegistered
			attendee, err = tx.EventAttendees().Register(ctx, existing.ID, stripeSessionID)
			return err
		case errors.Is(err, pgx.ErrNoRows):
			firstTime = true
			attendee, err = tx.EventAttendees().Create(ctx, repository.CreateEventAttendeeInput{
				EventID:         event.ID,
				StudentID:       student.ID,
				Status:          models.AttendeeStatusRegistered,
				PaymentStatus:   models.PaymentStatusPaid,
				StripeSessionID: stripeSessionID,
			})
			return err
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}
	if !firstTime {
		return attendee, nil
	}

	msg := mailer.EventRegistered(mailer.EventRegisteredData{
		StudentName:  student.FullName,
		StudentEmail: student.Email,
		EventTitle:   event.Title,
		StartsAt:     event.StartsAt,
	})
	r.tasks.Dispatch("event-registration-email", func(ctx context.Context) error {
		return r.mailer.Send(ctx, msg)
	})
	snapshot := *attendee
	r.tasks.Dispatch("event-registration-notification", func(context.Context) error {
		r.notifier.Notify([]int64{student.UserID}, NotificationEventRegistered, snapshot)
		return nil
	})
	return attendee, nil
}
