package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Nebulafr/Nebula-sub000/internal/models"
	"github.com/Nebulafr/Nebula-sub000/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
)

const (
	RefundProgram = "PROGRAM"
	RefundSession = "SESSION"
	RefundEvent   = "EVENT"
)

type RefundResult struct {
	Type          string `json:"type"`
	ID            int64  `json:"id"`
	Status        string `json:"status"`
	PaymentStatus string `json:"paymentStatus"`
}

// refundTarget is the row being refunded, loaded through its own store.
type refundTarget struct {
	stripeSessionID *string
	paymentStatus   string
	cancel          func(ctx context.Context, tx repository.Store) error
	studentIDs      func(ctx context.Context) ([]int64, error)
}

type RefundService struct {
	store    repository.Store
	payments PaymentProvider
	notifier Notifier
	tasks    TaskRunner
	logger   *logrus.Logger
}

func NewRefundService(
	store repository.Store,
	provider PaymentProvider,
	notifier Notifier,
	tasks TaskRunner,
	logger *logrus.Logger,
) *RefundService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &RefundService{
		store:    store,
		payments: provider,
		notifier: notifier,
		tasks:    tasks,
		logger:   logger,
	}
}

// ProcessRefund refunds the payment behind an enrollment, session or event
// registration. The row changes only after the provider accepted the refund.
func (s *RefundService) ProcessRefund(ctx context.Context, refundType string, id int64) (*RefundResult, error) {
	refundType = strings.ToUpper(strings.TrimSpace(refundType))

	target, err := s.loadTarget(ctx, refundType, id)
	if err != nil {
		return nil, err
	}
	if target.stripeSessionID == nil || *target.stripeSessionID == "" {
		return nil, BadRequest("No payment associated with this record")
	}
	if target.paymentStatus == models.PaymentStatusRefunded {
		return nil, BadRequest("Payment has already been refunded")
	}
	if s.payments == nil {
		return nil, ErrPaymentsDisabled
	}

	paymentIntentID, err := s.payments.PaymentIntentForSession(ctx, *target.stripeSessionID)
	if err != nil {
		return nil, err
	}
	if paymentIntentID == "" {
		return nil, BadRequest("No payment intent found for this payment")
	}

	// Enrollment and attendee rows are reused on re-purchase, so the key
	// carries the payment intent as well as the row.
	idempotencyKey := fmt.Sprintf("refund-%s-%d-%s", strings.ToLower(refundType), id, paymentIntentID)
	if err := s.payments.Refund(ctx, paymentIntentID, idempotencyKey); err != nil {
		return nil, err
	}

	if err := s.store.WithTx(ctx, func(tx repository.Store) error {
		return target.cancel(ctx, tx)
	}); err != nil {
		s.logger.WithFields(logrus.Fields{
			"type":           refundType,
			"id":             id,
			"payment_intent": paymentIntentID,
			"error":          err.Error(),
		}).Error("Refund accepted by provider but record update failed")
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"type":           refundType,
		"id":             id,
		"payment_intent": paymentIntentID,
	}).Info("Refund processed")

	result := &RefundResult{
		Type:          refundType,
		ID:            id,
		Status:        "CANCELLED",
		PaymentStatus: models.PaymentStatusRefunded,
	}
	s.tasks.Dispatch("refund-notification", func(ctx context.Context) error {
		studentIDs, err := target.studentIDs(ctx)
		if err != nil {
			return err
		}
		userIDs := make([]int64, 0, len(studentIDs))
		for _, studentID := range studentIDs {
			student, err := s.store.Students().GetByID(ctx, studentID)
			if err != nil {
				return err
			}
			userIDs = append(userIDs, student.UserID)
		}
		s.notifier.Notify(userIDs, NotificationRefundProcessed, *result)
		return nil
	})
	return result, nil
}

func (s *RefundService) loadTarget(ctx context.Context, refundType string, id int64) (*refundTarget, error) {
	switch refundType {
	case RefundProgram:
		enrollment, err := s.store.Enrollments().GetByID(ctx, id)
		if err != nil {
			return nil, recordNotFound(err)
		}
		return &refundTarget{
			stripeSessionID: enrollment.StripeSessionID,
			paymentStatus:   enrollment.PaymentStatus,
			cancel: func(ctx context.Context, tx repository.Store) error {
				if _, err := tx.Enrollments().UpdatePaymentState(ctx, id, models.EnrollmentStatusCancelled, models.PaymentStatusRefunded); err != nil {
					return err
				}
				if enrollment.Status != models.EnrollmentStatusActive {
					return nil
				}
				return tx.Programs().DecrementEnrollments(ctx, enrollment.ProgramID)
			},
			studentIDs: func(context.Context) ([]int64, error) {
				return []int64{enrollment.StudentID}, nil
			},
		}, nil
	case RefundSession:
		session, err := s.store.Sessions().GetByID(ctx, id)
		if err != nil {
			return nil, recordNotFound(err)
		}
		return &refundTarget{
			stripeSessionID: session.StripeSessionID,
			paymentStatus:   session.PaymentStatus,
			cancel: func(ctx context.Context, tx repository.Store) error {
				_, err := tx.Sessions().UpdatePaymentState(ctx, id, models.SessionStatusCancelled, models.PaymentStatusRefunded)
				return err
			},
			studentIDs: func(ctx context.Context) ([]int64, error) {
				attendees, err := s.store.Attendances().ListBySession(ctx, id)
				if err != nil {
					return nil, err
				}
				ids := make([]int64, 0, len(attendees))
				for _, attendee := range attendees {
					ids = append(ids, attendee.StudentID)
				}
				return ids, nil
			},
		}, nil
	case RefundEvent:
		attendee, err := s.store.EventAttendees().GetByID(ctx, id)
		if err != nil {
			return nil, recordNotFound(err)
		}
		return &refundTarget{
			stripeSessionID: attendee.StripeSessionID,
			paymentStatus:   attendee.PaymentStatus,
			cancel: func(ctx context.Context, tx repository.Store) error {
				_, err := tx.EventAttendees().UpdatePaymentState(ctx, id, models.AttendeeStatusCancelled, models.PaymentStatusRefunded)
				return err
			},
			studentIDs: func(context.Context) ([]int64, error) {
				return []int64{attendee.StudentID}, nil
			},
		}, nil
	default:
		return nil, BadRequest("Refund type must be PROGRAM, SESSION or EVENT")
	}
}

func recordNotFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return NotFound("Record not found")
	}
	return err
}
