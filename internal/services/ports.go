package services

import (
	"context"

	"github.com/Nebulafr/Nebula-sub000/internal/calendar"
	"github.com/Nebulafr/Nebula-sub000/internal/mailer"
	"github.com/Nebulafr/Nebula-sub000/internal/payments"
)

type PaymentProvider interface {
	CreateCheckoutSession(ctx context.Context, req payments.CheckoutRequest) (*payments.CheckoutSession, error)
	PaymentIntentForSession(ctx context.Context, checkoutSessionID string) (string, error)
	Refund(ctx context.Context, paymentIntentID string, idempotencyKey string) error
}

type CalendarProvider interface {
	CreateMeeting(ctx context.Context, creds calendar.Credentials, req calendar.MeetingRequest) (*calendar.Meeting, error)
}

type Mailer interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// Notifier pushes a live event to every connection of the given users.
type Notifier interface {
	Notify(userIDs []int64, event string, payload any)
}

const (
	NotificationSessionBooked    = "session.booked"
	NotificationSessionUpdated   = "session.updated"
	NotificationEnrollmentActive = "enrollment.activated"
	NotificationEventRegistered  = "event.registered"
	NotificationRefundProcessed  = "refund.processed"
)

type noopNotifier struct{}

func (noopNotifier) Notify([]int64, string, any) {}
