package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Nebulafr/Nebula-sub000/internal/models"
	"github.com/Nebulafr/Nebula-sub000/internal/payments"
	"github.com/Nebulafr/Nebula-sub000/internal/repository"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const (
	webhookLockTTL     = 5 * time.Minute
	webhookReplayBatch = 50
	webhookReplayLimit = 4 * time.Minute
)

type checkoutReconciler interface {
	HandleCheckoutCompleted(ctx context.Context, checkout payments.CompletedCheckout) error
}

// WebhookService records provider events before reconciling them, so failed
// deliveries can be replayed from the stored payload.
type WebhookService struct {
	store       repository.Store
	reconciler  checkoutReconciler
	locker      Locker
	maxAttempts int
	decode      func(payload []byte) (*payments.Event, error)
	logger      *logrus.Logger
}

func NewWebhookService(
	store repository.Store,
	reconciler checkoutReconciler,
	locker Locker,
	maxAttempts int,
	logger *logrus.Logger,
) *WebhookService {
	if locker == nil {
		locker = noopLocker{}
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &WebhookService{
		store:       store,
		reconciler:  reconciler,
		locker:      locker,
		maxAttempts: maxAttempts,
		decode:      payments.DecodeEvent,
		logger:      logger,
	}
}

// Process handles one verified delivery. A returned error means the provider
// should redeliver.
func (s *WebhookService) Process(ctx context.Context, event *payments.Event) error {
	entry := s.logger.WithFields(logrus.Fields{
		"event_id":   event.ID,
		"event_type": event.Type,
	})
	if event.Type != payments.EventCheckoutCompleted {
		entry.Debug("Ignoring webhook event type")
		return nil
	}
	if event.Checkout == nil {
		entry.Warn("Checkout event without session payload")
		return nil
	}

	checkoutSessionID := event.Checkout.SessionID
	record, err := s.store.WebhookEvents().Record(ctx, repository.RecordWebhookEventInput{
		ProviderEventID:   event.ID,
		EventType:         event.Type,
		CheckoutSessionID: &checkoutSessionID,
		Payload:           event.Raw,
	})
	if err != nil {
		return fmt.Errorf("record webhook event: %w", err)
	}
	if record.Status == models.WebhookEventProcessed {
		entry.Info("Webhook event already processed")
		return nil
	}

	return s.apply(ctx, record, *event.Checkout)
}

func (s *WebhookService) apply(ctx context.Context, record *models.WebhookEvent, checkout payments.CompletedCheckout) error {
	entry := s.logger.WithFields(logrus.Fields{
		"event_id":            record.ProviderEventID,
		"checkout_session_id": checkout.SessionID,
		"attempts":            record.Attempts,
	})

	lockKey := "webhook:" + record.ProviderEventID
	acquired, err := s.locker.Acquire(ctx, lockKey, webhookLockTTL)
	switch {
	case err != nil:
		entry.WithError(err).Warn("Webhook lock unavailable, processing without it")
	case !acquired:
		entry.Info("Webhook event is being processed elsewhere")
		return nil
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), lockKey); err != nil {
			entry.WithError(err).Warn("Failed to release webhook lock")
		}
	}()

	if err := s.reconciler.HandleCheckoutCompleted(ctx, checkout); err != nil {
		if markErr := s.store.WebhookEvents().MarkFailed(context.WithoutCancel(ctx), record.ID, err.Error()); markErr != nil {
			entry.WithError(markErr).Error("Failed to mark webhook event failed")
		}
		return fmt.Errorf("reconcile checkout %s: %w", checkout.SessionID, err)
	}

	if err := s.store.WebhookEvents().MarkProcessed(ctx, record.ID); err != nil {
		return fmt.Errorf("mark webhook event processed: %w", err)
	}
	return nil
}

// ReplayFailed re-runs reconciliation for stored failed events that have not
// used up their attempts. It returns how many succeeded.
func (s *WebhookService) ReplayFailed(ctx context.Context) (int, error) {
	events, err := s.store.WebhookEvents().ListRetryable(ctx, s.maxAttempts, webhookReplayBatch)
	if err != nil {
		return 0, err
	}

	replayed := 0
	for i := range events {
		record := &events[i]
		if err := s.store.WebhookEvents().IncrementAttempts(ctx, record.ID); err != nil {
			return replayed, err
		}
		record.Attempts++

		event, err := s.decode(record.Payload)
		if err == nil && event.Checkout == nil {
			err = fmt.Errorf("stored event %s has no checkout payload", record.ProviderEventID)
		}
		if err != nil {
			_ = s.store.WebhookEvents().MarkFailed(ctx, record.ID, err.Error())
			s.logger.WithError(err).WithField("event_id", record.ProviderEventID).Warn("Cannot replay webhook event")
			continue
		}

		if err := s.apply(ctx, record, *event.Checkout); err != nil {
			s.logger.WithError(err).WithField("event_id", record.ProviderEventID).Warn("Webhook replay failed")
			continue
		}
		replayed++
	}
	return replayed, nil
}

// RegisterReplayJob schedules ReplayFailed. An empty schedule disables it.
func (s *WebhookService) RegisterReplayJob(scheduler *cron.Cron, schedule string) error {
	if schedule == "" {
		return nil
	}
	_, err := scheduler.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), webhookReplayLimit)
		defer cancel()

		replayed, err := s.ReplayFailed(ctx)
		if err != nil {
			s.logger.WithError(err).Error("Webhook replay run failed")
			return
		}
		if replayed > 0 {
			s.logger.WithField("replayed", replayed).Info("Replayed failed webhook events")
		}
	})
	return err
}
