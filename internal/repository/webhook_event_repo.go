package repository

import (
	"context"
	"encoding/json"

	"github.com/Nebulafr/Nebula-sub000/internal/models"
	"github.com/jackc/pgx/v5"
)

const webhookEventColumns = `
	id, provider_event_id, event_type, checkout_session_id, payload, status,
	last_error, attempts, received_at, processed_at
`

type RecordWebhookEventInput struct {
	ProviderEventID   string
	EventType         string
	CheckoutSessionID *string
	Payload           json.RawMessage
}

type WebhookEventRepository struct {
	db DBTX
}

func NewWebhookEventRepository(db DBTX) *WebhookEventRepository {
	return &WebhookEventRepository{db: db}
}

func scanWebhookEvent(row pgx.Row) (*models.WebhookEvent, error) {
	var event models.WebhookEvent
	var payload []byte
	err := row.Scan(
		&event.ID,
		&event.ProviderEventID,
		&event.EventType,
		&event.CheckoutSessionID,
		&payload,
		&event.Status,
		&event.LastError,
		&event.Attempts,
		&event.ReceivedAt,
		&event.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}
	event.Payload = payload
	return &event, nil
}

// Record stores a delivery, or bumps the attempt counter when the provider
// redelivers an event already on file.
func (r *WebhookEventRepository) Record(ctx context.Context, input RecordWebhookEventInput) (*models.WebhookEvent, error) {
	query := `
		INSERT INTO payment_webhook_events (provider_event_id, event_type, checkout_session_id, payload, attempts)
		VALUES ($1, $2, $3, $4, 1)
		ON CONFLICT (provider_event_id) DO UPDATE
		SET attempts = payment_webhook_events.attempts + 1
		RETURNING ` + webhookEventColumns
	return scanWebhookEvent(r.db.QueryRow(
		ctx,
		query,
		input.ProviderEventID,
		input.EventType,
		input.CheckoutSessionID,
		[]byte(input.Payload),
	))
}

func (r *WebhookEventRepository) MarkProcessed(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE payment_webhook_events
		SET status = 'processed', last_error = NULL, processed_at = NOW()
		WHERE id = $1
	`, id)
	return err
}

func (r *WebhookEventRepository) MarkFailed(ctx context.Context, id int64, reason string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE payment_webhook_events
		SET status = 'failed', last_error = $2
		WHERE id = $1
	`, id, reason)
	return err
}

func (r *WebhookEventRepository) IncrementAttempts(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE payment_webhook_events
		SET attempts = attempts + 1
		WHERE id = $1
	`, id)
	return err
}

func (r *WebhookEventRepository) ListRetryable(ctx context.Context, maxAttempts int, limit int) ([]models.WebhookEvent, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+webhookEventColumns+`
		FROM payment_webhook_events
		WHERE status = 'failed' AND attempts < $1
		ORDER BY received_at ASC
		LIMIT $2
	`, maxAttempts, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]models.WebhookEvent, 0)
	for rows.Next() {
		event, err := scanWebhookEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}
