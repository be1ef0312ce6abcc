package handlers

import (
	"context"

	"github.com/Nebulafr/Nebula-sub000/internal/payments"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type webhookParser interface {
	ParseWebhook(payload []byte, signature string) (*payments.Event, error)
}

type webhookProcessor interface {
	Process(ctx context.Context, event *payments.Event) error
}

type WebhookHandler struct {
	parser    webhookParser
	processor webhookProcessor
	logger    *logrus.Logger
}

// NewWebhookHandler builds the provider webhook endpoint. A nil parser means
// payments are not configured and every delivery is answered with 503.
func NewWebhookHandler(parser webhookParser, processor webhookProcessor, logger *logrus.Logger) *WebhookHandler {
	return &WebhookHandler{parser: parser, processor: processor, logger: logger}
}

func (h *WebhookHandler) HandleStripe(c *fiber.Ctx) error {
	if h.parser == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Payments are not configured"})
	}

	// fiber reuses the body buffer after the handler returns.
	payload := append([]byte(nil), c.Body()...)

	event, err := h.parser.ParseWebhook(payload, c.Get("Stripe-Signature"))
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"request_id": c.Locals("request_id"),
			"error":      err.Error(),
		}).Warn("Rejected webhook delivery")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid webhook signature"})
	}

	if err := h.processor.Process(c.Context(), event); err != nil {
		h.logger.WithFields(logrus.Fields{
			"event_id":   event.ID,
			"event_type": event.Type,
			"error":      err.Error(),
		}).Error("Webhook processing failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Webhook processing failed"})
	}

	return c.JSON(fiber.Map{"received": true})
}
