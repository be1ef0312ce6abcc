package handlers

import (
	"context"

	"github.com/Nebulafr/Nebula-sub000/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type refundService interface {
	ProcessRefund(ctx context.Context, refundType string, id int64) (*services.RefundResult, error)
}

type RefundHandler struct {
	service refundService
	logger  *logrus.Logger
}

func NewRefundHandler(service refundService, logger *logrus.Logger) *RefundHandler {
	return &RefundHandler{service: service, logger: logger}
}

type refundRequest struct {
	Type string `json:"type" validate:"required,oneof=PROGRAM SESSION EVENT program session event"`
	ID   int64  `json:"id" validate:"required,gt=0"`
}

func (h *RefundHandler) ProcessRefund(c *fiber.Ctx) error {
	var req refundRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}

	result, err := h.service.ProcessRefund(c.Context(), req.Type, req.ID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(fiber.Map{
		"message": "Refund processed",
		"refund":  result,
	})
}
