package handlers

import (
	"context"

	"github.com/Nebulafr/Nebula-sub000/internal/auth"
	"github.com/Nebulafr/Nebula-sub000/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type checkoutService interface {
	CreateProgramCheckout(ctx context.Context, principal auth.Principal, input services.ProgramCheckoutInput) (*services.CheckoutResult, error)
	CreateSessionCheckout(ctx context.Context, principal auth.Principal, input services.SessionCheckoutInput) (*services.CheckoutResult, error)
	CreateEventCheckout(ctx context.Context, principal auth.Principal, input services.EventCheckoutInput) (*services.CheckoutResult, error)
}

type CheckoutHandler struct {
	service checkoutService
	logger  *logrus.Logger
}

func NewCheckoutHandler(service checkoutService, logger *logrus.Logger) *CheckoutHandler {
	return &CheckoutHandler{service: service, logger: logger}
}

type redirectURLs struct {
	SuccessURL string `json:"successUrl" validate:"omitempty,url"`
	CancelURL  string `json:"cancelUrl" validate:"omitempty,url"`
}

type programCheckoutRequest struct {
	ProgramID int64  `json:"programId" validate:"required,gt=0"`
	CohortID  *int64 `json:"cohortId" validate:"omitempty,gt=0"`
	redirectURLs
}

type sessionCheckoutRequest struct {
	bookSessionRequest
	redirectURLs
}

type eventCheckoutRequest struct {
	EventID int64 `json:"eventId" validate:"required,gt=0"`
	redirectURLs
}

func (h *CheckoutHandler) ProgramCheckout(c *fiber.Ctx) error {
	principal, ok := requirePrincipal(c)
	if !ok {
		return invalidToken(c)
	}

	var req programCheckoutRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}

	result, err := h.service.CreateProgramCheckout(c.Context(), principal, services.ProgramCheckoutInput{
		ProgramID:  req.ProgramID,
		CohortID:   req.CohortID,
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(result)
}

func (h *CheckoutHandler) SessionCheckout(c *fiber.Ctx) error {
	principal, ok := requirePrincipal(c)
	if !ok {
		return invalidToken(c)
	}

	var req sessionCheckoutRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}

	result, err := h.service.CreateSessionCheckout(c.Context(), principal, services.SessionCheckoutInput{
		Booking:    req.toInput(),
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(result)
}

func (h *CheckoutHandler) EventCheckout(c *fiber.Ctx) error {
	principal, ok := requirePrincipal(c)
	if !ok {
		return invalidToken(c)
	}

	var req eventCheckoutRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}

	result, err := h.service.CreateEventCheckout(c.Context(), principal, services.EventCheckoutInput{
		EventID:    req.EventID,
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(result)
}
