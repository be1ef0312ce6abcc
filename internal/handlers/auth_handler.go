package handlers

import (
	"context"
	"strings"

	"github.com/Nebulafr/Nebula-sub000/internal/auth"
	"github.com/Nebulafr/Nebula-sub000/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type accountService interface {
	Register(ctx context.Context, input services.RegisterInput) (*services.AuthResult, error)
	Login(ctx context.Context, email, password string) (*services.AuthResult, error)
	Me(ctx context.Context, principal auth.Principal) (*services.Account, error)
}

type AuthHandler struct {
	service accountService
	logger  *logrus.Logger
}

func NewAuthHandler(service accountService, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{service: service, logger: logger}
}

type registerRequest struct {
	Email      string  `json:"email" validate:"required,email"`
	Password   string  `json:"password" validate:"required,min=8"`
	Role       string  `json:"role" validate:"required,oneof=student coach"`
	FullName   string  `json:"fullName" validate:"required,max=120"`
	Timezone   *string `json:"timezone" validate:"omitempty,timezone"`
	HourlyRate float64 `json:"hourlyRate" validate:"gte=0"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}

	result, err := h.service.Register(c.Context(), services.RegisterInput{
		Email:      strings.TrimSpace(req.Email),
		Password:   req.Password,
		Role:       req.Role,
		FullName:   strings.TrimSpace(req.FullName),
		Timezone:   req.Timezone,
		HourlyRate: req.HourlyRate,
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}

	result, err := h.service.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(result)
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	principal, ok := requirePrincipal(c)
	if !ok {
		return invalidToken(c)
	}

	account, err := h.service.Me(c.Context(), principal)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(account)
}
