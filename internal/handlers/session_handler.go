package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/Nebulafr/Nebula-sub000/internal/auth"
	"github.com/Nebulafr/Nebula-sub000/internal/models"
	"github.com/Nebulafr/Nebula-sub000/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type sessionBooker interface {
	BookSession(ctx context.Context, principal auth.Principal, input services.BookSessionInput) (*services.BookingResult, error)
}

type sessionManager interface {
	ListSessions(ctx context.Context, principal auth.Principal, query services.SessionListQuery) ([]models.Session, int, error)
	GetSession(ctx context.Context, principal auth.Principal, sessionID int64) (*models.SessionDetail, error)
	CancelSession(ctx context.Context, principal auth.Principal, sessionID int64) (*models.Session, error)
	RescheduleSession(ctx context.Context, principal auth.Principal, sessionID int64, input services.RescheduleInput) (*models.Session, error)
	UpdateStatus(ctx context.Context, principal auth.Principal, sessionID int64, requestedStatus string) (*models.Session, error)
	CheckAvailability(ctx context.Context, query services.AvailabilityQuery) (bool, error)
}

type SessionHandler struct {
	booking  sessionBooker
	sessions sessionManager
	logger   *logrus.Logger
}

func NewSessionHandler(booking sessionBooker, sessions sessionManager, logger *logrus.Logger) *SessionHandler {
	return &SessionHandler{booking: booking, sessions: sessions, logger: logger}
}

type bookSessionRequest struct {
	CoachID   int64   `json:"coachId" validate:"required,gt=0"`
	Date      string  `json:"date" validate:"required"`
	StartTime string  `json:"startTime" validate:"required"`
	Duration  int     `json:"duration" validate:"omitempty,min=15,max=480"`
	Timezone  string  `json:"timezone"`
	Title     string  `json:"title" validate:"max=200"`
	Notes     *string `json:"notes"`
}

type rescheduleRequest struct {
	Date      string `json:"date" validate:"required"`
	StartTime string `json:"startTime" validate:"required"`
	Duration  int    `json:"duration" validate:"omitempty,min=15,max=480"`
	Timezone  string `json:"timezone"`
}

type updateSessionStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (r bookSessionRequest) toInput() services.BookSessionInput {
	return services.BookSessionInput{
		CoachID:   r.CoachID,
		Date:      strings.TrimSpace(r.Date),
		StartTime: strings.TrimSpace(r.StartTime),
		Duration:  r.Duration,
		Timezone:  strings.TrimSpace(r.Timezone),
		Title:     strings.TrimSpace(r.Title),
		Notes:     r.Notes,
	}
}

func (h *SessionHandler) BookSession(c *fiber.Ctx) error {
	principal, ok := requirePrincipal(c)
	if !ok {
		return invalidToken(c)
	}

	var req bookSessionRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}

	result, err := h.booking.BookSession(c.Context(), principal, req.toInput())
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}

func (h *SessionHandler) ListSessions(c *fiber.Ctx) error {
	principal, ok := requirePrincipal(c)
	if !ok {
		return invalidToken(c)
	}

	page, limit, ok := parsePagination(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "page and limit must be positive integers"})
	}

	timeframe := strings.ToLower(strings.TrimSpace(c.Query("timeframe")))
	if timeframe != "" && timeframe != "upcoming" && timeframe != "past" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "timeframe must be upcoming or past"})
	}

	sessions, total, err := h.sessions.ListSessions(c.Context(), principal, services.SessionListQuery{
		Status:    strings.ToUpper(strings.TrimSpace(c.Query("status"))),
		Timeframe: timeframe,
		Limit:     limit,
		Offset:    (page - 1) * limit,
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(fiber.Map{
		"sessions":   sessions,
		"pagination": buildPaginationMeta(page, limit, total),
	})
}

func (h *SessionHandler) GetSession(c *fiber.Ctx) error {
	principal, ok := requirePrincipal(c)
	if !ok {
		return invalidToken(c)
	}
	sessionID, ok := parseID(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	detail, err := h.sessions.GetSession(c.Context(), principal, sessionID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(detail)
}

func (h *SessionHandler) CancelSession(c *fiber.Ctx) error {
	principal, ok := requirePrincipal(c)
	if !ok {
		return invalidToken(c)
	}
	sessionID, ok := parseID(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	session, err := h.sessions.CancelSession(c.Context(), principal, sessionID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(session)
}

func (h *SessionHandler) RescheduleSession(c *fiber.Ctx) error {
	principal, ok := requirePrincipal(c)
	if !ok {
		return invalidToken(c)
	}
	sessionID, ok := parseID(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	var req rescheduleRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}

	session, err := h.sessions.RescheduleSession(c.Context(), principal, sessionID, services.RescheduleInput{
		Date:      strings.TrimSpace(req.Date),
		StartTime: strings.TrimSpace(req.StartTime),
		Duration:  req.Duration,
		Timezone:  strings.TrimSpace(req.Timezone),
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(session)
}

func (h *SessionHandler) UpdateStatus(c *fiber.Ctx) error {
	principal, ok := requirePrincipal(c)
	if !ok {
		return invalidToken(c)
	}
	sessionID, ok := parseID(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	var req updateSessionStatusRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}

	session, err := h.sessions.UpdateStatus(c.Context(), principal, sessionID, req.Status)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(session)
}

// CheckAvailability answers whether a coach is free for the given slot. The
// slot is passed as query parameters.
func (h *SessionHandler) CheckAvailability(c *fiber.Ctx) error {
	coachID, err := strconv.ParseInt(c.Query("coachId"), 10, 64)
	if err != nil || coachID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "coachId is required"})
	}
	date := strings.TrimSpace(c.Query("date"))
	startTime := strings.TrimSpace(c.Query("startTime"))
	if date == "" || startTime == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "date and startTime are required"})
	}

	duration := 0
	if raw := c.Query("duration"); raw != "" {
		duration, err = strconv.Atoi(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "duration must be a number of minutes"})
		}
	}

	available, err := h.sessions.CheckAvailability(c.Context(), services.AvailabilityQuery{
		CoachID:   coachID,
		Date:      date,
		StartTime: startTime,
		Duration:  duration,
		Timezone:  strings.TrimSpace(c.Query("timezone")),
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(fiber.Map{"available": available})
}
