package handlers

import (
	"github.com/Nebulafr/Nebula-sub000/internal/auth"
	notifyws "github.com/Nebulafr/Nebula-sub000/internal/websocket"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// NotificationHandler streams session and payment notifications to a
// connected user.
type NotificationHandler struct {
	hub    *notifyws.Hub
	logger *logrus.Logger
}

func NewNotificationHandler(hub *notifyws.Hub, logger *logrus.Logger) *NotificationHandler {
	return &NotificationHandler{hub: hub, logger: logger}
}

func (h *NotificationHandler) RequireUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{"error": "WebSocket upgrade required"})
	}
	return c.Next()
}

func (h *NotificationHandler) HandleWebSocket(conn *websocket.Conn) {
	principal, ok := auth.FromLocal(conn.Locals(auth.LocalsKey))
	if !ok {
		_ = conn.Close()
		return
	}

	client := notifyws.NewClient(h.hub, conn, principal.UserID)
	if !h.hub.Register(client) {
		_ = conn.Close()
		return
	}
	h.logger.WithField("user_id", principal.UserID).Debug("Notification stream opened")

	go client.WritePump()
	client.ReadPump()
}
