package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	notifyws "github.com/Nebulafr/Nebula-sub000/internal/websocket"
	"github.com/gofiber/fiber/v2"
)

func TestNotificationStreamRequiresUpgrade(t *testing.T) {
	handler := NewNotificationHandler(notifyws.NewHub(testLogger), testLogger)

	app := fiber.New()
	app.Get("/api/v1/ws", handler.RequireUpgrade, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/ws", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUpgradeRequired {
		t.Fatalf("expected 426, got %d", resp.StatusCode)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ws", nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected upgrade requests to pass through, got %d", resp.StatusCode)
	}
}
