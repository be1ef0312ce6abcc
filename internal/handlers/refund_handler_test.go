package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/Nebulafr/Nebula-sub000/internal/auth"
	"github.com/Nebulafr/Nebula-sub000/internal/services"
)

type stubRefundService struct {
	result   *services.RefundResult
	err      error
	lastType string
	lastID   int64
}

func (s *stubRefundService) ProcessRefund(_ context.Context, refundType string, id int64) (*services.RefundResult, error) {
	s.lastType = refundType
	s.lastID = id
	return s.result, s.err
}

func newRefundFixture() (*stubRefundService, *RefundHandler) {
	service := &stubRefundService{}
	return service, NewRefundHandler(service, testLogger)
}

func TestProcessRefundReturnsResult(t *testing.T) {
	service, handler := newRefundFixture()
	service.result = &services.RefundResult{
		Type:          services.RefundSession,
		ID:            14,
		Status:        "CANCELLED",
		PaymentStatus: "REFUNDED",
	}
	app := newAppAs(auth.Principal{UserID: 1, Role: auth.RoleAdmin})
	app.Post("/api/v1/refunds", handler.ProcessRefund)

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/refunds", `{"type":"session","id":14}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d (%v)", resp.StatusCode, body)
	}
	if service.lastType != "session" || service.lastID != 14 {
		t.Fatalf("unexpected refund call: %q %d", service.lastType, service.lastID)
	}
	refund, _ := body["refund"].(map[string]any)
	if refund["paymentStatus"] != "REFUNDED" {
		t.Fatalf("unexpected refund body: %v", body)
	}
}

func TestProcessRefundRejectsUnknownType(t *testing.T) {
	service, handler := newRefundFixture()
	app := newAppAs(auth.Principal{UserID: 1, Role: auth.RoleAdmin})
	app.Post("/api/v1/refunds", handler.ProcessRefund)

	resp, _ := doJSON(t, app, http.MethodPost, "/api/v1/refunds", `{"type":"coupon","id":14}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if service.lastID != 0 {
		t.Fatal("service should not be called")
	}
}

func TestProcessRefundMapsNoPayment(t *testing.T) {
	service, handler := newRefundFixture()
	service.err = services.BadRequest("No payment found for this session")
	app := newAppAs(auth.Principal{UserID: 1, Role: auth.RoleAdmin})
	app.Post("/api/v1/refunds", handler.ProcessRefund)

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/refunds", `{"type":"SESSION","id":14}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if body["error"] != "No payment found for this session" {
		t.Fatalf("unexpected error: %v", body["error"])
	}
}
