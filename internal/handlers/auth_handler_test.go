package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/Nebulafr/Nebula-sub000/internal/auth"
	"github.com/Nebulafr/Nebula-sub000/internal/models"
	"github.com/Nebulafr/Nebula-sub000/internal/services"
	"github.com/gofiber/fiber/v2"
)

type stubAccountService struct {
	result        *services.AuthResult
	account       *services.Account
	err           error
	lastRegister  services.RegisterInput
	lastEmail     string
	lastPassword  string
	lastPrincipal auth.Principal
}

func (s *stubAccountService) Register(_ context.Context, input services.RegisterInput) (*services.AuthResult, error) {
	s.lastRegister = input
	return s.result, s.err
}

func (s *stubAccountService) Login(_ context.Context, email, password string) (*services.AuthResult, error) {
	s.lastEmail = email
	s.lastPassword = password
	return s.result, s.err
}

func (s *stubAccountService) Me(_ context.Context, principal auth.Principal) (*services.Account, error) {
	s.lastPrincipal = principal
	return s.account, s.err
}

func TestRegisterCreatesAccount(t *testing.T) {
	service := &stubAccountService{result: &services.AuthResult{
		Token: "signed",
		User:  &models.User{ID: 1, Email: "grace@example.com", Role: auth.RoleCoach},
	}}
	handler := NewAuthHandler(service, testLogger)

	app := fiber.New()
	app.Post("/api/auth/register", handler.Register)

	resp, body := doJSON(t, app, http.MethodPost, "/api/auth/register", `{
		"email": " grace@example.com ",
		"password": "correct-horse",
		"role": "coach",
		"fullName": "Grace Coach",
		"timezone": "Europe/Paris",
		"hourlyRate": 120
	}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%v)", resp.StatusCode, body)
	}
	if body["token"] != "signed" {
		t.Fatalf("expected token in response, got %v", body["token"])
	}
	if service.lastRegister.Email != "grace@example.com" || service.lastRegister.HourlyRate != 120 {
		t.Fatalf("unexpected register input: %+v", service.lastRegister)
	}
	if service.lastRegister.Timezone == nil || *service.lastRegister.Timezone != "Europe/Paris" {
		t.Fatalf("expected timezone to pass through, got %v", service.lastRegister.Timezone)
	}
}

func TestRegisterValidatesInput(t *testing.T) {
	cases := []struct {
		name  string
		body  string
		field string
	}{
		{name: "bad email", body: `{"email":"nope","password":"correct-horse","role":"student","fullName":"Ada"}`, field: "email"},
		{name: "short password", body: `{"email":"ada@example.com","password":"short","role":"student","fullName":"Ada"}`, field: "password"},
		{name: "admin role", body: `{"email":"ada@example.com","password":"correct-horse","role":"admin","fullName":"Ada"}`, field: "role"},
		{name: "unknown timezone", body: `{"email":"ada@example.com","password":"correct-horse","role":"student","fullName":"Ada","timezone":"Mars/Olympus"}`, field: "timezone"},
		{name: "negative rate", body: `{"email":"ada@example.com","password":"correct-horse","role":"coach","fullName":"Ada","hourlyRate":-5}`, field: "hourlyRate"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := NewAuthHandler(&stubAccountService{}, testLogger)
			app := fiber.New()
			app.Post("/api/auth/register", handler.Register)

			resp, body := doJSON(t, app, http.MethodPost, "/api/auth/register", tc.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", resp.StatusCode)
			}
			fields, _ := body["fields"].(map[string]any)
			if _, ok := fields[tc.field]; !ok {
				t.Fatalf("expected field error for %s, got %v", tc.field, body)
			}
		})
	}
}

func TestRegisterMapsDuplicateToConflict(t *testing.T) {
	handler := NewAuthHandler(&stubAccountService{err: services.Conflict("Email already registered")}, testLogger)
	app := fiber.New()
	app.Post("/api/auth/register", handler.Register)

	resp, _ := doJSON(t, app, http.MethodPost, "/api/auth/register",
		`{"email":"ada@example.com","password":"correct-horse","role":"student","fullName":"Ada"}`)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	service := &stubAccountService{err: services.Unauthorized("Invalid email or password")}
	handler := NewAuthHandler(service, testLogger)
	app := fiber.New()
	app.Post("/api/auth/login", handler.Login)

	resp, body := doJSON(t, app, http.MethodPost, "/api/auth/login", `{"email":"ada@example.com","password":"wrong"}`)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if body["error"] != "Invalid email or password" {
		t.Fatalf("unexpected error: %v", body["error"])
	}
	if service.lastPassword != "wrong" {
		t.Fatalf("expected password to reach the service")
	}
}

func TestMeReturnsAccount(t *testing.T) {
	service := &stubAccountService{account: &services.Account{
		User:    &models.User{ID: 42, Email: "ada@example.com", Role: auth.RoleStudent},
		Student: &models.Student{ID: 8, UserID: 42},
	}}
	handler := NewAuthHandler(service, testLogger)
	app := newAppAs(studentPrincipal())
	app.Get("/api/v1/me", handler.Me)

	resp, body := doJSON(t, app, http.MethodGet, "/api/v1/me", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastPrincipal.UserID != 42 {
		t.Fatalf("expected principal 42, got %d", service.lastPrincipal.UserID)
	}
	if _, ok := body["student"]; !ok {
		t.Fatalf("expected student profile in response, got %v", body)
	}
}

func TestMeRequiresPrincipal(t *testing.T) {
	service := &stubAccountService{account: &services.Account{User: &models.User{ID: 42}}}
	handler := NewAuthHandler(service, testLogger)
	app := newAppAs(auth.Principal{})
	app.Get("/api/v1/me", handler.Me)

	resp, body := doJSON(t, app, http.MethodGet, "/api/v1/me", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if body["error"] != "Invalid token" {
		t.Fatalf("unexpected error body %v", body)
	}
	if service.lastPrincipal.UserID != 0 {
		t.Fatalf("account lookup must not run without a principal")
	}
}
