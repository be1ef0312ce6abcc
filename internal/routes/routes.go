package routes

import (
	"fmt"

	"github.com/Nebulafr/Nebula-sub000/internal/auth"
	"github.com/Nebulafr/Nebula-sub000/internal/calendar"
	"github.com/Nebulafr/Nebula-sub000/internal/config"
	"github.com/Nebulafr/Nebula-sub000/internal/handlers"
	"github.com/Nebulafr/Nebula-sub000/internal/mailer"
	"github.com/Nebulafr/Nebula-sub000/internal/middleware"
	"github.com/Nebulafr/Nebula-sub000/internal/payments"
	"github.com/Nebulafr/Nebula-sub000/internal/repository"
	"github.com/Nebulafr/Nebula-sub000/internal/services"
	notifyws "github.com/Nebulafr/Nebula-sub000/internal/websocket"
	"github.com/go-redis/redis/v8"
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Dependencies are the process-wide resources the routes are built from.
// Redis and Scheduler are optional.
type Dependencies struct {
	Config    *config.Config
	Store     repository.Store
	Redis     *redis.Client
	Hub       *notifyws.Hub
	Tasks     services.TaskRunner
	Scheduler *cron.Cron
	Logger    *logrus.Logger
}

// RegisterRoutes builds every service once and mounts the HTTP surface.
func RegisterRoutes(app *fiber.App, deps Dependencies) error {
	cfg := deps.Config
	logger := deps.Logger

	var (
		provider     services.PaymentProvider
		stripeClient *payments.StripeClient
	)
	if cfg.PaymentsEnabled() {
		stripeClient = payments.NewStripeClient(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
		provider = stripeClient
	} else {
		logger.Warn("STRIPE_SECRET_KEY not set, paid checkouts and refunds are disabled")
	}

	var calendarProvider services.CalendarProvider
	if cfg.CalendarEnabled() {
		calendarProvider = calendar.NewGoogleCalendar(cfg.GoogleClientID, cfg.GoogleClientSecret)
	}

	mail := mailer.NewSMTPMailer(mailer.SMTPConfig{
		Host:               cfg.SMTPHost,
		Port:               cfg.SMTPPort,
		User:               cfg.SMTPUser,
		Password:           cfg.SMTPPassword,
		From:               cfg.SMTPFrom,
		InsecureSkipVerify: cfg.InsecureSMTP(),
	}, logger)

	bookingService := services.NewBookingService(deps.Store, calendarProvider, mail, deps.Hub, deps.Tasks, logger)
	reconciler := services.NewReconciler(deps.Store, bookingService, mail, deps.Hub, deps.Tasks, logger)
	checkoutService := services.NewCheckoutService(
		deps.Store,
		bookingService,
		reconciler,
		provider,
		cfg.PaymentCurrency,
		cfg.AppURL,
		logger,
	)
	refundService := services.NewRefundService(deps.Store, provider, deps.Hub, deps.Tasks, logger)
	webhookService := services.NewWebhookService(
		deps.Store,
		reconciler,
		services.NewLocker(deps.Redis),
		cfg.WebhookMaxAttempts,
		logger,
	)
	sessionService := services.NewSessionService(deps.Store, deps.Hub, deps.Tasks, logger)
	accountService := services.NewAccountService(deps.Store, cfg.JWTSecret, logger)

	if deps.Scheduler != nil {
		if err := webhookService.RegisterReplayJob(deps.Scheduler, cfg.WebhookReplaySchedule); err != nil {
			return fmt.Errorf("register webhook replay job: %w", err)
		}
	}

	authHandler := handlers.NewAuthHandler(accountService, logger)
	sessionHandler := handlers.NewSessionHandler(bookingService, sessionService, logger)
	checkoutHandler := handlers.NewCheckoutHandler(checkoutService, logger)
	refundHandler := handlers.NewRefundHandler(refundService, logger)
	notificationHandler := handlers.NewNotificationHandler(deps.Hub, logger)

	webhookHandler := handlers.NewWebhookHandler(nil, webhookService, logger)
	if stripeClient != nil {
		webhookHandler = handlers.NewWebhookHandler(stripeClient, webhookService, logger)
	}

	api := app.Group("/api")

	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", authHandler.Register)
	authRoutes.Post("/login", authHandler.Login)
	authRoutes.Get("/me", middleware.AuthRequired(cfg.JWTSecret), authHandler.Me)

	api.Post("/webhooks/stripe", webhookHandler.HandleStripe)

	api.Use("/v1/ws", notificationHandler.RequireUpgrade, middleware.WebSocketAuth(cfg.JWTSecret))
	api.Get("/v1/ws", websocket.New(notificationHandler.HandleWebSocket))

	authProtected := api.Group("/v1", middleware.AuthRequired(cfg.JWTSecret))

	sessions := authProtected.Group("/sessions")
	sessions.Get("", sessionHandler.ListSessions)
	sessions.Get("/availability", sessionHandler.CheckAvailability)
	sessions.Post("/book", middleware.RequireRole(auth.RoleStudent), sessionHandler.BookSession)
	sessions.Get("/:id", sessionHandler.GetSession)
	sessions.Post("/:id/cancel", sessionHandler.CancelSession)
	sessions.Post("/:id/reschedule", sessionHandler.RescheduleSession)
	sessions.Put("/:id/status", middleware.RequireRole(auth.RoleCoach, auth.RoleAdmin), sessionHandler.UpdateStatus)

	checkout := authProtected.Group("/checkout", middleware.RequireRole(auth.RoleStudent))
	checkout.Post("/program", checkoutHandler.ProgramCheckout)
	checkout.Post("/session", checkoutHandler.SessionCheckout)
	checkout.Post("/event", checkoutHandler.EventCheckout)

	authProtected.Post("/refunds", middleware.RequireRole(auth.RoleAdmin), refundHandler.ProcessRefund)

	return nil
}
