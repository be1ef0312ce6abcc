package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/Nebulafr/Nebula-sub000/internal/config"
	"github.com/Nebulafr/Nebula-sub000/internal/database"
	"github.com/Nebulafr/Nebula-sub000/internal/logging"
	"github.com/Nebulafr/Nebula-sub000/internal/repository"
	"github.com/Nebulafr/Nebula-sub000/internal/routes"
	"github.com/Nebulafr/Nebula-sub000/internal/services"
	notifyws "github.com/Nebulafr/Nebula-sub000/internal/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to Database
	if cfg.DBUrl == "" {
		logger.Fatal("DB_URL is required")
	}
	if err := database.ConnectDB(ctx, cfg.DBUrl, logger); err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer database.CloseDB()

	redisClient := database.ConnectRedis(ctx, cfg.RedisURL, logger)
	defer database.CloseRedis()

	// 3. Background workers
	hub := notifyws.NewHub(logger)
	go hub.Run(ctx)

	tasks := services.NewAsyncTaskRunner(logger, cfg.SideEffectTimeout)
	scheduler := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))

	// 4. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName:      "nebula",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	})

	app.Use(recover.New())
	app.Use(logging.RequestLogger(logger))
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AppURL,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
		})
	})
	if err := routes.RegisterRoutes(app, routes.Dependencies{
		Config:    cfg,
		Store:     repository.NewStore(database.DB),
		Redis:     redisClient,
		Hub:       hub,
		Tasks:     tasks,
		Scheduler: scheduler,
		Logger:    logger,
	}); err != nil {
		logger.WithError(err).Fatal("Failed to register routes")
	}

	scheduler.Start()

	// 5. Start Server
	go func() {
		logger.WithFields(logrus.Fields{
			"port":     cfg.Port,
			"env":      cfg.AppEnv,
			"payments": cfg.PaymentsEnabled(),
			"calendar": cfg.CalendarEnabled(),
		}).Info("Server starting")
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.WithError(err).Error("Server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.WithError(err).Warn("HTTP shutdown did not finish cleanly")
	}
	<-scheduler.Stop().Done()
	tasks.Wait()
}
