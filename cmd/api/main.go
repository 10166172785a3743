package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-evidence-api/internal/config"
	"github.com/noah-isme/gema-evidence-api/internal/database"
	"github.com/noah-isme/gema-evidence-api/internal/events"
	"github.com/noah-isme/gema-evidence-api/internal/handler"
	"github.com/noah-isme/gema-evidence-api/internal/middleware"
	"github.com/noah-isme/gema-evidence-api/internal/render"
	"github.com/noah-isme/gema-evidence-api/internal/repository"
	"github.com/noah-isme/gema-evidence-api/internal/router"
	"github.com/noah-isme/gema-evidence-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()

	db, err := database.Connect(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis disabled: outline cache and redis notifications are off")
	}

	natsConn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName)
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	if natsConn != nil {
		defer natsConn.Close()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	courseRepo := repository.NewCourseRepository(db)
	userRepo := repository.NewUserRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	completionRepo := repository.NewCompletionRepository(db)
	metaRepo := repository.NewUserMetaRepository(db)
	attemptRepo := repository.NewQuizAttemptRepository(metaRepo)
	activityRepo := repository.NewActivityLogRepository(db)

	publisher := events.NewFanoutPublisher(redisClient, cfg.RedisChannel, natsConn, cfg.NATSSubject)

	activityService := service.NewActivityService(activityRepo, logger)
	outlineService := service.NewCourseOutlineService(courseRepo, redisClient, cfg.OutlineCacheTTL, logger)
	reportService := service.NewReportService(userRepo, courseRepo, completionRepo, attemptRepo, outlineService, cfg.EvidenceTag, logger)
	accessDateService := service.NewAccessDateService(userRepo, enrollmentRepo, metaRepo, activityService, publisher, logger)
	checkboxService := service.NewCheckboxService(courseRepo, completionRepo, metaRepo, activityService, logger)
	directoryService := service.NewStudentDirectoryService(userRepo, enrollmentRepo, courseRepo, completionRepo, metaRepo, cfg.ReportURL, cfg.DateLayout, logger)

	bus := events.NewBus(logger)
	bus.Subscribe(service.AccessDateHandlers(accessDateService)...)

	renderer, err := render.NewHTMLRenderer(cfg.DateLayout)
	if err != nil {
		log.Fatalf("failed to load report template: %v", err)
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AllowOrigins: cfg.CORSOrigins})
	router.Register(app, cfg, router.Dependencies{
		ReportHandler:           handler.NewReportHandler(reportService, renderer, validate, logger),
		StudentDirectoryHandler: handler.NewStudentDirectoryHandler(directoryService, validate, logger),
		AccessDateHandler:       handler.NewAccessDateHandler(accessDateService, logger),
		ActivityHandler:         handler.NewActivityHandler(activityService, logger),
		HookHandler:             handler.NewHookHandler(bus, validate, logger),
		CheckboxHandler:         handler.NewCheckboxHandler(checkboxService, validate, logger),
		JWTMiddleware:           middleware.JWTProtected(cfg.JWTSecret),
		LearnerRateLimit:        middleware.RateLimit("learn", cfg.LearnerRateMax, cfg.LearnerRateWin),
		HookRateLimit:           middleware.RateLimit("hooks", cfg.HookRateMax, cfg.LearnerRateWin),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	startEventSource(ctx, natsConn, cfg.NATSHostSubject, bus, logger)

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, cancel)
}

func startEventSource(ctx context.Context, conn *nats.Conn, subject string, bus *events.Bus, logger zerolog.Logger) {
	if conn == nil || subject == "" {
		logger.Info().Msg("nats event source disabled")
		return
	}
	source := events.NewNATSSource(conn, subject, bus, logger)
	if err := source.Start(ctx); err != nil {
		log.Fatalf("failed to subscribe to host events: %v", err)
	}
}

func waitForShutdown(app *fiber.App, stopSources context.CancelFunc) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()
	stopSources()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
