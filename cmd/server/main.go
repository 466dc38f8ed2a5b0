package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"airstream/config"
	_ "airstream/docs"
	"airstream/internal/adapters/auth"
	"airstream/internal/adapters/email"
	delivery "airstream/internal/delivery/http"
	"airstream/internal/delivery/http/controllers"
	"airstream/internal/delivery/http/middleware"
	"airstream/internal/repository/postgres"
	"airstream/internal/services"
)

const serviceTimeout = 5 * time.Second

// @title Airstream API
// @version 1.0
// @description Event management backend: event requests, approvals, speaker profiles, and calendar feeds.
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("loading config: " + err.Error() + "\n")
		os.Exit(1)
	}
	logger := config.NewLogger()
	logger.Info("starting airstream", "environment", cfg.Environment)

	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		logger.Error("opening database", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Error("pinging database", "err", err)
		os.Exit(1)
	}
	if err := postgres.RunMigrations(cfg.DBUrl); err != nil {
		logger.Error("running migrations", "err", err)
		os.Exit(1)
	}

	// Repositories
	eventRepo := postgres.NewEventRepository(db)
	approvalRepo := postgres.NewApprovalRepository(db)
	participantRepo := postgres.NewParticipantRepository(db)
	userRepo := postgres.NewUserRepository(db)
	groupRepo := postgres.NewGroupRepository(db)
	tagRepo := postgres.NewTagRepository(db)
	categoryRepo := postgres.NewCategoryRepository(db)
	templateRepo := postgres.NewTemplateRepository(db)
	locationRepo := postgres.NewLocationRepository(db)

	// Adapters
	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.EmailProvider,
		FromAddress: cfg.EmailFromAddress,
		FromName:    cfg.EmailFromName,
		SES: email.SESConfig{
			Region:          cfg.SESRegion,
			AccessKeyID:     cfg.SESAccessKeyID,
			SecretAccessKey: cfg.SESSecretKey,
		},
	})
	if err != nil {
		logger.Error("creating mailer", "err", err)
		os.Exit(1)
	}
	renderer := email.NewTemplateRenderer()
	hasher := auth.NewBcryptHasher(10)
	issuer := auth.NewJWTIssuer(cfg.JWTSecret)
	verifier := auth.NewJWTVerifier(cfg.JWTSecret)

	// Services
	emailSvc := services.NewEmailService(mailer, renderer)
	approvalSvc := services.NewApprovalService(approvalRepo, groupRepo, userRepo, emailSvc, cfg.BaseURL, logger, serviceTimeout)
	eventSvc := services.NewEventService(eventRepo, participantRepo, tagRepo, approvalSvc, cfg.LiveMargin, serviceTimeout)
	participantSvc := services.NewParticipantService(participantRepo, eventRepo, userRepo, emailSvc, cfg.BaseURL, serviceTimeout)
	referenceSvc := services.NewReferenceService(categoryRepo, templateRepo, locationRepo, tagRepo, serviceTimeout)
	userSvc := services.NewUserService(userRepo, groupRepo, hasher, issuer, cfg.TokenExpiry, serviceTimeout)
	calendarSvc := services.NewCalendarService(eventRepo, locationRepo, cfg.LiveMargin, serviceTimeout)

	mux := delivery.NewRouter(delivery.Controllers{
		Auth:         controllers.NewAuthController(logger, userSvc),
		Events:       controllers.NewEventController(logger, eventSvc, userSvc, tagRepo, participantRepo),
		Approvals:    controllers.NewApprovalController(logger, approvalSvc, userSvc),
		Participants: controllers.NewParticipantController(logger, participantSvc, userSvc),
		Reference:    controllers.NewReferenceController(logger, referenceSvc, userSvc),
		Calendar:     controllers.NewCalendarController(logger, calendarSvc, userSvc),
		Users:        controllers.NewUserController(logger, userSvc),
	}, verifier, logger)

	handler := middleware.CORS(cfg.CORSAllowedOrigins, middleware.LoggingMiddleware(logger, mux))

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown", "err", err)
	}
}
