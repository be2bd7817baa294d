package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"festival-ticketing/config"
	"festival-ticketing/handlers"
	"festival-ticketing/logger"
	"festival-ticketing/middleware"
	"festival-ticketing/models"
	"festival-ticketing/services"
	"festival-ticketing/utils"
	"festival-ticketing/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.FromEnv()
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	log := logger.WithComponent("main")
	if envErr != nil {
		log.Warn("no .env file found, reading environment variables directly")
	}
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	for _, w := range cfg.Warnings {
		log.Warn(w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := db.AutoMigrate(
		&models.Unit{},
		&models.SubEvent{},
		&models.Registration{},
		&models.Ticket{},
		&models.UnitSetting{},
		&models.Info{},
		&models.User{},
	); err != nil {
		log.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	userService := services.NewUserService(db)
	if err := userService.EnsureBootstrapAdmin(ctx, cfg.BootstrapAdminEmail, cfg.BootstrapAdminPassword); err != nil {
		log.Error("failed to bootstrap admin user", "error", err)
		os.Exit(1)
	}

	// Payment proofs and info images go to R2 when configured, else local disk.
	var uploader utils.Uploader
	if cfg.R2Enabled() {
		r2, err := utils.NewR2Uploader(ctx, utils.R2Config{
			AccountID:       cfg.CloudflareAccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			AccessKeySecret: cfg.R2AccessKeySecret,
			Bucket:          cfg.R2BucketName,
			CDNBaseURL:      cfg.CDNBaseURL,
		})
		if err != nil {
			log.Error("failed to initialize R2 client", "error", err)
			os.Exit(1)
		}
		uploader = r2
	} else {
		local, err := utils.NewLocalUploader(cfg.UploadDir, "/uploads")
		if err != nil {
			log.Error("failed to ensure upload dir", "error", err)
			os.Exit(1)
		}
		uploader = local
		log.Warn("R2 not configured, storing uploads on local disk", "dir", cfg.UploadDir)
	}

	var mailer services.Mailer
	switch cfg.MailDriver {
	case config.MailDriverRelay:
		if cfg.EmailRelayURL == "" {
			log.Error("MAIL_DRIVER=relay but EMAIL_RELAY_URL is empty; emails will fail")
		}
		mailer = services.NewRelayMailer(cfg.EmailRelayURL)
	case config.MailDriverSMTP:
		mailer = services.NewSMTPMailer(services.SMTPConfig{
			Host:        cfg.SMTPHost,
			Port:        cfg.SMTPPort,
			Username:    cfg.SMTPUsername,
			Password:    cfg.SMTPPassword,
			FromAddress: cfg.SMTPFrom,
		})
	default:
		mailer = services.NewLogMailer()
	}
	// The dispatcher outlives ctx so requests still in flight at shutdown
	// can queue their emails before the final drain.
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	dispatcher := workers.NewMailDispatcher(mailer, cfg.MailQueueSize)
	dispatcher.Start(dispatchCtx)

	links := services.TicketLinks{BaseURL: cfg.BaseURL, QRBaseURL: cfg.QRBaseURL}
	notifier := services.NewNotifier(dispatcher, cfg.AdminNotificationEmail, cfg.EmailDisplayName, links)

	capacityService := services.NewCapacityService(db)
	registrationService := services.NewRegistrationService(db, capacityService, notifier, uploader)
	registrationService.Strict = cfg.StrictCapacity
	ticketService := services.NewTicketService(db, links)
	unitService := services.NewUnitService(db)
	infoService := services.NewInfoService(db, uploader)

	scheduler, err := infoService.StartPublishScheduler(ctx, time.Minute)
	if err != nil {
		log.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 15 * 1024 * 1024,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	handlers.SetupPublicRoutes(app, unitService, capacityService, registrationService, ticketService, infoService)
	handlers.SetupAdminRoutes(app, middleware.AdminAuth(db), unitService, registrationService, ticketService, infoService, userService)

	if !cfg.R2Enabled() {
		app.Static("/uploads", cfg.UploadDir)
	}

	go func() {
		if err := app.Listen(cfg.HTTPAddr); err != nil {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	log.Info("server running",
		"addr", cfg.HTTPAddr,
		"mail_driver", cfg.MailDriver,
		"strict_capacity", cfg.StrictCapacity,
		"origins", cfg.AllowedOrigins)

	<-ctx.Done()
	log.Info("shutting down server")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error("server shutdown failed", "error", err)
	}
	if err := scheduler.Shutdown(); err != nil {
		log.Error("scheduler shutdown failed", "error", err)
	}
	stopDispatch()
	<-dispatcher.Done()
	log.Info("mail queue drained")
}
