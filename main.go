// File: stylo/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"stylo/config"
	"stylo/cron"
	"stylo/database"
	appointmentRepo "stylo/database/repository/appointment"
	catalogRepo "stylo/database/repository/catalog"
	clientRepo "stylo/database/repository/client"
	"stylo/handlers"
	"stylo/middleware"
	"stylo/routes"
	"stylo/services/availability"
	"stylo/services/booking"
	"stylo/services/identity"
	"stylo/services/notification"
	"stylo/services/otp"
	"stylo/services/tasks"
	"stylo/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

func main() {
	config.LoadConfig()
	cfg := config.AppConfig
	logger := utils.GetLogger()
	defer logger.Sync()

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.OTPDebugEcho && config.IsProduction() {
		logger.Warn("OTP_DEBUG_ECHO is ignored in production")
	}

	database.InitDB()
	utils.InitRedis()
	db := database.DB()

	// repositories.
	catalog := catalogRepo.NewMongoCatalogRepo(db, logger)
	clients := clientRepo.NewMongoClientRepo(db, logger)
	appointments := appointmentRepo.NewMongoAppointmentRepo(db, logger)

	// notifications.
	messenger := notification.NewMessenger(cfg.OTPProvider, cfg.MetaWhatsAppToken, cfg.MetaWhatsAppPhoneID, logger)
	mailer := notification.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom)
	var push notification.PushSender
	if fcm := utils.FirebaseInit(); fcm != nil {
		push = fcm
	}
	notificationService, err := notification.NewDefaultNotificationService(messenger, mailer, push, cfg.OTPExpiryMin, logger)
	if err != nil {
		logger.Fatal("main: failed to initialize notification service", zap.Error(err))
	}

	// task queue.
	queueClient := asynq.NewClient(cron.QueueRedisOpt())
	defer queueClient.Close()

	availabilityService := availability.NewAvailabilityService(catalog, appointments, cfg)
	bookingService := (&booking.DefaultBookingService{
		Sessions:      booking.NewSessionStore(utils.GetSessionCacheClient()),
		OTP:           otp.NewRedisStore(utils.GetOTPCacheClient(), otp.OptionsFromConfig(cfg), logger),
		Catalog:       catalog,
		Clients:       clients,
		Appointments:  appointments,
		Availability:  availabilityService,
		Registry:      identity.NewReniecClient(cfg.ReniecAPIURL, logger),
		Storage:       utils.Cloudinary(),
		Notifications: notificationService,
		Reminders:     &tasks.AsynqScheduler{Client: queueClient, Logger: logger},
		Logger:        logger,
	}).Settings(cfg)

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	worker := cron.StartReminderWorker(rootCtx, &tasks.ReminderHandler{
		Appointments:  appointments,
		Catalog:       catalog,
		Clients:       clients,
		Notifications: notificationService,
		Location:      cfg.Location(),
		Logger:        logger,
	})

	utils.StartHealthMonitor(rootCtx, 30*time.Second, map[string]utils.HealthCheck{
		"mongo":        func(ctx context.Context) error { return database.MongoClient.Ping(ctx, nil) },
		"redisSession": redisCheck(utils.GetSessionCacheClient()),
		"redisOTP":     redisCheck(utils.GetOTPCacheClient()),
	})

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.RateLimitMiddleware(cfg.MaxRequestsPerMin))

	handlerBundle := handlers.NewHandlerBundle(
		handlers.NewBookingHandler(bookingService),
		handlers.NewAvailabilityHandler(availabilityService),
		utils.HealthHandler,
	)
	routes.RegisterRoutes(router, handlerBundle, cfg.CORSOrigins)

	// Start the HTTP server.
	port := cfg.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:              "0.0.0.0:" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Errorf("main: server forced to shutdown: %v", err)
	}
	stop()
	worker.Shutdown()
	if err := database.Disconnect(ctx); err != nil {
		logger.Sugar().Warnf("main: mongo disconnect: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}

func redisCheck(client *redis.Client) utils.HealthCheck {
	return func(ctx context.Context) error { return client.Ping(ctx).Err() }
}
