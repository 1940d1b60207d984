package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/sekolahku/psb-api/api/swagger"
	"github.com/sekolahku/psb-api/internal/handler"
	"github.com/sekolahku/psb-api/internal/jobs"
	"github.com/sekolahku/psb-api/internal/middleware"
	"github.com/sekolahku/psb-api/internal/repository"
	"github.com/sekolahku/psb-api/internal/service"
	"github.com/sekolahku/psb-api/pkg/cache"
	"github.com/sekolahku/psb-api/pkg/config"
	"github.com/sekolahku/psb-api/pkg/database"
	"github.com/sekolahku/psb-api/pkg/export"
	"github.com/sekolahku/psb-api/pkg/logger"
	corsmiddleware "github.com/sekolahku/psb-api/pkg/middleware/cors"
	reqidmiddleware "github.com/sekolahku/psb-api/pkg/middleware/requestid"
	"github.com/sekolahku/psb-api/pkg/storage"
)

// @title PSB API
// @version 1.0.0
// @description Student admission backend: registrations, classes, payments and receipts
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, availability cache disabled", "error", err)
		redisClient = nil
	}

	receiptStore, err := storage.NewLocalStorage(cfg.Receipts.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare receipt storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Receipts.SignedURLSecret, cfg.Receipts.SignedURLTTL)

	validate := validator.New()

	studentRepo := repository.NewStudentRepository(db)
	offeringRepo := repository.NewClassOfferingRepository(db)
	parentRepo := repository.NewParentRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	flagRepo := repository.NewFlagRepository(db)
	userRepo := repository.NewUserRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	gradeRepo := repository.NewGradeRepository(db)

	metricsService := service.NewMetricsService()
	availability := service.NewAvailabilityCache(redisClient, cfg.Registration.AvailabilityCacheTTL, logr)

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	registrationService := service.NewRegistrationService(studentRepo, offeringRepo, availability, metricsService, validate, logr)
	offeringService := service.NewClassOfferingService(offeringRepo, availability, validate, logr)
	studentService := service.NewStudentService(studentRepo, export.NewCSVExporter(), logr)
	parentService := service.NewParentService(parentRepo, validate, logr)
	flagService := service.NewFlagService(flagRepo, studentRepo, validate, logr)
	userService := service.NewUserService(userRepo, validate, logr)
	attendanceService := service.NewAttendanceService(attendanceRepo, studentRepo, validate, logr)
	gradeService := service.NewGradeService(gradeRepo, studentRepo, validate, logr)

	receiptQueue := jobs.NewReceiptQueue(cfg.Receipts, logr)
	paymentService := service.NewPaymentService(paymentRepo, studentRepo, receiptQueue, receiptStore, export.NewReceiptPDF(), signer, validate, logr)
	receiptQueue.Bind(paymentService)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	receiptQueue.Start(ctx)
	defer receiptQueue.Stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsService.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r, cfg.APIPrefix, handler.Handlers{
		Auth:          handler.NewAuthHandler(authService),
		Registrations: handler.NewRegistrationHandler(registrationService),
		Classes:       handler.NewClassOfferingHandler(offeringService),
		Students:      handler.NewStudentHandler(studentService, registrationService, flagService),
		Parents:       handler.NewParentHandler(parentService),
		Payments:      handler.NewPaymentHandler(paymentService),
		Attendance:    handler.NewAttendanceHandler(attendanceService),
		Grades:        handler.NewGradeHandler(gradeService),
		Users:         handler.NewUserHandler(userService),
	}, middleware.JWT(authService, userRepo))

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
