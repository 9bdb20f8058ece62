package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/labstack/echo/v4"

	"glowdesk/internal/caching"
	"glowdesk/internal/config"
	"glowdesk/internal/handlers"
	"glowdesk/internal/jobs"
	"glowdesk/internal/jobs/background"
	"glowdesk/internal/middleware"
	"glowdesk/internal/models"
	"glowdesk/internal/repositories"
	"glowdesk/internal/services"
	"glowdesk/pkg/database"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	ctx := context.Background()

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	cacheSvc := caching.NewRedisCacheService(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

	storageSvc, err := services.NewMinioStorageService(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL)
	if err != nil {
		log.Fatalf("Failed to initialize storage service: %v", err)
	}
	if err := storageSvc.EnsureBucketExists(ctx); err != nil {
		log.Printf("WARNING: payment proof bucket check failed: %v", err)
	}

	// Repositories
	businessRepo := repositories.NewBusinessRepo(pool)
	orderRepo := repositories.NewOrderRepo(pool)
	packageRepo := repositories.NewPackageRepo(pool)
	registrationRepo := repositories.NewRegistrationRepo(pool)
	userRepo := repositories.NewUserRepo(pool)

	// Services
	mailerSvc := services.NewMailerService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SenderEmail, cfg.DashboardURL)
	membershipSvc := services.NewMembershipService(pool, businessRepo, orderRepo, packageRepo, cacheSvc)
	orderSvc := services.NewOrderService(orderRepo, packageRepo, storageSvc)
	registrationSvc := services.NewRegistrationService(registrationRepo, businessRepo, userRepo, membershipSvc, mailerSvc)
	authSvc := services.NewAuthService(cacheSvc, userRepo.GetByID, cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	// Handlers
	authHandlers := handlers.NewAuthHandlers(authSvc, userRepo, cacheSvc)
	businessHandlers := handlers.NewBusinessHandlers(membershipSvc)
	orderHandlers := handlers.NewOrderHandlers(orderSvc)
	packageHandlers := handlers.NewPackageHandlers(packageRepo)
	registrationHandlers := handlers.NewRegistrationHandlers(registrationSvc)
	adminHandlers := handlers.NewAdminHandlers(registrationSvc, membershipSvc, orderSvc, userRepo)
	healthHandlers := handlers.NewHealthHandlers(pool, cacheSvc, storageSvc)

	// Background jobs
	expiryAlerts := jobs.NewExpiryAlertService(businessRepo, mailerSvc)
	trialSweep := jobs.NewTrialSweepService(businessRepo, membershipSvc)
	scheduler := background.NewJobScheduler(expiryAlerts, trialSweep)
	if err := scheduler.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	defer func() {
		if err := scheduler.Stop(); err != nil {
			log.Printf("Failed to stop scheduler: %v", err)
		}
	}()
	jobHandlers := handlers.NewJobHandlers(scheduler)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Global middleware
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(echoMiddleware.RemoveTrailingSlash())

	versionMiddleware := middleware.NewVersionMiddleware()
	e.Use(versionMiddleware.APIVersionResolver())

	// Health endpoints (no auth required)
	e.GET("/health", healthHandlers.HealthCheck)
	e.GET("/health/ready", healthHandlers.ReadinessCheck)

	v1 := versionMiddleware.VersionRoute(e, "v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/login", authHandlers.Login)
	auth.POST("/refresh", authHandlers.RefreshToken)
	auth.POST("/logout", authHandlers.Logout)

	v1.POST("/registrations", registrationHandlers.Submit)
	v1.GET("/packages", packageHandlers.ListPackages)
	v1.GET("/packages/:id", packageHandlers.GetPackage)

	// Owner routes
	protected := v1.Group("")
	protected.Use(middleware.JWTMiddleware(cfg.JWTSecret))

	owner := protected.Group("", middleware.RequireRole(models.RoleOwner, models.RoleAdmin))
	owner.GET("/businesses/me/dashboard", businessHandlers.Dashboard)
	owner.POST("/orders", orderHandlers.CreateOrder)
	owner.GET("/orders", orderHandlers.ListOrders)
	owner.GET("/orders/:id", orderHandlers.GetOrder)
	owner.POST("/orders/:id/payment-proof", orderHandlers.UploadPaymentProof)

	// Admin routes
	admin := protected.Group("/admin", middleware.RequireRole(models.RoleAdmin))
	admin.GET("/registrations", adminHandlers.ListPendingRegistrations)
	admin.POST("/registrations/:requestId/approve", adminHandlers.ApproveRegistration)
	admin.POST("/registrations/:requestId/reject", adminHandlers.RejectRegistration)
	admin.GET("/orders", adminHandlers.ListAwaitingOrders)
	admin.POST("/businesses/:businessId/orders/:orderId/complete", adminHandlers.CompleteOrder)
	admin.POST("/businesses/:businessId/orders/:orderId/reject", adminHandlers.RejectOrder)
	admin.POST("/businesses", adminHandlers.CreateBusiness)
	admin.POST("/users", adminHandlers.CreateAdminUser)
	admin.GET("/jobs", jobHandlers.JobStatus)

	// Graceful shutdown on SIGINT/SIGTERM
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down server")
		if err := e.Shutdown(context.Background()); err != nil {
			log.Printf("Server shutdown failed: %v", err)
		}
	}()

	log.Printf("Glowdesk server v%s starting on port %d", version, cfg.Port)
	if err := e.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil {
		log.Printf("Server stopped: %v", err)
	}
}
