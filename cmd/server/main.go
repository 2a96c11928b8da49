package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sokocart/sokocart-backend/config"
	"github.com/sokocart/sokocart-backend/internal/app/controller"
	"github.com/sokocart/sokocart-backend/internal/app/repository"
	"github.com/sokocart/sokocart-backend/internal/app/service"
	"github.com/sokocart/sokocart-backend/internal/db"
	"github.com/sokocart/sokocart-backend/internal/middleware"
	"github.com/sokocart/sokocart-backend/internal/router"
	"github.com/sokocart/sokocart-backend/internal/scheduler"
	"github.com/sokocart/sokocart-backend/internal/storage"
	"github.com/sokocart/sokocart-backend/pkg/logger"
	"github.com/sokocart/sokocart-backend/pkg/redis"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := "info"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      "console", // Use "json" for production
		EnableColor: true,
	})

	logger.Info("Starting SOKOCART Backend Server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	// Run migrations
	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Redis backs the token blacklist; the server runs without it
	if err := redis.Init(&cfg.Redis); err != nil {
		logger.Warn("Redis unavailable, token revocation disabled", map[string]interface{}{
			"error": err.Error(),
		})
	} else {
		defer redis.Close()
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db.GetDB())
	productRepo := repository.NewProductRepository(db.GetDB())
	cartRepo := repository.NewCartRepository(db.GetDB())
	couponRepo := repository.NewCouponRepository(db.GetDB())
	orderRepo := repository.NewOrderRepository(db.GetDB())

	// Initialize services
	authService := service.NewAuthService(
		userRepo,
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
	productService := service.NewProductService(productRepo)
	cartService := service.NewCartService(cartRepo, productRepo, couponRepo, db.GetDB(), cfg.Cart.ExpiryDays)
	couponService := service.NewCouponService(couponRepo, cartRepo, db.GetDB())
	orderService := service.NewOrderService(orderRepo, db.GetDB())

	reportStorage := storage.NewS3Storage(
		cfg.S3.Region,
		cfg.S3.Bucket,
		cfg.S3.AccessKeyID,
		cfg.S3.SecretAccessKey,
		cfg.S3.BaseURL,
	)
	reportService := service.NewReportService(couponRepo, reportStorage)

	// Initialize controllers
	authController := controller.NewAuthController(authService, cartService)
	productController := controller.NewProductController(productService)
	cartController := controller.NewCartController(cartService, orderService)
	couponController := controller.NewCouponController(couponService, cartService)
	orderController := controller.NewOrderController(orderService)
	reportController := controller.NewReportController(reportService)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)

	// Start the cart expiry sweeper
	expiryScheduler := scheduler.NewCartExpiryScheduler(cartRepo, cfg.Cart.SweepSchedule)
	if err := expiryScheduler.Start(); err != nil {
		logger.Fatal("Failed to start cart expiry scheduler", err)
	}
	defer expiryScheduler.Stop()

	// Setup router
	r := router.NewRouter(
		authController,
		productController,
		cartController,
		couponController,
		orderController,
		reportController,
		authMiddleware,
		cfg,
	)
	engine := r.Setup()

	// Start server in a goroutine
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		logger.Info("Server started successfully", map[string]interface{}{
			"address": addr,
			"pid":     os.Getpid(),
		})
		if err := engine.Run(addr); err != nil {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")
	logger.Info("Server stopped successfully")
}
