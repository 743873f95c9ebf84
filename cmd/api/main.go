package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/skartik/commerce-api/internal/config"
	authHandler "github.com/skartik/commerce-api/internal/handler/auth"
	catalogHandler "github.com/skartik/commerce-api/internal/handler/catalog"
	contactHandler "github.com/skartik/commerce-api/internal/handler/contact"
	healthHandler "github.com/skartik/commerce-api/internal/handler/health"
	orderHandler "github.com/skartik/commerce-api/internal/handler/order"
	pageHandler "github.com/skartik/commerce-api/internal/handler/page"
	settingsHandler "github.com/skartik/commerce-api/internal/handler/settings"
	"github.com/skartik/commerce-api/internal/mailer"
	"github.com/skartik/commerce-api/internal/middleware"
	"github.com/skartik/commerce-api/internal/repository/postgres"
	"github.com/skartik/commerce-api/internal/router"
	authService "github.com/skartik/commerce-api/internal/service/auth"
	catalogService "github.com/skartik/commerce-api/internal/service/catalog"
	contactService "github.com/skartik/commerce-api/internal/service/contact"
	orderService "github.com/skartik/commerce-api/internal/service/order"
	pageService "github.com/skartik/commerce-api/internal/service/page"
	userService "github.com/skartik/commerce-api/internal/service/user"
	"github.com/skartik/commerce-api/pkg/auth"
	"github.com/skartik/commerce-api/pkg/logger"
	"github.com/skartik/commerce-api/pkg/metrics"
	"github.com/skartik/commerce-api/pkg/queue"
	"github.com/skartik/commerce-api/pkg/security"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)

	db, err := postgres.Connect(postgres.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Name:     cfg.Database.Name,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	emailQueue, err := queue.New(queue.Config{
		URL:          cfg.Redis.URL,
		Name:         cfg.Redis.QueueName,
		MaxAttempts:  cfg.Redis.MaxAttempts,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, appLogger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer emailQueue.Close()

	m := metrics.New("commerce_api")
	m.Register(prometheus.DefaultRegisterer)

	// Repositories
	base := postgres.NewBaseRepository(db)
	userRepo := postgres.NewUserRepository(base)
	tokenRepo := postgres.NewTokenRepository(base)
	productRepo := postgres.NewProductRepository(base)
	categoryRepo := postgres.NewCategoryRepository(base)
	orderRepo := postgres.NewOrderRepository(base)
	pageRepo := postgres.NewPageRepository(base)
	settingsRepo := postgres.NewSettingsRepository(base)

	// Email event publishing
	publisher := mailer.NewPublisher(emailQueue, appLogger)
	settingsSource := mailer.NewSettingsSource(settingsRepo)

	// Services
	hasher := security.NewBcryptHasher(12)
	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)
	userSvc := userService.NewService(userRepo, tokenRepo, hasher, publisher)
	authSvc := authService.NewService(userRepo, hasher, jwtSvc)
	catalogSvc := catalogService.NewService(productRepo, categoryRepo)
	orderSvc := orderService.NewService(orderRepo, productRepo, publisher, appLogger)
	pageSvc := pageService.NewService(pageRepo)
	contactSvc := contactService.NewService(publisher)

	// Handlers
	authMW := middleware.NewAuthMiddleware(jwtSvc)
	r := router.New(
		authMW,
		healthHandler.NewHandler(db, emailQueue),
		authHandler.NewHandler(authSvc, userSvc),
		catalogHandler.NewHandler(catalogSvc),
		orderHandler.NewHandler(orderSvc),
		pageHandler.NewHandler(pageSvc),
		contactHandler.NewHandler(contactSvc),
		settingsHandler.NewHandler(settingsRepo, settingsSource),
		router.Config{
			RateLimit:  rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst:  cfg.RateLimit.Burst,
			CORSConfig: middleware.DefaultCORSConfig(),
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
	}

	go func() {
		appLogger.Info("API server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("shutting down API server")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error(err, "forced server shutdown")
		os.Exit(1)
	}
}
