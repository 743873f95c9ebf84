package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/skartik/commerce-api/internal/mailer"
	"github.com/skartik/commerce-api/internal/repository/postgres"
	"github.com/skartik/commerce-api/internal/worker"
	"github.com/skartik/commerce-api/pkg/logger"
	"github.com/skartik/commerce-api/pkg/metrics"
	"github.com/skartik/commerce-api/pkg/queue"
)

// Env is the worker process configuration, environment-driven so the
// worker can be deployed independently of the API and its config file.
type Env struct {
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"postgres"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" default:"commerce"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	RedisURL     string `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`
	QueueName    string `envconfig:"QUEUE_NAME" default:"emails"`
	MaxAttempts  int    `envconfig:"QUEUE_MAX_ATTEMPTS" default:"5"`
	PoolSize     int    `envconfig:"REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int    `envconfig:"REDIS_MIN_IDLE_CONNS" default:"2"`

	SMTPHost     string `envconfig:"SMTP_HOST" required:"true"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername string `envconfig:"SMTP_USERNAME"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	SMTPFrom     string `envconfig:"SMTP_FROM" required:"true"`

	Concurrency          int           `envconfig:"WORKER_CONCURRENCY" default:"4"`
	RatePerSecond        float64       `envconfig:"WORKER_RATE_PER_SECOND" default:"10"`
	RateBurst            int           `envconfig:"WORKER_RATE_BURST" default:"20"`
	VisibilityTimeout    time.Duration `envconfig:"WORKER_VISIBILITY_TIMEOUT" default:"2m"`
	PollInterval         time.Duration `envconfig:"WORKER_POLL_INTERVAL" default:"5s"`
	DeliveryTrackingTTL  time.Duration `envconfig:"WORKER_DELIVERY_TRACKING_TTL" default:"24h"`
	DrainTimeout         time.Duration `envconfig:"WORKER_DRAIN_TIMEOUT" default:"30s"`
	MaxReconnectAttempts int           `envconfig:"WORKER_MAX_RECONNECT_ATTEMPTS" default:"10"`
	HealthCheckInterval  time.Duration `envconfig:"WORKER_HEALTH_CHECK_INTERVAL" default:"10s"`

	OpsPort int `envconfig:"WORKER_OPS_PORT" default:"8081"`
}

func main() {
	var env Env
	if err := envconfig.Process("", &env); err != nil {
		log.Fatal().Err(err).Msg("failed to load worker configuration")
	}

	appLogger := logger.NewLogger(nil).WithFields(map[string]interface{}{
		"component": "email_worker",
	})

	db, err := postgres.Connect(postgres.Config{
		Host:     env.DBHost,
		Port:     env.DBPort,
		User:     env.DBUser,
		Password: env.DBPassword,
		Name:     env.DBName,
		SSLMode:  env.DBSSLMode,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	emailQueue, err := queue.New(queue.Config{
		URL:          env.RedisURL,
		Name:         env.QueueName,
		MaxAttempts:  env.MaxAttempts,
		PoolSize:     env.PoolSize,
		MinIdleConns: env.MinIdleConns,
	}, appLogger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}

	m := metrics.New("commerce_worker")
	m.Register(prometheus.DefaultRegisterer)

	base := postgres.NewBaseRepository(db)
	orderRepo := postgres.NewOrderRepository(base)
	userRepo := postgres.NewUserRepository(base)
	settingsRepo := postgres.NewSettingsRepository(base)

	sender := mailer.New(
		orderRepo,
		userRepo,
		mailer.NewSettingsSource(settingsRepo),
		mailer.NewTemplateRenderer(),
		mailer.NewInvoiceGenerator(),
		mailer.NewSMTPTransport(mailer.SMTPConfig{
			Host:     env.SMTPHost,
			Port:     env.SMTPPort,
			Username: env.SMTPUsername,
			Password: env.SMTPPassword,
			From:     env.SMTPFrom,
		}, m),
		appLogger,
	)

	w := worker.New(emailQueue, sender, worker.Config{
		Concurrency:          env.Concurrency,
		RatePerSecond:        env.RatePerSecond,
		RateBurst:            env.RateBurst,
		VisibilityTimeout:    env.VisibilityTimeout,
		PollInterval:         env.PollInterval,
		DeliveryTrackingTTL:  env.DeliveryTrackingTTL,
		DrainTimeout:         env.DrainTimeout,
		MaxReconnectAttempts: env.MaxReconnectAttempts,
		HealthCheckInterval:  env.HealthCheckInterval,
	}, m, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w.Start(ctx)
	startOpsServer(env.OpsPort, w, appLogger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("shutdown signal received")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), env.DrainTimeout+10*time.Second)
	defer shutdownCancel()

	forced := w.Shutdown(shutdownCtx)
	cancel()
	if forced {
		appLogger.Warn("worker shut down forcefully, in-flight jobs will be re-delivered")
		os.Exit(1)
	}
	appLogger.Info("worker shut down cleanly")
}

// startOpsServer exposes health, metrics and the operational endpoints for
// inspecting and nudging the worker.
func startOpsServer(port int, w *worker.Worker, appLogger *logger.Logger) {
	mux := http.NewServeMux()

	mux.HandleFunc("/health/live", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("/health/ready", func(rw http.ResponseWriter, r *http.Request) {
		health := w.GetHealth()
		if health.Status != worker.StatusHealthy {
			writeJSON(rw, http.StatusServiceUnavailable, health)
			return
		}
		writeJSON(rw, http.StatusOK, health)
	})

	mux.HandleFunc("/health", func(rw http.ResponseWriter, r *http.Request) {
		writeJSON(rw, http.StatusOK, w.GetHealth())
	})

	mux.HandleFunc("/resilience", func(rw http.ResponseWriter, r *http.Request) {
		writeJSON(rw, http.StatusOK, w.GetResilienceStatus())
	})

	mux.HandleFunc("/resilience/reconnect", func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if err := w.TriggerReconnection(r.Context()); err != nil {
			writeJSON(rw, http.StatusBadGateway, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(rw, http.StatusOK, w.GetResilienceStatus())
	})

	mux.HandleFunc("/tracking", func(rw http.ResponseWriter, r *http.Request) {
		writeJSON(rw, http.StatusOK, w.GetDeliveryTrackingStatus())
	})

	mux.HandleFunc("/tracking/verify", func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var event mailer.EmailEvent
		if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
			writeJSON(rw, http.StatusBadRequest, map[string]string{"error": "invalid event payload"})
			return
		}
		record, delivered := w.VerifyEmailDelivery(&event)
		writeJSON(rw, http.StatusOK, map[string]interface{}{
			"delivered": delivered,
			"record":    record,
		})
	})

	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		addr := fmt.Sprintf(":%d", port)
		appLogger.Info("worker ops server listening", "addr", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			appLogger.Error(err, "ops server failed")
			os.Exit(1)
		}
	}()
}

func writeJSON(rw http.ResponseWriter, status int, v interface{}) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}
