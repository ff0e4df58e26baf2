package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/homula/shop-multipass/api"
	"github.com/homula/shop-multipass/internal/config"
	"github.com/homula/shop-multipass/internal/database"
	"github.com/homula/shop-multipass/internal/handlers"
	"github.com/homula/shop-multipass/internal/logger"
	"github.com/homula/shop-multipass/internal/metrics"
	"github.com/homula/shop-multipass/internal/middleware"
	"github.com/homula/shop-multipass/internal/models"
	"github.com/homula/shop-multipass/internal/multipass"
	"github.com/homula/shop-multipass/internal/queue"
	"github.com/homula/shop-multipass/internal/replay"
	"github.com/homula/shop-multipass/internal/shopify"
	"github.com/homula/shop-multipass/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// secretBackend is what both the token service and the admin API need from a secret store.
type secretBackend interface {
	multipass.SecretStore
	handlers.SecretManager
}

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	devFlag := flag.Bool("dev", false, "Use the console log encoder")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.ValidateServer(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.New("server", debugMode, *devFlag)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync(zapLogger) }()

	zapLogger.Info("starting_server",
		zap.String("version", version),
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("secret_backend", cfg.SecretBackend),
		zap.Duration("multipass_max_age", cfg.MultipassMaxAge),
		zap.Bool("multipass_replay_protection", cfg.MultipassReplayProtect),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	tracingEnabled := false
	if cfg.OTELEnabled {
		if cfg.OTELEndpoint == "" {
			zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
		} else {
			tp, err := telemetry.InitTracer(context.Background(), telemetry.Config{
				ServiceVersion: version,
				Endpoint:       cfg.OTELEndpoint,
				Insecure:       cfg.OTELInsecure,
				SampleRatio:    cfg.OTELSampleRatio,
			})
			if err != nil {
				zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
			} else {
				tracingEnabled = true
				zapLogger.Info("otel_tracer_initialized", zap.String("endpoint", cfg.OTELEndpoint))
				defer func() {
					shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer shutdownCancel()
					if err := telemetry.Shutdown(shutdownCtx, tp); err != nil {
						zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
					}
				}()
			}
		}
	}

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		zapLogger.Fatal("failed_to_run_migrations", zap.Error(err))
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_database")

	redisClient, err := replay.NewRedisClient(cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_redis")

	limiterStore, err := redisstore.NewStore(redisClient)
	if err != nil {
		zapLogger.Fatal("failed_to_create_rate_limit_store", zap.Error(err))
	}

	events, eventQueue := connectEventPublisher(cfg, zapLogger)
	if eventQueue != nil {
		defer func() {
			if err := eventQueue.Close(); err != nil {
				zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
			}
		}()
	}

	// Repositories
	sessionRepo := database.NewShopSessionRepository(db)
	corsConfigRepo := database.NewCorsConfigRepository(db)
	ratelimitConfigRepo := database.NewRatelimitConfigRepository(db)

	var secrets secretBackend
	switch cfg.SecretBackend {
	case config.SecretBackendMetafield:
		admin := shopify.NewAdminClient(cfg.ShopifyAPIVersion, &http.Client{Timeout: 10 * time.Second})
		secrets = shopify.NewMetafieldSecretStore(admin, sessionRepo)
	default:
		secrets = database.NewMultipassSecretRepository(db)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	opts := []multipass.Option{
		multipass.WithLogger(zapLogger),
		multipass.WithMaxAge(cfg.MultipassMaxAge),
	}
	if cfg.MultipassReplayProtect {
		opts = append(opts, multipass.WithReplayGuard(replay.NewGuard(redisClient)))
	}
	tokenService := multipass.NewService(metrics.InstrumentStore(secrets, collector), opts...)

	// Handlers
	loginHandler := handlers.NewLoginHandler(tokenService, events, collector, zapLogger)
	adminHandler := handlers.NewAdminHandler(secrets, tokenService, events, collector, zapLogger)
	installHandler := handlers.NewInstallHandler(
		shopify.NewOAuth(cfg.ShopifyAPIKey, cfg.ShopifyAPISecret, cfg.ShopifyScopes, cfg.BaseURL+"/auth/callback"),
		replay.NewStateStore(redisClient, replay.DefaultStateTTL),
		sessionRepo,
		cfg.ShopifyAPIKey,
		zapLogger,
	)
	openAPIHandler, err := handlers.NewOpenAPIHandler(api.OpenAPISpec)
	if err != nil {
		zapLogger.Fatal("failed_to_load_openapi_document", zap.Error(err))
	}

	checks := map[string]handlers.Check{
		"database": db.PingContext,
		"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		"rabbitmq": nil,
	}
	if eventQueue != nil {
		checks["rabbitmq"] = eventQueue.HealthCheck
	}
	healthChecker := handlers.NewHealthChecker(checks)

	r := mux.NewRouter()

	// gorilla/mux runs middleware in registration order, the first registered is outermost.
	if tracingEnabled {
		r.Use(otelmux.Middleware(telemetry.ServiceName))
	}
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	corsReloader := middleware.NewCORSReloader(corsConfigRepo, cfg.AdminURL, zapLogger, time.Minute)
	r.Use(corsReloader.Middleware())
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	r.Use(middleware.ContentType(middleware.MediaTypeJSON, middleware.MediaTypeForm))
	r.Use(middleware.Timeout(middleware.DefaultRequestTimeout))
	r.Use(middleware.ErrorHandler(zapLogger))
	r.Use(middleware.Audit(zapLogger))
	r.Use(middleware.Logging(zapLogger))

	loginLimiter := middleware.NewRateLimitReloader(limiterStore, ratelimitConfigRepo, models.RatelimitScopeLogin, zapLogger, time.Minute)
	adminLimiter := middleware.NewRateLimitReloader(limiterStore, ratelimitConfigRepo, models.RatelimitScopeAdmin, zapLogger, time.Minute)

	// Public routes
	r.HandleFunc("/healthz", healthChecker.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/version", versionInfo).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler(registry)).Methods(http.MethodGet)
	openAPIHandler.RegisterRoutes(r)

	loginRouter := r.NewRoute().Subrouter()
	loginRouter.Use(middleware.MaxRequestSize(middleware.MaxLoginFormSize))
	loginRouter.Use(loginLimiter.Middleware())
	loginHandler.RegisterRoutes(loginRouter)
	installHandler.RegisterRoutes(loginRouter)

	// Embedded admin routes
	adminRouter := r.PathPrefix("/api/v1/multipass").Subrouter()
	adminRouter.Use(middleware.SessionAuth(shopify.NewSessionTokenVerifier(cfg.ShopifyAPIKey, cfg.ShopifyAPISecret), zapLogger))
	adminRouter.Use(adminLimiter.Middleware())
	adminHandler.RegisterRoutes(adminRouter)

	// Preflight requests are answered by the CORS middleware before reaching this.
	r.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	reloadCtx, reloadCancel := context.WithCancel(context.Background())
	defer reloadCancel()
	go corsReloader.Start(reloadCtx)
	go loginLimiter.Start(reloadCtx)
	go adminLimiter.Start(reloadCtx)

	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")
	reloadCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}

// connectEventPublisher connects to RabbitMQ with backoff. Without RABBITMQ_URL
// events are written to the log instead.
func connectEventPublisher(cfg *config.Config, zapLogger *zap.Logger) (queue.EventPublisher, *queue.RabbitMQQueue) {
	if cfg.RabbitMQURL == "" {
		zapLogger.Info("rabbitmq_not_configured_logging_events")
		return queue.NewLogPublisher(zapLogger), nil
	}

	const maxRetries = 10
	const initialDelay = 2 * time.Second

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		q, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL)
		if err == nil {
			zapLogger.Info("connected_to_rabbitmq")
			return q, q
		}
		lastErr = err

		delay := initialDelay * time.Duration(1<<uint(attempt))
		if delay > 30*time.Second {
			delay = 30 * time.Second
		}
		zapLogger.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
			zap.Error(err),
			zap.Duration("retry_delay", delay),
		)
		time.Sleep(delay)
	}

	zapLogger.Fatal("failed_to_connect_to_rabbitmq_after_retries",
		zap.Int("max_retries", maxRetries),
		zap.Error(lastErr),
	)
	return nil, nil
}

func versionInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, `{"version":%q,"timestamp":%q}`, version, time.Now().UTC().Format(time.RFC3339))
}
