package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/leadboard/internal/api"
	"github.com/hugh/leadboard/internal/auth"
	"github.com/hugh/leadboard/internal/database"
	"github.com/hugh/leadboard/internal/events"
	"github.com/hugh/leadboard/internal/hierarchy"
	"github.com/hugh/leadboard/internal/kanban"
	"github.com/hugh/leadboard/internal/settings"
	"github.com/hugh/leadboard/internal/storage"
	"github.com/hugh/leadboard/internal/tenancy"
	"github.com/hugh/leadboard/internal/visibility"
	"github.com/hugh/leadboard/pkg/config"
	"github.com/hugh/leadboard/pkg/crypto"
	"github.com/hugh/leadboard/pkg/queue"
	"github.com/hugh/leadboard/pkg/util"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load .env file
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := util.NewLogger(cfg.Server.Env)
	slog.SetDefault(logger)

	logger.Info("starting leadboard server",
		"env", cfg.Server.Env,
		"addr", cfg.Server.Addr(),
	)

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := database.AutoMigrate(db); err != nil {
		logger.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	// Redis backs the job queue only; the API runs without it.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Warn("failed to connect to Redis, password reset emails are disabled", "error", err)
		redisClient.Close()
		redisClient = nil
	}

	var asynqClient *asynq.Client
	var enqueuer auth.TaskEnqueuer
	if redisClient != nil {
		asynqClient = queue.NewClient(&cfg.Redis)
		enqueuer = asynqClient
	}

	encryptor, err := crypto.NewEncryptor(cfg.Encryption.Key, cfg.Encryption.RetiredKeys...)
	if err != nil {
		logger.Error("failed to create encryptor", "error", err)
		os.Exit(1)
	}
	if cfg.Encryption.Key == "" {
		logger.Warn("ENCRYPTION_KEY not set, using generated key - secret settings will be unreadable after restart")
	}

	backend, err := storage.New(context.Background(), cfg.Storage)
	if err != nil {
		logger.Error("failed to configure storage", "backend", cfg.Storage.Backend, "error", err)
		os.Exit(1)
	}

	publisher := events.New(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)

	// Services
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry(), cfg.AttendantJWT.Secret, cfg.AttendantJWT.Expiry())
	authService := auth.NewService(db, jwtService)
	resetService := auth.NewResetService(db, enqueuer, logger, cfg.PasswordReset.TTL(), cfg.PasswordReset.URLBase)
	graph := hierarchy.NewGraph(db)
	scopes := visibility.NewResolver(graph)
	kanbanService := kanban.NewService(db, graph, scopes, publisher, logger)
	settingsCache := settings.New(db, encryptor, cfg.Settings.TTL(), nil, logger)
	storageService := storage.NewService(backend, cfg.Storage.MaxUploadBytes(), logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	router := api.NewRouter(api.RouterConfig{
		DB:             db,
		Redis:          redisClient,
		Logger:         logger,
		JWTService:     jwtService,
		AuthService:    authService,
		ResetService:   resetService,
		Tenancy:        tenancy.NewResolver(db, cfg.Tenancy),
		Graph:          graph,
		Scopes:         scopes,
		Kanban:         kanbanService,
		Settings:       settingsCache,
		Storage:        storageService,
		Registry:       registry,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		RateLimitReqs:  cfg.RateLimit.Requests,
		RateLimitSecs:  cfg.RateLimit.WindowSeconds,
		SecureCookies:  !cfg.Server.IsDevelopment(),
		MaxImportBytes: 10 << 20,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	router.Close()

	if err := publisher.Close(); err != nil {
		logger.Error("failed to flush events", "error", err)
	}
	if asynqClient != nil {
		asynqClient.Close()
	}
	if redisClient != nil {
		redisClient.Close()
	}
	if closer, ok := backend.(interface{ Close() error }); ok {
		_ = closer.Close()
	}

	sqlDB, _ := db.DB()
	sqlDB.Close()

	logger.Info("server stopped")
}
