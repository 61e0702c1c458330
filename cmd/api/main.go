package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"

	_ "github.com/taskhive/taskhive-api/docs" // Swagger docs (generated)
	"github.com/taskhive/taskhive-api/internal/auth"
	"github.com/taskhive/taskhive-api/internal/config"
	"github.com/taskhive/taskhive-api/internal/database"
	"github.com/taskhive/taskhive-api/internal/email"
	httpServer "github.com/taskhive/taskhive-api/internal/http"
	"github.com/taskhive/taskhive-api/internal/logging"
	"github.com/taskhive/taskhive-api/internal/ratelimit"
	"github.com/taskhive/taskhive-api/internal/report"
	"github.com/taskhive/taskhive-api/internal/task"
	"github.com/taskhive/taskhive-api/internal/user"
)

// @title           TaskHive API
// @version         1.0
// @description     A task management REST API with authentication, email verification, dashboards and spreadsheet exports.

// @contact.name   API Support
// @contact.email  support@taskhive.dev

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := logging.NewLogger(cfg.Server.IsDevelopment())
	logger.Info("starting application",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
	)

	// Initialize database connection
	db, err := initDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	// Initialize Redis connection
	redisClient, err := initRedis(cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}
	defer redisClient.Close()

	// Initialize repositories
	userRepo := user.NewRepository(db)
	taskRepo := task.NewRepository(db)

	// Initialize rate limiter
	rateLimiter := ratelimit.NewLimiter(redisClient)

	// Initialize token service
	tokenService, err := initTokenService(cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}
	logger.Info("token service initialized", "scheme", cfg.Auth.TokenScheme)

	// Initialize email service
	emailService := email.NewService(cfg.Email, logger)

	// Initialize services
	authService := auth.NewService(
		userRepo,
		emailService,
		tokenService,
		logger,
		cfg.Auth.AdminInviteToken,
		cfg.Auth.CodeSecret,
		cfg.Auth.TokenDuration,
	)
	taskService := task.NewService(taskRepo)
	reportService := report.NewService(taskRepo, userRepo, taskRepo)

	// Initialize HTTP handlers
	authHandler := auth.NewHandler(
		authService,
		rateLimiter,
		logger,
		!cfg.Server.IsDevelopment(), // isProduction
		cfg.Auth.TokenDuration,
	)
	taskHandler := task.NewHandler(taskService, userRepo, logger)
	reportHandler := report.NewHandler(reportService, logger)
	userHandler := user.NewHandler(userRepo, memberTaskCounts(taskRepo), logger)

	authMiddleware := auth.NewMiddleware(tokenService, userRepo)

	// Initialize router
	router := httpServer.NewRouter(cfg, httpServer.Handlers{
		Auth:   authHandler,
		Task:   taskHandler,
		Report: reportHandler,
		User:   userHandler,
	}, authMiddleware, logger)

	// Initialize HTTP server
	serverAddr := ":" + cfg.Server.Port
	server := httpServer.NewServer(
		serverAddr,
		router,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
		logger,
	)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	// Wait for interrupt signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logger.Info("received shutdown signal", "signal", sig.String())

		// Graceful shutdown with timeout
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// initTokenService selects the session token implementation from config.
func initTokenService(cfg config.AuthConfig) (auth.TokenService, error) {
	if cfg.TokenScheme == "paseto" {
		return auth.NewPasetoService(cfg.TokenKey)
	}
	return auth.NewJWTService(cfg.TokenKey)
}

// memberTaskCounts adapts the task repository to the user handler's counter.
func memberTaskCounts(taskRepo *task.Repository) user.TaskCounterFunc {
	return func(ctx context.Context, userID uuid.UUID) (user.TaskCounts, error) {
		summary, err := taskRepo.CountByStatusForUser(ctx, userID)
		if err != nil {
			return user.TaskCounts{}, err
		}
		return user.TaskCounts{
			Pending:    summary.Pending,
			InProgress: summary.InProgress,
			Completed:  summary.Completed,
		}, nil
	}
}

// initDB initializes the database connection and returns a Bun DB instance
func initDB(cfg config.DatabaseConfig) (*bun.DB, error) {
	sqlDB, err := sql.Open("postgres", cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Verify connection
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	return database.NewBunDB(sqlDB), nil
}

// initRedis initializes the Redis connection and returns a Redis client
func initRedis(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Verify connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}
