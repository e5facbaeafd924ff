package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/event-booking/internal/di"
	"github.com/prohmpiriya/event-booking/internal/domain"
	"github.com/prohmpiriya/event-booking/internal/service"
	"github.com/prohmpiriya/event-booking/migrations"
	"github.com/prohmpiriya/event-booking/pkg/config"
	"github.com/prohmpiriya/event-booking/pkg/database"
	"github.com/prohmpiriya/event-booking/pkg/logger"
	"github.com/prohmpiriya/event-booking/pkg/middleware"
	pkgredis "github.com/prohmpiriya/event-booking/pkg/redis"
	"github.com/prohmpiriya/event-booking/pkg/telemetry"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logCfg := &logger.Config{
		Level:       cfg.App.Environment,
		ServiceName: cfg.App.Name,
		Development: cfg.IsDevelopment(),
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting event booking service...", zap.String("version", cfg.App.Version))

	ctx := context.Background()

	// Initialize tracing
	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
	}); err != nil {
		appLog.Warn("Telemetry init failed, tracing disabled", zap.Error(err))
	}

	// Initialize database connection
	dbCfg := &database.PostgresConfig{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        int32(cfg.Database.MaxOpenConns),
		MinConns:        int32(cfg.Database.MaxIdleConns),
		MaxConnLifetime: cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnectTimeout:  5 * time.Second,
		MaxRetries:      3,
		RetryInterval:   time.Second,
		EnableTracing:   cfg.OTel.Enabled,
	}
	db, err := database.NewPostgres(ctx, dbCfg)
	if err != nil {
		appLog.Fatal("Database connection failed", zap.Error(err))
	}
	defer db.Close()
	appLog.Info(fmt.Sprintf("Database connected (pool: min=%d, max=%d)", dbCfg.MinConns, dbCfg.MaxConns))

	if cfg.Database.AutoMigrate {
		applied, err := migrations.Apply(ctx, db.Pool())
		if err != nil {
			appLog.Fatal("Migration failed", zap.Error(err))
		}
		appLog.Info("Migrations applied", zap.Strings("applied", applied))
	}

	// Redis is optional; without it every read goes to Postgres
	var redisClient *pkgredis.Client
	redisClient, err = pkgredis.NewClient(ctx, &pkgredis.Config{
		Host:          cfg.Redis.Host,
		Port:          cfg.Redis.Port,
		Password:      cfg.Redis.Password,
		DB:            cfg.Redis.DB,
		PoolSize:      cfg.Redis.PoolSize,
		MinIdleConns:  cfg.Redis.MinIdleConns,
		DialTimeout:   cfg.Redis.DialTimeout,
		ReadTimeout:   cfg.Redis.ReadTimeout,
		WriteTimeout:  cfg.Redis.WriteTimeout,
		MaxRetries:    3,
		RetryInterval: 100 * time.Millisecond,
	})
	if err != nil {
		appLog.Warn("Redis connection failed, running without cache", zap.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close()
		appLog.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	}

	// Initialize Kafka event publisher
	var eventPublisher service.EventPublisher = service.NewNoOpEventPublisher()
	if cfg.Kafka.Enabled {
		kafkaPublisher, err := service.NewKafkaEventPublisher(ctx, &service.EventPublisherConfig{
			Brokers:     cfg.Kafka.Brokers,
			Topic:       cfg.Kafka.Topic,
			ServiceName: cfg.App.Name,
			ClientID:    cfg.Kafka.ClientID,
		})
		if err != nil {
			appLog.Warn("Kafka connection failed, using no-op publisher", zap.Error(err))
		} else {
			eventPublisher = kafkaPublisher
			appLog.Info("Kafka event publisher connected", zap.String("topic", cfg.Kafka.Topic))
		}
	}

	// Build dependency injection container
	container := di.NewContainer(&di.ContainerConfig{
		Config:         cfg,
		DB:             db,
		Redis:          redisClient,
		EventPublisher: eventPublisher,
	})

	if err := container.RankingPruneWorker.Start(ctx); err != nil {
		appLog.Warn("Ranking prune worker not started", zap.Error(err))
	}

	router := newRouter(cfg, container, appLog)

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 2 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	// Start server in goroutine
	go func() {
		appLog.Info(fmt.Sprintf("Event booking service listening on %s", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("Server forced to shutdown", zap.Error(err))
	}

	container.RankingPruneWorker.Stop()
	if err := container.EventPublisher.Close(); err != nil {
		appLog.Warn("Event publisher close failed", zap.Error(err))
	}
	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		appLog.Warn("Telemetry shutdown failed", zap.Error(err))
	}

	appLog.Info("Server exited gracefully")
}

func newRouter(cfg *config.Config, container *di.Container, appLog *logger.Logger) *gin.Engine {
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(telemetry.TracingMiddleware())
	router.Use(middleware.Logger(appLog))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))

	// Health check endpoints
	router.GET("/health", container.HealthHandler.Health)
	router.GET("/ready", container.HealthHandler.Ready)

	jwtCfg := middleware.JWTConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer}

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/signup", container.AuthHandler.Signup)
			auth.POST("/login", container.AuthHandler.Login)
		}

		events := v1.Group("/events")
		events.Use(middleware.JWTMiddleware(jwtCfg))
		{
			events.GET("", container.EventHandler.ListEvents)
			events.GET("/top", container.EventHandler.TopEvents)
			events.GET("/:id", container.EventHandler.GetEvent)

			admin := events.Group("")
			admin.Use(middleware.RequireRole(domain.RoleAdmin))
			admin.POST("", container.EventHandler.CreateEvent)
			admin.PUT("/:id", container.EventHandler.UpdateEvent)
			admin.DELETE("/:id", container.EventHandler.DeleteEvent)
		}

		bookings := v1.Group("/bookings")
		bookings.Use(middleware.JWTMiddleware(jwtCfg))
		{
			create := []gin.HandlerFunc{container.BookingHandler.CreateBooking}
			if container.Redis != nil {
				idem := middleware.Idempotency(middleware.DefaultIdempotencyConfig(container.Redis.Client()))
				create = append([]gin.HandlerFunc{idem}, create...)
			}
			bookings.POST("", create...)
			bookings.GET("", container.BookingHandler.ListBookings)
			bookings.GET("/:id", container.BookingHandler.GetBooking)
			bookings.PUT("/:id", container.BookingHandler.UpdateBooking)
			bookings.DELETE("/:id", container.BookingHandler.CancelBooking)
		}
	}

	return router
}
