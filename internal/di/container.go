package di

import (
	"github.com/prohmpiriya/event-booking/internal/cache"
	"github.com/prohmpiriya/event-booking/internal/handler"
	"github.com/prohmpiriya/event-booking/internal/ranking"
	"github.com/prohmpiriya/event-booking/internal/repository"
	"github.com/prohmpiriya/event-booking/internal/service"
	"github.com/prohmpiriya/event-booking/internal/worker"
	"github.com/prohmpiriya/event-booking/pkg/config"
	"github.com/prohmpiriya/event-booking/pkg/database"
	"github.com/prohmpiriya/event-booking/pkg/redis"
)

// Container holds all dependencies for the event booking service
type Container struct {
	// Infrastructure
	DB    *database.PostgresDB
	Redis *redis.Client
	Store cache.Store

	// Repositories
	EventRepo repository.EventRepository
	Ledger    repository.BookingLedger
	UserRepo  repository.UserRepository

	// Read path
	ReadThrough *cache.ReadThrough
	Ranking     *ranking.Engine

	// Services
	EventPublisher service.EventPublisher
	BookingService service.BookingService
	EventService   service.EventService
	AuthService    service.AuthService

	// Handlers
	HealthHandler  *handler.HealthHandler
	BookingHandler *handler.BookingHandler
	EventHandler   *handler.EventHandler
	AuthHandler    *handler.AuthHandler

	// Workers
	RankingPruneWorker *worker.RankingPruneWorker
}

// ContainerConfig contains configuration for building the container
type ContainerConfig struct {
	Config *config.Config
	DB     *database.PostgresDB
	// Redis is nil when the cache store is unavailable
	Redis          *redis.Client
	EventPublisher service.EventPublisher
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *ContainerConfig) *Container {
	appCfg := cfg.Config
	c := &Container{
		DB:             cfg.DB,
		Redis:          cfg.Redis,
		EventPublisher: cfg.EventPublisher,
	}
	if c.EventPublisher == nil {
		c.EventPublisher = service.NewNoOpEventPublisher()
	}

	// Cache store falls back to always-miss when Redis is down
	if c.Redis != nil {
		c.Store = cache.NewRedisStore(c.Redis, appCfg.Cache.CommandTimeout)
	} else {
		c.Store = cache.NoopStore{}
	}

	// Initialize repositories
	pool := c.DB.Pool()
	pgEventRepo := repository.NewPostgresEventRepository(pool)
	c.EventRepo = pgEventRepo
	c.Ledger = repository.NewPostgresBookingLedger(pool, appCfg.Booking.LockTimeout)
	c.UserRepo = repository.NewPostgresUserRepository(pool)

	// Ranking and read-through cache
	c.Ranking = ranking.NewEngine(c.Store, pgEventRepo, ranking.Config{
		ViewTTL:    appCfg.Ranking.ViewTTL,
		TopTTL:     appCfg.Cache.TopTTL,
		DefaultTop: appCfg.Ranking.DefaultTop,
		MaxTop:     appCfg.Ranking.MaxTop,
	})
	c.ReadThrough = cache.NewReadThrough(c.Store, pgEventRepo, c.Ranking, cache.Config{
		EventTTL: appCfg.Cache.EventTTL,
		ListTTL:  appCfg.Cache.ListTTL,
	})

	// Initialize services
	c.BookingService = service.NewBookingService(c.Ledger, c.ReadThrough, c.EventPublisher)
	c.EventService = service.NewEventService(c.EventRepo, c.ReadThrough, c.ReadThrough, c.Ranking)
	c.AuthService = service.NewAuthService(c.UserRepo, &service.AuthServiceConfig{
		JWTSecret:         appCfg.JWT.Secret,
		Issuer:            appCfg.JWT.Issuer,
		AccessTokenExpiry: appCfg.JWT.AccessTokenTTL,
	})

	// Initialize handlers
	if c.Redis != nil {
		c.HealthHandler = handler.NewHealthHandler(c.DB, c.Redis)
	} else {
		c.HealthHandler = handler.NewHealthHandler(c.DB, nil)
	}
	c.BookingHandler = handler.NewBookingHandler(c.BookingService)
	c.EventHandler = handler.NewEventHandler(c.EventService)
	c.AuthHandler = handler.NewAuthHandler(c.AuthService)

	// Initialize workers
	c.RankingPruneWorker = worker.NewRankingPruneWorker(c.Ranking, &worker.RankingPruneWorkerConfig{
		Interval: appCfg.Ranking.PruneInterval,
	})

	return c
}
