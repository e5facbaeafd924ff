package main

import (
	"context"
	"log"
	"time"

	"github.com/prohmpiriya/event-booking/migrations"
	"github.com/prohmpiriya/event-booking/pkg/config"
	"github.com/prohmpiriya/event-booking/pkg/database"
	"github.com/prohmpiriya/event-booking/pkg/logger"
	"go.uber.org/zap"
)

// migrate applies the embedded schema migrations and exits
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(&logger.Config{
		Level:       cfg.App.Environment,
		ServiceName: cfg.App.Name + "-migrate",
		Development: cfg.IsDevelopment(),
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	appLog := logger.Get()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := database.NewPostgres(ctx, &database.PostgresConfig{
		Host:           cfg.Database.Host,
		Port:           cfg.Database.Port,
		User:           cfg.Database.User,
		Password:       cfg.Database.Password,
		Database:       cfg.Database.DBName,
		SSLMode:        cfg.Database.SSLMode,
		MaxConns:       2,
		MinConns:       1,
		ConnectTimeout: 5 * time.Second,
		MaxRetries:     5,
		RetryInterval:  2 * time.Second,
	})
	if err != nil {
		appLog.Fatal("Database connection failed", zap.Error(err))
	}
	defer db.Close()

	applied, err := migrations.Apply(ctx, db.Pool())
	if err != nil {
		appLog.Fatal("Migration failed", zap.Error(err))
	}
	if len(applied) == 0 {
		appLog.Info("Schema up to date")
		return
	}
	for _, name := range applied {
		appLog.Info("Applied migration", zap.String("name", name))
	}
}
