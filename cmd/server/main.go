package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/cpconnect/chms-sync/internal/api"
	"github.com/cpconnect/chms-sync/internal/chms"
	"github.com/cpconnect/chms-sync/internal/config"
	"github.com/cpconnect/chms-sync/internal/domain"
	"github.com/cpconnect/chms-sync/internal/repository/postgres"
	"github.com/cpconnect/chms-sync/internal/worker"
)

func main() {
	log.Println("Starting ChMS sync API server...")

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Println("Connected to database")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	chmsClient, err := chms.New(cfg.ChMS)
	if err != nil {
		log.Fatalf("Failed to build ChMS client: %v", err)
	}
	log.Printf("ChMS vendor: %s", chmsClient.Vendor())

	contentTypes := make([]domain.ContentType, 0, len(cfg.Sync.ContentTypes))
	for _, ct := range cfg.Sync.ContentTypes {
		contentTypes = append(contentTypes, domain.ContentType(ct.Type))
	}

	queue := worker.NewQueue(redisClient)
	runs := postgres.NewRunRepo(db)

	handlers := api.NewHandlers(queue, runs, chmsClient, contentTypes)
	handlers.SetPingers(
		func(ctx context.Context) error { return db.PingContext(ctx) },
		func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	)
	router := api.SetupRoutes(handlers, cfg.Server.AllowedOrigins)
	server := api.NewServer(cfg.Server.Port, router)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
	log.Println("Server stopped")
}
