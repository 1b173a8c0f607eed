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

	"github.com/cpconnect/chms-sync/internal/chms"
	"github.com/cpconnect/chms-sync/internal/config"
	"github.com/cpconnect/chms-sync/internal/domain"
	"github.com/cpconnect/chms-sync/internal/engine"
	"github.com/cpconnect/chms-sync/internal/media"
	"github.com/cpconnect/chms-sync/internal/repository/postgres"
	"github.com/cpconnect/chms-sync/internal/wordpress"
	"github.com/cpconnect/chms-sync/internal/worker"
)

func main() {
	log.Println("Starting ChMS sync worker...")

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

	s3Client, err := media.NewS3Client(context.Background(), cfg.Media.S3)
	if err != nil {
		log.Fatalf("Failed to build S3 client: %v", err)
	}
	var thumbs wordpress.Thumbnails
	if s3Client != nil {
		thumbs = media.NewProcessor(cfg.Media, s3Client)
		log.Printf("Thumbnail cache bucket: %s", cfg.Media.S3.Bucket)
	} else {
		thumbs = media.NewProcessor(cfg.Media, nil)
		log.Println("Thumbnail cache disabled (no S3 bucket configured)")
	}

	wpClient := wordpress.NewClient(cfg.WordPress)
	ledger := postgres.NewPostLedgerRepo(db)
	sink := wordpress.NewSink(wpClient, ledger, thumbs)

	configs := make(map[domain.ContentType]engine.ContentTypeConfig, len(cfg.Sync.ContentTypes))
	contentTypes := make([]domain.ContentType, 0, len(cfg.Sync.ContentTypes))
	for _, ctCfg := range cfg.Sync.ContentTypes {
		ct := domain.ContentType(ctCfg.Type)
		if !ct.Valid() {
			log.Fatalf("Unknown content type in config: %q", ctCfg.Type)
		}
		if ctCfg.RestBase != "" {
			sink.SetRestBase(ct, ctCfg.RestBase)
		}
		configs[ct] = engine.ContentTypeConfig{
			FieldMapping: ctCfg.Mapping,
			CustomFields: ctCfg.CustomFields,
			Defaults:     ctCfg.Defaults,
		}
		contentTypes = append(contentTypes, ct)
	}

	orchestrator := engine.NewOrchestrator(
		chmsClient,
		sink,
		postgres.NewSnapshotRepo(db),
		postgres.NewOptionsRepo(db),
		configs,
	)

	queue := worker.NewQueue(redisClient)
	scheduler := worker.NewScheduler(queue, contentTypes, cfg.Sync.Interval())
	syncWorker := worker.NewSyncWorker(queue, orchestrator, postgres.NewRunRepo(db), redisClient, db)

	if err := syncWorker.Start(); err != nil {
		log.Fatalf("Failed to start sync worker: %v", err)
	}
	if err := scheduler.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	log.Printf("Worker running, syncing %v every %s", contentTypes, cfg.Sync.Interval())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down worker...")
	scheduler.Stop()
	syncWorker.Stop()
	log.Println("Worker stopped")
}
