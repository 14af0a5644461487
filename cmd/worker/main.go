package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/rancheye/analysis_server/config"
	"github.com/rancheye/analysis_server/internal/database"
	"github.com/rancheye/analysis_server/internal/pkg/pubsub"
	"github.com/rancheye/analysis_server/internal/repository"
	"github.com/rancheye/analysis_server/internal/service"
	"github.com/rancheye/analysis_server/internal/vision"
	"github.com/rancheye/analysis_server/internal/worker"
)

func main() {
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.NewMySQL(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}
	log.Println("Database connected")

	// Redis is optional here: without it task/alert events simply are not
	// broadcast to dashboards.
	var publisher *pubsub.Publisher
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Printf("Warning: redis unavailable, events disabled: %v", err)
	} else {
		publisher = pubsub.NewPublisher(rdb)
		log.Println("Redis connected")
	}

	taskRepo := repository.NewTaskRepository(db)
	configRepo := repository.NewConfigRepository(db)
	imageRepo := repository.NewImageRepository(db)
	resultRepo := repository.NewResultRepository(db)
	cacheRepo := repository.NewCacheRepository(db)
	alertRepo := repository.NewAlertRepository(db)
	costRepo := repository.NewCostRepository(db)

	registry := vision.BuildRegistry(cfg.Providers)
	if len(registry.Names()) == 0 {
		log.Fatal("No vision providers configured; nothing to do")
	}
	log.Printf("Vision providers: %v", registry.Names())

	sessionSvc := service.NewSessionService(registry)
	alertSvc := service.NewAlertService(alertRepo, publisher, cfg.Alerts.DefaultCooldown())
	costSvc := service.NewCostService(costRepo)
	ingestSvc := service.NewIngestService(imageRepo, configRepo, taskRepo, cfg.Queue.BatchSize)

	processor := worker.NewProcessor(
		taskRepo, configRepo, imageRepo, resultRepo, cacheRepo,
		sessionSvc, alertSvc, costSvc, publisher,
		worker.ProcessorOptions{
			Workers:         cfg.Queue.MaxWorkers,
			PollInterval:    cfg.Queue.PollInterval(),
			ProviderTimeout: cfg.Queue.ProviderTimeout(),
			RetryBackoff:    cfg.Queue.RetryBackoff(),
			CacheTTL:        cfg.Cache.TTL(),
		},
	)

	sweeper := worker.NewSweeper(ingestSvc, taskRepo, cacheRepo,
		cfg.Queue.ScanInterval(), cfg.Queue.StaleAfter())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sweeper.Start(ctx); err != nil {
		log.Fatalf("Failed to start sweeper: %v", err)
	}
	defer sweeper.Stop()

	processor.Run(ctx)
	log.Println("Worker shut down")
}
