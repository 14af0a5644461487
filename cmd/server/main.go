package main

import (
	"context"
	"fmt"
	"log"

	"github.com/rancheye/analysis_server/config"
	"github.com/rancheye/analysis_server/internal/api"
	"github.com/rancheye/analysis_server/internal/api/handler"
	"github.com/rancheye/analysis_server/internal/database"
	"github.com/rancheye/analysis_server/internal/pkg/pubsub"
	"github.com/rancheye/analysis_server/internal/pkg/ws"
	"github.com/rancheye/analysis_server/internal/repository"
	"github.com/rancheye/analysis_server/internal/vision"
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

	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}
	log.Println("Redis connected")

	taskRepo := repository.NewTaskRepository(db)
	resultRepo := repository.NewResultRepository(db)
	alertRepo := repository.NewAlertRepository(db)
	costRepo := repository.NewCostRepository(db)
	configRepo := repository.NewConfigRepository(db)

	// First boot of a fresh database gets the stock ranch configs.
	if n, err := configRepo.SeedDefaults(); err != nil {
		log.Printf("Warning: failed to seed default configs: %v", err)
	} else if n > 0 {
		log.Printf("Seeded %d default analysis configs", n)
	}

	registry := vision.BuildRegistry(cfg.Providers)
	log.Printf("Vision providers: %v", registry.Names())

	// Bridge worker events from redis to connected dashboards.
	wsHub := ws.NewHub()
	subscriber := pubsub.NewSubscriber(rdb)
	go func() {
		err := subscriber.Listen(context.Background(), func(event *pubsub.Event) {
			if err := wsHub.Broadcast(&ws.Message{Type: event.Type, Data: event}); err != nil {
				log.Printf("Broadcast failed: %v", err)
			}
		})
		if err != nil && err != context.Canceled {
			log.Printf("Event subscriber stopped: %v", err)
		}
	}()

	router := api.NewRouter(
		handler.NewTaskHandler(taskRepo),
		handler.NewResultHandler(resultRepo),
		handler.NewAlertHandler(alertRepo),
		handler.NewCostHandler(costRepo),
		handler.NewConfigHandler(configRepo, registry),
		handler.NewModelsHandler(registry),
		handler.NewWebSocketHandler(wsHub, cfg.JWT.Secret),
		cfg,
	)

	engine := router.Setup()
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Server listening on %s", addr)
	if err := engine.Run(addr); err != nil {
		log.Fatalf("Server exited: %v", err)
	}
}
