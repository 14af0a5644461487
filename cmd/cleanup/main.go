package main

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/rancheye/analysis_server/config"
	"github.com/rancheye/analysis_server/internal/database"
	"github.com/rancheye/analysis_server/internal/model"
	"github.com/rancheye/analysis_server/internal/repository"
)

var (
	dryRun       = flag.Bool("dry-run", true, "Report what would be cleaned without changing anything")
	purgeCache   = flag.Bool("purge-cache", true, "Delete expired analysis cache entries")
	resetStale   = flag.Bool("reset-stale", true, "Recover tasks stuck in processing")
	pruneResults = flag.Int("prune-results-days", 0, "Delete result rows older than N days (0 = keep all)")
)

func main() {
	flag.Parse()

	log.Println("Starting cleanup task...")
	log.Printf("Mode: dry-run=%v", *dryRun)

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.NewMySQL(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	now := time.Now().UTC()

	if *purgeCache {
		if *dryRun {
			var count int64
			db.Model(&model.CacheEntry{}).Where("expires_at < ?", now).Count(&count)
			log.Printf("[dry-run] would purge %d expired cache entries", count)
		} else {
			purged, err := repository.NewCacheRepository(db).PurgeExpired()
			if err != nil {
				log.Printf("Cache purge failed: %v", err)
			} else {
				log.Printf("Purged %d expired cache entries", purged)
			}
		}
	}

	if *resetStale {
		cutoff := now.Add(-cfg.Queue.StaleAfter())
		if *dryRun {
			var count int64
			db.Model(&model.AnalysisTask{}).
				Where("status = ? AND started_at < ?", model.TaskStatusProcessing, cutoff).
				Count(&count)
			log.Printf("[dry-run] would recover %d stale tasks (started before %s)", count, cutoff.Format(time.RFC3339))
		} else {
			requeued, failed, err := repository.NewTaskRepository(db).ResetStale(cutoff)
			if err != nil {
				log.Printf("Stale reset failed: %v", err)
			} else {
				log.Printf("Recovered stale tasks: %d requeued, %d failed", requeued, failed)
			}
		}
	}

	if *pruneResults > 0 {
		cutoff := now.AddDate(0, 0, -*pruneResults)
		if *dryRun {
			var count int64
			db.Model(&model.AnalysisResult{}).Where("created_at < ?", cutoff).Count(&count)
			log.Printf("[dry-run] would prune %d result rows older than %d days", count, *pruneResults)
		} else {
			res := db.Where("created_at < ?", cutoff).Delete(&model.AnalysisResult{})
			if res.Error != nil {
				log.Printf("Result prune failed: %v", res.Error)
			} else {
				log.Printf("Pruned %d result rows", res.RowsAffected)
			}
		}
	}

	log.Println("Cleanup finished")
}
