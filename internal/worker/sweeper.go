package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rancheye/analysis_server/internal/repository"
	"github.com/rancheye/analysis_server/internal/service"
)

// Sweeper owns the periodic maintenance jobs that keep the queue honest:
// the ingestion scan, stale-task recovery, and cache expiry.
type Sweeper struct {
	ingest *service.IngestService
	tasks  *repository.TaskRepository
	cache  *repository.CacheRepository

	scanInterval time.Duration
	staleAfter   time.Duration

	cron *cron.Cron
}

func NewSweeper(ingest *service.IngestService, tasks *repository.TaskRepository, cache *repository.CacheRepository, scanInterval, staleAfter time.Duration) *Sweeper {
	if scanInterval <= 0 {
		scanInterval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 15 * time.Minute
	}
	return &Sweeper{
		ingest:       ingest,
		tasks:        tasks,
		cache:        cache,
		scanInterval: scanInterval,
		staleAfter:   staleAfter,
	}
}

// Start schedules the jobs and returns immediately. Stop with Stop.
func (s *Sweeper) Start(ctx context.Context) error {
	s.cron = cron.New()

	_, err := s.cron.AddFunc(every(s.scanInterval), func() { s.runScan(ctx) })
	if err != nil {
		return fmt.Errorf("schedule ingest scan: %w", err)
	}
	_, err = s.cron.AddFunc(every(s.staleAfter/3), func() { s.runStaleReset() })
	if err != nil {
		return fmt.Errorf("schedule stale reset: %w", err)
	}
	// Cache expiry is cheap; hourly is plenty.
	_, err = s.cron.AddFunc("@hourly", func() { s.runCachePurge() })
	if err != nil {
		return fmt.Errorf("schedule cache purge: %w", err)
	}

	s.cron.Start()
	log.Printf("sweeper: scan every %s, stale reset every %s", s.scanInterval, s.staleAfter/3)
	return nil
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Sweeper) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

func (s *Sweeper) runScan(ctx context.Context) {
	if _, _, err := s.ingest.Scan(ctx); err != nil {
		log.Printf("sweeper: ingest scan failed: %v", err)
	}
}

func (s *Sweeper) runStaleReset() {
	cutoff := time.Now().UTC().Add(-s.staleAfter)
	requeued, failed, err := s.tasks.ResetStale(cutoff)
	if err != nil {
		log.Printf("sweeper: stale reset failed: %v", err)
		return
	}
	if requeued > 0 || failed > 0 {
		log.Printf("sweeper: recovered stale tasks: %d requeued, %d failed", requeued, failed)
	}
}

func (s *Sweeper) runCachePurge() {
	purged, err := s.cache.PurgeExpired()
	if err != nil {
		log.Printf("sweeper: cache purge failed: %v", err)
		return
	}
	if purged > 0 {
		log.Printf("sweeper: purged %d expired cache entries", purged)
	}
}

// every renders a duration as a cron spec, clamped to a 1s floor.
func every(d time.Duration) string {
	if d < time.Second {
		d = time.Second
	}
	return fmt.Sprintf("@every %s", d)
}
