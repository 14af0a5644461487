// Package worker runs the analysis loop: claim a task, resolve it through
// the vision providers (or the cache), record results and costs, evaluate
// alerts, and settle the task's final state.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/rancheye/analysis_server/internal/model"
	"github.com/rancheye/analysis_server/internal/pkg/pubsub"
	"github.com/rancheye/analysis_server/internal/repository"
	"github.com/rancheye/analysis_server/internal/service"
	"github.com/rancheye/analysis_server/internal/vision"
)

type Processor struct {
	tasks   *repository.TaskRepository
	configs *repository.ConfigRepository
	images  *repository.ImageRepository
	results *repository.ResultRepository
	cache   *repository.CacheRepository

	sessions *service.SessionService
	alerts   *service.AlertService
	costs    *service.CostService

	publisher *pubsub.Publisher

	workers         int
	pollInterval    time.Duration
	providerTimeout time.Duration
	retryBackoff    time.Duration
	cacheTTL        time.Duration
}

type ProcessorOptions struct {
	Workers         int
	PollInterval    time.Duration
	ProviderTimeout time.Duration
	RetryBackoff    time.Duration
	CacheTTL        time.Duration
}

func NewProcessor(
	tasks *repository.TaskRepository,
	configs *repository.ConfigRepository,
	images *repository.ImageRepository,
	results *repository.ResultRepository,
	cache *repository.CacheRepository,
	sessions *service.SessionService,
	alerts *service.AlertService,
	costs *service.CostService,
	publisher *pubsub.Publisher,
	opts ProcessorOptions,
) *Processor {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	if opts.ProviderTimeout <= 0 {
		opts.ProviderTimeout = 60 * time.Second
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 24 * time.Hour
	}
	return &Processor{
		tasks:           tasks,
		configs:         configs,
		images:          images,
		results:         results,
		cache:           cache,
		sessions:        sessions,
		alerts:          alerts,
		costs:           costs,
		publisher:       publisher,
		workers:         opts.Workers,
		pollInterval:    opts.PollInterval,
		providerTimeout: opts.ProviderTimeout,
		retryBackoff:    opts.RetryBackoff,
		cacheTTL:        opts.CacheTTL,
	}
}

// Run claims and processes tasks until ctx is cancelled. Each worker
// goroutine polls independently; the DB-level claim keeps them from
// colliding.
func (p *Processor) Run(ctx context.Context) {
	log.Printf("worker: starting %d workers", p.workers)

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.loop(ctx, id)
		}(i)
	}
	wg.Wait()
	log.Printf("worker: all workers stopped")
}

func (p *Processor) loop(ctx context.Context, id int) {
	for {
		if ctx.Err() != nil {
			return
		}

		task, err := p.tasks.ClaimNext()
		if err != nil {
			log.Printf("worker %d: claim failed: %v", id, err)
			task = nil
		}
		if task == nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.pollInterval):
			}
			continue
		}

		if err := p.ProcessTask(ctx, task); err != nil {
			log.Printf("worker %d: task %d: %v", id, task.ID, err)
		}
	}
}

// ProcessTask drives one claimed task to a settled state. Errors returned
// here are bookkeeping failures; analysis failures are absorbed into the
// task's retry/fail transition.
func (p *Processor) ProcessTask(ctx context.Context, task *model.AnalysisTask) error {
	cfg, err := p.configs.GetByID(task.ConfigID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return p.failPermanent(ctx, task, fmt.Sprintf("config %d no longer exists", task.ConfigID))
	}
	if err != nil {
		return fmt.Errorf("load config %d: %w", task.ConfigID, err)
	}

	img, err := p.images.GetByImageID(task.ImageID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return p.failPermanent(ctx, task, fmt.Sprintf("image %s no longer exists", task.ImageID))
	}
	if err != nil {
		return fmt.Errorf("load image %s: %w", task.ImageID, err)
	}

	if entry := p.lookupCache(img, cfg); entry != nil {
		return p.completeFromCache(ctx, task, cfg, img, entry)
	}

	cctx, cancel := context.WithTimeout(ctx, p.providerTimeout)
	defer cancel()

	outcome, err := p.sessions.Resolve(cctx, cfg, vision.Request{
		ImageID:    img.ImageID,
		ImageURL:   img.ImageURL,
		CameraName: img.CameraName,
		CapturedAt: img.CapturedAt,
		Prompt:     cfg.PromptTemplate,
	})
	if err != nil {
		// Provider not configured: retrying cannot help until an operator
		// fixes the config, but the config may be fixed, so retry normally.
		return p.fail(ctx, task, err.Error())
	}

	finalRow, err := p.persistResults(task, cfg, img, outcome)
	if err != nil {
		return fmt.Errorf("persist results: %w", err)
	}

	if outcome.Failed() {
		return p.fail(ctx, task, failureMessage(outcome))
	}

	p.storeCache(img, cfg, outcome)

	if _, err := p.alerts.Evaluate(ctx, cfg, finalRow); err != nil {
		log.Printf("task %d: alert evaluation failed: %v", task.ID, err)
	}

	if err := p.tasks.Complete(task.ID); err != nil {
		return fmt.Errorf("complete task %d: %w", task.ID, err)
	}
	p.publishTaskEvent(ctx, task, img, string(model.TaskStatusCompleted), "")
	return nil
}

// lookupCache keys on the image fingerprint so recaptures of an unchanged
// scene reuse the verdict. Images without a fingerprint never hit.
func (p *Processor) lookupCache(img *model.CameraImage, cfg *model.AnalysisConfig) *model.CacheEntry {
	if img.Fingerprint == "" {
		return nil
	}
	entry, err := p.cache.Lookup(img.Fingerprint, cfg.AnalysisType, cfg.Provider, cfg.ModelName)
	if err != nil {
		log.Printf("cache lookup for %s: %v", img.ImageID, err)
		return nil
	}
	return entry
}

func (p *Processor) storeCache(img *model.CameraImage, cfg *model.AnalysisConfig, outcome *service.SessionOutcome) {
	if img.Fingerprint == "" {
		return
	}
	// Disputed verdicts are not worth reusing.
	if outcome.NeedsReview {
		return
	}
	err := p.cache.Store(img.Fingerprint, cfg.AnalysisType, cfg.Provider, cfg.ModelName,
		outcome.Final.Parsed, outcome.Confidence, p.cacheTTL)
	if err != nil {
		log.Printf("cache store for %s: %v", img.ImageID, err)
	}
}

// completeFromCache settles a task from a cached verdict: a zero-cost result
// row is recorded and alerts are still evaluated, because a reused answer
// can still mean an open gate.
func (p *Processor) completeFromCache(ctx context.Context, task *model.AnalysisTask, cfg *model.AnalysisConfig, img *model.CameraImage, entry *model.CacheEntry) error {
	row := &model.AnalysisResult{
		TaskID:       &task.ID,
		ImageID:      img.ImageID,
		ConfigID:     cfg.ID,
		Camera:       img.CameraName,
		AnalysisType: cfg.AnalysisType,
		Provider:     cfg.Provider,
		ModelName:    cfg.ModelName,
		Result:       entry.Result,
		Confidence:   entry.Confidence,
		Success:      true,
		Cached:       true,
	}
	if err := p.results.Create(row); err != nil {
		return fmt.Errorf("persist cached result: %w", err)
	}

	if _, err := p.alerts.Evaluate(ctx, cfg, row); err != nil {
		log.Printf("task %d: alert evaluation failed: %v", task.ID, err)
	}

	if err := p.tasks.Complete(task.ID); err != nil {
		return fmt.Errorf("complete task %d: %w", task.ID, err)
	}
	p.publishTaskEvent(ctx, task, img, string(model.TaskStatusCompleted), "")
	return nil
}

// persistResults records one row per session member. The returned row is the
// verdict: it carries the session's effective confidence and review flag,
// which on a disputed session differ from the member's own numbers.
func (p *Processor) persistResults(task *model.AnalysisTask, cfg *model.AnalysisConfig, img *model.CameraImage, outcome *service.SessionOutcome) (*model.AnalysisResult, error) {
	var finalRow *model.AnalysisResult

	for i, member := range outcome.Members {
		row := &model.AnalysisResult{
			TaskID:       &task.ID,
			ImageID:      img.ImageID,
			ConfigID:     cfg.ID,
			Camera:       img.CameraName,
			Session:      outcome.SessionID,
			AnalysisType: cfg.AnalysisType,
			Provider:     member.Provider,
			ModelName:    member.Model,
			Result:       member.Parsed,
			RawResponse:  member.RawText,
			Confidence:   member.Confidence,
			Success:      !member.Failed(),
			ProcessingMs: int(member.Duration.Milliseconds()),
			InputTokens:  member.InputTokens,
			OutputTokens: member.OutputTokens,
			Tiebreaker:   outcome.TiebreakerUsed && i == len(outcome.Members)-1,
		}
		if member.Err != nil {
			row.ErrorMessage = member.Err.Error()
		}

		if !member.Failed() {
			cost, err := p.costs.Record(member.Provider, member.Model, member.InputTokens, member.OutputTokens)
			if err != nil {
				log.Printf("task %d: cost record failed: %v", task.ID, err)
			}
			row.Cost = cost
		}

		if member == outcome.Final {
			row.Confidence = outcome.Confidence
			if outcome.NeedsReview {
				data := model.JSONMap{}
				for k, v := range member.Parsed {
					data[k] = v
				}
				data["needs_review"] = true
				row.Result = data
			}
		}

		if err := p.results.Create(row); err != nil {
			return nil, err
		}
		if member == outcome.Final {
			finalRow = row
		}
	}

	return finalRow, nil
}

func (p *Processor) fail(ctx context.Context, task *model.AnalysisTask, msg string) error {
	if err := p.tasks.Fail(task.ID, msg, p.retryBackoff); err != nil {
		return fmt.Errorf("fail task %d: %w", task.ID, err)
	}
	p.publishTaskStatus(ctx, task, msg)
	return nil
}

func (p *Processor) failPermanent(ctx context.Context, task *model.AnalysisTask, msg string) error {
	if err := p.tasks.FailPermanent(task.ID, msg); err != nil {
		return fmt.Errorf("fail task %d: %w", task.ID, err)
	}
	p.publishTaskEvent(ctx, task, nil, string(model.TaskStatusFailed), msg)
	return nil
}

// publishTaskStatus re-reads the task so the event reflects whether Fail
// requeued or terminally failed it.
func (p *Processor) publishTaskStatus(ctx context.Context, task *model.AnalysisTask, msg string) {
	settled, err := p.tasks.GetByID(task.ID)
	status := string(model.TaskStatusFailed)
	if err == nil {
		status = string(settled.Status)
	}
	p.publishTaskEvent(ctx, task, nil, status, msg)
}

func (p *Processor) publishTaskEvent(ctx context.Context, task *model.AnalysisTask, img *model.CameraImage, status, errMsg string) {
	event := &pubsub.Event{
		Type:    pubsub.EventTaskUpdate,
		TaskID:  task.ID,
		ImageID: task.ImageID,
		Status:  status,
		Error:   errMsg,
	}
	if img != nil {
		event.CameraName = img.CameraName
	}
	if err := p.publisher.Publish(ctx, event); err != nil {
		log.Printf("task %d: event publish failed: %v", task.ID, err)
	}
}

func failureMessage(outcome *service.SessionOutcome) string {
	if outcome.Final != nil && outcome.Final.Err != nil {
		return outcome.Final.Err.Error()
	}
	return "all providers failed"
}
