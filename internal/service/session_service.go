// Package service holds the orchestration logic between the task queue and
// the vision providers: session resolution, alert evaluation, cost
// accounting, and the ingestion scan.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/rancheye/analysis_server/internal/model"
	"github.com/rancheye/analysis_server/internal/vision"
)

// SessionOutcome is the resolver's verdict for one task. Members holds every
// invocation made (primary, then secondary, then tiebreaker if used), in
// order. Final points at the member whose parsed data stands as the verdict.
type SessionOutcome struct {
	// SessionID is set only for multi-model runs.
	SessionID *string
	Members   []*vision.Response
	Final     *vision.Response

	// Agreement is true for single-model runs and for sessions where both
	// models reached the same conclusion.
	Agreement bool
	// TiebreakerUsed marks the last member as the arbitration call.
	TiebreakerUsed bool
	// NeedsReview flags an unresolved disagreement for operator attention.
	NeedsReview bool
	// Confidence is the effective confidence of the verdict. On an
	// unresolved disagreement it is the minimum across the disagreeing
	// members, not the winner's own score.
	Confidence float64
}

// Failed reports whether no member produced usable output.
func (o *SessionOutcome) Failed() bool {
	return o.Final == nil || o.Final.Failed()
}

// SessionService runs one or more vision models against an image and
// resolves their outputs into a single verdict.
type SessionService struct {
	registry *vision.Registry
}

func NewSessionService(registry *vision.Registry) *SessionService {
	return &SessionService{registry: registry}
}

// Resolve executes the config's model set for one image. Single-model
// configs are a plain pass-through. Multi-model configs run primary and
// secondary concurrently under a shared session id, compare their
// conclusions, and on disagreement either invoke the tiebreaker or fall back
// to the lower-confidence-wins-nothing rule: the higher-confidence answer is
// kept but the verdict carries the minimum confidence and a review flag.
func (s *SessionService) Resolve(ctx context.Context, cfg *model.AnalysisConfig, req vision.Request) (*SessionOutcome, error) {
	primary, err := s.registry.Get(cfg.Provider)
	if err != nil {
		return nil, err
	}

	if !cfg.MultiModel() {
		req.Model = cfg.ModelName
		resp := primary.AnalyzeImage(ctx, req)
		return &SessionOutcome{
			Members:    []*vision.Response{resp},
			Final:      resp,
			Agreement:  true,
			Confidence: resp.Confidence,
		}, nil
	}

	secondary, err := s.registry.Get(cfg.SecondaryProvider)
	if err != nil {
		return nil, err
	}

	sessionID := uuid.NewString()
	outcome := &SessionOutcome{SessionID: &sessionID}

	primaryReq := req
	primaryReq.Model = cfg.ModelName
	secondaryReq := req
	secondaryReq.Model = cfg.SecondaryModel

	var wg sync.WaitGroup
	var primaryResp, secondaryResp *vision.Response
	wg.Add(2)
	go func() {
		defer wg.Done()
		primaryResp = primary.AnalyzeImage(ctx, primaryReq)
	}()
	go func() {
		defer wg.Done()
		secondaryResp = secondary.AnalyzeImage(ctx, secondaryReq)
	}()
	wg.Wait()

	outcome.Members = []*vision.Response{primaryResp, secondaryResp}

	switch {
	case primaryResp.Failed() && secondaryResp.Failed():
		outcome.Final = primaryResp
		return outcome, nil
	case primaryResp.Failed():
		// One opinion survived; usable, but flagged.
		outcome.Final = secondaryResp
		outcome.NeedsReview = true
		outcome.Confidence = secondaryResp.Confidence
		return outcome, nil
	case secondaryResp.Failed():
		outcome.Final = primaryResp
		outcome.NeedsReview = true
		outcome.Confidence = primaryResp.Confidence
		return outcome, nil
	}

	if conclusionsAgree(cfg.AnalysisType, primaryResp.Parsed, secondaryResp.Parsed) {
		outcome.Agreement = true
		outcome.Final = higherConfidence(primaryResp, secondaryResp)
		outcome.Confidence = outcome.Final.Confidence
		return outcome, nil
	}

	if cfg.HasTiebreaker() {
		tiebreaker, err := s.registry.Get(cfg.TiebreakerProvider)
		if err != nil {
			log.Printf("session %s: tiebreaker provider unavailable: %v", sessionID, err)
		} else {
			tbReq := req
			tbReq.Model = cfg.TiebreakerModel
			tbReq.Prompt = tiebreakerPrompt(req.Prompt, primaryResp, secondaryResp)
			tbResp := tiebreaker.AnalyzeImage(ctx, tbReq)
			outcome.Members = append(outcome.Members, tbResp)
			if !tbResp.Failed() {
				outcome.Final = tbResp
				outcome.TiebreakerUsed = true
				outcome.Confidence = tbResp.Confidence
				return outcome, nil
			}
			log.Printf("session %s: tiebreaker call failed: %v", sessionID, tbResp.Err)
		}
	}

	// Unresolved disagreement: keep the more confident answer, carry the
	// more pessimistic confidence, and flag for a human.
	outcome.Final = higherConfidence(primaryResp, secondaryResp)
	outcome.Confidence = minConfidence(primaryResp, secondaryResp)
	outcome.NeedsReview = true
	return outcome, nil
}

// conclusionsAgree compares the decision-bearing fields for the analysis
// type. Confidence scores and free-text reasoning never count as
// disagreement.
func conclusionsAgree(analysisType string, a, b model.JSONMap) bool {
	switch analysisType {
	case model.AnalysisTypeGateDetection:
		return a.Bool("gate_visible") == b.Bool("gate_visible") &&
			a.Bool("gate_open") == b.Bool("gate_open")
	case model.AnalysisTypeWaterLevel:
		return a.String("water_level") == b.String("water_level")
	case model.AnalysisTypeFeedBin:
		return a.String("feed_level") == b.String("feed_level")
	default:
		return a.String("conclusion") == b.String("conclusion")
	}
}

func higherConfidence(a, b *vision.Response) *vision.Response {
	if b.Confidence > a.Confidence {
		return b
	}
	return a
}

func minConfidence(a, b *vision.Response) float64 {
	if b.Confidence < a.Confidence {
		return b.Confidence
	}
	return a.Confidence
}

// tiebreakerPrompt wraps the original prompt with both disputed answers so
// the arbiter judges the image with the disagreement in view.
func tiebreakerPrompt(original string, a, b *vision.Response) string {
	aJSON, _ := json.Marshal(a.Parsed)
	bJSON, _ := json.Marshal(b.Parsed)
	return fmt.Sprintf(`Two AI models analyzed this image and disagreed.

Model 1 (%s/%s) concluded:
%s

Model 2 (%s/%s) concluded:
%s

Analyze the image yourself and resolve the disagreement. %s`,
		a.Provider, a.Model, aJSON,
		b.Provider, b.Model, bJSON,
		original)
}
